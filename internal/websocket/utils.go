package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// PongWait is how long a silent peer is tolerated.
	PongWait = 60 * time.Second
	// PingPeriod must stay below PongWait.
	PingPeriod = PongWait * 9 / 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a protocol-level ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// KeepAlive arms the read deadline and extends it on every pong.
func KeepAlive(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// Any message counts as liveness.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.ReadJSON(v); err != nil {
		return err
	}
	return conn.SetReadDeadline(time.Now().Add(PongWait))
}
