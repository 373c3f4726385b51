package websocket

import "github.com/stemsi/qbank-console/internal/form"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventReady   Event = "ready"
	EventChanged Event = "changed"
	EventPong    Event = "pong"
)

// ReadyResponse is sent once the subscription is in place.
type ReadyResponse struct {
	Event Event  `json:"event"`
	User  string `json:"user"`
}

// ChangedResponse reports an entity saved or deleted in the workspace.
// Clients re-fetch the screens that show the entity.
type ChangedResponse struct {
	Event   Event       `json:"event"`
	Entity  string      `json:"entity"`
	Action  form.Action `json:"action"`
	ID      int64       `json:"id"`
	Warning string      `json:"warning,omitempty"`
}

func NewChangedResponse(ev form.Event) ChangedResponse {
	return ChangedResponse{
		Event:   EventChanged,
		Entity:  ev.Entity,
		Action:  ev.Action,
		ID:      ev.ID,
		Warning: ev.Warning,
	}
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
