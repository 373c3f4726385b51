package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/workspace"
)

const (
	// ContextKeySession is the Gin context key for the operator session.
	ContextKeySession = "console_session"
)

// RequireSession resolves the console session id from the Authorization
// header and attaches the operator's session to the context.
func RequireSession(reg *workspace.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		attachSession(c, reg, bearerToken(c))
	}
}

// RequireWSSession reads the session id from ?token=... for WebSocket
// upgrades, which cannot carry headers from a browser.
func RequireWSSession(reg *workspace.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		attachSession(c, reg, c.Query("token"))
	}
}

// GetSession retrieves the operator session from the Gin context.
func GetSession(c *gin.Context) *workspace.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	s, ok := val.(*workspace.Session)
	if !ok {
		return nil
	}
	return s
}

func attachSession(c *gin.Context, reg *workspace.Registry, id string) {
	if id == "" {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	s, err := reg.Open(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if !s.Manager.IsLoggedIn() {
		held := s.Manager.Snapshot().Token != ""
		reg.Drop(id)
		if held {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
		} else {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		}
		return
	}

	c.Set(ContextKeySession, s)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
