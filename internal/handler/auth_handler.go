package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

// AuthHandler handles operator sign-in and sign-out.
type AuthHandler struct {
	sessions *workspace.Registry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *workspace.Registry) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login godoc
// POST /console/v1/auth/login
// Signs in against the question bank and returns a console session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.Credentials
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := uuid.NewString()
	s, err := h.sessions.Open(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	st, err := s.Manager.Login(c.Request.Context(), req)
	if err != nil {
		h.sessions.Drop(id)
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      id,
		"user":       st.User,
		"expires_at": st.ExpiresAt,
	})
}

// Logout godoc
// POST /console/v1/auth/logout
// Ends the console session and forgets the upstream token.
func (h *AuthHandler) Logout(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := s.Manager.Logout(c.Request.Context()); err != nil {
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	h.sessions.Drop(s.ID)

	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// Me godoc
// GET /console/v1/auth/me
// Returns the signed-in operator and when their session ends.
func (h *AuthHandler) Me(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":       s.Manager.User(),
		"expires_at": s.Manager.ExpiresAt(),
	})
}
