package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/list"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

// ScreenHandler drives the list/form screens of the operator's workspace.
type ScreenHandler struct{}

// NewScreenHandler creates a new ScreenHandler.
func NewScreenHandler() *ScreenHandler {
	return &ScreenHandler{}
}

// ScopeRequest changes one selector. A null or empty value clears it.
type ScopeRequest struct {
	Level string          `json:"level" validate:"required"`
	Value json.RawMessage `json:"value"`
}

// PageRequest moves the item list to another page. Size 0 keeps the
// current page size.
type PageRequest struct {
	Page int `json:"page" validate:"min=0"`
	Size int `json:"size" validate:"omitempty,min=1,max=100"`
}

// screen resolves :screen for the current session.
func (h *ScreenHandler) screen(c *gin.Context) (workspace.Screen, bool) {
	w, ok := currentWorkspace(c)
	if !ok {
		return nil, false
	}
	s, err := w.Screen(c.Param("screen"))
	if err != nil {
		failWith(c, err)
		return nil, false
	}
	return s, true
}

func respondState(c *gin.Context, status int, s workspace.Screen, state any) {
	response.SuccessWithPagination(c, status, state, response.PaginationFrom(s.Pagination()))
}

// View godoc
// GET /console/v1/screens/:screen
// Re-fetches the screen for its current scope. ?reset=true starts over
// from an unfiltered first page.
func (h *ScreenHandler) View(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}

	load := s.Refresh
	if reset, _ := strconv.ParseBool(c.Query("reset")); reset {
		load = s.Load
	}
	state, err := load(c.Request.Context())
	if err != nil {
		failWithState(c, err, state)
		return
	}
	respondState(c, http.StatusOK, s, state)
}

// ApplyScope godoc
// POST /console/v1/screens/:screen/scope
// Changes one selector and reloads what depends on it.
func (h *ScreenHandler) ApplyScope(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}

	var req ScopeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	raw, err := scopeValue(req.Value)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"value": err.Error()})
		return
	}
	change, err := cascade.ParseChange(req.Level, raw)
	if err != nil {
		failWith(c, err)
		return
	}

	state, err := s.Apply(c.Request.Context(), change)
	if err != nil {
		failWithState(c, err, state)
		return
	}
	respondState(c, http.StatusOK, s, state)
}

// SetPage godoc
// POST /console/v1/screens/:screen/page
// Moves the item list to another page.
func (h *ScreenHandler) SetPage(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}

	var req PageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := s.SetPage(c.Request.Context(), req.Page, req.Size)
	if err != nil {
		failWithState(c, err, state)
		return
	}
	respondState(c, http.StatusOK, s, state)
}

// Edit godoc
// POST /console/v1/screens/:screen/edit/:id
// Loads a row into the form for editing.
func (h *ScreenHandler) Edit(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	state, err := s.Edit(c.Request.Context(), id)
	if err != nil {
		failWithState(c, err, state)
		return
	}
	respondState(c, http.StatusOK, s, state)
}

// Cancel godoc
// POST /console/v1/screens/:screen/cancel
// Returns the form to add mode.
func (h *ScreenHandler) Cancel(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}
	respondState(c, http.StatusOK, s, s.Cancel())
}

// Submit godoc
// POST /console/v1/screens/:screen/submit
// Creates or updates the entity from the JSON form input. A question whose
// options could not be saved is still reported as saved; the form message
// carries the warning.
func (h *ScreenHandler) Submit(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	state, err := s.Submit(c.Request.Context(), raw)
	var partial *form.PartialError
	if err != nil && !errors.As(err, &partial) {
		failWithState(c, err, state)
		return
	}
	respondState(c, http.StatusOK, s, state)
}

// Delete godoc
// DELETE /console/v1/screens/:screen/items/:id?confirm=true
// Deletes a row. Without confirm=true nothing is sent upstream.
func (h *ScreenHandler) Delete(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	outcome, state, err := s.Delete(c.Request.Context(), id, list.Preapproved(confirmed))
	switch outcome {
	case list.OutcomeDeclined:
		response.FailWithDetail(c, http.StatusPreconditionRequired, response.ErrConfirmationRequired,
			"Repeat the request with confirm=true to delete.", nil, state)
		return
	case list.OutcomeFailed:
		failWithState(c, err, state)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{
		"outcome": outcome,
		"state":   state,
	}, response.PaginationFrom(s.Pagination()))
}

// DismissNotice godoc
// POST /console/v1/screens/:screen/dismiss
// Clears the screen's last error notice.
func (h *ScreenHandler) DismissNotice(c *gin.Context) {
	s, ok := h.screen(c)
	if !ok {
		return
	}
	respondState(c, http.StatusOK, s, s.DismissNotice())
}

// scopeValue accepts a selector value as a JSON string, number or null.
func scopeValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
