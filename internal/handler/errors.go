package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/workspace"
)

// failWith writes the envelope for an error returned by a workspace
// operation. A rejected upstream token ends the console session too.
func failWith(c *gin.Context, err error) {
	failWithState(c, err, nil)
}

// failWithState is failWith for screen operations, which report the state
// the failure left behind.
func failWithState(c *gin.Context, err error, state any) {
	status, code := classify(err)
	if code == response.ErrSessionInvalidated {
		if s := middleware.GetSession(c); s != nil {
			_ = s.Manager.Logout(c.Request.Context())
		}
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	msg := form.Describe(err)
	response.FailWithDetail(c, status, code, msg.Text, msg.Fields, state)
}

func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, workspace.ErrUnknownScreen):
		return http.StatusNotFound, response.ErrUnknownScreen
	case errors.Is(err, workspace.ErrMalformedInput):
		return http.StatusBadRequest, response.ErrInvalidPayload
	case errors.Is(err, form.ErrInvalidInput):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, cascade.ErrUnsupportedLevel),
		errors.Is(err, cascade.ErrUnknownLevel),
		errors.Is(err, cascade.ErrInvalidValue):
		return http.StatusBadRequest, response.ErrInvalidScope
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response.ErrUpstreamUnavailable
	case errors.Is(err, client.ErrValidation):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, client.ErrConflict):
		return http.StatusConflict, response.ErrConflict
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, client.ErrAuth):
		return http.StatusUnauthorized, response.ErrSessionInvalidated
	case errors.Is(err, client.ErrNetwork):
		return http.StatusBadGateway, response.ErrUpstreamUnavailable
	case errors.Is(err, client.ErrServer):
		return http.StatusBadGateway, response.ErrUpstream
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// paramID parses a positive int64 path parameter. It writes the failure
// response itself and reports false.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// currentWorkspace returns the workspace attached by RequireSession.
func currentWorkspace(c *gin.Context) (*workspace.Workspace, bool) {
	s := middleware.GetSession(c)
	if s == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return s.Workspace, true
}
