package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindAuth       Kind = "auth"
	KindUnknown    Kind = "unknown"
)

// Sentinels for errors.Is matching against *Error.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrNetwork    = errors.New("backend unreachable")
	ErrServer     = errors.New("backend server error")
	ErrAuth       = errors.New("not authorized")
)

// Error is returned for every non-2xx response and every transport failure.
// Status is 0 when no response was received.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrAuth:
		return e.Kind == KindAuth
	}
	return false
}

// FieldMessages renders a field map as "field: message" entries sorted by
// field name.
func FieldMessages(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+fields[k])
	}
	return out
}
