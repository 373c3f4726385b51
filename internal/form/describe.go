package form

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/qbank-console/internal/client"
)

// MessageKind classifies a user-facing message.
type MessageKind string

const (
	KindDuplicate    MessageKind = "duplicate"
	KindInvalid      MessageKind = "invalid"
	KindStale        MessageKind = "stale"
	KindConnectivity MessageKind = "connectivity"
	KindSession      MessageKind = "session"
	KindWarning      MessageKind = "warning"
	KindGeneric      MessageKind = "generic"
)

// Message is an inline, dismissible notice for the operator.
type Message struct {
	Kind   MessageKind       `json:"kind"`
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Describe maps an error to the message shown next to a form or list.
func Describe(err error) Message {
	var (
		invalid *InvalidError
		partial *PartialError
		ce      *client.Error
	)
	switch {
	case err == nil:
		return Message{}
	case errors.As(err, &partial):
		return Message{
			Kind: KindWarning,
			Text: "The " + partial.Entity + " was saved, but its " + partial.What + " were not: " + Describe(partial.Err).Text,
		}
	case errors.As(err, &invalid):
		return Message{
			Kind:   KindInvalid,
			Text:   "Please fix the highlighted fields: " + strings.Join(client.FieldMessages(invalid.Fields), "; "),
			Fields: invalid.Fields,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Message{Kind: KindConnectivity, Text: "The request timed out. Please try again."}
	case !errors.As(err, &ce):
		return Message{Kind: KindGeneric, Text: "Something went wrong: " + err.Error()}
	}

	switch {
	case ce.Status == 409:
		return Message{Kind: KindDuplicate, Text: "An entry with this name already exists here. " + ce.Message}
	case ce.Status == 400 || ce.Status == 422:
		text := ce.Message
		if len(ce.Fields) > 0 {
			text = strings.Join(client.FieldMessages(ce.Fields), "; ")
		}
		return Message{Kind: KindInvalid, Text: text, Fields: ce.Fields}
	case ce.Status == 404:
		return Message{Kind: KindStale, Text: "This item no longer exists. The list has been refreshed."}
	case ce.Status == 0:
		return Message{Kind: KindConnectivity, Text: "Cannot reach the question bank. Check your connection and try again."}
	case ce.Status == 401 || ce.Status == 403:
		return Message{Kind: KindSession, Text: "Your session has expired. Please log in again."}
	}
	return Message{Kind: KindGeneric, Text: "The question bank could not complete the request (" + ce.Message + ")."}
}

