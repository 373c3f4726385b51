package model

import (
	"bytes"
	"fmt"
	"time"
)

// Entity is implemented by every question-bank record addressable by id.
type Entity interface {
	EntityID() int64
}

// Audit carries the bookkeeping columns the backend stamps on every record.
type Audit struct {
	CreatedAt LocalTime `json:"createdAt,omitzero"`
	UpdatedAt LocalTime `json:"updatedAt,omitzero"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// LocalTime is a timestamp that may arrive without a zone offset
// ("2025-01-20T10:30:00"). Zone-less values are read as UTC.
type LocalTime struct {
	time.Time
}

var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *LocalTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("local time: expected string, got %s", b)
	}
	s := string(b[1 : len(b)-1])
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range localLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("local time: unrecognised timestamp %q", s)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format("2006-01-02T15:04:05") + `"`), nil
}
