// Package form implements the add/edit state machine shared by every entity
// screen: bind an entity to edit it, submit to create or update, and notify
// subscribers when something changed.
package form

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/validator"
)

// Mode is the form state. A form starts in ModeAdd.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

// Action describes what happened to an entity.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is emitted after a successful change.
type Event struct {
	Entity  string `json:"entity"`
	Action  Action `json:"action"`
	ID      int64  `json:"id"`
	Warning string `json:"warning,omitempty"`
}

// ChangeFunc receives change events. Handlers run on the submitting goroutine.
type ChangeFunc func(ctx context.Context, ev Event)

var ErrInvalidInput = errors.New("invalid input")

// InvalidError carries the local validation failures of a submission.
type InvalidError struct {
	Fields map[string]string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(client.FieldMessages(e.Fields), "; "))
}

func (e *InvalidError) Is(target error) bool { return target == ErrInvalidInput }

// PartialError reports an entity that was saved while a dependent write
// (MCQ options) failed. The entity returned alongside it is valid.
type PartialError struct {
	Entity string
	ID     int64
	What   string
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s %d saved but %s failed: %v", e.Entity, e.ID, e.What, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Definition describes one entity's form.
type Definition[T model.Entity, I any] struct {
	Entity string

	// FromEntity turns a bound entity into an editable input.
	FromEntity func(T) I
	// Normalize trims and defaults input before validation. Optional.
	Normalize func(I) I
	// Check adds rules the struct tags cannot express. bound is the entity
	// being edited, nil in add mode. Optional.
	Check func(in I, bound *T) map[string]string

	Create func(ctx context.Context, in I) (T, error)
	Update func(ctx context.Context, id int64, in I) (T, error)
}

// State is a snapshot of a form.
type State[I any] struct {
	Mode    Mode     `json:"mode"`
	BoundID int64    `json:"boundId,omitempty"`
	Input   I        `json:"input"`
	Message *Message `json:"message,omitempty"`
}

// Form is safe for concurrent use.
type Form[T model.Entity, I any] struct {
	mu sync.Mutex

	def     Definition[T, I]
	mode    Mode
	boundID int64
	bound   *T
	input   I
	msg     *Message
	gen     uint64

	handlers []ChangeFunc
	log      zerolog.Logger
}

// New creates a form in add mode.
func New[T model.Entity, I any](def Definition[T, I], log zerolog.Logger) *Form[T, I] {
	return &Form[T, I]{
		def:  def,
		mode: ModeAdd,
		log:  log.With().Str("form", def.Entity).Logger(),
	}
}

// OnChanged registers a change handler.
func (f *Form[T, I]) OnChanged(fn ChangeFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, fn)
}

// Bind switches to edit mode for entity.
func (f *Form[T, I]) Bind(entity T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.mode = ModeEdit
	f.boundID = entity.EntityID()
	f.bound = &entity
	f.input = f.def.FromEntity(entity)
	f.msg = nil
}

// Cancel drops any bound entity and returns to add mode.
func (f *Form[T, I]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

// Release returns to add mode if id is the bound entity. It reports whether
// the form was released.
func (f *Form[T, I]) Release(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode != ModeEdit || f.boundID != id {
		return false
	}
	f.resetLocked()
	return true
}

// DismissMessage clears the last message.
func (f *Form[T, I]) DismissMessage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msg = nil
}

func (f *Form[T, I]) State() State[I] {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := State[I]{Mode: f.mode, BoundID: f.boundID, Input: f.input}
	if f.msg != nil {
		m := *f.msg
		s.Message = &m
	}
	return s
}

// Submit validates in and creates or updates depending on the mode. On
// success the form returns to add mode and change handlers run. On failure
// the form keeps its mode and the error is both returned and described in
// the state message. A *PartialError counts as success with a warning.
func (f *Form[T, I]) Submit(ctx context.Context, in I) (T, error) {
	var zero T
	if f.def.Normalize != nil {
		in = f.def.Normalize(in)
	}

	f.mu.Lock()
	mode, id, bound, gen := f.mode, f.boundID, f.bound, f.gen
	f.input = in
	f.mu.Unlock()

	if fields := f.validate(in, bound); len(fields) > 0 {
		err := &InvalidError{Fields: fields}
		f.fail(err)
		return zero, err
	}

	var (
		out    T
		err    error
		action Action
	)
	if mode == ModeEdit {
		action = ActionUpdated
		out, err = f.def.Update(ctx, id, in)
	} else {
		action = ActionCreated
		out, err = f.def.Create(ctx, in)
	}

	var partial *PartialError
	if err != nil && !errors.As(err, &partial) {
		f.fail(err)
		return zero, err
	}

	ev := Event{Entity: f.def.Entity, Action: action, ID: out.EntityID()}

	f.mu.Lock()
	// A Bind or Cancel during the call owns the form now.
	if f.gen == gen {
		f.resetLocked()
	}
	if partial != nil {
		msg := Describe(partial)
		f.msg = &msg
		ev.Warning = msg.Text
	}
	handlers := slices.Clone(f.handlers)
	f.mu.Unlock()

	evt := f.log.Info()
	if partial != nil {
		evt = f.log.Warn().Err(partial.Err)
	}
	evt.Str("action", string(action)).Int64("id", ev.ID).Msg("Entity saved")

	for _, h := range handlers {
		h(ctx, ev)
	}
	return out, err
}

func (f *Form[T, I]) validate(in I, bound *T) map[string]string {
	fields := validator.Struct(in)
	if f.def.Check != nil {
		for k, v := range f.def.Check(in, bound) {
			if fields == nil {
				fields = make(map[string]string)
			}
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
	return fields
}

func (f *Form[T, I]) fail(err error) {
	msg := Describe(err)
	f.mu.Lock()
	f.msg = &msg
	f.mu.Unlock()
	f.log.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("Submit failed")
}

func (f *Form[T, I]) resetLocked() {
	var zero I
	f.gen++
	f.mode = ModeAdd
	f.boundID = 0
	f.bound = nil
	f.input = zero
	f.msg = nil
}
