// Package list drives one entity screen: the filtered collection, row
// edit/delete actions and refreshes after changes.
package list

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/model"
)

const (
	DefaultAttempts = 2
	DefaultBackoff  = 300 * time.Millisecond
)

// Confirmer asks the operator before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Preapproved is a Confirmer carrying an answer given ahead of time, e.g. a
// ?confirm=true query flag or a -yes switch.
type Preapproved bool

func (p Preapproved) Confirm(context.Context, string) bool { return bool(p) }

// Service is what a list needs from an entity service.
type Service[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Outcome of a delete request.
type Outcome string

const (
	OutcomeDeclined    Outcome = "declined"
	OutcomeDeleted     Outcome = "deleted"
	OutcomeAlreadyGone Outcome = "already_gone"
	OutcomeFailed      Outcome = "failed"
)

// State is what a screen renders.
type State[T any, I any] struct {
	View   cascade.View[T] `json:"view"`
	Form   form.State[I]   `json:"form"`
	Notice *form.Message   `json:"notice,omitempty"`
}

// Controller pairs a cascade view with the form editing its rows.
type Controller[T model.Entity, I any] struct {
	entity string
	view   *cascade.Controller[T]
	form   *form.Form[T, I]
	svc    Service[T]

	attempts int
	backoff  time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	notice    *form.Message
	listeners []form.ChangeFunc
}

type Option func(*settings)

type settings struct {
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

// WithRetry sets the load attempts and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *settings) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// New wires a list to its form: form changes refresh the list.
func New[T model.Entity, I any](entity string, view *cascade.Controller[T], f *form.Form[T, I], svc Service[T], opts ...Option) *Controller[T, I] {
	s := settings{attempts: DefaultAttempts, backoff: DefaultBackoff, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	l := &Controller[T, I]{
		entity:   entity,
		view:     view,
		form:     f,
		svc:      svc,
		attempts: s.attempts,
		backoff:  s.backoff,
		log:      s.log.With().Str("list", entity).Logger(),
	}
	f.OnChanged(l.HandleChanged)
	return l
}

// OnDeleted registers a handler for successful deletes.
func (l *Controller[T, I]) OnDeleted(fn form.ChangeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Controller[T, I]) Entity() string { return l.entity }
func (l *Controller[T, I]) Form() *form.Form[T, I] { return l.form }
func (l *Controller[T, I]) Cascade() *cascade.Controller[T] { return l.view }

// Load fetches the collection and its selector options from scratch. A 404
// is retried with a linearly growing delay; other failures are not.
func (l *Controller[T, I]) Load(ctx context.Context) (State[T, I], error) {
	var err error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		_, err = l.view.Init(ctx)
		if err == nil || !errors.Is(err, client.ErrNotFound) || attempt == l.attempts {
			break
		}
		delay := time.Duration(attempt) * l.backoff
		l.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("List load returned 404, retrying")
		if werr := wait(ctx, delay); werr != nil {
			err = werr
			break
		}
	}
	l.setNotice(err)
	return l.State(), err
}

// Apply changes the scope.
func (l *Controller[T, I]) Apply(ctx context.Context, change cascade.Change) (State[T, I], error) {
	_, err := l.view.Apply(ctx, change)
	if !errors.Is(err, cascade.ErrUnsupportedLevel) {
		l.setNotice(err)
	}
	return l.State(), err
}

func (l *Controller[T, I]) SetPage(ctx context.Context, page, size int) (State[T, I], error) {
	_, err := l.view.SetPage(ctx, page, size)
	l.setNotice(err)
	return l.State(), err
}

// Refresh re-fetches everything for the current scope.
func (l *Controller[T, I]) Refresh(ctx context.Context) (State[T, I], error) {
	_, err := l.view.Refresh(ctx)
	l.setNotice(err)
	return l.State(), err
}

// Edit binds row id to the form. Rows outside the current page are fetched.
func (l *Controller[T, I]) Edit(ctx context.Context, id int64) (State[T, I], error) {
	row, ok := l.row(id)
	if !ok {
		fetched, err := l.svc.GetByID(ctx, id)
		if err != nil {
			l.setNotice(err)
			return l.State(), fmt.Errorf("load %s %d: %w", l.entity, id, err)
		}
		row = *fetched
	}
	l.form.Bind(row)
	l.setNotice(nil)
	return l.State(), nil
}

// Cancel returns the form to add mode.
func (l *Controller[T, I]) Cancel() State[T, I] {
	l.form.Cancel()
	return l.State()
}

// Submit forwards to the form; a successful submit refreshes the list
// through HandleChanged.
func (l *Controller[T, I]) Submit(ctx context.Context, in I) (T, State[T, I], error) {
	out, err := l.form.Submit(ctx, in)
	return out, l.State(), err
}

// Delete asks c first and only then deletes. A row that is already gone
// counts as deleted: the list refreshes and the 404 is still returned.
func (l *Controller[T, I]) Delete(ctx context.Context, id int64, c Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("Delete %s #%d? This cannot be undone.", l.entity, id)
	if c == nil || !c.Confirm(ctx, prompt) {
		l.log.Debug().Int64("id", id).Msg("Delete declined")
		return OutcomeDeclined, nil
	}

	err := l.svc.Delete(ctx, id)
	outcome := OutcomeDeleted
	switch {
	case err == nil:
		l.setNotice(nil)
	case errors.Is(err, client.ErrNotFound):
		outcome = OutcomeAlreadyGone
		l.setNotice(err)
	default:
		l.setNotice(err)
		l.log.Warn().Err(err).Int64("id", id).Msg("Delete failed")
		return OutcomeFailed, err
	}

	l.log.Info().Int64("id", id).Str("outcome", string(outcome)).Msg("Entity deleted")
	l.form.Release(id)
	if _, rerr := l.view.Refresh(ctx); rerr != nil {
		l.log.Warn().Err(rerr).Msg("Refresh after delete failed")
		if err == nil {
			l.setNotice(rerr)
		}
	}

	ev := form.Event{Entity: l.entity, Action: form.ActionDeleted, ID: id}
	l.mu.Lock()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, ev)
	}
	return outcome, err
}

// HandleChanged re-fetches after the form saved an entity.
func (l *Controller[T, I]) HandleChanged(ctx context.Context, ev form.Event) {
	if _, err := l.view.Refresh(ctx); err != nil {
		l.log.Warn().Err(err).Int64("id", ev.ID).Msg("Refresh after change failed")
		l.setNotice(err)
	}
}

func (l *Controller[T, I]) DismissNotice() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notice = nil
}

// State combines the view, the form and the last notice.
func (l *Controller[T, I]) State() State[T, I] {
	st := State[T, I]{View: l.view.View(), Form: l.form.State()}
	l.mu.Lock()
	if l.notice != nil {
		n := *l.notice
		st.Notice = &n
	}
	l.mu.Unlock()
	return st
}

func (l *Controller[T, I]) row(id int64) (T, bool) {
	for _, item := range l.view.View().Items.Content {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (l *Controller[T, I]) setNotice(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		l.notice = nil
		return
	}
	msg := form.Describe(err)
	l.notice = &msg
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
