package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/list"
	"github.com/stemsi/qbank-console/internal/model"
)

// Screen names.
const (
	ScreenClasses   = "classes"
	ScreenSubjects  = "subjects"
	ScreenChapters  = "chapters"
	ScreenQuestions = "questions"
)

var (
	ErrUnknownScreen  = errors.New("unknown screen")
	ErrMalformedInput = errors.New("malformed form input")
)

// Screen is the type-erased face of a list+form pair, for transports that
// address screens by name. States are list.State values.
type Screen interface {
	Name() string
	Supports(level cascade.Level) bool
	Load(ctx context.Context) (any, error)
	Refresh(ctx context.Context) (any, error)
	Apply(ctx context.Context, change cascade.Change) (any, error)
	SetPage(ctx context.Context, page, size int) (any, error)
	Edit(ctx context.Context, id int64) (any, error)
	Cancel() any
	// Submit decodes raw into the screen's form input and submits it.
	Submit(ctx context.Context, raw []byte) (any, error)
	Delete(ctx context.Context, id int64, c list.Confirmer) (list.Outcome, any, error)
	DismissNotice() any
	State() any
	// Pagination describes the page of items the state currently holds.
	Pagination() model.Pagination
}

type screen[T model.Entity, I any] struct {
	name string
	l    *list.Controller[T, I]
}

func (s screen[T, I]) Name() string { return s.name }

func (s screen[T, I]) Supports(level cascade.Level) bool { return s.l.Cascade().Supports(level) }

func (s screen[T, I]) Load(ctx context.Context) (any, error) { return s.l.Load(ctx) }

func (s screen[T, I]) Refresh(ctx context.Context) (any, error) { return s.l.Refresh(ctx) }

func (s screen[T, I]) Apply(ctx context.Context, change cascade.Change) (any, error) {
	return s.l.Apply(ctx, change)
}

func (s screen[T, I]) SetPage(ctx context.Context, page, size int) (any, error) {
	return s.l.SetPage(ctx, page, size)
}

func (s screen[T, I]) Edit(ctx context.Context, id int64) (any, error) { return s.l.Edit(ctx, id) }

func (s screen[T, I]) Cancel() any { return s.l.Cancel() }

func (s screen[T, I]) Submit(ctx context.Context, raw []byte) (any, error) {
	var in I
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return s.l.State(), fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	_, st, err := s.l.Submit(ctx, in)
	return st, err
}

func (s screen[T, I]) Delete(ctx context.Context, id int64, c list.Confirmer) (list.Outcome, any, error) {
	outcome, err := s.l.Delete(ctx, id, c)
	return outcome, s.l.State(), err
}

func (s screen[T, I]) DismissNotice() any {
	s.l.DismissNotice()
	return s.l.State()
}

func (s screen[T, I]) State() any { return s.l.State() }

func (s screen[T, I]) Pagination() model.Pagination { return s.l.Cascade().View().Items.Meta() }
