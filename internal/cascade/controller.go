// Package cascade keeps the class → subject → chapter (+ section type)
// selectors of a screen consistent and re-fetches whatever depends on them.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/qbank-console/internal/model"
)

const DefaultPageSize = 10

// Panel names one re-fetchable collection in a view.
type Panel string

const (
	PanelClasses  Panel = "classes"
	PanelSubjects Panel = "subjects"
	PanelChapters Panel = "chapters"
	PanelItems    Panel = "items"
)

// ItemLoader fetches one page of the screen's dependent list for a scope.
type ItemLoader[T any] func(ctx context.Context, scope Scope, paging Paging) (model.Page[T], error)

type ClassSource interface {
	ListAll(ctx context.Context) ([]model.ClassEntity, error)
}

type SubjectSource interface {
	ListAll(ctx context.Context) ([]model.Subject, error)
	FilterByClass(ctx context.Context, classID int64) ([]model.Subject, error)
}

type ChapterSource interface {
	ListAll(ctx context.Context) ([]model.Chapter, error)
	Filter(ctx context.Context, f model.ChapterFilter) ([]model.Chapter, error)
}

// View is a consistent snapshot of a controller.
type View[T any] struct {
	Scope    Scope               `json:"scope"`
	Paging   Paging              `json:"paging"`
	Classes  []model.ClassEntity `json:"classes,omitempty"`
	Subjects []model.Subject     `json:"subjects,omitempty"`
	Chapters []model.Chapter     `json:"chapters,omitempty"`
	Items    model.Page[T]       `json:"items"`
	Loading  []Panel             `json:"loading,omitempty"`
	Errors   map[Panel]string    `json:"errors,omitempty"`
}

// Controller owns a scope and the panels derived from it. Safe for concurrent
// use; network calls run outside the lock and each panel applies only the
// response to its most recently issued request.
type Controller[T any] struct {
	mu sync.Mutex

	scope  Scope
	paging Paging

	classes  []model.ClassEntity
	subjects []model.Subject
	chapters []model.Chapter
	items    model.Page[T]

	issued  map[Panel]uint64
	loading map[Panel]bool
	errs    map[Panel]error

	loadItems   ItemLoader[T]
	classSrc    ClassSource
	subjectSrc  SubjectSource
	chapterSrc  ChapterSource
	levels      []Level
	errorText   func(error) string
	log         zerolog.Logger
	defaultSize int
}

type Option[T any] func(*Controller[T])

// WithClasses populates the class selector.
func WithClasses[T any](src ClassSource) Option[T] {
	return func(c *Controller[T]) { c.classSrc = src }
}

// WithSubjects populates the subject selector.
func WithSubjects[T any](src SubjectSource) Option[T] {
	return func(c *Controller[T]) { c.subjectSrc = src }
}

// WithChapters populates the chapter selector.
func WithChapters[T any](src ChapterSource) Option[T] {
	return func(c *Controller[T]) { c.chapterSrc = src }
}

// WithLevels restricts the levels a screen accepts. The default is all four.
func WithLevels[T any](levels ...Level) Option[T] {
	return func(c *Controller[T]) { c.levels = levels }
}

func WithPageSize[T any](size int) Option[T] {
	return func(c *Controller[T]) {
		if size > 0 {
			c.defaultSize = size
		}
	}
}

// WithErrorText sets how panel errors are rendered in views.
func WithErrorText[T any](fn func(error) string) Option[T] {
	return func(c *Controller[T]) { c.errorText = fn }
}

func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(c *Controller[T]) { c.log = log }
}

// New creates a controller for a screen whose dependent list is loaded by items.
func New[T any](items ItemLoader[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		loadItems:   items,
		levels:      []Level{LevelClass, LevelSubject, LevelChapter, LevelSection},
		errorText:   func(err error) string { return err.Error() },
		log:         zerolog.Nop(),
		defaultSize: DefaultPageSize,
		issued:      make(map[Panel]uint64),
		loading:     make(map[Panel]bool),
		errs:        make(map[Panel]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.paging = Paging{Page: 0, Size: c.defaultSize}
	c.items = model.PageFromSlice[T](nil)
	return c
}

// Supports reports whether the screen accepts changes at level.
func (c *Controller[T]) Supports(level Level) bool {
	return slices.Contains(c.levels, level)
}

// Init resets the scope and loads every panel unfiltered.
func (c *Controller[T]) Init(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	c.scope = Scope{}
	c.paging = Paging{Page: 0, Size: c.defaultSize}
	panels := c.allPanels()
	c.mu.Unlock()

	return c.fetch(ctx, panels)
}

// Apply changes one scope level and re-fetches the panels that depend on it.
// The scope change sticks even when a fetch fails; failed panels are emptied
// and carry an error in the view. The returned error joins panel failures.
func (c *Controller[T]) Apply(ctx context.Context, change Change) (View[T], error) {
	if !c.Supports(change.Level) {
		return c.View(), fmt.Errorf("%w: %s", ErrUnsupportedLevel, change.Level)
	}

	c.mu.Lock()
	c.scope = c.scope.With(change)
	c.paging.Page = 0

	var panels []Panel
	switch change.Level {
	case LevelClass:
		panels = c.optionPanels(PanelSubjects, PanelChapters)
	case LevelSubject:
		panels = c.optionPanels(PanelChapters)
	}
	panels = append(panels, PanelItems)
	// Options and rows from the previous scope must not stay selectable
	// while the new ones load.
	for _, p := range panels {
		c.clearPanel(p)
	}
	c.mu.Unlock()

	c.log.Debug().
		Str("level", string(change.Level)).
		Int64("id", change.ID).
		Str("section", string(change.Section)).
		Msg("Scope changed")

	return c.fetch(ctx, panels)
}

// Refresh re-fetches every panel for the current scope and page. When the
// current page has become empty it steps back to the last non-empty page.
func (c *Controller[T]) Refresh(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	panels := c.allPanels()
	c.mu.Unlock()

	view, err := c.fetch(ctx, panels)
	if err != nil {
		return view, err
	}

	c.mu.Lock()
	stepBack := len(c.items.Content) == 0 && c.paging.Page > 0 && c.items.TotalPages > 0
	if stepBack {
		c.paging.Page = c.items.TotalPages - 1
	}
	c.mu.Unlock()

	if stepBack {
		return c.fetch(ctx, []Panel{PanelItems})
	}
	return view, nil
}

// SetPage moves the dependent list to another page. size <= 0 keeps the current size.
func (c *Controller[T]) SetPage(ctx context.Context, page, size int) (View[T], error) {
	c.mu.Lock()
	c.paging.Page = max(page, 0)
	if size > 0 {
		c.paging.Size = size
	}
	c.mu.Unlock()

	return c.fetch(ctx, []Panel{PanelItems})
}

// Scope returns the active scope.
func (c *Controller[T]) Scope() Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// DismissError clears the transient error of one panel.
func (c *Controller[T]) DismissError(p Panel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errs, p)
}

// View returns a snapshot of the current state.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// ─── Fetching ─────────────────────────────────────────────────

func (c *Controller[T]) allPanels() []Panel {
	panels := c.optionPanels(PanelClasses, PanelSubjects, PanelChapters)
	return append(panels, PanelItems)
}

// optionPanels keeps only the selector panels that have a configured source.
func (c *Controller[T]) optionPanels(candidates ...Panel) []Panel {
	var out []Panel
	for _, p := range candidates {
		switch {
		case p == PanelClasses && c.classSrc != nil,
			p == PanelSubjects && c.subjectSrc != nil,
			p == PanelChapters && c.chapterSrc != nil:
			out = append(out, p)
		}
	}
	return out
}

type request struct {
	panel Panel
	tag   uint64
}

func (c *Controller[T]) fetch(ctx context.Context, panels []Panel) (View[T], error) {
	c.mu.Lock()
	scope, paging := c.scope, c.paging
	reqs := make([]request, 0, len(panels))
	for _, p := range panels {
		c.issued[p]++
		c.loading[p] = true
		reqs = append(reqs, request{panel: p, tag: c.issued[p]})
	}
	c.mu.Unlock()

	var (
		g      errgroup.Group
		errMu  sync.Mutex
		failed []error
	)
	for _, r := range reqs {
		g.Go(func() error {
			if err := c.fetchPanel(ctx, r, scope, paging); err != nil {
				errMu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", r.panel, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return c.View(), errors.Join(failed...)
}

// fetchPanel loads one panel and applies the result if it is still current.
// A superseded response is dropped and reports no error.
func (c *Controller[T]) fetchPanel(ctx context.Context, r request, scope Scope, paging Paging) error {
	var (
		apply func()
		err   error
	)

	switch r.panel {
	case PanelClasses:
		var out []model.ClassEntity
		out, err = c.classSrc.ListAll(ctx)
		apply = func() { c.classes = out }
	case PanelSubjects:
		var out []model.Subject
		if scope.ClassID == 0 {
			out, err = c.subjectSrc.ListAll(ctx)
		} else {
			out, err = c.subjectSrc.FilterByClass(ctx, scope.ClassID)
		}
		apply = func() { c.subjects = out }
	case PanelChapters:
		var out []model.Chapter
		if scope.ClassID == 0 && scope.SubjectID == 0 {
			out, err = c.chapterSrc.ListAll(ctx)
		} else {
			out, err = c.chapterSrc.Filter(ctx, model.ChapterFilter{SubjectID: scope.SubjectID, ClassID: scope.ClassID})
		}
		apply = func() { c.chapters = out }
	case PanelItems:
		var out model.Page[T]
		out, err = c.loadItems(ctx, scope, paging)
		apply = func() {
			if out.Content == nil {
				out.Content = []T{}
			}
			c.items = out
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.issued[r.panel] != r.tag {
		c.log.Debug().Str("panel", string(r.panel)).Msg("Discarding superseded response")
		return nil
	}
	c.loading[r.panel] = false

	if err != nil {
		c.log.Warn().Err(err).Str("panel", string(r.panel)).Msg("Panel fetch failed")
		c.clearPanel(r.panel)
		c.errs[r.panel] = err
		return err
	}
	delete(c.errs, r.panel)
	apply()
	return nil
}

func (c *Controller[T]) clearPanel(p Panel) {
	switch p {
	case PanelClasses:
		c.classes = nil
	case PanelSubjects:
		c.subjects = nil
	case PanelChapters:
		c.chapters = nil
	case PanelItems:
		c.items = model.PageFromSlice[T](nil)
	}
}

func (c *Controller[T]) viewLocked() View[T] {
	v := View[T]{
		Scope:    c.scope,
		Paging:   c.paging,
		Classes:  slices.Clone(c.classes),
		Subjects: slices.Clone(c.subjects),
		Chapters: slices.Clone(c.chapters),
		Items:    c.items,
	}
	v.Items.Content = slices.Clone(c.items.Content)

	for _, p := range []Panel{PanelClasses, PanelSubjects, PanelChapters, PanelItems} {
		if c.loading[p] {
			v.Loading = append(v.Loading, p)
		}
	}
	if len(c.errs) > 0 {
		v.Errors = make(map[Panel]string, len(c.errs))
		for p, err := range c.errs {
			v.Errors[p] = c.errorText(err)
		}
	}
	return v
}
