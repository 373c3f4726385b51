// Package workspace bundles one operator's screens and the actions that span
// them: paper status, paper assembly, downloads and change notifications.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/importer"
	"github.com/stemsi/qbank-console/internal/list"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
)

// Services are the entity services a workspace talks to.
type Services struct {
	Classes   *service.ClassService
	Subjects  *service.SubjectService
	Chapters  *service.ChapterService
	Questions *service.QuestionService
	Options   *service.MCQOptionService
}

// NewServices builds every entity service on one backend.
func NewServices(api service.Backend) Services {
	return Services{
		Classes:   service.NewClassService(api),
		Subjects:  service.NewSubjectService(api),
		Chapters:  service.NewChapterService(api),
		Questions: service.NewQuestionService(api),
		Options:   service.NewMCQOptionService(api),
	}
}

type Config struct {
	PageSize     int
	LoadAttempts int
	LoadBackoff  time.Duration
}

type (
	ClassScreen    = list.Controller[model.ClassEntity, form.ClassInput]
	SubjectScreen  = list.Controller[model.Subject, form.SubjectInput]
	ChapterScreen  = list.Controller[model.Chapter, form.ChapterInput]
	QuestionScreen = list.Controller[model.Question, form.QuestionInput]
)

// Workspace is safe for concurrent use.
type Workspace struct {
	Classes   *ClassScreen
	Subjects  *SubjectScreen
	Chapters  *ChapterScreen
	Questions *QuestionScreen

	svc     Services
	screens map[string]Screen
	events  *hub
	log     zerolog.Logger
}

// New creates a workspace. Screens are not loaded until asked.
func New(svc Services, cfg Config, log zerolog.Logger) *Workspace {
	w := &Workspace{
		svc:    svc,
		events: newHub(log),
		log:    log.With().Str("component", "workspace").Logger(),
	}
	describe := func(err error) string { return form.Describe(err).Text }
	listOpts := []list.Option{list.WithLogger(log)}
	if cfg.LoadAttempts > 0 {
		listOpts = append(listOpts, list.WithRetry(cfg.LoadAttempts, cfg.LoadBackoff))
	}

	w.Classes = list.New("class",
		cascade.New[model.ClassEntity](w.loadClasses,
			cascade.WithLevels[model.ClassEntity](),
			cascade.WithPageSize[model.ClassEntity](cfg.PageSize),
			cascade.WithErrorText[model.ClassEntity](describe),
			cascade.WithLogger[model.ClassEntity](log),
		),
		form.NewClassForm(svc.Classes, log), svc.Classes, listOpts...)

	w.Subjects = list.New("subject",
		cascade.New[model.Subject](w.loadSubjects,
			cascade.WithClasses[model.Subject](svc.Classes),
			cascade.WithLevels[model.Subject](cascade.LevelClass),
			cascade.WithPageSize[model.Subject](cfg.PageSize),
			cascade.WithErrorText[model.Subject](describe),
			cascade.WithLogger[model.Subject](log),
		),
		form.NewSubjectForm(svc.Subjects, log), svc.Subjects, listOpts...)

	w.Chapters = list.New("chapter",
		cascade.New[model.Chapter](w.loadChapters,
			cascade.WithClasses[model.Chapter](svc.Classes),
			cascade.WithSubjects[model.Chapter](svc.Subjects),
			cascade.WithLevels[model.Chapter](cascade.LevelClass, cascade.LevelSubject),
			cascade.WithPageSize[model.Chapter](cfg.PageSize),
			cascade.WithErrorText[model.Chapter](describe),
			cascade.WithLogger[model.Chapter](log),
		),
		form.NewChapterForm(svc.Chapters, log), svc.Chapters, listOpts...)

	w.Questions = list.New("question",
		cascade.New[model.Question](w.loadQuestions,
			cascade.WithClasses[model.Question](svc.Classes),
			cascade.WithSubjects[model.Question](svc.Subjects),
			cascade.WithChapters[model.Question](svc.Chapters),
			cascade.WithPageSize[model.Question](cfg.PageSize),
			cascade.WithErrorText[model.Question](describe),
			cascade.WithLogger[model.Question](log),
		),
		form.NewQuestionForm(svc.Questions, svc.Options, log), svc.Questions, listOpts...)

	w.screens = map[string]Screen{
		ScreenClasses:   screen[model.ClassEntity, form.ClassInput]{ScreenClasses, w.Classes},
		ScreenSubjects:  screen[model.Subject, form.SubjectInput]{ScreenSubjects, w.Subjects},
		ScreenChapters:  screen[model.Chapter, form.ChapterInput]{ScreenChapters, w.Chapters},
		ScreenQuestions: screen[model.Question, form.QuestionInput]{ScreenQuestions, w.Questions},
	}

	w.Classes.Form().OnChanged(w.events.publish)
	w.Classes.OnDeleted(w.events.publish)
	w.Subjects.Form().OnChanged(w.events.publish)
	w.Subjects.OnDeleted(w.events.publish)
	w.Chapters.Form().OnChanged(w.events.publish)
	w.Chapters.OnDeleted(w.events.publish)
	w.Questions.Form().OnChanged(w.events.publish)
	w.Questions.OnDeleted(w.events.publish)
	return w
}

// Screen looks a screen up by name.
func (w *Workspace) Screen(name string) (Screen, error) {
	s, ok := w.screens[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return s, nil
}

// Subscribe returns a channel of change events and a function that ends
// the subscription.
func (w *Workspace) Subscribe(buffer int) (<-chan form.Event, func()) {
	return w.events.subscribe(buffer)
}

// Close ends every subscription.
func (w *Workspace) Close() { w.events.close() }

// TogglePaper flips a question's added-to-paper flag and refreshes the
// question screen.
func (w *Workspace) TogglePaper(ctx context.Context, id int64) (*model.Question, error) {
	q, err := w.svc.Questions.TogglePaperStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle paper status of question %d: %w", id, err)
	}
	w.log.Info().Int64("question_id", id).Bool("added", q.IsAddedToPaper).Msg("Paper status toggled")

	if _, err := w.Questions.Refresh(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Refresh after toggle failed")
	}
	w.events.publish(ctx, form.Event{Entity: "question", Action: form.ActionUpdated, ID: id})
	return q, nil
}

// DownloadPaper fetches the rendered paper of a subject.
func (w *Workspace) DownloadPaper(ctx context.Context, subjectID int64) (*client.Document, error) {
	return w.svc.Questions.DownloadPaper(ctx, subjectID)
}

// GenerateChapterPaper renders a chapter paper. Options are checked locally.
func (w *Workspace) GenerateChapterPaper(ctx context.Context, chapterID int64, opts model.PaperOptions) (*client.Document, error) {
	if opts.OutputFormat == "" {
		opts.OutputFormat = "pdf"
	}
	if fields := validator.Struct(opts); fields != nil {
		return nil, &form.InvalidError{Fields: fields}
	}
	return w.svc.Chapters.GeneratePaper(ctx, chapterID, opts)
}

// Import writes a bank document through the workspace's services. Every
// screen hears about it as one "bank" event.
func (w *Workspace) Import(ctx context.Context, doc *importer.Document) (importer.Summary, error) {
	im := importer.New(importer.Targets{
		Classes:   w.svc.Classes,
		Subjects:  w.svc.Subjects,
		Chapters:  w.svc.Chapters,
		Questions: w.svc.Questions,
		Options:   w.svc.Options,
	}, w.log)
	sum, err := im.Import(ctx, doc)
	if sum != (importer.Summary{}) {
		w.events.publish(ctx, form.Event{Entity: "bank", Action: form.ActionCreated})
	}
	return sum, err
}

// ─── Item loaders ─────────────────────────────────────────────

func (w *Workspace) loadClasses(ctx context.Context, _ cascade.Scope, p cascade.Paging) (model.Page[model.ClassEntity], error) {
	return w.svc.Classes.ListPaged(ctx, p.Page, p.Size)
}

func (w *Workspace) loadSubjects(ctx context.Context, s cascade.Scope, p cascade.Paging) (model.Page[model.Subject], error) {
	if s.ClassID == 0 {
		return w.svc.Subjects.ListPaged(ctx, p.Page, p.Size)
	}
	rows, err := w.svc.Subjects.FilterByClass(ctx, s.ClassID)
	if err != nil {
		return model.Page[model.Subject]{}, err
	}
	return model.Slice(rows, p.Page, p.Size), nil
}

func (w *Workspace) loadChapters(ctx context.Context, s cascade.Scope, p cascade.Paging) (model.Page[model.Chapter], error) {
	if s.ClassID == 0 && s.SubjectID == 0 {
		return w.svc.Chapters.ListPaged(ctx, p.Page, p.Size)
	}
	rows, err := w.svc.Chapters.Filter(ctx, model.ChapterFilter{SubjectID: s.SubjectID, ClassID: s.ClassID})
	if err != nil {
		return model.Page[model.Chapter]{}, err
	}
	return model.Slice(rows, p.Page, p.Size), nil
}

// loadQuestions fetches one page and attaches options to its MCQ rows.
func (w *Workspace) loadQuestions(ctx context.Context, s cascade.Scope, p cascade.Paging) (model.Page[model.Question], error) {
	page, err := w.svc.Questions.Filter(ctx, s.QuestionFilter(p))
	if err != nil {
		return page, err
	}
	if err := w.attachOptions(ctx, page.Content); err != nil {
		return model.Page[model.Question]{}, err
	}
	return page, nil
}

// attachOptions fills MCQOptions of the MCQ questions in place with one call.
func (w *Workspace) attachOptions(ctx context.Context, qs []model.Question) error {
	var ids []int64
	for _, q := range qs {
		if q.IsMCQ() {
			ids = append(ids, q.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	byQuestion, err := w.svc.Options.OptionsByQuestionIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	for i := range qs {
		if opts, ok := byQuestion[qs[i].ID]; ok {
			qs[i].MCQOptions = opts
			qs[i].OptionCount = len(opts)
		}
	}
	return nil
}

// QuestionsInScope collects every question in the question screen's
// current scope, options attached, walking all pages.
func (w *Workspace) QuestionsInScope(ctx context.Context) ([]model.Question, error) {
	return w.CollectQuestions(ctx, w.Questions.Cascade().Scope().QuestionFilter(cascade.Paging{}))
}

// CollectQuestions walks every page of f and attaches options.
func (w *Workspace) CollectQuestions(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	const batch = 100
	f.Size = batch
	var out []model.Question
	for f.Page = 0; ; f.Page++ {
		page, err := w.svc.Questions.Filter(ctx, f)
		if err != nil {
			return nil, err
		}
		if err := w.attachOptions(ctx, page.Content); err != nil {
			return nil, err
		}
		out = append(out, page.Content...)
		if page.Last || len(page.Content) == 0 || f.Page+1 >= page.TotalPages {
			return out, nil
		}
	}
}

// ─── Events ───────────────────────────────────────────────────

type hub struct {
	mu     sync.Mutex
	subs   map[int]chan form.Event
	next   int
	closed bool
	log    zerolog.Logger
}

func newHub(log zerolog.Logger) *hub {
	return &hub{subs: make(map[int]chan form.Event), log: log}
}

func (h *hub) subscribe(buffer int) (<-chan form.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan form.Event, max(buffer, 1))
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// publish never blocks; slow subscribers lose events.
func (h *hub) publish(_ context.Context, ev form.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Warn().Str("entity", ev.Entity).Int64("id", ev.ID).Msg("Dropping workspace event for slow subscriber")
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
