package form

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/fakeapi"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/service"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newBackend(t *testing.T) (*fakeapi.Server, *client.Client) {
	t.Helper()
	fake := fakeapi.New()
	srv := fake.Start()
	t.Cleanup(srv.Close)
	return fake, client.New(srv.URL)
}

func TestClassForm_CreateThenEdit(t *testing.T) {
	fake, api := newBackend(t)
	f := NewClassForm(service.NewClassService(api), zerolog.Nop())
	rec := &recorder{}
	f.OnChanged(rec.handle)
	ctx := context.Background()

	created, err := f.Submit(ctx, ClassInput{Name: "  Grade 9 "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Grade 9" || created.ID == 0 {
		t.Fatalf("created = %+v", created)
	}
	if st := f.State(); st.Mode != ModeAdd || st.Message != nil {
		t.Fatalf("state after create = %+v", st)
	}

	f.Bind(created)
	if st := f.State(); st.Mode != ModeEdit || st.BoundID != created.ID || st.Input.Name != "Grade 9" {
		t.Fatalf("state after bind = %+v", st)
	}

	updated, err := f.Submit(ctx, ClassInput{Name: "Grade IX"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Grade IX" {
		t.Fatalf("updated = %+v", updated)
	}
	if st := f.State(); st.Mode != ModeAdd || st.BoundID != 0 {
		t.Fatalf("state after update = %+v", st)
	}

	want := []Event{
		{Entity: "class", Action: ActionCreated, ID: created.ID},
		{Entity: "class", Action: ActionUpdated, ID: created.ID},
	}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := fake.Calls(http.MethodPost, "/api/classes"); n != 1 {
		t.Errorf("POST calls = %d", n)
	}
}

func TestClassForm_LocalValidationSkipsBackend(t *testing.T) {
	fake, api := newBackend(t)
	f := NewClassForm(service.NewClassService(api), zerolog.Nop())
	rec := &recorder{}
	f.OnChanged(rec.handle)

	_, err := f.Submit(context.Background(), ClassInput{Name: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	var invalid *InvalidError
	if !errors.As(err, &invalid) || invalid.Fields["name"] == "" {
		t.Fatalf("fields = %+v", invalid)
	}
	if n := fake.Calls(http.MethodPost, "/api/classes"); n != 0 {
		t.Errorf("backend called %d times", n)
	}
	if len(rec.all()) != 0 {
		t.Errorf("change emitted on invalid input")
	}
	st := f.State()
	if st.Message == nil || st.Message.Kind != KindInvalid {
		t.Fatalf("message = %+v", st.Message)
	}
	f.DismissMessage()
	if f.State().Message != nil {
		t.Error("message not dismissed")
	}
}

func TestClassForm_DuplicateKeepsEditMode(t *testing.T) {
	fake, api := newBackend(t)
	fake.SeedClass("Grade 9")
	other := fake.SeedClass("Grade 10")
	f := NewClassForm(service.NewClassService(api), zerolog.Nop())

	f.Bind(other)
	_, err := f.Submit(context.Background(), ClassInput{Name: "grade 9"})
	if !errors.Is(err, client.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	st := f.State()
	if st.Mode != ModeEdit || st.BoundID != other.ID {
		t.Errorf("form left edit mode: %+v", st)
	}
	if st.Message == nil || st.Message.Kind != KindDuplicate {
		t.Errorf("message = %+v", st.Message)
	}
}

func TestForm_ReleaseAndCancel(t *testing.T) {
	_, api := newBackend(t)
	f := NewClassForm(service.NewClassService(api), zerolog.Nop())
	f.Bind(model.ClassEntity{ID: 7, Name: "Grade 7"})

	if f.Release(8) {
		t.Error("released for an unbound id")
	}
	if f.State().Mode != ModeEdit {
		t.Fatal("wrong release changed mode")
	}
	if !f.Release(7) {
		t.Error("bound id not released")
	}
	if st := f.State(); st.Mode != ModeAdd || st.Input.Name != "" {
		t.Errorf("state = %+v", st)
	}

	f.Bind(model.ClassEntity{ID: 9, Name: "Grade 9"})
	f.Cancel()
	if f.State().Mode != ModeAdd {
		t.Error("cancel kept edit mode")
	}
}

func TestSubjectForm_StaleParent(t *testing.T) {
	_, api := newBackend(t)
	f := NewSubjectForm(service.NewSubjectService(api), zerolog.Nop())

	_, err := f.Submit(context.Background(), SubjectInput{Name: "Math", ClassID: 404})
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if m := f.State().Message; m == nil || m.Kind != KindStale {
		t.Errorf("message = %+v", m)
	}
}

func TestChapterForm_BindCarriesAncestors(t *testing.T) {
	fake, api := newBackend(t)
	class := fake.SeedClass("Grade 9")
	subject := fake.SeedSubject("Math", class.ID)
	chapters := service.NewChapterService(api)
	ch, err := chapters.Create(context.Background(), model.CreateChapterRequest{Name: "Algebra", SubjectID: subject.ID})
	if err != nil {
		t.Fatal(err)
	}

	f := NewChapterForm(chapters, zerolog.Nop())
	f.Bind(*ch)
	in := f.State().Input
	if in.ClassID != class.ID || in.SubjectID != subject.ID {
		t.Fatalf("input = %+v", in)
	}

	in.SelectClass(class.ID + 100)
	if in.SubjectID != 0 {
		t.Errorf("subject not cleared: %+v", in)
	}
}

func setupQuestionForm(t *testing.T) (*fakeapi.Server, *Form[model.Question, QuestionInput], model.Chapter) {
	t.Helper()
	fake, api := newBackend(t)
	class := fake.SeedClass("Grade 9")
	subject := fake.SeedSubject("Math", class.ID)
	chapter := fake.SeedChapter("Algebra", subject.ID)
	f := NewQuestionForm(service.NewQuestionService(api), service.NewMCQOptionService(api), zerolog.Nop())
	return fake, f, chapter
}

func TestQuestionForm_CreateMCQWithOptions(t *testing.T) {
	fake, f, chapter := setupQuestionForm(t)

	q, err := f.Submit(context.Background(), QuestionInput{
		QuestionText: "Solve x",
		SectionType:  model.SectionMCQ,
		ChapterID:    chapter.ID,
		Options: []OptionInput{
			{Text: "1", Correct: true}, {Text: "2"}, {Text: "3"}, {Text: "4"}, {Text: "  "},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if q.QuestionType != model.QuestionSingleChoice || q.Marks != 1 {
		t.Errorf("defaults not applied: %+v", q)
	}
	if len(q.MCQOptions) != 4 {
		t.Fatalf("options = %+v", q.MCQOptions)
	}
	stored, _ := fake.Question(q.ID)
	if stored.OptionCount != 4 {
		t.Errorf("stored option count = %d", stored.OptionCount)
	}
}

func TestQuestionForm_OptionRules(t *testing.T) {
	correct := func(texts ...string) []OptionInput {
		out := make([]OptionInput, len(texts))
		for i, text := range texts {
			out[i] = OptionInput{Text: text, Correct: strings.HasPrefix(text, "*")}
		}
		return out
	}

	tests := []struct {
		name      string
		section   model.SectionType
		qtype     model.QuestionType
		options   []OptionInput
		wantField string
	}{
		{"mcq with one option", model.SectionMCQ, "", correct("*a"), "options"},
		{"mcq without options", model.SectionMCQ, "", nil, "options"},
		{"mcq with seven options", model.SectionMCQ, "", make7(), "options"},
		{"mcq with two options", model.SectionMCQ, "", correct("*a", "b"), ""},
		{"single choice without a correct option", model.SectionMCQ, model.QuestionSingleChoice, correct("a", "b"), "correctOptions"},
		{"single choice with three correct options", model.SectionMCQ, model.QuestionSingleChoice, correct("*a", "*b", "*c", "d"), "correctOptions"},
		{"default type is single choice", model.SectionMCQ, "", correct("*a", "*b"), "correctOptions"},
		{"multiple choice without a correct option", model.SectionMCQ, model.QuestionMultipleChoice, correct("a", "b", "c"), "correctOptions"},
		{"multiple choice with two correct options", model.SectionMCQ, model.QuestionMultipleChoice, correct("*a", "*b", "c"), ""},
		{"short ignores options", model.SectionShort, "", correct("stray"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, f, chapter := setupQuestionForm(t)
			q, err := f.Submit(context.Background(), QuestionInput{
				QuestionText: "Q",
				SectionType:  tt.section,
				QuestionType: tt.qtype,
				ChapterID:    chapter.ID,
				Options:      tt.options,
			})
			if tt.wantField != "" {
				var invalid *InvalidError
				if !errors.As(err, &invalid) || invalid.Fields[tt.wantField] == "" {
					t.Fatalf("err = %v, want %s error", err, tt.wantField)
				}
				if n := fake.Calls(http.MethodPost, "/api/questions"); n != 0 {
					t.Errorf("invalid question reached the backend %d times", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if n := fake.Calls(http.MethodPost, "/api/mcq-options/multiple"); tt.section != model.SectionMCQ && n != 0 {
				t.Errorf("options created for %s question", tt.section)
			}
			if tt.section != model.SectionMCQ && len(q.MCQOptions) != 0 {
				t.Errorf("options = %+v", q.MCQOptions)
			}
		})
	}
}

func make7() []OptionInput {
	out := make([]OptionInput, 7)
	for i := range out {
		out[i] = OptionInput{Text: fmt.Sprintf("option %d", i+1)}
	}
	return out
}

func TestQuestionForm_OptionFailureStillReportsChange(t *testing.T) {
	fake, f, chapter := setupQuestionForm(t)
	rec := &recorder{}
	f.OnChanged(rec.handle)
	fake.Fail(http.MethodPost, "/api/mcq-options/multiple", http.StatusInternalServerError)

	q, err := f.Submit(context.Background(), QuestionInput{
		QuestionText: "Solve x",
		SectionType:  model.SectionMCQ,
		ChapterID:    chapter.ID,
		Options:      []OptionInput{{Text: "1", Correct: true}, {Text: "2"}},
	})

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialError", err)
	}
	if !errors.Is(err, client.ErrServer) {
		t.Errorf("partial error lost its cause: %v", err)
	}
	if q.ID == 0 || partial.ID != q.ID {
		t.Fatalf("question = %+v, partial = %+v", q, partial)
	}
	if _, ok := fake.Question(q.ID); !ok {
		t.Fatal("question not persisted")
	}

	events := rec.all()
	if len(events) != 1 || events[0].Action != ActionCreated || events[0].Warning == "" {
		t.Fatalf("events = %+v", events)
	}
	st := f.State()
	if st.Mode != ModeAdd || st.Message == nil || st.Message.Kind != KindWarning {
		t.Errorf("state = %+v", st)
	}
	if !strings.Contains(st.Message.Text, "options were not") {
		t.Errorf("warning text = %q", st.Message.Text)
	}
}

func TestQuestionForm_EditKeepsOptionsWhenOmitted(t *testing.T) {
	fake, f, chapter := setupQuestionForm(t)
	seeded := fake.SeedQuestion(model.CreateQuestionRequest{
		QuestionText: "Solve x",
		SectionType:  model.SectionMCQ,
		QuestionType: model.QuestionSingleChoice,
		Marks:        1,
		ChapterID:    chapter.ID,
	}, "1", "2", "3", "4")

	f.Bind(seeded)
	in := f.State().Input
	if in.ChapterID != chapter.ID || in.ClassID == 0 || in.SubjectID == 0 {
		t.Fatalf("bound input = %+v", in)
	}
	in.QuestionText = "Solve for x"

	if _, err := f.Submit(context.Background(), in); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := fake.Question(seeded.ID)
	if stored.QuestionText != "Solve for x" || stored.OptionCount != 4 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestQuestionForm_EditIntoMCQNeedsOptions(t *testing.T) {
	fake, f, chapter := setupQuestionForm(t)
	seeded := fake.SeedQuestion(model.CreateQuestionRequest{
		QuestionText: "Define a variable",
		SectionType:  model.SectionShort,
		QuestionType: model.QuestionShortAnswer,
		Marks:        2,
		ChapterID:    chapter.ID,
	})

	f.Bind(seeded)
	in := f.State().Input
	in.SectionType = model.SectionMCQ
	in.QuestionType = ""

	_, err := f.Submit(context.Background(), in)
	var invalid *InvalidError
	if !errors.As(err, &invalid) || invalid.Fields["options"] == "" {
		t.Fatalf("err = %v, want options error", err)
	}
	if n := fake.Calls(http.MethodPut, "/api/questions/:id"); n != 0 {
		t.Errorf("update reached the backend %d times", n)
	}
	if st := f.State(); st.Mode != ModeEdit || st.BoundID != seeded.ID {
		t.Errorf("state = %+v, want still editing", st)
	}

	in.Options = []OptionInput{{Text: "a name for a value", Correct: true}, {Text: "a loop"}}
	if _, err := f.Submit(context.Background(), in); err != nil {
		t.Fatalf("update with options: %v", err)
	}
	stored, _ := fake.Question(seeded.ID)
	if stored.SectionType != model.SectionMCQ || stored.OptionCount != 2 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestQuestionInput_SelectorsClearDescendants(t *testing.T) {
	in := QuestionInput{ClassID: 1, SubjectID: 2, ChapterID: 3}

	in.SelectSubject(2)
	if in.ChapterID != 3 {
		t.Error("reselecting the same subject cleared the chapter")
	}
	in.SelectSubject(5)
	if in.ChapterID != 0 {
		t.Error("chapter not cleared on subject change")
	}
	in.SelectChapter(9)
	in.SelectClass(4)
	if in.SubjectID != 0 || in.ChapterID != 0 || in.ClassID != 4 {
		t.Errorf("input = %+v", in)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind MessageKind
		text string
	}{
		{"conflict", &client.Error{Kind: client.KindConflict, Status: 409, Message: "exists"}, KindDuplicate, "already exists"},
		{"validation fields", &client.Error{Kind: client.KindValidation, Status: 400, Fields: map[string]string{"name": "required", "classId": "missing"}}, KindInvalid, "classId: missing; name: required"},
		{"validation message", &client.Error{Kind: client.KindValidation, Status: 400, Message: "Malformed JSON request"}, KindInvalid, "Malformed JSON request"},
		{"not found", &client.Error{Kind: client.KindNotFound, Status: 404}, KindStale, "no longer exists"},
		{"network", &client.Error{Kind: client.KindNetwork, Status: 0}, KindConnectivity, "Cannot reach"},
		{"unauthorized", &client.Error{Kind: client.KindAuth, Status: 401}, KindSession, "log in"},
		{"forbidden", &client.Error{Kind: client.KindAuth, Status: 403}, KindSession, "log in"},
		{"server", &client.Error{Kind: client.KindServer, Status: 500, Message: "boom"}, KindGeneric, "boom"},
		{"wrapped", fmt.Errorf("load: %w", &client.Error{Kind: client.KindNotFound, Status: 404}), KindStale, "no longer exists"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindConnectivity, "timed out"},
		{"plain", errors.New("disk full"), KindGeneric, "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Describe(tt.err)
			if m.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", m.Kind, tt.kind)
			}
			if !strings.Contains(m.Text, tt.text) {
				t.Errorf("text = %q, want it to contain %q", m.Text, tt.text)
			}
		})
	}

	if m := Describe(nil); m.Kind != "" {
		t.Errorf("Describe(nil) = %+v", m)
	}
}
