package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/fakeapi"
	"github.com/stemsi/qbank-console/internal/model"
)

type services struct {
	classes   *ClassService
	subjects  *SubjectService
	chapters  *ChapterService
	questions *QuestionService
	options   *MCQOptionService
	auth      *AuthService
}

func setup(t *testing.T, opts ...fakeapi.Option) (*fakeapi.Server, services) {
	t.Helper()
	fake := fakeapi.New(opts...)
	srv := fake.Start()
	t.Cleanup(srv.Close)

	api := client.New(srv.URL)
	return fake, services{
		classes:   NewClassService(api),
		subjects:  NewSubjectService(api),
		chapters:  NewChapterService(api),
		questions: NewQuestionService(api),
		options:   NewMCQOptionService(api),
		auth:      NewAuthService(api),
	}
}

// seedGrade9 builds Grade 9 / Math / Algebra / "Solve x" with four options.
func seedGrade9(t *testing.T, s services) (model.ClassEntity, model.Question) {
	t.Helper()
	ctx := context.Background()

	class, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "Grade 9"})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	subject, err := s.subjects.Create(ctx, model.CreateSubjectRequest{Name: "Math", ClassID: class.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	chapter, err := s.chapters.Create(ctx, model.CreateChapterRequest{Name: "Algebra", SubjectID: subject.ID})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	q, err := s.questions.Create(ctx, model.CreateQuestionRequest{
		QuestionText: "Solve x",
		SectionType:  model.SectionMCQ,
		QuestionType: model.QuestionSingleChoice,
		Marks:        1,
		ChapterID:    chapter.ID,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	reqs := make([]model.CreateMCQOptionRequest, 0, 4)
	for i, text := range []string{"1", "2", "3", "4"} {
		reqs = append(reqs, model.CreateMCQOptionRequest{OptionText: text, IsCorrect: i == 1, OptionOrder: i + 1, QuestionID: q.ID})
	}
	if _, err := s.options.CreateMultiple(ctx, reqs); err != nil {
		t.Fatalf("create options: %v", err)
	}
	return *class, *q
}

func TestClassService_CreateGetRoundTrip(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()

	created, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "Grade 10", Description: "Senior"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected server-assigned id")
	}

	got, err := s.classes.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Grade 10" || got.Description != "Senior" || got.ID != created.ID {
		t.Errorf("got = %+v", got)
	}
}

func TestClassService_DuplicateIsConflict(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()

	if _, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "Grade 9"}); err != nil {
		t.Fatal(err)
	}
	_, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "grade 9"})
	if !errors.Is(err, client.ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestClassService_BlankNameIsValidation(t *testing.T) {
	_, s := setup(t)

	_, err := s.classes.Create(context.Background(), model.CreateClassRequest{Name: "  "})
	if !errors.Is(err, client.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
	var ce *client.Error
	if errors.As(err, &ce) && ce.Fields["name"] == "" {
		t.Errorf("fields = %v, want a name message", ce.Fields)
	}
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()

	created, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "Temp"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.classes.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.classes.GetByID(ctx, created.ID); !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("GetByID() after delete error = %v, want not found", err)
	}
	if err := s.classes.Delete(ctx, created.ID); !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want not found", err)
	}
}

func TestQuestionService_TogglePaperStatusIsInvolutive(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	_, q := seedGrade9(t, s)

	first, err := s.questions.TogglePaperStatus(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.IsAddedToPaper == q.IsAddedToPaper {
		t.Fatal("first toggle did not flip the flag")
	}
	second, err := s.questions.TogglePaperStatus(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.IsAddedToPaper != q.IsAddedToPaper {
		t.Errorf("double toggle = %v, want %v", second.IsAddedToPaper, q.IsAddedToPaper)
	}
}

func TestQuestionService_FilterByClass(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	grade9, q := seedGrade9(t, s)

	other, err := s.classes.Create(ctx, model.CreateClassRequest{Name: "Grade 10"})
	if err != nil {
		t.Fatal(err)
	}

	page, err := s.questions.Filter(ctx, model.QuestionFilter{ClassID: grade9.ID, Size: 10})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].ID != q.ID {
		t.Fatalf("Grade 9 questions = %+v", page.Content)
	}
	if page.Content[0].ClassID() != grade9.ID {
		t.Errorf("embedded class = %d, want %d", page.Content[0].ClassID(), grade9.ID)
	}

	empty, err := s.questions.Filter(ctx, model.QuestionFilter{ClassID: other.ID, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Content) != 0 || empty.TotalElements != 0 {
		t.Errorf("other class questions = %+v", empty)
	}

	bySection, err := s.questions.Filter(ctx, model.QuestionFilter{SectionType: model.SectionEssay})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySection.Content) != 0 {
		t.Errorf("essay questions = %+v", bySection.Content)
	}
}

func TestSubjectAndChapterFilters(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	grade9, q := seedGrade9(t, s)

	subjects, err := s.subjects.FilterByClass(ctx, grade9.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 1 || subjects[0].Name != "Math" {
		t.Fatalf("subjects = %+v", subjects)
	}

	chapters, err := s.chapters.Filter(ctx, model.ChapterFilter{ClassID: grade9.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 1 || chapters[0].ID != q.ChapterID() {
		t.Fatalf("chapters = %+v", chapters)
	}

	none, err := s.chapters.Filter(ctx, model.ChapterFilter{SubjectID: subjects[0].ID + 1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unexpected chapters = %+v", none)
	}
}

func TestMCQOptionService_OptionsByQuestionIDs(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	_, q := seedGrade9(t, s)

	byID, err := s.options.OptionsByQuestionIDs(ctx, []int64{q.ID, q.ID + 999})
	if err != nil {
		t.Fatalf("OptionsByQuestionIDs() error = %v", err)
	}
	if len(byID[q.ID]) != 4 {
		t.Fatalf("options = %+v", byID)
	}
	if _, ok := byID[q.ID+999]; ok {
		t.Error("unknown question should be absent")
	}

	direct, err := s.options.OptionsByQuestion(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(direct) != 4 || direct[0].OptionOrder != 1 {
		t.Errorf("direct options = %+v", direct)
	}

	empty, err := s.options.OptionsByQuestionIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty lookup = %v, %v", empty, err)
	}
}

func TestPaperDownloads(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	_, q := seedGrade9(t, s)

	doc, err := s.questions.DownloadPaper(ctx, q.SubjectID())
	if err != nil {
		t.Fatalf("DownloadPaper() error = %v", err)
	}
	if doc.ContentType != "application/pdf" || len(doc.Data) == 0 {
		t.Errorf("paper = %+v", doc)
	}

	word, err := s.chapters.GeneratePaper(ctx, q.ChapterID(), model.PaperOptions{OutputFormat: "word"})
	if err != nil {
		t.Fatalf("GeneratePaper() error = %v", err)
	}
	if word.Filename == "" {
		t.Error("expected a filename from Content-Disposition")
	}

	if _, err := s.questions.DownloadPaper(ctx, 4242); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("missing subject error = %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	_, s := setup(t, fakeapi.WithUser("admin", "secret"))
	ctx := context.Background()

	resp, err := s.auth.Login(ctx, model.Credentials{Name: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.JWT == "" {
		t.Error("expected a token")
	}

	_, err = s.auth.Login(ctx, model.Credentials{Name: "admin", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, client.ErrAuth) {
		t.Errorf("bad password error = %v", err)
	}
}
