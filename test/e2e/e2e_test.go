//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/list"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/session"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

const defaultBaseURL = "http://localhost:8080"

var (
	baseURL  string
	user     string
	password string
	suffix   string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("QBANK_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	user = os.Getenv("E2E_USER")
	password = os.Getenv("E2E_PASSWORD")
	if user == "" || password == "" {
		fmt.Println("E2E_USER and E2E_PASSWORD must be set")
		os.Exit(1)
	}
	suffix = time.Now().Format("150405")

	validator.Setup()
	os.Exit(m.Run())
}

// signIn builds a workspace for a freshly signed-in session.
func signIn(t *testing.T) *workspace.Session {
	t.Helper()
	ctx := context.Background()
	store := session.NewMemoryStore()
	build := workspace.UpstreamFactory(baseURL, func(string) session.Store { return store },
		workspace.Config{PageSize: 50}, zerolog.Nop(), client.WithTimeout(15*time.Second))

	s, err := build(ctx, "e2e")
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	if _, err := s.Manager.Login(ctx, model.Credentials{Name: user, Password: password}); err != nil {
		t.Fatalf("login: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Manager.Logout(context.Background())
		s.Workspace.Close()
	})
	return s
}

func TestLogin_Rejected(t *testing.T) {
	store := session.NewMemoryStore()
	build := workspace.UpstreamFactory(baseURL, func(string) session.Store { return store },
		workspace.Config{}, zerolog.Nop())
	s, err := build(context.Background(), "e2e-bad")
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Manager.Login(context.Background(), model.Credentials{Name: user, Password: password + "-wrong"})
	if !errors.Is(err, client.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
}

func TestHierarchyRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := signIn(t).Workspace
	yes := true

	// ─── Create ───────────────────────────────────────────────────
	class, _, err := w.Classes.Submit(ctx, form.ClassInput{Name: "E2E Grade " + suffix, IsActive: &yes})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	t.Cleanup(func() { w.Classes.Delete(context.Background(), class.ID, list.Preapproved(true)) })

	subject, _, err := w.Subjects.Submit(ctx, form.SubjectInput{Name: "E2E Math", ClassID: class.ID, IsActive: &yes})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	t.Cleanup(func() { w.Subjects.Delete(context.Background(), subject.ID, list.Preapproved(true)) })

	chapter, _, err := w.Chapters.Submit(ctx, form.ChapterInput{Name: "E2E Algebra", SubjectID: subject.ID, IsActive: &yes})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	t.Cleanup(func() { w.Chapters.Delete(context.Background(), chapter.ID, list.Preapproved(true)) })

	q, _, err := w.Questions.Submit(ctx, form.QuestionInput{
		QuestionText: "Solve x + 1 = 2",
		SectionType:  model.SectionMCQ,
		Marks:        1,
		ChapterID:    chapter.ID,
		Options: []form.OptionInput{
			{Text: "1", Correct: true}, {Text: "2"}, {Text: "3"}, {Text: "4"},
		},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	t.Cleanup(func() { w.Questions.Delete(context.Background(), q.ID, list.Preapproved(true)) })

	// ─── Filter ───────────────────────────────────────────────────
	if _, err := w.Questions.Load(ctx); err != nil {
		t.Fatal(err)
	}
	st, err := w.Questions.Apply(ctx, cascade.Change{Level: cascade.LevelClass, ID: class.ID})
	if err != nil {
		t.Fatalf("filter by class: %v", err)
	}
	if got := st.View.Items.Content; len(got) != 1 || got[0].ID != q.ID || len(got[0].MCQOptions) != 4 {
		t.Fatalf("class filter = %+v", got)
	}

	// ─── Paper ────────────────────────────────────────────────────
	first, err := w.TogglePaper(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	paper, err := w.Paper(ctx, subject.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.IsAddedToPaper != (paper.Questions == 1) {
		t.Errorf("paper has %d questions after toggle to %v", paper.Questions, first.IsAddedToPaper)
	}
	second, err := w.TogglePaper(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.IsAddedToPaper == first.IsAddedToPaper {
		t.Error("toggle-paper-status is not involutive")
	}

	// ─── Delete ───────────────────────────────────────────────────
	outcome, err := w.Questions.Delete(ctx, q.ID, list.Preapproved(true))
	if err != nil || outcome != list.OutcomeDeleted {
		t.Fatalf("delete = %s, %v", outcome, err)
	}
	if _, err := w.Questions.Edit(ctx, q.ID); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("edit after delete = %v, want ErrNotFound", err)
	}
}

func TestDuplicateClassConflicts(t *testing.T) {
	ctx := context.Background()
	w := signIn(t).Workspace

	name := "E2E Dup " + suffix
	class, _, err := w.Classes.Submit(ctx, form.ClassInput{Name: name})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Classes.Delete(context.Background(), class.ID, list.Preapproved(true)) })

	if _, _, err := w.Classes.Submit(ctx, form.ClassInput{Name: name}); !errors.Is(err, client.ErrConflict) {
		t.Errorf("duplicate = %v, want ErrConflict", err)
	}
}
