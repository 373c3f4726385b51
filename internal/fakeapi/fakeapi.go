// Package fakeapi is an in-memory rendition of the question-bank REST backend
// used by package tests and local development.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stemsi/qbank-console/internal/model"
)

// Server holds the fake backend state. All methods are safe for concurrent use.
type Server struct {
	mu sync.Mutex

	nextID    int64
	classes   map[int64]*model.ClassEntity
	subjects  map[int64]*model.Subject
	chapters  map[int64]*model.Chapter
	questions map[int64]*model.Question
	options   map[int64]*model.MCQOption

	users       map[string]string
	secret      []byte
	tokenTTL    time.Duration
	requireAuth bool

	faults map[string][]int
	calls  map[string]int

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithAuth makes every /api route other than /api/login require a valid bearer token.
func WithAuth() Option {
	return func(s *Server) { s.requireAuth = true }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithUser registers login credentials.
func WithUser(name, password string) Option {
	return func(s *Server) { s.users[name] = password }
}

// New creates an empty fake backend.
func New(opts ...Option) *Server {
	s := &Server{
		classes:   make(map[int64]*model.ClassEntity),
		subjects:  make(map[int64]*model.Subject),
		chapters:  make(map[int64]*model.Chapter),
		questions: make(map[int64]*model.Question),
		options:   make(map[int64]*model.MCQOption),
		users:     make(map[string]string),
		secret:    []byte("fakeapi-secret"),
		tokenTTL:  time.Hour,
		faults:    make(map[string][]int),
		calls:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the Gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves the fake on a loopback listener. The caller closes it.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.engine)
}

// Fail makes the next len(statuses) calls to method+route fail with the given
// statuses in order. route is the Gin pattern, e.g. "/api/subjects/class/:id".
func (s *Server) Fail(method, route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	s.faults[key] = append(s.faults[key], statuses...)
}

// Calls reports how many requests reached method+route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// ResetCalls zeroes every call counter.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// IssueToken signs a token for name that expires after ttl.
func (s *Server) IssueToken(name string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   name,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed
}

// ─── Seeding ──────────────────────────────────────────────────

func (s *Server) SeedClass(name string) model.ClassEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.ClassEntity{ID: s.id(), Name: name, IsActive: true, Audit: s.stamp()}
	s.classes[c.ID] = c
	return *c
}

func (s *Server) SeedSubject(name string, classID int64) model.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &model.Subject{ID: s.id(), Name: name, IsActive: true, ClassInfo: s.classSummary(classID), Audit: s.stamp()}
	s.subjects[sub.ID] = sub
	return *sub
}

func (s *Server) SeedChapter(name string, subjectID int64) model.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &model.Chapter{ID: s.id(), Name: name, IsActive: true, SubjectInfo: s.subjectSummary(subjectID), Audit: s.stamp()}
	s.chapters[ch.ID] = ch
	return *ch
}

// SeedQuestion stores a question and, for MCQ questions, its options.
func (s *Server) SeedQuestion(req model.CreateQuestionRequest, options ...string) model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.newQuestion(req)
	for i, text := range options {
		o := &model.MCQOption{ID: s.id(), OptionText: text, IsCorrect: i == 0, OptionOrder: i + 1, QuestionID: q.ID, Audit: s.stamp()}
		s.options[o.ID] = o
	}
	return s.questionView(q)
}

// Question returns a stored question, for assertions.
func (s *Server) Question(id int64) (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return model.Question{}, false
	}
	return s.questionView(q), true
}

// ─── Internals (callers hold s.mu) ────────────────────────────

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) stamp() model.Audit {
	now := model.LocalTime{Time: time.Now().UTC().Truncate(time.Second)}
	return model.Audit{CreatedAt: now, UpdatedAt: now, CreatedBy: "fakeapi", UpdatedBy: "fakeapi"}
}

func (s *Server) classSummary(id int64) *model.ClassSummary {
	c, ok := s.classes[id]
	if !ok {
		return nil
	}
	return &model.ClassSummary{ID: c.ID, Name: c.Name, Description: c.Description}
}

func (s *Server) subjectSummary(id int64) *model.SubjectSummary {
	sub, ok := s.subjects[id]
	if !ok {
		return nil
	}
	return &model.SubjectSummary{ID: sub.ID, Name: sub.Name, ClassInfo: s.classSummary(sub.ClassID())}
}

func (s *Server) chapterSummary(id int64) *model.ChapterSummary {
	ch, ok := s.chapters[id]
	if !ok {
		return nil
	}
	return &model.ChapterSummary{ID: ch.ID, Name: ch.Name, SubjectInfo: s.subjectSummary(ch.SubjectID())}
}

func (s *Server) newQuestion(req model.CreateQuestionRequest) *model.Question {
	q := &model.Question{
		ID:              s.id(),
		QuestionText:    req.QuestionText,
		Explanation:     req.Explanation,
		SectionType:     req.SectionType,
		QuestionType:    req.QuestionType,
		DifficultyLevel: req.DifficultyLevel,
		Marks:           req.Marks,
		NegativeMarks:   req.NegativeMarks,
		IsAddedToPaper:  req.IsAddedToPaper,
		IsActive:        true,
		ChapterInfo:     &model.ChapterSummary{ID: req.ChapterID},
		Audit:           s.stamp(),
	}
	if q.DifficultyLevel == "" {
		q.DifficultyLevel = model.DifficultyMedium
	}
	s.questions[q.ID] = q
	return q
}

// questionView refreshes the embedded ancestor chain and the option count.
func (s *Server) questionView(q *model.Question) model.Question {
	out := *q
	out.ChapterInfo = s.chapterSummary(q.ChapterID())
	out.MCQOptions = nil
	out.OptionCount = len(s.optionsOf(q.ID))
	return out
}

func (s *Server) subjectView(sub *model.Subject) model.Subject {
	out := *sub
	out.ClassInfo = s.classSummary(sub.ClassID())
	out.ChapterCount = 0
	for _, ch := range s.chapters {
		if ch.SubjectID() == sub.ID {
			out.ChapterCount++
		}
	}
	return out
}

func (s *Server) chapterView(ch *model.Chapter) model.Chapter {
	out := *ch
	out.SubjectInfo = s.subjectSummary(ch.SubjectID())
	out.QuestionCount = 0
	for _, q := range s.questions {
		if q.ChapterID() == ch.ID {
			out.QuestionCount++
		}
	}
	return out
}

func (s *Server) classView(c *model.ClassEntity) model.ClassEntity {
	out := *c
	out.SubjectCount = 0
	for _, sub := range s.subjects {
		if sub.ClassID() == c.ID {
			out.SubjectCount++
		}
	}
	return out
}

func (s *Server) optionsOf(questionID int64) []model.MCQOption {
	var out []model.MCQOption
	for _, o := range s.options {
		if o.QuestionID == questionID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OptionOrder != out[j].OptionOrder {
			return out[i].OptionOrder < out[j].OptionOrder
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []model.MCQOption{}
	}
	return out
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func notFound(kind string, id int64) apiError {
	return apiError{status: http.StatusNotFound, message: fmt.Sprintf("%s not found with id: %d", kind, id)}
}
