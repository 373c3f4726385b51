package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
)

// QuestionService wraps the /api/questions resource.
type QuestionService struct {
	res resource[model.Question, model.CreateQuestionRequest, model.UpdateQuestionRequest]
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(api Backend) *QuestionService {
	return &QuestionService{res: resource[model.Question, model.CreateQuestionRequest, model.UpdateQuestionRequest]{api: api, base: "/api/questions"}}
}

func (s *QuestionService) Create(ctx context.Context, req model.CreateQuestionRequest) (*model.Question, error) {
	return s.res.create(ctx, req)
}

func (s *QuestionService) Update(ctx context.Context, id int64, req model.UpdateQuestionRequest) (*model.Question, error) {
	return s.res.update(ctx, id, req)
}

func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	return s.res.delete(ctx, id)
}

func (s *QuestionService) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	return s.res.getByID(ctx, id)
}

func (s *QuestionService) ListAll(ctx context.Context) ([]model.Question, error) {
	return s.res.list(ctx, "", nil)
}

func (s *QuestionService) ListActive(ctx context.Context) ([]model.Question, error) {
	return s.res.list(ctx, "/active", nil)
}

func (s *QuestionService) ListPaged(ctx context.Context, page, size int) (model.Page[model.Question], error) {
	return s.res.page(ctx, "/page", pageQuery(page, size))
}

// Filter returns one page of questions matching every non-zero field of f.
func (s *QuestionService) Filter(ctx context.Context, f model.QuestionFilter) (model.Page[model.Question], error) {
	q := pageQuery(f.Page, f.Size)
	if f.SectionType != "" {
		q.Set("sectionType", string(f.SectionType))
	}
	if f.QuestionType != "" {
		q.Set("questionType", string(f.QuestionType))
	}
	if f.DifficultyLevel != "" {
		q.Set("difficultyLevel", string(f.DifficultyLevel))
	}
	setID(q, "chapterId", f.ChapterID)
	setID(q, "subjectId", f.SubjectID)
	setID(q, "classId", f.ClassID)
	if f.IsAddedToPaper != nil {
		q.Set("isAddedToPaper", strconv.FormatBool(*f.IsAddedToPaper))
	}
	return s.res.page(ctx, "/filter", q)
}

// TogglePaperStatus flips the added-to-paper flag and returns the new state.
func (s *QuestionService) TogglePaperStatus(ctx context.Context, id int64) (*model.Question, error) {
	var out model.Question
	if err := s.res.api.Patch(ctx, fmt.Sprintf("%s/%d/toggle-paper-status", s.res.base, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BySubject lists every question under the subject's chapters.
func (s *QuestionService) BySubject(ctx context.Context, subjectID int64) ([]model.Question, error) {
	return s.res.list(ctx, fmt.Sprintf("/subject/%d", subjectID), nil)
}

// AddedToPaper lists the subject's questions currently marked for the paper.
func (s *QuestionService) AddedToPaper(ctx context.Context, subjectID int64) ([]model.Question, error) {
	return s.res.list(ctx, fmt.Sprintf("/subject/%d/added-to-paper", subjectID), nil)
}

// DownloadPaper fetches the rendered exam report for a subject.
func (s *QuestionService) DownloadPaper(ctx context.Context, subjectID int64) (*client.Document, error) {
	return s.res.api.Download(ctx, http.MethodGet, fmt.Sprintf("%s/subject/%d/paper", s.res.base, subjectID), nil)
}
