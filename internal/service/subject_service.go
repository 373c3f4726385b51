package service

import (
	"context"
	"fmt"

	"github.com/stemsi/qbank-console/internal/model"
)

// SubjectService wraps the /api/subjects resource.
type SubjectService struct {
	res resource[model.Subject, model.CreateSubjectRequest, model.UpdateSubjectRequest]
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(api Backend) *SubjectService {
	return &SubjectService{res: resource[model.Subject, model.CreateSubjectRequest, model.UpdateSubjectRequest]{api: api, base: "/api/subjects"}}
}

func (s *SubjectService) Create(ctx context.Context, req model.CreateSubjectRequest) (*model.Subject, error) {
	return s.res.create(ctx, req)
}

func (s *SubjectService) Update(ctx context.Context, id int64, req model.UpdateSubjectRequest) (*model.Subject, error) {
	return s.res.update(ctx, id, req)
}

func (s *SubjectService) Delete(ctx context.Context, id int64) error {
	return s.res.delete(ctx, id)
}

func (s *SubjectService) GetByID(ctx context.Context, id int64) (*model.Subject, error) {
	return s.res.getByID(ctx, id)
}

func (s *SubjectService) ListAll(ctx context.Context) ([]model.Subject, error) {
	return s.res.list(ctx, "", nil)
}

func (s *SubjectService) ListActive(ctx context.Context) ([]model.Subject, error) {
	return s.res.list(ctx, "/active", nil)
}

func (s *SubjectService) ListPaged(ctx context.Context, page, size int) (model.Page[model.Subject], error) {
	return s.res.page(ctx, "/page", pageQuery(page, size))
}

// FilterByClass lists the subjects taught in one class.
func (s *SubjectService) FilterByClass(ctx context.Context, classID int64) ([]model.Subject, error) {
	return s.res.list(ctx, fmt.Sprintf("/class/%d", classID), nil)
}

func (s *SubjectService) Search(ctx context.Context, name string, page, size int) (model.Page[model.Subject], error) {
	q := pageQuery(page, size)
	q.Set("name", name)
	return s.res.page(ctx, "/search", q)
}
