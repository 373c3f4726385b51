package service

import (
	"context"

	"github.com/stemsi/qbank-console/internal/model"
)

// ClassService wraps the /api/classes resource.
type ClassService struct {
	res resource[model.ClassEntity, model.CreateClassRequest, model.UpdateClassRequest]
}

// NewClassService creates a new ClassService.
func NewClassService(api Backend) *ClassService {
	return &ClassService{res: resource[model.ClassEntity, model.CreateClassRequest, model.UpdateClassRequest]{api: api, base: "/api/classes"}}
}

// Create creates a new class.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.ClassEntity, error) {
	return s.res.create(ctx, req)
}

// Update modifies an existing class.
func (s *ClassService) Update(ctx context.Context, id int64, req model.UpdateClassRequest) (*model.ClassEntity, error) {
	return s.res.update(ctx, id, req)
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	return s.res.delete(ctx, id)
}

// GetByID retrieves a class by its ID.
func (s *ClassService) GetByID(ctx context.Context, id int64) (*model.ClassEntity, error) {
	return s.res.getByID(ctx, id)
}

// ListAll retrieves all classes.
func (s *ClassService) ListAll(ctx context.Context) ([]model.ClassEntity, error) {
	return s.res.list(ctx, "", nil)
}

// ListActive retrieves classes whose active flag is set.
func (s *ClassService) ListActive(ctx context.Context) ([]model.ClassEntity, error) {
	return s.res.list(ctx, "/active", nil)
}

func (s *ClassService) ListPaged(ctx context.Context, page, size int) (model.Page[model.ClassEntity], error) {
	return s.res.page(ctx, "/page", pageQuery(page, size))
}

// Search finds classes whose name contains name.
func (s *ClassService) Search(ctx context.Context, name string, page, size int) (model.Page[model.ClassEntity], error) {
	q := pageQuery(page, size)
	q.Set("name", name)
	return s.res.page(ctx, "/search", q)
}
