package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
)

// ChapterService wraps the /api/chapters resource.
type ChapterService struct {
	res resource[model.Chapter, model.CreateChapterRequest, model.UpdateChapterRequest]
}

// NewChapterService creates a new ChapterService.
func NewChapterService(api Backend) *ChapterService {
	return &ChapterService{res: resource[model.Chapter, model.CreateChapterRequest, model.UpdateChapterRequest]{api: api, base: "/api/chapters"}}
}

func (s *ChapterService) Create(ctx context.Context, req model.CreateChapterRequest) (*model.Chapter, error) {
	return s.res.create(ctx, req)
}

func (s *ChapterService) Update(ctx context.Context, id int64, req model.UpdateChapterRequest) (*model.Chapter, error) {
	return s.res.update(ctx, id, req)
}

func (s *ChapterService) Delete(ctx context.Context, id int64) error {
	return s.res.delete(ctx, id)
}

func (s *ChapterService) GetByID(ctx context.Context, id int64) (*model.Chapter, error) {
	return s.res.getByID(ctx, id)
}

func (s *ChapterService) ListAll(ctx context.Context) ([]model.Chapter, error) {
	return s.res.list(ctx, "", nil)
}

func (s *ChapterService) ListActive(ctx context.Context) ([]model.Chapter, error) {
	return s.res.list(ctx, "/active", nil)
}

func (s *ChapterService) ListPaged(ctx context.Context, page, size int) (model.Page[model.Chapter], error) {
	return s.res.page(ctx, "/page", pageQuery(page, size))
}

func (s *ChapterService) Search(ctx context.Context, name string, page, size int) (model.Page[model.Chapter], error) {
	q := pageQuery(page, size)
	q.Set("name", name)
	return s.res.page(ctx, "/search", q)
}

// Filter narrows chapters by subject and/or class. Zero ids are omitted.
func (s *ChapterService) Filter(ctx context.Context, f model.ChapterFilter) ([]model.Chapter, error) {
	q := url.Values{}
	setID(q, "subjectId", f.SubjectID)
	setID(q, "classId", f.ClassID)
	return s.res.list(ctx, "/filter", q)
}

// GeneratePaper renders the chapter's paper in the requested format.
func (s *ChapterService) GeneratePaper(ctx context.Context, chapterID int64, opts model.PaperOptions) (*client.Document, error) {
	if opts.OutputFormat == "" {
		opts.OutputFormat = "pdf"
	}
	return s.res.api.Download(ctx, http.MethodPost, fmt.Sprintf("%s/%d/generate", s.res.base, chapterID), opts)
}
