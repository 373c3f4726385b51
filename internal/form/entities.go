package form

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/model"
)

// ─── Classes ──────────────────────────────────────────────────

type ClassWriter interface {
	Create(ctx context.Context, req model.CreateClassRequest) (*model.ClassEntity, error)
	Update(ctx context.Context, id int64, req model.UpdateClassRequest) (*model.ClassEntity, error)
}

type ClassInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

func NewClassForm(svc ClassWriter, log zerolog.Logger) *Form[model.ClassEntity, ClassInput] {
	return New(Definition[model.ClassEntity, ClassInput]{
		Entity: "class",
		FromEntity: func(c model.ClassEntity) ClassInput {
			active := c.IsActive
			return ClassInput{Name: c.Name, Description: c.Description, IsActive: &active}
		},
		Normalize: func(in ClassInput) ClassInput {
			in.Name = strings.TrimSpace(in.Name)
			in.Description = strings.TrimSpace(in.Description)
			return in
		},
		Create: func(ctx context.Context, in ClassInput) (model.ClassEntity, error) {
			return deref(svc.Create(ctx, model.CreateClassRequest{Name: in.Name, Description: in.Description}))
		},
		Update: func(ctx context.Context, id int64, in ClassInput) (model.ClassEntity, error) {
			return deref(svc.Update(ctx, id, model.UpdateClassRequest{Name: in.Name, Description: in.Description, IsActive: in.IsActive}))
		},
	}, log)
}

// ─── Subjects ─────────────────────────────────────────────────

type SubjectWriter interface {
	Create(ctx context.Context, req model.CreateSubjectRequest) (*model.Subject, error)
	Update(ctx context.Context, id int64, req model.UpdateSubjectRequest) (*model.Subject, error)
}

type SubjectInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	ClassID     int64  `json:"classId" validate:"required,gt=0"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

func NewSubjectForm(svc SubjectWriter, log zerolog.Logger) *Form[model.Subject, SubjectInput] {
	return New(Definition[model.Subject, SubjectInput]{
		Entity: "subject",
		FromEntity: func(s model.Subject) SubjectInput {
			active := s.IsActive
			return SubjectInput{Name: s.Name, Description: s.Description, ClassID: s.ClassID(), IsActive: &active}
		},
		Normalize: func(in SubjectInput) SubjectInput {
			in.Name = strings.TrimSpace(in.Name)
			in.Description = strings.TrimSpace(in.Description)
			return in
		},
		Create: func(ctx context.Context, in SubjectInput) (model.Subject, error) {
			return deref(svc.Create(ctx, model.CreateSubjectRequest{Name: in.Name, Description: in.Description, ClassID: in.ClassID}))
		},
		Update: func(ctx context.Context, id int64, in SubjectInput) (model.Subject, error) {
			return deref(svc.Update(ctx, id, model.UpdateSubjectRequest{
				Name:        in.Name,
				Description: in.Description,
				ClassID:     in.ClassID,
				IsActive:    in.IsActive,
			}))
		},
	}, log)
}

// ─── Chapters ─────────────────────────────────────────────────

type ChapterWriter interface {
	Create(ctx context.Context, req model.CreateChapterRequest) (*model.Chapter, error)
	Update(ctx context.Context, id int64, req model.UpdateChapterRequest) (*model.Chapter, error)
}

// ChapterInput carries a class selector that only narrows the subject choice.
type ChapterInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	ClassID     int64  `json:"classId,omitempty"`
	SubjectID   int64  `json:"subjectId" validate:"required,gt=0"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// SelectClass sets the class and clears the subject.
func (in *ChapterInput) SelectClass(id int64) {
	if in.ClassID != id {
		in.SubjectID = 0
	}
	in.ClassID = id
}

func NewChapterForm(svc ChapterWriter, log zerolog.Logger) *Form[model.Chapter, ChapterInput] {
	return New(Definition[model.Chapter, ChapterInput]{
		Entity: "chapter",
		FromEntity: func(c model.Chapter) ChapterInput {
			active := c.IsActive
			in := ChapterInput{Name: c.Name, Description: c.Description, IsActive: &active}
			in.SelectClass(c.ClassID())
			in.SubjectID = c.SubjectID()
			return in
		},
		Normalize: func(in ChapterInput) ChapterInput {
			in.Name = strings.TrimSpace(in.Name)
			in.Description = strings.TrimSpace(in.Description)
			return in
		},
		Create: func(ctx context.Context, in ChapterInput) (model.Chapter, error) {
			return deref(svc.Create(ctx, model.CreateChapterRequest{Name: in.Name, Description: in.Description, SubjectID: in.SubjectID}))
		},
		Update: func(ctx context.Context, id int64, in ChapterInput) (model.Chapter, error) {
			return deref(svc.Update(ctx, id, model.UpdateChapterRequest{
				Name:        in.Name,
				Description: in.Description,
				SubjectID:   in.SubjectID,
				IsActive:    in.IsActive,
			}))
		},
	}, log)
}

func deref[T any](v *T, err error) (T, error) {
	if err != nil || v == nil {
		var zero T
		return zero, err
	}
	return *v, nil
}
