package model

// Chapter belongs to exactly one subject and owns questions.
type Chapter struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	IsActive      bool            `json:"isActive"`
	SubjectInfo   *SubjectSummary `json:"subjectInfo,omitempty"`
	QuestionCount int             `json:"questionCount,omitempty"`
	Audit
}

// EntityID implements Entity.
func (c Chapter) EntityID() int64 { return c.ID }

// SubjectID returns the owning subject id, or 0 when the reference is missing.
func (c Chapter) SubjectID() int64 {
	if c.SubjectInfo == nil {
		return 0
	}
	return c.SubjectInfo.ID
}

// ClassID returns the class owning the chapter's subject.
func (c Chapter) ClassID() int64 {
	if c.SubjectInfo == nil || c.SubjectInfo.ClassInfo == nil {
		return 0
	}
	return c.SubjectInfo.ClassInfo.ID
}

// ChapterSummary is the embedded chapter reference carried by questions.
type ChapterSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	SubjectInfo *SubjectSummary `json:"subjectInfo,omitempty"`
}

// CreateChapterRequest is the payload for creating a chapter.
type CreateChapterRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	SubjectID   int64  `json:"subjectId" validate:"required,gt=0"`
}

// UpdateChapterRequest is the payload for updating a chapter.
type UpdateChapterRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	SubjectID   int64  `json:"subjectId" validate:"required,gt=0"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// ChapterFilter narrows chapters by ancestor ids. Zero means unfiltered.
type ChapterFilter struct {
	SubjectID int64
	ClassID   int64
}

// PaperOptions controls chapter paper generation.
type PaperOptions struct {
	OutputFormat  string   `json:"outputFormat" validate:"oneof=pdf word"`
	WordTemplate  string   `json:"wordTemplate,omitempty"`
	PDFTemplate   string   `json:"pdfTemplate,omitempty"`
	UseSubReports bool     `json:"useSubReports,omitempty"`
	SubReports    []string `json:"subReports,omitempty"`
}
