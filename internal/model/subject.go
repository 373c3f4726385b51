package model

// Subject is taught in exactly one class and owns chapters.
type Subject struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	IsActive     bool          `json:"isActive"`
	ClassInfo    *ClassSummary `json:"classInfo,omitempty"`
	ChapterCount int           `json:"chapterCount,omitempty"`
	Audit
}

// EntityID implements Entity.
func (s Subject) EntityID() int64 { return s.ID }

// ClassID returns the owning class id, or 0 when the reference is missing.
func (s Subject) ClassID() int64 {
	if s.ClassInfo == nil {
		return 0
	}
	return s.ClassInfo.ID
}

// SubjectSummary is the embedded subject reference carried by chapters.
type SubjectSummary struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	ClassInfo *ClassSummary `json:"classInfo,omitempty"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	ClassID     int64  `json:"classId" validate:"required,gt=0"`
}

// UpdateSubjectRequest is the payload for updating a subject.
type UpdateSubjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	ClassID     int64  `json:"classId" validate:"required,gt=0"`
	IsActive    *bool  `json:"isActive,omitempty"`
}
