package model

// ClassEntity represents a school class (grade) that owns subjects.
type ClassEntity struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	IsActive     bool   `json:"isActive"`
	SubjectCount int    `json:"subjectCount,omitempty"`
	Audit
}

// EntityID implements Entity.
func (c ClassEntity) EntityID() int64 { return c.ID }

// ClassSummary is the embedded class reference carried by subjects.
type ClassSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// UpdateClassRequest is the payload for updating a class.
type UpdateClassRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	IsActive    *bool  `json:"isActive,omitempty"`
}
