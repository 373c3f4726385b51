package model

// Question is a single bank question owned by a chapter.
type Question struct {
	ID              int64           `json:"id"`
	QuestionText    string          `json:"questionText"`
	Explanation     string          `json:"explanation,omitempty"`
	SectionType     SectionType     `json:"sectionType"`
	QuestionType    QuestionType    `json:"questionType"`
	DifficultyLevel DifficultyLevel `json:"difficultyLevel,omitempty"`
	Marks           float64         `json:"marks"`
	NegativeMarks   float64         `json:"negativeMarks,omitempty"`
	IsAddedToPaper  bool            `json:"isAddedToPaper"`
	IsActive        bool            `json:"isActive"`
	ChapterInfo     *ChapterSummary `json:"chapterInfo,omitempty"`
	MCQOptions      []MCQOption     `json:"mcqOptions,omitempty"`
	OptionCount     int             `json:"optionCount,omitempty"`
	Audit
}

// EntityID implements Entity.
func (q Question) EntityID() int64 { return q.ID }

// IsMCQ reports whether the question carries options.
func (q Question) IsMCQ() bool { return q.SectionType == SectionMCQ }

func (q Question) ChapterID() int64 {
	if q.ChapterInfo == nil {
		return 0
	}
	return q.ChapterInfo.ID
}

func (q Question) SubjectID() int64 {
	if q.ChapterInfo == nil || q.ChapterInfo.SubjectInfo == nil {
		return 0
	}
	return q.ChapterInfo.SubjectInfo.ID
}

func (q Question) ClassID() int64 {
	if q.ChapterInfo == nil || q.ChapterInfo.SubjectInfo == nil || q.ChapterInfo.SubjectInfo.ClassInfo == nil {
		return 0
	}
	return q.ChapterInfo.SubjectInfo.ClassInfo.ID
}

// CreateQuestionRequest is the payload for creating a question.
// Options are created separately through the option service.
type CreateQuestionRequest struct {
	QuestionText    string          `json:"questionText" validate:"required,max=5000"`
	Explanation     string          `json:"explanation,omitempty" validate:"max=2000"`
	SectionType     SectionType     `json:"sectionType" validate:"required,section_type"`
	QuestionType    QuestionType    `json:"questionType" validate:"required,question_type"`
	DifficultyLevel DifficultyLevel `json:"difficultyLevel,omitempty" validate:"omitempty,difficulty"`
	Marks           float64         `json:"marks" validate:"gt=0,lte=100"`
	NegativeMarks   float64         `json:"negativeMarks,omitempty" validate:"gte=0,lte=10"`
	ChapterID       int64           `json:"chapterId" validate:"required,gt=0"`
	IsAddedToPaper  bool            `json:"isAddedToPaper"`
}

// UpdateQuestionRequest is the payload for updating a question.
type UpdateQuestionRequest struct {
	QuestionText    string                   `json:"questionText" validate:"required,max=5000"`
	Explanation     string                   `json:"explanation,omitempty" validate:"max=2000"`
	SectionType     SectionType              `json:"sectionType" validate:"required,section_type"`
	QuestionType    QuestionType             `json:"questionType" validate:"required,question_type"`
	DifficultyLevel DifficultyLevel          `json:"difficultyLevel,omitempty" validate:"omitempty,difficulty"`
	Marks           float64                  `json:"marks" validate:"gt=0,lte=100"`
	NegativeMarks   float64                  `json:"negativeMarks,omitempty" validate:"gte=0,lte=10"`
	ChapterID       int64                    `json:"chapterId" validate:"required,gt=0"`
	IsAddedToPaper  bool                     `json:"isAddedToPaper"`
	IsActive        *bool                    `json:"isActive,omitempty"`
	MCQOptions      []UpdateMCQOptionRequest `json:"mcqOptions,omitempty" validate:"dive"`
}

// QuestionFilter is the combined question scope. Zero values are unfiltered.
type QuestionFilter struct {
	SectionType     SectionType
	QuestionType    QuestionType
	DifficultyLevel DifficultyLevel
	ChapterID       int64
	SubjectID       int64
	ClassID         int64
	IsAddedToPaper  *bool
	Page            int
	Size            int
}
