package model

// MCQOption is one answer choice of an MCQ question.
type MCQOption struct {
	ID          int64  `json:"id"`
	OptionText  string `json:"optionText"`
	IsCorrect   bool   `json:"isCorrect"`
	OptionOrder int    `json:"optionOrder"`
	QuestionID  int64  `json:"questionId,omitempty"`
	Audit
}

// EntityID implements Entity.
func (o MCQOption) EntityID() int64 { return o.ID }

type CreateMCQOptionRequest struct {
	OptionText  string `json:"optionText" validate:"required,max=1000"`
	IsCorrect   bool   `json:"isCorrect"`
	OptionOrder int    `json:"optionOrder" validate:"gte=0"`
	QuestionID  int64  `json:"questionId" validate:"required,gt=0"`
}

type UpdateMCQOptionRequest struct {
	ID          int64  `json:"id,omitempty"`
	OptionText  string `json:"optionText" validate:"required,max=1000"`
	IsCorrect   bool   `json:"isCorrect"`
	OptionOrder int    `json:"optionOrder" validate:"gte=0"`
	QuestionID  int64  `json:"questionId,omitempty"`
}

const (
	MinMCQOptions = 2
	MaxMCQOptions = 6
)

// CorrectOptionsProblem describes why correct options of an MCQ question of
// type qt are wrong, or returns "". A single choice question needs exactly
// one correct option; every other MCQ needs at least one.
func CorrectOptionsProblem(qt QuestionType, correct int) string {
	if qt == QuestionSingleChoice {
		if correct != 1 {
			return "single choice questions must have exactly 1 correct option"
		}
		return ""
	}
	if correct < 1 {
		return "MCQ questions must have at least 1 correct option"
	}
	return ""
}
