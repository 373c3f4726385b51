package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/model"
)

type QuestionWriter interface {
	Create(ctx context.Context, req model.CreateQuestionRequest) (*model.Question, error)
	Update(ctx context.Context, id int64, req model.UpdateQuestionRequest) (*model.Question, error)
}

type OptionWriter interface {
	CreateMultiple(ctx context.Context, reqs []model.CreateMCQOptionRequest) ([]model.MCQOption, error)
}

type OptionInput struct {
	Text    string `json:"text" validate:"required,max=1000"`
	Correct bool   `json:"correct"`
}

// QuestionInput holds the class → subject → chapter selectors of the
// question form. Only the chapter is sent; class and subject narrow choices.
type QuestionInput struct {
	QuestionText    string                `json:"questionText" validate:"required,max=5000"`
	Explanation     string                `json:"explanation,omitempty" validate:"max=2000"`
	SectionType     model.SectionType     `json:"sectionType" validate:"required,section_type"`
	QuestionType    model.QuestionType    `json:"questionType,omitempty" validate:"omitempty,question_type"`
	DifficultyLevel model.DifficultyLevel `json:"difficultyLevel,omitempty" validate:"omitempty,difficulty"`
	Marks           float64               `json:"marks,omitempty" validate:"gte=0,lte=100"`
	NegativeMarks   float64               `json:"negativeMarks,omitempty" validate:"gte=0,lte=10"`
	ClassID         int64                 `json:"classId,omitempty"`
	SubjectID       int64                 `json:"subjectId,omitempty"`
	ChapterID       int64                 `json:"chapterId" validate:"required,gt=0"`
	IsAddedToPaper  bool                  `json:"isAddedToPaper"`
	IsActive        *bool                 `json:"isActive,omitempty"`
	Options         []OptionInput         `json:"options,omitempty" validate:"dive"`
}

// SelectClass sets the class and clears subject and chapter.
func (in *QuestionInput) SelectClass(id int64) {
	if in.ClassID != id {
		in.SubjectID = 0
		in.ChapterID = 0
	}
	in.ClassID = id
}

// SelectSubject sets the subject and clears the chapter.
func (in *QuestionInput) SelectSubject(id int64) {
	if in.SubjectID != id {
		in.ChapterID = 0
	}
	in.SubjectID = id
}

func (in *QuestionInput) SelectChapter(id int64) {
	in.ChapterID = id
}

func normalizeQuestion(in QuestionInput) QuestionInput {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	in.Explanation = strings.TrimSpace(in.Explanation)
	if in.QuestionType == "" {
		in.QuestionType = in.SectionType.DefaultQuestionType()
	}
	if in.Marks == 0 {
		in.Marks = 1
	}

	if in.SectionType != model.SectionMCQ {
		in.Options = nil
		return in
	}
	// Blank trailing option rows are left over from the editor, not choices.
	opts := make([]OptionInput, 0, len(in.Options))
	for _, o := range in.Options {
		o.Text = strings.TrimSpace(o.Text)
		if o.Text != "" {
			opts = append(opts, o)
		}
	}
	if in.Options != nil {
		in.Options = opts
	}
	return in
}

func checkQuestion(in QuestionInput, bound *model.Question) map[string]string {
	if in.SectionType != model.SectionMCQ {
		return nil
	}
	// Editing an MCQ without options keeps the stored ones.
	if bound != nil && bound.IsMCQ() && in.Options == nil {
		return nil
	}
	n := len(in.Options)
	if n < model.MinMCQOptions || n > model.MaxMCQOptions {
		return map[string]string{
			"options": fmt.Sprintf("options must have between %d and %d entries", model.MinMCQOptions, model.MaxMCQOptions),
		}
	}
	correct := 0
	for _, o := range in.Options {
		if o.Correct {
			correct++
		}
	}
	if problem := model.CorrectOptionsProblem(in.QuestionType, correct); problem != "" {
		return map[string]string{"correctOptions": problem}
	}
	return nil
}

func questionFromEntity(q model.Question) QuestionInput {
	active := q.IsActive
	in := QuestionInput{
		QuestionText:    q.QuestionText,
		Explanation:     q.Explanation,
		SectionType:     q.SectionType,
		QuestionType:    q.QuestionType,
		DifficultyLevel: q.DifficultyLevel,
		Marks:           q.Marks,
		NegativeMarks:   q.NegativeMarks,
		IsAddedToPaper:  q.IsAddedToPaper,
		IsActive:        &active,
	}
	in.SelectClass(q.ClassID())
	in.SelectSubject(q.SubjectID())
	in.SelectChapter(q.ChapterID())
	if len(q.MCQOptions) > 0 {
		in.Options = make([]OptionInput, 0, len(q.MCQOptions))
		for _, o := range q.MCQOptions {
			in.Options = append(in.Options, OptionInput{Text: o.OptionText, Correct: o.IsCorrect})
		}
	}
	return in
}

// NewQuestionForm builds the question form. Creating an MCQ question writes
// the question first and its options second.
func NewQuestionForm(questions QuestionWriter, options OptionWriter, log zerolog.Logger) *Form[model.Question, QuestionInput] {
	return New(Definition[model.Question, QuestionInput]{
		Entity:     "question",
		FromEntity: questionFromEntity,
		Normalize:  normalizeQuestion,
		Check:      checkQuestion,
		Create: func(ctx context.Context, in QuestionInput) (model.Question, error) {
			created, err := deref(questions.Create(ctx, model.CreateQuestionRequest{
				QuestionText:    in.QuestionText,
				Explanation:     in.Explanation,
				SectionType:     in.SectionType,
				QuestionType:    in.QuestionType,
				DifficultyLevel: in.DifficultyLevel,
				Marks:           in.Marks,
				NegativeMarks:   in.NegativeMarks,
				ChapterID:       in.ChapterID,
				IsAddedToPaper:  in.IsAddedToPaper,
			}))
			if err != nil || !created.IsMCQ() || len(in.Options) == 0 {
				return created, err
			}

			reqs := make([]model.CreateMCQOptionRequest, len(in.Options))
			for i, o := range in.Options {
				reqs[i] = model.CreateMCQOptionRequest{
					OptionText:  o.Text,
					IsCorrect:   o.Correct,
					OptionOrder: i + 1,
					QuestionID:  created.ID,
				}
			}
			opts, err := options.CreateMultiple(ctx, reqs)
			if err != nil {
				return created, &PartialError{Entity: "question", ID: created.ID, What: "options", Err: err}
			}
			created.MCQOptions = opts
			created.OptionCount = len(opts)
			return created, nil
		},
		Update: func(ctx context.Context, id int64, in QuestionInput) (model.Question, error) {
			req := model.UpdateQuestionRequest{
				QuestionText:    in.QuestionText,
				Explanation:     in.Explanation,
				SectionType:     in.SectionType,
				QuestionType:    in.QuestionType,
				DifficultyLevel: in.DifficultyLevel,
				Marks:           in.Marks,
				NegativeMarks:   in.NegativeMarks,
				ChapterID:       in.ChapterID,
				IsAddedToPaper:  in.IsAddedToPaper,
				IsActive:        in.IsActive,
			}
			if in.Options != nil {
				req.MCQOptions = make([]model.UpdateMCQOptionRequest, len(in.Options))
				for i, o := range in.Options {
					req.MCQOptions[i] = model.UpdateMCQOptionRequest{
						OptionText:  o.Text,
						IsCorrect:   o.Correct,
						OptionOrder: i + 1,
						QuestionID:  id,
					}
				}
			}
			return deref(questions.Update(ctx, id, req))
		},
	}, log)
}
