package validator

import (
	"testing"

	"github.com/stemsi/qbank-console/internal/model"
)

func TestStruct_ValidRequest(t *testing.T) {
	req := model.CreateQuestionRequest{
		QuestionText: "Solve x",
		SectionType:  model.SectionMCQ,
		QuestionType: model.QuestionSingleChoice,
		Marks:        1,
		ChapterID:    3,
	}
	if fields := Struct(req); fields != nil {
		t.Fatalf("unexpected errors: %v", fields)
	}
}

func TestStruct_FieldMessagesUseJSONNames(t *testing.T) {
	req := model.CreateQuestionRequest{
		SectionType:     "POEM",
		QuestionType:    model.QuestionEssay,
		DifficultyLevel: "IMPOSSIBLE",
	}
	fields := Struct(req)

	for _, key := range []string{"questionText", "sectionType", "difficultyLevel", "marks", "chapterId"} {
		if fields[key] == "" {
			t.Errorf("missing error for %s in %v", key, fields)
		}
	}
	if _, ok := fields["questionType"]; ok {
		t.Errorf("questionType should be valid: %v", fields)
	}
	if got := fields["sectionType"]; got != "sectionType must be a valid section type" {
		t.Errorf("sectionType message = %q", got)
	}
	if got := fields["questionText"]; got != "questionText is a required field" {
		t.Errorf("questionText message = %q", got)
	}
}

func TestStruct_NestedOptionPath(t *testing.T) {
	req := model.UpdateQuestionRequest{
		QuestionText: "Pick one",
		SectionType:  model.SectionMCQ,
		QuestionType: model.QuestionSingleChoice,
		Marks:        1,
		ChapterID:    1,
		MCQOptions:   []model.UpdateMCQOptionRequest{{OptionText: "a"}, {OptionText: ""}},
	}
	fields := Struct(req)
	if fields["mcqOptions[1].optionText"] == "" {
		t.Errorf("nested error missing: %v", fields)
	}
}

func TestTranslateErrors_NonValidation(t *testing.T) {
	fields := TranslateErrors(errString("unexpected EOF"))
	if fields["detail"] != "unexpected EOF" {
		t.Errorf("fields = %v", fields)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
