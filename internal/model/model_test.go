package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSectionType(t *testing.T) {
	tests := []struct {
		in   string
		want SectionType
	}{
		{"MCQ", SectionMCQ},
		{"short_question", SectionShort},
		{"Short", SectionShort},
		{"T/F", SectionTrueFalse},
		{"Fill in the Blanks", SectionFillInBlank},
		{" essay ", SectionEssay},
	}
	for _, tt := range tests {
		got, err := ParseSectionType(tt.in)
		if err != nil {
			t.Errorf("ParseSectionType(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSectionType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseSectionType("poem"); err == nil {
		t.Error("expected error for unknown section type")
	}
}

func TestDefaultQuestionType(t *testing.T) {
	for _, st := range SectionTypes() {
		if !st.DefaultQuestionType().Valid() {
			t.Errorf("%s has no valid default question type", st)
		}
	}
	if got := SectionType("poem").DefaultQuestionType(); got != "" {
		t.Errorf("unknown section default = %q, want empty", got)
	}
}

func TestParseQuestionTypeAndDifficulty(t *testing.T) {
	if qt, err := ParseQuestionType("Single Choice"); err != nil || qt != QuestionSingleChoice {
		t.Errorf("ParseQuestionType = %s, %v", qt, err)
	}
	if d, err := ParseDifficultyLevel("very_hard"); err != nil || d != DifficultyVeryHard {
		t.Errorf("ParseDifficultyLevel = %s, %v", d, err)
	}
	if _, err := ParseDifficultyLevel("trivial"); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

func TestLocalTime_Unmarshal(t *testing.T) {
	var c ClassEntity
	body := `{"id":3,"name":"Grade 9","isActive":true,"createdAt":"2025-01-20T10:30:00","updatedAt":"2025-01-20T15:45:00.123Z"}`
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2025, 1, 20, 10, 30, 0, 0, time.UTC)
	if !c.CreatedAt.Equal(want) {
		t.Errorf("createdAt = %v, want %v", c.CreatedAt, want)
	}
	if c.UpdatedAt.Hour() != 15 {
		t.Errorf("updatedAt = %v", c.UpdatedAt)
	}

	var empty ClassEntity
	if err := json.Unmarshal([]byte(`{"id":1,"createdAt":null}`), &empty); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !empty.CreatedAt.IsZero() {
		t.Error("null timestamp should stay zero")
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Slice(items, 1, 2)
	if len(p.Content) != 2 || p.Content[0] != 3 {
		t.Errorf("content = %v", p.Content)
	}
	if p.TotalPages != 3 || p.First || p.Last {
		t.Errorf("meta = %+v", p)
	}

	last := Slice(items, 2, 2)
	if len(last.Content) != 1 || !last.Last {
		t.Errorf("last page = %+v", last)
	}

	beyond := Slice(items, 9, 2)
	if len(beyond.Content) != 0 {
		t.Errorf("beyond page = %+v", beyond)
	}
}

func TestPageFromSlice(t *testing.T) {
	p := PageFromSlice[string](nil)
	if p.Content == nil || p.TotalPages != 0 || !p.First || !p.Last {
		t.Errorf("empty page = %+v", p)
	}
}

func TestQuestionAncestors(t *testing.T) {
	q := Question{ChapterInfo: &ChapterSummary{ID: 7, SubjectInfo: &SubjectSummary{ID: 5, ClassInfo: &ClassSummary{ID: 2}}}}
	if q.ChapterID() != 7 || q.SubjectID() != 5 || q.ClassID() != 2 {
		t.Errorf("ancestors = %d/%d/%d", q.ClassID(), q.SubjectID(), q.ChapterID())
	}
	if (Question{}).ClassID() != 0 {
		t.Error("missing chapter info should yield 0")
	}
}

func TestCorrectOptionsProblem(t *testing.T) {
	tests := []struct {
		qtype   QuestionType
		correct int
		ok      bool
	}{
		{QuestionSingleChoice, 0, false},
		{QuestionSingleChoice, 1, true},
		{QuestionSingleChoice, 2, false},
		{QuestionMultipleChoice, 0, false},
		{QuestionMultipleChoice, 3, true},
		{QuestionTrueFalse, 1, true},
	}
	for _, tt := range tests {
		got := CorrectOptionsProblem(tt.qtype, tt.correct)
		if (got == "") != tt.ok {
			t.Errorf("CorrectOptionsProblem(%s, %d) = %q", tt.qtype, tt.correct, got)
		}
	}
}
