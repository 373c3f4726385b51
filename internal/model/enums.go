package model

import (
	"fmt"
	"strings"
)

// ─── Section type ─────────────────────────────────────────────

// SectionType groups questions into the sections of an exam paper.
type SectionType string

const (
	SectionMCQ         SectionType = "MCQ"
	SectionShort       SectionType = "SHORT_QUESTION"
	SectionLong        SectionType = "LONG_QUESTION"
	SectionTrueFalse   SectionType = "TRUE_FALSE"
	SectionFillInBlank SectionType = "FILL_IN_BLANK"
	SectionEssay       SectionType = "ESSAY"
)

type sectionInfo struct {
	display string
	short   string
}

var sectionTypes = map[SectionType]sectionInfo{
	SectionMCQ:         {"Multiple Choice Questions", "MCQ"},
	SectionShort:       {"Short Answer Questions", "Short"},
	SectionLong:        {"Long Answer Questions", "Long"},
	SectionTrueFalse:   {"True/False Questions", "T/F"},
	SectionFillInBlank: {"Fill in the Blanks", "Fill"},
	SectionEssay:       {"Essay Questions", "Essay"},
}

// SectionTypes lists every section in paper order.
func SectionTypes() []SectionType {
	return []SectionType{SectionMCQ, SectionShort, SectionLong, SectionTrueFalse, SectionFillInBlank, SectionEssay}
}

// ParseSectionType accepts the wire name, the display name or the short
// name, case-insensitively.
func ParseSectionType(s string) (SectionType, error) {
	s = strings.TrimSpace(s)
	for st, info := range sectionTypes {
		if strings.EqualFold(string(st), s) ||
			strings.EqualFold(info.display, s) ||
			strings.EqualFold(info.short, s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid section type: %q", s)
}

func (s SectionType) Valid() bool {
	_, ok := sectionTypes[s]
	return ok
}

func (s SectionType) DisplayName() string {
	if info, ok := sectionTypes[s]; ok {
		return info.display
	}
	return string(s)
}

// DefaultQuestionType is the question type implied by the section.
func (s SectionType) DefaultQuestionType() QuestionType {
	switch s {
	case SectionMCQ:
		return QuestionSingleChoice
	case SectionTrueFalse:
		return QuestionTrueFalse
	case SectionFillInBlank:
		return QuestionFillBlank
	case SectionShort:
		return QuestionShortAnswer
	case SectionLong:
		return QuestionLongAnswer
	case SectionEssay:
		return QuestionEssay
	}
	return ""
}

func (s SectionType) ShortName() string {
	if info, ok := sectionTypes[s]; ok {
		return info.short
	}
	return string(s)
}

// ─── Question type ────────────────────────────────────────────

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionFillBlank      QuestionType = "FILL_BLANK"
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionLongAnswer     QuestionType = "LONG_ANSWER"
	QuestionEssay          QuestionType = "ESSAY"
	QuestionNumerical      QuestionType = "NUMERICAL"
	QuestionMatching       QuestionType = "MATCHING"
)

var questionTypes = map[QuestionType]string{
	QuestionSingleChoice:   "Single Choice",
	QuestionMultipleChoice: "Multiple Choice",
	QuestionTrueFalse:      "True/False",
	QuestionFillBlank:      "Fill in Blank",
	QuestionShortAnswer:    "Short Answer",
	QuestionLongAnswer:     "Long Answer",
	QuestionEssay:          "Essay",
	QuestionNumerical:      "Numerical",
	QuestionMatching:       "Matching",
}

func ParseQuestionType(s string) (QuestionType, error) {
	s = strings.TrimSpace(s)
	for qt, display := range questionTypes {
		if strings.EqualFold(string(qt), s) || strings.EqualFold(display, s) {
			return qt, nil
		}
	}
	return "", fmt.Errorf("invalid question type: %q", s)
}

func (q QuestionType) Valid() bool {
	_, ok := questionTypes[q]
	return ok
}

// ─── Difficulty ───────────────────────────────────────────────

type DifficultyLevel string

const (
	DifficultyVeryEasy DifficultyLevel = "VERY_EASY"
	DifficultyEasy     DifficultyLevel = "EASY"
	DifficultyMedium   DifficultyLevel = "MEDIUM"
	DifficultyHard     DifficultyLevel = "HARD"
	DifficultyVeryHard DifficultyLevel = "VERY_HARD"
)

var difficulties = map[DifficultyLevel]string{
	DifficultyVeryEasy: "Very Easy",
	DifficultyEasy:     "Easy",
	DifficultyMedium:   "Medium",
	DifficultyHard:     "Hard",
	DifficultyVeryHard: "Very Hard",
}

func ParseDifficultyLevel(s string) (DifficultyLevel, error) {
	s = strings.TrimSpace(s)
	for d, display := range difficulties {
		if strings.EqualFold(string(d), s) || strings.EqualFold(display, s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid difficulty level: %q", s)
}

func (d DifficultyLevel) Valid() bool {
	_, ok := difficulties[d]
	return ok
}
