package cascade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/qbank-console/internal/model"
)

// Level is one rung of the class → subject → chapter hierarchy, plus the
// orthogonal section-type filter.
type Level string

const (
	LevelClass   Level = "class"
	LevelSubject Level = "subject"
	LevelChapter Level = "chapter"
	LevelSection Level = "sectionType"
)

var (
	ErrUnknownLevel     = errors.New("unknown scope level")
	ErrUnsupportedLevel = errors.New("scope level not supported on this screen")
	ErrInvalidValue     = errors.New("invalid scope value")
)

// ParseLevel accepts the canonical names and a few aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class", "classid":
		return LevelClass, nil
	case "subject", "subjectid":
		return LevelSubject, nil
	case "chapter", "chapterid":
		return LevelChapter, nil
	case "sectiontype", "section":
		return LevelSection, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Scope is the set of active ancestor filters. Zero fields are unfiltered.
type Scope struct {
	ClassID     int64             `json:"classId,omitempty"`
	SubjectID   int64             `json:"subjectId,omitempty"`
	ChapterID   int64             `json:"chapterId,omitempty"`
	SectionType model.SectionType `json:"sectionType,omitempty"`
}

// QuestionFilter renders the scope as a question filter for one page.
func (s Scope) QuestionFilter(p Paging) model.QuestionFilter {
	return model.QuestionFilter{
		SectionType: s.SectionType,
		ChapterID:   s.ChapterID,
		SubjectID:   s.SubjectID,
		ClassID:     s.ClassID,
		Page:        p.Page,
		Size:        p.Size,
	}
}

// Change sets exactly one level. A zero ID or empty Section clears the level.
type Change struct {
	Level   Level
	ID      int64
	Section model.SectionType
}

// IsReset reports whether the change removes the filter at its level.
func (c Change) IsReset() bool {
	if c.Level == LevelSection {
		return c.Section == ""
	}
	return c.ID == 0
}

// ParseChange builds a Change from selector input. "" and "all" clear the level.
func ParseChange(level, raw string) (Change, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return Change{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return Change{Level: lvl}, nil
	}

	if lvl == LevelSection {
		st, err := model.ParseSectionType(raw)
		if err != nil {
			return Change{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return Change{Level: lvl, Section: st}, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Change{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, lvl, raw)
	}
	return Change{Level: lvl, ID: id}, nil
}

// With returns the scope after c. Ancestor changes clear descendant selections.
func (s Scope) With(c Change) Scope {
	switch c.Level {
	case LevelClass:
		s.ClassID = c.ID
		s.SubjectID = 0
		s.ChapterID = 0
	case LevelSubject:
		s.SubjectID = c.ID
		s.ChapterID = 0
	case LevelChapter:
		s.ChapterID = c.ID
	case LevelSection:
		s.SectionType = c.Section
	}
	return s
}

// Paging selects one page of the dependent list.
type Paging struct {
	Page int `json:"page"`
	Size int `json:"size"`
}
