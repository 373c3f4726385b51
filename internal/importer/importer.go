// Package importer loads a YAML question-bank document into the backend,
// creating classes, subjects, chapters, questions and options in order.
package importer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
)

//go:embed schema.json
var schemaJSON string

var schema = gojsonschema.NewStringLoader(schemaJSON)

// ─── Document ─────────────────────────────────────────────────

type Document struct {
	Classes []Class `yaml:"classes"`
}

type Class struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Subjects    []Subject `yaml:"subjects"`
}

type Subject struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Chapters    []Chapter `yaml:"chapters"`
}

type Chapter struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
}

type Question struct {
	Text          string                `yaml:"text"`
	Explanation   string                `yaml:"explanation"`
	Section       model.SectionType     `yaml:"section"`
	Type          model.QuestionType    `yaml:"type"`
	Difficulty    model.DifficultyLevel `yaml:"difficulty"`
	Marks         float64               `yaml:"marks"`
	NegativeMarks float64               `yaml:"negativeMarks"`
	AddToPaper    bool                  `yaml:"addToPaper"`
	Options       []Option              `yaml:"options"`
}

type Option struct {
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// ErrInvalidDocument is matched by every *SchemaError.
var ErrInvalidDocument = errors.New("invalid bank document")

// SchemaError lists every schema violation found in a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidDocument }

// Parse decodes a YAML bank document and validates it against the bank schema.
func Parse(data []byte) (*Document, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if generic == nil {
		return nil, &SchemaError{Problems: []string{"document is empty"}}
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			problems = append(problems, re.String())
		}
		return nil, &SchemaError{Problems: problems}
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if problems := doc.problems(); len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	return &doc, nil
}

// problems checks the rules the schema cannot express: the number of
// correct options each MCQ question needs for its type.
func (d *Document) problems() []string {
	var out []string
	for ci, c := range d.Classes {
		for si, s := range c.Subjects {
			for hi, ch := range s.Chapters {
				for qi, q := range ch.Questions {
					if q.Section != model.SectionMCQ {
						continue
					}
					qt := q.Type
					if qt == "" {
						qt = q.Section.DefaultQuestionType()
					}
					correct := 0
					for _, o := range q.Options {
						if o.Correct {
							correct++
						}
					}
					if problem := model.CorrectOptionsProblem(qt, correct); problem != "" {
						out = append(out, fmt.Sprintf("classes.%d.subjects.%d.chapters.%d.questions.%d.correctOptions: %s",
							ci, si, hi, qi, problem))
					}
				}
			}
		}
	}
	return out
}

// ─── Targets ──────────────────────────────────────────────────

type ClassStore interface {
	Create(ctx context.Context, req model.CreateClassRequest) (*model.ClassEntity, error)
	ListAll(ctx context.Context) ([]model.ClassEntity, error)
}

type SubjectStore interface {
	Create(ctx context.Context, req model.CreateSubjectRequest) (*model.Subject, error)
	FilterByClass(ctx context.Context, classID int64) ([]model.Subject, error)
}

type ChapterStore interface {
	Create(ctx context.Context, req model.CreateChapterRequest) (*model.Chapter, error)
	Filter(ctx context.Context, f model.ChapterFilter) ([]model.Chapter, error)
}

type QuestionStore interface {
	Create(ctx context.Context, req model.CreateQuestionRequest) (*model.Question, error)
}

type OptionStore interface {
	CreateMultiple(ctx context.Context, reqs []model.CreateMCQOptionRequest) ([]model.MCQOption, error)
}

// Targets are the services an import writes through.
type Targets struct {
	Classes   ClassStore
	Subjects  SubjectStore
	Chapters  ChapterStore
	Questions QuestionStore
	Options   OptionStore
}

// Summary counts what an import did. Reused entities already existed under
// the same name and parent.
type Summary struct {
	ClassesCreated   int `json:"classesCreated"`
	ClassesReused    int `json:"classesReused"`
	SubjectsCreated  int `json:"subjectsCreated"`
	SubjectsReused   int `json:"subjectsReused"`
	ChaptersCreated  int `json:"chaptersCreated"`
	ChaptersReused   int `json:"chaptersReused"`
	QuestionsCreated int `json:"questionsCreated"`
	OptionsCreated   int `json:"optionsCreated"`
}

// Importer writes documents through Targets.
type Importer struct {
	t   Targets
	log zerolog.Logger
}

func New(t Targets, log zerolog.Logger) *Importer {
	return &Importer{t: t, log: log.With().Str("component", "importer").Logger()}
}

// Import creates the document's hierarchy top-down. An entity whose name is
// already taken under the same parent is reused. The first failure stops the
// import; the summary reports what was written before it.
func (im *Importer) Import(ctx context.Context, doc *Document) (Summary, error) {
	var sum Summary
	if problems := doc.problems(); len(problems) > 0 {
		return sum, &SchemaError{Problems: problems}
	}
	for _, c := range doc.Classes {
		classID, created, err := im.class(ctx, c)
		if err != nil {
			return sum, err
		}
		count(&sum.ClassesCreated, &sum.ClassesReused, created)

		for _, s := range c.Subjects {
			subjectID, created, err := im.subject(ctx, classID, s)
			if err != nil {
				return sum, err
			}
			count(&sum.SubjectsCreated, &sum.SubjectsReused, created)

			for _, ch := range s.Chapters {
				chapterID, created, err := im.chapter(ctx, classID, subjectID, ch)
				if err != nil {
					return sum, err
				}
				count(&sum.ChaptersCreated, &sum.ChaptersReused, created)

				for i, q := range ch.Questions {
					opts, err := im.question(ctx, chapterID, q)
					if err != nil {
						return sum, fmt.Errorf("chapter %q question %d: %w", ch.Name, i+1, err)
					}
					sum.QuestionsCreated++
					sum.OptionsCreated += opts
				}
			}
		}
	}

	im.log.Info().
		Int("classes", sum.ClassesCreated).
		Int("subjects", sum.SubjectsCreated).
		Int("chapters", sum.ChaptersCreated).
		Int("questions", sum.QuestionsCreated).
		Msg("Import finished")
	return sum, nil
}

func count(created, reused *int, isNew bool) {
	if isNew {
		*created++
	} else {
		*reused++
	}
}

func (im *Importer) class(ctx context.Context, c Class) (int64, bool, error) {
	out, err := im.t.Classes.Create(ctx, model.CreateClassRequest{
		Name:        strings.TrimSpace(c.Name),
		Description: c.Description,
	})
	if err == nil {
		return out.ID, true, nil
	}
	if !errors.Is(err, client.ErrConflict) {
		return 0, false, fmt.Errorf("create class %q: %w", c.Name, err)
	}

	all, lerr := im.t.Classes.ListAll(ctx)
	if lerr != nil {
		return 0, false, fmt.Errorf("look up class %q: %w", c.Name, lerr)
	}
	for _, existing := range all {
		if sameName(existing.Name, c.Name) {
			return existing.ID, false, nil
		}
	}
	return 0, false, fmt.Errorf("create class %q: %w", c.Name, err)
}

func (im *Importer) subject(ctx context.Context, classID int64, s Subject) (int64, bool, error) {
	out, err := im.t.Subjects.Create(ctx, model.CreateSubjectRequest{
		Name:        strings.TrimSpace(s.Name),
		Description: s.Description,
		ClassID:     classID,
	})
	if err == nil {
		return out.ID, true, nil
	}
	if !errors.Is(err, client.ErrConflict) {
		return 0, false, fmt.Errorf("create subject %q: %w", s.Name, err)
	}

	siblings, lerr := im.t.Subjects.FilterByClass(ctx, classID)
	if lerr != nil {
		return 0, false, fmt.Errorf("look up subject %q: %w", s.Name, lerr)
	}
	for _, existing := range siblings {
		if sameName(existing.Name, s.Name) {
			return existing.ID, false, nil
		}
	}
	return 0, false, fmt.Errorf("create subject %q: %w", s.Name, err)
}

func (im *Importer) chapter(ctx context.Context, classID, subjectID int64, ch Chapter) (int64, bool, error) {
	out, err := im.t.Chapters.Create(ctx, model.CreateChapterRequest{
		Name:        strings.TrimSpace(ch.Name),
		Description: ch.Description,
		SubjectID:   subjectID,
	})
	if err == nil {
		return out.ID, true, nil
	}
	if !errors.Is(err, client.ErrConflict) {
		return 0, false, fmt.Errorf("create chapter %q: %w", ch.Name, err)
	}

	siblings, lerr := im.t.Chapters.Filter(ctx, model.ChapterFilter{ClassID: classID, SubjectID: subjectID})
	if lerr != nil {
		return 0, false, fmt.Errorf("look up chapter %q: %w", ch.Name, lerr)
	}
	for _, existing := range siblings {
		if sameName(existing.Name, ch.Name) {
			return existing.ID, false, nil
		}
	}
	return 0, false, fmt.Errorf("create chapter %q: %w", ch.Name, err)
}

// question creates q and its options and returns how many options were written.
func (im *Importer) question(ctx context.Context, chapterID int64, q Question) (int, error) {
	qt := q.Type
	if qt == "" {
		qt = q.Section.DefaultQuestionType()
	}
	marks := q.Marks
	if marks == 0 {
		marks = 1
	}

	created, err := im.t.Questions.Create(ctx, model.CreateQuestionRequest{
		QuestionText:    strings.TrimSpace(q.Text),
		Explanation:     q.Explanation,
		SectionType:     q.Section,
		QuestionType:    qt,
		DifficultyLevel: q.Difficulty,
		Marks:           marks,
		NegativeMarks:   q.NegativeMarks,
		ChapterID:       chapterID,
		IsAddedToPaper:  q.AddToPaper,
	})
	if err != nil {
		return 0, fmt.Errorf("create question: %w", err)
	}
	if q.Section != model.SectionMCQ || len(q.Options) == 0 {
		return 0, nil
	}

	reqs := make([]model.CreateMCQOptionRequest, len(q.Options))
	for i, o := range q.Options {
		reqs[i] = model.CreateMCQOptionRequest{
			OptionText:  strings.TrimSpace(o.Text),
			IsCorrect:   o.Correct,
			OptionOrder: i + 1,
			QuestionID:  created.ID,
		}
	}
	opts, err := im.t.Options.CreateMultiple(ctx, reqs)
	if err != nil {
		return 0, fmt.Errorf("create options for question %d: %w", created.ID, err)
	}
	return len(opts), nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
