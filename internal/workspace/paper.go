package workspace

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stemsi/qbank-console/internal/model"
)

// Paper is the set of questions marked for a subject's exam paper.
type Paper struct {
	SubjectID   int64          `json:"subjectId"`
	SubjectName string         `json:"subjectName"`
	ClassName   string         `json:"className,omitempty"`
	Sections    []PaperSection `json:"sections"`
	Questions   int            `json:"questions"`
	TotalMarks  float64        `json:"totalMarks"`
}

type PaperSection struct {
	SectionType model.SectionType `json:"sectionType"`
	Title       string            `json:"title"`
	Questions   []model.Question  `json:"questions"`
	Marks       float64           `json:"marks"`
}

// Paper assembles the subject's paper in section order. Empty sections are
// left out.
func (w *Workspace) Paper(ctx context.Context, subjectID int64) (Paper, error) {
	var (
		subject *model.Subject
		added   []model.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subject, err = w.svc.Subjects.GetByID(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		added, err = w.svc.Questions.AddedToPaper(gctx, subjectID)
		if err != nil {
			return err
		}
		return w.attachOptions(gctx, added)
	})
	if err := g.Wait(); err != nil {
		return Paper{}, fmt.Errorf("assemble paper for subject %d: %w", subjectID, err)
	}

	p := Paper{SubjectID: subject.ID, SubjectName: subject.Name, Sections: []PaperSection{}}
	if subject.ClassInfo != nil {
		p.ClassName = subject.ClassInfo.Name
	}

	bySection := make(map[model.SectionType][]model.Question)
	for _, q := range added {
		bySection[q.SectionType] = append(bySection[q.SectionType], q)
	}
	for _, st := range model.SectionTypes() {
		qs := bySection[st]
		if len(qs) == 0 {
			continue
		}
		sec := PaperSection{SectionType: st, Title: st.DisplayName(), Questions: qs}
		for _, q := range qs {
			sec.Marks += q.Marks
		}
		p.Sections = append(p.Sections, sec)
		p.Questions += len(qs)
		p.TotalMarks += sec.Marks
	}
	return p, nil
}
