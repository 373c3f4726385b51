// Package export renders question-bank data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/qbank-console/internal/model"
)

const (
	SheetQuestions = "Questions"
	SheetOptions   = "Options"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	questionHeader = []any{"ID", "Class", "Subject", "Chapter", "Section", "Type", "Difficulty", "Marks", "Negative Marks", "Added To Paper", "Active", "Question"}
	optionHeader   = []any{"Question ID", "Order", "Option", "Correct"}
)

// Questions writes qs as an xlsx workbook: one row per question on the
// Questions sheet and one row per MCQ option on the Options sheet.
func Questions(w io.Writer, qs []model.Question) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetQuestions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetOptions); err != nil {
		return fmt.Errorf("create options sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for _, sheet := range []struct {
		name   string
		header []any
		last   string
	}{
		{SheetQuestions, questionHeader, "L"},
		{SheetOptions, optionHeader, "D"},
	} {
		if err := writeHeader(f, sheet.name, sheet.header, sheet.last, bold); err != nil {
			return err
		}
	}

	row := 2
	optRow := 2
	for _, q := range qs {
		if err := writeRow(f, SheetQuestions, row, questionRow(q)); err != nil {
			return err
		}
		row++
		for _, o := range q.MCQOptions {
			if err := writeRow(f, SheetOptions, optRow, []any{q.ID, o.OptionOrder, o.OptionText, yesNo(o.IsCorrect)}); err != nil {
				return err
			}
			optRow++
		}
	}

	_ = f.SetColWidth(SheetQuestions, "B", "D", 18)
	_ = f.SetColWidth(SheetQuestions, "L", "L", 80)
	_ = f.SetColWidth(SheetOptions, "C", "C", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []any, last string, style int) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze %s header: %w", sheet, err)
	}
	if err := f.AutoFilter(sheet, "A1:"+last+"1", nil); err != nil {
		return fmt.Errorf("filter %s: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func questionRow(q model.Question) []any {
	var class, subject, chapter string
	if ch := q.ChapterInfo; ch != nil {
		chapter = ch.Name
		if s := ch.SubjectInfo; s != nil {
			subject = s.Name
			if c := s.ClassInfo; c != nil {
				class = c.Name
			}
		}
	}
	return []any{
		q.ID,
		class,
		subject,
		chapter,
		q.SectionType.DisplayName(),
		string(q.QuestionType),
		string(q.DifficultyLevel),
		q.Marks,
		q.NegativeMarks,
		yesNo(q.IsAddedToPaper),
		yesNo(q.IsActive),
		q.QuestionText,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
