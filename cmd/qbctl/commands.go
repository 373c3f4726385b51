package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/stemsi/qbank-console/internal/cascade"
	"github.com/stemsi/qbank-console/internal/export"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/importer"
	"github.com/stemsi/qbank-console/internal/list"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

type command struct {
	name     string
	args     string
	summary  string
	signedIn bool
	run      func(a *app, ctx context.Context, fs *flag.FlagSet, args []string) error
}

func commands() []command {
	return []command{
		{"login", "[-user name]", "sign in to the question bank", false, (*app).login},
		{"logout", "", "sign out and forget the stored session", false, (*app).logout},
		{"whoami", "", "show the signed-in account", false, (*app).whoami},
		{"classes", "[-page n -size n]", "list classes", true, (*app).classes},
		{"subjects", "[-class id] [-page n -size n]", "list subjects", true, (*app).subjects},
		{"chapters", "[-class id -subject id] [-page n -size n]", "list chapters", true, (*app).chapters},
		{"questions", "[-class id -subject id -chapter id -section s] [-page n -size n]", "list questions", true, (*app).questions},
		{"toggle-paper", "<question-id>", "add a question to its subject paper or take it out", true, (*app).togglePaper},
		{"delete", "<class|subject|chapter|question> <id> [-yes]", "delete an entity", true, (*app).delete},
		{"paper", "-subject id [-o file]", "show or download a subject paper", true, (*app).paper},
		{"chapter-paper", "-chapter id [-format pdf|word] [-o file]", "generate a chapter paper", true, (*app).chapterPaper},
		{"export", "[-o file.xlsx] [-class id -subject id -chapter id -section s]", "export questions to a spreadsheet", true, (*app).export},
		{"import", "-f bank.yaml", "create a question bank from a YAML document", true, (*app).importBank},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// parseArgs parses flags placed anywhere among the positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return pos, nil
		}
		pos = append(pos, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, s)
	}
	return id, nil
}

// ─── Session ──────────────────────────────────────────────────

func (a *app) login(ctx context.Context, fs *flag.FlagSet, args []string) error {
	user := fs.String("user", "", "account name (prompted when empty)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	creds := model.Credentials{Name: *user}
	if creds.Name == "" {
		name, err := a.prompt("Name: ")
		if err != nil {
			return err
		}
		creds.Name = name
	}
	fmt.Fprint(a.errOut, "Password: ")
	pw, err := a.readPassword()
	fmt.Fprintln(a.errOut)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	creds.Password = string(pw)

	if fields := validator.Struct(creds); fields != nil {
		return &form.InvalidError{Fields: fields}
	}

	st, err := a.sess.Manager.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s until %s\n", st.User, formatTime(st.ExpiresAt))
	return nil
}

func (a *app) logout(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if err := a.sess.Manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(_ context.Context, fs *flag.FlagSet, args []string) error {
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if !a.sess.Manager.IsLoggedIn() {
		return errNotSignedIn
	}
	m := a.sess.Manager
	fmt.Fprintf(a.out, "%s (session ends %s)\n", m.User(), formatTime(m.ExpiresAt()))
	return nil
}

// ─── Listings ─────────────────────────────────────────────────

type pageFlags struct {
	page, size *int
}

func addPageFlags(fs *flag.FlagSet) pageFlags {
	return pageFlags{
		page: fs.Int("page", 1, "page number, starting at 1"),
		size: fs.Int("size", 0, "rows per page (default from PAGE_SIZE)"),
	}
}

// scopeFlags holds selector values in cascade order.
type scopeFlags struct {
	levels []cascade.Level
	values []*string
}

func addScopeFlags(fs *flag.FlagSet, levels ...cascade.Level) scopeFlags {
	sf := scopeFlags{levels: levels}
	for _, lvl := range levels {
		name, usage := string(lvl), string(lvl)+" id"
		if lvl == cascade.LevelSection {
			name, usage = "section", "section type, e.g. MCQ"
		}
		sf.values = append(sf.values, fs.String(name, "", usage))
	}
	return sf
}

func (sf scopeFlags) changes() ([]cascade.Change, error) {
	var out []cascade.Change
	for i, lvl := range sf.levels {
		if *sf.values[i] == "" {
			continue
		}
		c, err := cascade.ParseChange(string(lvl), *sf.values[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (sf scopeFlags) filter() (model.QuestionFilter, error) {
	changes, err := sf.changes()
	if err != nil {
		return model.QuestionFilter{}, err
	}
	var s cascade.Scope
	for _, c := range changes {
		s = s.With(c)
	}
	return s.QuestionFilter(cascade.Paging{}), nil
}

// browse loads a screen, narrows it and moves to the requested page.
func browse[T model.Entity, I any](ctx context.Context, l *list.Controller[T, I], changes []cascade.Change, pf pageFlags) (model.Page[T], error) {
	st, err := l.Load(ctx)
	for _, c := range changes {
		if err != nil {
			break
		}
		st, err = l.Apply(ctx, c)
	}
	if err == nil && (*pf.page > 1 || *pf.size > 0) {
		st, err = l.SetPage(ctx, *pf.page-1, *pf.size)
	}
	return st.View.Items, err
}

func (a *app) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func (a *app) footer(p model.Pagination) {
	if p.TotalPages > 1 {
		fmt.Fprintf(a.out, "page %d of %d, %d total\n", p.Page+1, p.TotalPages, p.Total)
	}
}

func (a *app) classes(ctx context.Context, fs *flag.FlagSet, args []string) error {
	pf := addPageFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	page, err := browse(ctx, a.sess.Workspace.Classes, nil, pf)
	if err != nil {
		return err
	}

	tw := a.table("ID", "NAME", "SUBJECTS", "ACTIVE")
	for _, c := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", c.ID, c.Name, c.SubjectCount, yesNo(c.IsActive))
	}
	tw.Flush()
	a.footer(page.Meta())
	return nil
}

func (a *app) subjects(ctx context.Context, fs *flag.FlagSet, args []string) error {
	sf := addScopeFlags(fs, cascade.LevelClass)
	pf := addPageFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	changes, err := sf.changes()
	if err != nil {
		return err
	}
	page, err := browse(ctx, a.sess.Workspace.Subjects, changes, pf)
	if err != nil {
		return err
	}

	tw := a.table("ID", "NAME", "CLASS", "ACTIVE")
	for _, s := range page.Content {
		class := ""
		if s.ClassInfo != nil {
			class = s.ClassInfo.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, class, yesNo(s.IsActive))
	}
	tw.Flush()
	a.footer(page.Meta())
	return nil
}

func (a *app) chapters(ctx context.Context, fs *flag.FlagSet, args []string) error {
	sf := addScopeFlags(fs, cascade.LevelClass, cascade.LevelSubject)
	pf := addPageFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	changes, err := sf.changes()
	if err != nil {
		return err
	}
	page, err := browse(ctx, a.sess.Workspace.Chapters, changes, pf)
	if err != nil {
		return err
	}

	tw := a.table("ID", "NAME", "SUBJECT", "QUESTIONS")
	for _, ch := range page.Content {
		subject := ""
		if ch.SubjectInfo != nil {
			subject = ch.SubjectInfo.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", ch.ID, ch.Name, subject, ch.QuestionCount)
	}
	tw.Flush()
	a.footer(page.Meta())
	return nil
}

func (a *app) questions(ctx context.Context, fs *flag.FlagSet, args []string) error {
	sf := addScopeFlags(fs, cascade.LevelClass, cascade.LevelSubject, cascade.LevelChapter, cascade.LevelSection)
	pf := addPageFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	changes, err := sf.changes()
	if err != nil {
		return err
	}
	page, err := browse(ctx, a.sess.Workspace.Questions, changes, pf)
	if err != nil {
		return err
	}

	tw := a.table("ID", "SECTION", "TYPE", "MARKS", "PAPER", "QUESTION")
	for _, q := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%s\t%s\n",
			q.ID, q.SectionType.ShortName(), q.QuestionType, q.Marks, yesNo(q.IsAddedToPaper), truncate(q.QuestionText, 60))
		for _, o := range q.MCQOptions {
			mark := ""
			if o.IsCorrect {
				mark = " *"
			}
			fmt.Fprintf(tw, "\t\t\t\t\t  %d) %s%s\n", o.OptionOrder, truncate(o.OptionText, 56), mark)
		}
	}
	tw.Flush()
	a.footer(page.Meta())
	return nil
}

// ─── Actions ──────────────────────────────────────────────────

func (a *app) togglePaper(ctx context.Context, fs *flag.FlagSet, args []string) error {
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}

	q, err := a.sess.Workspace.TogglePaper(ctx, id)
	if err != nil {
		return err
	}
	if q.IsAddedToPaper {
		fmt.Fprintf(a.out, "Question %d added to paper\n", id)
	} else {
		fmt.Fprintf(a.out, "Question %d removed from paper\n", id)
	}
	return nil
}

// screenByEntity accepts both the singular and the plural entity name.
var screenByEntity = map[string]string{
	"class":     workspace.ScreenClasses,
	"classes":   workspace.ScreenClasses,
	"subject":   workspace.ScreenSubjects,
	"subjects":  workspace.ScreenSubjects,
	"chapter":   workspace.ScreenChapters,
	"chapters":  workspace.ScreenChapters,
	"question":  workspace.ScreenQuestions,
	"questions": workspace.ScreenQuestions,
}

func (a *app) delete(ctx context.Context, fs *flag.FlagSet, args []string) error {
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errUsage
	}
	name, ok := screenByEntity[strings.ToLower(pos[0])]
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", errUsage, pos[0])
	}
	id, err := parseID(pos[1])
	if err != nil {
		return err
	}

	var confirm list.Confirmer = list.Preapproved(true)
	if !*yes {
		confirm = list.ConfirmFunc(func(_ context.Context, prompt string) bool {
			answer, err := a.prompt(prompt + " [y/N] ")
			return err == nil && strings.EqualFold(answer, "y")
		})
	}

	s, err := a.sess.Workspace.Screen(name)
	if err != nil {
		return err
	}
	outcome, _, err := s.Delete(ctx, id, confirm)
	switch outcome {
	case list.OutcomeDeclined:
		fmt.Fprintln(a.out, "Nothing deleted")
		return nil
	case list.OutcomeAlreadyGone:
		fmt.Fprintf(a.out, "%s %d was already gone\n", pos[0], id)
		return nil
	case list.OutcomeFailed:
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s %d\n", pos[0], id)
	return nil
}

// ─── Papers ───────────────────────────────────────────────────

func (a *app) paper(ctx context.Context, fs *flag.FlagSet, args []string) error {
	subject := fs.Int64("subject", 0, "subject id")
	output := fs.String("o", "", "write the rendered paper to this file instead of listing it")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *subject <= 0 {
		return errUsage
	}

	if *output != "" {
		doc, err := a.sess.Workspace.DownloadPaper(ctx, *subject)
		if err != nil {
			return err
		}
		return a.save(*output, doc.Data)
	}

	p, err := a.sess.Workspace.Paper(ctx, *subject)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s", p.SubjectName)
	if p.ClassName != "" {
		fmt.Fprintf(a.out, " (%s)", p.ClassName)
	}
	fmt.Fprintf(a.out, ": %d questions, %g marks\n", p.Questions, p.TotalMarks)
	for _, sec := range p.Sections {
		fmt.Fprintf(a.out, "\n%s, %g marks\n", sec.Title, sec.Marks)
		for i, q := range sec.Questions {
			fmt.Fprintf(a.out, "  %d. %s [%g]\n", i+1, q.QuestionText, q.Marks)
			for _, o := range q.MCQOptions {
				fmt.Fprintf(a.out, "     %c) %s\n", 'a'+rune(o.OptionOrder-1), o.OptionText)
			}
		}
	}
	return nil
}

func (a *app) chapterPaper(ctx context.Context, fs *flag.FlagSet, args []string) error {
	chapter := fs.Int64("chapter", 0, "chapter id")
	format := fs.String("format", "pdf", "pdf or word")
	output := fs.String("o", "", "output file (default: name given by the server)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *chapter <= 0 {
		return errUsage
	}

	doc, err := a.sess.Workspace.GenerateChapterPaper(ctx, *chapter, model.PaperOptions{OutputFormat: *format})
	if err != nil {
		return err
	}
	path := *output
	if path == "" {
		path = filepath.Base(doc.Filename)
	}
	return a.save(path, doc.Data)
}

// ─── Bulk ─────────────────────────────────────────────────────

func (a *app) export(ctx context.Context, fs *flag.FlagSet, args []string) error {
	output := fs.String("o", "questions.xlsx", "output workbook")
	sf := addScopeFlags(fs, cascade.LevelClass, cascade.LevelSubject, cascade.LevelChapter, cascade.LevelSection)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	filter, err := sf.filter()
	if err != nil {
		return err
	}

	qs, err := a.sess.Workspace.CollectQuestions(ctx, filter)
	if err != nil {
		return err
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := export.Questions(f, qs); err != nil {
		f.Close()
		os.Remove(*output)
		return fmt.Errorf("write %s: %w", *output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d questions to %s\n", len(qs), *output)
	return nil
}

func (a *app) importBank(ctx context.Context, fs *flag.FlagSet, args []string) error {
	file := fs.String("f", "", "YAML bank document")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return errUsage
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	doc, err := importer.Parse(data)
	if err != nil {
		var se *importer.SchemaError
		if errors.As(err, &se) {
			for _, p := range se.Problems {
				fmt.Fprintln(a.errOut, "  "+p)
			}
		}
		return fmt.Errorf("%s: %w", *file, err)
	}

	sum, err := a.sess.Workspace.Import(ctx, doc)
	tw := a.table("", "CREATED", "REUSED")
	fmt.Fprintf(tw, "classes\t%d\t%d\n", sum.ClassesCreated, sum.ClassesReused)
	fmt.Fprintf(tw, "subjects\t%d\t%d\n", sum.SubjectsCreated, sum.SubjectsReused)
	fmt.Fprintf(tw, "chapters\t%d\t%d\n", sum.ChaptersCreated, sum.ChaptersReused)
	fmt.Fprintf(tw, "questions\t%d\t\n", sum.QuestionsCreated)
	fmt.Fprintf(tw, "options\t%d\t\n", sum.OptionsCreated)
	tw.Flush()
	return err
}

// ─── Helpers ──────────────────────────────────────────────────

// save writes data to path, or to stdout when path is "-".
func (a *app) save(path string, data []byte) error {
	if path == "-" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, len(data))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
