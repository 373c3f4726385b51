package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/model"
)

// ─── Questions ────────────────────────────────────────────────

func validateQuestion(text string, section model.SectionType, qtype model.QuestionType, marks float64) *apiError {
	fields := map[string]string{}
	if strings.TrimSpace(text) == "" {
		fields["questionText"] = "Question text is required"
	}
	if !section.Valid() {
		fields["sectionType"] = "Section type is required"
	}
	if !qtype.Valid() {
		fields["questionType"] = "Question type is required"
	}
	if marks <= 0 {
		fields["marks"] = "Marks must be at least 0.1"
	}
	if len(fields) == 0 {
		return nil
	}
	return &apiError{status: http.StatusBadRequest, message: "Validation failed", fields: fields}
}

func (s *Server) createQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if !bind(c, &req) {
		return
	}
	if e := validateQuestion(req.QuestionText, req.SectionType, req.QuestionType, req.Marks); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.chapters[req.ChapterID]; !found {
		abortWith(c, notFound("Chapter", req.ChapterID))
		return
	}
	q := s.newQuestion(req)
	c.JSON(http.StatusCreated, s.questionView(q))
}

func (s *Server) questionList(match func(*model.Question) bool) []model.Question {
	out := []model.Question{}
	for _, id := range sortedIDs(s.questions) {
		q := s.questions[id]
		if match != nil && !match(q) {
			continue
		}
		out = append(out, s.questionView(q))
	}
	return out
}

func (s *Server) listQuestions(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.questionList(func(q *model.Question) bool { return !activeOnly || q.IsActive }))
	}
}

// subjectOf resolves the subject owning a question's chapter.
func (s *Server) subjectOf(q *model.Question) *model.Subject {
	ch, ok := s.chapters[q.ChapterID()]
	if !ok {
		return nil
	}
	return s.subjects[ch.SubjectID()]
}

func (s *Server) filterQuestions(c *gin.Context) {
	page, size := pageParams(c)
	section := model.SectionType(c.Query("sectionType"))
	qtype := model.QuestionType(c.Query("questionType"))
	difficulty := model.DifficultyLevel(c.Query("difficultyLevel"))
	chapterID := queryID(c, "chapterId")
	subjectID := queryID(c, "subjectId")
	classID := queryID(c, "classId")
	var added *bool
	if raw := c.Query("isAddedToPaper"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			added = &v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.questionList(func(q *model.Question) bool {
		if section != "" && q.SectionType != section {
			return false
		}
		if qtype != "" && q.QuestionType != qtype {
			return false
		}
		if difficulty != "" && q.DifficultyLevel != difficulty {
			return false
		}
		if chapterID > 0 && q.ChapterID() != chapterID {
			return false
		}
		if added != nil && q.IsAddedToPaper != *added {
			return false
		}
		if subjectID > 0 || classID > 0 {
			sub := s.subjectOf(q)
			if sub == nil {
				return false
			}
			if subjectID > 0 && sub.ID != subjectID {
				return false
			}
			if classID > 0 && sub.ClassID() != classID {
				return false
			}
		}
		return true
	})
	c.JSON(http.StatusOK, model.Slice(items, page, size))
}

func (s *Server) questionsBySubject(addedOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, ok := paramID(c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.questionList(func(q *model.Question) bool {
			if addedOnly && !q.IsAddedToPaper {
				return false
			}
			sub := s.subjectOf(q)
			return sub != nil && sub.ID == subjectID
		}))
	}
}

func (s *Server) subjectPaper(c *gin.Context) {
	subjectID, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	sub, found := s.subjects[subjectID]
	var count int
	for _, q := range s.questions {
		if q.IsAddedToPaper {
			if owner := s.subjectOf(q); owner != nil && owner.ID == subjectID {
				count++
			}
		}
	}
	s.mu.Unlock()
	if !found {
		abortWith(c, notFound("Subject", subjectID))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="paper_%d.pdf"`, subjectID))
	c.Data(http.StatusOK, "application/pdf", fmt.Appendf(nil, "%%PDF-1.4\n%% %s: %d questions\n", sub.Name, count))
}

func (s *Server) getQuestion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, found := s.questions[id]
	if !found {
		abortWith(c, notFound("Question", id))
		return
	}
	c.JSON(http.StatusOK, s.questionView(q))
}

func (s *Server) updateQuestion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req model.UpdateQuestionRequest
	if !bind(c, &req) {
		return
	}
	if e := validateQuestion(req.QuestionText, req.SectionType, req.QuestionType, req.Marks); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q, found := s.questions[id]
	if !found {
		abortWith(c, notFound("Question", id))
		return
	}
	if _, found := s.chapters[req.ChapterID]; !found {
		abortWith(c, notFound("Chapter", req.ChapterID))
		return
	}
	q.QuestionText = req.QuestionText
	q.Explanation = req.Explanation
	q.SectionType = req.SectionType
	q.QuestionType = req.QuestionType
	if req.DifficultyLevel != "" {
		q.DifficultyLevel = req.DifficultyLevel
	}
	q.Marks = req.Marks
	q.NegativeMarks = req.NegativeMarks
	q.IsAddedToPaper = req.IsAddedToPaper
	q.ChapterInfo = &model.ChapterSummary{ID: req.ChapterID}
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}

	if req.SectionType != model.SectionMCQ {
		s.dropOptions(id)
	} else if req.MCQOptions != nil {
		s.dropOptions(id)
		for i, o := range req.MCQOptions {
			order := o.OptionOrder
			if order == 0 {
				order = i + 1
			}
			opt := &model.MCQOption{ID: s.id(), OptionText: o.OptionText, IsCorrect: o.IsCorrect, OptionOrder: order, QuestionID: id, Audit: s.stamp()}
			s.options[opt.ID] = opt
		}
	}
	c.JSON(http.StatusOK, s.questionView(q))
}

func (s *Server) dropOptions(questionID int64) {
	for oid, o := range s.options {
		if o.QuestionID == questionID {
			delete(s.options, oid)
		}
	}
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.questions[id]; !found {
		abortWith(c, notFound("Question", id))
		return
	}
	s.dropOptions(id)
	delete(s.questions, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) togglePaperStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, found := s.questions[id]
	if !found {
		abortWith(c, notFound("Question", id))
		return
	}
	q.IsAddedToPaper = !q.IsAddedToPaper
	c.JSON(http.StatusOK, s.questionView(q))
}

// ─── MCQ options ──────────────────────────────────────────────

func (s *Server) addOption(req model.CreateMCQOptionRequest) (*model.MCQOption, *apiError) {
	if strings.TrimSpace(req.OptionText) == "" {
		return nil, &apiError{status: http.StatusBadRequest, message: "Validation failed", fields: map[string]string{"optionText": "Option text is required"}}
	}
	q, found := s.questions[req.QuestionID]
	if !found {
		e := notFound("Question", req.QuestionID)
		return nil, &e
	}
	if q.SectionType != model.SectionMCQ {
		return nil, &apiError{status: http.StatusBadRequest, message: "Options can only be added to MCQ questions"}
	}
	o := &model.MCQOption{ID: s.id(), OptionText: req.OptionText, IsCorrect: req.IsCorrect, OptionOrder: req.OptionOrder, QuestionID: req.QuestionID, Audit: s.stamp()}
	s.options[o.ID] = o
	return o, nil
}

func (s *Server) createOption(c *gin.Context) {
	var req model.CreateMCQOptionRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, e := s.addOption(req)
	if e != nil {
		abortWith(c, *e)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) createOptions(c *gin.Context) {
	var reqs []model.CreateMCQOptionRequest
	if !bind(c, &reqs) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MCQOption, 0, len(reqs))
	for _, req := range reqs {
		o, e := s.addOption(req)
		if e != nil {
			abortWith(c, *e)
			return
		}
		out = append(out, *o)
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) optionsByIDs(c *gin.Context) {
	var ids []int64
	if !bind(c, &ids) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]model.MCQOption, len(ids))
	for _, id := range ids {
		if opts := s.optionsOf(id); len(opts) > 0 {
			out[strconv.FormatInt(id, 10)] = opts
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) optionsByQuestion(c *gin.Context) {
	questionID, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.optionsOf(questionID))
}

func (s *Server) getOption(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, found := s.options[id]
	if !found {
		abortWith(c, notFound("MCQ option", id))
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) updateOption(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req model.UpdateMCQOptionRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, found := s.options[id]
	if !found {
		abortWith(c, notFound("MCQ option", id))
		return
	}
	if strings.TrimSpace(req.OptionText) == "" {
		abortWith(c, apiError{status: http.StatusBadRequest, message: "Validation failed", fields: map[string]string{"optionText": "Option text is required"}})
		return
	}
	o.OptionText = req.OptionText
	o.IsCorrect = req.IsCorrect
	o.OptionOrder = req.OptionOrder
	c.JSON(http.StatusOK, o)
}

func (s *Server) deleteOption(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.options[id]; !found {
		abortWith(c, notFound("MCQ option", id))
		return
	}
	delete(s.options, id)
	c.Status(http.StatusNoContent)
}
