package fakeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/model"
)

// ─── Classes ──────────────────────────────────────────────────

func (s *Server) createClass(c *gin.Context) {
	var req model.CreateClassRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.classNameTaken(req.Name, 0) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Class with name '%s' already exists", req.Name)})
		return
	}
	cl := &model.ClassEntity{ID: s.id(), Name: req.Name, Description: req.Description, IsActive: true, Audit: s.stamp()}
	s.classes[cl.ID] = cl
	c.JSON(http.StatusCreated, s.classView(cl))
}

func (s *Server) classNameTaken(name string, except int64) bool {
	for _, cl := range s.classes {
		if cl.ID != except && strings.EqualFold(cl.Name, name) {
			return true
		}
	}
	return false
}

func (s *Server) listClasses(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.classList(activeOnly, ""))
	}
}

func (s *Server) classList(activeOnly bool, name string) []model.ClassEntity {
	out := []model.ClassEntity{}
	for _, id := range sortedIDs(s.classes) {
		cl := s.classes[id]
		if activeOnly && !cl.IsActive {
			continue
		}
		if name != "" && !containsFold(cl.Name, name) {
			continue
		}
		out = append(out, s.classView(cl))
	}
	return out
}

func (s *Server) pageClasses(c *gin.Context) {
	page, size := pageParams(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, model.Slice(s.classList(false, c.Query("name")), page, size))
}

func (s *Server) getClass(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cl, found := s.classes[id]
	if !found {
		abortWith(c, notFound("Class", id))
		return
	}
	c.JSON(http.StatusOK, s.classView(cl))
}

func (s *Server) updateClass(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req model.UpdateClassRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cl, found := s.classes[id]
	if !found {
		abortWith(c, notFound("Class", id))
		return
	}
	if s.classNameTaken(req.Name, id) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Class with name '%s' already exists", req.Name)})
		return
	}
	cl.Name = req.Name
	cl.Description = req.Description
	if req.IsActive != nil {
		cl.IsActive = *req.IsActive
	}
	cl.UpdatedAt = s.stamp().UpdatedAt
	c.JSON(http.StatusOK, s.classView(cl))
}

func (s *Server) deleteClass(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.classes[id]; !found {
		abortWith(c, notFound("Class", id))
		return
	}
	for _, sub := range s.subjects {
		if sub.ClassID() == id {
			abortWith(c, apiError{status: http.StatusConflict, message: "Cannot delete class with existing subjects"})
			return
		}
	}
	delete(s.classes, id)
	c.Status(http.StatusNoContent)
}

// ─── Subjects ─────────────────────────────────────────────────

func (s *Server) subjectNameTaken(name string, classID, except int64) bool {
	for _, sub := range s.subjects {
		if sub.ID != except && sub.ClassID() == classID && strings.EqualFold(sub.Name, name) {
			return true
		}
	}
	return false
}

func (s *Server) createSubject(c *gin.Context) {
	var req model.CreateSubjectRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}
	if req.ClassID <= 0 {
		abortWith(c, apiError{status: http.StatusBadRequest, message: "Validation failed", fields: map[string]string{"classId": "Class ID is required"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.classes[req.ClassID]; !found {
		abortWith(c, notFound("Class", req.ClassID))
		return
	}
	if s.subjectNameTaken(req.Name, req.ClassID, 0) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Subject '%s' already exists in this class", req.Name)})
		return
	}
	sub := &model.Subject{ID: s.id(), Name: req.Name, Description: req.Description, IsActive: true, ClassInfo: &model.ClassSummary{ID: req.ClassID}, Audit: s.stamp()}
	s.subjects[sub.ID] = sub
	c.JSON(http.StatusCreated, s.subjectView(sub))
}

func (s *Server) subjectList(match func(*model.Subject) bool) []model.Subject {
	out := []model.Subject{}
	for _, id := range sortedIDs(s.subjects) {
		sub := s.subjects[id]
		if match != nil && !match(sub) {
			continue
		}
		out = append(out, s.subjectView(sub))
	}
	return out
}

func (s *Server) listSubjects(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.subjectList(func(sub *model.Subject) bool { return !activeOnly || sub.IsActive }))
	}
}

func (s *Server) pageSubjects(c *gin.Context) {
	page, size := pageParams(c)
	name := c.Query("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.subjectList(func(sub *model.Subject) bool { return name == "" || containsFold(sub.Name, name) })
	c.JSON(http.StatusOK, model.Slice(items, page, size))
}

func (s *Server) subjectsByClass(c *gin.Context) {
	classID, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.subjectList(func(sub *model.Subject) bool { return sub.ClassID() == classID }))
}

func (s *Server) getSubject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, found := s.subjects[id]
	if !found {
		abortWith(c, notFound("Subject", id))
		return
	}
	c.JSON(http.StatusOK, s.subjectView(sub))
}

func (s *Server) updateSubject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req model.UpdateSubjectRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub, found := s.subjects[id]
	if !found {
		abortWith(c, notFound("Subject", id))
		return
	}
	if _, found := s.classes[req.ClassID]; !found {
		abortWith(c, notFound("Class", req.ClassID))
		return
	}
	if s.subjectNameTaken(req.Name, req.ClassID, id) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Subject '%s' already exists in this class", req.Name)})
		return
	}
	sub.Name = req.Name
	sub.Description = req.Description
	sub.ClassInfo = &model.ClassSummary{ID: req.ClassID}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}
	c.JSON(http.StatusOK, s.subjectView(sub))
}

func (s *Server) deleteSubject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.subjects[id]; !found {
		abortWith(c, notFound("Subject", id))
		return
	}
	for _, ch := range s.chapters {
		if ch.SubjectID() == id {
			abortWith(c, apiError{status: http.StatusConflict, message: "Cannot delete subject with existing chapters"})
			return
		}
	}
	delete(s.subjects, id)
	c.Status(http.StatusNoContent)
}

// ─── Chapters ─────────────────────────────────────────────────

func (s *Server) chapterNameTaken(name string, subjectID, except int64) bool {
	for _, ch := range s.chapters {
		if ch.ID != except && ch.SubjectID() == subjectID && strings.EqualFold(ch.Name, name) {
			return true
		}
	}
	return false
}

func (s *Server) createChapter(c *gin.Context) {
	var req model.CreateChapterRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.subjects[req.SubjectID]; !found {
		abortWith(c, notFound("Subject", req.SubjectID))
		return
	}
	if s.chapterNameTaken(req.Name, req.SubjectID, 0) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Chapter '%s' already exists in this subject", req.Name)})
		return
	}
	ch := &model.Chapter{ID: s.id(), Name: req.Name, Description: req.Description, IsActive: true, SubjectInfo: &model.SubjectSummary{ID: req.SubjectID}, Audit: s.stamp()}
	s.chapters[ch.ID] = ch
	c.JSON(http.StatusCreated, s.chapterView(ch))
}

func (s *Server) chapterList(match func(*model.Chapter) bool) []model.Chapter {
	out := []model.Chapter{}
	for _, id := range sortedIDs(s.chapters) {
		ch := s.chapters[id]
		if match != nil && !match(ch) {
			continue
		}
		out = append(out, s.chapterView(ch))
	}
	return out
}

func (s *Server) listChapters(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.chapterList(func(ch *model.Chapter) bool { return !activeOnly || ch.IsActive }))
	}
}

func (s *Server) pageChapters(c *gin.Context) {
	page, size := pageParams(c)
	name := c.Query("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.chapterList(func(ch *model.Chapter) bool { return name == "" || containsFold(ch.Name, name) })
	c.JSON(http.StatusOK, model.Slice(items, page, size))
}

func (s *Server) filterChapters(c *gin.Context) {
	subjectID := queryID(c, "subjectId")
	classID := queryID(c, "classId")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.chapterList(func(ch *model.Chapter) bool {
		if subjectID > 0 && ch.SubjectID() != subjectID {
			return false
		}
		if classID > 0 {
			sub, ok := s.subjects[ch.SubjectID()]
			if !ok || sub.ClassID() != classID {
				return false
			}
		}
		return true
	}))
}

func (s *Server) getChapter(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, found := s.chapters[id]
	if !found {
		abortWith(c, notFound("Chapter", id))
		return
	}
	c.JSON(http.StatusOK, s.chapterView(ch))
}

func (s *Server) updateChapter(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req model.UpdateChapterRequest
	if !bind(c, &req) {
		return
	}
	if e := requireName(req.Name); e != nil {
		abortWith(c, *e)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, found := s.chapters[id]
	if !found {
		abortWith(c, notFound("Chapter", id))
		return
	}
	if _, found := s.subjects[req.SubjectID]; !found {
		abortWith(c, notFound("Subject", req.SubjectID))
		return
	}
	if s.chapterNameTaken(req.Name, req.SubjectID, id) {
		abortWith(c, apiError{status: http.StatusConflict, message: fmt.Sprintf("Chapter '%s' already exists in this subject", req.Name)})
		return
	}
	ch.Name = req.Name
	ch.Description = req.Description
	ch.SubjectInfo = &model.SubjectSummary{ID: req.SubjectID}
	if req.IsActive != nil {
		ch.IsActive = *req.IsActive
	}
	c.JSON(http.StatusOK, s.chapterView(ch))
}

func (s *Server) deleteChapter(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.chapters[id]; !found {
		abortWith(c, notFound("Chapter", id))
		return
	}
	for _, q := range s.questions {
		if q.ChapterID() == id {
			abortWith(c, apiError{status: http.StatusConflict, message: "Cannot delete chapter with existing questions"})
			return
		}
	}
	delete(s.chapters, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) generateChapterPaper(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var opts model.PaperOptions
	if !bind(c, &opts) {
		return
	}

	s.mu.Lock()
	ch, found := s.chapters[id]
	s.mu.Unlock()
	if !found {
		abortWith(c, notFound("Chapter", id))
		return
	}

	switch opts.OutputFormat {
	case "", "pdf":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="chapter_%d.pdf"`, id))
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.4\n% "+ch.Name+"\n"))
	case "word":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="chapter_%d.docx"`, id))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK\x03\x04"+ch.Name))
	default:
		abortWith(c, apiError{status: http.StatusBadRequest, message: "Unsupported output format: " + opts.OutputFormat})
	}
}
