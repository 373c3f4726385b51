package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/export"
	"github.com/stemsi/qbank-console/internal/importer"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/validator"
)

// PaperHandler serves paper status, assembled papers, rendered documents
// and spreadsheet exports.
type PaperHandler struct{}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler() *PaperHandler {
	return &PaperHandler{}
}

// TogglePaperStatus godoc
// PATCH /console/v1/questions/:id/paper-status
// Adds a question to its subject's paper, or removes it.
func (h *PaperHandler) TogglePaperStatus(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	q, err := w.TogglePaper(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// SubjectPaper godoc
// GET /console/v1/papers/subjects/:id
// Returns the questions added to the subject's paper, grouped by section.
func (h *PaperHandler) SubjectPaper(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	paper, err := w.Paper(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// DownloadSubjectPaper godoc
// GET /console/v1/papers/subjects/:id/download
// Streams the subject paper rendered by the backend.
func (h *PaperHandler) DownloadSubjectPaper(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	doc, err := w.DownloadPaper(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	sendDocument(c, doc, fmt.Sprintf("subject-%d-paper.pdf", id))
}

// GenerateChapterPaper godoc
// POST /console/v1/papers/chapters/:id
// Renders a chapter paper as PDF or Word.
func (h *PaperHandler) GenerateChapterPaper(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.PaperOptions
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
			return
		}
	}

	doc, err := w.GenerateChapterPaper(c.Request.Context(), id, req)
	if err != nil {
		failWith(c, err)
		return
	}
	ext := "pdf"
	if req.OutputFormat == "word" {
		ext = "docx"
	}
	sendDocument(c, doc, fmt.Sprintf("chapter-%d-paper.%s", id, ext))
}

// ExportQuestions godoc
// GET /console/v1/exports/questions.xlsx
// Exports every question in the question screen's current scope.
func (h *PaperHandler) ExportQuestions(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}

	qs, err := w.QuestionsInScope(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Questions(&buf, qs); err != nil {
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	sendDocument(c, &client.Document{ContentType: export.ContentType, Data: buf.Bytes()}, "questions.xlsx")
}

func sendDocument(c *gin.Context, doc *client.Document, fallbackName string) {
	name := doc.Filename
	if name == "" {
		name = fallbackName
	}
	ct := doc.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, ct, doc.Data)
}

// maxImportSize bounds an uploaded bank document.
const maxImportSize = 4 << 20

// ImportBank godoc
// POST /console/v1/imports
// Creates the classes, subjects, chapters and questions of a YAML bank
// document. Existing entities with the same name and parent are reused.
func (h *PaperHandler) ImportBank(c *gin.Context) {
	w, ok := currentWorkspace(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil || len(data) == 0 || len(data) > maxImportSize {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	doc, err := importer.Parse(data)
	if err != nil {
		var schemaErr *importer.SchemaError
		if errors.As(err, &schemaErr) {
			response.FailWithDetail(c, http.StatusBadRequest, response.ErrValidation,
				strings.Join(schemaErr.Problems, "; "), nil, nil)
			return
		}
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error(), nil, nil)
		return
	}

	sum, err := w.Import(c.Request.Context(), doc)
	if err != nil {
		failWithState(c, err, gin.H{"summary": sum})
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"summary": sum})
}
