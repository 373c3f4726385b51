package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stemsi/qbank-console/internal/model"
)

type apiError struct {
	status  int
	message string
	fields  map[string]string
}

func abortWith(c *gin.Context, e apiError) {
	body := gin.H{
		"status":  e.status,
		"error":   http.StatusText(e.status),
		"message": e.message,
	}
	if len(e.fields) > 0 {
		body["errors"] = e.fields
	}
	c.AbortWithStatusJSON(e.status, body)
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.track())

	api := r.Group("/api")
	api.POST("/login", s.login)

	authed := api.Group("")
	if s.requireAuth {
		authed.Use(s.auth())
	}

	classes := authed.Group("/classes")
	{
		classes.POST("", s.createClass)
		classes.GET("", s.listClasses(false))
		classes.GET("/active", s.listClasses(true))
		classes.GET("/page", s.pageClasses)
		classes.GET("/search", s.pageClasses)
		classes.GET("/:id", s.getClass)
		classes.PUT("/:id", s.updateClass)
		classes.DELETE("/:id", s.deleteClass)
	}

	subjects := authed.Group("/subjects")
	{
		subjects.POST("", s.createSubject)
		subjects.GET("", s.listSubjects(false))
		subjects.GET("/active", s.listSubjects(true))
		subjects.GET("/page", s.pageSubjects)
		subjects.GET("/search", s.pageSubjects)
		subjects.GET("/class/:id", s.subjectsByClass)
		subjects.GET("/:id", s.getSubject)
		subjects.PUT("/:id", s.updateSubject)
		subjects.DELETE("/:id", s.deleteSubject)
	}

	chapters := authed.Group("/chapters")
	{
		chapters.POST("", s.createChapter)
		chapters.GET("", s.listChapters(false))
		chapters.GET("/active", s.listChapters(true))
		chapters.GET("/page", s.pageChapters)
		chapters.GET("/search", s.pageChapters)
		chapters.GET("/filter", s.filterChapters)
		chapters.GET("/:id", s.getChapter)
		chapters.PUT("/:id", s.updateChapter)
		chapters.DELETE("/:id", s.deleteChapter)
		chapters.POST("/:id/generate", s.generateChapterPaper)
	}

	questions := authed.Group("/questions")
	{
		questions.POST("", s.createQuestion)
		questions.GET("", s.listQuestions(false))
		questions.GET("/active", s.listQuestions(true))
		questions.GET("/page", s.filterQuestions)
		questions.GET("/filter", s.filterQuestions)
		questions.GET("/subject/:id", s.questionsBySubject(false))
		questions.GET("/subject/:id/added-to-paper", s.questionsBySubject(true))
		questions.GET("/subject/:id/paper", s.subjectPaper)
		questions.GET("/:id", s.getQuestion)
		questions.PUT("/:id", s.updateQuestion)
		questions.DELETE("/:id", s.deleteQuestion)
		questions.PATCH("/:id/toggle-paper-status", s.togglePaperStatus)
	}

	options := authed.Group("/mcq-options")
	{
		options.POST("", s.createOption)
		options.POST("/multiple", s.createOptions)
		options.POST("/options-by-ids", s.optionsByIDs)
		options.GET("/:id", s.getOption)
		options.GET("/:id/options", s.optionsByQuestion)
		options.PUT("/:id", s.updateOption)
		options.DELETE("/:id", s.deleteOption)
	}

	return r
}

// track counts calls per route and replays injected faults.
func (s *Server) track() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()

		s.mu.Lock()
		s.calls[key]++
		var status int
		if pending := s.faults[key]; len(pending) > 0 {
			status = pending[0]
			s.faults[key] = pending[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			abortWith(c, apiError{status: status, message: fmt.Sprintf("injected %d", status)})
			return
		}
		c.Next()
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortWith(c, apiError{status: http.StatusUnauthorized, message: "Full authentication is required"})
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abortWith(c, apiError{status: http.StatusUnauthorized, message: "Invalid or expired token"})
			return
		}
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	var creds model.Credentials
	if !bind(c, &creds) {
		return
	}

	s.mu.Lock()
	password, ok := s.users[creds.Name]
	s.mu.Unlock()
	if !ok || password != creds.Password {
		abortWith(c, apiError{status: http.StatusUnauthorized, message: "Incorrect Username or Password! "})
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{
		JWT:       s.IssueToken(creds.Name, s.tokenTTL),
		TokenType: "Bearer",
		ExpiresIn: int64(s.tokenTTL.Seconds()),
	})
}

// ─── Request helpers ──────────────────────────────────────────

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWith(c, apiError{status: http.StatusBadRequest, message: "Invalid id: " + c.Param("id")})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, key string) int64 {
	id, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return id
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		size = 10
	}
	return page, size
}

// bind decodes without Gin's validator; the fake validates like the backend does.
func bind(c *gin.Context, out any) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(out); err != nil {
		abortWith(c, apiError{status: http.StatusBadRequest, message: "Malformed JSON request"})
		return false
	}
	return true
}

func requireName(name string) *apiError {
	if strings.TrimSpace(name) == "" {
		return &apiError{
			status:  http.StatusBadRequest,
			message: "Validation failed",
			fields:  map[string]string{"name": "Name is required"},
		}
	}
	return nil
}
