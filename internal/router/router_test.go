package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/export"
	"github.com/stemsi/qbank-console/internal/fakeapi"
	"github.com/stemsi/qbank-console/internal/handler"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/session"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

func TestMain(m *testing.M) {
	validator.Setup()
	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Detail  string            `json:"detail"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Pagination *struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

type console struct {
	t        *testing.T
	fake     *fakeapi.Server
	srv      *httptest.Server
	sessions *workspace.Registry
	grade9   model.ClassEntity
	math     model.Subject
	algebra  model.Chapter
	solveX   model.Question
}

type memoryStores struct {
	mu     sync.Mutex
	stores map[string]session.Store
}

func (m *memoryStores) get(id string) session.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[id]; !ok {
		m.stores[id] = session.NewMemoryStore()
	}
	return m.stores[id]
}

func newConsole(t *testing.T) *console {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithAuth(), fakeapi.WithUser("admin", "secret"), fakeapi.WithTokenTTL(time.Hour))
	upstream := fake.Start()
	t.Cleanup(upstream.Close)

	c := &console{t: t, fake: fake}
	c.grade9 = fake.SeedClass("Grade 9")
	grade10 := fake.SeedClass("Grade 10")
	c.math = fake.SeedSubject("Math", c.grade9.ID)
	fake.SeedSubject("Physics", grade10.ID)
	c.algebra = fake.SeedChapter("Algebra", c.math.ID)
	c.solveX = fake.SeedQuestion(model.CreateQuestionRequest{
		QuestionText: "Solve x", SectionType: model.SectionMCQ, QuestionType: model.QuestionSingleChoice,
		Marks: 1, ChapterID: c.algebra.ID,
	}, "1", "2", "3", "4")

	stores := &memoryStores{stores: map[string]session.Store{}}
	cfg := &config.Config{GinMode: "test", PageSize: 10}
	c.sessions = workspace.NewRegistry(workspace.UpstreamFactory(upstream.URL, stores.get,
		workspace.Config{PageSize: cfg.PageSize, LoadAttempts: 1}, zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	handlers := &Handlers{
		Auth:   handler.NewAuthHandler(c.sessions),
		Screen: handler.NewScreenHandler(),
		Paper:  handler.NewPaperHandler(),
		WS:     handler.NewWSHandler(zerolog.Nop(), nil),
		System: handler.NewSystemHandler(nil, c.sessions, upstream.URL, zerolog.Nop()),
	}
	r := SetupRouter(c.sessions, handlers, middleware.NewRateLimiter(ctx, 3, time.Minute), cfg, zerolog.Nop())
	c.srv = httptest.NewServer(r)
	t.Cleanup(c.srv.Close)
	return c
}

func (c *console) do(method, path, token string, body any) (*http.Response, envelope) {
	c.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, c.srv.URL+path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			c.t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	} else {
		env.Data = raw
	}
	return resp, env
}

func (c *console) login() string {
	c.t.Helper()
	resp, env := c.do("POST", "/console/v1/auth/login", "", model.Credentials{Name: "admin", Password: "secret"})
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login status = %d (%+v)", resp.StatusCode, env.Error)
	}
	var out struct {
		Token string `json:"token"`
		User  string `json:"user"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if out.Token == "" || out.User != "admin" {
		c.t.Fatalf("login data = %s", env.Data)
	}
	return out.Token
}

type screenState struct {
	View struct {
		Scope struct {
			ClassID int64 `json:"classId"`
		} `json:"scope"`
		Items struct {
			Content []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"content"`
		} `json:"items"`
	} `json:"view"`
	Form struct {
		Mode    string `json:"mode"`
		BoundID int64  `json:"boundId"`
		Input   struct {
			Name string `json:"name"`
		} `json:"input"`
	} `json:"form"`
}

func decodeState(t *testing.T, raw json.RawMessage) screenState {
	t.Helper()
	var st screenState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state: %v (%s)", err, raw)
	}
	return st
}

func names(st screenState) []string {
	var out []string
	for _, it := range st.View.Items.Content {
		out = append(out, it.Name)
	}
	return out
}

// ─── Auth ─────────────────────────────────────────────────────

func TestAuth(t *testing.T) {
	c := newConsole(t)

	resp, env := c.do("POST", "/console/v1/auth/login", "", model.Credentials{Name: "admin", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("bad login = %d %+v", resp.StatusCode, env.Error)
	}
	if c.sessions.Len() != 0 {
		t.Errorf("failed login left %d sessions", c.sessions.Len())
	}

	resp, env = c.do("POST", "/console/v1/auth/login", "", map[string]string{"name": "admin"})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Fields["password"] == "" {
		t.Errorf("missing password = %d %+v", resp.StatusCode, env.Error)
	}

	token := c.login()
	resp, env = c.do("GET", "/console/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"user":"admin"`) {
		t.Fatalf("me = %d %s", resp.StatusCode, env.Data)
	}
	if env.Metadata.RequestID == "" {
		t.Error("missing request id")
	}

	resp, _ = c.do("POST", "/console/v1/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout = %d", resp.StatusCode)
	}
	resp, env = c.do("GET", "/console/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error.Code != "SESSION_INVALIDATED" {
		t.Errorf("me after logout = %d %+v", resp.StatusCode, env.Error)
	}
}

func TestSessionMiddleware(t *testing.T) {
	c := newConsole(t)
	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "TOKEN_REQUIRED"},
		{"not a uuid", "abc", "TOKEN_INVALID"},
		{"unknown session", "7b0c2c3e-3f57-4c39-9a8e-1f1f6f0c2b11", "SESSION_INVALIDATED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := c.do("GET", "/console/v1/screens/classes", tt.token, nil)
			if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("got %d %+v, want 401 %s", resp.StatusCode, env.Error, tt.code)
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	c := newConsole(t)
	var last *http.Response
	for i := 0; i < 4; i++ {
		last, _ = c.do("POST", "/console/v1/auth/login", "", model.Credentials{Name: "admin", Password: "wrong"})
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("4th login = %d, want 429", last.StatusCode)
	}
	if last.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

// ─── Screens ──────────────────────────────────────────────────

func TestScreens_ViewAndScope(t *testing.T) {
	c := newConsole(t)
	token := c.login()

	resp, env := c.do("GET", "/console/v1/screens/subjects?reset=true", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view = %d %+v", resp.StatusCode, env.Error)
	}
	if got := names(decodeState(t, env.Data)); len(got) != 2 {
		t.Errorf("subjects = %v, want 2", got)
	}
	if env.Pagination == nil || env.Pagination.Page != 1 || env.Pagination.TotalItems != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}

	resp, env = c.do("POST", "/console/v1/screens/subjects/scope", token, map[string]any{"level": "class", "value": c.grade9.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scope = %d %+v", resp.StatusCode, env.Error)
	}
	st := decodeState(t, env.Data)
	if got := names(st); len(got) != 1 || got[0] != "Math" || st.View.Scope.ClassID != c.grade9.ID {
		t.Errorf("after class scope = %v scope=%d", got, st.View.Scope.ClassID)
	}

	_, env = c.do("POST", "/console/v1/screens/subjects/scope", token, map[string]any{"level": "class", "value": "all"})
	if got := names(decodeState(t, env.Data)); len(got) != 2 {
		t.Errorf("after reset = %v", got)
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/scope", token, map[string]any{"level": "class", "value": "1"})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "INVALID_SCOPE" {
		t.Errorf("class scope on classes = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/questions/scope", token, map[string]any{"level": "section", "value": "POEM"})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "INVALID_SCOPE" {
		t.Errorf("bad section = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("GET", "/console/v1/screens/students", token, nil)
	if resp.StatusCode != http.StatusNotFound || env.Error.Code != "UNKNOWN_SCREEN" {
		t.Errorf("unknown screen = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/subjects/page", token, map[string]any{"page": 0, "size": 1})
	if resp.StatusCode != http.StatusOK || env.Pagination.PerPage != 1 || env.Pagination.TotalPages != 2 {
		t.Errorf("page = %d %+v", resp.StatusCode, env.Pagination)
	}
}

func TestScreens_SubmitEditDelete(t *testing.T) {
	c := newConsole(t)
	token := c.login()
	c.do("GET", "/console/v1/screens/classes?reset=true", token, nil)

	resp, env := c.do("POST", "/console/v1/screens/classes/submit", token, map[string]any{"name": ""})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" || env.Error.Fields["name"] == "" {
		t.Fatalf("empty name = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/submit", token, map[string]any{"name": "Grade 9"})
	if resp.StatusCode != http.StatusConflict || env.Error.Code != "CONFLICT" || env.Error.Detail == "" {
		t.Fatalf("duplicate = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/submit", token, `{"name":"Grade 11","grade":11}`)
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "INVALID_PAYLOAD" {
		t.Fatalf("unknown field = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/submit", token, map[string]any{"name": "Grade 11"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create = %d %+v", resp.StatusCode, env.Error)
	}
	st := decodeState(t, env.Data)
	var created int64
	for _, it := range st.View.Items.Content {
		if it.Name == "Grade 11" {
			created = it.ID
		}
	}
	if created == 0 {
		t.Fatalf("Grade 11 not listed: %v", names(st))
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/edit/"+itoa(created), token, nil)
	st = decodeState(t, env.Data)
	if resp.StatusCode != http.StatusOK || st.Form.Mode != "edit" || st.Form.BoundID != created || st.Form.Input.Name != "Grade 11" {
		t.Fatalf("edit = %d %+v", resp.StatusCode, st.Form)
	}
	_, env = c.do("POST", "/console/v1/screens/classes/cancel", token, nil)
	if st = decodeState(t, env.Data); st.Form.Mode != "add" {
		t.Errorf("mode after cancel = %q", st.Form.Mode)
	}

	resp, env = c.do("DELETE", "/console/v1/screens/classes/items/"+itoa(created), token, nil)
	if resp.StatusCode != http.StatusPreconditionRequired || env.Error.Code != "CONFIRMATION_REQUIRED" {
		t.Fatalf("unconfirmed delete = %d %+v", resp.StatusCode, env.Error)
	}
	if n := c.fake.Calls("DELETE", "/api/classes/:id"); n != 0 {
		t.Errorf("unconfirmed delete reached backend %d times", n)
	}

	resp, env = c.do("DELETE", "/console/v1/screens/classes/items/"+itoa(created)+"?confirm=true", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"outcome":"deleted"`) {
		t.Fatalf("delete = %d %s", resp.StatusCode, env.Data)
	}
	resp, env = c.do("DELETE", "/console/v1/screens/classes/items/"+itoa(created)+"?confirm=true", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"outcome":"already_gone"`) {
		t.Errorf("second delete = %d %s", resp.StatusCode, env.Data)
	}

	resp, env = c.do("DELETE", "/console/v1/screens/classes/items/"+itoa(c.grade9.ID)+"?confirm=true", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("delete of class with subjects = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/screens/classes/edit/abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "INVALID_ID" {
		t.Errorf("bad id = %d %+v", resp.StatusCode, env.Error)
	}
}

func TestUpstreamFailureMapping(t *testing.T) {
	c := newConsole(t)
	token := c.login()

	c.fake.Fail("GET", "/api/classes/page", http.StatusInternalServerError)
	resp, env := c.do("GET", "/console/v1/screens/classes?reset=true", token, nil)
	if resp.StatusCode != http.StatusBadGateway || env.Error.Code != "UPSTREAM_ERROR" {
		t.Fatalf("5xx = %d %+v", resp.StatusCode, env.Error)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		t.Error("failure carries no state")
	}

	c.fake.Fail("GET", "/api/classes/page", http.StatusUnauthorized)
	resp, env = c.do("GET", "/console/v1/screens/classes", token, nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error.Code != "SESSION_INVALIDATED" {
		t.Fatalf("upstream 401 = %d %+v", resp.StatusCode, env.Error)
	}
	resp, _ = c.do("GET", "/console/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("session survived upstream 401: %d", resp.StatusCode)
	}
}

// ─── Papers and exports ───────────────────────────────────────

func TestPapers(t *testing.T) {
	c := newConsole(t)
	token := c.login()
	qid := itoa(c.solveX.ID)

	resp, env := c.do("PATCH", "/console/v1/questions/"+qid+"/paper-status", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"isAddedToPaper":true`) {
		t.Fatalf("toggle = %d %s", resp.StatusCode, env.Data)
	}

	resp, env = c.do("GET", "/console/v1/papers/subjects/"+itoa(c.math.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("paper = %d %+v", resp.StatusCode, env.Error)
	}
	var out struct {
		Paper workspace.Paper `json:"paper"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if out.Paper.Questions != 1 || len(out.Paper.Sections) != 1 || len(out.Paper.Sections[0].Questions[0].MCQOptions) != 4 {
		t.Errorf("paper = %+v", out.Paper)
	}

	resp, _ = c.do("GET", "/console/v1/papers/subjects/"+itoa(c.math.ID)+"/download", token, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("download = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, ".pdf") {
		t.Errorf("disposition = %q", cd)
	}

	resp, _ = c.do("POST", "/console/v1/papers/chapters/"+itoa(c.algebra.ID), token, model.PaperOptions{OutputFormat: "word"})
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "wordprocessingml") {
		t.Errorf("chapter paper = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, env = c.do("POST", "/console/v1/papers/chapters/"+itoa(c.algebra.ID), token, model.PaperOptions{OutputFormat: "odt"})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("odt = %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = c.do("GET", "/console/v1/papers/subjects/9999", token, nil)
	if resp.StatusCode != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("missing subject = %d %+v", resp.StatusCode, env.Error)
	}
}

func TestExportAndImport(t *testing.T) {
	c := newConsole(t)
	token := c.login()

	resp, env := c.do("GET", "/console/v1/exports/questions.xlsx", token, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != export.ContentType {
		t.Fatalf("export = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(env.Data, []byte("PK")) {
		t.Error("export is not a zip container")
	}

	bank := "classes:\n  - name: Grade 12\n    subjects:\n      - name: Biology\n"
	resp, env = c.do("POST", "/console/v1/imports", token, bank)
	if resp.StatusCode != http.StatusCreated || !strings.Contains(string(env.Data), `"subjectsCreated":1`) {
		t.Fatalf("import = %d %s %+v", resp.StatusCode, env.Data, env.Error)
	}

	resp, env = c.do("POST", "/console/v1/imports", token, "classes: []\n")
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" || env.Error.Detail == "" {
		t.Errorf("invalid import = %d %+v", resp.StatusCode, env.Error)
	}
}

// ─── WebSocket ────────────────────────────────────────────────

func TestWorkspaceStream(t *testing.T) {
	c := newConsole(t)
	token := c.login()

	url := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/ws/v1/workspace?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil || msg["event"] != "ready" {
		t.Fatalf("first message = %v, %v", msg, err)
	}

	if err := conn.WriteJSON(map[string]string{"action": "ping"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg["event"] != "pong" {
		t.Fatalf("ping reply = %v, %v", msg, err)
	}

	c.do("PATCH", "/console/v1/questions/"+itoa(c.solveX.ID)+"/paper-status", token, nil)
	msg = nil
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if msg["event"] != "changed" || msg["entity"] != "question" || msg["action"] != "updated" {
		t.Errorf("change = %v", msg)
	}

	c.do("POST", "/console/v1/auth/logout", token, nil)
	msg = nil
	if err := conn.ReadJSON(&msg); err != nil || msg["event"] != "error" {
		t.Errorf("after logout = %v, %v", msg, err)
	}
}

func TestWorkspaceStream_RequiresToken(t *testing.T) {
	c := newConsole(t)
	url := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/ws/v1/workspace"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v", resp)
	}
}

func TestHealth(t *testing.T) {
	c := newConsole(t)
	resp, env := c.do("GET", "/health", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"upstream":"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, env.Data)
	}
}

func itoa(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
