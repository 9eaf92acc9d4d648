package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdash/internal/auth"
	"projectdash/internal/blob"
	"projectdash/internal/events"
	"projectdash/internal/logging"
	"projectdash/internal/models"
	"projectdash/internal/storage/sqlite"
)

type testEnv struct {
	srv      *Server
	store    *sqlite.Store
	sessions *auth.Manager
	hub      *events.Hub
}

func newTestEnv(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sessions, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	blobs, err := blob.NewLocalStore(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)

	logger := logging.Discard()
	hub := events.NewHub(logger)
	opts := Options{UploadDir: filepath.Join(dir, "uploads")}
	for _, fn := range configure {
		fn(&opts)
	}
	srv := New(store, sessions, blobs, hub, logger, opts)
	return &testEnv{srv: srv, store: store, sessions: sessions, hub: hub}
}

// user creates an account and returns a bearer token for it.
func (e *testEnv) user(t *testing.T, email string) string {
	t.Helper()
	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	u, err := e.store.CreateUser(context.Background(), email, "Test", hash)
	require.NoError(t, err)
	token, err := e.sessions.Issue(u.ID, u.Email)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error  string   `json:"error"`
	Issues []string `json:"issues"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "", http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/clients", "/api/projects", "/api/tasks", "/api/auth/me"} {
		rec := env.do(t, "", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, []string{}, body.Issues)
	}

	rec := env.do(t, "garbage", http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "a@example.com")

	rec := env.do(t, "", http.MethodPost, "/api/auth/login", map[string]any{"email": "a@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "", http.MethodPost, "/api/auth/login", map[string]any{"email": "A@example.com", "password": "password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, rec)
	assert.NotEmpty(t, login.Token)
	assert.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "a@example.com", decode[models.User](t, me).Email)
}

func TestClientValidationAndConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.user(t, "a@example.com")

	rec := env.do(t, token, http.MethodPost, "/api/clients", map[string]any{"name": "", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Issues, "name: is required")
	assert.Contains(t, body.Issues, "email: invalid email address")

	rec = env.do(t, token, http.MethodPost, "/api/clients", map[string]any{"name": "Acme", "email": "ops@acme.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, token, http.MethodPost, "/api/clients", map[string]any{"name": "Acme 2", "email": "ops@acme.test"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A client with this email already exists", decode[errorBody](t, rec).Error)
}

func TestProjectRules(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	other := env.user(t, "other@example.com")

	rec := env.do(t, other, http.MethodPost, "/api/clients", map[string]any{"name": "Theirs"})
	require.Equal(t, http.StatusCreated, rec.Code)
	theirs := decode[models.Client](t, rec)

	rec = env.do(t, owner, http.MethodPost, "/api/projects", map[string]any{"title": "Site", "clientId": theirs.ID})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Client not found or does not belong to you", decode[errorBody](t, rec).Error)

	rec = env.do(t, owner, http.MethodPost, "/api/projects", map[string]any{
		"title":     "Late",
		"startDate": "2025-03-10T00:00:00Z",
		"dueDate":   "2025-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Issues, "dueDate: Due date must be after start date")

	rec = env.do(t, owner, http.MethodPost, "/api/projects", map[string]any{"title": "Site", "techStack": []string{"Go"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[models.ProjectDetail](t, rec)
	assert.Equal(t, models.ProjectPlanning, project.Status)
	assert.Equal(t, models.StringList{"Go"}, project.TechStack)

	rec = env.do(t, other, http.MethodGet, "/api/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Project not found", decode[errorBody](t, rec).Error)

	rec = env.do(t, owner, http.MethodPatch, "/api/projects/"+project.ID, map[string]any{"screenshots": []string{"a.png", "b.png"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, owner, http.MethodGet, "/api/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `["a.png","b.png"]`, string(raw["screenshots"]))

	rec = env.do(t, owner, http.MethodPatch, "/api/projects/"+project.ID, map[string]any{"screenshots": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "null", string(raw["screenshots"]))
}

func TestTaskFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.user(t, "a@example.com")

	rec := env.do(t, token, http.MethodPost, "/api/projects", map[string]any{"title": "Board"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.ProjectDetail](t, rec)

	rec = env.do(t, token, http.MethodPost, "/api/tasks", map[string]any{"title": "Seed", "projectId": project.ID, "order": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, token, http.MethodPost, "/api/tasks", map[string]any{"title": "Next", "projectId": project.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[models.TaskWithProject](t, rec)
	assert.Equal(t, 5, task.Order)
	require.NotNil(t, task.Project)
	assert.Equal(t, "Board", task.Project.Title)

	rec = env.do(t, token, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"status": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, token, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TaskDone, decode[models.TaskWithProject](t, rec).Status)

	rec = env.do(t, token, http.MethodGet, "/api/tasks?projectId="+project.ID+"&status=done", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskWithProject](t, rec), 1)

	rec = env.do(t, token, http.MethodDelete, "/api/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, token, http.MethodGet, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decode[errorBody](t, rec).Error)
}

func TestMutationsPublishInvalidations(t *testing.T) {
	env := newTestEnv(t)
	token := env.user(t, "a@example.com")
	claims, err := env.sessions.Verify(token)
	require.NoError(t, err)

	ts := httptest.NewServer(env.srv.Engine())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan []string, 8)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	go func() {
		_ = events.Listen(ctx, "ws"+ts.URL[len("http"):]+"/api/events", header, func(keys []string) { got <- keys })
	}()
	require.Eventually(t, func() bool { return env.hub.Subscribers(claims.UserID) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := env.do(t, token, http.MethodPost, "/api/clients", map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case keys := <-got:
		assert.Equal(t, []string{"clients"}, keys)
	case <-ctx.Done():
		t.Fatal("no invalidation received")
	}
}

func TestUploadScreenshot(t *testing.T) {
	env := newTestEnv(t)
	token := env.user(t, "a@example.com")

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload/screenshot", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.srv.Engine().ServeHTTP(rec, req)
		return rec
	}

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	rec := upload("shot.png", img.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	obj := decode[blob.Object](t, rec)
	assert.Contains(t, obj.URL, "/uploads/screenshots/")

	served := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(served, httptest.NewRequest(http.MethodGet, obj.URL, nil))
	assert.Equal(t, http.StatusOK, served.Code)

	rec = upload("notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
