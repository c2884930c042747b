package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPosts struct {
	service.PostService
	byState  map[models.PostState][]*models.Post
	created  *transfer.PostCreation
	createFn func(pc *transfer.PostCreation) (int64, error)
}

func (s *stubPosts) GetPostsByState(ctx context.Context, state models.PostState, platform string) ([]*models.Post, error) {
	return s.byState[state], nil
}

func (s *stubPosts) CreatePost(ctx context.Context, pc *transfer.PostCreation) (int64, error) {
	s.created = pc
	return s.createFn(pc)
}

func (s *stubPosts) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return nil, service.ErrPostNotFound
}

func (s *stubPosts) SchedulePost(ctx context.Context, id int64, at time.Time) error {
	return service.ErrPostSent
}

type stubKeys struct {
	service.ApiKeyService
}

func (stubKeys) Authenticate(ctx context.Context, apiKey string) (*models.ApiKey, error) {
	if apiKey == "renderer-key" {
		return &models.ApiKey{ID: 1, Label: "renderer"}, nil
	}
	return nil, service.ErrInvalidApiKey
}

type stubContacts struct {
	service.ContactService
}

func (stubContacts) CreateContact(ctx context.Context, in *transfer.ContactInput) transfer.Result {
	if in.Name == "" {
		return transfer.Result{Success: false, Message: "Name is required"}
	}
	return transfer.Result{Success: true, Message: "Contact saved successfully", ID: 3}
}

type stubMedia struct {
	service.MediaService
	registered string
}

func (s *stubMedia) RegisterMedia(ctx context.Context, path string, fileType models.MediaType, originalName string) (*models.MediaAsset, error) {
	if strings.HasPrefix(path, "/etc") {
		return nil, fmt.Errorf("%w: %s", service.ErrMediaOutsideDir, path)
	}
	s.registered = path
	return &models.MediaAsset{ID: 11, FilePath: path, FileType: models.MediaTypeVideo}, nil
}

func (s *stubMedia) DeleteMedia(ctx context.Context, id int64) (bool, error) {
	if id == 11 {
		return false, fmt.Errorf("%w: [4]", service.ErrMediaInUse)
	}
	return id == 12, nil
}

type testEnv struct {
	app   *fiber.App
	posts *stubPosts
	media *stubMedia
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		SecretKey:        "test-secret",
		CookieName:       "contentflow_session",
		OperatorPassword: "hunter2",
	}
	gen, err := service.NewGeneratorService("", "")
	require.NoError(t, err)

	env := &testEnv{
		posts: &stubPosts{byState: map[models.PostState][]*models.Post{
			models.PostStateSent: {{ID: 1, Title: "Spring sale", Platform: "Gmail"}},
		}},
		media: &stubMedia{},
	}
	env.app = NewApp(cfg, Services{
		Auth:      service.NewAuthService(cfg),
		Keys:      stubKeys{},
		Contacts:  stubContacts{},
		Media:     env.media,
		Posts:     env.posts,
		Generator: gen,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/login", `{"password":"hunter2"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/posts", "", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/posts", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/login", `{"password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/login", `{"password":"hunter2"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "contentflow_session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	resp, body := env.do(t, http.MethodGet, "/api/posts?view=sent", "", map[string]string{"Cookie": "contentflow_session=" + session.Value})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Spring sale")
}

func TestPostRoutes(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer " + env.login(t)}

	resp, body := env.do(t, http.MethodGet, "/api/posts?view=unknown", "", auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"success":false`)

	env.posts.createFn = func(pc *transfer.PostCreation) (int64, error) { return 0, service.ErrDuplicateTitle }
	resp, body = env.do(t, http.MethodPost, "/api/posts", `{"title":"Spring sale","platform":"Gmail"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, service.ErrDuplicateTitle.Error())

	env.posts.createFn = func(pc *transfer.PostCreation) (int64, error) { return 42, nil }
	resp, body = env.do(t, http.MethodPost, "/api/posts",
		`{"title":"Launch","platform":"LinkedIn","scheduled_at":"2030-01-02T10:00:00Z","media_ids":[3,1]}`, auth)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, body, `"id":42`)
	assert.Contains(t, body, "Post scheduled successfully")
	require.NotNil(t, env.posts.created.ScheduledAt)
	assert.Equal(t, []int64{3, 1}, env.posts.created.MediaIDs)

	resp, _ = env.do(t, http.MethodGet, "/api/posts/99", "", auth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/posts/abc", "", auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/posts/1/schedule", `{"scheduled_at":"2030-01-02T10:00:00Z"}`, auth)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/posts/1/schedule", `{}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContactValidationIsReported(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer " + env.login(t)}

	resp, body := env.do(t, http.MethodPost, "/api/contacts", `{"name":"","emails":["a@x.com"]}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"Name is required"}`, body)

	resp, body = env.do(t, http.MethodPost, "/api/contacts", `{"name":"Ana","emails":["a@x.com"]}`, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"id":3`)

	resp, _ = env.do(t, http.MethodPost, "/api/recipients/resolve", `{"kind":"fax"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIKeyCanRegisterMedia(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/media/register",
		`{"file_path":"renders/promo.mp4","file_type":"video"}`, map[string]string{"X-API-Key": "renderer-key"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "renders/promo.mp4", env.media.registered)
}

func TestMediaPathAndInUseErrors(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer " + env.login(t)}

	resp, _ := env.do(t, http.MethodPost, "/api/media/register", `{"file_path":"/etc/shadow.png"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.media.registered)

	resp, _ = env.do(t, http.MethodDelete, "/api/media/11", "", auth)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/media/12", "", auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/media/13", "", auth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGeneratorDisabled(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer " + env.login(t)}

	resp, _ := env.do(t, http.MethodPost, "/api/generate", `{"platform":"Gmail","brief":"spring offer"}`, auth)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLinkedInAuthNeedsConfiguration(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/auth/linkedin", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/auth/linkedin/callback?code=x&state=forged", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
