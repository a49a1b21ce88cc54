package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/observability"
	"github.com/spec-kit/intake-service/internal/persistence"
	"github.com/spec-kit/intake-service/internal/repository"
	"github.com/spec-kit/intake-service/internal/service"
)

type stubUserRepo struct {
	byEmail map[string]*domain.User
	nextID  int
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.byEmail[user.Email] = &clone
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

type stubAppRepo struct {
	apps   []domain.Application
	nextID int
}

func (r *stubAppRepo) Create(_ context.Context, app *domain.Application) error {
	r.nextID++
	app.ID = fmt.Sprintf("app-%d", r.nextID)
	if app.Status == "" {
		app.Status = domain.StatusPending
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	r.apps = append(r.apps, *app)
	return nil
}

func (r *stubAppRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	for i := range r.apps {
		if r.apps[i].ID == id {
			clone := r.apps[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubAppRepo) ListPage(_ context.Context, limit, offset int) ([]domain.Application, error) {
	if offset >= len(r.apps) {
		return []domain.Application{}, nil
	}
	end := offset + limit
	if end > len(r.apps) {
		end = len(r.apps)
	}
	return append([]domain.Application{}, r.apps[offset:end]...), nil
}

func (r *stubAppRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.apps)), nil
}

func (r *stubAppRepo) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	for i := range r.apps {
		if r.apps[i].ID == id {
			r.apps[i].Status = status
			r.apps[i].UpdatedAt = time.Now()
			clone := r.apps[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubDocStore struct {
	failNext bool
}

func (s *stubDocStore) AllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".pdf") || strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}

func (s *stubDocStore) MaxBytes() int64 { return 1 << 20 }

func (s *stubDocStore) Upload(_ context.Context, filename, _ string, _ io.Reader, _ int64) (string, error) {
	if s.failNext {
		return "", errors.New("object store unreachable")
	}
	return "http://store.local/intake/uploads/" + filename, nil
}

type noopCountCache struct{}

func (noopCountCache) Get(context.Context) (int64, bool) { return 0, false }
func (noopCountCache) Set(context.Context, int64)        {}
func (noopCountCache) Invalidate(context.Context)        {}

type testEnv struct {
	app      *fiber.App
	users    *stubUserRepo
	apps     *stubAppRepo
	docs     *stubDocStore
	tokenMgr *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			SignupTokenTTLSeconds: 50000,
			LoginTokenTTLSeconds:  120,
			BcryptCost:            4,
		},
	}

	users := &stubUserRepo{byEmail: map[string]*domain.User{}}
	apps := &stubAppRepo{}
	docs := &stubDocStore{}

	dispatcher := events.NewInMemoryDispatcher()
	authService := service.NewAuthService(cfg, users, dispatcher)
	appService := service.NewApplicationService(apps, docs, noopCountCache{}, dispatcher, 2)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), []string{"http://localhost:5173"}, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Applications:   handlers.NewApplicationsHandler(appService),
		Admin:          handlers.NewAdminHandler(appService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
	})

	return &testEnv{app: app, users: users, apps: apps, docs: docs, tokenMgr: authService.TokenManager()}
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func TestRootLiveness(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "running")
}

func TestSignup_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/signup",
		map[string]string{"name": "Jo", "email": "a@x.com", "password": "p"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"password"`, "response must not leak the password")

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "User signed up successfully", body["message"])
	assert.NotEmpty(t, body["auth"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", result["email"])

	// returned token must verify before expiry
	_, err = env.tokenMgr.Verify(body["auth"].(string))
	assert.NoError(t, err)
}

func TestSignup_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/signup",
		map[string]string{"email": "a@x.com"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"name": "Jo", "email": "a@x.com", "password": "p"}
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/signup", payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/signup", payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/login",
		map[string]string{"email": "nobody@x.com", "password": "p"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogin_MissingCredentials(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/login",
		map[string]string{"email": "a@x.com"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginAndProfile(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/signup",
		map[string]string{"name": "Jo", "email": "a@x.com", "password": "p"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/login",
		map[string]string{"email": "a@x.com", "password": "p"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	token, ok := body["auth"].(string)
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	profile := decodeBody(t, resp)
	authData, ok := profile["authData"].(map[string]any)
	require.True(t, ok)
	user, ok := authData["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
}

func TestProfile_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func multipartRequest(t *testing.T, fields map[string]string, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, val := range fields {
		require.NoError(t, writer.WriteField(key, val))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("file-content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/applicationForm", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestApplicationForm_WithFile(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(multipartRequest(t, map[string]string{"name": "Jo"}, "transcript.pdf"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Form submitted successfully", body["message"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["documentUrl"])
	assert.Equal(t, "Pending", data["status"])
}

func TestApplicationForm_WithoutFile(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(multipartRequest(t, map[string]string{"name": "Jo", "email": "jo@x.com"}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	_, hasURL := data["documentUrl"]
	assert.False(t, hasURL)
}

func TestApplicationForm_DisallowedFileType(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(multipartRequest(t, map[string]string{"name": "Jo"}, "malware.exe"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.apps.apps, "rejected upload must not persist an application")
}

func TestApplicationForm_UploadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.docs.failNext = true

	resp, err := env.app.Test(multipartRequest(t, map[string]string{"name": "Jo"}, "cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, env.apps.apps, "failed upload must not persist an application")
}

func seedApplications(env *testEnv, n int) {
	for i := 0; i < n; i++ {
		_ = env.apps.Create(context.Background(), &domain.Application{
			FullName: fmt.Sprintf("Student %d", i+1),
			Email:    fmt.Sprintf("s%d@x.com", i+1),
		})
	}
}

func TestAdminList_Pagination(t *testing.T) {
	env := newTestEnv(t)
	seedApplications(env, 5)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/adminPg?page=1&pageSize=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	items, ok := body["studentData"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)

	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), meta["total"])
	assert.Equal(t, float64(3), meta["totalPages"])
}

func TestAdminList_DefaultsOnNonNumericParams(t *testing.T) {
	env := newTestEnv(t)
	seedApplications(env, 3)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/adminPg?page=abc&pageSize=xyz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["page"])
	assert.Equal(t, float64(2), meta["pageSize"])
}

func TestAdminList_PageBeyondEnd(t *testing.T) {
	env := newTestEnv(t)
	seedApplications(env, 3)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/adminPg?page=99&pageSize=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	items, ok := body["studentData"].([]any)
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestAdminUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	seedApplications(env, 1)

	resp, err := env.app.Test(jsonRequest(http.MethodPut, "/adminPg/app-1",
		map[string]string{"status": "Approved"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Application approved successfully", body["message"])

	updated, ok := body["updApplication"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Approved", updated["status"])
}

func TestAdminUpdateStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPut, "/adminPg/missing",
		map[string]string{"status": "Approved"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminUpdateStatus_MissingStatus(t *testing.T) {
	env := newTestEnv(t)
	seedApplications(env, 1)

	resp, err := env.app.Test(jsonRequest(http.MethodPut, "/adminPg/app-1",
		map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
