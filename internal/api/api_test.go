package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/service"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/service/task"
	"github.com/travvy-ai/travvy-backend/internal/service/trip"
	"github.com/travvy-ai/travvy-backend/internal/storage/memory"
)

type stubAI struct {
	reply string
	err   error
}

func (s *stubAI) GenerateContent(ctx context.Context, req *gemini.Request) (*gemini.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: s.reply}}},
	}}}, nil
}

type testApp struct {
	e    *echo.Echo
	auth *service.AuthService
	ai   *stubAI
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	userStore := memory.NewUserStore()
	tripStore := memory.NewTripStore()
	taskStore := memory.NewTaskStore()
	queue := memory.NewQueue(64)

	authSvc := service.NewAuthService(userStore, "test-secret", time.Hour, 24*time.Hour)
	taskSvc := task.NewService(taskStore, queue, logger)
	tripSvc := trip.NewService(tripStore, nil, taskSvc, nil, 0, logger)

	ai := &stubAI{reply: `{"reply": "Bonjour!", "suggested_actions": ["Pick dates"]}`}
	plannerSvc := planner.NewService(ai, memory.NewConversationStore(), memory.NewMessageStore(), "gemini-1.5-pro", logger)

	hub := events.NewHub(logger)
	poller := &task.Poller{Interval: time.Millisecond, MaxAttempts: 3, Sleep: func(ctx context.Context, d time.Duration) error { return ctx.Err() }}

	server := NewServer(authSvc, tripSvc, taskSvc, plannerSvc, hub, poller, nil, nil, 1000, 1000, logger)

	e := echo.New()
	server.RegisterRoutes(e)
	return &testApp{e: e, auth: authSvc, ai: ai}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signUp(t *testing.T, email string) string {
	t.Helper()
	_, err := a.auth.Register(context.Background(), email, "long enough password", "Tester")
	require.NoError(t, err)
	_, pair, err := a.auth.Login(context.Background(), email, "long enough password")
	require.NoError(t, err)
	return pair.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func parisBody() map[string]any {
	return map[string]any{
		"destination": "Paris",
		"start_date":  "2026-06-01",
		"end_date":    "2026-06-05",
		"budget":      2000,
		"currency":    "USD",
		"travelers":   map[string]int{"adults": 2},
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "long enough password", "display_name": "Ada",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "another password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "long enough password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	auth := decode[AuthResponse](t, rec)
	require.NotNil(t, auth.Tokens)

	rec = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/users/me", auth.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTripsRequireAuth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/trips", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTripEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/trips", token, parisBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[CreateTripResponse](t, rec)
	assert.Equal(t, "generating", resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.TaskID)
	require.NotNil(t, resp.Trip)
	assert.Equal(t, 1, resp.Trip.Version)
}

func TestCreateTripValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	body := parisBody()
	body["currency"] = "dollars"
	rec := app.do(t, http.MethodPost, "/trips", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTripConflict(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	created := decode[CreateTripResponse](t, app.do(t, http.MethodPost, "/trips", token, parisBody()))
	path := "/trips/" + created.Trip.ID.String()

	rec := app.do(t, http.MethodPut, path, token, map[string]any{"version": 1, "title": "First"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPut, path, token, map[string]any{"version": 1, "title": "Second"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPut, path, token, map[string]any{"title": "no version"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTripAccessControl(t *testing.T) {
	app := newTestApp(t)
	owner := app.signUp(t, "owner@example.com")
	stranger := app.signUp(t, "stranger@example.com")

	created := decode[CreateTripResponse](t, app.do(t, http.MethodPost, "/trips", owner, parisBody()))
	path := "/trips/" + created.Trip.ID.String()

	rec := app.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/trips/"+uuid.NewString(), owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	created := decode[CreateTripResponse](t, app.do(t, http.MethodPost, "/trips", token, parisBody()))

	rec := app.do(t, http.MethodGet, "/tasks/"+created.TaskID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = app.do(t, http.MethodPost, "/tasks/"+created.TaskID.String()+"/cancel", token, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// Another user cannot read someone else's task.
	other := app.signUp(t, "other@example.com")
	rec = app.do(t, http.MethodGet, "/tasks/"+created.TaskID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTripStatusEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	created := decode[CreateTripResponse](t, app.do(t, http.MethodPost, "/trips", token, parisBody()))

	rec := app.do(t, http.MethodGet, "/trips/"+created.Trip.ID.String()+"/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[trip.StatusView](t, rec)
	assert.Equal(t, "generating", string(view.Status))
	require.NotNil(t, view.Task)
	assert.Equal(t, created.TaskID, view.Task.ID)
}

func TestChatEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/ai/conversation", token, map[string]string{"message": "plan me a trip"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[planner.ChatResponse](t, rec)
	assert.Equal(t, "Bonjour!", resp.Message.Content)
	assert.Equal(t, []string{"Pick dates"}, resp.SuggestedActions)

	rec = app.do(t, http.MethodPost, "/ai/conversation", token, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUpstreamFailure(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "ada@example.com")

	app.ai.err = &gemini.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}
	rec := app.do(t, http.MethodPost, "/ai/conversation", token, map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInviteAndListEndpoints(t *testing.T) {
	app := newTestApp(t)
	owner := app.signUp(t, "owner@example.com")
	friendToken := app.signUp(t, "friend@example.com")

	created := decode[CreateTripResponse](t, app.do(t, http.MethodPost, "/trips", owner, parisBody()))

	friendClaims, err := app.auth.ValidateToken(friendToken)
	require.NoError(t, err)

	rec := app.do(t, http.MethodPost, "/trips/"+created.Trip.ID.String()+"/collaborators", owner, map[string]any{
		"user_id": friendClaims.UserID,
		"role":    "viewer",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/trips", friendToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListTripsResponse](t, rec)
	assert.Equal(t, 1, list.TotalCount)
}

func TestRateLimit(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	server := NewServer(nil, nil, nil, nil, nil, nil, nil, nil, 1, 2, logger)

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, server.RateLimitMiddleware)

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
