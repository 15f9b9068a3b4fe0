package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/storage"
)

type testServer struct {
	app    *fiber.App
	users  *memory.UserStore
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	users := memory.NewUserStore()
	issues := memory.NewIssueStore()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: 4}}
	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: users})
	ledger := service.NewScoreLedger(service.ScoreLedgerDependencies{UserRepo: users, Dispatcher: dispatcher})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issues,
		UserRepo:   users,
		Ledger:     ledger,
		Dispatcher: dispatcher,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("grievance-service", "test", map[string]handlers.Pinger{"redis": nil}),
		Users:          handlers.NewUsersHandler(authService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Upload:         handlers.NewUploadHandler(storage.NewMemoryProofStore(), 1<<20),
		Analytics:      handlers.NewAnalyticsHandler(service.NewAnalyticsService(issues, users)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
		Metrics:        metrics.Handler(),
	})
	return &testServer{app: app, users: users, tokens: authService.TokenManager()}
}

func (s *testServer) user(t *testing.T, name string, role domain.Role, department string) (*domain.User, string) {
	t.Helper()
	user := &domain.User{Name: name, Email: name + "@campus.test", Role: role, Department: department, AccountabilityScore: 100}
	require.NoError(t, s.users.Create(context.Background(), user))
	token, _, err := s.tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	principal, principalToken := s.user(t, "principal", domain.RolePrincipal, "")
	admin, adminToken := s.user(t, "admin", domain.RoleAdmin, "")
	_, studentToken := s.user(t, "student", domain.RoleStudent, "cse")

	status, body := s.do(t, nethttp.MethodPost, "/api/issues", studentToken, map[string]string{
		"title": "Broken Projector", "description": "Room 204 projector is dead", "category": "infrastructure",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	issue := data(body)
	id := issue["id"].(string)
	assert.Equal(t, "pending-review", issue["status"])
	assert.Equal(t, "low", issue["severity"])
	assert.Equal(t, principal.ID, issue["currentHandler"])
	assert.Equal(t, principal.ID, issue["assignedTo"])

	status, body = s.do(t, nethttp.MethodPost, "/api/issues", adminToken, map[string]string{
		"title": "x", "description": "y", "category": "hostel",
	})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = s.do(t, nethttp.MethodPut, "/api/issues/"+id+"/status", principalToken, map[string]string{
		"forwardToUserId": admin.ID, "note": "please check",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "open", data(body)["status"])
	assert.Equal(t, admin.ID, data(body)["assignedTo"])
	assert.Len(t, data(body)["forwardedHistory"], 1)

	status, body = s.do(t, nethttp.MethodPut, "/api/issues/"+id+"/status", adminToken, map[string]string{
		"status": "resolved", "note": "fixed",
	})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, nethttp.MethodPut, "/api/issues/"+id+"/status", studentToken, map[string]string{"status": "closed"})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = s.do(t, nethttp.MethodPut, "/api/issues/"+id+"/status", adminToken, map[string]string{
		"status": "resolved", "note": "fixed", "resolutionImage": "/api/uploads/proof.png",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, true, data(body)["resolutionVerified"])

	status, body = s.do(t, nethttp.MethodPost, "/api/issues/"+id+"/reopen", studentToken, map[string]string{"reason": "still dead"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "reopened", data(body)["status"])
	assert.Equal(t, float64(1), data(body)["reopenCount"])

	status, body = s.do(t, nethttp.MethodGet, "/api/issues", studentToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, nethttp.MethodGet, "/api/issues/"+id, studentToken, nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, body = s.do(t, nethttp.MethodGet, "/api/issues/does-not-exist", adminToken, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ravi", "email": "ravi@campus.test", "password": "pw", "department": "ece",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.NotEmpty(t, data(body)["token"])
	assert.Equal(t, "student", data(body)["user"].(map[string]any)["role"])
	assert.NotContains(t, data(body)["user"], "passwordHash")

	status, body = s.do(t, nethttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "ravi@campus.test", "password": "pw"})
	require.Equal(t, nethttp.StatusOK, status)
	token := data(body)["token"].(string)

	status, _ = s.do(t, nethttp.MethodGet, "/api/issues", token, nil)
	assert.Equal(t, nethttp.StatusOK, status)

	status, body = s.do(t, nethttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "ravi@campus.test", "password": "bad"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, nethttp.MethodGet, "/api/issues", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestAnalyticsAndAdminGuards(t *testing.T) {
	s := newTestServer(t)
	_, deanToken := s.user(t, "dean", domain.RoleDean, "cse")
	_, adminToken := s.user(t, "admin", domain.RoleAdmin, "")
	_, studentToken := s.user(t, "student", domain.RoleStudent, "cse")

	status, _ := s.do(t, nethttp.MethodGet, "/api/analytics", studentToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body := s.do(t, nethttp.MethodGet, "/api/analytics", deanToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, float64(0), data(body)["total_issues"])

	status, _ = s.do(t, nethttp.MethodGet, "/api/admin/data", deanToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, body = s.do(t, nethttp.MethodGet, "/api/admin/data", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, data(body)["users"], 3)
}

func TestUploadAndServeProof(t *testing.T) {
	s := newTestServer(t)
	_, wardenToken := s.user(t, "warden", domain.RoleWarden, "")
	_, studentToken := s.user(t, "student", domain.RoleStudent, "cse")

	upload := func(token, filename string) (int, map[string]any) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(nethttp.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		decoded := map[string]any{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		return resp.StatusCode, decoded
	}

	status, _ := upload(studentToken, "proof.png")
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body := upload(wardenToken, "proof.exe")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = upload(wardenToken, "proof.png")
	require.Equal(t, nethttp.StatusCreated, status)
	url := data(body)["url"].(string)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, url, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(raw))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "disabled", body["dependencies"].(map[string]any)["redis"])

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "grievance_http_requests_total")
}
