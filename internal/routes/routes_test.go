package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/config"
	"github.com/snow-cube/paper-manager/internal/database"
	"github.com/snow-cube/paper-manager/internal/database/dbtest"
	"github.com/snow-cube/paper-manager/internal/models"
)

type apiResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	cfg := &config.Config{
		Server: config.ServerConfig{RateLimit: 1000, AllowedOrigins: []string{"http://localhost:5173"}},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
	}
	require.NoError(t, database.EnsureAdmin(db, config.AdminConfig{
		Username: "admin", Email: "admin@example.com", Password: "admin123",
	}))

	server, err := Setup(db, cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(server.Close)
	return &testServer{t: t, db: db, server: server}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.server.Router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rec, resp := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &out))
	return out.Token
}

func (s *testServer) register(username string) (uint, string) {
	s.t.Helper()
	rec, resp := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "secret1",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out models.UserResponse
	require.NoError(s.t, json.Unmarshal(resp.Data, &out))
	return out.User.ID, out.Token
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paper_manager_http_requests_total")
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login("admin@example.com", "admin123")
	_, userToken := s.register("reader")

	rec, _ := s.do(http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/categories", userToken, gin.H{"name": "AI"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := s.do(http.MethodPost, "/api/categories", adminToken, gin.H{"name": "a/b"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "categoryname", resp.Errors["name"])

	rec, resp = s.do(http.MethodPost, "/api/categories", adminToken, gin.H{"name": "AI"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ai models.Category
	require.NoError(t, json.Unmarshal(resp.Data, &ai))

	rec, _ = s.do(http.MethodPost, "/api/categories", adminToken, gin.H{"name": "AI"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = s.do(http.MethodPost, "/api/categories", adminToken, gin.H{"name": "ML", "parent_id": ai.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ml models.Category
	require.NoError(t, json.Unmarshal(resp.Data, &ml))
	require.NoError(t, s.db.Create(&models.Paper{Title: "p", PaperType: models.PaperTypeLiterature, CategoryID: &ml.ID}).Error)

	rec, resp = s.do(http.MethodGet, "/api/categories?include_stats=true", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Category
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, 1, *list[0].PaperCount)

	rec, _ = s.do(http.MethodGet, "/api/categories?paper_type=bogus", userToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, resp = s.do(http.MethodGet, "/api/categories/tree", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tree []struct {
		ID       uint `json:"id"`
		Children []struct {
			ID uint `json:"id"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tree))
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, ml.ID, tree[0].Children[0].ID)

	rec, _ = s.do(http.MethodPut, "/api/categories/1", adminToken, gin.H{"name": "AI", "parent_id": ml.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodDelete, "/api/categories/1", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/categories/999", userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReferenceCategoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.register("owner")
	memberID, memberToken := s.register("member")
	_, outsiderToken := s.register("outsider")

	rec, resp := s.do(http.MethodPost, "/api/teams", ownerToken, gin.H{"name": "Lab"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var team models.Team
	require.NoError(t, json.Unmarshal(resp.Data, &team))

	rec, _ = s.do(http.MethodPost, "/api/teams/1/members", ownerToken, gin.H{"user_id": memberID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, "/api/reference-categories", memberToken, gin.H{"team_id": team.ID, "name": "NLP"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/reference-categories", ownerToken, gin.H{"team_id": team.ID, "name": "NLP"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodGet, "/api/reference-categories", memberToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, resp = s.do(http.MethodGet, "/api/reference-categories?team_id=1&include_stats=true", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.ReferenceCategory
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "NLP", list[0].Name)
	require.NotNil(t, list[0].ReferenceCount)

	rec, _ = s.do(http.MethodGet, "/api/reference-categories?team_id=1", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/reference-categories?team_id=42", memberToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
