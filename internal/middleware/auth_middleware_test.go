package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/policy"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
	"github.com/yourusername/vehicle-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func (r *memSessionRepo) Create(ctx context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memSessionRepo) Get(ctx context.Context, id string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.SessionManager) {
	t.Helper()
	sessions, err := auth.NewSessionManager("test-session-secret-0123456789abcdef", time.Hour,
		&memSessionRepo{sessions: map[string]entity.Session{}})
	require.NoError(t, err)

	m := NewAuthMiddleware(sessions, "")
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	vehicles := r.Group("/api/vehicles", m.RequireAuth())
	vehicles.GET("", m.RequirePermission(policy.OpList), ok)
	vehicles.POST("", m.RequirePermission(policy.OpCreate), ok)
	vehicles.PUT("/:id", m.RequirePermission(policy.OpUpdate), ok)
	vehicles.DELETE("/:id", m.RequirePermission(policy.OpDelete), ok)
	return r, sessions
}

func loginAs(t *testing.T, sessions *auth.SessionManager, role entity.Role) string {
	t.Helper()
	token, _, err := sessions.Establish(context.Background(), &entity.User{ID: 1, Username: "u", Role: role}, "", "")
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth_NoToken(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unauthenticated", body["error_type"])
	assert.Equal(t, DefaultLoginURL, body["login_url"])
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission_RoleMatrix(t *testing.T) {
	r, sessions := newTestRouter(t)

	tests := []struct {
		role   entity.Role
		method string
		path   string
		want   int
	}{
		{entity.RoleUser, http.MethodGet, "/api/vehicles", http.StatusNoContent},
		{entity.RoleUser, http.MethodPost, "/api/vehicles", http.StatusForbidden},
		{entity.RoleUser, http.MethodPut, "/api/vehicles/1", http.StatusForbidden},
		{entity.RoleAdmin, http.MethodPut, "/api/vehicles/1", http.StatusNoContent},
		{entity.RoleAdmin, http.MethodPost, "/api/vehicles", http.StatusForbidden},
		{entity.RoleAdmin, http.MethodDelete, "/api/vehicles/1", http.StatusForbidden},
		{entity.RoleSuperAdmin, http.MethodPost, "/api/vehicles", http.StatusNoContent},
		{entity.RoleSuperAdmin, http.MethodDelete, "/api/vehicles/1", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: loginAs(t, sessions, tt.role)})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "policy_denied", decodeBody(t, rec)["error_type"])
			}
		})
	}
}

func TestRequireAuth_TerminatedSession(t *testing.T) {
	r, sessions := newTestRouter(t)
	token, session, err := sessions.Establish(context.Background(), &entity.User{ID: 1, Role: entity.RoleUser}, "", "")
	require.NoError(t, err)
	require.NoError(t, sessions.Terminate(context.Background(), session.ID))

	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractUintParam(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", ExtractUintParam("id", "itemID"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.MustGet("itemID").(uint)})
	})

	for path, want := range map[string]int{"/items/5": http.StatusOK, "/items/0": http.StatusBadRequest, "/items/abc": http.StatusBadRequest} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestRateLimiter_NilClientPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewRateLimiter(nil).Limit(LoginRateLimitConfig()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
