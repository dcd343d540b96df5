package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
	"github.com/yourusername/vehicle-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newJSONRequest создает запрос с JSON body
func newJSONRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	bodyBytes, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// --- Моки сервисов ---

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Register(ctx context.Context, input service.RegisterInput) (*service.RegistrationResult, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RegistrationResult), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, username, code string) (*entity.User, error) {
	args := m.Called(username, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockVerifier) Resend(ctx context.Context, username string) error {
	return m.Called(username).Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, login, password, ipAddress, userAgent string) (*service.LoginResult, error) {
	args := m.Called(login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *MockAuthenticator) CurrentUser(userID uint) (*entity.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockVehicleManager struct {
	mock.Mock
}

func (m *MockVehicleManager) List(vehicleType string, page, pageSize int) (*service.VehiclePage, error) {
	args := m.Called(vehicleType, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VehiclePage), args.Error(1)
}

func (m *MockVehicleManager) ListAll(vehicleType string) ([]entity.Vehicle, error) {
	args := m.Called(vehicleType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Vehicle), args.Error(1)
}

func (m *MockVehicleManager) Get(id uint) (*entity.Vehicle, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleManager) Create(ctx context.Context, actorID uint, input service.VehicleInput) (*entity.Vehicle, error) {
	args := m.Called(actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleManager) Update(ctx context.Context, actorID, id uint, input service.VehicleInput) (*entity.Vehicle, error) {
	args := m.Called(actorID, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleManager) Delete(ctx context.Context, actorID, id uint) error {
	return m.Called(actorID, id).Error(0)
}

// memSessionRepo: хранилище сессий в памяти
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]entity.Session)}
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

var (
	_ Registrar      = (*MockRegistrar)(nil)
	_ Verifier       = (*MockVerifier)(nil)
	_ Authenticator  = (*MockAuthenticator)(nil)
	_ VehicleManager = (*MockVehicleManager)(nil)
)
