package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

// CreateTx: первый результат: ошибка создания (fn не вызывается),
// второй: ошибка фиксации транзакции после успешного fn
func (m *MockUserRepository) CreateTx(user *entity.User, fn func(user *entity.User) error) error {
	args := m.Called(user)
	if err := args.Error(0); err != nil {
		return err
	}
	if user.ID == 0 {
		user.ID = 1
	}
	if err := fn(user); err != nil {
		return err
	}
	return args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByLogin(login string) (*entity.User, error) {
	args := m.Called(login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(email string) (bool, error) {
	args := m.Called(email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(username string) (bool, error) {
	args := m.Called(username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Activate(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

// MockVehicleRepository реализует repository.VehicleRepository
type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Create(vehicle *entity.Vehicle) error {
	args := m.Called(vehicle)
	if args.Error(0) == nil && vehicle.ID == 0 {
		vehicle.ID = 1
	}
	return args.Error(0)
}

func (m *MockVehicleRepository) GetByID(id uint) (*entity.Vehicle, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) Update(vehicle *entity.Vehicle) error {
	args := m.Called(vehicle)
	return args.Error(0)
}

func (m *MockVehicleRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockVehicleRepository) ExistsByNumber(number string, excludeID uint) (bool, error) {
	args := m.Called(number, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVehicleRepository) List(filter repository.VehicleFilter) ([]entity.Vehicle, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Vehicle), args.Get(1).(int64), args.Error(2)
}

// MockNotifier реализует Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, toEmail, subject, body string) error {
	args := m.Called(toEmail, subject, body)
	return args.Error(0)
}

// MockVehicleEventPublisher реализует VehicleEventPublisher
type MockVehicleEventPublisher struct {
	mock.Mock
}

func (m *MockVehicleEventPublisher) PublishVehicleEvent(ctx context.Context, event entity.VehicleEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// ============================================================================
// In-memory реализации
// ============================================================================

// memPendingRepo: реестр ожидающих подтверждения в памяти
type memPendingRepo struct {
	mu      sync.Mutex
	entries map[string]entity.PendingVerification
	saveErr error
	saves   int
}

func newMemPendingRepo() *memPendingRepo {
	return &memPendingRepo{entries: make(map[string]entity.PendingVerification)}
}

func (r *memPendingRepo) Save(ctx context.Context, p *entity.PendingVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.entries[p.Username] = *p
	return nil
}

func (r *memPendingRepo) Get(ctx context.Context, username string) (*entity.PendingVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[username]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *memPendingRepo) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, username)
	return nil
}

func (r *memPendingRepo) Update(ctx context.Context, username string, fn repository.PendingUpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[username]
	if !ok {
		return apperrors.ErrNotFound
	}
	action, fnErr := fn(&p)
	switch action {
	case repository.PendingDelete:
		delete(r.entries, username)
	default:
		r.entries[username] = p
	}
	return fnErr
}

func (r *memPendingRepo) has(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[username]
	return ok
}

// memCache: кеш в памяти без истечения ключей
type memCache struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.ttl, key)
	return nil
}

func (c *memCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl[key], nil
}

func (c *memCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = toString(value)
	c.ttl[key] = expiration
	return true, nil
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return "1"
	}
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
	_ repository.UserRepository                = (*MockUserRepository)(nil)
	_ repository.VehicleRepository             = (*MockVehicleRepository)(nil)
	_ repository.PendingVerificationRepository = (*memPendingRepo)(nil)
	_ repository.CacheRepository               = (*memCache)(nil)
	_ repository.SessionRepository             = (*memSessionRepo)(nil)
)
