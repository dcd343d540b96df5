package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

const testCode = "123456"

func newTestRegistrationService(t *testing.T, userRepo *MockUserRepository, pending *memPendingRepo, cache *memCache, notifier *MockNotifier) *RegistrationService {
	t.Helper()
	// A nil *memCache must be passed as an untyped nil interface, otherwise the
	// service's cacheRepo != nil check sees a non-nil interface.
	var cacheRepo repository.CacheRepository
	if cache != nil {
		cacheRepo = cache
	}
	svc, err := NewRegistrationService(userRepo, pending, cacheRepo, notifier, 10*time.Minute, time.Minute)
	require.NoError(t, err)
	svc.generateCode = func() (string, error) { return testCode, nil }
	return svc
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Role:            "user",
		Password:        "Secret123",
		PasswordConfirm: "Secret123",
	}
}

func bodyContains(s string) interface{} {
	return mock.MatchedBy(func(body string) bool { return strings.Contains(body, s) })
}

func TestRegistrationService_Register_Success(t *testing.T) {
	// Arrange
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	cache := newMemCache()
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "alice@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "alice").Return(false, nil)
	userRepo.On("CreateTx", mock.AnythingOfType("*entity.User")).Return(nil, nil)
	notifier.On("Send", "alice@example.com", mock.Anything, bodyContains(testCode)).Return(nil)

	svc := newTestRegistrationService(t, userRepo, pending, cache, notifier)

	// Act
	result, err := svc.Register(context.Background(), validRegisterInput())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Delivered, "Код должен быть доставлен")
	assert.False(t, result.User.IsActive, "Учетная запись должна быть неактивной до подтверждения")
	assert.Equal(t, entity.RoleUser, result.User.Role)

	p, err := pending.Get(context.Background(), "alice")
	require.NoError(t, err, "Запись ожидания должна существовать")
	assert.Equal(t, testCode, p.Code)
	assert.Equal(t, 0, p.Attempts)
	assert.Equal(t, "alice@example.com", p.Email)

	onCooldown, _ := cache.Exists(context.Background(), resendCooldownKey("alice"))
	assert.True(t, onCooldown, "После отправки должен действовать кулдаун")

	userRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRegistrationService_Register_NormalizesEmailAndDefaultsRole(t *testing.T) {
	userRepo := new(MockUserRepository)
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "bob@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "bob").Return(false, nil)
	userRepo.On("CreateTx", mock.MatchedBy(func(u *entity.User) bool {
		return u.Email == "bob@example.com" && u.Role == entity.RoleUser && !u.IsActive
	})).Return(nil, nil)
	notifier.On("Send", "bob@example.com", mock.Anything, mock.Anything).Return(nil)

	svc := newTestRegistrationService(t, userRepo, newMemPendingRepo(), nil, notifier)

	input := RegisterInput{
		Username:        " bob ",
		Email:           "  Bob@Example.COM ",
		Password:        "Secret123",
		PasswordConfirm: "Secret123",
	}
	result, err := svc.Register(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "bob", result.User.Username)
	userRepo.AssertExpectations(t)
}

func TestRegistrationService_Register_FieldValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *RegisterInput)
		field  string
	}{
		{"empty username", func(in *RegisterInput) { in.Username = "" }, "username"},
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "username"},
		{"username with spaces", func(in *RegisterInput) { in.Username = "al ice" }, "username"},
		{"malformed email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"unknown role", func(in *RegisterInput) { in.Role = "owner" }, "role"},
		{"short password", func(in *RegisterInput) { in.Password, in.PasswordConfirm = "short", "short" }, "password"},
		{"numeric password", func(in *RegisterInput) { in.Password, in.PasswordConfirm = "12345678", "12345678" }, "password"},
		{"password over bcrypt limit", func(in *RegisterInput) {
			long := strings.Repeat("a", entity.MaxPasswordBytes+1)
			in.Password, in.PasswordConfirm = long, long
		}, "password"},
		{"multibyte password over bcrypt limit", func(in *RegisterInput) {
			long := strings.Repeat("пароль", 7) // 42 символа, 84 байта
			in.Password, in.PasswordConfirm = long, long
		}, "password"},
		{"missing confirmation", func(in *RegisterInput) { in.PasswordConfirm = "" }, "password_confirm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			notifier := new(MockNotifier)
			svc := newTestRegistrationService(t, userRepo, newMemPendingRepo(), nil, notifier)

			input := validRegisterInput()
			tt.modify(&input)

			result, err := svc.Register(context.Background(), input)

			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
			userRepo.AssertNotCalled(t, "CreateTx", mock.Anything)
			notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterInput_Validate_PasswordByteLimit(t *testing.T) {
	input := validRegisterInput()
	input.Password = strings.Repeat("a", entity.MaxPasswordBytes)
	input.PasswordConfirm = input.Password
	assert.NoError(t, input.Validate(), "Пароль ровно на пределе bcrypt допустим")

	input.Password = strings.Repeat("a", 100)
	input.PasswordConfirm = input.Password
	assert.Error(t, input.Validate())
}

func TestRegistrationService_Register_PasswordMismatch(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	svc := newTestRegistrationService(t, userRepo, pending, nil, new(MockNotifier))

	input := validRegisterInput()
	input.PasswordConfirm = "Different123"

	_, err := svc.Register(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPasswordMismatch))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.False(t, pending.has("alice"), "Запись ожидания не должна создаваться")
	userRepo.AssertNotCalled(t, "CreateTx", mock.Anything)
}

func TestRegistrationService_Register_DuplicateEmailAndUsername(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "alice@example.com").Return(true, nil)
	userRepo.On("ExistsByUsername", "alice").Return(true, nil)

	svc := newTestRegistrationService(t, userRepo, pending, nil, notifier)

	_, err := svc.Register(context.Background(), validRegisterInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
	assert.True(t, errors.Is(err, repository.ErrDuplicateUsername))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "username")
	assert.False(t, pending.has("alice"))
	userRepo.AssertNotCalled(t, "CreateTx", mock.Anything)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistrationService_Register_DuplicateLostRace(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()

	userRepo.On("ExistsByEmail", "alice@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "alice").Return(false, nil)
	userRepo.On("CreateTx", mock.Anything).Return(repository.ErrDuplicateUsername, nil)

	svc := newTestRegistrationService(t, userRepo, pending, nil, new(MockNotifier))

	_, err := svc.Register(context.Background(), validRegisterInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicateUsername))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "username")
	assert.False(t, pending.has("alice"))
}

func TestRegistrationService_Register_RegistryFailureRollsBack(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	pending.saveErr = errors.New("redis unavailable")
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "alice@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "alice").Return(false, nil)
	userRepo.On("CreateTx", mock.Anything).Return(nil, nil)

	svc := newTestRegistrationService(t, userRepo, pending, nil, notifier)

	result, err := svc.Register(context.Background(), validRegisterInput())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "redis unavailable")
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistrationService_Register_CommitFailureRemovesPending(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "alice@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "alice").Return(false, nil)
	userRepo.On("CreateTx", mock.Anything).Return(nil, errors.New("commit failed"))

	svc := newTestRegistrationService(t, userRepo, pending, nil, notifier)

	_, err := svc.Register(context.Background(), validRegisterInput())

	require.Error(t, err)
	assert.Equal(t, 1, pending.saves, "Код должен был быть записан внутри транзакции")
	assert.False(t, pending.has("alice"), "Код должен быть удален после неудачной фиксации")
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistrationService_Register_DeliveryFailure(t *testing.T) {
	userRepo := new(MockUserRepository)
	pending := newMemPendingRepo()
	cache := newMemCache()
	notifier := new(MockNotifier)

	userRepo.On("ExistsByEmail", "alice@example.com").Return(false, nil)
	userRepo.On("ExistsByUsername", "alice").Return(false, nil)
	userRepo.On("CreateTx", mock.Anything).Return(nil, nil)
	notifier.On("Send", "alice@example.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newTestRegistrationService(t, userRepo, pending, cache, notifier)

	result, err := svc.Register(context.Background(), validRegisterInput())

	require.NoError(t, err, "Ошибка доставки не отменяет регистрацию")
	require.NotNil(t, result)
	assert.False(t, result.Delivered)
	assert.True(t, pending.has("alice"), "Код остается для повторной отправки")
	onCooldown, _ := cache.Exists(context.Background(), resendCooldownKey("alice"))
	assert.False(t, onCooldown, "Без доставки кулдаун не выставляется")
}

func TestGenerateVerificationCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.True(t, code >= "100000" && code <= "999999", "code %s out of range", code)
	}
}
