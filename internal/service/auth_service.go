package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
	"github.com/yourusername/vehicle-api/pkg/auth"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy выполняет сравнение bcrypt, когда учетная запись не найдена,
// чтобы время ответа не выдавало существование логина
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("vehicle-api-dummy-password"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[AuthService] Не удалось создать фиктивный хеш: %v", err)
			return
		}
		dummyHash = h
	})
	if dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	}
}

// LoginResult: результат успешного входа
type LoginResult struct {
	User    *entity.User
	Token   string
	Session *entity.Session
}

// AuthService проверяет учетные данные и управляет сессиями
type AuthService struct {
	userRepo repository.UserRepository
	sessions *auth.SessionManager
}

// NewAuthService создает сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, sessions *auth.SessionManager) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &AuthService{userRepo: userRepo, sessions: sessions}, nil
}

// Authenticate находит учетную запись по username или email и проверяет пароль.
// Неизвестный логин и неверный пароль неразличимы (ErrInvalidCredentials).
// ErrAccountNotActivated возвращается только после успешной проверки пароля.
func (s *AuthService) Authenticate(login, password string) (*entity.User, error) {
	login = strings.TrimSpace(login)
	verr := &ValidationError{}
	if login == "" {
		verr.add("login", "this field is required", nil)
	}
	if password == "" {
		verr.add("password", "this field is required", nil)
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	user, err := s.userRepo.GetByLogin(login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			compareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Неверный пароль для пользователя ID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountNotActivated
	}
	return user, nil
}

// Login аутентифицирует пользователя и открывает сессию
func (s *AuthService) Login(ctx context.Context, login, password, ipAddress, userAgent string) (*LoginResult, error) {
	user, err := s.Authenticate(login, password)
	if err != nil {
		return nil, err
	}

	token, session, err := s.sessions.Establish(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	log.Printf("[AuthService] Пользователь %s (ID=%d, role=%s) вошел в систему", user.Username, user.ID, user.Role)
	return &LoginResult{User: user, Token: token, Session: session}, nil
}

// Logout завершает сессию
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Terminate(ctx, sessionID)
}

// CurrentUser возвращает учетную запись владельца сессии
func (s *AuthService) CurrentUser(userID uint) (*entity.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d no longer exists", apperrors.ErrUnauthorized, userID)
		}
		return nil, err
	}
	return user, nil
}
