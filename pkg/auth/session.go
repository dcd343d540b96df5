package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// SessionCookie: имя HttpOnly куки с токеном сессии
const SessionCookie = "session_token"

// ErrSessionInvalid возвращается для отсутствующего, поддельного, истекшего или завершенного токена
var ErrSessionInvalid = errors.New("session_invalid")

// SessionClaims: содержимое токена сессии
type SessionClaims struct {
	SessionID string `json:"sid"`
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager выпускает подписанные токены сессий и хранит сами сессии в репозитории.
// Токен действителен, только пока сессия существует в хранилище.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	repo   repository.SessionRepository

	cookiePath     string
	cookieSecure   bool
	cookieSameSite http.SameSite

	now func() time.Time
}

// NewSessionManager создает менеджер сессий
func NewSessionManager(secret string, ttl time.Duration, repo repository.SessionRepository) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if repo == nil {
		return nil, fmt.Errorf("SessionRepository is required for SessionManager")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		secret:         []byte(secret),
		ttl:            ttl,
		repo:           repo,
		cookiePath:     "/",
		cookieSameSite: http.SameSiteLaxMode,
		now:            time.Now,
	}, nil
}

// SetCookieSecure включает флаг Secure (production за HTTPS)
func (m *SessionManager) SetCookieSecure(secure bool) {
	m.cookieSecure = secure
	log.Printf("[SessionManager] Cookie Secure set to: %v", secure)
}

// TTL возвращает время жизни сессии
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Establish создает сессию для пользователя и возвращает подписанный токен
func (m *SessionManager) Establish(ctx context.Context, user *entity.User, ipAddress, userAgent string) (string, *entity.Session, error) {
	now := m.now()
	session := &entity.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := &SessionClaims{
		SessionID: session.ID,
		UserID:    user.ID,
		Role:      string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := m.repo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Printf("[SessionManager] Создана сессия %s для пользователя ID=%d", session.ID, user.ID)
	return token, session, nil
}

// Resolve проверяет токен и возвращает живую сессию
func (m *SessionManager) Resolve(ctx context.Context, tokenString string) (*entity.Session, error) {
	if tokenString == "" {
		return nil, ErrSessionInvalid
	}

	claims := &SessionClaims{}
	parser := jwt.Parser{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, fmt.Errorf("%w: token is malformed", ErrSessionInvalid)
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, fmt.Errorf("%w: token is expired", ErrSessionInvalid)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[SessionManager] Неверная подпись токена (user_id=%d)", claims.UserID)
				return nil, fmt.Errorf("%w: signature is invalid", ErrSessionInvalid)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: token has no session id", ErrSessionInvalid)
	}

	session, err := m.repo.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: session terminated", ErrSessionInvalid)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.IsExpired(m.now()) || session.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: session expired", ErrSessionInvalid)
	}
	return session, nil
}

// Terminate удаляет сессию. Повторный вызов не является ошибкой.
func (m *SessionManager) Terminate(ctx context.Context, sessionID string) error {
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	log.Printf("[SessionManager] Сессия %s завершена", sessionID)
	return nil
}

// SetSessionCookie устанавливает токен сессии в HttpOnly куки
func (m *SessionManager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     m.cookiePath,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

// ClearSessionCookie удаляет куки сессии
func (m *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     m.cookiePath,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   -1,
	})
}

// TokenFromRequest достает токен из куки или заголовка Authorization: Bearer
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
