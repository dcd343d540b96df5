package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/policy"
	"github.com/yourusername/vehicle-api/pkg/auth"
)

// Ключи контекста Gin, заполняемые RequireAuth
const (
	ContextUserID    = "user_id"
	ContextUsername  = "username"
	ContextRole      = "role"
	ContextSessionID = "session_id"
)

// DefaultLoginURL: куда направлять неаутентифицированных клиентов
const DefaultLoginURL = "/api/auth/login"

// AuthMiddleware обеспечивает аутентификацию и проверку прав для защищенных маршрутов
type AuthMiddleware struct {
	sessions *auth.SessionManager
	loginURL string
}

// NewAuthMiddleware создает middleware на основе менеджера сессий
func NewAuthMiddleware(sessions *auth.SessionManager, loginURL string) *AuthMiddleware {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	return &AuthMiddleware{sessions: sessions, loginURL: loginURL}
}

// RequireAuth проверяет токен сессии из куки или заголовка Authorization
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		if token == "" {
			m.unauthenticated(c, "Authentication required")
			return
		}

		session, err := m.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrSessionInvalid) {
				m.unauthenticated(c, "Invalid or expired session")
				return
			}
			log.Printf("[AuthMiddleware] Ошибка проверки сессии: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session", "error_type": "internal_server_error"})
			return
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextUsername, session.Username)
		c.Set(ContextRole, session.Role)
		c.Set(ContextSessionID, session.ID)
		c.Next()
	}
}

// RequirePermission пропускает запрос, только если роль сессии разрешает операцию.
// Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) RequirePermission(op policy.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if !ok {
			m.unauthenticated(c, "Authentication required")
			return
		}

		if err := policy.Check(role, op); err != nil {
			userID, _ := CurrentUserID(c)
			log.Printf("[AuthMiddleware] Отказ: пользователь ID=%d (role=%s), операция %s, %s %s",
				userID, role, op, c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "You do not have permission to perform this action",
				"error_type": policy.ErrPolicyDenied.Error(),
				"operation":  op,
			})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) unauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      message,
		"error_type": "unauthenticated",
		"login_url":  m.loginURL,
	})
}

// CurrentUserID возвращает ID пользователя, установленный RequireAuth
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// CurrentRole возвращает роль пользователя, установленную RequireAuth
func CurrentRole(c *gin.Context) (entity.Role, bool) {
	v, ok := c.Get(ContextRole)
	if !ok {
		return "", false
	}
	role, ok := v.(entity.Role)
	return role, ok
}

// CurrentSessionID возвращает ID сессии, установленный RequireAuth
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
