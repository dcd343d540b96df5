package handler

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/handler/dto"
	"github.com/yourusername/vehicle-api/internal/middleware"
	"github.com/yourusername/vehicle-api/internal/service"
	"github.com/yourusername/vehicle-api/pkg/auth"
)

// Registrar регистрирует новые учетные записи
type Registrar interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.RegistrationResult, error)
}

// Verifier подтверждает учетные записи по коду
type Verifier interface {
	Verify(ctx context.Context, username, code string) (*entity.User, error)
	Resend(ctx context.Context, username string) error
}

// Authenticator выполняет вход и выход
type Authenticator interface {
	Login(ctx context.Context, login, password, ipAddress, userAgent string) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(userID uint) (*entity.User, error)
}

// AuthHandler обрабатывает запросы, связанные с регистрацией и аутентификацией
type AuthHandler struct {
	registration Registrar
	verification Verifier
	authService  Authenticator
	sessions     *auth.SessionManager
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(registration Registrar, verification Verifier, authService Authenticator, sessions *auth.SessionManager) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		verification: verification,
		authService:  authService,
		sessions:     sessions,
	}
}

// VerifyRequest представляет запрос на подтверждение
type VerifyRequest struct {
	VerificationCode string `json:"verification_code"`
}

// LoginRequest представляет запрос на вход. login принимает username или email.
type LoginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func verifyURL(username string) string {
	return "/api/auth/verify/" + url.PathEscape(username)
}

// Register обрабатывает запрос на регистрацию
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.registration.Register(c.Request.Context(), req)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	user := dto.NewUserDTO(result.User)
	if !result.Delivered {
		// Учетная запись создана, но письмо не ушло: клиент может запросить повторную отправку
		c.JSON(http.StatusAccepted, gin.H{
			"message":    "Account created, but the verification email could not be sent. Please request a new code.",
			"error_type": "registered_but_undelivered",
			"user":       user,
			"verify_url": verifyURL(result.User.Username),
			"resend_url": verifyURL(result.User.Username) + "/resend",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Registration successful. Please check your email for the verification code.",
		"user":       user,
		"verify_url": verifyURL(result.User.Username),
	})
}

// Verify обрабатывает ввод кода подтверждения
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.verification.Verify(c.Request.Context(), c.Param("username"), req.VerificationCode)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Account verified successfully. You can now log in.",
		"user":      dto.NewUserDTO(user),
		"login_url": middleware.DefaultLoginURL,
	})
}

// ResendCode повторно отправляет код подтверждения
func (h *AuthHandler) ResendCode(c *gin.Context) {
	if err := h.verification.Resend(c.Request.Context(), c.Param("username")); err != nil {
		handleError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent. Please check your email."})
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}

	result, err := h.authService.Login(c.Request.Context(), login, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	h.sessions.SetSessionCookie(c.Writer, result.Token)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       dto.NewCurrentUserDTO(result.User),
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_at": result.Session.ExpiresAt,
	})
}

// Logout завершает текущую сессию
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
		log.Printf("[AuthHandler] Ошибка завершения сессии %s: %v", sessionID, err)
	}
	h.sessions.ClearSessionCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out", "login_url": middleware.DefaultLoginURL})
}

// GetMe возвращает учетную запись текущей сессии
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "unauthenticated"})
		return
	}

	user, err := h.authService.CurrentUser(userID)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCurrentUserDTO(user))
}
