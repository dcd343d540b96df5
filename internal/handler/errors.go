package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
	"github.com/yourusername/vehicle-api/internal/policy"
	"github.com/yourusername/vehicle-api/internal/service"
)

// handleError переводит ошибки сервисов в HTTP-ответы со стабильным error_type
func handleError(c *gin.Context, component string, err error) {
	var (
		validationErr *service.ValidationError
		invalidCode   *service.InvalidCodeError
		cooldown      *service.ResendCooldownError
	)

	switch {
	case errors.As(err, &validationErr):
		status, errorType := http.StatusBadRequest, "validation_error"
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail) && errors.Is(err, repository.ErrDuplicateUsername):
			status, errorType = http.StatusConflict, "duplicate_account"
		case errors.Is(err, repository.ErrDuplicateEmail):
			status, errorType = http.StatusConflict, "duplicate_email"
		case errors.Is(err, repository.ErrDuplicateUsername):
			status, errorType = http.StatusConflict, "duplicate_username"
		case errors.Is(err, service.ErrPasswordMismatch):
			errorType = "password_mismatch"
		}
		c.JSON(status, gin.H{"error": "Invalid input", "error_type": errorType, "fields": validationErr.Fields})

	case errors.As(err, &invalidCode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "Invalid verification code",
			"error_type":         service.ErrInvalidVerificationCode.Error(),
			"remaining_attempts": invalidCode.Remaining,
		})

	case errors.As(err, &cooldown):
		c.Header("Retry-After", strconv.Itoa(cooldown.RetryAfterSec))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Please wait before requesting another code",
			"error_type":  service.ErrResendCooldown.Error(),
			"retry_after": cooldown.RetryAfterSec,
		})

	case errors.Is(err, service.ErrVerificationExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Verification code expired or not found. Please register again or request a new code.", "error_type": service.ErrVerificationExpired.Error()})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusGone, gin.H{"error": "Too many failed attempts. Please request a new code.", "error_type": service.ErrTooManyAttempts.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username/email or password", "error_type": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrAccountNotActivated):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not activated. Please verify your email first.", "error_type": service.ErrAccountNotActivated.Error()})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, gin.H{"error": "Account is already verified", "error_type": service.ErrAlreadyVerified.Error()})
	case errors.Is(err, service.ErrNotificationDeliveryFailed):
		log.Printf("[%s] %v", component, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification email. Please try again later.", "error_type": service.ErrNotificationDeliveryFailed.Error()})
	case errors.Is(err, repository.ErrDuplicateVehicleNumber):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "A vehicle with this number already exists",
			"error_type": "duplicate_vehicle_number",
			"fields":     gin.H{"vehicle_number": "vehicle with this number already exists"},
		})
	case errors.Is(err, repository.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, please retry", "error_type": "concurrent_update"})
	case errors.Is(err, policy.ErrPolicyDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action", "error_type": policy.ErrPolicyDenied.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "unauthenticated"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Requested resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Data conflict", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "error_type": "validation_error"})
	default:
		log.Printf("[%s] Внутренняя ошибка: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}

// bindError отвечает на некорректное тело запроса
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
}
