package service

import (
	"errors"
	"fmt"
)

// Ошибки сценариев регистрации, подтверждения и входа.
// Строковые значения стабильны и используются обработчиками как error_type.
var (
	ErrPasswordMismatch           = errors.New("password_mismatch")
	ErrVerificationExpired        = errors.New("verification_expired")
	ErrTooManyAttempts            = errors.New("too_many_attempts")
	ErrInvalidVerificationCode    = errors.New("invalid_verification_code")
	ErrInvalidCredentials         = errors.New("invalid_credentials")
	ErrAccountNotActivated        = errors.New("account_not_activated")
	ErrNotificationDeliveryFailed = errors.New("notification_delivery_failed")
	ErrAlreadyVerified            = errors.New("already_verified")
	ErrResendCooldown             = errors.New("verification_resend_cooldown")
)

// InvalidCodeError: неверный код с количеством оставшихся попыток
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidVerificationCode, e.Remaining)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrInvalidVerificationCode)
func (e *InvalidCodeError) Unwrap() error {
	return ErrInvalidVerificationCode
}

// ResendCooldownError сообщает, через сколько секунд можно повторить отправку
type ResendCooldownError struct {
	RetryAfterSec int
}

func (e *ResendCooldownError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrResendCooldown, e.RetryAfterSec)
}

func (e *ResendCooldownError) Unwrap() error {
	return ErrResendCooldown
}
