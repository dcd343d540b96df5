package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

const (
	codeMin = 100000
	codeMax = 999999

	resendCooldownKeyPrefix = "verification:resend:"
)

// generateVerificationCode возвращает 6-значный код, равномерно распределенный в [100000, 999999]
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

func resendCooldownKey(username string) string {
	return resendCooldownKeyPrefix + username
}

// deliverCode отправляет код подтверждения на email учетной записи
func deliverCode(ctx context.Context, notifier Notifier, user *entity.User, code string, ttlMinutes int) error {
	subject, body := verificationEmail(user.Username, user.Email, string(user.Role), code, ttlMinutes)
	if err := notifier.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationDeliveryFailed, err)
	}
	return nil
}
