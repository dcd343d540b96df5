package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Notifier доставляет сообщения пользователям
type Notifier interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// NoopNotifier используется, когда отправка писем отключена (локальная разработка)
type NoopNotifier struct{}

// Send только логирует факт отправки, без содержимого письма
func (n *NoopNotifier) Send(ctx context.Context, toEmail, subject, body string) error {
	log.Printf("[Notifier] noop send to=%s subject=%q", toEmail, subject)
	return nil
}

// ResendNotifier отправляет письма через Resend REST API
type ResendNotifier struct {
	from   string
	client *resend.Client
}

// NewResendNotifier создает notifier на основе Resend
func NewResendNotifier(apiKey, from string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendNotifier{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// Send отправляет текстовое письмо. Повторов нет: повторная доставка: отдельный запрос пользователя.
func (n *ResendNotifier) Send(ctx context.Context, toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("recipient email is required")
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{toEmail},
		Subject: subject,
		Text:    body,
	}

	if _, err := n.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{}); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// verificationEmail формирует тему и текст письма с кодом подтверждения
func verificationEmail(username, email, role, code string, ttlMinutes int) (string, string) {
	subject := "Vehicle Management System - Account Verification"
	body := fmt.Sprintf(`Hello %s,

Welcome to Vehicle Management System!

Your account verification code is: %s

Please enter this code to activate your account. This code is valid for %d minutes.

Account Details:
- Username: %s
- Email: %s
- Role: %s

If you didn't create this account, please ignore this email.

Best regards,
Vehicle Management Team
`, username, code, ttlMinutes, username, email, role)
	return subject, body
}
