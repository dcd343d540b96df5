package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// VerificationService подтверждает регистрацию по коду и повторно отправляет коды
type VerificationService struct {
	userRepo       repository.UserRepository
	pendingRepo    repository.PendingVerificationRepository
	cacheRepo      repository.CacheRepository
	notifier       Notifier
	codeTTL        time.Duration
	resendCooldown time.Duration
	generateCode   func() (string, error)
}

// NewVerificationService создает сервис подтверждения. cacheRepo может быть nil.
func NewVerificationService(
	userRepo repository.UserRepository,
	pendingRepo repository.PendingVerificationRepository,
	cacheRepo repository.CacheRepository,
	notifier Notifier,
	codeTTL time.Duration,
	resendCooldown time.Duration,
) (*VerificationService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if pendingRepo == nil {
		return nil, fmt.Errorf("pending verification repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	return &VerificationService{
		userRepo:       userRepo,
		pendingRepo:    pendingRepo,
		cacheRepo:      cacheRepo,
		notifier:       notifier,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		generateCode:   generateVerificationCode,
	}, nil
}

// Verify сверяет код с записью ожидания и активирует учетную запись.
//
// Правила применяются по порядку: нет записи -> ErrVerificationExpired;
// попытки исчерпаны -> запись удаляется, ErrTooManyAttempts;
// код совпал -> запись удаляется, учетная запись активируется;
// иначе попытка засчитывается и возвращается *InvalidCodeError.
// Запись с исчерпанными попытками живет до следующего вызова или истечения TTL.
func (s *VerificationService) Verify(ctx context.Context, username, code string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if username == "" {
		return nil, newFieldError("username", "this field is required", nil)
	}
	if code == "" {
		return nil, newFieldError("verification_code", "this field is required", nil)
	}

	var matched *entity.PendingVerification
	err := s.pendingRepo.Update(ctx, username, func(p *entity.PendingVerification) (repository.PendingAction, error) {
		matched = nil
		if p.AttemptsExhausted() {
			return repository.PendingDelete, ErrTooManyAttempts
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(p.Code)) == 1 {
			snapshot := *p
			matched = &snapshot
			return repository.PendingDelete, nil
		}
		p.Attempts++
		return repository.PendingKeep, &InvalidCodeError{Remaining: p.RemainingAttempts()}
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrVerificationExpired
		}
		var invalid *InvalidCodeError
		if errors.As(err, &invalid) {
			log.Printf("[VerificationService] Неверный код для %s, осталось попыток: %d", username, invalid.Remaining)
		}
		return nil, err
	}

	user, err := s.activate(username)
	if errors.Is(err, ErrAlreadyVerified) {
		return nil, err
	}
	if err != nil {
		// Код уже принят, но активация не удалась: возвращаем запись, чтобы можно было повторить
		if restoreErr := s.pendingRepo.Save(ctx, matched); restoreErr != nil {
			log.Printf("[VerificationService] Не удалось восстановить код для %s: %v", username, restoreErr)
		}
		return nil, err
	}

	log.Printf("[VerificationService] Учетная запись %s (ID=%d) подтверждена", user.Username, user.ID)
	return user, nil
}

func (s *VerificationService) activate(username string) (*entity.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrVerificationExpired
		}
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	if err := s.userRepo.Activate(user.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyActive) {
			return nil, ErrAlreadyVerified
		}
		return nil, fmt.Errorf("failed to activate user %d: %w", user.ID, err)
	}
	user.IsActive = true
	return user, nil
}

// Resend повторно отправляет код подтверждения.
// Пока запись ожидания жива, отправляется тот же код; если она истекла, а учетная запись
// не активна, выпускается новый код. Между отправками действует кулдаун.
func (s *VerificationService) Resend(ctx context.Context, username string) (err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return newFieldError("username", "this field is required", nil)
	}

	if err := s.acquireCooldown(ctx, username); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.releaseCooldown(ctx, username)
		}
	}()

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrVerificationExpired
		}
		return fmt.Errorf("failed to load user %s: %w", username, err)
	}
	if user.IsActive {
		return ErrAlreadyVerified
	}

	pending, err := s.pendingRepo.Get(ctx, username)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		pending, err = s.reissue(ctx, user)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to load pending verification for %s: %w", username, err)
	}

	if err := deliverCode(ctx, s.notifier, user, pending.Code, int(s.codeTTL.Minutes())); err != nil {
		log.Printf("[VerificationService] %v (username=%s)", err, username)
		return err
	}
	log.Printf("[VerificationService] Код подтверждения повторно отправлен пользователю %s", username)
	return nil
}

// reissue создает новую запись ожидания для неактивной учетной записи с истекшим кодом
func (s *VerificationService) reissue(ctx context.Context, user *entity.User) (*entity.PendingVerification, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	pending := &entity.PendingVerification{
		Username:  user.Username,
		Code:      code,
		Email:     user.Email,
		CreatedAt: time.Now(),
	}
	if err := s.pendingRepo.Save(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to save pending verification for %s: %w", user.Username, err)
	}
	log.Printf("[VerificationService] Выпущен новый код для %s", user.Username)
	return pending, nil
}

func (s *VerificationService) acquireCooldown(ctx context.Context, username string) error {
	if s.cacheRepo == nil {
		return nil
	}
	key := resendCooldownKey(username)
	ok, err := s.cacheRepo.SetNX(ctx, key, 1, s.resendCooldown)
	if err != nil {
		// Кеш недоступен: не блокируем отправку
		log.Printf("[VerificationService] Ошибка проверки кулдауна для %s: %v", username, err)
		return nil
	}
	if ok {
		return nil
	}

	retryAfter := s.resendCooldown
	if ttl, err := s.cacheRepo.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	return &ResendCooldownError{RetryAfterSec: int(math.Ceil(retryAfter.Seconds()))}
}

func (s *VerificationService) releaseCooldown(ctx context.Context, username string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(ctx, resendCooldownKey(username)); err != nil {
		log.Printf("[VerificationService] Не удалось снять кулдаун для %s: %v", username, err)
	}
}
