package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

const (
	pendingKeyPrefix = "verification:pending:"
	// maxWatchRetries: сколько раз повторяем оптимистичную транзакцию при конфликте
	maxWatchRetries = 5

	fieldCode      = "code"
	fieldAttempts  = "attempts"
	fieldEmail     = "email"
	fieldCreatedAt = "created_at"
)

// PendingVerificationRepo хранит ожидающие подтверждения регистрации в Redis-хешах с TTL.
// Update выполняется под WATCH, поэтому чтение-инкремент-запись attempts атомарны для одного username.
type PendingVerificationRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPendingVerificationRepo создает репозиторий. ttl <= 0 означает 10 минут.
func NewPendingVerificationRepo(client redis.UniversalClient, ttl time.Duration) (*PendingVerificationRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for PendingVerificationRepo")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PendingVerificationRepo{client: client, ttl: ttl}, nil
}

func pendingKey(username string) string {
	return pendingKeyPrefix + username
}

// Save создает или перезаписывает запись и выставляет TTL
func (r *PendingVerificationRepo) Save(ctx context.Context, p *entity.PendingVerification) error {
	key := pendingKey(p.Username)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHash(p))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save pending verification for %s: %w", p.Username, err)
	}
	return nil
}

// Get возвращает запись или apperrors.ErrNotFound
func (r *PendingVerificationRepo) Get(ctx context.Context, username string) (*entity.PendingVerification, error) {
	values, err := r.client.HGetAll(ctx, pendingKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending verification for %s: %w", username, err)
	}
	return fromHash(username, values)
}

// Delete удаляет запись
func (r *PendingVerificationRepo) Delete(ctx context.Context, username string) error {
	return r.client.Del(ctx, pendingKey(username)).Err()
}

// Update атомарно применяет решение fn к записи username
func (r *PendingVerificationRepo) Update(ctx context.Context, username string, fn repository.PendingUpdateFunc) error {
	key := pendingKey(username)

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			values, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			pending, err := fromHash(username, values)
			if err != nil {
				return err
			}

			action, decisionErr := fn(pending)
			fnErr = decisionErr

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				switch action {
				case repository.PendingDelete:
					pipe.Del(ctx, key)
				default:
					pipe.HSet(ctx, key, toHash(pending))
				}
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			log.Printf("[PendingVerificationRepo] Конфликт WATCH для %s, повтор %d", username, attempt+1)
			continue
		}
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			return fmt.Errorf("failed to update pending verification for %s: %w", username, err)
		}
		return fnErr
	}

	return fmt.Errorf("%w: pending verification for %s", repository.ErrConcurrentUpdate, username)
}

func toHash(p *entity.PendingVerification) map[string]interface{} {
	return map[string]interface{}{
		fieldCode:      p.Code,
		fieldAttempts:  p.Attempts,
		fieldEmail:     p.Email,
		fieldCreatedAt: p.CreatedAt.Unix(),
	}
}

func fromHash(username string, values map[string]string) (*entity.PendingVerification, error) {
	if len(values) == 0 {
		return nil, apperrors.ErrNotFound
	}
	attempts, err := strconv.Atoi(values[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("corrupted attempts for pending verification %s: %w", username, err)
	}
	createdAt, _ := strconv.ParseInt(values[fieldCreatedAt], 10, 64)
	return &entity.PendingVerification{
		Username:  username,
		Code:      values[fieldCode],
		Attempts:  attempts,
		Email:     values[fieldEmail],
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

var _ repository.PendingVerificationRepository = (*PendingVerificationRepo)(nil)
