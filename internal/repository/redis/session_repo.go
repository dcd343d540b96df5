package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

const sessionKeyPrefix = "session:"

// SessionRepo хранит сессии как JSON с TTL до ExpiresAt
type SessionRepo struct {
	client redis.UniversalClient
}

// NewSessionRepo создает репозиторий сессий
func NewSessionRepo(client redis.UniversalClient) (*SessionRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for SessionRepo")
	}
	return &SessionRepo{client: client}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create сохраняет сессию
func (r *SessionRepo) Create(ctx context.Context, session *entity.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

// Get возвращает сессию или apperrors.ErrNotFound
func (r *SessionRepo) Get(ctx context.Context, id string) (*entity.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// Delete удаляет сессию
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

var _ repository.SessionRepository = (*SessionRepo)(nil)
