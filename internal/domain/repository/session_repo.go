package repository

import (
	"context"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// SessionRepository хранит активные сессии
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// Get возвращает сессию или apperrors.ErrNotFound
	Get(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}
