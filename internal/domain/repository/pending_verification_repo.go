package repository

import (
	"context"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// PendingAction: что сделать с записью после решения UpdateFunc
type PendingAction int

const (
	// PendingKeep сохраняет (возможно измененную) запись
	PendingKeep PendingAction = iota
	// PendingDelete удаляет запись
	PendingDelete
)

// PendingUpdateFunc принимает текущее состояние записи и решает, сохранить ее или удалить.
// Может вызываться повторно, если запись изменилась параллельно.
type PendingUpdateFunc func(p *entity.PendingVerification) (PendingAction, error)

// PendingVerificationRepository хранит ожидающие подтверждения регистрации
type PendingVerificationRepository interface {
	// Save создает или перезаписывает запись для username
	Save(ctx context.Context, p *entity.PendingVerification) error
	// Get возвращает запись или apperrors.ErrNotFound
	Get(ctx context.Context, username string) (*entity.PendingVerification, error)
	Delete(ctx context.Context, username string) error
	// Update атомарно (для одного username) читает запись, вызывает fn и применяет решение.
	// Если записи нет: apperrors.ErrNotFound, fn не вызывается.
	// Ошибка fn возвращается как есть после применения решения.
	Update(ctx context.Context, username string, fn PendingUpdateFunc) error
}
