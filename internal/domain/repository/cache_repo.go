package repository

import (
	"context"
	"time"
)

// CacheRepository хранит короткоживущие флаги (кулдауны повторной отправки кода)
type CacheRepository interface {
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	// SetNX устанавливает значение, только если ключ не существует
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
