package repository

import (
	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с учетными записями
type UserRepository interface {
	// CreateTx создает учетную запись и вызывает fn внутри той же транзакции.
	// Ошибка fn откатывает создание учетной записи.
	CreateTx(user *entity.User, fn func(user *entity.User) error) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)
	// GetByLogin ищет учетную запись по username ИЛИ email
	GetByLogin(login string) (*entity.User, error)
	ExistsByEmail(email string) (bool, error)
	ExistsByUsername(username string) (bool, error)
	// Activate выставляет is_active=true только неактивной записи.
	// ErrAlreadyActive, если запись уже активна; apperrors.ErrNotFound, если записи нет.
	Activate(userID uint) error
}
