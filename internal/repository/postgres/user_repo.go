package postgres

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// Имена уникальных индексов из миграции 000001_create_users
const (
	usersUsernameIndex = "idx_users_username"
	usersEmailIndex    = "idx_users_email"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateTx создает учетную запись и в той же транзакции вызывает fn.
// Нарушение уникальности транслируется в ErrDuplicateUsername / ErrDuplicateEmail.
func (r *UserRepo) CreateTx(user *entity.User, fn func(user *entity.User) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translateUserWriteError(err)
		}
		if fn == nil {
			return nil
		}
		return fn(user)
	})
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	return r.findOne("email = ?", email)
}

// GetByUsername возвращает пользователя по имени пользователя
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	return r.findOne("username = ?", username)
}

// GetByLogin ищет пользователя по username или email.
// Если login одновременно совпадает с username одной записи и email другой,
// приоритет у совпадения по username.
func (r *UserRepo) GetByLogin(login string) (*entity.User, error) {
	var user entity.User
	err := r.db.
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		Order(gorm.Expr("CASE WHEN username = ? THEN 0 ELSE 1 END", login)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail проверяет, занят ли email
func (r *UserRepo) ExistsByEmail(email string) (bool, error) {
	return r.exists("email = ?", email)
}

// ExistsByUsername проверяет, занят ли username
func (r *UserRepo) ExistsByUsername(username string) (bool, error) {
	return r.exists("username = ?", username)
}

// Activate активирует учетную запись. Обновляются только неактивные строки,
// поэтому учетная запись активируется ровно один раз.
func (r *UserRepo) Activate(userID uint) error {
	result := r.db.Model(&entity.User{}).
		Where("id = ? AND is_active = ?", userID, false).
		Updates(map[string]interface{}{
			"is_active":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		log.Printf("[UserRepo.Activate] Ошибка активации пользователя ID=%d: %v", userID, result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.Model(&entity.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return repository.ErrAlreadyActive
	}
	return apperrors.ErrNotFound
}

func (r *UserRepo) findOne(query string, arg interface{}) (*entity.User, error) {
	var user entity.User
	err := r.db.Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) exists(query string, arg interface{}) (bool, error) {
	var count int64
	if err := r.db.Model(&entity.User{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// translateUserWriteError превращает unique violation в доменные ошибки
func translateUserWriteError(err error) error {
	if !isUniqueViolation(err) {
		return fmt.Errorf("failed to create user: %w", err)
	}
	switch uniqueViolationConstraint(err) {
	case usersEmailIndex:
		return repository.ErrDuplicateEmail
	case usersUsernameIndex:
		return repository.ErrDuplicateUsername
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
	}
}

var _ repository.UserRepository = (*UserRepo)(nil)
