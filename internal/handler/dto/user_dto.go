package dto

import (
	"time"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/policy"
)

// UserDTO: публичное представление учетной записи
type UserDTO struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserDTO строит UserDTO из сущности
func NewUserDTO(u *entity.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// CurrentUserDTO: учетная запись текущей сессии вместе с разрешенными операциями
type CurrentUserDTO struct {
	UserDTO
	Permissions []policy.Operation `json:"permissions"`
}

// NewCurrentUserDTO строит CurrentUserDTO
func NewCurrentUserDTO(u *entity.User) CurrentUserDTO {
	return CurrentUserDTO{
		UserDTO:     NewUserDTO(u),
		Permissions: policy.AllowedOperations(u.Role),
	}
}
