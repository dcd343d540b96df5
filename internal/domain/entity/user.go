package entity

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role: уровень доступа учетной записи
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// MaxPasswordBytes: предел bcrypt, более длинные пароли GenerateFromPassword отвергает
const MaxPasswordBytes = 72

// Roles перечисляет все допустимые роли
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}

// IsValid проверяет, что роль входит в перечисление
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// User представляет учетную запись пользователя
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:150;not null;uniqueIndex:idx_users_username" json:"username"`
	Email    string `gorm:"size:254;not null;uniqueIndex:idx_users_email" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	Role     Role   `gorm:"size:20;not null;default:'user'" json:"role"`
	// IsActive выставляется только после подтверждения email кодом
	IsActive bool `gorm:"not null;default:false" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate хеширует пароль новой учетной записи.
// Пароль приходит только в открытом виде, поэтому хешируется всегда.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[User.BeforeCreate] Ошибка при хешировании пароля для username=%s: %v", u.Username, err)
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
