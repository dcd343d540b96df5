package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BeforeCreate не использует tx, поэтому достаточно nil
var mockTx *gorm.DB = nil

func TestUser_BeforeCreate_HashesPassword(t *testing.T) {
	plainPassword := "Secret123"
	user := &User{Username: "alice", Email: "alice@x.com", Password: plainPassword}

	err := user.BeforeCreate(mockTx)

	require.NoError(t, err)
	assert.NotEqual(t, plainPassword, user.Password, "Пароль должен быть хеширован")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plainPassword)))
}

func TestUser_BeforeCreate_HashesBcryptLookingPassword(t *testing.T) {
	// Пользователь может выбрать пароль с префиксом bcrypt: он все равно хешируется
	plainPassword := "$2a$10$mypassword"
	user := &User{Username: "alice", Password: plainPassword}

	require.NoError(t, user.BeforeCreate(mockTx))

	assert.NotEqual(t, plainPassword, user.Password)
	assert.True(t, user.CheckPassword(plainPassword), "С таким паролем должен быть возможен вход")
}

func TestUser_BeforeCreate_SkipsEmptyPassword(t *testing.T) {
	user := &User{Username: "alice"}

	require.NoError(t, user.BeforeCreate(mockTx))

	assert.Empty(t, user.Password)
}

func TestUser_BeforeCreate_RejectsPasswordOverBcryptLimit(t *testing.T) {
	user := &User{Username: "alice", Password: strings.Repeat("a", MaxPasswordBytes+1)}

	assert.Error(t, user.BeforeCreate(mockTx))
}

func TestUser_CheckPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{Password: string(hashed)}

	assert.True(t, user.CheckPassword("Secret123"))
	assert.False(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword(""))
}

func TestRole_IsValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.IsValid(), "роль %q должна быть допустимой", r)
	}
	assert.False(t, Role("root").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestUser_TableName(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName())
}
