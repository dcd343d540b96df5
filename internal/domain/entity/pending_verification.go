package entity

import "time"

// MaxVerificationAttempts: сколько неверных кодов допускается до удаления записи
const MaxVerificationAttempts = 3

// PendingVerification хранит одноразовый код регистрации до подтверждения email.
// Живет в Redis, ключ: username.
type PendingVerification struct {
	Username  string    `json:"username"`
	Code      string    `json:"-"`
	Attempts  int       `json:"attempts"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptsExhausted возвращает true, если лимит попыток исчерпан
func (p *PendingVerification) AttemptsExhausted() bool {
	return p.Attempts >= MaxVerificationAttempts
}

// RemainingAttempts возвращает количество оставшихся попыток (не меньше 0)
func (p *PendingVerification) RemainingAttempts() int {
	remaining := MaxVerificationAttempts - p.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
