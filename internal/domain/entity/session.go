package entity

import "time"

// Session: аутентифицированная сессия, привязанная к учетной записи.
// Хранится в Redis до истечения ExpiresAt или явного выхода.
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired проверяет, истекла ли сессия
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
