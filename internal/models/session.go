package models

import "time"

// UserSession tracks signed-in JWT sessions per device. Tokens embed the
// session id, so deactivating the row revokes every token issued against it.
// At most one active row may exist for a (user_id, device_id) pair; re-login
// on the same device refreshes the existing row instead of inserting.
type UserSession struct {
	Base
	UserID     string     `json:"user_id"     gorm:"index:idx_sessions_user_device;not null"`
	DeviceID   string     `json:"device_id"   gorm:"index:idx_sessions_user_device;not null"`
	IP         string     `json:"ip"`
	UA         string     `json:"ua"          gorm:"type:text"`
	LastActive time.Time  `json:"last_active"`
	ExpiresAt  time.Time  `json:"expires_at"  gorm:"index;not null"`
	RevokedAt  *time.Time `json:"revoked_at"  gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }

// Active reports whether the session passes the liveness check at time now.
func (s UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
