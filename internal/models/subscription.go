package models

// SubscriptionModel is a Web Push subscription registered by a browser.
// UserID/SessionID tie it to the login that created it: a subscription whose
// session is no longer active is never targeted, and the prune job removes it.
type SubscriptionModel struct {
	Base
	Endpoint  string  `json:"endpoint"   gorm:"uniqueIndex;not null"`
	P256DH    string  `json:"-"          gorm:"column:p256dh;not null"`
	Auth      string  `json:"-"          gorm:"not null"`
	UserID    *string `json:"user_id"    gorm:"index"`
	SessionID *string `json:"session_id" gorm:"index"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }
