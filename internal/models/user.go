package models

import "time"

// UserModel represents an account. Accounts are never hard-deleted: a blocked
// account keeps its content but fails the access gate.
type UserModel struct {
	Base
	Username      string     `json:"username"        gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Password      string     `json:"-"               gorm:"not null"`
	Role          Role       `json:"role"            gorm:"type:varchar(16);default:'user';not null;index"`
	Blocked       bool       `json:"blocked"         gorm:"default:false"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
