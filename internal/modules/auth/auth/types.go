package auth

import (
	"errors"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
)

var (
	errUserNotFound  = errors.New("auth: user not found")
	errWrongPassword = errors.New("auth: wrong password")
	errUserBlocked   = errors.New("auth: user blocked")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Avatar   string      `json:"avatar"`
	Role     models.Role `json:"role"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"deviceId"`
	IP         string    `json:"ip"`
	UA         string    `json:"userAgent"`
	Current    bool      `json:"current"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Created    time.Time `json:"created"`
}

func toUserResponse(u *models.UserModel) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
		Role:     u.Role,
	}
}
