package user

import (
	"errors"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
)

var (
	errUsernameTaken = errors.New("user: username already taken")
	errLastAdmin     = errors.New("user: cannot demote the last admin")
	errSelfBlock     = errors.New("user: cannot block yourself")
)

type CreateUserDTO struct {
	Username string      `json:"username" binding:"required,min=3"`
	Password string      `json:"password" binding:"required,min=6"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

type UpdateProfileDTO struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type ChangeRoleDTO struct {
	Role models.Role `json:"role" binding:"required"`
}

type ResetPasswordDTO struct {
	Password string `json:"password" binding:"required,min=6"`
}

type userResponse struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Name          string      `json:"name"`
	Avatar        string      `json:"avatar"`
	Role          models.Role `json:"role"`
	Blocked       bool        `json:"blocked"`
	LastLoginTime *time.Time  `json:"lastLoginTime,omitempty"`
	Created       time.Time   `json:"created"`
}
