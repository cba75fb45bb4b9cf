package user

import "github.com/gagikpog/meme-navigator/internal/models"

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		Avatar:        u.Avatar,
		Role:          u.Role,
		Blocked:       u.Blocked,
		LastLoginTime: u.LastLoginTime,
		Created:       u.CreatedAt,
	}
}
