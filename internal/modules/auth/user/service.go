package user

import (
	"errors"

	"github.com/gagikpog/meme-navigator/internal/models"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) Create(dto *CreateUserDTO) (*models.UserModel, error) {
	role := dto.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, errors.New("user: unknown role " + string(role))
	}

	var count int64
	if err := s.db.Model(&models.UserModel{}).
		Where("username = ?", dto.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{
		Username: dto.Username,
		Password: string(hash),
		Name:     name,
		Role:     role,
	}
	return &u, s.db.Create(&u).Error
}

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

// ChangeRole reassigns a user's role. The gate reads roles from the user row,
// so the change applies to already-issued tokens on their next request.
func (s *Service) ChangeRole(id string, role models.Role) (*models.UserModel, error) {
	if !role.Valid() {
		return nil, errors.New("user: unknown role " + string(role))
	}
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	if u.Role == models.RoleAdmin && role != models.RoleAdmin {
		var admins int64
		if err := s.db.Model(&models.UserModel{}).
			Where("role = ? AND blocked = ?", models.RoleAdmin, false).
			Count(&admins).Error; err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, errLastAdmin
		}
	}
	u.Role = role
	return u, s.db.Model(u).Update("role", role).Error
}

// SetBlocked blocks or unblocks a user. Blocking also kills every live
// session so outstanding tokens stop working immediately.
func (s *Service) SetBlocked(id, actorID string, blocked bool) (*models.UserModel, error) {
	if blocked && id == actorID {
		return nil, errSelfBlock
	}
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	if err := s.db.Model(u).Update("blocked", blocked).Error; err != nil {
		return nil, err
	}
	u.Blocked = blocked
	if blocked {
		if err := sessionpkg.DeactivateAllExcept(s.db, id, ""); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ResetPassword sets a new password without the old one (admin action) and
// revokes all sessions of the target user.
func (s *Service) ResetPassword(id string, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res := s.db.Model(&models.UserModel{}).Where("id = ?", id).
		Update("password", string(hash))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return sessionpkg.DeactivateAllExcept(s.db, id, "")
}

// Delete soft-deletes the user and revokes their sessions.
func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.UserModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return sessionpkg.DeactivateAllExcept(s.db, id, "")
}
