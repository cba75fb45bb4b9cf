package auth

import (
	"errors"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	jwtpkg "github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewService(db *gorm.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = sessionpkg.DefaultTTL
	}
	return &Service{db: db, ttl: ttl}
}

// Login verifies credentials and issues a device-bound token. The session row
// for (user, device) is reused when one is still live, so earlier tokens from
// the same device keep working after a re-login.
func (s *Service) Login(username, password, deviceID string, meta sessionpkg.Meta) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same delay as a wrong password so the two cases are
			// indistinguishable from the outside.
			time.Sleep(3 * time.Second)
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", nil, errWrongPassword
	}
	if u.Blocked {
		return "", nil, errUserBlocked
	}

	sess, err := sessionpkg.Upsert(s.db, u.ID, deviceID, meta, s.ttl)
	if err != nil {
		return "", nil, err
	}

	token, err := jwtpkg.Sign(jwtpkg.Identity{
		UserID:    u.ID,
		SessionID: sess.ID,
		Username:  u.Username,
		Role:      u.Role,
		DeviceID:  deviceID,
	}, s.ttl)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	_ = s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": &now,
		"last_login_ip":   meta.IP,
	}).Error

	return token, &u, nil
}

// Logout revokes the active session for the calling device. Idempotent.
func (s *Service) Logout(userID, deviceID string) error {
	return sessionpkg.Deactivate(s.db, userID, deviceID)
}

func (s *Service) Sessions(userID string) ([]models.UserSession, error) {
	return sessionpkg.ListActive(s.db, userID)
}

func (s *Service) RevokeSession(userID, sessionID string) error {
	return sessionpkg.DeactivateByID(s.db, userID, sessionID)
}

func (s *Service) RevokeOtherSessions(userID, keepSessionID string) error {
	return sessionpkg.DeactivateAllExcept(s.db, userID, keepSessionID)
}

// ChangePassword verifies the old password, stores the new hash and kills
// every other session: a leaked password must not keep working elsewhere.
func (s *Service) ChangePassword(userID, keepSessionID string, dto *ChangePasswordDTO) error {
	var u models.UserModel
	if err := s.db.Select("id, password").Where("id = ?", userID).First(&u).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.OldPassword)); err != nil {
		return errWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.UserModel{}).Where("id = ?", userID).
		Update("password", string(hash)).Error; err != nil {
		return err
	}
	return sessionpkg.DeactivateAllExcept(s.db, userID, keepSessionID)
}

func (s *Service) Profile(userID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
