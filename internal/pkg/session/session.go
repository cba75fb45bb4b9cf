package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	"gorm.io/gorm"
)

// DefaultTTL matches the token lifetime.
const DefaultTTL = 90 * 24 * time.Hour

// Meta carries request metadata recorded on the session row.
type Meta struct {
	IP string
	UA string
}

// upsertMu guards the lookup-then-create in Upsert. The schema has no unique
// constraint on (user_id, device_id), so two racing statements could each
// miss the lookup and both insert.
var upsertMu sync.Mutex

// Upsert returns the active session for (userID, deviceID), refreshing its
// activity and expiry, or creates one. The session id is preserved on reuse,
// so tokens issued before a re-login on the same device stay valid. Racing
// logins from the same device converge on one row.
func Upsert(db *gorm.DB, userID, deviceID string, meta Meta, ttl time.Duration) (*models.UserSession, error) {
	upsertMu.Lock()
	defer upsertMu.Unlock()

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()

	var s models.UserSession
	err := db.Where("user_id = ? AND device_id = ? AND revoked_at IS NULL AND expires_at > ?",
		userID, deviceID, now).
		Order("created_at DESC").
		First(&s).Error
	if err == nil {
		updates := map[string]interface{}{
			"last_active": now,
			"expires_at":  now.Add(ttl),
			"ip":          strings.TrimSpace(meta.IP),
			"ua":          strings.TrimSpace(meta.UA),
		}
		if err := db.Model(&s).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.LastActive = now
		s.ExpiresAt = now.Add(ttl)
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = models.UserSession{
		UserID:     userID,
		DeviceID:   deviceID,
		IP:         strings.TrimSpace(meta.IP),
		UA:         strings.TrimSpace(meta.UA),
		LastActive: now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// IsActive reports whether sessionID is the live session for the given user
// and device. A token whose session row was replaced or revoked fails here.
func IsActive(db *gorm.DB, sessionID, userID, deviceID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, nil
	}

	var count int64
	err := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND device_id = ? AND revoked_at IS NULL AND expires_at > ?",
			sessionID, userID, deviceID, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Touch advances last_active. Advisory: errors are dropped.
func Touch(db *gorm.DB, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	_ = db.Model(&models.UserSession{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("last_active", time.Now()).Error
}

// Deactivate revokes the active session for (userID, deviceID). Idempotent:
// deactivating an already-inactive session is a no-op.
func Deactivate(db *gorm.DB, userID, deviceID string) error {
	now := time.Now()
	return db.Model(&models.UserSession{}).
		Where("user_id = ? AND device_id = ? AND revoked_at IS NULL", userID, deviceID).
		Update("revoked_at", &now).Error
}

// DeactivateByID revokes a specific session owned by userID. Unlike
// Deactivate this reports a missing row, so the sessions UI can 404.
func DeactivateByID(db *gorm.DB, userID, sessionID string) error {
	now := time.Now()
	res := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateAllExcept revokes every active session of userID except
// keepSessionID ("sign out other devices").
func DeactivateAllExcept(db *gorm.DB, userID, keepSessionID string) error {
	now := time.Now()
	query := db.Model(&models.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if strings.TrimSpace(keepSessionID) != "" {
		query = query.Where("id <> ?", keepSessionID)
	}
	return query.Update("revoked_at", &now).Error
}

// ListActive returns the user's live sessions, most recently used first.
func ListActive(db *gorm.DB, userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := db.Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("last_active DESC, created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// PurgeStale hard-deletes sessions revoked or expired before cutoff.
func PurgeStale(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Unscoped().
		Where("(revoked_at IS NOT NULL AND revoked_at < ?) OR expires_at < ?", cutoff, cutoff).
		Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
