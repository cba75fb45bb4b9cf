package subscription

import (
	"testing"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SubscriptionModel{}))
	return NewService(db)
}

func registerDTO(endpoint string) *RegisterDTO {
	dto := &RegisterDTO{Endpoint: endpoint}
	dto.Keys.P256DH = "p256dh"
	dto.Keys.Auth = "auth"
	return dto
}

func TestRegisterRebindsExistingEndpoint(t *testing.T) {
	svc := newService(t)

	first, err := svc.Register("user-1", "session-1", registerDTO("https://push/e1"))
	require.NoError(t, err)

	// Same browser, new login: the row is rebound, not duplicated.
	second, err := svc.Register("user-2", "session-2", registerDTO("https://push/e1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "user-2", *second.UserID)
	assert.Equal(t, "session-2", *second.SessionID)

	var count int64
	require.NoError(t, svc.db.Model(&models.SubscriptionModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUnregisterScopedToOwner(t *testing.T) {
	svc := newService(t)
	_, err := svc.Register("user-1", "session-1", registerDTO("https://push/e1"))
	require.NoError(t, err)

	err = svc.Unregister("user-2", "https://push/e1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, svc.Unregister("user-1", "https://push/e1"))

	subs, err := svc.ListForUser("user-1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
