package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	id := Identity{
		UserID:    "u-1",
		SessionID: "s-1",
		Username:  "gagik",
		Role:      models.RoleAdmin,
		DeviceID:  "device-abc",
	}
	token, err := Sign(id, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, id.SessionID, claims.SessionID)
	assert.Equal(t, id.Username, claims.Username)
	assert.Equal(t, string(id.Role), claims.Role)
	assert.Equal(t, id.DeviceID, claims.DeviceID)
}

func TestParseRejectsTampered(t *testing.T) {
	token, err := Sign(Identity{UserID: "u-1", Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[2] = strings.Repeat("A", len(parts[2]))

	_, err = Parse(strings.Join(parts, "."))
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Sign(Identity{UserID: "u-1", Role: models.RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-token")
	assert.Error(t, err)
}
