package jwt

import (
	"fmt"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "meme-navigator-secret-change-me"

// DefaultTTL is the token lifetime. Tokens live long; server-side session
// revocation is the real expiry mechanism.
const DefaultTTL = 90 * 24 * time.Hour

var secret = []byte(defaultSecret)

// SetSecret configures the JWT signing secret (call on startup).
func SetSecret(s string) {
	if s != "" {
		secret = []byte(s)
	}
}

// Claims is the JWT payload. SessionID and DeviceID bind the token to a
// specific login: signature verification alone never grants access.
type Claims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	DeviceID  string `json:"did"`
	jwtlib.RegisteredClaims
}

// Identity is the payload handed to Sign.
type Identity struct {
	UserID    string
	SessionID string
	Username  string
	Role      models.Role
	DeviceID  string
}

// Sign creates a signed token for the given identity.
func Sign(id Identity, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		Username:  id.Username,
		Role:      string(id.Role),
		DeviceID:  id.DeviceID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse validates signature and expiry and returns the claims. It does NOT
// check session liveness; that is the access gate's job.
func Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
