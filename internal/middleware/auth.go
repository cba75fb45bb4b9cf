package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	contextKeyIdentity = "auth_identity"
	deviceIDHeader     = "device-id"
)

// Identity is the verified caller attached to the request after the gate
// passes. It is stored once and never mutated.
type Identity struct {
	UserID    string
	SessionID string
	Username  string
	Role      models.Role
	DeviceID  string
}

// Can reports whether the identity's role grants the capability.
func (id Identity) Can(cap models.Capability) bool {
	return models.Capabilities(id.Role).Has(cap)
}

// GateKind classifies access gate failures.
type GateKind string

const (
	KindUnauthenticated  GateKind = "unauthenticated"
	KindInvalidToken     GateKind = "invalid_token"
	KindDeviceMismatch   GateKind = "device_mismatch"
	KindUserNotFound     GateKind = "user_not_found"
	KindAccountBlocked   GateKind = "account_blocked"
	KindSessionExpired   GateKind = "session_expired"
	KindInsufficientRole GateKind = "insufficient_role"
	KindStoreError       GateKind = "store_error"
)

// GateError is a terminal access gate failure: the request stops at the
// failing stage, nothing downstream runs.
type GateError struct {
	Kind    GateKind
	Status  int
	Message string
}

func (e *GateError) Error() string { return string(e.Kind) + ": " + e.Message }

var (
	errUnauthenticated = &GateError{KindUnauthenticated, http.StatusUnauthorized, "Требуется авторизация"}
	errInvalidToken    = &GateError{KindInvalidToken, http.StatusForbidden, "Недействительный токен"}
	errDeviceMismatch  = &GateError{KindDeviceMismatch, http.StatusUnauthorized, "Токен выдан для другого устройства"}
	errUserNotFound    = &GateError{KindUserNotFound, http.StatusNotFound, "Пользователь не найден"}
	errAccountBlocked  = &GateError{KindAccountBlocked, http.StatusForbidden, "Аккаунт заблокирован"}
	errSessionExpired  = &GateError{KindSessionExpired, http.StatusUnauthorized, "Сессия истекла, войдите заново"}
	errInsufficient    = &GateError{KindInsufficientRole, http.StatusForbidden, "Недостаточно прав"}
	errStore           = &GateError{KindStoreError, http.StatusInternalServerError, "Внутренняя ошибка сервера"}
)

// Auth returns the full access gate: token presence, signature, device
// binding, account status, then session liveness, short-circuiting on the
// first failure.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return gate(db, true)
}

// AuthNoDevice is the gate variant without the device-binding stage, for
// requests that cannot send custom headers (image tags, RSS readers).
func AuthNoDevice(db *gorm.DB) gin.HandlerFunc {
	return gate(db, false)
}

func gate(db *gorm.DB, bindDevice bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, gateErr := runGate(db, c, bindDevice)
		if gateErr != nil {
			response.Error(c, gateErr.Status, gateErr.Message)
			return
		}
		c.Set(contextKeyIdentity, identity)
		sessionpkg.Touch(db, identity.SessionID)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present but never
// blocks the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, gateErr := runGate(db, c, false); gateErr == nil {
			c.Set(contextKeyIdentity, identity)
			sessionpkg.Touch(db, identity.SessionID)
		}
		c.Next()
	}
}

// RequireCapability layers the role policy on top of an auth gate. Mount it
// after Auth/AuthNoDevice.
func RequireCapability(cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Error(c, errUnauthenticated.Status, errUnauthenticated.Message)
			return
		}
		if !identity.Can(cap) {
			response.Error(c, errInsufficient.Status, errInsufficient.Message)
			return
		}
		c.Next()
	}
}

// runGate executes the five gate stages in order. The stage order is load
// bearing: account status is checked before session liveness, so a blocked
// user always sees AccountBlocked even after logout.
func runGate(db *gorm.DB, c *gin.Context, bindDevice bool) (Identity, *GateError) {
	// Stage 1: token presence.
	token := extractToken(c)
	if token == "" {
		return Identity{}, errUnauthenticated
	}

	// Stage 2: signature and expiry.
	claims, err := jwt.Parse(token)
	if err != nil {
		return Identity{}, errInvalidToken
	}

	// Stage 3: device binding.
	if bindDevice {
		if device := strings.TrimSpace(c.GetHeader(deviceIDHeader)); device != claims.DeviceID {
			return Identity{}, errDeviceMismatch
		}
	}

	// Stage 4: account status.
	var user models.UserModel
	if err := db.Select("id, username, role, blocked").
		First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, errUserNotFound
		}
		return Identity{}, errStore
	}
	if user.Blocked {
		return Identity{}, errAccountBlocked
	}

	// Stage 5: session liveness. The token's session id must be the current
	// active session for this user+device; stale tokens from before a
	// logout/re-login cycle die here despite a valid signature.
	active, err := sessionpkg.IsActive(db, claims.SessionID, claims.UserID, claims.DeviceID)
	if err != nil {
		return Identity{}, errStore
	}
	if !active {
		return Identity{}, errSessionExpired
	}

	return Identity{
		UserID:    user.ID,
		SessionID: claims.SessionID,
		Username:  user.Username,
		Role:      user.Role,
		DeviceID:  claims.DeviceID,
	}, nil
}

// CurrentIdentity extracts the verified identity from the request context.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// IsAuthenticated reports whether the request carries a verified identity.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := CurrentIdentity(c)
	return ok
}

// extractToken reads the bearer token from the Authorization header or, for
// contexts that cannot set headers (feed URLs), the authorization query
// parameter.
func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("authorization"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
