package auth

import (
	"errors"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", h.login)
	a.POST("/logout", authMW, h.logout)
	a.GET("/me", authMW, h.me)
	a.POST("/change-password", authMW, h.changePassword)
	a.GET("/sessions", authMW, h.listSessions)
	a.DELETE("/sessions/:id", authMW, h.revokeSession)
	a.POST("/sessions/revoke-others", authMW, h.revokeOtherSessions)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	deviceID := strings.TrimSpace(c.GetHeader("device-id"))
	if deviceID == "" {
		response.BadRequest(c, "Заголовок device-id обязателен")
		return
	}

	meta := sessionpkg.Meta{IP: c.ClientIP(), UA: c.Request.UserAgent()}
	token, user, err := h.svc.Login(dto.Username, dto.Password, deviceID, meta)
	if err != nil {
		switch {
		case errors.Is(err, errUserNotFound), errors.Is(err, errWrongPassword):
			response.ForbiddenMsg(c, "Неверный логин или пароль")
		case errors.Is(err, errUserBlocked):
			response.ForbiddenMsg(c, "Аккаунт заблокирован")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, loginResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) logout(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.Logout(identity.UserID, identity.DeviceID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}

func (h *Handler) me(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	user, err := h.svc.Profile(identity.UserID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toUserResponse(user))
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.ChangePassword(identity.UserID, identity.SessionID, &dto); err != nil {
		if errors.Is(err, errWrongPassword) {
			response.ForbiddenMsg(c, "Старый пароль не подходит")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}

func (h *Handler) listSessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	sessions, err := h.svc.Sessions(identity.UserID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionResponse{
			ID:         s.ID,
			DeviceID:   s.DeviceID,
			IP:         s.IP,
			UA:         s.UA,
			Current:    s.ID == identity.SessionID,
			LastActive: s.LastActive,
			ExpiresAt:  s.ExpiresAt,
			Created:    s.CreatedAt,
		})
	}
	response.OK(c, items)
}

func (h *Handler) revokeSession(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.RevokeSession(identity.UserID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "Сессия не найдена")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}

func (h *Handler) revokeOtherSessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.RevokeOtherSessions(identity.UserID, identity.SessionID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}
