package subscription

import (
	"errors"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/config"
	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterDTO struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

type UnregisterDTO struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Register stores a browser push subscription bound to the caller's user and
// session. Re-registering an endpoint rebinds it: browsers reuse endpoints
// across logins, and the subscription must follow the latest owner.
func (s *Service) Register(userID, sessionID string, dto *RegisterDTO) (*models.SubscriptionModel, error) {
	endpoint := strings.TrimSpace(dto.Endpoint)

	var sub models.SubscriptionModel
	err := s.db.Where("endpoint = ?", endpoint).First(&sub).Error
	if err == nil {
		sub.P256DH = dto.Keys.P256DH
		sub.Auth = dto.Keys.Auth
		sub.UserID = &userID
		sub.SessionID = &sessionID
		return &sub, s.db.Save(&sub).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = models.SubscriptionModel{
		Endpoint:  endpoint,
		P256DH:    dto.Keys.P256DH,
		Auth:      dto.Keys.Auth,
		UserID:    &userID,
		SessionID: &sessionID,
	}
	return &sub, s.db.Create(&sub).Error
}

// Unregister removes the caller's subscription for the endpoint. Scoped to
// the owning user so one client cannot drop another's channel.
func (s *Service) Unregister(userID, endpoint string) error {
	res := s.db.Unscoped().
		Where("endpoint = ? AND user_id = ?", strings.TrimSpace(endpoint), userID).
		Delete(&models.SubscriptionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) ListForUser(userID string) ([]models.SubscriptionModel, error) {
	var subs []models.SubscriptionModel
	err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&subs).Error
	return subs, err
}

type Handler struct {
	svc     *Service
	webPush config.WebPushConfig
}

func NewHandler(svc *Service, webPush config.WebPushConfig) *Handler {
	return &Handler{svc: svc, webPush: webPush}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/subscriptions")

	g.GET("/public-key", h.publicKey)

	a := g.Group("", authMW)
	a.GET("", h.list)
	a.POST("", h.register)
	a.DELETE("", h.unregister)
}

func (h *Handler) publicKey(c *gin.Context) {
	if !h.webPush.Enabled() {
		response.NotFoundMsg(c, "Push-уведомления выключены")
		return
	}
	response.OK(c, gin.H{"publicKey": h.webPush.VAPIDPublicKey})
}

func (h *Handler) list(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	subs, err := h.svc.ListForUser(identity.UserID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		items = append(items, gin.H{
			"id":       sub.ID,
			"endpoint": sub.Endpoint,
			"current":  sub.SessionID != nil && *sub.SessionID == identity.SessionID,
			"created":  sub.CreatedAt,
		})
	}
	response.OK(c, items)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	sub, err := h.svc.Register(identity.UserID, identity.SessionID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"id": sub.ID, "endpoint": sub.Endpoint})
}

func (h *Handler) unregister(c *gin.Context) {
	var dto UnregisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.Unregister(identity.UserID, dto.Endpoint); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "Подписка не найдена")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
