package user

import (
	"errors"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/users", authMW)

	g.PATCH("/profile", h.updateProfile)

	admin := g.Group("", middleware.RequireCapability(models.CapAdmin))
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.GET("/:id", h.get)
	admin.PUT("/:id/role", h.changeRole)
	admin.POST("/:id/block", h.block)
	admin.POST("/:id/unblock", h.unblock)
	admin.PUT("/:id/password", h.resetPassword)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	query := h.svc.db.Model(&models.UserModel{}).Order("created_at ASC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.UserModel
	page, err := pagination.Paginate(query, q, &users)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]*userResponse, len(users))
	for i := range users {
		items[i] = toResponse(&users[i])
	}
	response.Paged(c, items, page)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			response.Conflict(c, "Такой логин уже занят")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	u, err := h.svc.UpdateProfile(identity.UserID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) changeRole(c *gin.Context) {
	var dto ChangeRoleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.ChangeRole(c.Param("id"), dto.Role)
	if err != nil {
		if errors.Is(err, errLastAdmin) {
			response.Conflict(c, "Нельзя снять роль у последнего администратора")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) block(c *gin.Context)   { h.setBlocked(c, true) }
func (h *Handler) unblock(c *gin.Context) { h.setBlocked(c, false) }

func (h *Handler) setBlocked(c *gin.Context, blocked bool) {
	identity, _ := middleware.CurrentIdentity(c)
	u, err := h.svc.SetBlocked(c.Param("id"), identity.UserID, blocked)
	if err != nil {
		if errors.Is(err, errSelfBlock) {
			response.Conflict(c, "Нельзя заблокировать самого себя")
			return
		}
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) resetPassword(c *gin.Context) {
	var dto ResetPasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ResetPassword(c.Param("id"), dto.Password); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
