package comment

import (
	"errors"
	"strconv"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/modules/content/meme"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/memes/:id/comments", middleware.OptionalAuth(h.svc.db), h.listByMeme)

	a := rg.Group("/comments", authMW)
	a.POST("/meme/:id", h.create)
	a.POST("/:id/reply", h.reply)
	a.DELETE("/:id", h.remove)

	mod := a.Group("", middleware.RequireCapability(models.CapModerate))
	mod.PATCH("/:id/state", h.updateState)
}

func viewerOf(c *gin.Context) meme.Viewer {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return meme.Viewer{}
	}
	return meme.Viewer{
		UserID:      identity.UserID,
		CanModerate: identity.Can(models.CapModerate),
	}
}

func (h *Handler) listByMeme(c *gin.Context) {
	comments, meta, err := h.svc.ListByMeme(c.Param("id"), viewerOf(c), pagination.FromContext(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	items := make([]*commentResponse, len(comments))
	for i := range comments {
		items[i] = toResponse(&comments[i])
	}
	response.Paged(c, items, meta)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	created, err := h.svc.Create(c.Param("id"), viewerOf(c), &dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Created(c, toResponse(created))
}

func (h *Handler) reply(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	created, err := h.svc.Reply(c.Param("id"), viewerOf(c), &dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Created(c, toResponse(created))
}

func (h *Handler) updateState(c *gin.Context) {
	var dto struct {
		State int `json:"state"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	state := models.CommentState(dto.State)
	switch state {
	case models.CommentUnread, models.CommentRead, models.CommentJunk:
	default:
		response.BadRequest(c, "Некорректное состояние: "+strconv.Itoa(dto.State))
		return
	}
	updated, err := h.svc.UpdateState(c.Param("id"), state)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, toResponse(updated))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id"), viewerOf(c)); err != nil {
		h.renderError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meme.ErrNotFound), errors.Is(err, errParentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case errors.Is(err, errNotAllowed):
		response.Forbidden(c)
	case errors.Is(err, errTooDeep):
		response.UnprocessableEntity(c, "Слишком глубокая ветка ответов")
	default:
		response.InternalError(c, err)
	}
}
