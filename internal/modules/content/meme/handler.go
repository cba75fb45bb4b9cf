package meme

import (
	"context"
	"errors"
	"image"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/modules/notify/push"
	"github.com/gagikpog/meme-navigator/internal/modules/storage/file"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadSize = 20 << 20 // 20 MiB

type Handler struct {
	svc   *Service
	store *file.Store
	push  *push.Service
	log   *zap.Logger
}

func NewHandler(svc *Service, store *file.Store, pushSvc *push.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, push: pushSvc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/memes")

	g.GET("", middleware.OptionalAuth(h.svc.db), h.list)
	g.GET("/:id", middleware.OptionalAuth(h.svc.db), h.get)

	a := g.Group("", authMW)
	a.POST("", middleware.RequireCapability(models.CapWrite), h.upload)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.remove)

	mod := a.Group("", middleware.RequireCapability(models.CapModerate))
	mod.POST("/:id/publish", h.publish)
	mod.POST("/:id/reject", h.reject)

	a.POST("/:id/like", h.like)
	a.POST("/:id/dislike", h.dislike)
	a.DELETE("/:id/reaction", h.removeReaction)
}

func viewerOf(c *gin.Context) Viewer {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return Viewer{}
	}
	return Viewer{
		UserID:      identity.UserID,
		CanModerate: identity.Can(models.CapModerate),
	}
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Tag:      strings.TrimSpace(c.Query("tag")),
		AuthorID: strings.TrimSpace(c.Query("author")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("state"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "Некорректное состояние: "+raw)
			return
		}
		state := models.MemeState(v)
		q.State = &state
	}

	viewer := viewerOf(c)
	memes, meta, err := h.svc.List(q, pagination.FromContext(c), viewer)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]*memeResponse, len(memes))
	for i := range memes {
		items[i] = toResponse(&memes[i], h.svc.MyReaction(memes[i].ID, viewer.UserID))
	}
	response.Paged(c, items, meta)
}

func (h *Handler) get(c *gin.Context) {
	viewer := viewerOf(c)
	m, err := h.svc.Get(c.Param("id"), viewer)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.svc.RegisterView(m.ID)
	response.OK(c, toResponse(m, h.svc.MyReaction(m.ID, viewer.UserID)))
}

func (h *Handler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Файл не приложен")
		return
	}
	if fileHeader.Size == 0 {
		response.BadRequest(c, errEmptyUpload.Error())
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.BadRequest(c, "Файл слишком большой, максимум 20 МБ")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(src); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	if _, err := src.Seek(0, 0); err != nil {
		src.Close()
		response.InternalError(c, err)
		return
	}

	// Browsers send a Content-Type per part; other clients may not. Sniff a
	// fallback from the name and the first payload bytes.
	head := make([]byte, 512)
	n, _ := src.Read(head)
	mimeType := file.DetectContentType(fileHeader.Filename, head[:n], fileHeader.Header.Get("Content-Type"))
	if _, err := src.Seek(0, 0); err != nil {
		src.Close()
		response.InternalError(c, err)
		return
	}

	name, err := h.store.Save(fileHeader.Filename, src)
	src.Close()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	identity, _ := middleware.CurrentIdentity(c)
	m, err := h.svc.Create(&CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileName:    name,
		MimeType:    mimeType,
		Width:       width,
		Height:      height,
		IsPrivate:   c.PostForm("isPrivate") == "true",
		Tags:        c.PostFormArray("tags"),
		AuthorID:    identity.UserID,
		AutoPublish: identity.Can(models.CapModerate),
	})
	if err != nil {
		if removeErr := h.store.Remove(name); removeErr != nil {
			h.log.Warn("orphan upload cleanup failed",
				zap.String("file", name), zap.Error(removeErr))
		}
		response.InternalError(c, err)
		return
	}

	if m.State == models.MemePublished {
		h.notifyPublished(m, identity.UserID)
	}
	response.Created(c, toResponse(m, 0))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Update(c.Param("id"), viewerOf(c), &dto)
	if err != nil {
		h.renderError(c, err)
		return
	}
	viewer := viewerOf(c)
	response.OK(c, toResponse(m, h.svc.MyReaction(m.ID, viewer.UserID)))
}

func (h *Handler) remove(c *gin.Context) {
	fileName, err := h.svc.Delete(c.Param("id"), viewerOf(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if err := h.store.Remove(fileName); err != nil && !errors.Is(err, file.ErrNotFound) {
		h.log.Warn("deleting meme file failed",
			zap.String("file", fileName), zap.Error(err))
	}
	response.NoContent(c)
}

func (h *Handler) publish(c *gin.Context) {
	m, err := h.svc.SetState(c.Param("id"), models.MemePublished)
	if err != nil {
		h.renderError(c, err)
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	h.notifyPublished(m, identity.UserID)
	response.OK(c, toResponse(m, 0))
}

func (h *Handler) reject(c *gin.Context) {
	m, err := h.svc.SetState(c.Param("id"), models.MemeRejected)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, toResponse(m, 0))
}

func (h *Handler) like(c *gin.Context)    { h.react(c, models.ReactionLike) }
func (h *Handler) dislike(c *gin.Context) { h.react(c, models.ReactionDislike) }

func (h *Handler) react(c *gin.Context, kind models.ReactionKind) {
	identity, _ := middleware.CurrentIdentity(c)
	m, err := h.svc.React(c.Param("id"), identity.UserID, kind)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, toResponse(m, h.svc.MyReaction(m.ID, identity.UserID)))
}

func (h *Handler) removeReaction(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	m, err := h.svc.RemoveReaction(c.Param("id"), identity.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.OK(c, toResponse(m, 0))
}

// notifyPublished fans the "new meme" push out in the background. Private
// memes only reach staff; the acting user never notifies themselves.
func (h *Handler) notifyPublished(m *models.MemeModel, actorID string) {
	if h.push == nil {
		return
	}
	filter := push.Everyone()
	if m.IsPrivate {
		filter = push.ForRoles(models.StaffRoles()...)
	}
	filter = filter.ExcludingUser(actorID)

	msg := push.Message{
		Title: "Новый мем",
		Body:  m.Title,
		URL:   "/memes/" + m.ID,
		Tag:   "meme-" + m.ID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stats, err := h.push.Dispatch(ctx, msg, filter)
		if err != nil {
			h.log.Warn("meme publish notification failed",
				zap.String("meme", m.ID), zap.Error(err))
			return
		}
		h.log.Info("meme publish notification sent",
			zap.String("meme", m.ID),
			zap.Int("targets", stats.Targets),
			zap.Int("sent", stats.Sent))
	}()
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrNotAllowed):
		response.Forbidden(c)
	case errors.Is(err, ErrBadState):
		response.Conflict(c, "Нельзя вернуть опубликованный мем на модерацию")
	default:
		response.InternalError(c, err)
	}
}
