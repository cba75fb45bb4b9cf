package tag

import (
	"errors"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errEmptyName = errors.New("empty tag name")

type tagWithCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns tags with the number of published public memes under each.
// Tags whose memes are all hidden still show up with a zero count.
func (s *Service) List() ([]tagWithCount, error) {
	var out []tagWithCount
	err := s.db.Model(&models.TagModel{}).
		Select("tags.id, tags.name, COUNT(memes.id) AS count").
		Joins("LEFT JOIN meme_tags ON meme_tags.tag_model_id = tags.id").
		Joins("LEFT JOIN memes ON memes.id = meme_tags.meme_model_id AND memes.state = ? AND memes.is_private = ? AND memes.deleted_at IS NULL",
			models.MemePublished, false).
		Group("tags.id, tags.name").
		Order("count DESC, tags.name ASC").
		Scan(&out).Error
	return out, err
}

// Create adds a tag by name. Names are case-folded to match the meme upload
// path; an existing tag is returned as is.
func (s *Service) Create(name string) (*models.TagModel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errEmptyName
	}
	var tag models.TagModel
	err := s.db.Where("name = ?", name).
		FirstOrCreate(&tag, models.TagModel{Name: name}).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// Rename changes a tag's name, admin surface.
func (s *Service) Rename(id, name string) (*models.TagModel, error) {
	var tag models.TagModel
	if err := s.db.First(&tag, "id = ?", id).Error; err != nil {
		return nil, err
	}
	tag.Name = name
	return &tag, s.db.Model(&tag).Update("name", name).Error
}

// Delete drops the tag and its meme associations.
func (s *Service) Delete(id string) error {
	var tag models.TagModel
	if err := s.db.First(&tag, "id = ?", id).Error; err != nil {
		return err
	}
	if err := s.db.Model(&tag).Association("Memes").Clear(); err != nil {
		return err
	}
	return s.db.Unscoped().Delete(&tag).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/tags")
	g.GET("", h.list)

	mod := g.Group("", authMW, middleware.RequireCapability(models.CapModerate))
	mod.POST("", h.create)
	mod.PUT("/:id", h.rename)
	mod.DELETE("/:id", h.remove)
}

func (h *Handler) create(c *gin.Context) {
	var dto struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tag, err := h.svc.Create(dto.Name)
	if err != nil {
		if errors.Is(err, errEmptyName) {
			response.BadRequest(c, "Имя тега не может быть пустым")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, tag)
}

func (h *Handler) list(c *gin.Context) {
	tags, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tags)
}

func (h *Handler) rename(c *gin.Context) {
	var dto struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tag, err := h.svc.Rename(c.Param("id"), dto.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, tag)
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
