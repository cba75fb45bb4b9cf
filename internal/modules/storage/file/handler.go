package file

import (
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler serves stored meme images. Upload happens through the meme module;
// this surface is read-only.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler { return &Handler{store: store} }

// RegisterRoutes mounts the file routes. authMW should be the no-device gate:
// <img> tags cannot send custom headers, so tokens arrive via the
// authorization query parameter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/files", authMW)
	g.GET("/:name", h.get)
}

func (h *Handler) get(c *gin.Context) {
	path, err := h.store.Path(c.Param("name"))
	if err != nil {
		response.NotFound(c)
		return
	}
	// Generated names never change content, safe to cache hard.
	c.Header("Cache-Control", "private, max-age=31536000, immutable")
	c.File(path)
}
