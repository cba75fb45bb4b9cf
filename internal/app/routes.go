package app

import (
	"net/http"
	"time"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/modules/auth/auth"
	"github.com/gagikpog/meme-navigator/internal/modules/auth/user"
	"github.com/gagikpog/meme-navigator/internal/modules/content/comment"
	"github.com/gagikpog/meme-navigator/internal/modules/content/meme"
	"github.com/gagikpog/meme-navigator/internal/modules/content/tag"
	"github.com/gagikpog/meme-navigator/internal/modules/notify/subscription"
	"github.com/gagikpog/meme-navigator/internal/modules/storage/file"
	"github.com/gagikpog/meme-navigator/internal/modules/syndication/feed"
	pkgredis "github.com/gagikpog/meme-navigator/internal/pkg/redis"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)
	// Media and feed URLs are loaded by <img> tags and feed readers, which
	// cannot attach the device-id header. The token still has to belong to
	// a live session.
	devicelessMW := middleware.AuthNoDevice(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "meme-navigator",
		"author":   "gagikpog <https://gagikpog.ru>",
		"version":  "1.0.0",
		"homepage": "https://github.com/gagikpog/meme-navigator",
		"issues":   "https://github.com/gagikpog/meme-navigator/issues",
	}

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	// Feeds live both at the root and under the API prefix.
	root := r.Group("")
	feed.RegisterRoutes(root, db, a.cfg, devicelessMW)

	api := r.Group(apiPrefix)
	feed.RegisterRoutes(api, db, a.cfg, devicelessMW)

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(a.cfgStartTime()).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	// Auth & users
	tokenTTL := time.Duration(a.cfg.TokenTTLDays) * 24 * time.Hour
	auth.NewHandler(auth.NewService(db, tokenTTL)).RegisterRoutes(api, authMW)
	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW)

	// Content
	memeSvc := meme.NewService(db)
	meme.NewHandler(memeSvc, a.store, a.push, a.logger.Named("MemeModule")).RegisterRoutes(api, authMW)
	tag.NewHandler(tag.NewService(db)).RegisterRoutes(api, authMW)
	comment.NewHandler(comment.NewService(db, memeSvc)).RegisterRoutes(api, authMW)

	// Push subscriptions
	subscription.NewHandler(subscription.NewService(db), a.cfg.WebPush).RegisterRoutes(api, authMW)

	// Uploaded media
	file.NewHandler(a.store).RegisterRoutes(api, devicelessMW)
}
