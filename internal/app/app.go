package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gagikpog/meme-navigator/internal/config"
	"github.com/gagikpog/meme-navigator/internal/database"
	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/modules/notify/push"
	"github.com/gagikpog/meme-navigator/internal/modules/storage/file"
	pkgcron "github.com/gagikpog/meme-navigator/internal/pkg/cron"
	jwtpkg "github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	pkgredis "github.com/gagikpog/meme-navigator/internal/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	store  *file.Store
	push   *push.Service
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	store, err := file.NewStore(cfg.StaticDir())
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}

	var pushSvc *push.Service
	if cfg.WebPush.Enabled() {
		pushSvc = push.NewService(db, push.NewWebPushTransport(cfg.WebPush), logger.Named("PushService"))
	} else {
		logger.Info("web push is not configured, notifications disabled")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "device-id"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	registerCronJobs(sched, db, pushSvc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		store:  store,
		push:   pushSvc,
		logger: logger,
		cancel: cancel,
		sched:  sched,
	}
	app.registerRoutes(rc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

func (a *App) cfgStartTime() time.Time {
	return processStart
}

var processStart = time.Now()
