package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gagikpog/meme-navigator/internal/modules/notify/push"
	pkgcron "github.com/gagikpog/meme-navigator/internal/pkg/cron"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, pushSvc *push.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_stale_sessions",
		Description: "Удаление сессий, отозванных или истёкших более 30 дней назад",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -30)
			n, err := sessionpkg.PurgeStale(db, cutoff)
			if err != nil {
				cronLogger.Warn("не удалось почистить сессии", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("чистка сессий завершена, удалено %d", n))
			return nil
		},
	})

	if pushSvc != nil {
		sched.Register(pkgcron.Job{
			Name:        "prune_push_subscriptions",
			Description: "Удаление push-подписок мёртвых сессий",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				n, err := pushSvc.PruneOrphans(time.Now())
				if err != nil {
					cronLogger.Warn("не удалось почистить подписки", zap.Error(err))
					return err
				}
				cronLogger.Info(fmt.Sprintf("чистка подписок завершена, удалено %d", n))
				return nil
			},
		})
	}
}
