package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errPushRejected = errors.New("push: endpoint rejected notification")

const dispatchConcurrency = 8

type Service struct {
	db        *gorm.DB
	transport Transport
	log       *zap.Logger
}

func NewService(db *gorm.DB, transport Transport, log *zap.Logger) *Service {
	return &Service{db: db, transport: transport, log: log}
}

// ResolveTargets expands a filter into concrete subscriptions. Only
// subscriptions bound to a live session of a non-blocked user qualify;
// revoking a session or blocking a user silences its push channel without
// touching the subscription rows. Duplicate endpoints collapse to one.
func (s *Service) ResolveTargets(filter Filter) ([]models.SubscriptionModel, error) {
	now := time.Now()
	query := s.db.Model(&models.SubscriptionModel{}).
		Joins("JOIN users ON users.id = subscriptions.user_id AND users.deleted_at IS NULL").
		Joins("JOIN user_sessions ON user_sessions.id = subscriptions.session_id").
		Where("users.blocked = ?", false).
		Where("user_sessions.revoked_at IS NULL AND user_sessions.expires_at > ?", now)

	switch filter.Mode {
	case TargetRoles:
		if len(filter.Roles) == 0 {
			return nil, nil
		}
		query = query.Where("users.role IN ?", filter.Roles)
	case TargetEveryone, "":
	default:
		return nil, errors.New("push: unknown target mode " + string(filter.Mode))
	}

	if len(filter.UserIDs) > 0 {
		query = query.Where("subscriptions.user_id IN ?", filter.UserIDs)
	}
	if len(filter.SessionIDs) > 0 {
		query = query.Where("subscriptions.session_id IN ?", filter.SessionIDs)
	}
	if len(filter.ExcludeUserIDs) > 0 {
		query = query.Where("subscriptions.user_id NOT IN ?", filter.ExcludeUserIDs)
	}
	if len(filter.ExcludeSessionIDs) > 0 {
		query = query.Where("subscriptions.session_id NOT IN ?", filter.ExcludeSessionIDs)
	}

	var subs []models.SubscriptionModel
	if err := query.Order("subscriptions.created_at ASC").Find(&subs).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(subs))
	out := subs[:0]
	for _, sub := range subs {
		if _, dup := seen[sub.Endpoint]; dup {
			continue
		}
		seen[sub.Endpoint] = struct{}{}
		out = append(out, sub)
	}
	return out, nil
}

// Dispatch resolves the filter and fans the message out concurrently.
// Endpoints answering 404 or 410 are gone for good and their subscriptions
// are removed.
func (s *Service) Dispatch(ctx context.Context, msg Message, filter Filter) (Stats, error) {
	targets, err := s.ResolveTargets(filter)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Targets: len(targets)}
	if len(targets) == 0 {
		return stats, nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return stats, err
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		dead []string
	)
	sem := make(chan struct{}, dispatchConcurrency)

	for i := range targets {
		sub := targets[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := s.transport.Send(ctx, &sub, payload)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				stats.Sent++
				return
			}
			stats.Failed++
			if status == http.StatusNotFound || status == http.StatusGone {
				dead = append(dead, sub.ID)
				return
			}
			s.log.Warn("push delivery failed",
				zap.String("endpoint", sub.Endpoint),
				zap.Int("status", status),
				zap.Error(err))
		}()
	}
	wg.Wait()

	if len(dead) > 0 {
		res := s.db.Unscoped().Delete(&models.SubscriptionModel{}, "id IN ?", dead)
		if res.Error != nil {
			s.log.Warn("pruning dead subscriptions failed", zap.Error(res.Error))
		} else {
			stats.Pruned = int(res.RowsAffected)
		}
	}

	return stats, nil
}

// PruneOrphans deletes subscriptions whose session is revoked or expired
// past the cutoff. Run from cron; a revoked session will never be active
// again, so its push channel is garbage.
func (s *Service) PruneOrphans(cutoff time.Time) (int64, error) {
	res := s.db.Unscoped().
		Where("session_id IN (?)", s.db.Model(&models.UserSession{}).
			Select("id").
			Where("revoked_at IS NOT NULL OR expires_at < ?", cutoff)).
		Delete(&models.SubscriptionModel{})
	return res.RowsAffected, res.Error
}
