// Package scheduler runs the daily billing maintenance task: expiry
// warnings, entitlement expiration, and auto-renewal reconciliation. The
// task is idempotent per day and safe across process restarts and multiple
// replicas.
package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
)

const lockTTL = 23 * time.Hour

type Scheduler struct {
	tenants  tenant.Repository
	subs     subscription.Repository
	notifier subscription.Notifier

	// redis coordinates multiple replicas; nil means single instance.
	redis *redis.Client

	fireHour   int
	fireMinute int

	logger *zap.Logger
}

func New(
	tenants tenant.Repository,
	subs subscription.Repository,
	notifier subscription.Notifier,
	redisClient *redis.Client,
	fireHour, fireMinute int,
	logger *zap.Logger,
) *Scheduler {
	if notifier == nil {
		notifier = subscription.NopNotifier{}
	}
	return &Scheduler{
		tenants:    tenants,
		subs:       subs,
		notifier:   notifier,
		redis:      redisClient,
		fireHour:   fireHour,
		fireMinute: fireMinute,
		logger:     logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled, firing the daily task at the
// configured UTC time. A missed day (process down at fire time) catches up
// on the next fire because all decisions read current storage state.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := nextFire(time.Now().UTC(), s.fireHour, s.fireMinute)
		s.logger.Info("scheduler sleeping", zap.Time("next_fire", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.RunOnce(ctx, time.Now().UTC()); err != nil {
			s.logger.Error("daily run failed", zap.Error(err))
		}
	}
}

func nextFire(now time.Time, hour, minute int) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// RunOnce executes one daily pass. With Redis configured, a SET NX sentinel
// keyed by date guarantees exactly one replica executes per day.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	if s.redis != nil {
		key := "scheduler:daily:" + now.Format("2006-01-02")
		ok, err := s.redis.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			s.logger.Warn("scheduler lock unavailable, running anyway", zap.Error(err))
		} else if !ok {
			s.logger.Info("daily run already executed by another replica")
			return nil
		}
	}

	ctx = log.WithLogger(ctx, s.logger)

	if err := s.sendWarnings(ctx, now); err != nil {
		return err
	}
	if err := s.expireLapsed(ctx, now); err != nil {
		return err
	}
	if err := s.reconcileAutoRenewals(ctx); err != nil {
		return err
	}

	s.logger.Info("daily run complete", zap.Time("at", now))
	return nil
}
