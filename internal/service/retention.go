package service

import (
	"context"
	"time"

	"storefront-support/backend/internal/repository"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/shared/observability"
)

// RetentionService removes conversations that have been idle too long
type RetentionService struct {
	repo    repository.ConversationRepository
	period  time.Duration
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewRetentionService creates a sweeper that keeps conversations active
// within period
func NewRetentionService(repo repository.ConversationRepository, period time.Duration, metrics *observability.Metrics, log *logger.Logger) *RetentionService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &RetentionService{
		repo:    repo,
		period:  period,
		metrics: metrics,
		log:     log.WithComponent("retention"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Purge deletes conversations whose last activity is older than olderThan,
// with their messages, and returns how many were removed
func (s *RetentionService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	removed, err := s.repo.DeleteInactiveSince(ctx, cutoff)
	if err != nil {
		return removed, err
	}

	s.metrics.RecordPurged(ctx, removed)
	if removed > 0 {
		s.log.Info("Purged inactive conversations", "count", removed, "cutoff", cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

// Start sweeps every interval until ctx is cancelled. It does nothing when
// the retention period is not positive.
func (s *RetentionService) Start(ctx context.Context, interval time.Duration) {
	if s.period <= 0 {
		s.log.Info("Conversation retention disabled")
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Purge(ctx, s.period); err != nil && ctx.Err() == nil {
					s.log.LogError(err, "Retention sweep failed")
				}
			}
		}
	}()
	s.log.Info("Conversation retention enabled", "period", s.period.String(), "interval", interval.String())
}
