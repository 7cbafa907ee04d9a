package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

type ideaStatsRepository interface {
	Statistics(ctx context.Context, filter models.IdeaFilter) (*models.IdeaStatistics, error)
}

// AnalyticsService serves the aggregate counts behind the admin
// dashboard, with a short-lived cache in front of the store.
type AnalyticsService struct {
	repo   ideaStatsRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewAnalyticsService creates an instance of AnalyticsService. cache may
// be nil when analytics caching is disabled.
func NewAnalyticsService(repo ideaStatsRepository, cache *CacheService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, logger: logger}
}

// Statistics returns aggregate counts for the filtered idea set.
func (s *AnalyticsService) Statistics(ctx context.Context, filter models.IdeaFilter) (*models.IdeaStatistics, error) {
	key := statsCacheKey(filter)

	if s.cache.Enabled() {
		var cached models.IdeaStatistics
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	stats, err := s.repo.Statistics(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate idea statistics")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, stats, s.cache.DefaultTTL()); err != nil {
			s.logger.Warn("failed to cache idea statistics", zap.Error(err))
		}
	}

	return stats, nil
}

func statsCacheKey(filter models.IdeaFilter) string {
	from, to := "", ""
	if filter.SubmittedFrom != nil {
		from = filter.SubmittedFrom.Format("2006-01-02")
	}
	if filter.SubmittedTo != nil {
		to = filter.SubmittedTo.Format("2006-01-02")
	}
	parts := []string{
		filter.Country,
		filter.Department,
		string(filter.Status),
		filter.PriorityLabel,
		from,
		to,
		strings.ToLower(filter.Search),
	}
	return fmt.Sprintf("analytics:ideas:%s", strings.Join(parts, "|"))
}
