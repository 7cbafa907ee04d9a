package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m88-digital/idea-intake-api/internal/models"
)

type mockStatsRepo struct {
	stats *models.IdeaStatistics
	calls int
}

func (m *mockStatsRepo) Statistics(ctx context.Context, filter models.IdeaFilter) (*models.IdeaStatistics, error) {
	m.calls++
	return m.stats, nil
}

func TestStatisticsWithoutCache(t *testing.T) {
	repo := &mockStatsRepo{stats: &models.IdeaStatistics{
		Total:    7,
		ByStatus: models.StatusCounts{Submitted: 3, UnderReview: 2, Approved: 1, Rejected: 1},
	}}
	svc := NewAnalyticsService(repo, nil, nil)

	stats, err := svc.Statistics(context.Background(), models.IdeaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 1, repo.calls)

	// Without a cache every call reaches the store.
	_, err = svc.Statistics(context.Background(), models.IdeaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestStatsCacheKeyVariesByFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	base := statsCacheKey(models.IdeaFilter{})
	assert.True(t, len(base) > len("analytics:ideas:"))
	assert.Contains(t, base, "analytics:ideas:")

	keys := []string{
		base,
		statsCacheKey(models.IdeaFilter{Country: "Philippines"}),
		statsCacheKey(models.IdeaFilter{Department: "IT"}),
		statsCacheKey(models.IdeaFilter{Status: models.StatusApproved}),
		statsCacheKey(models.IdeaFilter{SubmittedFrom: &from}),
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate cache key %s", k)
		seen[k] = true
	}

	// Pagination and sorting never change the aggregate result, so they
	// must not fragment the cache.
	paged := statsCacheKey(models.IdeaFilter{Page: 3, PageSize: 10, SortBy: "title"})
	assert.Equal(t, base, paged)
}
