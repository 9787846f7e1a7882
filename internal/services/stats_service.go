package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
)

const (
	statsCacheName = "waitlist_stats"
	statsCacheKey  = "stats"
)

// StatsService serves the public waitlist counters from a short-lived cache
type StatsService struct {
	counter  WaitlistCounter
	capacity int
	cache    *cache.Cache
}

// NewStatsService creates a stats service caching results for ttl
func NewStatsService(counter WaitlistCounter, capacity int, ttl time.Duration) *StatsService {
	return &StatsService{
		counter:  counter,
		capacity: capacity,
		cache:    cache.New(ttl, 2*ttl),
	}
}

// Get returns the signup count and the spots left
func (s *StatsService) Get(ctx context.Context) (*models.WaitlistStats, error) {
	if cached, found := s.cache.Get(statsCacheKey); found {
		metrics.CacheHits.WithLabelValues(statsCacheName).Inc()
		stats := cached.(models.WaitlistStats)
		return &stats, nil
	}
	metrics.CacheMisses.WithLabelValues(statsCacheName).Inc()

	count, err := s.counter.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load waitlist stats: %w", err)
	}

	stats := models.WaitlistStats{
		Count:     count,
		Capacity:  s.capacity,
		Remaining: max(s.capacity-count, 0),
	}
	s.cache.SetDefault(statsCacheKey, stats)

	return &stats, nil
}

// Invalidate drops the cached counters
func (s *StatsService) Invalidate() {
	s.cache.Delete(statsCacheKey)
}
