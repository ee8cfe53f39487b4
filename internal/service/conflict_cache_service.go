package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/leveling-api/internal/dto"
)

const defaultConflictCacheTTL = 5 * time.Minute

type conflictReportStore interface {
	Get(ctx context.Context, name string, dest interface{}) (bool, error)
	Set(ctx context.Context, name string, value interface{}, ttl time.Duration) error
	Purge(ctx context.Context) (int, error)
}

// ConflictCacheService caches conflict reports per query and drops all of them whenever
// assignments change. A nil service is a disabled cache.
type ConflictCacheService struct {
	store   conflictReportStore
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewConflictCacheService constructs the cache.
func NewConflictCacheService(store conflictReportStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *ConflictCacheService {
	if ttl <= 0 {
		ttl = defaultConflictCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictCacheService{store: store, ttl: ttl, metrics: metrics, logger: logger}
}

// Report returns the cached report for key. Read failures count as misses.
func (s *ConflictCacheService) Report(ctx context.Context, key string) ([]dto.ConflictView, bool) {
	if s == nil || s.store == nil {
		return nil, false
	}
	start := time.Now()
	var views []dto.ConflictView
	hit, err := s.store.Get(ctx, key, &views)
	s.metrics.RecordCacheOperation(hit && err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("conflict report cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return views, hit
}

// StoreReport caches views under key.
func (s *ConflictCacheService) StoreReport(ctx context.Context, key string, views []dto.ConflictView) {
	if s == nil || s.store == nil {
		return
	}
	start := time.Now()
	err := s.store.Set(ctx, key, views, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("failed to cache conflict report", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateConflicts drops every cached report. On failure the entries expire with the TTL.
func (s *ConflictCacheService) InvalidateConflicts(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}
	removed, err := s.store.Purge(ctx)
	if err != nil {
		s.logger.Warn("conflict report invalidation failed", zap.Error(err))
		return
	}
	s.logger.Debug("conflict reports invalidated", zap.Int("removed", removed))
}
