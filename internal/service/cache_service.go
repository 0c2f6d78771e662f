package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elimu-sms/admissions-api/internal/repository"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
)

// CacheService wraps the cache repository with hit/miss accounting. A nil
// service or a service without a backing client degrades to a no-op so the
// engine works with caching disabled.
type CacheService struct {
	repo    *repository.CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCacheService constructs a cache service.
func NewCacheService(repo *repository.CacheRepository, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, logger: logger}
}

// Get loads a cached value into dest. The boolean reports a cache hit; a
// miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s == nil || s.repo == nil {
		return false, nil
	}
	err := s.repo.Get(ctx, key, dest)
	if err == nil {
		s.record("get", "hit")
		return true, nil
	}
	if appErrors.Is(err, appErrors.ErrCacheMiss) {
		s.record("get", "miss")
		return false, nil
	}
	s.record("get", "error")
	return false, err
}

// Set stores a value with the given TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if err := s.repo.Set(ctx, key, value, ttl); err != nil {
		s.record("set", "error")
		return err
	}
	s.record("set", "ok")
	return nil
}

// Delete drops a cached entry. Invalidation after a committed transition
// routes through here.
func (s *CacheService) Delete(ctx context.Context, key string) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.record("delete", "error")
		return err
	}
	s.record("delete", "ok")
	return nil
}

func (s *CacheService) record(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(op, outcome)
	}
}
