package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

const rosterCachePrefix = "roster:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CacheService orchestrates cache operations and related metrics. Failures
// are logged and reported as misses so the ledger stays the source of truth.
type CacheService struct {
	repo       CacheRepository
	metrics    cacheRecorder
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	epoch      string
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics cacheRecorder, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	epoch := uuid.NewString()[:8]
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled, epoch: epoch}
}

// RosterKey builds the key of one listing at one ledger revision of this
// process. Revisions restart with the process, so keys carry a per-process
// epoch and entries left by an earlier run are never read.
func (s *CacheService) RosterKey(revision uint64, scope string, params interface{}) string {
	epoch := ""
	if s != nil {
		epoch = s.epoch
	}
	return RosterCacheKey(epoch, revision, scope, params)
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.record(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateRoster drops every cached roster listing, including those of
// earlier runs. Keys embed the epoch and revision so stale entries are never
// served; this only reclaims memory.
func (s *CacheService) InvalidateRoster(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, rosterCachePrefix+"*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Error(err))
	}
}

func (s *CacheService) record(hit bool, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, d)
	}
}

// RosterCacheKey builds the cache key of one listing.
func RosterCacheKey(epoch string, revision uint64, scope string, params interface{}) string {
	raw, _ := json.Marshal(params)
	sum := sha1.Sum(raw)
	return fmt.Sprintf("%s%s:%d:%s:%s", rosterCachePrefix, epoch, revision, scope, hex.EncodeToString(sum[:8]))
}
