package scorecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

const KeyPrefix = "tune:scores:"

// Cache memoises classifier scores in Redis, keyed by a digest of the comment text.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached scores for text. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, text string) (scores.AttributeScores, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(text)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached scores: %w", err)
	}

	s := scores.AttributeScores{}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, false, fmt.Errorf("decode cached scores: %w", err)
	}
	return s, true, nil
}

func (c *Cache) Set(ctx context.Context, text string, s scores.AttributeScores) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(text), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached scores: %w", err)
	}
	return nil
}

// Analyzer produces classifier scores for a piece of text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (scores.AttributeScores, error)
}

// LookupRecorder observes cache hits and misses.
type LookupRecorder interface {
	CacheLookup(hit bool)
}

// Scorer reads through the cache to the analyzer. Cache faults degrade to
// a direct analyzer call.
type Scorer struct {
	cache    *Cache
	analyzer Analyzer
	recorder LookupRecorder
	logger   *slog.Logger
}

// NewScorer builds a read-through scorer. cache and recorder may be nil.
func NewScorer(cache *Cache, analyzer Analyzer, recorder LookupRecorder, logger *slog.Logger) *Scorer {
	return &Scorer{cache: cache, analyzer: analyzer, recorder: recorder, logger: logger}
}

func (s *Scorer) Analyze(ctx context.Context, text string) (scores.AttributeScores, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, text)
		if err != nil {
			s.logger.Warn("score cache read failed", "error", err)
		}
		s.record(ok)
		if ok {
			return cached, nil
		}
	}

	result, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, text, result); err != nil {
			s.logger.Warn("score cache write failed", "error", err)
		}
	}
	return result, nil
}

func (s *Scorer) record(hit bool) {
	if s.recorder != nil {
		s.recorder.CacheLookup(hit)
	}
}
