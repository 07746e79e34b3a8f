package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Entry is one ranked row, ordered by cumulative battle earnings.
type Entry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"name"`
	Avatar      string    `json:"petAvatar"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Earnings    int64     `json:"-"`
}

// Source supplies ranked users from the ledger.
type Source interface {
	TopByEarnings(ctx context.Context, limit int) ([]Entry, error)
}

// ServiceOptions configures leaderboard behavior.
type ServiceOptions struct {
	TopN     int
	CacheTTL time.Duration
	CacheKey string
}

// Service serves the battle leaderboard with a short Redis cache in front
// of the ledger query. The cache only smooths poll bursts; rankings are
// allowed to lag by the TTL.
type Service struct {
	source   Source
	redis    *redis.Client
	logger   zerolog.Logger
	topN     int
	cacheTTL time.Duration
	cacheKey string
}

// NewService constructs a leaderboard service.
func NewService(source Source, redisClient *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	key := opts.CacheKey
	if key == "" {
		key = "battle:lb:top"
	}
	return &Service{
		source:   source,
		redis:    redisClient,
		logger:   logger.With().Str("component", "leaderboard").Logger(),
		topN:     topN,
		cacheTTL: ttl,
		cacheKey: key,
	}
}

// Top returns the ranked top N, served from cache when fresh.
func (s *Service) Top(ctx context.Context) ([]Entry, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	entries, err := s.source.TopByEarnings(ctx, s.topN)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.toCache(ctx, entries)
	return entries, nil
}

func (s *Service) fromCache(ctx context.Context) []Entry {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, s.cacheKey).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache read failed")
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache corrupt, ignoring")
		return nil
	}
	return entries
}

func (s *Service) toCache(ctx context.Context, entries []Entry) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.cacheKey, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache write failed")
	}
}
