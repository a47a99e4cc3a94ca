// Package checkpoint stores per-kind scrape watermarks in Redis so a
// recurring scrape can pick up where the previous one ended.
//
// A watermark is the newest created_at_i timestamp a scrape yielded. It never
// moves backwards: Advance ignores timestamps at or below the stored value,
// even when several scrapers share one Redis.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxAdvanceAttempts bounds optimistic transaction retries under contention.
const maxAdvanceAttempts = 5

var (
	// ErrNoCheckpoint indicates no watermark is stored for the key
	ErrNoCheckpoint = errors.New("no checkpoint")

	// ErrContention indicates Advance kept losing the optimistic transaction
	ErrContention = errors.New("checkpoint contention")
)

// Store handles watermark operations with Redis backend.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a new checkpoint store with Redis backend.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		logger: log.With().Str("component", "checkpoint").Logger(),
	}
}

// Get returns the stored watermark.
// Returns ErrNoCheckpoint if none is stored.
func (s *Store) Get(ctx context.Context, key Key) (int64, error) {
	ts, err := s.redis.Get(ctx, key.String()).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrNoCheckpoint
		}
		CheckpointErrors.WithLabelValues("get").Inc()
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return ts, nil
}

// Since returns the stored watermark, or fallback when none is stored or it
// is older than fallback.
func (s *Store) Since(ctx context.Context, key Key, fallback int64) (int64, error) {
	ts, err := s.Get(ctx, key)
	if errors.Is(err, ErrNoCheckpoint) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return max(ts, fallback), nil
}

// Advance stores ts if it is newer than the current watermark. It reports
// whether the watermark moved.
func (s *Store) Advance(ctx context.Context, key Key, ts int64) (bool, error) {
	redisKey := key.String()
	advanced := false

	txf := func(tx *redis.Tx) error {
		advanced = false

		current, err := tx.Get(ctx, redisKey).Int64()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("redis get: %w", err)
		}
		if err == nil && ts <= current {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, ts, 0)
			return nil
		})
		if err != nil {
			return err
		}

		advanced = true
		return nil
	}

	for attempt := 1; attempt <= maxAdvanceAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, redisKey)
		if err == nil {
			if advanced {
				CheckpointAdvances.WithLabelValues(string(key.Tag)).Inc()
				CheckpointValue.WithLabelValues(string(key.Tag)).Set(float64(ts))
				s.logger.Debug().
					Str("key", redisKey).
					Int64("timestamp", ts).
					Msg("Checkpoint advanced")
			}
			return advanced, nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().
				Str("key", redisKey).
				Int("attempt", attempt).
				Msg("Checkpoint changed concurrently, retrying")
			continue
		}

		CheckpointErrors.WithLabelValues("advance").Inc()
		return false, fmt.Errorf("advance checkpoint %s: %w", redisKey, err)
	}

	CheckpointErrors.WithLabelValues("advance").Inc()
	return false, fmt.Errorf("%w: %s after %d attempts", ErrContention, redisKey, maxAdvanceAttempts)
}

// Delete removes a watermark.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		CheckpointErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
