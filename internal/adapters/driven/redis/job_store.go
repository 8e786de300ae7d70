package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

const (
	jobPrefix = "sercha-wiki:job:"
	jobIndex  = "sercha-wiki:jobs"
)

// JobStore implements driven.JobStore using Redis. Each snapshot is a JSON
// string; a sorted set scored by creation time orders them. Terminal
// snapshots expire after the retention period.
type JobStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewJobStore creates a Redis-backed JobStore. retention <= 0 keeps
// finished jobs forever.
func NewJobStore(client redis.UniversalClient, retention time.Duration) *JobStore {
	return &JobStore{client: client, retention: retention}
}

// Save stores the snapshot and indexes it by creation time
func (s *JobStore) Save(ctx context.Context, state *domain.ProgressState) error {
	if state == nil || state.JobID == "" {
		return fmt.Errorf("%w: job snapshot without id", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", state.JobID, err)
	}

	var ttl time.Duration
	if state.Status.IsTerminal() && s.retention > 0 {
		ttl = s.retention
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobPrefix+state.JobID, data, ttl)
	pipe.ZAdd(ctx, jobIndex, redis.Z{
		Score:  float64(state.CreatedAt.UnixMilli()),
		Member: state.JobID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save job %s: %w", state.JobID, err)
	}
	return nil
}

// Get retrieves a snapshot by job ID
func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	data, err := s.client.Get(ctx, jobPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	var state domain.ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &state, nil
}

// List returns every stored snapshot, newest first. Index entries whose
// snapshot has expired are removed on the way.
func (s *JobStore) List(ctx context.Context) ([]*domain.ProgressState, error) {
	ids, err := s.client.ZRevRange(ctx, jobIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	states := make([]*domain.ProgressState, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var state domain.ProgressState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", ids[i], err)
		}
		states = append(states, &state)
	}

	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, jobIndex, expired...).Err()
	}
	return states, nil
}

// Delete removes a snapshot
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, jobPrefix+jobID)
	pipe.ZRem(ctx, jobIndex, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	return nil
}
