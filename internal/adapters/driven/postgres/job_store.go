package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL. The snapshot is
// kept whole in a JSONB column; name and status are copied out for querying.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// Save creates or updates a job snapshot
func (s *JobStore) Save(ctx context.Context, state *domain.ProgressState) error {
	if state == nil || state.JobID == "" {
		return fmt.Errorf("%w: job snapshot without id", domain.ErrInvalidInput)
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO index_jobs (job_id, name, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (job_id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			state = EXCLUDED.state,
			updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query,
		state.JobID,
		state.Name,
		string(state.Status),
		stateJSON,
		state.CreatedAt,
	)
	return err
}

// Get retrieves a job snapshot
func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	var stateJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM index_jobs WHERE job_id = $1`, jobID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var state domain.ProgressState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// List retrieves all job snapshots, newest first
func (s *JobStore) List(ctx context.Context) ([]*domain.ProgressState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state FROM index_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.ProgressState
	for rows.Next() {
		var stateJSON []byte
		if err := rows.Scan(&stateJSON); err != nil {
			return nil, err
		}
		var state domain.ProgressState
		if err := json.Unmarshal(stateJSON, &state); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// Delete removes a job snapshot
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM index_jobs WHERE job_id = $1`, jobID)
	return err
}
