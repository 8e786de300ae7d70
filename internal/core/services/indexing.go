package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

// Ensure indexingService implements IndexingService
var _ driving.IndexingService = (*indexingService)(nil)

// RebuildLockName guards whole-installation reindexing across replicas.
const RebuildLockName = "index:rebuild"

const defaultRebuildLockTTL = 5 * time.Minute

// indexingService implements the IndexingService interface
type indexingService struct {
	indexer  *BatchIndexer
	store    driven.ContentStore
	engines  EngineSource
	mapper   *FieldMapper
	jobStore driven.JobStore
	lock     driven.DistributedLock
	lockTTL  time.Duration
	logger   *slog.Logger
}

// IndexingServiceConfig holds dependencies for the indexing service.
type IndexingServiceConfig struct {
	Indexer      *BatchIndexer
	ContentStore driven.ContentStore
	Engines      EngineSource
	Mapper       *FieldMapper
	JobStore     driven.JobStore        // optional
	Lock         driven.DistributedLock // optional
	LockTTL      time.Duration
	Logger       *slog.Logger
}

// NewIndexingService creates a new IndexingService
func NewIndexingService(cfg IndexingServiceConfig) driving.IndexingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultRebuildLockTTL
	}
	return &indexingService{
		indexer:  cfg.Indexer,
		store:    cfg.ContentStore,
		engines:  cfg.Engines,
		mapper:   cfg.Mapper,
		jobStore: cfg.JobStore,
		lock:     cfg.Lock,
		lockTTL:  ttl,
		logger:   logger,
	}
}

// IndexUnits submits refs as one job
func (s *indexingService) IndexUnits(ctx context.Context, refs []domain.ContentRef) (string, error) {
	if err := validateRefs(refs); err != nil {
		return "", err
	}
	h, err := s.indexer.Submit(ctx, "index-units", refs)
	if err != nil {
		return "", err
	}
	return h.ID(), nil
}

// IndexUnitsInScope submits the refs inside scope, or the whole scope when refs is empty
func (s *indexingService) IndexUnitsInScope(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	var selected []domain.ContentRef
	if len(refs) == 0 {
		listed, err := s.store.List(ctx, scope)
		if err != nil {
			return "", fmt.Errorf("failed to list scope: %w", err)
		}
		selected = listed
	} else {
		if err := validateRefs(refs); err != nil {
			return "", err
		}
		for _, ref := range refs {
			if scope.Contains(ref) {
				selected = append(selected, ref)
			}
		}
	}

	h, err := s.indexer.Submit(ctx, "index-scope:"+scopeName(scope), selected)
	if err != nil {
		return "", err
	}
	return h.ID(), nil
}

// IndexAll reindexes the whole installation while holding the rebuild lock
func (s *indexingService) IndexAll(ctx context.Context) (string, error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, RebuildLockName, s.lockTTL)
		if err != nil {
			return "", fmt.Errorf("failed to acquire rebuild lock: %w", err)
		}
		if !acquired {
			return "", domain.ErrLockHeld
		}
	}

	refs, err := s.store.List(ctx, domain.Scope{})
	if err != nil {
		s.releaseLock()
		return "", fmt.Errorf("failed to list content: %w", err)
	}

	h, err := s.indexer.Submit(ctx, "index-all", refs)
	if err != nil {
		s.releaseLock()
		return "", err
	}

	if s.lock != nil {
		go s.holdLock(h)
	}
	return h.ID(), nil
}

// holdLock extends the rebuild lock until the job finishes, then releases it.
func (s *indexingService) holdLock(h *JobHandle) {
	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()
	defer s.releaseLock()

	for {
		select {
		case <-h.Done():
			return
		case <-ticker.C:
			if err := s.lock.Extend(context.Background(), RebuildLockName, s.lockTTL); err != nil {
				s.logger.Warn("failed to extend rebuild lock", "job_id", h.ID(), "error", err)
			}
		}
	}
}

func (s *indexingService) releaseLock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Release(context.Background(), RebuildLockName); err != nil {
		s.logger.Warn("failed to release rebuild lock", "error", err)
	}
}

// Status merges live jobs with persisted snapshots. Live state wins.
func (s *indexingService) Status(ctx context.Context) ([]*domain.ProgressState, error) {
	live := s.indexer.Jobs()
	out := make([]*domain.ProgressState, 0, len(live))
	seen := make(map[string]bool, len(live))
	for i := range live {
		out = append(out, &live[i])
		seen[live[i].JobID] = true
	}

	if s.jobStore == nil {
		return out, nil
	}
	persisted, err := s.jobStore.List(ctx)
	if err != nil {
		s.logger.Warn("failed to list persisted jobs", "error", err)
		return out, nil
	}
	for _, p := range persisted {
		if !seen[p.JobID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// JobStatus returns one job, live or persisted
func (s *indexingService) JobStatus(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	state, err := s.indexer.Status(jobID)
	if err == nil {
		return &state, nil
	}
	if s.jobStore == nil {
		return nil, err
	}
	return s.jobStore.Get(ctx, jobID)
}

// StatusJSON returns Status encoded as JSON
func (s *indexingService) StatusJSON(ctx context.Context) ([]byte, error) {
	states, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(states)
}

// CancelJob stops a job running in this process
func (s *indexingService) CancelJob(ctx context.Context, jobID string) error {
	return s.indexer.Cancel(jobID)
}

// DeleteIndex removes the entry of one unit
func (s *indexingService) DeleteIndex(ctx context.Context, ref domain.ContentRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	engine, err := s.engines.Engine(ctx)
	if err != nil {
		return err
	}
	return engineError(engine.Delete(ctx, []string{s.mapper.IdentifierOf(ref)}))
}

// DeleteScope removes every entry of a wiki or wiki+space
func (s *indexingService) DeleteScope(ctx context.Context, scope domain.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	engine, err := s.engines.Engine(ctx)
	if err != nil {
		return err
	}
	filter := map[string]string{domain.FieldWiki: scope.Wiki}
	if scope.Space != "" {
		filter[domain.FieldSpace] = scope.Space
	}
	return engineError(engine.DeleteByFilter(ctx, filter))
}

// DeleteEntireIndex empties the index
func (s *indexingService) DeleteEntireIndex(ctx context.Context) error {
	engine, err := s.engines.Engine(ctx)
	if err != nil {
		return err
	}
	s.logger.Warn("deleting entire index")
	return engineError(engine.DeleteAll(ctx))
}

func validateRefs(refs []domain.ContentRef) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: no content references", domain.ErrInvalidInput)
	}
	for _, ref := range refs {
		if err := ref.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func scopeName(scope domain.Scope) string {
	if scope.Space == "" {
		return scope.Wiki
	}
	return scope.Wiki + "/" + scope.Space
}

// engineError tags engine failures with ErrEngineUnavailable.
func engineError(err error) error {
	if err == nil || errors.Is(err, domain.ErrEngineUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
}
