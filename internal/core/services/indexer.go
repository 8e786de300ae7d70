package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/worker"
)

const (
	defaultBatchSize   = 50
	defaultRetainedJob = 100
	persistTimeout     = 5 * time.Second
)

// EngineSource hands out the shared index engine.
type EngineSource interface {
	Engine(ctx context.Context) (driven.IndexEngine, error)
}

// JobHandle tracks a submitted job.
type JobHandle struct {
	job      *domain.IndexingJob
	tracker  *ProgressTracker
	cancelCh chan struct{}
	done     chan struct{}
	once     sync.Once
	doneOnce sync.Once
}

func newJobHandle(job *domain.IndexingJob) *JobHandle {
	return &JobHandle{
		job:      job,
		tracker:  NewProgressTracker(job.ID, job.Name, int64(job.Size())),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the job identifier
func (h *JobHandle) ID() string { return h.job.ID }

// Job returns the submitted job
func (h *JobHandle) Job() *domain.IndexingJob { return h.job }

// Progress returns a snapshot of the job's progress
func (h *JobHandle) Progress() domain.ProgressState { return h.tracker.Snapshot() }

// Done is closed once the job reaches a terminal state
func (h *JobHandle) Done() <-chan struct{} { return h.done }

// Cancel asks the job to stop before its next batch step.
func (h *JobHandle) Cancel() {
	h.once.Do(func() { close(h.cancelCh) })
}

// Wait blocks until the job finishes or ctx is done.
func (h *JobHandle) Wait(ctx context.Context) (domain.ProgressState, error) {
	select {
	case <-h.done:
		return h.tracker.Snapshot(), nil
	case <-ctx.Done():
		return h.tracker.Snapshot(), ctx.Err()
	}
}

func (h *JobHandle) cancelled() bool {
	select {
	case <-h.cancelCh:
		return true
	default:
		return false
	}
}

// BatchIndexer runs indexing jobs on a bounded worker pool. Each job walks
// its references in submission order, one batch step at a time: every unit
// of the step is loaded and mapped, the successes are written as a single
// engine insert, and the job's progress is advanced by the step's wall time.
type BatchIndexer struct {
	engines   EngineSource
	store     driven.ContentStore
	mapper    *FieldMapper
	jobStore  driven.JobStore
	pool      *worker.Pool
	limiter   *rate.Limiter
	batchSize int
	retain    int
	logger    *slog.Logger

	mu    sync.RWMutex
	jobs  map[string]*JobHandle
	order []string
}

// BatchIndexerConfig holds dependencies for BatchIndexer.
type BatchIndexerConfig struct {
	Engines      EngineSource
	ContentStore driven.ContentStore
	Mapper       *FieldMapper
	JobStore     driven.JobStore // optional
	Pool         *worker.Pool
	BatchSize    int
	// BatchesPerSecond throttles engine writes; 0 means unlimited
	BatchesPerSecond float64
	// RetainedJobs bounds how many finished jobs stay in memory
	RetainedJobs int
	Logger       *slog.Logger
}

// NewBatchIndexer creates a new batch indexer.
func NewBatchIndexer(cfg BatchIndexerConfig) *BatchIndexer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retain := cfg.RetainedJobs
	if retain <= 0 {
		retain = defaultRetainedJob
	}

	pool := cfg.Pool
	if pool == nil {
		pool = worker.NewPool(worker.PoolConfig{Logger: logger})
	}

	var limiter *rate.Limiter
	if cfg.BatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1)
	}

	return &BatchIndexer{
		engines:   cfg.Engines,
		store:     cfg.ContentStore,
		mapper:    cfg.Mapper,
		jobStore:  cfg.JobStore,
		pool:      pool,
		limiter:   limiter,
		batchSize: batchSize,
		retain:    retain,
		logger:    logger,
		jobs:      make(map[string]*JobHandle),
	}
}

// Start launches the worker pool.
func (b *BatchIndexer) Start(ctx context.Context) error {
	return b.pool.Start(ctx)
}

// Stop cancels running jobs, waits for the pool to drain and marks jobs
// still queued as cancelled.
func (b *BatchIndexer) Stop() {
	b.mu.RLock()
	handles := make([]*JobHandle, 0, len(b.jobs))
	for _, h := range b.jobs {
		handles = append(handles, h)
	}
	b.mu.RUnlock()

	for _, h := range handles {
		h.Cancel()
	}
	b.pool.Stop()

	for _, h := range handles {
		if h.tracker.Cancel() {
			b.persist(context.Background(), h)
			h.closeDone()
		}
	}
}

// Submit queues refs as a new job and returns immediately.
func (b *BatchIndexer) Submit(ctx context.Context, name string, refs []domain.ContentRef) (*JobHandle, error) {
	job := domain.NewIndexingJob(name, refs)
	h := newJobHandle(job)
	// Running from submission, even while queued behind other jobs
	h.tracker.Start()

	b.register(h)
	b.persist(ctx, h)

	err := b.pool.Submit(worker.Task{
		ID:  job.ID,
		Run: func(ctx context.Context) error { return b.run(ctx, h) },
	})
	if err != nil {
		b.unregister(job.ID)
		if b.jobStore != nil {
			_ = b.jobStore.Delete(context.WithoutCancel(ctx), job.ID)
		}
		return nil, err
	}

	b.logger.Info("indexing job submitted", "job_id", job.ID, "name", name, "total", len(refs))
	return h, nil
}

// Status returns the progress of a job held in memory.
func (b *BatchIndexer) Status(jobID string) (domain.ProgressState, error) {
	h, ok := b.handle(jobID)
	if !ok {
		return domain.ProgressState{}, domain.ErrJobNotFound
	}
	return h.Progress(), nil
}

// Jobs returns the progress of every job held in memory, in submission order.
func (b *BatchIndexer) Jobs() []domain.ProgressState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.ProgressState, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.jobs[id].Progress())
	}
	return out
}

// Handle returns the handle of a job held in memory.
func (b *BatchIndexer) Handle(jobID string) (*JobHandle, bool) {
	return b.handle(jobID)
}

// Cancel stops a job before its next batch step. Cancelling a finished
// job is a no-op.
func (b *BatchIndexer) Cancel(jobID string) error {
	h, ok := b.handle(jobID)
	if !ok {
		return domain.ErrJobNotFound
	}
	h.Cancel()
	return nil
}

// run executes a job. It is called on a pool goroutine.
func (b *BatchIndexer) run(ctx context.Context, h *JobHandle) error {
	defer h.closeDone()

	logger := b.logger.With("job_id", h.ID(), "name", h.job.Name)

	if h.cancelled() {
		b.cancelJob(ctx, h, logger)
		return nil
	}

	logger.Info("indexing job started", "total", h.job.Size())

	engine, err := b.engines.Engine(ctx)
	if err != nil {
		return b.failJob(ctx, h, logger, err)
	}

	refs := h.job.Refs
	for begin := 0; begin < len(refs); begin += b.batchSize {
		if h.cancelled() || ctx.Err() != nil {
			b.cancelJob(ctx, h, logger)
			return nil
		}

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				b.cancelJob(ctx, h, logger)
				return nil
			}
		}

		end := begin + b.batchSize
		if end > len(refs) {
			end = len(refs)
		}

		if err := b.step(ctx, engine, h, refs[begin:end], logger); err != nil {
			if ctx.Err() != nil {
				b.cancelJob(ctx, h, logger)
				return nil
			}
			return b.failJob(ctx, h, logger, err)
		}
		b.persist(ctx, h)
	}

	h.tracker.Complete()
	b.persist(ctx, h)

	snap := h.Progress()
	logger.Info("indexing job completed",
		"indexed", snap.IndexedCount,
		"skipped", snap.SkippedCount,
		"elapsed", snap.Elapsed,
	)
	return nil
}

// step maps one batch and writes it as a single insert.
func (b *BatchIndexer) step(ctx context.Context, engine driven.IndexEngine, h *JobHandle, batch []domain.ContentRef, logger *slog.Logger) error {
	start := time.Now()

	records := make([]domain.IndexRecord, 0, len(batch))
	var skipped int64
	for _, ref := range batch {
		rec, err := b.load(ctx, ref)
		if err != nil {
			if errors.Is(err, domain.ErrExcludedProperty) {
				logger.Debug("skipping excluded property", "unit", ref.String())
			} else {
				logger.Warn("failed to map unit", "unit", ref.String(), "error", err)
			}
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if len(records) > 0 {
		if err := engine.Insert(ctx, records); err != nil {
			if !errors.Is(err, domain.ErrEngineUnavailable) {
				err = fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
			}
			return err
		}
	}

	h.tracker.Skip(skipped)
	h.tracker.Advance(time.Since(start), int64(len(records)))
	return nil
}

// load fetches and maps a unit. Every failure is a mapping failure.
func (b *BatchIndexer) load(ctx context.Context, ref domain.ContentRef) (domain.IndexRecord, error) {
	unit, err := b.store.Get(ctx, ref)
	if err != nil {
		return nil, domain.NewMappingError(ref, err)
	}
	return b.mapper.RecordOf(ctx, unit)
}

func (b *BatchIndexer) failJob(ctx context.Context, h *JobHandle, logger *slog.Logger, err error) error {
	h.tracker.Fail(err)
	b.persist(ctx, h)
	logger.Error("indexing job failed", "error", err)
	return err
}

func (b *BatchIndexer) cancelJob(ctx context.Context, h *JobHandle, logger *slog.Logger) {
	h.tracker.Cancel()
	b.persist(ctx, h)
	logger.Info("indexing job cancelled", "indexed", h.Progress().IndexedCount)
}

// persist saves the job snapshot. Failures are logged, never fatal.
func (b *BatchIndexer) persist(ctx context.Context, h *JobHandle) {
	if b.jobStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	snap := h.Progress()
	if err := b.jobStore.Save(ctx, &snap); err != nil {
		b.logger.Warn("failed to persist job progress", "job_id", h.ID(), "error", err)
	}
}

func (b *BatchIndexer) handle(jobID string) (*JobHandle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.jobs[jobID]
	return h, ok
}

func (b *BatchIndexer) register(h *JobHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jobs[h.ID()] = h
	b.order = append(b.order, h.ID())

	// Drop the oldest finished jobs beyond the retention bound
	for len(b.order) > b.retain {
		evicted := false
		for i, id := range b.order {
			if b.jobs[id].tracker.Status().IsTerminal() {
				delete(b.jobs, id)
				b.order = append(b.order[:i], b.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			break
		}
	}
}

func (b *BatchIndexer) unregister(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.jobs, jobID)
	for i, id := range b.order {
		if id == jobID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (h *JobHandle) closeDone() {
	h.doneOnce.Do(func() { close(h.done) })
}
