package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// ErrPoolStopped is returned when submitting to a stopped pool.
var ErrPoolStopped = errors.New("worker pool stopped")

// Task is a unit of background work.
type Task struct {
	ID  string
	Run func(ctx context.Context) error
}

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue.
// Tasks start in submission order.
type Pool struct {
	logger      *slog.Logger
	concurrency int
	queue       chan Task

	// Internal state
	mu      sync.RWMutex
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc
	active  atomic.Int64
}

// PoolConfig holds configuration for the pool.
type PoolConfig struct {
	Logger      *slog.Logger
	Concurrency int // Number of concurrent task runners
	QueueSize   int // Tasks that may wait before Submit returns ErrQueueFull
}

// NewPool creates a new worker pool. Tasks may be submitted before Start.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Pool{
		logger:      logger,
		concurrency: concurrency,
		queue:       make(chan Task, queueSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the worker goroutines.
// They run until Stop is called or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.running = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("worker pool starting",
		"concurrency", p.concurrency,
		"queue_size", cap(p.queue),
	)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.processLoop(runCtx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(p.doneCh)
	}()

	return nil
}

// Submit queues a task without blocking.
// Returns domain.ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Stop cancels running tasks and waits for the workers to exit.
// Queued tasks that never started are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	wasRunning := p.running
	close(p.stopCh)
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if wasRunning {
		<-p.doneCh
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopped")
}

// Wait blocks until the pool stops.
func (p *Pool) Wait() {
	<-p.doneCh
}

// processLoop is the main loop of a worker goroutine.
func (p *Pool) processLoop(ctx context.Context, workerID int) {
	logger := p.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-p.stopCh:
			logger.Debug("worker stop signal received")
			return
		case task := <-p.queue:
			p.runTask(ctx, task, logger)
		}
	}
}

func (p *Pool) runTask(ctx context.Context, task Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID)
	logger.Debug("running task")

	p.active.Add(1)
	defer p.active.Add(-1)

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		logger.Error("task failed", "duration", time.Since(start), "error", err)
		return
	}
	logger.Debug("task completed", "duration", time.Since(start))
}

// Health reports the pool's state.
type Health struct {
	Running bool  `json:"running"`
	Workers int   `json:"workers"`
	Queued  int   `json:"queued"`
	Active  int64 `json:"active"`
}

// Health returns the health status of the pool.
func (p *Pool) Health() Health {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	return Health{
		Running: running,
		Workers: p.concurrency,
		Queued:  len(p.queue),
		Active:  p.active.Load(),
	}
}
