package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// ProgressTracker accumulates the progress of one indexing job.
// Every method takes the tracker's single mutex, so concurrent advances
// never lose updates and Snapshot always sees a consistent state.
type ProgressTracker struct {
	mu    sync.Mutex
	state domain.ProgressState
	now   func() time.Time

	// elapsed keeps full precision; state.ElapsedTime is derived from it.
	elapsed time.Duration
}

// NewProgressTracker creates an idle tracker for a job of total units.
func NewProgressTracker(jobID, name string, total int64) *ProgressTracker {
	t := &ProgressTracker{now: time.Now}
	t.state = domain.ProgressState{
		JobID:      jobID,
		Name:       name,
		Status:     domain.JobStatusIdle,
		TotalCount: total,
		CreatedAt:  t.now(),
	}
	t.recompute()
	return t
}

// Advance adds elapsed wall time and newly indexed units, then recomputes
// the derived figures. Negative deltas are ignored.
func (t *ProgressTracker) Advance(elapsed time.Duration, indexed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elapsed > 0 {
		t.elapsed += elapsed
	}
	if indexed > 0 {
		t.state.IndexedCount += indexed
	}
	t.recompute()
}

// Skip records units that could not be mapped.
func (t *ProgressTracker) Skip(n int64) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.SkippedCount += n
}

// Start moves an idle job to running. Returns false in any other state.
func (t *ProgressTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status != domain.JobStatusIdle {
		return false
	}
	now := t.now()
	t.state.Status = domain.JobStatusRunning
	t.state.StartedAt = &now
	return true
}

// Complete moves a running job to completed.
func (t *ProgressTracker) Complete() bool {
	return t.finish(domain.JobStatusCompleted, "", domain.JobStatusRunning)
}

// Fail moves an idle or running job to failed with err's message.
func (t *ProgressTracker) Fail(err error) bool {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return t.finish(domain.JobStatusFailed, msg, domain.JobStatusIdle, domain.JobStatusRunning)
}

// Cancel moves an idle or running job to cancelled.
func (t *ProgressTracker) Cancel() bool {
	return t.finish(domain.JobStatusCancelled, "", domain.JobStatusIdle, domain.JobStatusRunning)
}

// Snapshot returns a consistent copy of the current state.
func (t *ProgressTracker) Snapshot() domain.ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Status returns the current lifecycle state.
func (t *ProgressTracker) Status() domain.JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Status
}

func (t *ProgressTracker) finish(to domain.JobStatus, errMsg string, from ...domain.JobStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := false
	for _, s := range from {
		if t.state.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	now := t.now()
	t.state.Status = to
	t.state.CompletedAt = &now
	t.state.Error = errMsg
	return true
}

// recompute derives speed, queue size and ETA. Caller holds mu.
func (t *ProgressTracker) recompute() {
	s := &t.state

	s.QueueSize = s.TotalCount - s.IndexedCount
	if s.QueueSize < 0 {
		s.QueueSize = 0
	}

	s.ElapsedTime = t.elapsed.Milliseconds()

	s.Speed = 0
	s.EstimatedCompletionTime = 0
	if t.elapsed > 0 && s.IndexedCount > 0 {
		s.Speed = float64(s.IndexedCount) / t.elapsed.Seconds()
		avgPerUnit := t.elapsed / time.Duration(s.IndexedCount)
		s.EstimatedCompletionTime = int64(float64(s.QueueSize) * float64(avgPerUnit) / float64(time.Millisecond))
	}

	s.Elapsed = domain.FormatDuration(s.ElapsedTime)
	s.EstimatedCompletion = domain.FormatDuration(s.EstimatedCompletionTime)
}
