// Package schedule owns the per-file debounce timers that turn classified
// change events into admitted analysis jobs.
//
// At most one live job exists per file path: a new event for the same path
// cancels and replaces the prior timer, so a burst of saves collapses into
// a single pending job carrying the latest context. The delay scales with
// the priority tier; the priority score only orders the inspection view
// and never gates timer firing.
package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/types"
)

// Job is a pending analysis intent for one file.
type Job struct {
	Context       types.AnalysisContext
	FireAt        time.Time
	PriorityScore int

	timer *time.Timer
}

// JobView is the read-only snapshot returned by Jobs.
type JobView struct {
	Context       types.AnalysisContext
	FireAt        time.Time
	PriorityScore int
}

// Scheduler arms one debounce timer per file and hands ready jobs to the
// fire callback. All mutation funnels through the mutex so timer
// callbacks and event ingestion never race.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[string]*Job
	disposed bool

	baseDelay time.Duration
	onFire    func(ctx types.AnalysisContext)

	// now is swappable for tests
	now func() time.Time
}

// NewScheduler creates a scheduler with the given base debounce delay.
// onFire is invoked from a timer goroutine whenever a job becomes ready.
func NewScheduler(baseDelay time.Duration, onFire func(ctx types.AnalysisContext)) *Scheduler {
	return &Scheduler{
		pending:   make(map[string]*Job),
		baseDelay: baseDelay,
		onFire:    onFire,
		now:       time.Now,
	}
}

// SetBaseDelay updates the base delay for jobs scheduled after the call.
// In-flight timers keep their old delay.
func (s *Scheduler) SetBaseDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseDelay = d
}

// Schedule arms (or re-arms) the timer for the context's file path.
// An existing pending job for the same path is always canceled first.
func (s *Scheduler) Schedule(ctx types.AnalysisContext) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	delay := DelayFor(s.baseDelay, ctx.Priority)

	if prior, ok := s.pending[ctx.FilePath]; ok {
		prior.timer.Stop()
		delete(s.pending, ctx.FilePath)
	}

	job := &Job{
		Context:       ctx,
		FireAt:        s.now().Add(delay),
		PriorityScore: ScoreFor(ctx),
	}
	// The closure captures its own job: a timer that loses the Stop race
	// and runs anyway must not fire the replacement job early.
	job.timer = time.AfterFunc(delay, func() { s.fire(ctx.FilePath, job) })
	s.pending[ctx.FilePath] = job
	s.mu.Unlock()

	debug.LogSchedule("armed %s in %v (priority %s, score %d)\n",
		ctx.FilePath, delay, ctx.Priority, job.PriorityScore)
}

// Cancel clears the pending job for a path, if any. Used when the file is
// deleted before its timer fires.
func (s *Scheduler) Cancel(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.pending[path]; ok {
		job.timer.Stop()
		delete(s.pending, path)
	}
}

// PendingCount returns the number of armed timers.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Pending reports whether a path currently has an armed timer.
func (s *Scheduler) Pending(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[path]
	return ok
}

// Jobs returns a snapshot of pending jobs sorted by priority score
// descending. Display only: firing order is timer order, not score order.
func (s *Scheduler) Jobs() []JobView {
	s.mu.Lock()
	out := make([]JobView, 0, len(s.pending))
	for _, job := range s.pending {
		out = append(out, JobView{
			Context:       job.Context,
			FireAt:        job.FireAt,
			PriorityScore: job.PriorityScore,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	return out
}

// Stop cancels every pending timer without firing. The scheduler accepts
// no new work afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	for path, job := range s.pending {
		job.timer.Stop()
		delete(s.pending, path)
	}
}

// fire removes the job from the pending set and hands it to the callback.
// armed identifies the job whose timer expired: when the pending entry is a
// different job, this timer was replaced or canceled after it already
// started firing, and it must do nothing.
func (s *Scheduler) fire(path string, armed *Job) {
	s.mu.Lock()
	job, ok := s.pending[path]
	if ok && job == armed {
		delete(s.pending, path)
	} else {
		ok = false
	}
	disposed := s.disposed
	s.mu.Unlock()

	if !ok || disposed || s.onFire == nil {
		return
	}

	debug.LogSchedule("fired %s\n", path)
	s.onFire(job.Context)
}

// DelayFor computes the priority-scaled debounce delay with a 100ms floor.
func DelayFor(base time.Duration, priority types.Priority) time.Duration {
	delay := time.Duration(float64(base) * priority.DelayMultiplier())
	if delay < types.MinAnalysisDelayMs*time.Millisecond {
		delay = types.MinAnalysisDelayMs * time.Millisecond
	}
	return delay
}

// ScoreFor computes the introspection-only priority score: a weighted sum
// over change kind, priority tier, inverse complexity and dependency
// count. Higher is more urgent in the display.
func ScoreFor(ctx types.AnalysisContext) int {
	score := 0

	switch ctx.ChangeKind {
	case types.ChangeCreated:
		score += 30
	case types.ChangeDeleted:
		score += 20
	case types.ChangeModified:
		score += 10
	}

	switch ctx.Priority {
	case types.PriorityCritical:
		score += 100
	case types.PriorityHigh:
		score += 75
	case types.PriorityMedium:
		score += 50
	case types.PriorityLow:
		score += 25
	}

	// Simpler files finish faster, so they sort slightly ahead
	score += int(10 - ctx.EstimatedComplexity)

	score += len(ctx.Dependencies) * 2

	if ctx.Pattern != nil {
		score += int(ctx.Pattern.Confidence * 10)
	}

	return score
}
