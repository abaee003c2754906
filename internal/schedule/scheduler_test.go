package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/standardbeagle/lcw/internal/types"
)

func mediumCtx(path string) types.AnalysisContext {
	return types.AnalysisContext{
		FilePath:            path,
		ChangeKind:          types.ChangeModified,
		Priority:            types.PriorityMedium,
		EstimatedComplexity: 1,
	}
}

func TestDelayFor(t *testing.T) {
	base := 2 * time.Second
	tests := []struct {
		priority types.Priority
		want     time.Duration
	}{
		{types.PriorityCritical, 200 * time.Millisecond},
		{types.PriorityHigh, 1 * time.Second},
		{types.PriorityMedium, 2 * time.Second},
		{types.PriorityLow, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := DelayFor(base, tt.priority); got != tt.want {
			t.Errorf("DelayFor(%v, %s) = %v, want %v", base, tt.priority, got, tt.want)
		}
	}
}

func TestDelayFor_Floor(t *testing.T) {
	// 500ms * 0.1 = 50ms, clamped to the 100ms floor.
	if got := DelayFor(500*time.Millisecond, types.PriorityCritical); got != 100*time.Millisecond {
		t.Errorf("Expected 100ms floor, got %v", got)
	}
}

func TestSchedule_FiresAfterDelay(t *testing.T) {
	fired := make(chan types.AnalysisContext, 1)
	s := NewScheduler(20*time.Millisecond, func(ctx types.AnalysisContext) {
		fired <- ctx
	})
	defer s.Stop()

	s.Schedule(mediumCtx("src/app.go"))

	select {
	case ctx := <-fired:
		if ctx.FilePath != "src/app.go" {
			t.Errorf("Fired wrong context: %s", ctx.FilePath)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for fire")
	}

	if s.PendingCount() != 0 {
		t.Errorf("Expected empty pending set after fire, got %d", s.PendingCount())
	}
}

func TestSchedule_BurstCollapsesToOneJob(t *testing.T) {
	var mu sync.Mutex
	var fired []types.AnalysisContext
	s := NewScheduler(50*time.Millisecond, func(ctx types.AnalysisContext) {
		mu.Lock()
		fired = append(fired, ctx)
		mu.Unlock()
	})
	defer s.Stop()

	// Rapid saves: each reschedule replaces the prior timer.
	for i := 0; i < 5; i++ {
		ctx := mediumCtx("src/app.go")
		ctx.EstimatedComplexity = float64(i) // distinguish last context
		s.Schedule(ctx)
	}

	if count := s.PendingCount(); count != 1 {
		t.Fatalf("Expected 1 pending job during burst, got %d", count)
	}

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 {
		t.Fatalf("Expected exactly 1 fire for the burst, got %d", len(fired))
	}
	if fired[0].EstimatedComplexity != 4 {
		t.Errorf("Fired job should carry the latest context, got complexity %f",
			fired[0].EstimatedComplexity)
	}
}

func TestSchedule_IndependentPaths(t *testing.T) {
	fired := make(chan string, 2)
	s := NewScheduler(20*time.Millisecond, func(ctx types.AnalysisContext) {
		fired <- ctx.FilePath
	})
	defer s.Stop()

	s.Schedule(mediumCtx("src/a.go"))
	s.Schedule(mediumCtx("src/b.go"))

	if count := s.PendingCount(); count != 2 {
		t.Errorf("Expected 2 pending jobs, got %d", count)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case path := <-fired:
			seen[path] = true
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for fires")
		}
	}
	if !seen["src/a.go"] || !seen["src/b.go"] {
		t.Errorf("Expected both paths to fire, got %v", seen)
	}
}

func TestCancel_PreventsFire(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(30*time.Millisecond, func(ctx types.AnalysisContext) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Schedule(mediumCtx("src/app.go"))
	s.Cancel("src/app.go")

	select {
	case <-fired:
		t.Fatal("Canceled job must not fire")
	case <-time.After(150 * time.Millisecond):
	}
	if s.Pending("src/app.go") {
		t.Error("Canceled path should not be pending")
	}
}

func TestStop_CancelsAllWithoutFiring(t *testing.T) {
	fired := make(chan struct{}, 4)
	s := NewScheduler(30*time.Millisecond, func(ctx types.AnalysisContext) {
		fired <- struct{}{}
	})

	s.Schedule(mediumCtx("src/a.go"))
	s.Schedule(mediumCtx("src/b.go"))
	s.Stop()

	if s.PendingCount() != 0 {
		t.Errorf("Expected no pending jobs after stop, got %d", s.PendingCount())
	}

	select {
	case <-fired:
		t.Fatal("Jobs must not fire after Stop")
	case <-time.After(150 * time.Millisecond):
	}

	// Scheduling after stop is a no-op.
	s.Schedule(mediumCtx("src/c.go"))
	if s.PendingCount() != 0 {
		t.Error("Disposed scheduler must not accept new work")
	}
}

func TestFire_StaleTimerDoesNotFireReplacement(t *testing.T) {
	fired := make(chan types.AnalysisContext, 2)
	s := NewScheduler(10*time.Second, func(ctx types.AnalysisContext) {
		fired <- ctx
	})
	defer s.Stop()

	// First job's timer expires concurrently with the reschedule: Stop
	// returns false and the callback runs anyway, but by then the pending
	// entry belongs to the replacement.
	first := mediumCtx("src/app.go")
	first.EstimatedComplexity = 1
	s.Schedule(first)

	s.mu.Lock()
	staleJob := s.pending["src/app.go"]
	s.mu.Unlock()

	replacement := mediumCtx("src/app.go")
	replacement.EstimatedComplexity = 2
	s.Schedule(replacement)

	// Simulate the stale timer callback delivering after the reschedule.
	s.fire("src/app.go", staleJob)

	select {
	case ctx := <-fired:
		t.Fatalf("Stale timer must not fire the replacement job, got complexity %f",
			ctx.EstimatedComplexity)
	case <-time.After(100 * time.Millisecond):
	}
	if !s.Pending("src/app.go") {
		t.Fatal("Replacement job must stay pending with its full delay")
	}

	// The replacement's own timer still fires it normally.
	s.mu.Lock()
	currentJob := s.pending["src/app.go"]
	s.mu.Unlock()
	s.fire("src/app.go", currentJob)

	select {
	case ctx := <-fired:
		if ctx.EstimatedComplexity != 2 {
			t.Errorf("Expected replacement context, got complexity %f", ctx.EstimatedComplexity)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for the replacement to fire")
	}
}

func TestSchedule_RescheduleAtFireInstantKeepsNewDelay(t *testing.T) {
	fired := make(chan types.AnalysisContext, 32)
	s := NewScheduler(time.Second, func(ctx types.AnalysisContext) {
		fired <- ctx
	})
	defer s.Stop()

	// Critical jobs fire at the 100ms floor; the Low replacement carries a
	// 2s delay. Rescheduling right at the fire instant repeatedly tries to
	// hand a stale timer the replacement job.
	for i := 0; i < 20; i++ {
		fast := mediumCtx("src/app.go")
		fast.Priority = types.PriorityCritical
		s.Schedule(fast)

		time.Sleep(100 * time.Millisecond)

		slow := mediumCtx("src/app.go")
		slow.Priority = types.PriorityLow
		s.Schedule(slow)
	}

	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case ctx := <-fired:
			if ctx.Priority == types.PriorityLow {
				t.Fatal("Low-priority replacement fired before its 2s delay elapsed")
			}
		case <-deadline:
			return
		}
	}
}

func TestSetBaseDelay_AppliesToNewJobsOnly(t *testing.T) {
	s := NewScheduler(10*time.Second, nil)
	defer s.Stop()

	s.Schedule(mediumCtx("src/old.go"))
	s.SetBaseDelay(500 * time.Millisecond)
	s.Schedule(mediumCtx("src/new.go"))

	jobs := s.Jobs()
	var oldJob, newJob *JobView
	for i := range jobs {
		switch jobs[i].Context.FilePath {
		case "src/old.go":
			oldJob = &jobs[i]
		case "src/new.go":
			newJob = &jobs[i]
		}
	}
	if oldJob == nil || newJob == nil {
		t.Fatal("Expected both jobs pending")
	}
	if !oldJob.FireAt.After(newJob.FireAt.Add(time.Second)) {
		t.Error("In-flight job should keep the old, longer delay")
	}
}

func TestJobs_SortedByScoreDescending(t *testing.T) {
	s := NewScheduler(10*time.Second, nil)
	defer s.Stop()

	low := mediumCtx("docs/readme.md")
	low.Priority = types.PriorityLow
	critical := mediumCtx("package.json")
	critical.Priority = types.PriorityCritical
	s.Schedule(low)
	s.Schedule(critical)
	s.Schedule(mediumCtx("test/api_test.go"))

	jobs := s.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].PriorityScore > jobs[i-1].PriorityScore {
			t.Errorf("Jobs not sorted descending: %d before %d",
				jobs[i-1].PriorityScore, jobs[i].PriorityScore)
		}
	}
	if jobs[0].Context.FilePath != "package.json" {
		t.Errorf("Critical job should sort first, got %s", jobs[0].Context.FilePath)
	}
}

func TestScoreFor(t *testing.T) {
	ctx := types.AnalysisContext{
		FilePath:            "src/app.go",
		ChangeKind:          types.ChangeCreated,
		Priority:            types.PriorityHigh,
		EstimatedComplexity: 3,
		Dependencies:        []string{"fmt", "strings"},
		Pattern:             &types.ChangePattern{Kind: types.PatternNewFeature, Confidence: 0.8},
	}
	// 30 (created) + 75 (high) + 7 (10-3) + 4 (2 deps) + 8 (0.8*10)
	if got := ScoreFor(ctx); got != 124 {
		t.Errorf("Expected score 124, got %d", got)
	}
}

func TestScoreFor_NoPattern(t *testing.T) {
	ctx := types.AnalysisContext{
		ChangeKind:          types.ChangeModified,
		Priority:            types.PriorityLow,
		EstimatedComplexity: 10,
	}
	// 10 + 25 + 0 + 0 + 0
	if got := ScoreFor(ctx); got != 35 {
		t.Errorf("Expected score 35, got %d", got)
	}
}
