package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	lcwerrors "github.com/standardbeagle/lcw/internal/errors"
	"github.com/standardbeagle/lcw/internal/types"
)

func jobFor(path string) types.AnalysisContext {
	return types.AnalysisContext{
		FilePath:            path,
		Language:            "go",
		ChangeKind:          types.ChangeModified,
		Priority:            types.PriorityMedium,
		EstimatedComplexity: 2,
	}
}

// blockingAnalyzer holds every call until released.
type blockingAnalyzer struct {
	started chan string
	release chan struct{}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, task, filePath string) (string, error) {
	b.started <- filePath
	<-b.release
	return "ok", nil
}

func TestExecute_Success(t *testing.T) {
	e := NewExecutor(2, AnalyzerFunc(func(ctx context.Context, task, path string) (string, error) {
		return "findings", nil
	}), lcwerrors.NopReporter{})

	var gotPath, gotPayload string
	e.SetOnResult(func(path, payload string) {
		gotPath = path
		gotPayload = payload
	})

	outcome := e.Execute(context.Background(), jobFor("src/app.go"), types.SourceRealtime)
	if outcome != OutcomeCompleted {
		t.Fatalf("Expected completed, got %s", outcome)
	}
	if gotPath != "src/app.go" || gotPayload != "findings" {
		t.Errorf("onResult got (%q, %q)", gotPath, gotPayload)
	}

	snap := e.Metrics().Snapshot(0, 0, e.ActiveCount())
	if snap.AnalysisCompleted != 1 {
		t.Errorf("Expected 1 completed, got %d", snap.AnalysisCompleted)
	}
	if snap.ActiveAnalysisCount != 0 {
		t.Errorf("Expected no active jobs after completion, got %d", snap.ActiveAnalysisCount)
	}
}

func TestExecute_CapacityDrop(t *testing.T) {
	defer goleak.VerifyNone(t)

	analyzer := &blockingAnalyzer{
		started: make(chan string, 3),
		release: make(chan struct{}),
	}
	e := NewExecutor(2, analyzer, lcwerrors.NopReporter{})

	var wg sync.WaitGroup
	for _, path := range []string{"src/a.go", "src/b.go"} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			e.Execute(context.Background(), jobFor(path), types.SourceRealtime)
		}(path)
	}

	// Wait until both jobs hold capacity.
	for i := 0; i < 2; i++ {
		select {
		case <-analyzer.started:
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for jobs to start")
		}
	}

	if got := e.ActiveCount(); got != 2 {
		t.Fatalf("Expected 2 active jobs, got %d", got)
	}

	// Third job finds the cap exhausted and is dropped, not queued.
	outcome := e.Execute(context.Background(), jobFor("src/c.go"), types.SourceRealtime)
	if outcome != OutcomeDroppedCapacity {
		t.Fatalf("Expected dropped_capacity, got %s", outcome)
	}

	close(analyzer.release)
	wg.Wait()

	snap := e.Metrics().Snapshot(0, 0, e.ActiveCount())
	if snap.AnalysisCompleted != 2 {
		t.Errorf("Expected 2 completed, got %d", snap.AnalysisCompleted)
	}
	if snap.AnalysisDropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", snap.AnalysisDropped)
	}
	if snap.ActiveAnalysisCount != 0 {
		t.Errorf("Expected no active jobs, got %d", snap.ActiveAnalysisCount)
	}
}

func TestExecute_DuplicatePathDrop(t *testing.T) {
	analyzer := &blockingAnalyzer{
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	e := NewExecutor(4, analyzer, lcwerrors.NopReporter{})

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Execute(context.Background(), jobFor("src/app.go"), types.SourceRealtime)
	}()
	<-analyzer.started

	outcome := e.Execute(context.Background(), jobFor("src/app.go"), types.SourceManual)
	if outcome != OutcomeDroppedActive {
		t.Fatalf("Expected dropped_active for in-flight path, got %s", outcome)
	}

	close(analyzer.release)
	if first := <-done; first != OutcomeCompleted {
		t.Errorf("Expected first job to complete, got %s", first)
	}
}

func TestExecute_FailureClearsActive(t *testing.T) {
	e := NewExecutor(1, AnalyzerFunc(func(ctx context.Context, task, path string) (string, error) {
		return "", errors.New("model unavailable")
	}), lcwerrors.NopReporter{})

	outcome := e.Execute(context.Background(), jobFor("src/app.go"), types.SourceRealtime)
	if outcome != OutcomeFailed {
		t.Fatalf("Expected failed, got %s", outcome)
	}
	if e.Active("src/app.go") {
		t.Error("Failed job must release its active slot")
	}

	// Capacity is free again.
	ok := e.Execute(context.Background(), jobFor("src/app.go"), types.SourceRealtime)
	if ok != OutcomeFailed {
		t.Errorf("Expected the slot to be reusable, got %s", ok)
	}

	snap := e.Metrics().Snapshot(0, 0, 0)
	if snap.AnalysisErrors != 2 {
		t.Errorf("Expected 2 errors, got %d", snap.AnalysisErrors)
	}
}

func TestExecute_ConcurrencyCapNeverExceeded(t *testing.T) {
	const maxConc = 3
	var active, peak int64

	e := NewExecutor(maxConc, AnalyzerFunc(func(ctx context.Context, task, path string) (string, error) {
		n := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return "ok", nil
	}), lcwerrors.NopReporter{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.Execute(context.Background(), jobFor(fmt.Sprintf("src/f%d.go", i)), types.SourceRealtime)
		}(i)
	}
	wg.Wait()

	if peak > maxConc {
		t.Errorf("Concurrency cap violated: peak %d > %d", peak, maxConc)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("Expected drained executor, got %d active", e.ActiveCount())
	}
}

func TestMetrics_RunningMean(t *testing.T) {
	m := NewMetrics()
	m.recordSuccess(100 * time.Millisecond)
	m.recordSuccess(200 * time.Millisecond)
	m.recordSuccess(600 * time.Millisecond)

	snap := m.Snapshot(0, 0, 0)
	if snap.AverageAnalysisTimeMs != 300 {
		t.Errorf("Expected mean 300ms, got %f", snap.AverageAnalysisTimeMs)
	}
	if snap.LastAnalysisTimeMs != 600 {
		t.Errorf("Expected last 600ms, got %d", snap.LastAnalysisTimeMs)
	}
	if snap.AnalysisCompleted != 3 {
		t.Errorf("Expected 3 completed, got %d", snap.AnalysisCompleted)
	}
}

func TestSynthesizeTask(t *testing.T) {
	job := jobFor("src/app.go")
	job.Pattern = &types.ChangePattern{Kind: types.PatternRefactor, Confidence: 0.52}
	job.Dependencies = []string{"fmt", "strings"}

	task := SynthesizeTask(job, types.SourceBatch)
	for _, want := range []string{
		"src/app.go",
		"modified",
		"go",
		"medium",
		"refactor",
		"fmt, strings",
		"batch review",
	} {
		if !strings.Contains(task, want) {
			t.Errorf("Task missing %q: %s", want, task)
		}
	}
}
