// Package executor enforces the global cap on simultaneous analysis jobs
// and invokes the external analysis collaborator.
//
// Admission control is a soft cap: a job that finds its file already
// active, or the capacity exhausted, is dropped rather than queued. Once
// admitted, a job runs to completion or failure; there is no cancellation
// of in-flight analysis.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/lcw/internal/debug"
	lcwerrors "github.com/standardbeagle/lcw/internal/errors"
	"github.com/standardbeagle/lcw/internal/types"
)

// Analyzer is the opaque external analysis collaborator. Calls may take
// seconds to tens of seconds; any error is an analysis failure. The result
// payload format is owned by the collaborator and never parsed here.
type Analyzer interface {
	Analyze(ctx context.Context, task string, filePath string) (string, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, task string, filePath string) (string, error)

// Analyze implements Analyzer
func (f AnalyzerFunc) Analyze(ctx context.Context, task string, filePath string) (string, error) {
	return f(ctx, task, filePath)
}

// Outcome is the admission result for one execution attempt.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	OutcomeDroppedActive   // file already being analyzed
	OutcomeDroppedCapacity // concurrency cap reached
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeDroppedActive:
		return "dropped_active"
	case OutcomeDroppedCapacity:
		return "dropped_capacity"
	default:
		return "unknown"
	}
}

// Executor runs admitted analysis jobs against the Analyzer.
type Executor struct {
	analyzer Analyzer
	reporter lcwerrors.Reporter
	metrics  *Metrics

	mu     sync.Mutex
	active map[string]time.Time
	sem    *semaphore.Weighted

	// onResult receives successful payloads (diagnostics rendering etc.)
	onResult func(filePath, payload string)
}

// NewExecutor creates an executor with the given concurrency cap.
func NewExecutor(maxConcurrent int, analyzer Analyzer, reporter lcwerrors.Reporter) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = types.DefaultMaxConcurrentAnalysis
	}
	if reporter == nil {
		reporter = lcwerrors.NewLogReporter()
	}
	return &Executor{
		analyzer: analyzer,
		reporter: reporter,
		metrics:  NewMetrics(),
		active:   make(map[string]time.Time),
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// ActiveCount returns the number of in-flight analysis jobs.
func (e *Executor) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Active reports whether a path is currently being analyzed.
func (e *Executor) Active(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[path]
	return ok
}

// admit performs the duplicate and capacity checks atomically so the
// active set never exceeds the cap, even transiently.
func (e *Executor) admit(path string) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[path]; ok {
		return OutcomeDroppedActive
	}
	if !e.sem.TryAcquire(1) {
		return OutcomeDroppedCapacity
	}
	e.active[path] = time.Now()
	return OutcomeCompleted
}

// release clears the active entry and the semaphore slot. Runs on both
// success and failure so no file stays stuck as active.
func (e *Executor) release(path string) {
	e.mu.Lock()
	delete(e.active, path)
	e.mu.Unlock()
	e.sem.Release(1)
}

// SetOnResult registers a sink for successful analysis payloads.
func (e *Executor) SetOnResult(fn func(filePath, payload string)) {
	e.onResult = fn
}

// Metrics exposes the executor's metrics record.
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

// Execute routes one job through admission and, if admitted, runs the
// analysis to completion. Blocking; callers run it from timer goroutines
// or the batch loop.
func (e *Executor) Execute(ctx context.Context, job types.AnalysisContext, source types.AnalysisSource) Outcome {
	if outcome := e.admit(job.FilePath); outcome != OutcomeCompleted {
		// Lost the admission race. Deliberately not requeued.
		e.metrics.recordDrop()
		debug.LogAnalysis("drop %s: %s\n", job.FilePath, outcome)
		return outcome
	}
	defer e.release(job.FilePath)

	task := SynthesizeTask(job, source)
	debug.LogAnalysis("analyzing %s (%s)\n", job.FilePath, source)

	start := time.Now()
	payload, err := e.analyzer.Analyze(ctx, task, job.FilePath)
	duration := time.Since(start)

	if err != nil {
		e.metrics.recordFailure()
		analysisErr := lcwerrors.NewAnalysisError(job.FilePath, string(source), err)
		if ctx.Err() == context.DeadlineExceeded {
			analysisErr = analysisErr.WithTimeout()
		}
		e.reporter.Report(analysisErr, lcwerrors.ReportContext{
			Operation: "analyze",
			Component: "executor",
			FilePath:  job.FilePath,
		}, lcwerrors.SeverityMedium)
		return OutcomeFailed
	}

	e.metrics.recordSuccess(duration)
	if e.onResult != nil {
		e.onResult(job.FilePath, payload)
	}
	return OutcomeCompleted
}

// SynthesizeTask builds the natural-language task description handed to
// the analysis collaborator.
func SynthesizeTask(job types.AnalysisContext, source types.AnalysisSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the recently %s %s file %q for potential issues, bugs and improvements.",
		job.ChangeKind, job.Language, job.FilePath)
	fmt.Fprintf(&b, " Priority: %s. Estimated complexity: %.1f/10.", job.Priority, job.EstimatedComplexity)
	if job.Pattern != nil {
		fmt.Fprintf(&b, " Recent edits look like %s (confidence %.2f).", job.Pattern.Kind, job.Pattern.Confidence)
	}
	if len(job.Dependencies) > 0 {
		fmt.Fprintf(&b, " External dependencies: %s.", strings.Join(job.Dependencies, ", "))
	}
	if source == types.SourceBatch {
		b.WriteString(" This is part of a workspace-wide batch review; keep findings concise.")
	}
	return b.String()
}
