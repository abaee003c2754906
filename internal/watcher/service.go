// Package watcher ties change ingestion, classification, estimation,
// scheduling and execution into one service.
//
// Data flow: filesystem change -> classifier (history + pattern) ->
// estimator (priority, complexity, dependencies) -> scheduler (debounce,
// priority-scaled delay) -> executor (admission, analysis call).
package watcher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/standardbeagle/lcw/internal/analysis"
	"github.com/standardbeagle/lcw/internal/config"
	"github.com/standardbeagle/lcw/internal/debug"
	lcwerrors "github.com/standardbeagle/lcw/internal/errors"
	"github.com/standardbeagle/lcw/internal/executor"
	"github.com/standardbeagle/lcw/internal/pattern"
	"github.com/standardbeagle/lcw/internal/schedule"
	"github.com/standardbeagle/lcw/internal/types"
)

// DiagnosticsSink is the downstream collaborator holding per-file
// diagnostics. Deletions must clear stale entries.
type DiagnosticsSink interface {
	Clear(filePath string)
}

// nopDiagnostics discards diagnostic updates.
type nopDiagnostics struct{}

func (nopDiagnostics) Clear(string) {}

// Service is the adaptive change-analysis scheduler.
type Service struct {
	mu      sync.Mutex
	cfg     *config.Config
	fw      *FileWatcher
	started bool

	classifier *pattern.Classifier
	estimator  *analysis.Estimator
	scheduler  *schedule.Scheduler
	exec       *executor.Executor

	diagnostics DiagnosticsSink

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService wires the pipeline together. The analyzer is the external
// analysis collaborator; reporter receives analysis failures.
func NewService(cfg *config.Config, analyzer executor.Analyzer, reporter lcwerrors.Reporter, diagnostics DiagnosticsSink) *Service {
	if diagnostics == nil {
		diagnostics = nopDiagnostics{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		cfg:         cfg,
		classifier:  pattern.NewClassifier(cfg.Watch.MaxFileSize),
		estimator:   analysis.NewEstimator(cfg.Watch.MaxFileSize),
		exec:        executor.NewExecutor(cfg.Watch.MaxConcurrentAnalysis, analyzer, reporter),
		diagnostics: diagnostics,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.scheduler = schedule.NewScheduler(
		time.Duration(cfg.Watch.AnalysisDelayMs)*time.Millisecond,
		s.runScheduled,
	)
	return s
}

// Executor exposes the underlying executor (manual analysis, MCP tools).
func (s *Service) Executor() *executor.Executor {
	return s.exec
}

// Start begins watching the configured project root.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Watch.Enabled {
		log.Printf("File watching disabled in configuration")
		return nil
	}
	if s.started {
		return nil
	}

	fw, err := NewFileWatcher(s.filterLocked(), s.cfg.Watch.MaxFileSize, s.HandleEvent)
	if err != nil {
		return lcwerrors.NewWatchError("start", s.cfg.Project.Root, err)
	}
	if err := fw.Start(s.cfg.Project.Root); err != nil {
		return lcwerrors.NewWatchError("start", s.cfg.Project.Root, err)
	}

	s.fw = fw
	s.started = true
	return nil
}

// Stop tears down subscriptions and clears all pending timers without
// firing. In-flight analysis runs to completion.
func (s *Service) Stop() {
	s.mu.Lock()
	fw := s.fw
	s.fw = nil
	s.started = false
	s.mu.Unlock()

	if fw != nil {
		_ = fw.Stop()
	}
	s.scheduler.Stop()
	s.cancel()
}

// Reload applies a new configuration: filesystem subscriptions are torn
// down and rebuilt, and the base delay changes for newly scheduled jobs.
// In-flight timers keep their old delay; nothing is rescheduled
// retroactively.
func (s *Service) Reload(cfg *config.Config) error {
	s.mu.Lock()
	wasStarted := s.started
	fw := s.fw
	s.fw = nil
	s.started = false
	s.cfg = cfg
	s.mu.Unlock()

	if fw != nil {
		_ = fw.Stop()
	}

	s.scheduler.SetBaseDelay(time.Duration(cfg.Watch.AnalysisDelayMs) * time.Millisecond)

	if wasStarted && cfg.Watch.Enabled {
		return s.Start()
	}
	return nil
}

// HandleEvent routes one change event through the pipeline. Exported for
// hosts that feed events from their own notification source.
func (s *Service) HandleEvent(event types.ChangeEvent) {
	if event.Kind == types.ChangeDeleted {
		// History still records the deletion; the pending job (if any)
		// is moot and downstream diagnostics are stale.
		s.classifier.Classify(event)
		s.scheduler.Cancel(event.FilePath)
		s.diagnostics.Clear(event.FilePath)
		return
	}

	dominant, ok := s.classifier.Classify(event)
	var dominantPtr *types.ChangePattern
	if ok {
		dominantPtr = &dominant
	}

	ctx := s.estimator.BuildContext(event, dominantPtr)

	s.mu.Lock()
	realtime := s.cfg.Watch.Enabled && s.cfg.Watch.RealTimeAnalysis
	s.mu.Unlock()

	if realtime {
		s.scheduler.Schedule(ctx)
	}
}

// runScheduled is the scheduler's fire callback.
func (s *Service) runScheduled(ctx types.AnalysisContext) {
	s.execute(ctx, types.SourceRealtime)
}

// AnalyzeNow routes a file through classification and admission
// immediately, bypassing the debounce timer. Used by batch mode and the
// manual MCP tool.
func (s *Service) AnalyzeNow(path string, source types.AnalysisSource) executor.Outcome {
	event := types.ChangeEvent{FilePath: path, Kind: types.ChangeModified, Timestamp: time.Now()}

	dominant, ok := s.classifier.Classify(event)
	var dominantPtr *types.ChangePattern
	if ok {
		dominantPtr = &dominant
	}

	return s.execute(s.estimator.BuildContext(event, dominantPtr), source)
}

func (s *Service) execute(jobCtx types.AnalysisContext, source types.AnalysisSource) executor.Outcome {
	s.mu.Lock()
	timeout := time.Duration(s.cfg.Analyzer.TimeoutSec) * time.Second
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	outcome := s.exec.Execute(callCtx, jobCtx, source)
	if outcome == executor.OutcomeCompleted {
		s.classifier.MarkAnalyzed(jobCtx.FilePath, time.Now())
	}
	debug.LogAnalysis("%s: %s\n", jobCtx.FilePath, outcome)
	return outcome
}

// Metrics returns a point-in-time snapshot of the whole pipeline.
func (s *Service) Metrics() executor.Snapshot {
	return s.exec.Metrics().Snapshot(
		s.classifier.FilesTracked(),
		s.scheduler.PendingCount(),
		s.exec.ActiveCount(),
	)
}

// ScheduledJobs returns pending jobs sorted by priority score descending.
func (s *Service) ScheduledJobs() []schedule.JobView {
	return s.scheduler.Jobs()
}

// RecentPatterns exposes the last classification candidates for a path.
func (s *Service) RecentPatterns(path string) []types.ChangePattern {
	return s.classifier.RecentPatterns(path)
}

// WatchStats returns raw watcher statistics, or zero stats when the
// watcher is not running.
func (s *Service) WatchStats() WatchStats {
	s.mu.Lock()
	fw := s.fw
	s.mu.Unlock()

	if fw == nil {
		return WatchStats{}
	}
	return fw.GetStats()
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Service) filterLocked() *PathFilter {
	return NewPathFilter(s.cfg.Project.Root, s.cfg.Include, s.cfg.Exclude)
}
