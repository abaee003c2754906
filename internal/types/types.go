package types

import (
	"time"
)

// Common system-wide constants
const (
	// DefaultMaxConcurrentAnalysis bounds simultaneous analysis jobs.
	// Rationale: deep analysis calls take seconds to tens of seconds;
	// more than a handful in flight just queues on the provider side
	// and burns tokens on stale snapshots.
	DefaultMaxConcurrentAnalysis = 3

	// DefaultAnalysisDelayMs is the base debounce delay before a changed
	// file is handed to the analyzer. Scaled per priority tier.
	DefaultAnalysisDelayMs = 2000

	// MinAnalysisDelayMs is the floor for the priority-scaled delay.
	// Even a Critical file gets a short quiet period so that a burst of
	// editor saves collapses into one job.
	MinAnalysisDelayMs = 100

	// HistoryCapacity is the maximum number of change events retained
	// per file. Oldest entries are evicted on overflow.
	HistoryCapacity = 50

	// PatternWindow is the trailing window the classifier considers when
	// recomputing change patterns for a file.
	PatternWindow = 5 * time.Minute

	// DefaultMaxFileSize caps content reads during classification and
	// complexity estimation. Larger files fall back to neutral signals.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB
)

// ChangeKind is the kind of filesystem change observed for a file.
type ChangeKind uint8

const (
	ChangeCreated ChangeKind = iota
	ChangeModified
	ChangeDeleted
)

// String returns the change kind name used in logs and task descriptions.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single filesystem notification for a watched file.
// Immutable once created.
type ChangeEvent struct {
	FilePath  string
	Kind      ChangeKind
	Timestamp time.Time
}

// PatternKind names a heuristic change-pattern category.
type PatternKind uint8

const (
	PatternBulkEdit PatternKind = iota
	PatternIncremental
	PatternRefactor
	PatternNewFeature
	PatternBugFix
	PatternFormatting
)

// String returns the pattern name used in logs and task descriptions.
func (p PatternKind) String() string {
	switch p {
	case PatternBulkEdit:
		return "bulk_edit"
	case PatternIncremental:
		return "incremental"
	case PatternRefactor:
		return "refactor"
	case PatternNewFeature:
		return "new_feature"
	case PatternBugFix:
		return "bug_fix"
	case PatternFormatting:
		return "formatting"
	default:
		return "unknown"
	}
}

// ChangePattern is one classification candidate for a file's recent edit
// history. Confidence is a heuristic [0,1] estimate, not a probability.
type ChangePattern struct {
	Kind        PatternKind
	Confidence  float64
	Description string
	Indicators  []string
}

// Priority is the urgency tier assigned to a changed file.
// Lower value means more urgent.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// String returns the priority tier name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// DelayMultiplier returns the scalar applied to the base analysis delay
// for this tier. Higher urgency fires sooner.
func (p Priority) DelayMultiplier() float64 {
	switch p {
	case PriorityCritical:
		return 0.1
	case PriorityHigh:
		return 0.5
	case PriorityMedium:
		return 1.0
	case PriorityLow:
		return 2.0
	default:
		return 1.0
	}
}

// AnalysisSource distinguishes how a job reached the executor.
type AnalysisSource string

const (
	SourceRealtime AnalysisSource = "realtime"
	SourceBatch    AnalysisSource = "batch"
	SourceManual   AnalysisSource = "manual"
)

// AnalysisContext carries everything the scheduler and executor need for
// one changed file. Assembled fresh per event; never persisted beyond the
// scheduling cycle that consumes it.
type AnalysisContext struct {
	FilePath            string
	Language            string
	ChangeKind          ChangeKind
	Pattern             *ChangePattern // dominant pattern, nil if none crossed the threshold
	Priority            Priority
	EstimatedComplexity float64 // [0,10]
	Dependencies        []string
}
