package executor

import (
	"sync"
	"time"
)

// Metrics accumulates analysis counters. Counters are monotonic for the
// process lifetime; gauges (queue size, active count, files watched) are
// composed by the service at snapshot time.
type Metrics struct {
	mu sync.Mutex

	completed int64
	errors    int64
	dropped   int64
	averageMs float64
	lastMs    int64
}

// Snapshot is a point-in-time copy of all analysis metrics.
type Snapshot struct {
	FilesWatched          int     `json:"files_watched"`
	AnalysisCompleted     int64   `json:"analysis_completed"`
	AnalysisErrors        int64   `json:"analysis_errors"`
	AnalysisDropped       int64   `json:"analysis_dropped"`
	AverageAnalysisTimeMs float64 `json:"average_analysis_time_ms"`
	LastAnalysisTimeMs    int64   `json:"last_analysis_time_ms"`
	QueueSize             int     `json:"queue_size"`
	ActiveAnalysisCount   int     `json:"active_analysis_count"`
}

// NewMetrics creates an empty metrics record
func NewMetrics() *Metrics {
	return &Metrics{}
}

// recordSuccess folds a completed analysis into the running mean.
func (m *Metrics) recordSuccess(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := duration.Milliseconds()
	m.completed++
	m.lastMs = ms
	// Running mean: avg = (avg*(n-1) + duration) / n
	m.averageMs = (m.averageMs*float64(m.completed-1) + float64(ms)) / float64(m.completed)
}

// recordFailure counts a failed analysis. Failures do not touch the mean.
func (m *Metrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// recordDrop counts an admission drop. Drops are telemetry, not errors.
func (m *Metrics) recordDrop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

// Snapshot returns the counters with the supplied gauges filled in.
func (m *Metrics) Snapshot(filesWatched, queueSize, activeCount int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		FilesWatched:          filesWatched,
		AnalysisCompleted:     m.completed,
		AnalysisErrors:        m.errors,
		AnalysisDropped:       m.dropped,
		AverageAnalysisTimeMs: m.averageMs,
		LastAnalysisTimeMs:    m.lastMs,
		QueueSize:             queueSize,
		ActiveAnalysisCount:   activeCount,
	}
}
