// Package pattern classifies the shape of recent edits to a file.
//
// The classifier keeps a bounded per-file event history and runs a set of
// independent heuristic detectors over the events inside a trailing
// five-minute window. The highest-confidence candidate becomes the file's
// dominant pattern, reported only above a 0.5 threshold. Heuristics are
// deliberately crude keyword and rate proxies; there is no parsing here.
package pattern

import (
	"os"
	"sync"
	"time"

	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/types"
)

// reportThreshold gates which dominant pattern is surfaced to callers.
// Candidates below it are still retained in history for inspection.
const reportThreshold = 0.5

// Classifier owns all per-file histories. Safe for concurrent use.
type Classifier struct {
	mu        sync.Mutex
	histories map[string]*FileHistory

	maxFileSize int64

	// readFile is swappable for tests; defaults to a size-capped os.ReadFile
	readFile func(path string) (string, bool)
}

// NewClassifier creates a classifier with the given content-read size cap.
func NewClassifier(maxFileSize int64) *Classifier {
	c := &Classifier{
		histories:   make(map[string]*FileHistory),
		maxFileSize: maxFileSize,
	}
	c.readFile = c.readFileCapped
	return c
}

// SetReadFile overrides content reads (for testing).
func (c *Classifier) SetReadFile(fn func(path string) (string, bool)) {
	c.readFile = fn
}

// Classify appends the event to the file's history, recomputes the pattern
// candidates from the trailing window, and returns the dominant pattern if
// its confidence crosses the report threshold.
func (c *Classifier) Classify(event types.ChangeEvent) (types.ChangePattern, bool) {
	// Content read happens outside the lock: it can block on the OS and
	// detectors only need a snapshot.
	var content *string
	if event.Kind != types.ChangeDeleted {
		if text, ok := c.readFile(event.FilePath); ok {
			content = &text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	history, ok := c.histories[event.FilePath]
	if !ok {
		history = newFileHistory(event.FilePath)
		c.histories[event.FilePath] = history
	}
	history.append(event)

	window := history.window(event.Timestamp, types.PatternWindow)

	candidates := make([]types.ChangePattern, 0, len(detectors))
	for _, detect := range detectors {
		if candidate, ok := detect(window, content); ok {
			candidates = append(candidates, candidate)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, incrementalFallback())
	}
	history.Patterns = candidates

	dominant := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Confidence > dominant.Confidence {
			dominant = candidate
		}
	}

	debug.LogWatch("classified %s as %s (%.2f, %d candidates)\n",
		event.FilePath, dominant.Kind, dominant.Confidence, len(candidates))

	if dominant.Confidence <= reportThreshold {
		return types.ChangePattern{}, false
	}
	return dominant, true
}

// RecentPatterns returns the candidate list from the last classification
// for a path, or nil if the path has no history.
func (c *Classifier) RecentPatterns(path string) []types.ChangePattern {
	c.mu.Lock()
	defer c.mu.Unlock()

	history, ok := c.histories[path]
	if !ok {
		return nil
	}
	out := make([]types.ChangePattern, len(history.Patterns))
	copy(out, history.Patterns)
	return out
}

// Events returns a copy of the retained events for a path.
func (c *Classifier) Events(path string) []types.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	history, ok := c.histories[path]
	if !ok {
		return nil
	}
	out := make([]types.ChangeEvent, len(history.Events))
	copy(out, history.Events)
	return out
}

// MarkAnalyzed records when a path was last handed to the analyzer.
func (c *Classifier) MarkAnalyzed(path string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if history, ok := c.histories[path]; ok {
		history.LastAnalyzed = at
	}
}

// FilesTracked returns the number of paths with history.
func (c *Classifier) FilesTracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.histories)
}

// Reset clears all histories wholesale.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histories = make(map[string]*FileHistory)
}

// readFileCapped reads file content best-effort. Unreadable or oversized
// files yield no signal rather than an error.
func (c *Classifier) readFileCapped(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > c.maxFileSize {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
