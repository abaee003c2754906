package pattern

import (
	"time"

	"github.com/standardbeagle/lcw/internal/types"
)

// FileHistory holds the bounded edit history for one watched file.
// Owned and mutated exclusively by the Classifier; created lazily on the
// first event for a path.
type FileHistory struct {
	FilePath     string
	Events       []types.ChangeEvent
	Patterns     []types.ChangePattern
	LastAnalyzed time.Time
}

func newFileHistory(path string) *FileHistory {
	return &FileHistory{
		FilePath: path,
		Events:   make([]types.ChangeEvent, 0, 8),
	}
}

// append records an event, evicting the oldest entry past capacity.
func (h *FileHistory) append(event types.ChangeEvent) {
	h.Events = append(h.Events, event)
	if len(h.Events) > types.HistoryCapacity {
		// Shift rather than reslice so the backing array stays bounded
		copy(h.Events, h.Events[len(h.Events)-types.HistoryCapacity:])
		h.Events = h.Events[:types.HistoryCapacity]
	}
}

// window returns the events inside the trailing window ending at ref.
// The returned slice aliases the history and must not be mutated.
func (h *FileHistory) window(ref time.Time, span time.Duration) []types.ChangeEvent {
	cutoff := ref.Add(-span)
	for i, e := range h.Events {
		if !e.Timestamp.Before(cutoff) {
			return h.Events[i:]
		}
	}
	return nil
}
