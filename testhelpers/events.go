package testhelpers

import (
	"time"

	"github.com/standardbeagle/lcw/internal/types"
)

// EventSeries builds a burst of change events for one file, spaced evenly
// across the given span and ending at `end`.
func EventSeries(path string, kind types.ChangeKind, count int, span time.Duration, end time.Time) []types.ChangeEvent {
	events := make([]types.ChangeEvent, count)
	var step time.Duration
	if count > 1 {
		step = span / time.Duration(count-1)
	}
	for i := range events {
		events[i] = types.ChangeEvent{
			FilePath:  path,
			Kind:      kind,
			Timestamp: end.Add(-span + step*time.Duration(i)),
		}
	}
	return events
}

// ModifiedAt returns a single modification event at the given instant.
func ModifiedAt(path string, at time.Time) types.ChangeEvent {
	return types.ChangeEvent{FilePath: path, Kind: types.ChangeModified, Timestamp: at}
}
