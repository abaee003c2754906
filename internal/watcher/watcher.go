package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/types"
)

// FileWatcher monitors the file system and emits filtered ChangeEvents.
// It owns the fsnotify subscriptions; classification and scheduling live
// in the Service.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	filter  *PathFilter

	maxFileSize int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// onEvent receives every event that survives filtering
	onEvent func(event types.ChangeEvent)

	// Last content hash per path, to suppress no-op write echoes
	hashMu sync.Mutex
	hashes map[string]uint64

	// Watch statistics
	statsMu         sync.RWMutex
	eventsProcessed int64
	eventsFiltered  int64
	eventsSuppressed int64
	errorCount      int64
	lastEventTime   time.Time
}

// WatchStats contains statistics about file watching operations
type WatchStats struct {
	EventsProcessed  int64
	EventsFiltered   int64
	EventsSuppressed int64
	ErrorCount       int64
	LastEventTime    time.Time
	IsActive         bool
}

// NewFileWatcher creates a file watcher that routes matching events to
// onEvent.
func NewFileWatcher(filter *PathFilter, maxFileSize int64, onEvent func(types.ChangeEvent)) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FileWatcher{
		watcher:     watcher,
		filter:      filter,
		maxFileSize: maxFileSize,
		onEvent:     onEvent,
		hashes:      make(map[string]uint64),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching the given root directory recursively.
func (fw *FileWatcher) Start(root string) error {
	debug.LogWatch("starting file watcher for directory: %s\n", root)

	if err := fw.addWatches(root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
	}

	fw.wg.Add(1)
	go fw.processEvents()

	debug.LogWatch("file watcher started\n")
	return nil
}

// Stop stops the file watcher and waits for the event loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.cancel()

	if err := fw.watcher.Close(); err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}

	fw.wg.Wait()
	return nil
}

// addWatches recursively adds watches to all relevant directories
func (fw *FileWatcher) addWatches(root string) error {
	// Track visited directories to prevent infinite loops from symlink cycles
	visitedDirs := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil // Skip symlinks that can't be resolved
		}
		if visitedDirs[realPath] {
			return filepath.SkipDir
		}
		visitedDirs[realPath] = true

		if path != root && fw.filter.ExcludesDir(path) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
			return nil // Continue despite errors
		}

		return nil
	})
}

// processEvents processes file system events from fsnotify
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.incrementStats(0, 0, 0, 1)
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent filters a single raw event and forwards it as a ChangeEvent
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("received event %v for path %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		// File is gone: deletions and renames-away pass through the filter
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if fw.filter.Match(path) {
				fw.forget(path)
				fw.emit(types.ChangeEvent{FilePath: path, Kind: types.ChangeDeleted, Timestamp: time.Now()})
			} else {
				fw.incrementStats(0, 1, 0, 0)
			}
		}
		return
	}

	if info.IsDir() {
		fw.handleDirectoryEvent(event, path)
		return
	}

	if info.Size() > fw.maxFileSize {
		debug.LogWatch("skipping oversized file %s (%d bytes)\n", path, info.Size())
		fw.incrementStats(0, 1, 0, 0)
		return
	}
	if !fw.filter.Match(path) {
		debug.LogWatch("ignoring file %s (doesn't match patterns)\n", path)
		fw.incrementStats(0, 1, 0, 0)
		return
	}

	var kind types.ChangeKind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = types.ChangeCreated
	case event.Op&fsnotify.Write != 0:
		kind = types.ChangeModified
	default:
		return // Chmod and friends carry no content signal
	}

	// Editors echo writes without changing content (touch, atomic-save
	// double events). Suppress those before any heavier work.
	if kind == types.ChangeModified && !fw.contentChanged(path) {
		debug.LogWatch("suppressing no-op write for %s\n", path)
		fw.incrementStats(0, 0, 1, 0)
		return
	}
	if kind == types.ChangeCreated {
		fw.contentChanged(path) // seed the hash for subsequent writes
	}

	fw.emit(types.ChangeEvent{FilePath: path, Kind: kind, Timestamp: time.Now()})
}

// handleDirectoryEvent adds watches for newly created directories
func (fw *FileWatcher) handleDirectoryEvent(event fsnotify.Event, path string) {
	if event.Op&fsnotify.Create == 0 {
		return
	}
	if fw.filter.ExcludesDir(path) {
		return
	}
	if err := fw.watcher.Add(path); err != nil {
		log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
	} else {
		debug.LogWatch("added watch for new directory: %s\n", path)
	}
}

// contentChanged hashes the file and reports whether the content differs
// from the last observed hash. Unreadable files count as changed.
func (fw *FileWatcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	sum := xxhash.Sum64(data)

	fw.hashMu.Lock()
	defer fw.hashMu.Unlock()
	if prev, ok := fw.hashes[path]; ok && prev == sum {
		return false
	}
	fw.hashes[path] = sum
	return true
}

// forget drops the stored hash for a deleted path
func (fw *FileWatcher) forget(path string) {
	fw.hashMu.Lock()
	delete(fw.hashes, path)
	fw.hashMu.Unlock()
}

func (fw *FileWatcher) emit(event types.ChangeEvent) {
	fw.incrementStats(1, 0, 0, 0)
	if fw.onEvent != nil {
		fw.onEvent(event)
	}
}

// incrementStats updates watch mode statistics
func (fw *FileWatcher) incrementStats(processed, filtered, suppressed, errs int64) {
	fw.statsMu.Lock()
	defer fw.statsMu.Unlock()

	fw.eventsProcessed += processed
	fw.eventsFiltered += filtered
	fw.eventsSuppressed += suppressed
	fw.errorCount += errs
	fw.lastEventTime = time.Now()
}

// GetStats returns current watch mode statistics
func (fw *FileWatcher) GetStats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed:  fw.eventsProcessed,
		EventsFiltered:   fw.eventsFiltered,
		EventsSuppressed: fw.eventsSuppressed,
		ErrorCount:       fw.errorCount,
		LastEventTime:    fw.lastEventTime,
		IsActive:         fw.ctx.Err() == nil,
	}
}
