package watcher

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/executor"
	"github.com/standardbeagle/lcw/internal/types"
)

// BatchResult summarizes one batch analysis run. FailedPaths lists the
// files whose analysis failed, in analysis order.
type BatchResult struct {
	Total       int
	Completed   int
	Failed      int
	Dropped     int
	FailedPaths []string
}

// BatchProgress is called after each file with the running completion
// count. Callbacks are coarse: one per file, sequential.
type BatchProgress func(done, total int)

// RunBatch walks the configured include patterns under the project root
// and analyzes every matching file sequentially. Exclusions apply the
// same way they do for live watching.
func (s *Service) RunBatch(progress BatchProgress) (BatchResult, error) {
	s.mu.Lock()
	root := s.cfg.Project.Root
	includes := append([]string(nil), s.cfg.Include...)
	excludes := append([]string(nil), s.cfg.Exclude...)
	maxFileSize := s.cfg.Watch.MaxFileSize
	s.mu.Unlock()

	filter := NewPathFilter(root, includes, excludes)

	files, err := collectBatchFiles(root, includes, filter, maxFileSize)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(files)}
	for i, path := range files {
		switch s.AnalyzeNow(path, types.SourceBatch) {
		case executor.OutcomeCompleted:
			result.Completed++
		case executor.OutcomeFailed:
			result.Failed++
			result.FailedPaths = append(result.FailedPaths, path)
		default:
			result.Dropped++
		}
		if progress != nil {
			progress(i+1, result.Total)
		}
	}

	debug.LogAnalysis("batch: %d files, %d completed, %d failed, %d dropped\n",
		result.Total, result.Completed, result.Failed, result.Dropped)
	return result, nil
}

// collectBatchFiles expands include globs to a deduplicated, sorted list
// of regular files that pass the filter and size cap.
func collectBatchFiles(root string, includes []string, filter *PathFilter, maxFileSize int64) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range includes {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			// Malformed patterns were already dropped at load; a glob
			// error here means a filesystem problem worth surfacing.
			return nil, err
		}
		for _, match := range matches {
			if _, dup := seen[match]; dup {
				continue
			}
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if maxFileSize > 0 && info.Size() > maxFileSize {
				continue
			}
			if !filter.Match(match) {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, match)
		}
	}

	sort.Strings(files)
	return files, nil
}
