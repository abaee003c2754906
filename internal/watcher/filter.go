package watcher

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter decides whether a raw path is tracked at all. Exclusions are
// evaluated first and short-circuit; a path matching neither list is
// rejected. Matching is case-sensitive and anchored against the full path
// string, with a second attempt against the path relative to the root so
// project-relative patterns work for absolute event paths. Malformed
// patterns never match.
type PathFilter struct {
	root    string
	include []string
	exclude []string
}

// NewPathFilter creates a filter for the given project root.
func NewPathFilter(root string, include, exclude []string) *PathFilter {
	return &PathFilter{
		root:    root,
		include: include,
		exclude: exclude,
	}
}

// Match reports whether the path should be tracked.
func (f *PathFilter) Match(path string) bool {
	slashed := filepath.ToSlash(path)
	rel := f.relative(path)

	for _, pattern := range f.exclude {
		if f.matches(pattern, slashed, rel) {
			return false
		}
	}

	for _, pattern := range f.include {
		if f.matches(pattern, slashed, rel) {
			return true
		}
	}

	return false
}

// ExcludesDir reports whether a directory is excluded wholesale, so the
// watcher can skip descending into it.
func (f *PathFilter) ExcludesDir(path string) bool {
	slashed := filepath.ToSlash(path)
	rel := f.relative(path)

	for _, pattern := range f.exclude {
		// "**/node_modules/**" excludes the directory itself too
		dirPattern := trimDirSuffix(pattern)
		if f.matches(pattern, slashed, rel) || f.matches(dirPattern, slashed, rel) {
			return true
		}
	}
	return false
}

func (f *PathFilter) matches(pattern, slashed, rel string) bool {
	// A malformed pattern is treated as non-matching, never as an error
	if matched, err := doublestar.Match(pattern, slashed); err == nil && matched {
		return true
	}
	if rel != "" {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (f *PathFilter) relative(path string) string {
	if f.root == "" {
		return ""
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func trimDirSuffix(pattern string) string {
	if len(pattern) > 3 && pattern[len(pattern)-3:] == "/**" {
		return pattern[:len(pattern)-3]
	}
	return pattern
}
