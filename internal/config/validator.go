package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/bmatcuk/doublestar/v4"

	lcwerrors "github.com/standardbeagle/lcw/internal/errors"
	"github.com/standardbeagle/lcw/internal/types"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return lcwerrors.NewConfigError("project", "", err)
	}

	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return lcwerrors.NewConfigError("watch", "", err)
	}

	if err := v.validateAnalyzerConfig(&cfg.Analyzer); err != nil {
		return lcwerrors.NewConfigError("analyzer", "", err)
	}

	// Malformed glob patterns are non-matching, never fatal: drop them
	// with a warning so one bad pattern cannot take the watcher down.
	cfg.Include = dropInvalidPatterns("include", cfg.Include)
	cfg.Exclude = dropInvalidPatterns("exclude", cfg.Exclude)

	return nil
}

// validateProjectConfig validates project configuration
func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

// validateWatchConfig validates watch configuration and fills zero values
func (v *Validator) validateWatchConfig(watch *Watch) error {
	if watch.MaxConcurrentAnalysis == 0 {
		watch.MaxConcurrentAnalysis = types.DefaultMaxConcurrentAnalysis
	}
	if watch.MaxConcurrentAnalysis < 0 {
		return fmt.Errorf("MaxConcurrentAnalysis must be positive, got %d", watch.MaxConcurrentAnalysis)
	}

	if watch.AnalysisDelayMs == 0 {
		watch.AnalysisDelayMs = types.DefaultAnalysisDelayMs
	}
	if watch.AnalysisDelayMs < 0 {
		return fmt.Errorf("AnalysisDelayMs must be positive, got %d", watch.AnalysisDelayMs)
	}

	if watch.MaxFileSize <= 0 {
		watch.MaxFileSize = types.DefaultMaxFileSize
	}
	if watch.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", watch.MaxFileSize)
	}

	return nil
}

// validateAnalyzerConfig validates analyzer configuration
func (v *Validator) validateAnalyzerConfig(analyzer *Analyzer) error {
	if analyzer.TimeoutSec <= 0 {
		analyzer.TimeoutSec = 60
	}
	if analyzer.RequestsPerMinute <= 0 {
		analyzer.RequestsPerMinute = 30
	}
	if analyzer.Model == "" {
		return errors.New("analyzer model cannot be empty")
	}
	return nil
}

// dropInvalidPatterns filters out glob patterns doublestar cannot compile
func dropInvalidPatterns(list string, patterns []string) []string {
	out := patterns[:0]
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			log.Printf("Warning: ignoring malformed %s pattern %q", list, p)
			continue
		}
		out = append(out, p)
	}
	return out
}
