// Package testhelpers provides shared utilities for testing Lightning Code Watcher
package testhelpers

import (
	"github.com/standardbeagle/lcw/internal/config"
	"github.com/standardbeagle/lcw/internal/types"
)

// TestConfigBuilder provides a fluent API for building test configs with safe defaults
// Usage:
//
//	cfg := testhelpers.NewTestConfigBuilder(projectPath).
//		WithExclusions("**/.git/**", "**/vendor/**").
//		WithIncludePatterns("**/*.go", "**/*.ts").
//		Build()
type TestConfigBuilder struct {
	projectRoot   string
	exclusions    []string
	inclusions    []string
	maxConcurrent int
	delayMs       int
}

// NewTestConfigBuilder creates a config builder with safe defaults for a project path
func NewTestConfigBuilder(projectRoot string) *TestConfigBuilder {
	return &TestConfigBuilder{
		projectRoot: projectRoot,
		exclusions: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/target/**",
			"**/__pycache__/**",
		},
		inclusions: []string{
			"**/*.go", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
			"**/*.py", "**/*.rs", "**/*.java",
		},
		maxConcurrent: types.DefaultMaxConcurrentAnalysis,
		delayMs:       types.DefaultAnalysisDelayMs,
	}
}

// WithExclusions adds additional exclusion patterns
func (b *TestConfigBuilder) WithExclusions(patterns ...string) *TestConfigBuilder {
	b.exclusions = append(b.exclusions, patterns...)
	return b
}

// WithIncludePatterns sets the include patterns (replaces defaults)
func (b *TestConfigBuilder) WithIncludePatterns(patterns ...string) *TestConfigBuilder {
	b.inclusions = patterns
	return b
}

// WithMaxConcurrent sets the analysis concurrency cap
func (b *TestConfigBuilder) WithMaxConcurrent(n int) *TestConfigBuilder {
	b.maxConcurrent = n
	return b
}

// WithDelayMs sets the base analysis delay in milliseconds
func (b *TestConfigBuilder) WithDelayMs(ms int) *TestConfigBuilder {
	b.delayMs = ms
	return b
}

// Build creates the final test config with all settings
func (b *TestConfigBuilder) Build() *config.Config {
	return &config.Config{
		Version: 1,
		Project: config.Project{
			Root: b.projectRoot,
			Name: "test-project",
		},
		Watch: config.Watch{
			Enabled:               true,
			RealTimeAnalysis:      true,
			BatchAnalysis:         true,
			MaxConcurrentAnalysis: b.maxConcurrent,
			AnalysisDelayMs:       b.delayMs,
			MaxFileSize:           types.DefaultMaxFileSize,
		},
		Analyzer: config.Analyzer{
			Model:             "gpt-4o-mini",
			APIKeyEnv:         "LCW_API_KEY",
			TimeoutSec:        30,
			RequestsPerMinute: 60,
		},
		Include: b.inclusions,
		Exclude: b.exclusions,
	}
}
