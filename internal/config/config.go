package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/lcw/internal/types"
)

type Config struct {
	Version  int
	Project  Project
	Watch    Watch
	Analyzer Analyzer
	Include  []string
	Exclude  []string
}

type Project struct {
	Root string
	Name string
}

type Watch struct {
	Enabled               bool
	RealTimeAnalysis      bool // analyze on filesystem events
	BatchAnalysis         bool // allow one-shot workspace-wide batch runs
	WorkspaceWide         bool // watch the whole workspace root, not just cwd
	MaxConcurrentAnalysis int  // global cap on simultaneous analysis jobs
	AnalysisDelayMs       int  // base debounce delay, scaled per priority tier
	MaxFileSize           int64
	DetectBuildArtifacts  bool // scan build configs to extend exclusions
}

type Analyzer struct {
	Model             string
	BaseURL           string // empty = provider default
	APIKeyEnv         string // environment variable holding the API key
	TimeoutSec        int    // per-request timeout for analysis calls
	RequestsPerMinute int    // rate limit for the analysis collaborator
}

// Load reads configuration from the given .lcw.kdl path, merging it over a
// global ~/.lcw.kdl base. A missing file falls back to built-in defaults.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads configuration, merging a global ~/.lcw.kdl base with a
// project-local config file. Project settings win; base exclusions are kept.
// The explicit path locates the project config; rootDir (when non-empty)
// anchors relative roots declared inside it.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := rootDir
	if searchDir == "" {
		if path != "" {
			searchDir = filepath.Dir(path)
		} else {
			searchDir = "."
		}
	}
	kdlPath := path
	if kdlPath == "" {
		kdlPath = filepath.Join(searchDir, ".lcw.kdl")
	}

	// Step 1: Load global base config from ~/.lcw.kdl (if exists)
	homeDir, err := os.UserHomeDir()
	var baseConfig *Config
	if err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: Load project-specific config from the explicit path
	var projectConfig *Config
	if kdlCfg, err := loadKDLFile(kdlPath, searchDir); err == nil && kdlCfg != nil {
		projectConfig = kdlCfg
	} else if err != nil {
		return nil, err
	}

	// Step 3: Merge configs (project overrides base, but preserve base exclusions)
	if baseConfig != nil && projectConfig != nil {
		return mergeConfigs(baseConfig, projectConfig), nil
	} else if projectConfig != nil {
		return projectConfig, nil
	} else if baseConfig != nil {
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cfg := Default()
	if rootDir != "" {
		cfg.Project.Root = rootDir
	}
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// Default returns the built-in configuration: common source extensions
// included, dependency/build/VCS directories excluded.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "." // Fallback to relative if we can't get absolute
	}

	return &Config{
		Version: 1,
		Project: Project{
			Root: cwd,
		},
		Watch: Watch{
			Enabled:               true,
			RealTimeAnalysis:      true,
			BatchAnalysis:         true,
			WorkspaceWide:         true,
			MaxConcurrentAnalysis: types.DefaultMaxConcurrentAnalysis,
			AnalysisDelayMs:       types.DefaultAnalysisDelayMs,
			MaxFileSize:           types.DefaultMaxFileSize,
			DetectBuildArtifacts:  true,
		},
		Analyzer: Analyzer{
			Model:             "gpt-4o-mini",
			APIKeyEnv:         "LCW_API_KEY",
			TimeoutSec:        60,
			RequestsPerMinute: 30,
		},
		Include: DefaultIncludePatterns(),
		Exclude: DefaultExcludePatterns(),
	}
}

// DefaultIncludePatterns covers the common source extensions.
func DefaultIncludePatterns() []string {
	return []string{
		"**/*.go",
		"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
		"**/*.py",
		"**/*.java",
		"**/*.c", "**/*.cpp", "**/*.h", "**/*.hpp",
		"**/*.rs",
		"**/*.rb",
		"**/*.cs",
		"**/*.json", "**/*.yaml", "**/*.yml", "**/*.toml", "**/*.kdl",
	}
}

// DefaultExcludePatterns covers dependency, build-output and VCS directories.
func DefaultExcludePatterns() []string {
	return []string{
		// Dependencies
		"**/node_modules/**",
		"**/vendor/**",
		"**/.venv/**",

		// VCS
		"**/.git/**",
		"**/.svn/**",
		"**/.hg/**",

		// Build output
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/bin/**",
		"**/obj/**",
		"**/__pycache__/**",
		"**/.next/**",

		// Editor noise
		"**/.idea/**",
		"**/.vscode/**",
		"**/*.swp",
		"**/*.tmp",

		// Logs
		"**/logs/**",
		"**/*.log",
	}
}

// mergeConfigs merges a base config with a project config
// Project config takes precedence, but base exclusions are preserved
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	// Merge exclusions: combine base and project exclusions
	if len(base.Exclude) > 0 {
		excludeMap := make(map[string]bool)
		for _, pattern := range base.Exclude {
			excludeMap[pattern] = true
		}
		for _, pattern := range project.Exclude {
			excludeMap[pattern] = true
		}

		merged.Exclude = make([]string, 0, len(excludeMap))
		for pattern := range excludeMap {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	// Inclusions: project overrides base completely if specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language configs and adds them to the exclusion list
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if !c.Watch.DetectBuildArtifacts || c.Project.Root == "" {
		return
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detectedPatterns := detector.DetectOutputDirectories()

	if len(detectedPatterns) > 0 {
		c.Exclude = append(c.Exclude, detectedPatterns...)
		c.Exclude = DeduplicatePatterns(c.Exclude)
	}
}

// DeduplicatePatterns removes duplicate glob patterns while preserving order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
