package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKDL(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".lcw.kdl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseKDL_FullConfig(t *testing.T) {
	cfg, err := parseKDL(`
project {
    root "."
    name "demo"
}

watch {
    enabled true
    real_time_analysis true
    batch_analysis false
    max_concurrent_analysis 5
    analysis_delay_ms 1500
    max_file_size "2MB"
}

analyzer {
    model "gpt-4o"
    timeout_sec 45
    requests_per_minute 20
}

include {
    "**/*.go"
    "**/*.ts"
}

exclude {
    "**/generated/**"
}
`)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Project.Name != "demo" {
		t.Errorf("Expected project name demo, got %q", cfg.Project.Name)
	}
	if cfg.Watch.MaxConcurrentAnalysis != 5 {
		t.Errorf("Expected max_concurrent_analysis 5, got %d", cfg.Watch.MaxConcurrentAnalysis)
	}
	if cfg.Watch.AnalysisDelayMs != 1500 {
		t.Errorf("Expected analysis_delay_ms 1500, got %d", cfg.Watch.AnalysisDelayMs)
	}
	if cfg.Watch.BatchAnalysis {
		t.Error("Expected batch_analysis disabled")
	}
	if cfg.Watch.MaxFileSize != 2*1024*1024 {
		t.Errorf("Expected 2MB max file size, got %d", cfg.Watch.MaxFileSize)
	}
	if cfg.Analyzer.Model != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %q", cfg.Analyzer.Model)
	}
	if cfg.Analyzer.TimeoutSec != 45 {
		t.Errorf("Expected timeout 45, got %d", cfg.Analyzer.TimeoutSec)
	}
	if len(cfg.Include) != 2 || cfg.Include[0] != "**/*.go" {
		t.Errorf("Include patterns should replace defaults, got %v", cfg.Include)
	}
}

func TestParseKDL_ExcludesAreAdditive(t *testing.T) {
	cfg, err := parseKDL(`
exclude {
    "**/generated/**"
}
`)
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]bool{}
	for _, p := range cfg.Exclude {
		found[p] = true
	}
	if !found["**/generated/**"] {
		t.Error("Project exclusion missing")
	}
	if !found["**/node_modules/**"] || !found["**/.git/**"] {
		t.Error("Default exclusions must be preserved")
	}
}

func TestParseKDL_InvalidSyntax(t *testing.T) {
	if _, err := parseKDL(`watch { enabled `); err == nil {
		t.Error("Expected parse error for truncated KDL")
	}
}

func TestLoadKDL_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Error("Missing .lcw.kdl should yield nil (caller falls back to defaults)")
	}
}

func TestLoadKDL_RelativeRootResolvesAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
project {
    root "sub"
}
`)

	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "sub")
	if cfg.Project.Root != want {
		t.Errorf("Expected root %q, got %q", want, cfg.Project.Root)
	}
}

func TestLoad_ExplicitPathOutsideCWD(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // keep the global ~/.lcw.kdl out of the way

	dir := t.TempDir()
	writeKDL(t, dir, `
watch {
    analysis_delay_ms 1234
}
`)

	cfg, err := Load(filepath.Join(dir, ".lcw.kdl"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.AnalysisDelayMs != 1234 {
		t.Errorf("Expected delay 1234 from config file, got %d", cfg.Watch.AnalysisDelayMs)
	}
	if cfg.Project.Root != dir {
		t.Errorf("Expected root %q (config dir), got %q", dir, cfg.Project.Root)
	}
}

func TestLoad_CustomFileName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "watcher.kdl")
	if err := os.WriteFile(path, []byte(`
watch {
    max_concurrent_analysis 7
}
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.MaxConcurrentAnalysis != 7 {
		t.Errorf("Expected max_concurrent_analysis 7, got %d", cfg.Watch.MaxConcurrentAnalysis)
	}
}

func TestLoadWithRoot_RootAnchorsRelativeDeclarations(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfgDir := t.TempDir()
	rootDir := t.TempDir()
	writeKDL(t, cfgDir, `
project {
    root "sub"
}
`)

	cfg, err := LoadWithRoot(filepath.Join(cfgDir, ".lcw.kdl"), rootDir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(rootDir, "sub")
	if cfg.Project.Root != want {
		t.Errorf("Expected root %q, got %q", want, cfg.Project.Root)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"512B", 512},
		{"10KB", 10 * 1024},
		{"10MB", 10 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"2mb", 2 * 1024 * 1024},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if err != nil {
			t.Errorf("parseSize(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := parseSize("lots"); err == nil {
		t.Error("Expected error for non-numeric size")
	}
}

func TestValidator_FillsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.Watch.MaxConcurrentAnalysis = 0
	cfg.Watch.AnalysisDelayMs = 0
	cfg.Watch.MaxFileSize = 0
	cfg.Analyzer.TimeoutSec = 0

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Watch.MaxConcurrentAnalysis != 3 {
		t.Errorf("Expected default concurrency 3, got %d", cfg.Watch.MaxConcurrentAnalysis)
	}
	if cfg.Watch.AnalysisDelayMs != 2000 {
		t.Errorf("Expected default delay 2000ms, got %d", cfg.Watch.AnalysisDelayMs)
	}
	if cfg.Watch.MaxFileSize <= 0 {
		t.Error("Expected positive default max file size")
	}
	if cfg.Analyzer.TimeoutSec != 60 {
		t.Errorf("Expected default timeout 60s, got %d", cfg.Analyzer.TimeoutSec)
	}
}

func TestValidator_RejectsNegativeConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Watch.MaxConcurrentAnalysis = -1

	if err := NewValidator().ValidateAndSetDefaults(cfg); err == nil {
		t.Error("Expected error for negative concurrency")
	}
}

func TestValidator_RejectsEmptyRoot(t *testing.T) {
	cfg := Default()
	cfg.Project.Root = ""

	if err := NewValidator().ValidateAndSetDefaults(cfg); err == nil {
		t.Error("Expected error for empty project root")
	}
}

func TestValidator_DropsMalformedPatterns(t *testing.T) {
	cfg := Default()
	cfg.Include = []string{"**/*.go", "[invalid"}
	cfg.Exclude = []string{"[also-bad", "**/vendor/**"}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("Malformed globs must not be fatal: %v", err)
	}

	if len(cfg.Include) != 1 || cfg.Include[0] != "**/*.go" {
		t.Errorf("Expected malformed include dropped, got %v", cfg.Include)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "**/vendor/**" {
		t.Errorf("Expected malformed exclude dropped, got %v", cfg.Exclude)
	}
}

func TestMergeConfigs_PreservesBaseExclusions(t *testing.T) {
	base := Default()
	base.Exclude = []string{"**/secret/**"}
	project := Default()
	project.Exclude = []string{"**/generated/**"}

	merged := mergeConfigs(base, project)

	found := map[string]bool{}
	for _, p := range merged.Exclude {
		found[p] = true
	}
	if !found["**/secret/**"] || !found["**/generated/**"] {
		t.Errorf("Expected both exclusion sets, got %v", merged.Exclude)
	}
}
