package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .lcw.kdl file in projectRoot
func LoadKDL(projectRoot string) (*Config, error) {
	return loadKDLFile(filepath.Join(projectRoot, ".lcw.kdl"), projectRoot)
}

// loadKDLFile reads one specific config file. Relative roots declared
// inside it resolve against baseDir.
func loadKDLFile(kdlPath, baseDir string) (*Config, error) {
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil // No KDL config found, use defaults
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", kdlPath, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Ensure root path is absolute for consistent path handling.
	if cfg != nil && cfg.Project.Root != "" {
		var absRoot string
		if filepath.IsAbs(cfg.Project.Root) {
			absRoot = cfg.Project.Root
		} else {
			absRoot = filepath.Join(baseDir, cfg.Project.Root)
		}
		cfg.Project.Root = filepath.Clean(absRoot)
	} else if cfg != nil {
		absRoot, err := filepath.Abs(baseDir)
		if err == nil {
			cfg.Project.Root = absRoot
		} else {
			cfg.Project.Root = baseDir
		}
	}

	// Artifact detection needs the resolved root, so it runs after
	// resolution rather than inside parseKDL.
	if cfg != nil {
		cfg.EnrichExclusionsWithBuildArtifacts()
	}

	return cfg, nil
}

// Simple KDL parser for LCW configuration
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	// Root comes from the file itself or from the config file's directory
	// (resolved by the caller), never from the process working directory.
	cfg.Project.Root = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "real_time_analysis":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.RealTimeAnalysis = b
					}
				case "batch_analysis":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.BatchAnalysis = b
					}
				case "workspace_wide":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.WorkspaceWide = b
					}
				case "max_concurrent_analysis":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.MaxConcurrentAnalysis = v
					}
				case "analysis_delay_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.AnalysisDelayMs = v
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Watch.MaxFileSize = sz
						}
					}
				case "detect_build_artifacts":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.DetectBuildArtifacts = b
					}
				}
			}
		case "analyzer":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "model":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analyzer.Model = s
					}
				case "base_url":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analyzer.BaseURL = s
					}
				case "api_key_env":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analyzer.APIKeyEnv = s
					}
				case "timeout_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analyzer.TimeoutSec = v
					}
				case "requests_per_minute":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analyzer.RequestsPerMinute = v
					}
				}
			}
		case "include":
			// Replace defaults: a project that lists patterns owns the list
			if patterns := collectStringArgs(n); len(patterns) > 0 {
				cfg.Include = patterns
			}
		case "exclude":
			// Additive: defaults stay, projects only ever add exclusions
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	cfg.Exclude = DeduplicatePatterns(cfg.Exclude)

	return cfg, nil
}

// Helper functions leveraging kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	// First try to collect from arguments (for inline format)
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// If no arguments, collect from children (for block format like exclude { "pattern" })
	// In KDL block format, strings are child nodes where the node name is the string value
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
