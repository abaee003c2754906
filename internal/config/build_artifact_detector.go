// Build artifact detection from language-specific configuration files
// Parses package.json, tsconfig.json, Cargo.toml, pyproject.toml to find output directories
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds language-specific build output directories
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files and extracts output directories
// Returns glob patterns to exclude (e.g., "**/dist/**", "**/target/**")
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string

	patterns = append(patterns, bad.detectJavaScriptOutputs()...)
	patterns = append(patterns, bad.detectRustOutputs()...)
	patterns = append(patterns, bad.detectPythonOutputs()...)

	return patterns
}

// detectJavaScriptOutputs finds JS/TS build outputs from tsconfig.json and package.json
func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	var patterns []string

	tsconfigJSON := filepath.Join(bad.projectRoot, "tsconfig.json")
	if data, err := os.ReadFile(tsconfigJSON); err == nil {
		var tsconfig struct {
			CompilerOptions struct {
				OutDir string `json:"outDir"`
			} `json:"compilerOptions"`
		}
		if json.Unmarshal(data, &tsconfig) == nil && tsconfig.CompilerOptions.OutDir != "" {
			patterns = append(patterns, dirPattern(tsconfig.CompilerOptions.OutDir))
		}
	}

	packageJSON := filepath.Join(bad.projectRoot, "package.json")
	if data, err := os.ReadFile(packageJSON); err == nil {
		var pkg map[string]interface{}
		if json.Unmarshal(data, &pkg) == nil {
			// Build scripts sometimes carry an explicit --outDir
			if scripts, ok := pkg["scripts"].(map[string]interface{}); ok {
				for _, script := range scripts {
					scriptStr, ok := script.(string)
					if !ok {
						continue
					}
					parts := strings.Fields(scriptStr)
					for i, part := range parts {
						if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
							outDir := strings.Trim(parts[i+1], "\"'")
							patterns = append(patterns, dirPattern(outDir))
						}
					}
				}
			}
		}
	}

	return patterns
}

// detectRustOutputs finds Cargo target directories
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	cargoToml := filepath.Join(bad.projectRoot, "Cargo.toml")
	data, err := os.ReadFile(cargoToml)
	if err != nil {
		return nil
	}

	var cargo struct {
		Build struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"build"`
	}
	if toml.Unmarshal(data, &cargo) == nil && cargo.Build.TargetDir != "" {
		return []string{dirPattern(cargo.Build.TargetDir)}
	}

	// Cargo defaults to target/ whenever a manifest is present
	return []string{"**/target/**"}
}

// detectPythonOutputs finds Python build/packaging directories
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	pyproject := filepath.Join(bad.projectRoot, "pyproject.toml")
	data, err := os.ReadFile(pyproject)
	if err != nil {
		return nil
	}

	var patterns []string

	var proj struct {
		Tool map[string]map[string]interface{} `toml:"tool"`
	}
	if toml.Unmarshal(data, &proj) == nil {
		if hatch, ok := proj.Tool["hatch"]; ok {
			if build, ok := hatch["build"].(map[string]interface{}); ok {
				if dir, ok := build["directory"].(string); ok && dir != "" {
					patterns = append(patterns, dirPattern(dir))
				}
			}
		}
	}

	// setuptools/wheel defaults
	patterns = append(patterns, "**/*.egg-info/**", "**/.tox/**")
	return patterns
}

// dirPattern converts a directory name to a recursive exclusion glob
func dirPattern(dir string) string {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	dir = strings.TrimPrefix(dir, "./")
	return "**/" + dir + "/**"
}
