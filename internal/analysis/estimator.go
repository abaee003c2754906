// Package analysis derives cheap urgency and complexity signals for a
// changed file. Priority is purely path-based; complexity and dependency
// extraction are crude line and keyword counts, not parsing.
package analysis

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/standardbeagle/lcw/internal/types"
)

// configFilenames mark project configuration: changes here ripple through
// the whole build, so they outrank any source file.
var configFilenames = []string{
	"package.json",
	"tsconfig.json",
	"go.mod",
	"go.sum",
	"cargo.toml",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"build.gradle",
	"makefile",
	"dockerfile",
	"docker-compose",
	".lcw.kdl",
}

// declPattern approximates declaration counting across languages
var declPattern = regexp.MustCompile(`\b(?:func|function|fn|def|class|interface|struct|trait|impl|enum)\b`)

// Import extraction patterns, deliberately shallow
var (
	jsImportPattern   = regexp.MustCompile(`import\s+(?:[^'"]*?\s+from\s+)?['"]([^'"]+)['"]`)
	requirePattern    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	goImportPattern   = regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:\w+\s+)?"([^"]+)"`)
	pyImportPattern   = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
	rustUsePattern    = regexp.MustCompile(`(?m)^\s*use\s+([A-Za-z_][\w]*)`)
	javaImportPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+);`)
)

// Estimator assembles the AnalysisContext for a change event.
type Estimator struct {
	maxFileSize int64

	// readFile is swappable for tests
	readFile func(path string) (string, bool)
}

// NewEstimator creates an estimator with a content-read size cap.
func NewEstimator(maxFileSize int64) *Estimator {
	e := &Estimator{maxFileSize: maxFileSize}
	e.readFile = e.readFileCapped
	return e
}

// SetReadFile overrides content reads (for testing).
func (e *Estimator) SetReadFile(fn func(path string) (string, bool)) {
	e.readFile = fn
}

// BuildContext assembles a fresh AnalysisContext for one event. The
// dominant pattern (nil if classification stayed below threshold) rides
// along for the analyzer prompt and the introspection score; it does not
// change priority or delay.
func (e *Estimator) BuildContext(event types.ChangeEvent, dominant *types.ChangePattern) types.AnalysisContext {
	ctx := types.AnalysisContext{
		FilePath:            event.FilePath,
		Language:            DetectLanguage(event.FilePath),
		ChangeKind:          event.Kind,
		Pattern:             dominant,
		Priority:            PriorityForPath(event.FilePath),
		EstimatedComplexity: 1,
	}

	if event.Kind == types.ChangeDeleted {
		return ctx
	}

	content, ok := e.readFile(event.FilePath)
	if !ok {
		// Unreadable files keep the neutral defaults
		return ctx
	}

	ctx.EstimatedComplexity = EstimateComplexity(content)
	ctx.Dependencies = ExtractDependencies(content, ctx.Language)
	return ctx
}

// PriorityForPath derives the urgency tier from the path alone.
// Evaluation order is fixed; the first match wins.
func PriorityForPath(path string) types.Priority {
	// Leading slash so relative paths still match segment checks
	slashed := "/" + strings.TrimPrefix(strings.ToLower(filepath.ToSlash(path)), "/")
	base := filepath.Base(slashed)

	for _, name := range configFilenames {
		if strings.Contains(base, name) {
			return types.PriorityCritical
		}
	}

	if strings.Contains(slashed, "/src/") || strings.Contains(slashed, "/lib/") {
		return types.PriorityHigh
	}

	if strings.Contains(slashed, "/test/") || strings.Contains(base, "spec.") {
		return types.PriorityMedium
	}

	return types.PriorityLow
}

// EstimateComplexity scores content as lines/100 + declarations/10,
// capped at 10.
func EstimateComplexity(content string) float64 {
	lineCount := strings.Count(content, "\n") + 1
	declCount := len(declPattern.FindAllStringIndex(content, -1))
	return math.Min(float64(lineCount)/100+float64(declCount)/10, 10)
}

// ExtractDependencies pulls non-relative module names from import and
// require statements, de-duplicated, in first-seen order.
func ExtractDependencies(content, language string) []string {
	var matches [][]string
	switch language {
	case "go":
		matches = goImportPattern.FindAllStringSubmatch(content, -1)
	case "python":
		matches = pyImportPattern.FindAllStringSubmatch(content, -1)
	case "rust":
		matches = rustUsePattern.FindAllStringSubmatch(content, -1)
	case "java":
		matches = javaImportPattern.FindAllStringSubmatch(content, -1)
	default:
		matches = append(jsImportPattern.FindAllStringSubmatch(content, -1),
			requirePattern.FindAllStringSubmatch(content, -1)...)
	}

	seen := make(map[string]bool)
	var deps []string
	for _, m := range matches {
		name := ""
		for _, group := range m[1:] {
			if group != "" {
				name = group
				break
			}
		}
		if name == "" || strings.HasPrefix(name, ".") {
			continue // relative imports are not dependencies
		}
		if !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	return deps
}

// DetectLanguage maps a file extension to a coarse language name.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".cs":
		return "csharp"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".json", ".yaml", ".yml", ".toml", ".kdl":
		return "config"
	default:
		return "plaintext"
	}
}

// readFileCapped reads file content best-effort; oversized or unreadable
// files yield no signal.
func (e *Estimator) readFileCapped(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > e.maxFileSize {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
