package pattern

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/standardbeagle/lcw/internal/types"
)

// A detector inspects the windowed events for one file plus the file's
// current text (nil when unreadable) and produces at most one candidate.
// Detectors are pure: same inputs, same answer. Missing content is a
// neutral "no signal", never an error.
type detector func(events []types.ChangeEvent, content *string) (types.ChangePattern, bool)

// Detector order is fixed; ties on confidence break toward the earlier
// detector, which keeps classification deterministic.
var detectors = []detector{
	detectBulkEdit,
	detectRefactor,
	detectNewFeature,
	detectBugFix,
	detectFormatting,
}

var refactorKeywords = []string{
	"rename", "extract", "move", "reorganize", "restructure",
	"refactor", "cleanup", "optimize", "simplify",
}

var featureKeywords = []string{
	"feature", "add", "implement", "create", "build",
	"develop", "introduce", "enhancement",
}

var bugfixKeywords = []string{
	"fix", "bug", "error", "issue", "problem",
	"correct", "resolve", "patch", "hotfix",
}

// formattingToolPattern matches mentions of common formatters in file text
var formattingToolPattern = regexp.MustCompile(`(?:prettier|eslint|gofmt|goimports|rustfmt|black|autopep8|clang-format|dprint|biome)`)

// detectBulkEdit fires on a high event rate inside the window.
func detectBulkEdit(events []types.ChangeEvent, _ *string) (types.ChangePattern, bool) {
	if len(events) < 5 {
		return types.ChangePattern{}, false
	}

	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	rate := math.Inf(1) // identical timestamps count as an infinite rate
	if span > 0 {
		rate = float64(len(events)) / span.Minutes()
	}
	if rate <= 10 {
		return types.ChangePattern{}, false
	}

	return types.ChangePattern{
		Kind:        types.PatternBulkEdit,
		Confidence:  math.Min(rate/20, 0.95),
		Description: fmt.Sprintf("%d changes at %.0f events/min", len(events), rate),
		Indicators:  []string{"high_change_rate"},
	}, true
}

// detectRefactor looks for refactoring vocabulary in the file text and path.
func detectRefactor(events []types.ChangeEvent, content *string) (types.ChangePattern, bool) {
	if len(events) < 3 {
		return types.ChangePattern{}, false
	}

	hits, found := keywordHits(refactorKeywords, events, content)
	if hits < 1 {
		return types.ChangePattern{}, false
	}

	return types.ChangePattern{
		Kind:        types.PatternRefactor,
		Confidence:  math.Min(float64(hits)/9+0.3, 0.9),
		Description: "refactoring vocabulary in recent edits",
		Indicators:  found,
	}, true
}

// detectNewFeature fires immediately on file creation, otherwise on
// feature vocabulary across several edits.
func detectNewFeature(events []types.ChangeEvent, content *string) (types.ChangePattern, bool) {
	for _, e := range events {
		if e.Kind == types.ChangeCreated {
			return types.ChangePattern{
				Kind:        types.PatternNewFeature,
				Confidence:  0.8,
				Description: "new file created",
				Indicators:  []string{"file_created"},
			}, true
		}
	}

	if len(events) < 2 {
		return types.ChangePattern{}, false
	}

	hits, found := keywordHits(featureKeywords, events, content)
	if hits <= 1 {
		return types.ChangePattern{}, false
	}

	return types.ChangePattern{
		Kind:        types.PatternNewFeature,
		Confidence:  math.Min(float64(hits)/8+0.4, 0.85),
		Description: "feature vocabulary in recent edits",
		Indicators:  found,
	}, true
}

// detectBugFix looks for fix vocabulary over a small number of edits.
// Bug fixes are typically small, so more than 3 events rules this out.
func detectBugFix(events []types.ChangeEvent, content *string) (types.ChangePattern, bool) {
	if len(events) == 0 || len(events) > 3 {
		return types.ChangePattern{}, false
	}

	hits, found := keywordHits(bugfixKeywords, events, content)
	if hits < 1 {
		return types.ChangePattern{}, false
	}

	return types.ChangePattern{
		Kind:        types.PatternBugFix,
		Confidence:  math.Min(float64(hits)/9+0.5, 0.9),
		Description: "fix vocabulary in a small edit burst",
		Indicators:  found,
	}, true
}

// detectFormatting fires on a rapid burst of edits whose result looks like
// a formatter pass: uniform indentation, or an explicit formatter mention.
func detectFormatting(events []types.ChangeEvent, content *string) (types.ChangePattern, bool) {
	if len(events) < 3 {
		return types.ChangePattern{}, false
	}

	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	if span >= 30*time.Second {
		return types.ChangePattern{}, false
	}

	indicator := ""
	if content != nil && uniformIndentation(*content) {
		indicator = "uniform_indentation"
	} else if content != nil && formattingToolPattern.MatchString(strings.ToLower(*content)) {
		indicator = "formatter_reference"
	}
	if indicator == "" {
		return types.ChangePattern{}, false
	}

	return types.ChangePattern{
		Kind:        types.PatternFormatting,
		Confidence:  0.75,
		Description: "rapid burst with formatter signature",
		Indicators:  []string{indicator},
	}, true
}

// incrementalFallback is emitted when no detector produced a candidate.
func incrementalFallback() types.ChangePattern {
	return types.ChangePattern{
		Kind:        types.PatternIncremental,
		Confidence:  0.7,
		Description: "steady incremental editing",
		Indicators:  []string{"default"},
	}
}

// keywordHits counts how many distinct keywords appear in the file text or
// in any changed path. Returned indicators list the keywords found.
func keywordHits(keywords []string, events []types.ChangeEvent, content *string) (int, []string) {
	var haystacks []string
	if content != nil {
		haystacks = append(haystacks, strings.ToLower(*content))
	}
	seen := make(map[string]bool)
	for _, e := range events {
		if !seen[e.FilePath] {
			seen[e.FilePath] = true
			haystacks = append(haystacks, strings.ToLower(e.FilePath))
		}
	}

	var found []string
	for _, kw := range keywords {
		for _, h := range haystacks {
			if strings.Contains(h, kw) {
				found = append(found, kw)
				break
			}
		}
	}
	return len(found), found
}

// uniformIndentation reports whether the text uses few distinct
// indentation widths relative to its length. Formatter output converges
// on a small set of levels; hand-edited files drift.
func uniformIndentation(content string) bool {
	lines := strings.Split(content, "\n")
	levels := make(map[int]bool)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := 0
		for _, r := range line {
			if r == ' ' || r == '\t' {
				indent++
				continue
			}
			break
		}
		levels[indent] = true
	}

	limit := len(lines) / 10
	if limit < 3 {
		limit = 3
	}
	return len(levels) <= limit
}
