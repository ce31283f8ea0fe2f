// Package complexity scores task descriptions so the todo generator can
// decide between the smart decomposition path and the basic templates.
package complexity

import "strings"

// PatternGroups is the single source of truth for the scoring keywords.
// Each group contributes at most one point no matter how many of its
// keywords appear; points across groups are summed.
type PatternGroups struct {
	// Build keywords indicate creation work.
	Build []string
	// Research keywords indicate investigation work.
	Research []string
	// Verify keywords indicate testing and validation work.
	Verify []string
	// Integrate keywords indicate wiring components together.
	Integrate []string
	// Optimize keywords indicate performance or cleanup work.
	Optimize []string
	// Conjunction keywords join multiple units of work in one request.
	Conjunction []string
	// Stage keywords describe multi-phase work.
	Stage []string
	// Multiplicity keywords describe work across several targets.
	Multiplicity []string
}

// DefaultPatternGroups returns the authoritative keyword mappings used
// by Score.
var DefaultPatternGroups = PatternGroups{
	Build: []string{
		"create",
		"build",
		"implement",
		"develop",
		"write",
		"add",
		"design",
	},
	Research: []string{
		"research",
		"investigate",
		"explore",
		"analyze",
		"study",
		"understand",
	},
	Verify: []string{
		"test",
		"verify",
		"validate",
		"check",
		"review",
	},
	Integrate: []string{
		"integrate",
		"connect",
		"wire",
		"hook up",
		"combine",
	},
	Optimize: []string{
		"optimize",
		"refactor",
		"improve",
		"speed up",
		"clean up",
	},
	Conjunction: []string{
		" and ",
		" then ",
		" also ",
		" plus ",
		" as well as ",
	},
	Stage: []string{
		"first",
		"next",
		"finally",
		"phase",
		"step",
	},
	Multiplicity: []string{
		"multiple",
		"several",
		"all ",
		"every",
		"each",
	},
}

// Length and word-count thresholds. The two length bonuses are mutually
// exclusive; the higher threshold wins.
const (
	longDescriptionChars  = 100
	shortDescriptionChars = 50
	manyWordsThreshold    = 20
)

// Score returns a complexity score for a task description. It is a
// deterministic heuristic, not a classifier: one point per matched
// keyword group, plus bonuses for long descriptions and high word
// counts.
func Score(description string) int {
	lower := strings.ToLower(description)
	score := 0

	groups := [][]string{
		DefaultPatternGroups.Build,
		DefaultPatternGroups.Research,
		DefaultPatternGroups.Verify,
		DefaultPatternGroups.Integrate,
		DefaultPatternGroups.Optimize,
		DefaultPatternGroups.Conjunction,
		DefaultPatternGroups.Stage,
		DefaultPatternGroups.Multiplicity,
	}
	for _, group := range groups {
		if matchesGroup(lower, group) {
			score++
		}
	}

	switch {
	case len(description) > longDescriptionChars:
		score += 2
	case len(description) > shortDescriptionChars:
		score++
	}

	if len(strings.Fields(description)) > manyWordsThreshold {
		score++
	}

	return score
}

// matchesGroup reports whether any keyword in the group appears in the
// lowercased description.
func matchesGroup(lower string, group []string) bool {
	for _, kw := range group {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
