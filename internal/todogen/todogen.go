// Package todogen turns a task description into an ordered list of todo
// steps. Complex descriptions go through a pluggable smart generator;
// everything else (including smart-path failures) falls back to fixed
// templates selected by keyword.
package todogen

import (
	"context"
	"fmt"
	"strings"
)

// SmartThreshold is the complexity score at or above which the smart
// generator is attempted.
const SmartThreshold = 3

// Result is the outcome of a smart generation attempt.
type Result struct {
	// Steps is the ordered list of step descriptions.
	Steps []string
	// Delegated means the generator already wrote the todos itself and
	// no further steps are needed. An empty Steps with Delegated set is
	// a valid success, not a failure.
	Delegated bool
}

// SmartGenerator decomposes a description into steps. Implementations
// may return steps, report that they handled the todos themselves, or
// fail. A failure tells the caller to use the basic templates instead.
type SmartGenerator interface {
	Generate(ctx context.Context, description string) (Result, error)
}

// Generator produces todo steps for new tasks.
type Generator struct {
	smart SmartGenerator
}

// New creates a Generator. smart may be nil, in which case only the
// basic templates are used.
func New(smart SmartGenerator) *Generator {
	return &Generator{smart: smart}
}

// Generate returns the ordered steps for a description. The smart path
// is attempted when score >= SmartThreshold and a smart generator is
// configured; any smart failure falls back to the templates so task
// creation never fails on generation.
func (g *Generator) Generate(ctx context.Context, description string, score int) []string {
	if g.smart != nil && score >= SmartThreshold {
		res, err := g.smart.Generate(ctx, description)
		if err == nil {
			if res.Delegated {
				return nil
			}
			if len(res.Steps) > 0 {
				return res.Steps
			}
		}
	}

	return basicSteps(description)
}

// basicSteps selects a fixed template by keyword and annotates the
// first step with the original description for traceability.
func basicSteps(description string) []string {
	lower := strings.ToLower(description)

	var steps []string
	switch {
	case containsAny(lower, "create", "build", "implement", "write", "add"):
		steps = []string{
			"Plan the structure",
			"Implement the core functionality",
			"Handle edge cases and errors",
			"Write tests",
			"Review and refine",
		}
	case containsAny(lower, "research", "investigate", "explore", "analyze"):
		steps = []string{
			"Define what to find out",
			"Gather relevant sources",
			"Take notes on findings",
			"Summarize conclusions",
		}
	case containsAny(lower, "test", "verify", "validate", "check"):
		steps = []string{
			"Identify what needs verification",
			"Set up the verification environment",
			"Run the checks",
			"Record results and follow up on failures",
		}
	default:
		steps = []string{
			"Clarify the goal",
			"Break down the approach",
			"Do the main work",
			"Verify the result",
			"Clean up",
			"Mark as complete",
		}
	}

	steps[0] = fmt.Sprintf("%s (%s)", steps[0], description)
	return steps
}

// containsAny reports whether s contains any of the keywords.
func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
