package api

import (
	"strings"
	"testing"
)

func TestParseStepsJSONArray(t *testing.T) {
	res, err := ParseSteps(`["Plan the work", "Do the work", "Verify it"]`)
	if err != nil {
		t.Fatalf("ParseSteps failed: %v", err)
	}
	if res.Delegated {
		t.Error("plain array parsed as delegated")
	}
	if len(res.Steps) != 3 || res.Steps[0] != "Plan the work" {
		t.Errorf("steps = %v, want the three parsed steps", res.Steps)
	}
}

func TestParseStepsSurroundingProse(t *testing.T) {
	response := "Here are the steps:\n[\"one\", \"two\"]\nLet me know if you need more."
	res, err := ParseSteps(response)
	if err != nil {
		t.Fatalf("ParseSteps failed: %v", err)
	}
	if len(res.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(res.Steps))
	}
}

func TestParseStepsDelegated(t *testing.T) {
	for _, response := range []string{"DELEGATED", "delegated", "  DELEGATED\n"} {
		res, err := ParseSteps(response)
		if err != nil {
			t.Fatalf("ParseSteps(%q) failed: %v", response, err)
		}
		if !res.Delegated {
			t.Errorf("ParseSteps(%q).Delegated = false, want true", response)
		}
		if len(res.Steps) != 0 {
			t.Errorf("delegated result has steps: %v", res.Steps)
		}
	}
}

func TestParseStepsNoArray(t *testing.T) {
	if _, err := ParseSteps("I cannot help with that."); err == nil {
		t.Error("expected error for response without a JSON array")
	}
}

func TestParseStepsMalformedJSON(t *testing.T) {
	if _, err := ParseSteps(`["unterminated`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParseStepsFiltersBlanks(t *testing.T) {
	res, err := ParseSteps(`["keep", "", "   ", "also keep"]`)
	if err != nil {
		t.Fatalf("ParseSteps failed: %v", err)
	}
	if len(res.Steps) != 2 {
		t.Errorf("got %d steps, want 2 after filtering blanks", len(res.Steps))
	}
}

func TestParseStepsAllBlank(t *testing.T) {
	if _, err := ParseSteps(`["", "  "]`); err == nil {
		t.Error("expected error when every step is blank")
	}
}

func TestParseStepsCapped(t *testing.T) {
	many := `["` + strings.Repeat(`s", "`, 30) + `s"]`
	res, err := ParseSteps(many)
	if err != nil {
		t.Fatalf("ParseSteps failed: %v", err)
	}
	if len(res.Steps) > maxSteps {
		t.Errorf("got %d steps, want at most %d", len(res.Steps), maxSteps)
	}
}
