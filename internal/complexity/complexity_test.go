package complexity

import (
	"strings"
	"testing"
)

func TestScoreDeterministic(t *testing.T) {
	desc := "Implement and test the new caching layer, then document it"
	first := Score(desc)
	for i := 0; i < 10; i++ {
		if got := Score(desc); got != first {
			t.Fatalf("Score not deterministic: got %d then %d", first, got)
		}
	}
}

func TestScoreComplexDescription(t *testing.T) {
	// Matches build ("implement"), verify ("test"), and conjunction
	// (" and ", " then ") groups; must clear the smart-path threshold.
	desc := "Implement and test the new caching layer, then document it"
	if got := Score(desc); got < 3 {
		t.Errorf("Score(%q) = %d, want >= 3", desc, got)
	}
}

func TestScoreSimpleDescription(t *testing.T) {
	desc := "fix typo"
	if got := Score(desc); got >= 3 {
		t.Errorf("Score(%q) = %d, want < 3", desc, got)
	}
}

func TestScoreEmptyDescription(t *testing.T) {
	if got := Score(""); got != 0 {
		t.Errorf("Score(\"\") = %d, want 0", got)
	}
}

func TestScoreGroupCountsOnce(t *testing.T) {
	// Several build keywords still contribute a single point.
	single := Score("create")
	many := Score("create build implement")
	if many != single {
		t.Errorf("multiple keywords in one group scored %d, single keyword scored %d", many, single)
	}
}

func TestScoreLengthBonus(t *testing.T) {
	// Padding avoids keyword matches so only the length bonus applies.
	pad := func(n int) string {
		return strings.Repeat("x", n)
	}

	tests := []struct {
		name string
		desc string
		want int
	}{
		{"short", pad(40), 0},
		{"over 50", pad(60), 1},
		{"over 100", pad(120), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.desc); got != tt.want {
				t.Errorf("Score(len %d) = %d, want %d", len(tt.desc), got, tt.want)
			}
		})
	}
}

func TestScoreWordCountBonus(t *testing.T) {
	// 25 short non-keyword words: word-count bonus plus the length
	// bonus for crossing 50 characters.
	desc := strings.TrimSpace(strings.Repeat("zz ", 25))
	got := Score(desc)
	if got != 2 {
		t.Errorf("Score(25 words) = %d, want 2 (word count + length)", got)
	}
}
