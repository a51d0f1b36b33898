package usage

import (
	"math"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
		{"résumé", 2},
		{"履歴書です", 2},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.in); got != tc.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEstimateMessageTokens(t *testing.T) {
	if got := EstimateMessageTokens([]string{"abcd", ""}); got != 1+4+4 {
		t.Fatalf("unexpected message estimate %d", got)
	}
}

func TestEstimateImageTokens(t *testing.T) {
	if got := EstimateImageTokens(""); got != 0 {
		t.Fatalf("empty image should cost nothing, got %d", got)
	}
	if got := EstimateImageTokens("https://example.com/a.png"); got != imageBaseTokens {
		t.Fatalf("remote image should cost the base, got %d", got)
	}

	small := EstimateImageTokens("data:image/png;base64," + strings.Repeat("A", 100))
	if small != imageBaseTokens+imageTokensPerTile {
		t.Fatalf("tiny image should be one tile, got %d", small)
	}

	// ~300KB encoded -> ~225KB decoded -> ~750K pixels -> 3 tiles.
	medium := EstimateImageTokens(strings.Repeat("A", 300_000))
	if medium != imageBaseTokens+3*imageTokensPerTile {
		t.Fatalf("unexpected medium estimate %d", medium)
	}

	huge := EstimateImageTokens(strings.Repeat("A", 20_000_000))
	if huge != imageBaseTokens+imageMaxTiles*imageTokensPerTile {
		t.Fatalf("expected tile cap, got %d", huge)
	}
}

func TestCostAppliesMargin(t *testing.T) {
	got := Cost(1_000_000, 1_000_000, 0, 0.5, 1.5)
	if math.Abs(got-2.2) > 1e-9 {
		t.Fatalf("expected 2.2, got %v", got)
	}
	withImage := Cost(0, 0, 1_000_000, 2.5, 10)
	if math.Abs(withImage-2.75) > 1e-9 {
		t.Fatalf("image tokens should bill at input rate, got %v", withImage)
	}
}
