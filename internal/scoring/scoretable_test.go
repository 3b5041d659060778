package scoring

import (
	"math"
	"testing"
)

func TestWhiteningScoreAnchors(t *testing.T) {
	tests := []struct {
		pct   float64
		score float64
		label string
	}{
		{0.0, 10.0, "Gem Mint"},
		{0.3, 9.5, "Gem Mint"},
		{0.7, 9.0, "Mint"},
		{1.2, 8.5, "Near Mint-Mint"},
		{2.0, 8.0, "Near Mint-Mint"},
		{3.0, 7.0, "Near Mint"},
		{5.0, 6.0, "Excellent-Mint"},
		{7.0, 5.0, "Excellent"},
		{10.0, 4.0, "Very Good-Excellent"},
		{15.0, 3.0, "Very Good"},
	}
	for _, tt := range tests {
		score, label := whiteningScore(tt.pct)
		if score != tt.score || label != tt.label {
			t.Errorf("whiteningScore(%.1f) = %.1f %q, want %.1f %q", tt.pct, score, label, tt.score, tt.label)
		}
	}

	// Past the last band the score decays but never below the scale floor.
	if score, _ := whiteningScore(28.0); score != 2.0 {
		t.Errorf("whiteningScore(28) = %f, want 2.0", score)
	}
	if score, _ := whiteningScore(500.0); score != MinScore {
		t.Errorf("whiteningScore(500) = %f, want floor %.1f", score, MinScore)
	}
}

func TestWhiteningScoreMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for pct := 0.0; pct <= 40; pct += 0.1 {
		score, _ := whiteningScore(pct)
		if score > prev {
			t.Fatalf("score rose from %.2f to %.2f at %.1f%%", prev, score, pct)
		}
		prev = score
	}
}

func TestScratchScore(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{0, 10.0},
		{2, 9.5},
		{5, 9.0},
		{10, 8.0},
		{15, 7.0},
		{50, 6.5},
	}
	for _, tt := range tests {
		if score, _ := scratchScore(tt.count); score != tt.want {
			t.Errorf("scratchScore(%d) = %f, want %f", tt.count, score, tt.want)
		}
	}
}

func TestCornerScoreAnchors(t *testing.T) {
	tests := []struct {
		pixels float64
		want   float64
	}{
		{0, 10.0},
		{9, 10.0},
		{10, 10.0},
		{30, 9.5},
		{75, 9.0},
		{150, 8.5},
		{300, 7.0},
		{500, 5.0},
		{10000, 5.0},
	}
	for _, tt := range tests {
		got := cornerScore(tt.pixels)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("cornerScore(%.0f) = %f, want %f", tt.pixels, got, tt.want)
		}
	}
}

func TestCornerScoreMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for n := 0.0; n <= 1000; n++ {
		got := cornerScore(n)
		if got > prev+1e-9 {
			t.Fatalf("cornerScore rose from %f to %f at %d pixels", prev, got, int(n))
		}
		prev = got
	}
}

func TestCenteringScoreAnchors(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.0, 10.0},
		{0.975, 10.0},
		{0.95, 9.0},
		{0.90, 8.0},
		{0.85, 7.0},
		{0.80, 6.0},
		{0.75, 5.0},
		{0.70, 4.0},
		{0.50, 2.5},
		{0.10, 1.0},
	}
	for _, tt := range tests {
		got := centeringScore(tt.ratio)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("centeringScore(%.3f) = %f, want %f", tt.ratio, got, tt.want)
		}
	}
}

func TestCenteringScoreInterpolates(t *testing.T) {
	// Halfway between the 0.90 and 0.95 anchors.
	got := centeringScore(0.925)
	if math.Abs(got-8.5) > 0.0001 {
		t.Errorf("centeringScore(0.925) = %f, want 8.5", got)
	}

	prev := math.Inf(1)
	for r := 1.0; r >= 0; r -= 0.005 {
		got := centeringScore(r)
		if got > prev+1e-9 {
			t.Fatalf("centeringScore rose from %f to %f at ratio %.3f", prev, got, r)
		}
		prev = got
	}
}

func TestGradeLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10.0, "Gem Mint 10"},
		{9.5, "Gem Mint 10"},
		{9.0, "Mint 9"},
		{8.5, "Near Mint-Mint 8"},
		{7.0, "Near Mint 7"},
		{4.5, "Very Good-Excellent 4"},
		{1.0, "Poor 1"},
	}
	for _, tt := range tests {
		if got := GradeLabel(tt.score); got != tt.want {
			t.Errorf("GradeLabel(%.1f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRoundHalf(t *testing.T) {
	// Flooring, not nearest: an average never promotes across a grade
	// boundary.
	tests := []struct {
		in, want float64
	}{
		{9.0, 9.0},
		{9.24, 9.0},
		{9.49, 9.0},
		{9.5, 9.5},
		{9.76, 9.5},
		{8.76, 8.5},
		{10.0, 10.0},
		{11.0, 10.0},
		{0.3, 1.0},
	}
	for _, tt := range tests {
		if got := roundHalf(tt.in); got != tt.want {
			t.Errorf("roundHalf(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
