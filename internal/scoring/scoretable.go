package scoring

import "math"

// Band maps a measurement below Threshold to a score. Tables are ordered by
// ascending threshold and looked up first-match, so smaller measurements
// (less damage) score higher.
type Band struct {
	Threshold float64
	Score     float64
	Label     string
}

// lookupBand returns the score and label for a measurement where smaller is
// better. The fallback covers measurements beyond the last band.
func lookupBand(bands []Band, value float64, fallback func(float64) (float64, string)) (float64, string) {
	for _, b := range bands {
		if value < b.Threshold {
			return b.Score, b.Label
		}
	}
	return fallback(value)
}

// whiteningBands maps an edge-whitening percentage to a score. Past the
// last band the score decays by a point per 10% down to the scale minimum.
var whiteningBands = []Band{
	{Threshold: 0.2, Score: 10.0, Label: "Gem Mint"},
	{Threshold: 0.5, Score: 9.5, Label: "Gem Mint"},
	{Threshold: 1.0, Score: 9.0, Label: "Mint"},
	{Threshold: 1.5, Score: 8.5, Label: "Near Mint-Mint"},
	{Threshold: 2.5, Score: 8.0, Label: "Near Mint-Mint"},
	{Threshold: 4.0, Score: 7.0, Label: "Near Mint"},
	{Threshold: 6.0, Score: 6.0, Label: "Excellent-Mint"},
	{Threshold: 8.0, Score: 5.0, Label: "Excellent"},
	{Threshold: 12.0, Score: 4.0, Label: "Very Good-Excellent"},
	{Threshold: 18.0, Score: 3.0, Label: "Very Good"},
}

func whiteningScore(percent float64) (float64, string) {
	return lookupBand(whiteningBands, percent, func(p float64) (float64, string) {
		s := 3.0 - (p-18.0)/10.0
		if s < MinScore {
			s = MinScore
		}
		return s, "Good"
	})
}

// scratchBands maps a surface defect count to a score.
var scratchBands = []Band{
	{Threshold: 1, Score: 10.0, Label: "Gem Mint"},
	{Threshold: 4, Score: 9.5, Label: "Gem Mint"},
	{Threshold: 8, Score: 9.0, Label: "Mint"},
	{Threshold: 13, Score: 8.0, Label: "Near Mint-Mint"},
	{Threshold: 21, Score: 7.0, Label: "Near Mint"},
}

func scratchScore(count int) (float64, string) {
	return lookupBand(scratchBands, float64(count), func(float64) (float64, string) {
		return 6.5, "Excellent-Mint"
	})
}

// cornerScore maps a single corner's whitening pixel count to a score via
// piecewise-linear interpolation, so a one-pixel change never jumps a
// whole bracket.
func cornerScore(whitePixels float64) float64 {
	n := whitePixels
	switch {
	case n < 10:
		return 10.0
	case n < 30:
		return 10.0 - (n-10)*0.025
	case n < 75:
		return 9.5 - (n-30)*(0.5/45.0)
	case n < 150:
		return 9.0 - (n-75)*(0.5/75.0)
	case n < 300:
		return 8.5 - (n-150)*(1.5/150.0)
	default:
		s := 7.0 - (n-300)*0.01
		if s < 5.0 {
			s = 5.0
		}
		return s
	}
}

// centeringScore maps a centering balance ratio (worst axis, [0,1] where
// 1.0 is perfectly centered) to a score. Linear interpolation between the
// bracket anchors keeps the mapping continuous.
func centeringScore(ratio float64) float64 {
	anchors := []struct{ ratio, score float64 }{
		{0.975, 10.0},
		{0.95, 9.0},
		{0.90, 8.0},
		{0.85, 7.0},
		{0.80, 6.0},
		{0.75, 5.0},
		{0.70, 4.0},
	}

	if ratio >= anchors[0].ratio {
		return 10.0
	}
	for i := 1; i < len(anchors); i++ {
		hi, lo := anchors[i-1], anchors[i]
		if ratio >= lo.ratio {
			t := (ratio - lo.ratio) / (hi.ratio - lo.ratio)
			return lo.score + t*(hi.score-lo.score)
		}
	}

	s := ratio * 5.0
	if s < MinScore {
		s = MinScore
	}
	return s
}

// gradeBands maps an aggregate score to its conventional grade label.
var gradeBands = []struct {
	min   float64
	label string
}{
	{9.5, "Gem Mint 10"},
	{9.0, "Mint 9"},
	{8.0, "Near Mint-Mint 8"},
	{7.0, "Near Mint 7"},
	{6.0, "Excellent-Mint 6"},
	{5.0, "Excellent 5"},
	{4.0, "Very Good-Excellent 4"},
	{3.0, "Very Good 3"},
	{2.0, "Good 2"},
}

// GradeLabel returns the conventional grade name for an aggregate score.
func GradeLabel(score float64) string {
	for _, g := range gradeBands {
		if score >= g.min {
			return g.label
		}
	}
	return "Poor 1"
}

// roundHalf floors a score to the half point below it and clamps it to the
// grading scale. Flooring keeps the aggregate conservative: an 8.9 average
// reports as 8.5, never promoted across a grade boundary.
func roundHalf(s float64) float64 {
	r := math.Floor(s*2) / 2
	if r > MaxScore {
		r = MaxScore
	}
	if r < MinScore {
		r = MinScore
	}
	return r
}
