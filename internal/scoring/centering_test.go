package scoring

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// drawBox paints a rectangle outline a few pixels thick.
func drawBox(img *image.NRGBA, r image.Rectangle, thickness int, c color.NRGBA) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func TestCenteringFindsArtworkBox(t *testing.T) {
	card := createCard(cardBlue)
	// Artwork frame horizontally centered, with a larger bottom margin as
	// card layouts have.
	drawBox(card, image.Rect(50, 50, 450, 530), 3, color.NRGBA{0, 0, 0, 255})

	sub, err := CenteringAnalyzer{}.Analyze(card)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if h := sub.Metrics["horizontal_ratio"]; h < 0.90 {
		t.Errorf("horizontal_ratio = %f for a centered frame", h)
	}
	if sub.Metrics["left_margin_px"] < 40 || sub.Metrics["left_margin_px"] > 60 {
		t.Errorf("left margin = %f, want near 50", sub.Metrics["left_margin_px"])
	}
	if sub.Confidence < 0.5 {
		t.Errorf("confidence = %f for a clean detection", sub.Confidence)
	}
}

func TestCenteringOffCenterScoresLower(t *testing.T) {
	centered := createCard(cardBlue)
	drawBox(centered, image.Rect(50, 50, 450, 530), 3, color.NRGBA{0, 0, 0, 255})

	shifted := createCard(cardBlue)
	drawBox(shifted, image.Rect(85, 50, 485, 530), 3, color.NRGBA{0, 0, 0, 255})

	subCentered, err := CenteringAnalyzer{}.Analyze(centered)
	if err != nil {
		t.Fatalf("Analyze centered: %v", err)
	}
	subShifted, err := CenteringAnalyzer{}.Analyze(shifted)
	if err != nil {
		t.Fatalf("Analyze shifted: %v", err)
	}

	if subShifted.Metrics["horizontal_ratio"] >= subCentered.Metrics["horizontal_ratio"] {
		t.Fatalf("shifting the frame did not worsen the horizontal ratio: %f vs %f",
			subShifted.Metrics["horizontal_ratio"], subCentered.Metrics["horizontal_ratio"])
	}
	if subShifted.Score > subCentered.Score {
		t.Errorf("off-center frame scored %f, centered scored %f", subShifted.Score, subCentered.Score)
	}
}

func TestCenteringMirrorSymmetry(t *testing.T) {
	left := createCard(cardBlue)
	drawBox(left, image.Rect(30, 50, 430, 530), 3, color.NRGBA{0, 0, 0, 255})

	right := createCard(cardBlue)
	drawBox(right, image.Rect(70, 50, 470, 530), 3, color.NRGBA{0, 0, 0, 255})

	subLeft, err := CenteringAnalyzer{}.Analyze(left)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	subRight, err := CenteringAnalyzer{}.Analyze(right)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	diff := subLeft.Metrics["horizontal_ratio"] - subRight.Metrics["horizontal_ratio"]
	if diff < -0.05 || diff > 0.05 {
		t.Errorf("mirrored offsets measured differently: %f vs %f",
			subLeft.Metrics["horizontal_ratio"], subRight.Metrics["horizontal_ratio"])
	}
}

func TestCenteringNoArtworkIsError(t *testing.T) {
	_, err := CenteringAnalyzer{}.Analyze(createCard(cardBlue))
	if err == nil {
		t.Fatal("featureless card scored instead of failing the category")
	}

	var analyzerErr *AnalyzerError
	if !errors.As(err, &analyzerErr) {
		t.Fatalf("error type %T, want *AnalyzerError", err)
	}
	if analyzerErr.Category != CategoryCentering {
		t.Errorf("error category = %s", analyzerErr.Category)
	}
	if analyzerErr.Reason != "inner artwork frame not detected" {
		t.Errorf("error reason = %q", analyzerErr.Reason)
	}
}

func TestCenteringSkipsFullArtLayout(t *testing.T) {
	// Full-art layouts have no frame: the analyzer must fail the category
	// naming the layout, not report a missed detection.
	_, err := CenteringAnalyzer{}.Analyze(fullArtCard())

	var analyzerErr *AnalyzerError
	if !errors.As(err, &analyzerErr) {
		t.Fatalf("error = %v, want *AnalyzerError", err)
	}
	if analyzerErr.Reason != "full-art layout, no artwork frame to measure" {
		t.Errorf("error reason = %q", analyzerErr.Reason)
	}
}

func TestMarginRatio(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{50, 50, 1.0},
		{40, 60, 40.0 / 60},
		{60, 40, 40.0 / 60},
		{0, 100, 0},
		{0, 0, 1.0},
	}
	for _, tt := range tests {
		if got := marginRatio(tt.a, tt.b); got != tt.want {
			t.Errorf("marginRatio(%.0f,%.0f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
