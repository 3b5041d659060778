package scoring

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
)

// Artwork-frame candidate bounds, as fractions of the corrected card.
const (
	artworkMinAreaFraction = 0.15
	artworkMaxAreaFraction = 0.70
	artworkMinAspect       = 0.80 // box width / height
	artworkMaxAspect       = 1.50
	artworkMaxTopY         = 0.50 // artwork starts in the upper card half
)

// Canny thresholds for frame extraction, calibrated to the normalized
// gradient scale: after the Gaussian pre-blur a moderate-contrast frame
// line peaks well under 100, so the hysteresis pair sits low.
const (
	centeringCannyLow  = 10
	centeringCannyHigh = 40
)

// CenteringAnalyzer measures how evenly the printed artwork frame sits
// between the card's borders.
type CenteringAnalyzer struct{}

func (CenteringAnalyzer) Category() Category { return CategoryCentering }

// Analyze locates the artwork frame and scores the margin balance.
//
// # Algorithm
//
//  1. Blur the corrected card, extract edges, and close the edge map so
//     the thinned frame outline survives as one connected component
//     instead of four disconnected sides.
//  2. Group edge pixels into connected components and keep bounding boxes
//     that plausibly frame the artwork: 15-70% of the card area, starting
//     in the upper card half, box aspect between 0.8 and 1.5.
//  3. For the largest candidate, compute the left/right and top/bottom
//     margin ratios (smaller margin over larger). Their average drives
//     the score through the centering bracket curve.
//
// When no plausible artwork frame exists the analyzer fails the category
// with an AnalyzerError; the aggregator then reports it as unscored
// rather than inventing a number. Frameless layouts (full-art, VMAX) are
// recognized up front so the failure names the card type instead of a
// fruitless frame search.
func (a CenteringAnalyzer) Analyze(card image.Image) (SubScore, error) {
	if cardType, _ := ClassifyCard(card); cardType.frameless() {
		return SubScore{}, &AnalyzerError{
			Category: CategoryCentering,
			Reason:   "full-art layout, no artwork frame to measure",
		}
	}

	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cardArea := float64(w * h)

	blurred := blur.Gaussian(card, 2.0)
	edges := imaging.CannyEdges(blurred, centeringCannyLow, centeringCannyHigh)
	edges = imaging.Close(edges, 2)
	contours := detection.FindContours(edges, (w+h)/8)

	var box struct {
		minX, minY, maxX, maxY float64
		area                   float64
	}
	found := false

	for _, contour := range contours {
		minX, minY, maxX, maxY := imaging.BoundingBox(contour)
		bw, bh := maxX-minX, maxY-minY
		if bw <= 0 || bh <= 0 {
			continue
		}
		area := bw * bh
		fraction := area / cardArea
		if fraction < artworkMinAreaFraction || fraction > artworkMaxAreaFraction {
			continue
		}
		aspect := bw / bh
		if aspect < artworkMinAspect || aspect > artworkMaxAspect {
			continue
		}
		if minY/float64(h) > artworkMaxTopY {
			continue
		}
		if !found || area > box.area {
			box.minX, box.minY, box.maxX, box.maxY = minX, minY, maxX, maxY
			box.area = area
			found = true
		}
	}

	if !found {
		return SubScore{}, &AnalyzerError{
			Category: CategoryCentering,
			Reason:   "inner artwork frame not detected",
		}
	}

	left := box.minX
	right := float64(w) - box.maxX
	top := box.minY
	bottom := float64(h) - box.maxY

	horizontal := marginRatio(left, right)
	vertical := marginRatio(top, bottom)
	balance := (horizontal + vertical) / 2

	score := centeringScore(balance)

	// The artwork box is an approximation of the printed frame; the larger
	// the candidate relative to the card, the more reliably its margins
	// reflect true centering.
	confidence := 0.6 + 0.4*math.Min(box.area/(artworkMaxAreaFraction*cardArea), 1.0)

	return SubScore{
		Category:   CategoryCentering,
		Score:      score,
		Confidence: confidence,
		Metrics: map[string]float64{
			"horizontal_ratio":  horizontal,
			"vertical_ratio":    vertical,
			"balance_ratio":     balance,
			"left_margin_px":    left,
			"right_margin_px":   right,
			"top_margin_px":     top,
			"bottom_margin_px":  bottom,
			"artwork_area_frac": box.area / cardArea,
		},
	}, nil
}

// marginRatio returns smaller/larger of two margins in [0,1], where 1.0 is
// a perfect split. Two zero margins count as balanced.
func marginRatio(a, b float64) float64 {
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}
	larger := math.Max(a, b)
	if larger == 0 {
		return 1.0
	}
	return math.Min(a, b) / larger
}
