package vision

import (
	"image"
	"math"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
)

// Corner refinement search radius in pixels. Vision-model coordinates are
// typically within a few dozen pixels of the true corner.
const refineRadius = 30

// Canny thresholds for the refinement edge map. Fixed rather than adaptive:
// refinement only needs strong structural edges, and determinism matters
// more than recall here.
const (
	refineCannyLow  = 50
	refineCannyHigh = 150
)

// Refinement multiplies confidence, capped at 1.0: a quad that snapped
// onto real edges is more trustworthy than the raw model estimate.
const refineConfidenceBoost = 1.1

// refineResult snaps each corner of a slow-path result to the nearest edge
// pixel and boosts its confidence. Results whose corners all miss the edge
// map are returned unchanged, still tagged with the unrefined method.
func refineResult(res detection.Result, img image.Image) detection.Result {
	edges := imaging.CannyEdges(img, refineCannyLow, refineCannyHigh)

	refined := *res.Quad
	moved := false
	for i, p := range refined {
		if snapped, ok := snapToEdge(edges, p, refineRadius); ok {
			refined[i] = snapped
			moved = true
		}
	}
	if !moved {
		return res
	}

	out := res
	out.Quad = &refined
	out.Method = detection.MethodSlowAIRefined
	out.Confidence = math.Min(res.Confidence*refineConfidenceBoost, 1.0)
	return out
}

// snapToEdge finds the edge pixel nearest to p within radius. Scans the
// square window and keeps the minimum Euclidean distance, so the result is
// independent of scan order.
func snapToEdge(edges *image.Gray, p imaging.Point, radius int) (imaging.Point, bool) {
	bounds := edges.Bounds()
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))

	best := imaging.Point{}
	bestDist := math.Inf(1)
	found := false

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := cx+dx, cy+dy
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			if edges.GrayAt(x, y).Y < 128 {
				continue
			}
			d := math.Hypot(float64(x)-p.X, float64(y)-p.Y)
			if d < bestDist && d <= float64(radius) {
				bestDist = d
				best = imaging.Point{X: float64(x), Y: float64(y)}
				found = true
			}
		}
	}
	return best, found
}
