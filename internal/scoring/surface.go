package scoring

import (
	"image"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
)

// Surface analysis tunables, relative to the corrected card area.
const (
	scratchMinAreaFraction = 0.0001 // components smaller than this are noise
	damageMinAreaFraction  = 0.0015 // dark regions larger than this are major damage
	damageLuminance        = 40     // below this a region counts as dark
	damageScoreCap         = 7.0

	// Local lightness variance above this marks holographic foil, whose
	// sparkle pattern would otherwise read as a field of scratches.
	holoVariance = 200.0
)

// Canny thresholds for scratch extraction on the contrast-enhanced card.
const (
	surfaceCannyLow  = 60
	surfaceCannyHigh = 160
)

// SurfaceAnalyzer finds scratches, print lines and dark damage on the card
// face.
type SurfaceAnalyzer struct{}

func (SurfaceAnalyzer) Category() Category { return CategorySurface }

// Analyze counts surface defects and scores them.
//
// # Algorithm
//
//  1. Build an exclusion mask of regions that legitimately produce edge
//     responses: specular glare (bright desaturated, dilated to cover the
//     halo) and holographic foil (high local lightness variance).
//  2. Contrast-enhance the card and extract edges, then remove everything
//     under the exclusion mask.
//  3. Keep only elongated structures by opening the edge mask with thin
//     horizontal and vertical line elements; scratches survive, isolated
//     speckle does not.
//  4. Count surviving components above the minimum area as scratches and
//     map the count through the scratch bracket table.
//  5. Separately, dark regions larger than the damage threshold (creases,
//     ink stains, dents) cap the score at 7.0 regardless of scratch count.
//
// # Limitations
//
// Heavy full-art foil can exceed the variance threshold everywhere, which
// excludes most of the card and lowers the reported confidence.
func (a SurfaceAnalyzer) Analyze(card image.Image) (SubScore, error) {
	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cardArea := float64(w * h)

	glare := imaging.Dilate(imaging.GlareMask(card), 2)
	// Opening strips the thin variance ridges every sharp edge produces,
	// keeping only broad foil fields.
	holo := imaging.Open(lightnessVarianceMask(card, holoVariance), 4)
	excluded := imaging.Or(glare, holo)
	excludedFraction := float64(imaging.CountSet(excluded)) / cardArea

	enhanced := imaging.EnhanceGray(card)
	edges := imaging.CannyEdges(enhanced, surfaceCannyLow, surfaceCannyHigh)
	edges = imaging.AndNot(edges, excluded)

	// Thin line openings: a scratch survives at least one orientation.
	horizontal := imaging.OpenRect(edges, 2, 0)
	vertical := imaging.OpenRect(edges, 0, 2)
	scratchMask := imaging.Or(horizontal, vertical)

	minArea := int(scratchMinAreaFraction * cardArea)
	if minArea < 4 {
		minArea = 4
	}
	scratches := len(detection.FindContours(scratchMask, minArea))

	score, label := scratchScore(scratches)

	// Dark damage pass.
	dark := imaging.AndNot(imaging.DarkMask(card, damageLuminance), excluded)
	damageMin := int(damageMinAreaFraction * cardArea)
	damaged := len(detection.FindContours(dark, damageMin))
	if damaged > 0 && score > damageScoreCap {
		score = damageScoreCap
		label = "Near Mint"
	}

	confidence := 1.0 - excludedFraction
	if confidence < 0.3 {
		confidence = 0.3
	}

	var notes []string
	if damaged > 0 {
		notes = append(notes, "dark damage region detected, score capped")
	}
	if excludedFraction > 0.4 {
		notes = append(notes, "large glare or foil area excluded from analysis")
	}

	return SubScore{
		Category:   CategorySurface,
		Score:      score,
		Label:      label,
		Confidence: confidence,
		Metrics: map[string]float64{
			"scratch_count":         float64(scratches),
			"major_damage_regions":  float64(damaged),
			"excluded_area_percent": 100 * excludedFraction,
		},
		Notes: notes,
	}, nil
}

// lightnessVarianceMask marks pixels whose 5x5 neighborhood lightness
// variance exceeds threshold, using summed-area tables so the cost is
// independent of the window size.
func lightnessVarianceMask(src image.Image, threshold float64) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	// Integral images of values and squares, with a zero row/column border.
	sum := make([]float64, (w+1)*(h+1))
	sumSq := make([]float64, (w+1)*(h+1))
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			v := lum[(y-1)*w+(x-1)]
			sum[y*(w+1)+x] = v + sum[(y-1)*(w+1)+x] + sum[y*(w+1)+x-1] - sum[(y-1)*(w+1)+x-1]
			sumSq[y*(w+1)+x] = v*v + sumSq[(y-1)*(w+1)+x] + sumSq[y*(w+1)+x-1] - sumSq[(y-1)*(w+1)+x-1]
		}
	}

	window := func(table []float64, x0, y0, x1, y1 int) float64 {
		return table[y1*(w+1)+x1] - table[y0*(w+1)+x1] - table[y1*(w+1)+x0] + table[y0*(w+1)+x0]
	}

	const r = 2
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			n := float64((y1 - y0) * (x1 - x0))
			mean := window(sum, x0, y0, x1, y1) / n
			variance := window(sumSq, x0, y0, x1, y1)/n - mean*mean
			if variance > threshold {
				mask.Pix[mask.PixOffset(x, y)] = 255
			}
		}
	}
	return mask
}
