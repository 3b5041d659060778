package scoring

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	img "github.com/bagel786/pregrader/internal/imaging"
)

// Edge band width as a fraction of the card's short side. At 500x700 this
// is a 15px strip along each side.
const edgeBandFraction = 0.03

// Whitening lightness threshold on the L* [0,100] scale. Exposed card
// stock reads well above the printed border at this cutoff.
const whiteningLightness = 61.0

// A border is treated as color-keyed when at least half its band pixels
// match the expected border hue; whitening is then anything bright that is
// not that hue. Otherwise the analyzer falls back to a plain bright
// desaturated mask.
const borderHueFraction = 0.50

// EdgesAnalyzer measures whitening along the four card edges.
type EdgesAnalyzer struct{}

func (EdgesAnalyzer) Category() Category { return CategoryEdges }

var sideNames = [4]string{"top", "right", "bottom", "left"}

// Analyze scores each edge band and reports the worst.
//
// # Algorithm
//
// A thin band is cropped along each side of the corrected card. Within the
// band, whitening pixels are counted two ways depending on what the border
// looks like: card backs have a solid blue border, so when the band is
// mostly blue any bright non-blue pixel is whitening; otherwise a bright
// desaturated mask stands in. Each side's whitening percentage maps
// through the whitening bracket table and the final score is the minimum
// across sides, since a grader judges the worst edge, not the average.
func (a EdgesAnalyzer) Analyze(card image.Image) (SubScore, error) {
	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	band := int(edgeBandFraction * math.Min(float64(w), float64(h)))
	if band < 3 {
		return SubScore{}, &AnalyzerError{
			Category: CategoryEdges,
			Reason:   "card too small for edge analysis",
		}
	}

	strips := [4]image.Rectangle{
		image.Rect(0, 0, w, band),
		image.Rect(w-band, 0, w, h),
		image.Rect(0, h-band, w, h),
		image.Rect(0, 0, band, h),
	}

	// Seed with the perfect-score band so a clean card keeps its label
	// when no side ever lowers the minimum.
	final, label := whiteningScore(0)
	metrics := map[string]float64{}
	var notes []string

	for i, r := range strips {
		strip := imaging.Crop(card, r.Add(bounds.Min))
		pct := whiteningPercent(strip)
		score, bandLabel := whiteningScore(pct)

		metrics[sideNames[i]+"_whitening_pct"] = pct
		metrics[sideNames[i]+"_score"] = score
		if pct >= 1.0 {
			notes = append(notes, fmt.Sprintf("%s edge whitening %.1f%%", sideNames[i], pct))
		}

		if score < final {
			final = score
			label = bandLabel
		}
	}

	return SubScore{
		Category:   CategoryEdges,
		Score:      final,
		Label:      label,
		Confidence: 0.9,
		Metrics:    metrics,
		Notes:      notes,
	}, nil
}

// whiteningPercent measures the fraction of an edge strip showing exposed
// card stock, in percent.
func whiteningPercent(strip image.Image) float64 {
	total := strip.Bounds().Dx() * strip.Bounds().Dy()
	if total == 0 {
		return 0
	}

	blue := img.BlueMask(strip)
	blueFraction := float64(img.CountSet(blue)) / float64(total)

	var whitening *image.Gray
	if blueFraction >= borderHueFraction {
		bright := img.LightnessMask(strip, whiteningLightness)
		whitening = img.AndNot(bright, blue)
	} else {
		whitening = img.WhiteMask(strip)
	}

	return 100 * float64(img.CountSet(whitening)) / float64(total)
}
