package scoring

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	img "github.com/bagel786/pregrader/internal/imaging"
)

// Corner ROI side length as a fraction of the card's short side. At the
// canonical 500x700 this is a 40x40 window per corner.
const cornerROIFraction = 0.08

// Only whitening inside the outer corner zone counts: the portion of the
// ROI nearest the physical corner point. Whitening deeper into the card is
// print design, not wear.
const cornerZoneFraction = 0.40

// False-positive filter thresholds.
const (
	cornerGlareBrightness = 240.0 // ROI mean luminance above this is glare
	cornerBlobFraction    = 0.70  // white covering this much zone is background
)

// CornersAnalyzer inspects the four corner regions for whitening, the
// fiber exposure that appears when a corner blunts or frays.
type CornersAnalyzer struct{}

func (CornersAnalyzer) Category() Category { return CategoryCorners }

// cornerName indexes match the TL, TR, BR, BL quad convention.
var cornerNames = [4]string{"top_left", "top_right", "bottom_right", "bottom_left"}

// Analyze scores each corner independently and aggregates.
//
// # Algorithm
//
// Each corner ROI is cropped, masked for bright desaturated pixels, and
// restricted to the outer zone nearest the corner point. The white pixel
// count maps through a piecewise-linear score curve. Three filters guard
// against false positives before counting:
//
//   - glare: ROI mean luminance above 240 means a reflection is washing
//     out the corner; the count is unreliable so the corner scores a
//     conservative 9.0 at reduced confidence
//   - background blob: whitening covering more than 70% of the zone is a
//     sleeve or background leaking through imperfect correction; scored a
//     conservative 7.0
//   - zone restriction: white pixels outside the outer 40% of the ROI are
//     ignored entirely
//
// The aggregate is the mean corner score minus a penalty when the worst
// corner drags: one badly damaged corner caps the category even when the
// other three are clean.
func (a CornersAnalyzer) Analyze(card image.Image) (SubScore, error) {
	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	roi := int(cornerROIFraction * math.Min(float64(w), float64(h)))
	if roi < 8 {
		return SubScore{}, &AnalyzerError{
			Category: CategoryCorners,
			Reason:   "card too small for corner analysis",
		}
	}

	rois := [4]image.Rectangle{
		image.Rect(0, 0, roi, roi),
		image.Rect(w-roi, 0, w, roi),
		image.Rect(w-roi, h-roi, w, h),
		image.Rect(0, h-roi, roi, h),
	}

	scores := [4]float64{}
	metrics := map[string]float64{}
	var notes []string
	filtered := 0
	minConfidence := 1.0

	for i, r := range rois {
		crop := imaging.Crop(card, r.Add(bounds.Min))

		white := img.WhiteMask(crop)
		zone := cornerZoneMask(roi, i)
		count := img.CountSet(img.And(white, zone))
		zoneArea := img.CountSet(zone)

		conf := 1.0
		var score float64
		switch {
		case meanLuminance(crop) > cornerGlareBrightness:
			score = 9.0
			conf = 0.5
			filtered++
			notes = append(notes, cornerNames[i]+": glare, conservative score")
		case zoneArea > 0 && float64(count)/float64(zoneArea) > cornerBlobFraction:
			score = 7.0
			conf = 0.5
			filtered++
			notes = append(notes, cornerNames[i]+": background bleed, conservative score")
		default:
			score = cornerScore(float64(count))
		}

		scores[i] = score
		metrics[cornerNames[i]+"_white_px"] = float64(count)
		metrics[cornerNames[i]+"_score"] = score
		if conf < minConfidence {
			minConfidence = conf
		}
	}

	mean := (scores[0] + scores[1] + scores[2] + scores[3]) / 4
	worst := math.Min(math.Min(scores[0], scores[1]), math.Min(scores[2], scores[3]))

	penalty := 0.0
	switch {
	case worst <= 5.0:
		penalty = 2.0
	case worst <= 6.5:
		penalty = 1.0
	case worst <= 7.5:
		penalty = 0.5
	}

	final := mean - penalty
	if final < MinScore {
		final = MinScore
	}

	metrics["worst_corner"] = worst
	metrics["penalty"] = penalty
	metrics["false_positives_filtered"] = float64(filtered)

	return SubScore{
		Category:   CategoryCorners,
		Score:      final,
		Confidence: minConfidence,
		Metrics:    metrics,
		Notes:      notes,
	}, nil
}

// cornerZoneMask marks the outer zone of a roi-sized window: pixels within
// cornerZoneFraction*roi (Chebyshev distance) of the corner point. The
// corner index selects which window corner is the card corner.
func cornerZoneMask(roi, corner int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, roi, roi))
	limit := int(cornerZoneFraction * float64(roi))

	for y := 0; y < roi; y++ {
		for x := 0; x < roi; x++ {
			dx, dy := x, y
			switch corner {
			case 1: // top-right
				dx = roi - 1 - x
			case 2: // bottom-right
				dx, dy = roi-1-x, roi-1-y
			case 3: // bottom-left
				dy = roi - 1 - y
			}
			if dx <= limit && dy <= limit {
				mask.Pix[mask.PixOffset(x, y)] = 255
			}
		}
	}
	return mask
}

// meanLuminance returns the average BT.601 luminance of an image in [0,255].
func meanLuminance(src image.Image) float64 {
	bounds := src.Bounds()
	var sum float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			sum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
