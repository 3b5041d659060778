package detection

import (
	"image"
	"math"
	"time"

	"github.com/bagel786/pregrader/internal/imaging"
)

// Epsilon for polygon simplification, as a fraction of contour perimeter.
const simplifyEpsilonFraction = 0.03

// Confidence scoring treats a card filling 90% of the frame as ideal; the
// validation predicate already rejects anything above 95%.
const idealAreaFraction = 0.90

// FullFrame fallback confidence is scaled down: treating the whole photo as
// the card is the least precise method and should only win when nothing
// else does.
const fullFrameConfidenceScale = 0.75

// FastDetector proposes a card boundary using deterministic geometric
// methods only. It never performs network I/O and completes in CPU-bound
// time.
type FastDetector struct {
	// Preprocess controls whether the detector runs contrast enhancement
	// and denoising before edge extraction. On by default; tests use raw
	// synthetic images where enhancement only costs time.
	Preprocess bool
}

// NewFastDetector returns a detector with preprocessing enabled.
func NewFastDetector() *FastDetector {
	return &FastDetector{Preprocess: true}
}

// Detect runs every fast method over the image and returns the best result.
//
// Methods, in tie-break priority order:
//
//	A. adaptive edge contours (most geometrically precise)
//	B. perceptual color segmentation
//	C. full-frame fallback for pre-cropped photos
//
// The highest-confidence valid quad wins; on an exact tie the earlier
// method is preferred. An empty Result (confidence 0) is returned when no
// method produces a quad that passes validation.
func (d *FastDetector) Detect(img image.Image) Result {
	res, _ := d.DetectAll(img)
	return res
}

// DetectAll is Detect plus a per-method attempt log: every method that ran
// is recorded with its confidence, so a failed detection can tell the
// caller exactly what was tried. The full-frame fallback appears in the
// log only when its aspect gate let it run.
func (d *FastDetector) DetectAll(img image.Image) (Result, []Attempt) {
	start := time.Now()
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	prepared := img
	if d.Preprocess {
		prepared = imaging.Enhance(img)
	}

	var attempts []Attempt
	best := Result{Method: MethodFastCanny}
	run := func(method Method, scale float64, detect func() (imaging.Quad, bool)) {
		stepStart := time.Now()
		q, ok := detect()
		attempt := Attempt{Method: method, Elapsed: time.Since(stepStart)}
		if ok {
			attempt.Confidence = scale * quadConfidence(q, w, h)
			// Strictly greater: exact ties keep the earlier (more precise)
			// method.
			if attempt.Confidence > best.Confidence {
				quad := q
				best = Result{Quad: &quad, Confidence: attempt.Confidence, Method: method}
			}
		}
		attempts = append(attempts, attempt)
	}

	run(MethodFastCanny, 1.0, func() (imaging.Quad, bool) {
		return d.detectByEdges(prepared)
	})
	run(MethodFastSegmentation, 1.0, func() (imaging.Quad, bool) {
		return d.detectBySegmentation(prepared)
	})
	if best.Empty() {
		if q, ok := fullFrameFallback(w, h); ok {
			run(MethodFastFullFrame, fullFrameConfidenceScale, func() (imaging.Quad, bool) {
				return q, true
			})
		}
	}

	best.Elapsed = time.Since(start)
	return best, attempts
}

// detectByEdges is method A: adaptive edge map, external contours, polygon
// simplification, quad validation, largest valid quad wins.
func (d *FastDetector) detectByEdges(img image.Image) (imaging.Quad, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	edges := imaging.EdgeMap(img)
	contours := FindContours(edges, (w+h)/4)

	var best imaging.Quad
	var bestArea float64
	found := false

	for _, contour := range contours {
		hull := imaging.ConvexHull(contour)
		q, ok := imaging.QuadFromPolygon(hull, simplifyEpsilonFraction, w, h)
		if !ok {
			continue
		}
		if area := q.Area(); area > bestArea {
			bestArea = area
			best = q
			found = true
		}
	}
	return best, found
}

// fullFrameFallback is method C: when the photo's own aspect ratio already
// lies in the card tolerance band, assume it is a tight crop and use the
// whole frame. The quad skips the usual coverage validation, which would
// reject a 100% fill; the aspect gate stands in for it.
func fullFrameFallback(w, h int) (imaging.Quad, bool) {
	aspect := imaging.FrameAspect(w, h)
	if aspect < 0.60 || aspect > 0.85 {
		return imaging.Quad{}, false
	}
	return imaging.FullFrameQuad(w, h), true
}

// quadConfidence scores a candidate in [0,1]:
// 0.5*areaCloseness + 0.5*aspectCloseness. Area closeness saturates at the
// ideal fill fraction; aspect closeness is 1.0 at exactly the standard
// card ratio and falls off linearly.
func quadConfidence(q imaging.Quad, frameW, frameH int) float64 {
	frameArea := float64(frameW) * float64(frameH)
	if frameArea <= 0 {
		return 0
	}

	areaCloseness := math.Min(q.Area()/(idealAreaFraction*frameArea), 1.0)

	aspect := q.Aspect()
	aspectCloseness := 1.0 - math.Min(math.Abs(aspect-imaging.CardAspectRatio)/imaging.CardAspectRatio, 1.0)

	return 0.5*areaCloseness + 0.5*aspectCloseness
}
