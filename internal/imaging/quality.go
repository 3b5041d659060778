package imaging

import (
	"fmt"
	"image"
	"math"
)

// Capture-quality thresholds, on the 8-bit luminance scale.
const (
	qualityBlurIssue   = 100.0
	qualityBlurWarning = 200.0

	qualityDarkIssue     = 40.0
	qualityDarkWarning   = 80.0
	qualityBrightWarning = 180.0
	qualityBrightIssue   = 230.0

	qualityContrastIssue   = 20.0
	qualityContrastWarning = 40.0

	qualityMinDimension = 600
)

// QualityReport summarizes whether a photo is good enough to grade from.
// Issues make analysis unreliable; warnings degrade it but do not block.
type QualityReport struct {
	// BlurScore is the Laplacian variance of the luminance plane. Higher
	// is sharper; defocused photos fall under 100.
	BlurScore float64 `json:"blur_score"`

	// Brightness and Contrast are the mean and standard deviation of
	// luminance, both in [0,255].
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	// CanAnalyze is false when any issue was found.
	CanAnalyze bool `json:"can_analyze"`
}

// CheckQuality measures focus, exposure, and contrast of a photo.
//
// # Algorithm
//
// Blur is scored as the variance of the 4-neighbor Laplacian over the
// luminance plane: a sharp photo has strong second derivatives at every
// printed edge, a defocused one does not. Brightness and contrast are
// the mean and standard deviation of the same plane, checked against
// fixed exposure bands.
//
// # Limitations
//
// The Laplacian score is content-dependent: a sharp photo of a plain
// card back scores lower than a sharp photo of busy artwork. The issue
// threshold is set low enough that only genuine defocus trips it.
func CheckQuality(img image.Image) QualityReport {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	report := QualityReport{Width: w, Height: h}
	if w == 0 || h == 0 {
		report.Issues = append(report.Issues, "empty image")
		return report
	}

	gray := toGrayMatrix(img)
	var sum, sumSq float64
	n := float64(w * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gray[y][x] * 255
			gray[y][x] = v
			sum += v
			sumSq += v * v
		}
	}
	report.Brightness = sum / n
	report.Contrast = math.Sqrt(math.Max(sumSq/n-report.Brightness*report.Brightness, 0))
	report.BlurScore = laplacianVariance(gray)

	switch {
	case report.BlurScore < qualityBlurIssue:
		report.Issues = append(report.Issues,
			fmt.Sprintf("image too blurry to analyze (focus score %.0f)", report.BlurScore))
	case report.BlurScore < qualityBlurWarning:
		report.Warnings = append(report.Warnings, "image slightly out of focus")
	}

	switch {
	case report.Brightness < qualityDarkIssue:
		report.Issues = append(report.Issues,
			fmt.Sprintf("image too dark (brightness %.0f)", report.Brightness))
	case report.Brightness > qualityBrightIssue:
		report.Issues = append(report.Issues,
			fmt.Sprintf("image overexposed (brightness %.0f)", report.Brightness))
	case report.Brightness < qualityDarkWarning:
		report.Warnings = append(report.Warnings, "image is dim")
	case report.Brightness > qualityBrightWarning:
		report.Warnings = append(report.Warnings, "image is very bright")
	}

	switch {
	case report.Contrast < qualityContrastIssue:
		report.Issues = append(report.Issues,
			fmt.Sprintf("contrast too low (%.0f)", report.Contrast))
	case report.Contrast < qualityContrastWarning:
		report.Warnings = append(report.Warnings, "low contrast")
	}

	if w < qualityMinDimension || h < qualityMinDimension {
		report.Issues = append(report.Issues,
			fmt.Sprintf("resolution %dx%d below the %dpx minimum", w, h, qualityMinDimension))
	}

	report.CanAnalyze = len(report.Issues) == 0
	return report
}

// laplacianVariance computes the variance of the 4-neighbor Laplacian
// over the interior of an 8-bit luminance plane.
func laplacianVariance(gray [][]float64) float64 {
	h := len(gray)
	if h < 3 {
		return 0
	}
	w := len(gray[0])
	if w < 3 {
		return 0
	}

	var sum, sumSq float64
	n := float64((w - 2) * (h - 2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*gray[y][x] - gray[y-1][x] - gray[y+1][x] - gray[y][x-1] - gray[y][x+1]
			sum += lap
			sumSq += lap * lap
		}
	}
	mean := sum / n
	return math.Max(sumSq/n-mean*mean, 0)
}
