package scoring

import (
	"image"

	"github.com/bagel786/pregrader/internal/imaging"
)

// CardType categorizes a card's layout so analysis can adapt: full-art
// cards have no artwork frame to measure and foil finishes confuse surface
// analysis.
type CardType string

const (
	CardTypeStandard  CardType = "standard"
	CardTypeFullArt   CardType = "full-art"
	CardTypeVMAXVSTAR CardType = "vmax-vstar"
	CardTypeTrainer   CardType = "trainer"
	CardTypeSpecial   CardType = "special"
	CardTypeUnknown   CardType = "unknown"
)

// Classification thresholds.
const (
	// Fraction of the card's short side making up the border sample bands.
	classifyBorderFraction = 0.05

	// Border pixels above this HSV saturation count as printed border.
	classifyBorderSaturation = 80.0 / 255.0

	// Saturated-border percentages separating standard cards (thick
	// colored border) from borderless full-art layouts.
	classifyStandardBorderPct = 8.0
	classifyFullArtBorderPct  = 2.0

	// Fraction of high-variance pixels above which the face reads as a
	// textured foil print.
	classifyTextureFraction = 0.10

	// Hue variance of the top card fifth above which the artwork is
	// oversized, extending into the nameplate area.
	classifyOversizeHueVariance = 3200.0

	// Special-finish cues: saturation variance across the face, or a
	// dominant gold hue.
	classifySpecialSatVariance = 0.031
	classifyGoldHueMin         = 30.0
	classifyGoldHueMax         = 70.0
	classifyGoldFraction       = 0.40
)

// ClassifyCard determines the card's layout type and a confidence in the
// call.
//
// # Algorithm
//
// The primary cue is the saturated-color percentage of the outer border
// bands: standard cards carry a thick printed border, full-art layouts run
// artwork to the cut edge. Borderless cards are split by texture (foil
// full-arts against plain trainer faces), with a hue-variance check on the
// top fifth separating oversized VMAX artwork. Cards between the border
// extremes are checked for special finishes (rainbow or gold prints).
//
// # Limitations
//
// Heavily worn borders lose saturation and can misread as borderless; the
// confidence reflects how far the measurement sits from the thresholds.
func ClassifyCard(card image.Image) (CardType, float64) {
	borderPct := borderSaturationPercent(card)

	if borderPct > classifyStandardBorderPct {
		return CardTypeStandard, 0.9
	}

	if borderPct < classifyFullArtBorderPct {
		if texturedFace(card) {
			if oversizedArtwork(card) {
				return CardTypeVMAXVSTAR, 0.85
			}
			return CardTypeFullArt, 0.85
		}
		return CardTypeTrainer, 0.75
	}

	if specialFinish(card) {
		return CardTypeSpecial, 0.80
	}
	return CardTypeUnknown, 0.5
}

// frameless reports whether a card type has no inner artwork frame, so
// centering's frame search cannot apply.
func (t CardType) frameless() bool {
	return t == CardTypeFullArt || t == CardTypeVMAXVSTAR
}

// borderSaturationPercent measures how much of the outer border bands is
// saturated printed color, in percent.
func borderSaturationPercent(card image.Image) float64 {
	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	bw := int(classifyBorderFraction * float64(w))
	bh := int(classifyBorderFraction * float64(h))
	if bw < 1 || bh < 1 {
		return 0
	}

	var total, saturated int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= bw && x < w-bw && y >= bh && y < h-bh {
				continue
			}
			total++
			_, s, _ := imaging.HSVAt(card, bounds.Min.X+x, bounds.Min.Y+y)
			if s > classifyBorderSaturation {
				saturated++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(saturated) / float64(total)
}

// texturedFace reports whether the card face carries the high-frequency
// sparkle of a foil print, measured as the fraction of pixels with high
// local lightness variance.
func texturedFace(card image.Image) bool {
	mask := lightnessVarianceMask(card, holoVariance)
	total := mask.Bounds().Dx() * mask.Bounds().Dy()
	if total == 0 {
		return false
	}
	return float64(imaging.CountSet(mask))/float64(total) > classifyTextureFraction
}

// oversizedArtwork reports whether complex multi-colored artwork reaches
// the top of the card, where standard layouts put a flat nameplate.
func oversizedArtwork(card image.Image) bool {
	bounds := card.Bounds()
	w := bounds.Dx()
	top := bounds.Dy() / 5
	if top == 0 || w == 0 {
		return false
	}

	var sum, sumSq float64
	n := float64(w * top)
	for y := 0; y < top; y++ {
		for x := 0; x < w; x++ {
			hue, _, _ := imaging.HSVAt(card, bounds.Min.X+x, bounds.Min.Y+y)
			sum += hue
			sumSq += hue * hue
		}
	}
	mean := sum / n
	return sumSq/n-mean*mean > classifyOversizeHueVariance
}

// specialFinish reports rainbow or gold prints: very uneven saturation
// across the face, or a face dominated by gold hues.
func specialFinish(card image.Image) bool {
	bounds := card.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	n := float64(w * h)
	if n == 0 {
		return false
	}

	var satSum, satSumSq float64
	var gold int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hue, s, _ := imaging.HSVAt(card, bounds.Min.X+x, bounds.Min.Y+y)
			satSum += s
			satSumSq += s * s
			if hue >= classifyGoldHueMin && hue <= classifyGoldHueMax {
				gold++
			}
		}
	}
	mean := satSum / n
	if satSumSq/n-mean*mean > classifySpecialSatVariance {
		return true
	}
	return float64(gold)/n > classifyGoldFraction
}
