package scoring

import (
	"image"
	"image/color"
	"testing"
)

// speckle fills a region with a fine gray checkerboard, mimicking the
// high-frequency sparkle of a textured foil print.
func speckle(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := uint8(100)
			if (x+y)%2 == 0 {
				v = 160
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
}

// fullArtCard builds a borderless textured card: no saturated border
// band, foil sparkle across the whole face.
func fullArtCard() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 500, 700))
	speckle(img, img.Bounds())
	return img
}

func TestClassifyStandardCard(t *testing.T) {
	cardType, confidence := ClassifyCard(createCard(cardBlue))
	if cardType != CardTypeStandard {
		t.Fatalf("saturated-border card classified as %s", cardType)
	}
	if confidence < 0.8 {
		t.Errorf("confidence = %f for a thick colored border", confidence)
	}
}

func TestClassifyFullArtCard(t *testing.T) {
	cardType, _ := ClassifyCard(fullArtCard())
	if cardType != CardTypeFullArt {
		t.Fatalf("borderless textured card classified as %s", cardType)
	}
}

func TestClassifyVMAXOversizedArtwork(t *testing.T) {
	card := fullArtCard()
	// Loud multi-hued artwork reaching the top of the card, inset so the
	// border bands stay unsaturated.
	for y := 36; y < 140; y++ {
		for x := 30; x < 470; x++ {
			c := color.NRGBA{200, 40, 40, 255}
			if x%2 == 0 {
				c = color.NRGBA{40, 40, 200, 255}
			}
			card.SetNRGBA(x, y, c)
		}
	}

	cardType, _ := ClassifyCard(card)
	if cardType != CardTypeVMAXVSTAR {
		t.Fatalf("oversized-artwork card classified as %s", cardType)
	}
}

func TestClassifyTrainerCard(t *testing.T) {
	cardType, _ := ClassifyCard(createCard(color.NRGBA{150, 150, 150, 255}))
	if cardType != CardTypeTrainer {
		t.Fatalf("plain borderless card classified as %s", cardType)
	}
}

func TestCardTypeFrameless(t *testing.T) {
	tests := []struct {
		cardType CardType
		want     bool
	}{
		{CardTypeStandard, false},
		{CardTypeTrainer, false},
		{CardTypeSpecial, false},
		{CardTypeUnknown, false},
		{CardTypeFullArt, true},
		{CardTypeVMAXVSTAR, true},
	}
	for _, tt := range tests {
		if got := tt.cardType.frameless(); got != tt.want {
			t.Errorf("%s.frameless() = %v, want %v", tt.cardType, got, tt.want)
		}
	}
}
