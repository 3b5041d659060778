package scoring

import (
	"image"
	"image/color"
	"testing"
)

func TestSurfaceCleanCard(t *testing.T) {
	sub, err := SurfaceAnalyzer{}.Analyze(createCard(cardBlue))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sub.Score != 10.0 {
		t.Errorf("clean card surface score = %f, want 10.0", sub.Score)
	}
	if sub.Metrics["scratch_count"] != 0 {
		t.Errorf("scratches found on a clean card: %+v", sub.Metrics)
	}
	if sub.Metrics["major_damage_regions"] != 0 {
		t.Errorf("damage found on a clean card: %+v", sub.Metrics)
	}
}

func TestSurfaceScratchesLowerScore(t *testing.T) {
	card := createCard(cardBlue)
	// Three thick dark scratches across the card face.
	black := color.NRGBA{0, 0, 0, 255}
	fillRect(card, image.Rect(100, 200, 160, 203), black)
	fillRect(card, image.Rect(250, 350, 320, 353), black)
	fillRect(card, image.Rect(150, 500, 200, 503), black)

	sub, err := SurfaceAnalyzer{}.Analyze(card)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	count := sub.Metrics["scratch_count"]
	if count < 3 {
		t.Fatalf("scratch_count = %f, want at least 3", count)
	}
	if sub.Score >= 10.0 {
		t.Errorf("scratched surface still scored %f", sub.Score)
	}
	if sub.Score < 8.0 {
		t.Errorf("a few scratches dropped the score too far: %f", sub.Score)
	}
	if sub.Metrics["major_damage_regions"] != 0 {
		t.Errorf("thin scratches misread as major damage: %+v", sub.Metrics)
	}
}

func TestSurfaceMajorDamageCapsScore(t *testing.T) {
	card := createCard(cardBlue)
	// A 30x30 near-black blotch: a dent or ink stain, well above the
	// damage area threshold.
	fillRect(card, image.Rect(200, 300, 230, 330), color.NRGBA{5, 5, 5, 255})

	sub, err := SurfaceAnalyzer{}.Analyze(card)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if sub.Metrics["major_damage_regions"] < 1 {
		t.Fatalf("damage region not detected: %+v", sub.Metrics)
	}
	if sub.Score > 7.0 {
		t.Errorf("score %f not capped at 7.0 despite major damage", sub.Score)
	}
}

func TestSurfaceGlareExcluded(t *testing.T) {
	card := createCard(cardBlue)
	// A broad specular highlight: bright, desaturated, full of internal
	// edges once enhanced. None of it may count as scratches.
	fillRect(card, image.Rect(150, 250, 350, 450), color.NRGBA{252, 252, 252, 255})

	sub, err := SurfaceAnalyzer{}.Analyze(card)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if sub.Metrics["excluded_area_percent"] <= 0 {
		t.Fatal("glare region not excluded")
	}
	if sub.Confidence >= 1.0 {
		t.Errorf("confidence not reduced for a partially excluded card: %f", sub.Confidence)
	}
}

func TestLightnessVarianceMask(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{100, 100, 100, 255})
		}
	}
	// Checkerboard block: high local variance, like holographic foil.
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{240, 240, 240, 255})
			}
		}
	}

	mask := lightnessVarianceMask(img, 200)
	if mask.GrayAt(20, 20).Y != 255 {
		t.Error("checkerboard center not marked as high variance")
	}
	if mask.GrayAt(3, 3).Y != 0 {
		t.Error("flat region marked as high variance")
	}
}
