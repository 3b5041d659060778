package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

// createQuadrantImage builds a test image split into four solid-color
// quadrants so warped pixels can be traced back to their source region.
func createQuadrantImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	colors := [4]color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 0
			if x >= w/2 {
				i = 1
			}
			if y >= h/2 {
				i += 2
			}
			img.SetNRGBA(x, y, colors[i])
		}
	}
	return img
}

func TestComputeHomographyMapsCorners(t *testing.T) {
	src := Quad{{10, 20}, {410, 30}, {420, 630}, {5, 620}}
	dst := Quad{{0, 0}, {499, 0}, {499, 699}, {0, 699}}

	h, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}

	for i := range src {
		got := h.Apply(src[i])
		if !almostEqual(got.X, dst[i].X, 0.001) || !almostEqual(got.Y, dst[i].Y, 0.001) {
			t.Errorf("corner %d: mapped to (%f,%f), want (%f,%f)", i, got.X, got.Y, dst[i].X, dst[i].Y)
		}
	}
}

func TestComputeHomographyIdentity(t *testing.T) {
	q := Quad{{0, 0}, {499, 0}, {499, 699}, {0, 699}}
	h, err := ComputeHomography(q, q)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}

	p := h.Apply(Point{123, 456})
	if !almostEqual(p.X, 123, 0.001) || !almostEqual(p.Y, 456, 0.001) {
		t.Errorf("identity mapped (123,456) to (%f,%f)", p.X, p.Y)
	}
}

func TestComputeHomographyDegenerate(t *testing.T) {
	degenerate := Quad{{100, 100}, {100, 100}, {100, 100}, {100, 100}}
	dst := FullFrameQuad(500, 700)

	if _, err := ComputeHomography(degenerate, dst); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
}

func TestCorrectCanonicalSize(t *testing.T) {
	src := createQuadrantImage(200, 280)
	quad := FullFrameQuad(200, 280)

	out, err := Correct(src, quad)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if out.Bounds().Dx() != CardWidth || out.Bounds().Dy() != CardHeight {
		t.Fatalf("output is %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), CardWidth, CardHeight)
	}

	// Quadrant colors must land in the matching output quadrants.
	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{50, 50, color.NRGBA{255, 0, 0, 255}},
		{450, 50, color.NRGBA{0, 255, 0, 255}},
		{50, 650, color.NRGBA{0, 0, 255, 255}},
		{450, 650, color.NRGBA{255, 255, 0, 255}},
	}
	for _, c := range checks {
		if got := out.NRGBAAt(c.x, c.y); got != c.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestCorrectDeterministic(t *testing.T) {
	src := createQuadrantImage(300, 420)
	quad := Quad{{10, 15}, {290, 10}, {295, 410}, {5, 405}}

	first, err := Correct(src, quad)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	second, err := Correct(src, quad)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical inputs produced different corrected images")
	}
}
