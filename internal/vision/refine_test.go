package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
)

func TestSnapToEdge(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 100, 100))
	edges.SetGray(50, 50, color.Gray{Y: 255})
	edges.SetGray(80, 20, color.Gray{Y: 255})

	// Within radius: snaps to the nearest edge pixel.
	got, ok := snapToEdge(edges, imaging.Point{X: 45, Y: 47}, 30)
	if !ok {
		t.Fatal("no edge found within radius")
	}
	if got.X != 50 || got.Y != 50 {
		t.Errorf("snapped to (%.0f,%.0f), want (50,50)", got.X, got.Y)
	}

	// Outside radius: no snap.
	if _, ok := snapToEdge(edges, imaging.Point{X: 5, Y: 95}, 10); ok {
		t.Error("snapped despite no edge within radius")
	}
}

func TestRefineResultSnapsAndBoosts(t *testing.T) {
	// A scene whose card boundary produces strong edges, with the
	// reported corners deliberately offset a few pixels inward.
	scene := image.NewNRGBA(image.Rect(0, 0, 200, 280))
	cardRect := image.Rect(20, 28, 180, 252)
	for y := 0; y < 280; y++ {
		for x := 0; x < 200; x++ {
			if image.Pt(x, y).In(cardRect) {
				scene.SetNRGBA(x, y, color.NRGBA{230, 230, 230, 255})
			} else {
				scene.SetNRGBA(x, y, color.NRGBA{10, 10, 10, 255})
			}
		}
	}

	rough := imaging.Quad{{X: 26, Y: 34}, {X: 174, Y: 33}, {X: 175, Y: 247}, {X: 25, Y: 246}}
	in := detection.Result{Quad: &rough, Confidence: 0.80, Method: detection.MethodSlowAI}

	out := refineResult(in, scene)

	if out.Method != detection.MethodSlowAIRefined {
		t.Fatalf("method = %s, want %s", out.Method, detection.MethodSlowAIRefined)
	}
	if out.Confidence <= in.Confidence {
		t.Errorf("confidence %.2f not boosted above %.2f", out.Confidence, in.Confidence)
	}
	if out.Confidence > 1.0 {
		t.Errorf("confidence %.2f exceeds 1.0", out.Confidence)
	}

	// Every corner must have moved toward the true boundary.
	truth := imaging.Quad{{X: 20, Y: 28}, {X: 179, Y: 28}, {X: 179, Y: 251}, {X: 20, Y: 251}}
	for i := range out.Quad {
		before := dist((*in.Quad)[i], truth[i])
		after := dist((*out.Quad)[i], truth[i])
		if after > before {
			t.Errorf("corner %d moved away from the boundary: %.1f -> %.1f", i, before, after)
		}
	}
}

func TestRefineResultConfidenceCap(t *testing.T) {
	scene := image.NewNRGBA(image.Rect(0, 0, 200, 280))
	cardRect := image.Rect(20, 28, 180, 252)
	for y := 0; y < 280; y++ {
		for x := 0; x < 200; x++ {
			if image.Pt(x, y).In(cardRect) {
				scene.SetNRGBA(x, y, color.NRGBA{230, 230, 230, 255})
			} else {
				scene.SetNRGBA(x, y, color.NRGBA{10, 10, 10, 255})
			}
		}
	}

	rough := imaging.Quad{{X: 22, Y: 30}, {X: 177, Y: 30}, {X: 177, Y: 249}, {X: 22, Y: 249}}
	in := detection.Result{Quad: &rough, Confidence: 0.98, Method: detection.MethodSlowAI}

	out := refineResult(in, scene)
	if out.Confidence != 1.0 {
		t.Errorf("confidence = %f, want capped at 1.0", out.Confidence)
	}
}

func dist(a, b imaging.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
