package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform in row-major order.
type Homography [9]float64

// Apply maps a point through the homography.
func (h Homography) Apply(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// ComputeHomography solves for the projective transform mapping each src[i]
// to dst[i].
//
// The eight unknowns of H (with h33 fixed to 1) are found by solving the
// standard 8x8 linear system built from the four point correspondences.
// Returns ErrDegenerateGeometry when the system is singular, which happens
// exactly when three or more of the source points are (near-)collinear.
func ComputeHomography(src, dst Quad) (Homography, error) {
	// Reject visibly degenerate quads before touching the solver: a card
	// boundary with near-zero area can't produce a usable warp even if the
	// system happens to be numerically solvable.
	if PolygonArea(src[:]) < 1.0 {
		return Homography{}, fmt.Errorf("%w: quad area %.2f", ErrDegenerateGeometry, PolygonArea(src[:]))
	}

	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y

		a.SetRow(2*i, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		a.SetRow(2*i+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(2*i, dx)
		b.SetVec(2*i+1, dy)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = x.AtVec(i)
	}
	h[8] = 1
	return h, nil
}

// Correct warps the region bounded by quad to the canonical card rectangle
// (CardWidth x CardHeight).
//
// The homography is computed from canonical corners back to the source quad
// (inverse mapping), and every destination pixel samples the source image
// with bilinear interpolation. Correct is a pure function: the same image
// and quad always produce a bit-identical result.
//
// Returns ErrDegenerateGeometry if the quad cannot support a projective
// transform.
func Correct(img image.Image, quad Quad) (*image.NRGBA, error) {
	return CorrectTo(img, quad, CardWidth, CardHeight)
}

// CorrectTo is Correct with an explicit output size.
func CorrectTo(img image.Image, quad Quad, outWidth, outHeight int) (*image.NRGBA, error) {
	dst := Quad{
		{0, 0},
		{float64(outWidth - 1), 0},
		{float64(outWidth - 1), float64(outHeight - 1)},
		{0, float64(outHeight - 1)},
	}

	// Inverse mapping: canonical -> source, so each output pixel has exactly
	// one sample location.
	h, err := ComputeHomography(dst, quad)
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(image.Rect(0, 0, outWidth, outHeight))
	for y := 0; y < outHeight; y++ {
		for x := 0; x < outWidth; x++ {
			srcPt := h.Apply(Point{X: float64(x), Y: float64(y)})
			out.SetNRGBA(x, y, sampleBilinear(img, srcPt.X, srcPt.Y))
		}
	}
	return out, nil
}

// sampleBilinear reads a sub-pixel location with bilinear interpolation,
// clamping to the image bounds.
func sampleBilinear(img image.Image, fx, fy float64) color.NRGBA {
	bounds := img.Bounds()

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	wx := fx - float64(x0)
	wy := fy - float64(y0)

	get := func(x, y int) (float64, float64, float64, float64) {
		x = clampInt(x, bounds.Min.X, bounds.Max.X-1)
		y = clampInt(y, bounds.Min.Y, bounds.Max.Y-1)
		r, g, b, a := img.At(x, y).RGBA()
		return float64(r >> 8), float64(g >> 8), float64(b >> 8), float64(a >> 8)
	}

	r00, g00, b00, a00 := get(x0, y0)
	r10, g10, b10, a10 := get(x0+1, y0)
	r01, g01, b01, a01 := get(x0, y0+1)
	r11, g11, b11, a11 := get(x0+1, y0+1)

	lerp2 := func(v00, v10, v01, v11 float64) uint8 {
		top := v00*(1-wx) + v10*wx
		bot := v01*(1-wx) + v11*wx
		return uint8(top*(1-wy) + bot*wy + 0.5)
	}

	return color.NRGBA{
		R: lerp2(r00, r10, r01, r11),
		G: lerp2(g00, g10, g01, g11),
		B: lerp2(b00, b10, b01, b11),
		A: lerp2(a00, a10, a01, a11),
	}
}
