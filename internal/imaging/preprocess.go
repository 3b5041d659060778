package imaging

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// CLAHE parameters matching the original tuning: 8x8 tile grid with a
// relative clip limit of 2.0.
const (
	claheTiles     = 8
	claheClipLimit = 2.0
	claheBins      = 256
)

// Enhance improves contrast and reduces noise ahead of card detection.
//
// The image is converted to CIE Lab, contrast-limited adaptive histogram
// equalization (CLAHE) is applied to the lightness channel only (so hue is
// preserved), and a mild edge-preserving bilateral filter removes sensor
// noise without softening the card boundary.
//
// Returns a new NRGBA image; the input is never modified.
func Enhance(img image.Image) *image.NRGBA {
	equalized := claheOnLightness(img)
	return bilateralFilter(equalized, 3, 2.0, 0.08)
}

// claheOnLightness runs tile-based CLAHE over the Lab L channel.
//
// Each tile gets a clipped, equalized histogram mapping; per-pixel mappings
// are bilinearly interpolated between the four surrounding tile centers to
// avoid visible tile seams.
func claheOnLightness(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Lightness in [0,1] plus the chroma we need to reassemble the pixel.
	lum := make([]float64, width*height)
	aCh := make([]float64, width*height)
	bCh := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l, a, b := pixelColor(img, x+bounds.Min.X, y+bounds.Min.Y).Lab()
			i := y*width + x
			lum[i] = clamp01(l)
			aCh[i] = a
			bCh[i] = b
		}
	}

	tileW := (width + claheTiles - 1) / claheTiles
	tileH := (height + claheTiles - 1) / claheTiles

	// Per-tile clipped cumulative mappings.
	mappings := make([][claheBins]float64, claheTiles*claheTiles)
	for ty := 0; ty < claheTiles; ty++ {
		for tx := 0; tx < claheTiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, width), minInt(y0+tileH, height)

			var hist [claheBins]float64
			count := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					bin := int(lum[y*width+x] * (claheBins - 1))
					hist[bin]++
					count++
				}
			}
			if count == 0 {
				continue
			}

			// Clip the histogram and redistribute the excess uniformly.
			clip := claheClipLimit * float64(count) / claheBins
			var excess float64
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			redistribute := excess / claheBins
			for i := range hist {
				hist[i] += redistribute
			}

			// Cumulative distribution -> [0,1] mapping.
			m := &mappings[ty*claheTiles+tx]
			var cum float64
			for i := 0; i < claheBins; i++ {
				cum += hist[i]
				m[i] = cum / float64(count)
			}
		}
	}

	out := image.NewNRGBA(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			bin := int(lum[i] * (claheBins - 1))

			// Bilinear interpolation between the four nearest tile centers.
			fx := (float64(x) - float64(tileW)/2) / float64(tileW)
			fy := (float64(y) - float64(tileH)/2) / float64(tileH)
			tx0 := clampInt(int(math.Floor(fx)), 0, claheTiles-1)
			ty0 := clampInt(int(math.Floor(fy)), 0, claheTiles-1)
			tx1 := clampInt(tx0+1, 0, claheTiles-1)
			ty1 := clampInt(ty0+1, 0, claheTiles-1)
			wx := clamp01(fx - float64(tx0))
			wy := clamp01(fy - float64(ty0))

			v00 := mappings[ty0*claheTiles+tx0][bin]
			v10 := mappings[ty0*claheTiles+tx1][bin]
			v01 := mappings[ty1*claheTiles+tx0][bin]
			v11 := mappings[ty1*claheTiles+tx1][bin]
			newL := (1-wy)*((1-wx)*v00+wx*v10) + wy*((1-wx)*v01+wx*v11)

			c := colorful.Lab(newL, aCh[i], bCh[i]).Clamped()
			out.SetNRGBA(x+bounds.Min.X, y+bounds.Min.Y, color.NRGBA{
				R: uint8(c.R*255 + 0.5),
				G: uint8(c.G*255 + 0.5),
				B: uint8(c.B*255 + 0.5),
				A: 255,
			})
		}
	}
	return out
}

// bilateralFilter applies an edge-preserving smoothing filter.
//
// Each output pixel is a weighted average of its neighborhood where weights
// fall off with both spatial distance (sigmaSpace, in pixels) and color
// difference (sigmaColor, in normalized RGB distance). Pixels across a
// strong edge contribute almost nothing, so card boundaries stay crisp
// while flat regions are denoised.
func bilateralFilter(img *image.NRGBA, radius int, sigmaSpace, sigmaColor float64) *image.NRGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewNRGBA(bounds)

	// Precompute the spatial kernel.
	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}

	colorDenom := 2 * sigmaColor * sigmaColor

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.NRGBAAt(x+bounds.Min.X, y+bounds.Min.Y)
			cr := float64(c.R) / 255
			cg := float64(c.G) / 255
			cb := float64(c.B) / 255

			var wSum, rSum, gSum, bSum float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					px := clampInt(x+dx, 0, width-1)
					py := clampInt(y+dy, 0, height-1)
					n := img.NRGBAAt(px+bounds.Min.X, py+bounds.Min.Y)
					nr := float64(n.R) / 255
					ng := float64(n.G) / 255
					nb := float64(n.B) / 255

					dr := nr - cr
					dg := ng - cg
					db := nb - cb
					colorDist := dr*dr + dg*dg + db*db

					w := spatial[(dy+radius)*size+(dx+radius)] * math.Exp(-colorDist/colorDenom)
					wSum += w
					rSum += nr * w
					gSum += ng * w
					bSum += nb * w
				}
			}

			out.SetNRGBA(x+bounds.Min.X, y+bounds.Min.Y, color.NRGBA{
				R: uint8(rSum/wSum*255 + 0.5),
				G: uint8(gSum/wSum*255 + 0.5),
				B: uint8(bSum/wSum*255 + 0.5),
				A: c.A,
			})
		}
	}
	return out
}

// EnhanceGray applies CLAHE to a grayscale view of the image and returns
// the result as a grayscale image. The surface analyzer uses this to make
// faint scratches visible before edge detection.
func EnhanceGray(img image.Image) *image.Gray {
	enhanced := claheOnLightness(img)
	bounds := enhanced.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := enhanced.NRGBAAt(x, y)
			lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			out.SetGray(x, y, grayColor(uint8(lum + 0.5)))
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
