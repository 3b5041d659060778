package imaging

import (
	"image"
)

// Binary morphology on grayscale masks. A pixel is treated as set when its
// value is >= 128; results are strictly 0 or 255.

// Dilate grows set regions by the given radius using a square structuring
// element of size (2*radius+1).
func Dilate(mask *image.Gray, radius int) *image.Gray {
	return morph(mask, radius, true)
}

// Erode shrinks set regions by the given radius using a square structuring
// element of size (2*radius+1).
func Erode(mask *image.Gray, radius int) *image.Gray {
	return morph(mask, radius, false)
}

// Close performs dilation followed by erosion, bridging gaps smaller than
// the structuring element. Used after edge detection to reconnect broken
// contours.
func Close(mask *image.Gray, radius int) *image.Gray {
	return Erode(Dilate(mask, radius), radius)
}

// Open performs erosion followed by dilation, removing speckles smaller
// than the structuring element.
func Open(mask *image.Gray, radius int) *image.Gray {
	return Dilate(Erode(mask, radius), radius)
}

// DilateRect dilates with a rectangular structuring element of the given
// half-extents. A (0, 2) element grows regions vertically only; scratch
// detection uses this to isolate near-vertical and near-horizontal line
// structures.
func DilateRect(mask *image.Gray, halfW, halfH int) *image.Gray {
	return morphRect(mask, halfW, halfH, true)
}

// ErodeRect erodes with a rectangular structuring element of the given
// half-extents.
func ErodeRect(mask *image.Gray, halfW, halfH int) *image.Gray {
	return morphRect(mask, halfW, halfH, false)
}

// OpenRect performs a rectangular open (erode then dilate). An open with a
// tall thin element keeps only structures that are themselves tall and thin.
func OpenRect(mask *image.Gray, halfW, halfH int) *image.Gray {
	return DilateRect(ErodeRect(mask, halfW, halfH), halfW, halfH)
}

func morph(mask *image.Gray, radius int, dilate bool) *image.Gray {
	return morphRect(mask, radius, radius, dilate)
}

func morphRect(mask *image.Gray, halfW, halfH int, dilate bool) *image.Gray {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(bounds)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			hit := false
			miss := false
			for ky := -halfH; ky <= halfH && !(hit && miss); ky++ {
				for kx := -halfW; kx <= halfW; kx++ {
					py := clampInt(y+ky, 0, height-1)
					px := clampInt(x+kx, 0, width-1)
					if mask.GrayAt(px+bounds.Min.X, py+bounds.Min.Y).Y >= 128 {
						hit = true
					} else {
						miss = true
					}
				}
			}

			var v uint8
			if dilate {
				if hit {
					v = 255
				}
			} else {
				if hit && !miss {
					v = 255
				}
			}
			out.SetGray(x+bounds.Min.X, y+bounds.Min.Y, grayColor(v))
		}
	}
	return out
}

// And intersects two masks of identical bounds.
func And(a, b *image.Gray) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.GrayAt(x, y).Y >= 128 && b.GrayAt(x, y).Y >= 128 {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}

// Or unions two masks of identical bounds.
func Or(a, b *image.Gray) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.GrayAt(x, y).Y >= 128 || b.GrayAt(x, y).Y >= 128 {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}

// AndNot keeps pixels set in a but not in b.
func AndNot(a, b *image.Gray) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.GrayAt(x, y).Y >= 128 && b.GrayAt(x, y).Y < 128 {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}

// CountSet returns the number of set pixels in a mask.
func CountSet(mask *image.Gray) int {
	bounds := mask.Bounds()
	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mask.GrayAt(x, y).Y >= 128 {
				count++
			}
		}
	}
	return count
}
