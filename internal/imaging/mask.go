package imaging

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func grayColor(v uint8) color.Gray {
	return color.Gray{Y: v}
}

// pixelColor converts a pixel to a colorful.Color for perceptual analysis.
func pixelColor(img image.Image, x, y int) colorful.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return colorful.Color{
		R: float64(r>>8) / 255.0,
		G: float64(g>>8) / 255.0,
		B: float64(b>>8) / 255.0,
	}
}

// Lightness returns the CIE Lab lightness (L*, range [0,100]) of a pixel.
// Lab separates lightness from chroma, which makes it the right space for
// whitening detection: worn card stock reads as high L* regardless of the
// surrounding ink color.
func Lightness(img image.Image, x, y int) float64 {
	l, _, _ := pixelColor(img, x, y).Lab()
	return l * 100
}

// LabAt returns the full CIE Lab coordinates (L* in [0,100], a*/b* roughly
// [-100,100]) of a pixel.
func LabAt(img image.Image, x, y int) (float64, float64, float64) {
	l, a, b := pixelColor(img, x, y).Lab()
	return l * 100, a * 100, b * 100
}

// HSVAt returns hue (degrees, [0,360)), saturation and value (both [0,1])
// of a pixel.
func HSVAt(img image.Image, x, y int) (float64, float64, float64) {
	return pixelColor(img, x, y).Hsv()
}

// WhiteMask marks pixels that are plausibly exposed white card stock:
// low saturation with high value (HSV S <= 0.16, V >= 0.71, matching the
// classic inRange([0,0,180],[180,40,255]) white detector).
func WhiteMask(img image.Image) *image.Gray {
	return hsvMask(img, func(_, s, v float64) bool {
		return s <= 40.0/255.0 && v >= 180.0/255.0
	})
}

// GlareMask marks specular highlight pixels: nearly colorless and close to
// full brightness (HSV S <= 0.12, V >= 0.90).
func GlareMask(img image.Image) *image.Gray {
	return hsvMask(img, func(_, s, v float64) bool {
		return s <= 30.0/255.0 && v >= 230.0/255.0
	})
}

// BlueMask marks pixels within the blue hue band of a Pokemon card border
// or card back. The band is broad (roughly hue 180-280 degrees) with
// minimum saturation and value floors to exclude gray and near-black.
func BlueMask(img image.Image) *image.Gray {
	return hsvMask(img, func(h, s, v float64) bool {
		return h >= 180 && h <= 280 && s >= 40.0/255.0 && v >= 20.0/255.0
	})
}

// LightnessMask marks pixels whose Lab lightness exceeds the given
// threshold (L* scale, [0,100]).
func LightnessMask(img image.Image, threshold float64) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if Lightness(img, x, y) > threshold {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}

// DarkMask marks pixels darker than the given 8-bit luminance threshold.
// Creases and dents cast shadows; large contiguous dark regions are the
// major-damage signal for surface analysis.
func DarkMask(img image.Image, threshold uint8) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if lum < float64(threshold) {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}

func hsvMask(img image.Image, keep func(h, s, v float64) bool) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			h, s, v := HSVAt(img, x, y)
			if keep(h, s, v) {
				out.SetGray(x, y, grayColor(255))
			}
		}
	}
	return out
}
