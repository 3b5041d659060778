package imaging

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// EdgeMap performs Canny edge detection with thresholds derived from the
// image's own intensity statistics.
//
// The low/high hysteresis thresholds are set to 0.66x and 1.33x the median
// luminance of the blurred image (the common auto-Canny rule), so the
// detector adapts to dark and bright captures instead of relying on fixed
// constants. The binary result is then closed with a 3x3 structuring element
// to bridge small contour breaks.
//
// Returns a grayscale image of the input's size where edge pixels are 255
// and everything else is 0.
func EdgeMap(img image.Image) *image.Gray {
	gray := toGrayMatrix(img)
	blurred := gaussianBlur5(gray)

	med := matrixMedian(blurred)
	low := clamp01(0.66 * med)
	high := clamp01(1.33 * med)
	if high <= low {
		high = low + 0.05
	}

	edges := canny(blurred, img.Bounds(), low, high)
	return Close(edges, 1)
}

// CannyEdges performs Canny edge detection with explicit 8-bit hysteresis
// thresholds (no morphological post-processing).
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Gradient magnitudes below this (0-255) are discarded.
//   - thresholdHigh: Gradient magnitudes above this (0-255) are always kept;
//     values in between survive only when connected to a strong edge.
//
// # Algorithm
//
//  1. Grayscale conversion: RGB -> luminance using ITU-R BT.601 weights
//  2. Gaussian blur: 5x5 kernel to reduce noise
//  3. Gradient computation: Sobel operators, magnitude = sqrt(Gx² + Gy²)
//  4. Non-maximum suppression: thin edges to 1-pixel width
//  5. Hysteresis thresholding: strong / weak / discarded edges
func CannyEdges(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	gray := toGrayMatrix(img)
	blurred := gaussianBlur5(gray)
	return canny(blurred, img.Bounds(), float64(thresholdLow)/255.0, float64(thresholdHigh)/255.0)
}

// canny runs gradient computation, non-maximum suppression and hysteresis
// over a pre-blurred luminance matrix. Thresholds are normalized to [0,1].
func canny(blurred [][]float64, bounds image.Rectangle, lowThresh, highThresh float64) *image.Gray {
	height := len(blurred)
	width := 0
	if height > 0 {
		width = len(blurred[0])
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clampInt(y+ky, 0, height-1)
					px := clampInt(x+kx, 0, width-1)
					gx += blurred[py][px] * sobelX[ky+1][kx+1]
					gy += blurred[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression: keep only local maxima along the gradient.
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	result := image.NewGray(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed[y][x]
			if val >= highThresh {
				result.SetGray(x+bounds.Min.X, y+bounds.Min.Y, color.Gray{Y: 255})
			} else if val >= lowThresh {
				hasStrongNeighbor := false
				for ky := -1; ky <= 1 && !hasStrongNeighbor; ky++ {
					for kx := -1; kx <= 1 && !hasStrongNeighbor; kx++ {
						py := clampInt(y+ky, 0, height-1)
						px := clampInt(x+kx, 0, width-1)
						if suppressed[py][px] >= highThresh {
							hasStrongNeighbor = true
						}
					}
				}
				if hasStrongNeighbor {
					result.SetGray(x+bounds.Min.X, y+bounds.Min.Y, color.Gray{Y: 255})
				}
			}
		}
	}

	return result
}

// toGrayMatrix converts an image to a normalized [0,1] luminance matrix
// using ITU-R BT.601 weights.
func toGrayMatrix(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(b>>8) / 255.0
			gray[y][x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return gray
}

// gaussianBlur5 applies a 5x5 Gaussian blur (sigma ~= 1.4) to reduce noise
// before gradient computation. Border pixels use clamped edge values.
func gaussianBlur5(img [][]float64) [][]float64 {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273.0

	height := len(img)
	width := 0
	if height > 0 {
		width = len(img[0])
	}

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clampInt(y+ky, 0, height-1)
					px := clampInt(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = sum / kernelSum
		}
	}
	return result
}

// matrixMedian returns the median of a luminance matrix, sampled on a grid
// for large images to keep the sort cheap.
func matrixMedian(m [][]float64) float64 {
	height := len(m)
	if height == 0 {
		return 0
	}
	width := len(m[0])

	step := 1
	if width*height > 250000 {
		step = int(math.Sqrt(float64(width*height) / 250000.0))
		if step < 1 {
			step = 1
		}
	}

	samples := make([]float64, 0, (width/step+1)*(height/step+1))
	for y := 0; y < height; y += step {
		for x := 0; x < width; x += step {
			samples = append(samples, m[y][x])
		}
	}
	sort.Float64s(samples)
	return samples[len(samples)/2]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// clampInt constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
