package detection

import (
	"image"

	"github.com/bagel786/pregrader/internal/imaging"
)

// Contour is a connected component of set mask pixels.
type Contour []imaging.Point

// FindContours finds connected components in a binary mask.
//
// Uses iterative flood-fill with 8-connectivity to group set pixels
// (value >= 128). Components smaller than minSize pixels are discarded as
// noise. The returned point sets are unordered; callers that need a corner
// polygon take the convex hull (card boundaries are convex, so nothing is
// lost).
func FindContours(mask *image.Gray, minSize int) []Contour {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	visited := make([]bool, width*height)
	isSet := func(x, y int) bool {
		return mask.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y >= 128
	}

	var contours []Contour
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !isSet(x, y) || visited[y*width+x] {
				continue
			}
			contour := floodFill(isSet, visited, x, y, width, height)
			if len(contour) >= minSize {
				contours = append(contours, contour)
			}
		}
	}
	return contours
}

// floodFill collects one 8-connected component starting from (startX,
// startY). Stack-based rather than recursive so large components cannot
// overflow the goroutine stack.
func floodFill(isSet func(x, y int) bool, visited []bool, startX, startY, width, height int) Contour {
	type ipoint struct{ x, y int }
	stack := []ipoint{{startX, startY}}
	var contour Contour

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		if visited[p.y*width+p.x] || !isSet(p.x, p.y) {
			continue
		}

		visited[p.y*width+p.x] = true
		contour = append(contour, imaging.Point{X: float64(p.x), Y: float64(p.y)})

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, ipoint{p.x + dx, p.y + dy})
			}
		}
	}
	return contour
}

// LargestContour returns the contour with the largest convex-hull area, or
// nil when the slice is empty.
func LargestContour(contours []Contour) Contour {
	var best Contour
	var bestArea float64
	for _, c := range contours {
		area := imaging.PolygonArea(imaging.ConvexHull(c))
		if area > bestArea {
			bestArea = area
			best = c
		}
	}
	return best
}
