package imaging

import (
	"math"
	"sort"
)

// Standard trading card geometry. A Pokemon card measures 2.5 x 3.5 inches,
// giving the 0.714 portrait aspect ratio every detector validates against.
const (
	// CardAspectRatio is width/height of a portrait card (~0.714).
	CardAspectRatio = 2.5 / 3.5

	// CardWidth and CardHeight define the canonical corrected-card size in
	// pixels. All scoring analyzers assume this geometry.
	CardWidth  = 500
	CardHeight = 700
)

// Quad validation bounds, applied by ValidateQuad to every candidate
// regardless of which detector proposed it.
const (
	minRectangularity = 0.85 // area / bounding-box area
	minSolidity       = 0.90 // area / convex-hull area
	minAreaFraction   = 0.20 // of the whole frame
	maxAreaFraction   = 0.95
	minAspect         = 0.60 // short side / long side
	maxAspect         = 0.85
)

// Point is a 2D coordinate in pixel space. Sub-pixel positions are kept in
// float64 so corner refinement and perspective math do not truncate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a candidate card boundary: four corners ordered top-left,
// top-right, bottom-right, bottom-left.
type Quad [4]Point

// Area returns the quad's area via the shoelace formula.
func (q Quad) Area() float64 {
	return PolygonArea(q[:])
}

// Aspect returns the quad's short-side/long-side ratio, with opposing
// sides averaged to tolerate perspective skew.
func (q Quad) Aspect() float64 {
	top := math.Hypot(q[1].X-q[0].X, q[1].Y-q[0].Y)
	bottom := math.Hypot(q[2].X-q[3].X, q[2].Y-q[3].Y)
	left := math.Hypot(q[3].X-q[0].X, q[3].Y-q[0].Y)
	right := math.Hypot(q[2].X-q[1].X, q[2].Y-q[1].Y)

	w := (top + bottom) / 2
	h := (left + right) / 2
	if w <= 0 || h <= 0 {
		return 0
	}
	return math.Min(w, h) / math.Max(w, h)
}

// OrderCorners arranges four arbitrary points into TL, TR, BR, BL order.
//
// Uses the sum/difference rule: the top-left corner has the smallest x+y,
// the bottom-right the largest x+y, the top-right the smallest y-x and the
// bottom-left the largest y-x.
func OrderCorners(pts [4]Point) Quad {
	var q Quad
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)

	for _, p := range pts {
		sum := p.X + p.Y
		diff := p.Y - p.X
		if sum < minSum {
			minSum = sum
			q[0] = p
		}
		if sum > maxSum {
			maxSum = sum
			q[2] = p
		}
		if diff < minDiff {
			minDiff = diff
			q[1] = p
		}
		if diff > maxDiff {
			maxDiff = diff
			q[3] = p
		}
	}
	return q
}

// PolygonArea returns the absolute area of a closed polygon via the shoelace
// formula.
func PolygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i, p := range poly {
		next := poly[(i+1)%len(poly)]
		sum += p.X*next.Y - next.X*p.Y
	}
	return math.Abs(sum) / 2
}

// PolygonPerimeter returns the total edge length of a closed polygon.
func PolygonPerimeter(poly []Point) float64 {
	var sum float64
	for i, p := range poly {
		next := poly[(i+1)%len(poly)]
		sum += math.Hypot(next.X-p.X, next.Y-p.Y)
	}
	return sum
}

// BoundingBox returns the axis-aligned bounds of a polygon as
// (minX, minY, maxX, maxY).
func BoundingBox(poly []Point) (float64, float64, float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// ConvexHull computes the convex hull of a point set using Andrew's monotone
// chain. The result is in counter-clockwise order without the closing point.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}

	sorted := append([]Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower, upper []Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// SimplifyPolygon reduces a polygon to its dominant vertices using the
// Douglas-Peucker algorithm.
//
// Parameters:
//   - poly: Closed polygon vertices in order.
//   - epsilon: Maximum allowed perpendicular deviation in pixels. Card
//     detection uses ~2-4% of the contour perimeter.
//
// The polygon is split at its two most distant vertices and each open chain
// is simplified independently, so closed contours keep their extremes.
func SimplifyPolygon(poly []Point, epsilon float64) []Point {
	if len(poly) < 4 {
		return append([]Point(nil), poly...)
	}

	// Split the ring at its diameter so both chains are open polylines.
	ai, bi := 0, 0
	var best float64
	for i := range poly {
		for j := i + 1; j < len(poly); j++ {
			d := math.Hypot(poly[j].X-poly[i].X, poly[j].Y-poly[i].Y)
			if d > best {
				best = d
				ai, bi = i, j
			}
		}
	}

	chain1 := append([]Point(nil), poly[ai:bi+1]...)
	chain2 := append(append([]Point(nil), poly[bi:]...), poly[:ai+1]...)

	s1 := douglasPeucker(chain1, epsilon)
	s2 := douglasPeucker(chain2, epsilon)

	// Chain endpoints are shared; drop them from the second chain.
	out := append([]Point(nil), s1...)
	if len(s2) > 2 {
		out = append(out, s2[1:len(s2)-1]...)
	}
	return out
}

// douglasPeucker simplifies an open polyline, keeping both endpoints.
func douglasPeucker(pts []Point, epsilon float64) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}

	var maxDist float64
	index := 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		d := perpendicularDistance(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}

	if maxDist <= epsilon {
		return []Point{a, b}
	}

	left := douglasPeucker(pts[:index+1], epsilon)
	right := douglasPeucker(pts[index:], epsilon)
	return append(left[:len(left)-1], right...)
}

// perpendicularDistance is the distance from p to the line through a and b.
func perpendicularDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

// ValidateQuad decides whether an ordered quadrilateral is a plausible card
// boundary within a frame of the given size.
//
// All five conditions must hold:
//   - rectangularity: quad area / bounding-box area > 0.85
//   - solidity: quad area / convex-hull area > 0.90 (rejects concave quads)
//   - coverage: quad area between 20% and 95% of the frame
//   - aspect: short side / long side within [0.60, 0.85]
//   - non-degenerate: positive area
//
// Validation is idempotent: a quad that passed once always passes again.
func ValidateQuad(q Quad, frameWidth, frameHeight int) bool {
	poly := q[:]
	area := PolygonArea(poly)
	if area <= 0 {
		return false
	}

	minX, minY, maxX, maxY := BoundingBox(poly)
	boxArea := (maxX - minX) * (maxY - minY)
	if boxArea <= 0 || area/boxArea <= minRectangularity {
		return false
	}

	hull := ConvexHull(poly)
	hullArea := PolygonArea(hull)
	if hullArea <= 0 || area/hullArea <= minSolidity {
		return false
	}

	frameArea := float64(frameWidth) * float64(frameHeight)
	fraction := area / frameArea
	if fraction < minAreaFraction || fraction > maxAreaFraction {
		return false
	}

	aspect := q.Aspect()
	return aspect >= minAspect && aspect <= maxAspect
}

// QuadFromPolygon simplifies a contour to four corners and validates it.
//
// Returns the ordered quad and true on success. The simplification epsilon
// is a fraction of the contour perimeter (0.03 works well for card
// detection, mirroring the approxPolyDP convention).
func QuadFromPolygon(poly []Point, epsilonFraction float64, frameWidth, frameHeight int) (Quad, bool) {
	if len(poly) < 4 {
		return Quad{}, false
	}

	simplified := SimplifyPolygon(poly, epsilonFraction*PolygonPerimeter(poly))
	if len(simplified) != 4 {
		return Quad{}, false
	}

	q := OrderCorners([4]Point{simplified[0], simplified[1], simplified[2], simplified[3]})
	if !ValidateQuad(q, frameWidth, frameHeight) {
		return Quad{}, false
	}
	return q, true
}

// FullFrameQuad returns a quad covering the entire frame. Used by the
// pre-cropped fallback detection method.
func FullFrameQuad(width, height int) Quad {
	w := float64(width - 1)
	h := float64(height - 1)
	return Quad{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// FrameAspect returns the short/long side ratio of a frame.
func FrameAspect(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	w, h := float64(width), float64(height)
	return math.Min(w, h) / math.Max(w, h)
}
