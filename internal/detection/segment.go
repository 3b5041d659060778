package detection

import (
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/bagel786/pregrader/internal/imaging"
)

// Segmentation runs on a thumbnail so k-means stays cheap regardless of the
// source resolution. The resulting mask is scaled back up before contour
// extraction.
const segmentMaxDim = 200

const (
	segmentClusters   = 3
	segmentIterations = 12
)

// detectBySegmentation is method B: cluster pixel colors in Lab space,
// pick the cluster that looks least like background, and fit a quad to the
// largest connected component of that cluster.
//
// Three clusters cover the common cases: background, card frame and card
// artwork. The background cluster is identified as the one owning the most
// border pixels; the remaining clusters form the foreground mask.
func (d *FastDetector) detectBySegmentation(img image.Image) (imaging.Quad, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 8 || h < 8 {
		return imaging.Quad{}, false
	}

	// Downsample by integer stride. Nearest-neighbor is fine for clustering.
	stride := 1
	for (w+stride-1)/stride > segmentMaxDim || (h+stride-1)/stride > segmentMaxDim {
		stride++
	}
	sw := (w + stride - 1) / stride
	sh := (h + stride - 1) / stride

	labs := make([][3]float64, sw*sh)
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			c, _ := colorful.MakeColor(img.At(bounds.Min.X+sx*stride, bounds.Min.Y+sy*stride))
			l, a, b := c.Lab()
			labs[sy*sw+sx] = [3]float64{l, a, b}
		}
	}

	assignments := kmeansLab(labs, segmentClusters, segmentIterations)
	background := borderCluster(assignments, sw, sh, segmentClusters)

	// Foreground mask at thumbnail resolution, then upscaled.
	small := image.NewGray(image.Rect(0, 0, sw, sh))
	for i, cluster := range assignments {
		if cluster != background {
			small.Pix[i] = 255
		}
	}
	mask := upscaleMask(small, w, h, stride)
	mask = imaging.Close(mask, 2)

	contour := LargestContour(FindContours(mask, (w+h)/4))
	if contour == nil {
		return imaging.Quad{}, false
	}
	hull := imaging.ConvexHull(contour)
	return imaging.QuadFromPolygon(hull, simplifyEpsilonFraction, w, h)
}

// kmeansLab clusters Lab samples with deterministic initialization: initial
// centroids are evenly spaced along the lightness-sorted sample order, so
// repeated runs over the same image always converge identically.
func kmeansLab(samples [][3]float64, k, iterations int) []int {
	n := len(samples)
	assignments := make([]int, n)
	if n == 0 {
		return assignments
	}

	// Order sample indices by L without disturbing the sample slice.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return samples[order[i]][0] < samples[order[j]][0]
	})

	centroids := make([][3]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = samples[order[(2*c+1)*n/(2*k)]]
	}

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, s := range samples {
			best, bestDist := 0, labDistSq(s, centroids[0])
			for c := 1; c < k; c++ {
				if d := labDistSq(s, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		var sums [segmentClusters][3]float64
		var counts [segmentClusters]int
		for i, s := range samples {
			c := assignments[i]
			sums[c][0] += s[0]
			sums[c][1] += s[1]
			sums[c][2] += s[2]
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				centroids[c][0] = sums[c][0] / float64(counts[c])
				centroids[c][1] = sums[c][1] / float64(counts[c])
				centroids[c][2] = sums[c][2] / float64(counts[c])
			}
		}
	}
	return assignments
}

func labDistSq(a, b [3]float64) float64 {
	dl := a[0] - b[0]
	da := a[1] - b[1]
	db := a[2] - b[2]
	return dl*dl + da*da + db*db
}

// borderCluster returns the cluster owning the most pixels on the image
// border, which in a card photo is almost always the background.
func borderCluster(assignments []int, w, h, k int) int {
	counts := make([]int, k)
	for x := 0; x < w; x++ {
		counts[assignments[x]]++
		counts[assignments[(h-1)*w+x]]++
	}
	for y := 1; y < h-1; y++ {
		counts[assignments[y*w]]++
		counts[assignments[y*w+w-1]]++
	}

	best := 0
	for c := 1; c < k; c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// upscaleMask expands a strided thumbnail mask back to full resolution.
func upscaleMask(small *image.Gray, w, h, stride int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	sw := small.Bounds().Dx()
	sh := small.Bounds().Dy()
	for y := 0; y < h; y++ {
		sy := y / stride
		if sy >= sh {
			sy = sh - 1
		}
		for x := 0; x < w; x++ {
			sx := x / stride
			if sx >= sw {
				sx = sw - 1
			}
			out.Pix[out.PixOffset(x, y)] = small.Pix[small.PixOffset(sx, sy)]
		}
	}
	return out
}
