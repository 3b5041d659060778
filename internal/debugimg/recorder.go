// Package debugimg captures intermediate pipeline images for diagnosis.
//
// A Recorder is created per grading session. When disabled every call is a
// cheap no-op, so pipeline code records unconditionally and the toggle
// lives in configuration. Artifacts are numbered PNGs under a session
// directory, in pipeline order, so a failed detection can be replayed
// stage by stage.
package debugimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bagel786/pregrader/internal/imaging"
)

// Recorder writes intermediate images for one grading session.
type Recorder struct {
	sessionID string
	dir       string
	enabled   bool
	logger    *log.Logger

	mu  sync.Mutex
	seq int
}

// Disabled returns a recorder whose every method is a no-op.
func Disabled() *Recorder {
	return &Recorder{}
}

// New creates a recorder storing artifacts under baseDir/sessionID. An
// empty sessionID gets a timestamp-based one. Returns a disabled recorder
// and an error when the directory cannot be created.
func New(baseDir, sessionID string, logger *log.Logger) (*Recorder, error) {
	if sessionID == "" {
		sessionID = time.Now().UTC().Format("20060102-150405.000000")
	}
	dir := filepath.Join(baseDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Disabled(), fmt.Errorf("debugimg: create session dir: %w", err)
	}
	return &Recorder{
		sessionID: sessionID,
		dir:       dir,
		enabled:   true,
		logger:    logger,
	}, nil
}

// SessionID returns the session identifier, empty for disabled recorders.
func (r *Recorder) SessionID() string { return r.sessionID }

// Dir returns the artifact directory, empty for disabled recorders.
func (r *Recorder) Dir() string { return r.dir }

// Save writes img as the next numbered PNG artifact. Failures are logged
// and swallowed: diagnostics must never fail a grading request.
func (r *Recorder) Save(stage string, img image.Image) {
	if !r.enabled || img == nil {
		return
	}

	r.mu.Lock()
	r.seq++
	name := fmt.Sprintf("%02d_%s.png", r.seq, stage)
	r.mu.Unlock()

	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		r.logf("debugimg: create %s: %v", path, err)
		return
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		r.logf("debugimg: encode %s: %v", path, err)
	}
}

// SaveQuad writes img with quad drawn over it in green, the standard
// artifact for inspecting a detection result.
func (r *Recorder) SaveQuad(stage string, img image.Image, quad imaging.Quad) {
	if !r.enabled || img == nil {
		return
	}
	overlay := cloneNRGBA(img)
	lineColor := color.NRGBA{R: 0, G: 220, B: 60, A: 255}
	for i := 0; i < 4; i++ {
		drawLine(overlay, quad[i], quad[(i+1)%4], lineColor)
	}
	r.Save(stage, overlay)
}

func (r *Recorder) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

func cloneNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}

// drawLine rasterizes a 2px segment by stepping along its length.
func drawLine(dst *image.NRGBA, a, b imaging.Point, c color.NRGBA) {
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	steps := int(length) + 1
	bounds := dst.Bounds()

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + t*(b.X-a.X)))
		y := int(math.Round(a.Y + t*(b.Y-a.Y)))
		for dy := 0; dy <= 1; dy++ {
			for dx := 0; dx <= 1; dx++ {
				p := image.Pt(x+dx, y+dy)
				if p.In(bounds) {
					dst.SetNRGBA(p.X, p.Y, c)
				}
			}
		}
	}
}
