// Package grader wires the full pipeline: decode, detect, correct, score.
package grader

import (
	"context"
	"fmt"
	"log"

	"github.com/bagel786/pregrader/internal/config"
	"github.com/bagel786/pregrader/internal/debugimg"
	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
	"github.com/bagel786/pregrader/internal/scoring"
	"github.com/bagel786/pregrader/internal/vision"
)

// CardReport is the grading verdict for one card face plus the detection
// details that produced it.
type CardReport struct {
	scoring.Report

	// DetectionMethod names the strategy that located the card.
	DetectionMethod detection.Method `json:"detection_method"`

	// DetectionConfidence is the detector's own confidence in the boundary.
	DetectionConfidence float64 `json:"detection_confidence"`

	// Quality carries capture-quality flags: the vision service's when the
	// slow path ran, otherwise measured locally from the photo.
	Quality *detection.QualityAssessment `json:"quality,omitempty"`

	// DebugSession is the debug artifact session ID when capture was on.
	DebugSession string `json:"debug_session,omitempty"`
}

// BothSidesReport grades front and back together. The combined grade is
// the lower of the two overall grades, since the worse face bounds the
// card's condition.
type BothSidesReport struct {
	Front    *CardReport `json:"front"`
	Back     *CardReport `json:"back"`
	Combined float64     `json:"combined,omitempty"`
	Grade    string      `json:"grade,omitempty"`
}

// Grader is the assembled pipeline. Construct with New; safe for
// concurrent use.
type Grader struct {
	cfg          config.Config
	orchestrator *detection.Orchestrator
	engine       *scoring.Engine
	logger       *log.Logger
}

// New assembles a grader from configuration. The slow detection path is
// wired only when a vision API key is present.
func New(cfg config.Config, logger *log.Logger) (*Grader, error) {
	var slow detection.SlowDetector
	if cfg.VisionAPIKey != "" {
		opts := []vision.Option{vision.WithLogger(logger)}
		if cfg.VisionEndpoint != "" {
			opts = append(opts, vision.WithEndpoint(cfg.VisionEndpoint))
		}
		if cfg.VisionModel != "" {
			opts = append(opts, vision.WithModel(cfg.VisionModel))
		}
		client, err := vision.NewClient(cfg.VisionAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("grader: vision client: %w", err)
		}
		slow = client
	}

	orch := detection.NewOrchestrator(detection.NewFastDetector(), slow)
	orch.Mode = cfg.Mode
	orch.Threshold = cfg.ConfidenceThreshold
	orch.SlowTimeout = cfg.SlowTimeout
	orch.SetSlowConcurrency(cfg.SlowConcurrency)
	orch.OnEvent = func(ev detection.Event) {
		if ev.Err != nil {
			logger.Printf("detection %s: method=%s err=%v", ev.Stage, ev.Method, ev.Err)
			return
		}
		logger.Printf("detection %s: method=%s confidence=%.2f elapsed=%s", ev.Stage, ev.Method, ev.Confidence, ev.Elapsed)
	}

	engine := scoring.NewEngine()
	engine.Weights = cfg.Weights

	return &Grader{
		cfg:          cfg,
		orchestrator: orch,
		engine:       engine,
		logger:       logger,
	}, nil
}

// DetectionStats returns the orchestrator's counters.
func (g *Grader) DetectionStats() detection.StatsSnapshot {
	return g.orchestrator.Stats()
}

// Grade runs the full pipeline over one encoded photo.
//
// Pipeline: decode, detect the card boundary, perspective-correct to the
// canonical 500x700 geometry, then score all four condition categories.
// Detection failure is returned as an error matching
// detection.ErrCardNotDetected; analyzer failures produce a partial report
// instead of an error.
func (g *Grader) Grade(ctx context.Context, photo []byte) (*CardReport, error) {
	rec := g.newRecorder()

	img, format, err := imaging.Decode(photo)
	if err != nil {
		return nil, fmt.Errorf("grade: %w", err)
	}
	g.logger.Printf("grade: decoded %s image %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())
	rec.Save("input", img)

	// Quality findings are advisory: a poor photo still gets graded, the
	// caller sees the flags and the report confidence.
	quality := imaging.CheckQuality(img)
	if len(quality.Issues) > 0 {
		g.logger.Printf("grade: capture quality issues: %v", quality.Issues)
	}
	if len(quality.Warnings) > 0 {
		g.logger.Printf("grade: capture quality warnings: %v", quality.Warnings)
	}

	result, err := g.orchestrator.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("grade: %w", err)
	}
	rec.SaveQuad("detected", img, *result.Quad)

	card, err := imaging.Correct(img, *result.Quad)
	if err != nil {
		return nil, fmt.Errorf("grade: perspective correction: %w", err)
	}
	rec.Save("corrected", card)

	report := g.engine.Score(ctx, card, result.Confidence)

	qualityFlags := result.Quality
	if qualityFlags == nil {
		qualityFlags = measuredQuality(quality)
	}

	return &CardReport{
		Report:              report,
		DetectionMethod:     result.Method,
		DetectionConfidence: result.Confidence,
		Quality:             qualityFlags,
		DebugSession:        rec.SessionID(),
	}, nil
}

// measuredQuality maps local exposure and focus measurements onto the
// coarse flag vocabulary the vision service uses, so fast-path reports
// carry a quality assessment too.
func measuredQuality(q imaging.QualityReport) *detection.QualityAssessment {
	lighting := "good"
	switch {
	case q.Brightness < 40:
		lighting = "too dark"
	case q.Brightness > 230:
		lighting = "overexposed"
	case q.Brightness < 80:
		lighting = "dim"
	case q.Brightness > 180:
		lighting = "bright"
	}

	blur := "sharp"
	switch {
	case q.BlurScore < 100:
		blur = "blurry"
	case q.BlurScore < 200:
		blur = "slightly blurry"
	}

	return &detection.QualityAssessment{Lighting: lighting, Blur: blur}
}

// GradeBoth grades the front and back photos of the same card and combines
// them. Either side failing fails the whole call; a caller with only one
// photo uses Grade directly.
func (g *Grader) GradeBoth(ctx context.Context, front, back []byte) (*BothSidesReport, error) {
	frontReport, err := g.Grade(ctx, front)
	if err != nil {
		return nil, fmt.Errorf("front: %w", err)
	}
	backReport, err := g.Grade(ctx, back)
	if err != nil {
		return nil, fmt.Errorf("back: %w", err)
	}

	both := &BothSidesReport{Front: frontReport, Back: backReport}
	if !frontReport.Partial && !backReport.Partial {
		combined := frontReport.Overall
		if backReport.Overall < combined {
			combined = backReport.Overall
		}
		both.Combined = combined
		both.Grade = scoring.GradeLabel(combined)
	}
	return both, nil
}

func (g *Grader) newRecorder() *debugimg.Recorder {
	if !g.cfg.DebugEnabled {
		return debugimg.Disabled()
	}
	rec, err := debugimg.New(g.cfg.DebugDir, "", g.logger)
	if err != nil {
		g.logger.Printf("grade: debug capture unavailable: %v", err)
		return debugimg.Disabled()
	}
	return rec
}
