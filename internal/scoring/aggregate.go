package scoring

import (
	"context"
	"image"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Weights assigns each category's share of the overall grade. The default
// split is even, matching conventional grading practice.
type Weights map[Category]float64

// DefaultWeights returns the even 25/25/25/25 split.
func DefaultWeights() Weights {
	return Weights{
		CategoryCentering: 0.25,
		CategoryCorners:   0.25,
		CategoryEdges:     0.25,
		CategorySurface:   0.25,
	}
}

// Report is the full grading verdict for one card face.
type Report struct {
	// SubScores holds each analyzer's verdict, keyed by category. Failed
	// categories are absent here and listed in Failures.
	SubScores map[Category]SubScore `json:"sub_scores"`

	// Overall is the weighted aggregate on the 1-10 scale, rounded to the
	// nearest half point. Zero when the report is partial.
	Overall float64 `json:"overall,omitempty"`

	// Grade is the conventional label for Overall ("Gem Mint 10").
	// Empty when the report is partial.
	Grade string `json:"grade,omitempty"`

	// Partial is true when at least one analyzer failed and Overall could
	// not be computed honestly.
	Partial bool `json:"partial,omitempty"`

	// Failures lists why each failed category could not be scored.
	Failures []string `json:"failures,omitempty"`

	// Confidence in [0,1] for the whole report: the minimum of the
	// detection confidence and every analyzer's confidence. A report is
	// only as trustworthy as its weakest input.
	Confidence float64 `json:"confidence"`

	// CardType is the detected layout category ("standard", "full-art").
	// A centering failure on a full-art card is expected, not a defect in
	// the photo.
	CardType string `json:"card_type,omitempty"`
}

// Engine runs the four analyzers over a corrected card and aggregates.
type Engine struct {
	Analyzers []Analyzer
	Weights   Weights
}

// NewEngine returns an engine with all four standard analyzers and even
// weights.
func NewEngine() *Engine {
	return &Engine{
		Analyzers: []Analyzer{
			CenteringAnalyzer{},
			CornersAnalyzer{},
			EdgesAnalyzer{},
			SurfaceAnalyzer{},
		},
		Weights: DefaultWeights(),
	}
}

// Score runs every analyzer concurrently and aggregates the results.
//
// detectionConfidence is the confidence of the boundary detection that
// produced the corrected card; it bounds the report confidence from above.
// Analyzer failures never abort the run: the remaining categories are
// still scored and the report is marked partial.
func (e *Engine) Score(ctx context.Context, card image.Image, detectionConfidence float64) Report {
	cardType, _ := ClassifyCard(card)

	var mu sync.Mutex
	subs := make(map[Category]SubScore, len(e.Analyzers))
	var failures []string

	g, _ := errgroup.WithContext(ctx)
	for _, a := range e.Analyzers {
		a := a
		g.Go(func() error {
			sub, err := a.Analyze(card)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err.Error())
				return nil
			}
			subs[a.Category()] = sub
			return nil
		})
	}
	g.Wait()

	report := Report{
		SubScores: subs,
		Failures:  failures,
		Partial:   len(failures) > 0,
		CardType:  string(cardType),
	}

	confidence := math.Min(detectionConfidence, 1.0)
	for _, sub := range subs {
		confidence = math.Min(confidence, sub.Confidence)
	}
	if len(subs) == 0 {
		confidence = 0
	}
	report.Confidence = confidence

	if !report.Partial {
		var weighted, totalWeight float64
		for cat, sub := range subs {
			w := e.Weights[cat]
			weighted += w * sub.Score
			totalWeight += w
		}
		if totalWeight > 0 {
			report.Overall = roundHalf(weighted / totalWeight)
			report.Grade = GradeLabel(report.Overall)
		}
	}
	return report
}
