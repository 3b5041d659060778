package scoring

import (
	"fmt"
	"image"
)

// Category names one of the four graded condition aspects.
type Category string

const (
	CategoryCentering Category = "centering"
	CategoryCorners   Category = "corners"
	CategoryEdges     Category = "edges"
	CategorySurface   Category = "surface"
)

// Grading scale bounds. Scores are reported in half-point steps between
// these, matching the conventional 1-10 card grading scale.
const (
	MinScore = 1.0
	MaxScore = 10.0
)

// SubScore is one analyzer's verdict.
type SubScore struct {
	Category Category `json:"category"`

	// Score on the 1-10 scale.
	Score float64 `json:"score"`

	// Label is the conventional name for the score bracket, when one
	// exists ("Gem Mint", "Near Mint").
	Label string `json:"label,omitempty"`

	// Confidence in [0,1] that the score reflects the physical card rather
	// than an imaging artifact.
	Confidence float64 `json:"confidence"`

	// Metrics holds the raw measurements behind the score, keyed by metric
	// name. Values are plain numbers so the report marshals cleanly.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Notes are human-readable findings ("left edge whitening 2.3%").
	Notes []string `json:"notes,omitempty"`
}

// AnalyzerError reports that a category could not be scored. The report
// carries it verbatim so the failure is visible instead of averaged away.
type AnalyzerError struct {
	Category Category
	Reason   string
	Err      error
}

func (e *AnalyzerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s analysis failed: %s: %v", e.Category, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s analysis failed: %s", e.Category, e.Reason)
}

func (e *AnalyzerError) Unwrap() error { return e.Err }

// Analyzer scores one category of a corrected card. Implementations are
// stateless and safe for concurrent use.
type Analyzer interface {
	Category() Category
	Analyze(card image.Image) (SubScore, error)
}
