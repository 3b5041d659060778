package detection

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bagel786/pregrader/internal/imaging"
)

// Method identifies which detection strategy produced a result.
type Method string

const (
	MethodFastCanny        Method = "fast-canny"
	MethodFastSegmentation Method = "fast-segmentation"
	MethodFastFullFrame    Method = "fast-fallback-fullframe"
	MethodSlowAI           Method = "slow-ai"
	MethodSlowAIRefined    Method = "slow-ai-refined"
)

// Result is one detector's proposal for the card boundary. A Result is
// created once per attempt and never mutated.
type Result struct {
	// Quad is the proposed card boundary, nil when nothing was detected.
	Quad *imaging.Quad `json:"quad,omitempty"`

	// Confidence in [0,1]. Zero for empty results.
	Confidence float64 `json:"confidence"`

	// Method that produced this result.
	Method Method `json:"method"`

	// Elapsed is the wall time the attempt took.
	Elapsed time.Duration `json:"elapsed"`

	// Quality holds the vision service's coarse quality flags when the slow
	// path produced this result; nil otherwise.
	Quality *QualityAssessment `json:"quality,omitempty"`
}

// Empty reports whether the result carries no detection.
func (r Result) Empty() bool {
	return r.Quad == nil
}

// QualityAssessment carries the slow detector's coarse capture-quality
// flags, passed through for caller-facing recommendations.
type QualityAssessment struct {
	Lighting   string `json:"lighting,omitempty"`
	Blur       string `json:"blur,omitempty"`
	Angle      string `json:"angle,omitempty"`
	Background string `json:"background,omitempty"`
}

// ErrCardNotDetected is the sentinel matched by errors.Is when every
// detection path failed.
var ErrCardNotDetected = errors.New("card not detected")

// ErrDetectionTimeout indicates the slow path exceeded its deadline.
var ErrDetectionTimeout = errors.New("detection timed out")

// Attempt records one method's outcome for diagnostics.
type Attempt struct {
	Method     Method        `json:"method"`
	Confidence float64       `json:"confidence"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        string        `json:"error,omitempty"`
}

// NotDetectedError reports that no detector produced a usable card
// boundary. It lists every attempt so the caller can tell the user what to
// fix ("move closer", "improve lighting") instead of a generic failure.
type NotDetectedError struct {
	Attempts []Attempt
}

func (e *NotDetectedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Method, a.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s: confidence %.2f", a.Method, a.Confidence))
		}
	}
	return "card not detected (" + strings.Join(parts, ", ") + ")"
}

// Unwrap lets errors.Is(err, ErrCardNotDetected) match.
func (e *NotDetectedError) Unwrap() error {
	return ErrCardNotDetected
}
