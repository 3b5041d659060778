// Package config loads pipeline settings from the environment.
//
// Every setting has a default that works without any environment at all;
// the vision API key is the only value that must be supplied for the slow
// detection path to activate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/scoring"
)

// Config holds every tunable of the grading pipeline.
type Config struct {
	// Mode selects hybrid or fast-only detection.
	Mode detection.Mode

	// ConfidenceThreshold is the fast-path confidence at or above which the
	// slow path is skipped.
	ConfidenceThreshold float64

	// SlowConcurrency bounds in-flight vision service calls.
	SlowConcurrency int64

	// SlowTimeout bounds each vision service call.
	SlowTimeout time.Duration

	// VisionAPIKey authenticates against the vision service. Empty
	// disables the slow path.
	VisionAPIKey string

	// VisionEndpoint overrides the service URL when non-empty.
	VisionEndpoint string

	// VisionModel overrides the model name when non-empty.
	VisionModel string

	// DebugEnabled turns on intermediate image capture.
	DebugEnabled bool

	// DebugDir is where debug sessions are stored.
	DebugDir string

	// Weights splits the overall grade across categories.
	Weights scoring.Weights
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:                detection.ModeHybrid,
		ConfidenceThreshold: detection.DefaultConfidenceThreshold,
		SlowConcurrency:     detection.DefaultSlowConcurrency,
		SlowTimeout:         detection.DefaultSlowTimeout,
		DebugDir:            "debug_images",
		Weights:             scoring.DefaultWeights(),
	}
}

// FromEnv loads configuration from PREGRADER_* environment variables on
// top of the defaults. Malformed values are errors rather than silently
// ignored.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("PREGRADER_MODE"); v != "" {
		switch detection.Mode(v) {
		case detection.ModeHybrid, detection.ModeFastOnly:
			cfg.Mode = detection.Mode(v)
		default:
			return cfg, fmt.Errorf("config: PREGRADER_MODE: unknown mode %q", v)
		}
	}

	if v := os.Getenv("PREGRADER_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return cfg, fmt.Errorf("config: PREGRADER_CONFIDENCE_THRESHOLD: want a number in [0,1], got %q", v)
		}
		cfg.ConfidenceThreshold = f
	}

	if v := os.Getenv("PREGRADER_SLOW_CONCURRENCY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("config: PREGRADER_SLOW_CONCURRENCY: want a positive integer, got %q", v)
		}
		cfg.SlowConcurrency = n
	}

	if v := os.Getenv("PREGRADER_SLOW_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("config: PREGRADER_SLOW_TIMEOUT: want a positive duration, got %q", v)
		}
		cfg.SlowTimeout = d
	}

	cfg.VisionAPIKey = os.Getenv("PREGRADER_VISION_API_KEY")
	if cfg.VisionAPIKey == "" {
		cfg.VisionAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg.VisionEndpoint = os.Getenv("PREGRADER_VISION_ENDPOINT")
	cfg.VisionModel = os.Getenv("PREGRADER_VISION_MODEL")

	if v := os.Getenv("PREGRADER_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: PREGRADER_DEBUG: want a boolean, got %q", v)
		}
		cfg.DebugEnabled = b
	}
	if v := os.Getenv("PREGRADER_DEBUG_DIR"); v != "" {
		cfg.DebugDir = v
	}

	return cfg, nil
}
