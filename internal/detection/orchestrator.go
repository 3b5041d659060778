package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/semaphore"
)

// SlowDetector is the escalation path consulted when fast detection is not
// confident enough. The vision-service client implements it; tests supply
// fakes.
//
// Implementations return an empty Result with a nil error when the service
// responded but saw no card, and a non-nil error only for transport-level
// failures (timeouts, unreachable service). The orchestrator treats both
// the same way for the final decision but records them differently in the
// attempt log.
type SlowDetector interface {
	DetectSlow(ctx context.Context, img image.Image) (Result, error)
}

// Mode selects which detection paths the orchestrator may use.
type Mode string

const (
	// ModeHybrid runs the fast path first and escalates to the slow path
	// below the confidence threshold.
	ModeHybrid Mode = "hybrid"

	// ModeFastOnly never contacts the slow detector.
	ModeFastOnly Mode = "fast-only"
)

// Orchestrator defaults. The threshold is deliberately high: geometric
// detection below 0.70 usually means a busy background or heavy skew, both
// of which the vision path handles far better.
const (
	DefaultConfidenceThreshold = 0.70
	DefaultSlowConcurrency     = 5
	DefaultSlowTimeout         = 30 * time.Second
)

// Event describes one step of a detection run, emitted to the configured
// sink for logging and debug capture.
type Event struct {
	Stage      string
	Method     Method
	Confidence float64
	Elapsed    time.Duration
	Err        error
}

// Orchestrator coordinates the fast and slow detection paths.
//
// Concurrency: the slow path is gated by a weighted semaphore so that at
// most SlowConcurrency requests are in flight against the vision service at
// once; excess callers queue on the semaphore (still bounded by the
// caller's context). The fast path has no gate.
type Orchestrator struct {
	Fast *FastDetector
	Slow SlowDetector

	Mode      Mode
	Threshold float64

	// SlowTimeout bounds each slow-path call, layered under any deadline
	// already on the caller's context.
	SlowTimeout time.Duration

	// OnEvent, when non-nil, receives progress events. Called synchronously;
	// sinks must be fast.
	OnEvent func(Event)

	gate  *semaphore.Weighted
	stats Stats
}

// NewOrchestrator wires an orchestrator with default policy values.
// slow may be nil, which forces fast-only behavior regardless of Mode.
func NewOrchestrator(fast *FastDetector, slow SlowDetector) *Orchestrator {
	return &Orchestrator{
		Fast:        fast,
		Slow:        slow,
		Mode:        ModeHybrid,
		Threshold:   DefaultConfidenceThreshold,
		SlowTimeout: DefaultSlowTimeout,
		gate:        semaphore.NewWeighted(DefaultSlowConcurrency),
	}
}

// SetSlowConcurrency replaces the slow-path gate. Must be called before the
// orchestrator is shared between goroutines.
func (o *Orchestrator) SetSlowConcurrency(n int64) {
	if n < 1 {
		n = 1
	}
	o.gate = semaphore.NewWeighted(n)
}

// Stats returns a snapshot of the orchestrator's counters.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}

// Detect locates the card in img according to the configured policy.
//
// The fast path always runs. Its result is final when it meets the
// threshold; below the threshold the slow path runs under the concurrency
// gate and timeout, and any non-empty slow result is accepted. A
// below-threshold fast quad is never promoted: when the slow path also
// fails or sees nothing the request is unresolved and the returned error
// is a *NotDetectedError wrapping ErrCardNotDetected, carrying every
// attempted method with its confidence.
//
// In fast-only mode (or with no slow detector configured) there is no
// escalation to gate, so any non-empty fast result is accepted as-is.
func (o *Orchestrator) Detect(ctx context.Context, img image.Image) (Result, error) {
	o.stats.requestStarted()

	fast, fastAttempts := o.Fast.DetectAll(img)
	o.emit(Event{Stage: "fast", Method: fast.Method, Confidence: fast.Confidence, Elapsed: fast.Elapsed})

	if !fast.Empty() && fast.Confidence >= o.Threshold {
		o.stats.fastAccepted()
		return fast, nil
	}
	if o.Mode == ModeFastOnly || o.Slow == nil {
		if fast.Empty() {
			o.stats.notDetected()
			return Result{}, &NotDetectedError{Attempts: fastAttempts}
		}
		o.stats.fastAccepted()
		return fast, nil
	}

	slow, slowErr := o.detectSlow(ctx, img)
	o.emit(Event{Stage: "slow", Method: slow.Method, Confidence: slow.Confidence, Elapsed: slow.Elapsed, Err: slowErr})

	if slowErr == nil && !slow.Empty() {
		o.stats.slowAccepted()
		return slow, nil
	}

	// Threshold unmet and the slow path contributed nothing: unresolved.
	// The low-confidence fast quad is not trusted for grading.
	o.stats.notDetected()
	slowAttempt := Attempt{Method: MethodSlowAI, Confidence: slow.Confidence, Elapsed: slow.Elapsed}
	if slowErr != nil {
		slowAttempt.Err = slowErr.Error()
	}
	return Result{}, &NotDetectedError{Attempts: append(fastAttempts, slowAttempt)}
}

// detectSlow runs one gated, timeout-bounded slow-path attempt.
func (o *Orchestrator) detectSlow(ctx context.Context, img image.Image) (Result, error) {
	if err := o.gate.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("slow path gate: %w", err)
	}
	defer o.gate.Release(1)

	callCtx := ctx
	if o.SlowTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.SlowTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := o.Slow.DetectSlow(callCtx, img)
	res.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrDetectionTimeout, err)
		}
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) emit(ev Event) {
	if o.OnEvent != nil {
		o.OnEvent(ev)
	}
}
