package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bagel786/pregrader/internal/imaging"
)

// fakeSlow is a scriptable SlowDetector.
type fakeSlow struct {
	result Result
	err    error

	mu    sync.Mutex
	calls int

	// block, when non-nil, is closed by the test to release in-flight
	// calls. inFlight tracks gate behavior.
	block    chan struct{}
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (f *fakeSlow) DetectSlow(ctx context.Context, _ image.Image) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		n := f.inFlight.Add(1)
		for {
			seen := f.maxSeen.Load()
			if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		defer f.inFlight.Add(-1)

		select {
		case <-f.block:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeSlow) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func slowQuadResult() Result {
	q := imaging.Quad{{X: 30, Y: 42}, {X: 469, Y: 42}, {X: 469, Y: 657}, {X: 30, Y: 657}}
	return Result{Quad: &q, Confidence: 0.92, Method: MethodSlowAI}
}

func cardScene() image.Image {
	return createCardScene(500, 700, image.Rect(30, 42, 470, 658))
}

func featurelessSquare() image.Image {
	return uniformImage(300, 300, color.NRGBA{128, 128, 128, 255})
}

func TestOrchestratorFastPathWins(t *testing.T) {
	slow := &fakeSlow{result: slowQuadResult()}
	o := NewOrchestrator(&FastDetector{}, slow)

	result, err := o.Detect(context.Background(), cardScene())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Empty() {
		t.Fatal("empty result from a clean scene")
	}
	if slow.callCount() != 0 {
		t.Errorf("slow path consulted %d times despite confident fast result", slow.callCount())
	}

	stats := o.Stats()
	if stats.Requests != 1 || stats.FastAccepted != 1 {
		t.Errorf("stats = %+v, want one request, one fast accept", stats)
	}
}

func TestOrchestratorEscalatesToSlow(t *testing.T) {
	slow := &fakeSlow{result: slowQuadResult()}
	o := NewOrchestrator(&FastDetector{}, slow)

	result, err := o.Detect(context.Background(), featurelessSquare())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Method != MethodSlowAI {
		t.Errorf("method = %s, want %s", result.Method, MethodSlowAI)
	}
	if slow.callCount() != 1 {
		t.Errorf("slow path called %d times, want 1", slow.callCount())
	}
	if stats := o.Stats(); stats.SlowAccepted != 1 {
		t.Errorf("stats = %+v, want one slow accept", stats)
	}
}

func TestOrchestratorFastOnlyNeverEscalates(t *testing.T) {
	slow := &fakeSlow{result: slowQuadResult()}
	o := NewOrchestrator(&FastDetector{}, slow)
	o.Mode = ModeFastOnly

	_, err := o.Detect(context.Background(), featurelessSquare())
	if !errors.Is(err, ErrCardNotDetected) {
		t.Fatalf("expected ErrCardNotDetected, got %v", err)
	}
	if slow.callCount() != 0 {
		t.Errorf("slow path called in fast-only mode")
	}
}

func TestOrchestratorUnresolvedWhenSlowFails(t *testing.T) {
	// The fast path finds the card but below a raised threshold, and the
	// slow path errors. The below-threshold quad must not be promoted; the
	// request is unresolved.
	slow := &fakeSlow{err: errors.New("service unreachable")}
	o := NewOrchestrator(&FastDetector{}, slow)
	o.Threshold = 0.99

	_, err := o.Detect(context.Background(), cardScene())
	if !errors.Is(err, ErrCardNotDetected) {
		t.Fatalf("expected ErrCardNotDetected, got %v", err)
	}
	if slow.callCount() != 1 {
		t.Errorf("slow path called %d times, want 1", slow.callCount())
	}

	var notDetected *NotDetectedError
	if !errors.As(err, &notDetected) {
		t.Fatalf("error type %T, want *NotDetectedError", err)
	}
	sawConfidentFast := false
	for _, a := range notDetected.Attempts {
		if a.Method == MethodFastCanny && a.Confidence >= 0.70 {
			sawConfidentFast = true
		}
	}
	if !sawConfidentFast {
		t.Errorf("attempts %+v missing the below-threshold fast confidence", notDetected.Attempts)
	}
	if stats := o.Stats(); stats.NotDetected != 1 {
		t.Errorf("stats = %+v, want one not-detected", stats)
	}
}

func TestOrchestratorBothPathsFail(t *testing.T) {
	slow := &fakeSlow{err: errors.New("service unreachable")}
	o := NewOrchestrator(&FastDetector{}, slow)

	_, err := o.Detect(context.Background(), featurelessSquare())
	if !errors.Is(err, ErrCardNotDetected) {
		t.Fatalf("expected ErrCardNotDetected, got %v", err)
	}

	var notDetected *NotDetectedError
	if !errors.As(err, &notDetected) {
		t.Fatalf("error type %T, want *NotDetectedError", err)
	}
	// Per-method diagnostics: both fast methods plus the slow attempt. The
	// full-frame fallback stays out of the log since the square frame never
	// passes its aspect gate.
	wantMethods := []Method{MethodFastCanny, MethodFastSegmentation, MethodSlowAI}
	if len(notDetected.Attempts) != len(wantMethods) {
		t.Fatalf("recorded %d attempts, want %d: %+v", len(notDetected.Attempts), len(wantMethods), notDetected.Attempts)
	}
	for i, want := range wantMethods {
		if notDetected.Attempts[i].Method != want {
			t.Errorf("attempt %d method = %s, want %s", i, notDetected.Attempts[i].Method, want)
		}
	}
	if notDetected.Attempts[2].Err == "" {
		t.Error("slow attempt error not recorded")
	}
	if stats := o.Stats(); stats.NotDetected != 1 {
		t.Errorf("stats = %+v, want one not-detected", stats)
	}
}

func TestOrchestratorNilSlowDetector(t *testing.T) {
	o := NewOrchestrator(&FastDetector{}, nil)

	if _, err := o.Detect(context.Background(), featurelessSquare()); !errors.Is(err, ErrCardNotDetected) {
		t.Fatalf("expected ErrCardNotDetected, got %v", err)
	}
}

func TestOrchestratorSlowTimeout(t *testing.T) {
	slow := &fakeSlow{block: make(chan struct{})}
	o := NewOrchestrator(&FastDetector{}, slow)
	o.SlowTimeout = 20 * time.Millisecond

	_, err := o.Detect(context.Background(), featurelessSquare())
	if !errors.Is(err, ErrCardNotDetected) {
		t.Fatalf("expected ErrCardNotDetected, got %v", err)
	}

	var notDetected *NotDetectedError
	if !errors.As(err, &notDetected) {
		t.Fatalf("error type %T", err)
	}
	last := notDetected.Attempts[len(notDetected.Attempts)-1]
	if last.Method != MethodSlowAI || last.Err == "" {
		t.Errorf("timeout not recorded on the slow attempt: %+v", notDetected.Attempts)
	}
}

func TestOrchestratorConcurrencyGate(t *testing.T) {
	slow := &fakeSlow{result: slowQuadResult(), block: make(chan struct{})}
	o := NewOrchestrator(&FastDetector{}, slow)
	o.SetSlowConcurrency(2)

	scene := featurelessSquare()
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Detect(context.Background(), scene)
		}()
	}

	// Give the goroutines time to queue on the gate, then release them.
	time.Sleep(100 * time.Millisecond)
	close(slow.block)
	wg.Wait()

	if peak := slow.maxSeen.Load(); peak > 2 {
		t.Errorf("observed %d concurrent slow calls, gate allows 2", peak)
	}
	if calls := slow.callCount(); calls != 6 {
		t.Errorf("slow path called %d times, want 6", calls)
	}
}

func TestOrchestratorEventSink(t *testing.T) {
	slow := &fakeSlow{result: slowQuadResult()}
	o := NewOrchestrator(&FastDetector{}, slow)

	var mu sync.Mutex
	var stages []string
	o.OnEvent = func(ev Event) {
		mu.Lock()
		stages = append(stages, ev.Stage)
		mu.Unlock()
	}

	if _, err := o.Detect(context.Background(), featurelessSquare()); err != nil {
		t.Fatalf("Detect: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stages) != 2 || stages[0] != "fast" || stages[1] != "slow" {
		t.Errorf("event stages = %v, want [fast slow]", stages)
	}
}

func TestNotDetectedErrorMessage(t *testing.T) {
	err := &NotDetectedError{Attempts: []Attempt{
		{Method: MethodFastCanny, Confidence: 0.31},
		{Method: MethodSlowAI, Err: "timed out"},
	}}

	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	for _, want := range []string{"fast-canny", "0.31", "slow-ai", "timed out"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
