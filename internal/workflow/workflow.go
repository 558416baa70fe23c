package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/gateway"
)

// Scanner submits an image to the analysis backend. *api.Client satisfies it.
type Scanner interface {
	Scan(ctx context.Context, filename string, data []byte) (*api.ScanResult, error)
}

// Workflow is the state machine for scan attempts.
//
// Progress percentages during Submitting are synthetic: they advance on a
// fixed timer capped below 100, independent of the real upload, purely to
// give continuous feedback during an indeterminate-length backend call. Only
// the terminal values (100 on success, 0 on failure) reflect reality.
type Workflow struct {
	scans  Scanner
	logger *slog.Logger

	tickInterval  time.Duration
	tickStep      int
	progressCap   int
	holdDelay     time.Duration
	fallbackDelay time.Duration
	rng           *rand.Rand
	onProgress    func(percent int)

	mu      sync.Mutex
	attempt Attempt
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithTiming overrides the progress-tick interval, the post-completion hold,
// and the fallback delay. Used to keep tests fast.
func WithTiming(tick, hold, fallback time.Duration) Option {
	return func(w *Workflow) {
		w.tickInterval = tick
		w.holdDelay = hold
		w.fallbackDelay = fallback
	}
}

// WithRandSource sets the randomness source for fabricated fallback results.
func WithRandSource(src rand.Source) Option {
	return func(w *Workflow) {
		w.rng = rand.New(src)
	}
}

// WithProgressCallback sets a function called with each progress update.
func WithProgressCallback(fn func(percent int)) Option {
	return func(w *Workflow) {
		w.onProgress = fn
	}
}

// WithLogger sets the workflow logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// New creates a Workflow in the Idle phase.
func New(scans Scanner, opts ...Option) *Workflow {
	w := &Workflow{
		scans:         scans,
		logger:        slog.New(slog.DiscardHandler),
		tickInterval:  200 * time.Millisecond,
		tickStep:      10,
		progressCap:   90,
		holdDelay:     500 * time.Millisecond,
		fallbackDelay: time.Second,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		attempt:       Attempt{ID: uuid.New(), Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Attempt returns a snapshot of the live attempt.
func (w *Workflow) Attempt() Attempt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempt
}

// SelectFile stages an image for submission. Like the click-to-select input
// it mirrors, it accepts any file regardless of declared content type; only
// the drop path filters (see DropFile). Selecting while an image is already
// staged replaces it and clears any stale result or error.
func (w *Workflow) SelectFile(name string, data []byte, contentType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.attempt.Phase {
	case PhaseIdle, PhaseImageSelected:
		// ok
	default:
		return fmt.Errorf("workflow: cannot select an image in phase %s", w.attempt.Phase)
	}

	w.attempt.Image = &SelectedImage{Name: name, ContentType: contentType, Data: data}
	w.attempt.Phase = PhaseImageSelected
	w.attempt.Result = nil
	w.attempt.ErrorMsg = ""
	w.attempt.Progress = 0
	return nil
}

// DropFile stages an image via the drag-and-drop path, which silently
// ignores anything not declaring an image/* content type. The asymmetry with
// SelectFile is inherited behavior, kept deliberately. Returns whether the
// file was accepted.
func (w *Workflow) DropFile(name string, data []byte, contentType string) bool {
	if !strings.HasPrefix(contentType, "image/") {
		return false
	}
	return w.SelectFile(name, data, contentType) == nil
}

// NewAttempt discards the current attempt and returns to Idle. The fresh
// attempt identity retires every callback still in flight for the old one.
func (w *Workflow) NewAttempt() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempt = Attempt{ID: uuid.New(), Phase: PhaseIdle}
}

// Submit uploads the staged image and drives the attempt to a terminal
// phase. It blocks until the attempt is terminal (including the degraded
// fallback on an unreachable backend) or ctx is done. The returned snapshot
// carries the outcome; an error is returned only for misuse or cancellation,
// never for a backend failure, which lands in the attempt state instead.
func (w *Workflow) Submit(ctx context.Context) (Attempt, error) {
	w.mu.Lock()
	if w.attempt.Phase != PhaseImageSelected || w.attempt.Image == nil {
		phase := w.attempt.Phase
		w.mu.Unlock()
		return Attempt{}, fmt.Errorf("workflow: no image staged (phase %s)", phase)
	}
	id := w.attempt.ID
	img := w.attempt.Image
	w.attempt.Phase = PhaseSubmitting
	w.attempt.Progress = 0
	w.attempt.ErrorMsg = ""
	w.attempt.Result = nil
	w.mu.Unlock()

	// The synthetic progress timer and the real backend call run as two
	// uncoordinated tasks. The timer is joined before any terminal
	// transition so a late tick can never overwrite a final value.
	stopTicker := w.startProgressTicker(id)

	result, err := w.scans.Scan(ctx, img.Name, img.Data)

	stopTicker()

	if err == nil {
		return w.succeed(ctx, id, result)
	}
	return w.fail(ctx, id, img.Name, err)
}

// startProgressTicker advances the synthetic progress until stopped, the cap
// is reached, or the attempt identity goes stale. The returned stop function
// blocks until the ticker goroutine has exited.
func (w *Workflow) startProgressTicker(id uuid.UUID) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !w.tickProgress(id) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// tickProgress applies one synthetic increment. Reports false once the
// attempt is no longer the one the ticker was started for.
func (w *Workflow) tickProgress(id uuid.UUID) bool {
	w.mu.Lock()
	if w.attempt.ID != id || w.attempt.Phase != PhaseSubmitting {
		w.mu.Unlock()
		return false
	}
	next := w.attempt.Progress + w.tickStep
	if next > w.progressCap {
		next = w.progressCap
	}
	w.attempt.Progress = next
	w.mu.Unlock()

	w.reportProgress(next)
	return true
}

// succeed drives the attempt through Analyzing to Succeeded.
func (w *Workflow) succeed(ctx context.Context, id uuid.UUID, result *api.ScanResult) (Attempt, error) {
	w.mu.Lock()
	if w.attempt.ID != id {
		snap := w.attempt
		w.mu.Unlock()
		return snap, nil // superseded mid-flight; drop the stale response
	}
	w.attempt.Progress = 100
	w.attempt.Phase = PhaseAnalyzing
	w.mu.Unlock()
	w.reportProgress(100)

	// Hold the completed bar briefly before showing the verdict. The hold
	// is cosmetic: a cancellation here must not discard a verdict that was
	// already received, so the attempt still lands in Succeeded.
	holdErr := sleepCtx(ctx, w.holdDelay)
	if holdErr != nil {
		w.logger.Debug("hold interrupted", "error", holdErr)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attempt.ID != id {
		return w.attempt, nil
	}
	w.attempt.Result = result
	w.attempt.Phase = PhaseSucceeded
	w.logger.Info("scan succeeded",
		"vegetable", result.VegetableName,
		"safe", result.SafeToEat,
		"confidence", result.Confidence,
	)
	return w.attempt, nil
}

// fail drives the attempt to Failed. A backend validation rejection gets the
// invalid-image message and stops there; every other failure gets the
// generic message and, after a bounded delay, a fabricated stand-in result
// flagged as degraded so the interface stays usable with the backend down.
func (w *Workflow) fail(ctx context.Context, id uuid.UUID, filename string, cause error) (Attempt, error) {
	rejected := false
	var gwErr *gateway.Error
	if errors.As(cause, &gwErr) && gwErr.Kind == gateway.KindRejected {
		rejected = true
	}

	w.mu.Lock()
	if w.attempt.ID != id {
		snap := w.attempt
		w.mu.Unlock()
		return snap, nil
	}
	w.attempt.Progress = 0
	w.attempt.Phase = PhaseFailed
	if rejected {
		w.attempt.ErrorMsg = MsgInvalidImage
	} else {
		w.attempt.ErrorMsg = MsgAnalysisFailed
	}
	w.mu.Unlock()
	w.reportProgress(0)

	w.logger.Warn("scan failed", "rejected", rejected, "error", cause)

	if rejected {
		return w.Attempt(), nil
	}

	// Degraded fallback: fabricate a plausible verdict so the flow stays
	// demoable without the backend. The result is flagged OriginDegraded
	// and must never be presented as an authoritative safety verdict.
	if err := sleepCtx(ctx, w.fallbackDelay); err != nil {
		return w.Attempt(), err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attempt.ID != id {
		return w.attempt, nil
	}
	w.attempt.Result = w.fabricateResult(filename)
	w.logger.Warn("attached fabricated fallback result", "vegetable", w.attempt.Result.VegetableName)
	return w.attempt, nil
}

// reportProgress invokes the progress callback if one is set.
func (w *Workflow) reportProgress(percent int) {
	if w.onProgress != nil {
		w.onProgress(percent)
	}
}

// sleepCtx waits for d unless ctx finishes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
