package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/quality"
)

// goodFrame encodes a gradient PNG that scores well above the acceptance
// threshold with a permissive evaluator.
func goodFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 320))
	for y := range 320 {
		for x := range 320 {
			v := uint8((x * 255) / 319)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

// darkFrame encodes a nearly black PNG that fails the quality gate.
func darkFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 320))
	for y := range 320 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{R: 3, G: 3, B: 3, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func testFlow() config.CaptureFlowConfig {
	return config.CaptureFlowConfig{
		SettleSeconds: 1.2,
		Steps: []config.CaptureStep{
			{Name: "neutral", Prompt: "Look straight at the camera"},
			{Name: "left", Prompt: "Turn left"},
			{Name: "right", Prompt: "Turn right"},
			{Name: "up", Prompt: "Tilt up"},
			{Name: "down", Prompt: "Tilt down"},
		},
	}
}

func newTestSequencer(source Source) *Sequencer {
	s := NewSequencer(source, quality.NewEvaluator(16, 8<<20), testFlow())
	// Skip real settle delays in tests; cancellation still observed.
	s.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return s
}

func TestSingle_ReturnsFrame(t *testing.T) {
	frame := goodFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return frame, nil
	}}

	s := newTestSequencer(source)
	got, err := s.Single(context.Background())
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	if !got.Score.Acceptable() {
		t.Errorf("expected acceptable score, got %d", got.Score.Value)
	}
	if got.Step != "single" {
		t.Errorf("expected step 'single', got '%s'", got.Step)
	}
	if s.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", s.State())
	}
}

func TestSingle_LowScoreSurfacedNotRetried(t *testing.T) {
	calls := 0
	frame := darkFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		calls++
		return frame, nil
	}}

	s := newTestSequencer(source)
	got, err := s.Single(context.Background())
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	// The caller decides whether to retake; the sequencer must not retry.
	if calls != 1 {
		t.Errorf("expected exactly 1 capture, got %d", calls)
	}
	if got.Score.Acceptable() {
		t.Errorf("expected unacceptable score, got %d", got.Score.Value)
	}
	if s.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", s.State())
	}
}

func TestSingle_RejectsConcurrentSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	frame := goodFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		close(started)
		<-release
		return frame, nil
	}}

	s := newTestSequencer(source)
	done := make(chan error, 1)
	go func() {
		_, err := s.Single(context.Background())
		done <- err
	}()

	<-started
	if _, err := s.Single(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first session failed: %v", err)
	}
}

func TestMulti5_HappyPath(t *testing.T) {
	frame := goodFrame(t)
	var waits []time.Duration
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return frame, nil
	}}

	s := NewSequencer(source, quality.NewEvaluator(16, 8<<20), testFlow())
	s.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	frames, err := s.Multi5(context.Background())
	if err != nil {
		t.Fatalf("Multi5 failed: %v", err)
	}

	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	wantSteps := []string{"neutral", "left", "right", "up", "down"}
	for i, f := range frames {
		if f.Step != wantSteps[i] {
			t.Errorf("frame %d: expected step '%s', got '%s'", i, wantSteps[i], f.Step)
		}
	}
	// No settle before the first step, one before each of the rest.
	if len(waits) != 4 {
		t.Errorf("expected 4 settle waits, got %d", len(waits))
	}
	for _, d := range waits {
		if d != 1200*time.Millisecond {
			t.Errorf("expected settle delay 1.2s, got %v", d)
		}
	}
	if s.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", s.State())
	}
}

func TestMulti5_CaptureErrorDiscardsAll(t *testing.T) {
	calls := 0
	frame := goodFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 3 {
			return nil, fmt.Errorf("camera unplugged")
		}
		return frame, nil
	}}

	s := newTestSequencer(source)
	frames, err := s.Multi5(context.Background())

	if err == nil {
		t.Fatal("expected error")
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %T: %v", err, err)
	}
	if stepErr.Step != "right" {
		t.Errorf("expected failure at step 'right', got '%s'", stepErr.Step)
	}
	if frames != nil {
		t.Errorf("failed session must not yield frames, got %d", len(frames))
	}
	if s.State() != StateFailed {
		t.Errorf("expected state failed, got %s", s.State())
	}
}

func TestMulti5_PoorFrameFailsSession(t *testing.T) {
	calls := 0
	good := goodFrame(t)
	dark := darkFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 2 {
			return dark, nil
		}
		return good, nil
	}}

	s := newTestSequencer(source)
	frames, err := s.Multi5(context.Background())

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != "left" {
		t.Errorf("expected rejection at step 'left', got '%s'", stepErr.Step)
	}
	if stepErr.Score.Acceptable() {
		t.Error("rejected step should carry an unacceptable score")
	}
	if frames != nil {
		t.Errorf("failed session must not yield frames, got %d", len(frames))
	}
}

func TestMulti5_CancelDuringSettle(t *testing.T) {
	frame := goodFrame(t)
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return frame, nil
	}}

	s := NewSequencer(source, quality.NewEvaluator(16, 8<<20), testFlow())
	s.sleep = func(ctx context.Context, d time.Duration) error {
		s.Cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	frames, err := s.Multi5(context.Background())

	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if frames != nil {
		t.Errorf("cancelled session must not yield frames, got %d", len(frames))
	}
	if s.State() != StateFailed {
		t.Errorf("expected state failed, got %s", s.State())
	}
}

func TestCancel_IdempotentInAnyState(t *testing.T) {
	s := newTestSequencer(SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("unused")
	}})

	// Cancel with no session must be a no-op, repeatedly.
	s.Cancel()
	s.Cancel()
	if s.State() != StateIdle {
		t.Errorf("expected state idle, got %s", s.State())
	}
}

func TestReset_FromTerminalStates(t *testing.T) {
	source := SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("broken")
	}}

	s := newTestSequencer(source)
	if _, err := s.Single(context.Background()); err == nil {
		t.Fatal("expected capture failure")
	}
	if s.State() != StateFailed {
		t.Fatalf("expected state failed, got %s", s.State())
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("expected state idle after reset, got %s", s.State())
	}

	// A new session can start after reset.
	good := goodFrame(t)
	s.source = SourceFunc{SourceName: "test", Fn: func(ctx context.Context) ([]byte, error) {
		return good, nil
	}}
	if _, err := s.Single(context.Background()); err != nil {
		t.Fatalf("Single after reset failed: %v", err)
	}
}
