package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/quality"
)

// State is the capture session state.
type State string

// Session states. Terminal states (completed, failed) return to idle via Reset.
const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateWaiting   State = "waiting"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrSessionActive is returned when a capture is started while another
// session is still running or a terminal session has not been reset.
var ErrSessionActive = errors.New("capture session already active")

// ErrCancelled is returned when a session is aborted by Cancel or context.
var ErrCancelled = errors.New("capture session cancelled")

// StepError reports which step of a guided session failed and why.
type StepError struct {
	Step  string
	Score quality.Score
	Err   error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture step %q failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("capture step %q rejected: score %d (%v)", e.Step, e.Score.Value, e.Score.RejectionReasons)
}

func (e *StepError) Unwrap() error { return e.Err }

// Frame is one captured and scored frame.
type Frame struct {
	Step       string
	Data       []byte
	Score      quality.Score
	CapturedAt time.Time
}

// Sequencer drives single-shot and guided five-step capture sessions.
// Steps of a guided session are strictly sequential: each one depends on
// the operator changing head pose after the previous prompt, so there is
// nothing to parallelize. A failed session never yields partial frames.
type Sequencer struct {
	source Source
	eval   *quality.Evaluator
	steps  []config.CaptureStep
	settle time.Duration

	// sleep is injectable so tests can observe waits without real timers.
	sleep func(ctx context.Context, d time.Duration) error

	// OnPrompt, when set, is called before each guided step so the
	// operator can be shown the pose instruction.
	OnPrompt func(step config.CaptureStep)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	now func() time.Time
}

// NewSequencer creates a sequencer over the given source and capture flow.
func NewSequencer(source Source, eval *quality.Evaluator, flow config.CaptureFlowConfig) *Sequencer {
	return &Sequencer{
		source: source,
		eval:   eval,
		steps:  flow.Steps,
		settle: flow.SettleDelay(),
		sleep:  sleepCtx,
		state:  StateIdle,
		now:    time.Now,
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current session state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin transitions idle -> capturing and installs the session context.
func (s *Sequencer) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return nil, fmt.Errorf("%w: state is %s", ErrSessionActive, s.state)
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	s.state = StateCapturing
	s.cancel = cancel
	return sessionCtx, nil
}

// finish records the terminal state and releases the session context.
func (s *Sequencer) finish(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = state
}

// setState transitions between capturing and waiting mid-session.
func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Cancel aborts an in-progress session. Safe to call at any time, in any
// state, any number of times.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Reset returns a terminal session to idle so a new capture can start.
func (s *Sequencer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCompleted && s.state != StateFailed && s.state != StateIdle {
		return fmt.Errorf("cannot reset while %s", s.state)
	}
	s.state = StateIdle
	return nil
}

// Single captures and scores exactly one frame. A low score is returned
// to the caller rather than retried; the operator decides on a retake.
func (s *Sequencer) Single(ctx context.Context) (Frame, error) {
	sessionCtx, err := s.begin(ctx)
	if err != nil {
		return Frame{}, err
	}

	frame, err := s.captureOne(sessionCtx, "single")
	if err != nil {
		s.finish(StateFailed)
		return Frame{}, err
	}

	s.finish(StateCompleted)
	return frame, nil
}

// Multi5 runs the guided five-step session. Each step waits the settle
// interval (except the first), captures, and scores. Any capture failure
// or rejected frame aborts the session and discards everything collected.
func (s *Sequencer) Multi5(ctx context.Context) ([]Frame, error) {
	sessionCtx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(s.steps))
	for i, step := range s.steps {
		if i > 0 {
			s.setState(StateWaiting)
			if err := s.sleep(sessionCtx, s.settle); err != nil {
				s.finish(StateFailed)
				return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			s.setState(StateCapturing)
		}

		if s.OnPrompt != nil {
			s.OnPrompt(step)
		}

		frame, err := s.captureOne(sessionCtx, step.Name)
		if err != nil {
			s.finish(StateFailed)
			return nil, err
		}
		if !frame.Score.Acceptable() {
			s.finish(StateFailed)
			return nil, &StepError{Step: step.Name, Score: frame.Score}
		}
		frames = append(frames, frame)
	}

	s.finish(StateCompleted)
	return frames, nil
}

// captureOne grabs a frame from the source and scores it.
func (s *Sequencer) captureOne(ctx context.Context, step string) (Frame, error) {
	data, err := s.source.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return Frame{}, &StepError{Step: step, Err: err}
	}

	return Frame{
		Step:       step,
		Data:       data,
		Score:      s.eval.Evaluate(data),
		CapturedAt: s.now(),
	}, nil
}
