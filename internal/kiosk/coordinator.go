package kiosk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/apiclient"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ErrBusy rejects a submit while another attempt is still pending.
// Callers fail fast instead of queueing: a queued recognition request
// against a possibly-moved face is worse than rejecting it.
var ErrBusy = errors.New("recognition attempt already in flight")

// ErrTooSoon rejects a submit inside the cooldown window after the
// previous attempt completed. This stops a face that stays in frame
// from generating duplicate submissions across scan ticks.
var ErrTooSoon = errors.New("cooldown window not elapsed")

// OutcomeKind classifies how a recognition attempt ended.
type OutcomeKind string

const (
	OutcomeMatched     OutcomeKind = "matched"
	OutcomeNotMatched  OutcomeKind = "notMatched"
	OutcomeTimedOut    OutcomeKind = "timedOut"
	OutcomeServerError OutcomeKind = "serverError"
)

// Outcome is the result of one recognition attempt. For matched
// outcomes the attendance record or the conflict kind says what the
// server did with the event.
type Outcome struct {
	AttemptID   string
	Kind        OutcomeKind
	EmployeeID  string
	Employee    string
	Confidence  float64
	Attendance  *database.AttendanceRecord
	Conflict    attendance.ConflictKind
	Reason      string
	Suggestions []string
}

// Coordinator owns the single-flight, timeout, and cooldown discipline
// around submitting captures for recognition. The lock is a plain
// boolean guard, not a queue; concurrent callers fail fast with ErrBusy.
type Coordinator struct {
	submit   func(ctx context.Context, req apiclient.RecognizeRequest) (*apiclient.RecognizeResult, error)
	deviceID string
	timeout  time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastDone time.Time
}

// NewCoordinator creates the coordinator over an API client.
func NewCoordinator(client *apiclient.Client, deviceID string, timeout, cooldown time.Duration) *Coordinator {
	return &Coordinator{
		submit:   client.Recognize,
		deviceID: deviceID,
		timeout:  timeout,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Submit sends exactly one frame with an intended action. It fails
// immediately with ErrBusy while another attempt is pending and with
// ErrTooSoon inside the cooldown window. The attempt runs under a hard
// deadline; on timeout the underlying HTTP request is aborted at the
// network level, and the lock is always released.
func (c *Coordinator) Submit(ctx context.Context, frame []byte, action attendance.Action) (Outcome, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if !c.lastDone.IsZero() {
		if wait := c.cooldown - c.now().Sub(c.lastDone); wait > 0 {
			c.mu.Unlock()
			return Outcome{}, fmt.Errorf("%w: retry in %s", ErrTooSoon, wait.Round(time.Millisecond))
		}
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.lastDone = c.now()
		c.mu.Unlock()
	}()

	attemptID := uuid.NewString()

	// The per-attempt deadline cancels the request context; the HTTP
	// transport tears down the connection rather than leaving it dangling.
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.submit(reqCtx, apiclient.RecognizeRequest{
		AttemptID: attemptID,
		DeviceID:  c.deviceID,
		Frame:     base64.StdEncoding.EncodeToString(frame),
		Action:    string(action),
	})

	switch {
	case err == nil:
		return outcomeFromResult(attemptID, result), nil
	case ctx.Err() != nil:
		// The caller's own context ended; propagate instead of classifying.
		return Outcome{}, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{AttemptID: attemptID, Kind: OutcomeTimedOut, Reason: "recognition timed out"}, nil
	default:
		return Outcome{AttemptID: attemptID, Kind: OutcomeServerError, Reason: err.Error()}, nil
	}
}

// outcomeFromResult maps a server response to a terminal outcome.
func outcomeFromResult(attemptID string, result *apiclient.RecognizeResult) Outcome {
	if !result.Matched {
		return Outcome{
			AttemptID:   attemptID,
			Kind:        OutcomeNotMatched,
			Reason:      result.Reason,
			Suggestions: result.Suggestions,
		}
	}
	return Outcome{
		AttemptID:  attemptID,
		Kind:       OutcomeMatched,
		EmployeeID: result.EmployeeID,
		Employee:   result.Employee,
		Confidence: result.Confidence,
		Attendance: result.Attendance,
		Conflict:   result.Conflict,
		Reason:     result.Reason,
	}
}
