// Package kiosk runs the terminal-side recognition loop: capture a
// frame, gate it on quality locally, and submit it through the
// single-flight coordinator.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/quality"
)

// Kiosk ties the capture sequencer and the coordinator into a periodic
// scan loop.
type Kiosk struct {
	sequencer   *capture.Sequencer
	coordinator *Coordinator
	interval    time.Duration
	out         io.Writer
}

// New creates a kiosk loop scanning at the given interval.
func New(sequencer *capture.Sequencer, coordinator *Coordinator, interval time.Duration) *Kiosk {
	return &Kiosk{
		sequencer:   sequencer,
		coordinator: coordinator,
		interval:    interval,
		out:         os.Stdout,
	}
}

// Run scans until the context ends. Each tick captures one frame and
// submits it with the auto action; local rejections (bad quality, busy,
// cooldown) never reach the network.
func (k *Kiosk) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	fmt.Fprintf(k.out, "scanning every %s, press Ctrl+C to stop\n", k.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		k.scanOnce(ctx)
	}
}

// scanOnce runs a single capture and submit cycle.
func (k *Kiosk) scanOnce(ctx context.Context) {
	frame, err := k.sequencer.Single(ctx)
	defer k.sequencer.Reset()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(k.out, "capture failed: %v\n", err)
		}
		return
	}

	// Quality rejection is handled locally, no round-trip.
	if !frame.Score.Acceptable() {
		fmt.Fprintf(k.out, "frame rejected: %s\n", strings.Join(frame.Score.RejectionReasons, ", "))
		for _, hint := range quality.Suggestions(frame.Score) {
			fmt.Fprintf(k.out, "  hint: %s\n", hint)
		}
		return
	}

	outcome, err := k.coordinator.Submit(ctx, frame.Data, attendance.ActionAuto)
	if err != nil {
		// Busy and cooldown are part of normal pacing, not failures.
		if !errors.Is(err, ErrBusy) && !errors.Is(err, ErrTooSoon) && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(k.out, "submit failed: %v\n", err)
		}
		return
	}

	k.report(outcome)
}

// report prints the outcome of a completed attempt for the person at
// the terminal.
func (k *Kiosk) report(outcome Outcome) {
	switch outcome.Kind {
	case OutcomeMatched:
		name := outcome.Employee
		if name == "" {
			name = outcome.EmployeeID
		}
		if outcome.Conflict != "" {
			fmt.Fprintf(k.out, "%s: %s\n", name, outcome.Reason)
			return
		}
		if outcome.Attendance != nil && outcome.Attendance.Status == "COMPLETED" {
			hours := 0.0
			if outcome.Attendance.HoursWorked != nil {
				hours = *outcome.Attendance.HoursWorked
			}
			fmt.Fprintf(k.out, "goodbye %s, %.2f hours recorded\n", name, hours)
			return
		}
		fmt.Fprintf(k.out, "welcome %s (confidence %.2f)\n", name, outcome.Confidence)
	case OutcomeNotMatched:
		fmt.Fprintf(k.out, "face not recognized: %s\n", outcome.Reason)
		for _, hint := range outcome.Suggestions {
			fmt.Fprintf(k.out, "  hint: %s\n", hint)
		}
	case OutcomeTimedOut:
		fmt.Fprintln(k.out, "recognition timed out, try again")
	case OutcomeServerError:
		fmt.Fprintf(k.out, "server error: %s\n", outcome.Reason)
	}
}
