package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Service is the single writer of attendance records. Every operation
// re-resolves the employee's state at commit time through the ledger's
// conditional primitives; the client-cached state is never trusted.
type Service struct {
	ledger database.AttendanceLedger
	loc    *time.Location
}

// NewService creates the mutation service. A nil location means the
// server's local time zone.
func NewService(ledger database.AttendanceLedger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{ledger: ledger, loc: loc}
}

// RecordCheckIn creates the day's record for the employee. Returns a
// ConflictError(alreadyCheckedIn) when a record already exists, without
// mutating anything.
func (s *Service) RecordCheckIn(ctx context.Context, employeeID string, at time.Time) (*database.AttendanceRecord, error) {
	date := database.DateKey(at, s.loc)

	inserted, err := s.ledger.InsertCheckIn(ctx, employeeID, date, at)
	if err != nil {
		return nil, fmt.Errorf("recording check-in: %w", err)
	}
	if !inserted {
		return nil, &ConflictError{Kind: ConflictAlreadyCheckedIn}
	}

	return s.mustGet(ctx, employeeID, date)
}

// RecordCheckOut closes the day's record and derives hours worked.
// Conflicts are classified by re-reading the record the write refused to
// touch: notCheckedIn when no open record exists, alreadyCompleted when
// the day is already closed.
func (s *Service) RecordCheckOut(ctx context.Context, employeeID string, at time.Time) (*database.AttendanceRecord, error) {
	date := database.DateKey(at, s.loc)

	updated, err := s.ledger.CompleteCheckOut(ctx, employeeID, date, at)
	if err != nil {
		return nil, fmt.Errorf("recording check-out: %w", err)
	}
	if updated {
		return s.mustGet(ctx, employeeID, date)
	}

	rec, err := s.ledger.GetForDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("classifying check-out conflict: %w", err)
	}
	switch {
	case rec == nil || rec.CheckInTime == nil:
		return nil, &ConflictError{Kind: ConflictNotCheckedIn}
	case rec.CheckOutTime != nil:
		return nil, &ConflictError{Kind: ConflictAlreadyCompleted}
	default:
		return nil, ErrCheckOutTooEarly
	}
}

// RecordAuto dispatches to check-in or check-out based on the current
// state. An already completed day is a conflict. The dispatch target
// re-verifies atomically, so a racing device flips the outcome into a
// conflict rather than a duplicate event.
func (s *Service) RecordAuto(ctx context.Context, employeeID string, at time.Time) (*database.AttendanceRecord, error) {
	date := database.DateKey(at, s.loc)

	rec, err := s.ledger.GetForDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("resolving state for auto record: %w", err)
	}

	switch {
	case rec == nil || rec.CheckInTime == nil:
		return s.RecordCheckIn(ctx, employeeID, at)
	case rec.CheckOutTime == nil:
		return s.RecordCheckOut(ctx, employeeID, at)
	default:
		return nil, &ConflictError{Kind: ConflictAlreadyCompleted}
	}
}

// Record applies the given action at the given time.
func (s *Service) Record(ctx context.Context, employeeID string, action Action, at time.Time) (*database.AttendanceRecord, error) {
	switch action {
	case ActionCheckIn:
		return s.RecordCheckIn(ctx, employeeID, at)
	case ActionCheckOut:
		return s.RecordCheckOut(ctx, employeeID, at)
	case ActionAuto:
		return s.RecordAuto(ctx, employeeID, at)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

// mustGet re-reads a record the service just wrote.
func (s *Service) mustGet(ctx context.Context, employeeID, date string) (*database.AttendanceRecord, error) {
	rec, err := s.ledger.GetForDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("reading back attendance record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("attendance record for %s on %s vanished after write", employeeID, date)
	}
	return rec, nil
}
