package database

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks storage failures so callers can classify them as
// retryable instead of guessing a default state.
var ErrUnavailable = errors.New("data source unavailable")

// AttendanceLedger is the persistent attendance store. The two write
// primitives are conditional: they mutate only when the per-(employee,
// date) state machine allows it and report whether they did. The
// check-then-write sequence is atomic inside the implementation, so two
// racing submissions for the same key cannot both succeed.
type AttendanceLedger interface {
	// GetForDate returns the record for (employeeID, recordDate), or nil
	// if the employee has no record for that day.
	GetForDate(ctx context.Context, employeeID, recordDate string) (*AttendanceRecord, error)

	// InsertCheckIn creates the day's record with the given check-in
	// time. Returns false without mutating when a record already exists.
	InsertCheckIn(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error)

	// CompleteCheckOut sets the check-out time and derives hours worked,
	// but only when the record is checked in, not yet completed, and the
	// check-out time is after the check-in time. Returns false without
	// mutating otherwise.
	CompleteCheckOut(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error)

	// ListRange returns the employee's records with recordDate in
	// [fromDate, toDate], oldest first.
	ListRange(ctx context.Context, employeeID, fromDate, toDate string) ([]AttendanceRecord, error)
}

// EmployeeDirectory is the read-only view of the HR employee directory.
type EmployeeDirectory interface {
	// GetEmployee returns the directory entry, or nil if unknown.
	GetEmployee(ctx context.Context, employeeID string) (*Employee, error)
}
