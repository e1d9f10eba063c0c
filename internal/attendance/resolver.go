package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// TodayState answers what action is currently legal for an employee.
// It is advisory for clients: the service re-verifies against the ledger
// at commit time, because two capture devices can race for the same
// employee.
type TodayState struct {
	EmployeeID  string                       `json:"employee_id"`
	CanCheckIn  bool                         `json:"can_check_in"`
	CanCheckOut bool                         `json:"can_check_out"`
	Status      database.AttendanceStatus    `json:"status"`
	Record      *database.AttendanceRecord   `json:"record,omitempty"`
}

// Resolver computes the current attendance state for "today" from the
// ledger. On ledger failure it returns an explicit error wrapping
// database.ErrUnavailable; it never guesses a default state.
type Resolver struct {
	ledger database.AttendanceLedger
	loc    *time.Location
	now    func() time.Time
}

// NewResolver creates a resolver over the given ledger. A nil location
// means the server's local time zone.
func NewResolver(ledger database.AttendanceLedger, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{ledger: ledger, loc: loc, now: time.Now}
}

// TodayKey returns the ledger key for the current calendar day.
func (r *Resolver) TodayKey() string {
	return database.DateKey(r.now(), r.loc)
}

// Today resolves the employee's state for the current calendar day.
func (r *Resolver) Today(ctx context.Context, employeeID string) (TodayState, error) {
	return r.ForDate(ctx, employeeID, r.TodayKey())
}

// ForDate resolves the employee's state for a specific calendar day.
func (r *Resolver) ForDate(ctx context.Context, employeeID, recordDate string) (TodayState, error) {
	rec, err := r.ledger.GetForDate(ctx, employeeID, recordDate)
	if err != nil {
		return TodayState{}, fmt.Errorf("resolving attendance state: %w", err)
	}

	state := TodayState{EmployeeID: employeeID, Record: rec}
	switch {
	case rec == nil || rec.CheckInTime == nil:
		state.CanCheckIn = true
		state.Status = database.StatusNotChecked
	case rec.CheckOutTime == nil:
		state.CanCheckOut = true
		state.Status = database.StatusCheckedIn
	default:
		state.Status = database.StatusCompleted
	}
	return state, nil
}
