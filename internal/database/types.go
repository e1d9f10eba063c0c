package database

import "time"

// AttendanceStatus is the lifecycle state of a day's attendance record.
type AttendanceStatus string

const (
	StatusNotChecked AttendanceStatus = "NOT_CHECKED"
	StatusCheckedIn  AttendanceStatus = "CHECKED_IN"
	StatusCompleted  AttendanceStatus = "COMPLETED"
)

// AttendanceRecord is one employee's ledger entry for one calendar day.
// There is at most one record per (employee, date); the check-in and
// check-out timestamps are immutable once written.
type AttendanceRecord struct {
	EmployeeID   string           `json:"employee_id"`
	RecordDate   string           `json:"record_date"` // employee-local calendar day, YYYY-MM-DD
	CheckInTime  *time.Time       `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time       `json:"check_out_time,omitempty"`
	HoursWorked  *float64         `json:"hours_worked,omitempty"`
	Status       AttendanceStatus `json:"status"`
}

// Employee is a directory entry from the HR system.
type Employee struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Department  string `json:"department,omitempty"`
	Active      bool   `json:"active"`
	DisplayName string `json:"display_name,omitempty"`
}

// DateKey formats a timestamp as the employee-local calendar day used as
// the ledger key.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
