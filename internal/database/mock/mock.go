// Package mock provides an in-memory AttendanceLedger and
// EmployeeDirectory for unit and handler tests. The ledger holds its
// mutex across each whole check-then-write sequence, giving the same
// atomicity the PostgreSQL implementation gets from its constraints.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

type ledgerKey struct {
	employeeID string
	recordDate string
}

// Ledger is an in-memory attendance ledger.
type Ledger struct {
	mu      sync.Mutex
	records map[ledgerKey]*database.AttendanceRecord

	// Fail makes every call return ErrUnavailable, for resolver
	// failure-path tests.
	Fail bool
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[ledgerKey]*database.AttendanceRecord)}
}

func (l *Ledger) err() error {
	if l.Fail {
		return fmt.Errorf("mock ledger: %w", database.ErrUnavailable)
	}
	return nil
}

// GetForDate returns a copy of the record for (employeeID, recordDate).
func (l *Ledger) GetForDate(ctx context.Context, employeeID, recordDate string) (*database.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.err(); err != nil {
		return nil, err
	}

	rec, ok := l.records[ledgerKey{employeeID, recordDate}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// InsertCheckIn creates the day's record unless one already exists.
func (l *Ledger) InsertCheckIn(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.err(); err != nil {
		return false, err
	}

	key := ledgerKey{employeeID, recordDate}
	if _, exists := l.records[key]; exists {
		return false, nil
	}

	checkIn := at
	l.records[key] = &database.AttendanceRecord{
		EmployeeID:  employeeID,
		RecordDate:  recordDate,
		CheckInTime: &checkIn,
		Status:      database.StatusCheckedIn,
	}
	return true, nil
}

// CompleteCheckOut closes the day's record when legal.
func (l *Ledger) CompleteCheckOut(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.err(); err != nil {
		return false, err
	}

	rec, ok := l.records[ledgerKey{employeeID, recordDate}]
	if !ok || rec.CheckInTime == nil || rec.CheckOutTime != nil || !at.After(*rec.CheckInTime) {
		return false, nil
	}

	checkOut := at
	hours := checkOut.Sub(*rec.CheckInTime).Hours()
	rec.CheckOutTime = &checkOut
	rec.HoursWorked = &hours
	rec.Status = database.StatusCompleted
	return true, nil
}

// ListRange returns the employee's records within the date range.
func (l *Ledger) ListRange(ctx context.Context, employeeID, fromDate, toDate string) ([]database.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.err(); err != nil {
		return nil, err
	}

	var out []database.AttendanceRecord
	for key, rec := range l.records {
		if key.employeeID != employeeID {
			continue
		}
		if key.recordDate < fromDate || key.recordDate > toDate {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordDate < out[j].RecordDate })
	return out, nil
}

// Directory is an in-memory employee directory.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]database.Employee
}

// NewDirectory creates a directory preloaded with the given employees.
func NewDirectory(employees ...database.Employee) *Directory {
	d := &Directory{employees: make(map[string]database.Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

// GetEmployee returns the directory entry, or nil if unknown.
func (d *Directory) GetEmployee(ctx context.Context, employeeID string) (*database.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[employeeID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
