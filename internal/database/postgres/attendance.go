package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// Both write primitives are single conditional statements; the UNIQUE
// constraint on (employee_id, record_date) and the guarded UPDATE make
// racing writers resolve to exactly one winner inside the database.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) GetForDate(ctx context.Context, employeeID, recordDate string) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	err := r.pool.QueryRow(ctx,
		`SELECT employee_id, record_date::text, check_in_time, check_out_time, hours_worked, status
		 FROM attendance_records WHERE employee_id = $1 AND record_date = $2`,
		employeeID, recordDate).
		Scan(&rec.EmployeeID, &rec.RecordDate, &rec.CheckInTime, &rec.CheckOutTime, &rec.HoursWorked, &rec.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance record: %w: %w", database.ErrUnavailable, err)
	}
	return &rec, nil
}

func (r *AttendanceRepository) InsertCheckIn(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_records (employee_id, record_date, check_in_time, status)
		 VALUES ($1, $2, $3, 'CHECKED_IN')
		 ON CONFLICT (employee_id, record_date) DO NOTHING`,
		employeeID, recordDate, at)
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w: %w", database.ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert check-in rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *AttendanceRepository) CompleteCheckOut(ctx context.Context, employeeID, recordDate string, at time.Time) (bool, error) {
	// Hours are derived in SQL from the stored check-in time, so the
	// value can never disagree with the timestamps on the row.
	result, err := r.pool.Exec(ctx,
		`UPDATE attendance_records
		 SET check_out_time = $3,
		     hours_worked = EXTRACT(EPOCH FROM ($3 - check_in_time)) / 3600,
		     status = 'COMPLETED',
		     updated_at = NOW()
		 WHERE employee_id = $1 AND record_date = $2
		   AND check_out_time IS NULL
		   AND $3 > check_in_time`,
		employeeID, recordDate, at)
	if err != nil {
		return false, fmt.Errorf("complete check-out: %w: %w", database.ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete check-out rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *AttendanceRepository) ListRange(ctx context.Context, employeeID, fromDate, toDate string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT employee_id, record_date::text, check_in_time, check_out_time, hours_worked, status
		 FROM attendance_records
		 WHERE employee_id = $1 AND record_date BETWEEN $2 AND $3
		 ORDER BY record_date`,
		employeeID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w: %w", database.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.EmployeeID, &rec.RecordDate, &rec.CheckInTime, &rec.CheckOutTime, &rec.HoursWorked, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}
