package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Directory reads employee records from the HR schema.
type Directory struct {
	pool  *Pool
	title cases.Caser
}

// NewDirectory creates a Directory over an established pool.
func NewDirectory(pool *Pool) *Directory {
	return &Directory{
		pool:  pool,
		title: cases.Title(language.Und),
	}
}

// GetEmployee returns the directory entry, or nil if unknown.
func (d *Directory) GetEmployee(ctx context.Context, employeeID string) (*database.Employee, error) {
	var emp database.Employee
	var active int
	err := d.pool.db.QueryRowContext(ctx,
		`SELECT id, full_name, COALESCE(department, ''), active
		 FROM employees WHERE id = ?`, employeeID).
		Scan(&emp.ID, &emp.FullName, &emp.Department, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w: %w", database.ErrUnavailable, err)
	}

	emp.Active = active != 0
	emp.DisplayName = d.displayName(emp.FullName)
	return &emp, nil
}

// displayName normalizes HR names (often stored ALL CAPS) to title case
// for kiosk greetings.
func (d *Directory) displayName(fullName string) string {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return ""
	}
	return d.title.String(strings.ToLower(name))
}
