package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/apiclient"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export attendance records to CSV",
	Long: `Fetch attendance history for one or more employees over a date range
and write it as CSV for payroll processing.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSlice("employee", nil, "Employee ID to include (repeatable)")
	reportCmd.Flags().String("from", "", "Range start (YYYY-MM-DD, default 30 days ago)")
	reportCmd.Flags().String("to", "", "Range end (YYYY-MM-DD, default today)")
	reportCmd.Flags().String("output", "attendance.csv", "Output CSV file")
}

func runReport(cmd *cobra.Command, args []string) error {
	serverURL := os.Getenv("ATTENDANCE_URL")
	if serverURL == "" {
		return errors.New("ATTENDANCE_URL environment variable is required")
	}

	employees := mustGetStringSlice(cmd, "employee")
	if len(employees) == 0 {
		return errors.New("at least one --employee is required")
	}

	to := mustGetString(cmd, "to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}
	from := mustGetString(cmd, "from")
	if from == "" {
		toDay, err := time.Parse("2006-01-02", to)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		from = toDay.AddDate(0, 0, -30).Format("2006-01-02")
	}

	output := mustGetString(cmd, "output")
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"employee_id", "record_date", "check_in", "check_out", "hours_worked", "status"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	client := apiclient.New(serverURL)

	bar := progressbar.NewOptions(len(employees),
		progressbar.OptionSetDescription("Exporting attendance"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("employees"),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	total := 0
	for _, employeeID := range employees {
		history, err := client.History(cmd.Context(), employeeID, from, to)
		if err != nil {
			return fmt.Errorf("fetching history for %s: %w", employeeID, err)
		}

		for _, rec := range history.Records {
			row := []string{
				rec.EmployeeID,
				rec.RecordDate,
				formatTime(rec.CheckInTime),
				formatTime(rec.CheckOutTime),
				formatHours(rec.HoursWorked),
				string(rec.Status),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
			total++
		}
		bar.Add(1)
	}

	fmt.Printf("\nWrote %d records for %d employees to %s (%s to %s)\n", total, len(employees), output, from, to)
	return nil
}

// formatTime renders an optional timestamp for CSV output.
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// formatHours renders an optional hours value for CSV output.
func formatHours(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', 2, 64)
}
