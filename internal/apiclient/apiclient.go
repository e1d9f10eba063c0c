// Package apiclient is the typed client for the attendance API, used by
// kiosk terminals and CLI commands.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Client talks to the attendance server.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// resolveURL builds the full URL for an API endpoint path.
func (c *Client) resolveURL(endpoint string) string {
	return c.baseURL + "/api/v1/" + strings.TrimPrefix(endpoint, "/")
}

// RecognizeRequest is the payload for a recognition attempt.
type RecognizeRequest struct {
	AttemptID string `json:"attempt_id,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	Frame     string `json:"frame"` // base64 encoded image bytes
	Action    string `json:"action"`
}

// RecognizeResult is the outcome of a recognition attempt. Exactly one
// of the matched/conflict/reason shapes is meaningful per outcome.
type RecognizeResult struct {
	Matched     bool                        `json:"matched"`
	EmployeeID  string                      `json:"employee_id,omitempty"`
	Employee    string                      `json:"employee,omitempty"`
	Confidence  float64                     `json:"confidence,omitempty"`
	Attendance  *database.AttendanceRecord  `json:"attendance,omitempty"`
	Conflict    attendance.ConflictKind     `json:"conflict,omitempty"`
	Reason      string                      `json:"reason,omitempty"`
	Suggestions []string                    `json:"suggestions,omitempty"`
}

// MarkRequest is the payload for a manual attendance mark.
type MarkRequest struct {
	EmployeeID string `json:"employee_id"`
	Action     string `json:"action"`
}

// MarkResult is the outcome of a manual mark.
type MarkResult struct {
	Attendance *database.AttendanceRecord `json:"attendance,omitempty"`
	Conflict   attendance.ConflictKind    `json:"conflict,omitempty"`
	Reason     string                     `json:"reason,omitempty"`
}

// HistoryResult is an employee's record listing.
type HistoryResult struct {
	EmployeeID string                      `json:"employee_id"`
	Records    []database.AttendanceRecord `json:"records"`
}

// Today returns the employee's current attendance state.
func (c *Client) Today(ctx context.Context, employeeID string) (*attendance.TodayState, error) {
	return doGetJSON[attendance.TodayState](ctx, c, "attendance/today/"+url.PathEscape(employeeID))
}

// Recognize submits a frame with an intended action.
func (c *Client) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	return doPostJSON[RecognizeResult](ctx, c, "attendance/recognize", req)
}

// Mark applies a manual attendance action for an employee.
func (c *Client) Mark(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	return doPostJSON[MarkResult](ctx, c, "attendance/mark", req)
}

// History lists an employee's records in the [from, to] date range.
func (c *Client) History(ctx context.Context, employeeID, from, to string) (*HistoryResult, error) {
	endpoint := fmt.Sprintf("attendance/history/%s?from=%s&to=%s",
		url.PathEscape(employeeID), url.QueryEscape(from), url.QueryEscape(to))
	return doGetJSON[HistoryResult](ctx, c, endpoint)
}

// Employee returns a directory entry.
func (c *Client) Employee(ctx context.Context, employeeID string) (*database.Employee, error) {
	return doGetJSON[database.Employee](ctx, c, "employees/"+url.PathEscape(employeeID))
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	_, err := doGetJSON[map[string]string](ctx, c, "health")
	return err
}
