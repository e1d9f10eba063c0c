package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler serves attendance state reads and manual marks.
type AttendanceHandler struct {
	resolver *attendance.Resolver
	service  *attendance.Service
	ledger   database.AttendanceLedger
	now      func() time.Time
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(resolver *attendance.Resolver, service *attendance.Service, ledger database.AttendanceLedger) *AttendanceHandler {
	return &AttendanceHandler{
		resolver: resolver,
		service:  service,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Today handles GET /attendance/today/{employeeID}. The state is
// resolved from the ledger; a ledger outage is reported as unavailable
// instead of a guessed default.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required")
		return
	}

	state, err := h.resolver.Today(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to resolve state for %s: %v", sanitizeForLog(employeeID), err)
		if errors.Is(err, database.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "attendance ledger unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to resolve attendance state")
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// historyResponse is the payload of the history endpoint.
type historyResponse struct {
	EmployeeID string                      `json:"employee_id"`
	Records    []database.AttendanceRecord `json:"records"`
}

// History handles GET /attendance/history/{employeeID}?from=...&to=...
// Dates are calendar days (YYYY-MM-DD); the range defaults to the last
// 30 days.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required")
		return
	}

	to := r.URL.Query().Get("to")
	if to == "" {
		to = h.now().Format("2006-01-02")
	}
	toDay, err := time.Parse("2006-01-02", to)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
		return
	}

	from := r.URL.Query().Get("from")
	if from == "" {
		from = toDay.AddDate(0, 0, -30).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", from); err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	if from > to {
		respondError(w, http.StatusBadRequest, "'from' date is after 'to' date")
		return
	}

	records, err := h.ledger.ListRange(r.Context(), employeeID, from, to)
	if err != nil {
		log.Printf("Failed to list history for %s: %v", sanitizeForLog(employeeID), err)
		if errors.Is(err, database.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "attendance ledger unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list attendance history")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}

	respondJSON(w, http.StatusOK, historyResponse{EmployeeID: employeeID, Records: records})
}

// markRequest is the payload of a manual attendance mark.
type markRequest struct {
	EmployeeID string `json:"employee_id"`
	Action     string `json:"action"`
}

// markResponse reports the written record, or the conflict that
// prevented the write.
type markResponse struct {
	Attendance *database.AttendanceRecord `json:"attendance,omitempty"`
	Conflict   attendance.ConflictKind    `json:"conflict,omitempty"`
	Reason     string                     `json:"reason,omitempty"`
}

// Mark handles POST /attendance/mark: a manual check-in or check-out
// without face recognition, for operators correcting missed events.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EmployeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required")
		return
	}

	action, err := attendance.ParseAction(req.Action)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.service.Record(r.Context(), req.EmployeeID, action, h.now())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, markResponse{Attendance: rec})
	case errors.Is(err, attendance.ErrCheckOutTooEarly):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrUnavailable):
		log.Printf("Ledger unavailable marking %s: %v", sanitizeForLog(req.EmployeeID), err)
		respondError(w, http.StatusServiceUnavailable, "attendance ledger unavailable")
	default:
		if conflict, ok := attendance.AsConflict(err); ok {
			respondJSON(w, http.StatusOK, markResponse{Conflict: conflict.Kind, Reason: conflict.Error()})
			return
		}
		log.Printf("Failed to mark attendance for %s: %v", sanitizeForLog(req.EmployeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
	}
}
