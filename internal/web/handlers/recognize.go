package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/quality"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// RecognizeHandler turns one captured frame into at most one attendance
// event: quality gate, identity match, then the atomic ledger write.
type RecognizeHandler struct {
	evaluator *quality.Evaluator
	matcher   recognizer.Matcher
	service   *attendance.Service
	directory database.EmployeeDirectory
	now       func() time.Time
}

// NewRecognizeHandler creates a new RecognizeHandler. The directory may
// be nil; responses then carry the employee ID without a display name.
func NewRecognizeHandler(evaluator *quality.Evaluator, matcher recognizer.Matcher, service *attendance.Service, directory database.EmployeeDirectory) *RecognizeHandler {
	return &RecognizeHandler{
		evaluator: evaluator,
		matcher:   matcher,
		service:   service,
		directory: directory,
		now:       time.Now,
	}
}

// recognizeRequest is the payload of a recognition attempt.
type recognizeRequest struct {
	AttemptID string `json:"attempt_id"`
	DeviceID  string `json:"device_id"`
	Frame     string `json:"frame"` // base64 encoded image bytes
	Action    string `json:"action"`
}

// recognizeResponse reports the attempt outcome. A conflict still means
// the face was recognized; only the ledger write was refused.
type recognizeResponse struct {
	Matched     bool                       `json:"matched"`
	EmployeeID  string                     `json:"employee_id,omitempty"`
	Employee    string                     `json:"employee,omitempty"`
	Confidence  float64                    `json:"confidence,omitempty"`
	Attendance  *database.AttendanceRecord `json:"attendance,omitempty"`
	Conflict    attendance.ConflictKind    `json:"conflict,omitempty"`
	Reason      string                     `json:"reason,omitempty"`
	Suggestions []string                   `json:"suggestions,omitempty"`
}

// Recognize handles POST /attendance/recognize.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	action, err := attendance.ParseAction(req.Action)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := base64.StdEncoding.DecodeString(req.Frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, "frame is not valid base64")
		return
	}

	// Quality gate. Kiosks gate locally too; this protects the matcher
	// from clients that don't.
	score := h.evaluator.Evaluate(frame)
	if !score.Acceptable() {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "frame rejected: " + strings.Join(score.RejectionReasons, ", "),
			"suggestions": quality.Suggestions(score),
		})
		return
	}

	match, err := h.matcher.Match(r.Context(), frame)
	if err != nil {
		if errors.Is(err, recognizer.ErrNoMatch) {
			respondJSON(w, http.StatusOK, recognizeResponse{
				Matched:     false,
				Reason:      "no face matched",
				Suggestions: []string{"Look directly at the camera", "Move closer to the camera"},
			})
			return
		}
		log.Printf("Matcher failed for device %s: %v", sanitizeForLog(req.DeviceID), err)
		respondError(w, http.StatusServiceUnavailable, "matching service unavailable")
		return
	}

	resp := recognizeResponse{
		Matched:    true,
		EmployeeID: match.EmployeeID,
		Confidence: match.Confidence,
	}

	if h.directory != nil {
		emp, err := h.directory.GetEmployee(r.Context(), match.EmployeeID)
		if err != nil {
			// Directory outage degrades the greeting, not the event.
			log.Printf("Directory lookup failed for %s: %v", sanitizeForLog(match.EmployeeID), err)
		} else if emp != nil {
			resp.Employee = emp.DisplayName
			if !emp.Active {
				resp.Matched = false
				resp.EmployeeID = ""
				resp.Employee = ""
				resp.Reason = "employee is not active"
				respondJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	rec, err := h.service.Record(r.Context(), match.EmployeeID, action, h.now())
	switch {
	case err == nil:
		resp.Attendance = rec
	case errors.Is(err, attendance.ErrCheckOutTooEarly):
		resp.Reason = err.Error()
	case errors.Is(err, database.ErrUnavailable):
		log.Printf("Ledger unavailable recording %s: %v", sanitizeForLog(match.EmployeeID), err)
		respondError(w, http.StatusServiceUnavailable, "attendance ledger unavailable")
		return
	default:
		conflict, ok := attendance.AsConflict(err)
		if !ok {
			log.Printf("Failed to record attendance for %s: %v", sanitizeForLog(match.EmployeeID), err)
			respondError(w, http.StatusInternalServerError, "failed to record attendance")
			return
		}
		resp.Conflict = conflict.Kind
		resp.Reason = conflict.Error()
	}

	respondJSON(w, http.StatusOK, resp)
}
