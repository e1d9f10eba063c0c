package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeesHandler serves read-only employee directory lookups.
type EmployeesHandler struct {
	directory database.EmployeeDirectory
}

// NewEmployeesHandler creates a new EmployeesHandler.
func NewEmployeesHandler(directory database.EmployeeDirectory) *EmployeesHandler {
	return &EmployeesHandler{directory: directory}
}

// Get handles GET /employees/{employeeID}.
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.directory == nil {
		respondError(w, http.StatusServiceUnavailable, "employee directory not configured")
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required")
		return
	}

	emp, err := h.directory.GetEmployee(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to look up employee %s: %v", sanitizeForLog(employeeID), err)
		if errors.Is(err, database.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "employee directory unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to look up employee")
		return
	}
	if emp == nil {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}

	respondJSON(w, http.StatusOK, emp)
}
