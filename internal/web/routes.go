package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/quality"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	resolver := attendance.NewResolver(s.deps.Ledger, nil)
	service := attendance.NewService(s.deps.Ledger, nil)
	evaluator := quality.NewEvaluator(s.config.Quality.MinFrameBytes, s.config.Quality.MaxFrameBytes)

	// Create handlers
	attendanceHandler := handlers.NewAttendanceHandler(resolver, service, s.deps.Ledger)
	recognizeHandler := handlers.NewRecognizeHandler(evaluator, s.deps.Matcher, service, s.deps.Directory)
	employeesHandler := handlers.NewEmployeesHandler(s.deps.Directory)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Attendance
		r.Get("/attendance/today/{employeeID}", attendanceHandler.Today)
		r.Get("/attendance/history/{employeeID}", attendanceHandler.History)
		r.Post("/attendance/recognize", recognizeHandler.Recognize)
		r.Post("/attendance/mark", attendanceHandler.Mark)

		// Employee directory
		r.Get("/employees/{employeeID}", employeesHandler.Get)
	})
}
