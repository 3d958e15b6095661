/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. hlog:       Structured request logging through zerolog
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/employees/*      Employees, attendance views, payroll
  /api/attendance/*     Attendance writes
  /api/advances/*       Advance ledger
  /api/payroll/*        Bulk payroll
  /api/customers/*      Customer accounts
  /api/invoices/*       Invoices and payments
  /api/batch-runs/*     Background batch runs
  /api/scenarios/*      Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/balance", h.GetEmployeeBalance)
			r.Get("/{id}/attendance", h.GetEmployeeAttendance)
			r.Get("/{id}/attendance/summary", h.GetEmployeeAttendanceSummary)
			r.Get("/{id}/advances", h.GetEmployeeAdvances)
			r.Get("/{id}/payroll/preview", h.PreviewPayroll)
			r.Post("/{id}/payroll/commit", h.CommitPayroll)
			r.Get("/{id}/payments", h.ListEmployeePayments)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.MarkAttendance)
			r.Post("/bulk", h.BulkMarkAttendance)
			r.Delete("/{id}", h.DeleteAttendance)
		})

		// Advance routes
		r.Route("/advances", func(r chi.Router) {
			r.Post("/", h.GrantAdvance)
			r.Post("/{id}/settle", h.SettleAdvance)
			r.Get("/pending/{entityID}", h.PendingAdvances)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/bulk", h.BulkCommitPayroll)
		})

		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{phone}", h.GetCustomer)
			r.Get("/{phone}/statement", h.GetStatement)
			r.Get("/{phone}/balance", h.GetCustomerBalance)
			r.Post("/{phone}/advances", h.RecordCustomerAdvance)
			r.Get("/{phone}/invoices", h.ListCustomerInvoices)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/pay", h.MarkInvoicePaid)
		})

		// Batch run routes
		r.Route("/batch-runs", func(r chi.Router) {
			r.Get("/", h.ListBatchRuns)
			r.Post("/", h.EnqueueBatchRun)
			r.Get("/{id}", h.GetBatchRun)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
