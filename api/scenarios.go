/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Named demo datasets for evaluating the system without typing in a
  month of records. Each scenario wipes the database and seeds a
  self-consistent world, so loading the same name twice lands on the
  same state (idempotent by construction).

AVAILABLE SCENARIOS:
  brickworks-week       A small crew, one work week of attendance with
                        overtime, cash advances — ready for a payroll run.
                        One employee has no daily rate, so a bulk run
                        shows the defaulted-rate flag.
  brickworks-customers  Customer accounts: pending invoices and an
                        advance payment, showing a negative balance.

USAGE:
  POST /api/scenarios/load  {"name": "brickworks-week"}
  or: server seed brickworks-week   (CLI)

SEE ALSO:
  - handlers.go: the services seeding goes through
  - cmd/server/main.go: the seed subcommand
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brickworks/ledger-engine/attendance"
	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/receivables"
)

// resettable is implemented by stores that can wipe all data.
type resettable interface {
	Reset(ctx context.Context) error
}

// Scenario is one named demo dataset.
type Scenario struct {
	Name        string
	Description string
	load        func(ctx context.Context, h *Handler) error
}

// Scenarios lists every available demo dataset.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "brickworks-week",
			Description: "Crew of four, one work week with overtime and advances, ready for payroll",
			load:        loadBrickworksWeek,
		},
		{
			Name:        "brickworks-customers",
			Description: "Customer accounts with pending invoices and an advance payment",
			load:        loadBrickworksCustomers,
		},
	}
}

// LoadScenarioByName wipes the store and seeds the named scenario. Used
// by the HTTP handler and the seed CLI subcommand.
func (h *Handler) LoadScenarioByName(ctx context.Context, name string) error {
	const op = "api.load_scenario"

	store, ok := h.Store.(resettable)
	if !ok {
		return ledger.NewValidationError(op, "store does not support scenario loading")
	}

	for _, sc := range Scenarios() {
		if sc.Name != name {
			continue
		}
		if err := store.Reset(ctx); err != nil {
			return ledger.NewPersistenceError(op, err)
		}
		h.Balances.InvalidateAll()
		if err := sc.load(ctx, h); err != nil {
			return err
		}
		h.currentScenario = name
		h.log.Info().Str("scenario", name).Msg("scenario loaded")
		return nil
	}
	return ledger.NewNotFoundError(op, fmt.Sprintf("scenario %q", name), ledger.ErrRecordNotFound)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := Scenarios()
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, sc := range scenarios {
		dtos[i] = ScenarioDTO{Name: sc.Name, Description: sc.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario reports which scenario was loaded last, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"current": h.currentScenario})
}

// LoadScenario wipes the database and seeds a named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleAdmin) {
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.LoadScenarioByName(r.Context(), req.Name); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Name})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleAdmin) {
		return
	}

	store, ok := h.Store.(resettable)
	if !ok {
		writeError(w, http.StatusBadRequest, "store does not support reset", nil)
		return
	}
	if err := store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Balances.InvalidateAll()
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

// loadBrickworksWeek seeds a crew of four and the week just ended.
// Karim has no daily rate, so payroll prices him on the policy default
// and flags the run.
func loadBrickworksWeek(ctx context.Context, h *Handler) error {
	weekEnd := ledger.Today().AddDays(-1)
	weekStart := weekEnd.AddDays(-5)

	rate := func(v float64) *ledger.Amount {
		a := ledger.NewAmount(v)
		return &a
	}
	employees := []ledger.Employee{
		{ID: "ravi", Name: "Ravi Kumar", Phone: "9876500001", DailyRate: rate(600)},
		{ID: "sita", Name: "Sita Devi", Phone: "9876500002", DailyRate: rate(550)},
		{ID: "mohan", Name: "Mohan Lal", Phone: "9876500003", DailyRate: rate(500)},
		{ID: "karim", Name: "Karim Shaikh", Phone: "9876500004"}, // no rate: defaults
	}
	now := time.Now().UTC()
	for _, emp := range employees {
		emp.Active = true
		emp.JoinedDate = weekStart.AddMonths(-6)
		emp.CreatedAt = now
		emp.UpdatedAt = now
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}

	// Six working days; Sita takes a half day mid-week, Mohan misses one,
	// Ravi works one long evening.
	for day := weekStart; !day.After(weekEnd); day = day.AddDays(1) {
		offset := ledger.DaysBetween(weekStart, day)
		for _, emp := range employees {
			in := attendance.MarkInput{
				EmployeeID: emp.ID,
				Date:       day,
				Status:     ledger.AttendancePresent,
				CheckIn:    "09:00",
				CheckOut:   "18:00",
			}
			switch {
			case emp.ID == "sita" && offset == 2:
				in.Status = ledger.AttendanceHalfDay
				in.CheckOut = "13:00"
			case emp.ID == "mohan" && offset == 4:
				in.Status = ledger.AttendanceAbsent
				in.CheckIn, in.CheckOut = "", ""
			case emp.ID == "ravi" && offset == 3:
				in.CheckOut = "20:00"
				in.OvertimeHours = 2
			}
			if _, err := h.Attendance.Mark(ctx, in); err != nil {
				return err
			}
		}
	}

	advances := []struct {
		id     ledger.EntityID
		amount float64
		day    ledger.Date
		notes  string
	}{
		{"ravi", 300, weekStart.AddDays(1), "medical"},
		{"karim", 200, weekStart.AddDays(3), "festival"},
	}
	for _, a := range advances {
		if _, err := h.Advances.Grant(ctx, a.id, ledger.KindEmployee, ledger.NewAmount(a.amount), a.day, a.notes); err != nil {
			return err
		}
	}
	return nil
}

// loadBrickworksCustomers seeds two customer accounts. Sharma has
// invoices 1200 + 800 pending against an advance of 500, so the balance
// reads −1500.
func loadBrickworksCustomers(ctx context.Context, h *Handler) error {
	today := ledger.Today()

	customers := []receivables.CustomerInput{
		{Name: "Sharma Traders", Phone: "+91 98765-43210", Address: "Main Road"},
		{Name: "Gupta Constructions", Phone: "9876512345", Email: "gupta@example.com"},
	}
	for _, c := range customers {
		if _, err := h.Receivables.SaveCustomer(ctx, c); err != nil {
			return err
		}
	}

	invoices := []receivables.InvoiceInput{
		{
			CustomerPhone: "9876543210",
			CustomerName:  "Sharma Traders",
			Items: []receivables.InvoiceItemInput{
				{Description: "Bricks, first quality", Quantity: 200, UnitPrice: ledger.NewAmount(6)},
			},
			Date: today.AddDays(-10),
		},
		{
			CustomerPhone: "9876543210",
			CustomerName:  "Sharma Traders",
			Items: []receivables.InvoiceItemInput{
				{Description: "Bricks, second quality", Quantity: 160, UnitPrice: ledger.NewAmount(5)},
			},
			Date: today.AddDays(-4),
		},
		{
			CustomerPhone: "9876512345",
			CustomerName:  "Gupta Constructions",
			Items: []receivables.InvoiceItemInput{
				{Description: "Bricks, first quality", Quantity: 500, UnitPrice: ledger.NewAmount(6)},
			},
			Date: today.AddDays(-2),
		},
	}
	for _, in := range invoices {
		if _, err := h.Receivables.CreateInvoice(ctx, in); err != nil {
			return err
		}
	}

	if _, err := h.Receivables.RecordAdvancePayment(ctx, "9876543210", ledger.NewAmount(500), today.AddDays(-7), "on account"); err != nil {
		return err
	}
	return nil
}
