/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                     List all employees
    POST   /api/employees                     Create employee
    GET    /api/employees/{id}                Get employee details
    GET    /api/employees/{id}/balance        Derived balance breakdown
    GET    /api/employees/{id}/attendance     Attendance in ?from&to
    GET    /api/employees/{id}/attendance/summary  Period aggregation
    GET    /api/employees/{id}/advances       Advance history
    GET    /api/employees/{id}/payroll/preview     Pure calculation (?from&to)
    POST   /api/employees/{id}/payroll/commit      Disburse one period
    GET    /api/employees/{id}/payments       Committed payroll runs

  Attendance:
    POST   /api/attendance                    Mark one employee-day
    POST   /api/attendance/bulk               Mark many (batch semantics)
    DELETE /api/attendance/{id}               Remove one record

  Advances:
    POST   /api/advances                      Grant
    POST   /api/advances/{id}/settle          Settle in cash
    GET    /api/advances/pending/{entityID}   Pending list + total

  Payroll:
    POST   /api/payroll/bulk                  Pay all present employees

  Customers / invoices:
    GET    /api/customers                     List
    POST   /api/customers                     Create/update by phone
    GET    /api/customers/{phone}             Lookup (any phone spelling)
    GET    /api/customers/{phone}/statement   Full derived account view
    GET    /api/customers/{phone}/balance     Signed balance
    POST   /api/customers/{phone}/advances    Record prepayment
    GET    /api/customers/{phone}/invoices    Invoice history
    POST   /api/invoices                      Create pending invoice
    GET    /api/invoices/{id}                 Get one
    POST   /api/invoices/{id}/pay             pending → paid, once

  Batch runs / scenarios:
    GET    /api/batch-runs                    Recent runs
    POST   /api/batch-runs                    Enqueue a run
    GET    /api/batch-runs/{id}               Get one
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario
    POST   /api/scenarios/reset               Wipe all data

ERROR HANDLING:
  Error kinds map onto HTTP status:
    validation 400, not_found 404, permission 403, conflict 409,
    cancelled 499, persistence/other 500.

AUTHORIZATION:
  Mutations check the Authorizer port before any computation. Attendance
  marking needs staff; money movement (advances, payroll, invoices)
  needs manager; scenario load/reset needs admin.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
  - scheduler.go: Background executor for enqueued batch runs
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/brickworks/ledger-engine/attendance"
	"github.com/brickworks/ledger-engine/batch"
	"github.com/brickworks/ledger-engine/factory"
	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/logger"
	"github.com/brickworks/ledger-engine/payroll"
	"github.com/brickworks/ledger-engine/receivables"
)

// statusClientClosedRequest is nginx's convention for a request the
// client abandoned; used for kind=cancelled.
const statusClientClosedRequest = 499

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store ledger.TxRecordStore
	Auth  ledger.Authorizer

	Attendance  *attendance.Service
	Payroll     *payroll.Service
	Receivables *receivables.Service
	Advances    *ledger.AdvanceLedger
	Balances    *ledger.BalanceCache
	Processor   *batch.Processor
	Policies    factory.Policies

	log zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the domain services over one store.
func NewHandler(store ledger.TxRecordStore, auth ledger.Authorizer, policies factory.Policies, workers int) *Handler {
	log := logger.WithComponent("api")
	return &Handler{
		Store:       store,
		Auth:        auth,
		Attendance:  attendance.NewService(store),
		Payroll:     payroll.NewService(store, policies.Pay),
		Receivables: receivables.NewService(store),
		Advances:    ledger.NewAdvanceLedger(store),
		Balances:    ledger.NewBalanceCache(ledger.NewBalanceCalculator(store)),
		Processor:   batch.NewProcessor(workers, logger.WithComponent("batch")),
		Policies:    policies,
		log:         log,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	id := ledger.EntityID(req.ID)
	if id == "" {
		id = ledger.EntityID(ledger.NewID())
	}

	now := time.Now().UTC()
	emp := ledger.Employee{
		ID:        id,
		Name:      req.Name,
		Phone:     req.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.DailyRate != nil {
		rate := ledger.NewAmount(*req.DailyRate)
		if !rate.IsPositive() {
			writeError(w, http.StatusBadRequest, "daily_rate must be positive", nil)
			return
		}
		emp.DailyRate = &rate
	}
	if req.JoinedDate != "" {
		d, err := ledger.ParseDate(req.JoinedDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid joined_date format (use YYYY-MM-DD)", err)
			return
		}
		emp.JoinedDate = d
	}
	if existing, err := h.Store.GetEmployee(r.Context(), id); err == nil && existing != nil {
		emp.CreatedAt = existing.CreatedAt
	}

	if err := emp.Validate(); err != nil {
		writeLedgerError(w, err)
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetEmployeeBalance returns the derived balance breakdown.
func (h *Handler) GetEmployeeBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	breakdown, err := h.Balances.Breakdown(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(breakdown))
}

// GetEmployeeAttendance lists attendance in ?from&to.
func (h *Handler) GetEmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))
	period, err := periodFromQuery(r)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	records, err := h.Attendance.Range(r.Context(), id, period)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployeeAttendanceSummary aggregates attendance over ?from&to.
func (h *Handler) GetEmployeeAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))
	period, err := periodFromQuery(r)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	summary, err := h.Attendance.Summarize(r.Context(), id, period)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetEmployeeAdvances lists an employee's full advance history.
func (h *Handler) GetEmployeeAdvances(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	advances, err := h.Advances.History(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]AdvanceDTO, len(advances))
	for i, a := range advances {
		dtos[i] = toAdvanceDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PreviewPayroll runs the pure calculation for ?from&to. GET, no writes.
func (h *Handler) PreviewPayroll(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))
	period, err := periodFromQuery(r)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	comp, err := h.Payroll.Preview(r.Context(), id, period)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(comp))
}

// CommitPayroll disburses one employee's period.
func (h *Handler) CommitPayroll(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	id := ledger.EntityID(chi.URLParam(r, "id"))
	var req CommitPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := commitInput(id, req.PeriodStart, req.PeriodEnd, req.PaymentMethod, req.PaymentDate)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	result, err := h.Payroll.Commit(r.Context(), in)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(id)

	status := http.StatusCreated
	if result.AlreadyCommitted {
		status = http.StatusOK
	}
	writeJSON(w, status, CommitPayrollResponse{
		Payment:          toSalaryPaymentDTO(*result.Payment),
		AlreadyCommitted: result.AlreadyCommitted,
		SweptAdvances:    result.SweptAdvances,
	})
}

// ListEmployeePayments lists committed payroll runs.
func (h *Handler) ListEmployeePayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	payments, err := h.Payroll.Payments(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]SalaryPaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toSalaryPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// MarkAttendance records one employee-day (upsert).
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := markInput(req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	rec, err := h.Attendance.Mark(r.Context(), in)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec))
}

// BulkMarkAttendance records many employee-days with batch semantics:
// one bad entry is reported against its employee, the rest still land.
func (h *Handler) BulkMarkAttendance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req BulkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries is empty", nil)
		return
	}

	byEmployee := make(map[ledger.EntityID]MarkAttendanceRequest, len(req.Entries))
	ids := make([]ledger.EntityID, 0, len(req.Entries))
	for _, entry := range req.Entries {
		id := ledger.EntityID(entry.EmployeeID)
		byEmployee[id] = entry
		ids = append(ids, id)
	}

	result := h.Processor.RunBulk(r.Context(), ids, func(ctx context.Context, id ledger.EntityID) (string, error) {
		in, err := markInput(byEmployee[id])
		if err != nil {
			return "", err
		}
		rec, err := h.Attendance.Mark(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", rec.Date, rec.Status), nil
	})
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// DeleteAttendance removes one record by id.
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	if err := h.Attendance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADVANCE HANDLERS
// =============================================================================

// GrantAdvance records a new pending advance.
func (h *Handler) GrantAdvance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	var req GrantAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	tx, err := h.Advances.Grant(r.Context(),
		ledger.EntityID(req.EntityID), ledger.EntityKind(req.EntityKind),
		ledger.NewAmount(req.Amount), date, req.Notes)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(tx.EntityID)
	writeJSON(w, http.StatusCreated, toAdvanceDTO(*tx))
}

// SettleAdvance moves one advance pending → paid.
func (h *Handler) SettleAdvance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	tx, err := h.Advances.Settle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(tx.EntityID)
	writeJSON(w, http.StatusOK, toAdvanceDTO(*tx))
}

// PendingAdvances lists an entity's pending advances and their total.
func (h *Handler) PendingAdvances(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "entityID"))
	ctx := r.Context()

	total, err := h.Advances.PendingTotal(ctx, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	pending, err := h.Advances.History(ctx, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dtos := make([]AdvanceDTO, 0, len(pending))
	for _, tx := range pending {
		if tx.Status == ledger.AdvancePending {
			dtos = append(dtos, toAdvanceDTO(tx))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": string(id),
		"total":     total.String(),
		"advances":  dtos,
	})
}

// =============================================================================
// BULK PAYROLL
// =============================================================================

// BulkCommitPayroll pays every employee with a present record on the
// candidate date. Per-item failures are reported, not fatal.
func (h *Handler) BulkCommitPayroll(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	var req BulkPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.executeBulkPayroll(r.Context(), bulkPayrollParams{
		PeriodStart:   req.PeriodStart,
		PeriodEnd:     req.PeriodEnd,
		Date:          req.Date,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   req.PaymentDate,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// RunBulkPayroll is the CLI entry to the same bulk path the endpoint
// and enqueued runs use.
func (h *Handler) RunBulkPayroll(ctx context.Context, periodStart, periodEnd, date, method, paymentDate string) (*batch.Result, error) {
	return h.executeBulkPayroll(ctx, bulkPayrollParams{
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		Date:          date,
		PaymentMethod: method,
		PaymentDate:   paymentDate,
	})
}

// bulkPayrollParams is the wire/params shape for a bulk payroll run,
// shared by the endpoint above and enqueued batch runs.
type bulkPayrollParams struct {
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	Date          string `json:"date,omitempty"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
}

func (h *Handler) executeBulkPayroll(ctx context.Context, params bulkPayrollParams) (*batch.Result, error) {
	const op = "api.bulk_payroll"

	period, err := parsePeriod(params.PeriodStart, params.PeriodEnd)
	if err != nil {
		return nil, err
	}
	candidateDate := period.End
	if params.Date != "" {
		if candidateDate, err = ledger.ParseDate(params.Date); err != nil {
			return nil, ledger.NewValidationError(op, "invalid date: "+params.Date)
		}
	}
	paymentDate, err := ledger.ParseDate(params.PaymentDate)
	if err != nil {
		return nil, ledger.NewValidationError(op, "invalid payment_date: "+params.PaymentDate)
	}
	method := ledger.PaymentMethod(params.PaymentMethod)
	if !ledger.KnownPaymentMethod(method) {
		return nil, ledger.NewValidationError(op, "unknown payment method "+params.PaymentMethod)
	}

	candidates, err := h.Attendance.PresentOn(ctx, candidateDate)
	if err != nil {
		return nil, err
	}

	result := h.Processor.RunBulk(ctx, candidates, func(ctx context.Context, id ledger.EntityID) (string, error) {
		res, err := h.Payroll.Commit(ctx, payroll.CommitInput{
			EmployeeID:    id,
			Period:        period,
			PaymentMethod: method,
			PaymentDate:   paymentDate,
		})
		if err != nil {
			return "", err
		}
		h.Balances.Invalidate(id)
		if res.AlreadyCommitted {
			return "already committed", nil
		}
		detail := fmt.Sprintf("net %s", res.Payment.NetSalary)
		if res.Computation != nil && res.Computation.RateDefaulted {
			detail += fmt.Sprintf(" (defaulted rate %s)", res.Computation.DailyRate)
		}
		return detail, nil
	})
	return result, nil
}

// bulkAttendanceParams drives the auto-absent run: every active employee
// without a record on Date gets Status (default absent).
type bulkAttendanceParams struct {
	Date   string `json:"date,omitempty"`
	Status string `json:"status,omitempty"`
}

func (h *Handler) executeBulkAttendance(ctx context.Context, params bulkAttendanceParams) (*batch.Result, error) {
	const op = "api.bulk_attendance"

	date := ledger.Today()
	if params.Date != "" {
		var err error
		if date, err = ledger.ParseDate(params.Date); err != nil {
			return nil, ledger.NewValidationError(op, "invalid date: "+params.Date)
		}
	}
	status := ledger.AttendanceAbsent
	if params.Status != "" {
		status = ledger.AttendanceStatus(params.Status)
	}

	candidates, err := h.Attendance.UnmarkedOn(ctx, date)
	if err != nil {
		return nil, err
	}

	result := h.Processor.RunBulk(ctx, candidates, func(ctx context.Context, id ledger.EntityID) (string, error) {
		rec, err := h.Attendance.Mark(ctx, attendance.MarkInput{
			EmployeeID: id,
			Date:       date,
			Status:     status,
			Notes:      "auto-marked",
		})
		if err != nil {
			return "", err
		}
		return string(rec.Status), nil
	})
	return result, nil
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns the customer registry.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Receivables.ListCustomers(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer upserts a customer under their normalized phone key.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Receivables.SaveCustomer(r.Context(), receivables.CustomerInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(*c))
}

// GetCustomer looks up by any spelling of the phone number.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Receivables.GetCustomer(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// GetStatement returns the full derived account view.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.Receivables.Statement(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(st))
}

// GetCustomerBalance returns the signed balance figure.
func (h *Handler) GetCustomerBalance(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	balance, err := h.Receivables.Balance(r.Context(), phone)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"customer_key": string(receivables.NormalizePhone(phone)),
		"balance":      balance.String(),
	})
}

// RecordCustomerAdvance records a prepayment on the customer's account.
func (h *Handler) RecordCustomerAdvance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req RecordAdvancePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	tx, err := h.Receivables.RecordAdvancePayment(r.Context(),
		chi.URLParam(r, "phone"), ledger.NewAmount(req.Amount), date, req.Notes)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(tx.EntityID)
	writeJSON(w, http.StatusCreated, toAdvanceDTO(*tx))
}

// ListCustomerInvoices returns the invoice history.
func (h *Handler) ListCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Receivables.ListInvoices(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// CreateInvoice builds and persists a pending invoice.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	taxRate := h.Policies.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = decimal.NewFromFloat(*req.TaxRate)
	}

	items := make([]receivables.InvoiceItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = receivables.InvoiceItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   ledger.NewAmount(it.UnitPrice),
		}
	}

	inv, err := h.Receivables.CreateInvoice(r.Context(), receivables.InvoiceInput{
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		Items:         items,
		TaxRate:       taxRate,
		Date:          date,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(inv.CustomerKey)
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*inv))
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Receivables.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// MarkInvoicePaid flips pending → paid exactly once.
func (h *Handler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleStaff) {
		return
	}

	var req MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	inv, payment, err := h.Receivables.MarkPaid(r.Context(),
		chi.URLParam(r, "id"), ledger.PaymentMethod(req.Method), date)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Balances.Invalidate(inv.CustomerKey)
	writeJSON(w, http.StatusOK, MarkPaidResponse{
		Invoice: toInvoiceDTO(*inv),
		Payment: toPaymentRecordDTO(*payment),
	})
}

// =============================================================================
// BATCH RUN HANDLERS
// =============================================================================

// ListBatchRuns returns recent runs, newest first.
func (h *Handler) ListBatchRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListBatchRuns(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batch runs", err)
		return
	}
	dtos := make([]BatchRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toBatchRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBatchRun returns one run.
func (h *Handler) GetBatchRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetBatchRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get batch run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Batch run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBatchRunDTO(*run))
}

// EnqueueBatchRun schedules a run for the background scheduler to pick
// up. The handler never executes the run inline.
func (h *Handler) EnqueueBatchRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, ledger.RoleManager) {
		return
	}

	var req EnqueueBatchRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := ledger.BatchRunKind(req.Kind)
	if kind != ledger.RunBulkPayroll && kind != ledger.RunBulkAttendance {
		writeError(w, http.StatusBadRequest, "unknown batch run kind "+req.Kind, nil)
		return
	}

	scheduledAt := time.Now().UTC()
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scheduled_at (use RFC3339)", err)
			return
		}
		scheduledAt = t.UTC()
	}

	run := ledger.BatchRun{
		ID:          ledger.NewID(),
		Kind:        kind,
		Params:      req.Params,
		Status:      ledger.RunScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := run.Validate(); err != nil {
		writeLedgerError(w, err)
		return
	}
	if err := h.Store.CreateBatchRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to enqueue batch run", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchRunDTO(run))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) requireRole(w http.ResponseWriter, role ledger.Role) bool {
	if h.Auth == nil || h.Auth.HasPermission(role) {
		return true
	}
	user := h.Auth.CurrentUser()
	writeJSON(w, http.StatusForbidden, ErrorResponse{
		Error: fmt.Sprintf("%s requires %s access", user.Name, role),
		Kind:  string(ledger.KindPermission),
	})
	return false
}

func markInput(req MarkAttendanceRequest) (attendance.MarkInput, error) {
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		return attendance.MarkInput{}, ledger.NewValidationError("api.mark_attendance", "invalid date: "+req.Date)
	}
	return attendance.MarkInput{
		EmployeeID:    ledger.EntityID(req.EmployeeID),
		Date:          date,
		Status:        ledger.AttendanceStatus(req.Status),
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		OvertimeHours: req.OvertimeHours,
		Notes:         req.Notes,
	}, nil
}

func commitInput(id ledger.EntityID, start, end, method, paymentDate string) (payroll.CommitInput, error) {
	period, err := parsePeriod(start, end)
	if err != nil {
		return payroll.CommitInput{}, err
	}
	date, err := ledger.ParseDate(paymentDate)
	if err != nil {
		return payroll.CommitInput{}, ledger.NewValidationError("api.commit_payroll", "invalid payment_date: "+paymentDate)
	}
	return payroll.CommitInput{
		EmployeeID:    id,
		Period:        period,
		PaymentMethod: ledger.PaymentMethod(method),
		PaymentDate:   date,
	}, nil
}

func parsePeriod(start, end string) (ledger.Period, error) {
	const op = "api.parse_period"

	from, err := ledger.ParseDate(start)
	if err != nil {
		return ledger.Period{}, ledger.NewValidationError(op, "invalid period start: "+start)
	}
	to, err := ledger.ParseDate(end)
	if err != nil {
		return ledger.Period{}, ledger.NewValidationError(op, "invalid period end: "+end)
	}
	return ledger.NewPeriod(from, to)
}

func periodFromQuery(r *http.Request) (ledger.Period, error) {
	return parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps domain error kinds onto HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)

	var status int
	switch kind {
	case ledger.KindValidation:
		status = http.StatusBadRequest
	case ledger.KindNotFound:
		status = http.StatusNotFound
	case ledger.KindPermission:
		status = http.StatusForbidden
	case ledger.KindConflict:
		status = http.StatusConflict
	case ledger.KindCancelled:
		status = statusClientClosedRequest
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, ErrorResponse{
		Error: err.Error(),
		Kind:  string(kind),
	})
}
