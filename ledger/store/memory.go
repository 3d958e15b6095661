// Package store provides the in-memory RecordStore implementation, used
// by tests and the dev server. Mirrors the SQLite store's guarantees:
// guarded status transitions, uniqueness per (employee, date) attendance
// and (employee, period) salary payments, and snapshot-rollback WithTx.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brickworks/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type dayKey struct {
	EmployeeID ledger.EntityID
	Date       string
}

type periodKey struct {
	EmployeeID ledger.EntityID
	Start      string
	End        string
}

type Memory struct {
	mu sync.RWMutex

	attendance      map[string]ledger.AttendanceRecord // by record id
	attendanceByDay map[dayKey]string                  // (employee, date) → id

	advances map[string]ledger.AdvanceTransaction

	salaryTxs       []ledger.SalaryTransaction
	salaryPayments  map[string]ledger.SalaryPayment
	paymentByPeriod map[periodKey]string

	invoices         map[string]ledger.Invoice
	invoicePayments  map[string]ledger.PaymentRecord
	paymentByInvoice map[string]string // invoice id → payment record id

	employees map[ledger.EntityID]ledger.Employee
	customers map[ledger.EntityID]ledger.Customer

	batchRuns map[string]ledger.BatchRun
}

func NewMemory() *Memory {
	return &Memory{
		attendance:       make(map[string]ledger.AttendanceRecord),
		attendanceByDay:  make(map[dayKey]string),
		advances:         make(map[string]ledger.AdvanceTransaction),
		salaryPayments:   make(map[string]ledger.SalaryPayment),
		paymentByPeriod:  make(map[periodKey]string),
		invoices:         make(map[string]ledger.Invoice),
		invoicePayments:  make(map[string]ledger.PaymentRecord),
		paymentByInvoice: make(map[string]string),
		employees:        make(map[ledger.EntityID]ledger.Employee),
		customers:        make(map[ledger.EntityID]ledger.Customer),
		batchRuns:        make(map[string]ledger.BatchRun),
	}
}

// Reset clears all data (tests and demo scenarios).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attendance = make(map[string]ledger.AttendanceRecord)
	m.attendanceByDay = make(map[dayKey]string)
	m.advances = make(map[string]ledger.AdvanceTransaction)
	m.salaryTxs = nil
	m.salaryPayments = make(map[string]ledger.SalaryPayment)
	m.paymentByPeriod = make(map[periodKey]string)
	m.invoices = make(map[string]ledger.Invoice)
	m.invoicePayments = make(map[string]ledger.PaymentRecord)
	m.paymentByInvoice = make(map[string]string)
	m.employees = make(map[ledger.EntityID]ledger.Employee)
	m.customers = make(map[ledger.EntityID]ledger.Customer)
	m.batchRuns = make(map[string]ledger.BatchRun)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) UpsertAttendance(_ context.Context, rec ledger.AttendanceRecord) (*ledger.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertAttendanceLocked(rec)
}

func (m *Memory) upsertAttendanceLocked(rec ledger.AttendanceRecord) (*ledger.AttendanceRecord, error) {
	k := dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date.String()}
	if existingID, ok := m.attendanceByDay[k]; ok {
		existing := m.attendance[existingID]
		// Update in place: identity survives, content is replaced.
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	m.attendance[rec.ID] = rec
	m.attendanceByDay[k] = rec.ID
	out := rec
	return &out, nil
}

func (m *Memory) GetAttendance(_ context.Context, employeeID ledger.EntityID, date ledger.Date) (*ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAttendanceLocked(employeeID, date)
}

func (m *Memory) getAttendanceLocked(employeeID ledger.EntityID, date ledger.Date) (*ledger.AttendanceRecord, error) {
	id, ok := m.attendanceByDay[dayKey{EmployeeID: employeeID, Date: date.String()}]
	if !ok {
		return nil, nil
	}
	rec := m.attendance[id]
	return &rec, nil
}

func (m *Memory) ListAttendanceRange(_ context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAttendanceRangeLocked(employeeID, period)
}

func (m *Memory) listAttendanceRangeLocked(employeeID ledger.EntityID, period ledger.Period) ([]ledger.AttendanceRecord, error) {
	var out []ledger.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.EmployeeID == employeeID && period.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) ListAttendanceByDate(_ context.Context, date ledger.Date) ([]ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.Date.Equal(date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *Memory) DeleteAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.attendance[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	delete(m.attendance, id)
	delete(m.attendanceByDay, dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date.String()})
	return nil
}

// =============================================================================
// ADVANCES
// =============================================================================

func (m *Memory) CreateAdvance(_ context.Context, tx ledger.AdvanceTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advances[tx.ID] = tx
	return nil
}

func (m *Memory) GetAdvance(_ context.Context, id string) (*ledger.AdvanceTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.advances[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *Memory) ListAdvancesByEntity(_ context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAdvancesLocked(entityID, false)
}

func (m *Memory) ListPendingAdvances(_ context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAdvancesLocked(entityID, true)
}

func (m *Memory) listAdvancesLocked(entityID ledger.EntityID, pendingOnly bool) ([]ledger.AdvanceTransaction, error) {
	var out []ledger.AdvanceTransaction
	for _, tx := range m.advances {
		if tx.EntityID != entityID {
			continue
		}
		if pendingOnly && tx.Status != ledger.AdvancePending {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) TransitionAdvance(_ context.Context, id string, to ledger.AdvanceStatus, payrollRunID string) (*ledger.AdvanceTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionAdvanceLocked(id, to, payrollRunID)
}

func (m *Memory) transitionAdvanceLocked(id string, to ledger.AdvanceStatus, payrollRunID string) (*ledger.AdvanceTransaction, error) {
	tx, ok := m.advances[id]
	if !ok {
		return nil, ledger.ErrRecordNotFound
	}
	if !ledger.ValidAdvanceTransition(tx.Status, to) {
		return nil, ledger.ErrAdvanceNotPending
	}
	tx.Status = to
	if to == ledger.AdvanceDeducted {
		tx.PayrollRunID = payrollRunID
	}
	tx.UpdatedAt = time.Now().UTC()
	m.advances[id] = tx
	return &tx, nil
}

// =============================================================================
// SALARY LEDGER
// =============================================================================

func (m *Memory) AppendSalaryTransaction(_ context.Context, tx ledger.SalaryTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendSalaryTxLocked(tx)
}

func (m *Memory) appendSalaryTxLocked(tx ledger.SalaryTransaction) error {
	m.salaryTxs = append(m.salaryTxs, tx)
	return nil
}

func (m *Memory) ListSalaryTransactions(_ context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.SalaryTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.SalaryTransaction
	for _, tx := range m.salaryTxs {
		if tx.EmployeeID == employeeID && period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) CreateSalaryPayment(_ context.Context, p ledger.SalaryPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSalaryPaymentLocked(p)
}

func (m *Memory) createSalaryPaymentLocked(p ledger.SalaryPayment) error {
	k := periodKey{EmployeeID: p.EmployeeID, Start: p.PeriodStart.String(), End: p.PeriodEnd.String()}
	if _, ok := m.paymentByPeriod[k]; ok {
		return ledger.ErrDuplicateSalaryPayment
	}
	m.salaryPayments[p.ID] = p
	m.paymentByPeriod[k] = p.ID
	return nil
}

func (m *Memory) GetSalaryPaymentForPeriod(_ context.Context, employeeID ledger.EntityID, period ledger.Period) (*ledger.SalaryPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSalaryPaymentForPeriodLocked(employeeID, period)
}

func (m *Memory) getSalaryPaymentForPeriodLocked(employeeID ledger.EntityID, period ledger.Period) (*ledger.SalaryPayment, error) {
	k := periodKey{EmployeeID: employeeID, Start: period.Start.String(), End: period.End.String()}
	id, ok := m.paymentByPeriod[k]
	if !ok {
		return nil, nil
	}
	p := m.salaryPayments[id]
	return &p, nil
}

func (m *Memory) ListSalaryPayments(_ context.Context, employeeID ledger.EntityID) ([]ledger.SalaryPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.SalaryPayment
	for _, p := range m.salaryPayments {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

func (m *Memory) SetPayslipGenerated(_ context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.salaryPayments[paymentID]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	p.PayslipGenerated = true
	m.salaryPayments[paymentID] = p
	return nil
}

// =============================================================================
// INVOICES AND PAYMENT RECORDS
// =============================================================================

func (m *Memory) CreateInvoice(_ context.Context, inv ledger.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getInvoiceLocked(id)
}

func (m *Memory) getInvoiceLocked(id string) (*ledger.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *Memory) ListInvoicesByCustomer(_ context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listInvoicesLocked(customerKey, false)
}

func (m *Memory) ListPendingInvoices(_ context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listInvoicesLocked(customerKey, true)
}

func (m *Memory) listInvoicesLocked(customerKey ledger.EntityID, pendingOnly bool) ([]ledger.Invoice, error) {
	var out []ledger.Invoice
	for _, inv := range m.invoices {
		if inv.CustomerKey != customerKey {
			continue
		}
		if pendingOnly && inv.Status != ledger.InvoicePending {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) MarkInvoicePaid(_ context.Context, id string, at time.Time) (*ledger.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markInvoicePaidLocked(id, at)
}

func (m *Memory) markInvoicePaidLocked(id string, at time.Time) (*ledger.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ledger.ErrRecordNotFound
	}
	if inv.Status != ledger.InvoicePending {
		return nil, ledger.ErrInvoiceAlreadyPaid
	}
	inv.Status = ledger.InvoicePaid
	inv.UpdatedAt = at
	m.invoices[id] = inv
	return &inv, nil
}

func (m *Memory) CreatePaymentRecord(_ context.Context, p ledger.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPaymentRecordLocked(p)
}

func (m *Memory) createPaymentRecordLocked(p ledger.PaymentRecord) error {
	if _, ok := m.paymentByInvoice[p.InvoiceID]; ok {
		return ledger.ErrInvoiceAlreadyPaid
	}
	m.invoicePayments[p.ID] = p
	m.paymentByInvoice[p.InvoiceID] = p.ID
	return nil
}

func (m *Memory) ListPaymentsByCustomer(_ context.Context, customerKey ledger.EntityID) ([]ledger.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.PaymentRecord
	for _, p := range m.invoicePayments {
		if p.CustomerKey == customerKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// REGISTRIES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e ledger.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id ledger.EntityID) (*ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveCustomer(_ context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, key ledger.EntityID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// BATCH RUNS
// =============================================================================

func (m *Memory) CreateBatchRun(_ context.Context, run ledger.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchRuns[run.ID] = run
	return nil
}

func (m *Memory) GetBatchRun(_ context.Context, id string) (*ledger.BatchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.batchRuns[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *Memory) ListBatchRuns(_ context.Context, limit int) ([]ledger.BatchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.BatchRun, 0, len(m.batchRuns))
	for _, run := range m.batchRuns {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListDueBatchRuns(_ context.Context, now time.Time) ([]ledger.BatchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.BatchRun
	for _, run := range m.batchRuns {
		if run.Status == ledger.RunScheduled && !run.ScheduledAt.After(now) {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *Memory) ClaimBatchRun(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.batchRuns[id]
	if !ok {
		return false, ledger.ErrRecordNotFound
	}
	if run.Status != ledger.RunScheduled {
		return false, nil
	}
	run.Status = ledger.RunRunning
	started := at
	run.StartedAt = &started
	m.batchRuns[id] = run
	return true, nil
}

func (m *Memory) CompleteBatchRun(_ context.Context, id string, status ledger.BatchRunStatus, detail string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.batchRuns[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	run.Status = status
	run.Detail = detail
	completed := at
	run.CompletedAt = &completed
	m.batchRuns[id] = run
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support: WithTx snapshots the
// whole store and restores it when fn fails.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.RecordStore) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	attendance       map[string]ledger.AttendanceRecord
	attendanceByDay  map[dayKey]string
	advances         map[string]ledger.AdvanceTransaction
	salaryTxs        []ledger.SalaryTransaction
	salaryPayments   map[string]ledger.SalaryPayment
	paymentByPeriod  map[periodKey]string
	invoices         map[string]ledger.Invoice
	invoicePayments  map[string]ledger.PaymentRecord
	paymentByInvoice map[string]string
	employees        map[ledger.EntityID]ledger.Employee
	customers        map[ledger.EntityID]ledger.Customer
	batchRuns        map[string]ledger.BatchRun
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		attendance:       copyMap(m.attendance),
		attendanceByDay:  copyMap(m.attendanceByDay),
		advances:         copyMap(m.advances),
		salaryTxs:        append([]ledger.SalaryTransaction{}, m.salaryTxs...),
		salaryPayments:   copyMap(m.salaryPayments),
		paymentByPeriod:  copyMap(m.paymentByPeriod),
		invoices:         copyMap(m.invoices),
		invoicePayments:  copyMap(m.invoicePayments),
		paymentByInvoice: copyMap(m.paymentByInvoice),
		employees:        copyMap(m.employees),
		customers:        copyMap(m.customers),
		batchRuns:        copyMap(m.batchRuns),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.attendance = s.attendance
	m.attendanceByDay = s.attendanceByDay
	m.advances = s.advances
	m.salaryTxs = s.salaryTxs
	m.salaryPayments = s.salaryPayments
	m.paymentByPeriod = s.paymentByPeriod
	m.invoices = s.invoices
	m.invoicePayments = s.invoicePayments
	m.paymentByInvoice = s.paymentByInvoice
	m.employees = s.employees
	m.customers = s.customers
	m.batchRuns = s.batchRuns
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// txMemoryView runs against the parent's maps while the parent's lock is
// already held by WithTx. Only the operations transactional flows use are
// routed through locked variants; the rest stay on the public methods and
// must never be called inside WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) UpsertAttendance(_ context.Context, rec ledger.AttendanceRecord) (*ledger.AttendanceRecord, error) {
	return tv.parent.upsertAttendanceLocked(rec)
}

func (tv *txMemoryView) GetAttendance(_ context.Context, employeeID ledger.EntityID, date ledger.Date) (*ledger.AttendanceRecord, error) {
	return tv.parent.getAttendanceLocked(employeeID, date)
}

func (tv *txMemoryView) ListAttendanceRange(_ context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.AttendanceRecord, error) {
	return tv.parent.listAttendanceRangeLocked(employeeID, period)
}

func (tv *txMemoryView) ListAttendanceByDate(ctx context.Context, date ledger.Date) ([]ledger.AttendanceRecord, error) {
	var out []ledger.AttendanceRecord
	for _, rec := range tv.parent.attendance {
		if rec.Date.Equal(date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (tv *txMemoryView) DeleteAttendance(_ context.Context, id string) error {
	rec, ok := tv.parent.attendance[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	delete(tv.parent.attendance, id)
	delete(tv.parent.attendanceByDay, dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date.String()})
	return nil
}

func (tv *txMemoryView) CreateAdvance(_ context.Context, tx ledger.AdvanceTransaction) error {
	tv.parent.advances[tx.ID] = tx
	return nil
}

func (tv *txMemoryView) GetAdvance(_ context.Context, id string) (*ledger.AdvanceTransaction, error) {
	tx, ok := tv.parent.advances[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (tv *txMemoryView) ListAdvancesByEntity(_ context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	return tv.parent.listAdvancesLocked(entityID, false)
}

func (tv *txMemoryView) ListPendingAdvances(_ context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	return tv.parent.listAdvancesLocked(entityID, true)
}

func (tv *txMemoryView) TransitionAdvance(_ context.Context, id string, to ledger.AdvanceStatus, payrollRunID string) (*ledger.AdvanceTransaction, error) {
	return tv.parent.transitionAdvanceLocked(id, to, payrollRunID)
}

func (tv *txMemoryView) AppendSalaryTransaction(_ context.Context, tx ledger.SalaryTransaction) error {
	return tv.parent.appendSalaryTxLocked(tx)
}

func (tv *txMemoryView) ListSalaryTransactions(_ context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.SalaryTransaction, error) {
	var out []ledger.SalaryTransaction
	for _, tx := range tv.parent.salaryTxs {
		if tx.EmployeeID == employeeID && period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (tv *txMemoryView) CreateSalaryPayment(_ context.Context, p ledger.SalaryPayment) error {
	return tv.parent.createSalaryPaymentLocked(p)
}

func (tv *txMemoryView) GetSalaryPaymentForPeriod(_ context.Context, employeeID ledger.EntityID, period ledger.Period) (*ledger.SalaryPayment, error) {
	return tv.parent.getSalaryPaymentForPeriodLocked(employeeID, period)
}

func (tv *txMemoryView) ListSalaryPayments(_ context.Context, employeeID ledger.EntityID) ([]ledger.SalaryPayment, error) {
	var out []ledger.SalaryPayment
	for _, p := range tv.parent.salaryPayments {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

func (tv *txMemoryView) SetPayslipGenerated(_ context.Context, paymentID string) error {
	p, ok := tv.parent.salaryPayments[paymentID]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	p.PayslipGenerated = true
	tv.parent.salaryPayments[paymentID] = p
	return nil
}

func (tv *txMemoryView) CreateInvoice(_ context.Context, inv ledger.Invoice) error {
	tv.parent.invoices[inv.ID] = inv
	return nil
}

func (tv *txMemoryView) GetInvoice(_ context.Context, id string) (*ledger.Invoice, error) {
	return tv.parent.getInvoiceLocked(id)
}

func (tv *txMemoryView) ListInvoicesByCustomer(_ context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	return tv.parent.listInvoicesLocked(customerKey, false)
}

func (tv *txMemoryView) ListPendingInvoices(_ context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	return tv.parent.listInvoicesLocked(customerKey, true)
}

func (tv *txMemoryView) MarkInvoicePaid(_ context.Context, id string, at time.Time) (*ledger.Invoice, error) {
	return tv.parent.markInvoicePaidLocked(id, at)
}

func (tv *txMemoryView) CreatePaymentRecord(_ context.Context, p ledger.PaymentRecord) error {
	return tv.parent.createPaymentRecordLocked(p)
}

func (tv *txMemoryView) ListPaymentsByCustomer(_ context.Context, customerKey ledger.EntityID) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for _, p := range tv.parent.invoicePayments {
		if p.CustomerKey == customerKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, e ledger.Employee) error {
	tv.parent.employees[e.ID] = e
	return nil
}

func (tv *txMemoryView) GetEmployee(_ context.Context, id ledger.EntityID) (*ledger.Employee, error) {
	e, ok := tv.parent.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (tv *txMemoryView) ListEmployees(_ context.Context) ([]ledger.Employee, error) {
	out := make([]ledger.Employee, 0, len(tv.parent.employees))
	for _, e := range tv.parent.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) SaveCustomer(_ context.Context, c ledger.Customer) error {
	tv.parent.customers[c.ID] = c
	return nil
}

func (tv *txMemoryView) GetCustomer(_ context.Context, key ledger.EntityID) (*ledger.Customer, error) {
	c, ok := tv.parent.customers[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tv *txMemoryView) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	out := make([]ledger.Customer, 0, len(tv.parent.customers))
	for _, c := range tv.parent.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) CreateBatchRun(_ context.Context, run ledger.BatchRun) error {
	tv.parent.batchRuns[run.ID] = run
	return nil
}

func (tv *txMemoryView) GetBatchRun(_ context.Context, id string) (*ledger.BatchRun, error) {
	run, ok := tv.parent.batchRuns[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (tv *txMemoryView) ListBatchRuns(_ context.Context, limit int) ([]ledger.BatchRun, error) {
	out := make([]ledger.BatchRun, 0, len(tv.parent.batchRuns))
	for _, run := range tv.parent.batchRuns {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (tv *txMemoryView) ListDueBatchRuns(_ context.Context, now time.Time) ([]ledger.BatchRun, error) {
	var out []ledger.BatchRun
	for _, run := range tv.parent.batchRuns {
		if run.Status == ledger.RunScheduled && !run.ScheduledAt.After(now) {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (tv *txMemoryView) ClaimBatchRun(_ context.Context, id string, at time.Time) (bool, error) {
	run, ok := tv.parent.batchRuns[id]
	if !ok {
		return false, ledger.ErrRecordNotFound
	}
	if run.Status != ledger.RunScheduled {
		return false, nil
	}
	run.Status = ledger.RunRunning
	started := at
	run.StartedAt = &started
	tv.parent.batchRuns[id] = run
	return true, nil
}

func (tv *txMemoryView) CompleteBatchRun(_ context.Context, id string, status ledger.BatchRunStatus, detail string, at time.Time) error {
	run, ok := tv.parent.batchRuns[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	run.Status = status
	run.Detail = detail
	completed := at
	run.CompletedAt = &completed
	tv.parent.batchRuns[id] = run
	return nil
}
