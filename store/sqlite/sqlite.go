/*
Package sqlite provides the SQLite-backed implementation of the ledger
record store.

PURPOSE:
  Implements ledger.TxRecordStore over an embedded SQLite database. The
  same patterns apply to a server database — only dialect details differ.

GUARDED TRANSITIONS:
  The monotonic lifecycles are enforced in single statements:
  - advances: UPDATE ... WHERE status = 'pending' — a row that already
    left pending is reported as ErrAdvanceNotPending, never overwritten.
  - invoices: the pending → paid flip uses the same shape; a second call
    gets ErrInvoiceAlreadyPaid.
  - batch runs: the scheduled → running claim updates conditionally so
    two pollers cannot both take one run.

UNIQUENESS:
  - attendance: UNIQUE(employee_id, date) — re-marking a day upserts in
    place, keeping the original row id and created_at.
  - salary_payments: UNIQUE(employee_id, period_start, period_end) — the
    store-level backstop behind the payroll commit guard; violations are
    translated to ErrDuplicateSalaryPayment.
  - payment_records: UNIQUE(invoice_id) — one payment per invoice, ever.

ENCODING:
  Money travels as decimal strings, civil dates as YYYY-MM-DD (lexically
  ordered, so range scans are plain BETWEEN), instants as RFC 3339,
  invoice items as a JSON column.

WAL MODE:
  Opened with WAL and foreign keys on: readers don't block, one writer
  at a time, sane crash recovery.

USAGE:
  store, err := sqlite.New("./data/brickworks.db")   // ":memory:" for tests

SEE ALSO:
  - ledger/store.go: the port definitions and their conventions
  - ledger/store/memory.go: the in-memory twin used by engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/brickworks/ledger-engine/ledger"
)

// Store implements ledger.TxRecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	ops
}

// New opens (and migrates) a store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The sqlite3 driver serializes writes anyway; one connection avoids
	// SQLITE_BUSY on concurrent transactions.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	s.ops = ops{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		check_in TEXT NOT NULL DEFAULT '',
		check_out TEXT NOT NULL DEFAULT '',
		work_hours REAL NOT NULL DEFAULT 0,
		overtime_hours REAL NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One record per employee-day; re-marking updates in place.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_date
		ON attendance(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	CREATE TABLE IF NOT EXISTS advances (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		payroll_run_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_advances_entity
		ON advances(entity_id, status);
	CREATE INDEX IF NOT EXISTS idx_advances_run
		ON advances(payroll_run_id) WHERE payroll_run_id != '';

	-- Append-only salary ledger: no UPDATE or DELETE touches this table.
	CREATE TABLE IF NOT EXISTS salary_transactions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		week INTEGER NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		payroll_run_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_salary_tx_employee_date
		ON salary_transactions(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_salary_tx_markers
		ON salary_transactions(year, month, week);

	CREATE TABLE IF NOT EXISTS salary_payments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		payroll_run_id TEXT NOT NULL,
		basic_salary TEXT NOT NULL,
		overtime_amount TEXT NOT NULL,
		advance_deductions TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		work_days INTEGER NOT NULL,
		total_work_hours REAL NOT NULL,
		overtime_hours REAL NOT NULL,
		payment_method TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		status TEXT NOT NULL,
		payslip_generated INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- The store-level backstop behind the payroll commit guard.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_employee_period
		ON salary_payments(employee_id, period_start, period_end);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		customer_key TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		items_json TEXT NOT NULL,
		sub_total TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_customer
		ON invoices(customer_key, status);

	CREATE TABLE IF NOT EXISTS payment_records (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		customer_key TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Exactly one payment per invoice.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_records_invoice
		ON payment_records(invoice_id);
	CREATE INDEX IF NOT EXISTS idx_payment_records_customer
		ON payment_records(customer_key);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		daily_rate TEXT,
		joined_date TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone_raw TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		params TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batch_runs_due
		ON batch_runs(status, scheduled_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (tests and demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"attendance", "advances", "salary_transactions", "salary_payments",
		"invoices", "payment_records", "employees", "customers", "batch_runs",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// WithTx runs fn against a transactional view; all writes commit together
// or roll back on error.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.RecordStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&ops{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// OPERATIONS - Shared between the store and its transaction views
// =============================================================================

// dbtx is the common surface of *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ops implements every ledger store port against a dbtx. The Store embeds
// one over its *sql.DB; WithTx hands fn one over the *sql.Tx.
type ops struct {
	db dbtx
}

// -----------------------------------------------------------------------------
// Attendance
// -----------------------------------------------------------------------------

func (o *ops) UpsertAttendance(ctx context.Context, rec ledger.AttendanceRecord) (*ledger.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance
		(id, employee_id, date, status, check_in, check_out, work_hours, overtime_hours, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			status = excluded.status,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			work_hours = excluded.work_hours,
			overtime_hours = excluded.overtime_hours,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	_, err := o.db.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, rec.Date.String(), rec.Status,
		rec.CheckIn, rec.CheckOut, rec.WorkHours, rec.OvertimeHours, rec.Notes,
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}

	// The surviving row may be the pre-existing one; read back the stored
	// state so the caller sees the real id and created_at.
	return o.GetAttendance(ctx, rec.EmployeeID, rec.Date)
}

func (o *ops) GetAttendance(ctx context.Context, employeeID ledger.EntityID, date ledger.Date) (*ledger.AttendanceRecord, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, employee_id, date, status, check_in, check_out, work_hours, overtime_hours, notes, created_at, updated_at
		FROM attendance WHERE employee_id = ? AND date = ?`,
		employeeID, date.String())

	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (o *ops) ListAttendanceRange(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.AttendanceRecord, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, employee_id, date, status, check_in, check_out, work_hours, overtime_hours, notes, created_at, updated_at
		FROM attendance
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC`,
		employeeID, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []ledger.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (o *ops) ListAttendanceByDate(ctx context.Context, date ledger.Date) ([]ledger.AttendanceRecord, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, employee_id, date, status, check_in, check_out, work_hours, overtime_hours, notes, created_at, updated_at
		FROM attendance WHERE date = ? ORDER BY employee_id ASC`,
		date.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	defer rows.Close()

	var out []ledger.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (o *ops) DeleteAttendance(ctx context.Context, id string) error {
	res, err := o.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*ledger.AttendanceRecord, error) {
	var (
		rec                  ledger.AttendanceRecord
		date                 string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.EmployeeID, &date, &rec.Status,
		&rec.CheckIn, &rec.CheckOut, &rec.WorkHours, &rec.OvertimeHours, &rec.Notes,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.Date, _ = ledger.ParseDate(date)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// -----------------------------------------------------------------------------
// Advances
// -----------------------------------------------------------------------------

func (o *ops) CreateAdvance(ctx context.Context, tx ledger.AdvanceTransaction) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO advances
		(id, entity_id, entity_kind, amount, date, status, notes, payroll_run_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.EntityID, tx.EntityKind, tx.Amount.Value.String(), tx.Date.String(),
		tx.Status, tx.Notes, tx.PayrollRunID,
		tx.CreatedAt.Format(time.RFC3339), tx.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create advance: %w", err)
	}
	return nil
}

func (o *ops) GetAdvance(ctx context.Context, id string) (*ledger.AdvanceTransaction, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, entity_id, entity_kind, amount, date, status, notes, payroll_run_id, created_at, updated_at
		FROM advances WHERE id = ?`, id)

	tx, err := scanAdvance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (o *ops) ListAdvancesByEntity(ctx context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	return o.listAdvances(ctx, `
		SELECT id, entity_id, entity_kind, amount, date, status, notes, payroll_run_id, created_at, updated_at
		FROM advances WHERE entity_id = ?
		ORDER BY date ASC, created_at ASC`, entityID)
}

func (o *ops) ListPendingAdvances(ctx context.Context, entityID ledger.EntityID) ([]ledger.AdvanceTransaction, error) {
	return o.listAdvances(ctx, `
		SELECT id, entity_id, entity_kind, amount, date, status, notes, payroll_run_id, created_at, updated_at
		FROM advances WHERE entity_id = ? AND status = 'pending'
		ORDER BY date ASC, created_at ASC`, entityID)
}

func (o *ops) listAdvances(ctx context.Context, query string, args ...any) ([]ledger.AdvanceTransaction, error) {
	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	defer rows.Close()

	var out []ledger.AdvanceTransaction
	for rows.Next() {
		tx, err := scanAdvance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// TransitionAdvance checks and writes in one statement: only a pending
// row moves. A row that exists but did not move already left pending.
func (o *ops) TransitionAdvance(ctx context.Context, id string, to ledger.AdvanceStatus, payrollRunID string) (*ledger.AdvanceTransaction, error) {
	runID := ""
	if to == ledger.AdvanceDeducted {
		runID = payrollRunID
	}

	res, err := o.db.ExecContext(ctx, `
		UPDATE advances SET status = ?, payroll_run_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		to, runID, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, fmt.Errorf("transition advance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := o.GetAdvance(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ledger.ErrRecordNotFound
		}
		return nil, ledger.ErrAdvanceNotPending
	}
	return o.GetAdvance(ctx, id)
}

func scanAdvance(row rowScanner) (*ledger.AdvanceTransaction, error) {
	var (
		tx                   ledger.AdvanceTransaction
		amount, date         string
		createdAt, updatedAt string
	)
	err := row.Scan(&tx.ID, &tx.EntityID, &tx.EntityKind, &amount, &date,
		&tx.Status, &tx.Notes, &tx.PayrollRunID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	tx.Amount = mustAmount(amount)
	tx.Date, _ = ledger.ParseDate(date)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &tx, nil
}

// -----------------------------------------------------------------------------
// Salary ledger
// -----------------------------------------------------------------------------

func (o *ops) AppendSalaryTransaction(ctx context.Context, tx ledger.SalaryTransaction) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO salary_transactions
		(id, employee_id, amount, date, week, month, year, notes, payroll_run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.EmployeeID, tx.Amount.Value.String(), tx.Date.String(),
		tx.Week, tx.Month, tx.Year, tx.Notes, tx.PayrollRunID,
		tx.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append salary transaction: %w", err)
	}
	return nil
}

func (o *ops) ListSalaryTransactions(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.SalaryTransaction, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, employee_id, amount, date, week, month, year, notes, payroll_run_id, created_at
		FROM salary_transactions
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC, created_at ASC`,
		employeeID, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("list salary transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.SalaryTransaction
	for rows.Next() {
		var (
			tx           ledger.SalaryTransaction
			amount, date string
			createdAt    string
		)
		if err := rows.Scan(&tx.ID, &tx.EmployeeID, &amount, &date,
			&tx.Week, &tx.Month, &tx.Year, &tx.Notes, &tx.PayrollRunID, &createdAt); err != nil {
			return nil, err
		}
		tx.Amount = mustAmount(amount)
		tx.Date, _ = ledger.ParseDate(date)
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (o *ops) CreateSalaryPayment(ctx context.Context, p ledger.SalaryPayment) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO salary_payments
		(id, employee_id, period_start, period_end, payroll_run_id,
		 basic_salary, overtime_amount, advance_deductions, net_salary,
		 work_days, total_work_hours, overtime_hours,
		 payment_method, payment_date, status, payslip_generated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.EmployeeID, p.PeriodStart.String(), p.PeriodEnd.String(), p.PayrollRunID,
		p.BasicSalary.Value.String(), p.OvertimeAmount.Value.String(),
		p.AdvanceDeductions.Value.String(), p.NetSalary.Value.String(),
		p.WorkDays, p.TotalWorkHours, p.OvertimeHours,
		p.PaymentMethod, p.PaymentDate.String(), p.Status,
		boolInt(p.PayslipGenerated), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateSalaryPayment
		}
		return fmt.Errorf("create salary payment: %w", err)
	}
	return nil
}

func (o *ops) GetSalaryPaymentForPeriod(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) (*ledger.SalaryPayment, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, employee_id, period_start, period_end, payroll_run_id,
		       basic_salary, overtime_amount, advance_deductions, net_salary,
		       work_days, total_work_hours, overtime_hours,
		       payment_method, payment_date, status, payslip_generated, created_at
		FROM salary_payments
		WHERE employee_id = ? AND period_start = ? AND period_end = ?`,
		employeeID, period.Start.String(), period.End.String())

	p, err := scanSalaryPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (o *ops) ListSalaryPayments(ctx context.Context, employeeID ledger.EntityID) ([]ledger.SalaryPayment, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, employee_id, period_start, period_end, payroll_run_id,
		       basic_salary, overtime_amount, advance_deductions, net_salary,
		       work_days, total_work_hours, overtime_hours,
		       payment_method, payment_date, status, payslip_generated, created_at
		FROM salary_payments WHERE employee_id = ?
		ORDER BY period_start ASC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list salary payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.SalaryPayment
	for rows.Next() {
		p, err := scanSalaryPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (o *ops) SetPayslipGenerated(ctx context.Context, paymentID string) error {
	res, err := o.db.ExecContext(ctx,
		"UPDATE salary_payments SET payslip_generated = 1 WHERE id = ?", paymentID)
	if err != nil {
		return fmt.Errorf("set payslip generated: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

func scanSalaryPayment(row rowScanner) (*ledger.SalaryPayment, error) {
	var (
		p                                           ledger.SalaryPayment
		periodStart, periodEnd, paymentDate         string
		basic, overtime, deductions, net, createdAt string
		payslip                                     int
	)
	err := row.Scan(&p.ID, &p.EmployeeID, &periodStart, &periodEnd, &p.PayrollRunID,
		&basic, &overtime, &deductions, &net,
		&p.WorkDays, &p.TotalWorkHours, &p.OvertimeHours,
		&p.PaymentMethod, &paymentDate, &p.Status, &payslip, &createdAt)
	if err != nil {
		return nil, err
	}
	p.PeriodStart, _ = ledger.ParseDate(periodStart)
	p.PeriodEnd, _ = ledger.ParseDate(periodEnd)
	p.PaymentDate, _ = ledger.ParseDate(paymentDate)
	p.BasicSalary = mustAmount(basic)
	p.OvertimeAmount = mustAmount(overtime)
	p.AdvanceDeductions = mustAmount(deductions)
	p.NetSalary = mustAmount(net)
	p.PayslipGenerated = payslip != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// -----------------------------------------------------------------------------
// Invoices and payment records
// -----------------------------------------------------------------------------

func (o *ops) CreateInvoice(ctx context.Context, inv ledger.Invoice) error {
	itemsJSON, err := json.Marshal(invoiceItemRows(inv.Items))
	if err != nil {
		return fmt.Errorf("encode invoice items: %w", err)
	}

	_, err = o.db.ExecContext(ctx, `
		INSERT INTO invoices
		(id, customer_key, customer_name, items_json, sub_total, tax_rate, tax_amount, total_amount, status, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.CustomerKey, inv.CustomerName, string(itemsJSON),
		inv.SubTotal.Value.String(), inv.TaxRate.String(),
		inv.TaxAmount.Value.String(), inv.TotalAmount.Value.String(),
		inv.Status, inv.Date.String(),
		inv.CreatedAt.Format(time.RFC3339), inv.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (o *ops) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, customer_key, customer_name, items_json, sub_total, tax_rate, tax_amount, total_amount, status, date, created_at, updated_at
		FROM invoices WHERE id = ?`, id)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (o *ops) ListInvoicesByCustomer(ctx context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	return o.listInvoices(ctx, `
		SELECT id, customer_key, customer_name, items_json, sub_total, tax_rate, tax_amount, total_amount, status, date, created_at, updated_at
		FROM invoices WHERE customer_key = ?
		ORDER BY date ASC, created_at ASC`, customerKey)
}

func (o *ops) ListPendingInvoices(ctx context.Context, customerKey ledger.EntityID) ([]ledger.Invoice, error) {
	return o.listInvoices(ctx, `
		SELECT id, customer_key, customer_name, items_json, sub_total, tax_rate, tax_amount, total_amount, status, date, created_at, updated_at
		FROM invoices WHERE customer_key = ? AND status = 'pending'
		ORDER BY date ASC, created_at ASC`, customerKey)
}

func (o *ops) listInvoices(ctx context.Context, query string, args ...any) ([]ledger.Invoice, error) {
	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (o *ops) MarkInvoicePaid(ctx context.Context, id string, at time.Time) (*ledger.Invoice, error) {
	res, err := o.db.ExecContext(ctx, `
		UPDATE invoices SET status = 'paid', updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		at.Format(time.RFC3339), id)
	if err != nil {
		return nil, fmt.Errorf("mark invoice paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := o.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ledger.ErrRecordNotFound
		}
		return nil, ledger.ErrInvoiceAlreadyPaid
	}
	return o.GetInvoice(ctx, id)
}

func (o *ops) CreatePaymentRecord(ctx context.Context, p ledger.PaymentRecord) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO payment_records (id, invoice_id, customer_key, amount, method, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.InvoiceID, p.CustomerKey, p.Amount.Value.String(),
		p.Method, p.Date.String(), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrInvoiceAlreadyPaid
		}
		return fmt.Errorf("create payment record: %w", err)
	}
	return nil
}

func (o *ops) ListPaymentsByCustomer(ctx context.Context, customerKey ledger.EntityID) ([]ledger.PaymentRecord, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, invoice_id, customer_key, amount, method, date, created_at
		FROM payment_records WHERE customer_key = ?
		ORDER BY date ASC, created_at ASC`, customerKey)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var out []ledger.PaymentRecord
	for rows.Next() {
		var (
			p                       ledger.PaymentRecord
			amount, date, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.CustomerKey, &amount, &p.Method, &date, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = mustAmount(amount)
		p.Date, _ = ledger.ParseDate(date)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// invoiceItemRow is the JSON shape items persist as.
type invoiceItemRow struct {
	Description string `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
}

func invoiceItemRows(items []ledger.InvoiceItem) []invoiceItemRow {
	out := make([]invoiceItemRow, len(items))
	for i, it := range items {
		out[i] = invoiceItemRow{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.Value.String(),
			LineTotal:   it.LineTotal.Value.String(),
		}
	}
	return out
}

func scanInvoice(row rowScanner) (*ledger.Invoice, error) {
	var (
		inv                              ledger.Invoice
		itemsJSON                        string
		subTotal, taxRate, taxAmt, total string
		date, createdAt, updatedAt       string
	)
	err := row.Scan(&inv.ID, &inv.CustomerKey, &inv.CustomerName, &itemsJSON,
		&subTotal, &taxRate, &taxAmt, &total, &inv.Status, &date, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var itemRows []invoiceItemRow
	if err := json.Unmarshal([]byte(itemsJSON), &itemRows); err != nil {
		return nil, fmt.Errorf("decode invoice items: %w", err)
	}
	inv.Items = make([]ledger.InvoiceItem, len(itemRows))
	for i, it := range itemRows {
		inv.Items[i] = ledger.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   mustAmount(it.UnitPrice),
			LineTotal:   mustAmount(it.LineTotal),
		}
	}

	inv.SubTotal = mustAmount(subTotal)
	inv.TaxRate, _ = decimal.NewFromString(taxRate)
	inv.TaxAmount = mustAmount(taxAmt)
	inv.TotalAmount = mustAmount(total)
	inv.Date, _ = ledger.ParseDate(date)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &inv, nil
}

// -----------------------------------------------------------------------------
// Registries
// -----------------------------------------------------------------------------

func (o *ops) SaveEmployee(ctx context.Context, e ledger.Employee) error {
	var rate *string
	if e.DailyRate != nil {
		s := e.DailyRate.Value.String()
		rate = &s
	}

	_, err := o.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, phone, daily_rate, joined_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			daily_rate = excluded.daily_rate,
			joined_date = excluded.joined_date,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Phone, rate, e.JoinedDate.String(), boolInt(e.Active),
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

func (o *ops) GetEmployee(ctx context.Context, id ledger.EntityID) (*ledger.Employee, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, name, phone, daily_rate, joined_date, active, created_at, updated_at
		FROM employees WHERE id = ?`, id)

	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (o *ops) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, name, phone, daily_rate, joined_date, active, created_at, updated_at
		FROM employees ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []ledger.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmployee(row rowScanner) (*ledger.Employee, error) {
	var (
		e                    ledger.Employee
		rate                 sql.NullString
		joined               string
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Phone, &rate, &joined, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if rate.Valid {
		a := mustAmount(rate.String)
		e.DailyRate = &a
	}
	if joined != "" {
		e.JoinedDate, _ = ledger.ParseDate(joined)
	}
	e.Active = active != 0
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func (o *ops) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone_raw, email, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone_raw = excluded.phone_raw,
			email = excluded.email,
			address = excluded.address,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.PhoneRaw, c.Email, c.Address,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save customer: %w", err)
	}
	return nil
}

func (o *ops) GetCustomer(ctx context.Context, key ledger.EntityID) (*ledger.Customer, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, name, phone_raw, email, address, created_at, updated_at
		FROM customers WHERE id = ?`, key)

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (o *ops) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, name, phone_raw, email, address, created_at, updated_at
		FROM customers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCustomer(row rowScanner) (*ledger.Customer, error) {
	var (
		c                    ledger.Customer
		createdAt, updatedAt string
	)
	err := row.Scan(&c.ID, &c.Name, &c.PhoneRaw, &c.Email, &c.Address, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// -----------------------------------------------------------------------------
// Batch runs
// -----------------------------------------------------------------------------

func (o *ops) CreateBatchRun(ctx context.Context, run ledger.BatchRun) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO batch_runs (id, kind, params, status, scheduled_at, started_at, completed_at, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Params, run.Status,
		run.ScheduledAt.Format(time.RFC3339),
		nullTime(run.StartedAt), nullTime(run.CompletedAt),
		run.Detail, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create batch run: %w", err)
	}
	return nil
}

func (o *ops) GetBatchRun(ctx context.Context, id string) (*ledger.BatchRun, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, kind, params, status, scheduled_at, started_at, completed_at, detail, created_at
		FROM batch_runs WHERE id = ?`, id)

	run, err := scanBatchRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (o *ops) ListBatchRuns(ctx context.Context, limit int) ([]ledger.BatchRun, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.listBatchRuns(ctx, `
		SELECT id, kind, params, status, scheduled_at, started_at, completed_at, detail, created_at
		FROM batch_runs ORDER BY scheduled_at DESC LIMIT ?`, limit)
}

func (o *ops) ListDueBatchRuns(ctx context.Context, now time.Time) ([]ledger.BatchRun, error) {
	return o.listBatchRuns(ctx, `
		SELECT id, kind, params, status, scheduled_at, started_at, completed_at, detail, created_at
		FROM batch_runs
		WHERE status = 'scheduled' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC`, now.Format(time.RFC3339))
}

func (o *ops) listBatchRuns(ctx context.Context, query string, args ...any) ([]ledger.BatchRun, error) {
	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	defer rows.Close()

	var out []ledger.BatchRun
	for rows.Next() {
		run, err := scanBatchRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (o *ops) ClaimBatchRun(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := o.db.ExecContext(ctx, `
		UPDATE batch_runs SET status = 'running', started_at = ?
		WHERE id = ? AND status = 'scheduled'`,
		at.Format(time.RFC3339), id)
	if err != nil {
		return false, fmt.Errorf("claim batch run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		existing, err := o.GetBatchRun(ctx, id)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, ledger.ErrRecordNotFound
		}
		return false, nil
	}
	return true, nil
}

func (o *ops) CompleteBatchRun(ctx context.Context, id string, status ledger.BatchRunStatus, detail string, at time.Time) error {
	res, err := o.db.ExecContext(ctx, `
		UPDATE batch_runs SET status = ?, detail = ?, completed_at = ? WHERE id = ?`,
		status, detail, at.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("complete batch run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

func scanBatchRun(row rowScanner) (*ledger.BatchRun, error) {
	var (
		run                    ledger.BatchRun
		scheduledAt, createdAt string
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(&run.ID, &run.Kind, &run.Params, &run.Status,
		&scheduledAt, &startedAt, &completedAt, &run.Detail, &createdAt)
	if err != nil {
		return nil, err
	}
	run.ScheduledAt, _ = time.Parse(time.RFC3339, scheduledAt)
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		run.CompletedAt = &t
	}
	return &run, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustAmount(s string) ledger.Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.ZeroAmount()
	}
	return ledger.AmountFromDecimal(d)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
