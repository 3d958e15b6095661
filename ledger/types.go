/*
types.go - Core record types for the ledger engine

PURPOSE:
  Defines the persisted record types shared by both domains — daily-wage
  payroll and customer receivables — plus the money Amount they all carry.

  Both domains are the same reconciliation problem wearing different
  clothes: raw transactional records are reduced deterministically into a
  derived balance that is never stored as a mutable running total.

     attendance ┐
     advances   ├──▶  aggregation / calculation  ──▶  derived results
     invoices   │         (pure, replayable)          (salary, balance)
     payments   ┘

RECORD FAMILIES:
  AdvanceTransaction  Cash advanced to an employee or prepaid by a
                      customer. Lifecycle: pending → paid | deducted.
  SalaryTransaction   Append-only disbursement entries with period markers.
  AttendanceRecord    One per (employee, date); re-marking updates in place.
  Invoice             Pending → paid exactly once.
  PaymentRecord       Created exactly once per invoice payment.
  SalaryPayment       Payroll run summary, reproducible from its inputs.

DESIGN RULES:
  - Records are immutable once persisted except status transitions, and
    status transitions are monotonic (never reverse).
  - Amounts are decimal, not float. Work hours are float64 (they are
    measures, not money).
  - Every record validates its required fields before entering a store.

SEE ALSO:
  - advances.go: the advance lifecycle operations
  - balance.go: balance derivation from these records
  - store.go: the persistence ports these records travel through
*/
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies a ledger entity: an employee or a customer bucket.
// Customer entity IDs are normalized phone keys (digits only).
type EntityID string

// EntityKind discriminates the two ledger populations.
type EntityKind string

const (
	KindEmployee EntityKind = "employee"
	KindCustomer EntityKind = "customer"
)

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// AMOUNT - Money values
// =============================================================================

// Amount is a monetary value. Decimal underneath so that 0.1 + 0.2 is
// exactly 0.3 no matter how many payroll runs replay the ledger.
type Amount struct {
	Value decimal.Decimal
}

// NewAmount creates an Amount from a float (convenience for literals).
func NewAmount(v float64) Amount {
	return Amount{Value: decimal.NewFromFloat(v)}
}

// AmountFromDecimal wraps an existing decimal.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{Value: d}
}

// ParseAmount parses a decimal string ("2387.50").
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

// ZeroAmount is the additive identity.
func ZeroAmount() Amount {
	return Amount{Value: decimal.Zero}
}

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount         { return Amount{Value: a.Value.Neg()} }

// MulFloat scales by a float factor (day counts, overtime multipliers).
func (a Amount) MulFloat(f float64) Amount {
	return Amount{Value: a.Value.Mul(decimal.NewFromFloat(f))}
}

// DivInt divides by an integer (hourly rate from a daily rate).
func (a Amount) DivInt(n int64) Amount {
	return Amount{Value: a.Value.Div(decimal.NewFromInt(n))}
}

func (a Amount) IsZero() bool         { return a.Value.IsZero() }
func (a Amount) IsNegative() bool     { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool     { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool  { return a.Value.Equal(b.Value) }
func (a Amount) LessThan(b Amount) bool { return a.Value.LessThan(b.Value) }

// Float64 is for display layers only; ledger math stays decimal.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// String renders with bankers' two places, the way statements print it.
func (a Amount) String() string {
	return a.Value.StringFixed(2)
}

// =============================================================================
// ADVANCE TRANSACTIONS
// =============================================================================

type AdvanceStatus string

const (
	AdvancePending  AdvanceStatus = "pending"
	AdvancePaid     AdvanceStatus = "paid"
	AdvanceDeducted AdvanceStatus = "deducted"
)

// ValidAdvanceTransition reports whether from → to is allowed.
// The lifecycle is monotonic: pending → paid | deducted, never back.
func ValidAdvanceTransition(from, to AdvanceStatus) bool {
	return from == AdvancePending && (to == AdvancePaid || to == AdvanceDeducted)
}

// AdvanceTransaction is cash moved ahead of earnings: an employee advance
// against future wages, or a customer prepayment against future invoices.
type AdvanceTransaction struct {
	ID         string
	EntityID   EntityID
	EntityKind EntityKind
	Amount     Amount
	Date       Date
	Status     AdvanceStatus
	Notes      string

	// Set when a payroll sweep consumes this advance.
	PayrollRunID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate rejects malformed advances before they enter a store.
func (a AdvanceTransaction) Validate() error {
	if a.ID == "" {
		return NewValidationError("advance.validate", "id is required")
	}
	if a.EntityID == "" {
		return NewValidationError("advance.validate", "entity id is required")
	}
	if a.EntityKind != KindEmployee && a.EntityKind != KindCustomer {
		return NewValidationError("advance.validate", "entity kind must be employee or customer")
	}
	if !a.Amount.IsPositive() {
		return NewValidationError("advance.validate", "amount must be positive")
	}
	if a.Date.IsZero() {
		return NewValidationError("advance.validate", "date is required")
	}
	switch a.Status {
	case AdvancePending, AdvancePaid, AdvanceDeducted:
	default:
		return NewValidationError("advance.validate", "unknown advance status "+string(a.Status))
	}
	return nil
}

// =============================================================================
// SALARY TRANSACTIONS - Append-only disbursement entries
// =============================================================================

// SalaryTransaction is one append-only salary ledger line: a payroll
// disbursement or a manual incremental entry. Week/Month/Year are the
// period markers reporting groups by; Week is ISO-8601.
type SalaryTransaction struct {
	ID         string
	EmployeeID EntityID
	Amount     Amount
	Date       Date
	Week       int
	Month      int
	Year       int
	Notes      string

	// Links a disbursement line back to its payroll run; empty for
	// manual entries.
	PayrollRunID string

	CreatedAt time.Time
}

func (s SalaryTransaction) Validate() error {
	if s.ID == "" {
		return NewValidationError("salarytx.validate", "id is required")
	}
	if s.EmployeeID == "" {
		return NewValidationError("salarytx.validate", "employee id is required")
	}
	if s.Date.IsZero() {
		return NewValidationError("salarytx.validate", "date is required")
	}
	if s.Week < 1 || s.Week > 53 {
		return NewValidationError("salarytx.validate", "week marker out of range")
	}
	if s.Month < 1 || s.Month > 12 {
		return NewValidationError("salarytx.validate", "month marker out of range")
	}
	return nil
}

// =============================================================================
// ATTENDANCE RECORDS
// =============================================================================

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceHalfDay AttendanceStatus = "half_day"
)

// AttendanceRecord is one employee-day. Exactly one exists per
// (EmployeeID, Date); marking the same day again updates in place.
// CheckIn/CheckOut are local clock strings ("09:30"); WorkHours is
// always recomputed from them, never trusted from input.
type AttendanceRecord struct {
	ID            string
	EmployeeID    EntityID
	Date          Date
	Status        AttendanceStatus
	CheckIn       string
	CheckOut      string
	WorkHours     float64
	OvertimeHours float64
	Notes         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r AttendanceRecord) Validate() error {
	if r.ID == "" {
		return NewValidationError("attendance.validate", "id is required")
	}
	if r.EmployeeID == "" {
		return NewValidationError("attendance.validate", "employee id is required")
	}
	if r.Date.IsZero() {
		return NewValidationError("attendance.validate", "date is required")
	}
	switch r.Status {
	case AttendancePresent, AttendanceAbsent, AttendanceHalfDay:
	default:
		return NewValidationError("attendance.validate", "unknown attendance status "+string(r.Status))
	}
	if r.OvertimeHours < 0 || r.OvertimeHours > 24 {
		return NewValidationError("attendance.validate", "overtime hours out of range")
	}
	return nil
}

// =============================================================================
// INVOICES AND PAYMENTS
// =============================================================================

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
)

// InvoiceItem is one line on an invoice. LineTotal = Quantity × UnitPrice,
// computed at construction, never entered.
type InvoiceItem struct {
	Description string
	Quantity    float64
	UnitPrice   Amount
	LineTotal   Amount
}

// Invoice bills a customer bucket (normalized phone key).
// SubTotal = Σ line totals; TaxAmount = SubTotal × TaxRate;
// TotalAmount = SubTotal + TaxAmount. Status moves pending → paid once.
type Invoice struct {
	ID           string
	CustomerKey  EntityID
	CustomerName string
	Items        []InvoiceItem
	SubTotal     Amount
	TaxRate      decimal.Decimal
	TaxAmount    Amount
	TotalAmount  Amount
	Status       InvoiceStatus
	Date         Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (inv Invoice) Validate() error {
	if inv.ID == "" {
		return NewValidationError("invoice.validate", "id is required")
	}
	if inv.CustomerKey == "" {
		return NewValidationError("invoice.validate", "customer key is required")
	}
	if len(inv.Items) == 0 {
		return NewValidationError("invoice.validate", "invoice needs at least one item")
	}
	if inv.Date.IsZero() {
		return NewValidationError("invoice.validate", "date is required")
	}
	if inv.TaxRate.IsNegative() {
		return NewValidationError("invoice.validate", "tax rate cannot be negative")
	}
	if inv.Status != InvoicePending && inv.Status != InvoicePaid {
		return NewValidationError("invoice.validate", "unknown invoice status "+string(inv.Status))
	}
	return nil
}

type PaymentMethod string

const (
	PayCash PaymentMethod = "cash"
	PayBank PaymentMethod = "bank"
	PayUPI  PaymentMethod = "upi"
)

// KnownPaymentMethod reports whether m is one of the accepted methods.
func KnownPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayCash, PayBank, PayUPI:
		return true
	}
	return false
}

// PaymentRecord is created exactly once, when its invoice turns paid.
type PaymentRecord struct {
	ID          string
	InvoiceID   string
	CustomerKey EntityID
	Amount      Amount
	Method      PaymentMethod
	Date        Date

	CreatedAt time.Time
}

func (p PaymentRecord) Validate() error {
	if p.ID == "" {
		return NewValidationError("payment.validate", "id is required")
	}
	if p.InvoiceID == "" {
		return NewValidationError("payment.validate", "invoice id is required")
	}
	if p.CustomerKey == "" {
		return NewValidationError("payment.validate", "customer key is required")
	}
	if !p.Amount.IsPositive() {
		return NewValidationError("payment.validate", "amount must be positive")
	}
	if !KnownPaymentMethod(p.Method) {
		return NewValidationError("payment.validate", "unknown payment method "+string(p.Method))
	}
	return nil
}

// =============================================================================
// SALARY PAYMENTS - Payroll run summaries
// =============================================================================

type SalaryPaymentStatus string

const (
	SalaryPaymentPaid SalaryPaymentStatus = "paid"
)

// SalaryPayment summarizes one committed payroll run for one employee.
// NetSalary = BasicSalary + OvertimeAmount − AdvanceDeductions, and the
// whole record must be reproducible by re-running the calculation over
// the same attendance and advances. NetSalary may be negative when the
// sweep exceeds earnings; that is carried, not clamped.
type SalaryPayment struct {
	ID           string
	EmployeeID   EntityID
	PeriodStart  Date
	PeriodEnd    Date
	PayrollRunID string

	BasicSalary       Amount
	OvertimeAmount    Amount
	AdvanceDeductions Amount
	NetSalary         Amount

	WorkDays       int
	TotalWorkHours float64
	OvertimeHours  float64

	PaymentMethod PaymentMethod
	PaymentDate   Date
	Status        SalaryPaymentStatus

	// The payslip document itself is rendered elsewhere; the engine only
	// tracks whether that happened.
	PayslipGenerated bool

	CreatedAt time.Time
}

func (p SalaryPayment) Validate() error {
	if p.ID == "" {
		return NewValidationError("salarypayment.validate", "id is required")
	}
	if p.EmployeeID == "" {
		return NewValidationError("salarypayment.validate", "employee id is required")
	}
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return NewValidationError("salarypayment.validate", "pay period is required")
	}
	if p.PeriodEnd.Before(p.PeriodStart) {
		return NewValidationError("salarypayment.validate", "pay period end precedes start")
	}
	if p.PayrollRunID == "" {
		return NewValidationError("salarypayment.validate", "payroll run id is required")
	}
	expected := p.BasicSalary.Add(p.OvertimeAmount).Sub(p.AdvanceDeductions)
	if !p.NetSalary.Equal(expected) {
		return NewValidationError("salarypayment.validate", "net salary does not reconcile with its parts")
	}
	return nil
}

// =============================================================================
// REGISTRIES - Employees and customers
// =============================================================================

// Employee is a daily-wage worker. DailyRate nil means the pay policy
// default applies (and payroll flags the run as rate-defaulted).
type Employee struct {
	ID         EntityID
	Name       string
	Phone      string
	DailyRate  *Amount
	JoinedDate Date
	Active     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Employee) Validate() error {
	if e.ID == "" {
		return NewValidationError("employee.validate", "id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("employee.validate", "name is required")
	}
	if e.DailyRate != nil && !e.DailyRate.IsPositive() {
		return NewValidationError("employee.validate", "daily rate must be positive when set")
	}
	return nil
}

// Customer is a receivables account. ID is the normalized phone key so
// every raw spelling of the same number lands in one bucket.
type Customer struct {
	ID       EntityID
	Name     string
	PhoneRaw string
	Email    string
	Address  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Customer) Validate() error {
	if c.ID == "" {
		return NewValidationError("customer.validate", "normalized phone key is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customer.validate", "name is required")
	}
	return nil
}

// =============================================================================
// BATCH RUNS - Scheduled bulk work records
// =============================================================================

type BatchRunKind string

const (
	RunBulkPayroll    BatchRunKind = "bulk_payroll"
	RunBulkAttendance BatchRunKind = "bulk_attendance"
)

type BatchRunStatus string

const (
	RunScheduled BatchRunStatus = "scheduled"
	RunRunning   BatchRunStatus = "running"
	RunCompleted BatchRunStatus = "completed"
	RunFailed    BatchRunStatus = "failed"
)

// BatchRun is a queued bulk operation the scheduler picks up. Status only
// moves forward: scheduled → running → completed | failed.
type BatchRun struct {
	ID          string
	Kind        BatchRunKind
	Params      string // JSON, shape depends on Kind
	Status      BatchRunStatus
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Detail      string

	CreatedAt time.Time
}

func (b BatchRun) Validate() error {
	if b.ID == "" {
		return NewValidationError("batchrun.validate", "id is required")
	}
	if b.Kind != RunBulkPayroll && b.Kind != RunBulkAttendance {
		return NewValidationError("batchrun.validate", "unknown batch run kind "+string(b.Kind))
	}
	if b.ScheduledAt.IsZero() {
		return NewValidationError("batchrun.validate", "scheduled time is required")
	}
	return nil
}
