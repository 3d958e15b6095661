/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: dates travel
  as YYYY-MM-DD strings, money as decimal strings, and domain structs
  never marshal directly, so the wire format stays stable when internals
  move.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: conversion and endpoint logic
  - ledger/types.go: the domain shapes these mirror
*/
package api

import (
	"time"

	"github.com/brickworks/ledger-engine/attendance"
	"github.com/brickworks/ledger-engine/batch"
	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/payroll"
	"github.com/brickworks/ledger-engine/receivables"
)

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	DailyRate  string `json:"daily_rate,omitempty"`
	JoinedDate string `json:"joined_date,omitempty"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
}

type CreateEmployeeRequest struct {
	ID         string   `json:"id,omitempty"` // generated when empty
	Name       string   `json:"name"`
	Phone      string   `json:"phone,omitempty"`
	DailyRate  *float64 `json:"daily_rate,omitempty"`
	JoinedDate string   `json:"joined_date,omitempty"`
}

func toEmployeeDTO(e ledger.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Phone:     e.Phone,
		Active:    e.Active,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.DailyRate != nil {
		dto.DailyRate = e.DailyRate.String()
	}
	if !e.JoinedDate.IsZero() {
		dto.JoinedDate = e.JoinedDate.String()
	}
	return dto
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	CheckIn       string  `json:"check_in,omitempty"`
	CheckOut      string  `json:"check_out,omitempty"`
	WorkHours     float64 `json:"work_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	Notes         string  `json:"notes,omitempty"`
}

type MarkAttendanceRequest struct {
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	CheckIn       string  `json:"check_in,omitempty"`
	CheckOut      string  `json:"check_out,omitempty"`
	OvertimeHours float64 `json:"overtime_hours,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

type BulkAttendanceRequest struct {
	Entries []MarkAttendanceRequest `json:"entries"`
}

type AttendanceSummaryDTO struct {
	WorkDays           int     `json:"work_days"`
	HalfDays           int     `json:"half_days"`
	AbsentDays         int     `json:"absent_days"`
	TotalWorkHours     float64 `json:"total_work_hours"`
	TotalOvertimeHours float64 `json:"total_overtime_hours"`
}

func toAttendanceDTO(rec ledger.AttendanceRecord) AttendanceDTO {
	return AttendanceDTO{
		ID:            rec.ID,
		EmployeeID:    string(rec.EmployeeID),
		Date:          rec.Date.String(),
		Status:        string(rec.Status),
		CheckIn:       rec.CheckIn,
		CheckOut:      rec.CheckOut,
		WorkHours:     rec.WorkHours,
		OvertimeHours: rec.OvertimeHours,
		Notes:         rec.Notes,
	}
}

func toSummaryDTO(s attendance.Summary) AttendanceSummaryDTO {
	return AttendanceSummaryDTO{
		WorkDays:           s.WorkDays,
		HalfDays:           s.HalfDays,
		AbsentDays:         s.AbsentDays,
		TotalWorkHours:     s.TotalWorkHours,
		TotalOvertimeHours: s.TotalOvertimeHours,
	}
}

// =============================================================================
// ADVANCES AND BALANCES
// =============================================================================

type AdvanceDTO struct {
	ID           string `json:"id"`
	EntityID     string `json:"entity_id"`
	EntityKind   string `json:"entity_kind"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	PayrollRunID string `json:"payroll_run_id,omitempty"`
}

type GrantAdvanceRequest struct {
	EntityID   string  `json:"entity_id"`
	EntityKind string  `json:"entity_kind"` // employee | customer
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	Notes      string  `json:"notes,omitempty"`
}

type BalanceDTO struct {
	EntityID        string `json:"entity_id"`
	TotalAdvanced   string `json:"total_advanced"`
	PendingAdvances string `json:"pending_advances"`
	PendingInvoices string `json:"pending_invoices"`
	Balance         string `json:"balance"`
	AsOf            string `json:"as_of"`
}

func toAdvanceDTO(tx ledger.AdvanceTransaction) AdvanceDTO {
	return AdvanceDTO{
		ID:           tx.ID,
		EntityID:     string(tx.EntityID),
		EntityKind:   string(tx.EntityKind),
		Amount:       tx.Amount.String(),
		Date:         tx.Date.String(),
		Status:       string(tx.Status),
		Notes:        tx.Notes,
		PayrollRunID: tx.PayrollRunID,
	}
}

func toBalanceDTO(b *ledger.BalanceBreakdown) BalanceDTO {
	return BalanceDTO{
		EntityID:        string(b.EntityID),
		TotalAdvanced:   b.TotalAdvanced.String(),
		PendingAdvances: b.PendingAdvances.String(),
		PendingInvoices: b.PendingInvoices.String(),
		Balance:         b.Balance.String(),
		AsOf:            b.AsOf.Format(time.RFC3339),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollPreviewDTO struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`

	DailyRate     string `json:"daily_rate"`
	RateDefaulted bool   `json:"rate_defaulted"`

	WorkDays       int     `json:"work_days"`
	HalfDays       int     `json:"half_days"`
	TotalWorkHours float64 `json:"total_work_hours"`
	OvertimeHours  float64 `json:"overtime_hours"`

	BasicSalary       string `json:"basic_salary"`
	OvertimeAmount    string `json:"overtime_amount"`
	AdvanceDeductions string `json:"advance_deductions"`
	NetSalary         string `json:"net_salary"`
}

type CommitPayrollRequest struct {
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
}

type SalaryPaymentDTO struct {
	ID                string `json:"id"`
	EmployeeID        string `json:"employee_id"`
	PeriodStart       string `json:"period_start"`
	PeriodEnd         string `json:"period_end"`
	PayrollRunID      string `json:"payroll_run_id"`
	BasicSalary       string `json:"basic_salary"`
	OvertimeAmount    string `json:"overtime_amount"`
	AdvanceDeductions string `json:"advance_deductions"`
	NetSalary         string `json:"net_salary"`
	WorkDays          int    `json:"work_days"`
	PaymentMethod     string `json:"payment_method"`
	PaymentDate       string `json:"payment_date"`
	Status            string `json:"status"`
	PayslipGenerated  bool   `json:"payslip_generated"`
}

type CommitPayrollResponse struct {
	Payment          SalaryPaymentDTO `json:"payment"`
	AlreadyCommitted bool             `json:"already_committed"`
	SweptAdvances    int              `json:"swept_advances"`
}

// BulkPayrollRequest pays every employee with a present record on date.
type BulkPayrollRequest struct {
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	Date          string `json:"date,omitempty"` // candidate day; defaults to period end
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
}

func toPreviewDTO(c *payroll.Computation) PayrollPreviewDTO {
	return PayrollPreviewDTO{
		EmployeeID:        string(c.EmployeeID),
		EmployeeName:      c.EmployeeName,
		PeriodStart:       c.Period.Start.String(),
		PeriodEnd:         c.Period.End.String(),
		DailyRate:         c.DailyRate.String(),
		RateDefaulted:     c.RateDefaulted,
		WorkDays:          c.WorkDays,
		HalfDays:          c.HalfDays,
		TotalWorkHours:    c.TotalWorkHours,
		OvertimeHours:     c.OvertimeHours,
		BasicSalary:       c.BasicSalary.String(),
		OvertimeAmount:    c.OvertimeAmount.String(),
		AdvanceDeductions: c.AdvanceDeductions.String(),
		NetSalary:         c.NetSalary.String(),
	}
}

func toSalaryPaymentDTO(p ledger.SalaryPayment) SalaryPaymentDTO {
	return SalaryPaymentDTO{
		ID:                p.ID,
		EmployeeID:        string(p.EmployeeID),
		PeriodStart:       p.PeriodStart.String(),
		PeriodEnd:         p.PeriodEnd.String(),
		PayrollRunID:      p.PayrollRunID,
		BasicSalary:       p.BasicSalary.String(),
		OvertimeAmount:    p.OvertimeAmount.String(),
		AdvanceDeductions: p.AdvanceDeductions.String(),
		NetSalary:         p.NetSalary.String(),
		WorkDays:          p.WorkDays,
		PaymentMethod:     string(p.PaymentMethod),
		PaymentDate:       p.PaymentDate.String(),
		Status:            string(p.Status),
		PayslipGenerated:  p.PayslipGenerated,
	}
}

// =============================================================================
// BATCH
// =============================================================================

type BatchItemResultDTO struct {
	ID     string `json:"id"`
	Detail string `json:"detail,omitempty"`
}

type BatchItemFailureDTO struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type BatchResultDTO struct {
	Total     int                   `json:"total"`
	Succeeded []BatchItemResultDTO  `json:"succeeded"`
	Failed    []BatchItemFailureDTO `json:"failed"`
}

func toBatchResultDTO(r *batch.Result) BatchResultDTO {
	dto := BatchResultDTO{
		Total:     len(r.Succeeded) + len(r.Failed),
		Succeeded: make([]BatchItemResultDTO, 0, len(r.Succeeded)),
		Failed:    make([]BatchItemFailureDTO, 0, len(r.Failed)),
	}
	for _, item := range r.Succeeded {
		dto.Succeeded = append(dto.Succeeded, BatchItemResultDTO{ID: string(item.ID), Detail: item.Detail})
	}
	for _, item := range r.Failed {
		dto.Failed = append(dto.Failed, BatchItemFailureDTO{ID: string(item.ID), Kind: string(item.Kind), Detail: item.Detail})
	}
	return dto
}

// =============================================================================
// CUSTOMERS AND INVOICES
// =============================================================================

type CustomerDTO struct {
	Key       string `json:"key"` // normalized phone
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type InvoiceItemDTO struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
}

type InvoiceDTO struct {
	ID           string           `json:"id"`
	CustomerKey  string           `json:"customer_key"`
	CustomerName string           `json:"customer_name,omitempty"`
	Items        []InvoiceItemDTO `json:"items"`
	SubTotal     string           `json:"sub_total"`
	TaxRate      string           `json:"tax_rate"`
	TaxAmount    string           `json:"tax_amount"`
	TotalAmount  string           `json:"total_amount"`
	Status       string           `json:"status"`
	Date         string           `json:"date"`
}

type CreateInvoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	CustomerPhone string                     `json:"customer_phone"`
	CustomerName  string                     `json:"customer_name,omitempty"`
	Items         []CreateInvoiceItemRequest `json:"items"`
	TaxRate       *float64                   `json:"tax_rate,omitempty"` // fraction; policy default when absent
	Date          string                     `json:"date"`
}

type MarkPaidRequest struct {
	Method string `json:"method"` // cash | bank | upi
	Date   string `json:"date"`
}

type PaymentRecordDTO struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoice_id"`
	CustomerKey string `json:"customer_key"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	Date        string `json:"date"`
}

type MarkPaidResponse struct {
	Invoice InvoiceDTO       `json:"invoice"`
	Payment PaymentRecordDTO `json:"payment"`
}

type RecordAdvancePaymentRequest struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Notes  string  `json:"notes,omitempty"`
}

type StatementDTO struct {
	Customer CustomerDTO        `json:"customer"`
	Invoices []InvoiceDTO       `json:"invoices"`
	Payments []PaymentRecordDTO `json:"payments"`
	Advances []AdvanceDTO       `json:"advances"`

	PendingInvoices string `json:"pending_invoices"`
	TotalAdvanced   string `json:"total_advanced"`
	Balance         string `json:"balance"`
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		Key:       string(c.ID),
		Name:      c.Name,
		Phone:     c.PhoneRaw,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	items := make([]InvoiceItemDTO, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = InvoiceItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
			LineTotal:   it.LineTotal.String(),
		}
	}
	return InvoiceDTO{
		ID:           inv.ID,
		CustomerKey:  string(inv.CustomerKey),
		CustomerName: inv.CustomerName,
		Items:        items,
		SubTotal:     inv.SubTotal.String(),
		TaxRate:      inv.TaxRate.String(),
		TaxAmount:    inv.TaxAmount.String(),
		TotalAmount:  inv.TotalAmount.String(),
		Status:       string(inv.Status),
		Date:         inv.Date.String(),
	}
}

func toPaymentRecordDTO(p ledger.PaymentRecord) PaymentRecordDTO {
	return PaymentRecordDTO{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		CustomerKey: string(p.CustomerKey),
		Amount:      p.Amount.String(),
		Method:      string(p.Method),
		Date:        p.Date.String(),
	}
}

func toStatementDTO(st *receivables.Statement) StatementDTO {
	dto := StatementDTO{
		Customer:        toCustomerDTO(*st.Customer),
		Invoices:        make([]InvoiceDTO, 0, len(st.Invoices)),
		Payments:        make([]PaymentRecordDTO, 0, len(st.Payments)),
		Advances:        make([]AdvanceDTO, 0, len(st.Advances)),
		PendingInvoices: st.PendingInvoices.String(),
		TotalAdvanced:   st.TotalAdvanced.String(),
		Balance:         st.Balance.String(),
	}
	for _, inv := range st.Invoices {
		dto.Invoices = append(dto.Invoices, toInvoiceDTO(inv))
	}
	for _, p := range st.Payments {
		dto.Payments = append(dto.Payments, toPaymentRecordDTO(p))
	}
	for _, a := range st.Advances {
		dto.Advances = append(dto.Advances, toAdvanceDTO(a))
	}
	return dto
}

// =============================================================================
// BATCH RUNS AND SCENARIOS
// =============================================================================

type BatchRunDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Params      string `json:"params,omitempty"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

type EnqueueBatchRunRequest struct {
	Kind        string `json:"kind"` // bulk_payroll | bulk_attendance
	Params      string `json:"params,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"` // RFC3339; now when empty
}

type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	Name string `json:"name"`
}

func toBatchRunDTO(run ledger.BatchRun) BatchRunDTO {
	dto := BatchRunDTO{
		ID:          run.ID,
		Kind:        string(run.Kind),
		Params:      run.Params,
		Status:      string(run.Status),
		ScheduledAt: run.ScheduledAt.Format(time.RFC3339),
		Detail:      run.Detail,
	}
	if run.StartedAt != nil {
		dto.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
