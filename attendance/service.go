/*
service.go - Attendance entry

PURPOSE:
  The write path for employee-days. One record exists per (employee,
  date); marking the same day again updates that record in place instead
  of growing a duplicate, so aggregation can never double-count a day.

  Work hours are recomputed from the clock strings on every mark — the
  stored figure is derived state, never caller input. Absent days store
  zero hours and zero overtime regardless of what was submitted.

SEE ALSO:
  - hours.go: the clock arithmetic
  - aggregate.go: period reduction
  - batch/processor.go: drives bulk marking via this service's Mark
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brickworks/ledger-engine/ledger"
)

// MarkInput is one attendance entry as the caller submits it.
type MarkInput struct {
	EmployeeID    ledger.EntityID
	Date          ledger.Date
	Status        ledger.AttendanceStatus
	CheckIn       string
	CheckOut      string
	OvertimeHours float64
	Notes         string
}

// Service is the attendance write/read path over a record store.
type Service struct {
	store ledger.RecordStore
}

func NewService(store ledger.RecordStore) *Service {
	return &Service{store: store}
}

// Mark records an employee-day, updating in place when the day already
// has a record. The employee must exist; the stored work hours are always
// recomputed from the clocks.
func (s *Service) Mark(ctx context.Context, in MarkInput) (*ledger.AttendanceRecord, error) {
	const op = "attendance.mark"

	if in.EmployeeID == "" {
		return nil, ledger.NewValidationError(op, "employee id is required")
	}
	if in.Date.IsZero() {
		return nil, ledger.NewValidationError(op, "date is required")
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if emp == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("employee %s", in.EmployeeID), ledger.ErrEntityNotFound)
	}

	now := time.Now().UTC()
	rec := ledger.AttendanceRecord{
		ID:            ledger.NewID(),
		EmployeeID:    in.EmployeeID,
		Date:          in.Date,
		Status:        in.Status,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		OvertimeHours: in.OvertimeHours,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if rec.Status == ledger.AttendanceAbsent {
		rec.WorkHours = 0
		rec.OvertimeHours = 0
	} else {
		rec.WorkHours = WorkHours(rec.CheckIn, rec.CheckOut)
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.store.UpsertAttendance(ctx, rec)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	return stored, nil
}

// Get returns the record for one employee-day, or not_found.
func (s *Service) Get(ctx context.Context, employeeID ledger.EntityID, date ledger.Date) (*ledger.AttendanceRecord, error) {
	const op = "attendance.get"

	rec, err := s.store.GetAttendance(ctx, employeeID, date)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if rec == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("no record for %s on %s", employeeID, date), ledger.ErrRecordNotFound)
	}
	return rec, nil
}

// Range lists an employee's records inside a period, oldest first.
func (s *Service) Range(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) ([]ledger.AttendanceRecord, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	records, err := s.store.ListAttendanceRange(ctx, employeeID, period)
	if err != nil {
		return nil, ledger.NewPersistenceError("attendance.range", err)
	}
	return records, nil
}

// Summarize reduces an employee's period into day counts and hour totals.
func (s *Service) Summarize(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) (Summary, error) {
	records, err := s.Range(ctx, employeeID, period)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(records), nil
}

// ByDate lists every employee's record for one date.
func (s *Service) ByDate(ctx context.Context, date ledger.Date) ([]ledger.AttendanceRecord, error) {
	records, err := s.store.ListAttendanceByDate(ctx, date)
	if err != nil {
		return nil, ledger.NewPersistenceError("attendance.by_date", err)
	}
	return records, nil
}

// PresentOn returns the employees marked present on a date — the
// candidate set for "pay all present employees today".
func (s *Service) PresentOn(ctx context.Context, date ledger.Date) ([]ledger.EntityID, error) {
	records, err := s.ByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	var ids []ledger.EntityID
	for _, rec := range records {
		if rec.Status == ledger.AttendancePresent {
			ids = append(ids, rec.EmployeeID)
		}
	}
	return ids, nil
}

// UnmarkedOn returns active employees with no record on a date — the
// candidate set for the end-of-day auto-absent run.
func (s *Service) UnmarkedOn(ctx context.Context, date ledger.Date) ([]ledger.EntityID, error) {
	const op = "attendance.unmarked_on"

	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	records, err := s.ByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	marked := make(map[ledger.EntityID]bool, len(records))
	for _, rec := range records {
		marked[rec.EmployeeID] = true
	}

	var ids []ledger.EntityID
	for _, emp := range employees {
		if emp.Active && !marked[emp.ID] {
			ids = append(ids, emp.ID)
		}
	}
	return ids, nil
}

// Delete removes one record. Explicit user action only; already-committed
// payroll is not recomputed.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "attendance.delete"

	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return ledger.NewNotFoundError(op, fmt.Sprintf("attendance %s", id), err)
		}
		return ledger.NewPersistenceError(op, err)
	}
	return nil
}
