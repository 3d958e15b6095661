package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/factory"
	"github.com/brickworks/ledger-engine/ledger"
	memstore "github.com/brickworks/ledger-engine/ledger/store"
)

func newTestAPI(t *testing.T, role ledger.Role) (*Handler, http.Handler) {
	t.Helper()
	store := memstore.NewTxMemory()
	auth := ledger.NewStaticAuthorizer(ledger.User{ID: "test", Name: "operator", Role: role})
	h := NewHandler(store, auth, factory.DefaultPolicies(), 2)
	return h, NewRouter(h, zerolog.Nop())
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createEmployee(t *testing.T, router http.Handler, id string, rate float64) {
	t.Helper()
	req := CreateEmployeeRequest{ID: id, Name: "Employee " + id}
	if rate > 0 {
		req.DailyRate = &rate
	}
	rec := doRequest(t, router, http.MethodPost, "/api/employees", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func markDay(t *testing.T, router http.Handler, employee, date, status, out string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/attendance", MarkAttendanceRequest{
		EmployeeID: employee, Date: date, Status: status,
		CheckIn: "09:00", CheckOut: out,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEmployeeLifecycle(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)

	createEmployee(t, router, "ravi", 600)

	rec := doRequest(t, router, http.MethodGet, "/api/employees/ravi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "ravi", emp.ID)
	assert.Equal(t, "600", emp.DailyRate)
	assert.True(t, emp.Active)

	rec = doRequest(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 1)

	rec = doRequest(t, router, http.MethodGet, "/api/employees/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAttendanceAndSummary(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)
	createEmployee(t, router, "ravi", 600)

	markDay(t, router, "ravi", "2026-08-17", "present", "18:00")
	markDay(t, router, "ravi", "2026-08-18", "half_day", "13:00")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/ravi/attendance/summary?from=2026-08-17&to=2026-08-22", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[AttendanceSummaryDTO](t, rec)
	assert.Equal(t, 1, summary.WorkDays)
	assert.Equal(t, 1, summary.HalfDays)
	assert.Equal(t, 13.0, summary.TotalWorkHours)

	// Missing range parameters are a validation error.
	rec = doRequest(t, router, http.MethodGet, "/api/employees/ravi/attendance/summary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayrollPreviewAndCommit(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)
	createEmployee(t, router, "ravi", 500)
	for day := 17; day <= 21; day++ {
		markDay(t, router, "ravi", fmt.Sprintf("2026-08-%d", day), "present", "18:00")
	}
	rec := doRequest(t, router, http.MethodPost, "/api/advances", GrantAdvanceRequest{
		EntityID: "ravi", EntityKind: "employee", Amount: 300, Date: "2026-08-18",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Preview is pure: run it twice, nothing changes.
	for i := 0; i < 2; i++ {
		rec = doRequest(t, router, http.MethodGet, "/api/employees/ravi/payroll/preview?from=2026-08-17&to=2026-08-22", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		preview := decode[PayrollPreviewDTO](t, rec)
		assert.Equal(t, 5, preview.WorkDays)
		assert.Equal(t, "2500", preview.BasicSalary)
		assert.Equal(t, "300", preview.AdvanceDeductions)
		assert.Equal(t, "2200", preview.NetSalary)
	}

	commit := CommitPayrollRequest{
		PeriodStart: "2026-08-17", PeriodEnd: "2026-08-22",
		PaymentMethod: "cash", PaymentDate: "2026-08-22",
	}
	rec = doRequest(t, router, http.MethodPost, "/api/employees/ravi/payroll/commit", commit)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[CommitPayrollResponse](t, rec)
	assert.False(t, first.AlreadyCommitted)
	assert.Equal(t, "2200", first.Payment.NetSalary)
	assert.Equal(t, 1, first.SweptAdvances)

	// The second commit is a 200 no-op, not a second payment.
	rec = doRequest(t, router, http.MethodPost, "/api/employees/ravi/payroll/commit", commit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[CommitPayrollResponse](t, rec)
	assert.True(t, second.AlreadyCommitted)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/employees/ravi/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]SalaryPaymentDTO](t, rec), 1)
}

func TestAdvanceSettleConflict(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)
	createEmployee(t, router, "ravi", 600)

	rec := doRequest(t, router, http.MethodPost, "/api/advances", GrantAdvanceRequest{
		EntityID: "ravi", EntityKind: "employee", Amount: 300, Date: "2026-08-18",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adv := decode[AdvanceDTO](t, rec)

	rec = doRequest(t, router, http.MethodPost, "/api/advances/"+adv.ID+"/settle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode[AdvanceDTO](t, rec).Status)

	// Conflict kind maps to 409.
	rec = doRequest(t, router, http.MethodPost, "/api/advances/"+adv.ID+"/settle", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode[ErrorResponse](t, rec).Kind)
}

func TestEmployeeBalanceEndpoint(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)
	createEmployee(t, router, "ravi", 600)

	rec := doRequest(t, router, http.MethodPost, "/api/advances", GrantAdvanceRequest{
		EntityID: "ravi", EntityKind: "employee", Amount: 300, Date: "2026-08-18",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The mutation invalidated the cache, so the read is fresh.
	rec = doRequest(t, router, http.MethodGet, "/api/employees/ravi/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[BalanceDTO](t, rec)
	assert.Equal(t, "300", balance.TotalAdvanced)
	assert.Equal(t, "300", balance.Balance)
}

func TestBulkAttendanceIsolation(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)
	createEmployee(t, router, "ravi", 600)
	createEmployee(t, router, "sita", 550)

	rec := doRequest(t, router, http.MethodPost, "/api/attendance/bulk", BulkAttendanceRequest{
		Entries: []MarkAttendanceRequest{
			{EmployeeID: "ravi", Date: "2026-08-17", Status: "present", CheckIn: "09:00", CheckOut: "18:00"},
			{EmployeeID: "ghost", Date: "2026-08-17", Status: "present"},
			{EmployeeID: "sita", Date: "2026-08-17", Status: "absent"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[BatchResultDTO](t, rec)

	// One unknown employee fails; the other two entries still landed.
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ghost", result.Failed[0].ID)
	assert.Equal(t, "not_found", result.Failed[0].Kind)
}

func TestCustomerAndInvoiceFlow(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)

	rec := doRequest(t, router, http.MethodPost, "/api/customers", CreateCustomerRequest{
		Name: "Sharma Traders", Phone: "+91 98765-43210",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "9876543210", decode[CustomerDTO](t, rec).Key)

	rec = doRequest(t, router, http.MethodPost, "/api/invoices", CreateInvoiceRequest{
		CustomerPhone: "9876543210",
		CustomerName:  "Sharma Traders",
		Items: []CreateInvoiceItemRequest{
			{Description: "bricks", Quantity: 200, UnitPrice: 6},
		},
		Date: "2026-08-17",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[InvoiceDTO](t, rec)
	assert.Equal(t, "1200", inv.TotalAmount)
	assert.Equal(t, "pending", inv.Status)

	rec = doRequest(t, router, http.MethodPost, "/api/customers/98765-43210/advances", RecordAdvancePaymentRequest{
		Amount: 500, Date: "2026-08-18",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Any spelling of the phone reaches the same account.
	rec = doRequest(t, router, http.MethodGet, "/api/customers/+91-98765-43210/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-700", decode[BalanceDTO](t, rec).Balance)

	rec = doRequest(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/pay", MarkPaidRequest{
		Method: "upi", Date: "2026-08-20",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[MarkPaidResponse](t, rec)
	assert.Equal(t, "paid", paid.Invoice.Status)
	assert.Equal(t, "1200", paid.Payment.Amount)

	rec = doRequest(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/pay", MarkPaidRequest{
		Method: "cash", Date: "2026-08-21",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/customers/9876543210/statement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatementDTO](t, rec)
	assert.Len(t, st.Invoices, 1)
	assert.Len(t, st.Payments, 1)
	assert.Equal(t, "500", st.Balance)
}

func TestPermissionMapping(t *testing.T) {
	// A staff user can mark attendance but cannot move money.
	_, router := newTestAPI(t, ledger.RoleStaff)

	rec := doRequest(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{Name: "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission", decode[ErrorResponse](t, rec).Kind)

	rec = doRequest(t, router, http.MethodPost, "/api/advances", GrantAdvanceRequest{
		EntityID: "ravi", EntityKind: "employee", Amount: 100, Date: "2026-08-18",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/attendance", MarkAttendanceRequest{
		EmployeeID: "ravi", Date: "2026-08-17", Status: "present",
	})
	// Not forbidden; fails later because the employee does not exist.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnqueueBatchRun(t *testing.T) {
	_, router := newTestAPI(t, ledger.RoleAdmin)

	rec := doRequest(t, router, http.MethodPost, "/api/batch-runs", EnqueueBatchRunRequest{
		Kind:   "bulk_attendance",
		Params: `{"date":"2026-08-17"}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[BatchRunDTO](t, rec)
	assert.Equal(t, "scheduled", run.Status)

	rec = doRequest(t, router, http.MethodGet, "/api/batch-runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/batch-runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]BatchRunDTO](t, rec), 1)

	// Unknown kinds are rejected at the door.
	rec = doRequest(t, router, http.MethodPost, "/api/batch-runs", EnqueueBatchRunRequest{Kind: "bulk_mischief"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
