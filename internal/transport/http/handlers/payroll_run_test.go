package handlers_test

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"testing"
	"time"

	"payledger/internal/domain/auth"
	"payledger/internal/domain/payroll"
)

func basicSalaryComponentID(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	status, env := getJSON(t, client, baseURL+"/api/v1/payroll/components", token)
	if status != http.StatusOK {
		t.Fatalf("list components failed with status %d", status)
	}
	var components []payroll.SalaryComponent
	decodeData(t, env, &components)
	for _, c := range components {
		if c.Name == "Basic Salary" {
			return c.ID
		}
	}
	t.Fatal("seeded Basic Salary component not found")
	return ""
}

// uniqueMonth picks a month/year pair unlikely to collide with earlier test
// runs against the same database.
func uniqueMonth() (int, int) {
	n := time.Now().UnixNano()
	return int(n/997%12) + 1, 2100 + int(n%97)
}

func weekdaysIn(month, year int) []time.Time {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for d := start; d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

func markPresent(t *testing.T, client *http.Client, baseURL, token, employeeID string, day time.Time) {
	t.Helper()
	status, _ := postJSON(t, client, baseURL+"/api/v1/attendance/marks", token, map[string]any{
		"employeeId": employeeID,
		"day":        day.Format("2006-01-02"),
		"status":     "present",
	})
	if status != http.StatusCreated {
		t.Fatalf("mark present failed with status %d", status)
	}
}

func lineForEmployee(t *testing.T, details payroll.RunDetails, employeeID string) payroll.LineWithDetails {
	t.Helper()
	for _, l := range details.Lines {
		if l.EmployeeID == employeeID {
			return l
		}
	}
	t.Fatalf("no payroll line for employee %s", employeeID)
	return payroll.LineWithDetails{}
}

func TestPayrollRunLifecycle(t *testing.T) {
	app, ts := newTestApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@example.com", "admin-password")

	empEmail := uniqueEmail("payroll-lifecycle")
	empID := insertEmployee(t, app, empEmail)
	insertUser(t, app, empID, empEmail, "employee-pass", auth.RoleEmployee)

	componentID := basicSalaryComponentID(t, client, ts.URL, adminToken)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/payroll/components/assign", adminToken, map[string]any{
		"employeeId":  empID,
		"componentId": componentID,
		"amount":      30000,
	}); status != http.StatusOK {
		t.Fatal("assign component failed")
	}

	month, year := uniqueMonth()
	weekdays := weekdaysIn(month, year)
	if len(weekdays) < 5 {
		t.Fatalf("unexpectedly few weekdays in %d-%02d", year, month)
	}
	// Present every working day except two, which become loss of pay.
	for _, day := range weekdays[2:] {
		markPresent(t, client, ts.URL, adminToken, empID, day)
	}

	status, env := postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"month": month,
		"year":  year,
	})
	if status != http.StatusCreated {
		t.Fatalf("process run failed with status %d: %+v", status, env.Error)
	}
	var run payroll.Run
	decodeData(t, env, &run)
	if run.Status != payroll.RunDraft {
		t.Fatalf("expected draft run, got %s", run.Status)
	}

	// Same month again is a conflict.
	status, env = postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"month": month,
		"year":  year,
	})
	if status != http.StatusConflict || errorCode(env) != "conflict" {
		t.Fatalf("expected conflict on duplicate run, got %d %+v", status, env.Error)
	}

	status, env = getJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID, adminToken)
	if status != http.StatusOK {
		t.Fatalf("get run details failed with status %d", status)
	}
	var details payroll.RunDetails
	decodeData(t, env, &details)
	line := lineForEmployee(t, details, empID)

	workingDays := float64(len(weekdays))
	daysWorked := workingDays - 2
	if line.WorkingDays != workingDays || line.DaysWorked != daysWorked || line.LossOfPayDays != 2 {
		t.Fatalf("unexpected attendance on line: worked=%v lop=%v working=%v",
			line.DaysWorked, line.LossOfPayDays, line.WorkingDays)
	}
	wantGross := math.Round(30000*daysWorked/workingDays*100) / 100
	if line.GrossEarnings != wantGross || line.NetPay != wantGross {
		t.Fatalf("expected pro-rated gross %v, got gross=%v net=%v", wantGross, line.GrossEarnings, line.NetPay)
	}

	// Payslips only exist once the run is finalized.
	payslipURL := fmt.Sprintf("%s/api/v1/payroll/runs/%s/payslips/%s", ts.URL, run.ID, empID)
	if status, env := getJSON(t, client, payslipURL, adminToken); status != http.StatusConflict {
		t.Fatalf("expected 409 for payslip on draft run, got %d %+v", status, env.Error)
	}

	status, env = postJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID+"/finalize", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("finalize failed with status %d: %+v", status, env.Error)
	}
	var finalized payroll.Run
	decodeData(t, env, &finalized)
	if finalized.Status != payroll.RunFinalized || finalized.FinalizedAt == nil {
		t.Fatalf("expected finalized run with timestamp, got %+v", finalized)
	}

	// Finalize is one way, and finalized runs cannot be deleted.
	if status, env := postJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID+"/finalize", adminToken, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on re-finalize, got %d %+v", status, env.Error)
	}
	if status, env := deleteJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID, adminToken); status != http.StatusConflict {
		t.Fatalf("expected 409 deleting finalized run, got %d %+v", status, env.Error)
	}

	// The employee can download their own payslip now.
	empToken := login(t, client, ts.URL, empEmail, "employee-pass")
	req, err := http.NewRequest(http.MethodGet, payslipURL, nil)
	if err != nil {
		t.Fatalf("failed to build payslip request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+empToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("payslip request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for payslip, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read payslip: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("payslip is empty")
	}
}

func TestPayrollDraftRunDelete(t *testing.T) {
	app, ts := newTestApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@example.com", "admin-password")

	empEmail := uniqueEmail("payroll-delete")
	empID := insertEmployee(t, app, empEmail)

	componentID := basicSalaryComponentID(t, client, ts.URL, adminToken)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/payroll/components/assign", adminToken, map[string]any{
		"employeeId":  empID,
		"componentId": componentID,
		"amount":      45000,
	}); status != http.StatusOK {
		t.Fatal("assign component failed")
	}

	month, year := uniqueMonth()
	year -= 73

	status, env := postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"month": month,
		"year":  year,
	})
	if status != http.StatusCreated {
		t.Fatalf("process run failed with status %d: %+v", status, env.Error)
	}
	var run payroll.Run
	decodeData(t, env, &run)

	if status, _ := deleteJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID, adminToken); status != http.StatusOK {
		t.Fatalf("delete draft run failed with status %d", status)
	}
	if status, _ := getJSON(t, client, ts.URL+"/api/v1/payroll/runs/"+run.ID, adminToken); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}

	// The month is free again after deletion.
	if status, _ = postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"month": month,
		"year":  year,
	}); status != http.StatusCreated {
		t.Fatalf("reprocess after delete failed with status %d", status)
	}

	var count int
	if err := app.DB.QueryRow(context.Background(),
		"SELECT COUNT(1) FROM payroll_runs WHERE month = $1 AND year = $2", month, year).Scan(&count); err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single run for the month, found %d", count)
	}
}
