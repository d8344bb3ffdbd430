package handlers_test

import (
	"net/http"
	"sync"
	"testing"

	"payledger/internal/domain/auth"
	"payledger/internal/domain/leave"
)

func annualLeaveTypeID(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	status, env := getJSON(t, client, baseURL+"/api/v1/leave/types", token)
	if status != http.StatusOK {
		t.Fatalf("list leave types failed with status %d", status)
	}
	var types []leave.LeaveType
	decodeData(t, env, &types)
	for _, lt := range types {
		if lt.Name == "Annual Leave" {
			return lt.ID
		}
	}
	t.Fatal("seeded Annual Leave type not found")
	return ""
}

func balanceFor(t *testing.T, client *http.Client, baseURL, token, employeeID, typeID string) leave.Balance {
	t.Helper()
	status, env := getJSON(t, client, baseURL+"/api/v1/leave/balances?employeeId="+employeeID+"&year=2026", token)
	if status != http.StatusOK {
		t.Fatalf("list balances failed with status %d", status)
	}
	var balances []leave.Balance
	decodeData(t, env, &balances)
	for _, b := range balances {
		if b.LeaveTypeID == typeID {
			return b
		}
	}
	t.Fatalf("no balance for leave type %s", typeID)
	return leave.Balance{}
}

func submitLeave(t *testing.T, client *http.Client, baseURL, token, typeID, start, end string) (int, envelope) {
	t.Helper()
	return postJSON(t, client, baseURL+"/api/v1/leave/requests", token, map[string]any{
		"leaveTypeId": typeID,
		"startDate":   start,
		"endDate":     end,
		"reason":      "vacation",
	})
}

func TestLeaveRequestLifecycle(t *testing.T) {
	app, ts := newTestApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@example.com", "admin-password")

	empEmail := uniqueEmail("leave-lifecycle")
	empID := insertEmployee(t, app, empEmail)
	insertUser(t, app, empID, empEmail, "employee-pass", auth.RoleEmployee)
	empToken := login(t, client, ts.URL, empEmail, "employee-pass")

	typeID := annualLeaveTypeID(t, client, ts.URL, adminToken)

	status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]any{
		"employeeId": empID,
		"year":       2026,
	})
	if status != http.StatusCreated {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	// Repeat initialization must not reset anything.
	status, _ = postJSON(t, client, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]any{
		"employeeId": empID,
		"year":       2026,
	})
	if status != http.StatusCreated {
		t.Fatalf("repeat initialize failed with status %d", status)
	}

	if b := balanceFor(t, client, ts.URL, adminToken, empID, typeID); b.RemainingDays != 20 || b.UsedDays != 0 {
		t.Fatalf("expected fresh balance 20/0, got remaining=%v used=%v", b.RemainingDays, b.UsedDays)
	}

	// Mon..Fri, five working days.
	status, env := submitLeave(t, client, ts.URL, empToken, typeID, "2026-03-02", "2026-03-06")
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d: %+v", status, env.Error)
	}
	var req leave.Request
	decodeData(t, env, &req)
	if req.Days != 5 || req.Status != leave.StatusPending {
		t.Fatalf("expected 5-day pending request, got days=%v status=%s", req.Days, req.Status)
	}

	// Employees cannot approve.
	status, _ = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+req.ID+"/approve", empToken, map[string]any{})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for employee approve, got %d", status)
	}

	status, env = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+req.ID+"/approve", adminToken, map[string]any{"comments": "enjoy"})
	if status != http.StatusOK {
		t.Fatalf("approve failed with status %d: %+v", status, env.Error)
	}
	if b := balanceFor(t, client, ts.URL, adminToken, empID, typeID); b.UsedDays != 5 || b.RemainingDays != 15 {
		t.Fatalf("expected balance 15/5 after approve, got remaining=%v used=%v", b.RemainingDays, b.UsedDays)
	}

	// Approving twice is an invalid transition.
	status, env = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+req.ID+"/approve", adminToken, map[string]any{})
	if status != http.StatusConflict || errorCode(env) != "invalid_state" {
		t.Fatalf("expected invalid_state conflict on re-approve, got %d %+v", status, env.Error)
	}

	// A request larger than the whole balance fails at submission.
	status, env = submitLeave(t, client, ts.URL, empToken, typeID, "2026-05-04", "2026-08-28")
	if status != http.StatusUnprocessableEntity || errorCode(env) != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance on oversize submit, got %d %+v", status, env.Error)
	}
}

func TestLeaveApproveRevalidatesBalance(t *testing.T) {
	app, ts := newTestApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@example.com", "admin-password")

	empEmail := uniqueEmail("leave-revalidate")
	empID := insertEmployee(t, app, empEmail)
	insertUser(t, app, empID, empEmail, "employee-pass", auth.RoleEmployee)
	empToken := login(t, client, ts.URL, empEmail, "employee-pass")

	typeID := annualLeaveTypeID(t, client, ts.URL, adminToken)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]any{
		"employeeId": empID,
		"year":       2026,
	}); status != http.StatusCreated {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	// Two ten-day requests. Each fits the 20-day balance on its own, so both
	// submissions pass the advisory check.
	status, envA := submitLeave(t, client, ts.URL, empToken, typeID, "2026-04-06", "2026-04-17")
	if status != http.StatusCreated {
		t.Fatalf("submit A failed with status %d", status)
	}
	status, envB := submitLeave(t, client, ts.URL, empToken, typeID, "2026-05-04", "2026-05-15")
	if status != http.StatusCreated {
		t.Fatalf("submit B failed with status %d", status)
	}
	var reqA, reqB leave.Request
	decodeData(t, envA, &reqA)
	decodeData(t, envB, &reqB)
	if reqA.Days != 10 || reqB.Days != 10 {
		t.Fatalf("expected two 10-day requests, got %v and %v", reqA.Days, reqB.Days)
	}

	// Burn most of the balance through the first approval, then the second
	// approval must fail and leave its request pending.
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqA.ID+"/approve", adminToken, nil); status != http.StatusOK {
		t.Fatalf("approve A failed with status %d", status)
	}
	// Use up 5 more days so B cannot fit.
	status, envC := submitLeave(t, client, ts.URL, empToken, typeID, "2026-06-01", "2026-06-05")
	if status != http.StatusCreated {
		t.Fatalf("submit C failed with status %d", status)
	}
	var reqC leave.Request
	decodeData(t, envC, &reqC)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqC.ID+"/approve", adminToken, nil); status != http.StatusOK {
		t.Fatalf("approve C failed with status %d", status)
	}

	status, env := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqB.ID+"/approve", adminToken, nil)
	if status != http.StatusUnprocessableEntity || errorCode(env) != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance on approve B, got %d %+v", status, env.Error)
	}
	status, env = getJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqB.ID, adminToken)
	if status != http.StatusOK {
		t.Fatalf("get request B failed with status %d", status)
	}
	var after leave.Request
	decodeData(t, env, &after)
	if after.Status != leave.StatusPending {
		t.Fatalf("expected request B to stay pending, got %s", after.Status)
	}

	// Admin reversal of the approved request credits the days back, after
	// which B fits again.
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqA.ID+"/cancel", adminToken, map[string]any{"comments": "plans changed"}); status != http.StatusOK {
		t.Fatalf("admin cancel of approved request failed with status %d", status)
	}
	if b := balanceFor(t, client, ts.URL, adminToken, empID, typeID); b.UsedDays != 5 || b.RemainingDays != 15 {
		t.Fatalf("expected balance 15/5 after reversal, got remaining=%v used=%v", b.RemainingDays, b.UsedDays)
	}
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqB.ID+"/approve", adminToken, nil); status != http.StatusOK {
		t.Fatalf("approve B after reversal failed with status %d", status)
	}

	// Rejection never touches the ledger.
	status, envD := submitLeave(t, client, ts.URL, empToken, typeID, "2026-07-06", "2026-07-06")
	if status != http.StatusCreated {
		t.Fatalf("submit D failed with status %d", status)
	}
	var reqD leave.Request
	decodeData(t, envD, &reqD)
	before := balanceFor(t, client, ts.URL, adminToken, empID, typeID)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reqD.ID+"/reject", adminToken, map[string]any{"comments": "coverage"}); status != http.StatusOK {
		t.Fatalf("reject failed with status %d", status)
	}
	after2 := balanceFor(t, client, ts.URL, adminToken, empID, typeID)
	if before.UsedDays != after2.UsedDays || before.RemainingDays != after2.RemainingDays {
		t.Fatal("rejection changed the ledger")
	}
}

func TestLeaveApproveConcurrent(t *testing.T) {
	app, ts := newTestApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@example.com", "admin-password")

	empEmail := uniqueEmail("leave-concurrent")
	empID := insertEmployee(t, app, empEmail)
	insertUser(t, app, empID, empEmail, "employee-pass", auth.RoleEmployee)
	empToken := login(t, client, ts.URL, empEmail, "employee-pass")

	typeID := annualLeaveTypeID(t, client, ts.URL, adminToken)
	if status, _ := postJSON(t, client, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]any{
		"employeeId": empID,
		"year":       2026,
	}); status != http.StatusCreated {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	status, env := submitLeave(t, client, ts.URL, empToken, typeID, "2026-09-07", "2026-09-11")
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d", status)
	}
	var req leave.Request
	decodeData(t, env, &req)

	const workers = 4
	statuses := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+req.ID+"/approve", adminToken, nil)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, s := range statuses {
		if s == http.StatusOK {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful approval, got %d (statuses %v)", successes, statuses)
	}
	if b := balanceFor(t, client, ts.URL, adminToken, empID, typeID); b.UsedDays != 5 {
		t.Fatalf("expected exactly one debit of 5 days, got used=%v", b.UsedDays)
	}
}
