package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"payledger/internal/app/server"
	"payledger/internal/domain/auth"
	"payledger/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Addr:                 ":0",
		DatabaseURL:          dbURL,
		JWTSecret:            "integration-test-secret",
		Environment:          "test",
		MigrationsDir:        "../../../../migrations",
		SeedAdminEmail:       "admin@example.com",
		SeedAdminPassword:    "admin-password",
		RunMigrations:        true,
		RunSeed:              true,
		MaxBodyBytes:         1 << 20,
		MetricsEnabled:       true,
		LeaveExcludeHolidays: true,
	}
}

func newTestApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	status, env := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login for %s failed with status %d", email, status)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return data.Token
}

// insertEmployee writes directly to the database since employee provisioning
// is out of scope for the HTTP surface.
func insertEmployee(t *testing.T, app *server.App, email string) string {
	t.Helper()
	var id string
	err := app.DB.QueryRow(context.Background(), `
    INSERT INTO employees (first_name, last_name, email)
    VALUES ('Test', 'Employee', $1)
    RETURNING id
  `, email).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert employee: %v", err)
	}
	return id
}

func insertUser(t *testing.T, app *server.App, employeeID, email, password, role string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	_, err = app.DB.Exec(context.Background(), `
    INSERT INTO users (email, password_hash, role, employee_id)
    VALUES ($1,$2,$3,$4)
  `, email, hash, role, employeeID)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response from %s: %v", url, err)
	}
	return resp.StatusCode, env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) (int, envelope) {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body)
}

func getJSON(t *testing.T, client *http.Client, url, token string) (int, envelope) {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil)
}

func deleteJSON(t *testing.T, client *http.Client, url, token string) (int, envelope) {
	t.Helper()
	return doJSON(t, client, http.MethodDelete, url, token, nil)
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode envelope data: %v", err)
	}
}
