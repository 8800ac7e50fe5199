package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"appraisal/internal/app/server"
	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		Environment:        "test",
		SeedTenantName:     "Test Tenant",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

func TestAppraisalReleaseJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	var tenantID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", cfg.SeedTenantName).Scan(&tenantID); err != nil {
		t.Fatalf("failed to load tenant: %v", err)
	}
	var adminUserID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, cfg.SeedAdminEmail).Scan(&adminUserID); err != nil {
		t.Fatalf("failed to load admin user: %v", err)
	}
	var employeeID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, adminUserID, "Avery", "Admin").Scan(&employeeID); err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	var configID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM rating_configs WHERE tenant_id = $1 AND name = $2", tenantID, "Standard").Scan(&configID); err != nil {
		t.Fatalf("failed to load rating config: %v", err)
	}

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	cycleID := createCycle(t, client, ts.URL, token)

	resp := postJSON(t, client, ts.URL+"/api/v1/appraisal/cycles/"+cycleID+"/activate", token, nil)
	if status := fieldString(t, resp.Data, "status"); status != "active" {
		t.Fatalf("expected cycle status active, got %s", status)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/cycles/"+cycleID+"/participants", token, map[string]any{
		"employeeId": employeeID,
	})
	participantID := fieldString(t, resp.Data, "id")
	if participantID == "" {
		t.Fatal("expected participant id")
	}

	var goalID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO goals (tenant_id, cycle_id, employee_id, rating_config_id, title, weight, progress)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, cycleID, employeeID, configID, "Ship the thing", 1.0, 50.0).Scan(&goalID); err != nil {
		t.Fatalf("failed to create goal: %v", err)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/goals/"+goalID+"/self-rating", token, map[string]any{
		"rating":   4.0,
		"comments": "Did the thing",
	})
	if status := fieldString(t, resp.Data, "status"); status != "self_submitted" {
		t.Fatalf("expected submission status self_submitted, got %s", status)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/goals/"+goalID+"/manager-rating", token, map[string]any{
		"rating":   4.0,
		"comments": "Agreed",
	})
	if status := fieldString(t, resp.Data, "status"); status != "manager_submitted" {
		t.Fatalf("expected submission status manager_submitted, got %s", status)
	}
	submissionID := fieldString(t, resp.Data, "id")

	// self 4 * 30% + manager 4 * 50% + progress 50% of scale 5 * 20% = 3.7
	var submission struct {
		FinalScore *float64 `json:"finalScore"`
	}
	if err := json.Unmarshal(resp.Data, &submission); err != nil {
		t.Fatalf("failed to decode submission: %v", err)
	}
	if submission.FinalScore == nil || math.Abs(*submission.FinalScore-3.7) > 0.01 {
		t.Fatalf("expected final score 3.7, got %v", submission.FinalScore)
	}

	advanceParticipant(t, client, ts.URL, token, participantID, "in_progress")
	advanceParticipant(t, client, ts.URL, token, participantID, "finalized")

	released := releaseCycle(t, client, ts.URL, token, cycleID, "journey-release-1")
	if released != 1 {
		t.Fatalf("expected 1 released participant, got %d", released)
	}

	// Retrying with the same idempotency key replays the stored result.
	released = releaseCycle(t, client, ts.URL, token, cycleID, "journey-release-1")
	if released != 1 {
		t.Fatalf("expected replayed release result of 1, got %d", released)
	}

	resp = getJSON(t, client, ts.URL+"/api/v1/appraisal/goals/"+goalID+"/submission", token)
	if status := fieldString(t, resp.Data, "status"); status != "released" {
		t.Fatalf("expected submission status released, got %s", status)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/submissions/"+submissionID+"/dispute", token, map[string]any{
		"category": "score",
		"reason":   "Progress was under-counted",
	})
	if status := fieldString(t, resp.Data, "status"); status != "disputed" {
		t.Fatalf("expected submission status disputed, got %s", status)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/submissions/"+submissionID+"/resolve", token, map[string]any{
		"resolution":         "Adjusted after review",
		"outcome":            "resolved",
		"adjustedFinalScore": 4.0,
	})
	if status := fieldString(t, resp.Data, "status"); status != "released" {
		t.Fatalf("expected submission back to released, got %s", status)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/appraisal/submissions/"+submissionID+"/acknowledge", token, map[string]any{
		"comments": "Thanks",
	})
	if status := fieldString(t, resp.Data, "status"); status != "acknowledged" {
		t.Fatalf("expected submission status acknowledged, got %s", status)
	}

	resp = getJSON(t, client, ts.URL+"/api/v1/reports/cycles/"+cycleID+"/summary", token)
	var summary struct {
		Participants    int `json:"participants"`
		ReleasedRatings int `json:"releasedRatings"`
		Acknowledged    int `json:"acknowledged"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Participants != 1 || summary.ReleasedRatings != 1 || summary.Acknowledged != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestEmployeeCannotReleaseCycle(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	var tenantID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", cfg.SeedTenantName).Scan(&tenantID); err != nil {
		t.Fatalf("failed to load tenant: %v", err)
	}
	var employeeRoleID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, auth.RoleEmployee).Scan(&employeeRoleID); err != nil {
		t.Fatalf("failed to load employee role: %v", err)
	}

	email := fmt.Sprintf("employee-%d@example.com", time.Now().UnixNano())
	password := "Employee123!"
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	var userID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, email, hash, employeeRoleID).Scan(&userID); err != nil {
		t.Fatalf("failed to create employee user: %v", err)
	}

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	token := login(t, ts.Client(), ts.URL, email, password)
	postJSONStatus(t, ts.Client(), ts.URL+"/api/v1/appraisal/cycles/00000000-0000-0000-0000-000000000000/release", token, nil, http.StatusForbidden)
}

func createCycle(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	name := fmt.Sprintf("Journey %d", time.Now().UnixNano())
	resp := postJSON(t, client, baseURL+"/api/v1/appraisal/cycles", token, map[string]any{
		"name":            name,
		"startDate":       "2026-01-01",
		"endDate":         "2026-12-31",
		"gracePeriodDays": 3,
		"autoActivate":    false,
		"autoComplete":    false,
	})
	id := fieldString(t, resp.Data, "id")
	if id == "" {
		t.Fatal("expected cycle id")
	}
	return id
}

func advanceParticipant(t *testing.T, client *http.Client, baseURL, token, participantID, target string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/appraisal/participants/"+participantID+"/advance", token, map[string]any{
		"target": target,
	})
	if status := fieldString(t, resp.Data, "status"); status != target {
		t.Fatalf("expected participant status %s, got %s", target, status)
	}
}

func releaseCycle(t *testing.T, client *http.Client, baseURL, token, cycleID, idempotencyKey string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/appraisal/cycles/"+cycleID+"/release", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", idempotencyKey)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	var result struct {
		Released int `json:"released"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode release result: %v", err)
	}
	return result.Released
}

func fieldString(t *testing.T, data json.RawMessage, field string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	value, _ := payload[field].(string)
	return value
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	token := fieldString(t, resp.Data, "token")
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
}
