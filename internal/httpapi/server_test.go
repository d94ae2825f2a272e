package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leed-assist/internal/app"
	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/database"
	"leed-assist/internal/feedback"
	"leed-assist/internal/metrics"
	"leed-assist/internal/plan"
)

const catalogDoc = `{
	"categories": {
		"Energy and Atmosphere": {
			"total_points": 33,
			"credits": [
				{"name": "Minimum Energy Performance", "type": "Prereq", "points": "Required"},
				{"name": "Optimize Energy Performance", "type": "Credit", "points": 18},
				{"name": "Renewable Energy", "type": "Credit", "points": 5},
				{"name": "Water Metering", "type": "Credit", "points": 1}
			]
		}
	}
}`

func newTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalogPath, []byte(catalogDoc), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	db, err := database.NewDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CatalogPath:     catalogPath,
		DatabasePath:    filepath.Join(dir, "test.db"),
		TokenSigningKey: "test-signing-key",
	}
	gen := feedback.NewGenerator(nil, feedback.LoadRubrics(filepath.Join(dir, "missing.json")))
	a := app.NewApp(cat, plan.NewStore(db.SQL), gen, metrics.NewStore(db.SQL), cfg)

	mux := http.NewServeMux()
	NewServer(a, cfg).RegisterHandlers(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, cfg
}

func doRequest(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, decoded
}

func mintTestToken(t *testing.T, cfg *config.Config, userID string, admin bool) string {
	t.Helper()
	token, err := MintToken(cfg.TokenSigningKey, userID, admin, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func TestAuth(t *testing.T) {
	srv, cfg := newTestServer(t)

	t.Run("MissingToken", func(t *testing.T) {
		resp, body := doRequest(t, "GET", srv.URL+"/api/plan", "", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if body["success"] != false {
			t.Errorf("expected success=false, got %v", body)
		}
	})

	t.Run("BadToken", func(t *testing.T) {
		resp, _ := doRequest(t, "GET", srv.URL+"/api/plan", "garbage", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("ValidToken", func(t *testing.T) {
		token := mintTestToken(t, cfg, "student-1", false)
		resp, body := doRequest(t, "GET", srv.URL+"/api/plan", token, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("expected success=true, got %v", body)
		}
	})
}

func TestScoresAndPlanFlow(t *testing.T) {
	srv, cfg := newTestServer(t)
	token := mintTestToken(t, cfg, "student-1", false)

	resp, body := doRequest(t, "POST", srv.URL+"/api/scores", token,
		`{"phase": "priority", "scores": {"Optimize Energy Performance": "12", "Water Metering": 1}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["total_points"] != float64(13) {
		t.Errorf("expected total 13, got %v", data["total_points"])
	}
	report := data["cost_report"].(map[string]any)
	if report["has_warning"] != true {
		t.Errorf("expected a cost warning, got %v", report)
	}

	resp, body = doRequest(t, "GET", srv.URL+"/api/suggestions", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	suggestions := body["data"].(map[string]any)
	report = suggestions["cost_report"].(map[string]any)
	if report["has_warning"] != true {
		t.Errorf("expected warning in suggestions: %v", body)
	}
	// Renewable Energy is high tier and Water Metering is claimed, so no
	// substitutes qualify; the list must still be an array, not null.
	subs, ok := report["suggestions"].([]any)
	if !ok || len(subs) != 0 {
		t.Errorf("expected empty substitution array, got %v", report["suggestions"])
	}
	candidates, ok := suggestions["candidates"].([]any)
	if !ok || len(candidates) != 1 {
		t.Fatalf("expected one unclaimed candidate, got %v", suggestions["candidates"])
	}
	if candidates[0].(map[string]any)["name"] != "Renewable Energy" {
		t.Errorf("expected Renewable Energy as the unclaimed candidate, got %v", candidates[0])
	}

	resp, body = doRequest(t, "POST", srv.URL+"/api/scores", token, `{"phase": "bonus", "scores": {}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown phase, got %d: %v", resp.StatusCode, body)
	}
}

func TestFeedbackFlow(t *testing.T) {
	srv, cfg := newTestServer(t)
	token := mintTestToken(t, cfg, "student-1", false)

	// Feedback without claims is a client error.
	resp, _ := doRequest(t, "POST", srv.URL+"/api/feedback", token, `{"narrative": "text"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without claims, got %d", resp.StatusCode)
	}

	// No feedback yet.
	resp, _ = doRequest(t, "GET", srv.URL+"/api/feedback/last", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before feedback, got %d", resp.StatusCode)
	}

	doRequest(t, "POST", srv.URL+"/api/scores", token,
		`{"phase": "priority", "scores": {"Water Metering": 1}}`)

	resp, body := doRequest(t, "POST", srv.URL+"/api/feedback", token,
		`{"narrative": "We meter all end uses."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["data"].(map[string]any)["degraded"] != true {
		t.Errorf("expected degraded feedback without a model: %v", body)
	}

	resp, _ = doRequest(t, "GET", srv.URL+"/api/feedback/last", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after feedback, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, "POST", srv.URL+"/api/feedback/rate", token, `{"rating": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for rating, got %d", resp.StatusCode)
	}
}

func TestCatalogAdmin(t *testing.T) {
	srv, cfg := newTestServer(t)
	studentToken := mintTestToken(t, cfg, "student-1", false)
	adminToken := mintTestToken(t, cfg, "admin-1", true)

	newDoc := `{
		"categories": {
			"Energy and Atmosphere": {
				"total_points": 33,
				"credits": [{"name": "Renewable Energy", "type": "Credit", "points": 5}]
			}
		}
	}`

	t.Run("ReadIsOpenToUsers", func(t *testing.T) {
		resp, body := doRequest(t, "GET", srv.URL+"/api/catalog", studentToken, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(body["data"].([]any)) != 4 {
			t.Errorf("expected 4 catalog items, got %v", body["data"])
		}
	})

	t.Run("WriteRequiresAdmin", func(t *testing.T) {
		resp, _ := doRequest(t, "POST", srv.URL+"/api/catalog", studentToken, newDoc)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
		}
	})

	t.Run("WriteAndReload", func(t *testing.T) {
		resp, _ := doRequest(t, "POST", srv.URL+"/api/catalog", adminToken, newDoc)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		resp, body := doRequest(t, "GET", srv.URL+"/api/catalog", adminToken, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		items := body["data"].([]any)
		if len(items) != 1 {
			t.Fatalf("expected reloaded catalog with 1 item, got %d", len(items))
		}
	})

	t.Run("RejectsInvalidDocument", func(t *testing.T) {
		resp, _ := doRequest(t, "POST", srv.URL+"/api/catalog", adminToken, `{"neither": "shape"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for invalid catalog, got %d", resp.StatusCode)
		}
	})

	t.Run("RejectsDuplicateNamesWithoutWriting", func(t *testing.T) {
		before, err := os.ReadFile(cfg.CatalogPath)
		if err != nil {
			t.Fatalf("failed to read catalog file: %v", err)
		}

		dupDoc := `{"categories": {"A": {"credits": [
			{"name": "Daylight", "type": "Credit", "points": 3},
			{"name": "daylight", "type": "Credit", "points": 2}
		]}}}`
		resp, _ := doRequest(t, "POST", srv.URL+"/api/catalog", adminToken, dupDoc)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for duplicate names, got %d", resp.StatusCode)
		}

		after, err := os.ReadFile(cfg.CatalogPath)
		if err != nil {
			t.Fatalf("failed to read catalog file: %v", err)
		}
		if string(before) != string(after) {
			t.Error("rejected document must not replace the catalog file")
		}
	})
}

func TestMetricsAdminOnly(t *testing.T) {
	srv, cfg := newTestServer(t)

	resp, _ := doRequest(t, "GET", srv.URL+"/api/metrics", mintTestToken(t, cfg, "student-1", false), "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	resp, body := doRequest(t, "GET", srv.URL+"/api/metrics", mintTestToken(t, cfg, "admin-1", true), "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d: %v", resp.StatusCode, body)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, "GET", srv.URL+"/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}
