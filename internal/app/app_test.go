package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/database"
	"leed-assist/internal/feedback"
	"leed-assist/internal/llm"
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
				{"name": "Renewable Energy", "type": "Credit", "points": 5}
			]
		},
		"Water Efficiency": {
			"total_points": 11,
			"credits": [
				{"name": "Water Metering", "type": "Credit", "points": 1},
				{"name": "Indoor Water Use Reduction", "type": "Credit", "points": 6}
			]
		}
	}
}`

type stubTextGenerator struct {
	response string
}

func (s *stubTextGenerator) GenerateContent(_ context.Context, _ string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: s.response}, nil
}

func newTestApp(t *testing.T, textGen llm.TextGenerator) *App {
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

	gen := feedback.NewGenerator(textGen, feedback.LoadRubrics(filepath.Join(dir, "missing.json")))
	return NewApp(cat, plan.NewStore(db.SQL), gen, metrics.NewStore(db.SQL), &config.Config{})
}

func TestSubmitPhaseAndGetPlan(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	// Coercion, clamping, and prereq dropping all apply on the way in.
	res, err := a.SubmitPhase(ctx, "user-1", "priority", map[string]any{
		"optimize energy performance": "12",
		"Water Metering":              1.2,
		"Minimum Energy Performance":  5,
		"Not A Credit":                3,
	}, true)
	if err != nil {
		t.Fatalf("SubmitPhase failed: %v", err)
	}
	if res.TotalPoints != 13 {
		t.Errorf("expected total 13, got %d", res.TotalPoints)
	}
	if len(res.Phase.Claims) != 2 {
		t.Errorf("expected 2 claims, got %+v", res.Phase.Claims)
	}
	// Twelve high-cost points crosses the warning threshold.
	if !res.CostReport.HasWarning {
		t.Error("expected a cost warning")
	}

	// A credit repeated across phases counts twice in the additive total
	// but once in the merged plan.
	if _, err := a.SubmitPhase(ctx, "user-1", "supplement", map[string]any{
		"Optimize Energy Performance": 12,
	}, true); err != nil {
		t.Fatalf("SubmitPhase supplement failed: %v", err)
	}

	view, err := a.GetPlan(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if view.TotalPoints != 25 {
		t.Errorf("expected additive total 25, got %d", view.TotalPoints)
	}
	if view.Merged.Total != 13 {
		t.Errorf("expected merged total 13, got %d", view.Merged.Total)
	}
}

func TestSubmitPhaseRejectsUnknownPhase(t *testing.T) {
	a := newTestApp(t, nil)

	if _, err := a.SubmitPhase(context.Background(), "user-1", "bonus", map[string]any{}, true); err == nil {
		t.Error("expected an error for an unknown phase")
	}
}

func TestGetSuggestions(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	if _, err := a.SubmitPhase(ctx, "user-1", "priority", map[string]any{
		"Optimize Energy Performance": 12,
	}, true); err != nil {
		t.Fatalf("SubmitPhase failed: %v", err)
	}

	view, err := a.GetSuggestions(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSuggestions failed: %v", err)
	}
	if !view.CostReport.HasWarning {
		t.Error("expected a warning for 12 high-cost points")
	}
	if len(view.CostReport.Suggestions) == 0 {
		t.Error("expected substitution suggestions")
	}

	// Candidates exclude the claimed credit and the prerequisite and come
	// back cheapest first.
	var names []string
	for _, c := range view.Candidates {
		names = append(names, c.Name)
	}
	want := []string{"Water Metering", "Renewable Energy", "Indoor Water Use Reduction"}
	if len(names) != len(want) {
		t.Fatalf("expected candidates %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected candidates %v, got %v", want, names)
		}
	}
}

func TestGenerateFeedbackDegraded(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	if _, err := a.SubmitPhase(ctx, "user-1", "priority", map[string]any{
		"Water Metering": 1,
	}, true); err != nil {
		t.Fatalf("SubmitPhase failed: %v", err)
	}

	res, err := a.GenerateFeedback(ctx, "user-1", "<p>We install meters everywhere.</p>")
	if err != nil {
		t.Fatalf("GenerateFeedback failed: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded feedback without a model")
	}
	if !strings.Contains(res.Feedback, "Water Metering") {
		t.Errorf("missing claim in feedback:\n%s", res.Feedback)
	}

	// The round must be queryable and ratable afterwards.
	last, err := a.LastFeedback(ctx, "user-1")
	if err != nil {
		t.Fatalf("LastFeedback failed: %v", err)
	}
	if last.Feedback != res.Feedback {
		t.Error("stored feedback differs from the returned one")
	}
	if err := a.RateFeedback(ctx, "user-1", 5, "clear"); err != nil {
		t.Fatalf("RateFeedback failed: %v", err)
	}
}

func TestGenerateFeedbackWithModel(t *testing.T) {
	a := newTestApp(t, &stubTextGenerator{response: `{
		"credits": [
			{"name": "Water Metering", "claimed_points": 1, "judgement": "meet",
			 "max_supported_points": 1, "rationale": "Meters described.",
			 "missing": [], "suggestion": "None."}
		],
		"writing": [],
		"overall": {"supported_points": 1, "notes": "ok"}
	}`})
	ctx := context.Background()

	if _, err := a.SubmitPhase(ctx, "user-1", "priority", map[string]any{
		"Water Metering": 1,
	}, true); err != nil {
		t.Fatalf("SubmitPhase failed: %v", err)
	}

	res, err := a.GenerateFeedback(ctx, "user-1", "We install meters everywhere.")
	if err != nil {
		t.Fatalf("GenerateFeedback failed: %v", err)
	}
	if res.Degraded {
		t.Error("expected a full review with a model")
	}
	if res.MergedPoints != 1 {
		t.Errorf("expected merged points 1, got %d", res.MergedPoints)
	}
	if !strings.Contains(res.Shortcomings, "Gap to 40: 39.0 pts.") {
		t.Errorf("unexpected shortcomings: %q", res.Shortcomings)
	}
}

func TestGenerateFeedbackRequiresClaims(t *testing.T) {
	a := newTestApp(t, nil)

	_, err := a.GenerateFeedback(context.Background(), "user-1", "a narrative without saved credits")
	if err != feedback.ErrNoClaims {
		t.Errorf("expected ErrNoClaims, got %v", err)
	}
}
