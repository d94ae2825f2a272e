package plan

import (
	"context"
	"path/filepath"
	"testing"

	"leed-assist/internal/credit"
	"leed-assist/internal/database"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestGetDraftLazyCreation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d, err := s.GetDraft(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if d.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", d.UserID)
	}
	if d.TotalPoints != 0 || len(d.Priority.Claims) != 0 || len(d.Supplement.Claims) != 0 {
		t.Errorf("expected empty draft, got %+v", d)
	}
}

func TestSetPhaseReplaceAndMerge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d, err := s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 2}}, true)
	if err != nil {
		t.Fatalf("SetPhase failed: %v", err)
	}
	if d.TotalPoints != 2 {
		t.Errorf("expected total 2, got %d", d.TotalPoints)
	}

	// Merging keeps the higher point value per credit.
	d, err = s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 1}, {Name: "Acoustic Performance", Points: 1}}, false)
	if err != nil {
		t.Fatalf("SetPhase merge failed: %v", err)
	}
	if d.Priority.Total != 3 {
		t.Errorf("expected priority subtotal 3, got %d", d.Priority.Total)
	}

	// Replacing discards the previous bucket.
	d, err = s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 1}}, true)
	if err != nil {
		t.Fatalf("SetPhase replace failed: %v", err)
	}
	if d.Priority.Total != 1 {
		t.Errorf("expected priority subtotal 1, got %d", d.Priority.Total)
	}
}

func TestAdditiveTotalVersusMergedTotal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 5}}, true); err != nil {
		t.Fatalf("SetPhase priority failed: %v", err)
	}
	d, err := s.SetPhase(ctx, "user-1", credit.PhaseSupplement,
		[]credit.Claim{{Name: "Daylight", Points: 5}}, true)
	if err != nil {
		t.Fatalf("SetPhase supplement failed: %v", err)
	}

	// The phase totals double-count a credit claimed in both phases.
	if d.TotalPoints != 10 {
		t.Errorf("expected additive total 10, got %d", d.TotalPoints)
	}
	merged := d.Merged()
	if merged.Total != 5 {
		t.Errorf("expected merged total 5, got %d", merged.Total)
	}
	if len(merged.Claims) != 1 {
		t.Errorf("expected 1 merged claim, got %d", len(merged.Claims))
	}
}

func TestFinalizeAndLastInteraction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 3}}, true); err != nil {
		t.Fatalf("SetPhase failed: %v", err)
	}

	got, err := s.Finalize(ctx, "user-1", FeedbackRecord{
		Prompt:       "narrative text",
		Feedback:     "## Feedback",
		Shortcomings: "needs more detail",
	})
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if got.ID == 0 {
		t.Error("expected a non-zero interaction ID")
	}
	if got.MergedPoints != 3 {
		t.Errorf("expected merged points 3, got %d", got.MergedPoints)
	}

	last, err := s.LastInteraction(ctx, "user-1")
	if err != nil {
		t.Fatalf("LastInteraction failed: %v", err)
	}
	if last.ID != got.ID {
		t.Errorf("expected interaction %d, got %d", got.ID, last.ID)
	}
	if last.Feedback != "## Feedback" {
		t.Errorf("unexpected feedback: %q", last.Feedback)
	}

	// The draft survives finalization.
	d, err := s.GetDraft(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if d.TotalPoints != 3 {
		t.Errorf("expected draft to survive with total 3, got %d", d.TotalPoints)
	}
}

func TestLastInteractionEmpty(t *testing.T) {
	s := testStore(t)

	_, err := s.LastInteraction(context.Background(), "nobody")
	if err != ErrNoInteraction {
		t.Errorf("expected ErrNoInteraction, got %v", err)
	}
}

func TestRate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Rate(ctx, "user-1", 4, "helpful"); err != ErrNoInteraction {
		t.Errorf("expected ErrNoInteraction before any feedback, got %v", err)
	}

	if _, err := s.SetPhase(ctx, "user-1", credit.PhasePriority,
		[]credit.Claim{{Name: "Daylight", Points: 3}}, true); err != nil {
		t.Fatalf("SetPhase failed: %v", err)
	}
	if _, err := s.Finalize(ctx, "user-1", FeedbackRecord{Feedback: "ok"}); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if err := s.Rate(ctx, "user-1", 6, ""); err == nil {
		t.Error("expected an error for an out-of-range rating")
	}
	if err := s.Rate(ctx, "user-1", 4, "helpful"); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}

	last, err := s.LastInteraction(ctx, "user-1")
	if err != nil {
		t.Fatalf("LastInteraction failed: %v", err)
	}
	if last.Rating == nil || *last.Rating != 4 {
		t.Errorf("expected rating 4, got %v", last.Rating)
	}
	if last.Comment != "helpful" {
		t.Errorf("expected comment %q, got %q", "helpful", last.Comment)
	}
}
