package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leed-assist/internal/credit"
	"leed-assist/internal/plan/plan_db"
)

// ErrNoInteraction is returned when a user has no finalized feedback yet.
var ErrNoInteraction = errors.New("no feedback has been generated yet")

// Store persists drafts and finalized interactions to SQLite.
type Store struct {
	queries *plandb.Queries
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{queries: plandb.New(db)}
}

// GetDraft loads the user's draft. A user with no stored draft gets an
// empty one; nothing is written until the first phase submission.
func (s *Store) GetDraft(ctx context.Context, userID string) (Draft, error) {
	row, err := s.queries.GetDraft(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{UserID: userID}, nil
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}
	return draftFromRow(row)
}

// SetPhase stores a claim set into one phase bucket. With replace set
// the bucket is overwritten; otherwise the new claims are merged into
// the existing bucket max-wins. Returns the updated draft.
func (s *Store) SetPhase(ctx context.Context, userID string, phase credit.Phase, claims []credit.Claim, replace bool) (Draft, error) {
	d, err := s.GetDraft(ctx, userID)
	if err != nil {
		return Draft{}, err
	}

	bucket := credit.Plan{Claims: claims, Total: credit.Subtotal(claims)}
	if !replace {
		existing := d.Phase(phase)
		bucket = credit.Merge(existing.Claims, claims)
	}

	if phase == credit.PhaseSupplement {
		d.Supplement = bucket
	} else {
		d.Priority = bucket
	}
	d.TotalPoints = d.Priority.Total + d.Supplement.Total
	d.UpdatedAt = time.Now().UTC()

	if err := s.saveDraft(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Finalize freezes the current draft plus the generated feedback into an
// immutable interaction row. The draft itself is left in place so the
// user can keep iterating on it.
func (s *Store) Finalize(ctx context.Context, userID string, rec FeedbackRecord) (Interaction, error) {
	d, err := s.GetDraft(ctx, userID)
	if err != nil {
		return Interaction{}, err
	}

	priority, err := marshalClaims(d.Priority.Claims)
	if err != nil {
		return Interaction{}, err
	}
	supplement, err := marshalClaims(d.Supplement.Claims)
	if err != nil {
		return Interaction{}, err
	}

	scores := string(rec.WritingScores)
	if scores == "" {
		scores = "{}"
	}

	merged := d.Merged()
	now := time.Now().UTC()
	id, err := s.queries.InsertInteraction(ctx, plandb.InsertInteractionParams{
		UserID:           userID,
		PriorityClaims:   priority,
		SupplementClaims: supplement,
		TotalPoints:      int64(d.TotalPoints),
		MergedPoints:     int64(merged.Total),
		Prompt:           rec.Prompt,
		Feedback:         rec.Feedback,
		WritingScores:    scores,
		Shortcomings:     rec.Shortcomings,
		CreatedAt:        now,
	})
	if err != nil {
		return Interaction{}, fmt.Errorf("failed to save interaction: %w", err)
	}

	return Interaction{
		ID:            id,
		UserID:        userID,
		Priority:      d.Priority,
		Supplement:    d.Supplement,
		TotalPoints:   d.TotalPoints,
		MergedPoints:  merged.Total,
		Prompt:        rec.Prompt,
		Feedback:      rec.Feedback,
		WritingScores: json.RawMessage(scores),
		Shortcomings:  rec.Shortcomings,
		CreatedAt:     now,
	}, nil
}

// LastInteraction returns the user's most recent finalized feedback.
func (s *Store) LastInteraction(ctx context.Context, userID string) (Interaction, error) {
	row, err := s.queries.GetLastInteractionByUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Interaction{}, ErrNoInteraction
	}
	if err != nil {
		return Interaction{}, fmt.Errorf("failed to load last interaction: %w", err)
	}
	return interactionFromRow(row)
}

// Rate attaches a user rating (and optional comment) to the user's most
// recent interaction.
func (s *Store) Rate(ctx context.Context, userID string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	last, err := s.LastInteraction(ctx, userID)
	if err != nil {
		return err
	}

	n, err := s.queries.UpdateInteractionRating(ctx, plandb.UpdateInteractionRatingParams{
		UserRating:  sql.NullInt64{Int64: int64(rating), Valid: true},
		UserComment: sql.NullString{String: comment, Valid: comment != ""},
		ID:          last.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	if n == 0 {
		return ErrNoInteraction
	}
	return nil
}

func (s *Store) saveDraft(ctx context.Context, d Draft) error {
	priority, err := marshalClaims(d.Priority.Claims)
	if err != nil {
		return err
	}
	supplement, err := marshalClaims(d.Supplement.Claims)
	if err != nil {
		return err
	}

	err = s.queries.UpsertDraft(ctx, plandb.UpsertDraftParams{
		UserID:           d.UserID,
		PriorityClaims:   priority,
		PriorityPoints:   int64(d.Priority.Total),
		SupplementClaims: supplement,
		SupplementPoints: int64(d.Supplement.Total),
		TotalPoints:      int64(d.TotalPoints),
		UpdatedAt:        d.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func draftFromRow(row plandb.Draft) (Draft, error) {
	priority, err := unmarshalClaims(row.PriorityClaims)
	if err != nil {
		return Draft{}, err
	}
	supplement, err := unmarshalClaims(row.SupplementClaims)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		UserID:      row.UserID,
		Priority:    credit.Plan{Claims: priority, Total: int(row.PriorityPoints)},
		Supplement:  credit.Plan{Claims: supplement, Total: int(row.SupplementPoints)},
		TotalPoints: int(row.TotalPoints),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func interactionFromRow(row plandb.Interaction) (Interaction, error) {
	priority, err := unmarshalClaims(row.PriorityClaims)
	if err != nil {
		return Interaction{}, err
	}
	supplement, err := unmarshalClaims(row.SupplementClaims)
	if err != nil {
		return Interaction{}, err
	}

	i := Interaction{
		ID:            row.ID,
		UserID:        row.UserID,
		Priority:      credit.Plan{Claims: priority, Total: credit.Subtotal(priority)},
		Supplement:    credit.Plan{Claims: supplement, Total: credit.Subtotal(supplement)},
		TotalPoints:   int(row.TotalPoints),
		MergedPoints:  int(row.MergedPoints),
		Prompt:        row.Prompt,
		Feedback:      row.Feedback,
		WritingScores: json.RawMessage(row.WritingScores),
		Shortcomings:  row.Shortcomings,
		CreatedAt:     row.CreatedAt,
	}
	if row.UserRating.Valid {
		r := int(row.UserRating.Int64)
		i.Rating = &r
	}
	if row.UserComment.Valid {
		i.Comment = row.UserComment.String
	}
	return i, nil
}

func marshalClaims(claims []credit.Claim) (string, error) {
	if claims == nil {
		claims = []credit.Claim{}
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return string(data), nil
}

func unmarshalClaims(data string) ([]credit.Claim, error) {
	if data == "" {
		return nil, nil
	}
	var claims []credit.Claim
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claims: %w", err)
	}
	return claims, nil
}
