package plan

import (
	"encoding/json"
	"time"

	"leed-assist/internal/credit"
)

// Draft is a user's in-progress credit plan, split into the two
// submission phases. TotalPoints is the additive sum of both phase
// subtotals and can double-count a credit claimed in both phases;
// the deduplicated figure comes from Merged().
type Draft struct {
	UserID      string
	Priority    credit.Plan
	Supplement  credit.Plan
	TotalPoints int
	UpdatedAt   time.Time
}

// Phase returns the bucket for the given phase.
func (d *Draft) Phase(p credit.Phase) credit.Plan {
	if p == credit.PhaseSupplement {
		return d.Supplement
	}
	return d.Priority
}

// Merged combines both phase buckets with max-wins deduplication.
func (d *Draft) Merged() credit.Plan {
	return credit.Merge(d.Priority.Claims, d.Supplement.Claims)
}

// Interaction is an immutable snapshot of a finalized feedback round.
type Interaction struct {
	ID            int64
	UserID        string
	Priority      credit.Plan
	Supplement    credit.Plan
	TotalPoints   int
	MergedPoints  int
	Prompt        string
	Feedback      string
	WritingScores json.RawMessage
	Shortcomings  string
	Rating        *int
	Comment       string
	CreatedAt     time.Time
}

// FeedbackRecord carries the generated feedback to be frozen into an
// Interaction at finalize time.
type FeedbackRecord struct {
	Prompt        string
	Feedback      string
	WritingScores json.RawMessage
	Shortcomings  string
}
