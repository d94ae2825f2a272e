package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/credit"
	"leed-assist/internal/feedback"
	"leed-assist/internal/metrics"
	"leed-assist/internal/narrative"
	"leed-assist/internal/plan"
	"leed-assist/internal/risk"
)

// App holds the application's dependencies and exposes the operations
// shared by the HTTP API and the Telegram bot.
type App struct {
	cat          *catalog.Catalog
	store        *plan.Store
	generator    *feedback.Generator
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cat *catalog.Catalog,
	store *plan.Store,
	generator *feedback.Generator,
	metricsStore *metrics.Store,
	cfg *config.Config,
) *App {
	return &App{
		cat:          cat,
		store:        store,
		generator:    generator,
		metricsStore: metricsStore,
		cfg:          cfg,
	}
}

// Catalog exposes the credit catalog for read access and admin reloads.
func (a *App) Catalog() *catalog.Catalog { return a.cat }

// Metrics exposes the usage metrics store.
func (a *App) Metrics() *metrics.Store { return a.metricsStore }

// SubmitResult reports the state of a draft after a phase submission.
type SubmitResult struct {
	TotalPoints int         `json:"total_points"`
	Phase       credit.Plan `json:"phase"`
	Merged      credit.Plan `json:"merged"`
	CostReport  risk.Report `json:"cost_report"`
}

// SubmitPhase normalizes a raw name-to-points submission into one phase
// bucket of the user's draft. With replace unset the new claims merge
// into the existing bucket instead of overwriting it.
func (a *App) SubmitPhase(ctx context.Context, userID, phase string, scores map[string]any, replace bool) (SubmitResult, error) {
	p, err := credit.ParsePhase(phase)
	if err != nil {
		return SubmitResult{}, err
	}

	claims, _ := credit.Normalize(scores, a.cat)
	d, err := a.store.SetPhase(ctx, userID, p, claims, replace)
	if err != nil {
		return SubmitResult{}, err
	}

	merged := d.Merged()
	return SubmitResult{
		TotalPoints: d.TotalPoints,
		Phase:       d.Phase(p),
		Merged:      merged,
		CostReport:  risk.Analyze(a.cat, merged),
	}, nil
}

// PlanView is the full state of a user's draft.
type PlanView struct {
	Priority    credit.Plan `json:"priority"`
	Supplement  credit.Plan `json:"supplement"`
	TotalPoints int         `json:"total_points"`
	Merged      credit.Plan `json:"merged"`
	CostReport  risk.Report `json:"cost_report"`
}

// GetPlan returns the user's current draft with both phase buckets, the
// additive total, and the deduplicated merged plan.
func (a *App) GetPlan(ctx context.Context, userID string) (PlanView, error) {
	d, err := a.store.GetDraft(ctx, userID)
	if err != nil {
		return PlanView{}, err
	}

	merged := d.Merged()
	return PlanView{
		Priority:    d.Priority,
		Supplement:  d.Supplement,
		TotalPoints: d.TotalPoints,
		Merged:      merged,
		CostReport:  risk.Analyze(a.cat, merged),
	}, nil
}

// SuggestionsView pairs the cost-risk report with the full list of
// unclaimed credits the user could still pursue.
type SuggestionsView struct {
	CostReport risk.Report       `json:"cost_report"`
	Candidates []risk.Suggestion `json:"candidates"`
}

// GetSuggestions returns the cost-risk report for the user's merged plan
// plus every unclaimed, non-required catalog credit ranked lowest effort
// first.
func (a *App) GetSuggestions(ctx context.Context, userID string) (SuggestionsView, error) {
	d, err := a.store.GetDraft(ctx, userID)
	if err != nil {
		return SuggestionsView{}, err
	}
	merged := d.Merged()
	return SuggestionsView{
		CostReport: risk.Analyze(a.cat, merged),
		Candidates: risk.Candidates(a.cat, merged),
	}, nil
}

// FeedbackResult is a finalized feedback round.
type FeedbackResult struct {
	Feedback     string                    `json:"feedback"`
	Scores       map[string]feedback.Score `json:"scores"`
	Shortcomings string                    `json:"shortcomings"`
	Degraded     bool                      `json:"degraded"`
	TotalPoints  int                       `json:"total_points"`
	MergedPoints int                       `json:"merged_points"`
}

// GenerateFeedback reviews the narrative against the user's merged plan,
// freezes the round into an immutable interaction, and records model
// usage metrics. The previous round's shortcomings feed the progress
// note.
func (a *App) GenerateFeedback(ctx context.Context, userID, rawNarrative string) (FeedbackResult, error) {
	text, err := narrative.ExtractText(rawNarrative)
	if err != nil {
		return FeedbackResult{}, err
	}

	d, err := a.store.GetDraft(ctx, userID)
	if err != nil {
		return FeedbackResult{}, err
	}
	merged := d.Merged()
	report := risk.Analyze(a.cat, merged)

	prevShortcomings := ""
	if last, err := a.store.LastInteraction(ctx, userID); err == nil {
		prevShortcomings = last.Shortcomings
	} else if err != plan.ErrNoInteraction {
		return FeedbackResult{}, err
	}

	res, err := a.generator.Generate(ctx, text, merged, report, prevShortcomings)
	if err != nil {
		return FeedbackResult{}, err
	}

	scoresJSON, err := marshalScores(res.Scores)
	if err != nil {
		return FeedbackResult{}, err
	}
	interaction, err := a.store.Finalize(ctx, userID, plan.FeedbackRecord{
		Prompt:        text,
		Feedback:      res.Feedback,
		WritingScores: scoresJSON,
		Shortcomings:  res.Shortcomings,
	})
	if err != nil {
		return FeedbackResult{}, err
	}

	if a.metricsStore != nil {
		if err := a.metricsStore.RecordMeta(res.Meta); err != nil {
			log.Printf("failed to record metrics: %v", err)
		}
	}

	return FeedbackResult{
		Feedback:     res.Feedback,
		Scores:       res.Scores,
		Shortcomings: res.Shortcomings,
		Degraded:     res.Degraded,
		TotalPoints:  interaction.TotalPoints,
		MergedPoints: interaction.MergedPoints,
	}, nil
}

// LastFeedback returns the user's most recent finalized feedback round.
func (a *App) LastFeedback(ctx context.Context, userID string) (plan.Interaction, error) {
	return a.store.LastInteraction(ctx, userID)
}

// RateFeedback attaches a 1..5 rating and optional comment to the user's
// most recent feedback round.
func (a *App) RateFeedback(ctx context.Context, userID string, rating int, comment string) error {
	return a.store.Rate(ctx, userID, rating, comment)
}

func marshalScores(scores map[string]feedback.Score) (json.RawMessage, error) {
	data, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal writing scores: %w", err)
	}
	return data, nil
}

// ReloadCatalog re-reads the catalog file, replacing the in-memory
// catalog atomically.
func (a *App) ReloadCatalog() error {
	if err := a.cat.Reload(); err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	return nil
}
