package risk

import (
	"fmt"
	"sort"
	"strings"

	"leed-assist/internal/catalog"
	"leed-assist/internal/credit"
)

// Risk thresholds. The defaults are deliberate product choices; change them
// here, not at call sites.
const (
	// HighPointsThreshold flags a plan whose high-tier points reach this sum.
	HighPointsThreshold = 10
	// HighCountThreshold flags a plan with this many high-tier credits.
	HighCountThreshold = 2
	// MaxSubstitutions caps the ranked substitution list.
	MaxSubstitutions = 3
	// MinSubstituteCap is the smallest point cap worth suggesting as a
	// substitute for a high-cost strategy.
	MinSubstituteCap = 2
)

// TierStats aggregates the claims that fall into one cost tier.
type TierStats struct {
	Count  int `json:"count"`
	Points int `json:"points"`
}

// Suggestion is an unclaimed catalog credit offered as an alternative.
type Suggestion struct {
	Name   string       `json:"name"`
	Points int          `json:"points"`
	Tier   catalog.Tier `json:"tier"`
}

// Report is the cost-risk breakdown of a merged plan.
type Report struct {
	ByTier         map[catalog.Tier]TierStats `json:"by_tier"`
	HighCostPoints int                        `json:"high_cost_points"`
	HasWarning     bool                       `json:"has_warning"`
	Suggestions    []Suggestion               `json:"suggestions"`
	Message        string                     `json:"message"`
}

// Analyze buckets a merged plan by cost tier and derives the risk flag and
// ranked substitution suggestions. It is pure: no I/O, deterministic for a
// given catalog and plan.
func Analyze(cat *catalog.Catalog, plan credit.Plan) Report {
	report := Report{
		ByTier: map[catalog.Tier]TierStats{
			catalog.TierLow:    {},
			catalog.TierMedium: {},
			catalog.TierHigh:   {},
		},
	}

	var highClaims []credit.Claim
	for _, claim := range plan.Claims {
		tier := catalog.TierLow
		if item, ok := cat.Lookup(claim.Name); ok {
			tier = cat.CostTierOf(item)
		}
		stats := report.ByTier[tier]
		stats.Count++
		stats.Points += claim.Points
		report.ByTier[tier] = stats
		if tier == catalog.TierHigh {
			highClaims = append(highClaims, claim)
		}
	}

	high := report.ByTier[catalog.TierHigh]
	report.HighCostPoints = high.Points
	report.HasWarning = high.Points >= HighPointsThreshold || high.Count >= HighCountThreshold
	if !report.HasWarning {
		return report
	}

	report.Suggestions = substitutes(cat, plan)
	report.Message = composeMessage(highClaims, report.Suggestions)
	return report
}

// substitutes scans the catalog for lower-cost alternatives to a risky
// plan: not required, not already claimed, not high tier, cap at least
// MinSubstituteCap. Ranked by cap descending, cheaper tier first on ties.
func substitutes(cat *catalog.Catalog, plan credit.Plan) []Suggestion {
	candidates := unclaimed(cat, plan, func(item catalog.Item, tier catalog.Tier) bool {
		return tier != catalog.TierHigh && item.Points >= MinSubstituteCap
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Points != candidates[j].Points {
			return candidates[i].Points > candidates[j].Points
		}
		return candidates[i].Tier.Less(candidates[j].Tier)
	})

	if len(candidates) > MaxSubstitutions {
		candidates = candidates[:MaxSubstitutions]
	}
	return candidates
}

// Candidates lists every unclaimed, non-required catalog credit ranked
// ascending by point cap, lowest effort first. This backs the suggestion
// browser rather than the risk warning.
func Candidates(cat *catalog.Catalog, plan credit.Plan) []Suggestion {
	candidates := unclaimed(cat, plan, func(catalog.Item, catalog.Tier) bool { return true })

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Points != candidates[j].Points {
			return candidates[i].Points < candidates[j].Points
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}

func unclaimed(cat *catalog.Catalog, plan credit.Plan, keep func(catalog.Item, catalog.Tier) bool) []Suggestion {
	claimed := make(map[string]struct{}, len(plan.Claims))
	for _, c := range plan.Claims {
		claimed[catalog.NormalizeName(c.Name)] = struct{}{}
	}

	// Non-nil so the API serializes an empty list, not null.
	out := []Suggestion{}
	for _, item := range cat.Items() {
		if item.Required {
			continue
		}
		if _, has := claimed[catalog.NormalizeName(item.Name)]; has {
			continue
		}
		tier := cat.CostTierOf(item)
		if !keep(item, tier) {
			continue
		}
		out = append(out, Suggestion{Name: item.Name, Points: item.Points, Tier: tier})
	}
	return out
}

func composeMessage(highClaims []credit.Claim, suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return "Your plan leans heavily on high-cost strategies. Balance the portfolio with lower-cost credits where possible."
	}

	preview := highClaims
	if len(preview) > 3 {
		preview = preview[:3]
	}
	names := make([]string, len(preview))
	for i, c := range preview {
		names[i] = fmt.Sprintf("%s (%d pts)", c.Name, c.Points)
	}

	alts := make([]string, len(suggestions))
	for i, s := range suggestions {
		alts[i] = fmt.Sprintf("%s (up to %d pts, %s cost)", s.Name, s.Points, s.Tier)
	}

	return fmt.Sprintf(
		"High-cost credits carry a large share of your points: %s. Consider lower-cost alternatives such as %s.",
		strings.Join(names, ", "), strings.Join(alts, ", "),
	)
}
