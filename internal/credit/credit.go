package credit

import (
	"fmt"
	"sort"
)

// Phase names the two submission steps a student fills independently.
type Phase string

const (
	PhasePriority   Phase = "priority"
	PhaseSupplement Phase = "supplement"
)

// ParsePhase validates a caller-supplied phase name.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePriority, PhaseSupplement:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("unknown phase %q: must be %q or %q", s, PhasePriority, PhaseSupplement)
	}
}

// Claim is a single claimed credit. Points is always positive: zero and
// negative claims are dropped before a Claim is ever constructed.
type Claim struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Plan is the deduplicated, max-wins union of claim sets. Total is the
// deduplicated point sum, which is deliberately distinct from a draft's
// additive phase total.
type Plan struct {
	Claims []Claim `json:"claims"`
	Total  int     `json:"total"`
}

// Names returns the claimed credit names in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Claims))
	for i, c := range p.Claims {
		names[i] = c.Name
	}
	return names
}

// Subtotal sums the points of a claim set.
func Subtotal(claims []Claim) int {
	total := 0
	for _, c := range claims {
		total += c.Points
	}
	return total
}

// sortClaims orders claims by name for deterministic output.
func sortClaims(claims []Claim) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].Name < claims[j].Name })
}
