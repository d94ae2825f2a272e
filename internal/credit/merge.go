package credit

import "leed-assist/internal/catalog"

// Merge combines two claim sets into one deduplicated plan. For any name
// present in both, the claim with the strictly greater points wins; ties
// keep either (the value is identical). Claims with non-positive points are
// dropped defensively even though the normalizer never produces them.
// Merge is commutative.
func Merge(a, b []Claim) Plan {
	byName := make(map[string]Claim, len(a)+len(b))
	for _, claims := range [][]Claim{a, b} {
		for _, c := range claims {
			if c.Points <= 0 {
				continue
			}
			key := catalog.NormalizeName(c.Name)
			if kept, seen := byName[key]; !seen || c.Points > kept.Points {
				byName[key] = c
			}
		}
	}

	merged := make([]Claim, 0, len(byName))
	for _, c := range byName {
		merged = append(merged, c)
	}
	sortClaims(merged)
	return Plan{Claims: merged, Total: Subtotal(merged)}
}
