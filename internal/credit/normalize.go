package credit

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"leed-assist/internal/catalog"
)

// Normalize converts a raw score submission (credit name -> numeric or
// numeric-like string) into validated, capped claims against the catalog.
//
// Per entry: the value is coerced to a number (unparseable values count as
// zero), rounded to the nearest integer and dropped if not positive; the
// name is resolved case- and whitespace-insensitively and dropped silently
// when unknown; claims against required items are excluded; capped items
// clamp the value to the cap. Unresolved names and bad values are a
// leniency policy, not errors: the catalog is allowed to lag behind the
// client. Normalizing already-normalized scores is a no-op.
//
// The returned claims use the catalog's display names and are ordered by
// name; the subtotal is their point sum.
func Normalize(raw map[string]any, cat *catalog.Catalog) ([]Claim, int) {
	byName := make(map[string]Claim)
	for name, value := range raw {
		points := int(math.Round(coerceScore(value)))
		if points <= 0 {
			continue
		}

		item, ok := cat.Lookup(name)
		if !ok || item.Required {
			continue
		}
		if points > item.Points {
			points = item.Points
		}
		if points <= 0 {
			continue
		}

		key := catalog.NormalizeName(item.Name)
		if kept, seen := byName[key]; !seen || points > kept.Points {
			byName[key] = Claim{Name: item.Name, Points: points}
		}
	}

	claims := make([]Claim, 0, len(byName))
	for _, c := range byName {
		claims = append(claims, c)
	}
	sortClaims(claims)
	return claims, Subtotal(claims)
}

// coerceScore accepts the value types a decoded JSON payload can carry.
// Anything unparseable is treated as zero.
func coerceScore(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
