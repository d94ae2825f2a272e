package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Legacy import formats. Earlier revisions of the catalog document shipped
// in two other shapes; both are converted to the canonical item list once
// at load time and never branched on afterwards.

// legacyCategory mirrors the LEED_Credits_Collection per-category payload,
// which capitalized the credits key.
type legacyCategory struct {
	TotalPoints int         `json:"total_points"`
	Credits     []creditDoc `json:"Credits"`
}

// parseLegacyCollection handles the LEED_Credits_Collection document. The
// collection maps either category -> payload, or rating system -> category
// -> payload; the rating-system level is detected and unwrapped.
func parseLegacyCollection(raw json.RawMessage) ([]Item, error) {
	var flat map[string]legacyCategory
	if err := json.Unmarshal(raw, &flat); err == nil && hasCredits(flat) {
		return flattenLegacy(flat)
	}

	var nested map[string]map[string]legacyCategory
	if err := json.Unmarshal(raw, &nested); err == nil {
		merged := make(map[string]legacyCategory)
		for _, categories := range nested {
			for category, payload := range categories {
				merged[category] = payload
			}
		}
		if hasCredits(merged) {
			return flattenLegacy(merged)
		}
	}

	return nil, fmt.Errorf("unrecognized LEED_Credits_Collection shape")
}

func hasCredits(categories map[string]legacyCategory) bool {
	for _, c := range categories {
		if len(c.Credits) > 0 {
			return true
		}
	}
	return false
}

func flattenLegacy(categories map[string]legacyCategory) ([]Item, error) {
	converted := make(map[string]categoryDoc, len(categories))
	for name, c := range categories {
		converted[name] = categoryDoc{TotalPoints: c.TotalPoints, Credits: c.Credits}
	}
	return flattenCategories(converted)
}

// sectionTitleRe strips the point annotation from legacy section titles,
// e.g. "Energy and Atmosphere (33 Points)" -> "Energy and Atmosphere".
var sectionTitleRe = regexp.MustCompile(`\s*\(\d+\s+Points?\)\s*$`)

// parseSectionList handles the oldest shape: a flat array of
// {section, items: [{category, type, name, points}]}.
func parseSectionList(raw []byte) ([]Item, error) {
	var sections []struct {
		Section string      `json:"section"`
		Items   []creditDoc `json:"items"`
	}
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, err
	}

	categories := make(map[string]categoryDoc)
	for _, s := range sections {
		category := sectionTitleRe.ReplaceAllString(s.Section, "")
		doc := categories[category]
		doc.Credits = append(doc.Credits, s.Items...)
		categories[category] = doc
	}

	return flattenCategories(categories)
}
