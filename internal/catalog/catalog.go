package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Tier is a coarse classification of how expensive a credit is to achieve.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// rank orders tiers from cheapest to most expensive.
func (t Tier) rank() int {
	switch t {
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	default:
		return 0
	}
}

// Less reports whether t is a cheaper tier than other.
func (t Tier) Less(other Tier) bool {
	return t.rank() < other.rank()
}

// Item is a single immutable catalog entry. Required items (prerequisites)
// carry no point value and never contribute to scoring.
type Item struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Points   int    `json:"points"`
	Required bool   `json:"required"`
	Tier     Tier   `json:"tier,omitempty"`
}

// Catalog is the reference table of LEED credits, keyed by normalized name.
// It is read-only between Reload calls and safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	path   string
	items  []Item
	byName map[string]int
}

// Load reads the catalog JSON document at path. The canonical schema is
//
//	{"categories": {<category>: {"total_points": N, "credits": [{name, type, points}]}}}
//
// where points is an integer or the literal string "Required". Two legacy
// shapes (the nested LEED_Credits_Collection document and the flat section
// list) are converted at load time. A catalog with duplicate normalized
// names fails to load.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the backing file and atomically replaces the table.
func (c *Catalog) Reload() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	items, err := Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", c.path, err)
	}

	byName := make(map[string]int, len(items))
	for i, it := range items {
		byName[NormalizeName(it.Name)] = i
	}

	c.mu.Lock()
	c.items = items
	c.byName = byName
	c.mu.Unlock()
	return nil
}

// NormalizeName is the matching key used everywhere a credit name is
// resolved: case-insensitive, surrounding whitespace ignored.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup resolves a credit name against the catalog.
func (c *Catalog) Lookup(name string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[NormalizeName(name)]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns all catalog entries in document order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CostTierOf classifies an item, falling back from its explicit tier to the
// override table by name, then by the name with any trailing parenthetical
// qualifier stripped, then to low.
func (c *Catalog) CostTierOf(it Item) Tier {
	if it.Tier != "" {
		return it.Tier
	}
	key := NormalizeName(it.Name)
	if t, ok := tierOverrides[key]; ok {
		return t
	}
	if stripped := stripParenthetical(key); stripped != key {
		if t, ok := tierOverrides[stripped]; ok {
			return t
		}
	}
	return TierLow
}

// stripParenthetical removes a trailing "(...)" qualifier,
// e.g. "optimize energy performance (mid tier)" -> "optimize energy performance".
func stripParenthetical(name string) string {
	if !strings.HasSuffix(name, ")") {
		return name
	}
	open := strings.LastIndex(name, "(")
	if open <= 0 {
		return name
	}
	return strings.TrimSpace(name[:open])
}

// categoryDoc is the canonical per-category JSON payload.
type categoryDoc struct {
	TotalPoints int         `json:"total_points"`
	Credits     []creditDoc `json:"credits"`
}

type creditDoc struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Points json.RawMessage `json:"points"`
	Tier   Tier            `json:"tier,omitempty"`
}

// Parse decodes a catalog document in the canonical or either legacy shape
// into a flat item list ordered by category name, then document order. A
// document with duplicate normalized names is rejected here, before any
// caller persists it.
func Parse(raw []byte) ([]Item, error) {
	items, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := NormalizeName(it.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate credit name %q in catalog", it.Name)
		}
		seen[key] = struct{}{}
	}
	return items, nil
}

func decodeDocument(raw []byte) ([]Item, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty catalog document")
	}

	if strings.HasPrefix(trimmed, "[") {
		return parseSectionList(raw)
	}

	var doc struct {
		Categories map[string]categoryDoc `json:"categories"`
		Legacy     json.RawMessage        `json:"LEED_Credits_Collection"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	switch {
	case doc.Categories != nil:
		return flattenCategories(doc.Categories)
	case doc.Legacy != nil:
		return parseLegacyCollection(doc.Legacy)
	default:
		return nil, fmt.Errorf("unrecognized catalog document shape")
	}
}

func flattenCategories(categories map[string]categoryDoc) ([]Item, error) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []Item
	for _, category := range names {
		for _, credit := range categories[category].Credits {
			it, err := buildItem(category, credit)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog contains no credits")
	}
	return items, nil
}

func buildItem(category string, credit creditDoc) (Item, error) {
	name := strings.TrimSpace(credit.Name)
	if name == "" {
		return Item{}, fmt.Errorf("credit with empty name in category %q", category)
	}

	it := Item{
		Category: category,
		Name:     name,
		Type:     credit.Type,
		Tier:     credit.Tier,
	}

	points, required, err := decodePoints(credit.Points)
	if err != nil {
		return Item{}, fmt.Errorf("credit %q: %w", name, err)
	}
	it.Points = points
	it.Required = required || strings.EqualFold(credit.Type, "Prereq") ||
		strings.EqualFold(credit.Type, "Prerequisite")
	if it.Required {
		it.Points = 0
	}
	return it, nil
}

// decodePoints handles the dual-typed points field: an integer cap or the
// required sentinel ("Required", or null in the legacy documents).
func decodePoints(raw json.RawMessage) (points int, required bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, true, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0, false, fmt.Errorf("negative point cap %v", n)
		}
		return int(n), false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), "required") {
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("unrecognized points value %q", s)
	}

	return 0, false, fmt.Errorf("unrecognized points value %s", string(raw))
}
