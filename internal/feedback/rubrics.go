package feedback

import (
	"encoding/json"
	"log"
	"os"
	"strings"
)

// Rubric is a single writing-quality rubric with its maximum score.
type Rubric struct {
	Name      string
	MaxPoints float64
}

// fallbackRubrics is used when the rubrics file is missing or unreadable,
// so writing feedback always has a scale to report against.
var fallbackRubrics = []Rubric{
	{Name: "LEED Certification Achievement", MaxPoints: 3},
	{Name: "Reflection of Credit Requirements", MaxPoints: 4},
	{Name: "Formatting: Credit Names and Points Claimed", MaxPoints: 3},
	{Name: "Realistic and Detailed Implementation of Credits", MaxPoints: 3},
	{Name: "Grammar, Structure, and Clarity", MaxPoints: 2},
}

// LoadRubrics reads writing rubrics from a JSON file. Two layouts are
// accepted: a top-level array, or an object with a "rubrics" array. The
// max score per rubric may appear as max_points, total, max, or as the
// highest points value in a scoringCriteria list.
func LoadRubrics(path string) []Rubric {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to load rubrics from %s: %v; using built-in defaults", path, err)
		return fallbackRubrics
	}

	var arr []rawRubric
	if err := json.Unmarshal(data, &arr); err != nil {
		var wrapper struct {
			Rubrics []rawRubric `json:"rubrics"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Rubrics == nil {
			log.Printf("failed to parse rubrics from %s; using built-in defaults", path)
			return fallbackRubrics
		}
		arr = wrapper.Rubrics
	}

	var out []Rubric
	for _, r := range arr {
		name := strings.TrimSpace(r.Name)
		max := r.maxPoints()
		if name == "" || max <= 0 {
			continue
		}
		out = append(out, Rubric{Name: name, MaxPoints: max})
	}
	if len(out) == 0 {
		return fallbackRubrics
	}
	return out
}

type rawRubric struct {
	Name            string            `json:"name"`
	MaxPoints       json.Number       `json:"max_points"`
	Total           json.Number       `json:"total"`
	Max             json.Number       `json:"max"`
	ScoringCriteria []scoringCriteria `json:"scoringCriteria"`
}

type scoringCriteria struct {
	Points json.Number `json:"points"`
}

func (r rawRubric) maxPoints() float64 {
	for _, n := range []json.Number{r.MaxPoints, r.Total, r.Max} {
		if v, err := n.Float64(); err == nil && v > 0 {
			return v
		}
	}
	// Infer from scoringCriteria: the rubric max is the highest tier.
	max := 0.0
	for _, c := range r.ScoringCriteria {
		if v, err := c.Points.Float64(); err == nil && v > max {
			max = v
		}
	}
	return max
}
