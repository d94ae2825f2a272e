package telegram

import (
	"reflect"
	"strings"
	"testing"

	"leed-assist/internal/credit"
)

func TestParseClaimCommand(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phase  string
		scores map[string]any
	}{
		{
			name:   "SingleClaim",
			text:   "/claim priority Daylight=3",
			phase:  "priority",
			scores: map[string]any{"Daylight": "3"},
		},
		{
			name:  "MultipleClaimsWithSpaces",
			text:  "/claim supplement Daylight = 3 ; Water Metering= 1",
			phase: "supplement",
			scores: map[string]any{
				"Daylight":       "3",
				"Water Metering": "1",
			},
		},
		{
			name:   "EntriesWithoutEqualsAreSkipped",
			text:   "/claim priority Daylight=3; nonsense; Water Metering=1",
			phase:  "priority",
			scores: map[string]any{"Daylight": "3", "Water Metering": "1"},
		},
		{
			name:   "EmptyNameIsSkipped",
			text:   "/claim priority =3; Daylight=2",
			phase:  "priority",
			scores: map[string]any{"Daylight": "2"},
		},
		{
			name:   "PhaseOnly",
			text:   "/claim priority",
			phase:  "",
			scores: nil,
		},
		{
			name:   "BareCommand",
			text:   "/claim",
			phase:  "",
			scores: nil,
		},
		{
			name:   "NonNumericValueKeptForNormalizer",
			text:   "/claim priority Daylight=lots",
			phase:  "priority",
			scores: map[string]any{"Daylight": "lots"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			phase, scores := parseClaimCommand(tc.text)
			if phase != tc.phase {
				t.Errorf("Expected phase %q, got %q", tc.phase, phase)
			}
			if tc.scores == nil {
				if len(scores) != 0 {
					t.Errorf("Expected no scores, got %v", scores)
				}
				return
			}
			if !reflect.DeepEqual(scores, tc.scores) {
				t.Errorf("Expected scores %v, got %v", tc.scores, scores)
			}
		})
	}
}

func TestWritePhase(t *testing.T) {
	var sb strings.Builder
	writePhase(&sb, "Priority", credit.Plan{
		Claims: []credit.Claim{
			{Name: "Daylight", Points: 3},
			{Name: "Water Metering", Points: 1},
		},
		Total: 4,
	})
	out := sb.String()

	if !strings.Contains(out, "*Priority* (4 pts)") {
		t.Error("Missing phase header")
	}
	if !strings.Contains(out, "• Daylight: 3 pts") {
		t.Error("Missing claim line")
	}

	sb.Reset()
	writePhase(&sb, "Supplement", credit.Plan{})
	if !strings.Contains(sb.String(), "_empty_") {
		t.Error("Missing empty placeholder")
	}
}
