package feedback

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"leed-assist/internal/credit"
	"leed-assist/internal/llm"
	"leed-assist/internal/risk"
	"leed-assist/internal/shared"
)

const (
	// TargetPoints is the certification threshold feedback is measured against.
	TargetPoints = 40.0

	// narrativeClip bounds how much narrative text is sent to the model.
	narrativeClip = 8000

	agentName = "CreditReviewer"
)

//go:embed reviewer_prompt.md
var reviewerPrompt string

var (
	ErrNoNarrative = errors.New("no narrative text was provided")
	ErrNoClaims    = errors.New("no claimed credits to evaluate")
)

// Score is one writing rubric's result, shown alongside the feedback.
type Score struct {
	Score float64 `json:"score"`
	Total float64 `json:"total"`
}

// Result bundles everything produced by one feedback round.
type Result struct {
	Feedback     string
	Scores       map[string]Score
	Shortcomings string
	Degraded     bool
	Meta         shared.AgentMeta
}

// Generator reviews a narrative against the claimed credits and the
// writing rubrics.
type Generator struct {
	textGen llm.TextGenerator
	rubrics []Rubric
}

// NewGenerator creates a feedback generator. textGen may be nil; feedback
// then degrades to a claims-only summary without model judgments.
func NewGenerator(textGen llm.TextGenerator, rubrics []Rubric) *Generator {
	return &Generator{textGen: textGen, rubrics: rubrics}
}

type promptData struct {
	Narrative string
	Credits   []credit.Claim
	Rubrics   []Rubric
}

type creditRow struct {
	Name               string   `json:"name"`
	ClaimedPoints      float64  `json:"claimed_points"`
	Judgement          string   `json:"judgement"`
	MaxSupportedPoints float64  `json:"max_supported_points"`
	Rationale          string   `json:"rationale"`
	Missing            []string `json:"missing"`
	Suggestion         string   `json:"suggestion"`
}

type writingRow struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Total      float64 `json:"total"`
	Rationale  string  `json:"rationale"`
	Suggestion string  `json:"suggestion"`
}

type reviewerResponse struct {
	Credits  []creditRow  `json:"credits"`
	Priority []creditRow  `json:"priority"`
	Items    []creditRow  `json:"items"`
	Writing  []writingRow `json:"writing"`
	Overall  struct {
		SupportedPoints         float64 `json:"supported_points"`
		PrioritySupportedPoints float64 `json:"priority_supported_points"`
		Notes                   string  `json:"notes"`
	} `json:"overall"`
}

// Generate reviews the narrative against the merged plan and returns
// markdown feedback, per-rubric writing scores, and a shortcomings
// summary for the next round's progress note. Model failures degrade to
// a claims-only summary rather than an error.
func (g *Generator) Generate(ctx context.Context, narrative string, p credit.Plan, report risk.Report, prevShortcomings string) (Result, error) {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return Result{}, ErrNoNarrative
	}
	if len(p.Claims) == 0 {
		return Result{}, ErrNoClaims
	}
	narrative = truncate(narrative, narrativeClip)

	claimedTotal := float64(p.Total)
	if g.textGen == nil {
		return g.offlineResult(p, claimedTotal), nil
	}

	prompt, err := buildReviewerPrompt(promptData{
		Narrative: narrative,
		Credits:   p.Claims,
		Rubrics:   g.rubrics,
	})
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return g.errorResult(p, err), nil
	}

	var parsed reviewerResponse
	if !extractJSON(resp.Content, &parsed) {
		return g.errorResult(p, fmt.Errorf("unparseable model response")), nil
	}

	rows := parsed.Credits
	if len(rows) == 0 {
		rows = parsed.Priority
	}
	if len(rows) == 0 {
		rows = parsed.Items
	}

	supported := parsed.Overall.SupportedPoints
	if supported <= 0 {
		supported = parsed.Overall.PrioritySupportedPoints
	}
	if supported <= 0 && len(rows) > 0 {
		supported = supportedFromRows(rows)
	}

	shortcomings := shortcomingsSummary(rows, supported)

	parts := []string{
		renderHeader(claimedTotal),
		renderWritingBlock(parsed.Writing, g.rubrics),
		renderCreditBlock(rows),
	}
	if report.HasWarning {
		parts = append(parts, "\n**Cost Risk**\n- "+report.Message)
	}
	parts = append(parts, renderNextSteps(rows))
	if note := progressNote(prevShortcomings, shortcomings); note != "" {
		parts = append(parts, "\n**Progress Note**\n- "+note)
	}

	return Result{
		Feedback:     joinBlocks(parts),
		Scores:       buildScores(parsed.Writing, g.rubrics),
		Shortcomings: shortcomings,
		Meta: shared.AgentMeta{
			AgentName: agentName,
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		},
	}, nil
}

func (g *Generator) offlineResult(p credit.Plan, claimedTotal float64) Result {
	header := fmt.Sprintf(
		"**LEED Check (degraded mode)**\n"+
			"- Claimed Credits: %.1f pts\n"+
			"- **Model offline** — item-by-item judging and writing rubric were not run.\n",
		claimedTotal)
	feedback := joinBlocks([]string{
		header,
		renderClaimsOnly(p.Claims),
		"\n**Next Steps**\n- Tighten evidence for each claimed credit; cite baselines, calcs, and required docs.",
	})
	gap := TargetPoints - claimedTotal
	if gap < 0 {
		gap = 0
	}
	return Result{
		Feedback: feedback,
		Scores:   buildScores(nil, g.rubrics),
		Shortcomings: fmt.Sprintf(
			"Model offline; no item-by-item judgments. Claimed total %.1f. Gap to 40: %.1f pts.",
			claimedTotal, gap),
		Degraded: true,
	}
}

func (g *Generator) errorResult(p credit.Plan, err error) Result {
	feedback := fmt.Sprintf(
		"**LEED Check (degraded mode)**\n- Error: %v\nFalling back to claims-only.\n\n%s",
		err, renderClaimsOnly(p.Claims))
	return Result{
		Feedback:     feedback,
		Scores:       buildScores(nil, g.rubrics),
		Shortcomings: "Model error; shortcomings unavailable.",
		Degraded:     true,
		Meta:         shared.AgentMeta{AgentName: agentName},
	}
}

func buildReviewerPrompt(data promptData) (string, error) {
	tmpl, err := template.New("reviewer").Parse(reviewerPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// supportedFromRows estimates total supported points when the model did
// not report an overall figure. Partial credits without an estimate are
// counted at half the claimed value.
func supportedFromRows(rows []creditRow) float64 {
	total := 0.0
	for _, r := range rows {
		cp := r.ClaimedPoints
		switch strings.ToLower(r.Judgement) {
		case "meet":
			msp := r.MaxSupportedPoints
			if msp <= 0 {
				msp = cp
			}
			total += clampPoints(msp, cp)
		case "partial":
			msp := r.MaxSupportedPoints
			if msp <= 0 && cp > 0 {
				msp = 0.5 * cp
			}
			total += clampPoints(msp, cp)
		}
	}
	return total
}

func clampPoints(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func renderHeader(claimed float64) string {
	badge := "⚠️ Below 40 — add credible points"
	if claimed >= TargetPoints {
		badge = "✅ On track for 40+"
	}
	return fmt.Sprintf("**LEED Check Summary**\n- **Total Claimed:** %.1f pts → %s\n", claimed, badge)
}

var judgementIcons = map[string]string{
	"meet":    "✅",
	"partial": "🟠",
	"miss":    "❌",
	"unclear": "❓",
}

func renderCreditBlock(rows []creditRow) string {
	if len(rows) == 0 {
		return "No credits to evaluate."
	}
	out := []string{"\n**Credits — evidence vs. claimed**"}
	for _, r := range rows {
		icon, ok := judgementIcons[strings.ToLower(r.Judgement)]
		if !ok {
			icon = "•"
		}
		out = append(out, fmt.Sprintf(
			"- %s **%s** — claimed %g pts; supported ≈ %.1f pts\n  - Scoring Reason: %s",
			icon, r.Name, r.ClaimedPoints, r.MaxSupportedPoints, trim(r.Rationale, 180)))

		missing := r.Missing
		if len(missing) > 3 {
			missing = missing[:3]
		}
		if len(missing) > 0 {
			trimmed := make([]string, len(missing))
			for i, m := range missing {
				trimmed[i] = trim(m, 80)
			}
			out = append(out, "  - Missing: "+strings.Join(trimmed, "; "))
		}
		if s := trim(r.Suggestion, 100); s != "" && strings.ToLower(s) != "none." {
			out = append(out, "  - Next: "+s)
		}
	}
	return strings.Join(out, "\n")
}

func renderClaimsOnly(claims []credit.Claim) string {
	out := []string{"\n**Credits — claims only (model offline)**"}
	for _, c := range claims {
		out = append(out, fmt.Sprintf("- • **%s** — claimed %d pts", c.Name, c.Points))
	}
	return strings.Join(out, "\n")
}

func renderWritingBlock(rows []writingRow, rubrics []Rubric) string {
	if len(rows) == 0 {
		maxTotal := 0.0
		for _, r := range rubrics {
			maxTotal += r.MaxPoints
		}
		return fmt.Sprintf("**Writing Feedback**\n- (No model scores returned.) Max total = %.0f.", maxTotal)
	}

	maxByName := make(map[string]float64, len(rubrics))
	for _, r := range rubrics {
		maxByName[r.Name] = r.MaxPoints
	}

	var earned, maxTotal float64
	var lines []string
	for _, w := range rows {
		total := w.Total
		if total <= 0 {
			total = maxByName[w.Name]
		}
		earned += w.Score
		maxTotal += total
		lines = append(lines, fmt.Sprintf("- **%s**: %g/%g", w.Name, w.Score, total))
		if r := trim(w.Rationale, 180); r != "" {
			lines = append(lines, "  - Scoring Reason: "+r)
		}
		if s := trim(w.Suggestion, 100); s != "" && strings.ToLower(s) != "none." {
			lines = append(lines, "  - Next: "+s)
		}
	}

	out := append([]string{"**Writing Feedback**", fmt.Sprintf("_Total: %.1f/%.0f_", earned, maxTotal)}, lines...)
	return strings.Join(out, "\n")
}

func renderNextSteps(rows []creditRow) string {
	var steps []string
	seen := make(map[string]bool)
	for _, r := range rows {
		s := strings.TrimSpace(r.Suggestion)
		if s == "" || strings.ToLower(s) == "none." || seen[s] {
			continue
		}
		seen[s] = true
		steps = append(steps, s)
		if len(steps) >= 3 {
			break
		}
	}
	if len(steps) == 0 {
		return "\n**Next Steps**\n- Tighten evidence for undersupported credits; ensure baselines, calculations, and required documents are clearly cited."
	}
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = "- " + s
	}
	return "\n**Next Steps**\n" + strings.Join(lines, "\n")
}

func buildScores(rows []writingRow, rubrics []Rubric) map[string]Score {
	out := make(map[string]Score)
	if len(rows) == 0 {
		for _, r := range rubrics {
			out[r.Name] = Score{Score: 0, Total: r.MaxPoints}
		}
		return out
	}
	maxByName := make(map[string]float64, len(rubrics))
	for _, r := range rubrics {
		maxByName[r.Name] = r.MaxPoints
	}
	for _, w := range rows {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		total := w.Total
		if total <= 0 {
			total = maxByName[name]
		}
		out[name] = Score{Score: w.Score, Total: total}
	}
	return out
}

func shortcomingsSummary(rows []creditRow, supported float64) string {
	var items []string
	for _, r := range rows {
		switch strings.ToLower(r.Judgement) {
		case "miss", "partial", "unclear":
			if len(r.Missing) > 0 {
				missing := r.Missing
				if len(missing) > 2 {
					missing = missing[:2]
				}
				trimmed := make([]string, len(missing))
				for i, m := range missing {
					trimmed[i] = trim(m, 50)
				}
				items = append(items, r.Name+": "+strings.Join(trimmed, "; "))
			} else {
				items = append(items, r.Name+": evidence not shown or unclear.")
			}
		}
		if len(items) >= 6 {
			break
		}
	}

	gap := TargetPoints - supported
	if gap < 0 {
		gap = 0
	}
	gapTxt := "No gap to 40."
	if gap > 0 {
		gapTxt = fmt.Sprintf("Gap to 40: %.1f pts.", gap)
	}
	if len(items) == 0 {
		return gapTxt
	}
	return strings.Join(items, "; ") + " | " + gapTxt
}

var gapRe = regexp.MustCompile(`(?i)Gap to 40:\s*([0-9]+(?:\.[0-9]+)?)\s*pts\.`)

func parseGap(s string) (float64, bool) {
	m := gapRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	var gap float64
	if _, err := fmt.Sscanf(m[1], "%f", &gap); err != nil {
		return 0, false
	}
	return gap, true
}

// progressNote compares the gap-to-40 between the previous round's
// shortcomings and this one's.
func progressNote(prev, next string) string {
	prevGap, ok := parseGap(prev)
	if !ok {
		return ""
	}
	newGap, ok := parseGap(next)
	if !ok {
		return ""
	}

	delta := prevGap - newGap
	switch {
	case delta >= 1.0:
		return fmt.Sprintf("Nice progress! Gap reduced %.1f pts (from %.1f to %.1f). Keep going.", delta, prevGap, newGap)
	case delta > 0:
		return fmt.Sprintf("Small improvement: gap %.1f → %.1f. A bit more evidence could close it.", prevGap, newGap)
	case delta < 0:
		return fmt.Sprintf("Gap increased: %.1f → %.1f. Re-check weakest credits and shore up documentation.", prevGap, newGap)
	default:
		return "Gap unchanged. Strengthen evidence on partial/miss credits for a meaningful boost."
	}
}

func joinBlocks(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func trim(s string, max int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
