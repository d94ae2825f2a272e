package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leed-assist/internal/app"
	"leed-assist/internal/config"
	"leed-assist/internal/credit"
	"leed-assist/internal/metrics"
	"leed-assist/internal/plan"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the credit-plan and feedback
// operations, so students can iterate from chat.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{api: bot, app: a, cfg: cfg}, nil
}

// RegisterHandlers registers the webhook handler on the given mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/help":
		b.reply(msg.Chat.ID, helpText)
	case strings.HasPrefix(text, "/claim"):
		b.handleClaim(msg)
	case text == "/plan":
		b.handlePlan(msg)
	case text == "/suggest":
		b.handleSuggest(msg)
	case text == "/last":
		b.handleLast(msg)
	case strings.HasPrefix(text, "/rate"):
		b.handleRate(msg)
	case text == "/metrics":
		b.handleMetricsRequest(msg)
	default:
		// Any other text is treated as a narrative to review.
		b.handleFeedback(msg)
	}
}

const helpText = `📗 *LEED Narrative Assistant*

/claim <phase> Name=points; Name=points — save credits (phase: priority or supplement)
/plan — show your current plan
/suggest — cost-risk check with cheaper substitutions
/last — show your last feedback
/rate <1-5> [comment] — rate the last feedback

Send any other text to get feedback on your narrative.`

func userIDOf(msg *tgbotapi.Message) string {
	return fmt.Sprintf("tg:%d", msg.From.ID)
}

// parseClaimCommand splits "/claim priority Daylight=3; Water Metering=1"
// into a phase name and a raw score map. Entries without "=" are skipped;
// score values stay strings for the normalizer to coerce.
func parseClaimCommand(text string) (phase string, scores map[string]any) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "/claim"))
	phase, body, ok := strings.Cut(rest, " ")
	if !ok {
		return "", nil
	}

	scores = make(map[string]any)
	for _, part := range strings.Split(body, ";") {
		name, pts, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		scores[name] = strings.TrimSpace(pts)
	}
	return phase, scores
}

func (b *Bot) handleClaim(msg *tgbotapi.Message) {
	phase, scores := parseClaimCommand(msg.Text)
	if phase == "" {
		b.reply(msg.Chat.ID, "Usage: /claim <priority|supplement> Name=points; Name=points")
		return
	}
	if len(scores) == 0 {
		b.reply(msg.Chat.ID, "No credits found. Usage: /claim priority Daylight=3; Water Metering=1")
		return
	}

	res, err := b.app.SubmitPhase(context.Background(), userIDOf(msg), phase, scores, true)
	if err != nil {
		b.replyError(msg.Chat.ID, "Error saving claims", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ *Saved %s phase* — %d pts\n", phase, res.Phase.Total)
	fmt.Fprintf(&sb, "Plan total: %d pts (merged: %d pts)\n", res.TotalPoints, res.Merged.Total)
	if res.CostReport.HasWarning {
		sb.WriteString("\n⚠️ " + res.CostReport.Message + "\n")
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handlePlan(msg *tgbotapi.Message) {
	view, err := b.app.GetPlan(context.Background(), userIDOf(msg))
	if err != nil {
		b.replyError(msg.Chat.ID, "Error loading plan", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *Your Credit Plan*\n")
	writePhase(&sb, "Priority", view.Priority)
	writePhase(&sb, "Supplement", view.Supplement)
	fmt.Fprintf(&sb, "\n*Total:* %d pts (merged: %d pts)\n", view.TotalPoints, view.Merged.Total)
	if view.CostReport.HasWarning {
		sb.WriteString("\n⚠️ " + view.CostReport.Message + "\n")
	}
	b.reply(msg.Chat.ID, sb.String())
}

func writePhase(sb *strings.Builder, title string, p credit.Plan) {
	fmt.Fprintf(sb, "\n*%s* (%d pts)\n", title, p.Total)
	if len(p.Claims) == 0 {
		sb.WriteString("_empty_\n")
		return
	}
	for _, c := range p.Claims {
		fmt.Fprintf(sb, "• %s: %d pts\n", c.Name, c.Points)
	}
}

func (b *Bot) handleSuggest(msg *tgbotapi.Message) {
	view, err := b.app.GetSuggestions(context.Background(), userIDOf(msg))
	if err != nil {
		b.replyError(msg.Chat.ID, "Error analyzing plan", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("💰 *Cost-Risk Check*\n\n")
	report := view.CostReport
	if !report.HasWarning {
		sb.WriteString("✅ Your plan is not overly dependent on high-cost credits.\n")
	} else {
		sb.WriteString("⚠️ " + report.Message + "\n")
		if len(report.Suggestions) > 0 {
			sb.WriteString("\n*Lower-cost alternatives:*\n")
			for _, s := range report.Suggestions {
				fmt.Fprintf(&sb, "• %s (up to %d pts, %s cost)\n", s.Name, s.Points, s.Tier)
			}
		}
	}

	if len(view.Candidates) > 0 {
		sb.WriteString("\n*Easiest unclaimed credits:*\n")
		limit := 5
		if len(view.Candidates) < limit {
			limit = len(view.Candidates)
		}
		for _, s := range view.Candidates[:limit] {
			fmt.Fprintf(&sb, "• %s (up to %d pts)\n", s.Name, s.Points)
		}
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleFeedback(msg *tgbotapi.Message) {
	statusText := "📝 *Reviewing your narrative...*"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := b.app.GenerateFeedback(ctx, userIDOf(msg), msg.Text)
	var finalText string
	if err != nil {
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error generating feedback:*\n```\n%v\n```", safeErr)
	} else {
		finalText = res.Feedback + "\n\nRate this feedback with /rate 1-5."
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) handleLast(msg *tgbotapi.Message) {
	last, err := b.app.LastFeedback(context.Background(), userIDOf(msg))
	if err == plan.ErrNoInteraction {
		b.reply(msg.Chat.ID, "No feedback yet. Send your narrative text to get one.")
		return
	}
	if err != nil {
		b.replyError(msg.Chat.ID, "Error loading feedback", err)
		return
	}
	b.reply(msg.Chat.ID, last.Feedback)
}

func (b *Bot) handleRate(msg *tgbotapi.Message) {
	parts := strings.Fields(strings.TrimPrefix(msg.Text, "/rate"))
	if len(parts) == 0 {
		b.reply(msg.Chat.ID, "Usage: /rate <1-5> [comment]")
		return
	}
	rating, err := strconv.Atoi(parts[0])
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /rate <1-5> [comment]")
		return
	}
	comment := strings.Join(parts[1:], " ")

	if err := b.app.RateFeedback(context.Background(), userIDOf(msg), rating, comment); err != nil {
		b.replyError(msg.Chat.ID, "Error saving rating", err)
		return
	}
	b.reply(msg.Chat.ID, "🙏 Thanks, rating saved.")
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.app.Metrics().GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(b.cfg.DatabasePath, b.cfg.CatalogPath)

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Database: %s / Catalog: %s\n", health.DatabaseSize, health.CatalogSize)

	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) replyError(chatID int64, prefix string, err error) {
	log.Printf("%s: %v", prefix, err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.reply(chatID, fmt.Sprintf("❌ *%s:*\n```\n%s\n```", prefix, safeErr))
}
