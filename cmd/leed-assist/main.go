package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"leed-assist/internal/app"
	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/database"
	"leed-assist/internal/feedback"
	"leed-assist/internal/httpapi"
	"leed-assist/internal/llm"
	"leed-assist/internal/metrics"
	"leed-assist/internal/plan"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load credit catalog: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	textGen, closeGen := newTextGenerator(ctx, cfg)
	if closeGen != nil {
		defer closeGen()
	}

	generator := feedback.NewGenerator(textGen, feedback.LoadRubrics(cfg.RubricsPath))
	metricsStore := metrics.NewStore(db.SQL)
	application := app.NewApp(cat, plan.NewStore(db.SQL), generator, metricsStore, cfg)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "submit":
		submitCmd := flag.NewFlagSet("submit", flag.ExitOnError)
		user := submitCmd.String("user", "", "User ID")
		phase := submitCmd.String("phase", "priority", "Phase: priority or supplement")
		scoresJSON := submitCmd.String("scores", "{}", "Credits as JSON: {\"Name\": points}")
		merge := submitCmd.Bool("merge", false, "Merge into the existing phase instead of replacing it")
		submitCmd.Parse(os.Args[2:])
		requireUser(*user)

		var scores map[string]any
		if err := json.Unmarshal([]byte(*scoresJSON), &scores); err != nil {
			log.Fatalf("Invalid -scores JSON: %v", err)
		}
		res, err := application.SubmitPhase(ctx, *user, *phase, scores, !*merge)
		if err != nil {
			log.Fatalf("Submit failed: %v", err)
		}
		printJSON(res)

	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		user := planCmd.String("user", "", "User ID")
		planCmd.Parse(os.Args[2:])
		requireUser(*user)

		view, err := application.GetPlan(ctx, *user)
		if err != nil {
			log.Fatalf("Failed to load plan: %v", err)
		}
		printJSON(view)

	case "suggest":
		suggestCmd := flag.NewFlagSet("suggest", flag.ExitOnError)
		user := suggestCmd.String("user", "", "User ID")
		suggestCmd.Parse(os.Args[2:])
		requireUser(*user)

		view, err := application.GetSuggestions(ctx, *user)
		if err != nil {
			log.Fatalf("Failed to analyze plan: %v", err)
		}
		printJSON(view)

	case "feedback":
		feedbackCmd := flag.NewFlagSet("feedback", flag.ExitOnError)
		user := feedbackCmd.String("user", "", "User ID")
		file := feedbackCmd.String("file", "", "Path to the narrative text or HTML file (defaults to stdin)")
		feedbackCmd.Parse(os.Args[2:])
		requireUser(*user)

		narrative, err := readNarrative(*file)
		if err != nil {
			log.Fatalf("Failed to read narrative: %v", err)
		}
		res, err := application.GenerateFeedback(ctx, *user, narrative)
		if err != nil {
			log.Fatalf("Feedback failed: %v", err)
		}
		fmt.Println(res.Feedback)

	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
		user := tokenCmd.String("user", "", "User ID")
		admin := tokenCmd.Bool("admin", false, "Mint an admin token")
		tokenCmd.Parse(os.Args[2:])
		requireUser(*user)

		token, err := httpapi.MintToken(cfg.TokenSigningKey, *user, *admin, httpapi.DefaultTokenTTL)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		if err := metricsStore.Cleanup(*days); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Println("Old metric records removed.")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newTextGenerator picks the reviewer model: Groq first, Gemini as the
// fallback, nil when no key is configured (degraded feedback).
func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, func()) {
	if cfg.GroqAPIKey != "" {
		return llm.NewGroqClient(cfg, llm.ModelReviewer, 0.2), nil
	}
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		closeFn := func() {
			if c, ok := client.(llm.Closer); ok {
				c.Close()
			}
		}
		return client, closeFn
	}
	log.Println("No LLM API key configured; feedback will run in degraded mode.")
	return nil, nil
}

func requireUser(user string) {
	if user == "" {
		log.Fatal("-user is required")
	}
}

func readNarrative(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Println("Usage: leed-assist <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  submit           Save claimed credits into a phase")
	fmt.Println("  plan             Show the current plan")
	fmt.Println("  suggest          Cost-risk check with substitution suggestions")
	fmt.Println("  feedback         Review a narrative and print feedback")
	fmt.Println("  token            Mint an API bearer token")
	fmt.Println("  metrics-cleanup  Remove old metric records")
}
