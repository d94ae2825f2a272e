package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leed-assist/internal/app"
	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/database"
	"leed-assist/internal/feedback"
	"leed-assist/internal/httpapi"
	"leed-assist/internal/llm"
	"leed-assist/internal/metrics"
	"leed-assist/internal/plan"
	"leed-assist/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Load the credit catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load credit catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d credits", cat.Len())

	// 3. Initialize the SQLite database
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// 4. Pick the reviewer model: Groq first, Gemini fallback, none for
	// degraded mode.
	var textGen llm.TextGenerator
	switch {
	case cfg.GroqAPIKey != "":
		textGen = llm.NewGroqClient(cfg, llm.ModelReviewer, 0.2)
	case cfg.GeminiAPIKey != "":
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		if closer, ok := gemini.(llm.Closer); ok {
			defer closer.Close()
		}
		textGen = gemini
	default:
		log.Println("No LLM API key configured; feedback will run in degraded mode.")
	}

	// 5. Initialize Services
	generator := feedback.NewGenerator(textGen, feedback.LoadRubrics(cfg.RubricsPath))
	application := app.NewApp(cat, plan.NewStore(db.SQL), generator, metrics.NewStore(db.SQL), cfg)

	mux := http.NewServeMux()
	httpapi.NewServer(application, cfg).RegisterHandlers(mux)

	// 6. Initialize the Telegram Bot when configured
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, application)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram Bot: %v", err)
		}
		bot.RegisterHandlers(mux)
	}

	// 7. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Printf("Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
