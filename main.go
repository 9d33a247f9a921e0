package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/llm"
	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/mailer"
	"github.com/autonomia2025/autonomia-suite-landing/internal/assistant"
	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/hub"
	"github.com/autonomia2025/autonomia-suite-landing/internal/policy"
	"github.com/autonomia2025/autonomia-suite-landing/internal/repository"
	"github.com/autonomia2025/autonomia-suite-landing/internal/service"
	"github.com/autonomia2025/autonomia-suite-landing/internal/session"
	internalhttp "github.com/autonomia2025/autonomia-suite-landing/internal/transport/http"
	"github.com/autonomia2025/autonomia-suite-landing/internal/triage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting intake server...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseDriver)
	log.Printf("LLM: %s (mode=%q)", cfg.LLMModel, cfg.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize LLM collaborators
	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	extractor := assistant.NewExtractor(llmClient, cfg.ExtractTimeout, cfg.Prompts)
	generator := assistant.NewGenerator(llmClient, cfg.LLMTimeout, cfg.HistoryWindow, cfg.Prompts)
	classifier := &triage.Chain{
		Primary:  triage.ModelClassifier{},
		Fallback: triage.NewKeywordClassifier(policyEngine),
	}

	// Initialize mailer
	mail := mailer.New(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	// Initialize hub and sessions
	connectionHub := hub.NewHub()
	sessions := session.NewStore(cfg.SessionIdleTTL, connectionHub.DropSession)

	// Initialize service
	svc := service.New(sessions, db, connectionHub, extractor, generator, classifier, mail, service.OptionsFromConfig(cfg))

	// Initialize HTTP server
	server := internalhttp.NewServer(cfg, svc, connectionHub)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		connectionHub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		svc.RunSessionSweeper(gCtx)
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Printf("HTTP server started on port %d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down intake server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}

	log.Println("Intake server stopped")
}
