package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/analysis"
	"github.com/tablechat-ai/tablechat/pkg/config"
	"github.com/tablechat-ai/tablechat/pkg/convo"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/gate"
	"github.com/tablechat-ai/tablechat/pkg/healer"
	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/logging"
	"github.com/tablechat-ai/tablechat/pkg/pipeline"
	"github.com/tablechat-ai/tablechat/pkg/plan"
	"github.com/tablechat-ai/tablechat/pkg/planner"
	"github.com/tablechat-ai/tablechat/pkg/profile"
	"github.com/tablechat-ai/tablechat/pkg/router"
	"github.com/tablechat-ai/tablechat/pkg/translate"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting tablechat",
		zap.String("version", cfg.Version),
		zap.String("database", cfg.DatabasePath),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_endpoint", logging.RedactEndpoint(cfg.LLM.Endpoint)),
		zap.String("llm_api_key", logging.RedactKey(cfg.LLM.APIKey)))

	catalog, err := duck.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer catalog.Close()

	store := profile.NewStore(cfg.ProfilesPath, logger)
	if err := store.Load(); err != nil {
		logger.Warn("Starting with empty profile store", zap.Error(err))
	}

	client, err := llm.NewFromConfig(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	extractor := extract.NewExtractor(logger)

	var summaryClient llm.Client
	if cfg.Profile.UseLLMSummaries {
		summaryClient = client
	}
	profiler := profile.NewProfiler(catalog, cfg.Profile.SampleLimit, logger)
	profileSvc := profile.NewService(catalog, store, profiler, extractor,
		summaryClient, cfg.Profile.Workers, cfg.LLM.MaxConcurrent, cfg.LLM.LLMTimeout(), logger)

	ctx := context.Background()
	if result, err := profileSvc.Refresh(ctx); err != nil {
		logger.Fatal("Failed to profile tables", zap.Error(err))
	} else if result.Profiled == 0 {
		logger.Warn("No tables found in database; load data before asking questions")
	}

	h := healer.New(catalog, store, cfg.Healer.MaxRetries, logger)
	p := pipeline.New(pipeline.Deps{
		Gate:      gate.New(store, logger),
		Extractor: extractor,
		Router: router.NewService(store, catalog, extractor, client,
			cfg.Router.UseLLM, cfg.Router.Timeout(), logger),
		Planner:    planner.NewService(client, cfg.LLM.LLMTimeout(), logger),
		Validator:  plan.NewValidator(catalog, logger),
		Healer:     h,
		Analyzer:   analysis.NewAnalyzer(h, logger),
		Store:      store,
		Sessions:   convo.NewManager(cfg.SessionsDir, logger),
		Translator: translate.NewTranslator(client, cfg.LLM.LLMTimeout(), logger),
	}, logger)

	repl(ctx, p, logger)
}

// repl answers stdin questions until EOF or "exit". Every line shares one
// session so follow-ups and clarifications carry over.
func repl(ctx context.Context, p *pipeline.Pipeline, logger *zap.Logger) {
	fmt.Println("tablechat ready. Ask a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	sessionID := uuid.NewString()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := p.Ask(ctx, sessionID, question)
		if err != nil && answer == nil {
			fmt.Printf("Sorry, %v\n", err)
			continue
		}
		if err != nil {
			logger.Debug("Turn ended with surfaceable condition", zap.Error(err))
		}
		fmt.Println(answer.Text)
	}

	if err := scanner.Err(); err != nil {
		logger.Error("Input error", zap.Error(err))
	}
	fmt.Println("Bye.")
}
