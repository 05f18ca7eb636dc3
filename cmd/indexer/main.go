package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/indexer"
	"github.com/uscbytes/course-qa/internal/infrastructure/chunking"
	"github.com/uscbytes/course-qa/internal/infrastructure/extractor/pdftext"
	"github.com/uscbytes/course-qa/internal/infrastructure/llm/openai"
	"github.com/uscbytes/course-qa/internal/infrastructure/resilience"
	"github.com/uscbytes/course-qa/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("course-qa-indexer", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required to build the index")
	}

	client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel)
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.EmbedRetryAttempts,
		RetryInitialBackoff: cfg.EmbedRetryBackoff,
		RetryMultiplier:     cfg.EmbedRetryMultiplier,
		BreakerEnabled:      true,
	})

	builder := indexer.NewBuilder(indexer.Config{
		SiteURLsPath: cfg.SiteURLsPath,
		PDFMapPath:   cfg.PDFMapPath,
		DocsPath:     cfg.DocsPath,
		IndexPath:    cfg.IndexPath,
		EmbedModel:   cfg.OpenAIEmbedModel,
	},
		openai.NewEmbedder(client, executor),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		pdftext.New(),
		logger,
	)

	if err := builder.Build(ctx); err != nil {
		log.Fatalf("index build failed: %v", err)
	}
	logger.Info("index build finished", slog.String("index_path", cfg.IndexPath))
}
