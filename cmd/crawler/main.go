package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/crawler"
	"github.com/uscbytes/course-qa/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("course-qa-crawler", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := crawler.New(crawler.Config{
		SeedURL:         cfg.CrawlSeedURL,
		AllowedPrefixes: cfg.CrawlAllowedPrefixes,
		MaxPages:        cfg.CrawlMaxPages,
		Delay:           cfg.CrawlDelay,
	}, logger)
	if err != nil {
		log.Fatalf("crawler init: %v", err)
	}

	urls, err := c.Crawl(ctx)
	if err != nil {
		log.Fatalf("crawl failed: %v", err)
	}
	if len(urls) == 0 {
		log.Fatal("crawl found no pages, not writing an empty url list")
	}

	if err := writeURLList(cfg.SiteURLsPath, urls); err != nil {
		log.Fatalf("write url list: %v", err)
	}
	logger.Info("crawl finished",
		slog.Int("pages", len(urls)),
		slog.String("output", cfg.SiteURLsPath),
	)
}

func writeURLList(path string, urls []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
