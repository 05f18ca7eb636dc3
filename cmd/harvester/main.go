package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/harvest"
	"github.com/uscbytes/course-qa/internal/infrastructure/storage/localfs"
	"github.com/uscbytes/course-qa/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("course-qa-harvester", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pages, err := readURLList(cfg.SiteURLsPath)
	if err != nil {
		log.Fatalf("read crawled url list (run the crawler first): %v", err)
	}

	storage, err := localfs.New(cfg.DocsPath)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}

	h := harvest.New(harvest.Config{
		AllowedHosts: allowedHosts(cfg.CrawlSeedURL),
		OutSubdir:    cfg.PDFOutSubdir,
		Delay:        cfg.CrawlDelay,
	}, storage, logger)

	pdfMap, err := h.Harvest(ctx, pages)
	if err != nil {
		log.Fatalf("harvest failed: %v", err)
	}

	if err := writePDFMap(cfg.PDFMapPath, pdfMap); err != nil {
		log.Fatalf("write pdf map: %v", err)
	}
	logger.Info("harvest finished",
		slog.Int("documents", len(pdfMap)),
		slog.String("output", cfg.PDFMapPath),
	)
}

func readURLList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

func writePDFMap(path string, pdfMap map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(pdfMap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func allowedHosts(seedURL string) []string {
	if seedURL == "" {
		return nil
	}
	u, err := url.Parse(seedURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
