// Package indexer turns crawled pages and harvested PDF documents into
// the on-disk vector index served by the question answering API.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/core/ports"
	"github.com/uscbytes/course-qa/internal/infrastructure/index/diskindex"
)

const defaultEmbedBatchSize = 64

type Config struct {
	SiteURLsPath string
	PDFMapPath   string
	DocsPath     string
	IndexPath    string
	EmbedModel   string
	FetchTimeout time.Duration
	BatchSize    int
}

func (c *Config) normalize() {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultEmbedBatchSize
	}
}

// PDFTextExtractor pulls plain text out of a PDF file on disk.
type PDFTextExtractor interface {
	Extract(path string) (string, error)
}

type Builder struct {
	cfg       Config
	embedder  ports.Embedder
	chunker   ports.Chunker
	extractor PDFTextExtractor
	client    *http.Client
	logger    *slog.Logger
}

func NewBuilder(cfg Config, embedder ports.Embedder, chunker ports.Chunker, extractor PDFTextExtractor, logger *slog.Logger) *Builder {
	cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:       cfg,
		embedder:  embedder,
		chunker:   chunker,
		extractor: extractor,
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		logger:    logger,
	}
}

// Build assembles document chunks from website pages and local PDFs,
// embeds them in batches and writes the index directory. The previous
// manifest is removed before writing so a crash mid-build leaves an
// index that refuses to load instead of one that lies.
func (b *Builder) Build(ctx context.Context) error {
	chunks, err := b.collectChunks(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("indexer: no content collected, refusing to write an empty index")
	}
	b.logger.Info("collected chunks", slog.Int("count", len(chunks)))

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	if err := diskindex.Write(b.cfg.IndexPath, b.cfg.EmbedModel, chunks, vectors); err != nil {
		return fmt.Errorf("indexer: write index: %w", err)
	}
	b.logger.Info("index written",
		slog.String("path", b.cfg.IndexPath),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

func (b *Builder) collectChunks(ctx context.Context) ([]domain.DocumentChunk, error) {
	var chunks []domain.DocumentChunk

	webChunks, err := b.collectWebsiteChunks(ctx)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, webChunks...)

	pdfChunks, err := b.collectPDFChunks(ctx)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, pdfChunks...)
	return chunks, nil
}

func (b *Builder) collectWebsiteChunks(ctx context.Context) ([]domain.DocumentChunk, error) {
	urls, err := loadSiteURLs(b.cfg.SiteURLsPath)
	if err != nil {
		if os.IsNotExist(err) {
			b.logger.Warn("no crawled url list, skipping website pages", slog.String("path", b.cfg.SiteURLsPath))
			return nil, nil
		}
		return nil, fmt.Errorf("indexer: load site urls: %w", err)
	}

	var chunks []domain.DocumentChunk
	for _, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := b.fetchPageText(ctx, pageURL)
		if err != nil {
			b.logger.Warn("skip page", slog.String("url", pageURL), slog.String("error", err.Error()))
			continue
		}
		meta := domain.ChunkMetadata{
			SourceType: domain.SourceCourseWebsite,
			URL:        pageURL,
		}
		for _, piece := range b.chunker.Split(text) {
			chunks = append(chunks, domain.DocumentChunk{
				ID:       uuid.NewString(),
				Text:     piece,
				Metadata: meta,
			})
		}
	}
	return chunks, nil
}

func (b *Builder) collectPDFChunks(ctx context.Context) ([]domain.DocumentChunk, error) {
	if b.cfg.DocsPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(b.cfg.DocsPath); os.IsNotExist(err) {
		b.logger.Warn("docs directory missing, skipping pdfs", slog.String("path", b.cfg.DocsPath))
		return nil, nil
	}

	pdfMap := loadPDFMap(b.cfg.PDFMapPath, b.logger)

	var chunks []domain.DocumentChunk
	err := filepath.WalkDir(b.cfg.DocsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".pdf") {
			return nil
		}

		text, err := b.extractor.Extract(path)
		if err != nil {
			b.logger.Warn("skip pdf", slog.String("file", path), slog.String("error", err.Error()))
			return nil
		}

		meta := domain.ChunkMetadata{
			SourceType: domain.SourceCoursePDF,
			FilePath:   path,
		}
		if rel, relErr := filepath.Rel(b.cfg.DocsPath, path); relErr == nil {
			if src, ok := pdfMap[filepath.ToSlash(rel)]; ok {
				meta.URL = src
			}
		}
		for _, piece := range b.chunker.Split(text) {
			chunks = append(chunks, domain.DocumentChunk{
				ID:       uuid.NewString(),
				Text:     piece,
				Metadata: meta,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: walk docs: %w", err)
	}
	return chunks, nil
}

func (b *Builder) embedAll(ctx context.Context, chunks []domain.DocumentChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("indexer: embed batch %d-%d: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("indexer: embed batch %d-%d: got %d vectors for %d texts", start, end, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		b.logger.Info("embedded batch", slog.Int("done", end), slog.Int("total", len(chunks)))
	}
	return vectors, nil
}

func (b *Builder) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	text := htmlToText(string(raw))
	if text == "" {
		return "", fmt.Errorf("no text content")
	}
	return text, nil
}

// loadSiteURLs reads the crawler output and returns normalized,
// deduplicated page URLs in sorted order.
func loadSiteURLs(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		n := normalizeURL(u)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// normalizeURL collapses crawl variants of one page: fragments and
// query strings are dropped and a trailing slash is trimmed.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func loadPDFMap(path string, logger *slog.Logger) map[string]string {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("pdf map unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		logger.Warn("pdf map corrupt", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return m
}
