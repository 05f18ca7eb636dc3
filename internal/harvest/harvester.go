// Package harvest discovers PDF documents linked from crawled course
// pages and downloads them into local storage so the index builder can
// extract their text offline.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/uscbytes/course-qa/internal/infrastructure/storage/localfs"
)

const defaultUserAgent = "course-qa-harvester/1.0"

type Config struct {
	AllowedHosts []string
	OutSubdir    string
	FetchTimeout time.Duration
	Delay        time.Duration
}

func (c *Config) normalize() {
	if c.OutSubdir == "" {
		c.OutSubdir = "website_pdfs"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
}

type Harvester struct {
	cfg     Config
	storage *localfs.Storage
	client  *http.Client
	logger  *slog.Logger
}

func New(cfg Config, storage *localfs.Storage, logger *slog.Logger) *Harvester {
	cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		cfg:     cfg,
		storage: storage,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		logger:  logger,
	}
}

// Harvest scans the given pages for PDF links, downloads each document
// once and returns a map from the stored relative path to the source
// URL. Already downloaded files are kept and still appear in the map.
func (h *Harvester) Harvest(ctx context.Context, pageURLs []string) (map[string]string, error) {
	pdfMap := make(map[string]string)
	seen := make(map[string]bool)

	for _, pageURL := range pageURLs {
		if err := ctx.Err(); err != nil {
			return pdfMap, err
		}

		links, err := h.scanPage(ctx, pageURL)
		if err != nil {
			h.logger.Warn("skip page", slog.String("url", pageURL), slog.String("error", err.Error()))
			continue
		}

		for _, link := range links {
			if seen[link] {
				continue
			}
			seen[link] = true

			relKey := path.Join(h.cfg.OutSubdir, StableFilename(link))
			pdfMap[relKey] = link

			if h.storage.Exists(relKey) {
				h.logger.Info("already downloaded", slog.String("url", link))
				continue
			}
			if err := h.download(ctx, link, relKey); err != nil {
				h.logger.Warn("download failed", slog.String("url", link), slog.String("error", err.Error()))
				delete(pdfMap, relKey)
				continue
			}
			h.logger.Info("downloaded pdf", slog.String("url", link), slog.String("file", relKey))

			if h.cfg.Delay > 0 {
				select {
				case <-time.After(h.cfg.Delay):
				case <-ctx.Done():
					return pdfMap, ctx.Err()
				}
			}
		}
	}
	return pdfMap, nil
}

func (h *Harvester) scanPage(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil {
					continue
				}
				resolved := base.ResolveReference(ref)
				if h.isCandidate(resolved) {
					resolved.Fragment = ""
					links = append(links, resolved.String())
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links, nil
}

func (h *Harvester) isCandidate(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !isProbablyPDF(u) {
		return false
	}
	if len(h.cfg.AllowedHosts) == 0 {
		return true
	}
	for _, host := range h.cfg.AllowedHosts {
		if strings.EqualFold(u.Host, host) {
			return true
		}
	}
	return false
}

func (h *Harvester) download(ctx context.Context, pdfURL, relKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" &&
		!strings.Contains(ct, "application/pdf") && !strings.Contains(ct, "octet-stream") {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	return h.storage.Save(ctx, relKey, resp.Body)
}

// isProbablyPDF accepts links whose path ends in .pdf. Query-served
// documents are resolved at download time by their Content-Type.
func isProbablyPDF(u *url.URL) bool {
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}
