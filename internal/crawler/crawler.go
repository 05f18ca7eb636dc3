// Package crawler walks a course website and collects page URLs for
// later indexing. The walk is breadth first, stays on the seed host
// and only follows paths under an allow list of section prefixes.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const defaultUserAgent = "course-qa-crawler/1.0"

type Config struct {
	SeedURL         string
	AllowedPrefixes []string
	MaxPages        int
	FetchTimeout    time.Duration
	Delay           time.Duration
}

func (c *Config) normalize() {
	if c.MaxPages <= 0 {
		c.MaxPages = 120
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
}

type Crawler struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Crawler, error) {
	cfg.normalize()
	if cfg.SeedURL == "" {
		return nil, fmt.Errorf("crawler: seed url is required")
	}
	if _, err := url.Parse(cfg.SeedURL); err != nil {
		return nil, fmt.Errorf("crawler: invalid seed url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logger: logger,
	}, nil
}

// Crawl walks the site starting from the seed and returns the visited
// page URLs in discovery order. Fetch failures on individual pages are
// logged and skipped.
func (c *Crawler) Crawl(ctx context.Context) ([]string, error) {
	seed, err := url.Parse(c.cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("crawler: parse seed: %w", err)
	}

	queue := []string{canonical(seed)}
	seen := map[string]bool{queue[0]: true}
	var visited []string

	for len(queue) > 0 && len(visited) < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		current := queue[0]
		queue = queue[1:]

		body, ok := c.fetchHTML(ctx, current)
		if !ok {
			continue
		}
		visited = append(visited, current)
		c.logger.Info("crawled page", slog.String("url", current), slog.Int("visited", len(visited)))

		for _, link := range extractLinks(body, current) {
			if seen[link] || !c.allowed(link, seed) {
				continue
			}
			seen[link] = true
			queue = append(queue, link)
		}

		if c.cfg.Delay > 0 {
			select {
			case <-time.After(c.cfg.Delay):
			case <-ctx.Done():
				return visited, ctx.Err()
			}
		}
	}
	return visited, nil
}

func (c *Crawler) fetchHTML(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		c.logger.Warn("skip page", slog.String("url", pageURL), slog.String("error", err.Error()))
		return "", false
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("fetch failed", slog.String("url", pageURL), slog.String("error", err.Error()))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("non-ok status", slog.String("url", pageURL), slog.Int("status", resp.StatusCode))
		return "", false
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "text/html") {
		return "", false
	}

	var sb strings.Builder
	if _, err := copyBounded(&sb, resp); err != nil {
		c.logger.Warn("read body failed", slog.String("url", pageURL), slog.String("error", err.Error()))
		return "", false
	}
	return sb.String(), true
}

// allowed keeps the walk on the seed host and inside the allow list.
// An empty allow list permits every path on the host.
func (c *Crawler) allowed(link string, seed *url.URL) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Host != seed.Host {
		return false
	}
	if len(c.cfg.AllowedPrefixes) == 0 {
		return true
	}
	if canonical(u) == canonical(seed) {
		return true
	}
	for _, prefix := range c.cfg.AllowedPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return true
		}
	}
	return false
}

// extractLinks parses an HTML document and resolves every anchor href
// against the page URL, dropping fragments and non-http schemes.
func extractLinks(body, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	seen := map[string]bool{}
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
				if resolved.Scheme != "http" && resolved.Scheme != "https" {
					continue
				}
				link := canonical(resolved)
				if !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

// copyBounded reads at most 4 MiB of a response body. Course pages are
// small and the cap keeps a misbehaving server from exhausting memory.
func copyBounded(dst *strings.Builder, resp *http.Response) (int64, error) {
	return io.Copy(dst, io.LimitReader(resp.Body, 4<<20))
}

// canonical strips the fragment so that anchor variants of one page
// collapse to a single queue entry.
func canonical(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	return clone.String()
}
