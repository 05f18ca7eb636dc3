package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIGenModel   string
	OpenAIEmbedModel string

	IndexPath   string
	PromptsPath string
	StaticDir   string

	RAGTopK              int
	EmbedRetryAttempts   int
	EmbedRetryBackoff    time.Duration
	EmbedRetryMultiplier float64

	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MaxInFlight        int

	CrawlSeedURL         string
	CrawlAllowedPrefixes []string
	CrawlMaxPages        int
	CrawlDelay           time.Duration

	SiteURLsPath string
	PDFMapPath   string
	DocsPath     string
	PDFOutSubdir string

	ChunkSize    int
	ChunkOverlap int

	SentryDSN   string
	Environment string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIGenModel:   mustEnv("OPENAI_GEN_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		IndexPath:   mustEnv("INDEX_PATH", "./data/processed/index"),
		PromptsPath: mustEnv("PROMPTS_PATH", ""),
		StaticDir:   mustEnv("STATIC_DIR", "./web"),

		RAGTopK:              mustEnvInt("RAG_TOP_K", 10),
		EmbedRetryAttempts:   mustEnvInt("EMBED_RETRY_ATTEMPTS", 5),
		EmbedRetryBackoff:    mustEnvDuration("EMBED_RETRY_BACKOFF", time.Second),
		EmbedRetryMultiplier: mustEnvFloat("EMBED_RETRY_MULTIPLIER", 1.5),

		RequestTimeout:     mustEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		RateLimitPerMinute: mustEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		MaxInFlight:        mustEnvInt("MAX_IN_FLIGHT", 32),

		CrawlSeedURL:         mustEnv("CRAWL_SEED_URL", ""),
		CrawlAllowedPrefixes: mustEnvList("CRAWL_ALLOWED_PREFIXES", defaultAllowedPrefixes),
		CrawlMaxPages:        mustEnvInt("CRAWL_MAX_PAGES", 120),
		CrawlDelay:           mustEnvDuration("CRAWL_DELAY", 300*time.Millisecond),

		SiteURLsPath: mustEnv("SITE_URLS_PATH", "./data/raw/site_urls.json"),
		PDFMapPath:   mustEnv("PDF_MAP_PATH", "./data/processed/pdf_map.json"),
		DocsPath:     mustEnv("DOCS_PATH", "./docs"),
		PDFOutSubdir: mustEnv("PDF_OUT_SUBDIR", "website_pdfs"),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 900),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 150),

		SentryDSN:   mustEnv("SENTRY_DSN", ""),
		Environment: mustEnv("ENVIRONMENT", "development"),
	}
}

var defaultAllowedPrefixes = []string{
	"/cs104/syllabus",
	"/cs104/schedule",
	"/cs104/homework",
	"/cs104/labs",
	"/cs104/wiki",
	"/cs104/resources",
	"/cs104/staff",
	"/cs104/help",
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
