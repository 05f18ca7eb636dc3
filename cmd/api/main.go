package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/uscbytes/course-qa/internal/adapters/http"
	"github.com/uscbytes/course-qa/internal/bootstrap"
	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/observability/errtrack"
	"github.com/uscbytes/course-qa/internal/observability/logging"
	"github.com/uscbytes/course-qa/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("course-qa-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := errtrack.Init(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		log.Fatalf("error tracking init: %v", err)
	}
	defer reporter.Flush(2 * time.Second)

	httpMetrics := metrics.NewHTTPServerMetrics("course-qa-api")

	service, err := bootstrap.NewService(cfg, logger, httpMetrics, reporter)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	// Try to load the index up front so the first question is fast.
	// A missing index is fine, it is retried on the first request.
	go service.Warmup()

	router := httpadapter.NewRouter(httpadapter.Config{
		DefaultTopK:        cfg.RAGTopK,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxInFlight:        cfg.MaxInFlight,
		StaticDir:          cfg.StaticDir,
	}, service, service)

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", httpMetrics.Middleware("course-qa-api", router.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", slog.String("error", err.Error()))
	}
}
