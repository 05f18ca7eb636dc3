package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/core/ports"
	"github.com/uscbytes/course-qa/internal/observability/errtrack"
	"github.com/uscbytes/course-qa/internal/observability/metrics"
	"github.com/uscbytes/course-qa/internal/prompt"
)

const serviceName = "course-qa-api"

// BuildFunc produces the answering engine. Injectable for tests.
type BuildFunc func() (*Engine, error)

// Service is the lazily initialized entry point behind the HTTP layer.
// The engine is built on first use and the result is kept only on
// success, so a missing index at startup heals once the index appears.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.HTTPServerMetrics
	reporter *errtrack.Reporter
	registry *prompt.Registry
	build    BuildFunc

	mu     sync.Mutex
	engine *Engine
}

var _ ports.QuestionService = (*Service)(nil)

func NewService(cfg config.Config, logger *slog.Logger, m *metrics.HTTPServerMetrics, reporter *errtrack.Reporter) (*Service, error) {
	registry, err := LoadPromptRegistry(cfg)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		reporter: reporter,
		registry: registry,
	}
	s.build = func() (*Engine, error) {
		return BuildEngine(cfg, registry, s.observeTokenUsage)
	}
	return s, nil
}

// NewServiceWithBuilder overrides engine construction, used by tests.
func NewServiceWithBuilder(cfg config.Config, logger *slog.Logger, registry *prompt.Registry, build BuildFunc) *Service {
	return &Service{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		build:    build,
	}
}

func (s *Service) Answer(ctx context.Context, question, promptName string, topK int) (*domain.Answer, error) {
	engine, err := s.engineOrInit()
	if err != nil {
		s.logger.Error("engine init failed", slog.String("error", err.Error()))
		s.reporter.CaptureError(err, "bootstrap")
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "bootstrap.init", err)
	}

	start := time.Now()
	answer, err := engine.UseCase.Answer(ctx, question, promptName, topK)
	if err != nil {
		if !domain.IsKind(err, domain.ErrInvalidQuery) && !domain.IsKind(err, domain.ErrInvalidParameter) {
			s.reporter.CaptureError(err, "answer")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRAGObservation(serviceName, "/query", len(answer.Sources), time.Since(start))
		s.metrics.RecordPromptRequest(serviceName, "/query", answer.PromptName)
	}
	return answer, nil
}

func (s *Service) AvailablePrompts(context.Context) ([]string, error) {
	return s.registry.List(), nil
}

// Warmup builds the engine ahead of the first question. Failure is
// logged, not fatal: the index may simply not be built yet.
func (s *Service) Warmup() {
	if _, err := s.engineOrInit(); err != nil {
		s.logger.Warn("warmup skipped", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("answering engine ready", slog.String("index_path", s.cfg.IndexPath))
}

// IndexLoaded reports whether the engine is serving, or failing that,
// whether an index directory is at least present on disk. The health
// endpoint calls this without forcing initialization.
func (s *Service) IndexLoaded() bool {
	s.mu.Lock()
	loaded := s.engine != nil
	s.mu.Unlock()
	if loaded {
		return true
	}
	info, err := os.Stat(s.cfg.IndexPath)
	return err == nil && info.IsDir()
}

func (s *Service) IndexPath() string {
	return s.cfg.IndexPath
}

func (s *Service) engineOrInit() (*Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil {
		return s.engine, nil
	}
	engine, err := s.build()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return engine, nil
}

func (s *Service) observeTokenUsage(model string, promptTokens, completionTokens int) {
	if s.metrics != nil {
		s.metrics.RecordTokenUsage(serviceName, "/query", model, promptTokens, completionTokens)
	}
}
