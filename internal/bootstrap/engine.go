// Package bootstrap wires configuration into a ready answering service
// and owns the lazy lifecycle of the underlying engine.
package bootstrap

import (
	"fmt"

	"github.com/uscbytes/course-qa/internal/config"
	"github.com/uscbytes/course-qa/internal/core/usecase"
	"github.com/uscbytes/course-qa/internal/infrastructure/index/diskindex"
	"github.com/uscbytes/course-qa/internal/infrastructure/llm/openai"
	"github.com/uscbytes/course-qa/internal/infrastructure/resilience"
	"github.com/uscbytes/course-qa/internal/prompt"
)

// Engine bundles the retrieval store with the answering use case.
type Engine struct {
	UseCase *usecase.QueryUseCase
	Store   *diskindex.Store
}

// BuildEngine opens the on-disk index and assembles the full answering
// pipeline around it. It is called lazily on the first question so the
// API can start, and report health, before the index exists.
func BuildEngine(cfg config.Config, registry *prompt.Registry, usage openai.UsageObserver) (*Engine, error) {
	store, err := diskindex.Open(cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open index: %w", err)
	}

	client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel)
	if usage != nil {
		client.SetUsageObserver(usage)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.EmbedRetryAttempts,
		RetryInitialBackoff: cfg.EmbedRetryBackoff,
		RetryMultiplier:     cfg.EmbedRetryMultiplier,
		BreakerEnabled:      true,
	})

	uc := usecase.NewQueryUseCase(
		registry,
		openai.NewEmbedder(client, executor),
		store,
		openai.NewGenerator(client, executor),
	)
	return &Engine{UseCase: uc, Store: store}, nil
}

// LoadPromptRegistry builds the instruction prompt registry, applying
// the optional overlay file when configured.
func LoadPromptRegistry(cfg config.Config) (*prompt.Registry, error) {
	if cfg.PromptsPath == "" {
		return prompt.NewRegistry(), nil
	}
	registry, err := prompt.NewRegistryFromFile(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load prompts: %w", err)
	}
	return registry, nil
}
