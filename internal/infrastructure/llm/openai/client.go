package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/infrastructure/resilience"
)

const (
	// Deterministic generation is preferred so repeated identical queries
	// against an unchanged index produce stable answers (best-effort; the
	// provider does not guarantee it).
	generationTemperature = 0
	generationSeed        = 42
)

// UsageObserver receives approximate token usage after each chat completion.
type UsageObserver func(model string, promptTokens, completionTokens int)

type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client

	usageObserver UsageObserver
}

func New(baseURL, apiKey, genModel, embedModel string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// SetUsageObserver wires token-usage reporting; call before serving traffic.
func (c *Client) SetUsageObserver(observer UsageObserver) {
	c.usageObserver = observer
}

var errEmptyEmbedding = errors.New("empty embedding result")

type Embedder struct {
	client   *Client
	executor *resilience.Executor
}

func NewEmbedder(client *Client, executor *resilience.Executor) *Embedder {
	return &Embedder{client: client, executor: executor}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := e.executor.Execute(ctx, "openai.embed", func(ctx context.Context) error {
		out, err := e.client.embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(out), len(texts))
		}
		vectors = out
		return nil
	}, classifyProviderError)
	if err != nil {
		return nil, wrapEmbeddingFailure(ctx, "embed texts", err)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.executor.Execute(ctx, "openai.embed_query", func(ctx context.Context) error {
		out, err := e.client.embed(ctx, []string{text})
		if err != nil {
			return err
		}
		// An empty vector is a failure requiring retry, not a success.
		if len(out) == 0 || len(out[0]) == 0 {
			return errEmptyEmbedding
		}
		vector = out[0]
		return nil
	}, classifyProviderError)
	if err != nil {
		return nil, wrapEmbeddingFailure(ctx, "embed query", err)
	}
	return vector, nil
}

func wrapEmbeddingFailure(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return domain.WrapError(domain.ErrEmbeddingUnavailable, operation, err)
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/embeddings", request, &response, "embed"); err != nil {
		return nil, err
	}

	out := make([][]float32, len(response.Data))
	for i, item := range response.Data {
		idx := item.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = item.Embedding
	}
	return out, nil
}

type Generator struct {
	client   *Client
	executor *resilience.Executor
}

func NewGenerator(client *Client, executor *resilience.Executor) *Generator {
	return &Generator{client: client, executor: executor}
}

func (g *Generator) GenerateAnswer(ctx context.Context, modelInput string, chunks []domain.RetrievedChunk) (string, error) {
	prompt := buildGroundedPrompt(modelInput, chunks)

	var answer string
	err := g.executor.Execute(ctx, "openai.chat", func(ctx context.Context) error {
		out, err := g.client.chatCompletion(ctx, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	}, classifyProviderError)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (c *Client) chatCompletion(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":       c.genModel,
		"temperature": generationTemperature,
		"seed":        generationSeed,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := c.postJSON(ctx, "/chat/completions", request, &response, "generate"); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in generate response")
	}

	if c.usageObserver != nil {
		c.usageObserver(c.genModel, response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
