package usecase

import (
	"context"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/core/ports"
	"github.com/uscbytes/course-qa/internal/prompt"
)

// QueryUseCase runs one question through the full pipeline:
// validate -> embed -> retrieve -> synthesize -> extract sources.
// It is stateless across requests; every stage short-circuits on failure.
type QueryUseCase struct {
	prompts   ports.PromptRegistry
	embedder  ports.Embedder
	searcher  ports.ChunkSearcher
	generator ports.AnswerGenerator
}

func NewQueryUseCase(
	prompts ports.PromptRegistry,
	embedder ports.Embedder,
	searcher ports.ChunkSearcher,
	generator ports.AnswerGenerator,
) *QueryUseCase {
	return &QueryUseCase{
		prompts:   prompts,
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
	}
}

func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question string,
	promptName string,
	topK int,
) (*domain.Answer, error) {
	if !IsValidQuestion(question) {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "validate question", nil)
	}
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "top_k must be positive", nil)
	}
	if promptName == "" {
		promptName = prompt.DefaultName
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			err = domain.WrapError(domain.ErrEmbeddingUnavailable, "embed question", err)
		}
		return nil, err
	}

	chunks, err := uc.searcher.Search(ctx, queryVector, topK)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidParameter) || domain.IsKind(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "search index", err)
	}

	modelInput := prompt.Compose(uc.prompts.Get(promptName), question)
	answerText, err := uc.generator.GenerateAnswer(ctx, modelInput, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrSynthesisFailed, "generate answer", err)
	}

	// Source extraction is pure and cannot fail; metadata irregularities
	// degrade to the unknown-source sentinel inside DisplaySource.
	return &domain.Answer{
		Text:       answerText,
		Sources:    ExtractSources(chunks),
		PromptName: promptName,
	}, nil
}

func (uc *QueryUseCase) AvailablePrompts(context.Context) ([]string, error) {
	return uc.prompts.List(), nil
}
