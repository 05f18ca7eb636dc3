package ports

import (
	"context"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher performs nearest-neighbor search over the persisted index.
// Read-only with respect to the index.
type ChunkSearcher interface {
	Search(ctx context.Context, queryVector []float32, topK int) ([]domain.RetrievedChunk, error)
}

// AnswerGenerator creates the final user-facing answer from the composed
// model input and the retrieved grounding context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, modelInput string, chunks []domain.RetrievedChunk) (string, error)
}

// PromptRegistry resolves named instruction templates. Lookup of an unknown
// name falls back to the default template instead of failing.
type PromptRegistry interface {
	Get(name string) string
	List() []string
}

// Chunker splits document text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
