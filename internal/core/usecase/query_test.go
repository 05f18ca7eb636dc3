package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/prompt"
)

type embedderFake struct {
	calls int
	err   error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type searcherFake struct {
	topK   int
	chunks []domain.RetrievedChunk
	err    error
}

func (f *searcherFake) Search(_ context.Context, _ []float32, topK int) ([]domain.RetrievedChunk, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type generatorFake struct {
	input  string
	chunks []domain.RetrievedChunk
	err    error
}

func (f *generatorFake) GenerateAnswer(_ context.Context, modelInput string, chunks []domain.RetrievedChunk) (string, error) {
	f.input = modelInput
	f.chunks = chunks
	if f.err != nil {
		return "", f.err
	}
	return "Late homework loses 10% per day.", nil
}

func newTestUseCase(embedder *embedderFake, searcher *searcherFake, generator *generatorFake) *QueryUseCase {
	return NewQueryUseCase(prompt.NewRegistry(), embedder, searcher, generator)
}

func TestAnswerEndToEnd(t *testing.T) {
	searcher := &searcherFake{chunks: []domain.RetrievedChunk{
		{
			Text:     "Homework submitted late loses 10% per day.",
			Metadata: domain.ChunkMetadata{SourceType: domain.SourceCourseWebsite, URL: "https://bytes.usc.edu/cs104/syllabus"},
			Score:    0.91,
		},
	}}
	generator := &generatorFake{}
	uc := newTestUseCase(&embedderFake{}, searcher, generator)

	answer, err := uc.Answer(context.Background(), "What is the late penalty for homework?", "ta_friendly", 10)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text == "" {
		t.Fatalf("expected non-empty answer text")
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "https://bytes.usc.edu/cs104/syllabus" {
		t.Fatalf("unexpected sources: %v", answer.Sources)
	}
	if answer.PromptName != "ta_friendly" {
		t.Fatalf("unexpected prompt name: %s", answer.PromptName)
	}
	if searcher.topK != 10 {
		t.Fatalf("expected top_k=10 passed through, got %d", searcher.topK)
	}
	if !strings.Contains(generator.input, "Student question: What is the late penalty for homework?") {
		t.Fatalf("composed model input missing question: %q", generator.input)
	}
}

func TestAnswerInvalidQuestionShortCircuits(t *testing.T) {
	embedder := &embedderFake{}
	uc := newTestUseCase(embedder, &searcherFake{}, &generatorFake{})

	for _, question := range []string{"", "  ", "ab", "3.14"} {
		_, err := uc.Answer(context.Background(), question, "ta_friendly", 5)
		if !domain.IsKind(err, domain.ErrInvalidQuery) {
			t.Fatalf("question %q: expected ErrInvalidQuery, got %v", question, err)
		}
	}
	if embedder.calls != 0 {
		t.Fatalf("validation failure must not reach the embedder, got %d calls", embedder.calls)
	}
}

func TestAnswerRejectsNonPositiveTopK(t *testing.T) {
	embedder := &embedderFake{}
	uc := newTestUseCase(embedder, &searcherFake{}, &generatorFake{})

	for _, topK := range []int{0, -3} {
		_, err := uc.Answer(context.Background(), "what is the grading scale?", "ta_friendly", topK)
		if !domain.IsKind(err, domain.ErrInvalidParameter) {
			t.Fatalf("top_k=%d: expected ErrInvalidParameter, got %v", topK, err)
		}
	}
	if embedder.calls != 0 {
		t.Fatalf("parameter failure must not reach the embedder")
	}
}

func TestAnswerUnknownPromptFallsBack(t *testing.T) {
	generator := &generatorFake{}
	uc := newTestUseCase(&embedderFake{}, &searcherFake{}, generator)

	answer, err := uc.Answer(context.Background(), "when are office hours?", "nonexistent", 5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.PromptName != "nonexistent" {
		t.Fatalf("answer must echo the requested prompt name, got %s", answer.PromptName)
	}
	reg := prompt.NewRegistry()
	if !strings.HasPrefix(generator.input, strings.TrimSpace(reg.Get(prompt.DefaultName))) {
		t.Fatalf("expected default template in model input: %q", generator.input)
	}
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	uc := newTestUseCase(&embedderFake{err: errors.New("provider down")}, &searcherFake{}, &generatorFake{})

	_, err := uc.Answer(context.Background(), "what is covered on the midterm?", "ta_friendly", 5)
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestAnswerIndexFailure(t *testing.T) {
	uc := newTestUseCase(&embedderFake{}, &searcherFake{err: errors.New("corrupt index")}, &generatorFake{})

	_, err := uc.Answer(context.Background(), "what is covered on the midterm?", "ta_friendly", 5)
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestAnswerSynthesisFailure(t *testing.T) {
	uc := newTestUseCase(&embedderFake{}, &searcherFake{}, &generatorFake{err: errors.New("model quota exceeded")})

	_, err := uc.Answer(context.Background(), "what is covered on the midterm?", "ta_friendly", 5)
	if !domain.IsKind(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}
