package ports

import (
	"context"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// QuestionService is the inbound contract for the question-answering pipeline.
type QuestionService interface {
	Answer(ctx context.Context, question, promptName string, topK int) (*domain.Answer, error)
	AvailablePrompts(ctx context.Context) ([]string, error)
}
