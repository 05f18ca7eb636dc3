package openai

import (
	"fmt"
	"strings"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// buildGroundedPrompt appends the retrieved chunks as grounding context to
// the composed instruction+question. The grounding rules themselves live in
// the prompt templates.
func buildGroundedPrompt(modelInput string, chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return modelInput + "\n\nContext from course materials: (none retrieved)\n"
	}

	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		fmt.Fprintf(&contextBuilder,
			"[%d] source=%s score=%.3f\n%s\n\n",
			idx+1,
			chunk.Metadata.DisplaySource(),
			chunk.Score,
			chunk.Text,
		)
	}

	return fmt.Sprintf("%s\n\nContext from course materials:\n%s", modelInput, contextBuilder.String())
}
