package usecase

import "github.com/uscbytes/course-qa/internal/core/domain"

// ExtractSources derives the display string of every retrieved chunk and
// deduplicates by exact string equality, preserving first-occurrence order.
func ExtractSources(chunks []domain.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		source := chunk.Metadata.DisplaySource()
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}
