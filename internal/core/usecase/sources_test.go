package usecase

import (
	"reflect"
	"testing"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

func TestExtractSourcesDeduplicatesInFirstSeenOrder(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Metadata: domain.ChunkMetadata{URL: "https://bytes.usc.edu/cs104/syllabus"}},
		{Metadata: domain.ChunkMetadata{FilePath: "docs/CS104Syllabus.pdf"}},
		{Metadata: domain.ChunkMetadata{URL: "https://bytes.usc.edu/cs104/syllabus"}},
		{Metadata: domain.ChunkMetadata{URL: "https://bytes.usc.edu/cs104/schedule"}},
		{Metadata: domain.ChunkMetadata{FilePath: "other/dir/CS104Syllabus.pdf"}},
		{Metadata: domain.ChunkMetadata{}},
	}

	got := ExtractSources(chunks)
	want := []string{
		"https://bytes.usc.edu/cs104/syllabus",
		"CS104Syllabus.pdf",
		"https://bytes.usc.edu/cs104/schedule",
		domain.UnknownSource,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractSources() = %v, want %v", got, want)
	}
}

func TestExtractSourcesEmpty(t *testing.T) {
	if got := ExtractSources(nil); len(got) != 0 {
		t.Fatalf("expected empty source list, got %v", got)
	}
}
