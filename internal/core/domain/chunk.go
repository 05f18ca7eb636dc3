package domain

import (
	"path"
	"path/filepath"
	"strings"
)

type SourceType string

const (
	SourceCourseWebsite SourceType = "course_website"
	SourceCoursePDF     SourceType = "course_pdf"
)

// UnknownSource is the sentinel shown when chunk metadata carries neither a
// URL nor a file path.
const UnknownSource = "(unknown source)"

// ChunkMetadata describes where a chunk's text came from. URL and FilePath
// are optional; both may be empty for degraded index entries.
type ChunkMetadata struct {
	SourceType SourceType `json:"source_type"`
	URL        string     `json:"url,omitempty"`
	FilePath   string     `json:"file_path,omitempty"`
}

// DocumentChunk is an immutable span of source text stored in the index.
type DocumentChunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievedChunk is one similarity-search hit. Transient, built per query.
type RetrievedChunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}

// Answer is the externally observable result of the query pipeline.
type Answer struct {
	Text       string   `json:"answer"`
	Sources    []string `json:"sources"`
	PromptName string   `json:"prompt_name"`
}

// DisplaySource derives the citation string for a chunk. Local PDFs show the
// bare file name, web pages show the full URL, anything else degrades to the
// unknown-source sentinel.
func (m ChunkMetadata) DisplaySource() string {
	if m.FilePath != "" && strings.HasSuffix(strings.ToLower(m.FilePath), ".pdf") {
		return filepath.Base(m.FilePath)
	}
	if strings.HasPrefix(m.URL, "file://") {
		return path.Base(m.URL)
	}
	if m.URL != "" {
		return m.URL
	}
	return UnknownSource
}
