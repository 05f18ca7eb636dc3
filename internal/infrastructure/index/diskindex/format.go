// Package diskindex persists and serves the document index: a directory
// holding a manifest plus one JSON line per chunk with its embedding vector
// and source metadata. The index is built offline and loaded read-only at
// serving time.
package diskindex

import (
	"time"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

const (
	manifestFile = "manifest.json"
	chunksFile   = "chunks.jsonl"

	formatVersion = 1
)

type Manifest struct {
	Version    int       `json:"version"`
	EmbedModel string    `json:"embed_model"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	BuiltAt    time.Time `json:"built_at"`
}

type chunkRecord struct {
	ID       string               `json:"id"`
	Text     string               `json:"text"`
	Vector   []float32            `json:"vector"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}
