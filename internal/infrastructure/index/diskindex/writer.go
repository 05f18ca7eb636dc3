package diskindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// Write persists chunks and their vectors to dir, replacing any previous
// index atomically enough for an offline rebuild: the manifest is written
// last, so a crash mid-write leaves an index that fails to open rather than
// one that half-loads.
func Write(dir, embedModel string, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return fmt.Errorf("refusing to write empty index")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}
	dimension := len(vectors[0])
	for i, vector := range vectors {
		if len(vector) != dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vector), dimension)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, manifestFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old manifest: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, chunksFile))
	if err != nil {
		return fmt.Errorf("create chunks file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, chunk := range chunks {
		record := chunkRecord{
			ID:       chunk.ID,
			Text:     chunk.Text,
			Vector:   vectors[i],
			Metadata: chunk.Metadata,
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode chunk %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush chunks: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync chunks: %w", err)
	}

	manifest := Manifest{
		Version:    formatVersion,
		EmbedModel: embedModel,
		Dimension:  dimension,
		ChunkCount: len(chunks),
		BuiltAt:    time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
