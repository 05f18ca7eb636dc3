package diskindex

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// Store is the loaded index: all chunks and vectors held in memory,
// immutable after Open. Search is brute-force cosine similarity, which is
// plenty for a single course's materials.
type Store struct {
	dir      string
	manifest Manifest

	chunks  []domain.DocumentChunk
	vectors [][]float32
	norms   []float64
}

// Open loads the persisted index from dir. Any missing or corrupt artifact
// surfaces as ErrIndexUnavailable.
func Open(dir string) (*Store, error) {
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "read manifest", err)
	}
	if manifest.Version != formatVersion {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "check manifest",
			fmt.Errorf("unsupported index version %d", manifest.Version))
	}

	f, err := os.Open(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "open chunks", err)
	}
	defer f.Close()

	store := &Store{dir: dir, manifest: manifest}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record chunkRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, "decode chunk",
				fmt.Errorf("line %d: %w", line, err))
		}
		if len(record.Vector) != manifest.Dimension {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, "check chunk",
				fmt.Errorf("line %d: vector dimension %d, manifest says %d", line, len(record.Vector), manifest.Dimension))
		}
		store.chunks = append(store.chunks, domain.DocumentChunk{
			ID:       record.ID,
			Text:     record.Text,
			Metadata: record.Metadata,
		})
		store.vectors = append(store.vectors, record.Vector)
		store.norms = append(store.norms, vectorNorm(record.Vector))
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "scan chunks", err)
	}
	if len(store.chunks) != manifest.ChunkCount {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "check chunks",
			fmt.Errorf("found %d chunks, manifest says %d", len(store.chunks), manifest.ChunkCount))
	}

	return store, nil
}

func readManifest(dir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func (s *Store) Len() int           { return len(s.chunks) }
func (s *Store) Dimension() int     { return s.manifest.Dimension }
func (s *Store) Manifest() Manifest { return s.manifest }

// Search returns up to topK chunks ranked by descending cosine similarity.
// Equal scores keep index order; the stable sort is deliberate.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "top_k must be positive", nil)
	}
	if len(queryVector) != s.manifest.Dimension {
		return nil, fmt.Errorf("query vector dimension %d, index dimension %d", len(queryVector), s.manifest.Dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryNorm := vectorNorm(queryVector)
	scores := make([]float64, len(s.vectors))
	for i, vector := range s.vectors {
		scores[i] = cosine(queryVector, vector, queryNorm, s.norms[i])
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	out := make([]domain.RetrievedChunk, 0, topK)
	for _, idx := range order[:topK] {
		chunk := s.chunks[idx]
		out = append(out, domain.RetrievedChunk{
			ID:       chunk.ID,
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
			Score:    scores[idx],
		})
	}
	return out, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
