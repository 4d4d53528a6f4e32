// Package retrieval ranks knowledge chunks against a query embedding by
// cosine similarity.
package retrieval

import (
	"math"
	"sort"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
)

// Scored pairs a chunk with its similarity score.
type Scored struct {
	Chunk *domain.KBChunk
	Score float64
}

// CosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 for zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores candidates against query, drops those below threshold, orders
// by descending score with ties broken by ascending chunk position then id,
// and truncates to topK. Chunks without an embedding are skipped. A chunk
// whose embedding dimension differs from the query's fails the whole call
// with an EmbeddingDimensionMismatch kind.
func Rank(query []float32, candidates []*domain.KBChunk, threshold float64, topK int) ([]Scored, error) {
	if len(query) == 0 || len(candidates) == 0 || topK <= 0 {
		return nil, nil
	}
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasEmbedding() {
			continue
		}
		if len(c.Embedding) != len(query) {
			return nil, errors.Newf(errors.KindEmbeddingDimensionMismatch,
				"chunk %s has embedding dimension %d, query has %d", c.ID, len(c.Embedding), len(query))
		}
		score := CosineSimilarity(query, c.Embedding)
		if score < threshold {
			continue
		}
		scored = append(scored, Scored{Chunk: c, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.ChunkIndex != scored[j].Chunk.ChunkIndex {
			return scored[i].Chunk.ChunkIndex < scored[j].Chunk.ChunkIndex
		}
		return scored[i].Chunk.ID.String() < scored[j].Chunk.ID.String()
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
