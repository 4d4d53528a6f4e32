package retrieval

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
)

func chunk(index int, embedding []float32) *domain.KBChunk {
	return &domain.KBChunk{
		ID:         uuid.New(),
		ChunkIndex: index,
		ChunkText:  "chunk",
		Embedding:  domain.Vector(embedding),
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: got=%f want=1", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: got=%f want=0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector: got=%f want=0", got)
	}
}

func TestRankFiltersBelowThreshold(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	// Scores against the query: 1.0, ~0.6, ~0.3.
	candidates := []*domain.KBChunk{
		chunk(0, []float32{1, 0}),
		chunk(1, []float32{0.6, 0.8}),
		chunk(2, []float32{0.3, float32(math.Sqrt(1 - 0.09))}),
	}

	got, err := Rank(query, candidates, 0.5, 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
	if got[0].Chunk.ChunkIndex != 0 || got[1].Chunk.ChunkIndex != 1 {
		t.Fatalf("wrong order: [%d %d]", got[0].Chunk.ChunkIndex, got[1].Chunk.ChunkIndex)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("not descending by score: %f then %f", got[0].Score, got[1].Score)
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []*domain.KBChunk{
		chunk(0, []float32{1, 0}),
		chunk(1, []float32{0.9, float32(math.Sqrt(1 - 0.81))}),
		chunk(2, []float32{0.8, 0.6}),
	}

	got, err := Rank(query, candidates, 0, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected top-2, got %d", len(got))
	}
}

func TestRankTieBreaksByChunkIndex(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	// Identical embeddings, identical scores; the later chunk listed first.
	candidates := []*domain.KBChunk{
		chunk(5, []float32{1, 0}),
		chunk(3, []float32{1, 0}),
	}

	got, err := Rank(query, candidates, 0, 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if got[0].Chunk.ChunkIndex != 3 || got[1].Chunk.ChunkIndex != 5 {
		t.Fatalf("expected tie-break [3 5], got [%d %d]", got[0].Chunk.ChunkIndex, got[1].Chunk.ChunkIndex)
	}
}

func TestRankSkipsChunksWithoutEmbedding(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []*domain.KBChunk{
		chunk(0, nil),
		chunk(1, []float32{1, 0}),
	}

	got, err := Rank(query, candidates, 0, 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ChunkIndex != 1 {
		t.Fatalf("expected only the embedded chunk, got %d results", len(got))
	}
}

func TestRankDimensionMismatch(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []*domain.KBChunk{
		chunk(0, []float32{1, 0, 0}),
	}

	_, err := Rank(query, candidates, 0, 5)
	if !errors.IsKind(err, errors.KindEmbeddingDimensionMismatch) {
		t.Fatalf("expected embedding_dimension_mismatch, got %v", err)
	}
}

func TestRankEmptyInputs(t *testing.T) {
	t.Parallel()

	if got, err := Rank(nil, []*domain.KBChunk{chunk(0, []float32{1})}, 0, 5); err != nil || got != nil {
		t.Fatalf("nil query should return empty: got=%v err=%v", got, err)
	}
	if got, err := Rank([]float32{1}, nil, 0, 5); err != nil || got != nil {
		t.Fatalf("no candidates should return empty: got=%v err=%v", got, err)
	}
}
