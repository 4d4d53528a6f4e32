package ingestion

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

type fakeChunkStore struct {
	created  []*domain.KBChunk
	missing  []*domain.KBChunk
	embedded map[uuid.UUID]domain.Vector
}

func (f *fakeChunkStore) Create(dbc dbctx.Context, rows []*domain.KBChunk) ([]*domain.KBChunk, error) {
	f.created = append(f.created, rows...)
	return rows, nil
}

func (f *fakeChunkStore) ListMissingEmbeddings(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error) {
	return f.missing, nil
}

func (f *fakeChunkStore) SetEmbedding(dbc dbctx.Context, id uuid.UUID, embedding domain.Vector) error {
	if f.embedded == nil {
		f.embedded = map[uuid.UUID]domain.Vector{}
	}
	f.embedded[id] = embedding
	return nil
}

type fakeProviderStore struct{ provider *domain.Provider }

func (f *fakeProviderStore) GetActive(dbc dbctx.Context) (*domain.Provider, error) {
	if f.provider == nil {
		return nil, errors.ErrNotFound
	}
	return f.provider, nil
}

type stubEmbedder struct {
	dim  int
	fail error
}

func (s *stubEmbedder) CreateChatCompletion(ctx context.Context, segments []prompt.Segment) (llm.Completion, error) {
	return llm.Completion{}, errors.Newf(errors.KindProviderProtocol, "not a chat client")
}

func (s *stubEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dim)
		vec[0] = float32(i + 1)
		out[i] = vec
	}
	return out, nil
}

func newTestService(t *testing.T, chunks *fakeChunkStore, providers *fakeProviderStore, client llm.Client) *Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	svc := NewService(log, chunks, providers, NewChunker(25, 5, 4.0), llm.Config{})
	svc.newClient = func(p *domain.Provider, cfg llm.Config, log *logger.Logger) (llm.Client, error) {
		return client, nil
	}
	return svc
}

func embeddingProvider() *domain.Provider {
	return &domain.Provider{
		ID:               uuid.New(),
		Protocol:         domain.ProtocolOpenAICompatible,
		ChatModelID:      "m",
		EmbeddingModelID: "e",
		IsActive:         true,
	}
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeChunkStore{}, &fakeProviderStore{}, nil)
	kbID := uuid.New()

	cases := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"bad extension", "notes.pdf", []byte("text")},
		{"oversize", "big.txt", make([]byte, MaxFileSize+1)},
		{"invalid utf8", "bin.txt", []byte{0xff, 0xfe, 0xfd}},
		{"empty", "blank.txt", []byte("   \n  ")},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Upload(context.Background(), kbID, tc.filename, tc.content)
			var bad *ErrUnsupportedFile
			if !stderrors.As(err, &bad) {
				t.Fatalf("expected ErrUnsupportedFile, got %v", err)
			}
		})
	}
}

func TestUploadWithoutProviderStoresUnembedded(t *testing.T) {
	t.Parallel()

	chunks := &fakeChunkStore{}
	svc := newTestService(t, chunks, &fakeProviderStore{}, nil)

	result, err := svc.Upload(context.Background(), uuid.New(), "lore.txt", []byte(strings.Repeat("sentence here. ", 30)))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.ChunksCreated == 0 {
		t.Fatalf("no chunks created")
	}
	if result.ChunksEmbedded != 0 {
		t.Fatalf("chunks should not be embedded without a provider, got %d", result.ChunksEmbedded)
	}
	if result.Warning == "" {
		t.Fatalf("expected a warning about missing provider")
	}
	if len(chunks.created) != result.ChunksCreated {
		t.Fatalf("persisted %d chunks, reported %d", len(chunks.created), result.ChunksCreated)
	}
	for i, c := range chunks.created {
		if c.ChunkIndex != i {
			t.Fatalf("chunk index out of order: got=%d want=%d", c.ChunkIndex, i)
		}
		if c.HasEmbedding() {
			t.Fatalf("chunk %d unexpectedly embedded", i)
		}
	}
}

func TestUploadEmbedsWithActiveProvider(t *testing.T) {
	t.Parallel()

	chunks := &fakeChunkStore{}
	providers := &fakeProviderStore{provider: embeddingProvider()}
	svc := newTestService(t, chunks, providers, &stubEmbedder{dim: 3})

	result, err := svc.Upload(context.Background(), uuid.New(), "lore.md", []byte(strings.Repeat("sentence here. ", 30)))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %q", result.Warning)
	}
	if result.ChunksEmbedded != result.ChunksCreated {
		t.Fatalf("embedded %d of %d chunks", result.ChunksEmbedded, result.ChunksCreated)
	}
	for i, c := range chunks.created {
		if !c.HasEmbedding() {
			t.Fatalf("chunk %d missing embedding", i)
		}
	}
}

func TestUploadEmbedFailureDowngradesToWarning(t *testing.T) {
	t.Parallel()

	chunks := &fakeChunkStore{}
	providers := &fakeProviderStore{provider: embeddingProvider()}
	client := &stubEmbedder{fail: errors.Newf(errors.KindProviderTimeout, "deadline exceeded")}
	svc := newTestService(t, chunks, providers, client)

	result, err := svc.Upload(context.Background(), uuid.New(), "lore.txt", []byte("short document"))
	if err != nil {
		t.Fatalf("embed failure should not fail the upload: %v", err)
	}
	if result.Warning == "" {
		t.Fatalf("expected a warning about the embed failure")
	}
	if result.ChunksEmbedded != 0 {
		t.Fatalf("no chunk should be embedded, got %d", result.ChunksEmbedded)
	}
	if len(chunks.created) != result.ChunksCreated || result.ChunksCreated == 0 {
		t.Fatalf("chunks should still be stored: created=%d reported=%d", len(chunks.created), result.ChunksCreated)
	}
}

func TestEmbedAllRequiresActiveProvider(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeChunkStore{}, &fakeProviderStore{}, nil)
	_, err := svc.EmbedAll(context.Background(), uuid.New())
	if !errors.IsKind(err, errors.KindNoActiveProvider) {
		t.Fatalf("expected no_active_provider, got %v", err)
	}
}

func TestEmbedAllBackfillsMissing(t *testing.T) {
	t.Parallel()

	missing := []*domain.KBChunk{
		{ID: uuid.New(), ChunkIndex: 0, ChunkText: "first"},
		{ID: uuid.New(), ChunkIndex: 1, ChunkText: "second"},
	}
	chunks := &fakeChunkStore{missing: missing}
	providers := &fakeProviderStore{provider: embeddingProvider()}
	svc := newTestService(t, chunks, providers, &stubEmbedder{dim: 3})

	result, err := svc.EmbedAll(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("EmbedAll failed: %v", err)
	}
	if result.ChunksEmbedded != 2 {
		t.Fatalf("embedded count: got=%d want=2", result.ChunksEmbedded)
	}
	for _, c := range missing {
		if _, ok := chunks.embedded[c.ID]; !ok {
			t.Fatalf("chunk %s not backfilled", c.ID)
		}
	}
	// Order preserved: the stub encodes the batch position in the vector.
	if chunks.embedded[missing[0].ID][0] != 1 || chunks.embedded[missing[1].ID][0] != 2 {
		t.Fatalf("embedding order not preserved: %v %v", chunks.embedded[missing[0].ID], chunks.embedded[missing[1].ID])
	}
}

func TestEmbedAllNothingMissing(t *testing.T) {
	t.Parallel()

	chunks := &fakeChunkStore{}
	providers := &fakeProviderStore{provider: embeddingProvider()}
	svc := newTestService(t, chunks, providers, &stubEmbedder{dim: 3})

	result, err := svc.EmbedAll(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("EmbedAll failed: %v", err)
	}
	if result.ChunksEmbedded != 0 {
		t.Fatalf("expected no work, got %d embedded", result.ChunksEmbedded)
	}
}
