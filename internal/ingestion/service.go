package ingestion

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

const (
	// MaxFileSize caps uploaded documents at 10 MB.
	MaxFileSize = 10 * 1024 * 1024

	embedBatchSize   = 32
	embedConcurrency = 4
)

var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// ErrUnsupportedFile covers bad extension, oversize, non-UTF-8, and empty
// uploads; the message carries the specifics.
type ErrUnsupportedFile struct{ Reason string }

func (e *ErrUnsupportedFile) Error() string { return e.Reason }

type ChunkStore interface {
	Create(dbc dbctx.Context, rows []*domain.KBChunk) ([]*domain.KBChunk, error)
	ListMissingEmbeddings(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error)
	SetEmbedding(dbc dbctx.Context, id uuid.UUID, embedding domain.Vector) error
}

type ProviderStore interface {
	GetActive(dbc dbctx.Context) (*domain.Provider, error)
}

// Service runs the upload pipeline: validate, chunk, embed, store. Chunks
// are stored even when embedding is unavailable; the result carries a
// warning and embed-all can backfill later.
type Service struct {
	log       *logger.Logger
	chunks    ChunkStore
	providers ProviderStore
	chunker   *Chunker
	newClient func(p *domain.Provider, cfg llm.Config, log *logger.Logger) (llm.Client, error)
	llmCfg    llm.Config
}

func NewService(log *logger.Logger, chunks ChunkStore, providers ProviderStore, chunker *Chunker, llmCfg llm.Config) *Service {
	if chunker == nil {
		chunker = NewChunker(500, 100, 4.0)
	}
	return &Service{
		log:       log.With("service", "ingestion"),
		chunks:    chunks,
		providers: providers,
		chunker:   chunker,
		newClient: llm.NewClient,
		llmCfg:    llmCfg,
	}
}

// UploadResult reports what an upload produced.
type UploadResult struct {
	Filename       string `json:"filename"`
	ChunksCreated  int    `json:"chunks_created"`
	ChunksEmbedded int    `json:"chunks_embedded"`
	Warning        string `json:"warning,omitempty"`
}

// Upload validates and chunks one document, embeds the chunks through the
// active provider when possible, and stores everything under kbID.
func (s *Service) Upload(ctx context.Context, kbID uuid.UUID, filename string, content []byte) (*UploadResult, error) {
	if filename == "" {
		filename = "unknown.txt"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, &ErrUnsupportedFile{Reason: fmt.Sprintf("unsupported file type %q, supported: .txt, .md", ext)}
	}
	if len(content) > MaxFileSize {
		return nil, &ErrUnsupportedFile{Reason: fmt.Sprintf("file too large, max size %d MB", MaxFileSize/(1024*1024))}
	}
	if !utf8.Valid(content) {
		return nil, &ErrUnsupportedFile{Reason: "file is not valid UTF-8 text"}
	}

	texts := s.chunker.ChunkText(string(content))
	if len(texts) == 0 {
		return nil, &ErrUnsupportedFile{Reason: "file is empty or contains only whitespace"}
	}

	result := &UploadResult{Filename: filename, ChunksCreated: len(texts)}

	embeddings, warning := s.embedTexts(ctx, texts)
	result.Warning = warning

	rows := make([]*domain.KBChunk, len(texts))
	for i, text := range texts {
		rows[i] = &domain.KBChunk{
			KnowledgeBaseID: kbID,
			SourceFilename:  filename,
			ChunkIndex:      i,
			ChunkText:       text,
		}
		if embeddings != nil && i < len(embeddings) && len(embeddings[i]) > 0 {
			rows[i].Embedding = domain.Vector(embeddings[i])
			result.ChunksEmbedded++
		}
	}

	if _, err := s.chunks.Create(dbctx.New(ctx), rows); err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedAll backfills embeddings for every chunk in kbID that is missing one.
// Unlike Upload it requires an active provider.
func (s *Service) EmbedAll(ctx context.Context, kbID uuid.UUID) (*UploadResult, error) {
	provider, err := s.providers.GetActive(dbctx.New(ctx))
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.Newf(errors.KindNoActiveProvider, "no active provider configured")
		}
		return nil, err
	}

	missing, err := s.chunks.ListMissingEmbeddings(dbctx.New(ctx), kbID)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return &UploadResult{}, nil
	}

	client, err := s.newClient(provider, s.llmCfg, s.log)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(missing))
	for i, c := range missing {
		texts[i] = c.ChunkText
	}

	embeddings, err := s.embedBatched(ctx, client, texts)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{}
	for i, c := range missing {
		if i >= len(embeddings) || len(embeddings[i]) == 0 {
			continue
		}
		if err := s.chunks.SetEmbedding(dbctx.New(ctx), c.ID, domain.Vector(embeddings[i])); err != nil {
			return result, err
		}
		result.ChunksEmbedded++
	}
	return result, nil
}

// embedTexts is the best-effort variant used by Upload: no active provider
// or a failed embedding call produces a warning, not an error.
func (s *Service) embedTexts(ctx context.Context, texts []string) ([][]float32, string) {
	provider, err := s.providers.GetActive(dbctx.New(ctx))
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, "no active provider configured, chunks stored without embeddings"
		}
		return nil, fmt.Sprintf("provider lookup failed: %v", err)
	}
	if !provider.SupportsEmbedding() {
		return nil, "active provider has no embedding model, chunks stored without embeddings"
	}

	client, err := s.newClient(provider, s.llmCfg, s.log)
	if err != nil {
		return nil, fmt.Sprintf("provider client failed: %v", err)
	}

	embeddings, err := s.embedBatched(ctx, client, texts)
	if err != nil {
		s.log.Warn("embedding during upload failed", "error", err.Error())
		return nil, fmt.Sprintf("embedding failed: %v", err)
	}
	return embeddings, ""
}

// embedBatched embeds texts in fixed-size batches with bounded concurrency,
// preserving input order.
func (s *Service) embedBatched(ctx context.Context, client llm.Client, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := client.CreateEmbedding(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return errors.Newf(errors.KindProviderProtocol, "embedding batch returned %d vectors for %d inputs", len(vectors), end-start)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
