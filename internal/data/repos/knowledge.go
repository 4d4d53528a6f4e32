package repos

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	pkgerrors "github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type KnowledgeBaseRepo interface {
	Create(dbc dbctx.Context, row *domain.KnowledgeBase) (*domain.KnowledgeBase, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.KnowledgeBase, error)
	List(dbc dbctx.Context) ([]*domain.KnowledgeBase, error)
	CountChunks(dbc dbctx.Context, id uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type KBChunkRepo interface {
	Create(dbc dbctx.Context, rows []*domain.KBChunk) ([]*domain.KBChunk, error)
	ListByKnowledgeBase(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error)
	// ListByKnowledgeBases returns every chunk of the given bases; the caller
	// filters out chunks without embeddings during ranking.
	ListByKnowledgeBases(dbc dbctx.Context, kbIDs []uuid.UUID) ([]*domain.KBChunk, error)
	ListMissingEmbeddings(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error)
	SetEmbedding(dbc dbctx.Context, id uuid.UUID, embedding domain.Vector) error
	Delete(dbc dbctx.Context, kbID, chunkID uuid.UUID) error
}

type knowledgeBaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeBaseRepo(db *gorm.DB, log *logger.Logger) KnowledgeBaseRepo {
	return &knowledgeBaseRepo{db: db, log: log.With("repo", "KnowledgeBaseRepo")}
}

func (r *knowledgeBaseRepo) Create(dbc dbctx.Context, row *domain.KnowledgeBase) (*domain.KnowledgeBase, error) {
	if row == nil {
		return nil, fmt.Errorf("missing knowledge base")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *knowledgeBaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.KnowledgeBase, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing knowledge_base_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.KnowledgeBase
	if err := txx.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *knowledgeBaseRepo) List(dbc dbctx.Context) ([]*domain.KnowledgeBase, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.KnowledgeBase
	if err := txx.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeBaseRepo) CountChunks(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, fmt.Errorf("missing knowledge_base_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.KBChunk{}).
		Where("knowledge_base_id = ?", id).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *knowledgeBaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing knowledge_base_id")
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.KnowledgeBase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *knowledgeBaseRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing knowledge_base_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Delete(&domain.KnowledgeBase{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

type kbChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKBChunkRepo(db *gorm.DB, log *logger.Logger) KBChunkRepo {
	return &kbChunkRepo{db: db, log: log.With("repo", "KBChunkRepo")}
}

func (r *kbChunkRepo) Create(dbc dbctx.Context, rows []*domain.KBChunk) ([]*domain.KBChunk, error) {
	if len(rows) == 0 {
		return []*domain.KBChunk{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	// Chunk text is large; keep insert batches small.
	const batchSize = 100
	if err := txx.WithContext(dbc.Ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *kbChunkRepo) ListByKnowledgeBase(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error) {
	if kbID == uuid.Nil {
		return nil, fmt.Errorf("missing knowledge_base_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.KBChunk
	if err := txx.WithContext(dbc.Ctx).
		Where("knowledge_base_id = ?", kbID).
		Order("source_filename, chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *kbChunkRepo) ListByKnowledgeBases(dbc dbctx.Context, kbIDs []uuid.UUID) ([]*domain.KBChunk, error) {
	if len(kbIDs) == 0 {
		return []*domain.KBChunk{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.KBChunk
	if err := txx.WithContext(dbc.Ctx).
		Where("knowledge_base_id IN ?", kbIDs).
		Order("chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *kbChunkRepo) ListMissingEmbeddings(dbc dbctx.Context, kbID uuid.UUID) ([]*domain.KBChunk, error) {
	if kbID == uuid.Nil {
		return nil, fmt.Errorf("missing knowledge_base_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.KBChunk
	if err := txx.WithContext(dbc.Ctx).
		Where("knowledge_base_id = ? AND embedding IS NULL", kbID).
		Order("chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *kbChunkRepo) SetEmbedding(dbc dbctx.Context, id uuid.UUID, embedding domain.Vector) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing chunk_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.KBChunk{}).
		Where("id = ?", id).
		Update("embedding", embedding).Error
}

func (r *kbChunkRepo) Delete(dbc dbctx.Context, kbID, chunkID uuid.UUID) error {
	if kbID == uuid.Nil || chunkID == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Delete(&domain.KBChunk{}, "id = ? AND knowledge_base_id = ?", chunkID, kbID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
