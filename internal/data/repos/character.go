package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	pkgerrors "github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type CharacterRepo interface {
	Create(dbc dbctx.Context, row *domain.Character) (*domain.Character, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Character, error)
	List(dbc dbctx.Context) ([]*domain.Character, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type characterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCharacterRepo(db *gorm.DB, log *logger.Logger) CharacterRepo {
	return &characterRepo{db: db, log: log.With("repo", "CharacterRepo")}
}

func (r *characterRepo) Create(dbc dbctx.Context, row *domain.Character) (*domain.Character, error) {
	if row == nil {
		return nil, fmt.Errorf("missing character")
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

func (r *characterRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Character, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing character_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Character
	if err := txx.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *characterRepo) List(dbc dbctx.Context) ([]*domain.Character, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.Character
	if err := txx.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *characterRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing character_id")
	}
	if len(updates) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.Character{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *characterRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing character_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Delete(&domain.Character{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
