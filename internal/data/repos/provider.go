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

type ProviderRepo interface {
	Create(dbc dbctx.Context, row *domain.Provider) (*domain.Provider, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Provider, error)
	// GetActive returns the single active provider, or ErrNotFound when no
	// provider has been activated yet.
	GetActive(dbc dbctx.Context) (*domain.Provider, error)
	List(dbc dbctx.Context) ([]*domain.Provider, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Activate marks one provider active and deactivates every other row in
	// the same transaction.
	Activate(dbc dbctx.Context, id uuid.UUID) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type providerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProviderRepo(db *gorm.DB, log *logger.Logger) ProviderRepo {
	return &providerRepo{db: db, log: log.With("repo", "ProviderRepo")}
}

func (r *providerRepo) Create(dbc dbctx.Context, row *domain.Provider) (*domain.Provider, error) {
	if row == nil {
		return nil, fmt.Errorf("missing provider")
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

func (r *providerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Provider, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing provider_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Provider
	if err := txx.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *providerRepo) GetActive(dbc dbctx.Context) (*domain.Provider, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Provider
	if err := txx.WithContext(dbc.Ctx).First(&out, "is_active = ?", true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *providerRepo) List(dbc dbctx.Context) ([]*domain.Provider, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.Provider
	if err := txx.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *providerRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing provider_id")
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
		Model(&domain.Provider{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *providerRepo) Activate(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing provider_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Provider{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_active": true, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ErrNotFound
		}
		return tx.Model(&domain.Provider{}).
			Where("id <> ?", id).
			Update("is_active", false).Error
	})
}

func (r *providerRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing provider_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Delete(&domain.Provider{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
