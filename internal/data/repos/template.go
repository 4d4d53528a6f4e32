package repos

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	pkgerrors "github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type PromptTemplateRepo interface {
	// SeedDefaults inserts any of the given templates whose key is not
	// present yet. Existing rows, including custom overrides, are untouched.
	SeedDefaults(dbc dbctx.Context, defaults []*domain.PromptTemplate) error
	GetByKey(dbc dbctx.Context, key string) (*domain.PromptTemplate, error)
	List(dbc dbctx.Context) ([]*domain.PromptTemplate, error)
	// SetCustom stores the override; nil clears it back to the default.
	SetCustom(dbc dbctx.Context, key string, custom *string) error
}

type promptTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptTemplateRepo(db *gorm.DB, log *logger.Logger) PromptTemplateRepo {
	return &promptTemplateRepo{db: db, log: log.With("repo", "PromptTemplateRepo")}
}

func (r *promptTemplateRepo) SeedDefaults(dbc dbctx.Context, defaults []*domain.PromptTemplate) error {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		for _, tpl := range defaults {
			var existing domain.PromptTemplate
			err := tx.First(&existing, "key = ?", tpl.Key).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(tpl).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *promptTemplateRepo) GetByKey(dbc dbctx.Context, key string) (*domain.PromptTemplate, error) {
	if key == "" {
		return nil, fmt.Errorf("missing template key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.PromptTemplate
	if err := txx.WithContext(dbc.Ctx).First(&out, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *promptTemplateRepo) List(dbc dbctx.Context) ([]*domain.PromptTemplate, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.PromptTemplate
	if err := txx.WithContext(dbc.Ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *promptTemplateRepo) SetCustom(dbc dbctx.Context, key string, custom *string) error {
	if key == "" {
		return fmt.Errorf("missing template key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&domain.PromptTemplate{}).
		Where("key = ?", key).
		Update("custom_prompt", custom)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
