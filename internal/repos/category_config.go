package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type CategoryConfigRepo interface {
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.CategoryConfig, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CategoryConfig, error)
	EnsureDefaults(ctx context.Context, tx *gorm.DB, slugs []string) error
}

type categoryConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryConfigRepo(db *gorm.DB, baseLog *logger.Logger) CategoryConfigRepo {
	return &categoryConfigRepo{db: db, log: baseLog.With("repo", "CategoryConfigRepo")}
}

func (r *categoryConfigRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *categoryConfigRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.CategoryConfig, error) {
	var cc types.CategoryConfig
	err := r.conn(tx).WithContext(ctx).Where("slug = ?", slug).First(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

func (r *categoryConfigRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CategoryConfig, error) {
	var out []*types.CategoryConfig
	if err := r.conn(tx).WithContext(ctx).Order("slug ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureDefaults creates a row with default limits for any slug that has none,
// so a fresh database can run ingestion without manual seeding.
func (r *categoryConfigRepo) EnsureDefaults(ctx context.Context, tx *gorm.DB, slugs []string) error {
	for _, slug := range slugs {
		existing, err := r.GetBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		cc := &types.CategoryConfig{
			Slug:                   slug,
			MaxActive:              30,
			MaxStandby:             60,
			MaxNewPerDay:           10,
			MinScoreDeltaToReplace: 500,
			EliteMinSold:           200,
			EliteMaxPrice:          500,
		}
		if err := r.conn(tx).WithContext(ctx).Create(cc).Error; err != nil {
			return err
		}
		r.log.Info("Created default category config", "slug", slug)
	}
	return nil
}
