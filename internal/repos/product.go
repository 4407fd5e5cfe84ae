package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type ProductRepo interface {
	Create(ctx context.Context, tx *gorm.DB, product *types.Product) (*types.Product, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.Product, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.Product, error)
	GetByCanonicalKey(ctx context.Context, tx *gorm.DB, key string) ([]*types.Product, error)
	ListByCategory(ctx context.Context, tx *gorm.DB, categorySlug, status string) ([]*types.Product, error)
	ListActiveHealthy(ctx context.Context, tx *gorm.DB) ([]*types.Product, error)
	ListPage(ctx context.Context, tx *gorm.DB, filter ProductFilter) ([]*types.Product, error)
	CountActiveByCategory(ctx context.Context, tx *gorm.DB, categorySlug string) (int64, error)
	CountCreatedSince(ctx context.Context, tx *gorm.DB, categorySlug string, since time.Time) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
}

type ProductFilter struct {
	CategorySlug string
	Status       string
	Health       string
	AfterID      uint
	Limit        int
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *productRepo) Create(ctx context.Context, tx *gorm.DB, product *types.Product) (*types.Product, error) {
	if err := r.conn(tx).WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.Product, error) {
	var p types.Product
	err := r.conn(tx).WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.Product, error) {
	if externalID == "" {
		return nil, nil
	}
	var p types.Product
	err := r.conn(tx).WithContext(ctx).Where("external_id = ?", externalID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByCanonicalKey(ctx context.Context, tx *gorm.DB, key string) ([]*types.Product, error) {
	var out []*types.Product
	if key == "" {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("canonical_key = ?", key).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) ListByCategory(ctx context.Context, tx *gorm.DB, categorySlug, status string) ([]*types.Product, error) {
	var out []*types.Product
	q := r.conn(tx).WithContext(ctx).Where("category_slug = ?", categorySlug)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) ListActiveHealthy(ctx context.Context, tx *gorm.DB) ([]*types.Product, error) {
	var out []*types.Product
	if err := r.conn(tx).WithContext(ctx).
		Where("is_active = ? AND data_health_status = ?", true, types.HealthHealthy).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) ListPage(ctx context.Context, tx *gorm.DB, filter ProductFilter) ([]*types.Product, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	q := r.conn(tx).WithContext(ctx).Where("id > ?", filter.AfterID)
	if filter.CategorySlug != "" {
		q = q.Where("category_slug = ?", filter.CategorySlug)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Health != "" {
		q = q.Where("data_health_status = ?", filter.Health)
	}
	var out []*types.Product
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) CountActiveByCategory(ctx context.Context, tx *gorm.DB, categorySlug string) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&types.Product{}).
		Where("category_slug = ? AND is_active = ?", categorySlug, true).
		Count(&count).Error
	return count, err
}

func (r *productRepo) CountCreatedSince(ctx context.Context, tx *gorm.DB, categorySlug string, since time.Time) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&types.Product{}).
		Where("category_slug = ? AND created_at >= ?", categorySlug, since).
		Count(&count).Error
	return count, err
}

func (r *productRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Model(&types.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}
