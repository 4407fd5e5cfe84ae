package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type PriceMismatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, mc *types.PriceMismatchCase) (*types.PriceMismatchCase, error)
	GetOpenByProductID(ctx context.Context, tx *gorm.DB, productID uint) (*types.PriceMismatchCase, error)
	ListOpen(ctx context.Context, tx *gorm.DB) ([]*types.PriceMismatchCase, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status string, afterID uint, limit int) ([]*types.PriceMismatchCase, error)
	CountOpenCriticalOnActive(ctx context.Context, tx *gorm.DB) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
}

type priceMismatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriceMismatchRepo(db *gorm.DB, baseLog *logger.Logger) PriceMismatchRepo {
	return &priceMismatchRepo{db: db, log: baseLog.With("repo", "PriceMismatchRepo")}
}

func (r *priceMismatchRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *priceMismatchRepo) Create(ctx context.Context, tx *gorm.DB, mc *types.PriceMismatchCase) (*types.PriceMismatchCase, error) {
	if err := r.conn(tx).WithContext(ctx).Create(mc).Error; err != nil {
		return nil, err
	}
	return mc, nil
}

func (r *priceMismatchRepo) GetOpenByProductID(ctx context.Context, tx *gorm.DB, productID uint) (*types.PriceMismatchCase, error) {
	var mc types.PriceMismatchCase
	err := r.conn(tx).WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, types.MismatchOpen).
		First(&mc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

func (r *priceMismatchRepo) ListOpen(ctx context.Context, tx *gorm.DB) ([]*types.PriceMismatchCase, error) {
	var out []*types.PriceMismatchCase
	if err := r.conn(tx).WithContext(ctx).
		Where("status = ?", types.MismatchOpen).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *priceMismatchRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status string, afterID uint, limit int) ([]*types.PriceMismatchCase, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	q := r.conn(tx).WithContext(ctx).Where("id > ?", afterID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.PriceMismatchCase
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *priceMismatchRepo) CountOpenCriticalOnActive(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&types.PriceMismatchCase{}).
		Joins("JOIN products ON products.id = price_mismatch_cases.product_id").
		Where("price_mismatch_cases.status = ? AND price_mismatch_cases.severity = ? AND products.is_active = ?",
			types.MismatchOpen, types.MismatchSeverityCritical, true).
		Count(&count).Error
	return count, err
}

func (r *priceMismatchRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Model(&types.PriceMismatchCase{}).
		Where("id = ?", id).
		Updates(updates).Error
}
