package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type ValidationBatchRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ValidationBatch, error)
	ListItemsByStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, applyStatus string) ([]*types.ValidationItem, error)
	UpdateItemFields(ctx context.Context, tx *gorm.DB, itemID uint, updates map[string]interface{}) error
}

type validationBatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationBatchRepo(db *gorm.DB, baseLog *logger.Logger) ValidationBatchRepo {
	return &validationBatchRepo{db: db, log: baseLog.With("repo", "ValidationBatchRepo")}
}

func (r *validationBatchRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *validationBatchRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ValidationBatch, error) {
	var vb types.ValidationBatch
	err := r.conn(tx).WithContext(ctx).Preload("Items").Where("id = ?", id).First(&vb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vb, nil
}

func (r *validationBatchRepo) ListItemsByStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, applyStatus string) ([]*types.ValidationItem, error) {
	var out []*types.ValidationItem
	q := r.conn(tx).WithContext(ctx).Where("batch_id = ?", batchID)
	if applyStatus != "" {
		q = q.Where("apply_status = ?", applyStatus)
	}
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *validationBatchRepo) UpdateItemFields(ctx context.Context, tx *gorm.DB, itemID uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Model(&types.ValidationItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}
