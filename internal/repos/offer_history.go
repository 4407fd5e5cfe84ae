package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type OfferHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.OfferHistory) error
	ListByExternalID(ctx context.Context, tx *gorm.DB, marketplace, externalID string, limit int) ([]*types.OfferHistory, error)
}

type offerHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfferHistoryRepo(db *gorm.DB, baseLog *logger.Logger) OfferHistoryRepo {
	return &offerHistoryRepo{db: db, log: baseLog.With("repo", "OfferHistoryRepo")}
}

func (r *offerHistoryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *offerHistoryRepo) Append(ctx context.Context, tx *gorm.DB, row *types.OfferHistory) error {
	return r.conn(tx).WithContext(ctx).Create(row).Error
}

func (r *offerHistoryRepo) ListByExternalID(ctx context.Context, tx *gorm.DB, marketplace, externalID string, limit int) ([]*types.OfferHistory, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var out []*types.OfferHistory
	if err := r.conn(tx).WithContext(ctx).
		Where("marketplace = ? AND external_id = ?", marketplace, externalID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
