package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type ReconcileRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.ReconcileRun) (*types.ReconcileRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id interface{}, updates map[string]interface{}) error
	ListRecent(ctx context.Context, tx *gorm.DB, kind string, limit int) ([]*types.ReconcileRun, error)
}

type reconcileRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReconcileRunRepo(db *gorm.DB, baseLog *logger.Logger) ReconcileRunRepo {
	return &reconcileRunRepo{db: db, log: baseLog.With("repo", "ReconcileRunRepo")}
}

func (r *reconcileRunRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *reconcileRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ReconcileRun) (*types.ReconcileRun, error) {
	if err := r.conn(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *reconcileRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id interface{}, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Model(&types.ReconcileRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *reconcileRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, kind string, limit int) ([]*types.ReconcileRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.conn(tx).WithContext(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []*types.ReconcileRun
	if err := q.Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
