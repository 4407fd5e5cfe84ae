package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

// In-memory repo fakes for service tests. UpdateFields applies only the
// columns the services actually write.

type fakeProductRepo struct {
	byID   map[uint]*types.Product
	nextID uint
}

func newFakeProductRepo(products ...*types.Product) *fakeProductRepo {
	r := &fakeProductRepo{byID: map[uint]*types.Product{}, nextID: 1}
	for _, p := range products {
		if p.ID == 0 {
			p.ID = r.nextID
		}
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.byID[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(_ context.Context, _ *gorm.DB, p *types.Product) (*types.Product, error) {
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	r.byID[p.ID] = p
	return p, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, _ *gorm.DB, id uint) (*types.Product, error) {
	return r.byID[id], nil
}

func (r *fakeProductRepo) GetByExternalID(_ context.Context, _ *gorm.DB, externalID string) (*types.Product, error) {
	for _, p := range r.byID {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) GetByCanonicalKey(_ context.Context, _ *gorm.DB, key string) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range r.byID {
		if p.CanonicalKey == key {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) ListByCategory(_ context.Context, _ *gorm.DB, categorySlug, status string) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range r.byID {
		if p.CategorySlug == categorySlug && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) ListActiveHealthy(_ context.Context, _ *gorm.DB) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range r.byID {
		if p.IsActive && p.DataHealthStatus == types.HealthHealthy {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) ListPage(_ context.Context, _ *gorm.DB, filter repos.ProductFilter) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range r.byID {
		if p.ID <= filter.AfterID {
			continue
		}
		if filter.CategorySlug != "" && p.CategorySlug != filter.CategorySlug {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Health != "" && p.DataHealthStatus != filter.Health {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProductRepo) CountActiveByCategory(_ context.Context, _ *gorm.DB, categorySlug string) (int64, error) {
	var n int64
	for _, p := range r.byID {
		if p.CategorySlug == categorySlug && p.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeProductRepo) CountCreatedSince(_ context.Context, _ *gorm.DB, categorySlug string, since time.Time) (int64, error) {
	var n int64
	for _, p := range r.byID {
		if p.CategorySlug == categorySlug && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeProductRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uint, updates map[string]interface{}) error {
	p, ok := r.byID[id]
	if !ok {
		return nil
	}
	for col, val := range updates {
		switch col {
		case "is_active":
			p.IsActive = val.(bool)
		case "status":
			p.Status = val.(string)
		case "data_health_status":
			p.DataHealthStatus = val.(string)
		case "deactivation_reason":
			p.DeactivationReason = val.(string)
		case "suspect_price_cycles":
			p.SuspectPriceCycles = val.(int)
		case "fail_count":
			p.FailCount = val.(int)
		case "price":
			p.Price = val.(float64)
		case "original_price":
			p.OriginalPrice = val.(float64)
		case "pix_price":
			p.PixPrice = val.(float64)
		case "last_price_source":
			p.LastPriceSource = val.(string)
		case "previous_price":
			p.PreviousPrice = val.(float64)
		case "previous_price_source":
			p.PreviousPriceSource = val.(string)
		case "previous_price_detected_at":
			t := val.(time.Time)
			p.PreviousPriceDetectedAt = &t
		case "free_shipping":
			p.FreeShipping = val.(bool)
		case "sold_quantity":
			p.SoldQuantity = val.(int)
		case "relevance_score":
			p.RelevanceScore = val.(float64)
		case "affiliate_link":
			p.AffiliateLink = val.(string)
		case "affiliate_verified":
			p.AffiliateVerified = val.(bool)
		case "last_audited_at":
			t := val.(time.Time)
			p.LastAuditedAt = &t
		case "last_price_verified_at":
			t := val.(time.Time)
			p.LastPriceVerifiedAt = &t
		case "last_synced_at":
			t := val.(time.Time)
			p.LastSyncedAt = &t
		}
	}
	return nil
}

type fakeMismatchRepo struct {
	products *fakeProductRepo
	byID     map[uint]*types.PriceMismatchCase
	nextID   uint
}

func newFakeMismatchRepo(products *fakeProductRepo, cases ...*types.PriceMismatchCase) *fakeMismatchRepo {
	r := &fakeMismatchRepo{products: products, byID: map[uint]*types.PriceMismatchCase{}, nextID: 1}
	for _, mc := range cases {
		if mc.ID == 0 {
			mc.ID = r.nextID
		}
		if mc.ID >= r.nextID {
			r.nextID = mc.ID + 1
		}
		r.byID[mc.ID] = mc
	}
	return r
}

func (r *fakeMismatchRepo) Create(_ context.Context, _ *gorm.DB, mc *types.PriceMismatchCase) (*types.PriceMismatchCase, error) {
	mc.ID = r.nextID
	r.nextID++
	mc.CreatedAt = time.Now()
	r.byID[mc.ID] = mc
	return mc, nil
}

func (r *fakeMismatchRepo) GetOpenByProductID(_ context.Context, _ *gorm.DB, productID uint) (*types.PriceMismatchCase, error) {
	for _, mc := range r.sorted() {
		if mc.ProductID == productID && mc.Status == types.MismatchOpen {
			return mc, nil
		}
	}
	return nil, nil
}

func (r *fakeMismatchRepo) ListOpen(_ context.Context, _ *gorm.DB) ([]*types.PriceMismatchCase, error) {
	var out []*types.PriceMismatchCase
	for _, mc := range r.sorted() {
		if mc.Status == types.MismatchOpen {
			out = append(out, mc)
		}
	}
	return out, nil
}

func (r *fakeMismatchRepo) ListByStatus(_ context.Context, _ *gorm.DB, status string, afterID uint, limit int) ([]*types.PriceMismatchCase, error) {
	var out []*types.PriceMismatchCase
	for _, mc := range r.sorted() {
		if mc.ID <= afterID {
			continue
		}
		if status != "" && mc.Status != status {
			continue
		}
		out = append(out, mc)
	}
	return out, nil
}

func (r *fakeMismatchRepo) CountOpenCriticalOnActive(_ context.Context, _ *gorm.DB) (int64, error) {
	var n int64
	for _, mc := range r.byID {
		if mc.Status != types.MismatchOpen || mc.Severity != types.MismatchSeverityCritical {
			continue
		}
		p, _ := r.products.GetByID(context.Background(), nil, mc.ProductID)
		if p != nil && p.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeMismatchRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uint, updates map[string]interface{}) error {
	mc, ok := r.byID[id]
	if !ok {
		return nil
	}
	for col, val := range updates {
		switch col {
		case "status":
			mc.Status = val.(string)
		case "resolution_note":
			mc.ResolutionNote = val.(string)
		case "resolved_at":
			t := val.(time.Time)
			mc.ResolvedAt = &t
		case "site_price":
			mc.SitePrice = val.(float64)
		case "market_price":
			mc.MarketPrice = val.(float64)
		case "delta_abs":
			mc.DeltaAbs = val.(float64)
		case "delta_pct":
			mc.DeltaPct = val.(float64)
		case "severity":
			mc.Severity = val.(string)
		}
	}
	return nil
}

func (r *fakeMismatchRepo) sorted() []*types.PriceMismatchCase {
	out := make([]*types.PriceMismatchCase, 0, len(r.byID))
	for _, mc := range r.byID {
		out = append(out, mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeRunRepo struct {
	byID map[uuid.UUID]*types.ReconcileRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{byID: map[uuid.UUID]*types.ReconcileRun{}}
}

func (r *fakeRunRepo) Create(_ context.Context, _ *gorm.DB, run *types.ReconcileRun) (*types.ReconcileRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now()
	r.byID[run.ID] = run
	return run, nil
}

func (r *fakeRunRepo) UpdateFields(_ context.Context, _ *gorm.DB, id interface{}, updates map[string]interface{}) error {
	run, ok := r.byID[id.(uuid.UUID)]
	if !ok {
		return nil
	}
	for col, val := range updates {
		switch col {
		case "status":
			run.Status = val.(string)
		case "finished_at":
			run.FinishedAt = val.(*time.Time)
		case "cycles":
			run.Cycles = val.(int)
		case "report":
			run.Report = val.(datatypes.JSON)
		case "error":
			run.Error = val.(string)
		}
	}
	return nil
}

func (r *fakeRunRepo) ListRecent(_ context.Context, _ *gorm.DB, kind string, _ int) ([]*types.ReconcileRun, error) {
	var out []*types.ReconcileRun
	for _, run := range r.byID {
		if kind == "" || run.Kind == kind {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type fakeHistoryRepo struct {
	rows []*types.OfferHistory
}

func (r *fakeHistoryRepo) Append(_ context.Context, _ *gorm.DB, row *types.OfferHistory) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeHistoryRepo) ListByExternalID(_ context.Context, _ *gorm.DB, marketplace, externalID string, _ int) ([]*types.OfferHistory, error) {
	var out []*types.OfferHistory
	for _, row := range r.rows {
		if row.Marketplace == marketplace && row.ExternalID == externalID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeRunLock struct {
	busy       bool
	acquireErr error
	acquired   int
	released   int
}

func (l *fakeRunLock) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.busy {
		return false, nil
	}
	l.acquired++
	return true, nil
}

func (l *fakeRunLock) Release(_ context.Context, _ string) error {
	l.released++
	return nil
}
