package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/meli"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/redisq"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type ReconcilerConfig struct {
	MaxCycles    int
	MaxFailCount int
	RunTimeout   time.Duration
	LockTTL      time.Duration
	// CriticalRecheckWait is the pause between re-audit cycles, giving the
	// marketplace a chance to settle before the next pass.
	CriticalRecheckWait time.Duration
	FetchConcurrency    int
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		MaxCycles:           3,
		MaxFailCount:        3,
		RunTimeout:          20 * time.Minute,
		LockTTL:             30 * time.Minute,
		CriticalRecheckWait: 2 * time.Second,
		FetchConcurrency:    8,
	}
}

// runLocker is the exclusive run lock the orchestrator holds for one batch.
type runLocker interface {
	Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, holder string) error
}

type cycleReport struct {
	Cycle        int            `json:"cycle"`
	Synced       int            `json:"synced"`
	FetchFailed  int            `json:"fetch_failed"`
	Suspect      int            `json:"suspect"`
	Audit        AuditReport    `json:"audit"`
	Guards       map[string]int `json:"guards"`
	Transitions  []Transition   `json:"transitions,omitempty"`
	OpenCritical int64          `json:"open_critical"`
}

type runReport struct {
	Signals []redisq.PriceSyncSignal `json:"signals,omitempty"`
	Cycles  []cycleReport            `json:"cycles"`
	Notes   []string                 `json:"notes,omitempty"`
}

// Reconciler drives the price reconciliation batch: refresh every active
// listing from the marketplace, audit the refreshed prices, run the guard
// pipeline, and repeat until no active product holds an open critical
// mismatch or the cycle budget runs out.
type Reconciler struct {
	log        *logger.Logger
	products   repos.ProductRepo
	mismatches repos.PriceMismatchRepo
	runs       repos.ReconcileRunRepo
	history    repos.OfferHistoryRepo
	market     *meli.Client
	lock       runLocker
	queue      *redisq.PriceSyncQueue
	auditor    *PriceAuditor
	guardCfg   GuardConfig
	cfg        ReconcilerConfig
}

func NewReconciler(
	baseLog *logger.Logger,
	products repos.ProductRepo,
	mismatches repos.PriceMismatchRepo,
	runs repos.ReconcileRunRepo,
	history repos.OfferHistoryRepo,
	market *meli.Client,
	lock *redisq.RunLock,
	queue *redisq.PriceSyncQueue,
	auditor *PriceAuditor,
	guardCfg GuardConfig,
	cfg ReconcilerConfig,
) *Reconciler {
	var lk runLocker
	if lock != nil {
		lk = lock
	}
	return &Reconciler{
		log:        baseLog.With("service", "Reconciler"),
		products:   products,
		mismatches: mismatches,
		runs:       runs,
		history:    history,
		market:     market,
		lock:       lk,
		queue:      queue,
		auditor:    auditor,
		guardCfg:   guardCfg,
		cfg:        cfg,
	}
}

// Run executes one reconciliation batch. A busy lock is not an error: the run
// is recorded as skipped and the caller moves on.
func (r *Reconciler) Run(ctx context.Context) (*types.ReconcileRun, error) {
	holder := uuid.NewString()
	run := &types.ReconcileRun{
		ID:        uuid.New(),
		Kind:      types.RunKindReconcile,
		Status:    types.RunRunning,
		StartedAt: time.Now(),
	}

	acquired := true
	if r.lock != nil {
		var err error
		acquired, err = r.lock.Acquire(ctx, holder, r.cfg.LockTTL)
		if err != nil {
			now := time.Now()
			run.Status = types.RunFailed
			run.Error = "run lock acquire: " + err.Error()
			run.FinishedAt = &now
			if _, createErr := r.runs.Create(ctx, nil, run); createErr != nil {
				r.log.Error("Failed to record failed run", "error", createErr)
			}
			return run, err
		}
	}
	if !acquired {
		run.Status = types.RunSkippedLocked
		now := time.Now()
		run.FinishedAt = &now
		if _, createErr := r.runs.Create(ctx, nil, run); createErr != nil {
			r.log.Error("Failed to record skipped run", "error", createErr)
		}
		r.log.Info("Reconcile run skipped, lock held by another holder")
		return run, nil
	}
	defer func() {
		if r.lock == nil {
			return
		}
		if releaseErr := r.lock.Release(context.Background(), holder); releaseErr != nil {
			r.log.Warn("Run lock release failed", "error", releaseErr)
		}
	}()

	if _, err := r.runs.Create(ctx, nil, run); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	report := runReport{}
	if r.queue != nil {
		signals, drainErr := r.queue.Drain(runCtx, 100)
		if drainErr != nil {
			r.log.Warn("Price sync queue drain failed", "error", drainErr)
		}
		report.Signals = signals
	}

	runErr := r.cycles(runCtx, &report)

	now := time.Now()
	run.FinishedAt = &now
	run.Cycles = len(report.Cycles)
	run.Status = types.RunCompleted
	if runErr != nil {
		run.Status = types.RunFailed
		run.Error = runErr.Error()
	}
	if raw, marshalErr := json.Marshal(report); marshalErr == nil {
		run.Report = datatypes.JSON(raw)
	}
	updates := map[string]interface{}{
		"status":      run.Status,
		"finished_at": run.FinishedAt,
		"cycles":      run.Cycles,
		"report":      run.Report,
		"error":       run.Error,
	}
	if err := r.runs.UpdateFields(context.Background(), nil, run.ID, updates); err != nil {
		r.log.Error("Failed to finalize run record", "run_id", run.ID, "error", err)
	}
	return run, runErr
}

func (r *Reconciler) cycles(ctx context.Context, report *runReport) error {
	for cycle := 1; cycle <= r.cfg.MaxCycles; cycle++ {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < time.Minute {
			report.Notes = append(report.Notes, "runtime budget reached")
			r.log.Warn("Stopping reconcile early", "reason", "runtime budget reached", "cycle", cycle)
			return nil
		}

		cr := cycleReport{Cycle: cycle}

		observations, err := r.syncActivePrices(ctx, &cr)
		if err != nil {
			return err
		}

		audit, err := r.auditor.Audit(ctx, nil, observations)
		if err != nil {
			return err
		}
		cr.Audit = audit

		if err := r.runGuards(ctx, &cr); err != nil {
			return err
		}

		remaining, err := r.mismatches.CountOpenCriticalOnActive(ctx, nil)
		if err != nil {
			return err
		}
		cr.OpenCritical = remaining
		report.Cycles = append(report.Cycles, cr)
		r.log.Info("Reconcile cycle finished",
			"cycle", cycle,
			"synced", cr.Synced,
			"fetch_failed", cr.FetchFailed,
			"open_critical", remaining)

		if remaining == 0 {
			return nil
		}
		if cycle < r.cfg.MaxCycles && r.cfg.CriticalRecheckWait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.CriticalRecheckWait):
			}
		}
	}
	report.Notes = append(report.Notes, "cycle budget exhausted with open critical cases")
	return nil
}

// syncActivePrices refreshes every active product from the marketplace item
// endpoint and returns the fresh observations for the auditor.
func (r *Reconciler) syncActivePrices(ctx context.Context, cr *cycleReport) ([]PriceObservation, error) {
	var (
		mu           sync.Mutex
		observations []PriceObservation
	)

	afterID := uint(0)
	for {
		page, err := r.products.ListPage(ctx, nil, repos.ProductFilter{
			Status:  types.StatusActive,
			AfterID: afterID,
			Limit:   200,
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.FetchConcurrency)
		for _, p := range page {
			p := p
			g.Go(func() error {
				obs, ok := r.syncOne(gctx, p, cr)
				if ok {
					mu.Lock()
					observations = append(observations, obs)
					mu.Unlock()
				}
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return observations, nil
}

// syncOne fetches one item, resolves its price and writes the refreshed
// fields. Fetch failures count toward the product's fail budget; exceeded
// budget moves it to API_MISSING and off the active set.
func (r *Reconciler) syncOne(ctx context.Context, p *types.Product, cr *cycleReport) (PriceObservation, bool) {
	cand, err := r.market.GetItemDetail(ctx, p.ExternalID)
	if err != nil {
		failCount := p.FailCount + 1
		updates := map[string]interface{}{"fail_count": failCount}
		if failCount >= r.cfg.MaxFailCount {
			updates["data_health_status"] = types.HealthAPIMissing
			updates["is_active"] = false
			updates["status"] = types.StatusStandby
			updates["deactivation_reason"] = "marketplace_item_unreachable"
			r.log.Warn("Item unreachable, parking product",
				"product_id", p.ID, "external_id", p.ExternalID, "fail_count", failCount)
		}
		if updateErr := r.products.UpdateFields(ctx, nil, p.ID, updates); updateErr != nil {
			r.log.Error("Failed to record fetch failure", "product_id", p.ID, "error", updateErr)
		}
		r.countFetchFailure(cr)
		return PriceObservation{}, false
	}

	now := time.Now()
	sitePrice := p.Price
	siteSource := strings.ToLower(p.LastPriceSource)

	in := ResolveInputFromProduct(p)
	in.BasePrice = cand.Price
	in.BaseSource = types.SourceAPI
	in.OriginalPrice = cand.OriginalPrice
	in.OriginalPriceSource = types.SourceAPI
	in.OriginalPriceCheckedAt = &now
	if cand.PixPrice > 0 {
		in.PixPrice = cand.PixPrice
		in.PixPriceSource = cand.PixPriceSource
		if in.PixPriceSource == "" {
			in.PixPriceSource = types.SourceAPI
		}
	}
	info := ResolveFinalPriceInfo(in, now)

	updates := map[string]interface{}{
		"last_synced_at": now,
		"free_shipping":  cand.FreeShipping,
		"sold_quantity":  cand.SoldQuantity,
		"fail_count":     0,
	}

	// A fresh item read only supersedes a price the marketplace fed in the
	// first place. Manual, auth, public and scraped prices are retained and
	// handed to the auditor; the guards decide what happens to divergence.
	applyPrice := sitePrice <= 0 || siteSource == "" || types.IsAPIPriceSource(siteSource)
	if applyPrice {
		if sitePrice > 0 && math.Abs(info.BasePrice-sitePrice) >= 0.01 {
			updates["previous_price"] = sitePrice
			updates["previous_price_source"] = types.SourceHistory
			updates["previous_price_detected_at"] = now
		}
		updates["price"] = info.BasePrice
		updates["original_price"] = info.ListPrice
		updates["pix_price"] = info.PixPrice
		updates["last_price_source"] = types.SourceAPI
		updates["last_price_verified_at"] = now
		if issues := PriceSanityIssues(info.BasePrice, info.PixPrice); len(issues) > 0 {
			updates["data_health_status"] = types.HealthSuspectPrice
			r.countSuspect(cr)
		} else if p.DataHealthStatus == types.HealthSuspectPrice || p.DataHealthStatus == types.HealthAPIMissing {
			updates["data_health_status"] = types.HealthHealthy
		}
	} else {
		if ClassifyPriceDelta(sitePrice, info.BasePrice, r.auditor.thresholds).Severity == "" {
			// Marketplace agrees with the retained price, so it counts as
			// verified this cycle.
			updates["last_price_verified_at"] = now
		}
		if p.DataHealthStatus == types.HealthAPIMissing {
			updates["data_health_status"] = types.HealthHealthy
		}
	}
	if err := r.products.UpdateFields(ctx, nil, p.ID, updates); err != nil {
		r.log.Error("Failed to persist price sync", "product_id", p.ID, "error", err)
		return PriceObservation{}, false
	}

	if err := r.history.Append(ctx, nil, &types.OfferHistory{
		Marketplace: PrimaryMarketplace,
		ExternalID:  p.ExternalID,
		ProductID:   p.ID,
		Price:       info.BasePrice,
		PixPrice:    info.PixPrice,
		Source:      types.SourceAPI,
		ObservedAt:  now,
	}); err != nil {
		r.log.Warn("Offer history append failed", "product_id", p.ID, "error", err)
	}

	obsSite := sitePrice
	if applyPrice {
		// The store now displays the marketplace price, so a stale open case
		// resolves on the next audit pass.
		obsSite = info.BasePrice
	}

	r.countSynced(cr)
	return PriceObservation{
		ProductID:   p.ID,
		MarketPrice: info.BasePrice,
		SitePrice:   obsSite,
		Source:      types.MismatchSourceItem,
		ObservedAt:  now,
	}, true
}

var cycleCountMu sync.Mutex

func (r *Reconciler) countSynced(cr *cycleReport) {
	cycleCountMu.Lock()
	cr.Synced++
	cycleCountMu.Unlock()
}

func (r *Reconciler) countFetchFailure(cr *cycleReport) {
	cycleCountMu.Lock()
	cr.FetchFailed++
	cycleCountMu.Unlock()
}

func (r *Reconciler) countSuspect(cr *cycleReport) {
	cycleCountMu.Lock()
	cr.Suspect++
	cycleCountMu.Unlock()
}

// runGuards loads the audited snapshot, applies the guard pipeline and
// persists every recorded transition.
func (r *Reconciler) runGuards(ctx context.Context, cr *cycleReport) error {
	cases, err := r.mismatches.ListOpen(ctx, nil)
	if err != nil {
		return err
	}

	products := make([]*types.Product, 0, len(cases))
	seen := make(map[uint]bool)
	afterID := uint(0)
	for {
		page, err := r.products.ListPage(ctx, nil, repos.ProductFilter{
			Status:  types.StatusActive,
			AfterID: afterID,
			Limit:   500,
		})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID
		for _, p := range page {
			products = append(products, p)
			seen[p.ID] = true
		}
	}
	for _, mc := range cases {
		if seen[mc.ProductID] {
			continue
		}
		p, err := r.products.GetByID(ctx, nil, mc.ProductID)
		if err != nil {
			return err
		}
		if p != nil {
			products = append(products, p)
			seen[p.ID] = true
		}
	}

	st := NewGuardState(time.Now(), products, cases)
	cr.Guards = RunGuardPipeline(st, DefaultGuardPipeline(r.guardCfg), r.log)
	cr.Transitions = st.Transitions

	for _, t := range st.Transitions {
		if len(t.Updates) == 0 {
			continue
		}
		if t.CaseID != 0 {
			if err := r.mismatches.UpdateFields(ctx, nil, t.CaseID, t.Updates); err != nil {
				return err
			}
			continue
		}
		if t.ProductID != 0 {
			if err := r.products.UpdateFields(ctx, nil, t.ProductID, t.Updates); err != nil {
				return err
			}
		}
	}
	return nil
}
