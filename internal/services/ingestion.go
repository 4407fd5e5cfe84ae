package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/meli"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/redisq"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/policy"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type IngestConfig struct {
	SearchLimit int
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{SearchLimit: 100}
}

type categoryIngestReport struct {
	CategorySlug string         `json:"category_slug"`
	Searched     int            `json:"searched"`
	Rejected     int            `json:"rejected"`
	NoIdentity   int            `json:"no_identity"`
	Outcomes     map[string]int `json:"outcomes"`
	Created      int            `json:"created"`
	Replaced     int            `json:"replaced"`
	Demoted      int            `json:"demoted_duplicates"`
	Elite        int            `json:"elite"`
	Errors       []string       `json:"errors,omitempty"`
}

type ingestReport struct {
	Categories []categoryIngestReport `json:"categories"`
}

// Ingestor runs one curation pass per category: search the marketplace,
// gate the results, dedup within the run, admit through the category
// allocator, then reconcile canonical groups against the persisted catalog.
type Ingestor struct {
	log      *logger.Logger
	products repos.ProductRepo
	configs  repos.CategoryConfigRepo
	runs     repos.ReconcileRunRepo
	history  repos.OfferHistoryRepo
	market   *meli.Client
	queue    *redisq.PriceSyncQueue
	gate     *RelevanceGate
	identity *IdentityResolver
	policy   policy.Config
	cfg      IngestConfig
}

func NewIngestor(
	baseLog *logger.Logger,
	products repos.ProductRepo,
	configs repos.CategoryConfigRepo,
	runs repos.ReconcileRunRepo,
	history repos.OfferHistoryRepo,
	market *meli.Client,
	queue *redisq.PriceSyncQueue,
	policyCfg policy.Config,
	cfg IngestConfig,
) *Ingestor {
	return &Ingestor{
		log:      baseLog.With("service", "Ingestor"),
		products: products,
		configs:  configs,
		runs:     runs,
		history:  history,
		market:   market,
		queue:    queue,
		gate:     NewRelevanceGate(policyCfg),
		identity: NewIdentityResolver(),
		policy:   policyCfg,
		cfg:      cfg,
	}
}

// Run ingests every configured category and records a run row with the
// per-category report.
func (s *Ingestor) Run(ctx context.Context) (*types.ReconcileRun, error) {
	run := &types.ReconcileRun{
		ID:        uuid.New(),
		Kind:      types.RunKindIngest,
		Status:    types.RunRunning,
		StartedAt: time.Now(),
	}
	if _, err := s.runs.Create(ctx, nil, run); err != nil {
		return nil, err
	}

	configs, err := s.configs.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := ingestReport{}
	var runErr error
	for _, cc := range configs {
		cr, err := s.ingestCategory(ctx, cc)
		report.Categories = append(report.Categories, cr)
		if err != nil {
			runErr = err
			break
		}
	}

	now := time.Now()
	run.FinishedAt = &now
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
		"report":      run.Report,
		"error":       run.Error,
	}
	if err := s.runs.UpdateFields(context.Background(), nil, run.ID, updates); err != nil {
		s.log.Error("Failed to finalize ingest run record", "run_id", run.ID, "error", err)
	}
	return run, runErr
}

func (s *Ingestor) ingestCategory(ctx context.Context, cc *types.CategoryConfig) (categoryIngestReport, error) {
	cr := categoryIngestReport{
		CategorySlug: cc.Slug,
		Outcomes:     map[string]int{},
	}
	log := s.log.With("category", cc.Slug)

	query := cc.SearchQuery
	if query == "" {
		query = strings.ReplaceAll(cc.Slug, "-", " ")
	}
	candidates, err := s.market.SearchCandidates(ctx, "", query, 0, s.cfg.SearchLimit)
	if err != nil {
		cr.Errors = append(cr.Errors, "search: "+err.Error())
		return cr, nil
	}
	cr.Searched = len(candidates)

	// Gate, resolve identity and keep only the best candidate per key within
	// this run.
	bestByKey := map[string]AdmissionCandidate{}
	for _, cand := range candidates {
		verdict := s.gate.Evaluate(cand, cc.Slug)
		if verdict.Decision == DecisionReject {
			cr.Rejected++
			continue
		}
		key, err := s.identity.Resolve(cand)
		if err != nil {
			cr.NoIdentity++
			continue
		}
		existing, err := s.findExisting(ctx, key, cand.ExternalID)
		if err != nil {
			cr.Errors = append(cr.Errors, "lookup "+cand.ExternalID+": "+err.Error())
			continue
		}
		ac := AdmissionCandidate{
			Candidate:   cand,
			Verdict:     verdict,
			IdentityKey: key,
			Existing:    existing,
		}
		if prev, ok := bestByKey[key]; !ok || verdict.Score > prev.Verdict.Score {
			bestByKey[key] = ac
		}
	}

	admission := make([]AdmissionCandidate, 0, len(bestByKey))
	for _, ac := range bestByKey {
		admission = append(admission, ac)
	}

	incumbents, err := s.products.ListByCategory(ctx, nil, cc.Slug, types.StatusActive)
	if err != nil {
		return cr, err
	}
	standbys, err := s.products.ListByCategory(ctx, nil, cc.Slug, types.StatusStandby)
	if err != nil {
		return cr, err
	}
	midnight := midnightUTC(time.Now())
	newToday, err := s.products.CountCreatedSince(ctx, nil, cc.Slug, midnight)
	if err != nil {
		return cr, err
	}

	allocator := NewCategoryAllocator(s.policy.ReplacementEnabled, s.policy.MinReplacementGain)
	decisions := allocator.Allocate(cc, incumbents, len(standbys), int(newToday), admission)

	touchedKeys := map[string]bool{}
	for _, d := range decisions {
		cr.Outcomes[d.Outcome]++
		if err := s.applyDecision(ctx, cc, d, &cr); err != nil {
			cr.Errors = append(cr.Errors, "apply "+d.Candidate.Candidate.ExternalID+": "+err.Error())
			continue
		}
		switch d.Outcome {
		case OutcomeAdmitActive, OutcomeAdmitStandby, OutcomeReplace, OutcomeKeep:
			touchedKeys[d.Candidate.IdentityKey] = true
		}
	}

	if err := s.reconcileCanonicalGroups(ctx, touchedKeys, &cr); err != nil {
		return cr, err
	}

	if s.queue != nil && (cr.Created > 0 || cr.Replaced > 0) {
		s.queue.Enqueue(ctx, redisq.PriceSyncSignal{
			CategorySlug: cc.Slug,
			Reason:       "ingest_admitted_products",
			EnqueuedAt:   time.Now(),
		})
	}

	log.Info("Category ingest finished",
		"searched", cr.Searched,
		"rejected", cr.Rejected,
		"created", cr.Created,
		"replaced", cr.Replaced,
		"demoted_duplicates", cr.Demoted)
	return cr, nil
}

// findExisting matches a candidate to the persisted catalog by canonical key,
// preferring the exact external id within the group.
func (s *Ingestor) findExisting(ctx context.Context, key, externalID string) (*types.Product, error) {
	group, err := s.products.GetByCanonicalKey(ctx, nil, key)
	if err != nil {
		return nil, err
	}
	for _, p := range group {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	if len(group) > 0 {
		return group[0], nil
	}
	return s.products.GetByExternalID(ctx, nil, externalID)
}

func (s *Ingestor) applyDecision(ctx context.Context, cc *types.CategoryConfig, d AllocationDecision, cr *categoryIngestReport) error {
	switch d.Outcome {
	case OutcomeAdmitActive, OutcomeReplace:
		if d.Outcome == OutcomeReplace && d.ReplacedProductID != 0 {
			updates := map[string]interface{}{
				"is_active":           false,
				"status":              types.StatusStandby,
				"deactivation_reason": "replaced_by_stronger_candidate",
			}
			if err := s.products.UpdateFields(ctx, nil, d.ReplacedProductID, updates); err != nil {
				return err
			}
			cr.Replaced++
		}
		return s.persistCandidate(ctx, cc, d, true, cr)
	case OutcomeAdmitStandby:
		return s.persistCandidate(ctx, cc, d, false, cr)
	case OutcomeKeep:
		return s.refreshExisting(ctx, d)
	default:
		return nil
	}
}

// persistCandidate creates the product row for an admitted candidate, or
// reactivates the existing row when the identity already has one.
func (s *Ingestor) persistCandidate(ctx context.Context, cc *types.CategoryConfig, d AllocationDecision, active bool, cr *categoryIngestReport) error {
	cand := d.Candidate.Candidate
	now := time.Now()
	info := ResolveFinalPriceInfo(resolveInputFromCandidate(cand, now), now)

	status := types.StatusStandby
	if active {
		status = types.StatusActive
	}
	elite := s.isElite(ctx, cc, cand)
	if elite {
		cr.Elite++
	}

	if existing := d.Candidate.Existing; existing != nil {
		updates := map[string]interface{}{
			"status":                 status,
			"is_active":              active,
			"data_health_status":     types.HealthHealthy,
			"deactivation_reason":    "",
			"price":                  info.BasePrice,
			"original_price":         info.ListPrice,
			"pix_price":              info.PixPrice,
			"last_price_source":      types.SourceAPI,
			"last_price_verified_at": now,
			"last_synced_at":         now,
			"relevance_score":        d.Candidate.Verdict.Score,
			"free_shipping":          cand.FreeShipping,
			"sold_quantity":          cand.SoldQuantity,
			"elite":                  elite,
			"fail_count":             0,
		}
		if existing.Price > 0 && math.Abs(info.BasePrice-existing.Price) >= 0.01 {
			updates["previous_price"] = existing.Price
			updates["previous_price_source"] = types.SourceHistory
			updates["previous_price_detected_at"] = now
		}
		if err := s.products.UpdateFields(ctx, nil, existing.ID, updates); err != nil {
			return err
		}
		return s.appendHistory(ctx, existing.ID, cand.ExternalID, info)
	}

	p := &types.Product{
		ExternalID:            cand.ExternalID,
		CanonicalKey:          d.Candidate.IdentityKey,
		Permalink:             cand.Permalink,
		Name:                  cand.Title,
		Description:           cand.Description,
		ImageURL:              cand.ImageURL,
		Brand:                 cand.Brand,
		Price:                 info.BasePrice,
		OriginalPrice:         info.ListPrice,
		PixPrice:              info.PixPrice,
		PixPriceSource:        cand.PixPriceSource,
		LastPriceSource:       types.SourceAPI,
		Status:                status,
		IsActive:              active,
		DataHealthStatus:      types.HealthHealthy,
		CategorySlug:          cc.Slug,
		MarketplaceCategoryID: cand.MarketplaceCategoryID,
		MarketplaceItemID:     cand.ExternalID,
		RelevanceScore:        d.Candidate.Verdict.Score,
		Elite:                 elite,
		FreeShipping:          cand.FreeShipping,
		SoldQuantity:          cand.SoldQuantity,
		LastSyncedAt:          &now,
		LastPriceVerifiedAt:   &now,
	}
	if _, err := s.products.Create(ctx, nil, p); err != nil {
		return err
	}
	cr.Created++
	return s.appendHistory(ctx, p.ID, cand.ExternalID, info)
}

func (s *Ingestor) refreshExisting(ctx context.Context, d AllocationDecision) error {
	existing := d.Candidate.Existing
	if existing == nil {
		return nil
	}
	cand := d.Candidate.Candidate
	now := time.Now()
	info := ResolveFinalPriceInfo(resolveInputFromCandidate(cand, now), now)
	updates := map[string]interface{}{
		"last_synced_at":  now,
		"relevance_score": d.Candidate.Verdict.Score,
		"free_shipping":   cand.FreeShipping,
		"sold_quantity":   cand.SoldQuantity,
		"fail_count":      0,
	}
	// A refresh only rewrites marketplace-fed prices; curated and scraped
	// prices are left for the reconciler's audit to judge.
	source := strings.ToLower(existing.LastPriceSource)
	if existing.Price <= 0 || source == "" || types.IsAPIPriceSource(source) {
		if existing.Price > 0 && math.Abs(info.BasePrice-existing.Price) >= 0.01 {
			updates["previous_price"] = existing.Price
			updates["previous_price_source"] = types.SourceHistory
			updates["previous_price_detected_at"] = now
		}
		updates["price"] = info.BasePrice
		updates["original_price"] = info.ListPrice
		updates["pix_price"] = info.PixPrice
		updates["last_price_source"] = types.SourceAPI
		updates["last_price_verified_at"] = now
	}
	if err := s.products.UpdateFields(ctx, nil, existing.ID, updates); err != nil {
		return err
	}
	return s.appendHistory(ctx, existing.ID, cand.ExternalID, info)
}

func (s *Ingestor) appendHistory(ctx context.Context, productID uint, externalID string, info PriceInfo) error {
	return s.history.Append(ctx, nil, &types.OfferHistory{
		Marketplace: PrimaryMarketplace,
		ExternalID:  externalID,
		ProductID:   productID,
		Price:       info.BasePrice,
		PixPrice:    info.PixPrice,
		Source:      types.SourceAPI,
		ObservedAt:  time.Now(),
	})
}

// reconcileCanonicalGroups re-runs canonical selection for every identity key
// touched in this pass and demotes the losers as duplicates.
func (s *Ingestor) reconcileCanonicalGroups(ctx context.Context, keys map[string]bool, cr *categoryIngestReport) error {
	now := time.Now()
	for key := range keys {
		group, err := s.products.GetByCanonicalKey(ctx, nil, key)
		if err != nil {
			return err
		}
		if len(group) < 2 {
			continue
		}
		selection := SelectCanonical(group, now)
		for _, demotion := range selection.Demoted {
			if err := s.products.UpdateFields(ctx, nil, demotion.Product.ID, DemotionUpdates(demotion.Reason)); err != nil {
				return err
			}
			cr.Demoted++
		}
	}
	return nil
}

// isElite marks listings from established brands with strong sales at an
// accessible price, sold by a high-reputation seller.
func (s *Ingestor) isElite(ctx context.Context, cc *types.CategoryConfig, cand types.Candidate) bool {
	if cand.SoldQuantity < cc.EliteMinSold {
		return false
	}
	if cc.EliteMaxPrice > 0 && cand.Price > cc.EliteMaxPrice {
		return false
	}
	if !brandKnown(cc, cand.Brand) {
		return false
	}
	levelID := cand.SellerLevelID
	powerStatus := cand.SellerPowerStatus
	if levelID == "" && cand.SellerID > 0 {
		rep, err := s.market.GetSellerReputation(ctx, cand.SellerID)
		if err != nil {
			s.log.Warn("Seller reputation lookup failed", "seller_id", cand.SellerID, "error", err)
			return false
		}
		levelID = rep.LevelID
		powerStatus = rep.PowerStatus
	}
	return sellerTrusted(levelID, powerStatus)
}

func brandKnown(cc *types.CategoryConfig, brand string) bool {
	if brand == "" || len(cc.KnownBrands) == 0 {
		return false
	}
	var known []string
	if err := json.Unmarshal(cc.KnownBrands, &known); err != nil {
		return false
	}
	for _, k := range known {
		if strings.EqualFold(k, brand) {
			return true
		}
	}
	return false
}

// sellerTrusted accepts reputation levels of 4_* and above, or any power
// seller status.
func sellerTrusted(levelID, powerStatus string) bool {
	if powerStatus != "" {
		return true
	}
	parts := strings.SplitN(levelID, "_", 2)
	if len(parts) == 0 || parts[0] == "" {
		return false
	}
	level, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	return level >= 4
}

func resolveInputFromCandidate(cand types.Candidate, now time.Time) ResolveInput {
	in := ResolveInput{
		Marketplace:   PrimaryMarketplace,
		BasePrice:     cand.Price,
		BaseSource:    types.SourceAPI,
		OriginalPrice: cand.OriginalPrice,
	}
	if cand.OriginalPrice > 0 {
		in.OriginalPriceSource = types.SourceAPI
		in.OriginalPriceCheckedAt = &now
	}
	if cand.PixPrice > 0 {
		in.PixPrice = cand.PixPrice
		in.PixPriceSource = cand.PixPriceSource
		if in.PixPriceSource == "" {
			in.PixPriceSource = types.SourceAPI
		}
	}
	return in
}

func midnightUTC(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
