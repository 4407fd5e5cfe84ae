package services

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

// MismatchThresholds classify site/marketplace price divergence.
type MismatchThresholds struct {
	WarnPct     float64
	WarnAbs     float64
	CriticalPct float64
	CriticalAbs float64
}

func DefaultMismatchThresholds() MismatchThresholds {
	return MismatchThresholds{WarnPct: 25, WarnAbs: 20, CriticalPct: 50, CriticalAbs: 30}
}

// PriceDelta is one divergence measurement.
type PriceDelta struct {
	DeltaAbs float64
	DeltaPct float64
	// Severity is "" (clean), warn or critical.
	Severity string
}

// ClassifyPriceDelta measures site vs market divergence. The percent base is
// the larger of the two prices so the classification is symmetric.
func ClassifyPriceDelta(sitePrice, marketPrice float64, th MismatchThresholds) PriceDelta {
	d := PriceDelta{}
	d.DeltaAbs = math.Abs(sitePrice - marketPrice)
	base := math.Max(sitePrice, marketPrice)
	if base > 0 {
		d.DeltaPct = d.DeltaAbs / base * 100
	}
	switch {
	case d.DeltaPct >= th.CriticalPct || d.DeltaAbs >= th.CriticalAbs:
		d.Severity = types.MismatchSeverityCritical
	case d.DeltaPct >= th.WarnPct || d.DeltaAbs >= th.WarnAbs:
		d.Severity = types.MismatchSeverityWarn
	}
	return d
}

// PriceObservation is one marketplace price seen for a product during sync.
type PriceObservation struct {
	ProductID   uint
	MarketPrice float64
	// SitePrice is the price the store displayed when the observation was
	// taken. Zero falls back to the product's stored price.
	SitePrice float64
	// Source is item or catalog; only item-level observations may open cases.
	Source     string
	ObservedAt time.Time
}

type AuditReport struct {
	Scanned  int `json:"scanned"`
	Opened   int `json:"opened"`
	Updated  int `json:"updated"`
	Resolved int `json:"resolved"`
	Critical int `json:"critical"`
}

// PriceAuditor compares persisted site prices against observed marketplace
// prices and maintains PriceMismatchCase rows.
type PriceAuditor struct {
	log        *logger.Logger
	products   repos.ProductRepo
	mismatches repos.PriceMismatchRepo
	thresholds MismatchThresholds
}

func NewPriceAuditor(baseLog *logger.Logger, products repos.ProductRepo, mismatches repos.PriceMismatchRepo, th MismatchThresholds) *PriceAuditor {
	return &PriceAuditor{
		log:        baseLog.With("service", "PriceAuditor"),
		products:   products,
		mismatches: mismatches,
		thresholds: th,
	}
}

// Audit reads product state fresh per observation so repeated runs converge.
func (a *PriceAuditor) Audit(ctx context.Context, tx *gorm.DB, observations []PriceObservation) (AuditReport, error) {
	report := AuditReport{}
	now := time.Now()

	for _, obs := range observations {
		p, err := a.products.GetByID(ctx, tx, obs.ProductID)
		if err != nil {
			return report, err
		}
		if p == nil || !p.IsActive || p.DataHealthStatus != types.HealthHealthy {
			continue
		}
		sitePrice := obs.SitePrice
		if sitePrice <= 0 {
			sitePrice = p.Price
		}
		if obs.MarketPrice <= 0 || sitePrice <= 0 {
			continue
		}
		report.Scanned++

		delta := ClassifyPriceDelta(sitePrice, obs.MarketPrice, a.thresholds)
		open, err := a.mismatches.GetOpenByProductID(ctx, tx, p.ID)
		if err != nil {
			return report, err
		}

		if delta.Severity == "" {
			if open != nil {
				if err := a.mismatches.UpdateFields(ctx, tx, open.ID, map[string]interface{}{
					"status":          types.MismatchResolved,
					"resolution_note": "delta_within_thresholds",
					"resolved_at":     now,
				}); err != nil {
					return report, err
				}
				report.Resolved++
			}
			continue
		}
		if delta.Severity == types.MismatchSeverityCritical {
			report.Critical++
		}

		// Catalog-level drift is observed but never opens cases; it would
		// cascade false positives across the whole catalog.
		if obs.Source != types.MismatchSourceItem {
			a.log.Debug("Skipping catalog-level mismatch observation", "product_id", p.ID, "delta_pct", delta.DeltaPct)
			continue
		}

		if open != nil {
			if err := a.mismatches.UpdateFields(ctx, tx, open.ID, map[string]interface{}{
				"site_price":   sitePrice,
				"market_price": obs.MarketPrice,
				"delta_abs":    delta.DeltaAbs,
				"delta_pct":    delta.DeltaPct,
				"severity":     delta.Severity,
			}); err != nil {
				return report, err
			}
			report.Updated++
		} else {
			if _, err := a.mismatches.Create(ctx, tx, &types.PriceMismatchCase{
				ProductID:   p.ID,
				SitePrice:   sitePrice,
				MarketPrice: obs.MarketPrice,
				DeltaAbs:    delta.DeltaAbs,
				DeltaPct:    delta.DeltaPct,
				Severity:    delta.Severity,
				Status:      types.MismatchOpen,
				Source:      obs.Source,
			}); err != nil {
				return report, err
			}
			report.Opened++
		}

		if err := a.products.UpdateFields(ctx, tx, p.ID, map[string]interface{}{
			"last_audited_at": now,
		}); err != nil {
			return report, err
		}
	}

	a.log.Info("Price audit pass finished",
		"scanned", report.Scanned,
		"opened", report.Opened,
		"updated", report.Updated,
		"resolved", report.Resolved,
		"critical", report.Critical)
	return report, nil
}
