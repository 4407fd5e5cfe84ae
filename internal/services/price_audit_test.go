package services

import (
	"context"
	"testing"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

func TestClassifyPriceDelta(t *testing.T) {
	th := DefaultMismatchThresholds()

	tests := []struct {
		name         string
		site, market float64
		want         string
	}{
		{"small divergence is clean", 205.00, 201.00, ""},
		{"warn on percent threshold", 100, 75, types.MismatchSeverityWarn},
		{"warn on absolute threshold", 100, 79, types.MismatchSeverityWarn},
		{"critical on percent threshold", 100, 49, types.MismatchSeverityCritical},
		{"critical on absolute threshold", 100, 69, types.MismatchSeverityCritical},
		{"symmetric when market is higher", 49, 100, types.MismatchSeverityCritical},
		{"identical prices", 100, 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPriceDelta(tt.site, tt.market, th)
			if got.Severity != tt.want {
				t.Errorf("ClassifyPriceDelta(%.2f, %.2f) severity = %q (abs %.2f pct %.2f), want %q",
					tt.site, tt.market, got.Severity, got.DeltaAbs, got.DeltaPct, tt.want)
			}
		})
	}
}

func TestClassifyPriceDeltaPercentBaseIsLargerPrice(t *testing.T) {
	th := DefaultMismatchThresholds()
	// 4.00 off 205.00 is 1.95% against the larger price.
	d := ClassifyPriceDelta(205.00, 201.00, th)
	if d.DeltaAbs != 4.00 {
		t.Errorf("DeltaAbs = %.2f, want 4.00", d.DeltaAbs)
	}
	if d.DeltaPct < 1.9 || d.DeltaPct > 2.0 {
		t.Errorf("DeltaPct = %.3f, want ~1.95", d.DeltaPct)
	}
	if d.Severity != "" {
		t.Errorf("Severity = %q, want clean", d.Severity)
	}
}

func auditFixture(t *testing.T, p *types.Product, cases ...*types.PriceMismatchCase) (*PriceAuditor, *fakeProductRepo, *fakeMismatchRepo) {
	t.Helper()
	products := newFakeProductRepo(p)
	mismatches := newFakeMismatchRepo(products, cases...)
	auditor := NewPriceAuditor(logger.NewNop(), products, mismatches, DefaultMismatchThresholds())
	return auditor, products, mismatches
}

func activeHealthyProduct(price float64) *types.Product {
	return &types.Product{
		ID: 1, ExternalID: "MLB1",
		IsActive: true, Status: types.StatusActive,
		DataHealthStatus: types.HealthHealthy,
		Price:            price,
		LastPriceSource:  types.SourceScraper,
	}
}

func TestAuditOpensCaseOnItemDivergence(t *testing.T) {
	auditor, _, mismatches := auditFixture(t, activeHealthyProduct(100))

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, MarketPrice: 40, Source: types.MismatchSourceItem, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Opened != 1 || report.Critical != 1 {
		t.Errorf("report = %+v, want one critical case opened", report)
	}
	open, _ := mismatches.GetOpenByProductID(context.Background(), nil, 1)
	if open == nil {
		t.Fatal("expected an open case")
	}
	if open.Severity != types.MismatchSeverityCritical || open.Source != types.MismatchSourceItem {
		t.Errorf("case = %+v", open)
	}
}

func TestAuditUsesObservationSitePrice(t *testing.T) {
	// The stored row may already hold the freshly synced market value; the
	// delta must be measured against the price displayed at observation time.
	auditor, _, mismatches := auditFixture(t, activeHealthyProduct(40))

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, SitePrice: 100, MarketPrice: 40, Source: types.MismatchSourceItem, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Opened != 1 || report.Critical != 1 {
		t.Errorf("report = %+v, want one critical case opened", report)
	}
	open, _ := mismatches.GetOpenByProductID(context.Background(), nil, 1)
	if open == nil {
		t.Fatal("expected an open case")
	}
	if open.SitePrice != 100 || open.MarketPrice != 40 {
		t.Errorf("case prices = %.2f/%.2f, want 100/40", open.SitePrice, open.MarketPrice)
	}
}

func TestAuditCatalogDriftNeverOpensCases(t *testing.T) {
	auditor, _, mismatches := auditFixture(t, activeHealthyProduct(100))

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, MarketPrice: 40, Source: types.MismatchSourceCatalog, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Opened != 0 {
		t.Errorf("catalog observation opened %d cases", report.Opened)
	}
	if report.Critical != 1 {
		t.Errorf("catalog drift still counts as critical in the report, got %+v", report)
	}
	if open, _ := mismatches.GetOpenByProductID(context.Background(), nil, 1); open != nil {
		t.Errorf("unexpected open case %+v", open)
	}
}

func TestAuditSmallDeltaResolvesOpenCase(t *testing.T) {
	existing := &types.PriceMismatchCase{
		ID: 1, ProductID: 1,
		Severity: types.MismatchSeverityWarn,
		Status:   types.MismatchOpen,
		Source:   types.MismatchSourceItem,
	}
	auditor, _, mismatches := auditFixture(t, activeHealthyProduct(205), existing)

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, MarketPrice: 201, Source: types.MismatchSourceItem, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Resolved != 1 {
		t.Errorf("report = %+v, want one resolved", report)
	}
	if existing.Status != types.MismatchResolved || existing.ResolutionNote != "delta_within_thresholds" {
		t.Errorf("case = %+v", existing)
	}
	if open, _ := mismatches.GetOpenByProductID(context.Background(), nil, 1); open != nil {
		t.Errorf("case should be closed, got %+v", open)
	}
}

func TestAuditUpdatesExistingOpenCaseInPlace(t *testing.T) {
	existing := &types.PriceMismatchCase{
		ID: 1, ProductID: 1,
		SitePrice: 100, MarketPrice: 70,
		Severity: types.MismatchSeverityWarn,
		Status:   types.MismatchOpen,
		Source:   types.MismatchSourceItem,
	}
	auditor, _, mismatches := auditFixture(t, activeHealthyProduct(100), existing)

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, MarketPrice: 40, Source: types.MismatchSourceItem, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Opened != 0 || report.Updated != 1 {
		t.Errorf("report = %+v, want in-place update", report)
	}
	if len(mismatches.byID) != 1 {
		t.Errorf("case count = %d, want 1", len(mismatches.byID))
	}
	if existing.Severity != types.MismatchSeverityCritical || existing.MarketPrice != 40 {
		t.Errorf("case not escalated: %+v", existing)
	}
}

func TestAuditSkipsInactiveAndUnhealthyProducts(t *testing.T) {
	p := activeHealthyProduct(100)
	p.DataHealthStatus = types.HealthSuspectPrice
	auditor, _, _ := auditFixture(t, p)

	report, err := auditor.Audit(context.Background(), nil, []PriceObservation{
		{ProductID: 1, MarketPrice: 40, Source: types.MismatchSourceItem, ObservedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Scanned != 0 || report.Opened != 0 {
		t.Errorf("unhealthy product must be skipped, report = %+v", report)
	}
}
