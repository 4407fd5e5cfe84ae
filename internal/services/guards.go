package services

import (
	"strings"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

// GuardConfig carries the thresholds of the status guard passes.
type GuardConfig struct {
	StickyPct            float64
	StickyAbs            float64
	DropPct              float64
	MaxStaleVerification time.Duration
	SuspectCycleLimit    int
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		StickyPct:            20,
		StickyAbs:            25,
		DropPct:              30,
		MaxStaleVerification: 8 * time.Hour,
		SuspectCycleLimit:    3,
	}
}

// Transition is one recorded state change produced by a guard. The runner
// persists Updates through the repos; the in-memory snapshot is already
// mutated when the transition is recorded, so later guards see the effect.
type Transition struct {
	Guard     string                 `json:"guard"`
	ProductID uint                   `json:"product_id,omitempty"`
	CaseID    uint                   `json:"case_id,omitempty"`
	Updates   map[string]interface{} `json:"-"`
	Reason    string                 `json:"reason"`
}

// GuardState is the audited snapshot a pipeline run works over. Policies are
// pure over this state: same snapshot in, same transitions out.
type GuardState struct {
	Now         time.Time
	Products    map[uint]*types.Product
	Cases       []*types.PriceMismatchCase
	Transitions []Transition
}

func NewGuardState(now time.Time, products []*types.Product, cases []*types.PriceMismatchCase) *GuardState {
	byID := make(map[uint]*types.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &GuardState{Now: now, Products: byID, Cases: cases}
}

func (st *GuardState) demoteProduct(guard string, p *types.Product, reason string) bool {
	if !p.IsActive && p.Status == types.StatusStandby {
		return false
	}
	p.IsActive = false
	p.Status = types.StatusStandby
	p.DeactivationReason = reason
	st.Transitions = append(st.Transitions, Transition{
		Guard:     guard,
		ProductID: p.ID,
		Reason:    reason,
		Updates: map[string]interface{}{
			"is_active":           false,
			"status":              types.StatusStandby,
			"deactivation_reason": reason,
		},
	})
	return true
}

func (st *GuardState) resolveCase(guard string, mc *types.PriceMismatchCase, note string) bool {
	if mc.Status != types.MismatchOpen {
		return false
	}
	mc.Status = types.MismatchResolved
	mc.ResolutionNote = note
	resolvedAt := st.Now
	mc.ResolvedAt = &resolvedAt
	st.Transitions = append(st.Transitions, Transition{
		Guard:  guard,
		CaseID: mc.ID,
		Reason: note,
		Updates: map[string]interface{}{
			"status":          types.MismatchResolved,
			"resolution_note": note,
			"resolved_at":     resolvedAt,
		},
	})
	return true
}

func (st *GuardState) updateProduct(guard string, p *types.Product, updates map[string]interface{}, reason string) {
	st.Transitions = append(st.Transitions, Transition{
		Guard:     guard,
		ProductID: p.ID,
		Reason:    reason,
		Updates:   updates,
	})
}

// GuardPolicy is one idempotent pass over the audited state.
type GuardPolicy interface {
	Name() string
	Apply(st *GuardState) int
}

// DefaultGuardPipeline returns the passes in their precedence order. The
// trusted-sticky guard runs before the critical-mismatch guard on purpose: a
// product whose trusted source dismisses a mismatch must not be demoted for
// that same mismatch in the same cycle.
func DefaultGuardPipeline(cfg GuardConfig) []GuardPolicy {
	return []GuardPolicy{
		trustedStickyGuard{cfg: cfg},
		untrustedDropGuard{cfg: cfg},
		criticalMismatchGuard{},
		strictEligibilityGuard{cfg: cfg},
		suspectCycleGuard{cfg: cfg},
		nonActiveMismatchCloser{},
	}
}

// RunGuardPipeline applies the passes in order and returns per-pass counts.
func RunGuardPipeline(st *GuardState, pipeline []GuardPolicy, log *logger.Logger) map[string]int {
	counts := make(map[string]int, len(pipeline))
	for _, guard := range pipeline {
		affected := guard.Apply(st)
		counts[guard.Name()] = affected
		if log != nil {
			log.Info("Guard pass finished", "guard", guard.Name(), "affected", affected)
		}
	}
	return counts
}

// trustedStickyGuard dismisses open mismatches whose product's price comes
// from a trusted source: the trusted observation wins over the scrape, so the
// case is resolved without touching the price.
type trustedStickyGuard struct {
	cfg GuardConfig
}

func (g trustedStickyGuard) Name() string { return "trusted_sticky_source" }

func (g trustedStickyGuard) Apply(st *GuardState) int {
	affected := 0
	for _, mc := range st.Cases {
		if mc.Status != types.MismatchOpen {
			continue
		}
		p := st.Products[mc.ProductID]
		if p == nil || !types.IsTrustedPriceSource(p.LastPriceSource) {
			continue
		}
		if mc.DeltaPct >= g.cfg.StickyPct || mc.DeltaAbs >= g.cfg.StickyAbs {
			if st.resolveCase(g.Name(), mc, "trusted_source_sticky") {
				affected++
			}
		}
	}
	return affected
}

// untrustedDropGuard keeps unconfirmed price crashes off the public site: an
// untrusted-source price far below the HISTORY previous price is parked.
type untrustedDropGuard struct {
	cfg GuardConfig
}

func (g untrustedDropGuard) Name() string { return "untrusted_price_drop" }

func (g untrustedDropGuard) Apply(st *GuardState) int {
	affected := 0
	for _, p := range st.Products {
		if !p.IsActive || types.IsTrustedPriceSource(p.LastPriceSource) {
			continue
		}
		if p.PreviousPrice <= 0 || !strings.EqualFold(p.PreviousPriceSource, types.SourceHistory) {
			continue
		}
		if p.Price <= 0 || p.Price >= p.PreviousPrice {
			continue
		}
		dropPct := (p.PreviousPrice - p.Price) / p.PreviousPrice * 100
		if dropPct > g.cfg.DropPct {
			if st.demoteProduct(g.Name(), p, "unconfirmed_price_drop") {
				affected++
			}
		}
	}
	return affected
}

// criticalMismatchGuard demotes active untrusted-source products still
// carrying an open critical mismatch after the auto-fix passes ran.
type criticalMismatchGuard struct{}

func (g criticalMismatchGuard) Name() string { return "critical_mismatch" }

func (g criticalMismatchGuard) Apply(st *GuardState) int {
	affected := 0
	for _, mc := range st.Cases {
		if mc.Status != types.MismatchOpen || mc.Severity != types.MismatchSeverityCritical {
			continue
		}
		p := st.Products[mc.ProductID]
		if p == nil || !p.IsActive || types.IsTrustedPriceSource(p.LastPriceSource) {
			continue
		}
		if st.demoteProduct(g.Name(), p, "critical_price_mismatch") {
			affected++
		}
	}
	return affected
}

// strictEligibilityGuard enforces the baseline an active product must hold:
// a trace marketplace item id, free shipping, and a recent price check.
type strictEligibilityGuard struct {
	cfg GuardConfig
}

func (g strictEligibilityGuard) Name() string { return "strict_active_eligibility" }

func (g strictEligibilityGuard) Apply(st *GuardState) int {
	affected := 0
	for _, p := range st.Products {
		if !p.IsActive {
			continue
		}
		reason := ""
		switch {
		case p.MarketplaceItemID == "":
			reason = "missing_trace_item_id"
		case !p.FreeShipping:
			reason = "missing_free_shipping"
		case p.LastPriceVerifiedAt == nil || st.Now.Sub(*p.LastPriceVerifiedAt) > g.cfg.MaxStaleVerification:
			reason = "stale_price_verification"
		}
		if reason == "" {
			continue
		}
		if g.trustedStaleBypass(p) && reason == "stale_price_verification" {
			continue
		}
		if st.demoteProduct(g.Name(), p, reason) {
			affected++
		}
	}
	return affected
}

// trustedStaleBypass is the narrow exception keeping a fully verified,
// trusted-source product live through a slow verification window.
func (g strictEligibilityGuard) trustedStaleBypass(p *types.Product) bool {
	return p.DataHealthStatus == types.HealthHealthy &&
		p.AffiliateVerified &&
		p.AffiliateLink != "" &&
		p.FreeShipping &&
		types.IsTrustedPriceSource(p.LastPriceSource)
}

// suspectCycleGuard gives a SUSPECT_PRICE product a few cycles to recover
// before parking it; the counter resets as soon as health clears.
type suspectCycleGuard struct {
	cfg GuardConfig
}

func (g suspectCycleGuard) Name() string { return "suspect_price_cycles" }

func (g suspectCycleGuard) Apply(st *GuardState) int {
	affected := 0
	for _, p := range st.Products {
		if p.DataHealthStatus == types.HealthSuspectPrice && p.IsActive {
			p.SuspectPriceCycles++
			if p.SuspectPriceCycles >= g.cfg.SuspectCycleLimit {
				st.updateProduct(g.Name(), p, map[string]interface{}{
					"suspect_price_cycles": p.SuspectPriceCycles,
				}, "suspect_cycle_limit_reached")
				if st.demoteProduct(g.Name(), p, "suspect_price_cycles_exhausted") {
					affected++
				}
			} else {
				st.updateProduct(g.Name(), p, map[string]interface{}{
					"suspect_price_cycles": p.SuspectPriceCycles,
				}, "suspect_cycle_pending")
				affected++
			}
			continue
		}
		if p.DataHealthStatus == types.HealthHealthy && p.SuspectPriceCycles > 0 {
			p.SuspectPriceCycles = 0
			st.updateProduct(g.Name(), p, map[string]interface{}{
				"suspect_price_cycles": 0,
			}, "suspect_cycle_reset")
			affected++
		}
	}
	return affected
}

// nonActiveMismatchCloser force-resolves cases whose product left the active
// set; a parked product cannot hold an open mismatch.
type nonActiveMismatchCloser struct{}

func (g nonActiveMismatchCloser) Name() string { return "non_active_mismatch_closer" }

func (g nonActiveMismatchCloser) Apply(st *GuardState) int {
	affected := 0
	for _, mc := range st.Cases {
		if mc.Status != types.MismatchOpen {
			continue
		}
		p := st.Products[mc.ProductID]
		if p == nil || !p.IsActive {
			if st.resolveCase(g.Name(), mc, "auto_closed_non_active_product") {
				affected++
			}
		}
	}
	return affected
}
