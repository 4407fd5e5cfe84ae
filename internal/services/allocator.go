package services

import (
	"math"
	"sort"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

// Allocation outcomes.
const (
	OutcomeKeep         = "keep"
	OutcomeAdmitActive  = "admit_active"
	OutcomeAdmitStandby = "admit_standby"
	OutcomeReplace      = "replace"
	OutcomeSkipCapacity = "skip_capacity"
	OutcomeSkipDailyCap = "skip_daily_cap"
	OutcomeSkipMargin   = "skip_replacement_margin"
	OutcomeSkipClaimed  = "skip_identity_claimed"
)

// AdmissionCandidate is a gate-approved candidate entering allocation.
type AdmissionCandidate struct {
	Candidate   types.Candidate
	Verdict     Verdict
	IdentityKey string
	// Existing is the persisted product already carrying this external id,
	// nil for brand-new listings.
	Existing *types.Product
}

type AllocationDecision struct {
	Candidate         AdmissionCandidate
	Outcome           string
	ReplacedProductID uint
}

// CategoryAllocator enforces per-category capacity and the replacement
// hysteresis margin that keeps score noise from flapping incumbents.
type CategoryAllocator struct {
	ReplacementEnabled bool
	MinReplacementGain float64
}

func NewCategoryAllocator(replacementEnabled bool, minReplacementGain float64) *CategoryAllocator {
	return &CategoryAllocator{
		ReplacementEnabled: replacementEnabled,
		MinReplacementGain: minReplacementGain,
	}
}

// Allocate decides admission for one category's run. incumbents are the
// currently active products, standbyExisting how many standby slots are
// already taken, newToday how many products were created since midnight.
func (a *CategoryAllocator) Allocate(
	cc *types.CategoryConfig,
	incumbents []*types.Product,
	standbyExisting int,
	newToday int,
	candidates []AdmissionCandidate,
) []AllocationDecision {
	decisions := make([]AllocationDecision, 0, len(candidates))
	activeCount := len(incumbents)
	claimedKeys := map[string]bool{}
	replacedIncumbents := map[uint]bool{}

	allow := make([]AdmissionCandidate, 0, len(candidates))
	standby := make([]AdmissionCandidate, 0, len(candidates))
	for _, cand := range candidates {
		switch cand.Verdict.Decision {
		case DecisionAllow:
			allow = append(allow, cand)
		case DecisionStandby:
			standby = append(standby, cand)
		}
	}
	// Strongest candidates claim capacity first.
	sort.SliceStable(allow, func(i, j int) bool { return allow[i].Verdict.Score > allow[j].Verdict.Score })
	sort.SliceStable(standby, func(i, j int) bool { return standby[i].Verdict.Score > standby[j].Verdict.Score })

	for _, cand := range allow {
		if claimedKeys[cand.IdentityKey] {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipClaimed})
			continue
		}

		// Already-active products are kept as-is; they hold their slot.
		if cand.Existing != nil && cand.Existing.IsActive {
			claimedKeys[cand.IdentityKey] = true
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeKeep})
			continue
		}

		if activeCount < cc.MaxActive {
			if newToday >= cc.MaxNewPerDay {
				decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipDailyCap})
				continue
			}
			claimedKeys[cand.IdentityKey] = true
			activeCount++
			newToday++
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeAdmitActive})
			continue
		}

		if !a.ReplacementEnabled {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipCapacity})
			continue
		}
		weakest := weakestIncumbent(incumbents, replacedIncumbents)
		if weakest == nil {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipCapacity})
			continue
		}
		margin := math.Max(a.MinReplacementGain, float64(cc.MinScoreDeltaToReplace)/100)
		if cand.Verdict.Score <= weakest.RelevanceScore+margin {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipMargin})
			continue
		}
		replacedIncumbents[weakest.ID] = true
		claimedKeys[cand.IdentityKey] = true
		decisions = append(decisions, AllocationDecision{
			Candidate:         cand,
			Outcome:           OutcomeReplace,
			ReplacedProductID: weakest.ID,
		})
	}

	standbyCount := standbyExisting
	for _, cand := range standby {
		if claimedKeys[cand.IdentityKey] {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipClaimed})
			continue
		}
		if standbyCount >= cc.MaxStandby {
			decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeSkipCapacity})
			continue
		}
		standbyCount++
		claimedKeys[cand.IdentityKey] = true
		decisions = append(decisions, AllocationDecision{Candidate: cand, Outcome: OutcomeAdmitStandby})
	}

	return decisions
}

// weakestIncumbent picks the lowest-cost-benefit active product that is not
// curation-protected and not already evicted this run.
func weakestIncumbent(incumbents []*types.Product, replaced map[uint]bool) *types.Product {
	var weakest *types.Product
	for _, p := range incumbents {
		if p.Curated() || replaced[p.ID] {
			continue
		}
		if weakest == nil || p.CostBenefitScore < weakest.CostBenefitScore {
			weakest = p
		}
	}
	return weakest
}
