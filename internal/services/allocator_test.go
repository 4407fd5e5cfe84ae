package services

import (
	"testing"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

func admission(externalID, key string, score float64, existing *types.Product) AdmissionCandidate {
	return AdmissionCandidate{
		Candidate:   types.Candidate{ExternalID: externalID},
		Verdict:     Verdict{Decision: DecisionAllow, Score: score},
		IdentityKey: key,
		Existing:    existing,
	}
}

func outcomeOf(t *testing.T, decisions []AllocationDecision, externalID string) string {
	t.Helper()
	for _, d := range decisions {
		if d.Candidate.Candidate.ExternalID == externalID {
			return d.Outcome
		}
	}
	t.Fatalf("no decision for %s", externalID)
	return ""
}

func TestAllocateAdmissionAndCaps(t *testing.T) {
	cc := &types.CategoryConfig{
		Slug: "acessorios", MaxActive: 2, MaxStandby: 1, MaxNewPerDay: 10,
		MinScoreDeltaToReplace: 500,
	}
	a := NewCategoryAllocator(true, 3.0)

	standbyCand := admission("MLB4", "k4", 60, nil)
	standbyCand.Verdict.Decision = DecisionStandby
	standbyCandOver := admission("MLB5", "k5", 55, nil)
	standbyCandOver.Verdict.Decision = DecisionStandby

	decisions := a.Allocate(cc, nil, 0, 0, []AdmissionCandidate{
		admission("MLB1", "k1", 90, nil),
		admission("MLB2", "k2", 85, nil),
		admission("MLB3", "k3", 80, nil),
		standbyCand,
		standbyCandOver,
	})

	if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeAdmitActive {
		t.Errorf("MLB1 = %q, want admit_active", got)
	}
	if got := outcomeOf(t, decisions, "MLB2"); got != OutcomeAdmitActive {
		t.Errorf("MLB2 = %q, want admit_active", got)
	}
	// Third allow candidate is over capacity and there is no incumbent to
	// replace, so it is skipped.
	if got := outcomeOf(t, decisions, "MLB3"); got != OutcomeSkipCapacity {
		t.Errorf("MLB3 = %q, want skip_capacity", got)
	}
	if got := outcomeOf(t, decisions, "MLB4"); got != OutcomeAdmitStandby {
		t.Errorf("MLB4 = %q, want admit_standby", got)
	}
	if got := outcomeOf(t, decisions, "MLB5"); got != OutcomeSkipCapacity {
		t.Errorf("MLB5 = %q, want skip_capacity (standby full)", got)
	}
}

func TestAllocateDailyCap(t *testing.T) {
	cc := &types.CategoryConfig{Slug: "acessorios", MaxActive: 10, MaxStandby: 10, MaxNewPerDay: 1}
	a := NewCategoryAllocator(true, 3.0)

	decisions := a.Allocate(cc, nil, 0, 1, []AdmissionCandidate{
		admission("MLB1", "k1", 90, nil),
	})
	if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeSkipDailyCap {
		t.Errorf("MLB1 = %q, want skip_daily_cap", got)
	}
}

func TestAllocateReplacementHysteresis(t *testing.T) {
	incumbent := &types.Product{ID: 10, ExternalID: "MLB10", IsActive: true, RelevanceScore: 70}
	cc := &types.CategoryConfig{
		Slug: "acessorios", MaxActive: 1, MaxStandby: 5, MaxNewPerDay: 10,
		MinScoreDeltaToReplace: 500,
	}
	a := NewCategoryAllocator(true, 3.0)

	t.Run("challenger inside margin is skipped", func(t *testing.T) {
		decisions := a.Allocate(cc, []*types.Product{incumbent}, 0, 0, []AdmissionCandidate{
			admission("MLB1", "k1", 74, nil),
		})
		if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeSkipMargin {
			t.Errorf("MLB1 = %q, want skip_replacement_margin", got)
		}
	})

	t.Run("challenger past margin replaces the weakest", func(t *testing.T) {
		decisions := a.Allocate(cc, []*types.Product{incumbent}, 0, 0, []AdmissionCandidate{
			admission("MLB1", "k1", 78, nil),
		})
		for _, d := range decisions {
			if d.Candidate.Candidate.ExternalID == "MLB1" {
				if d.Outcome != OutcomeReplace {
					t.Fatalf("MLB1 = %q, want replace", d.Outcome)
				}
				if d.ReplacedProductID != incumbent.ID {
					t.Errorf("ReplacedProductID = %d, want %d", d.ReplacedProductID, incumbent.ID)
				}
			}
		}
	})

	t.Run("replacement disabled skips on capacity", func(t *testing.T) {
		off := NewCategoryAllocator(false, 3.0)
		decisions := off.Allocate(cc, []*types.Product{incumbent}, 0, 0, []AdmissionCandidate{
			admission("MLB1", "k1", 99, nil),
		})
		if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeSkipCapacity {
			t.Errorf("MLB1 = %q, want skip_capacity", got)
		}
	})
}

func TestAllocateReplacementEvictsLowestCostBenefit(t *testing.T) {
	// The eviction target is the cheapest incumbent by cost-benefit, even
	// when another incumbent carries a lower relevance score.
	cheap := &types.Product{ID: 20, ExternalID: "MLB20", IsActive: true, RelevanceScore: 60, CostBenefitScore: 10}
	strong := &types.Product{ID: 21, ExternalID: "MLB21", IsActive: true, RelevanceScore: 40, CostBenefitScore: 90}
	cc := &types.CategoryConfig{
		Slug: "suplementos", MaxActive: 2, MaxStandby: 5, MaxNewPerDay: 10,
		MinScoreDeltaToReplace: 500,
	}
	a := NewCategoryAllocator(true, 3.0)

	decisions := a.Allocate(cc, []*types.Product{cheap, strong}, 0, 0, []AdmissionCandidate{
		admission("MLB22", "k22", 90, nil),
	})
	for _, d := range decisions {
		if d.Candidate.Candidate.ExternalID != "MLB22" {
			continue
		}
		if d.Outcome != OutcomeReplace {
			t.Fatalf("MLB22 = %q, want replace", d.Outcome)
		}
		if d.ReplacedProductID != cheap.ID {
			t.Errorf("ReplacedProductID = %d, want %d", d.ReplacedProductID, cheap.ID)
		}
	}
}

func TestAllocateCuratedIncumbentNeverReplaced(t *testing.T) {
	curated := &types.Product{ID: 11, ExternalID: "MLB11", IsActive: true, Featured: true, RelevanceScore: 10}
	cc := &types.CategoryConfig{
		Slug: "acessorios", MaxActive: 1, MaxStandby: 5, MaxNewPerDay: 10,
		MinScoreDeltaToReplace: 500,
	}
	a := NewCategoryAllocator(true, 3.0)

	decisions := a.Allocate(cc, []*types.Product{curated}, 0, 0, []AdmissionCandidate{
		admission("MLB1", "k1", 99, nil),
	})
	if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeSkipCapacity {
		t.Errorf("MLB1 = %q, want skip_capacity over a curated incumbent", got)
	}
}

func TestAllocateIdentityClaimedOnce(t *testing.T) {
	cc := &types.CategoryConfig{Slug: "acessorios", MaxActive: 5, MaxStandby: 5, MaxNewPerDay: 10}
	a := NewCategoryAllocator(true, 3.0)

	decisions := a.Allocate(cc, nil, 0, 0, []AdmissionCandidate{
		admission("MLB1", "same-key", 90, nil),
		admission("MLB2", "same-key", 80, nil),
	})
	if got := outcomeOf(t, decisions, "MLB1"); got != OutcomeAdmitActive {
		t.Errorf("MLB1 = %q, want admit_active", got)
	}
	if got := outcomeOf(t, decisions, "MLB2"); got != OutcomeSkipClaimed {
		t.Errorf("MLB2 = %q, want skip_identity_claimed", got)
	}
}

func TestAllocateExistingActiveKeepsSlot(t *testing.T) {
	existing := &types.Product{ID: 12, ExternalID: "MLB12", IsActive: true, RelevanceScore: 80}
	cc := &types.CategoryConfig{Slug: "acessorios", MaxActive: 1, MaxStandby: 5, MaxNewPerDay: 10}
	a := NewCategoryAllocator(true, 3.0)

	decisions := a.Allocate(cc, []*types.Product{existing}, 0, 0, []AdmissionCandidate{
		admission("MLB12", "k12", 85, existing),
	})
	if got := outcomeOf(t, decisions, "MLB12"); got != OutcomeKeep {
		t.Errorf("MLB12 = %q, want keep", got)
	}
}
