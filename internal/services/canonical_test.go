package services

import (
	"testing"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

func TestSelectCanonicalActiveVerifiedSurvives(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)

	strong := &types.Product{
		ID: 1, ExternalID: "MLB1",
		IsActive: true, Status: types.StatusActive,
		AffiliateVerified: true, AffiliateLink: "https://afl/1",
		LastSyncedAt: &recent,
		CreatedAt:    now.Add(-90 * 24 * time.Hour),
	}
	fresh := &types.Product{
		ID: 2, ExternalID: "MLB2",
		Status:    types.StatusStandby,
		CreatedAt: now.Add(-time.Hour),
	}
	stale := &types.Product{
		ID: 3, ExternalID: "MLB3",
		Status:    types.StatusStandby,
		ImageURL:  "https://img/3.jpg",
		CreatedAt: now.Add(-10 * 24 * time.Hour),
	}

	orderings := [][]*types.Product{
		{strong, fresh, stale},
		{stale, fresh, strong},
		{fresh, strong, stale},
	}
	for i, group := range orderings {
		sel := SelectCanonical(group, now)
		if sel.Survivor == nil || sel.Survivor.ID != strong.ID {
			t.Fatalf("ordering %d: survivor = %+v, want product 1", i, sel.Survivor)
		}
		if len(sel.Demoted) != 2 {
			t.Fatalf("ordering %d: demoted = %d, want 2", i, len(sel.Demoted))
		}
		for _, d := range sel.Demoted {
			if d.Reason != "duplicate_of:1" {
				t.Errorf("ordering %d: demotion reason = %q", i, d.Reason)
			}
		}
	}
}

func TestSelectCanonicalCuratedProtection(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)

	// Highest raw score but not curated.
	leader := &types.Product{
		ID: 1, ExternalID: "MLB1",
		IsActive: true, Status: types.StatusActive,
		LastSyncedAt: &recent,
		MonitorCount: 12,
		CreatedAt:    now.Add(-365 * 24 * time.Hour),
	}
	curatedA := &types.Product{
		ID: 2, ExternalID: "MLB2",
		Featured:  true,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}
	curatedB := &types.Product{
		ID: 3, ExternalID: "MLB3",
		ManualOverride: true,
		CreatedAt:      now.Add(-5 * 24 * time.Hour),
	}

	sel := SelectCanonical([]*types.Product{leader, curatedA, curatedB}, now)
	if sel.Survivor == nil || !sel.Survivor.Curated() {
		t.Fatalf("survivor must come from the curated subset, got %+v", sel.Survivor)
	}
	if len(sel.SkippedCurated) != 1 {
		t.Errorf("SkippedCurated = %d, want 1 (the losing curated member)", len(sel.SkippedCurated))
	}
	for _, d := range sel.Demoted {
		if d.Product.Curated() {
			t.Errorf("curated product %d must never be auto-demoted", d.Product.ID)
		}
	}
}

func TestSelectCanonicalDeterministicTieBreak(t *testing.T) {
	now := time.Now()
	created := now.Add(-48 * time.Hour)
	a := &types.Product{ID: 1, ExternalID: "MLB1", CreatedAt: created}
	b := &types.Product{ID: 2, ExternalID: "MLB2", CreatedAt: created}

	first := SelectCanonical([]*types.Product{a, b}, now)
	second := SelectCanonical([]*types.Product{b, a}, now)
	if first.Survivor.ID != second.Survivor.ID {
		t.Errorf("tie break not deterministic: %d vs %d", first.Survivor.ID, second.Survivor.ID)
	}
	if first.Survivor.ExternalID != "MLB1" {
		t.Errorf("tie should break on external id, got %q", first.Survivor.ExternalID)
	}
}

func TestSelectCanonicalSingletonAndEmpty(t *testing.T) {
	now := time.Now()
	if sel := SelectCanonical(nil, now); sel.Survivor != nil {
		t.Error("empty group must have no survivor")
	}
	only := &types.Product{ID: 7, ExternalID: "MLB7"}
	sel := SelectCanonical([]*types.Product{only}, now)
	if sel.Survivor != only || len(sel.Demoted) != 0 {
		t.Errorf("singleton group: survivor %+v demoted %d", sel.Survivor, len(sel.Demoted))
	}
}
