package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

const recentSyncWindow = 7 * 24 * time.Hour

// ScoreCanonicalCandidate ranks a product inside a duplicate group. Higher
// means better survivor material: live, verified, curated and proven products
// outrank fresh unproven listings.
func ScoreCanonicalCandidate(p *types.Product, now time.Time) float64 {
	score := 0.0
	if p.IsActive {
		score += 280
	}
	if p.Status == types.StatusActive {
		score += 120
	}
	if p.AffiliateVerified {
		score += 160
	}
	if p.LastSyncedAt != nil && now.Sub(*p.LastSyncedAt) <= recentSyncWindow {
		score += 90
	}
	if p.ImageURL != "" {
		score += 40
	}
	if len(p.Description) >= 80 {
		score += 30
	}
	if p.Featured || p.ManualOverride {
		score += 40
	}
	score += math.Min(120, float64(p.MonitorCount)*10)
	score += math.Min(80, float64(p.ClickCount)/5)

	ageMonths := now.Sub(p.CreatedAt).Hours() / (24 * 30)
	score += math.Min(40, ageMonths*4)

	return score
}

// Demotion is the pending state change for a non-surviving duplicate.
type Demotion struct {
	Product *types.Product
	Reason  string
}

// CanonicalSelection is the outcome for one duplicate group.
type CanonicalSelection struct {
	Survivor *types.Product
	Demoted  []Demotion
	// Curated duplicates that lost the ranking but are protected from
	// automatic demotion; they need human review.
	SkippedCurated []*types.Product
}

// SelectCanonical picks one survivor for a group of products sharing an
// identity key. Curated products are never auto-demoted: when any member is
// curated the survivor comes from the curated subset and losing curated
// members are only reported.
func SelectCanonical(group []*types.Product, now time.Time) CanonicalSelection {
	if len(group) == 0 {
		return CanonicalSelection{}
	}
	if len(group) == 1 {
		return CanonicalSelection{Survivor: group[0]}
	}

	ranked := make([]*types.Product, len(group))
	copy(ranked, group)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ScoreCanonicalCandidate(ranked[i], now), ScoreCanonicalCandidate(ranked[j], now)
		if si != sj {
			return si > sj
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ExternalID < ranked[j].ExternalID
	})

	pool := ranked
	curated := make([]*types.Product, 0)
	for _, p := range ranked {
		if p.Curated() {
			curated = append(curated, p)
		}
	}
	if len(curated) > 0 {
		pool = curated
	}
	survivor := pool[0]

	sel := CanonicalSelection{Survivor: survivor}
	for _, p := range ranked {
		if p.ID == survivor.ID {
			continue
		}
		if p.Curated() {
			sel.SkippedCurated = append(sel.SkippedCurated, p)
			continue
		}
		sel.Demoted = append(sel.Demoted, Demotion{
			Product: p,
			Reason:  fmt.Sprintf("duplicate_of:%d", survivor.ID),
		})
	}
	return sel
}

// DemotionUpdates returns the field updates that park a duplicate loser.
func DemotionUpdates(reason string) map[string]interface{} {
	return map[string]interface{}{
		"is_active":           false,
		"status":              types.StatusStandby,
		"data_health_status":  types.HealthDuplicate,
		"deactivation_reason": reason,
	}
}
