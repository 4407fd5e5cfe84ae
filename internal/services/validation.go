package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type BatchApplyReport struct {
	BatchID     uuid.UUID `json:"batch_id"`
	Applied     int       `json:"applied"`
	Invalidated int       `json:"invalidated"`
	Skipped     int       `json:"skipped"`
	Errors      []string  `json:"errors,omitempty"`
}

// ValidationApplier consumes the result of a human affiliate-link validation
// batch. Approved links are written through and mark the product verified;
// rejected links demote the product immediately with BROKEN_OFFER_URL.
type ValidationApplier struct {
	log      *logger.Logger
	products repos.ProductRepo
	batches  repos.ValidationBatchRepo
}

func NewValidationApplier(baseLog *logger.Logger, products repos.ProductRepo, batches repos.ValidationBatchRepo) *ValidationApplier {
	return &ValidationApplier{
		log:      baseLog.With("service", "ValidationApplier"),
		products: products,
		batches:  batches,
	}
}

// ApplyBatch walks the batch's pending items. Items whose product vanished
// are skipped, not failed; every other item moves to APPLIED or INVALID.
func (v *ValidationApplier) ApplyBatch(ctx context.Context, batchID uuid.UUID, approved map[uint]bool) (BatchApplyReport, error) {
	report := BatchApplyReport{BatchID: batchID}

	batch, err := v.batches.GetByID(ctx, nil, batchID)
	if err != nil {
		return report, err
	}
	if batch == nil {
		return report, fmt.Errorf("validation batch %s not found", batchID)
	}

	items, err := v.batches.ListItemsByStatus(ctx, nil, batchID, types.ApplyPending)
	if err != nil {
		return report, err
	}

	for _, item := range items {
		p, err := v.products.GetByID(ctx, nil, item.ProductID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
			continue
		}
		if p == nil {
			if err := v.batches.UpdateItemFields(ctx, nil, item.ID, map[string]interface{}{
				"apply_status": types.ApplySkipped,
			}); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
				continue
			}
			report.Skipped++
			continue
		}

		if approved[item.ID] {
			if err := v.products.UpdateFields(ctx, nil, p.ID, map[string]interface{}{
				"affiliate_link":     item.ProposedLink,
				"affiliate_verified": true,
			}); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
				continue
			}
			if err := v.batches.UpdateItemFields(ctx, nil, item.ID, map[string]interface{}{
				"apply_status": types.ApplyApplied,
			}); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
				continue
			}
			report.Applied++
			continue
		}

		// A rejected link is a broken storefront path: the product leaves the
		// active set without waiting for the next reconcile cycle.
		if err := v.products.UpdateFields(ctx, nil, p.ID, map[string]interface{}{
			"affiliate_verified":  false,
			"data_health_status":  types.HealthBrokenOffer,
			"is_active":           false,
			"status":              types.StatusStandby,
			"deactivation_reason": "broken_offer_url",
		}); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
			continue
		}
		if err := v.batches.UpdateItemFields(ctx, nil, item.ID, map[string]interface{}{
			"apply_status": types.ApplyInvalid,
		}); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
			continue
		}
		report.Invalidated++
	}

	v.log.Info("Validation batch applied",
		"batch_id", batchID,
		"applied", report.Applied,
		"invalidated", report.Invalidated,
		"skipped", report.Skipped)
	return report, nil
}
