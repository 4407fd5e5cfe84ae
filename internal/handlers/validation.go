package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
)

type ValidationHandler struct {
	log     *logger.Logger
	applier *services.ValidationApplier
}

func NewValidationHandler(log *logger.Logger, applier *services.ValidationApplier) *ValidationHandler {
	return &ValidationHandler{log: log.With("handler", "ValidationHandler"), applier: applier}
}

type applyBatchRequest struct {
	ApprovedItemIDs []uint `json:"approved_item_ids"`
}

// ApplyBatch applies a reviewed affiliate-link batch. Items listed in the
// request body are approved; every other pending item is treated as rejected.
// POST /api/admin/validation-batches/:id/apply
func (h *ValidationHandler) ApplyBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return
	}
	var req applyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	approved := make(map[uint]bool, len(req.ApprovedItemIDs))
	for _, id := range req.ApprovedItemIDs {
		approved[id] = true
	}

	report, err := h.applier.ApplyBatch(c.Request.Context(), batchID, approved)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "batch_apply_failed", err)
		return
	}
	RespondOK(c, report)
}
