package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
)

type MismatchHandler struct {
	log        *logger.Logger
	mismatches repos.PriceMismatchRepo
}

func NewMismatchHandler(log *logger.Logger, mismatches repos.PriceMismatchRepo) *MismatchHandler {
	return &MismatchHandler{log: log.With("handler", "MismatchHandler"), mismatches: mismatches}
}

// ListCases pages mismatch cases by status.
// GET /api/admin/mismatches?status=OPEN&after_id=0&limit=100
func (h *MismatchHandler) ListCases(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	afterID, _ := strconv.ParseUint(c.DefaultQuery("after_id", "0"), 10, 64)

	cases, err := h.mismatches.ListByStatus(c.Request.Context(), nil, c.Query("status"), uint(afterID), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "mismatch_list_failed", err)
		return
	}

	openCritical, err := h.mismatches.CountOpenCriticalOnActive(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "mismatch_count_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"cases":                 cases,
		"open_critical_on_active": openCritical,
	})
}
