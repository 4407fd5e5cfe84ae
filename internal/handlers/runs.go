package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
)

type RunsHandler struct {
	log        *logger.Logger
	runs       repos.ReconcileRunRepo
	reconciler *services.Reconciler
	ingestor   *services.Ingestor
}

func NewRunsHandler(log *logger.Logger, runs repos.ReconcileRunRepo, reconciler *services.Reconciler, ingestor *services.Ingestor) *RunsHandler {
	return &RunsHandler{
		log:        log.With("handler", "RunsHandler"),
		runs:       runs,
		reconciler: reconciler,
		ingestor:   ingestor,
	}
}

// ListRuns returns the most recent batch runs of one kind.
// GET /api/admin/runs?kind=reconcile&limit=20
func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.ListRecent(c.Request.Context(), nil, c.Query("kind"), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "run_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

// TriggerReconcile starts a reconciliation batch in the background. The run
// lock keeps concurrent triggers harmless.
func (h *RunsHandler) TriggerReconcile(c *gin.Context) {
	go func() {
		if _, err := h.reconciler.Run(context.Background()); err != nil {
			h.log.Error("Triggered reconcile run failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "reconcile_started"})
}

// TriggerIngest starts an ingestion batch in the background.
func (h *RunsHandler) TriggerIngest(c *gin.Context) {
	go func() {
		if _, err := h.ingestor.Run(context.Background()); err != nil {
			h.log.Error("Triggered ingest run failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "ingest_started"})
}
