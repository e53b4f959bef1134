package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// schedulerHandler exposes a manual trigger for one scheduler pass.
type schedulerHandler struct {
	scheduler portssvc.SchedulerSvc
	now       func() time.Time
}

func registerSchedulerRoutes(rg *gin.RouterGroup, scheduler portssvc.SchedulerSvc) {
	h := &schedulerHandler{scheduler: scheduler, now: time.Now}
	rg.POST("/scheduler/run", h.run)
}

// run godoc
// @Summary Run a scheduler pass
// @Description Materializes every occurrence due as of the given instant, or now. Passes are idempotent.
// @Tags scheduler
// @Accept  json
// @Produce  json
// @Param   run body dto.RunSchedulerRequest false "Pass options"
// @Success 200 {object} domain.RunSummary
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Scheduler run failed"
// @Security BearerAuth
// @Router /scheduler/run [post]
func (h *schedulerHandler) run(c *gin.Context) {
	logger, _, ok := requestScope(c)
	if !ok {
		return
	}

	var req dto.RunSchedulerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for RunScheduler", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	asOf := h.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	summary, err := h.scheduler.RunDue(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, logger, err, "Scheduler run failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}
