package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/dto"
	"github.com/SscSPs/recurring_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ruleHandler handles HTTP requests for recurrence rules.
type ruleHandler struct {
	ruleService portssvc.RuleSvcFacade
}

func newRuleHandler(rs portssvc.RuleSvcFacade) *ruleHandler {
	return &ruleHandler{ruleService: rs}
}

// registerRuleRoutes registers routes related to recurrence rules.
func registerRuleRoutes(rg *gin.RouterGroup, ruleService portssvc.RuleSvcFacade) {
	h := newRuleHandler(ruleService)

	rules := rg.Group("/rules")
	{
		rules.POST("", h.createRule)
		rules.GET("", h.listRules)
		rules.GET("/:ruleID", h.getRule)
		rules.PATCH("/:ruleID", h.updateRule)
		rules.POST("/:ruleID/pause", h.pauseRule)
		rules.POST("/:ruleID/resume", h.resumeRule)
		rules.POST("/:ruleID/cancel", h.cancelRule)
		rules.GET("/:ruleID/occurrences", h.listOccurrences)
		rules.GET("/:ruleID/upcoming", h.upcoming)
	}
}

// requestScope pulls the logger and authenticated user; it writes 401 and returns false when absent.
func requestScope(c *gin.Context) (*slog.Logger, string, bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return logger, "", false
	}
	return logger, userID, true
}

// createRule godoc
// @Summary Create a recurrence rule
// @Description Creates an ACTIVE rule whose first occurrence is its start date
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   rule body dto.CreateRuleRequest true "Rule terms"
// @Success 201 {object} dto.RuleResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create rule"
// @Security BearerAuth
// @Router /rules [post]
func (h *ruleHandler) createRule(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to create rule")
		return
	}
	c.JSON(http.StatusCreated, dto.ToRuleResponse(rule))
}

// listRules godoc
// @Summary List recurrence rules
// @Description Lists the logged-in user's rules, oldest first
// @Tags rules
// @Produce  json
// @Param   status query string false "Filter by status" Enums(ACTIVE, PAUSED, CANCELLED, ERROR)
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} map[string][]dto.RuleResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list rules"
// @Security BearerAuth
// @Router /rules [get]
func (h *ruleHandler) listRules(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	var params dto.ListRulesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListRules", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, logger, err, "Failed to list rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": dto.ToListRuleResponse(rules)})
}

// getRule godoc
// @Summary Get a recurrence rule
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to retrieve rule"
// @Security BearerAuth
// @Router /rules/{ruleID} [get]
func (h *ruleHandler) getRule(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), c.Param("ruleID"), userID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve rule")
		return
	}
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// updateRule godoc
// @Summary Update a recurrence rule
// @Description Edits the terms of a non-cancelled rule. Pass version to guard against concurrent edits.
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Param   rule body dto.UpdateRuleRequest true "Fields to change"
// @Success 200 {object} dto.RuleResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 409 {object} map[string]string "Rule changed or is cancelled"
// @Failure 500 {object} map[string]string "Failed to update rule"
// @Security BearerAuth
// @Router /rules/{ruleID} [patch]
func (h *ruleHandler) updateRule(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("ruleID"), req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to update rule")
		return
	}
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// pauseRule godoc
// @Summary Pause a recurrence rule
// @Description Stops generation. The next due date is kept; later dates that fall due while paused are skipped.
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 409 {object} map[string]string "Rule is not ACTIVE"
// @Failure 500 {object} map[string]string "Failed to pause rule"
// @Security BearerAuth
// @Router /rules/{ruleID}/pause [post]
func (h *ruleHandler) pauseRule(c *gin.Context) {
	h.lifecycle(c, h.ruleService.PauseRule, "Failed to pause rule")
}

// resumeRule godoc
// @Summary Resume a recurrence rule
// @Description Reactivates a PAUSED or ERROR rule. Dates owed from before a pause are still generated.
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 409 {object} map[string]string "Rule is not PAUSED or ERROR"
// @Failure 500 {object} map[string]string "Failed to resume rule"
// @Security BearerAuth
// @Router /rules/{ruleID}/resume [post]
func (h *ruleHandler) resumeRule(c *gin.Context) {
	h.lifecycle(c, h.ruleService.ResumeRule, "Failed to resume rule")
}

// cancelRule godoc
// @Summary Cancel a recurrence rule
// @Description Permanently stops the rule. Existing occurrences are kept.
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 409 {object} map[string]string "Rule is already cancelled"
// @Failure 500 {object} map[string]string "Failed to cancel rule"
// @Security BearerAuth
// @Router /rules/{ruleID}/cancel [post]
func (h *ruleHandler) cancelRule(c *gin.Context) {
	h.lifecycle(c, h.ruleService.CancelRule, "Failed to cancel rule")
}

type lifecycleFunc func(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error)

// lifecycle runs a pause/resume/cancel operation for the rule in the path.
func (h *ruleHandler) lifecycle(c *gin.Context, op lifecycleFunc, failureMsg string) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}
	ruleID := c.Param("ruleID")
	rule, err := op(c.Request.Context(), ruleID, userID)
	if err != nil {
		respondError(c, logger.With(slog.String("rule_id", ruleID)), err, failureMsg)
		return
	}
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// listOccurrences godoc
// @Summary List a rule's occurrences
// @Description Pages through materialized occurrences in date order
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListOccurrencesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to list occurrences"
// @Security BearerAuth
// @Router /rules/{ruleID}/occurrences [get]
func (h *ruleHandler) listOccurrences(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	var params dto.ListOccurrencesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListOccurrences", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.ruleService.ListOccurrences(c.Request.Context(), c.Param("ruleID"), userID, params)
	if err != nil {
		respondError(c, logger, err, "Failed to list occurrences")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// upcoming godoc
// @Summary Project upcoming dates
// @Description Lists the next dates the rule will generate, without writing anything
// @Tags rules
// @Produce  json
// @Param   ruleID path string true "Rule ID"
// @Param   count query int false "How many dates" default(5)
// @Success 200 {object} dto.UpcomingResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to project occurrences"
// @Security BearerAuth
// @Router /rules/{ruleID}/upcoming [get]
func (h *ruleHandler) upcoming(c *gin.Context) {
	logger, userID, ok := requestScope(c)
	if !ok {
		return
	}

	var params dto.UpcomingParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for Upcoming", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	ruleID := c.Param("ruleID")
	dates, err := h.ruleService.UpcomingOccurrences(c.Request.Context(), ruleID, userID, params.Count)
	if err != nil {
		respondError(c, logger, err, "Failed to project occurrences")
		return
	}

	resp := dto.UpcomingResponse{RuleID: ruleID, Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.Format(dto.DateLayout)
	}
	c.JSON(http.StatusOK, resp)
}
