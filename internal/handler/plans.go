package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"autodca/internal/models"
	"autodca/internal/service"
)

type PlanHandler struct {
	Plans *service.PlanService
}

type createPlanRequest struct {
	OwnerAddress      string `json:"owner_address" binding:"required"`
	SourceAsset       string `json:"source_asset" binding:"required"`
	TargetAsset       string `json:"target_asset" binding:"required"`
	AmountPerInterval string `json:"amount_per_interval" binding:"required"`
	IntervalSeconds   int64  `json:"interval_seconds" binding:"required"`
	MaxSlippageBps    int    `json:"max_slippage_bps"`
	MaxExecutions     *int   `json:"max_executions"`
	FirstExecutionAt  string `json:"first_execution_at" binding:"required"`
}

func (h *PlanHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/plans")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/executions", h.executions)
	group.POST("/:id/pause", h.pause)
	group.POST("/:id/resume", h.resume)
	group.POST("/:id/cancel", h.cancel)
	group.DELETE("/:id", h.remove)
}

// @Summary Create a recurring purchase plan
// @Tags plans
// @Accept json
// @Produce json
// @Param request body createPlanRequest true "plan definition"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans [post]
func (h *PlanHandler) create(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "plan service unavailable", nil)
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.AmountPerInterval))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid amount_per_interval", nil)
		return
	}
	firstAt, err := time.Parse(time.RFC3339, req.FirstExecutionAt)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid first_execution_at, expected RFC3339", nil)
		return
	}
	plan, err := h.Plans.CreatePlan(c.Request.Context(), models.NewPlanInput{
		OwnerAddress:      req.OwnerAddress,
		SourceAsset:       req.SourceAsset,
		TargetAsset:       req.TargetAsset,
		AmountPerInterval: amount,
		IntervalSeconds:   req.IntervalSeconds,
		MaxSlippageBps:    req.MaxSlippageBps,
		MaxExecutions:     req.MaxExecutions,
		FirstExecutionAt:  firstAt.UTC(),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, plan, nil)
}

// @Summary List plans
// @Tags plans
// @Param owner query string false "owner address"
// @Param status query string false "plan status filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans [get]
func (h *PlanHandler) list(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "plan service unavailable", nil)
		return
	}
	owner := strings.TrimSpace(c.Query("owner"))
	status := strQueryPtr(c, "status")
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Plans.ListPlans(c.Request.Context(), owner, status, limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	meta := paginationMeta(limit, offset, len(items))
	Ok(c, items, meta)
}

// @Summary Get a plan with live status
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id} [get]
func (h *PlanHandler) get(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	plan, err := h.Plans.GetPlan(c.Request.Context(), owner, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, plan, nil)
}

// @Summary List execution attempts of a plan
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id}/executions [get]
func (h *PlanHandler) executions(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	// Ownership check first so attempts are not enumerable by plan id.
	if _, err := h.Plans.GetPlan(c.Request.Context(), owner, id); err != nil {
		Fail(c, err)
		return
	}
	limit := intQuery(c, "limit", 50)
	items, err := h.Plans.Repo.ListExecutionsByPlanID(c.Request.Context(), id, limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Pause a plan
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id}/pause [post]
func (h *PlanHandler) pause(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	if err := h.Plans.PausePlan(c.Request.Context(), owner, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"status": models.PlanStatusPaused}, nil)
}

// @Summary Resume a paused plan
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id}/resume [post]
func (h *PlanHandler) resume(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	if err := h.Plans.ResumePlan(c.Request.Context(), owner, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"status": models.PlanStatusActive}, nil)
}

// @Summary Cancel a plan
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id}/cancel [post]
func (h *PlanHandler) cancel(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	if err := h.Plans.CancelPlan(c.Request.Context(), owner, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"status": models.PlanStatusCancelled}, nil)
}

// @Summary Remove a terminal plan
// @Tags plans
// @Param id path int true "plan id"
// @Success 200 {object} apiResponse
// @Router /api/v1/plans/{id} [delete]
func (h *PlanHandler) remove(c *gin.Context) {
	owner, id, ok := h.ownedParams(c)
	if !ok {
		return
	}
	if err := h.Plans.RemovePlan(c.Request.Context(), owner, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"removed": true}, nil)
}

func (h *PlanHandler) ownedParams(c *gin.Context) (string, uint64, bool) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "plan service unavailable", nil)
		return "", 0, false
	}
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return "", 0, false
	}
	owner := strings.TrimSpace(c.Query("owner"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "owner query parameter required", nil)
		return "", 0, false
	}
	return owner, id, true
}
