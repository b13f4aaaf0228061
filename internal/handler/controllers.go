package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"autodca/internal/service"
)

type ControllerHandler struct {
	Plans *service.PlanService
}

type configureControllerRequest struct {
	VaultRef   *string `json:"vault_ref"`
	EVMAddress *string `json:"evm_address"`
}

func (h *ControllerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/controllers")
	group.GET("/:address/status", h.status)
	group.PUT("/:address/capabilities", h.configure)
}

// @Summary Controller status for an owner
// @Tags controllers
// @Param address path string true "owner address"
// @Success 200 {object} apiResponse
// @Router /api/v1/controllers/{address}/status [get]
func (h *ControllerHandler) status(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "plan service unavailable", nil)
		return
	}
	owner := strings.TrimSpace(c.Param("address"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "invalid address", nil)
		return
	}
	status, err := h.Plans.ControllerStatus(c.Request.Context(), owner)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, status, nil)
}

// @Summary Configure controller capabilities
// @Tags controllers
// @Accept json
// @Param address path string true "owner address"
// @Param request body configureControllerRequest true "capability references"
// @Success 200 {object} apiResponse
// @Router /api/v1/controllers/{address}/capabilities [put]
func (h *ControllerHandler) configure(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "plan service unavailable", nil)
		return
	}
	owner := strings.TrimSpace(c.Param("address"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "invalid address", nil)
		return
	}
	var req configureControllerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	ctrl, err := h.Plans.ConfigureController(c.Request.Context(), owner, req.VaultRef, req.EVMAddress)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, ctrl, nil)
}
