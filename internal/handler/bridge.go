package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"autodca/internal/bridge"
	"autodca/internal/config"
	"autodca/internal/models"
)

// BridgeHandler exposes read-only views of the shared bridge account so
// owners can verify the address they must grant allowance to and check how
// much they have granted.
type BridgeHandler struct {
	Bridge *bridge.Account
	Assets config.AssetRegistry
}

func (h *BridgeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/bridge")
	group.GET("/address", h.address)
	group.GET("/balance", h.balance)
	group.GET("/allowance", h.allowance)
}

// @Summary Bridge account address
// @Tags bridge
// @Success 200 {object} apiResponse
// @Router /api/v1/bridge/address [get]
func (h *BridgeHandler) address(c *gin.Context) {
	if h.Bridge == nil {
		Error(c, http.StatusServiceUnavailable, "bridge account unavailable", nil)
		return
	}
	Ok(c, gin.H{
		"address":         h.Bridge.Address.Hex(),
		"min_gas_balance": h.Bridge.MinGasBalance.String(),
	}, nil)
}

// @Summary Bridge account gas and token balances
// @Tags bridge
// @Param asset query string false "asset symbol"
// @Success 200 {object} apiResponse
// @Router /api/v1/bridge/balance [get]
func (h *BridgeHandler) balance(c *gin.Context) {
	if h.Bridge == nil {
		Error(c, http.StatusServiceUnavailable, "bridge account unavailable", nil)
		return
	}
	gas, err := h.Bridge.Backend.GasBalance(c.Request.Context(), h.Bridge.Address)
	if err != nil {
		Fail(c, err)
		return
	}
	resp := gin.H{"gas_balance": gas.String()}
	if symbol := strings.TrimSpace(c.Query("asset")); symbol != "" {
		token, err := h.tokenAddress(symbol)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		bal, err := h.Bridge.Backend.TokenBalance(c.Request.Context(), h.Bridge.Address, token)
		if err != nil {
			Fail(c, err)
			return
		}
		resp["asset"] = symbol
		resp["token_balance"] = bal.String()
	}
	Ok(c, resp, nil)
}

// @Summary Allowance an owner has granted to the bridge account
// @Tags bridge
// @Param owner query string true "owner EVM address"
// @Param asset query string true "asset symbol"
// @Success 200 {object} apiResponse
// @Router /api/v1/bridge/allowance [get]
func (h *BridgeHandler) allowance(c *gin.Context) {
	if h.Bridge == nil {
		Error(c, http.StatusServiceUnavailable, "bridge account unavailable", nil)
		return
	}
	owner, err := bridge.ParseAddress(strings.TrimSpace(c.Query("owner")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid owner address", nil)
		return
	}
	symbol := strings.TrimSpace(c.Query("asset"))
	token, err := h.tokenAddress(symbol)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	allowance, err := h.Bridge.Backend.Allowance(c.Request.Context(), owner, token)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{
		"owner":     owner.Hex(),
		"asset":     symbol,
		"spender":   h.Bridge.Address.Hex(),
		"allowance": allowance.String(),
	}, nil)
}

func (h *BridgeHandler) tokenAddress(symbol string) (addr common.Address, err error) {
	asset, ok := h.Assets[symbol]
	if !ok {
		return addr, fmt.Errorf("unknown asset %q", symbol)
	}
	if asset.Address == "" {
		return addr, fmt.Errorf("%w: asset %q has no token address", models.ErrNotConfigured, symbol)
	}
	return bridge.ParseAddress(asset.Address)
}
