// Package swap executes one plan firing: it moves funds from source to
// target asset through the native vault/router or through the EVM bridge
// account, enforcing the plan's slippage bound. Each call is atomic: either
// the full amount is traded and a valid output delivered, or balances are
// left untouched and a typed failure is reported.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autodca/internal/bridge"
	"autodca/internal/config"
	"autodca/internal/ledger"
	"autodca/internal/models"
	"autodca/internal/slippage"
)

type Config struct {
	Timeout    time.Duration
	FeeTierBps int
}

type Service struct {
	Assets config.AssetRegistry
	Vault  ledger.Vault
	Router ledger.Router
	Bridge *bridge.Account
	Logger *zap.Logger
	Config Config
}

// Execute performs one swap for the plan. It never returns an error: every
// failure mode is folded into the outcome so the scheduler can record it.
func (s *Service) Execute(ctx context.Context, ctrl *models.Controller, plan *models.Plan) models.ExecutionOutcome {
	outcome := models.ExecutionOutcome{
		AttemptID: uuid.NewString(),
		AmountIn:  plan.AmountPerInterval,
		MinOutput: decimal.Zero,
		AmountOut: decimal.Zero,
	}

	timeout := s.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.execute(ctx, ctrl, plan, &outcome)
	if err == nil {
		outcome.Success = true
		return outcome
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", models.ErrSwapTimeout, err)
	}
	outcome.Reason = models.FailureReason(err)
	if s.Logger != nil {
		s.Logger.Warn("swap execution failed",
			zap.Uint64("plan_id", plan.ID),
			zap.String("attempt_id", outcome.AttemptID),
			zap.String("reason", outcome.Reason),
			zap.Error(err),
		)
	}
	return outcome
}

func (s *Service) execute(ctx context.Context, ctrl *models.Controller, plan *models.Plan, outcome *models.ExecutionOutcome) error {
	source, ok := s.Assets[plan.SourceAsset]
	if !ok {
		return fmt.Errorf("%w: unknown source asset %s", models.ErrNotConfigured, plan.SourceAsset)
	}
	target, ok := s.Assets[plan.TargetAsset]
	if !ok {
		return fmt.Errorf("%w: unknown target asset %s", models.ErrNotConfigured, plan.TargetAsset)
	}
	if ctrl == nil {
		return fmt.Errorf("%w: no controller for owner %s", models.ErrNotConfigured, plan.OwnerAddress)
	}

	// The bridged path is taken when the source funds live on the EVM side;
	// cross-representation targets are the designated pool's concern.
	if source.Environment == config.EnvEVM {
		return s.executeBridged(ctx, ctrl, plan, source, target, outcome)
	}
	return s.executeNative(ctx, ctrl, plan, outcome)
}

func (s *Service) executeNative(ctx context.Context, ctrl *models.Controller, plan *models.Plan, outcome *models.ExecutionOutcome) error {
	if !ctrl.HasVaultCapability() {
		return fmt.Errorf("%w: vault capability not configured for %s", models.ErrNotConfigured, plan.OwnerAddress)
	}
	amount := plan.AmountPerInterval

	expected, err := s.Router.Quote(ctx, plan.SourceAsset, plan.TargetAsset, amount)
	if err != nil {
		return err
	}
	minOut := slippage.MinOutput(expected, plan.MaxSlippageBps)
	outcome.MinOutput = minOut

	funds, err := s.Vault.Withdraw(ctx, *ctrl.VaultRef, plan.SourceAsset, amount)
	if err != nil {
		return err
	}
	received, err := s.Router.SwapExactIn(ctx, plan.SourceAsset, plan.TargetAsset, funds, minOut)
	if err != nil {
		// The input handle is unconsumed on failure; return it to the vault
		// it was withdrawn from so a failed firing leaves balances untouched.
		if derr := s.Vault.Deposit(ctx, *ctrl.VaultRef, plan.SourceAsset, funds); derr != nil && s.Logger != nil {
			s.Logger.Error("failed to return funds after aborted swap",
				zap.Uint64("plan_id", plan.ID), zap.Error(derr))
		}
		return err
	}
	outcome.AmountOut = received.Amount()
	return s.Vault.Deposit(ctx, plan.OwnerAddress, plan.TargetAsset, received)
}

func (s *Service) executeBridged(ctx context.Context, ctrl *models.Controller, plan *models.Plan, source, target config.AssetConfig, outcome *models.ExecutionOutcome) error {
	if s.Bridge == nil {
		return fmt.Errorf("%w: bridge account not configured", models.ErrNotConfigured)
	}
	if !ctrl.HasEVMCapability() {
		return fmt.Errorf("%w: EVM address not configured for %s", models.ErrNotConfigured, plan.OwnerAddress)
	}
	owner, err := bridge.ParseAddress(*ctrl.EVMAddress)
	if err != nil {
		return err
	}
	tokenIn := common.HexToAddress(source.Address)
	tokenOut := common.HexToAddress(target.Address)
	amount := plan.AmountPerInterval

	if err := s.Bridge.EnsureGas(ctx); err != nil {
		return err
	}
	if err := s.Bridge.VerifyAllowance(ctx, owner, tokenIn, amount); err != nil {
		return err
	}

	expected, err := s.Bridge.Backend.QuoteSwap(ctx, tokenIn, tokenOut, s.Config.FeeTierBps, amount)
	if err != nil {
		return err
	}
	minOut := slippage.MinOutput(expected, plan.MaxSlippageBps)
	outcome.MinOutput = minOut

	if err := s.Bridge.Backend.PullExact(ctx, owner, tokenIn, amount); err != nil {
		return err
	}

	// A native target is swapped to its bridged representation with the
	// bridge account as recipient, then handed back through the vault.
	recipient := owner
	bridgeBack := target.Environment == config.EnvNative
	if bridgeBack {
		recipient = s.Bridge.Address
	}

	received, err := s.Bridge.Backend.Swap(ctx, tokenIn, tokenOut, s.Config.FeeTierBps, amount, minOut, recipient)
	if err != nil {
		s.refund(ctx, plan, tokenIn, owner, amount)
		return err
	}
	if received.LessThan(minOut) {
		s.refund(ctx, plan, tokenIn, owner, amount)
		return fmt.Errorf("%w: output %s below minimum %s", models.ErrSlippageExceeded, received.String(), minOut.String())
	}
	outcome.AmountOut = received

	if bridgeBack {
		if err := s.Vault.Deposit(ctx, plan.OwnerAddress, plan.TargetAsset, ledger.NewFunds(plan.TargetAsset, received)); err != nil {
			return err
		}
	}
	return nil
}

// refund returns a pulled amount to its owner after an aborted swap. A
// failed refund leaves funds in the bridge account and must be reconciled
// operationally, so it is logged at error level.
func (s *Service) refund(ctx context.Context, plan *models.Plan, token, owner common.Address, amount decimal.Decimal) {
	if err := s.Bridge.Backend.Transfer(ctx, token, owner, amount); err != nil && s.Logger != nil {
		s.Logger.Error("failed to refund pulled funds after aborted swap",
			zap.Uint64("plan_id", plan.ID),
			zap.String("owner", owner.Hex()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
	}
}
