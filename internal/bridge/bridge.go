// Package bridge owns the shared custodial account used to execute swaps in
// the EVM side environment on behalf of users. Pulls are always addressed to
// an exact (owner, amount) pair and verified against that owner's allowance,
// never a pooled balance, so cross-user interference cannot occur.
package bridge

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autodca/internal/models"
)

// Backend abstracts the EVM environment the bridge account operates in.
// Amounts are in token units; implementations resolve base-unit scaling.
type Backend interface {
	// Allowance the owner has granted to the bridge account for token.
	Allowance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error)
	GasBalance(ctx context.Context, account common.Address) (decimal.Decimal, error)

	// PullExact executes transferFrom(owner, bridge, amount). All or nothing.
	PullExact(ctx context.Context, owner, token common.Address, amount decimal.Decimal) error
	// Transfer moves token from the bridge account's own balance.
	Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal) error

	// QuoteSwap returns the expected output of a router swap at the current
	// pool state, fee applied.
	QuoteSwap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn decimal.Decimal) (decimal.Decimal, error)
	// Swap executes the router swap from the bridge account's balance with
	// the minimum-output bound enforced by the pool, delivering to recipient.
	Swap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn, minOut decimal.Decimal, recipient common.Address) (decimal.Decimal, error)
}

// Account is the bridge account service: the custodial address, its backend,
// and the operational gas floor.
type Account struct {
	Backend       Backend
	Address       common.Address
	MinGasBalance decimal.Decimal
	Logger        *zap.Logger
}

// EnsureGas fails with the operational gas error when the bridge account
// cannot fund its own transactions.
func (a *Account) EnsureGas(ctx context.Context) error {
	bal, err := a.Backend.GasBalance(ctx, a.Address)
	if err != nil {
		return err
	}
	if bal.LessThan(a.MinGasBalance) {
		return fmt.Errorf("%w: bridge account %s holds %s, floor %s",
			models.ErrInsufficientGas, a.Address.Hex(), bal.String(), a.MinGasBalance.String())
	}
	return nil
}

// VerifyAllowance fails fast when the owner's allowance cannot cover amount.
// No partial pull is ever attempted.
func (a *Account) VerifyAllowance(ctx context.Context, owner, token common.Address, amount decimal.Decimal) error {
	allowance, err := a.Backend.Allowance(ctx, owner, token)
	if err != nil {
		return err
	}
	if allowance.LessThan(amount) {
		return fmt.Errorf("%w: allowance %s, need %s",
			models.ErrInsufficientAllowance, allowance.String(), amount.String())
	}
	return nil
}

// ParseAddress validates and parses a user-supplied EVM address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid EVM address %q", models.ErrNotConfigured, s)
	}
	return common.HexToAddress(s), nil
}
