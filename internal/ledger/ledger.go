// Package ledger is the boundary to the native asset environment: vault
// access through capability references and swap execution against the
// designated pool. The host ledger is a black-box service; Memory is the
// in-process implementation used for dry-run mode and tests.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Funds is a non-duplicable handle to in-flight native funds. A handle is
// consumed exactly once: delivered to a destination or returned to its
// origin before the operation completes.
type Funds struct {
	asset    string
	amount   decimal.Decimal
	consumed bool
}

func NewFunds(asset string, amount decimal.Decimal) *Funds {
	return &Funds{asset: asset, amount: amount}
}

func (f *Funds) Asset() string {
	return f.asset
}

func (f *Funds) Amount() decimal.Decimal {
	return f.amount
}

// Consume marks the handle spent and yields its amount. A second consume is
// a programming error surfaced loudly rather than a silent double-spend.
func (f *Funds) Consume() (decimal.Decimal, error) {
	if f == nil {
		return decimal.Zero, errors.New("nil funds handle")
	}
	if f.consumed {
		return decimal.Zero, errors.New("funds handle already consumed")
	}
	f.consumed = true
	return f.amount, nil
}

// Vault is capability-scoped access to owners' native vaults. The vaultRef
// is the stored capability reference, never a raw credential.
type Vault interface {
	Withdraw(ctx context.Context, vaultRef string, asset string, amount decimal.Decimal) (*Funds, error)
	Deposit(ctx context.Context, owner string, asset string, funds *Funds) error
}

// Router executes swaps against the designated pool for an asset pair.
type Router interface {
	Quote(ctx context.Context, sourceAsset, targetAsset string, amountIn decimal.Decimal) (decimal.Decimal, error)
	// SwapExactIn trades the funds handle for target-asset funds. On failure
	// the input handle is left unconsumed so the caller can return it.
	SwapExactIn(ctx context.Context, sourceAsset, targetAsset string, funds *Funds, minOut decimal.Decimal) (*Funds, error)
}
