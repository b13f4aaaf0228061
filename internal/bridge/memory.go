package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"autodca/internal/models"
)

type pairKey struct {
	in  common.Address
	out common.Address
}

// MemoryBackend is an in-process EVM environment for dry-run mode and tests:
// per-owner token balances and allowances, a gas ledger, and fixed pool
// prices. Permissive mode treats missing allowances, balances, and prices as
// unconstrained so dry-run plans execute without seeding.
type MemoryBackend struct {
	mu         sync.Mutex
	account    common.Address
	allowances map[common.Address]map[common.Address]decimal.Decimal
	balances   map[common.Address]map[common.Address]decimal.Decimal
	gas        map[common.Address]decimal.Decimal
	prices     map[pairKey]decimal.Decimal
	Permissive bool
}

func NewMemoryBackend(account common.Address) *MemoryBackend {
	return &MemoryBackend{
		account:    account,
		allowances: make(map[common.Address]map[common.Address]decimal.Decimal),
		balances:   make(map[common.Address]map[common.Address]decimal.Decimal),
		gas:        make(map[common.Address]decimal.Decimal),
		prices:     make(map[pairKey]decimal.Decimal),
	}
}

func (b *MemoryBackend) SetAllowance(owner, token common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allowances[owner] == nil {
		b.allowances[owner] = make(map[common.Address]decimal.Decimal)
	}
	b.allowances[owner][token] = amount
}

func (b *MemoryBackend) SetBalance(owner, token common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[owner] == nil {
		b.balances[owner] = make(map[common.Address]decimal.Decimal)
	}
	b.balances[owner][token] = amount
}

func (b *MemoryBackend) SetGas(account common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gas[account] = amount
}

// SetPrice sets the pool price: tokenOut units per tokenIn unit.
func (b *MemoryBackend) SetPrice(tokenIn, tokenOut common.Address, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[pairKey{tokenIn, tokenOut}] = price
}

func (b *MemoryBackend) Allowance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Permissive {
		if _, ok := b.allowances[owner][token]; !ok {
			return decimal.NewFromInt(1_000_000_000), nil
		}
	}
	return b.allowances[owner][token], nil
}

func (b *MemoryBackend) TokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Permissive {
		if _, ok := b.balances[owner][token]; !ok {
			return decimal.NewFromInt(1_000_000_000), nil
		}
	}
	return b.balances[owner][token], nil
}

func (b *MemoryBackend) GasBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Permissive {
		if _, ok := b.gas[account]; !ok {
			return decimal.NewFromInt(1000), nil
		}
	}
	return b.gas[account], nil
}

// PullExact verifies allowance and balance for this exact owner and amount
// under one lock, then moves the funds. No partial pull.
func (b *MemoryBackend) PullExact(ctx context.Context, owner, token common.Address, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Permissive {
		return nil
	}
	allowance := b.allowances[owner][token]
	if allowance.LessThan(amount) {
		return fmt.Errorf("%w: allowance %s, need %s", models.ErrInsufficientAllowance, allowance.String(), amount.String())
	}
	balance := b.balances[owner][token]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, need %s", models.ErrInsufficientBalance, balance.String(), amount.String())
	}
	b.allowances[owner][token] = allowance.Sub(amount)
	b.balances[owner][token] = balance.Sub(amount)
	if b.balances[b.account] == nil {
		b.balances[b.account] = make(map[common.Address]decimal.Decimal)
	}
	b.balances[b.account][token] = b.balances[b.account][token].Add(amount)
	return nil
}

func (b *MemoryBackend) Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Permissive {
		return nil
	}
	balance := b.balances[b.account][token]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: bridge balance %s, need %s", models.ErrInsufficientBalance, balance.String(), amount.String())
	}
	b.balances[b.account][token] = balance.Sub(amount)
	if b.balances[to] == nil {
		b.balances[to] = make(map[common.Address]decimal.Decimal)
	}
	b.balances[to][token] = b.balances[to][token].Add(amount)
	return nil
}

func (b *MemoryBackend) quote(tokenIn, tokenOut common.Address, feeTierBps int, amountIn decimal.Decimal) (decimal.Decimal, error) {
	price, ok := b.prices[pairKey{tokenIn, tokenOut}]
	if !ok {
		if !b.Permissive {
			return decimal.Zero, fmt.Errorf("no pool for pair %s/%s", tokenIn.Hex(), tokenOut.Hex())
		}
		price = decimal.NewFromInt(1)
	}
	gross := amountIn.Mul(price)
	fee := gross.Mul(decimal.NewFromInt(int64(feeTierBps))).Div(decimal.NewFromInt(10000))
	return gross.Sub(fee), nil
}

func (b *MemoryBackend) QuoteSwap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quote(tokenIn, tokenOut, feeTierBps, amountIn)
}

func (b *MemoryBackend) Swap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn, minOut decimal.Decimal, recipient common.Address) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out, err := b.quote(tokenIn, tokenOut, feeTierBps, amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	if out.LessThan(minOut) {
		// Pool-enforced minimum: the swap reverts, balances untouched.
		return decimal.Zero, fmt.Errorf("%w: output %s below minimum %s",
			models.ErrSwapReverted, out.String(), minOut.String())
	}
	if b.Permissive {
		return out, nil
	}
	balance := b.balances[b.account][tokenIn]
	if balance.LessThan(amountIn) {
		return decimal.Zero, fmt.Errorf("%w: bridge balance %s, need %s", models.ErrInsufficientBalance, balance.String(), amountIn.String())
	}
	b.balances[b.account][tokenIn] = balance.Sub(amountIn)
	if b.balances[recipient] == nil {
		b.balances[recipient] = make(map[common.Address]decimal.Decimal)
	}
	b.balances[recipient][tokenOut] = b.balances[recipient][tokenOut].Add(out)
	return out, nil
}
