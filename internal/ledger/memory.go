package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"autodca/internal/models"
)

// Memory is an in-process ledger with per-owner vault balances and fixed
// pool prices. Permissive mode (dry-run) treats missing balances as funded
// and unknown pairs as priced 1:1, mirroring fabricated fills.
type Memory struct {
	mu         sync.Mutex
	balances   map[string]map[string]decimal.Decimal
	prices     map[string]decimal.Decimal
	Permissive bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]map[string]decimal.Decimal),
		prices:   make(map[string]decimal.Decimal),
	}
}

func pairKey(source, target string) string {
	return source + "/" + target
}

// SetBalance seeds an owner's vault balance for tests and local runs.
func (m *Memory) SetBalance(owner, asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[owner] == nil {
		m.balances[owner] = make(map[string]decimal.Decimal)
	}
	m.balances[owner][asset] = amount
}

// SetPrice sets the pool price for a pair: target units per source unit.
func (m *Memory) SetPrice(source, target string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[pairKey(source, target)] = price
}

func (m *Memory) Balance(owner, asset string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner][asset]
}

func (m *Memory) price(source, target string) (decimal.Decimal, bool) {
	p, ok := m.prices[pairKey(source, target)]
	if !ok && m.Permissive {
		return decimal.NewFromInt(1), true
	}
	return p, ok
}

func (m *Memory) Withdraw(ctx context.Context, vaultRef string, asset string, amount decimal.Decimal) (*Funds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balances[vaultRef][asset]
	if bal.LessThan(amount) {
		if !m.Permissive {
			return nil, fmt.Errorf("%w: vault %s holds %s %s, need %s",
				models.ErrInsufficientBalance, vaultRef, bal.String(), asset, amount.String())
		}
		return NewFunds(asset, amount), nil
	}
	m.balances[vaultRef][asset] = bal.Sub(amount)
	return NewFunds(asset, amount), nil
}

func (m *Memory) Deposit(ctx context.Context, owner string, asset string, funds *Funds) error {
	amount, err := funds.Consume()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[owner] == nil {
		m.balances[owner] = make(map[string]decimal.Decimal)
	}
	m.balances[owner][asset] = m.balances[owner][asset].Add(amount)
	return nil
}

func (m *Memory) Quote(ctx context.Context, sourceAsset, targetAsset string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.price(sourceAsset, targetAsset)
	if !ok {
		return decimal.Zero, fmt.Errorf("no pool for pair %s/%s", sourceAsset, targetAsset)
	}
	return amountIn.Mul(price), nil
}

func (m *Memory) SwapExactIn(ctx context.Context, sourceAsset, targetAsset string, funds *Funds, minOut decimal.Decimal) (*Funds, error) {
	m.mu.Lock()
	price, ok := m.price(sourceAsset, targetAsset)
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no pool for pair %s/%s", sourceAsset, targetAsset)
	}
	out := funds.Amount().Mul(price)
	if out.LessThan(minOut) {
		// Pool-enforced minimum: trade aborts, input handle stays live.
		return nil, fmt.Errorf("%w: output %s below minimum %s",
			models.ErrSlippageExceeded, out.String(), minOut.String())
	}
	if _, err := funds.Consume(); err != nil {
		return nil, err
	}
	return NewFunds(targetAsset, out), nil
}
