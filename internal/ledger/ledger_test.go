package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"autodca/internal/models"
)

func TestFundsConsumeOnce(t *testing.T) {
	funds := NewFunds("GOLD", decimal.NewFromInt(10))

	amount, err := funds.Consume()
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("amount = %s, want 10", amount)
	}
	if _, err := funds.Consume(); err == nil {
		t.Fatalf("double consume succeeded")
	}
}

func TestMemoryWithdrawInsufficientBalance(t *testing.T) {
	mem := NewMemory()
	mem.SetBalance("vault-1", "GOLD", decimal.NewFromInt(5))

	if _, err := mem.Withdraw(context.Background(), "vault-1", "GOLD", decimal.NewFromInt(10)); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if got := mem.Balance("vault-1", "GOLD"); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance changed on failed withdraw: %s", got)
	}
}

func TestMemorySwapLeavesHandleOnSlippage(t *testing.T) {
	mem := NewMemory()
	mem.SetPrice("GOLD", "USDC", decimal.NewFromInt(4))

	funds := NewFunds("GOLD", decimal.NewFromInt(10))
	_, err := mem.SwapExactIn(context.Background(), "GOLD", "USDC", funds, decimal.NewFromInt(50))
	if !errors.Is(err, models.ErrSlippageExceeded) {
		t.Fatalf("want ErrSlippageExceeded, got %v", err)
	}
	// The input handle is still live and can be returned to the vault.
	if _, err := funds.Consume(); err != nil {
		t.Fatalf("handle consumed by failed swap: %v", err)
	}
}

func TestMemoryPermissiveFabricatesLiquidity(t *testing.T) {
	mem := NewMemory()
	mem.Permissive = true

	funds, err := mem.Withdraw(context.Background(), "vault-1", "GOLD", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("permissive withdraw: %v", err)
	}
	out, err := mem.SwapExactIn(context.Background(), "GOLD", "USDC", funds, decimal.Zero)
	if err != nil {
		t.Fatalf("permissive swap: %v", err)
	}
	// Unknown pairs are priced 1:1 in permissive mode.
	if !out.Amount().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("out = %s, want 10", out.Amount())
	}
}
