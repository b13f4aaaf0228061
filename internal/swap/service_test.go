package swap

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"autodca/internal/bridge"
	"autodca/internal/config"
	"autodca/internal/ledger"
	"autodca/internal/models"
)

var (
	bridgeAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	ownerAddr  = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	goldToken  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	usdcToken  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	wethToken  = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func testAssets() config.AssetRegistry {
	return config.AssetRegistry{
		"GOLD": {Environment: config.EnvNative, Address: goldToken.Hex(), Decimals: 18},
		"USDC": {Environment: config.EnvEVM, Address: usdcToken.Hex(), Decimals: 6},
		"WETH": {Environment: config.EnvEVM, Address: wethToken.Hex(), Decimals: 18},
	}
}

func testController() *models.Controller {
	vaultRef := "vault-owner-1"
	evm := ownerAddr.Hex()
	return &models.Controller{
		OwnerAddress: "owner-1",
		VaultRef:     &vaultRef,
		EVMAddress:   &evm,
	}
}

func testPlan(source, target string, bps int) *models.Plan {
	return &models.Plan{
		ID:                1,
		OwnerAddress:      "owner-1",
		SourceAsset:       source,
		TargetAsset:       target,
		AmountPerInterval: decimal.NewFromInt(10),
		IntervalSeconds:   3600,
		MaxSlippageBps:    bps,
		Status:            models.PlanStatusActive,
	}
}

func newBridgeAccount(backend bridge.Backend) *bridge.Account {
	return &bridge.Account{
		Backend:       backend,
		Address:       bridgeAddr,
		MinGasBalance: decimal.NewFromFloat(0.05),
	}
}

func TestNativePathSuccess(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetBalance("vault-owner-1", "GOLD", decimal.NewFromInt(100))
	mem.SetPrice("GOLD", "USDC", decimal.NewFromInt(5))

	svc := &Service{
		Assets: testAssets(),
		Vault:  mem,
		Router: mem,
		Config: Config{Timeout: time.Second},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("GOLD", "USDC", 100))

	if !outcome.Success {
		t.Fatalf("outcome failed: %s", outcome.Reason)
	}
	if !outcome.AmountOut.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("amount out = %s, want 50", outcome.AmountOut)
	}
	if got := mem.Balance("vault-owner-1", "GOLD"); !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("vault balance = %s, want 90", got)
	}
	if got := mem.Balance("owner-1", "USDC"); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("owner target balance = %s, want 50", got)
	}
}

func TestNativePathInsufficientBalance(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetBalance("vault-owner-1", "GOLD", decimal.NewFromInt(3))
	mem.SetPrice("GOLD", "USDC", decimal.NewFromInt(5))

	svc := &Service{
		Assets: testAssets(),
		Vault:  mem,
		Router: mem,
		Config: Config{Timeout: time.Second},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("GOLD", "USDC", 100))

	if outcome.Success {
		t.Fatalf("expected failure")
	}
	if outcome.Reason != models.ReasonInsufficientBalance {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonInsufficientBalance)
	}
	if got := mem.Balance("vault-owner-1", "GOLD"); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("vault balance changed: %s", got)
	}
}

// stubRouter quotes one value and fills another, so the pool minimum can be
// exercised against a moving price.
type stubRouter struct {
	quote decimal.Decimal
	fill  decimal.Decimal
}

func (r *stubRouter) Quote(ctx context.Context, source, target string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	return r.quote, nil
}

func (r *stubRouter) SwapExactIn(ctx context.Context, source, target string, funds *ledger.Funds, minOut decimal.Decimal) (*ledger.Funds, error) {
	if r.fill.LessThan(minOut) {
		return nil, models.ErrSlippageExceeded
	}
	if _, err := funds.Consume(); err != nil {
		return nil, err
	}
	return ledger.NewFunds(target, r.fill), nil
}

func TestNativePathSlippageReturnsFunds(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetBalance("vault-owner-1", "GOLD", decimal.NewFromInt(100))

	// Price moves between quote and fill: quoted 50, fillable only 45.
	router := &stubRouter{quote: decimal.NewFromInt(50), fill: decimal.NewFromInt(45)}
	svc := &Service{
		Assets: testAssets(),
		Vault:  mem,
		Router: router,
		Config: Config{Timeout: time.Second},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("GOLD", "USDC", 100))

	if outcome.Success {
		t.Fatalf("expected slippage failure")
	}
	if outcome.Reason != models.ReasonSlippageExceeded {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonSlippageExceeded)
	}
	// Withdrawn funds are returned to the originating vault: a failed firing
	// leaves balances exactly as they were.
	if got := mem.Balance("vault-owner-1", "GOLD"); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("vault balance = %s, want 100", got)
	}
	if got := mem.Balance("owner-1", "GOLD"); !got.IsZero() {
		t.Fatalf("funds leaked to owner key: %s", got)
	}
}

// blockingRouter quotes normally but never fills, so the per-call deadline
// fires mid-swap with the input handle still live.
type blockingRouter struct {
	quote decimal.Decimal
}

func (r *blockingRouter) Quote(ctx context.Context, source, target string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	return r.quote, nil
}

func (r *blockingRouter) SwapExactIn(ctx context.Context, source, target string, funds *ledger.Funds, minOut decimal.Decimal) (*ledger.Funds, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNativePathTimeout(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetBalance("vault-owner-1", "GOLD", decimal.NewFromInt(100))

	svc := &Service{
		Assets: testAssets(),
		Vault:  mem,
		Router: &blockingRouter{quote: decimal.NewFromInt(50)},
		Config: Config{Timeout: 10 * time.Millisecond},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("GOLD", "USDC", 100))

	if outcome.Success {
		t.Fatalf("expected timeout failure")
	}
	if outcome.Reason != models.ReasonSwapTimeout {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonSwapTimeout)
	}
	if got := mem.Balance("vault-owner-1", "GOLD"); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("vault balance = %s, want 100", got)
	}
}

func TestBridgedPathInsufficientAllowance(t *testing.T) {
	backend := bridge.NewMemoryBackend(bridgeAddr)
	backend.SetGas(bridgeAddr, decimal.NewFromInt(1))
	backend.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(5))
	backend.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))
	backend.SetPrice(usdcToken, wethToken, decimal.NewFromFloat(0.0005))

	svc := &Service{
		Assets: testAssets(),
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "WETH", 100))

	if outcome.Success {
		t.Fatalf("expected failure")
	}
	if outcome.Reason != models.ReasonInsufficientAllowance {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonInsufficientAllowance)
	}
	// Fail-fast before any pull: the owner's balance is untouched.
	bal, err := backend.TokenBalance(context.Background(), ownerAddr, usdcToken)
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if !bal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("owner balance = %s, want 100", bal)
	}
}

func TestBridgedPathInsufficientGas(t *testing.T) {
	backend := bridge.NewMemoryBackend(bridgeAddr)
	backend.SetGas(bridgeAddr, decimal.NewFromFloat(0.01))
	backend.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(100))
	backend.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))

	svc := &Service{
		Assets: testAssets(),
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "WETH", 100))

	if outcome.Success {
		t.Fatalf("expected failure")
	}
	if outcome.Reason != models.ReasonInsufficientGas {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonInsufficientGas)
	}
}

func TestBridgedPathSuccess(t *testing.T) {
	backend := bridge.NewMemoryBackend(bridgeAddr)
	backend.SetGas(bridgeAddr, decimal.NewFromInt(1))
	backend.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(10))
	backend.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))
	backend.SetPrice(usdcToken, wethToken, decimal.NewFromFloat(0.0005))

	svc := &Service{
		Assets: testAssets(),
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "WETH", 100))

	if !outcome.Success {
		t.Fatalf("outcome failed: %s", outcome.Reason)
	}
	// 10 * 0.0005 minus the 30 bps pool fee.
	wantOut := decimal.NewFromFloat(0.0049850)
	if !outcome.AmountOut.Equal(wantOut) {
		t.Fatalf("amount out = %s, want %s", outcome.AmountOut, wantOut)
	}

	ctx := context.Background()
	bal, _ := backend.TokenBalance(ctx, ownerAddr, usdcToken)
	if !bal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("owner source balance = %s, want 90", bal)
	}
	out, _ := backend.TokenBalance(ctx, ownerAddr, wethToken)
	if !out.Equal(wantOut) {
		t.Fatalf("owner target balance = %s, want %s", out, wantOut)
	}
	allowance, _ := backend.Allowance(ctx, ownerAddr, usdcToken)
	if !allowance.IsZero() {
		t.Fatalf("allowance = %s, want 0", allowance)
	}
}

// stubBackend wraps the memory backend but controls the swap outcome: with
// no fill set the pool reverts after the pull, otherwise the fill is
// delivered as-is even below the requested minimum.
type stubBackend struct {
	*bridge.MemoryBackend
	quote decimal.Decimal
	fill  decimal.Decimal
}

func (b *stubBackend) QuoteSwap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn decimal.Decimal) (decimal.Decimal, error) {
	return b.quote, nil
}

func (b *stubBackend) Swap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn, minOut decimal.Decimal, recipient common.Address) (decimal.Decimal, error) {
	if b.fill.IsZero() {
		return decimal.Zero, models.ErrSwapReverted
	}
	return b.fill, nil
}

func TestBridgedPathRevertRefundsOwner(t *testing.T) {
	mem := bridge.NewMemoryBackend(bridgeAddr)
	mem.SetGas(bridgeAddr, decimal.NewFromInt(1))
	mem.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(10))
	mem.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))
	backend := &stubBackend{MemoryBackend: mem, quote: decimal.NewFromFloat(0.005)}

	svc := &Service{
		Assets: testAssets(),
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "WETH", 100))

	if outcome.Success {
		t.Fatalf("expected failure")
	}
	if outcome.Reason != models.ReasonSwapReverted {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonSwapReverted)
	}
	// The pulled amount is transferred back after the revert.
	bal, _ := mem.TokenBalance(context.Background(), ownerAddr, usdcToken)
	if !bal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("owner balance after refund = %s, want 100", bal)
	}
}

func TestBridgedPathShortFillRefundsOwner(t *testing.T) {
	mem := bridge.NewMemoryBackend(bridgeAddr)
	mem.SetGas(bridgeAddr, decimal.NewFromInt(1))
	mem.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(10))
	mem.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))

	// Quoted 0.005, delivered 0.004: below the 100 bps minimum of 0.00495.
	backend := &stubBackend{
		MemoryBackend: mem,
		quote:         decimal.NewFromFloat(0.005),
		fill:          decimal.NewFromFloat(0.004),
	}
	svc := &Service{
		Assets: testAssets(),
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "WETH", 100))

	if outcome.Success {
		t.Fatalf("expected failure on short fill")
	}
	if outcome.Reason != models.ReasonSlippageExceeded {
		t.Fatalf("reason = %s, want %s", outcome.Reason, models.ReasonSlippageExceeded)
	}
	bal, _ := mem.TokenBalance(context.Background(), ownerAddr, usdcToken)
	if !bal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("owner balance after refund = %s, want 100", bal)
	}
}

func TestBridgedPathNativeTargetBridgesBack(t *testing.T) {
	backend := bridge.NewMemoryBackend(bridgeAddr)
	backend.SetGas(bridgeAddr, decimal.NewFromInt(1))
	backend.SetAllowance(ownerAddr, usdcToken, decimal.NewFromInt(10))
	backend.SetBalance(ownerAddr, usdcToken, decimal.NewFromInt(100))
	backend.SetPrice(usdcToken, goldToken, decimal.NewFromInt(2))

	vault := ledger.NewMemory()
	svc := &Service{
		Assets: testAssets(),
		Vault:  vault,
		Router: vault,
		Bridge: newBridgeAccount(backend),
		Config: Config{Timeout: time.Second, FeeTierBps: 30},
	}
	outcome := svc.Execute(context.Background(), testController(), testPlan("USDC", "GOLD", 100))

	if !outcome.Success {
		t.Fatalf("outcome failed: %s", outcome.Reason)
	}
	// The swap delivers to the bridge account, then the vault credits the
	// owner on the native side.
	if got := vault.Balance("owner-1", "GOLD"); !got.Equal(outcome.AmountOut) {
		t.Fatalf("vault credit = %s, want %s", got, outcome.AmountOut)
	}
	bridged, _ := backend.TokenBalance(context.Background(), bridgeAddr, goldToken)
	if !bridged.Equal(outcome.AmountOut) {
		t.Fatalf("bridge holds %s, want %s", bridged, outcome.AmountOut)
	}
}

func TestMissingCapabilityFails(t *testing.T) {
	mem := ledger.NewMemory()
	svc := &Service{
		Assets: testAssets(),
		Vault:  mem,
		Router: mem,
		Bridge: newBridgeAccount(bridge.NewMemoryBackend(bridgeAddr)),
		Config: Config{Timeout: time.Second},
	}

	bare := &models.Controller{OwnerAddress: "owner-1"}
	if outcome := svc.Execute(context.Background(), bare, testPlan("GOLD", "USDC", 100)); outcome.Success {
		t.Fatalf("native path succeeded without vault capability")
	}
	if outcome := svc.Execute(context.Background(), bare, testPlan("USDC", "WETH", 100)); outcome.Success {
		t.Fatalf("bridged path succeeded without EVM address")
	}
	if outcome := svc.Execute(context.Background(), nil, testPlan("GOLD", "USDC", 100)); outcome.Success {
		t.Fatalf("execution succeeded without controller")
	}
}
