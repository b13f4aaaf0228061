package bridge

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"autodca/internal/config"
	"autodca/internal/models"
)

const erc20ABIJSON = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const routerABIJSON = `[
	{"type":"function","name":"swapExactInput","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"}],"outputs":[{"name":"amountOut","type":"uint256"}]},
	{"type":"function","name":"quoteExactInput","stateMutability":"view","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"amountIn","type":"uint256"}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// EVMBackend implements Backend over an EVM JSON-RPC endpoint. Writes are
// signed with the bridge operator key; reads go through eth_call.
type EVMBackend struct {
	client    *ethclient.Client
	chainID   *big.Int
	account   common.Address
	key       *ecdsa.PrivateKey
	router    common.Address
	gasLimit  uint64
	timeout   time.Duration
	decimals  map[common.Address]int
	erc20ABI  abi.ABI
	routerABI abi.ABI
}

func NewEVMBackend(cfg config.BridgeConfig, assets map[string]config.AssetConfig) (*EVMBackend, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, err
	}
	router, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, err
	}

	var key *ecdsa.PrivateKey
	if raw := strings.TrimSpace(os.Getenv(cfg.OperatorKeyEnv)); raw != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse operator key from %s: %w", cfg.OperatorKeyEnv, err)
		}
	}

	decimals := make(map[common.Address]int, len(assets))
	for _, asset := range assets {
		if asset.Address == "" {
			continue
		}
		decimals[common.HexToAddress(asset.Address)] = asset.Decimals
	}

	return &EVMBackend{
		client:    client,
		chainID:   big.NewInt(cfg.ChainID),
		account:   common.HexToAddress(cfg.AccountAddress),
		key:       key,
		router:    common.HexToAddress(cfg.RouterAddress),
		gasLimit:  cfg.GasLimit,
		timeout:   cfg.CallTimeout,
		decimals:  decimals,
		erc20ABI:  erc20,
		routerABI: router,
	}, nil
}

func (b *EVMBackend) tokenDecimals(token common.Address) int {
	if d, ok := b.decimals[token]; ok {
		return d
	}
	return 18
}

func toBaseUnits(v decimal.Decimal, decimals int) *big.Int {
	return v.Shift(int32(decimals)).Truncate(0).BigInt()
}

func fromBaseUnits(v *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -int32(decimals))
}

func (b *EVMBackend) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.client.CallContract(ctx, ethereum.CallMsg{From: b.account, To: &to, Data: data}, nil)
}

func (b *EVMBackend) callUint(ctx context.Context, target common.Address, parsed abi.ABI, method string, args ...any) (*big.Int, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := b.call(ctx, target, data)
	if err != nil {
		return nil, err
	}
	results, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s: empty return", method)
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected return type %T", method, results[0])
	}
	return value, nil
}

func (b *EVMBackend) Allowance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	v, err := b.callUint(ctx, token, b.erc20ABI, "allowance", owner, b.account)
	if err != nil {
		return decimal.Zero, err
	}
	return fromBaseUnits(v, b.tokenDecimals(token)), nil
}

func (b *EVMBackend) TokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	v, err := b.callUint(ctx, token, b.erc20ABI, "balanceOf", owner)
	if err != nil {
		return decimal.Zero, err
	}
	return fromBaseUnits(v, b.tokenDecimals(token)), nil
}

func (b *EVMBackend) GasBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	wei, err := b.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return fromBaseUnits(wei, 18), nil
}

// sendTx signs and submits a transaction from the bridge account and waits
// for it to mine. A reverted receipt surfaces as ErrSwapReverted.
func (b *EVMBackend) sendTx(ctx context.Context, to common.Address, data []byte) error {
	if b.key == nil {
		return fmt.Errorf("bridge operator key not configured")
	}
	nonce, err := b.client.PendingNonceAt(ctx, b.account)
	if err != nil {
		return err
	}
	gasPrice, err := b.client.SuggestGasPrice(ctx)
	if err != nil {
		return err
	}
	tx := types.NewTransaction(nonce, to, big.NewInt(0), b.gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), b.key)
	if err != nil {
		return err
	}
	if err := b.client.SendTransaction(ctx, signed); err != nil {
		return err
	}
	receipt, err := bind.WaitMined(ctx, b.client, signed)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx %s", models.ErrSwapReverted, signed.Hash().Hex())
	}
	return nil
}

func (b *EVMBackend) PullExact(ctx context.Context, owner, token common.Address, amount decimal.Decimal) error {
	data, err := b.erc20ABI.Pack("transferFrom", owner, b.account, toBaseUnits(amount, b.tokenDecimals(token)))
	if err != nil {
		return err
	}
	return b.sendTx(ctx, token, data)
}

func (b *EVMBackend) Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal) error {
	data, err := b.erc20ABI.Pack("transfer", to, toBaseUnits(amount, b.tokenDecimals(token)))
	if err != nil {
		return err
	}
	return b.sendTx(ctx, token, data)
}

func (b *EVMBackend) QuoteSwap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn decimal.Decimal) (decimal.Decimal, error) {
	v, err := b.callUint(ctx, b.router, b.routerABI, "quoteExactInput",
		tokenIn, tokenOut, big.NewInt(int64(feeTierBps)), toBaseUnits(amountIn, b.tokenDecimals(tokenIn)))
	if err != nil {
		return decimal.Zero, err
	}
	return fromBaseUnits(v, b.tokenDecimals(tokenOut)), nil
}

func (b *EVMBackend) Swap(ctx context.Context, tokenIn, tokenOut common.Address, feeTierBps int, amountIn, minOut decimal.Decimal, recipient common.Address) (decimal.Decimal, error) {
	fee := big.NewInt(int64(feeTierBps))
	in := toBaseUnits(amountIn, b.tokenDecimals(tokenIn))
	min := toBaseUnits(minOut, b.tokenDecimals(tokenOut))

	data, err := b.routerABI.Pack("swapExactInput", tokenIn, tokenOut, fee, recipient, in, min)
	if err != nil {
		return decimal.Zero, err
	}
	// Simulate first: the call's return value is the only way to learn the
	// realized output, and a predicted shortfall aborts before spending gas.
	out, err := b.call(ctx, b.router, data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrSwapReverted, err)
	}
	results, err := b.routerABI.Unpack("swapExactInput", out)
	if err != nil {
		return decimal.Zero, err
	}
	amountOut, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("swapExactInput: unexpected return type %T", results[0])
	}
	if amountOut.Cmp(min) < 0 {
		return decimal.Zero, fmt.Errorf("%w: simulated output below minimum", models.ErrSlippageExceeded)
	}
	if err := b.sendTx(ctx, b.router, data); err != nil {
		return decimal.Zero, err
	}
	return fromBaseUnits(amountOut, b.tokenDecimals(tokenOut)), nil
}
