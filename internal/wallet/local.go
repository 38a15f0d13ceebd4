package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/registry"
	"github.com/tradetok/copytrade/internal/wallet/signer"
)

const defaultGasMultiplier = 1.2

// LocalWallet signs with an in-process key and broadcasts over per-chain
// RPC. Switch requests are verified against the endpoint's reported chain id
// before the active chain changes, so a misconfigured RPC URL cannot leave
// the wallet on an unexpected network.
type LocalWallet struct {
	signer        signer.Signer
	overrides     map[int64]string
	gasMultiplier float64

	mu     sync.Mutex
	active int64
}

func NewLocalWallet(s signer.Signer, rpcOverrides map[int64]string, initialChainID int64) *LocalWallet {
	if rpcOverrides == nil {
		rpcOverrides = map[int64]string{}
	}
	return &LocalWallet{
		signer:        s,
		overrides:     rpcOverrides,
		gasMultiplier: defaultGasMultiplier,
		active:        initialChainID,
	}
}

func (w *LocalWallet) Address() common.Address {
	return w.signer.Address()
}

func (w *LocalWallet) ActiveChainID(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, nil
}

// RequestSwitch points the wallet at chainID after confirming the resolved
// RPC endpoint actually serves that chain.
func (w *LocalWallet) RequestSwitch(ctx context.Context, chainID int64) error {
	url, err := w.endpoint(chainID)
	if err != nil {
		return err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return clierr.Wrap(clierr.CodeSwitch, "connect rpc", err)
	}
	defer client.Close()

	remote, err := client.ChainID(ctx)
	if err != nil {
		return clierr.Wrap(clierr.CodeSwitch, "read chain id", err)
	}
	if remote.Int64() != chainID {
		return clierr.New(clierr.CodeSwitch, fmt.Sprintf("rpc endpoint serves chain %d, expected %d", remote.Int64(), chainID))
	}

	w.mu.Lock()
	w.active = chainID
	w.mu.Unlock()
	return nil
}

// SendTransaction signs and broadcasts req on chainID and returns the hash.
// It does not wait for inclusion.
func (w *LocalWallet) SendTransaction(ctx context.Context, chainID int64, req TxRequest) (common.Hash, error) {
	url, err := w.endpoint(chainID)
	if err != nil {
		return common.Hash{}, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	defer client.Close()

	from := w.signer.Address()
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeExecution, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * w.gasMultiplier)

	tipCap, err := resolveTipCap(ctx, client)
	if err != nil {
		return common.Hash{}, err
	}
	feeCap, err := resolveFeeCap(ctx, client, tipCap)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "read pending nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := w.signer.SignTx(big.NewInt(chainID), tx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeSigningRejected, "sign transaction", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeExecution, "broadcast transaction", err)
	}
	return signed.Hash(), nil
}

func (w *LocalWallet) endpoint(chainID int64) (string, error) {
	url, err := registry.ResolveRPCURL(w.overrides[chainID], chainID)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUsage, "resolve rpc url", err)
	}
	return url, nil
}

// resolveTipCap suggests a priority fee, falling back to 2 gwei on chains
// whose nodes do not implement the suggestion RPC.
func resolveTipCap(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil || tip == nil || tip.Sign() == 0 {
		return big.NewInt(2_000_000_000), nil
	}
	return tip, nil
}

// resolveFeeCap budgets twice the current base fee plus the tip, enough to
// survive several full blocks of base-fee growth.
func resolveFeeCap(ctx context.Context, client *ethclient.Client, tipCap *big.Int) (*big.Int, error) {
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read chain head", err)
	}
	if head.BaseFee == nil {
		return new(big.Int).Set(tipCap), nil
	}
	feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	return feeCap.Add(feeCap, tipCap), nil
}
