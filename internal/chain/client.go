package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/registry"
)

// ZeroAddress marks the native asset in place of an ERC20 contract.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Reader is the read-only blockchain surface the resolver and the session
// depend on. Implementations must treat every call as independently
// fallible.
type Reader interface {
	TokenBalance(ctx context.Context, chainID int64, token, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error)
}

// Client reads balances and allowances over per-chain RPC endpoints. Each
// call dials, queries and closes; endpoint selection comes from the
// registry with configured overrides taking precedence.
type Client struct {
	overrides map[int64]string
}

func NewClient(rpcOverrides map[int64]string) *Client {
	if rpcOverrides == nil {
		rpcOverrides = map[int64]string{}
	}
	return &Client{overrides: rpcOverrides}
}

func (c *Client) endpoint(chainID int64) (string, error) {
	url, err := registry.ResolveRPCURL(c.overrides[chainID], chainID)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUsage, "resolve rpc url", err)
	}
	return url, nil
}

// TokenBalance returns the ERC20 balance of account, or the native balance
// when token is the zero address.
func (c *Client) TokenBalance(ctx context.Context, chainID int64, token, account common.Address) (*big.Int, error) {
	url, err := c.endpoint(chainID)
	if err != nil {
		return nil, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeProbe, "connect rpc", err)
	}
	defer client.Close()

	if token == (common.Address{}) {
		balance, err := client.BalanceAt(ctx, account, nil)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeProbe, "read native balance", err)
		}
		return balance, nil
	}

	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack balanceOf call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeProbe, "call balanceOf", err)
	}
	if len(raw) == 0 {
		return nil, clierr.New(clierr.CodeProbe, "empty balanceOf result")
	}
	return new(big.Int).SetBytes(raw), nil
}

// Allowance returns the spend allowance owner has granted to spender on the
// given token.
func (c *Client) Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error) {
	url, err := c.endpoint(chainID)
	if err != nil {
		return nil, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeProbe, "connect rpc", err)
	}
	defer client.Close()

	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack allowance call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{From: owner, To: &token, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeProbe, "read allowance", err)
	}
	out, err := erc20ABI.Unpack("allowance", raw)
	if err != nil || len(out) == 0 {
		return nil, clierr.Wrap(clierr.CodeProbe, "decode allowance", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeProbe, "invalid allowance response type")
	}
	return allowance, nil
}

// PackApprove builds approve(spender, amount) calldata.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack approve calldata", err)
	}
	return data, nil
}

var erc20ABI = mustABI(registry.ERC20MinimalABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
