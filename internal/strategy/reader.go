package strategy

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

// latestWindow bounds how far back the reader walks from the newest entry.
const latestWindow = 25

// Strategy is one published copy-trade strategy. VideoURL is the creator's
// pitch clip; entries without one are not listable.
type Strategy struct {
	ID          uint64
	Creator     common.Address
	Title       string
	VideoURL    string
	Token       common.Address
	Risk        RiskLevel
	EntryMinUsd *big.Int
	EntryMaxUsd *big.Int
	StopLossBps uint16
	CreatedAt   uint64
	Active      bool
}

type RiskLevel uint8

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

type registryStrategy struct {
	Creator     common.Address
	Title       string
	Uri         string
	Token       common.Address
	Risk        uint8
	EntryMinUsd *big.Int
	EntryMaxUsd *big.Int
	StopLossBps uint16
	CreatedAt   uint64
	Active      bool
}

// Reader lists strategies from the on-chain registry contract.
type Reader struct {
	rpcURL   string
	contract common.Address
}

func NewReader(rpcURL string, contract common.Address) *Reader {
	return &Reader{rpcURL: rpcURL, contract: contract}
}

// Latest walks the newest entries of the registry and returns active
// strategies that carry a video URL, newest first. It inspects at most the
// last 25 ids.
func (r *Reader) Latest(ctx context.Context) ([]Strategy, error) {
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect registry rpc", err)
	}
	defer client.Close()

	total, err := r.total(ctx, client)
	if err != nil {
		return nil, err
	}

	start := int64(0)
	if total > latestWindow {
		start = total - latestWindow
	}
	out := make([]Strategy, 0, latestWindow)
	// Walk newest to oldest so the result is already in display order.
	for id := total - 1; id >= start; id-- {
		entry, err := r.get(ctx, client, id)
		if err != nil {
			return nil, err
		}
		if !entry.Active || strings.TrimSpace(entry.Uri) == "" {
			continue
		}
		out = append(out, Strategy{
			ID:          uint64(id),
			Creator:     entry.Creator,
			Title:       entry.Title,
			VideoURL:    entry.Uri,
			Token:       entry.Token,
			Risk:        RiskLevel(entry.Risk),
			EntryMinUsd: entry.EntryMinUsd,
			EntryMaxUsd: entry.EntryMaxUsd,
			StopLossBps: entry.StopLossBps,
			CreatedAt:   entry.CreatedAt,
			Active:      entry.Active,
		})
	}
	return out, nil
}

func (r *Reader) total(ctx context.Context, client *ethclient.Client) (int64, error) {
	data, err := registryABI.Pack("totalStrategies")
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeInternal, "pack totalStrategies call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUnavailable, "call totalStrategies", err)
	}
	out, err := registryABI.Unpack("totalStrategies", raw)
	if err != nil || len(out) == 0 {
		return 0, clierr.Wrap(clierr.CodeUnavailable, "decode totalStrategies", err)
	}
	total, ok := out[0].(*big.Int)
	if !ok {
		return 0, clierr.New(clierr.CodeUnavailable, "invalid totalStrategies response type")
	}
	return total.Int64(), nil
}

func (r *Reader) get(ctx context.Context, client *ethclient.Client, id int64) (registryStrategy, error) {
	data, err := registryABI.Pack("getStrategy", big.NewInt(id))
	if err != nil {
		return registryStrategy{}, clierr.Wrap(clierr.CodeInternal, "pack getStrategy call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return registryStrategy{}, clierr.Wrap(clierr.CodeUnavailable, "call getStrategy", err)
	}
	out, err := registryABI.Unpack("getStrategy", raw)
	if err != nil || len(out) == 0 {
		return registryStrategy{}, clierr.Wrap(clierr.CodeUnavailable, "decode getStrategy", err)
	}
	entry, ok := abi.ConvertType(out[0], new(registryStrategy)).(*registryStrategy)
	if !ok {
		return registryStrategy{}, clierr.New(clierr.CodeUnavailable, "invalid getStrategy response type")
	}
	return *entry, nil
}

var registryABI = mustABI(registry.StrategyRegistryABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
