package funding

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/tradetok/copytrade/internal/errors"
)

type fakeProber struct {
	balances map[int64]*big.Int
	failures map[int64]error
	probed   []int64
}

func (f *fakeProber) TokenBalance(ctx context.Context, chainID int64, token, account common.Address) (*big.Int, error) {
	f.probed = append(f.probed, chainID)
	if err, ok := f.failures[chainID]; ok {
		return nil, err
	}
	if balance, ok := f.balances[chainID]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeProber) Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func testCandidates() []Candidate {
	return []Candidate{
		{ChainID: 8453, TokenAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"), Symbol: "USDC", Decimals: 6},
		{ChainID: 42161, TokenAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"), Symbol: "USDC", Decimals: 6},
		{ChainID: 10, TokenAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"), Symbol: "USDC", Decimals: 6},
	}
}

func TestResolvePicksFirstSufficientAndShortCircuits(t *testing.T) {
	prober := &fakeProber{balances: map[int64]*big.Int{
		8453:  big.NewInt(50_000_000),
		42161: big.NewInt(150_000_000),
		10:    big.NewInt(500_000_000),
	}}
	resolver := NewResolver(prober, testCandidates())

	selection, err := resolver.Resolve(context.Background(), common.Address{}, "100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selection.ChainID != 42161 {
		t.Fatalf("selected chain %d, want 42161", selection.ChainID)
	}
	if selection.Target.String() != "100000000" {
		t.Fatalf("target = %s, want 100000000", selection.Target.String())
	}
	if len(prober.probed) != 2 {
		t.Fatalf("probed %v, want the search to stop after the first sufficient chain", prober.probed)
	}
	if prober.probed[0] != 8453 || prober.probed[1] != 42161 {
		t.Fatalf("probe order %v, want candidate list order", prober.probed)
	}
}

func TestResolveFailedProbeCountsAsInsufficient(t *testing.T) {
	prober := &fakeProber{
		balances: map[int64]*big.Int{42161: big.NewInt(200_000_000)},
		failures: map[int64]error{8453: errors.New("rpc down")},
	}
	resolver := NewResolver(prober, testCandidates())

	selection, err := resolver.Resolve(context.Background(), common.Address{}, "100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selection.ChainID != 42161 {
		t.Fatalf("selected chain %d, want the search to continue past the failed probe", selection.ChainID)
	}
}

func TestResolveNoSufficientBalance(t *testing.T) {
	prober := &fakeProber{balances: map[int64]*big.Int{
		8453:  big.NewInt(10),
		42161: big.NewInt(20),
		10:    big.NewInt(30),
	}}
	resolver := NewResolver(prober, testCandidates())

	_, err := resolver.Resolve(context.Background(), common.Address{}, "100")
	if clierr.CodeOf(err) != clierr.CodeInsufficientFunds {
		t.Fatalf("error code = %d, want insufficient funds; err=%v", clierr.CodeOf(err), err)
	}
}

func TestResolveAllProbesFailed(t *testing.T) {
	boom := errors.New("rpc down")
	prober := &fakeProber{failures: map[int64]error{8453: boom, 42161: boom, 10: boom}}
	resolver := NewResolver(prober, testCandidates())

	_, err := resolver.Resolve(context.Background(), common.Address{}, "100")
	if clierr.CodeOf(err) != clierr.CodeProbe {
		t.Fatalf("error code = %d, want transient probe failure; err=%v", clierr.CodeOf(err), err)
	}
}

func TestResolveInvalidAmount(t *testing.T) {
	resolver := NewResolver(&fakeProber{}, testCandidates())
	for _, amount := range []string{"", "abc", "0"} {
		if _, err := resolver.Resolve(context.Background(), common.Address{}, amount); clierr.CodeOf(err) != clierr.CodeUsage {
			t.Fatalf("amount %q: error code = %d, want usage", amount, clierr.CodeOf(err))
		}
	}
}

func TestFirstSufficient(t *testing.T) {
	prober := &fakeProber{
		balances: map[int64]*big.Int{
			42161: big.NewInt(150_000_000),
			10:    big.NewInt(500_000_000),
		},
		failures: map[int64]error{8453: errors.New("rpc down")},
	}
	resolver := NewResolver(prober, testCandidates())
	results := resolver.ProbeAll(context.Background(), common.Address{})

	if idx := FirstSufficient(results, "100"); idx != 1 {
		t.Fatalf("index = %d, want the first sufficient candidate past the failed probe", idx)
	}
	if idx := FirstSufficient(results, "1000"); idx != -1 {
		t.Fatalf("index = %d, want -1 when no balance covers the amount", idx)
	}
	if idx := FirstSufficient(results, "abc"); idx != -1 {
		t.Fatalf("index = %d, want -1 for an unparseable amount", idx)
	}
}

func TestProbeAllNeverShortCircuits(t *testing.T) {
	prober := &fakeProber{
		balances: map[int64]*big.Int{8453: big.NewInt(1_000_000_000)},
		failures: map[int64]error{42161: errors.New("rpc down")},
	}
	resolver := NewResolver(prober, testCandidates())

	results := resolver.ProbeAll(context.Background(), common.Address{})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[1].Err == nil {
		t.Fatal("expected the failed probe to be reported, not dropped")
	}
	if results[0].Balance.String() != "1000000000" {
		t.Fatalf("balance = %s", results[0].Balance.String())
	}
}
