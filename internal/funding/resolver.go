package funding

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tradetok/copytrade/internal/chain"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/id"
	"github.com/tradetok/copytrade/internal/registry"
)

// Candidate is one (chain, token) pair that may fund a trade. Candidate
// lists are static and ordered; order encodes preference.
type Candidate struct {
	ChainID      int64
	TokenAddress common.Address
	Symbol       string
	Decimals     int
}

// Selection is the first candidate holding a sufficient balance. Target is
// the desired amount in that candidate's minor units.
type Selection struct {
	Candidate
	Balance *big.Int
	Target  *big.Int
}

// ProbeResult records one candidate's probe outcome, for display.
type ProbeResult struct {
	Candidate
	Balance *big.Int
	Err     error
}

// Resolver finds the first candidate chain holding enough of the funding
// asset.
type Resolver struct {
	prober     chain.Reader
	candidates []Candidate
}

func NewResolver(prober chain.Reader, candidates []Candidate) *Resolver {
	return &Resolver{prober: prober, candidates: candidates}
}

// DefaultCandidates converts the registry's priority-ordered funding table.
func DefaultCandidates() []Candidate {
	out := make([]Candidate, 0, len(registry.DefaultFundingCandidates))
	for _, t := range registry.DefaultFundingCandidates {
		out = append(out, Candidate{
			ChainID:      t.ChainID,
			TokenAddress: common.HexToAddress(t.Address),
			Symbol:       t.Symbol,
			Decimals:     t.Decimals,
		})
	}
	return out
}

// Resolve probes candidates in list order and returns the first whose
// balance covers amount, without probing the rest. The amount is a decimal
// string in the funding asset's units and is converted to minor units per
// candidate, since decimals vary by chain. A probe failure counts as
// insufficient on that chain and the search continues. When no candidate
// qualifies the result is an insufficient-funds error, a normal terminal
// outcome, unless every probe failed, which is reported as a transient
// probe failure instead.
func (r *Resolver) Resolve(ctx context.Context, account common.Address, amount string) (Selection, error) {
	if len(r.candidates) == 0 {
		return Selection{}, clierr.New(clierr.CodeUsage, "no funding candidates configured")
	}

	probeFailures := 0
	var lastProbeErr error
	for _, candidate := range r.candidates {
		target, err := candidateTarget(amount, candidate.Decimals)
		if err != nil {
			return Selection{}, err
		}
		balance, err := r.prober.TokenBalance(ctx, candidate.ChainID, candidate.TokenAddress, account)
		if err != nil {
			if ctx.Err() != nil {
				return Selection{}, clierr.Wrap(clierr.CodeProbe, "balance probe cancelled", ctx.Err())
			}
			probeFailures++
			lastProbeErr = err
			continue
		}
		if balance.Cmp(target) >= 0 {
			return Selection{Candidate: candidate, Balance: balance, Target: target}, nil
		}
	}

	if probeFailures == len(r.candidates) {
		return Selection{}, clierr.Wrap(clierr.CodeProbe, "all balance probes failed", lastProbeErr)
	}
	return Selection{}, clierr.New(clierr.CodeInsufficientFunds, "no funding source holds a sufficient balance")
}

func candidateTarget(amount string, decimals int) (*big.Int, error) {
	minor, err := id.MinorUnits(amount, decimals)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "invalid trade amount", err)
	}
	target, err := id.ParseMinorUnits(minor)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "parse converted amount", err)
	}
	if target.Sign() <= 0 {
		return nil, clierr.New(clierr.CodeUsage, "trade amount must be positive")
	}
	return target, nil
}

// ProbeAll probes every candidate regardless of sufficiency, for the
// balances display. It never short-circuits.
func (r *Resolver) ProbeAll(ctx context.Context, account common.Address) []ProbeResult {
	results := make([]ProbeResult, 0, len(r.candidates))
	for _, candidate := range r.candidates {
		balance, err := r.prober.TokenBalance(ctx, candidate.ChainID, candidate.TokenAddress, account)
		results = append(results, ProbeResult{Candidate: candidate, Balance: balance, Err: err})
	}
	return results
}

// FirstSufficient returns the index of the first probe result whose balance
// covers amount, applying the same preference order and failed-probe
// skipping as Resolve, or -1 when no candidate qualifies.
func FirstSufficient(results []ProbeResult, amount string) int {
	for i, res := range results {
		if res.Err != nil || res.Balance == nil {
			continue
		}
		target, err := candidateTarget(amount, res.Decimals)
		if err != nil {
			return -1
		}
		if res.Balance.Cmp(target) >= 0 {
			return i
		}
	}
	return -1
}
