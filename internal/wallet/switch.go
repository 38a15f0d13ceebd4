package wallet

import (
	"context"
	"fmt"
	"time"

	clierr "github.com/tradetok/copytrade/internal/errors"
)

// SwitchController moves a wallet onto a required chain and confirms the
// move by observation. A switch request is advisory: the wallet may apply it,
// reject it, or drop it silently, so the controller polls the active chain
// until it matches or the deadline passes.
type SwitchController struct {
	wallet   Wallet
	deadline time.Duration
	poll     time.Duration
}

func NewSwitchController(w Wallet, deadline, poll time.Duration) *SwitchController {
	if deadline <= 0 {
		deadline = 6 * time.Second
	}
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &SwitchController{wallet: w, deadline: deadline, poll: poll}
}

// EnsureChain returns nil once the wallet is observed on chainID. A wallet
// that reports the rejection directly fails fast; a wallet that never
// reaches the chain before the deadline is an ambiguous timeout, reported
// distinctly so callers can suggest switching manually.
func (s *SwitchController) EnsureChain(ctx context.Context, chainID int64) error {
	active, err := s.wallet.ActiveChainID(ctx)
	if err != nil {
		return clierr.Wrap(clierr.CodeSwitch, "read active chain", err)
	}
	if active == chainID {
		return nil
	}

	if err := s.wallet.RequestSwitch(ctx, chainID); err != nil {
		return clierr.Wrap(clierr.CodeSwitch, fmt.Sprintf("wallet declined switch to chain %d", chainID), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	// The poll interval doubles up to one second so quick switches resolve
	// fast without hammering slow wallets.
	interval := s.poll
	for {
		active, err := s.wallet.ActiveChainID(waitCtx)
		if err == nil && active == chainID {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return clierr.Wrap(clierr.CodeSwitch, "switch cancelled", ctx.Err())
			}
			return clierr.New(clierr.CodeSwitchTimeout, fmt.Sprintf("wallet did not reach chain %d in time; switch manually and retry", chainID))
		case <-time.After(interval):
		}
		if interval < time.Second {
			interval *= 2
			if interval > time.Second {
				interval = time.Second
			}
		}
	}
}
