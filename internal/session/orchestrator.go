package session

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/tradetok/copytrade/internal/chain"
	"github.com/tradetok/copytrade/internal/engine"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/funding"
	"github.com/tradetok/copytrade/internal/wallet"
)

// Resolver finds the funding source for a decimal amount.
type Resolver interface {
	Resolve(ctx context.Context, account common.Address, amount string) (funding.Selection, error)
}

// Quoter fetches a route estimate.
type Quoter interface {
	Estimate(ctx context.Context, req engine.EstimateRequest) (engine.Quote, error)
}

// AllowanceReader reads ERC20 allowances.
type AllowanceReader interface {
	Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error)
}

// Switcher moves the wallet onto a chain and confirms it by observation.
type Switcher interface {
	EnsureChain(ctx context.Context, chainID int64) error
}

// Miner waits for a broadcast transaction to be mined.
type Miner interface {
	WaitMined(ctx context.Context, chainID int64, txHash common.Hash, pollInterval, timeout time.Duration) error
}

// Orchestrator drives a session through resolve, quote, allowance, approval,
// switch and execution. Each phase tags its outbound call with the session
// sequence and discards the response if the intent changed while it was in
// flight.
type Orchestrator struct {
	Resolver   Resolver
	Quoter     Quoter
	Allowances AllowanceReader
	Wallet     wallet.Wallet
	Switcher   Switcher
	Miner      Miner
	Log        *logrus.Entry

	ApprovalPollInterval time.Duration
	ApprovalTimeout      time.Duration
}

// Run executes one trade attempt to a terminal or resting state. The
// returned error is nil only when the session succeeded; a session that
// stopped at NeedsApproval returns the approval failure and can be retried.
func (o *Orchestrator) Run(ctx context.Context, s *Session) (Snapshot, error) {
	log := o.logger().WithField("session", s.ID())

	seq, intent := s.begin(StateResolvingSource)
	if err := intent.Validate(); err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	account := o.Wallet.Address()
	if intent.DestReceiver == "" {
		intent.DestReceiver = account.Hex()
	}

	selection, err := o.Resolver.Resolve(ctx, account, intent.Amount)
	if err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	if err := s.commit(seq, func() {
		s.selection = selection
		s.state = StateQuoting
	}); err != nil {
		return s.Snapshot(), err
	}
	log.WithFields(logrus.Fields{
		"chain_id": selection.ChainID,
		"token":    selection.TokenAddress.Hex(),
		"balance":  selection.Balance.String(),
	}).Info("funding source resolved")

	quote, err := o.Quoter.Estimate(ctx, EstimateRequestFor(intent, selection, account))
	if err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	if err := s.commit(seq, func() {
		s.quote = quote
		s.state = StateCheckingAllowance
	}); err != nil {
		return s.Snapshot(), err
	}
	log.WithFields(logrus.Fields{
		"quote_id":        quote.QuoteID,
		"expected_output": quote.ExpectedOutput,
	}).Info("route quoted")

	spender := common.HexToAddress(strings.TrimSpace(quote.Spender))
	allowance, err := o.Allowances.Allowance(ctx, selection.ChainID, selection.TokenAddress, account, spender)
	if err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	needsApproval := allowance.Cmp(selection.Target) < 0
	if err := s.commit(seq, func() {
		s.needsApproval = needsApproval
		if needsApproval {
			s.state = StateNeedsApproval
		}
	}); err != nil {
		return s.Snapshot(), err
	}

	if needsApproval {
		if err := o.approve(ctx, s, seq, selection, spender, account, log); err != nil {
			return s.Snapshot(), err
		}
	}

	if err := s.commit(seq, func() { s.state = StateSwitchingNetwork }); err != nil {
		return s.Snapshot(), err
	}
	if err := o.Switcher.EnsureChain(ctx, selection.ChainID); err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	if err := s.commit(seq, func() { s.state = StateReadyToExecute }); err != nil {
		return s.Snapshot(), err
	}

	req, err := wallet.DecodePayload(quote.Payload.To, quote.Payload.Data, quote.Payload.Value)
	if err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	if err := s.commit(seq, func() { s.state = StateExecuting }); err != nil {
		return s.Snapshot(), err
	}
	execTx, err := o.Wallet.SendTransaction(ctx, selection.ChainID, req)
	if err != nil {
		err = s.fail(seq, err)
		return s.Snapshot(), err
	}
	if err := s.commit(seq, func() {
		s.execTx = execTx
		s.state = StateSucceeded
	}); err != nil {
		return s.Snapshot(), err
	}
	log.WithField("tx", execTx.Hex()).Info("trade submitted")
	return s.Snapshot(), nil
}

// approve switches onto the funding chain, issues an exact-amount approval,
// waits for it to mine and re-checks the allowance. Any failure drops the
// session back to NeedsApproval rather than a terminal state; the user can
// retry.
func (o *Orchestrator) approve(ctx context.Context, s *Session, seq uint64, selection funding.Selection, spender, account common.Address, log *logrus.Entry) error {
	if err := s.commit(seq, func() { s.state = StateSwitchingNetwork }); err != nil {
		return err
	}
	if err := o.Switcher.EnsureChain(ctx, selection.ChainID); err != nil {
		return s.fail(seq, err)
	}

	if err := s.commit(seq, func() { s.state = StateApproving }); err != nil {
		return err
	}
	calldata, err := chain.PackApprove(spender, selection.Target)
	if err != nil {
		return s.rest(seq, StateNeedsApproval, err)
	}
	approvalTx, err := o.Wallet.SendTransaction(ctx, selection.ChainID, wallet.TxRequest{
		To:   selection.TokenAddress,
		Data: calldata,
	})
	if err != nil {
		return s.rest(seq, StateNeedsApproval, err)
	}
	log.WithField("tx", approvalTx.Hex()).Info("approval submitted")
	if err := o.Miner.WaitMined(ctx, selection.ChainID, approvalTx, o.ApprovalPollInterval, o.ApprovalTimeout); err != nil {
		return s.rest(seq, StateNeedsApproval, err)
	}

	allowance, err := o.Allowances.Allowance(ctx, selection.ChainID, selection.TokenAddress, account, spender)
	if err != nil {
		return s.rest(seq, StateNeedsApproval, err)
	}
	if allowance.Cmp(selection.Target) < 0 {
		return s.rest(seq, StateNeedsApproval, clierr.New(clierr.CodeExecution, "allowance still below the required amount after approval"))
	}
	return s.commit(seq, func() {
		s.approvalTx = approvalTx
		s.needsApproval = false
	})
}

// EstimateRequestFor builds the engine quote request for an intent funded by
// the given selection. The receiver defaults to the account.
func EstimateRequestFor(intent TradeIntent, selection funding.Selection, account common.Address) engine.EstimateRequest {
	receiver := strings.TrimSpace(intent.DestReceiver)
	if receiver == "" {
		receiver = account.Hex()
	}
	return engine.EstimateRequest{
		SrcChainID:   selection.ChainID,
		SrcToken:     selection.TokenAddress.Hex(),
		SrcAmountWei: selection.Target.String(),
		DestToken:    intent.DestToken,
		DestChainID:  intent.DestChainID,
		SlippageBps:  intent.SlippageBps,
		UserAccount:  account.Hex(),
		DestReceiver: receiver,
	}
}

func (o *Orchestrator) logger() *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
