package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tradetok/copytrade/internal/activity"
	"github.com/tradetok/copytrade/internal/engine"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/funding"
	"github.com/tradetok/copytrade/internal/id"
	"github.com/tradetok/copytrade/internal/model"
	"github.com/tradetok/copytrade/internal/proxy"
	"github.com/tradetok/copytrade/internal/registry"
	"github.com/tradetok/copytrade/internal/session"
	"github.com/tradetok/copytrade/internal/strategy"
	"github.com/tradetok/copytrade/internal/wallet"
	walletsigner "github.com/tradetok/copytrade/internal/wallet/signer"
)

func (s *runtimeState) newBalancesCommand() *cobra.Command {
	var account, amount string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Probe funding-asset balances across supported chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := s.resolveAccount(account)
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			results := s.resolver.ProbeAll(ctx, owner)
			views := make([]model.BalanceView, 0, len(results))
			for _, res := range results {
				view := model.BalanceView{
					Chain:        registry.ChainName(res.ChainID),
					ChainID:      res.ChainID,
					Token:        res.Symbol,
					TokenAddress: res.TokenAddress.Hex(),
				}
				if res.Err != nil {
					view.ProbeFailed = true
					view.ProbeError = res.Err.Error()
				} else {
					view.BalanceMinor = res.Balance.String()
					view.Balance = id.FormatDecimal(res.Balance.String(), res.Decimals)
				}
				views = append(views, view)
			}
			if strings.TrimSpace(amount) != "" {
				if idx := funding.FirstSufficient(results, amount); idx >= 0 {
					views[idx].SelectedFirst = true
				}
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), views)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Account address (defaults to the configured signer)")
	cmd.Flags().StringVar(&amount, "amount", "", "Mark the candidate that would fund this amount")
	return cmd
}

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	var account, destChain, destToken, amount, receiver string
	var slippageBps int64
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Resolve a funding source and fetch a route quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := s.resolveAccount(account)
			if err != nil {
				return err
			}
			intent, err := s.buildIntent(destChain, destToken, amount, receiver, slippageBps, owner)
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			selection, err := s.resolver.Resolve(ctx, owner, intent.Amount)
			if err != nil {
				return err
			}
			quote, err := s.engine.Estimate(ctx, session.EstimateRequestFor(intent, selection, owner))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), model.QuoteView{
				QuoteID:        quote.QuoteID,
				SourceChainID:  quote.SourceChainID,
				DestChainID:    intent.DestChainID,
				ExpectedOutput: quote.ExpectedOutput,
				MinimumOutput:  quote.MinimumOutput,
				FeesTotal:      sumFees(quote.Fees),
				Spender:        quote.Spender,
				HasPayload:     !quote.Payload.Empty(),
				FetchedAt:      quote.FetchedAt,
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Account address (defaults to the configured signer)")
	cmd.Flags().StringVar(&destChain, "dest-chain", "", "Destination chain (slug or id)")
	cmd.Flags().StringVar(&destToken, "dest-token", "", "Destination token address")
	cmd.Flags().StringVar(&amount, "amount", "", "Spend amount in funding-asset units (decimal)")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Destination receiver (defaults to the account)")
	cmd.Flags().Int64Var(&slippageBps, "slippage-bps", 0, "Slippage tolerance in bps")
	_ = cmd.MarkFlagRequired("dest-chain")
	_ = cmd.MarkFlagRequired("dest-token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newTradeCommand() *cobra.Command {
	var destChain, destToken, amount, receiver string
	var slippageBps int64
	var waitSettlement bool
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Execute a cross-chain trade end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := walletsigner.NewLocalSignerFromEnv()
			if err != nil {
				return clierr.Wrap(clierr.CodeAuth, "load signing key", err)
			}
			intent, err := s.buildIntent(destChain, destToken, amount, receiver, slippageBps, sig.Address())
			if err != nil {
				return err
			}

			w := wallet.NewLocalWallet(sig, s.settings.RPCOverrides, 0)
			orch := &session.Orchestrator{
				Resolver:   s.resolver,
				Quoter:     s.engine,
				Allowances: s.chainClient,
				Wallet:     w,
				Switcher:   wallet.NewSwitchController(w, s.settings.SwitchDeadline, s.settings.SwitchPollInterval),
				Miner:      s.chainClient,
				Log:        logrus.NewEntry(s.log),
			}
			sess := session.NewSession(intent)

			ctx, cancel := s.commandContext()
			defer cancel()

			spin := s.startSpinner("executing trade")
			snapshot, runErr := orch.Run(ctx, sess)
			s.stopSpinner(spin)

			if runErr != nil {
				return runErr
			}
			report := tradeReport(snapshot, nil)

			s.recordActivity(sess.ID(), intent.Amount)

			if waitSettlement {
				spin = s.startSpinner("waiting for settlement")
				settled, settleErr := s.engine.PollSettlement(ctx, snapshot.ExecTx.Hex(), 3*time.Second, 2*time.Minute)
				s.stopSpinner(spin)
				if settleErr == nil {
					report.State = "settled"
				} else {
					// Settlement is informational; the trade already
					// succeeded when the hash was obtained.
					color.New(color.FgYellow).Fprintf(s.runner.stderr, "settlement status unknown: %v (last: %s)\n", settleErr, settled.Status)
				}
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), report)
		},
	}
	cmd.Flags().StringVar(&destChain, "dest-chain", "", "Destination chain (slug or id)")
	cmd.Flags().StringVar(&destToken, "dest-token", "", "Destination token address")
	cmd.Flags().StringVar(&amount, "amount", "", "Spend amount in funding-asset units (decimal)")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Destination receiver (defaults to the signer)")
	cmd.Flags().Int64Var(&slippageBps, "slippage-bps", 0, "Slippage tolerance in bps")
	cmd.Flags().BoolVar(&waitSettlement, "wait-settlement", false, "Poll settlement status after submission")
	_ = cmd.MarkFlagRequired("dest-chain")
	_ = cmd.MarkFlagRequired("dest-token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newStatusCommand() *cobra.Command {
	var txHash string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch settlement status for a submitted trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			status, err := s.engine.Status(ctx, txHash)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), json.RawMessage(status.Body))
		},
	}
	cmd.Flags().StringVar(&txHash, "tx", "", "Submitted transaction hash")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

func (s *runtimeState) newActivityCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent trade activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := activity.OpenStore(s.settings.ActivityStorePath, s.settings.ActivityLockPath)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "open activity store", err)
			}
			defer func() { _ = store.Close() }()

			records, err := store.List(limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list activity", err)
			}
			views := make([]model.ActivityView, 0, len(records))
			for _, rec := range records {
				views = append(views, model.ActivityView{
					ID:        rec.ID,
					Amount:    rec.Amount,
					Timestamp: time.Unix(rec.Timestamp, 0).UTC(),
				})
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), views)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to return")
	return cmd
}

func (s *runtimeState) newStrategiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List active strategies from the on-chain registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := s.settings.StrategyRegistryChainID
			rpcURL, err := registry.ResolveRPCURL(s.settings.RPCOverride(chainID), chainID)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "resolve registry rpc url", err)
			}
			reader := strategy.NewReader(rpcURL, common.HexToAddress(s.settings.StrategyRegistryAddress))

			ctx, cancel := s.commandContext()
			defer cancel()

			spin := s.startSpinner("reading strategy registry")
			strategies, err := reader.Latest(ctx)
			s.stopSpinner(spin)
			if err != nil {
				return err
			}

			views := make([]model.StrategyView, 0, len(strategies))
			for _, st := range strategies {
				views = append(views, model.StrategyView{
					ID:        fmt.Sprintf("%d", st.ID),
					Title:     st.Title,
					VideoURL:  st.VideoURL,
					RiskLevel: st.Risk.String(),
					CreatedAt: time.Unix(int64(st.CreatedAt), 0).UTC(),
					Active:    st.Active,
				})
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), views)
		},
	}
	return cmd
}

func (s *runtimeState) newServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the same-origin trade proxy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := listen
			if strings.TrimSpace(addr) == "" {
				addr = s.settings.ListenAddr
			}
			logger := logrus.New()
			logger.SetOutput(s.runner.stderr)
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			server := proxy.NewServer(s.engine, logrus.NewEntry(logger))
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", addr).Info("proxy listening")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return clierr.Wrap(clierr.CodeInternal, "shut down proxy", err)
				}
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return clierr.Wrap(clierr.CodeUnavailable, "proxy server failed", err)
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to config)")
	return cmd
}

func (s *runtimeState) buildIntent(destChain, destToken, amount, receiver string, slippageBps int64, account common.Address) (session.TradeIntent, error) {
	chain, err := registry.ParseChain(destChain)
	if err != nil {
		return session.TradeIntent{}, clierr.Wrap(clierr.CodeUsage, "parse destination chain", err)
	}
	if slippageBps == 0 {
		slippageBps = s.settings.SlippageBps
	}
	if strings.TrimSpace(receiver) == "" {
		receiver = account.Hex()
	}
	intent := session.TradeIntent{
		DestChainID:  chain.ChainID,
		DestToken:    destToken,
		Amount:       amount,
		DestReceiver: receiver,
		SlippageBps:  slippageBps,
	}
	if err := intent.Validate(); err != nil {
		return session.TradeIntent{}, err
	}
	return intent, nil
}

func (s *runtimeState) resolveAccount(flagValue string) (common.Address, error) {
	if strings.TrimSpace(flagValue) != "" {
		if !common.IsHexAddress(flagValue) {
			return common.Address{}, clierr.New(clierr.CodeUsage, "--account must be a hex address")
		}
		return common.HexToAddress(flagValue), nil
	}
	sig, err := walletsigner.NewLocalSignerFromEnv()
	if err != nil {
		return common.Address{}, clierr.Wrap(clierr.CodeUsage, "provide --account or configure a signing key", err)
	}
	return sig.Address(), nil
}

func (s *runtimeState) commandContext() (context.Context, context.CancelFunc) {
	// Trade flows span several sequential network calls; give them more
	// headroom than a single request timeout.
	return context.WithTimeout(context.Background(), 6*s.settings.Timeout)
}

func (s *runtimeState) recordActivity(sessionID, amount string) {
	store, err := activity.OpenStore(s.settings.ActivityStorePath, s.settings.ActivityLockPath)
	if err != nil {
		s.log.WithError(err).Warn("open activity store")
		return
	}
	defer func() { _ = store.Close() }()
	if _, err := store.Append(activity.Record{ID: sessionID, Amount: amount}); err != nil {
		s.log.WithError(err).Warn("record trade activity")
	}
}

func (s *runtimeState) startSpinner(message string) *spinner.Spinner {
	if s.settings.OutputMode != "plain" {
		return nil
	}
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.runner.stderr))
	spin.Suffix = " " + message
	spin.Start()
	return spin
}

func (s *runtimeState) stopSpinner(spin *spinner.Spinner) {
	if spin != nil {
		spin.Stop()
	}
}

func tradeReport(snapshot session.Snapshot, err error) model.TradeReport {
	report := model.TradeReport{
		SessionID:    snapshot.ID,
		State:        snapshot.State.String(),
		FundingChain: snapshot.Selection.ChainID,
	}
	if (snapshot.ExecTx != common.Hash{}) {
		report.TxHash = snapshot.ExecTx.Hex()
	}
	if (snapshot.ApprovalTx != common.Hash{}) {
		report.ApprovalTx = snapshot.ApprovalTx.Hex()
	}
	if err != nil {
		report.Failure = session.FailureReason(err)
	}
	return report
}

// sumFees adds minor-unit fee amounts; any non-numeric entry makes the
// total unavailable rather than wrong.
func sumFees(fees []engine.Fee) string {
	total := new(big.Int)
	for _, fee := range fees {
		v, ok := new(big.Int).SetString(strings.TrimSpace(fee.Amount), 10)
		if !ok {
			return ""
		}
		total.Add(total, v)
	}
	if len(fees) == 0 {
		return "0"
	}
	return total.String()
}
