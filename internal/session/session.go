package session

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tradetok/copytrade/internal/engine"
	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/funding"
)

// TradeIntent is what the user asked for: buy DestToken on DestChainID,
// spending Amount of the funding asset. Amount is a decimal string in the
// funding asset's units.
type TradeIntent struct {
	DestChainID  int64
	DestToken    string
	Amount       string
	DestReceiver string
	SlippageBps  int64
}

func (i TradeIntent) Validate() error {
	if i.DestChainID <= 0 {
		return clierr.New(clierr.CodeUsage, "destination chain id must be positive")
	}
	if !common.IsHexAddress(strings.TrimSpace(i.DestToken)) {
		return clierr.New(clierr.CodeUsage, "destination token must be a hex address")
	}
	if strings.TrimSpace(i.Amount) == "" {
		return clierr.New(clierr.CodeUsage, "amount is required")
	}
	if i.DestReceiver != "" && !common.IsHexAddress(strings.TrimSpace(i.DestReceiver)) {
		return clierr.New(clierr.CodeUsage, "destination receiver must be a hex address")
	}
	if i.SlippageBps < 0 || i.SlippageBps > 10_000 {
		return clierr.New(clierr.CodeUsage, "slippage must be between 0 and 10000 bps")
	}
	return nil
}

// Session owns one trade attempt. All derived entities (funding selection,
// quote, approval state) belong to the session and die with it. Every
// outbound request is tagged with the sequence counter current at send time;
// a response whose tag no longer matches is dropped on arrival.
type Session struct {
	id string

	mu            sync.Mutex
	seq           uint64
	state         State
	intent        TradeIntent
	selection     funding.Selection
	quote         engine.Quote
	needsApproval bool
	approvalTx    common.Hash
	execTx        common.Hash
	failure       error
}

func NewSession(intent TradeIntent) *Session {
	return &Session{id: uuid.NewString(), state: StateIdle, intent: intent}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetIntent replaces the intent on a live session. Everything derived from
// the old intent is invalid, so the sequence advances (orphaning in-flight
// responses) and the session drops back to Idle.
func (s *Session) SetIntent(intent TradeIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = intent
	s.seq++
	s.state = StateIdle
	s.selection = funding.Selection{}
	s.quote = engine.Quote{}
	s.needsApproval = false
	s.approvalTx = common.Hash{}
	s.execTx = common.Hash{}
	s.failure = nil
}

// Snapshot is a copy of the session's externally visible progress.
type Snapshot struct {
	ID            string
	State         State
	Intent        TradeIntent
	Selection     funding.Selection
	Quote         engine.Quote
	NeedsApproval bool
	ApprovalTx    common.Hash
	ExecTx        common.Hash
	Failure       error
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:            s.id,
		State:         s.state,
		Intent:        s.intent,
		Selection:     s.selection,
		Quote:         s.quote,
		NeedsApproval: s.needsApproval,
		ApprovalTx:    s.approvalTx,
		ExecTx:        s.execTx,
		Failure:       s.failure,
	}
}

// begin captures the sequence a phase's outbound work is tagged with.
func (s *Session) begin(state State) (uint64, TradeIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return s.seq, s.intent
}

// commit applies fn only if the session still expects responses tagged seq.
// A stale tag means the intent changed mid-flight; the result is discarded
// and the caller unwinds.
func (s *Session) commit(seq uint64, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return errStale
	}
	fn()
	return nil
}

var errStale = clierr.New(clierr.CodeUsage, "session invalidated by an intent change")

// Invalidated reports whether err is the stale-response discard outcome.
func Invalidated(err error) bool {
	return err == errStale
}

// fail moves the session to Failed. An error tagged with an older sequence
// is a stale response like any other and is discarded instead of touching
// the session the intent change reset.
func (s *Session) fail(seq uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return errStale
	}
	s.state = StateFailed
	s.failure = err
	return err
}

// rest parks the session in a non-terminal state with the failure surfaced,
// leaving it retryable. Stale failures are discarded the same way fail
// discards them.
func (s *Session) rest(seq uint64, state State, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return errStale
	}
	s.state = state
	s.failure = err
	return err
}
