package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version string       `json:"version"`
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorBody   `json:"error"`
	Meta    EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

// BalanceView is one probed funding candidate.
type BalanceView struct {
	Chain         string `json:"chain"`
	ChainID       int64  `json:"chain_id"`
	Token         string `json:"token"`
	TokenAddress  string `json:"token_address"`
	Balance       string `json:"balance"`
	BalanceMinor  string `json:"balance_minor_units"`
	ProbeFailed   bool   `json:"probe_failed,omitempty"`
	ProbeError    string `json:"probe_error,omitempty"`
	SelectedFirst bool   `json:"selected,omitempty"`
}

// QuoteView is the display form of a route quote.
type QuoteView struct {
	QuoteID        string    `json:"quote_id"`
	SourceChainID  int64     `json:"source_chain_id"`
	DestChainID    int64     `json:"dest_chain_id"`
	ExpectedOutput string    `json:"expected_output"`
	MinimumOutput  string    `json:"minimum_output"`
	FeesTotal      string    `json:"fees_total"`
	Spender        string    `json:"spender,omitempty"`
	HasPayload     bool      `json:"has_payload"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// TradeReport summarizes one completed (or failed) trade session.
type TradeReport struct {
	SessionID    string `json:"session_id"`
	State        string `json:"state"`
	FundingChain int64  `json:"funding_chain_id,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	ApprovalTx   string `json:"approval_tx_hash,omitempty"`
	Failure      string `json:"failure,omitempty"`
}

// ActivityView is one display entry from the local trade log.
type ActivityView struct {
	ID        string    `json:"id"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// StrategyView is one strategy listed from the on-chain registry.
type StrategyView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	VideoURL  string    `json:"video_url"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}
