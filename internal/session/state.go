package session

import clierr "github.com/tradetok/copytrade/internal/errors"

// State is the trade session's lifecycle position. Succeeded and Failed are
// terminal; NeedsApproval is a resting state the user can retry from.
type State int

const (
	StateIdle State = iota
	StateResolvingSource
	StateQuoting
	StateCheckingAllowance
	StateNeedsApproval
	StateApproving
	StateSwitchingNetwork
	StateReadyToExecute
	StateExecuting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingSource:
		return "resolving_source"
	case StateQuoting:
		return "quoting"
	case StateCheckingAllowance:
		return "checking_allowance"
	case StateNeedsApproval:
		return "needs_approval"
	case StateApproving:
		return "approving"
	case StateSwitchingNetwork:
		return "switching_network"
	case StateReadyToExecute:
		return "ready_to_execute"
	case StateExecuting:
		return "executing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureReason names the terminal failure class for a coded error.
func FailureReason(err error) string {
	switch clierr.CodeOf(err) {
	case clierr.CodeInsufficientFunds:
		return "insufficient-funds"
	case clierr.CodeProbe:
		return "probe-failure"
	case clierr.CodeQuote:
		return "quote-error"
	case clierr.CodeSwitch, clierr.CodeSwitchTimeout:
		return "switch-error"
	case clierr.CodeSigningRejected, clierr.CodeExecution:
		return "execution-rejected"
	default:
		return "internal-error"
	}
}
