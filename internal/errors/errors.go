package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure kind mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeAuth        Code = 10
	CodeRateLimited Code = 11
	CodeUnavailable Code = 12

	// Trade session failure kinds.
	CodeInsufficientFunds Code = 20
	CodeProbe             Code = 21
	CodeQuote             Code = 22
	CodeSwitch            Code = 23
	CodeSwitchTimeout     Code = 24
	CodeSigningRejected   Code = 25
	CodeExecution         Code = 26
)

// Error is a typed error that carries a stable failure code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the failure code carried by err, or CodeInternal for
// unclassified errors. Nil maps to CodeSuccess.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}

// Retryable reports whether the failure kind is worth retrying without a
// change of inputs. Insufficient funds, signing rejections and execution
// failures require user action first.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeProbe, CodeQuote, CodeUnavailable, CodeRateLimited:
		return true
	default:
		return false
	}
}
