package models

import "errors"

// Configuration and lifecycle errors are returned synchronously to the caller.
var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPlanNotFound           = errors.New("plan not found")
	ErrPlanNotRemovable       = errors.New("plan not removable")
	ErrControllerNotFound     = errors.New("controller not found")
)

// Execution-path errors are recorded as failed attempts; the plan stays active.
var (
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrSwapTimeout           = errors.New("swap timeout")
	ErrSwapReverted          = errors.New("swap reverted")
	ErrInsufficientGas       = errors.New("insufficient gas")
	ErrNotConfigured         = errors.New("missing capability")
)

const (
	ReasonInsufficientAllowance = "insufficient_allowance"
	ReasonInsufficientBalance   = "insufficient_balance"
	ReasonSlippageExceeded      = "slippage_exceeded"
	ReasonSwapTimeout           = "swap_timeout"
	ReasonSwapReverted          = "swap_reverted"
	ReasonInsufficientGas       = "insufficient_gas"
	ReasonNotConfigured         = "not_configured"
	ReasonInternal              = "internal_error"
)

// FailureReason maps an execution-path error to its recorded reason string.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientAllowance):
		return ReasonInsufficientAllowance
	case errors.Is(err, ErrInsufficientBalance):
		return ReasonInsufficientBalance
	case errors.Is(err, ErrSlippageExceeded):
		return ReasonSlippageExceeded
	case errors.Is(err, ErrSwapTimeout):
		return ReasonSwapTimeout
	case errors.Is(err, ErrSwapReverted):
		return ReasonSwapReverted
	case errors.Is(err, ErrInsufficientGas):
		return ReasonInsufficientGas
	case errors.Is(err, ErrNotConfigured):
		return ReasonNotConfigured
	default:
		return ReasonInternal
	}
}
