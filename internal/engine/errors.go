package engine

import "errors"

// Error definitions for zero-tolerance error handling. Every failure mode
// surfaces verbatim to the caller as a distinct, named condition; nothing
// is retried internally.
var (
	ErrZeroAmount               = errors.New("cannot deposit or withdraw zero amount")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInsufficientBalance      = errors.New("insufficient balance in input account")
	ErrInsufficientAssets       = errors.New("insufficient assets in vault")
	ErrMintMismatch             = errors.New("mint mismatch")
	ErrInvalidOwner             = errors.New("invalid account owner")
	ErrInvalidTokenAccountOwner = errors.New("token account not owned by principal")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrStrategyDisabled         = errors.New("strategy execution not enabled")
	ErrStrategyNotImplemented   = errors.New("strategy not implemented")
	ErrInvalidFee               = errors.New("invalid performance fee (max 5000 bps)")
	ErrProtectedAccount         = errors.New("protected account in forwarded account list")
	ErrSlippageExceeded         = errors.New("slippage tolerance exceeded")
	ErrUnexpectedInputAmount    = errors.New("swap consumed more input than authorized")
	ErrInvalidSwapProgram       = errors.New("forwarded program is not the configured swap target")
	ErrInvalidSwapInstruction   = errors.New("forwarded instruction payload is invalid")
	ErrUnknownVault             = errors.New("vault does not exist")
	ErrVaultExists              = errors.New("vault already exists for mint")
	ErrUnknownUser              = errors.New("principal is not registered")
	ErrUserExists               = errors.New("principal already registered")
	ErrGlobalStateMissing       = errors.New("global state not initialized")
	ErrGlobalStateExists        = errors.New("global state already initialized")
	ErrUnknownFeeVault          = errors.New("fee vault not initialized for mint")
	ErrFeeVaultExists           = errors.New("fee vault already initialized for mint")
)
