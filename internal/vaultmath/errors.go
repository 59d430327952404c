package vaultmath

import "errors"

// Error definitions for zero-tolerance error handling
var (
	ErrMathOverflow   = errors.New("math overflow occurred")
	ErrZeroShares     = errors.New("share amount rounds to zero")
	ErrZeroAssets     = errors.New("asset amount rounds to zero")
	ErrNoShares       = errors.New("no shares exist in vault")
	ErrInvalidFeeRate = errors.New("fee rate exceeds 10000 bps")
)
