package vaultmath

import (
	sdkmath "cosmossdk.io/math"
)

// feeRoundingBias is added to the numerator before dividing by 10000 so the
// fee rounds up: the protocol never under-collects due to truncation.
const feeRoundingBias = 9999

// Fee computes the protocol fee for a swap: ceil(amount * rateBps / 10000).
// A rate above 10000 bps is rejected with ErrInvalidFeeRate; zero amount or
// zero rate yields a zero fee.
func Fee(amount uint64, rateBps uint16) (uint64, error) {
	if rateBps > 10000 {
		return 0, ErrInvalidFeeRate
	}
	if amount == 0 || rateBps == 0 {
		return 0, nil
	}

	fee := sdkmath.NewIntFromUint64(amount).
		Mul(sdkmath.NewInt(int64(rateBps))).
		Add(sdkmath.NewInt(feeRoundingBias)).
		Quo(sdkmath.NewInt(10000))

	if !fee.IsUint64() {
		return 0, ErrMathOverflow
	}

	return fee.Uint64(), nil
}
