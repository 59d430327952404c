/*

Share accounting engine: pure conversions between deposited-asset amounts
and share units. All intermediate multiplication is widened through
sdkmath.Int so a uint64 * uint64 product can never wrap; results must fit
back into uint64 or the conversion fails.

Rounding always floors, so conversions never favor the caller at the
pool's expense.

*/

package vaultmath

import (
	sdkmath "cosmossdk.io/math"
)

// PriceScale is the fixed-point scale of share prices: 1_000_000 represents
// a price of 1.0.
const PriceScale = 1_000_000

// SharesForDeposit converts a deposit of assets into the share amount to
// mint, given the vault's totals prior to the deposit.
//
// The first deposit (totalShares == 0) mints 1:1. Otherwise
// shares = floor(assets * totalShares / totalAssets). A deposit that rounds
// to zero shares is rejected with ErrZeroShares.
func SharesForDeposit(totalAssets, totalShares, assets uint64) (uint64, error) {
	if totalShares == 0 {
		return assets, nil
	}
	if totalAssets == 0 {
		// Shares outstanding but no assets: the ratio is undefined and the
		// division below would be by zero.
		return 0, ErrMathOverflow
	}

	shares := sdkmath.NewIntFromUint64(assets).
		Mul(sdkmath.NewIntFromUint64(totalShares)).
		Quo(sdkmath.NewIntFromUint64(totalAssets))

	if !shares.IsUint64() {
		return 0, ErrMathOverflow
	}
	if shares.IsZero() {
		return 0, ErrZeroShares
	}

	return shares.Uint64(), nil
}

// AssetsForWithdraw converts a share amount being redeemed into the asset
// amount owed: floor(shares * totalAssets / totalShares). Fails with
// ErrNoShares when the vault has no shares outstanding and ErrZeroAssets
// when the redemption rounds to nothing.
func AssetsForWithdraw(totalAssets, totalShares, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrZeroShares
	}
	if totalShares == 0 {
		return 0, ErrNoShares
	}

	assets := sdkmath.NewIntFromUint64(shares).
		Mul(sdkmath.NewIntFromUint64(totalAssets)).
		Quo(sdkmath.NewIntFromUint64(totalShares))

	if !assets.IsUint64() {
		return 0, ErrMathOverflow
	}
	if assets.IsZero() {
		return 0, ErrZeroAssets
	}

	return assets.Uint64(), nil
}

// SharePrice returns (totalAssets * PriceScale) / totalShares, or PriceScale
// (a price of exactly 1.0) when no shares exist.
func SharePrice(totalAssets, totalShares uint64) (uint64, error) {
	if totalShares == 0 {
		return PriceScale, nil
	}

	price := sdkmath.NewIntFromUint64(totalAssets).
		Mul(sdkmath.NewInt(PriceScale)).
		Quo(sdkmath.NewIntFromUint64(totalShares))

	if !price.IsUint64() {
		return 0, ErrMathOverflow
	}

	return price.Uint64(), nil
}
