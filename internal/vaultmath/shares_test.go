package vaultmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharesForDeposit(t *testing.T) {
	for _, tc := range []struct {
		name        string
		totalAssets uint64
		totalShares uint64
		assets      uint64
		want        uint64
		wantErr     error
	}{
		{name: "bootstrap mints 1:1", totalAssets: 0, totalShares: 0, assets: 1000, want: 1000},
		{name: "bootstrap zero deposit", totalAssets: 0, totalShares: 0, assets: 0, want: 0},
		{name: "ratio preserved", totalAssets: 1000, totalShares: 1000, assets: 500, want: 500},
		{name: "appreciated shares floor", totalAssets: 2000, totalShares: 1000, assets: 999, want: 499},
		{name: "dust deposit rejected", totalAssets: 1_000_000, totalShares: 1, assets: 100, wantErr: ErrZeroShares},
		{name: "shares without assets", totalAssets: 0, totalShares: 1000, assets: 10, wantErr: ErrMathOverflow},
		{name: "result exceeds uint64", totalAssets: 1, totalShares: math.MaxUint64, assets: 2, wantErr: ErrMathOverflow},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SharesForDeposit(tc.totalAssets, tc.totalShares, tc.assets)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAssetsForWithdraw(t *testing.T) {
	for _, tc := range []struct {
		name        string
		totalAssets uint64
		totalShares uint64
		shares      uint64
		want        uint64
		wantErr     error
	}{
		{name: "proportional payout", totalAssets: 1500, totalShares: 1500, shares: 500, want: 500},
		{name: "appreciated payout", totalAssets: 2000, totalShares: 1000, shares: 250, want: 500},
		{name: "payout floors", totalAssets: 1000, totalShares: 3, shares: 1, want: 333},
		{name: "zero shares rejected", totalAssets: 1000, totalShares: 1000, shares: 0, wantErr: ErrZeroShares},
		{name: "empty vault rejected", totalAssets: 0, totalShares: 0, shares: 10, wantErr: ErrNoShares},
		{name: "dust redemption rejected", totalAssets: 1, totalShares: 1_000_000, shares: 10, wantErr: ErrZeroAssets},
		{name: "result exceeds uint64", totalAssets: math.MaxUint64, totalShares: 1, shares: 2, wantErr: ErrMathOverflow},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AssetsForWithdraw(tc.totalAssets, tc.totalShares, tc.shares)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSharePrice(t *testing.T) {
	for _, tc := range []struct {
		name        string
		totalAssets uint64
		totalShares uint64
		want        uint64
		wantErr     error
	}{
		{name: "empty vault is 1.0", totalAssets: 0, totalShares: 0, want: PriceScale},
		{name: "par", totalAssets: 1000, totalShares: 1000, want: PriceScale},
		{name: "appreciated", totalAssets: 1500, totalShares: 1000, want: 1_500_000},
		{name: "depreciated", totalAssets: 500, totalShares: 1000, want: 500_000},
		{name: "price exceeds uint64", totalAssets: math.MaxUint64, totalShares: 1, wantErr: ErrMathOverflow},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SharePrice(tc.totalAssets, tc.totalShares)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// Round-tripping a deposit through a withdrawal can never create value:
// assetsOut <= assetsIn for any vault state.
func TestDepositWithdrawRoundTripNeverCreatesValue(t *testing.T) {
	states := []struct{ totalAssets, totalShares uint64 }{
		{0, 0},
		{1000, 1000},
		{1500, 1000},
		{999_999_999, 123_456},
		{7, 13},
	}
	amounts := []uint64{1, 3, 997, 1000, 123_456_789}

	for _, st := range states {
		for _, x := range amounts {
			shares, err := SharesForDeposit(st.totalAssets, st.totalShares, x)
			if err != nil {
				continue // dust rejected, nothing minted
			}
			// Totals after the deposit.
			ta := st.totalAssets + x
			ts := st.totalShares + shares
			assets, err := AssetsForWithdraw(ta, ts, shares)
			if err != nil {
				continue
			}
			require.LessOrEqual(t, assets, x,
				"state (%d,%d) deposit %d", st.totalAssets, st.totalShares, x)
		}
	}
}

// The bootstrap scenario from the vault design: 1000 then 500 into an empty
// vault keeps the share price at exactly 1.0.
func TestBootstrapScenario(t *testing.T) {
	shares, err := SharesForDeposit(0, 0, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), shares)

	price, err := SharePrice(1000, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(PriceScale), price)

	shares2, err := SharesForDeposit(1000, 1000, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(500), shares2)

	price, err = SharePrice(1500, 1500)
	require.NoError(t, err)
	require.Equal(t, uint64(PriceScale), price)
}
