package vaultmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFee(t *testing.T) {
	for _, tc := range []struct {
		name    string
		amount  uint64
		rateBps uint16
		want    uint64
		wantErr error
	}{
		{name: "30bps of 1000 rounds up", amount: 1000, rateBps: 30, want: 3},
		{name: "exact division", amount: 10000, rateBps: 30, want: 30},
		{name: "one unit minimum", amount: 1, rateBps: 1, want: 1},
		{name: "zero amount", amount: 0, rateBps: 30, want: 0},
		{name: "zero rate", amount: 1000, rateBps: 0, want: 0},
		{name: "full rate", amount: 1000, rateBps: 10000, want: 1000},
		{name: "max amount full rate", amount: math.MaxUint64, rateBps: 10000, want: math.MaxUint64},
		{name: "rate above 10000 rejected", amount: 1000, rateBps: 10001, wantErr: ErrInvalidFeeRate},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Fee(tc.amount, tc.rateBps)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// Fee rounding is monotone and never under-collects: the rounded-up fee is
// always >= the floored quotient.
func TestFeeNeverUnderCollects(t *testing.T) {
	amounts := []uint64{1, 9, 999, 1000, 10001, 123_456_789}
	rates := []uint16{1, 29, 30, 100, 2500, 9999, 10000}

	for _, amount := range amounts {
		for _, rate := range rates {
			fee, err := Fee(amount, rate)
			require.NoError(t, err)
			floored := amount * uint64(rate) / 10000
			require.GreaterOrEqual(t, fee, floored, "amount=%d rate=%d", amount, rate)
			require.LessOrEqual(t, fee-floored, uint64(1), "amount=%d rate=%d", amount, rate)
		}
	}
}
