/*

Ledger entities for the pooled-asset vault system. These records carry no
logic of their own; all mutation goes through the engine.

*/

package types

import (
	"github.com/gagliardetto/solana-go"
)

// Vault represents one pooled-asset pool for a single underlying token.
// TotalAssets and TotalShares only move via deposit, withdraw, or guarded
// swap reconciliation.
type Vault struct {
	Address           solana.PublicKey `json:"address"`
	Authority         solana.PublicKey `json:"authority"`           // may toggle strategy execution
	TokenMint         solana.PublicKey `json:"token_mint"`          // underlying token the vault accepts
	ShareMint         solana.PublicKey `json:"share_mint"`          // vault share token
	EscrowAccount     solana.PublicKey `json:"escrow_account"`      // vault-owned underlying token account
	TotalAssets       uint64           `json:"total_assets"`
	TotalShares       uint64           `json:"total_shares"`
	Bump              uint8            `json:"bump"`
	StrategyEnabled   bool             `json:"strategy_enabled"`
	PerformanceFeeBps uint16           `json:"performance_fee_bps"` // max 5000
}

// GlobalState is the protocol-wide singleton holding the swap fee rate and
// the admin identity permitted to change it.
type GlobalState struct {
	Address solana.PublicKey `json:"address"`
	Admin   solana.PublicKey `json:"admin"`
	Bump    uint8            `json:"bump"`
	FeeBps  uint16           `json:"fee_bps"` // out of 10000
	Version uint64           `json:"version"`
}

// UserState tracks per-principal swap counters. A vault gets one of these
// as the principal of its own strategy swaps.
type UserState struct {
	Address     solana.PublicKey `json:"address"`
	User        solana.PublicKey `json:"user"`
	Bump        uint8            `json:"bump"`
	TotalVolume uint64           `json:"total_volume"`
	Swaps       uint64           `json:"swaps"`
}

// SwapContext is the immutable audit record written for every swap, keyed
// by the principal's running swap counter so each swap has a unique slot.
type SwapContext struct {
	Address      solana.PublicKey `json:"address"`
	User         solana.PublicKey `json:"user"`
	InputMint    solana.PublicKey `json:"input_mint"`
	OutputMint   solana.PublicKey `json:"output_mint"`
	AmountIn     uint64           `json:"amount_in"`
	MinAmountOut uint64           `json:"min_amount_out"`
	SwapID       uint64           `json:"swap_id"`
	Timestamp    int64            `json:"timestamp"`
	Bump         uint8            `json:"bump"`
}
