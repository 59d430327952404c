package types

import (
	"github.com/gagliardetto/solana-go"
)

// Event is a typed notification record emitted by the engine. Delivery is
// fire-and-forget; the engine never blocks on or retries emission.
type Event interface {
	EventName() string
}

// DepositEvent is emitted after a committed deposit, carrying the resulting
// pool totals.
type DepositEvent struct {
	User        solana.PublicKey `json:"user"`
	Vault       solana.PublicKey `json:"vault"`
	Amount      uint64           `json:"amount"`
	Shares      uint64           `json:"shares"`
	TotalAssets uint64           `json:"total_assets"`
	TotalShares uint64           `json:"total_shares"`
	Timestamp   int64            `json:"timestamp"`
}

func (DepositEvent) EventName() string { return "deposit" }

// WithdrawEvent is emitted after a committed withdrawal.
type WithdrawEvent struct {
	User        solana.PublicKey `json:"user"`
	Vault       solana.PublicKey `json:"vault"`
	Shares      uint64           `json:"shares"`
	Amount      uint64           `json:"amount"`
	TotalAssets uint64           `json:"total_assets"`
	TotalShares uint64           `json:"total_shares"`
	Timestamp   int64            `json:"timestamp"`
}

func (WithdrawEvent) EventName() string { return "withdraw" }

// SwapEvent is emitted after a committed swap, user- or vault-initiated.
type SwapEvent struct {
	User       solana.PublicKey `json:"user"`
	InputMint  solana.PublicKey `json:"input_mint"`
	OutputMint solana.PublicKey `json:"output_mint"`
	AmountIn   uint64           `json:"amount_in"`
	Fee        uint64           `json:"fee"`
	SwapID     uint64           `json:"swap_id"`
	Timestamp  int64            `json:"timestamp"`
}

func (SwapEvent) EventName() string { return "swap" }

// StrategyExecutedEvent is emitted after a vault-initiated strategy swap.
type StrategyExecutedEvent struct {
	Vault          solana.PublicKey `json:"vault"`
	StrategyType   VaultStrategy    `json:"strategy_type"`
	Amount         uint64           `json:"amount"`
	InputUsed      uint64           `json:"input_used"`
	OutputReceived uint64           `json:"output_received"`
	Timestamp      int64            `json:"timestamp"`
}

func (StrategyExecutedEvent) EventName() string { return "strategy_executed" }

// UserRegisteredEvent is emitted when a principal's state record is created.
type UserRegisteredEvent struct {
	User solana.PublicKey `json:"user"`
}

func (UserRegisteredEvent) EventName() string { return "user_registered" }
