/*

Marketplace bookkeeping records. These are thin stored records with no
cross-record invariants; the store layer persists them as-is.

*/

package types

import (
	"github.com/gagliardetto/solana-go"
)

// StrategyType classifies a marketplace strategy.
type StrategyType string

const (
	StrategyArbitrage    StrategyType = "arbitrage"
	StrategyYieldFarming StrategyType = "yield_farming"
	StrategyRebalancing  StrategyType = "rebalancing"
	StrategyCustom       StrategyType = "custom"
)

// VaultStrategy selects the execution path of a vault-initiated strategy.
type VaultStrategy string

const (
	VaultStrategySwap      VaultStrategy = "swap"
	VaultStrategyRebalance VaultStrategy = "rebalance"
	VaultStrategyYield     VaultStrategy = "yield"
)

// StrategyParameters is the trading configuration attached to a strategy.
type StrategyParameters struct {
	InputToken        solana.PublicKey `json:"input_token"`
	OutputToken       solana.PublicKey `json:"output_token"`
	MinProfitBps      uint16           `json:"min_profit_bps"`
	MaxSlippageBps    uint16           `json:"max_slippage_bps"`
	ExecutionInterval int64            `json:"execution_interval"` // seconds
}

// Strategy is a purchasable strategy listing.
type Strategy struct {
	Creator         solana.PublicKey   `json:"creator"`
	StrategyID      uint64             `json:"strategy_id"`
	Name            string             `json:"name"`        // max 50 chars
	Description     string             `json:"description"` // max 200 chars
	Price           uint64             `json:"price"`
	IsActive        bool               `json:"is_active"`
	TotalPurchases  uint64             `json:"total_purchases"`
	TotalExecutions uint64             `json:"total_executions"`
	TotalProfit     int64              `json:"total_profit"`
	SuccessRate     uint16             `json:"success_rate"` // 0-10000
	CreatedAt       int64              `json:"created_at"`
	Type            StrategyType       `json:"type"`
	Parameters      StrategyParameters `json:"parameters"`
}

// UserStrategy records one principal's purchase of a strategy.
type UserStrategy struct {
	Owner         solana.PublicKey `json:"owner"`
	Creator       solana.PublicKey `json:"creator"`
	StrategyID    uint64           `json:"strategy_id"`
	PurchasedAt   int64            `json:"purchased_at"`
	TimesExecuted uint64           `json:"times_executed"`
	TotalProfit   int64            `json:"total_profit"`
}

// StrategyExecution records the outcome of one strategy run.
type StrategyExecution struct {
	Creator      solana.PublicKey `json:"creator"`
	StrategyID   uint64           `json:"strategy_id"`
	Executor     solana.PublicKey `json:"executor"`
	ExecutedAt   int64            `json:"executed_at"`
	InputAmount  uint64           `json:"input_amount"`
	OutputAmount uint64           `json:"output_amount"`
	Profit       int64            `json:"profit"`
	Success      bool             `json:"success"`
}
