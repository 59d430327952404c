package types

import (
	"github.com/gagliardetto/solana-go"
)

// TokenAccount is a token-holding account managed by the token collaborator.
// Owner identifies who the balance belongs to; Authority identifies who may
// move it (the two differ for escrow accounts, whose authority is the vault
// or the protocol itself).
type TokenAccount struct {
	Address   solana.PublicKey `json:"address"`
	Mint      solana.PublicKey `json:"mint"`
	Owner     solana.PublicKey `json:"owner"`
	Authority solana.PublicKey `json:"authority"`
	Amount    uint64           `json:"amount"`
}

// MintInfo describes a token mint. Only the mint authority may create new
// supply.
type MintInfo struct {
	Address   solana.PublicKey `json:"address"`
	Authority solana.PublicKey `json:"authority"`
	Decimals  uint8            `json:"decimals"`
	Supply    uint64           `json:"supply"`
}
