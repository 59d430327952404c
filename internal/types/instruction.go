package types

import (
	"github.com/gagliardetto/solana-go"
)

// AccountMeta is one caller-declared entry in the account list forwarded to
// the external swap target.
type AccountMeta struct {
	Address    solana.PublicKey `json:"address"`
	IsWritable bool             `json:"is_writable"`
	IsSigner   bool             `json:"is_signer"`
}

// ForwardInstruction is the opaque command envelope handed to the external
// swap target: a nominal program identity, the caller-declared account list,
// and raw payload bytes. The engine performs structural checks only and
// never interprets the payload.
type ForwardInstruction struct {
	ProgramID solana.PublicKey `json:"program_id"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}
