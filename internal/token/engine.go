/*

Token collaborator interface. The engine treats every operation as
all-or-nothing: a transfer, mint, or burn either fully applies or leaves
every balance untouched.

*/

package token

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrUnknownAccount    = errors.New("token account does not exist")
	ErrUnknownMint       = errors.New("mint does not exist")
	ErrAccountExists     = errors.New("token account already exists")
	ErrMintExists        = errors.New("mint already exists")
	ErrMintMismatch      = errors.New("mint mismatch between accounts")
	ErrBadAuthority      = errors.New("authority mismatch")
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrBalanceOverflow   = errors.New("token balance overflow")
	ErrZeroAddress       = errors.New("zero address")
)

// Engine is the token transfer/mint/burn collaborator the vault core calls
// into. Implementations must apply each operation atomically.
type Engine interface {
	// CreateMint registers a new mint whose supply only authority may grow.
	CreateMint(mint, authority solana.PublicKey, decimals uint8) error

	// CreateAccount registers a token-holding account. Authority is the
	// identity permitted to debit it; for escrow accounts this is the vault
	// or protocol rather than the owner.
	CreateAccount(address, mint, owner, authority solana.PublicKey) error

	// Transfer moves amount from one account to another. Fails atomically
	// on unknown accounts, mint mismatch, authority mismatch, or
	// insufficient balance.
	Transfer(from, to, authority solana.PublicKey, amount uint64) error

	// MintTo creates amount new units of mint in the target account,
	// authorized by the mint authority.
	MintTo(mint, to, authority solana.PublicKey, amount uint64) error

	// Burn destroys amount units held by from, authorized by the account
	// authority.
	Burn(mint, from, authority solana.PublicKey, amount uint64) error

	// Balance returns the current amount held by the account.
	Balance(address solana.PublicKey) (uint64, error)

	// Account returns a copy of the account record.
	Account(address solana.PublicKey) (types.TokenAccount, error)

	// Mint returns a copy of the mint record.
	Mint(address solana.PublicKey) (types.MintInfo, error)

	// HasAccount reports whether the account exists.
	HasAccount(address solana.PublicKey) bool

	// Snapshot captures the full balance state; Restore rewinds to it.
	// Used by the vault engine to undo every token effect of an aborted
	// operation.
	Snapshot() Snapshot
	Restore(snap Snapshot)
}
