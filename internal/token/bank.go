package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/types"
)

var bankLogger = logger.GetForComponent("token_bank")

// Snapshot is an opaque copy of the bank's full state.
type Snapshot struct {
	accounts map[solana.PublicKey]types.TokenAccount
	mints    map[solana.PublicKey]types.MintInfo
}

// Bank is the in-memory reference implementation of the token collaborator.
// Every operation validates completely before mutating anything, so each
// call is atomic on its own; multi-call atomicity is the vault engine's job
// via Snapshot/Restore.
type Bank struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*types.TokenAccount
	mints    map[solana.PublicKey]*types.MintInfo
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		accounts: make(map[solana.PublicKey]*types.TokenAccount),
		mints:    make(map[solana.PublicKey]*types.MintInfo),
	}
}

func (b *Bank) CreateMint(mint, authority solana.PublicKey, decimals uint8) error {
	if mint.IsZero() || authority.IsZero() {
		return ErrZeroAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.mints[mint]; ok {
		return fmt.Errorf("%w: %s", ErrMintExists, mint)
	}
	b.mints[mint] = &types.MintInfo{
		Address:   mint,
		Authority: authority,
		Decimals:  decimals,
	}

	bankLogger.Debug().Str("mint", mint.String()).Msg("Mint created")
	return nil
}

func (b *Bank) CreateAccount(address, mint, owner, authority solana.PublicKey) error {
	if address.IsZero() || mint.IsZero() || owner.IsZero() || authority.IsZero() {
		return ErrZeroAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.mints[mint]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	if _, ok := b.accounts[address]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, address)
	}
	b.accounts[address] = &types.TokenAccount{
		Address:   address,
		Mint:      mint,
		Owner:     owner,
		Authority: authority,
	}

	bankLogger.Debug().
		Str("account", address.String()).
		Str("mint", mint.String()).
		Msg("Token account created")
	return nil
}

func (b *Bank) Transfer(from, to, authority solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.accounts[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, from)
	}
	dst, ok := b.accounts[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, to)
	}
	if src.Mint != dst.Mint {
		return errors.Join(ErrMintMismatch,
			fmt.Errorf("transfer %s -> %s", src.Mint, dst.Mint))
	}
	if src.Authority != authority {
		return fmt.Errorf("%w: account %s", ErrBadAuthority, from)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: account %s has %d, need %d",
			ErrInsufficientFunds, from, src.Amount, amount)
	}
	if dst.Amount+amount < dst.Amount {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
	}

	src.Amount -= amount
	dst.Amount += amount
	return nil
}

func (b *Bank) MintTo(mint, to, authority solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mi, ok := b.mints[mint]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	dst, ok := b.accounts[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, to)
	}
	if dst.Mint != mint {
		return errors.Join(ErrMintMismatch,
			fmt.Errorf("mint_to %s into account of mint %s", mint, dst.Mint))
	}
	if mi.Authority != authority {
		return fmt.Errorf("%w: mint %s", ErrBadAuthority, mint)
	}
	if mi.Supply+amount < mi.Supply {
		return fmt.Errorf("%w: mint %s supply", ErrBalanceOverflow, mint)
	}
	if dst.Amount+amount < dst.Amount {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
	}

	mi.Supply += amount
	dst.Amount += amount
	return nil
}

func (b *Bank) Burn(mint, from, authority solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mi, ok := b.mints[mint]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	src, ok := b.accounts[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, from)
	}
	if src.Mint != mint {
		return errors.Join(ErrMintMismatch,
			fmt.Errorf("burn %s from account of mint %s", mint, src.Mint))
	}
	if src.Authority != authority {
		return fmt.Errorf("%w: account %s", ErrBadAuthority, from)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: account %s has %d, need %d",
			ErrInsufficientFunds, from, src.Amount, amount)
	}
	if mi.Supply < amount {
		return fmt.Errorf("%w: mint %s supply below burn amount", ErrInsufficientFunds, mint)
	}

	src.Amount -= amount
	mi.Supply -= amount
	return nil
}

func (b *Bank) Balance(address solana.PublicKey) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[address]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, address)
	}
	return acc.Amount, nil
}

func (b *Bank) Account(address solana.PublicKey) (types.TokenAccount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[address]
	if !ok {
		return types.TokenAccount{}, fmt.Errorf("%w: %s", ErrUnknownAccount, address)
	}
	return *acc, nil
}

func (b *Bank) Mint(address solana.PublicKey) (types.MintInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mi, ok := b.mints[address]
	if !ok {
		return types.MintInfo{}, fmt.Errorf("%w: %s", ErrUnknownMint, address)
	}
	return *mi, nil
}

func (b *Bank) HasAccount(address solana.PublicKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.accounts[address]
	return ok
}

func (b *Bank) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		accounts: make(map[solana.PublicKey]types.TokenAccount, len(b.accounts)),
		mints:    make(map[solana.PublicKey]types.MintInfo, len(b.mints)),
	}
	for addr, acc := range b.accounts {
		snap.accounts[addr] = *acc
	}
	for addr, mi := range b.mints {
		snap.mints[addr] = *mi
	}
	return snap
}

func (b *Bank) Restore(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts = make(map[solana.PublicKey]*types.TokenAccount, len(snap.accounts))
	b.mints = make(map[solana.PublicKey]*types.MintInfo, len(snap.mints))
	for addr, acc := range snap.accounts {
		cp := acc
		b.accounts[addr] = &cp
	}
	for addr, mi := range snap.mints {
		cp := mi
		b.mints[addr] = &cp
	}
}
