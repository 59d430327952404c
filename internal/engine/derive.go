package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Derivation seeds. Every internal account address is derived
// deterministically from the program identity and a seed tuple, so any
// component holding the same derivation function can verify an authority
// without a secret key ever existing.
const (
	seedVault       = "vault"
	seedShareMint   = "share_mint"
	seedVaultEscrow = "vault_token_account"
	seedFeeVault    = "fee_vault"
	seedUserState   = "user"
	seedGlobalState = "global_state"
	seedSwapContext = "swap"
)

func (e *Engine) deriveVault(tokenMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedVault), tokenMint.Bytes()}, e.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive vault address: %w", err)
	}
	return addr, bump, nil
}

func (e *Engine) deriveShareMint(vault solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedShareMint), vault.Bytes()}, e.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive share mint address: %w", err)
	}
	return addr, nil
}

func (e *Engine) deriveVaultEscrow(vault solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedVaultEscrow), vault.Bytes()}, e.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive vault escrow address: %w", err)
	}
	return addr, nil
}

func (e *Engine) deriveFeeVault(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedFeeVault), mint.Bytes()}, e.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive fee vault address: %w", err)
	}
	return addr, nil
}

func (e *Engine) deriveUserState(user solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedUserState), user.Bytes()}, e.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive user state address: %w", err)
	}
	return addr, bump, nil
}

func (e *Engine) deriveGlobalState() (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedGlobalState)}, e.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive global state address: %w", err)
	}
	return addr, bump, nil
}

// deriveSwapContext gives every swap a unique, discoverable audit slot keyed
// by the principal's running swap counter.
func (e *Engine) deriveSwapContext(user solana.PublicKey, swapID uint64) (solana.PublicKey, uint8, error) {
	var counter [8]byte
	binary.LittleEndian.PutUint64(counter[:], swapID)

	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedSwapContext), user.Bytes(), counter[:]}, e.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive swap context address: %w", err)
	}
	return addr, bump, nil
}
