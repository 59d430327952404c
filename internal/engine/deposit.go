package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// DepositReceipt reports the outcome of a committed deposit.
type DepositReceipt struct {
	TraceID     string `json:"trace_id"`
	Shares      uint64 `json:"shares"`
	TotalAssets uint64 `json:"total_assets"`
	TotalShares uint64 `json:"total_shares"`
	SharePrice  uint64 `json:"share_price"`
}

// Deposit moves amount of the underlying token from the depositor's account
// into vault escrow and mints the proportional share amount, minted under
// the vault's own derived authority. Either every balance and ledger change
// applies or none do.
func (e *Engine) Deposit(user, tokenMint, userTokenAccount, userShareAccount solana.PublicKey, amount uint64) (*DepositReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.New().String()
	depLogger := e.logger.With().Str("trace_id", traceID).Str("op", "deposit").Logger()

	if amount == 0 {
		return nil, ErrZeroAmount
	}

	v, err := e.vaultForMint(tokenMint)
	if err != nil {
		return nil, err
	}

	acc, err := e.bank.Account(userTokenAccount)
	if err != nil {
		return nil, err
	}
	if acc.Mint != v.TokenMint {
		return nil, fmt.Errorf("%w: deposit account holds %s", ErrMintMismatch, acc.Mint)
	}
	if acc.Owner != user {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOwner, userTokenAccount)
	}

	shares, err := vaultmath.SharesForDeposit(v.TotalAssets, v.TotalShares, amount)
	if err != nil {
		return nil, err
	}

	// Compute post-deposit totals up front; an overflow aborts before any
	// balance moves.
	newTotalAssets := v.TotalAssets + amount
	if newTotalAssets < v.TotalAssets {
		return nil, vaultmath.ErrMathOverflow
	}
	newTotalShares := v.TotalShares + shares
	if newTotalShares < v.TotalShares {
		return nil, vaultmath.ErrMathOverflow
	}

	snap := e.bank.Snapshot()

	if err := e.bank.Transfer(userTokenAccount, v.EscrowAccount, user, amount); err != nil {
		e.bank.Restore(snap)
		return nil, fmt.Errorf("deposit transfer failed: %w", err)
	}

	// The share account is created on first use, same as the underlying
	// deposit path registering it lazily.
	if !e.bank.HasAccount(userShareAccount) {
		if err := e.bank.CreateAccount(userShareAccount, v.ShareMint, user, user); err != nil {
			e.bank.Restore(snap)
			return nil, fmt.Errorf("failed to create share account: %w", err)
		}
	}
	if err := e.bank.MintTo(v.ShareMint, userShareAccount, v.Address, shares); err != nil {
		e.bank.Restore(snap)
		return nil, fmt.Errorf("share mint failed: %w", err)
	}

	v.TotalAssets = newTotalAssets
	v.TotalShares = newTotalShares

	price, err := vaultmath.SharePrice(v.TotalAssets, v.TotalShares)
	if err != nil {
		// Totals were validated above; a price overflow here means the pool
		// value itself no longer fits and the deposit must not stand.
		e.bank.Restore(snap)
		v.TotalAssets -= amount
		v.TotalShares -= shares
		return nil, err
	}

	now := e.clock.Now().Unix()
	e.persistVault(*v)
	e.sink.Publish(types.DepositEvent{
		User:        user,
		Vault:       v.Address,
		Amount:      amount,
		Shares:      shares,
		TotalAssets: v.TotalAssets,
		TotalShares: v.TotalShares,
		Timestamp:   now,
	})

	depLogger.Info().
		Uint64("amount", amount).
		Uint64("shares", shares).
		Uint64("totalAssets", v.TotalAssets).
		Uint64("totalShares", v.TotalShares).
		Msg("Deposit committed")

	return &DepositReceipt{
		TraceID:     traceID,
		Shares:      shares,
		TotalAssets: v.TotalAssets,
		TotalShares: v.TotalShares,
		SharePrice:  price,
	}, nil
}
