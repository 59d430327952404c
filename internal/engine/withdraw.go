package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// WithdrawReceipt reports the outcome of a committed withdrawal.
type WithdrawReceipt struct {
	TraceID     string `json:"trace_id"`
	Assets      uint64 `json:"assets"`
	TotalAssets uint64 `json:"total_assets"`
	TotalShares uint64 `json:"total_shares"`
	SharePrice  uint64 `json:"share_price"`
}

// Withdraw burns the withdrawer's shares and pays out the proportional
// asset amount from vault escrow under the vault's derived authority.
func (e *Engine) Withdraw(user, tokenMint, userTokenAccount, userShareAccount solana.PublicKey, shares uint64) (*WithdrawReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.New().String()
	wdLogger := e.logger.With().Str("trace_id", traceID).Str("op", "withdraw").Logger()

	if shares == 0 {
		return nil, vaultmath.ErrZeroShares
	}

	v, err := e.vaultForMint(tokenMint)
	if err != nil {
		return nil, err
	}

	tokenAcc, err := e.bank.Account(userTokenAccount)
	if err != nil {
		return nil, err
	}
	if tokenAcc.Mint != v.TokenMint {
		return nil, fmt.Errorf("%w: payout account holds %s", ErrMintMismatch, tokenAcc.Mint)
	}
	if tokenAcc.Owner != user {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOwner, userTokenAccount)
	}

	shareAcc, err := e.bank.Account(userShareAccount)
	if err != nil {
		return nil, err
	}
	if shareAcc.Mint != v.ShareMint {
		return nil, fmt.Errorf("%w: share account holds %s", ErrMintMismatch, shareAcc.Mint)
	}
	if shareAcc.Owner != user {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOwner, userShareAccount)
	}

	assets, err := vaultmath.AssetsForWithdraw(v.TotalAssets, v.TotalShares, shares)
	if err != nil {
		return nil, err
	}
	if assets > v.TotalAssets {
		return nil, ErrInsufficientAssets
	}
	if shares > v.TotalShares {
		return nil, vaultmath.ErrMathOverflow
	}

	snap := e.bank.Snapshot()

	if err := e.bank.Burn(v.ShareMint, userShareAccount, user, shares); err != nil {
		e.bank.Restore(snap)
		return nil, fmt.Errorf("share burn failed: %w", err)
	}
	if err := e.bank.Transfer(v.EscrowAccount, userTokenAccount, v.Address, assets); err != nil {
		e.bank.Restore(snap)
		return nil, fmt.Errorf("withdrawal transfer failed: %w", err)
	}

	v.TotalAssets -= assets
	v.TotalShares -= shares

	price, err := vaultmath.SharePrice(v.TotalAssets, v.TotalShares)
	if err != nil {
		e.bank.Restore(snap)
		v.TotalAssets += assets
		v.TotalShares += shares
		return nil, err
	}

	now := e.clock.Now().Unix()
	e.persistVault(*v)
	e.sink.Publish(types.WithdrawEvent{
		User:        user,
		Vault:       v.Address,
		Shares:      shares,
		Amount:      assets,
		TotalAssets: v.TotalAssets,
		TotalShares: v.TotalShares,
		Timestamp:   now,
	})

	wdLogger.Info().
		Uint64("shares", shares).
		Uint64("assets", assets).
		Uint64("totalAssets", v.TotalAssets).
		Uint64("totalShares", v.TotalShares).
		Msg("Withdrawal committed")

	return &WithdrawReceipt{
		TraceID:     traceID,
		Assets:      assets,
		TotalAssets: v.TotalAssets,
		TotalShares: v.TotalShares,
		SharePrice:  price,
	}, nil
}
