package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// StrategyRequest carries a vault-initiated strategy execution. The swap
// variant forwards an opaque payload against the vault's own escrow, under
// the same guards as a user swap.
type StrategyRequest struct {
	Authority          solana.PublicKey
	TokenMint          solana.PublicKey
	Strategy           types.VaultStrategy
	Amount             uint64
	MinAmountOut       uint64
	VaultOutputAccount solana.PublicKey
	OutputMint         solana.PublicKey
	TargetProgram      solana.PublicKey
	Payload            []byte
	Accounts           []types.AccountMeta
}

// StrategyReceipt reports a committed strategy execution.
type StrategyReceipt struct {
	TraceID        string `json:"trace_id"`
	Fee            uint64 `json:"fee"`
	InputUsed      uint64 `json:"input_used"`
	OutputReceived uint64 `json:"output_received"`
	TotalAssets    uint64 `json:"total_assets"`
}

// ExecuteStrategy runs a strategy on behalf of a vault. Only the vault
// authority may call it, and only while the vault's strategy flag is on.
// The rebalance and yield variants are declared but not yet wired to an
// external venue.
func (e *Engine) ExecuteStrategy(ctx context.Context, req StrategyRequest) (*StrategyReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.New().String()
	stratLogger := e.logger.With().Str("trace_id", traceID).Str("op", "execute_strategy").Logger()

	if e.global == nil {
		return nil, ErrGlobalStateMissing
	}
	v, err := e.vaultForMint(req.TokenMint)
	if err != nil {
		return nil, err
	}
	if req.Authority != v.Authority {
		return nil, fmt.Errorf("%w: %s is not the vault authority", ErrUnauthorized, req.Authority)
	}
	if !v.StrategyEnabled {
		return nil, ErrStrategyDisabled
	}

	switch req.Strategy {
	case types.VaultStrategySwap:
	case types.VaultStrategyRebalance, types.VaultStrategyYield:
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotImplemented, req.Strategy)
	default:
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotImplemented, req.Strategy)
	}

	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	escrowBal, err := e.bank.Balance(v.EscrowAccount)
	if err != nil {
		return nil, err
	}
	if escrowBal < req.Amount {
		return nil, fmt.Errorf("%w: escrow holds %d, need %d", ErrInsufficientBalance, escrowBal, req.Amount)
	}

	outAcc, err := e.bank.Account(req.VaultOutputAccount)
	if err != nil {
		return nil, err
	}
	if outAcc.Owner != v.Address {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenAccountOwner, req.VaultOutputAccount)
	}
	if outAcc.Mint != req.OutputMint {
		return nil, fmt.Errorf("%w: output account holds %s", ErrMintMismatch, outAcc.Mint)
	}

	fee, err := vaultmath.Fee(req.Amount, e.global.FeeBps)
	if err != nil {
		return nil, err
	}
	swapAmount := req.Amount - fee

	feeVault, ok := e.feeVaults[req.TokenMint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeeVault, req.TokenMint)
	}

	// The vault acts as the swapping principal, through the counter record
	// created at vault initialization.
	us, ok := e.users[v.Address]
	if !ok {
		return nil, fmt.Errorf("%w: vault %s has no principal record", ErrUnknownUser, v.Address)
	}

	snap := e.bank.Snapshot()
	abort := func(cause error) (*StrategyReceipt, error) {
		e.bank.Restore(snap)
		stratLogger.Warn().Err(cause).Msg("Strategy execution aborted, all effects rolled back")
		return nil, cause
	}

	// Fee comes out of the escrow, authorized by the vault itself.
	if fee > 0 {
		if err := e.bank.Transfer(v.EscrowAccount, feeVault, v.Address, fee); err != nil {
			return abort(fmt.Errorf("fee transfer failed: %w", err))
		}
	}

	// The vault's own ledger accounts join the protected set: a payload
	// naming the vault record or the share mint could forge accounting.
	protected := []solana.PublicKey{feeVault, e.global.Address, v.Address, v.ShareMint, us.Address}
	if err := checkProtectedAccounts(req.Accounts, protected); err != nil {
		return abort(err)
	}

	ix, err := e.buildForwardInstruction(req.TargetProgram, req.Payload, req.Accounts)
	if err != nil {
		return abort(err)
	}

	// Balances captured after the fee transfer, so the reconciled delta
	// measures only what the venue consumed.
	inBefore, err := e.bank.Balance(v.EscrowAccount)
	if err != nil {
		return abort(err)
	}
	outBefore, err := e.bank.Balance(req.VaultOutputAccount)
	if err != nil {
		return abort(err)
	}
	if err := e.target.Execute(ctx, ix); err != nil {
		return abort(fmt.Errorf("swap target invocation failed: %w", err))
	}
	inAfter, err := e.bank.Balance(v.EscrowAccount)
	if err != nil {
		return abort(err)
	}
	outAfter, err := e.bank.Balance(req.VaultOutputAccount)
	if err != nil {
		return abort(err)
	}
	inputUsed, outputReceived, err := reconcileBalances(inBefore, inAfter, outBefore, outAfter)
	if err != nil {
		return abort(err)
	}
	if inputUsed > swapAmount {
		return abort(fmt.Errorf("%w: used %d, authorized %d", ErrUnexpectedInputAmount, inputUsed, swapAmount))
	}
	if outputReceived < req.MinAmountOut {
		return abort(fmt.Errorf("%w: received %d, minimum %d", ErrSlippageExceeded, outputReceived, req.MinAmountOut))
	}

	// The vault's accounted assets shrink by everything that left the
	// escrow: the fee plus the amount the venue consumed. Proceeds sit in
	// the output account and are not re-counted until swapped back.
	spent := inputUsed + fee
	if spent < inputUsed {
		return abort(vaultmath.ErrMathOverflow)
	}
	if spent > v.TotalAssets {
		return abort(fmt.Errorf("%w: spent %d exceeds accounted %d", ErrInsufficientAssets, spent, v.TotalAssets))
	}
	newVolume := us.TotalVolume + req.Amount
	if newVolume < us.TotalVolume {
		return abort(vaultmath.ErrMathOverflow)
	}
	v.TotalAssets -= spent
	us.TotalVolume = newVolume
	us.Swaps++

	now := e.clock.Now().Unix()
	e.persistVault(*v)
	e.persistUserState(*us)
	e.sink.Publish(types.StrategyExecutedEvent{
		Vault:          v.Address,
		StrategyType:   req.Strategy,
		Amount:         req.Amount,
		InputUsed:      inputUsed,
		OutputReceived: outputReceived,
		Timestamp:      now,
	})

	stratLogger.Info().
		Str("strategy", string(req.Strategy)).
		Uint64("amount", req.Amount).
		Uint64("fee", fee).
		Uint64("inputUsed", inputUsed).
		Uint64("outputReceived", outputReceived).
		Uint64("totalAssets", v.TotalAssets).
		Msg("Strategy execution committed")

	return &StrategyReceipt{
		TraceID:        traceID,
		Fee:            fee,
		InputUsed:      inputUsed,
		OutputReceived: outputReceived,
		TotalAssets:    v.TotalAssets,
	}, nil
}
