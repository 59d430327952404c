/*

Guarded swap executor, user-initiated path. The caller supplies an opaque
instruction payload and a target-account list; the engine validates
structurally, collects the protocol fee, refuses payloads that name
protected internal accounts, forwards the call to the configured external
target, and reconciles actual balance deltas against the caller-declared
minimums. Any step's failure aborts the whole operation with every effect
rewound.

*/

package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// SwapRequest carries a user-initiated swap: the declared amounts, the
// opaque payload, and the caller-declared account list forwarded verbatim
// to the external target.
type SwapRequest struct {
	User              solana.PublicKey
	UserInputAccount  solana.PublicKey
	UserOutputAccount solana.PublicKey
	InputMint         solana.PublicKey
	OutputMint        solana.PublicKey
	AmountIn          uint64
	MinAmountOut      uint64
	TargetProgram     solana.PublicKey
	Payload           []byte
	Accounts          []types.AccountMeta
}

// SwapReceipt reports a committed swap.
type SwapReceipt struct {
	TraceID        string `json:"trace_id"`
	SwapID         uint64 `json:"swap_id"`
	Fee            uint64 `json:"fee"`
	SwapAmount     uint64 `json:"swap_amount"`
	InputUsed      uint64 `json:"input_used"`
	OutputReceived uint64 `json:"output_received"`
}

// Swap executes a user-initiated guarded swap.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (*SwapReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.New().String()
	swapLogger := e.logger.With().Str("trace_id", traceID).Str("op", "swap").Logger()

	if e.global == nil {
		return nil, ErrGlobalStateMissing
	}
	us, ok := e.users[req.User]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, req.User)
	}

	// 1. Amount and balance checks.
	if req.AmountIn == 0 {
		return nil, ErrInvalidAmount
	}
	inAcc, err := e.bank.Account(req.UserInputAccount)
	if err != nil {
		return nil, err
	}
	if inAcc.Amount < req.AmountIn {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, inAcc.Amount, req.AmountIn)
	}

	// 2. Ownership and mint checks on both sides.
	if inAcc.Owner != req.User {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenAccountOwner, req.UserInputAccount)
	}
	if inAcc.Mint != req.InputMint {
		return nil, fmt.Errorf("%w: input account holds %s", ErrMintMismatch, inAcc.Mint)
	}
	outAcc, err := e.bank.Account(req.UserOutputAccount)
	if err != nil {
		return nil, err
	}
	if outAcc.Owner != req.User {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenAccountOwner, req.UserOutputAccount)
	}
	if outAcc.Mint != req.OutputMint {
		return nil, fmt.Errorf("%w: output account holds %s", ErrMintMismatch, outAcc.Mint)
	}

	// 3. Fee computation.
	fee, err := vaultmath.Fee(req.AmountIn, e.global.FeeBps)
	if err != nil {
		return nil, err
	}
	swapAmount := req.AmountIn - fee

	feeVault, ok := e.feeVaults[req.InputMint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeeVault, req.InputMint)
	}

	snap := e.bank.Snapshot()
	abort := func(cause error) (*SwapReceipt, error) {
		e.bank.Restore(snap)
		swapLogger.Warn().Err(cause).Msg("Swap aborted, all effects rolled back")
		return nil, cause
	}

	// 4. Fee collection, authorized by the user's own signature.
	if fee > 0 {
		if err := e.bank.Transfer(req.UserInputAccount, feeVault, req.User, fee); err != nil {
			return abort(fmt.Errorf("fee transfer failed: %w", err))
		}
	}

	// 5. Protected-account allow-list check: the forwarded payload must not
	// be able to touch internal bookkeeping accounts.
	protected := []solana.PublicKey{feeVault, e.global.Address, us.Address}
	if err := checkProtectedAccounts(req.Accounts, protected); err != nil {
		return abort(err)
	}

	// 6. Target construction and identity check.
	ix, err := e.buildForwardInstruction(req.TargetProgram, req.Payload, req.Accounts)
	if err != nil {
		return abort(err)
	}

	// 7. Forward the call. Balances recorded around the invocation measure
	// exactly what the external target consumed and produced; capturing
	// them after fee collection keeps the fee out of the reconciled delta.
	inBefore, err := e.bank.Balance(req.UserInputAccount)
	if err != nil {
		return abort(err)
	}
	outBefore, err := e.bank.Balance(req.UserOutputAccount)
	if err != nil {
		return abort(err)
	}
	if err := e.target.Execute(ctx, ix); err != nil {
		return abort(fmt.Errorf("swap target invocation failed: %w", err))
	}

	// 8. Post-call reconciliation.
	inAfter, err := e.bank.Balance(req.UserInputAccount)
	if err != nil {
		return abort(err)
	}
	outAfter, err := e.bank.Balance(req.UserOutputAccount)
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

	// 9. State update: counters and the audit slot.
	newVolume := us.TotalVolume + req.AmountIn
	if newVolume < us.TotalVolume {
		return abort(vaultmath.ErrMathOverflow)
	}
	swapID := us.Swaps
	ctxAddr, bump, err := e.deriveSwapContext(req.User, swapID)
	if err != nil {
		return abort(err)
	}

	us.TotalVolume = newVolume
	us.Swaps++

	now := e.clock.Now().Unix()
	sc := types.SwapContext{
		Address:      ctxAddr,
		User:         req.User,
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
		SwapID:       swapID,
		Timestamp:    now,
		Bump:         bump,
	}

	// 10. Notify and persist.
	e.persistUserState(*us)
	e.persistSwapContext(sc)
	e.sink.Publish(types.SwapEvent{
		User:       req.User,
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		AmountIn:   req.AmountIn,
		Fee:        fee,
		SwapID:     swapID,
		Timestamp:  now,
	})

	swapLogger.Info().
		Uint64("amountIn", req.AmountIn).
		Uint64("fee", fee).
		Uint64("inputUsed", inputUsed).
		Uint64("outputReceived", outputReceived).
		Uint64("swapID", swapID).
		Msg("Swap committed")

	return &SwapReceipt{
		TraceID:        traceID,
		SwapID:         swapID,
		Fee:            fee,
		SwapAmount:     swapAmount,
		InputUsed:      inputUsed,
		OutputReceived: outputReceived,
	}, nil
}

// checkProtectedAccounts rejects any caller-declared account equal to a
// protected internal account. This is the sandboxing step that keeps the
// forwarded payload away from the very state this engine maintains.
func checkProtectedAccounts(accounts []types.AccountMeta, protected []solana.PublicKey) error {
	for _, meta := range accounts {
		for _, p := range protected {
			if meta.Address == p {
				return fmt.Errorf("%w: %s", ErrProtectedAccount, p)
			}
		}
	}
	return nil
}

// buildForwardInstruction assembles the external call and verifies the
// nominal target identity. Only structural checks happen here; the payload
// is never interpreted.
func (e *Engine) buildForwardInstruction(targetProgram solana.PublicKey, payload []byte, accounts []types.AccountMeta) (types.ForwardInstruction, error) {
	if targetProgram != e.swapProgramID {
		return types.ForwardInstruction{}, fmt.Errorf("%w: %s", ErrInvalidSwapProgram, targetProgram)
	}
	if len(payload) == 0 {
		return types.ForwardInstruction{}, fmt.Errorf("%w: empty payload", ErrInvalidSwapInstruction)
	}
	return types.ForwardInstruction{
		ProgramID: targetProgram,
		Accounts:  accounts,
		Data:      payload,
	}, nil
}

// reconcileBalances derives the external call's actual consumption and
// production from pre/post balances. A balance that moved the wrong
// direction fails the arithmetic check outright.
func reconcileBalances(inBefore, inAfter, outBefore, outAfter uint64) (inputUsed, outputReceived uint64, err error) {
	if inAfter > inBefore {
		return 0, 0, fmt.Errorf("%w: input balance increased during swap", vaultmath.ErrMathOverflow)
	}
	if outAfter < outBefore {
		return 0, 0, fmt.Errorf("%w: output balance decreased during swap", vaultmath.ErrMathOverflow)
	}
	return inBefore - inAfter, outAfter - outBefore, nil
}
