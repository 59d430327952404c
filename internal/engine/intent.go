package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// IntentRequest records a swap a user intends to route off-engine.
type IntentRequest struct {
	User         solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// IntentReceipt reports a recorded intent.
type IntentReceipt struct {
	TraceID string           `json:"trace_id"`
	SwapID  uint64           `json:"swap_id"`
	Address solana.PublicKey `json:"address"`
}

// RecordSwapIntent books an audit slot for a swap without forwarding
// anything. Counters advance exactly as for an executed swap so swap
// identifiers stay unique per user across both paths.
func (e *Engine) RecordSwapIntent(req IntentRequest) (*IntentReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.New().String()

	us, ok := e.users[req.User]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, req.User)
	}
	if req.AmountIn == 0 {
		return nil, ErrInvalidAmount
	}

	newVolume := us.TotalVolume + req.AmountIn
	if newVolume < us.TotalVolume {
		return nil, vaultmath.ErrMathOverflow
	}

	swapID := us.Swaps
	ctxAddr, bump, err := e.deriveSwapContext(req.User, swapID)
	if err != nil {
		return nil, err
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

	e.persistUserState(*us)
	e.persistSwapContext(sc)
	e.sink.Publish(types.SwapEvent{
		User:       req.User,
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		AmountIn:   req.AmountIn,
		Fee:        0,
		SwapID:     swapID,
		Timestamp:  now,
	})

	e.logger.Info().
		Str("trace_id", traceID).
		Str("user", req.User.String()).
		Uint64("amountIn", req.AmountIn).
		Uint64("swapID", swapID).
		Msg("Swap intent recorded")

	return &IntentReceipt{TraceID: traceID, SwapID: swapID, Address: ctxAddr}, nil
}
