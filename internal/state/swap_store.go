package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
)

// InsertSwapContext stores a swap audit record. Records are immutable so a
// conflicting write is silently dropped.
func InsertSwapContext(sc types.SwapContext) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO swap_contexts (
			address, principal, input_mint, output_mint,
			amount_in, min_amount_out, swap_id, swap_timestamp, bump
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO NOTHING;
	`
	_, err := DB.Exec(query,
		sc.Address.String(), sc.User.String(), sc.InputMint.String(), sc.OutputMint.String(),
		u64str(sc.AmountIn), u64str(sc.MinAmountOut), u64str(sc.SwapID), sc.Timestamp, sc.Bump,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap context: %w", err)
	}
	return nil
}

// GetRecentSwaps returns the newest swap audit records across all users.
func GetRecentSwaps(limit int) ([]types.SwapContext, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT address, principal, input_mint, output_mint,
			amount_in, min_amount_out, swap_id, swap_timestamp, bump
		FROM swap_contexts
		ORDER BY swap_timestamp DESC, swap_id DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent swaps: %w", err)
	}
	defer rows.Close()

	return scanSwapContexts(rows)
}

// GetSwapsByUser returns one principal's swap audit records, newest first.
func GetSwapsByUser(user solana.PublicKey, limit int) ([]types.SwapContext, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT address, principal, input_mint, output_mint,
			amount_in, min_amount_out, swap_id, swap_timestamp, bump
		FROM swap_contexts
		WHERE principal = $1
		ORDER BY swap_id DESC
		LIMIT $2;
	`
	rows, err := DB.Query(query, user.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user swaps: %w", err)
	}
	defer rows.Close()

	return scanSwapContexts(rows)
}

type swapRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSwapContexts(rows swapRows) ([]types.SwapContext, error) {
	var swaps []types.SwapContext
	for rows.Next() {
		var (
			address, principal, inputMint, outputMint string
			amountIn, minAmountOut, swapID            string
			sc                                        types.SwapContext
		)
		err := rows.Scan(&address, &principal, &inputMint, &outputMint,
			&amountIn, &minAmountOut, &swapID, &sc.Timestamp, &sc.Bump)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap context row: %w", err)
		}
		if sc.Address, err = parseKey(address); err != nil {
			return nil, err
		}
		if sc.User, err = parseKey(principal); err != nil {
			return nil, err
		}
		if sc.InputMint, err = parseKey(inputMint); err != nil {
			return nil, err
		}
		if sc.OutputMint, err = parseKey(outputMint); err != nil {
			return nil, err
		}
		if sc.AmountIn, err = parseU64(amountIn); err != nil {
			return nil, err
		}
		if sc.MinAmountOut, err = parseU64(minAmountOut); err != nil {
			return nil, err
		}
		if sc.SwapID, err = parseU64(swapID); err != nil {
			return nil, err
		}
		swaps = append(swaps, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("swap context row iteration failed: %w", err)
	}
	return swaps, nil
}
