package state

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
)

// u64str renders an unsigned amount for a NUMERIC(20, 0) column without
// passing through int64.
func u64str(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse unsigned column value %q: %w", s, err)
	}
	return v, nil
}

func parseKey(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to parse address column value %q: %w", s, err)
	}
	return pk, nil
}

// UpsertGlobalState writes the protocol fee configuration.
func UpsertGlobalState(gs types.GlobalState) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO global_state (id, address, admin, bump, fee_bps, version, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			admin = EXCLUDED.admin,
			bump = EXCLUDED.bump,
			fee_bps = EXCLUDED.fee_bps,
			version = EXCLUDED.version,
			updated_at = CURRENT_TIMESTAMP;
	`
	_, err := DB.Exec(query, gs.Address.String(), gs.Admin.String(), gs.Bump, gs.FeeBps, u64str(gs.Version))
	if err != nil {
		return fmt.Errorf("failed to upsert global state: %w", err)
	}
	return nil
}

// LoadGlobalState reads the protocol fee configuration, or nil if none has
// been stored yet.
func LoadGlobalState() (*types.GlobalState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `SELECT address, admin, bump, fee_bps, version FROM global_state WHERE id = 1;`

	var (
		address, admin, version string
		gs                      types.GlobalState
	)
	err := DB.QueryRow(query).Scan(&address, &admin, &gs.Bump, &gs.FeeBps, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load global state: %w", err)
	}

	if gs.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if gs.Admin, err = parseKey(admin); err != nil {
		return nil, err
	}
	if gs.Version, err = parseU64(version); err != nil {
		return nil, err
	}
	return &gs, nil
}

// UpsertVault writes a vault ledger record keyed by its derived address.
func UpsertVault(v types.Vault) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vaults (
			address, authority, token_mint, share_mint, escrow_account,
			total_assets, total_shares, bump, strategy_enabled, performance_fee_bps, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			total_assets = EXCLUDED.total_assets,
			total_shares = EXCLUDED.total_shares,
			strategy_enabled = EXCLUDED.strategy_enabled,
			performance_fee_bps = EXCLUDED.performance_fee_bps,
			updated_at = CURRENT_TIMESTAMP;
	`
	_, err := DB.Exec(query,
		v.Address.String(), v.Authority.String(), v.TokenMint.String(),
		v.ShareMint.String(), v.EscrowAccount.String(),
		u64str(v.TotalAssets), u64str(v.TotalShares),
		v.Bump, v.StrategyEnabled, v.PerformanceFeeBps,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vault: %w", err)
	}
	return nil
}

// LoadVaults reads every stored vault record.
func LoadVaults() ([]types.Vault, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT address, authority, token_mint, share_mint, escrow_account,
			total_assets, total_shares, bump, strategy_enabled, performance_fee_bps
		FROM vaults ORDER BY address;
	`
	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaults: %w", err)
	}
	defer rows.Close()

	var vaults []types.Vault
	for rows.Next() {
		var (
			address, authority, tokenMint, shareMint, escrow string
			totalAssets, totalShares                         string
			v                                                types.Vault
		)
		if err := rows.Scan(&address, &authority, &tokenMint, &shareMint, &escrow,
			&totalAssets, &totalShares, &v.Bump, &v.StrategyEnabled, &v.PerformanceFeeBps); err != nil {
			return nil, fmt.Errorf("failed to scan vault row: %w", err)
		}
		if v.Address, err = parseKey(address); err != nil {
			return nil, err
		}
		if v.Authority, err = parseKey(authority); err != nil {
			return nil, err
		}
		if v.TokenMint, err = parseKey(tokenMint); err != nil {
			return nil, err
		}
		if v.ShareMint, err = parseKey(shareMint); err != nil {
			return nil, err
		}
		if v.EscrowAccount, err = parseKey(escrow); err != nil {
			return nil, err
		}
		if v.TotalAssets, err = parseU64(totalAssets); err != nil {
			return nil, err
		}
		if v.TotalShares, err = parseU64(totalShares); err != nil {
			return nil, err
		}
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault row iteration failed: %w", err)
	}
	return vaults, nil
}

// UpsertUserState writes a principal's counter record.
func UpsertUserState(us types.UserState) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO user_states (address, principal, bump, total_volume, swap_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			total_volume = EXCLUDED.total_volume,
			swap_count = EXCLUDED.swap_count,
			updated_at = CURRENT_TIMESTAMP;
	`
	_, err := DB.Exec(query, us.Address.String(), us.User.String(), us.Bump,
		u64str(us.TotalVolume), u64str(us.Swaps))
	if err != nil {
		return fmt.Errorf("failed to upsert user state: %w", err)
	}
	return nil
}

// LoadUserStates reads every stored principal record.
func LoadUserStates() ([]types.UserState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `SELECT address, principal, bump, total_volume, swap_count FROM user_states;`
	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query user states: %w", err)
	}
	defer rows.Close()

	var users []types.UserState
	for rows.Next() {
		var (
			address, principal, volume, swaps string
			us                                types.UserState
		)
		if err := rows.Scan(&address, &principal, &us.Bump, &volume, &swaps); err != nil {
			return nil, fmt.Errorf("failed to scan user state row: %w", err)
		}
		if us.Address, err = parseKey(address); err != nil {
			return nil, err
		}
		if us.User, err = parseKey(principal); err != nil {
			return nil, err
		}
		if us.TotalVolume, err = parseU64(volume); err != nil {
			return nil, err
		}
		if us.Swaps, err = parseU64(swaps); err != nil {
			return nil, err
		}
		users = append(users, us)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user state row iteration failed: %w", err)
	}
	return users, nil
}
