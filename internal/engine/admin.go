package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

// maxPerformanceFeeBps caps a vault's performance fee at 50%.
const maxPerformanceFeeBps = 5000

// InitializeGlobalState creates the protocol-wide fee configuration
// singleton. It can only be called once.
func (e *Engine) InitializeGlobalState(admin solana.PublicKey, feeBps uint16) (types.GlobalState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.global != nil {
		return types.GlobalState{}, ErrGlobalStateExists
	}
	if feeBps > 10000 {
		return types.GlobalState{}, vaultmath.ErrInvalidFeeRate
	}
	if admin.IsZero() {
		return types.GlobalState{}, fmt.Errorf("%w: admin is the zero address", ErrInvalidOwner)
	}

	addr, bump, err := e.deriveGlobalState()
	if err != nil {
		return types.GlobalState{}, err
	}

	e.global = &types.GlobalState{
		Address: addr,
		Admin:   admin,
		Bump:    bump,
		FeeBps:  feeBps,
		Version: 1,
	}

	e.persistGlobalState(*e.global)
	e.logger.Info().
		Str("admin", admin.String()).
		Uint16("feeBps", feeBps).
		Msg("Global state initialized")

	return *e.global, nil
}

// UpdateFeeRate changes the protocol swap fee. Admin-gated.
func (e *Engine) UpdateFeeRate(admin solana.PublicKey, feeBps uint16) (types.GlobalState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.global == nil {
		return types.GlobalState{}, ErrGlobalStateMissing
	}
	if admin != e.global.Admin {
		return types.GlobalState{}, ErrUnauthorized
	}
	if feeBps > 10000 {
		return types.GlobalState{}, vaultmath.ErrInvalidFeeRate
	}

	e.global.FeeBps = feeBps
	e.global.Version++

	e.persistGlobalState(*e.global)
	e.logger.Info().Uint16("feeBps", feeBps).Msg("Protocol fee rate updated")

	return *e.global, nil
}

// InitializeFeeVault creates the protocol fee-collection escrow for a mint.
// The escrow's transfer authority is the global state record, so no end
// user can debit it.
func (e *Engine) InitializeFeeVault(mint solana.PublicKey) (solana.PublicKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.global == nil {
		return solana.PublicKey{}, ErrGlobalStateMissing
	}
	if _, ok := e.feeVaults[mint]; ok {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrFeeVaultExists, mint)
	}

	addr, err := e.deriveFeeVault(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := e.bank.CreateAccount(addr, mint, e.global.Address, e.global.Address); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to create fee vault account: %w", err)
	}

	e.feeVaults[mint] = addr
	e.logger.Info().
		Str("mint", mint.String()).
		Str("feeVault", addr.String()).
		Msg("Fee vault initialized")

	return addr, nil
}

// RegisterUser creates a principal's counter record.
func (e *Engine) RegisterUser(user solana.PublicKey) (types.UserState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	us, err := e.registerPrincipal(user)
	if err != nil {
		return types.UserState{}, err
	}

	e.sink.Publish(types.UserRegisteredEvent{User: user})
	return us, nil
}

// registerPrincipal creates a counter record for a user or a vault acting
// as a principal. Callers must hold e.mu.
func (e *Engine) registerPrincipal(principal solana.PublicKey) (types.UserState, error) {
	if principal.IsZero() {
		return types.UserState{}, fmt.Errorf("%w: principal is the zero address", ErrInvalidOwner)
	}
	if _, ok := e.users[principal]; ok {
		return types.UserState{}, fmt.Errorf("%w: %s", ErrUserExists, principal)
	}

	addr, bump, err := e.deriveUserState(principal)
	if err != nil {
		return types.UserState{}, err
	}

	us := &types.UserState{
		Address: addr,
		User:    principal,
		Bump:    bump,
	}
	e.users[principal] = us

	e.persistUserState(*us)
	e.logger.Info().Str("principal", principal.String()).Msg("Principal registered")

	return *us, nil
}

// InitializeVault creates a vault for an underlying token mint: the vault
// record, its share mint (decimals mirroring the underlying), its escrow
// account, and its own principal record for vault-initiated swaps. The
// vault's derived address is the sole authority over the share mint and
// the escrow.
func (e *Engine) InitializeVault(authority, tokenMint solana.PublicKey, performanceFeeBps uint16) (types.Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if performanceFeeBps > maxPerformanceFeeBps {
		return types.Vault{}, ErrInvalidFee
	}
	if authority.IsZero() {
		return types.Vault{}, fmt.Errorf("%w: authority is the zero address", ErrInvalidOwner)
	}

	underlying, err := e.bank.Mint(tokenMint)
	if err != nil {
		return types.Vault{}, fmt.Errorf("underlying mint lookup failed: %w", err)
	}

	vaultAddr, bump, err := e.deriveVault(tokenMint)
	if err != nil {
		return types.Vault{}, err
	}
	if _, ok := e.vaults[vaultAddr]; ok {
		return types.Vault{}, fmt.Errorf("%w: %s", ErrVaultExists, tokenMint)
	}

	shareMint, err := e.deriveShareMint(vaultAddr)
	if err != nil {
		return types.Vault{}, err
	}
	escrow, err := e.deriveVaultEscrow(vaultAddr)
	if err != nil {
		return types.Vault{}, err
	}

	// Account creation is multi-step; rewind the bank if any step fails.
	snap := e.bank.Snapshot()
	if err := e.bank.CreateMint(shareMint, vaultAddr, underlying.Decimals); err != nil {
		e.bank.Restore(snap)
		return types.Vault{}, fmt.Errorf("failed to create share mint: %w", err)
	}
	if err := e.bank.CreateAccount(escrow, tokenMint, vaultAddr, vaultAddr); err != nil {
		e.bank.Restore(snap)
		return types.Vault{}, fmt.Errorf("failed to create vault escrow: %w", err)
	}

	if _, err := e.registerPrincipal(vaultAddr); err != nil {
		e.bank.Restore(snap)
		return types.Vault{}, fmt.Errorf("failed to register vault principal: %w", err)
	}

	v := &types.Vault{
		Address:           vaultAddr,
		Authority:         authority,
		TokenMint:         tokenMint,
		ShareMint:         shareMint,
		EscrowAccount:     escrow,
		Bump:              bump,
		StrategyEnabled:   false,
		PerformanceFeeBps: performanceFeeBps,
	}
	e.vaults[vaultAddr] = v
	e.mintVault[tokenMint] = vaultAddr

	e.persistVault(*v)
	e.logger.Info().
		Str("vault", vaultAddr.String()).
		Str("tokenMint", tokenMint.String()).
		Uint16("performanceFeeBps", performanceFeeBps).
		Msg("Vault initialized")

	return *v, nil
}

// SetStrategyEnabled toggles strategy execution for a vault. Only the vault
// authority may call this.
func (e *Engine) SetStrategyEnabled(authority, tokenMint solana.PublicKey, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.vaultForMint(tokenMint)
	if err != nil {
		return err
	}
	if authority != v.Authority {
		return ErrUnauthorized
	}

	v.StrategyEnabled = enabled
	e.persistVault(*v)
	e.logger.Info().
		Str("vault", v.Address.String()).
		Bool("enabled", enabled).
		Msg("Strategy execution toggled")

	return nil
}
