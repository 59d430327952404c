/*

The vault engine owns every ledger mutation: deposits, withdrawals, and the
guarded forwarding of swap instructions to the external target. Each
operation executes under a single lock and either commits fully or leaves
no observable effect — token balances are rewound through the bank's
snapshot, and ledger records are only written back at commit.

*/

package engine

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/vaultguard/gvm/internal/events"
	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/swaptarget"
	"github.com/vaultguard/gvm/internal/token"
	"github.com/vaultguard/gvm/internal/types"
)

// Engine is the pooled-asset vault core.
type Engine struct {
	mu     sync.Mutex
	logger zerolog.Logger

	bank    token.Engine
	target  swaptarget.Target
	clock   types.Clock
	sink    events.Sink
	persist Persister

	// programID scopes every derived authority; swapProgramID is the only
	// external program a forwarded payload may name.
	programID     solana.PublicKey
	swapProgramID solana.PublicKey

	global    *types.GlobalState
	vaults    map[solana.PublicKey]*types.Vault     // keyed by vault address
	mintVault map[solana.PublicKey]solana.PublicKey // token mint -> vault address
	users     map[solana.PublicKey]*types.UserState // keyed by principal
	feeVaults map[solana.PublicKey]solana.PublicKey // token mint -> fee escrow
}

// Config holds the dependencies for creating a new Engine instance.
type Config struct {
	Bank                token.Engine
	Target              swaptarget.Target
	Clock               types.Clock
	Sink                events.Sink
	Persister           Persister
	ProgramID           solana.PublicKey
	SwapTargetProgramID solana.PublicKey
}

// New creates an Engine with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.Sink == nil {
		cfg.Sink = events.NullSink{}
	}
	if cfg.Persister == nil {
		cfg.Persister = NopPersister{}
	}

	e := &Engine{
		logger:        logger.GetForComponent("vault_engine"),
		bank:          cfg.Bank,
		target:        cfg.Target,
		clock:         cfg.Clock,
		sink:          cfg.Sink,
		persist:       cfg.Persister,
		programID:     cfg.ProgramID,
		swapProgramID: cfg.SwapTargetProgramID,
		vaults:        make(map[solana.PublicKey]*types.Vault),
		mintVault:     make(map[solana.PublicKey]solana.PublicKey),
		users:         make(map[solana.PublicKey]*types.UserState),
		feeVaults:     make(map[solana.PublicKey]solana.PublicKey),
	}

	e.logger.Info().
		Str("programID", e.programID.String()).
		Str("swapTarget", e.swapProgramID.String()).
		Msg("Vault engine created successfully")

	return e, nil
}

// validateEngineConfig validates the engine configuration.
func validateEngineConfig(cfg Config) error {
	if cfg.Bank == nil {
		return fmt.Errorf("token engine cannot be nil")
	}
	if cfg.Target == nil {
		return fmt.Errorf("swap target cannot be nil")
	}
	if cfg.ProgramID.IsZero() {
		return fmt.Errorf("program ID cannot be zero")
	}
	if cfg.SwapTargetProgramID.IsZero() {
		return fmt.Errorf("swap target program ID cannot be zero")
	}
	return nil
}

// persistVault writes a vault record through to durable storage.
// Persistence is write-behind; the in-memory record stays authoritative and
// a storage failure does not fail the committed operation.
func (e *Engine) persistVault(v types.Vault) {
	if err := e.persist.SaveVault(v); err != nil {
		e.logger.Error().Err(err).Str("vault", v.Address.String()).Msg("Failed to persist vault record")
	}
}

func (e *Engine) persistUserState(u types.UserState) {
	if err := e.persist.SaveUserState(u); err != nil {
		e.logger.Error().Err(err).Str("user", u.User.String()).Msg("Failed to persist user state record")
	}
}

func (e *Engine) persistGlobalState(g types.GlobalState) {
	if err := e.persist.SaveGlobalState(g); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist global state record")
	}
}

func (e *Engine) persistSwapContext(sc types.SwapContext) {
	if err := e.persist.SaveSwapContext(sc); err != nil {
		e.logger.Error().Err(err).Str("user", sc.User.String()).Uint64("swapID", sc.SwapID).
			Msg("Failed to persist swap context record")
	}
}

// vaultForMint resolves the vault record for an underlying token mint.
// Callers must hold e.mu.
func (e *Engine) vaultForMint(tokenMint solana.PublicKey) (*types.Vault, error) {
	addr, ok := e.mintVault[tokenMint]
	if !ok {
		return nil, fmt.Errorf("%w: mint %s", ErrUnknownVault, tokenMint)
	}
	return e.vaults[addr], nil
}

// GlobalState returns a copy of the global fee configuration.
func (e *Engine) GlobalState() (types.GlobalState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.global == nil {
		return types.GlobalState{}, ErrGlobalStateMissing
	}
	return *e.global, nil
}

// VaultByMint returns a copy of the vault record for an underlying mint.
func (e *Engine) VaultByMint(tokenMint solana.PublicKey) (types.Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.vaultForMint(tokenMint)
	if err != nil {
		return types.Vault{}, err
	}
	return *v, nil
}

// Vaults returns copies of every vault record.
func (e *Engine) Vaults() []types.Vault {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Vault, 0, len(e.vaults))
	for _, v := range e.vaults {
		out = append(out, *v)
	}
	return out
}

// UserState returns a copy of a principal's counters.
func (e *Engine) UserState(user solana.PublicKey) (types.UserState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	us, ok := e.users[user]
	if !ok {
		return types.UserState{}, fmt.Errorf("%w: %s", ErrUnknownUser, user)
	}
	return *us, nil
}

// FeeVault returns the protocol fee-collection account for a mint.
func (e *Engine) FeeVault(mint solana.PublicKey) (solana.PublicKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr, ok := e.feeVaults[mint]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrUnknownFeeVault, mint)
	}
	return addr, nil
}
