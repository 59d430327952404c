package engine

import (
	"github.com/vaultguard/gvm/internal/types"
)

// Persister writes committed ledger records through to durable storage.
// The engine calls it after commit only; implementations must not mutate
// engine state.
type Persister interface {
	SaveVault(v types.Vault) error
	SaveUserState(u types.UserState) error
	SaveGlobalState(g types.GlobalState) error
	SaveSwapContext(sc types.SwapContext) error
}

// NopPersister discards every record. Used in tests and when running
// without a database.
type NopPersister struct{}

func (NopPersister) SaveVault(types.Vault) error             { return nil }
func (NopPersister) SaveUserState(types.UserState) error     { return nil }
func (NopPersister) SaveGlobalState(types.GlobalState) error { return nil }
func (NopPersister) SaveSwapContext(types.SwapContext) error { return nil }
