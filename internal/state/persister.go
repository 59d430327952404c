package state

import (
	"github.com/vaultguard/gvm/internal/types"
)

// StorePersister adapts the package's store functions to the engine's
// write-behind persistence interface.
type StorePersister struct{}

func (StorePersister) SaveVault(v types.Vault) error {
	return UpsertVault(v)
}

func (StorePersister) SaveUserState(us types.UserState) error {
	return UpsertUserState(us)
}

func (StorePersister) SaveGlobalState(gs types.GlobalState) error {
	return UpsertGlobalState(gs)
}

func (StorePersister) SaveSwapContext(sc types.SwapContext) error {
	return InsertSwapContext(sc)
}
