package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
)

// MarketplaceStore adapts the strategy store functions to the marketplace
// service's store interface.
type MarketplaceStore struct{}

func (MarketplaceStore) InsertStrategy(s types.Strategy) error {
	return InsertStrategy(s)
}

func (MarketplaceStore) UpdateStrategy(s types.Strategy) error {
	return UpdateStrategy(s)
}

func (MarketplaceStore) GetStrategy(creator solana.PublicKey, strategyID uint64) (*types.Strategy, error) {
	return GetStrategy(creator, strategyID)
}

func (MarketplaceStore) ListStrategies(activeOnly bool, limit int) ([]types.Strategy, error) {
	return ListStrategies(activeOnly, limit)
}

func (MarketplaceStore) InsertUserStrategy(us types.UserStrategy) error {
	return InsertUserStrategy(us)
}

func (MarketplaceStore) GetUserStrategy(owner, creator solana.PublicKey, strategyID uint64) (*types.UserStrategy, error) {
	return GetUserStrategy(owner, creator, strategyID)
}

func (MarketplaceStore) UpdateUserStrategy(us types.UserStrategy) error {
	return UpdateUserStrategy(us)
}

func (MarketplaceStore) InsertStrategyExecution(ex types.StrategyExecution) error {
	return InsertStrategyExecution(ex)
}
