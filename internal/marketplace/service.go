/*

Strategy marketplace: creators list trading strategies for a one-time price,
users buy access, and execution outcomes feed back into a listing's public
track record. Listings and purchases live in the database; payments settle
through the token engine.

*/

package marketplace

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/token"
	"github.com/vaultguard/gvm/internal/types"
)

const (
	maxNameLen        = 50
	maxDescriptionLen = 200
)

// Store is the persistence surface the service needs. The state package
// provides the production implementation.
type Store interface {
	InsertStrategy(s types.Strategy) error
	UpdateStrategy(s types.Strategy) error
	GetStrategy(creator solana.PublicKey, strategyID uint64) (*types.Strategy, error)
	ListStrategies(activeOnly bool, limit int) ([]types.Strategy, error)
	InsertUserStrategy(us types.UserStrategy) error
	GetUserStrategy(owner, creator solana.PublicKey, strategyID uint64) (*types.UserStrategy, error)
	UpdateUserStrategy(us types.UserStrategy) error
	InsertStrategyExecution(ex types.StrategyExecution) error
}

// Service owns marketplace semantics. Mutating operations serialize on a
// single lock so read-modify-write cycles against the store stay coherent.
type Service struct {
	mu     sync.Mutex
	logger zerolog.Logger
	store  Store
	bank   token.Engine
	clock  types.Clock
}

// Config holds the dependencies for creating a marketplace Service.
type Config struct {
	Store Store
	Bank  token.Engine
	Clock types.Clock
}

func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("marketplace store cannot be nil")
	}
	if cfg.Bank == nil {
		return nil, fmt.Errorf("token engine cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}

	return &Service{
		logger: logger.GetForComponent("marketplace"),
		store:  cfg.Store,
		bank:   cfg.Bank,
		clock:  cfg.Clock,
	}, nil
}

// CreateStrategy lists a new strategy. The identifier is caller-chosen and
// must be unused by this creator.
func (s *Service) CreateStrategy(creator solana.PublicKey, strategyID uint64, name, description string,
	price uint64, strategyType types.StrategyType, params types.StrategyParameters) (types.Strategy, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(name) > maxNameLen {
		return types.Strategy{}, ErrNameTooLong
	}
	if len(description) > maxDescriptionLen {
		return types.Strategy{}, ErrDescriptionTooLong
	}
	if price == 0 {
		return types.Strategy{}, ErrInvalidPrice
	}

	existing, err := s.store.GetStrategy(creator, strategyID)
	if err != nil {
		return types.Strategy{}, fmt.Errorf("strategy lookup failed: %w", err)
	}
	if existing != nil {
		return types.Strategy{}, fmt.Errorf("%w: %d by %s", ErrStrategyExists, strategyID, creator)
	}

	strategy := types.Strategy{
		Creator:     creator,
		StrategyID:  strategyID,
		Name:        name,
		Description: description,
		Price:       price,
		IsActive:    true,
		CreatedAt:   s.clock.Now().Unix(),
		Type:        strategyType,
		Parameters:  params,
	}
	if err := s.store.InsertStrategy(strategy); err != nil {
		return types.Strategy{}, fmt.Errorf("failed to store strategy: %w", err)
	}

	s.logger.Info().
		Str("creator", creator.String()).
		Uint64("strategyID", strategyID).
		Str("name", name).
		Uint64("price", price).
		Msg("Strategy listed")

	return strategy, nil
}

// UpdateStrategy changes a listing's price, description, or active flag.
// Only the creator may call it.
func (s *Service) UpdateStrategy(caller, creator solana.PublicKey, strategyID uint64,
	description string, price uint64, isActive bool) (types.Strategy, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != creator {
		return types.Strategy{}, ErrNotCreator
	}
	if len(description) > maxDescriptionLen {
		return types.Strategy{}, ErrDescriptionTooLong
	}
	if price == 0 {
		return types.Strategy{}, ErrInvalidPrice
	}

	strategy, err := s.store.GetStrategy(creator, strategyID)
	if err != nil {
		return types.Strategy{}, fmt.Errorf("strategy lookup failed: %w", err)
	}
	if strategy == nil {
		return types.Strategy{}, fmt.Errorf("%w: %d by %s", ErrStrategyNotFound, strategyID, creator)
	}

	strategy.Description = description
	strategy.Price = price
	strategy.IsActive = isActive
	if err := s.store.UpdateStrategy(*strategy); err != nil {
		return types.Strategy{}, fmt.Errorf("failed to update strategy: %w", err)
	}

	s.logger.Info().
		Str("creator", creator.String()).
		Uint64("strategyID", strategyID).
		Bool("isActive", isActive).
		Msg("Strategy updated")

	return *strategy, nil
}

// BuyStrategy settles a purchase: the price moves from the buyer's token
// account to the creator's, and a purchase record is written.
func (s *Service) BuyStrategy(buyer, creator solana.PublicKey, strategyID uint64,
	buyerAccount, creatorAccount solana.PublicKey) (types.UserStrategy, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if buyer == creator {
		return types.UserStrategy{}, ErrSelfPurchase
	}

	strategy, err := s.store.GetStrategy(creator, strategyID)
	if err != nil {
		return types.UserStrategy{}, fmt.Errorf("strategy lookup failed: %w", err)
	}
	if strategy == nil {
		return types.UserStrategy{}, fmt.Errorf("%w: %d by %s", ErrStrategyNotFound, strategyID, creator)
	}
	if !strategy.IsActive {
		return types.UserStrategy{}, ErrStrategyInactive
	}

	prior, err := s.store.GetUserStrategy(buyer, creator, strategyID)
	if err != nil {
		return types.UserStrategy{}, fmt.Errorf("purchase lookup failed: %w", err)
	}
	if prior != nil {
		return types.UserStrategy{}, ErrAlreadyPurchased
	}

	// Payment and purchase record commit together: if the record write
	// fails, the payment is rewound.
	snap := s.bank.Snapshot()
	if err := s.bank.Transfer(buyerAccount, creatorAccount, buyer, strategy.Price); err != nil {
		return types.UserStrategy{}, fmt.Errorf("payment failed: %w", err)
	}

	us := types.UserStrategy{
		Owner:       buyer,
		Creator:     creator,
		StrategyID:  strategyID,
		PurchasedAt: s.clock.Now().Unix(),
	}
	if err := s.store.InsertUserStrategy(us); err != nil {
		s.bank.Restore(snap)
		return types.UserStrategy{}, fmt.Errorf("failed to store purchase: %w", err)
	}

	strategy.TotalPurchases++
	if err := s.store.UpdateStrategy(*strategy); err != nil {
		s.logger.Error().Err(err).
			Uint64("strategyID", strategyID).
			Msg("Failed to update purchase counter")
	}

	s.logger.Info().
		Str("buyer", buyer.String()).
		Str("creator", creator.String()).
		Uint64("strategyID", strategyID).
		Uint64("price", strategy.Price).
		Msg("Strategy purchased")

	return us, nil
}

// RecordExecutionResult books one run of a purchased strategy into its
// public track record. The executor must own a purchase, or be the creator.
func (s *Service) RecordExecutionResult(executor, creator solana.PublicKey, strategyID uint64,
	inputAmount, outputAmount uint64, profit int64, success bool) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	strategy, err := s.store.GetStrategy(creator, strategyID)
	if err != nil {
		return fmt.Errorf("strategy lookup failed: %w", err)
	}
	if strategy == nil {
		return fmt.Errorf("%w: %d by %s", ErrStrategyNotFound, strategyID, creator)
	}

	var purchase *types.UserStrategy
	if executor != creator {
		purchase, err = s.store.GetUserStrategy(executor, creator, strategyID)
		if err != nil {
			return fmt.Errorf("purchase lookup failed: %w", err)
		}
		if purchase == nil {
			return ErrNotPurchased
		}
	}

	now := s.clock.Now().Unix()
	ex := types.StrategyExecution{
		Creator:      creator,
		StrategyID:   strategyID,
		Executor:     executor,
		ExecutedAt:   now,
		InputAmount:  inputAmount,
		OutputAmount: outputAmount,
		Profit:       profit,
		Success:      success,
	}
	if err := s.store.InsertStrategyExecution(ex); err != nil {
		return fmt.Errorf("failed to store execution: %w", err)
	}

	// Success rate is a running average in basis points over all bookings.
	prevExecs := strategy.TotalExecutions
	weighted := uint64(strategy.SuccessRate) * prevExecs
	if success {
		weighted += 10000
	}
	strategy.TotalExecutions = prevExecs + 1
	strategy.SuccessRate = uint16(weighted / strategy.TotalExecutions)
	strategy.TotalProfit += profit
	if err := s.store.UpdateStrategy(*strategy); err != nil {
		return fmt.Errorf("failed to update strategy track record: %w", err)
	}

	if purchase != nil {
		purchase.TimesExecuted++
		purchase.TotalProfit += profit
		if err := s.store.UpdateUserStrategy(*purchase); err != nil {
			return fmt.Errorf("failed to update purchase counters: %w", err)
		}
	}

	s.logger.Info().
		Str("executor", executor.String()).
		Uint64("strategyID", strategyID).
		Int64("profit", profit).
		Bool("success", success).
		Msg("Strategy execution recorded")

	return nil
}

// GetStrategy exposes a single listing.
func (s *Service) GetStrategy(creator solana.PublicKey, strategyID uint64) (*types.Strategy, error) {
	strategy, err := s.store.GetStrategy(creator, strategyID)
	if err != nil {
		return nil, fmt.Errorf("strategy lookup failed: %w", err)
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: %d by %s", ErrStrategyNotFound, strategyID, creator)
	}
	return strategy, nil
}

// ListStrategies exposes the marketplace catalog.
func (s *Service) ListStrategies(activeOnly bool, limit int) ([]types.Strategy, error) {
	return s.store.ListStrategies(activeOnly, limit)
}
