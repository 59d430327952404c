package marketplace

import "errors"

var (
	ErrNameTooLong        = errors.New("strategy name exceeds 50 characters")
	ErrDescriptionTooLong = errors.New("strategy description exceeds 200 characters")
	ErrInvalidPrice       = errors.New("strategy price must be greater than zero")
	ErrStrategyExists     = errors.New("strategy already exists")
	ErrStrategyNotFound   = errors.New("strategy not found")
	ErrStrategyInactive   = errors.New("strategy is not active")
	ErrNotCreator         = errors.New("caller is not the strategy creator")
	ErrAlreadyPurchased   = errors.New("strategy already purchased")
	ErrNotPurchased       = errors.New("strategy has not been purchased by this user")
	ErrSelfPurchase       = errors.New("creator cannot purchase their own strategy")
)
