package marketplace

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/vaultguard/gvm/internal/token"
	"github.com/vaultguard/gvm/internal/types"
)

func key(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = seed
	pk[31] = seed
	return pk
}

type memStore struct {
	strategies map[[2]string]*types.Strategy
	purchases  map[[3]string]*types.UserStrategy
	executions []types.StrategyExecution

	insertPurchaseErr error
}

func newMemStore() *memStore {
	return &memStore{
		strategies: make(map[[2]string]*types.Strategy),
		purchases:  make(map[[3]string]*types.UserStrategy),
	}
}

func strategyKey(creator solana.PublicKey, id uint64) [2]string {
	return [2]string{creator.String(), strconv.FormatUint(id, 10)}
}

func purchaseKey(owner, creator solana.PublicKey, id uint64) [3]string {
	return [3]string{owner.String(), creator.String(), strconv.FormatUint(id, 10)}
}

func (m *memStore) InsertStrategy(s types.Strategy) error {
	cp := s
	m.strategies[strategyKey(s.Creator, s.StrategyID)] = &cp
	return nil
}

func (m *memStore) UpdateStrategy(s types.Strategy) error {
	cp := s
	m.strategies[strategyKey(s.Creator, s.StrategyID)] = &cp
	return nil
}

func (m *memStore) GetStrategy(creator solana.PublicKey, id uint64) (*types.Strategy, error) {
	s, ok := m.strategies[strategyKey(creator, id)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListStrategies(activeOnly bool, limit int) ([]types.Strategy, error) {
	var out []types.Strategy
	for _, s := range m.strategies {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) InsertUserStrategy(us types.UserStrategy) error {
	if m.insertPurchaseErr != nil {
		return m.insertPurchaseErr
	}
	cp := us
	m.purchases[purchaseKey(us.Owner, us.Creator, us.StrategyID)] = &cp
	return nil
}

func (m *memStore) GetUserStrategy(owner, creator solana.PublicKey, id uint64) (*types.UserStrategy, error) {
	us, ok := m.purchases[purchaseKey(owner, creator, id)]
	if !ok {
		return nil, nil
	}
	cp := *us
	return &cp, nil
}

func (m *memStore) UpdateUserStrategy(us types.UserStrategy) error {
	cp := us
	m.purchases[purchaseKey(us.Owner, us.Creator, us.StrategyID)] = &cp
	return nil
}

func (m *memStore) InsertStrategyExecution(ex types.StrategyExecution) error {
	m.executions = append(m.executions, ex)
	return nil
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time {
	return c.at
}

type fixture struct {
	svc   *Service
	store *memStore
	bank  *token.Bank

	creator, buyer               solana.PublicKey
	creatorAccount, buyerAccount solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:          newMemStore(),
		bank:           token.NewBank(),
		creator:        key(1),
		buyer:          key(2),
		creatorAccount: key(11),
		buyerAccount:   key(12),
	}

	mint := key(5)
	require.NoError(t, f.bank.CreateMint(mint, key(9), 6))
	require.NoError(t, f.bank.CreateAccount(f.creatorAccount, mint, f.creator, f.creator))
	require.NoError(t, f.bank.CreateAccount(f.buyerAccount, mint, f.buyer, f.buyer))
	require.NoError(t, f.bank.MintTo(mint, f.buyerAccount, key(9), 10_000))

	svc, err := New(Config{
		Store: f.store,
		Bank:  f.bank,
		Clock: fixedClock{at: time.Unix(1_700_000_000, 0)},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) listStrategy(t *testing.T, price uint64) types.Strategy {
	t.Helper()
	s, err := f.svc.CreateStrategy(f.creator, 1, "momentum", "buys green candles", price,
		types.StrategyArbitrage, types.StrategyParameters{MaxSlippageBps: 100})
	require.NoError(t, err)
	return s
}

func TestCreateStrategyValidation(t *testing.T) {
	f := newFixture(t)

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}
	_, err := f.svc.CreateStrategy(f.creator, 1, string(long), "d", 100, types.StrategyCustom, types.StrategyParameters{})
	require.ErrorIs(t, err, ErrNameTooLong)

	_, err = f.svc.CreateStrategy(f.creator, 1, "n", "d", 0, types.StrategyCustom, types.StrategyParameters{})
	require.ErrorIs(t, err, ErrInvalidPrice)

	f.listStrategy(t, 100)
	_, err = f.svc.CreateStrategy(f.creator, 1, "again", "d", 100, types.StrategyCustom, types.StrategyParameters{})
	require.ErrorIs(t, err, ErrStrategyExists)
}

func TestBuyStrategyMovesPayment(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 2500)

	us, err := f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.NoError(t, err)
	require.Equal(t, f.buyer, us.Owner)

	bal, err := f.bank.Balance(f.creatorAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(2500), bal)
	bal, err = f.bank.Balance(f.buyerAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(7500), bal)

	s, err := f.svc.GetStrategy(f.creator, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.TotalPurchases)

	_, err = f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.ErrorIs(t, err, ErrAlreadyPurchased)
}

func TestBuyStrategyRejectsSelfAndInactive(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 100)

	_, err := f.svc.BuyStrategy(f.creator, f.creator, 1, f.creatorAccount, f.creatorAccount)
	require.ErrorIs(t, err, ErrSelfPurchase)

	_, err = f.svc.UpdateStrategy(f.creator, f.creator, 1, "paused", 100, false)
	require.NoError(t, err)

	_, err = f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.ErrorIs(t, err, ErrStrategyInactive)
}

func TestBuyStrategyInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 50_000)

	_, err := f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.Error(t, err)

	// Nothing moved and no purchase was recorded.
	bal, err := f.bank.Balance(f.buyerAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), bal)
	us, err := f.store.GetUserStrategy(f.buyer, f.creator, 1)
	require.NoError(t, err)
	require.Nil(t, us)
}

func TestBuyStrategyRefundsOnFailedRecordWrite(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 2500)

	f.store.insertPurchaseErr = errors.New("connection reset")
	_, err := f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.Error(t, err)

	// The payment was rewound along with the failed record.
	bal, err := f.bank.Balance(f.buyerAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), bal)
	bal, err = f.bank.Balance(f.creatorAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(0), bal)

	us, err := f.store.GetUserStrategy(f.buyer, f.creator, 1)
	require.NoError(t, err)
	require.Nil(t, us)
	s, err := f.svc.GetStrategy(f.creator, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), s.TotalPurchases)

	// Once the store recovers the purchase goes through cleanly.
	f.store.insertPurchaseErr = nil
	_, err = f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.NoError(t, err)
}

func TestUpdateStrategyRequiresCreator(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 100)

	_, err := f.svc.UpdateStrategy(f.buyer, f.creator, 1, "hijacked", 1, true)
	require.ErrorIs(t, err, ErrNotCreator)
}

func TestRecordExecutionResultTracksRecord(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 100)

	_, err := f.svc.BuyStrategy(f.buyer, f.creator, 1, f.buyerAccount, f.creatorAccount)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordExecutionResult(f.buyer, f.creator, 1, 1000, 1100, 100, true))
	require.NoError(t, f.svc.RecordExecutionResult(f.buyer, f.creator, 1, 1000, 900, -100, false))

	s, err := f.svc.GetStrategy(f.creator, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), s.TotalExecutions)
	require.Equal(t, int64(0), s.TotalProfit)
	require.Equal(t, uint16(5000), s.SuccessRate)

	us, err := f.store.GetUserStrategy(f.buyer, f.creator, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), us.TimesExecuted)
	require.Equal(t, int64(0), us.TotalProfit)
	require.Len(t, f.store.executions, 2)
}

func TestRecordExecutionRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	f.listStrategy(t, 100)

	err := f.svc.RecordExecutionResult(f.buyer, f.creator, 1, 1000, 1100, 100, true)
	require.ErrorIs(t, err, ErrNotPurchased)

	// The creator can book runs without buying.
	require.NoError(t, f.svc.RecordExecutionResult(f.creator, f.creator, 1, 1000, 1100, 100, true))
}
