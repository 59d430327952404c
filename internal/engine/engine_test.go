package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/vaultguard/gvm/internal/token"
	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

func key(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = seed
	pk[31] = seed
	return pk
}

// scriptedTarget stands in for the external swap venue. The test decides
// what the venue does to balances when invoked.
type scriptedTarget struct {
	execute func(types.ForwardInstruction) error
	calls   int
}

func (s *scriptedTarget) Execute(_ context.Context, ix types.ForwardInstruction) error {
	s.calls++
	if s.execute == nil {
		return nil
	}
	return s.execute(ix)
}

type captureSink struct {
	events []types.Event
}

func (c *captureSink) Publish(event types.Event) {
	c.events = append(c.events, event)
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time {
	return c.at
}

type fixture struct {
	bank   *token.Bank
	eng    *Engine
	target *scriptedTarget
	sink   *captureSink

	admin        solana.PublicKey
	authority    solana.PublicKey
	user         solana.PublicKey
	mintOwner    solana.PublicKey
	tokenMint    solana.PublicKey
	outMint      solana.PublicKey
	userTokenAcc solana.PublicKey
	userShareAcc solana.PublicKey
	userOutAcc   solana.PublicKey
	venuePool    solana.PublicKey
	feeVault     solana.PublicKey
	vault        types.Vault
}

const (
	testProtocolFeeBps = uint16(30)
	testUserFunds      = uint64(1_000_000)
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		bank:      token.NewBank(),
		target:    &scriptedTarget{},
		sink:      &captureSink{},
		admin:     key(10),
		authority: key(11),
		user:      key(2),
		mintOwner: key(9),
		tokenMint: key(1),
		outMint:   key(4),
	}

	require.NoError(t, f.bank.CreateMint(f.tokenMint, f.mintOwner, 6))
	require.NoError(t, f.bank.CreateMint(f.outMint, f.mintOwner, 6))

	eng, err := New(Config{
		Bank:                f.bank,
		Target:              f.target,
		Clock:               fixedClock{at: time.Unix(1_700_000_000, 0)},
		Sink:                f.sink,
		ProgramID:           key(7),
		SwapTargetProgramID: key(8),
	})
	require.NoError(t, err)
	f.eng = eng

	_, err = eng.InitializeGlobalState(f.admin, testProtocolFeeBps)
	require.NoError(t, err)

	f.feeVault, err = eng.InitializeFeeVault(f.tokenMint)
	require.NoError(t, err)

	_, err = eng.RegisterUser(f.user)
	require.NoError(t, err)

	f.vault, err = eng.InitializeVault(f.authority, f.tokenMint, 1000)
	require.NoError(t, err)

	f.userTokenAcc = key(20)
	f.userShareAcc = key(21)
	f.userOutAcc = key(22)
	f.venuePool = key(23)
	require.NoError(t, f.bank.CreateAccount(f.userTokenAcc, f.tokenMint, f.user, f.user))
	require.NoError(t, f.bank.CreateAccount(f.userOutAcc, f.outMint, f.user, f.user))
	require.NoError(t, f.bank.CreateAccount(f.venuePool, f.tokenMint, key(24), key(24)))
	require.NoError(t, f.bank.MintTo(f.tokenMint, f.userTokenAcc, f.mintOwner, testUserFunds))

	return f
}

func (f *fixture) balance(t *testing.T, acc solana.PublicKey) uint64 {
	t.Helper()
	bal, err := f.bank.Balance(acc)
	require.NoError(t, err)
	return bal
}

func (f *fixture) swapRequest(amountIn, minOut uint64) SwapRequest {
	return SwapRequest{
		User:              f.user,
		UserInputAccount:  f.userTokenAcc,
		UserOutputAccount: f.userOutAcc,
		InputMint:         f.tokenMint,
		OutputMint:        f.outMint,
		AmountIn:          amountIn,
		MinAmountOut:      minOut,
		TargetProgram:     key(8),
		Payload:           []byte{1, 2, 3},
		Accounts: []types.AccountMeta{
			{Address: f.userTokenAcc, IsWritable: true},
			{Address: f.userOutAcc, IsWritable: true},
			{Address: f.venuePool, IsWritable: true},
		},
	}
}

func TestDepositBootstrapAndProportional(t *testing.T) {
	f := newFixture(t)

	rcpt, err := f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), rcpt.Shares)
	require.Equal(t, uint64(1000), rcpt.TotalAssets)
	require.Equal(t, uint64(1000), rcpt.TotalShares)
	require.Equal(t, uint64(vaultmath.PriceScale), rcpt.SharePrice)

	require.Equal(t, uint64(1000), f.balance(t, f.vault.EscrowAccount))
	require.Equal(t, uint64(1000), f.balance(t, f.userShareAcc))

	rcpt, err = f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(500), rcpt.Shares)
	require.Equal(t, uint64(1500), rcpt.TotalAssets)
	require.Equal(t, uint64(1500), rcpt.TotalShares)
}

func TestDepositZeroAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 0)
	require.ErrorIs(t, err, ErrZeroAmount)
}

func TestDepositWrongOwnerLeavesNoEffect(t *testing.T) {
	f := newFixture(t)

	stranger := key(40)
	_, err := f.eng.Deposit(stranger, f.tokenMint, f.userTokenAcc, f.userShareAcc, 1000)
	require.ErrorIs(t, err, ErrInvalidOwner)

	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
	require.Equal(t, uint64(0), f.balance(t, f.vault.EscrowAccount))
	v, err := f.eng.VaultByMint(f.tokenMint)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v.TotalAssets)
	require.Equal(t, uint64(0), v.TotalShares)
}

func TestWithdrawRoundTripConservesValue(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 1000)
	require.NoError(t, err)

	rcpt, err := f.eng.Withdraw(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), rcpt.Assets)
	require.Equal(t, uint64(0), rcpt.TotalAssets)
	require.Equal(t, uint64(0), rcpt.TotalShares)

	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
	require.Equal(t, uint64(0), f.balance(t, f.userShareAcc))
	require.Equal(t, uint64(0), f.balance(t, f.vault.EscrowAccount))
}

func TestWithdrawMoreSharesThanHeld(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 1000)
	require.NoError(t, err)

	_, err = f.eng.Withdraw(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 2000)
	require.Error(t, err)

	require.Equal(t, uint64(1000), f.balance(t, f.userShareAcc))
	require.Equal(t, uint64(1000), f.balance(t, f.vault.EscrowAccount))
}

func TestSwapHappyPath(t *testing.T) {
	f := newFixture(t)

	amountIn := uint64(100_000)
	fee, err := vaultmath.Fee(amountIn, testProtocolFeeBps)
	require.NoError(t, err)
	swapAmount := amountIn - fee

	f.target.execute = func(types.ForwardInstruction) error {
		if err := f.bank.Transfer(f.userTokenAcc, f.venuePool, f.user, swapAmount); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, f.userOutAcc, f.mintOwner, 95_000)
	}

	rcpt, err := f.eng.Swap(context.Background(), f.swapRequest(amountIn, 90_000))
	require.NoError(t, err)
	require.Equal(t, fee, rcpt.Fee)
	require.Equal(t, swapAmount, rcpt.SwapAmount)
	require.Equal(t, swapAmount, rcpt.InputUsed)
	require.Equal(t, uint64(95_000), rcpt.OutputReceived)
	require.Equal(t, uint64(0), rcpt.SwapID)
	require.Equal(t, 1, f.target.calls)

	require.Equal(t, fee, f.balance(t, f.feeVault))
	require.Equal(t, testUserFunds-amountIn, f.balance(t, f.userTokenAcc))
	require.Equal(t, uint64(95_000), f.balance(t, f.userOutAcc))

	us, err := f.eng.UserState(f.user)
	require.NoError(t, err)
	require.Equal(t, amountIn, us.TotalVolume)
	require.Equal(t, uint64(1), us.Swaps)

	var swapEvents int
	for _, ev := range f.sink.events {
		if se, ok := ev.(types.SwapEvent); ok {
			swapEvents++
			require.Equal(t, fee, se.Fee)
			require.Equal(t, uint64(0), se.SwapID)
		}
	}
	require.Equal(t, 1, swapEvents)
}

func TestSwapProtectedAccountAborts(t *testing.T) {
	f := newFixture(t)

	req := f.swapRequest(100_000, 0)
	req.Accounts = append(req.Accounts, types.AccountMeta{Address: f.feeVault, IsWritable: true})

	_, err := f.eng.Swap(context.Background(), req)
	require.ErrorIs(t, err, ErrProtectedAccount)

	// Fee collection happened before the check and must have been rewound.
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
	require.Equal(t, 0, f.target.calls)

	us, err := f.eng.UserState(f.user)
	require.NoError(t, err)
	require.Equal(t, uint64(0), us.Swaps)
}

func TestSwapSlippageAbortsFully(t *testing.T) {
	f := newFixture(t)

	amountIn := uint64(100_000)
	fee, err := vaultmath.Fee(amountIn, testProtocolFeeBps)
	require.NoError(t, err)

	f.target.execute = func(types.ForwardInstruction) error {
		if err := f.bank.Transfer(f.userTokenAcc, f.venuePool, f.user, amountIn-fee); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, f.userOutAcc, f.mintOwner, 80_000)
	}

	_, err = f.eng.Swap(context.Background(), f.swapRequest(amountIn, 90_000))
	require.ErrorIs(t, err, ErrSlippageExceeded)

	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
	require.Equal(t, uint64(0), f.balance(t, f.userOutAcc))
	require.Equal(t, uint64(0), f.balance(t, f.venuePool))

	us, err := f.eng.UserState(f.user)
	require.NoError(t, err)
	require.Equal(t, uint64(0), us.TotalVolume)
	require.Equal(t, uint64(0), us.Swaps)
}

func TestSwapOverconsumptionAborts(t *testing.T) {
	f := newFixture(t)

	amountIn := uint64(100_000)
	f.target.execute = func(types.ForwardInstruction) error {
		// Venue takes more than the authorized net amount.
		if err := f.bank.Transfer(f.userTokenAcc, f.venuePool, f.user, amountIn); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, f.userOutAcc, f.mintOwner, 200_000)
	}

	_, err := f.eng.Swap(context.Background(), f.swapRequest(amountIn, 0))
	require.ErrorIs(t, err, ErrUnexpectedInputAmount)

	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
	require.Equal(t, uint64(0), f.balance(t, f.userOutAcc))
}

func TestSwapWrongTargetProgram(t *testing.T) {
	f := newFixture(t)

	req := f.swapRequest(100_000, 0)
	req.TargetProgram = key(42)

	_, err := f.eng.Swap(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidSwapProgram)
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, 0, f.target.calls)
}

func TestSwapEmptyPayload(t *testing.T) {
	f := newFixture(t)

	req := f.swapRequest(100_000, 0)
	req.Payload = nil

	_, err := f.eng.Swap(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidSwapInstruction)
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
}

func TestSwapTargetFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	boom := errors.New("venue rejected route")
	f.target.execute = func(types.ForwardInstruction) error {
		return boom
	}

	_, err := f.eng.Swap(context.Background(), f.swapRequest(100_000, 0))
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, testUserFunds, f.balance(t, f.userTokenAcc))
}

func TestSwapUnregisteredUser(t *testing.T) {
	f := newFixture(t)

	req := f.swapRequest(100_000, 0)
	req.User = key(50)

	_, err := f.eng.Swap(context.Background(), req)
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestSwapInsufficientBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Swap(context.Background(), f.swapRequest(testUserFunds+1, 0))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRecordSwapIntent(t *testing.T) {
	f := newFixture(t)

	rcpt, err := f.eng.RecordSwapIntent(IntentRequest{
		User:         f.user,
		InputMint:    f.tokenMint,
		OutputMint:   f.outMint,
		AmountIn:     5000,
		MinAmountOut: 4900,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), rcpt.SwapID)
	require.False(t, rcpt.Address.IsZero())

	us, err := f.eng.UserState(f.user)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), us.TotalVolume)
	require.Equal(t, uint64(1), us.Swaps)

	// Identifier space is shared with executed swaps.
	rcpt2, err := f.eng.RecordSwapIntent(IntentRequest{
		User:      f.user,
		InputMint: f.tokenMint, OutputMint: f.outMint,
		AmountIn: 1,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), rcpt2.SwapID)
	require.NotEqual(t, rcpt.Address, rcpt2.Address)
}

func newStrategyFixture(t *testing.T) (*fixture, solana.PublicKey) {
	t.Helper()

	f := newFixture(t)
	_, err := f.eng.Deposit(f.user, f.tokenMint, f.userTokenAcc, f.userShareAcc, 500_000)
	require.NoError(t, err)
	require.NoError(t, f.eng.SetStrategyEnabled(f.authority, f.tokenMint, true))

	vaultOut := key(30)
	require.NoError(t, f.bank.CreateAccount(vaultOut, f.outMint, f.vault.Address, f.vault.Address))
	return f, vaultOut
}

func (f *fixture) strategyRequest(vaultOut solana.PublicKey, amount, minOut uint64) StrategyRequest {
	return StrategyRequest{
		Authority:          f.authority,
		TokenMint:          f.tokenMint,
		Strategy:           types.VaultStrategySwap,
		Amount:             amount,
		MinAmountOut:       minOut,
		VaultOutputAccount: vaultOut,
		OutputMint:         f.outMint,
		TargetProgram:      key(8),
		Payload:            []byte{9},
		Accounts: []types.AccountMeta{
			{Address: f.vault.EscrowAccount, IsWritable: true},
			{Address: vaultOut, IsWritable: true},
		},
	}
}

func TestExecuteStrategyDeductsSpentAssets(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	amount := uint64(100_000)
	fee, err := vaultmath.Fee(amount, testProtocolFeeBps)
	require.NoError(t, err)
	swapAmount := amount - fee

	f.target.execute = func(types.ForwardInstruction) error {
		if err := f.bank.Transfer(f.vault.EscrowAccount, f.venuePool, f.vault.Address, swapAmount); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, vaultOut, f.mintOwner, 98_000)
	}

	rcpt, err := f.eng.ExecuteStrategy(context.Background(), f.strategyRequest(vaultOut, amount, 95_000))
	require.NoError(t, err)
	require.Equal(t, fee, rcpt.Fee)
	require.Equal(t, swapAmount, rcpt.InputUsed)
	require.Equal(t, uint64(98_000), rcpt.OutputReceived)
	require.Equal(t, 500_000-amount, rcpt.TotalAssets)

	v, err := f.eng.VaultByMint(f.tokenMint)
	require.NoError(t, err)
	require.Equal(t, 500_000-amount, v.TotalAssets)
	require.Equal(t, uint64(500_000), v.TotalShares)
	require.Equal(t, fee, f.balance(t, f.feeVault))
	require.Equal(t, 500_000-amount, f.balance(t, f.vault.EscrowAccount))
}

func TestExecuteStrategyUpdatesVaultCounters(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	amount := uint64(100_000)
	fee, err := vaultmath.Fee(amount, testProtocolFeeBps)
	require.NoError(t, err)

	f.target.execute = func(types.ForwardInstruction) error {
		if err := f.bank.Transfer(f.vault.EscrowAccount, f.venuePool, f.vault.Address, amount-fee); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, vaultOut, f.mintOwner, 98_000)
	}

	_, err = f.eng.ExecuteStrategy(context.Background(), f.strategyRequest(vaultOut, amount, 95_000))
	require.NoError(t, err)

	// The vault swaps as a principal of its own, through the counter
	// record created at vault initialization.
	us, err := f.eng.UserState(f.vault.Address)
	require.NoError(t, err)
	require.Equal(t, amount, us.TotalVolume)
	require.Equal(t, uint64(1), us.Swaps)

	_, err = f.eng.ExecuteStrategy(context.Background(), f.strategyRequest(vaultOut, amount, 95_000))
	require.NoError(t, err)

	us, err = f.eng.UserState(f.vault.Address)
	require.NoError(t, err)
	require.Equal(t, 2*amount, us.TotalVolume)
	require.Equal(t, uint64(2), us.Swaps)
}

func TestExecuteStrategyRequiresAuthority(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	req := f.strategyRequest(vaultOut, 1000, 0)
	req.Authority = f.user

	_, err := f.eng.ExecuteStrategy(context.Background(), req)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestExecuteStrategyDisabled(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)
	require.NoError(t, f.eng.SetStrategyEnabled(f.authority, f.tokenMint, false))

	_, err := f.eng.ExecuteStrategy(context.Background(), f.strategyRequest(vaultOut, 1000, 0))
	require.ErrorIs(t, err, ErrStrategyDisabled)
}

func TestExecuteStrategyUnimplementedVariants(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	for _, variant := range []types.VaultStrategy{types.VaultStrategyRebalance, types.VaultStrategyYield} {
		req := f.strategyRequest(vaultOut, 1000, 0)
		req.Strategy = variant
		_, err := f.eng.ExecuteStrategy(context.Background(), req)
		require.ErrorIs(t, err, ErrStrategyNotImplemented)
	}
}

func TestExecuteStrategySlippageRestoresEverything(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	f.target.execute = func(types.ForwardInstruction) error {
		if err := f.bank.Transfer(f.vault.EscrowAccount, f.venuePool, f.vault.Address, 50_000); err != nil {
			return err
		}
		return f.bank.MintTo(f.outMint, vaultOut, f.mintOwner, 10_000)
	}

	_, err := f.eng.ExecuteStrategy(context.Background(), f.strategyRequest(vaultOut, 100_000, 95_000))
	require.ErrorIs(t, err, ErrSlippageExceeded)

	v, err := f.eng.VaultByMint(f.tokenMint)
	require.NoError(t, err)
	require.Equal(t, uint64(500_000), v.TotalAssets)
	require.Equal(t, uint64(500_000), f.balance(t, f.vault.EscrowAccount))
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, uint64(0), f.balance(t, vaultOut))

	us, err := f.eng.UserState(f.vault.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(0), us.TotalVolume)
	require.Equal(t, uint64(0), us.Swaps)
}

func TestExecuteStrategyProtectsShareMint(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	req := f.strategyRequest(vaultOut, 1000, 0)
	req.Accounts = append(req.Accounts, types.AccountMeta{Address: f.vault.ShareMint, IsWritable: true})

	_, err := f.eng.ExecuteStrategy(context.Background(), req)
	require.ErrorIs(t, err, ErrProtectedAccount)
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
}

func TestExecuteStrategyProtectsVaultCounterRecord(t *testing.T) {
	f, vaultOut := newStrategyFixture(t)

	us, err := f.eng.UserState(f.vault.Address)
	require.NoError(t, err)

	req := f.strategyRequest(vaultOut, 1000, 0)
	req.Accounts = append(req.Accounts, types.AccountMeta{Address: us.Address, IsWritable: true})

	_, err = f.eng.ExecuteStrategy(context.Background(), req)
	require.ErrorIs(t, err, ErrProtectedAccount)
	require.Equal(t, uint64(0), f.balance(t, f.feeVault))
	require.Equal(t, 0, f.target.calls)
}

func TestGlobalStateLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.InitializeGlobalState(f.admin, 50)
	require.ErrorIs(t, err, ErrGlobalStateExists)

	_, err = f.eng.UpdateFeeRate(f.user, 50)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.eng.UpdateFeeRate(f.admin, 10_001)
	require.ErrorIs(t, err, vaultmath.ErrInvalidFeeRate)

	gs, err := f.eng.UpdateFeeRate(f.admin, 50)
	require.NoError(t, err)
	require.Equal(t, uint16(50), gs.FeeBps)
	require.Equal(t, uint64(2), gs.Version)
}

func TestInitializeVaultRejectsExcessiveFee(t *testing.T) {
	f := newFixture(t)

	mint2 := key(5)
	require.NoError(t, f.bank.CreateMint(mint2, f.mintOwner, 9))

	_, err := f.eng.InitializeVault(f.authority, mint2, maxPerformanceFeeBps+1)
	require.ErrorIs(t, err, ErrInvalidFee)

	v, err := f.eng.InitializeVault(f.authority, mint2, maxPerformanceFeeBps)
	require.NoError(t, err)
	require.False(t, v.StrategyEnabled)

	// The vault is registered as a principal of its own.
	_, err = f.eng.UserState(v.Address)
	require.NoError(t, err)
}

func TestRegisterUserTwice(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.RegisterUser(f.user)
	require.ErrorIs(t, err, ErrUserExists)
}
