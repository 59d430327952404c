package token

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func key(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = seed
	pk[31] = seed
	return pk
}

func newTestBank(t *testing.T) (*Bank, solana.PublicKey, solana.PublicKey, solana.PublicKey) {
	t.Helper()

	bank := NewBank()
	mint := key(1)
	alice := key(2)
	bob := key(3)

	require.NoError(t, bank.CreateMint(mint, key(9), 6))
	require.NoError(t, bank.CreateAccount(key(12), mint, alice, alice))
	require.NoError(t, bank.CreateAccount(key(13), mint, bob, bob))
	require.NoError(t, bank.MintTo(mint, key(12), key(9), 1000))

	return bank, mint, key(12), key(13)
}

func TestTransfer(t *testing.T) {
	bank, _, aliceAcc, bobAcc := newTestBank(t)

	require.NoError(t, bank.Transfer(aliceAcc, bobAcc, key(2), 400))

	got, err := bank.Balance(aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(600), got)

	got, err = bank.Balance(bobAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(400), got)
}

func TestTransferRejectsWrongAuthority(t *testing.T) {
	bank, _, aliceAcc, bobAcc := newTestBank(t)

	err := bank.Transfer(aliceAcc, bobAcc, key(3), 100)
	require.ErrorIs(t, err, ErrBadAuthority)

	// Nothing moved.
	got, err := bank.Balance(aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), got)
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	bank, _, aliceAcc, bobAcc := newTestBank(t)

	err := bank.Transfer(aliceAcc, bobAcc, key(2), 1001)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestTransferRejectsMintMismatch(t *testing.T) {
	bank, _, aliceAcc, _ := newTestBank(t)

	otherMint := key(4)
	require.NoError(t, bank.CreateMint(otherMint, key(9), 6))
	require.NoError(t, bank.CreateAccount(key(14), otherMint, key(3), key(3)))

	err := bank.Transfer(aliceAcc, key(14), key(2), 100)
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestMintToRequiresMintAuthority(t *testing.T) {
	bank, mint, aliceAcc, _ := newTestBank(t)

	err := bank.MintTo(mint, aliceAcc, key(2), 100)
	require.ErrorIs(t, err, ErrBadAuthority)
}

func TestBurn(t *testing.T) {
	bank, mint, aliceAcc, _ := newTestBank(t)

	require.NoError(t, bank.Burn(mint, aliceAcc, key(2), 250))

	got, err := bank.Balance(aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(750), got)

	err = bank.Burn(mint, aliceAcc, key(2), 751)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSnapshotRestore(t *testing.T) {
	bank, mint, aliceAcc, bobAcc := newTestBank(t)

	snap := bank.Snapshot()

	require.NoError(t, bank.Transfer(aliceAcc, bobAcc, key(2), 500))
	require.NoError(t, bank.Burn(mint, bobAcc, key(3), 100))

	bank.Restore(snap)

	got, err := bank.Balance(aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), got)

	got, err = bank.Balance(bobAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}
