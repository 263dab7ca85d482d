package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/native/nft"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/storage"
	"stakeledger/storage/trie"
)

func newTestManager(t *testing.T) (*Manager, *trie.Trie) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return NewManager(tr), tr
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func TestKVListAppendRemove(t *testing.T) {
	mgr, _ := newTestManager(t)
	key := []byte("list")

	require.NoError(t, mgr.KVAppend(key, []byte{1}))
	require.NoError(t, mgr.KVAppend(key, []byte{2}))
	require.NoError(t, mgr.KVAppend(key, []byte{1}))
	require.NoError(t, mgr.KVAppend(key, []byte{3}))

	var list [][]byte
	require.NoError(t, mgr.KVGetList(key, &list))
	require.Equal(t, [][]byte{{1}, {2}, {3}}, list)

	require.NoError(t, mgr.KVRemove(key, []byte{2}))
	require.NoError(t, mgr.KVGetList(key, &list))
	require.Equal(t, [][]byte{{1}, {3}}, list)

	require.NoError(t, mgr.KVRemove(key, []byte{1}))
	require.NoError(t, mgr.KVRemove(key, []byte{3}))
	ok, err := mgr.KVGet(key, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mgr.KVGetList(key, &list))
	require.Empty(t, list)
}

func TestKVRejectsEmptyKey(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.Error(t, mgr.KVPut(nil, uint64(1)))
	_, err := mgr.KVGet(nil, nil)
	require.Error(t, err)
	require.Error(t, mgr.KVDelete(nil))
}

func TestTokenStateRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	mint := &token.Mint{Address: addr(1), Decimals: 6, Supply: 10, MintAuthority: addr(2)}
	require.NoError(t, mgr.PutTokenMint(mint))
	got, ok, err := mgr.TokenMint(addr(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mint, got)

	acc := &token.Account{Address: addr(3), Mint: addr(1), Owner: addr(4), Amount: 7, Delegate: addr(5), DelegatedAmount: 1, Frozen: true}
	require.NoError(t, mgr.PutTokenAccount(acc))
	gotAcc, ok, err := mgr.TokenAccount(addr(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acc, gotAcc)

	require.NoError(t, mgr.DeleteTokenAccount(addr(3)))
	_, ok, err = mgr.TokenAccount(addr(3))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNativeBalanceDefaultsToZero(t *testing.T) {
	mgr, _ := newTestManager(t)
	balance, err := mgr.NativeBalance(addr(1))
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, mgr.SetNativeBalance(addr(1), 42))
	balance, err = mgr.NativeBalance(addr(1))
	require.NoError(t, err)
	require.Equal(t, uint64(42), balance)

	require.NoError(t, mgr.SetNativeBalance(addr(1), 0))
	ok, err := mgr.KVGet(prefixedKey(nativeBalancePrefix, addr(1)), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNFTMetadataRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	meta := &nft.Metadata{Mint: addr(1), Name: "Genesis #1", URI: "ipfs://x", UpdateAuthority: addr(2), CollectionKey: addr(3), CollectionVerified: true}
	require.NoError(t, mgr.PutNFTMetadata(meta))
	got, ok, err := mgr.NFTMetadata(addr(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, meta, got)
}

func TestStakingStateRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, ok, err := mgr.StakingConfig()
	require.NoError(t, err)
	require.False(t, ok)

	cfg := &staking.Config{Address: addr(1), RewardMint: addr(2), PointsPerNFT: 5, MinFreezePeriod: 3600, NativePolicy: staking.NativeRewardByDuration}
	require.NoError(t, mgr.PutStakingConfig(cfg))
	gotCfg, ok, err := mgr.StakingConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cfg, gotCfg)

	p := &staking.Participant{Address: addr(3), Owner: addr(4), Points: 9, NativeStakedAmount: 1000}
	require.NoError(t, mgr.PutStakingParticipant(p))
	gotP, ok, err := mgr.StakingParticipant(addr(4))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p, gotP)

	first := &staking.StakeRecord{Address: addr(5), Owner: addr(4), Class: staking.AssetNative, Custody: staking.CustodyVaultEscrow, Seq: 1, StakedAt: 1_700_000_000, Amount: 1000, HoldingAccount: addr(6)}
	second := &staking.StakeRecord{Address: addr(7), Owner: addr(4), Asset: addr(8), Class: staking.AssetNFT, Custody: staking.CustodyDelegatedFreeze, Seq: 2, StakedAt: 1_700_000_100, Amount: 1}
	require.NoError(t, mgr.PutStakeRecord(first))
	require.NoError(t, mgr.PutStakeRecord(second))
	require.NoError(t, mgr.PutStakeRecord(first))

	gotRec, ok, err := mgr.StakeRecord(addr(5))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, gotRec)

	index, err := mgr.StakeRecordsByOwner(addr(4))
	require.NoError(t, err)
	require.Equal(t, [][20]byte{addr(5), addr(7)}, index)

	require.NoError(t, mgr.DeleteStakeRecord(first))
	_, ok, err = mgr.StakeRecord(addr(5))
	require.NoError(t, err)
	require.False(t, ok)
	index, err = mgr.StakeRecordsByOwner(addr(4))
	require.NoError(t, err)
	require.Equal(t, [][20]byte{addr(7)}, index)
}

func TestStakeRecordRejectsNegativeTimestamp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.Error(t, mgr.PutStakeRecord(&staking.StakeRecord{Address: addr(1), StakedAt: -1}))
}

func TestStateVersion(t *testing.T) {
	mgr, tr := newTestManager(t)
	require.ErrorIs(t, EnsureStateVersion(tr, false), ErrStateVersionMismatch)
	require.NoError(t, EnsureStateVersion(tr, true))
	require.NoError(t, mgr.SetStateVersion(StateVersion))
	require.NoError(t, EnsureStateVersion(tr, false))

	require.NoError(t, mgr.SetStateVersion(StateVersion+1))
	err := EnsureStateVersion(tr, true)
	require.ErrorIs(t, err, ErrStateTooNew)
	require.ErrorIs(t, err, ErrStateVersionMismatch)
}

func TestResetDiscardsUncommittedState(t *testing.T) {
	mgr, tr := newTestManager(t)
	require.NoError(t, mgr.SetNativeBalance(addr(1), 5))
	_, err := tr.Commit(0)
	require.NoError(t, err)

	require.NoError(t, mgr.SetNativeBalance(addr(1), 99))
	require.NoError(t, tr.Reset(tr.Root()))

	balance, err := NewManager(tr).NativeBalance(addr(1))
	require.NoError(t, err)
	require.Equal(t, uint64(5), balance)
}
