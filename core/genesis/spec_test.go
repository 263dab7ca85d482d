package genesis

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/core/state"
	"stakeledger/crypto"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/storage"
	"stakeledger/storage/trie"
)

func account(b byte) string {
	return crypto.MustNewAddress(crypto.StakePrefix, bytes.Repeat([]byte{b}, 20)).String()
}

func sampleYAML() string {
	return `genesisTime: "2024-01-01T00:00:00Z"
chainId: 7
alloc:
  ` + account(1) + `: 5000
  ` + account(2) + `: 100
mints:
  - name: USDX
    decimals: 6
    authority: ` + account(9) + `
    balances:
      ` + account(1) + `: 800
collections:
  - name: Genesis
    uri: ipfs://collection
    authority: ` + account(9) + `
    members:
      - name: "#1"
        owner: ` + account(1) + `
        verified: true
      - name: "#2"
        owner: ` + account(2) + `
staking:
  authority: ` + account(9) + `
  pointsPerNft: 5
  pointsPerNativeUnit: 2
  pointsPerFungibleUnit: 3
  minFreezePeriod: 3600
  collection: Genesis
`
}

func TestLoadSpecAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML()), 0o600))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7), spec.ChainID)
	require.Equal(t, int64(1704067200), spec.GenesisTimestamp().Unix())

	db := storage.NewMemDB()
	defer db.Close()
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	mgr := state.NewManager(tr)
	require.NoError(t, Apply(spec, mgr))

	owner, err := ParseBech32Account(account(1))
	require.NoError(t, err)
	balance, err := mgr.NativeBalance(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), balance)

	acc, ok, err := mgr.TokenAccount(token.AssociatedAccount(owner, MintAddress("USDX")))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(800), acc.Amount)

	member, ok, err := mgr.NFTMetadata(MemberAddress("Genesis", "#1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, member.CollectionVerified)
	require.Equal(t, CollectionAddress("Genesis"), member.CollectionKey)

	unverified, ok, err := mgr.NFTMetadata(MemberAddress("Genesis", "#2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, unverified.CollectionVerified)

	cfg, ok, err := mgr.StakingConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, CollectionAddress("Genesis"), cfg.Collection)
	require.Equal(t, staking.NativeRewardAtStake, cfg.NativePolicy)
	require.Equal(t, uint8(5), cfg.PointsPerNFT)

	require.NoError(t, state.EnsureStateVersion(tr, false))
}

func TestApplyIsDeterministic(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleYAML()))
	require.NoError(t, err)

	roots := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		db := storage.NewMemDB()
		tr, err := trie.NewTrie(db, nil)
		require.NoError(t, err)
		require.NoError(t, Apply(spec, state.NewManager(tr)))
		roots = append(roots, tr.Hash().Hex())
		db.Close()
	}
	require.Equal(t, roots[0], roots[1])
}

func TestParseSpecRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "bogus: 1\n",
		"bad alloc":      "alloc:\n  nope: 1\n",
		"bad time":       "genesisTime: yesterday\n",
		"mint prefix":    "alloc:\n  " + crypto.MustNewAddress(crypto.MintPrefix, bytes.Repeat([]byte{1}, 20)).String() + ": 1\n",
		"unknown policy": "staking:\n  authority: " + account(1) + "\n  nativePolicy: weekly\n",
		"duplicate mint": "mints:\n  - name: A\n    authority: " + account(1) + "\n  - name: A\n    authority: " + account(1) + "\n",
		"missing member": "collections:\n  - name: C\n    authority: " + account(1) + "\n    members:\n      - owner: " + account(1) + "\n",
		"bad collection": "staking:\n  authority: " + account(1) + "\n  collection: Missing\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpec([]byte(doc))
			require.Error(t, err)
		})
	}
}
