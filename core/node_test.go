package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/genesis"
	"stakeledger/core/types"
	"stakeledger/crypto"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/staking"
	"stakeledger/storage"
)

const (
	testChainID = 7
	testNow     = int64(1_700_000_000)
)

type captureEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType())
	}
	return out
}

type testEnv struct {
	node    *Node
	admin   *crypto.PrivateKey
	alice   *crypto.PrivateKey
	clock   *int64
	emitter *captureEmitter
	nonces  map[[20]byte]uint64
}

func addressOf(key *crypto.PrivateKey) [20]byte {
	return key.PubKey().Address().Array()
}

func mintString(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.MintPrefix, addr[:]).String()
}

func writeGenesis(t *testing.T, admin, alice [20]byte) string {
	t.Helper()
	adminAddr := crypto.FromArray(admin).String()
	aliceAddr := crypto.FromArray(alice).String()
	doc := `genesisTime: "2024-01-01T00:00:00Z"
chainId: 7
alloc:
  ` + aliceAddr + `: 10000
mints:
  - name: USDX
    decimals: 6
    authority: ` + adminAddr + `
    balances:
      ` + aliceAddr + `: 800
collections:
  - name: Apes
    uri: ipfs://apes
    authority: ` + adminAddr + `
    members:
      - name: "#1"
        owner: ` + aliceAddr + `
        verified: true
      - name: "#2"
        owner: ` + aliceAddr + `
`
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func newTestEnv(t *testing.T, db storage.Database, opts Options) *testEnv {
	t.Helper()
	admin, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	alice, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	opts.GenesisPath = writeGenesis(t, addressOf(admin), addressOf(alice))
	node, err := NewNode(db, opts)
	require.NoError(t, err)

	clock := testNow
	node.SetNowFunc(func() int64 { return clock })
	emitter := &captureEmitter{}
	node.SetEmitter(emitter)
	return &testEnv{node: node, admin: admin, alice: alice, clock: &clock, emitter: emitter, nonces: map[[20]byte]uint64{}}
}

func (e *testEnv) send(t *testing.T, key *crypto.PrivateKey, txType types.TxType, payload interface{}) (*types.Receipt, error) {
	t.Helper()
	sender := addressOf(key)
	tx := &types.Transaction{Type: txType, ChainID: testChainID, Nonce: e.nonces[sender]}
	if payload != nil {
		require.NoError(t, tx.SetPayload(payload))
	}
	require.NoError(t, tx.Sign(key.PrivateKey))
	receipt, err := e.node.ApplyTransaction(tx)
	if err == nil {
		e.nonces[sender]++
	}
	return receipt, err
}

func (e *testEnv) configure(t *testing.T) {
	t.Helper()
	_, err := e.send(t, e.admin, types.TxTypeCreateConfig, types.CreateConfigPayload{
		PointsPerNFT:          5,
		PointsPerNativeUnit:   2,
		PointsPerFungibleUnit: 3,
		MinFreezePeriod:       3600,
		Collection:            mintString(genesis.CollectionAddress("Apes")),
	})
	require.NoError(t, err)
	_, err = e.send(t, e.alice, types.TxTypeCreateParticipant, nil)
	require.NoError(t, err)
}

func TestNodeAppliesGenesis(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})
	require.Equal(t, uint64(testChainID), env.node.ChainID())
	require.Zero(t, env.node.Height())

	balances, err := env.node.Balances(addressOf(env.alice))
	require.NoError(t, err)
	require.Equal(t, uint64(10000), balances.Native)
	require.Zero(t, balances.Reward)

	usdx, err := env.node.TokenBalance(addressOf(env.alice), genesis.MintAddress("USDX"))
	require.NoError(t, err)
	require.Equal(t, uint64(800), usdx)

	meta, err := env.node.NFTMetadata(genesis.MemberAddress("Apes", "#1"))
	require.NoError(t, err)
	require.True(t, meta.CollectionVerified)

	_, err = env.node.Config()
	require.ErrorIs(t, err, staking.ErrNotInitialized)
}

func TestNodeRejectsGenesisChainMismatch(t *testing.T) {
	admin, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := writeGenesis(t, addressOf(admin), addressOf(admin))
	_, err = NewNode(storage.NewMemDB(), Options{ChainID: 99, GenesisPath: path})
	require.Error(t, err)
}

func TestNodeNFTLifecycleThroughTransactions(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})
	env.configure(t)
	alice := addressOf(env.alice)
	mint := genesis.MemberAddress("Apes", "#1")

	receipt, err := env.send(t, env.alice, types.TxTypeStakeNFT, types.StakeNFTPayload{Mint: mintString(mint)})
	require.NoError(t, err)
	require.Equal(t, "stakeNft", receipt.Type)
	require.Len(t, receipt.Events, 2)
	require.Equal(t, events.TypeStakeRewardMinted, receipt.Events[0].Type)
	require.Equal(t, "5000000", receipt.Events[0].Attributes["amount"])
	require.Equal(t, events.TypeStakeLocked, receipt.Events[1].Type)

	balances, err := env.node.Balances(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000), balances.Reward)

	record, err := env.node.RecordAddress(alice, mint, 0)
	require.NoError(t, err)
	unstake := types.UnstakePayload{Record: crypto.FromArray(record).String()}

	heightBefore := env.node.Height()
	rootBefore := env.node.StateRoot()
	*env.clock = testNow + 3599
	_, err = env.send(t, env.alice, types.TxTypeUnstake, unstake)
	require.ErrorIs(t, err, staking.ErrFreezePeriodNotPassed)
	require.Equal(t, heightBefore, env.node.Height())
	require.Equal(t, rootBefore, env.node.StateRoot())
	nonce, err := env.node.Nonce(alice)
	require.NoError(t, err)
	require.Equal(t, env.nonces[alice], nonce)

	*env.clock = testNow + 3600
	_, err = env.send(t, env.alice, types.TxTypeUnstake, unstake)
	require.NoError(t, err)

	_, err = env.node.StakeRecord(record)
	require.ErrorIs(t, err, staking.ErrStakeNotFound)
	p, err := env.node.Participant(alice)
	require.NoError(t, err)
	require.Zero(t, p.NFTStakedCount)
	require.Equal(t, uint64(5_000_000), p.Points)

	require.Equal(t, []string{
		events.TypeStakeConfigCreated,
		events.TypeStakeParticipantCreated,
		events.TypeStakeRewardMinted,
		events.TypeStakeLocked,
		events.TypeStakeUnlocked,
	}, env.emitter.types())
}

func TestNodeRejectsUnverifiedMember(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})
	env.configure(t)
	mint := genesis.MemberAddress("Apes", "#2")

	_, err := env.send(t, env.alice, types.TxTypeStakeNFT, types.StakeNFTPayload{Mint: mintString(mint)})
	require.ErrorIs(t, err, staking.ErrInvalidCollection)

	_, err = env.send(t, env.admin, types.TxTypeVerifyCollection, types.VerifyCollectionPayload{Mint: mintString(mint)})
	require.NoError(t, err)
	_, err = env.send(t, env.alice, types.TxTypeStakeNFT, types.StakeNFTPayload{Mint: mintString(mint), Seq: 1})
	require.NoError(t, err)
}

func TestNodeFungibleAndNativeStakes(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{RecordDeposit: 25})
	env.configure(t)
	alice := addressOf(env.alice)
	usdx := genesis.MintAddress("USDX")

	_, err := env.send(t, env.alice, types.TxTypeStakeFungible, types.StakeFungiblePayload{Mint: mintString(usdx), Amount: 500})
	require.NoError(t, err)
	_, err = env.send(t, env.alice, types.TxTypeStakeNative, types.StakeNativePayload{Amount: 1000})
	require.NoError(t, err)

	balances, err := env.node.Balances(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_500+2_000), balances.Reward)
	require.Equal(t, uint64(10000-1000-50), balances.Native)

	stakes, err := env.node.StakesByOwner(alice)
	require.NoError(t, err)
	require.Len(t, stakes, 2)

	*env.clock = testNow + 3600
	for _, rec := range stakes {
		_, err := env.send(t, env.alice, types.TxTypeUnstake, types.UnstakePayload{Record: crypto.FromArray(rec.Address).String()})
		require.NoError(t, err)
	}

	balances, err = env.node.Balances(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), balances.Native)
	usdxBalance, err := env.node.TokenBalance(alice, usdx)
	require.NoError(t, err)
	require.Equal(t, uint64(800), usdxBalance)

	p, err := env.node.Participant(alice)
	require.NoError(t, err)
	require.Zero(t, p.FungibleStakedAmount)
	require.Zero(t, p.NativeStakedAmount)
}

func TestNodeRejectsBadEnvelopes(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})

	unsigned := &types.Transaction{Type: types.TxTypeCreateParticipant, ChainID: testChainID}
	_, err := env.node.ApplyTransaction(unsigned)
	require.ErrorIs(t, err, coreerrors.ErrInvalidSender)

	wrongChain := &types.Transaction{Type: types.TxTypeCreateParticipant, ChainID: testChainID + 1}
	require.NoError(t, wrongChain.Sign(env.alice.PrivateKey))
	_, err = env.node.ApplyTransaction(wrongChain)
	require.ErrorIs(t, err, coreerrors.ErrChainIDMismatch)

	badNonce := &types.Transaction{Type: types.TxTypeCreateParticipant, ChainID: testChainID, Nonce: 3}
	require.NoError(t, badNonce.Sign(env.alice.PrivateKey))
	_, err = env.node.ApplyTransaction(badNonce)
	require.ErrorIs(t, err, coreerrors.ErrInvalidNonce)

	unknown := &types.Transaction{Type: types.TxType(0x7f), ChainID: testChainID}
	require.NoError(t, unknown.Sign(env.alice.PrivateKey))
	_, err = env.node.ApplyTransaction(unknown)
	require.ErrorIs(t, err, coreerrors.ErrUnknownTxType)

	_, err = env.send(t, env.alice, types.TxTypeStakeNFT, map[string]string{"mint": "not-bech32"})
	require.ErrorIs(t, err, coreerrors.ErrInvalidPayload)

	require.Zero(t, env.node.Height())
	require.Empty(t, env.emitter.types())
}

func TestNodeRollbackDropsStateAndEvents(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})
	env.configure(t)
	alice := addressOf(env.alice)
	published := len(env.emitter.types())
	root := env.node.StateRoot()

	_, err := env.node.StakeNative(alice, 10_001, 0)
	require.Error(t, err)
	require.Equal(t, root, env.node.StateRoot())
	require.Len(t, env.emitter.types(), published)

	balance, err := env.node.NativeBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), balance)
	p, err := env.node.Participant(alice)
	require.NoError(t, err)
	require.Zero(t, p.NativeStakedAmount)
	require.Zero(t, p.Points)

	rec, err := env.node.StakeNative(alice, 100, 0)
	require.NoError(t, err)
	require.Equal(t, staking.AssetNative, rec.Class)
	require.Len(t, env.emitter.types(), published+2)
}

func TestNodeDirectOperations(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{})
	admin := addressOf(env.admin)
	alice := addressOf(env.alice)

	cfg, err := env.node.CreateConfig(admin, staking.ConfigParams{PointsPerNFT: 1, MinFreezePeriod: 10})
	require.NoError(t, err)
	require.Equal(t, admin, cfg.Authority)

	_, err = env.node.CreateParticipant(alice)
	require.NoError(t, err)
	_, err = env.node.CreateParticipant(alice)
	require.ErrorIs(t, err, staking.ErrAlreadyInitialized)

	require.NoError(t, env.node.TransferNative(alice, admin, 400))
	balance, err := env.node.NativeBalance(admin)
	require.NoError(t, err)
	require.Equal(t, uint64(400), balance)

	rec, err := env.node.StakeNFT(alice, genesis.MemberAddress("Apes", "#1"), 0)
	require.NoError(t, err)
	_, err = env.node.Unstake(admin, rec.Address)
	require.ErrorIs(t, err, staking.ErrInvalidAuthority)
	*env.clock = testNow + 10
	_, err = env.node.Unstake(alice, rec.Address)
	require.NoError(t, err)
}

func TestNodePausedStakingRejectsNewStakes(t *testing.T) {
	env := newTestEnv(t, storage.NewMemDB(), Options{Paused: []string{staking.ModuleName}})
	admin := addressOf(env.admin)
	alice := addressOf(env.alice)

	_, err := env.node.CreateConfig(admin, staking.ConfigParams{PointsPerNativeUnit: 1})
	require.NoError(t, err)
	_, err = env.node.CreateParticipant(alice)
	require.NoError(t, err)
	height := env.node.Height()

	_, err = env.node.StakeNative(alice, 100, 0)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.Equal(t, height, env.node.Height())
	balance, err := env.node.NativeBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), balance)
}

func TestNodeReopensFromLevelDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	env := newTestEnv(t, db, Options{})
	env.configure(t)
	alice := addressOf(env.alice)
	_, err = env.send(t, env.alice, types.TxTypeStakeNative, types.StakeNativePayload{Amount: 700})
	require.NoError(t, err)
	height := env.node.Height()
	root := env.node.StateRoot()
	db.Close()

	reopened, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	node, err := NewNode(reopened, Options{})
	require.NoError(t, err)
	require.Equal(t, height, node.Height())
	require.Equal(t, root, node.StateRoot())
	require.Equal(t, uint64(testChainID), node.ChainID())

	_, err = NewNode(reopened, Options{ChainID: 8})
	require.Error(t, err)

	p, err := node.Participant(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(700), p.NativeStakedAmount)
	nonce, err := node.Nonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)
}
