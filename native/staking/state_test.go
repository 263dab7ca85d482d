package staking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/native/nft"
	"stakeledger/native/token"
)

type memState struct {
	mints        map[[20]byte]*token.Mint
	accounts     map[[20]byte]*token.Account
	native       map[[20]byte]uint64
	deposits     map[[20]byte]uint64
	meta         map[[20]byte]*nft.Metadata
	config       *Config
	participants map[[20]byte]*Participant
	records      map[[20]byte]*StakeRecord
	byOwner      map[[20]byte][][20]byte
}

func newMemState() *memState {
	return &memState{
		mints:        make(map[[20]byte]*token.Mint),
		accounts:     make(map[[20]byte]*token.Account),
		native:       make(map[[20]byte]uint64),
		deposits:     make(map[[20]byte]uint64),
		meta:         make(map[[20]byte]*nft.Metadata),
		participants: make(map[[20]byte]*Participant),
		records:      make(map[[20]byte]*StakeRecord),
		byOwner:      make(map[[20]byte][][20]byte),
	}
}

func (m *memState) TokenMint(addr [20]byte) (*token.Mint, bool, error) {
	v, ok := m.mints[addr]
	return v.Clone(), ok, nil
}

func (m *memState) PutTokenMint(v *token.Mint) error {
	m.mints[v.Address] = v.Clone()
	return nil
}

func (m *memState) TokenAccount(addr [20]byte) (*token.Account, bool, error) {
	v, ok := m.accounts[addr]
	return v.Clone(), ok, nil
}

func (m *memState) PutTokenAccount(v *token.Account) error {
	m.accounts[v.Address] = v.Clone()
	return nil
}

func (m *memState) DeleteTokenAccount(addr [20]byte) error {
	delete(m.accounts, addr)
	return nil
}

func (m *memState) NativeBalance(addr [20]byte) (uint64, error) { return m.native[addr], nil }

func (m *memState) SetNativeBalance(addr [20]byte, v uint64) error {
	m.native[addr] = v
	return nil
}

func (m *memState) HeldDeposit(addr [20]byte) (uint64, error) { return m.deposits[addr], nil }

func (m *memState) SetHeldDeposit(addr [20]byte, v uint64) error {
	m.deposits[addr] = v
	return nil
}

func (m *memState) NFTMetadata(mint [20]byte) (*nft.Metadata, bool, error) {
	v, ok := m.meta[mint]
	return v.Clone(), ok, nil
}

func (m *memState) PutNFTMetadata(v *nft.Metadata) error {
	m.meta[v.Mint] = v.Clone()
	return nil
}

func (m *memState) StakingConfig() (*Config, bool, error) {
	return m.config.Clone(), m.config != nil, nil
}

func (m *memState) PutStakingConfig(cfg *Config) error {
	m.config = cfg.Clone()
	return nil
}

func (m *memState) StakingParticipant(owner [20]byte) (*Participant, bool, error) {
	v, ok := m.participants[owner]
	return v.Clone(), ok, nil
}

func (m *memState) PutStakingParticipant(p *Participant) error {
	m.participants[p.Owner] = p.Clone()
	return nil
}

func (m *memState) StakeRecord(addr [20]byte) (*StakeRecord, bool, error) {
	v, ok := m.records[addr]
	return v.Clone(), ok, nil
}

func (m *memState) PutStakeRecord(rec *StakeRecord) error {
	if _, ok := m.records[rec.Address]; !ok {
		m.byOwner[rec.Owner] = append(m.byOwner[rec.Owner], rec.Address)
	}
	m.records[rec.Address] = rec.Clone()
	return nil
}

func (m *memState) DeleteStakeRecord(rec *StakeRecord) error {
	delete(m.records, rec.Address)
	list := m.byOwner[rec.Owner]
	for i, addr := range list {
		if addr == rec.Address {
			m.byOwner[rec.Owner] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memState) StakeRecordsByOwner(owner [20]byte) ([][20]byte, error) {
	return append([][20]byte(nil), m.byOwner[owner]...), nil
}

type captured struct{ events []events.Event }

func (c *captured) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captured) types() []string {
	out := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType())
	}
	return out
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

type harness struct {
	state      *memState
	ledger     *token.Ledger
	registry   *nft.Registry
	engine     *Engine
	events     *captured
	now        int64
	creator    crypto.Signer
	collection [20]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	state := newMemState()
	ledger := token.NewLedger(state)
	registry := nft.NewRegistry(state, ledger)
	h := &harness{
		state:    state,
		ledger:   ledger,
		registry: registry,
		events:   &captured{},
		now:      1_700_000_000,
		creator:  crypto.AccountSigner(addr(0xC0)),
	}
	h.engine = NewEngine(state, ledger, registry)
	h.engine.SetNowFunc(func() int64 { return h.now })
	h.engine.SetEmitter(h.events)
	col, err := registry.CreateCollection(crypto.AccountSigner(addr(0xC1)), h.creator, nft.MintRequest{
		Name:            "Genesis",
		Owner:           h.creator.Address(),
		UpdateAuthority: h.creator.Address(),
	})
	require.NoError(t, err)
	h.collection = col.Mint
	return h
}

func defaultParams() ConfigParams {
	return ConfigParams{
		PointsPerNFT:          5,
		PointsPerNativeUnit:   2,
		PointsPerFungibleUnit: 3,
		MinFreezePeriod:       3600,
	}
}

func (h *harness) configure(t *testing.T, params ConfigParams) *Config {
	t.Helper()
	cfg, err := h.engine.CreateConfig(crypto.AccountSigner(addr(0xAD)), params)
	require.NoError(t, err)
	return cfg
}

func (h *harness) participant(t *testing.T, owner [20]byte) crypto.Signer {
	t.Helper()
	signer := crypto.AccountSigner(owner)
	_, err := h.engine.CreateParticipant(signer)
	require.NoError(t, err)
	return signer
}

func (h *harness) mintNFT(t *testing.T, mint, owner [20]byte, collection [20]byte, verify bool) [20]byte {
	t.Helper()
	_, err := h.registry.MintNFT(crypto.AccountSigner(mint), crypto.AccountSigner(owner), nft.MintRequest{
		Name:       "Member",
		Owner:      owner,
		Collection: collection,
	})
	require.NoError(t, err)
	if verify {
		require.NoError(t, h.registry.VerifyCollection(mint, h.creator))
	}
	return token.AssociatedAccount(owner, mint)
}

func (h *harness) fungibleMint(t *testing.T, mint [20]byte, owner [20]byte, amount uint64) [20]byte {
	t.Helper()
	authority := crypto.AccountSigner(addr(0xEE))
	_, err := h.ledger.CreateMint(crypto.AccountSigner(mint), 0, authority.Address(), [20]byte{})
	require.NoError(t, err)
	account, err := h.ledger.OpenAccount(crypto.AccountSigner(owner), owner, mint)
	require.NoError(t, err)
	require.NoError(t, h.ledger.MintTo(mint, account, amount, authority))
	return account
}

func (h *harness) rewardBalance(t *testing.T, owner [20]byte) uint64 {
	t.Helper()
	acc, err := h.ledger.Account(token.AssociatedAccount(owner, h.state.config.RewardMint))
	require.NoError(t, err)
	return acc.Amount
}

func (h *harness) loadParticipant(t *testing.T, owner [20]byte) *Participant {
	t.Helper()
	p, err := h.engine.Participant(owner)
	require.NoError(t, err)
	return p
}
