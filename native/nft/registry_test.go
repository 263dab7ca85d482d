package nft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/crypto"
	"stakeledger/native/token"
)

type mockState struct {
	mints    map[[20]byte]*token.Mint
	accounts map[[20]byte]*token.Account
	native   map[[20]byte]uint64
	deposits map[[20]byte]uint64
	meta     map[[20]byte]*Metadata
}

func newMockState() *mockState {
	return &mockState{
		mints:    make(map[[20]byte]*token.Mint),
		accounts: make(map[[20]byte]*token.Account),
		native:   make(map[[20]byte]uint64),
		deposits: make(map[[20]byte]uint64),
		meta:     make(map[[20]byte]*Metadata),
	}
}

func (m *mockState) TokenMint(addr [20]byte) (*token.Mint, bool, error) {
	v, ok := m.mints[addr]
	return v.Clone(), ok, nil
}

func (m *mockState) PutTokenMint(v *token.Mint) error {
	m.mints[v.Address] = v.Clone()
	return nil
}

func (m *mockState) TokenAccount(addr [20]byte) (*token.Account, bool, error) {
	v, ok := m.accounts[addr]
	return v.Clone(), ok, nil
}

func (m *mockState) PutTokenAccount(v *token.Account) error {
	m.accounts[v.Address] = v.Clone()
	return nil
}

func (m *mockState) DeleteTokenAccount(addr [20]byte) error {
	delete(m.accounts, addr)
	return nil
}

func (m *mockState) NativeBalance(addr [20]byte) (uint64, error) { return m.native[addr], nil }

func (m *mockState) SetNativeBalance(addr [20]byte, v uint64) error {
	m.native[addr] = v
	return nil
}

func (m *mockState) HeldDeposit(addr [20]byte) (uint64, error) { return m.deposits[addr], nil }

func (m *mockState) SetHeldDeposit(addr [20]byte, v uint64) error {
	m.deposits[addr] = v
	return nil
}

func (m *mockState) NFTMetadata(mint [20]byte) (*Metadata, bool, error) {
	v, ok := m.meta[mint]
	return v.Clone(), ok, nil
}

func (m *mockState) PutNFTMetadata(v *Metadata) error {
	m.meta[v.Mint] = v.Clone()
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

type fixture struct {
	ledger     *token.Ledger
	registry   *Registry
	creator    crypto.Signer
	collection [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := newMockState()
	ledger := token.NewLedger(state)
	registry := NewRegistry(state, ledger)
	creator := crypto.AccountSigner(addr(0xC0))
	col, err := registry.CreateCollection(crypto.AccountSigner(addr(0x50)), creator, MintRequest{
		Name:            "Genesis",
		Owner:           creator.Address(),
		UpdateAuthority: creator.Address(),
	})
	require.NoError(t, err)
	require.True(t, col.IsCollection)
	return &fixture{ledger: ledger, registry: registry, creator: creator, collection: col.Mint}
}

func (f *fixture) mintMember(t *testing.T, mint, owner [20]byte, verify bool) [20]byte {
	t.Helper()
	_, err := f.registry.MintNFT(crypto.AccountSigner(mint), crypto.AccountSigner(owner), MintRequest{
		Name:       "Member",
		Owner:      owner,
		Collection: f.collection,
	})
	require.NoError(t, err)
	if verify {
		require.NoError(t, f.registry.VerifyCollection(mint, f.creator))
	}
	return token.AssociatedAccount(owner, mint)
}

func TestMintNFTSingleEdition(t *testing.T) {
	f := newFixture(t)
	mint, owner := addr(1), addr(2)
	account := f.mintMember(t, mint, owner, false)

	m, err := f.ledger.Mint(mint)
	require.NoError(t, err)
	require.Equal(t, uint8(0), m.Decimals)
	require.Equal(t, uint64(1), m.Supply)
	require.Equal(t, EditionAuthority(mint), m.FreezeAuthority)

	acc, err := f.ledger.Account(account)
	require.NoError(t, err)
	require.Equal(t, uint64(1), acc.Amount)
	require.Equal(t, owner, acc.Owner)

	_, err = f.registry.MintNFT(crypto.AccountSigner(mint), crypto.AccountSigner(owner), MintRequest{Name: "dup", Owner: owner})
	require.ErrorIs(t, err, ErrMetadataExists)
}

func TestMintNFTRequiresCollectionParent(t *testing.T) {
	f := newFixture(t)
	member := addr(1)
	f.mintMember(t, member, addr(2), false)
	_, err := f.registry.MintNFT(crypto.AccountSigner(addr(3)), crypto.AccountSigner(addr(2)), MintRequest{
		Name:       "orphan",
		Owner:      addr(2),
		Collection: member,
	})
	require.ErrorIs(t, err, ErrNotCollection)
}

func TestMembershipProofRequiresVerification(t *testing.T) {
	f := newFixture(t)
	mint := addr(1)
	f.mintMember(t, mint, addr(2), false)

	proof, err := f.registry.MembershipProof(mint)
	require.NoError(t, err)
	require.Equal(t, f.collection, proof.Collection)
	require.False(t, proof.Verified)

	require.ErrorIs(t, f.registry.VerifyCollection(mint, crypto.AccountSigner(addr(2))), ErrUnauthorized)
	require.NoError(t, f.registry.VerifyCollection(mint, f.creator))

	proof, err = f.registry.MembershipProof(mint)
	require.NoError(t, err)
	require.True(t, proof.Verified)
}

func TestFreezeAndThawDelegated(t *testing.T) {
	f := newFixture(t)
	mint, owner := addr(1), addr(2)
	account := f.mintMember(t, mint, owner, true)
	delegate := crypto.DerivedSigner(crypto.StakingProgram, []byte("stake"), []byte{1})
	ownerSigner := crypto.AccountSigner(owner)

	require.ErrorIs(t, f.registry.FreezeDelegated(account, delegate), ErrNotDelegate)

	require.NoError(t, f.ledger.Approve(account, delegate.Address(), 1, ownerSigner))
	require.ErrorIs(t, f.registry.FreezeDelegated(account, ownerSigner), ErrNotDelegate)
	require.NoError(t, f.registry.FreezeDelegated(account, delegate))

	acc, err := f.ledger.Account(account)
	require.NoError(t, err)
	require.True(t, acc.Frozen)

	require.ErrorIs(t, f.ledger.Revoke(account, ownerSigner), token.ErrAccountFrozen)
	require.NoError(t, f.registry.ThawDelegated(account, delegate))
	require.NoError(t, f.ledger.Revoke(account, ownerSigner))

	require.ErrorIs(t, f.registry.ThawDelegated(account, delegate), ErrNotDelegate)
}

func TestFreezeDelegatedRejectsPartialApproval(t *testing.T) {
	f := newFixture(t)
	mint, owner := addr(1), addr(2)
	account := f.mintMember(t, mint, owner, true)
	delegate := crypto.AccountSigner(addr(9))
	require.NoError(t, f.ledger.Approve(account, delegate.Address(), 2, crypto.AccountSigner(owner)))
	require.ErrorIs(t, f.registry.FreezeDelegated(account, delegate), ErrNotSingleEdition)
}
