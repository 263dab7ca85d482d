package nft

import (
	"fmt"

	"stakeledger/crypto"
	"stakeledger/native/token"
)

// State is the metadata storage the registry needs.
type State interface {
	NFTMetadata(mint [20]byte) (*Metadata, bool, error)
	PutNFTMetadata(meta *Metadata) error
}

// Registry manages non-fungible mints on top of the token ledger. Every NFT
// mint has zero decimals and a supply of one; its mint and freeze authority is
// the edition address derived from the mint, which only the registry can sign
// for.
type Registry struct {
	state  State
	ledger *token.Ledger
}

// NewRegistry binds a registry to its metadata state and token ledger.
func NewRegistry(state State, ledger *token.Ledger) *Registry {
	return &Registry{state: state, ledger: ledger}
}

func editionSeeds(mint [20]byte) [][]byte {
	return [][]byte{[]byte("edition"), mint[:]}
}

// EditionAuthority returns the derived mint and freeze authority of an NFT
// mint.
func EditionAuthority(mint [20]byte) [20]byte {
	return crypto.DeriveAddress(crypto.NFTProgram, editionSeeds(mint)...)
}

func editionSigner(mint [20]byte) crypto.Signer {
	return crypto.DerivedSigner(crypto.NFTProgram, editionSeeds(mint)...)
}

func (r *Registry) ready() error {
	if r == nil || r.state == nil || r.ledger == nil {
		return ErrNilState
	}
	return nil
}

// Metadata loads the metadata of mint.
func (r *Registry) Metadata(mint [20]byte) (*Metadata, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	meta, ok, err := r.state.NFTMetadata(mint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetadataNotFound
	}
	return meta, nil
}

// CreateCollection mints a collection parent NFT to req.Owner.
func (r *Registry) CreateCollection(mint, payer crypto.Signer, req MintRequest) (*Metadata, error) {
	req.Collection = [20]byte{}
	return r.mint(mint, payer, req, true)
}

// MintNFT mints a single edition to req.Owner. When req.Collection is set the
// membership starts unverified until VerifyCollection is called.
func (r *Registry) MintNFT(mint, payer crypto.Signer, req MintRequest) (*Metadata, error) {
	if req.Collection != ([20]byte{}) {
		parent, err := r.Metadata(req.Collection)
		if err != nil {
			return nil, fmt.Errorf("collection: %w", err)
		}
		if !parent.IsCollection {
			return nil, ErrNotCollection
		}
	}
	return r.mint(mint, payer, req, false)
}

func (r *Registry) mint(mint, payer crypto.Signer, req MintRequest, collection bool) (*Metadata, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, ErrInvalidName
	}
	addr := mint.Address()
	if _, ok, err := r.state.NFTMetadata(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMetadataExists
	}
	edition := EditionAuthority(addr)
	if _, err := r.ledger.CreateMint(mint, 0, edition, edition); err != nil {
		return nil, err
	}
	account, err := r.ledger.OpenAccount(payer, req.Owner, addr)
	if err != nil {
		return nil, err
	}
	if err := r.ledger.MintTo(addr, account, 1, editionSigner(addr)); err != nil {
		return nil, err
	}
	meta := &Metadata{
		Mint:            addr,
		Name:            req.Name,
		URI:             req.URI,
		UpdateAuthority: req.UpdateAuthority,
		CollectionKey:   req.Collection,
		IsCollection:    collection,
	}
	if err := r.state.PutNFTMetadata(meta); err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}

// VerifyCollection marks the membership of mint in its collection as verified.
// The collection's update authority must sign.
func (r *Registry) VerifyCollection(mint [20]byte, auth crypto.Signer) error {
	meta, err := r.Metadata(mint)
	if err != nil {
		return err
	}
	if !meta.HasCollection() {
		return ErrNoCollection
	}
	parent, err := r.Metadata(meta.CollectionKey)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	if !auth.Authorizes(parent.UpdateAuthority) {
		return ErrUnauthorized
	}
	meta.CollectionVerified = true
	return r.state.PutNFTMetadata(meta)
}

// MembershipProof reports which collection mint claims and whether the claim
// was verified by the collection authority.
func (r *Registry) MembershipProof(mint [20]byte) (MembershipProof, error) {
	meta, err := r.Metadata(mint)
	if err != nil {
		return MembershipProof{}, err
	}
	return MembershipProof{
		Mint:       meta.Mint,
		Collection: meta.CollectionKey,
		Verified:   meta.HasCollection() && meta.CollectionVerified,
	}, nil
}

// FreezeDelegated freezes an NFT token account on behalf of its approved
// delegate. The registry signs with the edition authority once the delegate
// has been checked.
func (r *Registry) FreezeDelegated(account [20]byte, delegate crypto.Signer) error {
	mint, err := r.checkDelegate(account, delegate)
	if err != nil {
		return err
	}
	return r.ledger.Freeze(account, editionSigner(mint))
}

// ThawDelegated reverses FreezeDelegated. The delegation must still be in
// place, so thaw has to happen before the owner revokes.
func (r *Registry) ThawDelegated(account [20]byte, delegate crypto.Signer) error {
	mint, err := r.checkDelegate(account, delegate)
	if err != nil {
		return err
	}
	return r.ledger.Thaw(account, editionSigner(mint))
}

func (r *Registry) checkDelegate(account [20]byte, delegate crypto.Signer) ([20]byte, error) {
	if err := r.ready(); err != nil {
		return [20]byte{}, err
	}
	acc, err := r.ledger.Account(account)
	if err != nil {
		return [20]byte{}, err
	}
	if _, err := r.Metadata(acc.Mint); err != nil {
		return [20]byte{}, err
	}
	if !acc.HasDelegate() || !delegate.Authorizes(acc.Delegate) {
		return [20]byte{}, ErrNotDelegate
	}
	if acc.Amount != 1 || acc.DelegatedAmount != 1 {
		return [20]byte{}, ErrNotSingleEdition
	}
	return acc.Mint, nil
}
