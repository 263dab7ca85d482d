package nft

// Metadata is the registry entry attached to a non-fungible mint. Collection
// parents carry IsCollection; members reference their parent through
// CollectionKey and only count as members once CollectionVerified is set.
type Metadata struct {
	Mint               [20]byte
	Name               string
	URI                string
	UpdateAuthority    [20]byte
	CollectionKey      [20]byte
	CollectionVerified bool
	IsCollection       bool
}

// Clone returns a copy safe for mutation.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// HasCollection reports whether the metadata names a parent collection.
func (m *Metadata) HasCollection() bool {
	return m != nil && m.CollectionKey != ([20]byte{})
}

// MembershipProof is the answer to a collection membership query.
type MembershipProof struct {
	Mint       [20]byte
	Collection [20]byte
	Verified   bool
}

// MintRequest describes a new NFT. Payer funds the holder's token account
// deposit. A zero Collection mints an NFT outside any collection.
type MintRequest struct {
	Name            string
	URI             string
	Owner           [20]byte
	UpdateAuthority [20]byte
	Collection      [20]byte
}
