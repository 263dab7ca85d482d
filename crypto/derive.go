package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// ProgramID identifies a native module that can own derived addresses.
type ProgramID [20]byte

var (
	// StakingProgram owns the config registry, participant ledgers, stake
	// records and vaults.
	StakingProgram = NewProgramID("stakeledger/staking")
	// TokenProgram owns associated token accounts.
	TokenProgram = NewProgramID("stakeledger/token")
	// NFTProgram owns metadata and edition authorities.
	NFTProgram = NewProgramID("stakeledger/nft")
)

var derivedMarker = []byte("DerivedAddress")

// NewProgramID hashes a module name into its program identifier.
func NewProgramID(name string) ProgramID {
	var id ProgramID
	copy(id[:], crypto.Keccak256([]byte(name))[12:])
	return id
}

// DeriveAddress computes the address owned by program for the given seed
// sequence. Every seed is length-prefixed so ["ab","c"] and ["a","bc"] never
// collide. The result has no private key.
func DeriveAddress(program ProgramID, seeds ...[]byte) [20]byte {
	buf := make([]byte, 0, 64)
	for _, seed := range seeds {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(seed)))
		buf = append(buf, size[:]...)
		buf = append(buf, seed...)
	}
	buf = append(buf, program[:]...)
	buf = append(buf, derivedMarker...)
	var out [20]byte
	copy(out[:], crypto.Keccak256(buf)[12:])
	return out
}

// Uint64Seed encodes a sequence number the way record seeds expect it.
func Uint64Seed(v uint64) []byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], v)
	return out[:]
}

// Signer is the authority presented to a ledger operation. Its fields are
// unexported: a Signer only comes from AccountSigner or DerivedSigner.
type Signer struct {
	addr    [20]byte
	derived bool
	valid   bool
}

// AccountSigner asserts that addr signed the enclosing transaction. Only the
// transaction layer calls it, after recovering the sender from a signature.
func AccountSigner(addr [20]byte) Signer {
	return Signer{addr: addr, valid: true}
}

// DerivedSigner reconstructs the signing capability of a derived address.
// Code that cannot rebuild the seed sequence cannot obtain it.
func DerivedSigner(program ProgramID, seeds ...[]byte) Signer {
	return Signer{addr: DeriveAddress(program, seeds...), derived: true, valid: true}
}

// Address returns the address the signer speaks for.
func (s Signer) Address() [20]byte { return s.addr }

// Derived reports whether the signer is a program-derived authority.
func (s Signer) Derived() bool { return s.derived }

// Authorizes reports whether the signer is the holder of addr.
func (s Signer) Authorizes(addr [20]byte) bool {
	return s.valid && s.addr == addr
}
