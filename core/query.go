package core

import (
	"errors"

	"stakeledger/native/nft"
	"stakeledger/native/staking"
	"stakeledger/native/token"
)

// Balances summarises the holdings of an owner.
type Balances struct {
	Native uint64
	Reward uint64
}

// Config returns the deployment staking config.
func (n *Node) Config() (*staking.Config, error) {
	var cfg *staking.Config
	err := n.read(func(u *unit) error {
		var err error
		cfg, err = u.staking.Config()
		return err
	})
	return cfg, err
}

// Participant returns the participant ledger of owner.
func (n *Node) Participant(owner [20]byte) (*staking.Participant, error) {
	var p *staking.Participant
	err := n.read(func(u *unit) error {
		var err error
		p, err = u.staking.Participant(owner)
		return err
	})
	return p, err
}

// StakeRecord returns the open record stored at addr.
func (n *Node) StakeRecord(addr [20]byte) (*staking.StakeRecord, error) {
	var rec *staking.StakeRecord
	err := n.read(func(u *unit) error {
		var err error
		rec, err = u.staking.StakeRecord(addr)
		return err
	})
	return rec, err
}

// StakesByOwner lists the open records of owner.
func (n *Node) StakesByOwner(owner [20]byte) ([]*staking.StakeRecord, error) {
	var recs []*staking.StakeRecord
	err := n.read(func(u *unit) error {
		var err error
		recs, err = u.staking.StakesByOwner(owner)
		return err
	})
	return recs, err
}

// RecordAddress derives the record address of (owner, asset, seq).
func (n *Node) RecordAddress(owner, asset [20]byte, seq uint64) ([20]byte, error) {
	var addr [20]byte
	err := n.read(func(u *unit) error {
		var err error
		addr, err = u.staking.RecordAddress(owner, asset, seq)
		return err
	})
	return addr, err
}

// NativeBalance returns the native coin balance of addr.
func (n *Node) NativeBalance(addr [20]byte) (uint64, error) {
	var balance uint64
	err := n.read(func(u *unit) error {
		var err error
		balance, err = u.ledger.NativeBalance(addr)
		return err
	})
	return balance, err
}

// TokenBalance returns the balance of owner's associated account for mint.
// A missing account reads as zero.
func (n *Node) TokenBalance(owner, mint [20]byte) (uint64, error) {
	var balance uint64
	err := n.read(func(u *unit) error {
		var err error
		balance, err = tokenBalance(u.ledger, owner, mint)
		return err
	})
	return balance, err
}

// TokenAccount returns the token account stored at addr.
func (n *Node) TokenAccount(addr [20]byte) (*token.Account, error) {
	var acc *token.Account
	err := n.read(func(u *unit) error {
		var err error
		acc, err = u.ledger.Account(addr)
		return err
	})
	return acc, err
}

// NFTMetadata returns the metadata of an NFT or collection mint.
func (n *Node) NFTMetadata(mint [20]byte) (*nft.Metadata, error) {
	var meta *nft.Metadata
	err := n.read(func(u *unit) error {
		var err error
		meta, err = u.registry.Metadata(mint)
		return err
	})
	return meta, err
}

// Balances returns the native and reward token balances of owner. The reward
// balance is zero until the config exists.
func (n *Node) Balances(owner [20]byte) (*Balances, error) {
	out := &Balances{}
	err := n.read(func(u *unit) error {
		native, err := u.ledger.NativeBalance(owner)
		if err != nil {
			return err
		}
		out.Native = native
		cfg, err := u.staking.Config()
		if errors.Is(err, staking.ErrNotInitialized) {
			return nil
		}
		if err != nil {
			return err
		}
		out.Reward, err = tokenBalance(u.ledger, owner, cfg.RewardMint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Nonce returns the next expected transaction nonce of addr.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	var nonce uint64
	err := n.read(func(u *unit) error {
		var err error
		nonce, err = u.manager.Nonce(addr)
		return err
	})
	return nonce, err
}

func tokenBalance(ledger *token.Ledger, owner, mint [20]byte) (uint64, error) {
	acc, err := ledger.Account(token.AssociatedAccount(owner, mint))
	if errors.Is(err, token.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}
