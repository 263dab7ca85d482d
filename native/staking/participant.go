package staking

import (
	"fmt"

	"stakeledger/core/events"
	"stakeledger/crypto"
)

// CreateParticipant opens the participant ledger of the signing owner with
// zeroed counters. Once the config exists it also opens the owner's reward
// token account.
func (e *Engine) CreateParticipant(owner crypto.Signer) (*Participant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if owner.Derived() {
		return nil, ErrInvalidAuthority
	}
	addr := owner.Address()
	if _, ok, err := e.state.StakingParticipant(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	cfg, ok, err := e.state.StakingConfig()
	if err != nil {
		return nil, err
	}
	if ok {
		if _, err := e.ledger.EnsureAccount(owner, addr, cfg.RewardMint); err != nil {
			return nil, fmt.Errorf("open reward account: %w", err)
		}
	}
	p := &Participant{Address: ParticipantAddress(addr), Owner: addr}
	if err := e.state.PutStakingParticipant(p); err != nil {
		return nil, err
	}
	e.emit(events.StakeParticipantCreated{Owner: addr, Participant: p.Address})
	return p.Clone(), nil
}
