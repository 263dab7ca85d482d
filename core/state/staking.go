package state

import (
	"fmt"

	"stakeledger/native/staking"
)

// storedStakeRecord mirrors staking.StakeRecord with an unsigned timestamp so
// it can be RLP encoded.
type storedStakeRecord struct {
	Address        [20]byte
	Owner          [20]byte
	Asset          [20]byte
	Class          uint8
	Custody        uint8
	Seq            uint64
	StakedAt       uint64
	Amount         uint64
	HoldingAccount [20]byte
	Deposit        uint64
}

func newStoredStakeRecord(rec *staking.StakeRecord) (*storedStakeRecord, error) {
	if rec.StakedAt < 0 {
		return nil, fmt.Errorf("state: negative stake timestamp %d", rec.StakedAt)
	}
	return &storedStakeRecord{
		Address:        rec.Address,
		Owner:          rec.Owner,
		Asset:          rec.Asset,
		Class:          uint8(rec.Class),
		Custody:        uint8(rec.Custody),
		Seq:            rec.Seq,
		StakedAt:       uint64(rec.StakedAt),
		Amount:         rec.Amount,
		HoldingAccount: rec.HoldingAccount,
		Deposit:        rec.Deposit,
	}, nil
}

func (s *storedStakeRecord) toRecord() *staking.StakeRecord {
	return &staking.StakeRecord{
		Address:        s.Address,
		Owner:          s.Owner,
		Asset:          s.Asset,
		Class:          staking.AssetClass(s.Class),
		Custody:        staking.CustodyKind(s.Custody),
		Seq:            s.Seq,
		StakedAt:       int64(s.StakedAt),
		Amount:         s.Amount,
		HoldingAccount: s.HoldingAccount,
		Deposit:        s.Deposit,
	}
}

// StakingConfig loads the deployment staking config.
func (m *Manager) StakingConfig() (*staking.Config, bool, error) {
	var cfg staking.Config
	ok, err := m.KVGet(stakingConfigKey, &cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &cfg, true, nil
}

// PutStakingConfig stores the deployment staking config.
func (m *Manager) PutStakingConfig(cfg *staking.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil staking config")
	}
	return m.KVPut(stakingConfigKey, cfg)
}

// StakingParticipant loads the participant ledger of owner.
func (m *Manager) StakingParticipant(owner [20]byte) (*staking.Participant, bool, error) {
	var p staking.Participant
	ok, err := m.KVGet(prefixedKey(participantPrefix, owner), &p)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &p, true, nil
}

// PutStakingParticipant stores a participant ledger keyed by its owner.
func (m *Manager) PutStakingParticipant(p *staking.Participant) error {
	if p == nil {
		return fmt.Errorf("state: nil participant")
	}
	return m.KVPut(prefixedKey(participantPrefix, p.Owner), p)
}

// StakeRecord loads an open stake record.
func (m *Manager) StakeRecord(addr [20]byte) (*staking.StakeRecord, bool, error) {
	var stored storedStakeRecord
	ok, err := m.KVGet(prefixedKey(stakeRecordPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toRecord(), true, nil
}

// PutStakeRecord stores a stake record and indexes it under its owner.
func (m *Manager) PutStakeRecord(rec *staking.StakeRecord) error {
	if rec == nil {
		return fmt.Errorf("state: nil stake record")
	}
	stored, err := newStoredStakeRecord(rec)
	if err != nil {
		return err
	}
	if err := m.KVPut(prefixedKey(stakeRecordPrefix, rec.Address), stored); err != nil {
		return err
	}
	return m.KVAppend(prefixedKey(stakeByOwnerPrefix, rec.Owner), rec.Address[:])
}

// DeleteStakeRecord removes a stake record and its owner index entry.
func (m *Manager) DeleteStakeRecord(rec *staking.StakeRecord) error {
	if rec == nil {
		return fmt.Errorf("state: nil stake record")
	}
	if err := m.KVDelete(prefixedKey(stakeRecordPrefix, rec.Address)); err != nil {
		return err
	}
	return m.KVRemove(prefixedKey(stakeByOwnerPrefix, rec.Owner), rec.Address[:])
}

// StakeRecordsByOwner lists the record addresses indexed under owner in
// insertion order.
func (m *Manager) StakeRecordsByOwner(owner [20]byte) ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(prefixedKey(stakeByOwnerPrefix, owner), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			return nil, fmt.Errorf("state: malformed stake index entry of %d bytes", len(entry))
		}
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}
