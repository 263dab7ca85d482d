package state

import (
	"errors"
	"fmt"
	"math"

	"stakeledger/storage/trie"
)

// StateVersion is the layout of configs, participants, stake records and
// token accounts written by this binary. Bump it when any RLP encoding in this
// package changes.
const StateVersion uint32 = 1

var stateVersionKey = []byte("state/version")

var (
	// ErrStateVersionMismatch reports a ledger written with another layout.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
	// ErrStateTooNew reports a ledger written by a newer binary. It is
	// refused even when migration is allowed.
	ErrStateTooNew = fmt.Errorf("%w: written by a newer ledger", ErrStateVersionMismatch)
)

// SetStateVersion stamps the ledger layout. Genesis calls it with
// StateVersion; a migration calls it once the rewrite is complete.
func (m *Manager) SetStateVersion(version uint32) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion returns the stamped layout, if any.
func (m *Manager) StateVersion() (uint32, bool, error) {
	if m == nil {
		return 0, false, fmt.Errorf("state: manager unavailable")
	}
	var stored uint64
	ok, err := m.KVGet(stateVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > math.MaxUint32 {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion checks the committed ledger at tr before the node serves
// it. An unstamped or older layout opens only with allowMigrate so an operator
// can rewrite it; a newer layout never opens.
func EnsureStateVersion(tr *trie.Trie, allowMigrate bool) error {
	if tr == nil {
		return fmt.Errorf("state: trie must not be nil")
	}
	version, _, err := NewManager(tr).StateVersion()
	if err != nil {
		return err
	}
	switch {
	case version == StateVersion:
		return nil
	case version > StateVersion:
		return fmt.Errorf("%w: on-disk=%d supported=%d", ErrStateTooNew, version, StateVersion)
	case allowMigrate:
		return nil
	default:
		return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
	}
}
