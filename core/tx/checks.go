package tx

import (
	"fmt"

	coreerrors "stakeledger/core/errors"
	ledgerstate "stakeledger/core/state"
	"stakeledger/core/types"
)

// CheckEnvelope validates the parts of a transaction that do not depend on
// its payload: type, chain id, signature and nonce. It returns the recovered
// sender. The nonce is not advanced; callers do that once the transaction has
// been applied.
func CheckEnvelope(manager *ledgerstate.Manager, tx *types.Transaction, chainID uint64) ([20]byte, error) {
	if manager == nil {
		return [20]byte{}, fmt.Errorf("tx: state manager required")
	}
	if tx == nil {
		return [20]byte{}, fmt.Errorf("%w: nil transaction", coreerrors.ErrInvalidPayload)
	}
	if !tx.Type.Valid() {
		return [20]byte{}, fmt.Errorf("%w: 0x%02x", coreerrors.ErrUnknownTxType, byte(tx.Type))
	}
	if tx.ChainID != chainID {
		return [20]byte{}, fmt.Errorf("%w: got %d want %d", coreerrors.ErrChainIDMismatch, tx.ChainID, chainID)
	}
	from, err := tx.From()
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", coreerrors.ErrInvalidSender, err)
	}
	var sender [20]byte
	copy(sender[:], from)
	expected, err := manager.Nonce(sender)
	if err != nil {
		return [20]byte{}, err
	}
	if tx.Nonce != expected {
		return [20]byte{}, fmt.Errorf("%w: got %d want %d", coreerrors.ErrInvalidNonce, tx.Nonce, expected)
	}
	return sender, nil
}
