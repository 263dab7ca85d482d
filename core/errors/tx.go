package errors

import stderrors "errors"

var (
	ErrChainIDMismatch = stderrors.New("tx: chain id mismatch")
	ErrInvalidNonce    = stderrors.New("tx: invalid nonce")
	ErrUnknownTxType   = stderrors.New("tx: unknown transaction type")
	ErrInvalidPayload  = stderrors.New("tx: invalid payload")
	ErrInvalidSender   = stderrors.New("tx: sender could not be recovered")
)
