package token

import (
	"errors"
	"fmt"

	"stakeledger/native/common"
)

var (
	ErrNilState          = errors.New("token: state not configured")
	ErrMintExists        = errors.New("token: mint already exists")
	ErrMintNotFound      = errors.New("token: mint not found")
	ErrAccountExists     = errors.New("token: account already exists")
	ErrAccountNotFound   = errors.New("token: account not found")
	ErrUnauthorized      = errors.New("token: unauthorized")
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrAccountFrozen     = errors.New("token: account frozen")
	ErrNotFrozen         = errors.New("token: account not frozen")
	ErrMintMismatch      = errors.New("token: mint mismatch")
	ErrNonZeroBalance    = errors.New("token: account balance not zero")
	ErrNoFreezeAuthority = errors.New("token: mint has no freeze authority")
	ErrDepositExists     = errors.New("token: deposit already held")
)

// ErrOverflow wraps common.ErrOverflow so callers can match either.
var ErrOverflow = fmt.Errorf("token: %w", common.ErrOverflow)
