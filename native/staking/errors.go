package staking

import (
	"errors"

	"stakeledger/native/common"
)

var (
	ErrAlreadyInitialized    = errors.New("staking: already initialized")
	ErrInvalidCollection     = errors.New("staking: invalid collection")
	ErrFreezePeriodNotPassed = errors.New("staking: freeze period not passed")
	ErrInvalidAuthority      = errors.New("staking: invalid authority")
	ErrNotInitialized        = errors.New("staking: not initialized")
	ErrStakeNotFound         = errors.New("staking: stake record not found")
	ErrInvalidAmount         = errors.New("staking: amount must be positive")
	ErrWrongAssetClass       = errors.New("staking: wrong asset class")
	ErrInvalidPolicy         = errors.New("staking: unknown native reward policy")
	ErrNilState              = errors.New("staking: state not configured")
)

// ErrOverflow is the shared checked-arithmetic failure.
var ErrOverflow = common.ErrOverflow
