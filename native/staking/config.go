package staking

import (
	"fmt"
	"log/slog"

	"stakeledger/core/events"
	"stakeledger/crypto"
)

// CreateConfig writes the deployment config and creates the reward mint with
// the config address as its mint authority. It can succeed only once.
func (e *Engine) CreateConfig(caller crypto.Signer, params ConfigParams) (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.admin != ([20]byte{}) && !caller.Authorizes(e.admin) {
		return nil, ErrInvalidAuthority
	}
	if caller.Derived() {
		return nil, ErrInvalidAuthority
	}
	if _, ok, err := e.state.StakingConfig(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	if params.NativePolicy != NativeRewardAtStake && params.NativePolicy != NativeRewardByDuration {
		return nil, ErrInvalidPolicy
	}
	addr := ConfigAddress()
	cfg := &Config{
		Address:               addr,
		Authority:             caller.Address(),
		RewardMint:            RewardMintAddress(addr),
		PointsPerNFT:          params.PointsPerNFT,
		PointsPerNativeUnit:   params.PointsPerNativeUnit,
		PointsPerFungibleUnit: params.PointsPerFungibleUnit,
		MinFreezePeriod:       params.MinFreezePeriod,
		NativePolicy:          params.NativePolicy,
		Collection:            params.Collection,
	}
	mintSigner := crypto.DerivedSigner(crypto.StakingProgram, seedRewards, addr[:])
	if _, err := e.ledger.CreateMint(mintSigner, RewardDecimals, addr, [20]byte{}); err != nil {
		return nil, fmt.Errorf("create reward mint: %w", err)
	}
	if err := e.state.PutStakingConfig(cfg); err != nil {
		return nil, err
	}
	e.emit(events.StakeConfigCreated{
		Config:                cfg.Address,
		Authority:             cfg.Authority,
		RewardMint:            cfg.RewardMint,
		PointsPerNFT:          cfg.PointsPerNFT,
		PointsPerNativeUnit:   cfg.PointsPerNativeUnit,
		PointsPerFungibleUnit: cfg.PointsPerFungibleUnit,
		MinFreezePeriod:       cfg.MinFreezePeriod,
		NativePolicy:          cfg.NativePolicy.String(),
		Collection:            cfg.Collection,
	})
	e.logger.Info("staking config created",
		slog.String("authority", crypto.FromArray(cfg.Authority).String()),
		slog.Uint64("min_freeze_period", uint64(cfg.MinFreezePeriod)),
		slog.String("native_policy", cfg.NativePolicy.String()))
	return cfg.Clone(), nil
}
