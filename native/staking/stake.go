package staking

import (
	"errors"
	"fmt"
	"log/slog"

	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/native/common"
	"stakeledger/native/nft"
)

// StakeNFT locks a verified collection member under delegated-freeze custody.
func (e *Engine) StakeNFT(owner crypto.Signer, mint [20]byte, seq uint64) (*StakeRecord, error) {
	return e.stake(owner, AssetNFT, mint, 1, seq)
}

// StakeFungible escrows amount of mint in a record-owned vault account.
func (e *Engine) StakeFungible(owner crypto.Signer, mint [20]byte, amount, seq uint64) (*StakeRecord, error) {
	return e.stake(owner, AssetFungible, mint, amount, seq)
}

// StakeNative escrows amount of native coin in the record's vault address.
func (e *Engine) StakeNative(owner crypto.Signer, amount, seq uint64) (*StakeRecord, error) {
	return e.stake(owner, AssetNative, NativeAsset, amount, seq)
}

// UnstakeNFT releases an NFT position once its freeze period has passed.
func (e *Engine) UnstakeNFT(owner crypto.Signer, record [20]byte) (*StakeRecord, error) {
	return e.unstake(owner, record, AssetNFT)
}

// UnstakeFungible releases a fungible position once its freeze period has
// passed.
func (e *Engine) UnstakeFungible(owner crypto.Signer, record [20]byte) (*StakeRecord, error) {
	return e.unstake(owner, record, AssetFungible)
}

// UnstakeNative releases a native coin position once its freeze period has
// passed.
func (e *Engine) UnstakeNative(owner crypto.Signer, record [20]byte) (*StakeRecord, error) {
	return e.unstake(owner, record, AssetNative)
}

// Unstake releases any position owned by the signer.
func (e *Engine) Unstake(owner crypto.Signer, record [20]byte) (*StakeRecord, error) {
	return e.unstake(owner, record, 0)
}

func (e *Engine) checkAsset(cfg *Config, class AssetClass, asset [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	switch class {
	case AssetNFT:
		proof, err := e.registry.MembershipProof(asset)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCollection, err)
		}
		if proof.Collection == ([20]byte{}) || !proof.Verified {
			return ErrInvalidCollection
		}
		if cfg.Collection != ([20]byte{}) && proof.Collection != cfg.Collection {
			return ErrInvalidCollection
		}
	case AssetFungible:
		if asset == NativeAsset {
			return ErrWrongAssetClass
		}
		_, err := e.registry.MembershipProof(asset)
		if err == nil {
			return ErrWrongAssetClass
		}
		if !errors.Is(err, nft.ErrMetadataNotFound) {
			return err
		}
	case AssetNative:
		if asset != NativeAsset {
			return ErrWrongAssetClass
		}
	default:
		return ErrWrongAssetClass
	}
	return nil
}

// addCounter applies delta to the counter of class on p with checked
// arithmetic.
func addCounter(p *Participant, class AssetClass, delta uint64, release bool) error {
	var counter *uint64
	switch class {
	case AssetNFT:
		counter = &p.NFTStakedCount
	case AssetFungible:
		counter = &p.FungibleStakedAmount
	case AssetNative:
		counter = &p.NativeStakedAmount
	default:
		return ErrWrongAssetClass
	}
	var (
		next uint64
		err  error
	)
	if release {
		next, err = common.SubU64(*counter, delta)
	} else {
		next, err = common.AddU64(*counter, delta)
	}
	if err != nil {
		return ErrOverflow
	}
	*counter = next
	return nil
}

func (e *Engine) stake(owner crypto.Signer, class AssetClass, asset [20]byte, amount, seq uint64) (*StakeRecord, error) {
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if owner.Derived() {
		return nil, ErrInvalidAuthority
	}
	ownerAddr := owner.Address()
	participant, err := e.loadParticipant(ownerAddr)
	if err != nil {
		return nil, err
	}
	if err := e.checkAsset(cfg, class, asset, amount); err != nil {
		return nil, err
	}
	recordAddr := RecordAddress(cfg.Address, ownerAddr, asset, seq)
	if _, ok, err := e.state.StakeRecord(recordAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}

	// Counters and the stake-time reward are settled before any custody
	// movement so an overflow leaves the ledger untouched.
	if err := addCounter(participant, class, amount, false); err != nil {
		return nil, err
	}
	var reward uint64
	if rewardsAtStake(cfg, class) {
		if reward, err = ComputeReward(cfg, class, amount, 0); err != nil {
			return nil, err
		}
	}
	points, err := common.AddU64(participant.Points, reward)
	if err != nil {
		return nil, ErrOverflow
	}

	strategy, kind, err := e.custodyFor(cfg, class)
	if err != nil {
		return nil, err
	}
	rec := &StakeRecord{
		Address:  recordAddr,
		Owner:    ownerAddr,
		Asset:    asset,
		Class:    class,
		Custody:  kind,
		Seq:      seq,
		StakedAt: e.now(),
		Amount:   amount,
	}
	if e.recordDeposit > 0 {
		if err := e.ledger.ChargeDeposit(owner, recordAddr, e.recordDeposit); err != nil {
			return nil, fmt.Errorf("record deposit: %w", err)
		}
		rec.Deposit = e.recordDeposit
	}
	if err := strategy.lock(rec, owner); err != nil {
		return nil, err
	}
	if err := e.state.PutStakeRecord(rec); err != nil {
		return nil, err
	}
	if err := e.mintReward(cfg, owner, rec, reward, points); err != nil {
		return nil, err
	}
	participant.Points = points
	if err := e.state.PutStakingParticipant(participant); err != nil {
		return nil, err
	}

	e.emit(events.StakeLocked{
		Owner:    rec.Owner,
		Record:   rec.Address,
		Asset:    rec.Asset,
		Class:    rec.Class.String(),
		Custody:  rec.Custody.String(),
		Seq:      rec.Seq,
		Amount:   rec.Amount,
		StakedAt: rec.StakedAt,
		Holding:  rec.HoldingAccount,
	})
	e.logger.Info("stake locked",
		slog.String("owner", crypto.FromArray(rec.Owner).String()),
		slog.String("record", crypto.FromArray(rec.Address).String()),
		slog.String("class", class.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("reward", reward))
	return rec.Clone(), nil
}

func (e *Engine) unstake(owner crypto.Signer, recordAddr [20]byte, want AssetClass) (*StakeRecord, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	rec, err := e.loadRecord(recordAddr)
	if err != nil {
		return nil, err
	}
	if !owner.Authorizes(rec.Owner) {
		return nil, ErrInvalidAuthority
	}
	if want != 0 && rec.Class != want {
		return nil, ErrWrongAssetClass
	}
	now := e.now()
	if !IsUnlockable(rec, cfg, now) {
		return nil, ErrFreezePeriodNotPassed
	}
	participant, err := e.loadParticipant(rec.Owner)
	if err != nil {
		return nil, err
	}
	if err := addCounter(participant, rec.Class, rec.Amount, true); err != nil {
		return nil, err
	}
	elapsed := now - rec.StakedAt
	var reward uint64
	if !rewardsAtStake(cfg, rec.Class) {
		if reward, err = ComputeReward(cfg, rec.Class, rec.Amount, elapsed); err != nil {
			return nil, err
		}
	}
	points, err := common.AddU64(participant.Points, reward)
	if err != nil {
		return nil, ErrOverflow
	}

	strategy, _, err := e.custodyFor(cfg, rec.Class)
	if err != nil {
		return nil, err
	}
	returned, err := strategy.unlock(rec, owner)
	if err != nil {
		return nil, err
	}
	if err := e.state.DeleteStakeRecord(rec); err != nil {
		return nil, err
	}
	refund, err := e.ledger.RefundDeposit(rec.Address, rec.Owner)
	if err != nil {
		return nil, fmt.Errorf("refund record deposit: %w", err)
	}
	if err := e.mintReward(cfg, owner, rec, reward, points); err != nil {
		return nil, err
	}
	participant.Points = points
	if err := e.state.PutStakingParticipant(participant); err != nil {
		return nil, err
	}

	e.emit(events.StakeUnlocked{
		Owner:    rec.Owner,
		Record:   rec.Address,
		Asset:    rec.Asset,
		Class:    rec.Class.String(),
		Amount:   rec.Amount,
		Returned: returned,
		Elapsed:  elapsed,
		Refund:   refund,
	})
	e.logger.Info("stake unlocked",
		slog.String("owner", crypto.FromArray(rec.Owner).String()),
		slog.String("record", crypto.FromArray(rec.Address).String()),
		slog.String("class", rec.Class.String()),
		slog.Uint64("returned", returned),
		slog.Int64("elapsed", elapsed))
	return rec, nil
}

// mintReward mints amount reward tokens to the owner's reward account, signing
// as the config. points is the participant total after the mint. Zero amounts
// mint nothing.
func (e *Engine) mintReward(cfg *Config, owner crypto.Signer, rec *StakeRecord, amount, points uint64) error {
	if amount == 0 {
		return nil
	}
	account, err := e.ledger.EnsureAccount(owner, rec.Owner, cfg.RewardMint)
	if err != nil {
		return fmt.Errorf("open reward account: %w", err)
	}
	if err := e.ledger.MintTo(cfg.RewardMint, account, amount, configSigner()); err != nil {
		if errors.Is(err, common.ErrOverflow) {
			return ErrOverflow
		}
		return fmt.Errorf("mint reward: %w", err)
	}
	e.emit(events.StakeRewardMinted{
		Owner:  rec.Owner,
		Record: rec.Address,
		Class:  rec.Class.String(),
		Amount: amount,
		Points: points,
	})
	return nil
}
