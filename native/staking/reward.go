package staking

import "stakeledger/native/common"

// ComputeReward returns the reward for quantity units of class. elapsed is
// only consulted by the by-duration native policy. Products are computed
// without wrapping and fail with ErrOverflow when they exceed u64.
func ComputeReward(cfg *Config, class AssetClass, quantity uint64, elapsed int64) (uint64, error) {
	if cfg == nil {
		return 0, ErrNotInitialized
	}
	switch class {
	case AssetNFT:
		return common.MulU64(uint64(cfg.PointsPerNFT), RewardScale, quantity)
	case AssetFungible:
		return common.MulU64(uint64(cfg.PointsPerFungibleUnit), quantity)
	case AssetNative:
		switch cfg.NativePolicy {
		case NativeRewardAtStake:
			return common.MulU64(uint64(cfg.PointsPerNativeUnit), quantity)
		case NativeRewardByDuration:
			if elapsed <= 0 {
				return 0, nil
			}
			return common.MulU64(uint64(elapsed), quantity, uint64(cfg.PointsPerNativeUnit))
		default:
			return 0, ErrInvalidPolicy
		}
	default:
		return 0, ErrWrongAssetClass
	}
}

// rewardsAtStake reports whether class earns its reward when the position
// opens rather than when it is released.
func rewardsAtStake(cfg *Config, class AssetClass) bool {
	if class == AssetNative {
		return cfg.NativePolicy == NativeRewardAtStake
	}
	return true
}
