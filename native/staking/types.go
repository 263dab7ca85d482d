package staking

// AssetClass identifies which of the three stakeable asset kinds a position
// holds.
type AssetClass uint8

const (
	AssetNFT AssetClass = iota + 1
	AssetFungible
	AssetNative
)

func (c AssetClass) String() string {
	switch c {
	case AssetNFT:
		return "nft"
	case AssetFungible:
		return "fungible"
	case AssetNative:
		return "native"
	default:
		return "unknown"
	}
}

// Valid reports whether the class value is within the supported range.
func (c AssetClass) Valid() bool {
	return c >= AssetNFT && c <= AssetNative
}

// ParseAssetClass maps the textual form back to an AssetClass.
func ParseAssetClass(s string) (AssetClass, bool) {
	switch s {
	case "nft":
		return AssetNFT, true
	case "fungible":
		return AssetFungible, true
	case "native":
		return AssetNative, true
	default:
		return 0, false
	}
}

// CustodyKind identifies how a staked asset is held.
type CustodyKind uint8

const (
	// CustodyDelegatedFreeze leaves the NFT in the owner's account, delegated
	// to the record and frozen.
	CustodyDelegatedFreeze CustodyKind = iota + 1
	// CustodyVaultEscrow moves the principal into a record-controlled vault.
	CustodyVaultEscrow
)

func (k CustodyKind) String() string {
	switch k {
	case CustodyDelegatedFreeze:
		return "delegated-freeze"
	case CustodyVaultEscrow:
		return "vault"
	default:
		return "unknown"
	}
}

// NativePolicy selects when native coin stakes earn rewards. It is fixed when
// the config is created.
type NativePolicy uint8

const (
	// NativeRewardAtStake mints PointsPerNativeUnit*amount when the stake opens.
	NativeRewardAtStake NativePolicy = iota
	// NativeRewardByDuration mints elapsed*amount*PointsPerNativeUnit when the
	// stake is released.
	NativeRewardByDuration
)

func (p NativePolicy) String() string {
	switch p {
	case NativeRewardAtStake:
		return "at-stake"
	case NativeRewardByDuration:
		return "by-duration"
	default:
		return "unknown"
	}
}

// ParseNativePolicy maps the textual form back to a NativePolicy. The empty
// string selects the default.
func ParseNativePolicy(s string) (NativePolicy, bool) {
	switch s {
	case "", "at-stake":
		return NativeRewardAtStake, true
	case "by-duration":
		return NativeRewardByDuration, true
	default:
		return 0, false
	}
}

// NativeAsset is the asset key used for native coin positions.
var NativeAsset [20]byte

// ConfigParams carries the caller-chosen values of CreateConfig.
type ConfigParams struct {
	PointsPerNFT          uint8
	PointsPerNativeUnit   uint8
	PointsPerFungibleUnit uint8
	MinFreezePeriod       uint32
	NativePolicy          NativePolicy
	Collection            [20]byte
}

// Config is the deployment-wide staking configuration. It is written once and
// never modified.
type Config struct {
	Address               [20]byte
	Authority             [20]byte
	RewardMint            [20]byte
	PointsPerNFT          uint8
	PointsPerNativeUnit   uint8
	PointsPerFungibleUnit uint8
	MinFreezePeriod       uint32
	NativePolicy          NativePolicy
	Collection            [20]byte
}

// Clone returns a copy safe for mutation.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Participant aggregates the positions and reward points of one owner.
type Participant struct {
	Address              [20]byte
	Owner                [20]byte
	Points               uint64
	NFTStakedCount       uint64
	FungibleStakedAmount uint64
	NativeStakedAmount   uint64
}

// Clone returns a copy safe for mutation.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// StakeRecord is a single open position. The record address doubles as the
// custody authority for the staked asset.
type StakeRecord struct {
	Address        [20]byte
	Owner          [20]byte
	Asset          [20]byte
	Class          AssetClass
	Custody        CustodyKind
	Seq            uint64
	StakedAt       int64
	Amount         uint64
	HoldingAccount [20]byte
	Deposit        uint64
}

// Clone returns a copy safe for mutation.
func (r *StakeRecord) Clone() *StakeRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
