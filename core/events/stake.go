package events

import "stakeledger/core/types"

const (
	// TypeStakeConfigCreated is emitted once when the deployment config is written.
	TypeStakeConfigCreated = "stake.configCreated"
	// TypeStakeParticipantCreated is emitted when an owner opens a participant ledger.
	TypeStakeParticipantCreated = "stake.participantCreated"
	// TypeStakeLocked is emitted when an asset moves into custody.
	TypeStakeLocked = "stake.locked"
	// TypeStakeUnlocked is emitted when custody is reversed and the record destroyed.
	TypeStakeUnlocked = "stake.unlocked"
	// TypeStakeRewardMinted is emitted for every non-zero reward mint.
	TypeStakeRewardMinted = "stake.rewardMinted"
)

// StakeConfigCreated captures the parameters fixed for the deployment.
type StakeConfigCreated struct {
	Config                [20]byte
	Authority             [20]byte
	RewardMint            [20]byte
	PointsPerNFT          uint8
	PointsPerNativeUnit   uint8
	PointsPerFungibleUnit uint8
	MinFreezePeriod       uint32
	NativePolicy          string
	Collection            [20]byte
}

// EventType satisfies the Event interface.
func (StakeConfigCreated) EventType() string { return TypeStakeConfigCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakeConfigCreated) Event() *types.Event {
	attrs := map[string]string{
		"config":                formatAddress(e.Config),
		"authority":             formatAddress(e.Authority),
		"rewardMint":            formatMint(e.RewardMint),
		"pointsPerNft":          formatUint(uint64(e.PointsPerNFT)),
		"pointsPerNativeUnit":   formatUint(uint64(e.PointsPerNativeUnit)),
		"pointsPerFungibleUnit": formatUint(uint64(e.PointsPerFungibleUnit)),
		"minFreezePeriod":       formatUint(uint64(e.MinFreezePeriod)),
		"nativePolicy":          e.NativePolicy,
	}
	if !zeroAddress(e.Collection) {
		attrs["collection"] = formatMint(e.Collection)
	}
	return &types.Event{Type: TypeStakeConfigCreated, Attributes: attrs}
}

// StakeParticipantCreated records a new participant ledger.
type StakeParticipantCreated struct {
	Owner       [20]byte
	Participant [20]byte
}

// EventType satisfies the Event interface.
func (StakeParticipantCreated) EventType() string { return TypeStakeParticipantCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakeParticipantCreated) Event() *types.Event {
	return &types.Event{Type: TypeStakeParticipantCreated, Attributes: map[string]string{
		"owner":       formatAddress(e.Owner),
		"participant": formatAddress(e.Participant),
	}}
}

// StakeLocked captures a new stake position.
type StakeLocked struct {
	Owner    [20]byte
	Record   [20]byte
	Asset    [20]byte
	Class    string
	Custody  string
	Seq      uint64
	Amount   uint64
	StakedAt int64
	Holding  [20]byte
}

// EventType satisfies the Event interface.
func (StakeLocked) EventType() string { return TypeStakeLocked }

// Event converts the structured payload into a broadcastable event.
func (e StakeLocked) Event() *types.Event {
	attrs := map[string]string{
		"owner":    formatAddress(e.Owner),
		"record":   formatAddress(e.Record),
		"class":    e.Class,
		"custody":  e.Custody,
		"seq":      formatUint(e.Seq),
		"amount":   formatUint(e.Amount),
		"stakedAt": formatInt(e.StakedAt),
		"holding":  formatAddress(e.Holding),
	}
	if !zeroAddress(e.Asset) {
		attrs["asset"] = formatMint(e.Asset)
	}
	return &types.Event{Type: TypeStakeLocked, Attributes: attrs}
}

// StakeUnlocked captures the release of a stake position.
type StakeUnlocked struct {
	Owner    [20]byte
	Record   [20]byte
	Asset    [20]byte
	Class    string
	Amount   uint64
	Returned uint64
	Elapsed  int64
	Refund   uint64
}

// EventType satisfies the Event interface.
func (StakeUnlocked) EventType() string { return TypeStakeUnlocked }

// Event converts the structured payload into a broadcastable event.
func (e StakeUnlocked) Event() *types.Event {
	attrs := map[string]string{
		"owner":    formatAddress(e.Owner),
		"record":   formatAddress(e.Record),
		"class":    e.Class,
		"amount":   formatUint(e.Amount),
		"returned": formatUint(e.Returned),
		"elapsed":  formatInt(e.Elapsed),
	}
	if !zeroAddress(e.Asset) {
		attrs["asset"] = formatMint(e.Asset)
	}
	if e.Refund > 0 {
		attrs["refund"] = formatUint(e.Refund)
	}
	return &types.Event{Type: TypeStakeUnlocked, Attributes: attrs}
}

// StakeRewardMinted captures reward points credited to an owner.
type StakeRewardMinted struct {
	Owner  [20]byte
	Record [20]byte
	Class  string
	Amount uint64
	Points uint64
}

// EventType satisfies the Event interface.
func (StakeRewardMinted) EventType() string { return TypeStakeRewardMinted }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardMinted) Event() *types.Event {
	return &types.Event{Type: TypeStakeRewardMinted, Attributes: map[string]string{
		"owner":  formatAddress(e.Owner),
		"record": formatAddress(e.Record),
		"class":  e.Class,
		"amount": formatUint(e.Amount),
		"points": formatUint(e.Points),
	}}
}
