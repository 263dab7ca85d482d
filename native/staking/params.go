package staking

import "stakeledger/crypto"

const (
	// RewardScale converts NFT points into reward token base units.
	RewardScale uint64 = 1_000_000
	// RewardDecimals is the decimal precision of the reward mint.
	RewardDecimals uint8 = 6
)

var (
	seedConfig  = []byte("config")
	seedRewards = []byte("rewards")
	seedUser    = []byte("user")
	seedStake   = []byte("stake")
	seedVault   = []byte("vault")
)

// ConfigAddress returns the derived address of the deployment config.
func ConfigAddress() [20]byte {
	return crypto.DeriveAddress(crypto.StakingProgram, seedConfig)
}

// RewardMintAddress returns the derived reward mint of config.
func RewardMintAddress(config [20]byte) [20]byte {
	return crypto.DeriveAddress(crypto.StakingProgram, seedRewards, config[:])
}

// ParticipantAddress returns the derived participant ledger address of owner.
func ParticipantAddress(owner [20]byte) [20]byte {
	return crypto.DeriveAddress(crypto.StakingProgram, seedUser, owner[:])
}

func recordSeeds(config, owner, asset [20]byte, seq uint64) [][]byte {
	return [][]byte{seedStake, config[:], owner[:], asset[:], crypto.Uint64Seed(seq)}
}

// RecordAddress returns the derived address of the position opened by owner
// on asset with sequence number seq.
func RecordAddress(config, owner, asset [20]byte, seq uint64) [20]byte {
	return crypto.DeriveAddress(crypto.StakingProgram, recordSeeds(config, owner, asset, seq)...)
}

// VaultAddress returns the native coin vault of a record.
func VaultAddress(record [20]byte) [20]byte {
	return crypto.DeriveAddress(crypto.StakingProgram, seedVault, record[:])
}

func configSigner() crypto.Signer {
	return crypto.DerivedSigner(crypto.StakingProgram, seedConfig)
}

func recordSigner(config [20]byte, rec *StakeRecord) crypto.Signer {
	return crypto.DerivedSigner(crypto.StakingProgram, recordSeeds(config, rec.Owner, rec.Asset, rec.Seq)...)
}

func vaultSigner(record [20]byte) crypto.Signer {
	return crypto.DerivedSigner(crypto.StakingProgram, seedVault, record[:])
}
