package state

var (
	tokenMintPrefix     = []byte("token/mint/")
	tokenAccountPrefix  = []byte("token/account/")
	nativeBalancePrefix = []byte("native/balance/")
	depositPrefix       = []byte("deposit/")
	nftMetadataPrefix   = []byte("nft/metadata/")
	stakingConfigKey    = []byte("staking/config")
	participantPrefix   = []byte("staking/participant/")
	stakeRecordPrefix   = []byte("staking/record/")
	stakeByOwnerPrefix  = []byte("staking/owner-index/")
	noncePrefix         = []byte("account/nonce/")
)

func prefixedKey(prefix []byte, addr [20]byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return buf
}
