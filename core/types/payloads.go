package types

// CreateConfigPayload is the data of TxTypeCreateConfig. NativePolicy is
// "at-stake" (default) or "by-duration"; Collection is an optional bech32 mint.
type CreateConfigPayload struct {
	PointsPerNFT          uint8  `json:"pointsPerNft"`
	PointsPerNativeUnit   uint8  `json:"pointsPerNativeUnit"`
	PointsPerFungibleUnit uint8  `json:"pointsPerFungibleUnit"`
	MinFreezePeriod       uint32 `json:"minFreezePeriod"`
	NativePolicy          string `json:"nativePolicy,omitempty"`
	Collection            string `json:"collection,omitempty"`
}

// StakeNFTPayload is the data of TxTypeStakeNFT.
type StakeNFTPayload struct {
	Mint string `json:"mint"`
	Seq  uint64 `json:"seq"`
}

// StakeFungiblePayload is the data of TxTypeStakeFungible.
type StakeFungiblePayload struct {
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
	Seq    uint64 `json:"seq"`
}

// StakeNativePayload is the data of TxTypeStakeNative.
type StakeNativePayload struct {
	Amount uint64 `json:"amount"`
	Seq    uint64 `json:"seq"`
}

// UnstakePayload is the data of TxTypeUnstake.
type UnstakePayload struct {
	Record string `json:"record"`
}

// TransferNativePayload is the data of TxTypeTransferNative.
type TransferNativePayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// VerifyCollectionPayload is the data of TxTypeVerifyCollection.
type VerifyCollectionPayload struct {
	Mint string `json:"mint"`
}
