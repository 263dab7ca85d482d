package state

import (
	"fmt"

	"stakeledger/native/nft"
)

// NFTMetadata loads the registry metadata of mint.
func (m *Manager) NFTMetadata(mint [20]byte) (*nft.Metadata, bool, error) {
	var meta nft.Metadata
	ok, err := m.KVGet(prefixedKey(nftMetadataPrefix, mint), &meta)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &meta, true, nil
}

// PutNFTMetadata stores registry metadata.
func (m *Manager) PutNFTMetadata(meta *nft.Metadata) error {
	if meta == nil {
		return fmt.Errorf("state: nil nft metadata")
	}
	return m.KVPut(prefixedKey(nftMetadataPrefix, meta.Mint), meta)
}
