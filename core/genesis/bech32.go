package genesis

import (
	"fmt"
	"strings"

	"stakeledger/crypto"
)

// ParseBech32Account decodes a stk-prefixed account address.
func ParseBech32Account(addr string) ([20]byte, error) {
	return parseBech32(addr, crypto.StakePrefix)
}

// ParseBech32Mint decodes a mint-prefixed token address.
func ParseBech32Mint(addr string) ([20]byte, error) {
	return parseBech32(addr, crypto.MintPrefix)
}

func parseBech32(addr string, want crypto.AddressPrefix) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(addr))
	if err != nil {
		return [20]byte{}, fmt.Errorf("decode bech32 address: %w", err)
	}
	if decoded.Prefix() != want {
		return [20]byte{}, fmt.Errorf("decode bech32 address: unsupported hrp %q, want %q", decoded.Prefix(), want)
	}
	return decoded.Array(), nil
}
