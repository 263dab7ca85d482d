package events

import (
	"strconv"

	"stakeledger/crypto"
)

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatAddress(addr [20]byte) string {
	return crypto.FromArray(addr).String()
}

func formatMint(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.MintPrefix, addr[:]).String()
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
