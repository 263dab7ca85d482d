package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"stakeledger/core/types"
)

type statusResult struct {
	ChainID uint64 `json:"chainId"`
}

type balanceResult struct {
	Nonce uint64 `json:"nonce"`
}

// sendTx signs a transaction of txType with the keystore at keyFile, using
// the node's chain id and the sender's next nonce.
func sendTx(env *cliEnv, keyFile string, txType types.TxType, payload interface{}, stdout, stderr io.Writer) int {
	key, err := loadKey(env, keyFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	sender := key.PubKey().Address().String()

	var status statusResult
	if _, err := env.client.call("stake_status", nil, false, &status); err != nil {
		fmt.Fprintf(stderr, "Error fetching chain status: %v\n", err)
		return 1
	}
	var balance balanceResult
	if _, err := env.client.call("stake_getBalance", map[string]string{"address": sender}, false, &balance); err != nil {
		fmt.Fprintf(stderr, "Error fetching account nonce: %v\n", err)
		return 1
	}

	tx := &types.Transaction{Type: txType, ChainID: status.ChainID, Nonce: balance.Nonce}
	if payload != nil {
		if err := tx.SetPayload(payload); err != nil {
			fmt.Fprintf(stderr, "Error encoding payload: %v\n", err)
			return 1
		}
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		fmt.Fprintf(stderr, "Error signing transaction: %v\n", err)
		return 1
	}

	receipt, err := env.client.call("stake_sendTransaction", tx, true, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error sending %s transaction: %v\n", txType, err)
		return 1
	}
	printJSONResult(stdout, receipt)
	return 0
}

func txFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := newFlagSet(name, stderr)
	keyFile := fs.String("key", "", "keystore file of the signer")
	return fs, keyFile
}

func requireFlag(stderr io.Writer, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(stderr, "Error: --%s is required\n", name)
		return false
	}
	return true
}

func pointsFlag(stderr io.Writer, name string, value uint) (uint8, bool) {
	if value > math.MaxUint8 {
		fmt.Fprintf(stderr, "Error: --%s must be at most %d\n", name, math.MaxUint8)
		return 0, false
	}
	return uint8(value), true
}

func runCreateConfig(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("create-config", stderr)
	var (
		nft, native, fungible uint
		freeze                uint
		policy, collection    string
	)
	fs.UintVar(&nft, "nft", 0, "reward points per staked NFT")
	fs.UintVar(&native, "native", 0, "reward points per native unit")
	fs.UintVar(&fungible, "fungible", 0, "reward points per fungible unit")
	fs.UintVar(&freeze, "freeze", 0, "minimum freeze period in seconds")
	fs.StringVar(&policy, "policy", "", "native reward policy: at-stake or by-duration")
	fs.StringVar(&collection, "collection", "", "optional collection mint restricting NFT stakes")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if freeze > math.MaxUint32 {
		fmt.Fprintln(stderr, "Error: --freeze exceeds the supported range")
		return 1
	}
	payload := types.CreateConfigPayload{
		MinFreezePeriod: uint32(freeze),
		NativePolicy:    strings.TrimSpace(policy),
		Collection:      strings.TrimSpace(collection),
	}
	var ok bool
	if payload.PointsPerNFT, ok = pointsFlag(stderr, "nft", nft); !ok {
		return 1
	}
	if payload.PointsPerNativeUnit, ok = pointsFlag(stderr, "native", native); !ok {
		return 1
	}
	if payload.PointsPerFungibleUnit, ok = pointsFlag(stderr, "fungible", fungible); !ok {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeCreateConfig, payload, stdout, stderr)
}

func runCreateParticipant(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("create-participant", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeCreateParticipant, nil, stdout, stderr)
}

func runStakeNFT(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("stake-nft", stderr)
	mint := fs.String("mint", "", "NFT mint address")
	seq := fs.Uint64("seq", 0, "record sequence number")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "mint", *mint) {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeStakeNFT, types.StakeNFTPayload{Mint: strings.TrimSpace(*mint), Seq: *seq}, stdout, stderr)
}

func runStakeFungible(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("stake-fungible", stderr)
	mint := fs.String("mint", "", "token mint address")
	amount := fs.Uint64("amount", 0, "amount in base units")
	seq := fs.Uint64("seq", 0, "record sequence number")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "mint", *mint) {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeStakeFungible, types.StakeFungiblePayload{
		Mint: strings.TrimSpace(*mint), Amount: *amount, Seq: *seq,
	}, stdout, stderr)
}

func runStakeNative(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("stake-native", stderr)
	amount := fs.Uint64("amount", 0, "amount of native coin")
	seq := fs.Uint64("seq", 0, "record sequence number")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeStakeNative, types.StakeNativePayload{Amount: *amount, Seq: *seq}, stdout, stderr)
}

func runUnstake(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("unstake", stderr)
	record := fs.String("record", "", "stake record address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "record", *record) {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeUnstake, types.UnstakePayload{Record: strings.TrimSpace(*record)}, stdout, stderr)
}

func runTransfer(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("transfer", stderr)
	to := fs.String("to", "", "recipient address")
	amount := fs.Uint64("amount", 0, "amount of native coin")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "to", *to) {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeTransferNative, types.TransferNativePayload{To: strings.TrimSpace(*to), Amount: *amount}, stdout, stderr)
}

func runVerifyCollection(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs, keyFile := txFlagSet("verify-collection", stderr)
	mint := fs.String("mint", "", "member NFT mint address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "mint", *mint) {
		return 1
	}
	return sendTx(env, *keyFile, types.TxTypeVerifyCollection, types.VerifyCollectionPayload{Mint: strings.TrimSpace(*mint)}, stdout, stderr)
}
