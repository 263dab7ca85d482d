package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rpcURLEnv   = "STAKECTL_RPC_URL"
	rpcTokenEnv = "STAKELEDGER_RPC_TOKEN"
	keyPassEnv  = "STAKECTL_PASSPHRASE"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cliEnv struct {
	client     *rpcClient
	passphrase func() (string, error)
}

var newEnv = defaultEnv

func run(args []string, stdout, stderr io.Writer) int {
	endpoint, args, err := applyGlobalFlags(args, defaultRPCEndpoint())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	env := newEnv(endpoint)

	switch args[0] {
	case "keygen":
		return runKeygen(env, args[1:], stdout, stderr)
	case "import-key":
		return runImportKey(env, args[1:], stdout, stderr)
	case "address":
		return runAddress(env, args[1:], stdout, stderr)
	case "status":
		return runQuery(env, "stake_status", nil, stdout, stderr)
	case "config":
		return runQuery(env, "stake_getConfig", nil, stdout, stderr)
	case "participant":
		return runOwnerQuery(env, "stake_getParticipant", "owner", args[1:], stdout, stderr)
	case "positions":
		return runOwnerQuery(env, "stake_listPositions", "owner", args[1:], stdout, stderr)
	case "position":
		return runOwnerQuery(env, "stake_getPosition", "record", args[1:], stdout, stderr)
	case "balance":
		return runOwnerQuery(env, "stake_getBalance", "address", args[1:], stdout, stderr)
	case "events":
		return runEvents(env, args[1:], stdout, stderr)
	case "create-config":
		return runCreateConfig(env, args[1:], stdout, stderr)
	case "create-participant":
		return runCreateParticipant(env, args[1:], stdout, stderr)
	case "stake-nft":
		return runStakeNFT(env, args[1:], stdout, stderr)
	case "stake-fungible":
		return runStakeFungible(env, args[1:], stdout, stderr)
	case "stake-native":
		return runStakeNative(env, args[1:], stdout, stderr)
	case "unstake":
		return runUnstake(env, args[1:], stdout, stderr)
	case "transfer":
		return runTransfer(env, args[1:], stdout, stderr)
	case "verify-collection":
		return runVerifyCollection(env, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: stakectl [--rpc URL] <command> [flags]

Keys:
  keygen --out FILE                    create an encrypted keystore
  import-key --in HEXFILE --out FILE   encrypt an existing hex key
  address --key FILE                   print the keystore address

Queries:
  status | config
  participant <owner>
  positions <owner>
  position <record>
  balance <address>
  events [--owner A] [--record R] [--type T] [--after N] [--limit N]

Transactions (require --key FILE and ` + rpcTokenEnv + `):
  create-config --nft N --native N --fungible N --freeze SECONDS [--policy at-stake|by-duration] [--collection MINT]
  create-participant
  stake-nft --mint MINT --seq N
  stake-fungible --mint MINT --amount N --seq N
  stake-native --amount N --seq N
  unstake --record RECORD
  transfer --to ADDRESS --amount N
  verify-collection --mint MINT`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string, endpoint string) (string, []string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("missing value for --rpc")
			}
			endpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			endpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return endpoint, out, nil
}
