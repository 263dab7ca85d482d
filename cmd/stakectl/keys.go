package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"stakeledger/crypto"
)

func runKeygen(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	out := fs.String("out", "stake.keystore", "keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path := strings.TrimSpace(*out)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists; refusing to overwrite\n", path)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	pass, err := env.passphrase()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error writing keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", path)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

// runImportKey encrypts a raw hex-encoded secp256k1 key into a keystore.
func runImportKey(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("import-key", stderr)
	in := fs.String("in", "", "file holding the hex-encoded private key")
	out := fs.String("out", "stake.keystore", "keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "in", *in) {
		return 1
	}
	raw, err := os.ReadFile(strings.TrimSpace(*in))
	if err != nil {
		fmt.Fprintf(stderr, "Error reading key: %v\n", err)
		return 1
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
	if err != nil {
		fmt.Fprintf(stderr, "Error decoding key: %v\n", err)
		return 1
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing key: %v\n", err)
		return 1
	}
	pass, err := env.passphrase()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := crypto.SaveToKeystore(strings.TrimSpace(*out), key, pass); err != nil {
		fmt.Fprintf(stderr, "Error writing keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Imported key into %s\n", strings.TrimSpace(*out))
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

func runAddress(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	keyFile := fs.String("key", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(env, *keyFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadKey(env *cliEnv, path string) (*crypto.PrivateKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("--key is required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run stakectl keygen first", path)
		}
		return nil, err
	}
	pass, err := env.passphrase()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore %s: %w", path, err)
	}
	return key, nil
}
