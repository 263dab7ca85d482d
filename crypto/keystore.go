package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var (
	// ErrWrongPassphrase is returned when a keystore cannot be decrypted.
	ErrWrongPassphrase = errors.New("crypto: wrong keystore passphrase")
	// ErrKeystoreMismatch is returned when the address recorded in a keystore
	// file is not the address of the key it holds.
	ErrKeystoreMismatch = errors.New("crypto: keystore address mismatch")
)

// scrypt cost for new keystore files; tests lower it.
var keystoreScryptN, keystoreScryptP = keystore.StandardScryptN, keystore.StandardScryptP

// SaveToKeystore encrypts an operator or participant key into a v3 keystore
// file at path. The file is written beside its destination and renamed into
// place, so a crash never leaves a truncated keystore behind.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	if key == nil || key.PrivateKey == nil {
		return errors.New("crypto: nil private key")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("crypto: empty keystore path")
	}
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key.PrivateKey,
	}, passphrase, keystoreScryptN, keystoreScryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt keystore: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encrypted); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts a keystore written by SaveToKeystore and checks
// the recorded address against the decrypted key.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if errors.Is(err, keystore.ErrDecrypt) {
		return nil, fmt.Errorf("%w: %s", ErrWrongPassphrase, path)
	}
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt keystore: %w", err)
	}

	var header struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(keyJSON, &header); err != nil {
		return nil, fmt.Errorf("crypto: parse keystore: %w", err)
	}
	if header.Address != "" {
		recorded := common.HexToAddress(header.Address)
		if recorded != decrypted.Address {
			return nil, fmt.Errorf("%w: file records %s, key is %s", ErrKeystoreMismatch,
				FromArray(recorded), FromArray(decrypted.Address))
		}
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
