package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateConfig      TxType = 0x01 // Write the deployment staking config
	TxTypeCreateParticipant TxType = 0x02 // Open the sender's participant ledger
	TxTypeStakeNFT          TxType = 0x03 // Lock an NFT under delegated-freeze custody
	TxTypeStakeFungible     TxType = 0x04 // Escrow fungible tokens in a record vault
	TxTypeStakeNative       TxType = 0x05 // Escrow native coin in a record vault
	TxTypeUnstake           TxType = 0x06 // Release any matured position
	TxTypeTransferNative    TxType = 0x07 // Plain native coin transfer
	TxTypeVerifyCollection  TxType = 0x08 // Collection authority verifies a member NFT
)

var txTypeNames = map[TxType]string{
	TxTypeCreateConfig:      "createConfig",
	TxTypeCreateParticipant: "createParticipant",
	TxTypeStakeNFT:          "stakeNft",
	TxTypeStakeFungible:     "stakeFungible",
	TxTypeStakeNative:       "stakeNative",
	TxTypeUnstake:           "unstake",
	TxTypeTransferNative:    "transferNative",
	TxTypeVerifyCollection:  "verifyCollection",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the type is one the node dispatches.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

var (
	// ErrMissingSignature is returned when recovering the sender of an
	// unsigned transaction.
	ErrMissingSignature = errors.New("transaction: missing signature")
	// ErrInvalidSignature is returned for signature values outside the
	// secp256k1 encoding.
	ErrInvalidSignature = errors.New("transaction: invalid signature values")
)

// Transaction is a signed request to mutate ledger state. Data carries the
// JSON payload matching Type.
type Transaction struct {
	Type    TxType          `json:"type"`
	ChainID uint64          `json:"chainId"`
	Nonce   uint64          `json:"nonce"`
	Data    json.RawMessage `json:"data"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// Hash returns the sha256 digest of the unsigned transaction fields.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		Type    TxType
		ChainID uint64
		Nonce   uint64
		Data    []byte
	}{tx.Type, tx.ChainID, tx.Nonce, tx.Data}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// Sign signs the transaction hash with privKey.
func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the 20-byte sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrMissingSignature
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || tx.V.Uint64() < 27 {
		return nil, ErrInvalidSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// SetPayload encodes payload as the transaction data.
func (tx *Transaction) SetPayload(payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tx.Data = raw
	tx.from = nil
	return nil
}

// DecodePayload decodes the transaction data into out.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if len(tx.Data) == 0 {
		return errors.New("transaction: empty payload")
	}
	return json.Unmarshal(tx.Data, out)
}
