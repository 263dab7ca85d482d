package rpc

import (
	"encoding/json"
	"net/http"

	"stakeledger/crypto"
	"stakeledger/native/staking"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeTxRejected     = -32003
	codeNotFound       = -32004
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) httpStatus() int {
	if e == nil || e.status == 0 {
		return http.StatusBadRequest
	}
	return e.status
}

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

// ConfigResult renders the deployment staking config.
type ConfigResult struct {
	Address               string `json:"address"`
	Authority             string `json:"authority"`
	RewardMint            string `json:"rewardMint"`
	PointsPerNFT          uint8  `json:"pointsPerNft"`
	PointsPerNativeUnit   uint8  `json:"pointsPerNativeUnit"`
	PointsPerFungibleUnit uint8  `json:"pointsPerFungibleUnit"`
	MinFreezePeriod       uint32 `json:"minFreezePeriod"`
	NativePolicy          string `json:"nativePolicy"`
	Collection            string `json:"collection,omitempty"`
}

// ParticipantResult renders a participant ledger.
type ParticipantResult struct {
	Address              string `json:"address"`
	Owner                string `json:"owner"`
	Points               uint64 `json:"points"`
	NFTStakedCount       uint64 `json:"nftStakedCount"`
	FungibleStakedAmount uint64 `json:"fungibleStakedAmount"`
	NativeStakedAmount   uint64 `json:"nativeStakedAmount"`
}

// PositionResult renders an open stake record.
type PositionResult struct {
	Record         string `json:"record"`
	Owner          string `json:"owner"`
	Asset          string `json:"asset,omitempty"`
	Class          string `json:"class"`
	Custody        string `json:"custody"`
	Seq            uint64 `json:"seq"`
	StakedAt       int64  `json:"stakedAt"`
	UnlockAt       int64  `json:"unlockAt"`
	Amount         uint64 `json:"amount"`
	HoldingAccount string `json:"holdingAccount"`
	Deposit        uint64 `json:"deposit,omitempty"`
}

// BalanceResult renders the holdings and next nonce of an address.
type BalanceResult struct {
	Address string `json:"address"`
	Native  uint64 `json:"native"`
	Reward  uint64 `json:"reward"`
	Nonce   uint64 `json:"nonce"`
}

// StatusResult describes the committed head.
type StatusResult struct {
	ChainID   uint64 `json:"chainId"`
	Height    uint64 `json:"height"`
	StateRoot string `json:"stateRoot"`
}

func formatAccount(addr [20]byte) string {
	return crypto.FromArray(addr).String()
}

func formatMint(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.MintPrefix, addr[:]).String()
}

func configResult(cfg *staking.Config) ConfigResult {
	out := ConfigResult{
		Address:               formatAccount(cfg.Address),
		Authority:             formatAccount(cfg.Authority),
		RewardMint:            formatMint(cfg.RewardMint),
		PointsPerNFT:          cfg.PointsPerNFT,
		PointsPerNativeUnit:   cfg.PointsPerNativeUnit,
		PointsPerFungibleUnit: cfg.PointsPerFungibleUnit,
		MinFreezePeriod:       cfg.MinFreezePeriod,
		NativePolicy:          cfg.NativePolicy.String(),
	}
	if cfg.Collection != ([20]byte{}) {
		out.Collection = formatMint(cfg.Collection)
	}
	return out
}

func participantResult(p *staking.Participant) ParticipantResult {
	return ParticipantResult{
		Address:              formatAccount(p.Address),
		Owner:                formatAccount(p.Owner),
		Points:               p.Points,
		NFTStakedCount:       p.NFTStakedCount,
		FungibleStakedAmount: p.FungibleStakedAmount,
		NativeStakedAmount:   p.NativeStakedAmount,
	}
}

func positionResult(rec *staking.StakeRecord, freeze uint32) PositionResult {
	out := PositionResult{
		Record:         formatAccount(rec.Address),
		Owner:          formatAccount(rec.Owner),
		Class:          rec.Class.String(),
		Custody:        rec.Custody.String(),
		Seq:            rec.Seq,
		StakedAt:       rec.StakedAt,
		UnlockAt:       rec.StakedAt + int64(freeze),
		Amount:         rec.Amount,
		HoldingAccount: formatAccount(rec.HoldingAccount),
		Deposit:        rec.Deposit,
	}
	if rec.Asset != staking.NativeAsset {
		out.Asset = formatMint(rec.Asset)
	}
	return out
}
