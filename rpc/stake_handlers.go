package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stakeledger/core"
	coreerrors "stakeledger/core/errors"
	"stakeledger/core/genesis"
	"stakeledger/core/types"
	"stakeledger/indexer"
	"stakeledger/native/nft"
	"stakeledger/native/staking"
	"stakeledger/native/token"
)

type ownerParams struct {
	Owner string `json:"owner"`
}

type recordParams struct {
	Record string `json:"record"`
}

type addressParams struct {
	Address string `json:"address"`
}

type listEventsParams struct {
	Owner   string `json:"owner,omitempty"`
	Record  string `json:"record,omitempty"`
	Type    string `json:"type,omitempty"`
	AfterID uint64 `json:"afterId,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return newError(http.StatusBadRequest, codeInvalidParams, "exactly one parameter object expected", nil)
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return newError(http.StatusBadRequest, codeInvalidParams, "invalid parameter object", err.Error())
	}
	return nil
}

func parseAccountParam(field, value string) ([20]byte, *RPCError) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, newError(http.StatusBadRequest, codeInvalidParams, field+" is required", nil)
	}
	addr, err := genesis.ParseBech32Account(value)
	if err != nil {
		return [20]byte{}, newError(http.StatusBadRequest, codeInvalidParams, "invalid "+field, err.Error())
	}
	return addr, nil
}

var notFoundErrors = []error{
	staking.ErrNotInitialized,
	staking.ErrStakeNotFound,
	token.ErrAccountNotFound,
	token.ErrMintNotFound,
	nft.ErrMetadataNotFound,
}

// ledgerError maps a node error onto a JSON-RPC error.
func ledgerError(err error) *RPCError {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return newError(http.StatusNotFound, codeNotFound, err.Error(), nil)
		}
	}
	return newError(http.StatusInternalServerError, codeServerError, "ledger query failed", err.Error())
}

func txError(err error) *RPCError {
	switch {
	case errors.Is(err, coreerrors.ErrInvalidPayload),
		errors.Is(err, coreerrors.ErrUnknownTxType),
		errors.Is(err, coreerrors.ErrInvalidSender),
		errors.Is(err, coreerrors.ErrChainIDMismatch):
		return newError(http.StatusBadRequest, codeInvalidParams, "invalid transaction", err.Error())
	case errors.Is(err, core.ErrPersist):
		return newError(http.StatusInternalServerError, codeServerError, "ledger storage failure", err.Error())
	default:
		return newError(http.StatusUnprocessableEntity, codeTxRejected, "transaction rejected", err.Error())
	}
}

func (s *Server) handleSendTransaction(req *RPCRequest) (interface{}, *RPCError) {
	if len(req.Params) != 1 {
		return nil, newError(http.StatusBadRequest, codeInvalidParams, "transaction parameter required", nil)
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		return nil, newError(http.StatusBadRequest, codeInvalidParams, "invalid transaction format", err.Error())
	}
	receipt, err := s.node.ApplyTransaction(&tx)
	if err != nil {
		return nil, txError(err)
	}
	return receipt, nil
}

func (s *Server) handleStatus() (interface{}, *RPCError) {
	if s.head == nil {
		return nil, newError(http.StatusServiceUnavailable, codeServerError, "status unavailable", nil)
	}
	return StatusResult{
		ChainID:   s.head.ChainID(),
		Height:    s.head.Height(),
		StateRoot: s.head.StateRoot().Hex(),
	}, nil
}

func (s *Server) handleGetConfig() (interface{}, *RPCError) {
	cfg, err := s.node.Config()
	if err != nil {
		return nil, ledgerError(err)
	}
	return configResult(cfg), nil
}

func (s *Server) handleGetParticipant(req *RPCRequest) (interface{}, *RPCError) {
	var params ownerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAccountParam("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	p, err := s.node.Participant(owner)
	if err != nil {
		return nil, ledgerError(err)
	}
	return participantResult(p), nil
}

func (s *Server) handleGetPosition(req *RPCRequest) (interface{}, *RPCError) {
	var params recordParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	record, rpcErr := parseAccountParam("record", params.Record)
	if rpcErr != nil {
		return nil, rpcErr
	}
	cfg, err := s.node.Config()
	if err != nil {
		return nil, ledgerError(err)
	}
	rec, err := s.node.StakeRecord(record)
	if err != nil {
		return nil, ledgerError(err)
	}
	return positionResult(rec, cfg.MinFreezePeriod), nil
}

func (s *Server) handleListPositions(req *RPCRequest) (interface{}, *RPCError) {
	var params ownerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAccountParam("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	cfg, err := s.node.Config()
	if err != nil {
		return nil, ledgerError(err)
	}
	records, err := s.node.StakesByOwner(owner)
	if err != nil {
		return nil, ledgerError(err)
	}
	out := make([]PositionResult, 0, len(records))
	for _, rec := range records {
		out = append(out, positionResult(rec, cfg.MinFreezePeriod))
	}
	return out, nil
}

func (s *Server) handleListEvents(req *RPCRequest) (interface{}, *RPCError) {
	if s.events == nil {
		return nil, newError(http.StatusServiceUnavailable, codeServerError, "event index disabled", nil)
	}
	var params listEventsParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if params.Limit < 0 {
		return nil, newError(http.StatusBadRequest, codeInvalidParams, "limit must not be negative", nil)
	}
	rows, err := s.events.List(indexer.Filter{
		Type:    params.Type,
		Owner:   strings.TrimSpace(params.Owner),
		Record:  strings.TrimSpace(params.Record),
		AfterID: params.AfterID,
		Limit:   params.Limit,
	})
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "event query failed", err.Error())
	}
	return rows, nil
}

func (s *Server) handleGetBalance(req *RPCRequest) (interface{}, *RPCError) {
	var params addressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAccountParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balances, err := s.node.Balances(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return BalanceResult{
		Address: formatAccount(addr),
		Native:  balances.Native,
		Reward:  balances.Reward,
		Nonce:   nonce,
	}, nil
}
