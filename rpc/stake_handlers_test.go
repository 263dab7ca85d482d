package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/core"
	"stakeledger/core/events"
	"stakeledger/core/types"
	"stakeledger/crypto"
	"stakeledger/indexer"
)

func TestStakeNativeOverRPC(t *testing.T) {
	env := newTestEnv(t, ServerConfig{AuthToken: testToken})
	alice := crypto.FromArray(addressOf(env.alice)).String()

	rec, resp := env.call(t, "stake_getConfig", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeNotFound, resp.Error.Code)

	resp = env.send(t, env.alice, types.TxTypeCreateConfig, types.CreateConfigPayload{PointsPerNFT: 5})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeTxRejected, resp.Error.Code)

	resp = env.send(t, env.admin, types.TxTypeCreateConfig, types.CreateConfigPayload{
		PointsPerNFT:          5,
		PointsPerNativeUnit:   2,
		PointsPerFungibleUnit: 3,
		MinFreezePeriod:       3600,
	})
	require.Nil(t, resp.Error)
	require.Nil(t, env.send(t, env.alice, types.TxTypeCreateParticipant, nil).Error)

	var receipt types.Receipt
	decodeResult(t, env.send(t, env.alice, types.TxTypeStakeNative, types.StakeNativePayload{Amount: 1000}), &receipt)
	require.Equal(t, "stakeNative", receipt.Type)
	require.Equal(t, alice, receipt.Sender)
	require.Len(t, receipt.Events, 2)

	var cfg ConfigResult
	_, resp = env.call(t, "stake_getConfig", "")
	decodeResult(t, resp, &cfg)
	require.Equal(t, "at-stake", cfg.NativePolicy)
	require.Equal(t, uint32(3600), cfg.MinFreezePeriod)

	var participant ParticipantResult
	_, resp = env.call(t, "stake_getParticipant", "", ownerParams{Owner: alice})
	decodeResult(t, resp, &participant)
	require.Equal(t, uint64(1000), participant.NativeStakedAmount)
	require.Equal(t, uint64(2000), participant.Points)

	var positions []PositionResult
	_, resp = env.call(t, "stake_listPositions", "", ownerParams{Owner: alice})
	decodeResult(t, resp, &positions)
	require.Len(t, positions, 1)
	require.Equal(t, "native", positions[0].Class)
	require.Equal(t, "vault", positions[0].Custody)
	require.Equal(t, testNow+3600, positions[0].UnlockAt)
	require.Empty(t, positions[0].Asset)

	var position PositionResult
	_, resp = env.call(t, "stake_getPosition", "", recordParams{Record: positions[0].Record})
	decodeResult(t, resp, &position)
	require.Equal(t, positions[0], position)

	var balance BalanceResult
	_, resp = env.call(t, "stake_getBalance", "", addressParams{Address: alice})
	decodeResult(t, resp, &balance)
	require.Equal(t, uint64(9000), balance.Native)
	require.Equal(t, uint64(2000), balance.Reward)
	require.Equal(t, uint64(2), balance.Nonce)

	resp = env.send(t, env.alice, types.TxTypeUnstake, types.UnstakePayload{Record: position.Record})
	require.Equal(t, codeTxRejected, resp.Error.Code)

	*env.clock = testNow + 3600
	require.Nil(t, env.send(t, env.alice, types.TxTypeUnstake, types.UnstakePayload{Record: position.Record}).Error)

	rec, resp = env.call(t, "stake_getPosition", "", recordParams{Record: position.Record})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeNotFound, resp.Error.Code)

	var rows []indexer.EventRecord
	_, resp = env.call(t, "stake_listEvents", "", listEventsParams{Owner: alice})
	decodeResult(t, resp, &rows)
	require.Len(t, rows, 4)
	require.Equal(t, events.TypeStakeParticipantCreated, rows[0].Type)
	require.Equal(t, events.TypeStakeUnlocked, rows[3].Type)

	_, resp = env.call(t, "stake_listEvents", "", listEventsParams{Type: events.TypeStakeConfigCreated})
	decodeResult(t, resp, &rows)
	require.Len(t, rows, 1)

	var status StatusResult
	_, resp = env.call(t, "stake_status", "")
	decodeResult(t, resp, &status)
	require.Equal(t, uint64(testChainID), status.ChainID)
	require.Equal(t, uint64(4), status.Height)
}

func TestSendTransactionRejectsWrongChain(t *testing.T) {
	env := newTestEnv(t, ServerConfig{AuthToken: testToken})
	tx := &types.Transaction{Type: types.TxTypeCreateParticipant, ChainID: testChainID + 1}
	require.NoError(t, tx.Sign(env.alice.PrivateKey))
	rec, resp := env.call(t, "stake_sendTransaction", testToken, tx)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestListEventsWithoutIndex(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	server := NewServer(env.node, nil, ServerConfig{}, nil)
	env.handler = server.Handler()
	rec, resp := env.call(t, "stake_listEvents", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, codeServerError, resp.Error.Code)
}

func TestTxErrorMapsStorageFailureToServerError(t *testing.T) {
	rpcErr := txError(fmt.Errorf("%w: head: %w", core.ErrPersist, errors.New("disk full")))
	require.Equal(t, http.StatusInternalServerError, rpcErr.httpStatus())
	require.Equal(t, codeServerError, rpcErr.Code)

	rpcErr = txError(errors.New("staking: already initialized"))
	require.Equal(t, http.StatusUnprocessableEntity, rpcErr.httpStatus())
	require.Equal(t, codeTxRejected, rpcErr.Code)
}
