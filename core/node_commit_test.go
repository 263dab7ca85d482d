package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"stakeledger/core/types"
	"stakeledger/native/staking"
	ledgerotel "stakeledger/observability/otel"
	"stakeledger/storage"
)

var errDiskFull = errors.New("disk full")

// failingHeadDB fails head writes while armed.
type failingHeadDB struct {
	*storage.MemDB
	armed atomic.Bool
}

func (db *failingHeadDB) PutBatch(pairs ...storage.KeyValue) error {
	if db.armed.Load() {
		return errDiskFull
	}
	return db.MemDB.PutBatch(pairs...)
}

func TestHeadWriteFailureRollsBackCommittedState(t *testing.T) {
	db := &failingHeadDB{MemDB: storage.NewMemDB()}
	env := newTestEnv(t, db, Options{})
	admin := addressOf(env.admin)
	rootBefore := env.node.StateRoot()
	params := staking.ConfigParams{PointsPerNFT: 5, MinFreezePeriod: 10}

	db.armed.Store(true)
	_, err := env.node.CreateConfig(admin, params)
	require.ErrorIs(t, err, ErrPersist)
	require.ErrorIs(t, err, errDiskFull)
	require.Zero(t, env.node.Height())
	require.Equal(t, rootBefore, env.node.StateRoot())
	require.Empty(t, env.emitter.types())

	_, err = env.node.Config()
	require.ErrorIs(t, err, staking.ErrNotInitialized)

	db.armed.Store(false)
	cfg, err := env.node.CreateConfig(admin, params)
	require.NoError(t, err)
	require.Equal(t, uint64(5), cfg.PointsPerNFT)
	require.Equal(t, uint64(1), env.node.Height())
	require.NotEmpty(t, env.emitter.types())

	reopened, err := NewNode(db, Options{})
	require.NoError(t, err)
	require.Equal(t, uint64(1), reopened.Height())
	require.Equal(t, env.node.StateRoot(), reopened.StateRoot())
}

func TestAtomicRecordsOperationSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	env := newTestEnv(t, storage.NewMemDB(), Options{})
	admin := addressOf(env.admin)
	_, err := env.node.CreateConfig(admin, staking.ConfigParams{PointsPerNFT: 1})
	require.NoError(t, err)
	_, err = env.node.CreateConfig(admin, staking.ConfigParams{PointsPerNFT: 1})
	require.ErrorIs(t, err, staking.ErrAlreadyInitialized)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	committed := spans[0]
	require.Equal(t, "ledger.createConfig", committed.Name())
	attrs := map[string]string{}
	for _, kv := range committed.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "createConfig", attrs[string(ledgerotel.AttrOperation)])
	require.Equal(t, "1", attrs[string(ledgerotel.AttrHeight)])

	rejected := spans[1]
	attrs = map[string]string{}
	for _, kv := range rejected.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "already_initialized", attrs[string(ledgerotel.AttrRejection)])
	require.Len(t, rejected.Events(), 1)
}

func TestApplyTransactionLogsTypedAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	env := newTestEnv(t, storage.NewMemDB(), Options{Logger: logger})
	env.configure(t)

	var applied []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		if record["msg"] == "transaction applied" {
			applied = append(applied, record)
		}
	}
	require.Len(t, applied, 2)
	require.Equal(t, types.TxTypeCreateConfig.String(), applied[0]["type"])
	require.Equal(t, float64(1), applied[0]["height"])
	require.Equal(t, float64(2), applied[1]["height"])
	require.IsType(t, float64(0), applied[0]["events"])
	require.IsType(t, "", applied[0]["sender"])
}
