package core

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/trace"

	coreerrors "stakeledger/core/errors"
	"stakeledger/core/events"
	"stakeledger/core/genesis"
	ledgerstate "stakeledger/core/state"
	"stakeledger/core/types"
	"stakeledger/crypto"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/nft"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/observability"
	"stakeledger/observability/metrics"
	ledgerotel "stakeledger/observability/otel"
	"stakeledger/storage"
	"stakeledger/storage/trie"
)

var (
	headRootKey   = []byte("head/root")
	headHeightKey = []byte("head/height")
	chainIDKey    = []byte("head/chain-id")

	// ErrPersist marks a failure to write the committed state or head.
	ErrPersist = errors.New("node: persist")
)

// Options configures a Node.
type Options struct {
	// ChainID pins the chain id. When zero the genesis document decides.
	ChainID uint64
	// Admin restricts CreateConfig to a single caller when non-zero.
	Admin          [20]byte
	RecordDeposit  uint64
	AccountDeposit uint64
	// GenesisPath is applied only when the database holds no state yet.
	GenesisPath  string
	AllowMigrate bool
	// Paused lists modules whose entry points reject new work.
	Paused []string
	Logger *slog.Logger
}

// Node is the central controller, wiring all components together. Every
// mutation runs under stateMu inside a single atomic unit that either commits
// a new state root or leaves the previous one untouched.
type Node struct {
	db             storage.Database
	trie           *trie.Trie
	stateMu        sync.Mutex
	chainID        uint64
	height         uint64
	admin          [20]byte
	recordDeposit  uint64
	accountDeposit uint64
	pauses         nativecommon.Pauses
	emitter        events.Emitter
	logger         *slog.Logger
	nowFn          func() int64
}

// Commit describes the outcome of a successful atomic unit.
type Commit struct {
	Height uint64
	Root   common.Hash
	Events []events.Event
}

// unit bundles the engines bound to one atomic operation.
type unit struct {
	manager  *ledgerstate.Manager
	ledger   *token.Ledger
	registry *nft.Registry
	staking  *staking.Engine
}

// NewNode opens the ledger stored in db. A database without a committed head
// is initialised from opts.GenesisPath (or left empty) and committed at
// height zero.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:             db,
		chainID:        opts.ChainID,
		admin:          opts.Admin,
		recordDeposit:  opts.RecordDeposit,
		accountDeposit: opts.AccountDeposit,
		pauses:         nativecommon.NewPauses(opts.Paused...),
		emitter:        events.NoopEmitter{},
		logger:         logger,
		nowFn:          func() int64 { return time.Now().Unix() },
	}

	root, height, found, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("node: open state trie: %w", err)
	}
	n.trie = stateTrie
	n.height = height

	if found {
		if err := n.loadChainID(); err != nil {
			return nil, err
		}
	} else if err := n.initialise(opts.GenesisPath); err != nil {
		return nil, err
	}
	if err := ledgerstate.EnsureStateVersion(n.trie, opts.AllowMigrate); err != nil {
		return nil, err
	}
	logger.Info("ledger opened",
		slog.Uint64("chain_id", n.chainID),
		slog.Uint64("height", n.height),
		slog.String("root", n.trie.Root().Hex()))
	return n, nil
}

func loadHead(db storage.Database) ([]byte, uint64, bool, error) {
	root, err := db.Get(headRootKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("node: load head root: %w", err)
	}
	rawHeight, err := db.Get(headHeightKey)
	if err != nil {
		return nil, 0, false, fmt.Errorf("node: load head height: %w", err)
	}
	if len(rawHeight) != 8 {
		return nil, 0, false, fmt.Errorf("node: corrupt head height (%d bytes)", len(rawHeight))
	}
	return root, binary.BigEndian.Uint64(rawHeight), true, nil
}

func (n *Node) storeHead(root common.Hash, height uint64) error {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], height)
	return n.db.PutBatch(
		storage.KeyValue{Key: headRootKey, Value: root.Bytes()},
		storage.KeyValue{Key: headHeightKey, Value: raw[:]},
	)
}

func (n *Node) loadChainID() error {
	raw, err := n.db.Get(chainIDKey)
	if err != nil {
		return fmt.Errorf("node: load chain id: %w", err)
	}
	if len(raw) != 8 {
		return fmt.Errorf("node: corrupt chain id (%d bytes)", len(raw))
	}
	stored := binary.BigEndian.Uint64(raw)
	if n.chainID != 0 && n.chainID != stored {
		return fmt.Errorf("node: database chain id %d does not match configured %d", stored, n.chainID)
	}
	n.chainID = stored
	return nil
}

func (n *Node) initialise(genesisPath string) error {
	manager := ledgerstate.NewManager(n.trie)
	if genesisPath != "" {
		spec, err := genesis.LoadSpec(genesisPath)
		if err != nil {
			return err
		}
		switch {
		case n.chainID == 0:
			n.chainID = spec.ChainID
		case spec.ChainID != 0 && spec.ChainID != n.chainID:
			return fmt.Errorf("node: genesis chain id %d does not match configured %d", spec.ChainID, n.chainID)
		}
		if err := genesis.Apply(spec, manager); err != nil {
			_ = n.trie.Reset(n.trie.Root())
			return fmt.Errorf("node: apply genesis: %w", err)
		}
	} else if err := manager.SetStateVersion(ledgerstate.StateVersion); err != nil {
		return err
	}
	root, err := n.trie.Commit(0)
	if err != nil {
		return fmt.Errorf("node: commit genesis: %w", err)
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], n.chainID)
	if err := n.db.Put(chainIDKey, raw[:]); err != nil {
		return err
	}
	return n.storeHead(root, 0)
}

// SetEmitter configures where committed events are published. Passing nil
// discards them.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetNowFunc overrides the clock handed to the staking engine.
func (n *Node) SetNowFunc(now func() int64) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	n.nowFn = now
}

func (n *Node) newUnit(emitter events.Emitter) *unit {
	manager := ledgerstate.NewManager(n.trie)
	ledger := token.NewLedger(manager)
	ledger.SetAccountDeposit(n.accountDeposit)
	registry := nft.NewRegistry(manager, ledger)
	engine := staking.NewEngine(manager, ledger, registry)
	engine.SetAdmin(n.admin)
	engine.SetRecordDeposit(n.recordDeposit)
	engine.SetPauses(n.pauses)
	engine.SetNowFunc(n.nowFn)
	engine.SetEmitter(emitter)
	engine.SetLogger(n.logger)
	return &unit{manager: manager, ledger: ledger, registry: registry, staking: engine}
}

// atomic runs fn against a fresh view of the committed state. A failing fn,
// commit or head write leaves the committed root untouched and drops its
// events; a successful fn is committed at the next height and its events are
// published afterwards.
func (n *Node) atomic(op string, fn func(u *unit) error) (*Commit, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	ctx, span := ledgerotel.StartOperation(context.Background(), op)
	prev := n.trie.Root()
	buffer := &events.Buffer{}
	u := n.newUnit(buffer)
	if err := fn(u); err != nil {
		return nil, n.rollback(ctx, op, span, prev, buffer, err)
	}
	root, err := n.trie.Commit(n.height + 1)
	if err != nil {
		return nil, n.rollback(ctx, op, span, prev, buffer, fmt.Errorf("%w: commit state: %w", ErrPersist, err))
	}
	if err := n.storeHead(root, n.height+1); err != nil {
		return nil, n.rollback(ctx, op, span, prev, buffer, fmt.Errorf("%w: head: %w", ErrPersist, err))
	}
	n.height++

	published := buffer.Flush(nil)
	stakingMetrics := metrics.Staking()
	for _, evt := range published {
		recordEventMetrics(stakingMetrics, evt)
		n.emitter.Emit(evt)
	}
	stakingMetrics.RecordOperation(op)
	stakingMetrics.SetCommitHeight(n.height)
	ledgerotel.EndCommitted(ctx, span, op, n.height)
	return &Commit{Height: n.height, Root: root, Events: published}, nil
}

// rollback reloads the trie at prev, the root committed before the operation
// started. Trie nodes a failed commit already wrote stay unreferenced.
func (n *Node) rollback(ctx context.Context, op string, span trace.Span, prev common.Hash, buffer *events.Buffer, cause error) error {
	buffer.Discard()
	reason := rejectionReason(cause)
	metrics.Staking().RecordRejection(op, reason)
	if err := n.trie.Reset(prev); err != nil {
		n.logger.Error("state rollback failed", slog.String("op", op), slog.Any("error", err))
		cause = errors.Join(cause, fmt.Errorf("node: rollback: %w", err))
	} else {
		n.logger.Debug("operation rolled back", slog.String("op", op), slog.String("reason", reason), slog.Any("error", cause))
	}
	ledgerotel.EndRejected(ctx, span, op, reason, cause)
	return cause
}

func recordEventMetrics(m *metrics.StakingMetrics, evt events.Event) {
	observability.Events().RecordEvent(evt.EventType())
	switch evt.EventType() {
	case events.TypeStakeLocked:
		m.RecordLocked()
	case events.TypeStakeUnlocked:
		m.RecordUnlocked()
	case events.TypeStakeRewardMinted:
		typed, ok := evt.(events.Typed)
		if !ok {
			return
		}
		payload := typed.Event()
		if payload == nil {
			return
		}
		amount, err := strconv.ParseUint(payload.Attributes["amount"], 10, 64)
		if err == nil {
			m.RecordReward(payload.Attributes["class"], amount)
		}
	}
}

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{ErrPersist, "storage"},
	{nativecommon.ErrModulePaused, "paused"},
	{staking.ErrAlreadyInitialized, "already_initialized"},
	{staking.ErrNotInitialized, "not_initialized"},
	{staking.ErrInvalidCollection, "invalid_collection"},
	{staking.ErrFreezePeriodNotPassed, "freeze_period"},
	{staking.ErrInvalidAuthority, "invalid_authority"},
	{staking.ErrStakeNotFound, "stake_not_found"},
	{staking.ErrInvalidAmount, "invalid_amount"},
	{staking.ErrWrongAssetClass, "wrong_asset_class"},
	{staking.ErrOverflow, "overflow"},
	{token.ErrInsufficientFunds, "insufficient_funds"},
	{token.ErrUnauthorized, "unauthorized"},
	{coreerrors.ErrInvalidNonce, "invalid_nonce"},
	{coreerrors.ErrChainIDMismatch, "chain_id"},
	{coreerrors.ErrInvalidSender, "invalid_sender"},
	{coreerrors.ErrInvalidPayload, "invalid_payload"},
	{coreerrors.ErrUnknownTxType, "unknown_type"},
}

func rejectionReason(err error) string {
	for _, candidate := range rejectionReasons {
		if errors.Is(err, candidate.err) {
			return candidate.reason
		}
	}
	return "other"
}

// WithState runs fn against the committed state. Writes made by fn are
// discarded.
func (n *Node) WithState(fn func(manager *ledgerstate.Manager) error) error {
	return n.read(func(u *unit) error { return fn(u.manager) })
}

func (n *Node) read(fn func(u *unit) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	u := n.newUnit(events.NoopEmitter{})
	err := fn(u)
	if resetErr := n.trie.Reset(n.trie.Root()); resetErr != nil {
		return errors.Join(err, resetErr)
	}
	return err
}

// ChainID returns the chain id transactions must carry.
func (n *Node) ChainID() uint64 { return n.chainID }

// Height returns the number of committed operations.
func (n *Node) Height() uint64 {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.height
}

// StateRoot returns the last committed state root.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.trie.Root()
}

// CreateConfig writes the deployment config on behalf of an authenticated
// caller.
func (n *Node) CreateConfig(caller [20]byte, params staking.ConfigParams) (*staking.Config, error) {
	var cfg *staking.Config
	_, err := n.atomic(types.TxTypeCreateConfig.String(), func(u *unit) error {
		var err error
		cfg, err = u.staking.CreateConfig(crypto.AccountSigner(caller), params)
		return err
	})
	return cfg, err
}

// CreateParticipant opens the participant ledger of an authenticated owner.
func (n *Node) CreateParticipant(owner [20]byte) (*staking.Participant, error) {
	var p *staking.Participant
	_, err := n.atomic(types.TxTypeCreateParticipant.String(), func(u *unit) error {
		var err error
		p, err = u.staking.CreateParticipant(crypto.AccountSigner(owner))
		return err
	})
	return p, err
}

// StakeNFT locks an NFT owned by owner.
func (n *Node) StakeNFT(owner, mint [20]byte, seq uint64) (*staking.StakeRecord, error) {
	var rec *staking.StakeRecord
	_, err := n.atomic(types.TxTypeStakeNFT.String(), func(u *unit) error {
		var err error
		rec, err = u.staking.StakeNFT(crypto.AccountSigner(owner), mint, seq)
		return err
	})
	return rec, err
}

// StakeFungible escrows amount base units of mint.
func (n *Node) StakeFungible(owner, mint [20]byte, amount, seq uint64) (*staking.StakeRecord, error) {
	var rec *staking.StakeRecord
	_, err := n.atomic(types.TxTypeStakeFungible.String(), func(u *unit) error {
		var err error
		rec, err = u.staking.StakeFungible(crypto.AccountSigner(owner), mint, amount, seq)
		return err
	})
	return rec, err
}

// StakeNative escrows amount native units.
func (n *Node) StakeNative(owner [20]byte, amount, seq uint64) (*staking.StakeRecord, error) {
	var rec *staking.StakeRecord
	_, err := n.atomic(types.TxTypeStakeNative.String(), func(u *unit) error {
		var err error
		rec, err = u.staking.StakeNative(crypto.AccountSigner(owner), amount, seq)
		return err
	})
	return rec, err
}

// Unstake releases a matured record of any asset class.
func (n *Node) Unstake(owner, record [20]byte) (*staking.StakeRecord, error) {
	var rec *staking.StakeRecord
	_, err := n.atomic(types.TxTypeUnstake.String(), func(u *unit) error {
		var err error
		rec, err = u.staking.Unstake(crypto.AccountSigner(owner), record)
		return err
	})
	return rec, err
}

// TransferNative moves native coin between accounts.
func (n *Node) TransferNative(from, to [20]byte, amount uint64) error {
	_, err := n.atomic(types.TxTypeTransferNative.String(), func(u *unit) error {
		return u.ledger.TransferNative(from, to, amount, crypto.AccountSigner(from))
	})
	return err
}

// VerifyCollection marks mint as a verified member of its collection. The
// caller must be the collection's update authority.
func (n *Node) VerifyCollection(authority, mint [20]byte) error {
	_, err := n.atomic(types.TxTypeVerifyCollection.String(), func(u *unit) error {
		return u.registry.VerifyCollection(mint, crypto.AccountSigner(authority))
	})
	return err
}
