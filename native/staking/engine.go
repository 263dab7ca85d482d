package staking

import (
	"errors"
	"log/slog"
	"time"

	"stakeledger/core/events"
	"stakeledger/core/types"
	"stakeledger/crypto"
	"stakeledger/native/common"
	"stakeledger/native/nft"
	"stakeledger/native/token"
)

// ModuleName identifies the staking module in operator pause lists.
const ModuleName = "staking"

type engineState interface {
	StakingConfig() (*Config, bool, error)
	PutStakingConfig(cfg *Config) error
	StakingParticipant(owner [20]byte) (*Participant, bool, error)
	PutStakingParticipant(p *Participant) error
	StakeRecord(addr [20]byte) (*StakeRecord, bool, error)
	PutStakeRecord(rec *StakeRecord) error
	DeleteStakeRecord(rec *StakeRecord) error
	StakeRecordsByOwner(owner [20]byte) ([][20]byte, error)
}

// Ledger is the fungible ledger capability used for reward minting, vault
// escrow and NFT delegation.
type Ledger interface {
	CreateMint(mint crypto.Signer, decimals uint8, mintAuthority, freezeAuthority [20]byte) (*token.Mint, error)
	Account(addr [20]byte) (*token.Account, error)
	EnsureAccount(payer crypto.Signer, owner, mint [20]byte) ([20]byte, error)
	OpenAccount(payer crypto.Signer, owner, mint [20]byte) ([20]byte, error)
	Transfer(from, to [20]byte, amount uint64, auth crypto.Signer) error
	MintTo(mint, to [20]byte, amount uint64, auth crypto.Signer) error
	Approve(account, delegate [20]byte, amount uint64, auth crypto.Signer) error
	Revoke(account [20]byte, auth crypto.Signer) error
	CloseAccount(account, destination [20]byte, auth crypto.Signer) error
	NativeBalance(addr [20]byte) (uint64, error)
	TransferNative(from, to [20]byte, amount uint64, auth crypto.Signer) error
	ChargeDeposit(payer crypto.Signer, holder [20]byte, amount uint64) error
	RefundDeposit(holder, recipient [20]byte) (uint64, error)
}

// Registry is the NFT registry capability used by delegated-freeze custody.
type Registry interface {
	MembershipProof(mint [20]byte) (nft.MembershipProof, error)
	FreezeDelegated(account [20]byte, delegate crypto.Signer) error
	ThawDelegated(account [20]byte, delegate crypto.Signer) error
}

type stakingEvent struct {
	evt events.Typed
}

func (e stakingEvent) EventType() string { return e.evt.EventType() }

func (e stakingEvent) Event() *types.Event { return e.evt.Event() }

// Engine implements the staking state machine: config registry, participant
// ledger, stake records, custody and reward minting. It holds no state of its
// own between calls; the node binds a fresh engine to each atomic unit.
type Engine struct {
	state         engineState
	ledger        Ledger
	registry      Registry
	emitter       events.Emitter
	logger        *slog.Logger
	pauses        common.PauseView
	admin         [20]byte
	recordDeposit uint64
	nowFn         func() int64
}

// NewEngine creates a staking engine with a no-op emitter and the wall clock.
func NewEngine(state engineState, ledger Ledger, registry Registry) *Engine {
	return &Engine{
		state:    state,
		ledger:   ledger,
		registry: registry,
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetAdmin restricts CreateConfig to the supplied caller. A zero address
// leaves config creation open to the first caller.
func (e *Engine) SetAdmin(admin [20]byte) { e.admin = admin }

// SetPauses installs the operator pause view. A paused staking module
// rejects new stakes; unstaking matured positions stays available.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetRecordDeposit configures the native deposit charged per open stake
// record and refunded when the record is destroyed.
func (e *Engine) SetRecordDeposit(amount uint64) { e.recordDeposit = amount }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

func (e *Engine) emit(evt events.Typed) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(stakingEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.ledger == nil || e.registry == nil {
		return ErrNilState
	}
	return nil
}

func (e *Engine) loadConfig() (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, ok, err := e.state.StakingConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) loadParticipant(owner [20]byte) (*Participant, error) {
	p, ok, err := e.state.StakingParticipant(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return p, nil
}

func (e *Engine) loadRecord(addr [20]byte) (*StakeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	rec, ok, err := e.state.StakeRecord(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	return rec, nil
}

// Config returns the deployment config.
func (e *Engine) Config() (*Config, error) {
	return e.loadConfig()
}

// Participant returns the participant ledger of owner.
func (e *Engine) Participant(owner [20]byte) (*Participant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadParticipant(owner)
}

// StakeRecord returns an open stake record.
func (e *Engine) StakeRecord(addr [20]byte) (*StakeRecord, error) {
	return e.loadRecord(addr)
}

// StakesByOwner lists the open stake records of owner in creation order.
func (e *Engine) StakesByOwner(owner [20]byte) ([]*StakeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	addrs, err := e.state.StakeRecordsByOwner(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*StakeRecord, 0, len(addrs))
	for _, addr := range addrs {
		rec, err := e.loadRecord(addr)
		if errors.Is(err, ErrStakeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecordAddress returns the record address owner would get for asset and seq
// under the current config.
func (e *Engine) RecordAddress(owner, asset [20]byte, seq uint64) ([20]byte, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return [20]byte{}, err
	}
	return RecordAddress(cfg.Address, owner, asset, seq), nil
}
