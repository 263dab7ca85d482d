package core

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	coreerrors "stakeledger/core/errors"
	"stakeledger/core/genesis"
	coretx "stakeledger/core/tx"
	"stakeledger/core/types"
	"stakeledger/crypto"
	"stakeledger/native/staking"
)

// ApplyTransaction verifies tx, dispatches it by type and advances the
// sender's nonce, all inside one atomic unit. A rejected transaction leaves
// state (including the nonce) unchanged.
func (n *Node) ApplyTransaction(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", coreerrors.ErrInvalidPayload)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInvalidPayload, err)
	}
	var sender [20]byte
	var timestamp int64
	commit, err := n.atomic(tx.Type.String(), func(u *unit) error {
		from, err := coretx.CheckEnvelope(u.manager, tx, n.chainID)
		if err != nil {
			return err
		}
		sender = from
		timestamp = n.nowFn()
		if err := dispatch(u, from, tx); err != nil {
			return err
		}
		return u.manager.SetNonce(from, tx.Nonce+1)
	})
	if err != nil {
		return nil, err
	}
	receipt := &types.Receipt{
		Height:    commit.Height,
		Timestamp: timestamp,
		TxHash:    "0x" + hex.EncodeToString(hash),
		Type:      tx.Type.String(),
		Sender:    crypto.FromArray(sender).String(),
		StateRoot: commit.Root.Hex(),
		Events:    make([]*types.Event, 0, len(commit.Events)),
	}
	for _, evt := range commit.Events {
		if typed, ok := evt.(interface{ Event() *types.Event }); ok {
			if payload := typed.Event(); payload != nil {
				receipt.Events = append(receipt.Events, payload)
			}
		}
	}
	n.logger.Info("transaction applied",
		slog.String("tx", receipt.TxHash),
		slog.String("type", receipt.Type),
		slog.String("sender", receipt.Sender),
		slog.Uint64("height", receipt.Height),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func decode(tx *types.Transaction, out interface{}) error {
	if err := tx.DecodePayload(out); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrInvalidPayload, err)
	}
	return nil
}

func payloadAddress(raw string, parse func(string) ([20]byte, error), field string) ([20]byte, error) {
	addr, err := parse(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", coreerrors.ErrInvalidPayload, field, err)
	}
	return addr, nil
}

func dispatch(u *unit, from [20]byte, tx *types.Transaction) error {
	signer := crypto.AccountSigner(from)
	switch tx.Type {
	case types.TxTypeCreateConfig:
		var payload types.CreateConfigPayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		policy, ok := staking.ParseNativePolicy(payload.NativePolicy)
		if !ok {
			return fmt.Errorf("%w: %q", staking.ErrInvalidPolicy, payload.NativePolicy)
		}
		var collection [20]byte
		if payload.Collection != "" {
			addr, err := payloadAddress(payload.Collection, genesis.ParseBech32Mint, "collection")
			if err != nil {
				return err
			}
			collection = addr
		}
		_, err := u.staking.CreateConfig(signer, staking.ConfigParams{
			PointsPerNFT:          payload.PointsPerNFT,
			PointsPerNativeUnit:   payload.PointsPerNativeUnit,
			PointsPerFungibleUnit: payload.PointsPerFungibleUnit,
			MinFreezePeriod:       payload.MinFreezePeriod,
			NativePolicy:          policy,
			Collection:            collection,
		})
		return err
	case types.TxTypeCreateParticipant:
		_, err := u.staking.CreateParticipant(signer)
		return err
	case types.TxTypeStakeNFT:
		var payload types.StakeNFTPayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		mint, err := payloadAddress(payload.Mint, genesis.ParseBech32Mint, "mint")
		if err != nil {
			return err
		}
		_, err = u.staking.StakeNFT(signer, mint, payload.Seq)
		return err
	case types.TxTypeStakeFungible:
		var payload types.StakeFungiblePayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		mint, err := payloadAddress(payload.Mint, genesis.ParseBech32Mint, "mint")
		if err != nil {
			return err
		}
		_, err = u.staking.StakeFungible(signer, mint, payload.Amount, payload.Seq)
		return err
	case types.TxTypeStakeNative:
		var payload types.StakeNativePayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		_, err := u.staking.StakeNative(signer, payload.Amount, payload.Seq)
		return err
	case types.TxTypeUnstake:
		var payload types.UnstakePayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		record, err := payloadAddress(payload.Record, genesis.ParseBech32Account, "record")
		if err != nil {
			return err
		}
		_, err = u.staking.Unstake(signer, record)
		return err
	case types.TxTypeTransferNative:
		var payload types.TransferNativePayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		to, err := payloadAddress(payload.To, genesis.ParseBech32Account, "to")
		if err != nil {
			return err
		}
		return u.ledger.TransferNative(from, to, payload.Amount, signer)
	case types.TxTypeVerifyCollection:
		var payload types.VerifyCollectionPayload
		if err := decode(tx, &payload); err != nil {
			return err
		}
		mint, err := payloadAddress(payload.Mint, genesis.ParseBech32Mint, "mint")
		if err != nil {
			return err
		}
		if err := u.registry.VerifyCollection(mint, signer); err != nil {
			return fmt.Errorf("verify collection: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: 0x%02x", coreerrors.ErrUnknownTxType, byte(tx.Type))
	}
}
