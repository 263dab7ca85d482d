package staking

import (
	"fmt"

	"stakeledger/crypto"
	"stakeledger/native/token"
)

// custody moves a staked asset in and out of program control. lock fills
// rec.HoldingAccount; unlock returns the quantity handed back to the owner.
type custody interface {
	lock(rec *StakeRecord, owner crypto.Signer) error
	unlock(rec *StakeRecord, owner crypto.Signer) (uint64, error)
}

func (e *Engine) custodyFor(cfg *Config, class AssetClass) (custody, CustodyKind, error) {
	switch class {
	case AssetNFT:
		return delegatedFreeze{engine: e, cfg: cfg}, CustodyDelegatedFreeze, nil
	case AssetFungible, AssetNative:
		return vaultEscrow{engine: e, cfg: cfg}, CustodyVaultEscrow, nil
	default:
		return nil, 0, ErrWrongAssetClass
	}
}

// delegatedFreeze keeps the NFT in the owner's token account. The record
// becomes the delegate for exactly one unit and the account is frozen through
// the registry; the freeze blocks transfer, revoke and close until thawed.
type delegatedFreeze struct {
	engine *Engine
	cfg    *Config
}

func (d delegatedFreeze) lock(rec *StakeRecord, owner crypto.Signer) error {
	account := token.AssociatedAccount(rec.Owner, rec.Asset)
	if err := d.engine.ledger.Approve(account, rec.Address, 1, owner); err != nil {
		return fmt.Errorf("approve record delegate: %w", err)
	}
	if err := d.engine.registry.FreezeDelegated(account, recordSigner(d.cfg.Address, rec)); err != nil {
		return fmt.Errorf("freeze delegated: %w", err)
	}
	rec.HoldingAccount = account
	return nil
}

// unlock thaws before revoking: once the delegation is gone nothing can sign
// the thaw any more.
func (d delegatedFreeze) unlock(rec *StakeRecord, owner crypto.Signer) (uint64, error) {
	if err := d.engine.registry.ThawDelegated(rec.HoldingAccount, recordSigner(d.cfg.Address, rec)); err != nil {
		return 0, fmt.Errorf("thaw delegated: %w", err)
	}
	if err := d.engine.ledger.Revoke(rec.HoldingAccount, owner); err != nil {
		return 0, fmt.Errorf("revoke record delegate: %w", err)
	}
	return rec.Amount, nil
}

// vaultEscrow moves the principal into a vault only the record can sign for.
// Fungible tokens go to a token account owned by the record; native coin goes
// to the address derived from ["vault", record].
type vaultEscrow struct {
	engine *Engine
	cfg    *Config
}

func (v vaultEscrow) lock(rec *StakeRecord, owner crypto.Signer) error {
	ledger := v.engine.ledger
	switch rec.Class {
	case AssetFungible:
		vault, err := ledger.OpenAccount(owner, rec.Address, rec.Asset)
		if err != nil {
			return fmt.Errorf("open vault: %w", err)
		}
		source := token.AssociatedAccount(rec.Owner, rec.Asset)
		if err := ledger.Transfer(source, vault, rec.Amount, owner); err != nil {
			return fmt.Errorf("escrow transfer: %w", err)
		}
		rec.HoldingAccount = vault
	case AssetNative:
		vault := VaultAddress(rec.Address)
		if err := ledger.TransferNative(rec.Owner, vault, rec.Amount, owner); err != nil {
			return fmt.Errorf("escrow transfer: %w", err)
		}
		rec.HoldingAccount = vault
	default:
		return ErrWrongAssetClass
	}
	return nil
}

// unlock returns the whole vault balance, which may exceed the recorded
// amount if someone topped the vault up.
func (v vaultEscrow) unlock(rec *StakeRecord, owner crypto.Signer) (uint64, error) {
	ledger := v.engine.ledger
	switch rec.Class {
	case AssetFungible:
		vault, err := ledger.Account(rec.HoldingAccount)
		if err != nil {
			return 0, fmt.Errorf("load vault: %w", err)
		}
		destination, err := ledger.EnsureAccount(owner, rec.Owner, rec.Asset)
		if err != nil {
			return 0, fmt.Errorf("open owner account: %w", err)
		}
		auth := recordSigner(v.cfg.Address, rec)
		if err := ledger.Transfer(rec.HoldingAccount, destination, vault.Amount, auth); err != nil {
			return 0, fmt.Errorf("release transfer: %w", err)
		}
		if err := ledger.CloseAccount(rec.HoldingAccount, rec.Owner, auth); err != nil {
			return 0, fmt.Errorf("close vault: %w", err)
		}
		return vault.Amount, nil
	case AssetNative:
		balance, err := ledger.NativeBalance(rec.HoldingAccount)
		if err != nil {
			return 0, err
		}
		if err := ledger.TransferNative(rec.HoldingAccount, rec.Owner, balance, vaultSigner(rec.Address)); err != nil {
			return 0, fmt.Errorf("release transfer: %w", err)
		}
		return balance, nil
	default:
		return 0, ErrWrongAssetClass
	}
}
