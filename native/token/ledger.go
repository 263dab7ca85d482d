package token

import (
	"fmt"

	"stakeledger/crypto"
	"stakeledger/native/common"
)

// State describes the storage the ledger needs from the surrounding state
// implementation.
type State interface {
	TokenMint(addr [20]byte) (*Mint, bool, error)
	PutTokenMint(mint *Mint) error
	TokenAccount(addr [20]byte) (*Account, bool, error)
	PutTokenAccount(account *Account) error
	DeleteTokenAccount(addr [20]byte) error
	NativeBalance(addr [20]byte) (uint64, error)
	SetNativeBalance(addr [20]byte, amount uint64) error
	HeldDeposit(holder [20]byte) (uint64, error)
	SetHeldDeposit(holder [20]byte, amount uint64) error
}

// Ledger implements fungible token mints, token accounts and the native coin.
// Every mutating call takes a crypto.Signer and checks it against the stored
// owner, delegate or authority before touching state.
type Ledger struct {
	state          State
	accountDeposit uint64
}

// NewLedger binds a ledger to the supplied state.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// SetAccountDeposit configures the native amount escrowed when a token account
// is opened. The deposit is returned when the account is closed.
func (l *Ledger) SetAccountDeposit(amount uint64) { l.accountDeposit = amount }

// AccountDeposit returns the configured token account deposit.
func (l *Ledger) AccountDeposit() uint64 { return l.accountDeposit }

// AssociatedAccount returns the canonical token account address for owner and
// mint.
func AssociatedAccount(owner, mint [20]byte) [20]byte {
	return crypto.DeriveAddress(crypto.TokenProgram, []byte("account"), owner[:], mint[:])
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return nil
}

// CreateMint registers a new mint at the signer's address.
func (l *Ledger) CreateMint(mint crypto.Signer, decimals uint8, mintAuthority, freezeAuthority [20]byte) (*Mint, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	addr := mint.Address()
	if !mint.Authorizes(addr) {
		return nil, ErrUnauthorized
	}
	if _, ok, err := l.state.TokenMint(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMintExists
	}
	m := &Mint{
		Address:         addr,
		Decimals:        decimals,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}
	if err := l.state.PutTokenMint(m); err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// Mint loads a mint definition.
func (l *Ledger) Mint(addr [20]byte) (*Mint, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	m, ok, err := l.state.TokenMint(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	return m, nil
}

// Account loads a token account.
func (l *Ledger) Account(addr [20]byte) (*Account, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	acc, ok, err := l.state.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// OpenAccount creates the associated token account of owner for mint. The
// payer funds the account deposit.
func (l *Ledger) OpenAccount(payer crypto.Signer, owner, mint [20]byte) ([20]byte, error) {
	if err := l.ready(); err != nil {
		return [20]byte{}, err
	}
	if _, err := l.Mint(mint); err != nil {
		return [20]byte{}, err
	}
	addr := AssociatedAccount(owner, mint)
	if _, ok, err := l.state.TokenAccount(addr); err != nil {
		return [20]byte{}, err
	} else if ok {
		return [20]byte{}, ErrAccountExists
	}
	if err := l.ChargeDeposit(payer, addr, l.accountDeposit); err != nil {
		return [20]byte{}, err
	}
	acc := &Account{Address: addr, Mint: mint, Owner: owner}
	if err := l.state.PutTokenAccount(acc); err != nil {
		return [20]byte{}, err
	}
	return addr, nil
}

// EnsureAccount returns the associated account, opening it when missing.
func (l *Ledger) EnsureAccount(payer crypto.Signer, owner, mint [20]byte) ([20]byte, error) {
	if err := l.ready(); err != nil {
		return [20]byte{}, err
	}
	addr := AssociatedAccount(owner, mint)
	if _, ok, err := l.state.TokenAccount(addr); err != nil {
		return [20]byte{}, err
	} else if ok {
		return addr, nil
	}
	return l.OpenAccount(payer, owner, mint)
}

// Transfer moves amount between two accounts of the same mint. The signer must
// own the source account or be its delegate with sufficient allowance.
func (l *Ledger) Transfer(from, to [20]byte, amount uint64, auth crypto.Signer) error {
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if src.Frozen || dst.Frozen {
		return ErrAccountFrozen
	}
	viaDelegate := false
	switch {
	case auth.Authorizes(src.Owner):
	case src.HasDelegate() && auth.Authorizes(src.Delegate):
		if src.DelegatedAmount < amount {
			return ErrInsufficientFunds
		}
		viaDelegate = true
	default:
		return ErrUnauthorized
	}
	if src.Amount < amount {
		return ErrInsufficientFunds
	}
	if from == to || amount == 0 {
		return nil
	}
	credited, err := common.AddU64(dst.Amount, amount)
	if err != nil {
		return ErrOverflow
	}
	src.Amount -= amount
	dst.Amount = credited
	if viaDelegate {
		src.DelegatedAmount -= amount
		if src.DelegatedAmount == 0 {
			src.Delegate = [20]byte{}
		}
	}
	if err := l.state.PutTokenAccount(src); err != nil {
		return err
	}
	return l.state.PutTokenAccount(dst)
}

// MintTo issues new supply into an account. The signer must be the mint
// authority.
func (l *Ledger) MintTo(mint, to [20]byte, amount uint64, auth crypto.Signer) error {
	m, err := l.Mint(mint)
	if err != nil {
		return err
	}
	if m.MintAuthority == ([20]byte{}) || !auth.Authorizes(m.MintAuthority) {
		return ErrUnauthorized
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if dst.Mint != mint {
		return ErrMintMismatch
	}
	if dst.Frozen {
		return ErrAccountFrozen
	}
	supply, err := common.AddU64(m.Supply, amount)
	if err != nil {
		return ErrOverflow
	}
	balance, err := common.AddU64(dst.Amount, amount)
	if err != nil {
		return ErrOverflow
	}
	m.Supply = supply
	dst.Amount = balance
	if err := l.state.PutTokenMint(m); err != nil {
		return err
	}
	return l.state.PutTokenAccount(dst)
}

// Approve grants delegate the right to move up to amount out of account.
func (l *Ledger) Approve(account, delegate [20]byte, amount uint64, auth crypto.Signer) error {
	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	if !auth.Authorizes(acc.Owner) {
		return ErrUnauthorized
	}
	if acc.Frozen {
		return ErrAccountFrozen
	}
	acc.Delegate = delegate
	acc.DelegatedAmount = amount
	return l.state.PutTokenAccount(acc)
}

// Revoke clears any delegation on the account. Frozen accounts cannot be
// revoked; they must be thawed first.
func (l *Ledger) Revoke(account [20]byte, auth crypto.Signer) error {
	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	if !auth.Authorizes(acc.Owner) {
		return ErrUnauthorized
	}
	if acc.Frozen {
		return ErrAccountFrozen
	}
	acc.Delegate = [20]byte{}
	acc.DelegatedAmount = 0
	return l.state.PutTokenAccount(acc)
}

// Freeze marks an account frozen. The signer must be the mint's freeze
// authority.
func (l *Ledger) Freeze(account [20]byte, auth crypto.Signer) error {
	return l.setFrozen(account, auth, true)
}

// Thaw reverses Freeze.
func (l *Ledger) Thaw(account [20]byte, auth crypto.Signer) error {
	return l.setFrozen(account, auth, false)
}

func (l *Ledger) setFrozen(account [20]byte, auth crypto.Signer, frozen bool) error {
	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	m, err := l.Mint(acc.Mint)
	if err != nil {
		return err
	}
	if m.FreezeAuthority == ([20]byte{}) {
		return ErrNoFreezeAuthority
	}
	if !auth.Authorizes(m.FreezeAuthority) {
		return ErrUnauthorized
	}
	if acc.Frozen == frozen {
		if frozen {
			return ErrAccountFrozen
		}
		return ErrNotFrozen
	}
	acc.Frozen = frozen
	return l.state.PutTokenAccount(acc)
}

// CloseAccount deletes an empty account and returns its deposit to
// destination.
func (l *Ledger) CloseAccount(account, destination [20]byte, auth crypto.Signer) error {
	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	if !auth.Authorizes(acc.Owner) {
		return ErrUnauthorized
	}
	if acc.Frozen {
		return ErrAccountFrozen
	}
	if acc.Amount != 0 {
		return ErrNonZeroBalance
	}
	if err := l.state.DeleteTokenAccount(account); err != nil {
		return err
	}
	_, err = l.RefundDeposit(account, destination)
	return err
}

// NativeBalance returns the native coin balance of addr.
func (l *Ledger) NativeBalance(addr [20]byte) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	return l.state.NativeBalance(addr)
}

// CreditNative adds native coin to addr. Only genesis and test fixtures call
// it; there is no transaction that reaches it.
func (l *Ledger) CreditNative(addr [20]byte, amount uint64) error {
	balance, err := l.NativeBalance(addr)
	if err != nil {
		return err
	}
	next, err := common.AddU64(balance, amount)
	if err != nil {
		return ErrOverflow
	}
	return l.state.SetNativeBalance(addr, next)
}

// TransferNative moves native coin. The signer must hold the source address.
func (l *Ledger) TransferNative(from, to [20]byte, amount uint64, auth crypto.Signer) error {
	if err := l.ready(); err != nil {
		return err
	}
	if !auth.Authorizes(from) {
		return ErrUnauthorized
	}
	if from == to || amount == 0 {
		return nil
	}
	src, err := l.state.NativeBalance(from)
	if err != nil {
		return err
	}
	if src < amount {
		return ErrInsufficientFunds
	}
	dst, err := l.state.NativeBalance(to)
	if err != nil {
		return err
	}
	credited, err := common.AddU64(dst, amount)
	if err != nil {
		return ErrOverflow
	}
	if err := l.state.SetNativeBalance(from, src-amount); err != nil {
		return err
	}
	return l.state.SetNativeBalance(to, credited)
}

// ChargeDeposit moves amount of native coin from the payer into the deposit
// held on behalf of holder.
func (l *Ledger) ChargeDeposit(payer crypto.Signer, holder [20]byte, amount uint64) error {
	if err := l.ready(); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	held, err := l.state.HeldDeposit(holder)
	if err != nil {
		return err
	}
	if held != 0 {
		return ErrDepositExists
	}
	from := payer.Address()
	if !payer.Authorizes(from) {
		return ErrUnauthorized
	}
	balance, err := l.state.NativeBalance(from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: deposit of %d", ErrInsufficientFunds, amount)
	}
	if err := l.state.SetNativeBalance(from, balance-amount); err != nil {
		return err
	}
	return l.state.SetHeldDeposit(holder, amount)
}

// RefundDeposit releases the deposit held for holder to recipient and returns
// the refunded amount.
func (l *Ledger) RefundDeposit(holder, recipient [20]byte) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	held, err := l.state.HeldDeposit(holder)
	if err != nil {
		return 0, err
	}
	if held == 0 {
		return 0, nil
	}
	if err := l.CreditNative(recipient, held); err != nil {
		return 0, err
	}
	if err := l.state.SetHeldDeposit(holder, 0); err != nil {
		return 0, err
	}
	return held, nil
}
