package state

import (
	"fmt"

	"stakeledger/native/token"
)

// TokenMint loads a mint definition.
func (m *Manager) TokenMint(addr [20]byte) (*token.Mint, bool, error) {
	var mint token.Mint
	ok, err := m.KVGet(prefixedKey(tokenMintPrefix, addr), &mint)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &mint, true, nil
}

// PutTokenMint stores a mint definition.
func (m *Manager) PutTokenMint(mint *token.Mint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	return m.KVPut(prefixedKey(tokenMintPrefix, mint.Address), mint)
}

// TokenAccount loads a token account.
func (m *Manager) TokenAccount(addr [20]byte) (*token.Account, bool, error) {
	var acc token.Account
	ok, err := m.KVGet(prefixedKey(tokenAccountPrefix, addr), &acc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &acc, true, nil
}

// PutTokenAccount stores a token account.
func (m *Manager) PutTokenAccount(acc *token.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil token account")
	}
	return m.KVPut(prefixedKey(tokenAccountPrefix, acc.Address), acc)
}

// DeleteTokenAccount removes a token account.
func (m *Manager) DeleteTokenAccount(addr [20]byte) error {
	return m.KVDelete(prefixedKey(tokenAccountPrefix, addr))
}

// NativeBalance returns the native coin balance of addr. Unknown addresses hold
// zero.
func (m *Manager) NativeBalance(addr [20]byte) (uint64, error) {
	var balance uint64
	if _, err := m.KVGet(prefixedKey(nativeBalancePrefix, addr), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// SetNativeBalance overwrites the native coin balance of addr. A zero balance
// removes the entry.
func (m *Manager) SetNativeBalance(addr [20]byte, amount uint64) error {
	key := prefixedKey(nativeBalancePrefix, addr)
	if amount == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

// HeldDeposit returns the storage deposit held on behalf of holder.
func (m *Manager) HeldDeposit(holder [20]byte) (uint64, error) {
	var amount uint64
	if _, err := m.KVGet(prefixedKey(depositPrefix, holder), &amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// SetHeldDeposit records the storage deposit held on behalf of holder.
func (m *Manager) SetHeldDeposit(holder [20]byte, amount uint64) error {
	key := prefixedKey(depositPrefix, holder)
	if amount == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}
