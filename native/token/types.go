package token

// Mint describes a fungible (or single-supply non-fungible) token. Zero
// authorities mean the capability is disabled.
type Mint struct {
	Address         [20]byte
	Decimals        uint8
	Supply          uint64
	MintAuthority   [20]byte
	FreezeAuthority [20]byte
}

// Clone returns a copy safe for mutation.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Account is a token holding account. Owner may move the balance; Delegate may
// move up to DelegatedAmount without owning the account. A frozen account
// rejects every balance or delegation change until thawed.
type Account struct {
	Address         [20]byte
	Mint            [20]byte
	Owner           [20]byte
	Amount          uint64
	Delegate        [20]byte
	DelegatedAmount uint64
	Frozen          bool
}

// Clone returns a copy safe for mutation.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// HasDelegate reports whether a delegation is active on the account.
func (a *Account) HasDelegate() bool {
	return a != nil && a.Delegate != ([20]byte{})
}
