package state

// Nonce returns the next expected transaction nonce of addr.
func (m *Manager) Nonce(addr [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(prefixedKey(noncePrefix, addr), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// SetNonce stores the next expected transaction nonce of addr.
func (m *Manager) SetNonce(addr [20]byte, nonce uint64) error {
	return m.KVPut(prefixedKey(noncePrefix, addr), nonce)
}
