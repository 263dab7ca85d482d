package types

// Receipt describes a committed transaction.
type Receipt struct {
	Height    uint64   `json:"height"`
	Timestamp int64    `json:"timestamp"`
	TxHash    string   `json:"txHash"`
	Type      string   `json:"type"`
	Sender    string   `json:"sender"`
	StateRoot string   `json:"stateRoot"`
	Events    []*Event `json:"events"`
}
