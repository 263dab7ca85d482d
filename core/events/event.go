package events

import (
	"sync"

	"stakeledger/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// Typed is implemented by events that can render themselves as a broadcastable
// attribute map.
type Typed interface {
	Event
	Event() *types.Event
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events until Flush or Discard is called. The node uses it to
// hold events produced inside an atomic operation until the state commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Flush forwards the buffered events to target in emission order and clears
// the buffer.
func (b *Buffer) Flush(target Emitter) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if target != nil {
		for _, evt := range pending {
			target.Emit(evt)
		}
	}
	return pending
}

// Discard drops every buffered event.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Fanout forwards every event to each configured emitter.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, emitter := range f {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
