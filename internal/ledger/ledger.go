// Package ledger keeps the ordered, deduplicated message list of the open room.
package ledger

import (
	"sync"

	"LiveDesk/entity"
)

// Ledger preserves first-arrival order and never holds two messages with the same key.
type Ledger struct {
	mu    sync.RWMutex
	items []entity.Message
	keys  map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		keys: make(map[string]struct{}),
	}
}

// Append adds m at the end unless a message with the same key is already present.
// It reports whether the ledger changed.
func (l *Ledger) Append(m entity.Message) bool {
	key := m.Key()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.keys[key]; ok {
		return false
	}
	m.ID = key
	l.keys[key] = struct{}{}
	l.items = append(l.items, m)
	return true
}

// Replace overwrites the ledger with history. Duplicate keys inside history keep the first one.
func (l *Ledger) Replace(history []entity.Message) {
	items := make([]entity.Message, 0, len(history))
	keys := make(map[string]struct{}, len(history))
	for _, m := range history {
		key := m.Key()
		if _, ok := keys[key]; ok {
			continue
		}
		m.ID = key
		keys[key] = struct{}{}
		items = append(items, m)
	}

	l.mu.Lock()
	l.items = items
	l.keys = keys
	l.mu.Unlock()
}

func (l *Ledger) Has(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.keys[key]
	return ok
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Messages returns a copy of the ledger in arrival order.
func (l *Ledger) Messages() []entity.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.Message, len(l.items))
	copy(out, l.items)
	return out
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.Replace(nil)
}
