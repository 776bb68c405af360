package capture

import "sync"

// Mailbox is a single-slot holding area read by polling hosts. Put
// overwrites an unread value; Take reads and clears.
type Mailbox[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
}

// Put stores v, replacing any unread value
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
	m.full = true
}

// Take returns the stored value and empties the box
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.value, m.full
	var zero T
	m.value = zero
	m.full = false
	return v, ok
}

// Clear drops an unread value
func (m *Mailbox[T]) Clear() {
	m.Take()
}
