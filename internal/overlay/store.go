package overlay

import (
	"sync"

	"github.com/ichi0g0y/bits-wheel/internal/spin"
)

// Store persists donor lifetime totals and the pending spin queue.
// Failures are tolerated by the Engine; in-memory state stays authoritative.
type Store interface {
	LoadDonorTotals() (map[string]int, error)
	SaveDonorTotals(totals map[string]int) error
	LoadQueue() ([]spin.Request, error)
	SaveQueue(queue []spin.Request) error
}

// MemoryStore keeps state in process memory only.
type MemoryStore struct {
	mu     sync.Mutex
	totals map[string]int
	queue  []spin.Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{totals: map[string]int{}}
}

func (m *MemoryStore) LoadDonorTotals() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) SaveDonorTotals(totals map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals = make(map[string]int, len(totals))
	for k, v := range totals {
		m.totals[k] = v
	}
	return nil
}

func (m *MemoryStore) LoadQueue() ([]spin.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]spin.Request(nil), m.queue...), nil
}

func (m *MemoryStore) SaveQueue(queue []spin.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]spin.Request(nil), queue...)
	return nil
}
