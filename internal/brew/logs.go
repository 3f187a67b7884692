package brew

import (
	"sync"
)

// Log is the record of one brew attempt
type Log struct {
	Timestamp uint64
	Doctor    uint32
	Succeeded bool
	Epoch     uint64
}

// LogStore is the append-only journal of brew attempts. Appends of one call
// land together or not at all.
type LogStore interface {
	Append(logs ...Log) error
	All() ([]Log, error)
	ByDoctor(doctor uint32) ([]Log, error)
	// Recent returns the last n logs, oldest first
	Recent(n int) ([]Log, error)
	Len() (uint64, error)
}

// MemoryLogs keeps logs in process memory
type MemoryLogs struct {
	mu       sync.RWMutex
	logs     []Log
	byDoctor map[uint32][]int
}

func NewMemoryLogs() *MemoryLogs {
	return &MemoryLogs{byDoctor: make(map[uint32][]int)}
}

func (m *MemoryLogs) Append(logs ...Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range logs {
		m.byDoctor[l.Doctor] = append(m.byDoctor[l.Doctor], len(m.logs))
		m.logs = append(m.logs, l)
	}
	return nil
}

func (m *MemoryLogs) All() ([]Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Log(nil), m.logs...), nil
}

func (m *MemoryLogs) ByDoctor(doctor uint32) ([]Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byDoctor[doctor]
	out := make([]Log, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *MemoryLogs) Recent(n int) ([]Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 {
		return nil, nil
	}
	from := max(len(m.logs)-n, 0)
	return append([]Log(nil), m.logs[from:]...), nil
}

func (m *MemoryLogs) Len() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.logs)), nil
}
