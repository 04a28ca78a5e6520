package export

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps exported rows in process memory. It backs development setups
// and tests where no spreadsheet is wired up.
type Memory struct {
	mu   sync.Mutex
	rows []Row
}

var _ Exporter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

// Append stores the row and returns a synthetic row reference.
func (m *Memory) Append(_ context.Context, row Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (m *Memory) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.rows...)
}
