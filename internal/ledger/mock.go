package ledger

import (
	"context"
	"sync"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/model"
)

// MockLedger is an in-memory Ledger for testing. Rows holds every
// transaction still present, in append order.
type MockLedger struct {
	Rows      []model.Transaction
	AppendErr error
	history   *history
	nextRow   int64
	mu        sync.Mutex
}

// NewMockLedger creates a mock ledger with an unbounded-ish history.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		history: newHistory(100),
		nextRow: 2, // row 1 is the header
	}
}

// Append records the transaction in memory.
func (m *MockLedger) Append(_ context.Context, tx model.Transaction, messageKey string) (model.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return model.Receipt{}, m.AppendErr
	}

	m.Rows = append(m.Rows, tx)
	receipt := model.Receipt{
		Row:        m.nextRow,
		MessageKey: messageKey,
		Summary:    tx.Description,
	}
	m.nextRow++
	m.history.push(receipt)

	return receipt, nil
}

// Undo removes the most recently appended row.
func (m *MockLedger) Undo(_ context.Context) (model.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	receipt, ok := m.history.pop()
	if !ok {
		return model.Receipt{}, common.ErrNothingToUndo
	}

	if len(m.Rows) > 0 {
		m.Rows = m.Rows[:len(m.Rows)-1]
	}
	m.nextRow--
	m.history.shiftAfter(receipt.Row)

	return receipt, nil
}

// History returns a copy of the receipt stack.
func (m *MockLedger) History() []model.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.snapshot()
}

// Restore replaces the receipt stack.
func (m *MockLedger) Restore(receipts []model.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.restore(receipts)
}
