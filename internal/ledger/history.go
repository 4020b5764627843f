package ledger

import "github.com/kopeckbot/kopeck/internal/model"

// history is the bounded stack of receipts backing undo. It is owned
// by the writer and only mutated under the writer's lock.
type history struct {
	receipts []model.Receipt
	limit    int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = 20
	}
	return &history{limit: limit}
}

// push records a receipt, evicting the oldest once the bound is hit.
// An evicted receipt can no longer be undone.
func (h *history) push(r model.Receipt) {
	h.receipts = append(h.receipts, r)
	if len(h.receipts) > h.limit {
		h.receipts = h.receipts[len(h.receipts)-h.limit:]
	}
}

// pop removes and returns the most recent receipt. The second return
// is false when the history is empty.
func (h *history) pop() (model.Receipt, bool) {
	if len(h.receipts) == 0 {
		return model.Receipt{}, false
	}
	r := h.receipts[len(h.receipts)-1]
	h.receipts = h.receipts[:len(h.receipts)-1]
	return r, true
}

// shiftAfter decrements the row reference of every receipt below a
// deleted row. Deleting row N moves rows N+1.. up by one.
func (h *history) shiftAfter(deletedRow int64) {
	for i := range h.receipts {
		if h.receipts[i].Row > deletedRow {
			h.receipts[i].Row--
		}
	}
}

// snapshot returns a copy of the stack, oldest first.
func (h *history) snapshot() []model.Receipt {
	out := make([]model.Receipt, len(h.receipts))
	copy(out, h.receipts)
	return out
}

// restore replaces the stack, trimming to the bound.
func (h *history) restore(receipts []model.Receipt) {
	h.receipts = h.receipts[:0]
	for _, r := range receipts {
		h.push(r)
	}
}
