package checkout

import "sync"

type ledgerEntry int

const (
	paymentInFlight ledgerEntry = iota + 1
	paymentSpent
)

// PaymentLedger remembers which captured payment ids are being submitted or already
// produced an order. One ledger is shared by every checkout of a session.
type PaymentLedger struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{entries: make(map[string]ledgerEntry)}
}

// Reserve claims id for one submission. It fails when id is in flight or spent.
func (l *PaymentLedger) Reserve(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.entries[id]; taken {
		return false
	}
	l.entries[id] = paymentInFlight
	return true
}

func (l *PaymentLedger) Spend(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = paymentSpent
}

// Release gives an in-flight id back after a failed write.
func (l *PaymentLedger) Release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries[id] == paymentInFlight {
		delete(l.entries, id)
	}
}

func (l *PaymentLedger) Spent(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[id] == paymentSpent
}
