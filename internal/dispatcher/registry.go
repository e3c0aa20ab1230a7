package dispatcher

import (
	"errors"
	"sync"

	"github.com/kdious/smartcar-proxy/pkg/adapter"
)

// DefaultMaxTransactions bounds the number of concurrently open transactions.
const DefaultMaxTransactions = 32767

var (
	ErrRegistryFull       = errors.New("dispatcher: transaction registry full")
	ErrUnknownTransaction = errors.New("dispatcher: unknown transaction")
	ErrStaleTransaction   = errors.New("dispatcher: stale transaction")
)

// Registry maps open transaction IDs to their Transaction.
//
// IDs come from a 64-bit counter and occupy slot ID mod bound. An ID is never handed out while
// its slot is occupied, and Take verifies the full ID, so a completion that arrives after its
// slot has been reused cannot reach the new occupant.
type Registry struct {
	lock  sync.Mutex
	next  uint64
	slots []*Transaction
	count int
}

// NewRegistry returns a Registry that holds at most bound open transactions. Non-positive bounds
// select DefaultMaxTransactions.
func NewRegistry(bound int) *Registry {
	if bound < 1 {
		bound = DefaultMaxTransactions
	}
	return &Registry{slots: make([]*Transaction, bound)}
}

// Open stores txn under a fresh ID, which is also written to txn.ID.
func (r *Registry) Open(txn *Transaction) (adapter.TransactionID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	bound := uint64(len(r.slots))
	if r.count == len(r.slots) {
		return 0, ErrRegistryFull
	}
	for {
		id := r.next
		r.next++
		slot := id % bound
		if r.slots[slot] == nil {
			txn.ID = adapter.TransactionID(id)
			r.slots[slot] = txn
			r.count++
			return txn.ID, nil
		}
	}
}

// Take removes and returns the transaction with the given ID.
func (r *Registry) Take(id adapter.TransactionID) (*Transaction, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	slot := uint64(id) % uint64(len(r.slots))
	txn := r.slots[slot]
	if txn == nil || uint64(id) >= r.next {
		return nil, ErrUnknownTransaction
	}
	if txn.ID != id {
		if txn.ID > id {
			return nil, ErrStaleTransaction
		}
		return nil, ErrUnknownTransaction
	}
	r.slots[slot] = nil
	r.count--
	return txn, nil
}

// Drain removes and returns every open transaction.
func (r *Registry) Drain() []*Transaction {
	r.lock.Lock()
	defer r.lock.Unlock()
	var open []*Transaction
	for i, txn := range r.slots {
		if txn != nil {
			open = append(open, txn)
			r.slots[i] = nil
		}
	}
	r.count = 0
	return open
}

// Len returns the number of open transactions.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Cap returns the maximum number of open transactions.
func (r *Registry) Cap() int {
	return len(r.slots)
}
