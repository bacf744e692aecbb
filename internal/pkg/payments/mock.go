package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Mock is the in-memory processor used in development and tests. It
// records every refund so tests can assert exactly-once compensation.
type Mock struct {
	mu          sync.Mutex
	refunds     map[string][]int64
	failRefunds bool
	verified    map[string]bool
	nextID      int
}

func NewMock() *Mock {
	return &Mock{
		refunds:  make(map[string][]int64),
		verified: make(map[string]bool),
	}
}

// SetVerified marks a payment reference as captured.
func (m *Mock) SetVerified(paymentRef string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified[paymentRef] = ok
}

// SetFailRefunds toggles injected refund failures.
func (m *Mock) SetFailRefunds(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRefunds = fail
}

// Refunds returns the refund amounts issued against a reference.
func (m *Mock) Refunds(paymentRef string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.refunds[paymentRef]))
	copy(out, m.refunds[paymentRef])
	return out
}

func (m *Mock) VerifyPayment(_ context.Context, paymentRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if paymentRef == "" {
		return false, errors.New("payment reference is required")
	}
	ok, known := m.verified[paymentRef]
	if !known {
		// Unknown references verify by default to keep test setup small.
		return true, nil
	}
	return ok, nil
}

func (m *Mock) CreateRefund(_ context.Context, paymentRef string, amountCents int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRefunds {
		return "", errors.New("mock refund failure")
	}
	if paymentRef == "" {
		return "", errors.New("payment reference is required")
	}
	m.refunds[paymentRef] = append(m.refunds[paymentRef], amountCents)
	m.nextID++
	return fmt.Sprintf("re_mock_%d", m.nextID), nil
}
