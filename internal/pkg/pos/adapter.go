package pos

import (
	"context"
	"fmt"
)

// Adapter is the single contract every vendor integration satisfies.
// Per-vendor quirks (pricing units, pagination, signature schemes, auth
// flows) are absorbed inside implementations; callers never see them.
type Adapter interface {
	Provider() Provider

	// Authenticate derives a fresh session from credentials.
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
	// Refresh renews an expiring session. Vendors whose tokens never
	// expire return the session unchanged; vendors without refresh
	// tokens re-authenticate from credentials.
	Refresh(ctx context.Context, session *Session, creds Credentials) (*Session, error)

	GetMenus(ctx context.Context, session *Session, locationID string) ([]Menu, error)
	GetItemAvailability(ctx context.Context, session *Session, locationID string) (map[string]bool, error)

	CreateOrder(ctx context.Context, session *Session, locationID string, order Order) (*OrderResult, error)
	GetOrderStatus(ctx context.Context, session *Session, locationID, externalOrderID string) (*OrderStatusInfo, error)

	// VerifyWebhookSignature checks payload authenticity. requestURL is
	// only consulted by vendors that sign over url+body (Square); other
	// adapters ignore it.
	VerifyWebhookSignature(payload []byte, signature, secret, requestURL string) bool
	// ParseWebhook normalizes a raw payload into an Event.
	ParseWebhook(payload []byte) (*Event, error)
}

// Registry resolves provider ids to adapter instances. It is built once
// at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	adapters map[Provider]Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[Provider]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Registry{adapters: m}
}

// NewDefaultRegistry wires the three production adapters plus the mock.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewToastAdapter(nil),
		NewCloverAdapter(nil, false),
		NewSquareAdapter(nil, false),
		NewMockAdapter(),
	)
}

// Get returns the adapter for a provider or ErrUnknownProvider.
func (r *Registry) Get(p Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	return a, nil
}
