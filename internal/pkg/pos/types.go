package pos

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a supported POS vendor.
type Provider string

const (
	ProviderToast  Provider = "toast"
	ProviderClover Provider = "clover"
	ProviderSquare Provider = "square"
	ProviderMock   Provider = "mock"
)

// ParseProvider maps a route/config string to a known Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderToast, ProviderClover, ProviderSquare, ProviderMock:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// Credentials hold everything needed to authenticate against a provider.
// Immutable once issued; rotated by replacing the whole set.
type Credentials struct {
	Provider     Provider
	ClientID     string
	ClientSecret string
	LocationID   string
	// Extra carries provider-specific values (e.g. "auth_code" for OAuth
	// code exchange, "merchant_id" for Clover).
	Extra map[string]string
}

// Session is a short-lived authenticated session with a provider.
// Never persisted; cached in memory only and re-derived when expired.
type Session struct {
	Provider     Provider
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	// Extra carries provider-specific session state (e.g. merchant id).
	Extra map[string]string
}

// Expired reports whether the session needs to be refreshed or re-derived.
// A small skew window avoids using a token that dies mid-request.
func (s *Session) Expired() bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return time.Now().After(s.ExpiresAt.Add(-30 * time.Second))
}

// Modifier is a single selectable option under a modifier group.
type Modifier struct {
	ExternalID      string
	Name            string
	PriceAdjustment int64 // minor units (cents); may be negative
	IsAvailable     bool
}

// ModifierGroup bundles modifiers with selection constraints.
type ModifierGroup struct {
	ExternalID    string
	Name          string
	MinSelections int
	MaxSelections int
	Modifiers     []Modifier
}

// MenuItem is one orderable item as the provider reports it.
// Prices are normalized to minor units regardless of vendor convention.
type MenuItem struct {
	ExternalID     string
	Name           string
	Description    string
	Price          int64 // minor units
	ImageURL       string
	IsAvailable    bool
	ModifierGroups []ModifierGroup
	IsVegetarian   bool
	IsVegan        bool
	IsGlutenFree   bool
	Allergens      []string
}

// MenuCategory groups items within a menu.
type MenuCategory struct {
	ExternalID  string
	Name        string
	Description string
	Items       []MenuItem
}

// Menu is a complete menu as the provider reports it.
type Menu struct {
	ExternalID     string
	Name           string
	Description    string
	Categories     []MenuCategory
	AvailableStart string // "HH:MM", empty if always available
	AvailableEnd   string
}

// OrderType is the fulfillment mode of an order.
type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

// OrderState is the provider-visible lifecycle of a submitted order.
type OrderState string

const (
	OrderStatePending   OrderState = "pending"
	OrderStateConfirmed OrderState = "confirmed"
	OrderStatePreparing OrderState = "preparing"
	OrderStateReady     OrderState = "ready"
	OrderStateCompleted OrderState = "completed"
	OrderStateCancelled OrderState = "cancelled"
)

// OrderItemModifier is a selected modifier on an order line.
type OrderItemModifier struct {
	ExternalID      string
	Name            string
	PriceAdjustment int64
}

// OrderItem is a line item as submitted to the provider. All values are
// snapshots taken at order time, never live catalog joins.
type OrderItem struct {
	MenuItemExternalID  string
	Name                string
	Quantity            int
	UnitPrice           int64
	Modifiers           []OrderItemModifier
	SpecialInstructions string
}

// Order is the provider-neutral order shape submitted to an adapter.
type Order struct {
	// Reference is the caller's own order id, passed through for
	// provider-side idempotency where supported.
	Reference           string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	OrderType           OrderType
	ScheduledTime       *time.Time // nil = ASAP
	SpecialInstructions string
	Items               []OrderItem
	Subtotal            int64
	Tax                 int64
	Tip                 int64
	Total               int64
}

// OrderResult is what a provider returns for a successful submission.
type OrderResult struct {
	ExternalID         string
	State              OrderState
	EstimatedReadyTime *time.Time
	ConfirmationCode   string
}

// OrderStatusInfo is the provider's current view of a submitted order.
type OrderStatusInfo struct {
	ExternalID         string
	State              OrderState
	EstimatedReadyTime *time.Time
	UpdatedAt          time.Time
}
