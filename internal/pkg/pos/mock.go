package pos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockAdapter is the in-memory provider used in development and tests.
// Every failure mode is configurable: auth failures, order failures,
// artificial latency, and a set of 86'd items.
type MockAdapter struct {
	mu               sync.Mutex
	menus            []Menu
	unavailableItems map[string]struct{}
	failOrders       bool
	failAuth         bool
	authDelay        time.Duration
	apiDelay         time.Duration
	orders           map[string]OrderStatusInfo
	now              func() time.Time
}

type MockOption func(*MockAdapter)

func WithMockMenus(menus []Menu) MockOption {
	return func(m *MockAdapter) { m.menus = menus }
}

func WithMockUnavailableItems(ids ...string) MockOption {
	return func(m *MockAdapter) {
		for _, id := range ids {
			m.unavailableItems[id] = struct{}{}
		}
	}
}

func WithMockFailOrders() MockOption {
	return func(m *MockAdapter) { m.failOrders = true }
}

func WithMockFailAuth() MockOption {
	return func(m *MockAdapter) { m.failAuth = true }
}

func WithMockDelays(authDelay, apiDelay time.Duration) MockOption {
	return func(m *MockAdapter) {
		m.authDelay = authDelay
		m.apiDelay = apiDelay
	}
}

func NewMockAdapter(opts ...MockOption) *MockAdapter {
	m := &MockAdapter{
		unavailableItems: make(map[string]struct{}),
		orders:           make(map[string]OrderStatusInfo),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.menus == nil {
		m.menus = DefaultMockMenus()
	}
	return m
}

func (m *MockAdapter) Provider() Provider {
	return ProviderMock
}

// SetItemUnavailable marks an item as 86'd.
func (m *MockAdapter) SetItemUnavailable(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailableItems[itemID] = struct{}{}
}

// SetItemAvailable clears an item's 86'd flag.
func (m *MockAdapter) SetItemAvailable(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.unavailableItems, itemID)
}

// SetOrderState updates a tracked order, for driving status tests.
func (m *MockAdapter) SetOrderState(orderID string, state OrderState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; ok {
		m.orders[orderID] = OrderStatusInfo{
			ExternalID: orderID,
			State:      state,
			UpdatedAt:  m.now(),
		}
	}
}

// SetFailOrders toggles the injected order failure mode.
func (m *MockAdapter) SetFailOrders(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOrders = fail
}

// Orders returns the orders the adapter has accepted, for asserting
// submission counts in tests.
func (m *MockAdapter) Orders() []OrderStatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderStatusInfo, 0, len(m.orders))
	for _, info := range m.orders {
		out = append(out, info)
	}
	return out
}

func (m *MockAdapter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (m *MockAdapter) Authenticate(ctx context.Context, _ Credentials) (*Session, error) {
	if err := m.sleep(ctx, m.authDelay); err != nil {
		return nil, &AuthError{Provider: ProviderMock, Message: "authentication cancelled", Err: err}
	}
	if m.failAuth {
		return nil, &AuthError{Provider: ProviderMock, Message: "mock authentication failure"}
	}
	return &Session{
		Provider:     ProviderMock,
		AccessToken:  "mock-token-" + shortID(),
		RefreshToken: "mock-refresh-" + shortID(),
		ExpiresAt:    m.now().Add(time.Hour),
	}, nil
}

func (m *MockAdapter) Refresh(ctx context.Context, session *Session, _ Credentials) (*Session, error) {
	if err := m.sleep(ctx, m.authDelay); err != nil {
		return nil, &AuthError{Provider: ProviderMock, Message: "refresh cancelled", Err: err}
	}
	if m.failAuth {
		return nil, &AuthError{Provider: ProviderMock, Message: "mock token refresh failure"}
	}
	refresh := ""
	if session != nil {
		refresh = session.RefreshToken
	}
	return &Session{
		Provider:     ProviderMock,
		AccessToken:  "mock-token-" + shortID(),
		RefreshToken: refresh,
		ExpiresAt:    m.now().Add(time.Hour),
	}, nil
}

func (m *MockAdapter) GetMenus(ctx context.Context, _ *Session, _ string) ([]Menu, error) {
	if err := m.sleep(ctx, m.apiDelay); err != nil {
		return nil, &APIError{Provider: ProviderMock, Message: "request cancelled", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	menus := make([]Menu, len(m.menus))
	for i, menu := range m.menus {
		copied := menu
		copied.Categories = make([]MenuCategory, len(menu.Categories))
		for j, cat := range menu.Categories {
			copiedCat := cat
			copiedCat.Items = make([]MenuItem, len(cat.Items))
			for k, item := range cat.Items {
				_, unavailable := m.unavailableItems[item.ExternalID]
				item.IsAvailable = !unavailable
				copiedCat.Items[k] = item
			}
			copied.Categories[j] = copiedCat
		}
		menus[i] = copied
	}
	return menus, nil
}

func (m *MockAdapter) GetItemAvailability(ctx context.Context, _ *Session, _ string) (map[string]bool, error) {
	if err := m.sleep(ctx, m.apiDelay); err != nil {
		return nil, &APIError{Provider: ProviderMock, Message: "request cancelled", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	availability := make(map[string]bool)
	for _, menu := range m.menus {
		for _, cat := range menu.Categories {
			for _, item := range cat.Items {
				_, unavailable := m.unavailableItems[item.ExternalID]
				availability[item.ExternalID] = !unavailable
			}
		}
	}
	return availability, nil
}

func (m *MockAdapter) CreateOrder(ctx context.Context, _ *Session, _ string, order Order) (*OrderResult, error) {
	if err := m.sleep(ctx, m.apiDelay); err != nil {
		return nil, &APIError{Provider: ProviderMock, Message: "request cancelled", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOrders {
		return nil, &OrderError{Provider: ProviderMock, Message: "mock order creation failure"}
	}
	for _, item := range order.Items {
		if _, unavailable := m.unavailableItems[item.MenuItemExternalID]; unavailable {
			return nil, &OrderError{Provider: ProviderMock, Message: fmt.Sprintf("item is unavailable: %s", item.MenuItemExternalID)}
		}
	}

	orderID := "mock-order-" + shortID()
	ready := m.now().Add(20 * time.Minute)
	m.orders[orderID] = OrderStatusInfo{
		ExternalID:         orderID,
		State:              OrderStateConfirmed,
		EstimatedReadyTime: &ready,
		UpdatedAt:          m.now(),
	}
	return &OrderResult{
		ExternalID:         orderID,
		State:              OrderStateConfirmed,
		EstimatedReadyTime: &ready,
		ConfirmationCode:   strings.ToUpper(shortID()[:6]),
	}, nil
}

func (m *MockAdapter) GetOrderStatus(ctx context.Context, _ *Session, _ string, externalOrderID string) (*OrderStatusInfo, error) {
	if err := m.sleep(ctx, m.apiDelay); err != nil {
		return nil, &APIError{Provider: ProviderMock, Message: "request cancelled", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.orders[externalOrderID]; ok {
		return &info, nil
	}
	return nil, &APIError{Provider: ProviderMock, StatusCode: 404, Message: fmt.Sprintf("order not found: %s", externalOrderID)}
}

func (m *MockAdapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (m *MockAdapter) ParseWebhook(payload []byte) (*Event, error) {
	var raw struct {
		EventType      string `json:"event_type"`
		EventID        string `json:"event_id"`
		OccurredAt     string `json:"occurred_at"`
		MenuID         string `json:"menu_id"`
		ItemID         string `json:"item_id"`
		IsAvailable    *bool  `json:"is_available"`
		OrderID        string `json:"order_id"`
		Status         string `json:"status"`
		PreviousStatus string `json:"previous_status"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &WebhookError{Provider: ProviderMock, Message: "invalid json payload", Err: err}
	}
	if raw.EventType == "" {
		return nil, &WebhookError{Provider: ProviderMock, Message: "missing event_type in payload"}
	}

	occurredAt := m.now()
	if raw.OccurredAt != "" {
		parsed, err := time.Parse(time.RFC3339, raw.OccurredAt)
		if err != nil {
			return nil, &WebhookError{Provider: ProviderMock, Message: "invalid occurred_at", Err: err}
		}
		occurredAt = parsed
	}
	eventID := raw.EventID
	if eventID == "" {
		eventID = shortID()
	}

	switch raw.EventType {
	case "menu_updated":
		return &Event{
			Provider:       ProviderMock,
			Kind:           EventMenuUpdated,
			ExternalID:     eventID,
			OccurredAt:     occurredAt,
			MenuExternalID: raw.MenuID,
		}, nil
	case "item_availability_changed":
		available := true
		if raw.IsAvailable != nil {
			available = *raw.IsAvailable
		}
		return &Event{
			Provider:   ProviderMock,
			Kind:       EventAvailabilityChanged,
			ExternalID: eventID,
			OccurredAt: occurredAt,
			Changes: []AvailabilityChange{
				{ItemExternalID: raw.ItemID, IsAvailable: available},
			},
		}, nil
	case "order_status_changed":
		state := OrderState(raw.Status)
		if state == "" {
			state = OrderStatePending
		}
		return &Event{
			Provider:        ProviderMock,
			Kind:            EventOrderStatusChanged,
			ExternalID:      eventID,
			OccurredAt:      occurredAt,
			OrderExternalID: raw.OrderID,
			OrderState:      state,
			PreviousState:   OrderState(raw.PreviousStatus),
		}, nil
	default:
		return nil, &WebhookError{Provider: ProviderMock, Message: fmt.Sprintf("unknown event type: %s", raw.EventType)}
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// DefaultMockMenus returns the built-in development menu set.
func DefaultMockMenus() []Menu {
	return []Menu{
		{
			ExternalID:     "menu-breakfast",
			Name:           "Breakfast",
			Description:    "Morning favorites",
			AvailableStart: "06:00",
			AvailableEnd:   "11:00",
			Categories: []MenuCategory{
				{
					ExternalID: "cat-eggs",
					Name:       "Eggs & Omelets",
					Items: []MenuItem{
						{
							ExternalID:   "item-scrambled",
							Name:         "Scrambled Eggs",
							Description:  "Three farm-fresh eggs scrambled with butter",
							Price:        899,
							IsAvailable:  true,
							IsVegetarian: true,
							ModifierGroups: []ModifierGroup{
								{
									ExternalID:    "mod-cheese",
									Name:          "Add Cheese",
									MinSelections: 0,
									MaxSelections: 1,
									Modifiers: []Modifier{
										{ExternalID: "mod-cheddar", Name: "Cheddar", PriceAdjustment: 150, IsAvailable: true},
										{ExternalID: "mod-swiss", Name: "Swiss", PriceAdjustment: 150, IsAvailable: true},
									},
								},
							},
						},
						{
							ExternalID:  "item-omelet",
							Name:        "Western Omelet",
							Description: "Ham, peppers, onions, and cheese",
							Price:       1299,
							IsAvailable: true,
							Allergens:   []string{"dairy"},
						},
					},
				},
				{
					ExternalID: "cat-pancakes",
					Name:       "Pancakes & Waffles",
					Items: []MenuItem{
						{
							ExternalID:   "item-pancakes",
							Name:         "Buttermilk Pancakes",
							Description:  "Stack of three fluffy pancakes",
							Price:        999,
							IsAvailable:  true,
							IsVegetarian: true,
							Allergens:    []string{"gluten", "dairy"},
						},
					},
				},
			},
		},
		{
			ExternalID:     "menu-lunch",
			Name:           "Lunch",
			Description:    "Midday meals",
			AvailableStart: "11:00",
			AvailableEnd:   "16:00",
			Categories: []MenuCategory{
				{
					ExternalID: "cat-sandwiches",
					Name:       "Sandwiches",
					Items: []MenuItem{
						{
							ExternalID:  "item-club",
							Name:        "Club Sandwich",
							Description: "Turkey, bacon, lettuce, tomato on toast",
							Price:       1399,
							IsAvailable: true,
							Allergens:   []string{"gluten"},
						},
						{
							ExternalID:   "item-veggie-wrap",
							Name:         "Veggie Wrap",
							Description:  "Fresh vegetables with hummus",
							Price:        1199,
							IsAvailable:  true,
							IsVegetarian: true,
							IsVegan:      true,
							Allergens:    []string{"gluten"},
						},
					},
				},
			},
		},
	}
}
