package pos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"
)

func TestParseProvider(t *testing.T) {
	cases := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"toast", ProviderToast, false},
		{"clover", ProviderClover, false},
		{"square", ProviderSquare, false},
		{"mock", ProviderMock, false},
		{"TOAST", ProviderToast, false},
		{" square ", ProviderSquare, false},
		{"", "", true},
		{"aloha", "", true},
	}
	for _, tc := range cases {
		got, err := ParseProvider(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseProvider(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseProvider(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseProvider(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil session", nil, true},
		{"empty token", &Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"fresh", &Session{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}, false},
		{"expired", &Session{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, true},
		{"inside skew window", &Session{AccessToken: "t", ExpiresAt: now.Add(10 * time.Second)}, true},
	}
	for _, tc := range cases {
		if got := tc.session.Expired(); got != tc.want {
			t.Fatalf("%s: Expired() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, p := range []Provider{ProviderToast, ProviderClover, ProviderSquare, ProviderMock} {
		adapter, err := reg.Get(p)
		if err != nil {
			t.Fatalf("Get(%q): unexpected error: %v", p, err)
		}
		if adapter.Provider() != p {
			t.Fatalf("Get(%q) returned adapter for %q", p, adapter.Provider())
		}
	}

	if _, err := reg.Get(Provider("aloha")); err == nil {
		t.Fatal("Get(aloha): expected ErrUnknownProvider")
	}
}

func TestToastVerifyWebhookSignature(t *testing.T) {
	adapter := NewToastAdapter(nil)
	payload := []byte(`{"eventType":"MENU_UPDATED"}`)
	secret := "whsec_test"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !adapter.VerifyWebhookSignature(payload, valid, secret, "") {
		t.Fatal("expected valid signature to verify")
	}
	if adapter.VerifyWebhookSignature(payload, "deadbeef", secret, "") {
		t.Fatal("expected invalid signature to fail")
	}
	if adapter.VerifyWebhookSignature([]byte("tampered"), valid, secret, "") {
		t.Fatal("expected tampered payload to fail")
	}
}

func TestSquareVerifyWebhookSignature(t *testing.T) {
	adapter := NewSquareAdapter(nil, true)
	payload := []byte(`{"type":"catalog.version.updated"}`)
	secret := "sq_sig_key"
	url := "https://example.com/pos-webhooks/t1/square"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(url))
	mac.Write(payload)
	valid := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !adapter.VerifyWebhookSignature(payload, valid, secret, url) {
		t.Fatal("expected valid signature to verify")
	}
	if adapter.VerifyWebhookSignature(payload, valid, secret, "https://other.example.com/hook") {
		t.Fatal("expected different url to fail verification")
	}
	if adapter.VerifyWebhookSignature(payload, valid, secret, "") {
		t.Fatal("expected missing url to fail verification")
	}
}

func TestToastParseWebhook(t *testing.T) {
	adapter := NewToastAdapter(nil)

	event, err := adapter.ParseWebhook([]byte(`{
		"eventType": "ITEM_AVAILABILITY_CHANGED",
		"eventId": "evt-1",
		"occurredAt": "2026-08-01T12:00:00Z",
		"itemGuid": "item-abc",
		"outOfStock": true
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventAvailabilityChanged {
		t.Fatalf("kind = %q, want %q", event.Kind, EventAvailabilityChanged)
	}
	if event.ExternalID != "evt-1" {
		t.Fatalf("external id = %q, want evt-1", event.ExternalID)
	}
	if len(event.Changes) != 1 || event.Changes[0].ItemExternalID != "item-abc" || event.Changes[0].IsAvailable {
		t.Fatalf("unexpected changes: %+v", event.Changes)
	}

	event, err = adapter.ParseWebhook([]byte(`{"eventType":"MENU_UPDATED","eventId":"evt-2","menuGuid":"menu-1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventMenuUpdated || event.MenuExternalID != "menu-1" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := adapter.ParseWebhook([]byte(`{"eventType":"SOMETHING_ELSE"}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestCloverParseWebhook(t *testing.T) {
	adapter := NewCloverAdapter(nil, true)

	event, err := adapter.ParseWebhook([]byte(`{
		"appId": "APP1",
		"ts": 1700000000000,
		"merchants": {"M1": {"I": [{"objectId": "ITEM9", "type": "UPDATE"}]}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventAvailabilityChanged {
		t.Fatalf("kind = %q, want %q", event.Kind, EventAvailabilityChanged)
	}
	if event.ExternalID != "APP1-1700000000000" {
		t.Fatalf("external id = %q", event.ExternalID)
	}
	if !event.Changes[0].IsAvailable {
		t.Fatal("UPDATE should map to available")
	}

	event, err = adapter.ParseWebhook([]byte(`{
		"appId": "APP1",
		"ts": 1700000000001,
		"merchants": {"M1": {"ITEM": [{"objectId": "ITEM9", "type": "DELETE"}]}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventAvailabilityChanged || event.Changes[0].IsAvailable {
		t.Fatalf("ITEM DELETE should map to unavailable, got %+v", event)
	}

	event, err = adapter.ParseWebhook([]byte(`{
		"appId": "APP1",
		"ts": 1700000000002,
		"merchants": {"M1": {"CATEGORY": [{"objectId": "C1", "type": "UPDATE"}]}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventMenuUpdated || event.MenuExternalID != "main" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := adapter.ParseWebhook([]byte(`{"appId":"APP1","ts":1,"merchants":{}}`)); err == nil {
		t.Fatal("expected error for missing merchants")
	}
}

func TestSquareParseWebhook(t *testing.T) {
	adapter := NewSquareAdapter(nil, true)

	event, err := adapter.ParseWebhook([]byte(`{
		"type": "inventory.count.updated",
		"event_id": "sq-evt-1",
		"created_at": "2026-08-01T12:00:00Z",
		"data": {"object": {"inventory_counts": [
			{"catalog_object_id": "VAR1", "state": "SOLD_OUT", "quantity": "0"}
		]}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventAvailabilityChanged || event.Changes[0].IsAvailable {
		t.Fatalf("sold out variation should be unavailable, got %+v", event)
	}

	event, err = adapter.ParseWebhook([]byte(`{"type":"catalog.version.updated","event_id":"sq-evt-2"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventMenuUpdated || event.MenuExternalID != "main" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestSquareInventoryCountInStock(t *testing.T) {
	cases := []struct {
		state    string
		quantity string
		want     bool
	}{
		{"IN_STOCK", "0", true},
		{"SOLD_OUT", "0", false},
		{"NONE", "3", true},
		{"NONE", "not-a-number", false},
	}
	for _, tc := range cases {
		c := squareInventoryCount{State: tc.state, Quantity: tc.quantity}
		if got := c.inStock(); got != tc.want {
			t.Fatalf("inStock(state=%q qty=%q) = %v, want %v", tc.state, tc.quantity, got, tc.want)
		}
	}
}

func TestMockAdapterOrderFlow(t *testing.T) {
	ctx := context.Background()
	adapter := NewMockAdapter()

	session, err := adapter.Authenticate(ctx, Credentials{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.Expired() {
		t.Fatal("fresh session should not be expired")
	}

	result, err := adapter.CreateOrder(ctx, session, "loc-1", Order{
		CustomerName: "Alex",
		Items: []OrderItem{
			{MenuItemExternalID: "item-club", Name: "Club Sandwich", Quantity: 1, UnitPrice: 1399},
		},
		Subtotal: 1399,
		Total:    1399,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if result.ExternalID == "" || result.State != OrderStateConfirmed {
		t.Fatalf("unexpected result: %+v", result)
	}

	status, err := adapter.GetOrderStatus(ctx, session, "loc-1", result.ExternalID)
	if err != nil {
		t.Fatalf("get order status: %v", err)
	}
	if status.State != OrderStateConfirmed {
		t.Fatalf("status = %q, want confirmed", status.State)
	}

	adapter.SetOrderState(result.ExternalID, OrderStateReady)
	status, err = adapter.GetOrderStatus(ctx, session, "loc-1", result.ExternalID)
	if err != nil {
		t.Fatalf("get order status after update: %v", err)
	}
	if status.State != OrderStateReady {
		t.Fatalf("status = %q, want ready", status.State)
	}

	if _, err := adapter.GetOrderStatus(ctx, session, "loc-1", "missing"); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestMockAdapterUnavailableItem(t *testing.T) {
	ctx := context.Background()
	adapter := NewMockAdapter(WithMockUnavailableItems("item-club"))
	session, _ := adapter.Authenticate(ctx, Credentials{Provider: ProviderMock})

	availability, err := adapter.GetItemAvailability(ctx, session, "loc-1")
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	if availability["item-club"] {
		t.Fatal("item-club should be 86'd")
	}
	if !availability["item-pancakes"] {
		t.Fatal("item-pancakes should be available")
	}

	_, err = adapter.CreateOrder(ctx, session, "loc-1", Order{
		Items: []OrderItem{{MenuItemExternalID: "item-club", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected order failure for 86'd item")
	}

	adapter.SetItemAvailable("item-club")
	if _, err := adapter.CreateOrder(ctx, session, "loc-1", Order{
		Items: []OrderItem{{MenuItemExternalID: "item-club", Quantity: 1}},
	}); err != nil {
		t.Fatalf("order should succeed after restock: %v", err)
	}
}

func TestMockAdapterFailureModes(t *testing.T) {
	ctx := context.Background()

	authFail := NewMockAdapter(WithMockFailAuth())
	if _, err := authFail.Authenticate(ctx, Credentials{}); err == nil {
		t.Fatal("expected auth failure")
	}

	orderFail := NewMockAdapter(WithMockFailOrders())
	session, _ := orderFail.Authenticate(ctx, Credentials{})
	_, err := orderFail.CreateOrder(ctx, session, "loc-1", Order{})
	if err == nil {
		t.Fatal("expected order failure")
	}
	if !IsRetryable(err) {
		t.Fatal("injected order failure should be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthError{Provider: ProviderToast, Message: "expired"}, true},
		{"order error", &OrderError{Provider: ProviderMock, Message: "boom"}, true},
		{"rate limit", &RateLimitError{Provider: ProviderSquare, RetryAfter: time.Second}, true},
		{"server error", &APIError{Provider: ProviderToast, StatusCode: 503}, true},
		{"transport error", &APIError{Provider: ProviderToast}, true},
		{"client error", &APIError{Provider: ProviderClover, StatusCode: 404}, false},
		{"too many requests", &APIError{Provider: ProviderClover, StatusCode: 429}, true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDollarsToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{8.99, 899},
		{12.999999, 1300},
		{0.1, 10},
		{19.99, 1999},
	}
	for _, tc := range cases {
		if got := dollarsToCents(tc.in); got != tc.want {
			t.Fatalf("dollarsToCents(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSessionCacheForTenant(t *testing.T) {
	ctx := context.Background()
	cache := NewSessionCache()
	adapter := NewMockAdapter()

	first, err := cache.ForTenant(ctx, adapter, "tenant-1", Credentials{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("first ForTenant: %v", err)
	}
	second, err := cache.ForTenant(ctx, adapter, "tenant-1", Credentials{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("second ForTenant: %v", err)
	}
	if first.AccessToken != second.AccessToken {
		t.Fatal("fresh session should be reused")
	}

	other, err := cache.ForTenant(ctx, adapter, "tenant-2", Credentials{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("tenant-2 ForTenant: %v", err)
	}
	if other.AccessToken == first.AccessToken {
		t.Fatal("tenants must not share sessions")
	}

	cache.Invalidate("tenant-1", ProviderMock)
	third, err := cache.ForTenant(ctx, adapter, "tenant-1", Credentials{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("ForTenant after invalidate: %v", err)
	}
	if third.AccessToken == first.AccessToken {
		t.Fatal("invalidated session should be replaced")
	}
}
