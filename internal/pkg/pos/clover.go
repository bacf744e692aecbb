package pos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultCloverBaseURL = "https://api.clover.com"
	sandboxCloverBaseURL = "https://sandbox.dev.clover.com"

	cloverRequestsPerSecond = 10
)

// CloverAdapter talks to Clover's merchant platform. Clover exchanges an
// OAuth authorization code for a long-lived token that never expires, so
// Refresh returns the session unchanged.
//
// Clover has no menu concept of its own. It exposes flat categories and
// items, which we fold into a single "main" menu.
type CloverAdapter struct {
	BaseURL string

	rest    *restClient
	limiter *locationLimiter
	now     func() time.Time
}

func NewCloverAdapter(httpClient *http.Client, sandbox bool) *CloverAdapter {
	base := defaultCloverBaseURL
	if sandbox {
		base = sandboxCloverBaseURL
	}
	return &CloverAdapter{
		BaseURL: base,
		rest:    newRESTClient(ProviderClover, httpClient),
		limiter: newLocationLimiter(cloverRequestsPerSecond, cloverRequestsPerSecond),
		now:     time.Now,
	}
}

func (a *CloverAdapter) Provider() Provider {
	return ProviderClover
}

// Authenticate exchanges the merchant authorization code for an access
// token. The code is carried in Credentials.Extra["auth_code"].
func (a *CloverAdapter) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	authCode := strings.TrimSpace(creds.Extra["auth_code"])
	if authCode == "" {
		return nil, &AuthError{Provider: ProviderClover, Message: "auth_code missing from credentials"}
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := a.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    a.BaseURL + "/oauth/token",
		Body: map[string]string{
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
			"code":          authCode,
		},
	}, &out)
	if err != nil {
		return nil, &AuthError{Provider: ProviderClover, Message: "token exchange failed", Err: err}
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, &AuthError{Provider: ProviderClover, Message: "no access token in response"}
	}

	// Clover tokens never expire; park the expiry far in the future to
	// satisfy the Session contract.
	return &Session{
		Provider:    ProviderClover,
		AccessToken: out.AccessToken,
		ExpiresAt:   a.now().AddDate(10, 0, 0),
	}, nil
}

// Refresh is a no-op because Clover tokens do not expire.
func (a *CloverAdapter) Refresh(_ context.Context, session *Session, _ Credentials) (*Session, error) {
	return session, nil
}

func (a *CloverAdapter) get(ctx context.Context, session *Session, locationID, url string, out any) error {
	if err := a.limiter.Wait(ctx, locationID); err != nil {
		return &APIError{Provider: ProviderClover, Message: "rate limiter wait", Err: err}
	}
	return a.rest.doJSON(ctx, restRequest{
		Method: http.MethodGet,
		URL:    url,
		Headers: map[string]string{
			"Authorization": "Bearer " + session.AccessToken,
		},
	}, out)
}

func (a *CloverAdapter) GetMenus(ctx context.Context, session *Session, locationID string) ([]Menu, error) {
	var categories struct {
		Elements []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"elements"`
	}
	url := fmt.Sprintf("%s/v3/merchants/%s/categories?orderBy=sortOrder", a.BaseURL, locationID)
	if err := a.get(ctx, session, locationID, url, &categories); err != nil {
		return nil, err
	}

	var items struct {
		Elements []cloverItem `json:"elements"`
	}
	url = fmt.Sprintf("%s/v3/merchants/%s/items?expand=categories%%2CmodifierGroups", a.BaseURL, locationID)
	if err := a.get(ctx, session, locationID, url, &items); err != nil {
		return nil, err
	}

	byCategory := make(map[string][]MenuItem)
	var uncategorized []MenuItem
	for _, it := range items.Elements {
		parsed := it.toMenuItem()
		if len(it.Categories.Elements) == 0 {
			uncategorized = append(uncategorized, parsed)
			continue
		}
		for _, c := range it.Categories.Elements {
			byCategory[c.ID] = append(byCategory[c.ID], parsed)
		}
	}

	menu := Menu{ExternalID: "main", Name: "Menu"}
	for _, c := range categories.Elements {
		menu.Categories = append(menu.Categories, MenuCategory{
			ExternalID: c.ID,
			Name:       c.Name,
			Items:      byCategory[c.ID],
		})
	}
	if len(uncategorized) > 0 {
		menu.Categories = append(menu.Categories, MenuCategory{
			ExternalID: "uncategorized",
			Name:       "Other Items",
			Items:      uncategorized,
		})
	}
	return []Menu{menu}, nil
}

func (a *CloverAdapter) GetItemAvailability(ctx context.Context, session *Session, locationID string) (map[string]bool, error) {
	var raw struct {
		Elements []struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
			Quantity   float64  `json:"quantity"`
			StockCount *float64 `json:"stockCount"`
		} `json:"elements"`
	}
	url := fmt.Sprintf("%s/v3/merchants/%s/item_stocks", a.BaseURL, locationID)
	if err := a.get(ctx, session, locationID, url, &raw); err != nil {
		return nil, err
	}

	availability := make(map[string]bool, len(raw.Elements))
	for _, stock := range raw.Elements {
		if stock.StockCount == nil {
			// Stock tracking disabled for the item.
			availability[stock.Item.ID] = true
			continue
		}
		availability[stock.Item.ID] = stock.Quantity > 0
	}
	return availability, nil
}

func (a *CloverAdapter) CreateOrder(ctx context.Context, session *Session, locationID string, order Order) (*OrderResult, error) {
	body := map[string]any{
		"state": "open",
		"title": order.CustomerName,
		"total": order.Total,
		"note":  order.SpecialInstructions,
	}
	if err := a.limiter.Wait(ctx, locationID); err != nil {
		return nil, &APIError{Provider: ProviderClover, Message: "rate limiter wait", Err: err}
	}
	var out struct {
		ID string `json:"id"`
	}
	err := a.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v3/merchants/%s/orders", a.BaseURL, locationID),
		Headers: map[string]string{
			"Authorization": "Bearer " + session.AccessToken,
		},
		Body: body,
	}, &out)
	if err != nil {
		return nil, &OrderError{Provider: ProviderClover, Message: "order creation failed", Err: err}
	}
	if out.ID == "" {
		return nil, &OrderError{Provider: ProviderClover, Message: "no order id in response"}
	}
	return &OrderResult{
		ExternalID: out.ID,
		State:      OrderStateConfirmed,
	}, nil
}

func (a *CloverAdapter) GetOrderStatus(ctx context.Context, session *Session, locationID, externalOrderID string) (*OrderStatusInfo, error) {
	var out struct {
		ID         string `json:"id"`
		State      string `json:"state"`
		ModifiedMS int64  `json:"modifiedTime"`
	}
	url := fmt.Sprintf("%s/v3/merchants/%s/orders/%s", a.BaseURL, locationID, externalOrderID)
	if err := a.get(ctx, session, locationID, url, &out); err != nil {
		return nil, err
	}
	updatedAt := a.now()
	if out.ModifiedMS > 0 {
		updatedAt = time.UnixMilli(out.ModifiedMS).UTC()
	}
	return &OrderStatusInfo{
		ExternalID: out.ID,
		State:      cloverOrderState(out.State),
		UpdatedAt:  updatedAt,
	}, nil
}

func cloverOrderState(state string) OrderState {
	switch strings.ToLower(state) {
	case "open":
		return OrderStateConfirmed
	case "locked":
		return OrderStatePreparing
	case "paid":
		return OrderStateCompleted
	default:
		return OrderStateConfirmed
	}
}

// VerifyWebhookSignature checks the X-Clover-Signature header, a hex
// HMAC-SHA256 of the raw body.
func (a *CloverAdapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// ParseWebhook normalizes a Clover webhook. Clover groups updates per
// merchant under object-type keys: I for inventory, ITEM for item
// changes, CATEGORY for category changes. The event id is synthesized
// from appId and the millisecond timestamp since Clover sends none.
func (a *CloverAdapter) ParseWebhook(payload []byte) (*Event, error) {
	var raw struct {
		AppID     string                                  `json:"appId"`
		TS        int64                                   `json:"ts"`
		Merchants map[string]map[string][]cloverUpdateRow `json:"merchants"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &WebhookError{Provider: ProviderClover, Message: "invalid json payload", Err: err}
	}
	if len(raw.Merchants) == 0 {
		return nil, &WebhookError{Provider: ProviderClover, Message: "missing merchants data"}
	}

	occurredAt := a.now()
	if raw.TS > 0 {
		occurredAt = time.UnixMilli(raw.TS).UTC()
	}
	eventID := fmt.Sprintf("%s-%d", raw.AppID, raw.TS)

	// Webhooks carry a single merchant in practice.
	var updates map[string][]cloverUpdateRow
	for _, v := range raw.Merchants {
		updates = v
		break
	}

	if rows := updates["I"]; len(rows) > 0 {
		return &Event{
			Provider:   ProviderClover,
			Kind:       EventAvailabilityChanged,
			ExternalID: eventID,
			OccurredAt: occurredAt,
			Changes: []AvailabilityChange{
				{ItemExternalID: rows[0].ObjectID, IsAvailable: rows[0].Type != "DELETE"},
			},
		}, nil
	}

	if rows := updates["ITEM"]; len(rows) > 0 {
		if rows[0].Type == "DELETE" {
			return &Event{
				Provider:   ProviderClover,
				Kind:       EventAvailabilityChanged,
				ExternalID: eventID,
				OccurredAt: occurredAt,
				Changes: []AvailabilityChange{
					{ItemExternalID: rows[0].ObjectID, IsAvailable: false},
				},
			}, nil
		}
		return &Event{
			Provider:       ProviderClover,
			Kind:           EventMenuUpdated,
			ExternalID:     eventID,
			OccurredAt:     occurredAt,
			MenuExternalID: "main",
		}, nil
	}

	if _, ok := updates["CATEGORY"]; ok {
		return &Event{
			Provider:       ProviderClover,
			Kind:           EventMenuUpdated,
			ExternalID:     eventID,
			OccurredAt:     occurredAt,
			MenuExternalID: "main",
		}, nil
	}

	var kinds []string
	for k := range updates {
		kinds = append(kinds, k)
	}
	return nil, &WebhookError{Provider: ProviderClover, Message: fmt.Sprintf("unknown event object types: %v", kinds)}
}

type cloverUpdateRow struct {
	ObjectID string `json:"objectId"`
	Type     string `json:"type"`
}

type cloverItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AlternateName string `json:"alternateName"`
	Price         int64  `json:"price"`
	Hidden        bool   `json:"hidden"`
	Categories    struct {
		Elements []struct {
			ID string `json:"id"`
		} `json:"elements"`
	} `json:"categories"`
	ModifierGroups struct {
		Elements []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			MinRequired int    `json:"minRequired"`
			MaxAllowed  int    `json:"maxAllowed"`
			Modifiers   struct {
				Elements []struct {
					ID     string `json:"id"`
					Name   string `json:"name"`
					Price  int64  `json:"price"`
					Hidden bool   `json:"hidden"`
				} `json:"elements"`
			} `json:"modifiers"`
		} `json:"elements"`
	} `json:"modifierGroups"`
}

func (it cloverItem) toMenuItem() MenuItem {
	// Clover prices are already in cents.
	item := MenuItem{
		ExternalID:  it.ID,
		Name:        it.Name,
		Description: it.AlternateName,
		Price:       it.Price,
		IsAvailable: !it.Hidden,
	}
	for _, mg := range it.ModifierGroups.Elements {
		group := ModifierGroup{
			ExternalID:    mg.ID,
			Name:          mg.Name,
			MinSelections: mg.MinRequired,
			MaxSelections: mg.MaxAllowed,
		}
		if group.MaxSelections == 0 {
			group.MaxSelections = 1
		}
		for _, mod := range mg.Modifiers.Elements {
			group.Modifiers = append(group.Modifiers, Modifier{
				ExternalID:      mod.ID,
				Name:            mod.Name,
				PriceAdjustment: mod.Price,
				IsAvailable:     !mod.Hidden,
			})
		}
		item.ModifierGroups = append(item.ModifierGroups, group)
	}
	return item
}
