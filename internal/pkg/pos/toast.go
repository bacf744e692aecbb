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

	"github.com/google/uuid"
)

const (
	defaultToastBaseURL = "https://ws-api.toasttab.com"

	// Toast allows one request per second per restaurant.
	toastRequestsPerSecond = 1
)

// ToastAdapter talks to Toast's restaurant platform. Toast uses a
// machine-client login flow with no refresh tokens, so Refresh simply
// re-authenticates from credentials.
//
// Order creation requires Toast Partner API access. Until a partner
// agreement is in place the order endpoints run in placeholder mode
// and simulate confirmed orders.
// TODO: replace placeholder order calls with POST /orders/v2/orders once partner access is granted.
type ToastAdapter struct {
	BaseURL string

	rest    *restClient
	limiter *locationLimiter
	now     func() time.Time
}

func NewToastAdapter(httpClient *http.Client) *ToastAdapter {
	return &ToastAdapter{
		BaseURL: defaultToastBaseURL,
		rest:    newRESTClient(ProviderToast, httpClient),
		limiter: newLocationLimiter(toastRequestsPerSecond, 1),
		now:     time.Now,
	}
}

func (a *ToastAdapter) Provider() Provider {
	return ProviderToast
}

func (a *ToastAdapter) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	var out struct {
		Token struct {
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
		} `json:"token"`
	}
	err := a.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    a.BaseURL + "/authentication/v1/authentication/login",
		Body: map[string]string{
			"clientId":       creds.ClientID,
			"clientSecret":   creds.ClientSecret,
			"userAccessType": "TOAST_MACHINE_CLIENT",
		},
	}, &out)
	if err != nil {
		return nil, &AuthError{Provider: ProviderToast, Message: "authentication failed", Err: err}
	}
	if strings.TrimSpace(out.Token.AccessToken) == "" {
		return nil, &AuthError{Provider: ProviderToast, Message: "no access token in response"}
	}
	expiresIn := out.Token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 86400
	}
	return &Session{
		Provider:    ProviderToast,
		AccessToken: out.Token.AccessToken,
		ExpiresAt:   a.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// Refresh re-authenticates. Toast has no refresh token flow.
func (a *ToastAdapter) Refresh(ctx context.Context, _ *Session, creds Credentials) (*Session, error) {
	return a.Authenticate(ctx, creds)
}

func (a *ToastAdapter) get(ctx context.Context, session *Session, locationID, url string, out any) error {
	if err := a.limiter.Wait(ctx, locationID); err != nil {
		return &APIError{Provider: ProviderToast, Message: "rate limiter wait", Err: err}
	}
	return a.rest.doJSON(ctx, restRequest{
		Method: http.MethodGet,
		URL:    url,
		Headers: map[string]string{
			"Authorization":                "Bearer " + session.AccessToken,
			"Toast-Restaurant-External-ID": locationID,
		},
	}, out)
}

func (a *ToastAdapter) GetMenus(ctx context.Context, session *Session, locationID string) ([]Menu, error) {
	var raw []toastMenu
	if err := a.get(ctx, session, locationID, a.BaseURL+"/menus/v2/menus", &raw); err != nil {
		return nil, err
	}
	menus := make([]Menu, 0, len(raw))
	for _, m := range raw {
		menus = append(menus, m.toMenu())
	}
	return menus, nil
}

func (a *ToastAdapter) GetItemAvailability(ctx context.Context, session *Session, locationID string) (map[string]bool, error) {
	var raw struct {
		StockItems []struct {
			GUID       string `json:"guid"`
			OutOfStock bool   `json:"outOfStock"`
		} `json:"stockItems"`
	}
	if err := a.get(ctx, session, locationID, a.BaseURL+"/stock/v1/inventory", &raw); err != nil {
		return nil, err
	}
	availability := make(map[string]bool, len(raw.StockItems))
	for _, it := range raw.StockItems {
		availability[it.GUID] = !it.OutOfStock
	}
	return availability, nil
}

func (a *ToastAdapter) CreateOrder(_ context.Context, _ *Session, _ string, order Order) (*OrderResult, error) {
	// Placeholder mode until Partner API access exists.
	ready := a.now().Add(25 * time.Minute)
	return &OrderResult{
		ExternalID:         "toast-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		State:              OrderStateConfirmed,
		EstimatedReadyTime: &ready,
		ConfirmationCode:   strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6]),
	}, nil
}

func (a *ToastAdapter) GetOrderStatus(_ context.Context, _ *Session, _ string, externalOrderID string) (*OrderStatusInfo, error) {
	ready := a.now().Add(20 * time.Minute)
	return &OrderStatusInfo{
		ExternalID:         externalOrderID,
		State:              OrderStateConfirmed,
		EstimatedReadyTime: &ready,
		UpdatedAt:          a.now(),
	}, nil
}

// VerifyWebhookSignature checks the Toast-Signature header, a hex
// HMAC-SHA256 of the raw body.
func (a *ToastAdapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

func (a *ToastAdapter) ParseWebhook(payload []byte) (*Event, error) {
	var raw struct {
		EventType  string `json:"eventType"`
		EventID    string `json:"eventId"`
		WebhookID  string `json:"webhookId"`
		OccurredAt string `json:"occurredAt"`
		Timestamp  string `json:"timestamp"`
		MenuGUID   string `json:"menuGuid"`
		ItemGUID   string `json:"itemGuid"`
		EntityGUID string `json:"entityGuid"`
		OutOfStock bool   `json:"outOfStock"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &WebhookError{Provider: ProviderToast, Message: "invalid json payload", Err: err}
	}

	eventID := raw.EventID
	if eventID == "" {
		eventID = raw.WebhookID
	}

	occurredAt := a.now()
	ts := raw.OccurredAt
	if ts == "" {
		ts = raw.Timestamp
	}
	if ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, &WebhookError{Provider: ProviderToast, Message: "invalid timestamp", Err: err}
		}
		occurredAt = parsed
	}

	switch raw.EventType {
	case "MENU_UPDATED":
		menuID := raw.MenuGUID
		if menuID == "" {
			menuID = raw.EntityGUID
		}
		return &Event{
			Provider:       ProviderToast,
			Kind:           EventMenuUpdated,
			ExternalID:     eventID,
			OccurredAt:     occurredAt,
			MenuExternalID: menuID,
		}, nil
	case "ITEM_AVAILABILITY_CHANGED":
		itemID := raw.ItemGUID
		if itemID == "" {
			itemID = raw.EntityGUID
		}
		return &Event{
			Provider:   ProviderToast,
			Kind:       EventAvailabilityChanged,
			ExternalID: eventID,
			OccurredAt: occurredAt,
			Changes: []AvailabilityChange{
				{ItemExternalID: itemID, IsAvailable: !raw.OutOfStock},
			},
		}, nil
	default:
		return nil, &WebhookError{Provider: ProviderToast, Message: fmt.Sprintf("unknown event type: %s", raw.EventType)}
	}
}

// toastMenu mirrors the Toast menus/v2 response shape.
type toastMenu struct {
	GUID         string `json:"guid"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Availability struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	} `json:"availability"`
	MenuGroups []toastMenuGroup `json:"menuGroups"`
}

type toastMenuGroup struct {
	GUID        string          `json:"guid"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	MenuItems   []toastMenuItem `json:"menuItems"`
}

type toastMenuItem struct {
	GUID        string  `json:"guid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Image       string  `json:"image"`
	Visibility  string  `json:"visibility"`
	Tags        []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Allergens      []string             `json:"allergens"`
	ModifierGroups []toastModifierGroup `json:"modifierGroups"`
}

type toastModifierGroup struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	MinSelections int    `json:"minSelections"`
	MaxSelections int    `json:"maxSelections"`
	Modifiers     []struct {
		GUID       string  `json:"guid"`
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Visibility string  `json:"visibility"`
	} `json:"modifiers"`
}

func (m toastMenu) toMenu() Menu {
	menu := Menu{
		ExternalID:     m.GUID,
		Name:           m.Name,
		Description:    m.Description,
		AvailableStart: toastTimeOfDay(m.Availability.StartTime),
		AvailableEnd:   toastTimeOfDay(m.Availability.EndTime),
	}
	for _, g := range m.MenuGroups {
		cat := MenuCategory{
			ExternalID:  g.GUID,
			Name:        g.Name,
			Description: g.Description,
		}
		for _, it := range g.MenuItems {
			cat.Items = append(cat.Items, it.toMenuItem())
		}
		menu.Categories = append(menu.Categories, cat)
	}
	return menu
}

// toastTimeOfDay trims Toast's "HH:MM:SS" to "HH:MM".
func toastTimeOfDay(v string) string {
	if len(v) >= 5 {
		return v[:5]
	}
	return v
}

func (it toastMenuItem) toMenuItem() MenuItem {
	tags := make(map[string]bool, len(it.Tags))
	var allergens []string
	for _, t := range it.Tags {
		name := strings.ToLower(t.Name)
		tags[name] = true
		if strings.Contains(name, "allergen:") {
			allergens = append(allergens, strings.TrimSpace(strings.ReplaceAll(name, "allergen:", "")))
		}
	}
	allergens = append(allergens, it.Allergens...)

	image := it.ImageURL
	if image == "" {
		image = it.Image
	}

	item := MenuItem{
		ExternalID:   it.GUID,
		Name:         it.Name,
		Description:  it.Description,
		Price:        dollarsToCents(it.Price),
		ImageURL:     image,
		IsAvailable:  it.Visibility != "NONE",
		IsVegetarian: tags["vegetarian"],
		IsVegan:      tags["vegan"],
		IsGlutenFree: tags["gluten-free"] || tags["gluten free"],
		Allergens:    allergens,
	}
	for _, mg := range it.ModifierGroups {
		group := ModifierGroup{
			ExternalID:    mg.GUID,
			Name:          mg.Name,
			MinSelections: mg.MinSelections,
			MaxSelections: mg.MaxSelections,
		}
		if group.MaxSelections == 0 {
			group.MaxSelections = 1
		}
		for _, mod := range mg.Modifiers {
			group.Modifiers = append(group.Modifiers, Modifier{
				ExternalID:      mod.GUID,
				Name:            mod.Name,
				PriceAdjustment: dollarsToCents(mod.Price),
				IsAvailable:     mod.Visibility != "NONE",
			})
		}
		item.ModifierGroups = append(item.ModifierGroups, group)
	}
	return item
}

// dollarsToCents converts a dollar amount to minor units, rounding to
// the nearest cent to absorb float noise.
func dollarsToCents(v float64) int64 {
	if v >= 0 {
		return int64(v*100 + 0.5)
	}
	return int64(v*100 - 0.5)
}
