package pos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSquareBaseURL = "https://connect.squareup.com"
	sandboxSquareBaseURL = "https://connect.squareupsandbox.com"

	squareAPIVersion = "2024-01-18"

	squareRequestsPerSecond   = 10
	squareInventoryBatchSize  = 100
	squareDefaultTokenExpDays = 30
)

// SquareAdapter talks to Square's commerce platform. Square is the one
// vendor with real OAuth refresh tokens: access tokens expire and must
// be refreshed through the token endpoint.
//
// Square's catalog is flat (categories, items with variations, modifier
// lists); we fold it into a single "main" menu like Clover.
type SquareAdapter struct {
	BaseURL string

	rest    *restClient
	limiter *locationLimiter
	now     func() time.Time
}

func NewSquareAdapter(httpClient *http.Client, sandbox bool) *SquareAdapter {
	base := defaultSquareBaseURL
	if sandbox {
		base = sandboxSquareBaseURL
	}
	return &SquareAdapter{
		BaseURL: base,
		rest:    newRESTClient(ProviderSquare, httpClient),
		limiter: newLocationLimiter(squareRequestsPerSecond, squareRequestsPerSecond),
		now:     time.Now,
	}
}

func (a *SquareAdapter) Provider() Provider {
	return ProviderSquare
}

func (a *SquareAdapter) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	authCode := strings.TrimSpace(creds.Extra["auth_code"])
	if authCode == "" {
		return nil, &AuthError{Provider: ProviderSquare, Message: "auth_code missing from credentials"}
	}
	return a.tokenRequest(ctx, map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"code":          authCode,
		"grant_type":    "authorization_code",
	}, "")
}

func (a *SquareAdapter) Refresh(ctx context.Context, session *Session, creds Credentials) (*Session, error) {
	if session == nil || strings.TrimSpace(session.RefreshToken) == "" {
		return nil, &AuthError{Provider: ProviderSquare, Message: "no refresh token available"}
	}
	return a.tokenRequest(ctx, map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"refresh_token": session.RefreshToken,
		"grant_type":    "refresh_token",
	}, session.RefreshToken)
}

func (a *SquareAdapter) tokenRequest(ctx context.Context, body map[string]string, fallbackRefresh string) (*Session, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
	}
	err := a.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    a.BaseURL + "/oauth2/token",
		Body:   body,
	}, &out)
	if err != nil {
		return nil, &AuthError{Provider: ProviderSquare, Message: "token request failed", Err: err}
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, &AuthError{Provider: ProviderSquare, Message: "no access token in response"}
	}

	expiresAt := a.now().AddDate(0, 0, squareDefaultTokenExpDays)
	if out.ExpiresAt != "" {
		if parsed, perr := time.Parse(time.RFC3339, out.ExpiresAt); perr == nil {
			expiresAt = parsed
		}
	}
	refresh := out.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return &Session{
		Provider:     ProviderSquare,
		AccessToken:  out.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func (a *SquareAdapter) do(ctx context.Context, session *Session, locationID, method, url string, body, out any) error {
	if err := a.limiter.Wait(ctx, locationID); err != nil {
		return &APIError{Provider: ProviderSquare, Message: "rate limiter wait", Err: err}
	}
	return a.rest.doJSON(ctx, restRequest{
		Method: method,
		URL:    url,
		Headers: map[string]string{
			"Authorization":  "Bearer " + session.AccessToken,
			"Square-Version": squareAPIVersion,
		},
		Body: body,
	}, out)
}

func (a *SquareAdapter) GetMenus(ctx context.Context, session *Session, locationID string) ([]Menu, error) {
	catalog, err := a.fetchCatalog(ctx, session, locationID)
	if err != nil {
		return nil, err
	}

	categories := make(map[string]string)
	modifierLists := make(map[string]squareModifierListData)
	var items []squareCatalogObject
	for _, obj := range catalog {
		switch obj.Type {
		case "CATEGORY":
			categories[obj.ID] = obj.CategoryData.Name
		case "ITEM":
			items = append(items, obj)
		case "MODIFIER_LIST":
			modifierLists[obj.ID] = obj.ModifierListData
		}
	}

	byCategory := make(map[string][]MenuItem)
	var uncategorized []MenuItem
	for _, it := range items {
		parsed := a.parseItem(it, locationID, modifierLists)
		catIDs := it.ItemData.categoryIDs()
		if len(catIDs) == 0 {
			uncategorized = append(uncategorized, parsed)
			continue
		}
		for _, id := range catIDs {
			byCategory[id] = append(byCategory[id], parsed)
		}
	}

	menu := Menu{ExternalID: "main", Name: "Menu"}
	for catID, name := range categories {
		if len(byCategory[catID]) == 0 {
			continue
		}
		menu.Categories = append(menu.Categories, MenuCategory{
			ExternalID: catID,
			Name:       name,
			Items:      byCategory[catID],
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

// GetItemAvailability resolves stock at the item level. Square tracks
// inventory per variation; an item counts as available when any of its
// variations is in stock, and items without inventory records are
// treated as always available.
func (a *SquareAdapter) GetItemAvailability(ctx context.Context, session *Session, locationID string) (map[string]bool, error) {
	catalog, err := a.fetchCatalog(ctx, session, locationID)
	if err != nil {
		return nil, err
	}

	variationToItem := make(map[string]string)
	for _, obj := range catalog {
		if obj.Type != "ITEM" {
			continue
		}
		for _, v := range obj.ItemData.Variations {
			variationToItem[v.ID] = obj.ID
		}
	}
	if len(variationToItem) == 0 {
		return map[string]bool{}, nil
	}

	variationIDs := make([]string, 0, len(variationToItem))
	for id := range variationToItem {
		variationIDs = append(variationIDs, id)
	}

	tracked := make(map[string]bool)
	hasStock := make(map[string]bool)
	for i := 0; i < len(variationIDs); i += squareInventoryBatchSize {
		end := i + squareInventoryBatchSize
		if end > len(variationIDs) {
			end = len(variationIDs)
		}
		var out struct {
			Counts []squareInventoryCount `json:"counts"`
		}
		err := a.do(ctx, session, locationID, http.MethodPost, a.BaseURL+"/v2/inventory/counts/batch-retrieve", map[string]any{
			"catalog_object_ids": variationIDs[i:end],
			"location_ids":       []string{locationID},
		}, &out)
		if err != nil {
			return nil, err
		}
		for _, c := range out.Counts {
			itemID, ok := variationToItem[c.CatalogObjectID]
			if !ok {
				continue
			}
			tracked[itemID] = true
			if c.inStock() {
				hasStock[itemID] = true
			}
		}
	}

	availability := make(map[string]bool)
	for _, itemID := range variationToItem {
		if tracked[itemID] {
			availability[itemID] = hasStock[itemID]
		} else {
			availability[itemID] = true
		}
	}
	return availability, nil
}

func (a *SquareAdapter) fetchCatalog(ctx context.Context, session *Session, locationID string) ([]squareCatalogObject, error) {
	var all []squareCatalogObject
	cursor := ""
	for {
		body := map[string]any{
			"object_types":            []string{"ITEM", "CATEGORY", "MODIFIER_LIST"},
			"include_related_objects": true,
		}
		if cursor != "" {
			body["cursor"] = cursor
		}
		var out struct {
			Objects        []squareCatalogObject `json:"objects"`
			RelatedObjects []squareCatalogObject `json:"related_objects"`
			Cursor         string                `json:"cursor"`
		}
		if err := a.do(ctx, session, locationID, http.MethodPost, a.BaseURL+"/v2/catalog/search", body, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Objects...)
		all = append(all, out.RelatedObjects...)
		if out.Cursor == "" {
			return all, nil
		}
		cursor = out.Cursor
	}
}

func (a *SquareAdapter) CreateOrder(ctx context.Context, session *Session, locationID string, order Order) (*OrderResult, error) {
	lineItems := make([]map[string]any, 0, len(order.Items))
	for _, it := range order.Items {
		li := map[string]any{
			"catalog_object_id": it.MenuItemExternalID,
			"quantity":          strconv.Itoa(it.Quantity),
		}
		if it.SpecialInstructions != "" {
			li["note"] = it.SpecialInstructions
		}
		lineItems = append(lineItems, li)
	}
	body := map[string]any{
		"idempotency_key": order.Reference,
		"order": map[string]any{
			"location_id": locationID,
			"line_items":  lineItems,
		},
	}
	var out struct {
		Order struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"order"`
	}
	if err := a.do(ctx, session, locationID, http.MethodPost, a.BaseURL+"/v2/orders", body, &out); err != nil {
		return nil, &OrderError{Provider: ProviderSquare, Message: "order creation failed", Err: err}
	}
	if out.Order.ID == "" {
		return nil, &OrderError{Provider: ProviderSquare, Message: "no order id in response"}
	}
	return &OrderResult{
		ExternalID: out.Order.ID,
		State:      squareOrderState(out.Order.State),
	}, nil
}

func (a *SquareAdapter) GetOrderStatus(ctx context.Context, session *Session, locationID, externalOrderID string) (*OrderStatusInfo, error) {
	var out struct {
		Order struct {
			ID        string `json:"id"`
			State     string `json:"state"`
			UpdatedAt string `json:"updated_at"`
		} `json:"order"`
	}
	url := a.BaseURL + "/v2/orders/" + externalOrderID
	if err := a.do(ctx, session, locationID, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	updatedAt := a.now()
	if out.Order.UpdatedAt != "" {
		if parsed, perr := time.Parse(time.RFC3339, out.Order.UpdatedAt); perr == nil {
			updatedAt = parsed
		}
	}
	return &OrderStatusInfo{
		ExternalID: out.Order.ID,
		State:      squareOrderState(out.Order.State),
		UpdatedAt:  updatedAt,
	}, nil
}

func squareOrderState(state string) OrderState {
	switch strings.ToUpper(state) {
	case "OPEN":
		return OrderStateConfirmed
	case "COMPLETED":
		return OrderStateCompleted
	case "CANCELED":
		return OrderStateCancelled
	default:
		return OrderStateConfirmed
	}
}

// VerifyWebhookSignature checks the x-square-hmacsha256-signature
// header: base64 HMAC-SHA256 over notification URL + raw body.
func (a *SquareAdapter) VerifyWebhookSignature(payload []byte, signature, secret, requestURL string) bool {
	if requestURL == "" {
		// Without the notification URL the signature cannot be recomputed.
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(requestURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (a *SquareAdapter) ParseWebhook(payload []byte) (*Event, error) {
	var raw struct {
		Type      string `json:"type"`
		EventID   string `json:"event_id"`
		CreatedAt string `json:"created_at"`
		Data      struct {
			Object struct {
				InventoryCounts []squareInventoryCount `json:"inventory_counts"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &WebhookError{Provider: ProviderSquare, Message: "invalid json payload", Err: err}
	}

	occurredAt := a.now()
	if raw.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			return nil, &WebhookError{Provider: ProviderSquare, Message: "invalid timestamp", Err: err}
		}
		occurredAt = parsed
	}

	switch raw.Type {
	case "inventory.count.updated":
		if len(raw.Data.Object.InventoryCounts) == 0 {
			return nil, &WebhookError{Provider: ProviderSquare, Message: "no inventory counts in payload"}
		}
		count := raw.Data.Object.InventoryCounts[0]
		return &Event{
			Provider:   ProviderSquare,
			Kind:       EventAvailabilityChanged,
			ExternalID: raw.EventID,
			OccurredAt: occurredAt,
			Changes: []AvailabilityChange{
				{ItemExternalID: count.CatalogObjectID, IsAvailable: count.inStock()},
			},
		}, nil
	case "catalog.version.updated":
		return &Event{
			Provider:       ProviderSquare,
			Kind:           EventMenuUpdated,
			ExternalID:     raw.EventID,
			OccurredAt:     occurredAt,
			MenuExternalID: "main",
		}, nil
	default:
		return nil, &WebhookError{Provider: ProviderSquare, Message: fmt.Sprintf("unknown event type: %s", raw.Type)}
	}
}

type squareCatalogObject struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	CategoryData struct {
		Name string `json:"name"`
	} `json:"category_data"`
	ItemData         squareItemData         `json:"item_data"`
	ModifierListData squareModifierListData `json:"modifier_list_data"`
}

type squareItemData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Categories  []struct {
		ID string `json:"id"`
	} `json:"categories"`
	Variations []struct {
		ID                string `json:"id"`
		ItemVariationData struct {
			PriceMoney        squareMoney `json:"price_money"`
			LocationOverrides []struct {
				LocationID string      `json:"location_id"`
				PriceMoney squareMoney `json:"price_money"`
			} `json:"location_overrides"`
		} `json:"item_variation_data"`
	} `json:"variations"`
	ModifierListInfo []struct {
		ModifierListID       string `json:"modifier_list_id"`
		MinSelectedModifiers int    `json:"min_selected_modifiers"`
		MaxSelectedModifiers int    `json:"max_selected_modifiers"`
	} `json:"modifier_list_info"`
}

func (d squareItemData) categoryIDs() []string {
	if d.CategoryID != "" {
		return []string{d.CategoryID}
	}
	var ids []string
	for _, c := range d.Categories {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

type squareModifierListData struct {
	Name      string `json:"name"`
	Modifiers []struct {
		ID           string `json:"id"`
		ModifierData struct {
			Name       string      `json:"name"`
			PriceMoney squareMoney `json:"price_money"`
		} `json:"modifier_data"`
	} `json:"modifiers"`
}

type squareMoney struct {
	Amount int64 `json:"amount"`
}

// squareInventoryCount reports stock for one variation. Quantity is a
// decimal string in Square's API.
type squareInventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	State           string `json:"state"`
	Quantity        string `json:"quantity"`
}

func (c squareInventoryCount) inStock() bool {
	if c.State == "IN_STOCK" {
		return true
	}
	qty, err := strconv.ParseFloat(c.Quantity, 64)
	return err == nil && qty > 0
}

func (a *SquareAdapter) parseItem(obj squareCatalogObject, locationID string, modifierLists map[string]squareModifierListData) MenuItem {
	// First variation with a price wins; location overrides beat the
	// default price.
	var price int64
	for _, v := range obj.ItemData.Variations {
		for _, o := range v.ItemVariationData.LocationOverrides {
			if o.LocationID == locationID && o.PriceMoney.Amount > 0 {
				price = o.PriceMoney.Amount
				break
			}
		}
		if price == 0 {
			price = v.ItemVariationData.PriceMoney.Amount
		}
		if price > 0 {
			break
		}
	}

	item := MenuItem{
		ExternalID:  obj.ID,
		Name:        obj.ItemData.Name,
		Description: obj.ItemData.Description,
		Price:       price,
		IsAvailable: true,
	}
	for _, info := range obj.ItemData.ModifierListInfo {
		listData, ok := modifierLists[info.ModifierListID]
		if !ok {
			continue
		}
		group := ModifierGroup{
			ExternalID:    info.ModifierListID,
			Name:          listData.Name,
			MinSelections: info.MinSelectedModifiers,
			MaxSelections: info.MaxSelectedModifiers,
		}
		for _, mod := range listData.Modifiers {
			group.Modifiers = append(group.Modifiers, Modifier{
				ExternalID:      mod.ID,
				Name:            mod.ModifierData.Name,
				PriceAdjustment: mod.ModifierData.PriceMoney.Amount,
				IsAvailable:     true,
			})
		}
		if group.MaxSelections == 0 {
			group.MaxSelections = len(group.Modifiers)
			if group.MaxSelections == 0 {
				group.MaxSelections = 1
			}
		}
		item.ModifierGroups = append(item.ModifierGroups, group)
	}
	return item
}
