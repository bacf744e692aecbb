package models

import "time"

// RestaurantProfile is the per-tenant configuration: POS connection,
// ordering toggles, tax handling, and the compensation policy applied
// when POS submission fails after payment.
type RestaurantProfile struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"type:varchar(64);not null;uniqueIndex" json:"tenant_id"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`

	// POS integration. Empty provider = no POS connected.
	POSProvider      string     `gorm:"type:varchar(20);index" json:"pos_provider"`
	POSLocationID    string     `gorm:"type:varchar(255)" json:"pos_location_id"`
	POSClientID      string     `gorm:"type:varchar(255)" json:"-"`
	POSClientSecret  string     `gorm:"type:varchar(255)" json:"-"`
	POSAuthCode      string     `gorm:"type:varchar(255)" json:"-"`
	POSWebhookSecret string     `gorm:"type:varchar(255)" json:"-"`
	POSConnectedAt   *time.Time `gorm:"type:timestamp;default:null" json:"pos_connected_at,omitempty"`

	// Tenant API key for the management endpoints.
	APIKey string `gorm:"type:varchar(100);index" json:"-"`

	// Ordering configuration.
	OrderingEnabled bool `gorm:"default:false" json:"ordering_enabled"`
	PickupEnabled   bool `gorm:"default:true" json:"pickup_enabled"`
	DeliveryEnabled bool `gorm:"default:false" json:"delivery_enabled"`
	DeliveryFee     int64 `gorm:"default:0" json:"delivery_fee"`
	DeliveryMinimum int64 `gorm:"default:0" json:"delivery_minimum"`

	// Tax rate in basis points (850 = 8.5%).
	TaxRateBps int64 `gorm:"default:0" json:"tax_rate_bps"`

	// When true, a pos_failed order is refunded and cancelled
	// automatically. Off by default: staff triage the alert first.
	AutoRefundOnPOSFailure bool `gorm:"default:false" json:"auto_refund_on_pos_failure"`

	// Display settings for the storefront menu.
	ShowPrices       bool `gorm:"default:true" json:"show_prices"`
	ShowDescriptions bool `gorm:"default:true" json:"show_descriptions"`
	ShowImages       bool `gorm:"default:true" json:"show_images"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasPOS reports whether a provider and location are configured.
func (p *RestaurantProfile) HasPOS() bool {
	return p.POSProvider != "" && p.POSLocationID != ""
}

// ApplyTax returns the tax amount in cents for a subtotal.
func (p *RestaurantProfile) ApplyTax(subtotal int64) int64 {
	return subtotal * p.TaxRateBps / 10000
}
