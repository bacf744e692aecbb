package models

import (
	"encoding/json"
	"time"
)

// OrderItemModifier is one selected modifier, snapshotted into the
// order line at checkout time.
type OrderItemModifier struct {
	ExternalID      string `json:"external_id"`
	Name            string `json:"name"`
	PriceAdjustment int64  `json:"price_adjustment"`
}

// OrderItem is a line in an order. Name and prices are snapshots taken
// at checkout so later menu edits never change a placed order.
type OrderItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	OrderID    uint   `gorm:"not null;index" json:"order_id"`
	MenuItemID uint   `gorm:"not null;index" json:"menu_item_id"`

	ItemExternalID      string `gorm:"type:varchar(255)" json:"item_external_id"`
	ItemName            string `gorm:"type:varchar(200);not null" json:"item_name"`
	Quantity            int    `gorm:"not null;default:1" json:"quantity"`
	UnitPrice           int64  `gorm:"not null" json:"unit_price"`
	ModifiersJSON       string `gorm:"type:text" json:"modifiers_json"`
	SpecialInstructions string `gorm:"type:text" json:"special_instructions"`

	// unit_price * quantity + modifier adjustments, in cents.
	LineTotal int64 `gorm:"not null" json:"line_total"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Modifiers decodes the modifier snapshot. A corrupt snapshot returns
// an empty list rather than failing the read path.
func (i *OrderItem) Modifiers() []OrderItemModifier {
	if i.ModifiersJSON == "" {
		return nil
	}
	var mods []OrderItemModifier
	if err := json.Unmarshal([]byte(i.ModifiersJSON), &mods); err != nil {
		return nil
	}
	return mods
}

// SetModifiers encodes the modifier snapshot.
func (i *OrderItem) SetModifiers(mods []OrderItemModifier) error {
	if len(mods) == 0 {
		i.ModifiersJSON = ""
		return nil
	}
	raw, err := json.Marshal(mods)
	if err != nil {
		return err
	}
	i.ModifiersJSON = string(raw)
	return nil
}
