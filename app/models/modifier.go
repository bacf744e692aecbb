package models

import "time"

// ModifierGroup is a set of choices on an item ("Add Cheese"). Min and
// max selections control required vs optional groups.
type ModifierGroup struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	ItemID     uint   `gorm:"not null;index" json:"item_id"`
	ExternalID string `gorm:"type:varchar(255);index" json:"external_id"`

	Name          string `gorm:"type:varchar(200);not null" json:"name"`
	MinSelections int    `gorm:"default:0" json:"min_selections"`
	MaxSelections int    `gorm:"default:1" json:"max_selections"`
	DisplayOrder  uint   `gorm:"default:0" json:"display_order"`

	Modifiers []Modifier `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"modifiers,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRequired reports whether at least one selection is mandatory.
func (g *ModifierGroup) IsRequired() bool {
	return g.MinSelections > 0
}

// Modifier is a single option within a group. PriceAdjustment is in
// cents and may be negative.
type Modifier struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	GroupID    uint   `gorm:"not null;index" json:"group_id"`
	ExternalID string `gorm:"type:varchar(255);index" json:"external_id"`

	Name            string `gorm:"type:varchar(200);not null" json:"name"`
	PriceAdjustment int64  `gorm:"default:0" json:"price_adjustment"`
	IsAvailable     bool   `gorm:"default:true" json:"is_available"`
	DisplayOrder    uint   `gorm:"default:0" json:"display_order"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
