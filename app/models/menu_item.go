package models

import "time"

// MenuItem is a sellable item. Prices are integer cents. IsAvailable
// false means the item is 86'd.
type MenuItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   string `gorm:"type:varchar(64);not null;index:idx_menu_items_tenant_available,priority:1;index:idx_menu_items_tenant_external,priority:1" json:"tenant_id"`
	CategoryID uint   `gorm:"not null;index" json:"category_id"`
	ExternalID string `gorm:"type:varchar(255);index:idx_menu_items_tenant_external,priority:2" json:"external_id"`

	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"`
	ImageURL    string `gorm:"type:varchar(500)" json:"image_url"`

	IsAvailable           bool       `gorm:"default:true;index:idx_menu_items_tenant_available,priority:2" json:"is_available"`
	AvailabilityUpdatedAt *time.Time `gorm:"type:timestamp;default:null" json:"availability_updated_at,omitempty"`

	IsVegetarian bool   `gorm:"default:false" json:"is_vegetarian"`
	IsVegan      bool   `gorm:"default:false" json:"is_vegan"`
	IsGlutenFree bool   `gorm:"default:false" json:"is_gluten_free"`
	AllergensJSON string `gorm:"type:text" json:"allergens_json"`

	DisplayOrder uint `gorm:"default:0" json:"display_order"`

	ModifierGroups []ModifierGroup `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"modifier_groups,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
