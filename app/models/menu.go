package models

import "time"

// Menu is one menu card (Breakfast, Lunch, Drinks) with optional
// time-of-day availability.
type Menu struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TenantID    string `gorm:"type:varchar(64);not null;index:idx_menus_tenant_active,priority:1" json:"tenant_id"`
	ExternalID  string `gorm:"type:varchar(255);index" json:"external_id"`
	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"default:true;index:idx_menus_tenant_active,priority:2" json:"is_active"`

	// "HH:MM" local time, empty = always available.
	AvailableStart string `gorm:"type:varchar(5)" json:"available_start"`
	AvailableEnd   string `gorm:"type:varchar(5)" json:"available_end"`

	DisplayOrder uint `gorm:"default:0" json:"display_order"`

	Categories []MenuCategory `gorm:"foreignKey:MenuID;constraint:OnDelete:CASCADE" json:"categories,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MenuCategory groups items within a menu.
type MenuCategory struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TenantID     string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	MenuID       uint   `gorm:"not null;index:idx_menu_categories_menu_order,priority:1" json:"menu_id"`
	ExternalID   string `gorm:"type:varchar(255);index" json:"external_id"`
	Name         string `gorm:"type:varchar(200);not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	DisplayOrder uint   `gorm:"default:0;index:idx_menu_categories_menu_order,priority:2" json:"display_order"`

	Items []MenuItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
