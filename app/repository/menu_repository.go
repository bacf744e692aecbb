package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
)

// menuRepository implements the MenuRepository interface
type menuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a new menu repository instance
func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) GetActiveMenus(tenantID string) ([]models.Menu, error) {
	var menus []models.Menu
	err := r.db.
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order, name")
		}).
		Preload("Categories.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order, name")
		}).
		Preload("Categories.Items.ModifierGroups", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order, name")
		}).
		Preload("Categories.Items.ModifierGroups.Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order, name")
		}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("display_order, name").
		Find(&menus).Error
	return menus, err
}

func (r *menuRepository) GetItemByExternalID(tenantID, externalID string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.
		Preload("ModifierGroups.Modifiers").
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetItemAvailability flips one item by its POS id. Returns false when
// no row matched, so callers can log and skip unknown ids.
func (r *menuRepository) SetItemAvailability(tenantID, externalID string, available bool, at time.Time) (bool, error) {
	result := r.db.Model(&models.MenuItem{}).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Updates(map[string]any{
			"is_available":            available,
			"availability_updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetAllAvailability applies a full availability snapshot. Items absent
// from the map are left untouched.
func (r *menuRepository) SetAllAvailability(tenantID string, availability map[string]bool, at time.Time) (int, error) {
	updated := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for externalID, available := range availability {
			result := tx.Model(&models.MenuItem{}).
				Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
				Updates(map[string]any{
					"is_available":            available,
					"availability_updated_at": at,
				})
			if result.Error != nil {
				return result.Error
			}
			updated += int(result.RowsAffected)
		}
		return nil
	})
	return updated, err
}

// ReplaceCatalog swaps the tenant's entire catalog for the given menus
// in one transaction. Used by the full sync after a menu_updated event.
func (r *menuRepository) ReplaceCatalog(tenantID string, menus []models.Menu) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var menuIDs []uint
		if err := tx.Model(&models.Menu{}).Where("tenant_id = ?", tenantID).Pluck("id", &menuIDs).Error; err != nil {
			return err
		}
		if len(menuIDs) > 0 {
			var categoryIDs []uint
			if err := tx.Model(&models.MenuCategory{}).Where("menu_id IN ?", menuIDs).Pluck("id", &categoryIDs).Error; err != nil {
				return err
			}
			if len(categoryIDs) > 0 {
				var itemIDs []uint
				if err := tx.Model(&models.MenuItem{}).Where("category_id IN ?", categoryIDs).Pluck("id", &itemIDs).Error; err != nil {
					return err
				}
				if len(itemIDs) > 0 {
					var groupIDs []uint
					if err := tx.Model(&models.ModifierGroup{}).Where("item_id IN ?", itemIDs).Pluck("id", &groupIDs).Error; err != nil {
						return err
					}
					if len(groupIDs) > 0 {
						if err := tx.Where("group_id IN ?", groupIDs).Delete(&models.Modifier{}).Error; err != nil {
							return err
						}
						if err := tx.Where("item_id IN ?", itemIDs).Delete(&models.ModifierGroup{}).Error; err != nil {
							return err
						}
					}
					if err := tx.Where("category_id IN ?", categoryIDs).Delete(&models.MenuItem{}).Error; err != nil {
						return err
					}
				}
				if err := tx.Where("menu_id IN ?", menuIDs).Delete(&models.MenuCategory{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.Menu{}).Error; err != nil {
				return err
			}
		}

		for i := range menus {
			menus[i].TenantID = tenantID
			if err := tx.Create(&menus[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *menuRepository) GetItemsByIDs(tenantID string, ids []uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.
		Preload("ModifierGroups.Modifiers").
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&items).Error
	return items, err
}
