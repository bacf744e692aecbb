package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
)

// alertRepository implements the AlertRepository interface
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new staff alert repository instance
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(alert *models.StaffAlert) error {
	return r.db.Create(alert).Error
}

func (r *alertRepository) ListOpen(tenantID string, limit int) ([]models.StaffAlert, error) {
	var alerts []models.StaffAlert
	err := r.db.Where("tenant_id = ? AND acknowledged_at IS NULL", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) Acknowledge(tenantID string, id uint) error {
	now := time.Now()
	result := r.db.Model(&models.StaffAlert{}).
		Where("id = ? AND tenant_id = ? AND acknowledged_at IS NULL", id, tenantID).
		Update("acknowledged_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *alertRepository) CountForOrder(orderID uint, kind string) (int64, error) {
	var count int64
	err := r.db.Model(&models.StaffAlert{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Count(&count).Error
	return count, err
}
