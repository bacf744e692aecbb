package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plateful/plateful/app/models"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByTenantAndID(tenantID string, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("tenant_id = ?", tenantID).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByExternalID(tenantID, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// ClaimForSubmission reads the order under a row lock and verifies the
// submission preconditions inside the same transaction. Two concurrent
// submit attempts serialize on the lock; the loser sees the claim
// conditions no longer hold and gets ErrNotClaimable. This is the
// guard that keeps CreateOrder from ever firing twice for one order.
func (r *orderRepository) ClaimForSubmission(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&order, id).Error; err != nil {
			return err
		}
		if order.ExternalID != "" {
			return ErrNotClaimable
		}
		if order.Status != models.OrderStatusPending {
			return ErrNotClaimable
		}
		if order.PaymentStatus != models.PaymentStatusCaptured {
			return ErrNotClaimable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) MarkSubmitted(id uint, externalID, confirmationCode string, estimatedReady *time.Time) error {
	now := time.Now()
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"external_id":          externalID,
		"confirmation_code":    confirmationCode,
		"estimated_ready_time": estimatedReady,
		"status":               models.OrderStatusConfirmed,
		"submitted_at":         now,
		"confirmed_at":         now,
		"pos_last_error":       "",
	}).Error
}

// RecordFailure bumps the failure counter without leaving the pending
// state; the job queue owns the retry scheduling.
func (r *orderRepository) RecordFailure(id uint, failureCount int, lastError string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"pos_failure_count": failureCount,
		"pos_last_error":    lastError,
	}).Error
}

func (r *orderRepository) MarkPOSFailed(id uint, failureCount int, lastError string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"status":            models.OrderStatusPOSFailed,
		"pos_failure_count": failureCount,
		"pos_last_error":    lastError,
	}).Error
}

func (r *orderRepository) MarkRefunded(id uint, refundID string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"payment_status": models.PaymentStatusRefunded,
		"refund_id":      refundID,
		"status":         models.OrderStatusCancelled,
	}).Error
}

// ResetForRetry moves a pos_failed order back to pending so the saga
// can claim it again. Only valid from pos_failed; anything else leaves
// the row untouched and returns ErrNotClaimable.
func (r *orderRepository) ResetForRetry(id uint) error {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPOSFailed).
		Updates(map[string]any{
			"status":            models.OrderStatusPending,
			"pos_failure_count": 0,
			"pos_last_error":    "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

// UpdateStatusByExternalID applies a provider-reported status change.
// Unknown external ids return gorm.ErrRecordNotFound; regressions from
// terminal or later states are silently ignored and the current row
// returned.
func (r *orderRepository) UpdateStatusByExternalID(tenantID, externalID, status string, at time.Time) (*models.Order, bool, error) {
	var order models.Order
	changed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
			First(&order).Error; err != nil {
			return err
		}
		if !models.CanProgressTo(order.Status, status) {
			return nil
		}
		updates := map[string]any{"status": status}
		switch status {
		case models.OrderStatusReady:
			updates["ready_at"] = at
		case models.OrderStatusCompleted:
			updates["completed_at"] = at
		case models.OrderStatusConfirmed:
			updates["confirmed_at"] = at
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		order.Status = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &order, changed, nil
}

func (r *orderRepository) MarkPaymentCaptured(id uint, paymentRef string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"payment_status":    models.PaymentStatusCaptured,
		"payment_reference": paymentRef,
	}).Error
}
