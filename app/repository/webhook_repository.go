package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plateful/plateful/app/models"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the event, relying on the unique index over
// (tenant_id, provider, external_event_id) to absorb duplicate and
// concurrent deliveries. OnConflict DoNothing means the losing insert
// is a no-op; the stored row is re-read so the caller always gets it.
func (r *webhookEventRepository) CreateIfNotExists(event *models.POSWebhookEvent) (bool, *models.POSWebhookEvent, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected > 0 {
		return true, event, nil
	}
	var stored models.POSWebhookEvent
	err := r.db.Where("tenant_id = ? AND provider = ? AND external_event_id = ?",
		event.TenantID, event.Provider, event.ExternalEventID).First(&stored).Error
	if err != nil {
		return false, nil, err
	}
	return false, &stored, nil
}

func (r *webhookEventRepository) GetByID(id uint) (*models.POSWebhookEvent, error) {
	var event models.POSWebhookEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, duration time.Duration) error {
	now := time.Now()
	return r.db.Model(&models.POSWebhookEvent{}).Where("id = ?", id).Updates(map[string]any{
		"processed_at":           now,
		"processing_error":       "",
		"processing_duration_ms": uint(duration.Milliseconds()),
	}).Error
}

func (r *webhookEventRepository) SetError(id uint, processingError string) error {
	return r.db.Model(&models.POSWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}

// ListPending returns unprocessed events older than the cutoff that
// were never attempted. This backs the reaper that re-enqueues events
// whose processing job was lost (process crash between insert and
// enqueue); rows with a recorded error already reached a worker and
// stay with the queue's own retry accounting.
func (r *webhookEventRepository) ListPending(olderThan time.Time, limit int) ([]models.POSWebhookEvent, error) {
	var events []models.POSWebhookEvent
	err := r.db.Where("processed_at IS NULL AND processing_error = '' AND received_at < ?", olderThan).
		Order("received_at").
		Limit(limit).
		Find(&events).Error
	return events, err
}
