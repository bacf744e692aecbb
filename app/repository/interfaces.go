package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
)

// ErrNotClaimable is returned by ClaimForSubmission when an order is
// not in a submittable state (already submitted, wrong status, or
// payment not captured).
var ErrNotClaimable = errors.New("order is not claimable for submission")

// ProfileRepository defines restaurant profile database operations
type ProfileRepository interface {
	Create(profile *models.RestaurantProfile) error
	GetByTenantID(tenantID string) (*models.RestaurantProfile, error)
	GetByAPIKey(apiKey string) (*models.RestaurantProfile, error)
	Update(profile *models.RestaurantProfile) error
	ListWithPOS() ([]models.RestaurantProfile, error)
}

// MenuRepository defines menu catalog database operations
type MenuRepository interface {
	GetActiveMenus(tenantID string) ([]models.Menu, error)
	GetItemByExternalID(tenantID, externalID string) (*models.MenuItem, error)
	SetItemAvailability(tenantID, externalID string, available bool, at time.Time) (bool, error)
	SetAllAvailability(tenantID string, availability map[string]bool, at time.Time) (int, error)
	ReplaceCatalog(tenantID string, menus []models.Menu) error
	GetItemsByIDs(tenantID string, ids []uint) ([]models.MenuItem, error)
}

// OrderRepository defines order database operations, including the
// serialized submission claim used by the fulfillment saga
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByTenantAndID(tenantID string, id uint) (*models.Order, error)
	GetByExternalID(tenantID, externalID string) (*models.Order, error)
	Update(order *models.Order) error

	// ClaimForSubmission atomically verifies the order may be submitted
	// to the POS (pending status, payment captured, external_id still
	// empty) and returns the row read inside that transaction.
	ClaimForSubmission(id uint) (*models.Order, error)

	MarkSubmitted(id uint, externalID, confirmationCode string, estimatedReady *time.Time) error
	RecordFailure(id uint, failureCount int, lastError string) error
	MarkPOSFailed(id uint, failureCount int, lastError string) error
	MarkRefunded(id uint, refundID string) error
	ResetForRetry(id uint) error
	// UpdateStatusByExternalID applies a provider-reported transition.
	// The bool reports whether the status actually changed; regressions
	// and duplicates are ignored and return the current row.
	UpdateStatusByExternalID(tenantID, externalID, status string, at time.Time) (*models.Order, bool, error)
	MarkPaymentCaptured(id uint, paymentRef string) error
}

// WebhookEventRepository defines webhook event store operations
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless the dedup key already
	// exists. Returns created=false plus the stored row for duplicates.
	CreateIfNotExists(event *models.POSWebhookEvent) (bool, *models.POSWebhookEvent, error)
	GetByID(id uint) (*models.POSWebhookEvent, error)
	MarkProcessed(id uint, duration time.Duration) error
	SetError(id uint, processingError string) error
	ListPending(olderThan time.Time, limit int) ([]models.POSWebhookEvent, error)
}

// AlertRepository defines staff alert operations
type AlertRepository interface {
	Create(alert *models.StaffAlert) error
	ListOpen(tenantID string, limit int) ([]models.StaffAlert, error)
	// Acknowledge marks an open alert handled. Unknown or already
	// acknowledged alerts return gorm.ErrRecordNotFound.
	Acknowledge(tenantID string, id uint) error
	CountForOrder(orderID uint, kind string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Profile      ProfileRepository
	Menu         MenuRepository
	Order        OrderRepository
	WebhookEvent WebhookEventRepository
	Alert        AlertRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile:      NewProfileRepository(db),
		Menu:         NewMenuRepository(db),
		Order:        NewOrderRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Alert:        NewAlertRepository(db),
	}
}
