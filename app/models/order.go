package models

import "time"

// Order lifecycle statuses. pos_failed is the triage state reached
// after POS submission retries are exhausted.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusPOSFailed = "pos_failed"
)

const (
	OrderTypePickup   = "pickup"
	OrderTypeDelivery = "delivery"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Order is a customer order with its POS synchronization state.
type Order struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"type:varchar(64);not null;index:idx_orders_tenant_status,priority:1;index:idx_orders_tenant_created,priority:1" json:"tenant_id"`

	// Order id in the POS system. Set exactly once on successful
	// submission and never overwritten.
	ExternalID string `gorm:"type:varchar(255);index" json:"external_id"`

	CustomerName  string `gorm:"type:varchar(200);not null" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(200);not null" json:"customer_email"`
	CustomerPhone string `gorm:"type:varchar(20)" json:"customer_phone"`

	Status              string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_tenant_status,priority:2" json:"status"`
	OrderType           string     `gorm:"type:varchar(20);not null" json:"order_type"`
	ScheduledTime       *time.Time `gorm:"type:timestamp;default:null" json:"scheduled_time,omitempty"`
	SpecialInstructions string     `gorm:"type:text" json:"special_instructions"`
	DeliveryAddress     string     `gorm:"type:text" json:"delivery_address"`

	// All amounts in cents.
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	Tax         int64 `gorm:"not null" json:"tax"`
	DeliveryFee int64 `gorm:"default:0" json:"delivery_fee"`
	Tip         int64 `gorm:"default:0" json:"tip"`
	Total       int64 `gorm:"not null" json:"total"`

	PaymentReference string `gorm:"type:varchar(255);index" json:"payment_reference"`
	PaymentStatus    string `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	RefundID         string `gorm:"type:varchar(255)" json:"refund_id"`

	// Consecutive POS submission failures for the current attempt run.
	POSFailureCount int    `gorm:"default:0" json:"pos_failure_count"`
	POSLastError    string `gorm:"type:text" json:"pos_last_error"`

	SubmittedAt *time.Time `gorm:"type:timestamp;default:null" json:"submitted_at,omitempty"`
	ConfirmedAt *time.Time `gorm:"type:timestamp;default:null" json:"confirmed_at,omitempty"`
	ReadyAt     *time.Time `gorm:"type:timestamp;default:null" json:"ready_at,omitempty"`
	CompletedAt *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`

	ConfirmationCode   string     `gorm:"type:varchar(20);index" json:"confirmation_code"`
	EstimatedReadyTime *time.Time `gorm:"type:timestamp;default:null" json:"estimated_ready_time,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_orders_tenant_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminalStatus reports whether a status admits no further
// progression. Terminal states never regress.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// orderStatusRank orders the forward progression of the lifecycle.
// pos_failed and cancelled sit outside the happy path.
var orderStatusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusPreparing: 2,
	OrderStatusReady:     3,
	OrderStatusCompleted: 4,
}

// CanProgressTo reports whether moving from to a new lifecycle status
// is a forward move. Cancellation is always allowed from non-terminal
// states.
func CanProgressTo(from, to string) bool {
	if IsTerminalStatus(from) {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	fromRank, okFrom := orderStatusRank[from]
	toRank, okTo := orderStatusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}
