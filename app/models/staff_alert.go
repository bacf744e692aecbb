package models

import "time"

const (
	AlertKindPOSSubmissionFailed = "pos_submission_failed"
	AlertKindRefundIssued        = "refund_issued"
	AlertKindRefundFailed        = "refund_failed"
)

// StaffAlert is a persisted notice for restaurant staff, raised by the
// fulfillment saga when an order needs human attention.
type StaffAlert struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"type:varchar(64);not null;index:idx_staff_alerts_tenant_ack,priority:1" json:"tenant_id"`
	OrderID  uint   `gorm:"index" json:"order_id"`

	Kind    string `gorm:"type:varchar(50);not null;index" json:"kind"`
	Message string `gorm:"type:text;not null" json:"message"`

	AcknowledgedAt *time.Time `gorm:"type:timestamp;default:null;index:idx_staff_alerts_tenant_ack,priority:2" json:"acknowledged_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
