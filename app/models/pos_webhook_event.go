package models

import "time"

// POSWebhookEvent stores every inbound provider webhook with
// deduplication metadata. The unique index over (tenant, provider,
// external_event_id) is the sole dedup mechanism: concurrent deliveries
// of the same event race on the insert and exactly one row wins.
type POSWebhookEvent struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	TenantID        string `gorm:"type:varchar(64);not null;index:ux_pos_webhook_events_dedup,unique,priority:1;index:idx_pos_webhook_events_tenant_received,priority:1" json:"tenant_id"`
	Provider        string `gorm:"type:varchar(20);not null;index:ux_pos_webhook_events_dedup,unique,priority:2" json:"provider"`
	ExternalEventID string `gorm:"type:varchar(191);not null;index:ux_pos_webhook_events_dedup,unique,priority:3" json:"external_event_id"`
	EventType       string `gorm:"type:varchar(100);index" json:"event_type"`

	PayloadJSON string `gorm:"type:longtext;not null" json:"payload_json"`
	Signature   string `gorm:"type:varchar(512)" json:"signature"`
	RequestURL  string `gorm:"type:varchar(500)" json:"request_url"`

	ProcessedAt          *time.Time `gorm:"type:timestamp;default:null;index" json:"processed_at,omitempty"`
	ProcessingError      string     `gorm:"type:text" json:"processing_error"`
	ProcessingDurationMS uint       `gorm:"default:0" json:"processing_duration_ms"`

	ReceivedAt time.Time `gorm:"autoCreateTime;index:idx_pos_webhook_events_tenant_received,priority:2" json:"received_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
