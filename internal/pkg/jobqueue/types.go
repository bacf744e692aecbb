package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeWebhookProcess   JobType = "webhook_process"
	JobTypeOrderSubmit      JobType = "order_submit"
	JobTypeAvailabilitySync JobType = "availability_sync"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// WebhookProcessJobPayload identifies a stored webhook event to process
type WebhookProcessJobPayload struct {
	EventID  uint   `json:"event_id"`
	TenantID string `json:"tenant_id"`
}

// ToMap converts the payload to a map for storage
func (p WebhookProcessJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"event_id":  p.EventID,
		"tenant_id": p.TenantID,
	}
}

// FromMap creates a payload from a map
func WebhookProcessJobPayloadFromMap(data map[string]interface{}) (*WebhookProcessJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookProcessJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// OrderSubmitJobPayload identifies an order to push into the POS
type OrderSubmitJobPayload struct {
	OrderID uint `json:"order_id"`
}

// ToMap converts the payload to a map for storage
func (p OrderSubmitJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"order_id": p.OrderID,
	}
}

// FromMap creates a payload from a map
func OrderSubmitJobPayloadFromMap(data map[string]interface{}) (*OrderSubmitJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload OrderSubmitJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// AvailabilitySyncJobPayload identifies a tenant whose catalog should be
// fully resynced from its POS
type AvailabilitySyncJobPayload struct {
	TenantID string `json:"tenant_id"`
}

// ToMap converts the payload to a map for storage
func (p AvailabilitySyncJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id": p.TenantID,
	}
}

// FromMap creates a payload from a map
func AvailabilitySyncJobPayloadFromMap(data map[string]interface{}) (*AvailabilitySyncJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload AvailabilitySyncJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// RetryDelay returns the backoff before the next attempt, doubling per
// retry: 1m, 2m, 4m.
func (j *Job) RetryDelay() time.Duration {
	shift := j.RetryCount - 1
	if shift < 0 {
		shift = 0
	}
	return time.Minute << shift
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
