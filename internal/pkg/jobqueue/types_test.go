package jobqueue

import (
	"testing"
	"time"
)

func TestWebhookProcessPayloadRoundTrip(t *testing.T) {
	payload := WebhookProcessJobPayload{EventID: 42, TenantID: "tenant-1"}
	restored, err := WebhookProcessJobPayloadFromMap(payload.ToMap())
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if restored.EventID != 42 || restored.TenantID != "tenant-1" {
		t.Fatalf("unexpected payload: %+v", restored)
	}
}

func TestOrderSubmitPayloadSurvivesJSONNumbers(t *testing.T) {
	payload := OrderSubmitJobPayload{OrderID: 7}
	m := payload.ToMap()
	// Redis round trips payload maps through JSON, turning numbers into
	// float64. FromMap must still restore the uint.
	m["order_id"] = float64(7)
	restored, err := OrderSubmitJobPayloadFromMap(m)
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if restored.OrderID != 7 {
		t.Fatalf("unexpected order id: %d", restored.OrderID)
	}
}

func TestJobRetryLifecycle(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: DefaultMaxRetries}

	job.MarkAsProcessing()
	if job.Status != JobStatusProcessing || job.ProcessedAt == nil {
		t.Fatalf("unexpected state after MarkAsProcessing: %+v", job)
	}

	job.MarkAsFailed("boom")
	if !job.IsRetryable() {
		t.Fatal("first failure should be retryable")
	}
	if job.RetryDelay() != time.Minute {
		t.Fatalf("first retry delay should be 1m, got %s", job.RetryDelay())
	}

	job.MarkAsFailed("boom")
	if job.RetryDelay() != 2*time.Minute {
		t.Fatalf("second retry delay should be 2m, got %s", job.RetryDelay())
	}

	job.MarkAsFailed("boom")
	if job.IsRetryable() {
		t.Fatalf("job should be exhausted after %d retries", job.RetryCount)
	}

	job.MarkAsCompleted()
	if job.Status != JobStatusCompleted || job.ErrorMsg != "" || job.CompletedAt == nil {
		t.Fatalf("unexpected state after MarkAsCompleted: %+v", job)
	}
}
