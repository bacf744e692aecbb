package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/internal/pkg/pos"
)

type fakeEventRepo struct {
	rows   map[uint]*models.POSWebhookEvent
	byKey  map[string]uint
	nextID uint
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{rows: map[uint]*models.POSWebhookEvent{}, byKey: map[string]uint{}, nextID: 1}
}

func (r *fakeEventRepo) key(e *models.POSWebhookEvent) string {
	return e.TenantID + "|" + e.Provider + "|" + e.ExternalEventID
}

func (r *fakeEventRepo) CreateIfNotExists(event *models.POSWebhookEvent) (bool, *models.POSWebhookEvent, error) {
	if id, ok := r.byKey[r.key(event)]; ok {
		return false, r.rows[id], nil
	}
	event.ID = r.nextID
	event.ReceivedAt = time.Now()
	r.nextID++
	r.rows[event.ID] = event
	r.byKey[r.key(event)] = event.ID
	return true, event, nil
}

func (r *fakeEventRepo) GetByID(id uint) (*models.POSWebhookEvent, error) {
	return r.rows[id], nil
}

func (r *fakeEventRepo) MarkProcessed(id uint, duration time.Duration) error {
	now := time.Now()
	r.rows[id].ProcessedAt = &now
	r.rows[id].ProcessingDurationMS = uint(duration.Milliseconds())
	return nil
}

func (r *fakeEventRepo) SetError(id uint, processingError string) error {
	r.rows[id].ProcessingError = processingError
	return nil
}

func (r *fakeEventRepo) ListPending(time.Time, int) ([]models.POSWebhookEvent, error) {
	return nil, nil
}

type fakeProfileRepo struct {
	profile *models.RestaurantProfile
}

func (r *fakeProfileRepo) Create(*models.RestaurantProfile) error { return nil }
func (r *fakeProfileRepo) GetByTenantID(string) (*models.RestaurantProfile, error) {
	return r.profile, nil
}
func (r *fakeProfileRepo) GetByAPIKey(string) (*models.RestaurantProfile, error) {
	return r.profile, nil
}
func (r *fakeProfileRepo) Update(*models.RestaurantProfile) error { return nil }
func (r *fakeProfileRepo) ListWithPOS() ([]models.RestaurantProfile, error) { return nil, nil }

type fakeAvailabilitySink struct {
	changes  []pos.AvailabilityChange
	fullSync int
}

func (s *fakeAvailabilitySink) HandleAvailabilityChanged(_ context.Context, _ string, changes []pos.AvailabilityChange) error {
	s.changes = append(s.changes, changes...)
	return nil
}

func (s *fakeAvailabilitySink) FullSync(context.Context, string) error {
	s.fullSync++
	return nil
}

type fakeOrderSink struct {
	events []*pos.Event
}

func (s *fakeOrderSink) ApplyStatus(_ context.Context, _ string, event *pos.Event) error {
	s.events = append(s.events, event)
	return nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestService() (*Service, *fakeEventRepo, *fakeAvailabilitySink, *fakeOrderSink) {
	events := newFakeEventRepo()
	profiles := &fakeProfileRepo{profile: &models.RestaurantProfile{
		TenantID:         "tenant-1",
		POSProvider:      "mock",
		POSLocationID:    "loc-1",
		POSWebhookSecret: "hush",
	}}
	availability := &fakeAvailabilitySink{}
	orders := &fakeOrderSink{}
	svc := NewService(events, profiles, pos.NewRegistry(pos.NewMockAdapter()), availability, orders)
	return svc, events, availability, orders
}

func TestRecordDeduplicates(t *testing.T) {
	svc, _, _, _ := newTestService()
	payload := []byte(`{"event_type":"item_availability_changed","event_id":"evt-1","item_id":"item-omelet","is_available":false}`)

	first, created, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if !created {
		t.Fatal("first delivery should create a row")
	}

	second, created, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("second Record failed: %v", err)
	}
	if created {
		t.Fatal("duplicate delivery should not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate should return the stored row, got %d want %d", second.ID, first.ID)
	}
}

func TestRecordWithoutEventID(t *testing.T) {
	svc, _, _, _ := newTestService()
	payload := []byte(`not json at all`)

	event, created, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, "sig", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !created {
		t.Fatal("expected a row even for unparseable payloads")
	}
	if !strings.HasPrefix(event.ExternalEventID, "hash:") {
		t.Fatalf("expected synthetic hash key, got %q", event.ExternalEventID)
	}
	if event.EventType != string(pos.EventUnknown) {
		t.Fatalf("expected unknown event type, got %q", event.EventType)
	}
}

func TestProcessAvailabilityEvent(t *testing.T) {
	svc, events, availability, _ := newTestService()
	payload := []byte(`{"event_type":"item_availability_changed","event_id":"evt-2","item_id":"item-club","is_available":false}`)

	event, _, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(availability.changes) != 1 || availability.changes[0].ItemExternalID != "item-club" || availability.changes[0].IsAvailable {
		t.Fatalf("unexpected changes: %+v", availability.changes)
	}
	if events.rows[event.ID].ProcessedAt == nil {
		t.Fatal("expected event marked processed")
	}
}

func TestProcessMenuUpdatedTriggersFullSync(t *testing.T) {
	svc, _, availability, _ := newTestService()
	payload := []byte(`{"event_type":"menu_updated","event_id":"evt-3","menu_id":"menu-lunch"}`)

	event, _, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if availability.fullSync != 1 {
		t.Fatalf("expected one full sync, got %d", availability.fullSync)
	}
}

func TestProcessOrderStatusEvent(t *testing.T) {
	svc, _, _, orders := newTestService()
	payload := []byte(`{"event_type":"order_status_changed","event_id":"evt-4","order_id":"mock-abc","status":"ready"}`)

	event, _, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(orders.events) != 1 || orders.events[0].OrderExternalID != "mock-abc" || orders.events[0].OrderState != pos.OrderStateReady {
		t.Fatalf("unexpected order events: %+v", orders.events)
	}
}

func TestProcessRejectsBadSignature(t *testing.T) {
	svc, events, availability, _ := newTestService()
	payload := []byte(`{"event_type":"item_availability_changed","event_id":"evt-5","item_id":"item-club","is_available":false}`)

	event, _, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, "deadbeef", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	// Rejection is final: the job completes so the queue never re-runs
	// the forgery check.
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("signature rejection must not ask for a retry, got %v", err)
	}
	if len(availability.changes) != 0 {
		t.Fatal("tampered event must not reach the catalog")
	}
	if events.rows[event.ID].ProcessedAt != nil {
		t.Fatal("tampered event must stay unprocessed")
	}
	if events.rows[event.ID].ProcessingError == "" {
		t.Fatal("expected processing error recorded")
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("repeated delivery of a rejected event must stay a no-op, got %v", err)
	}
	if len(availability.changes) != 0 {
		t.Fatal("tampered event must never reach the catalog")
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	svc, _, availability, _ := newTestService()
	payload := []byte(`{"event_type":"item_availability_changed","event_id":"evt-6","item_id":"item-club","is_available":true}`)

	event, _, err := svc.Record(context.Background(), "tenant-1", pos.ProviderMock, payload, sign(payload, "hush"), "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if err := svc.Process(context.Background(), event.ID); err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if len(availability.changes) != 1 {
		t.Fatalf("side effects must run once, got %d changes", len(availability.changes))
	}
}
