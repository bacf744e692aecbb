package pos

import "time"

// EventKind is the normalized type of an inbound provider webhook.
type EventKind string

const (
	EventAvailabilityChanged EventKind = "availability_changed"
	EventMenuUpdated         EventKind = "menu_updated"
	EventOrderStatusChanged  EventKind = "order_status_changed"
	EventUnknown             EventKind = "unknown"
)

// AvailabilityChange is one item flip carried by an availability event.
type AvailabilityChange struct {
	ItemExternalID string
	IsAvailable    bool
}

// Event is a provider webhook parsed into the common shape. Exactly the
// fields for the event's Kind are populated; correlation with local rows
// is by external id string match, never by foreign key.
type Event struct {
	Provider   Provider
	Kind       EventKind
	ExternalID string // provider event id, empty if the vendor sends none
	OccurredAt time.Time

	// Kind == EventAvailabilityChanged
	Changes []AvailabilityChange

	// Kind == EventMenuUpdated
	MenuExternalID string

	// Kind == EventOrderStatusChanged
	OrderExternalID string
	OrderState      OrderState
	PreviousState   OrderState
}
