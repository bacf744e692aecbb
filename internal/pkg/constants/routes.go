package constants

// Static route constants
const (
	WebhooksRoute = "/pos-webhooks"
	APIv1Route    = "/api/v1"

	MenusRoute        = "/menus"
	OrdersRoute       = "/orders"
	PaymentsRoute     = "/payments"
	AvailabilityRoute = "/availability"
	AlertsRoute       = "/alerts"
)
