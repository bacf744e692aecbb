package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/notify"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// Reconciler applies provider-reported order status changes to local
// orders. Provider webhooks are the only source of post-submission
// lifecycle movement.
type Reconciler struct {
	orders   repository.OrderRepository
	notifier notify.Notifier
}

func NewReconciler(orders repository.OrderRepository, notifier notify.Notifier) *Reconciler {
	return &Reconciler{orders: orders, notifier: notifier}
}

// ApplyStatus maps the provider state onto the internal lifecycle.
// Unknown external ids are logged and dropped: the webhook may concern
// an order placed outside the platform. Regressions and duplicates are
// absorbed by the repository's forward-only guard.
func (r *Reconciler) ApplyStatus(_ context.Context, tenantID string, event *pos.Event) error {
	status, ok := statusFromProviderState(event.OrderState)
	if !ok {
		log.Infof("[Fulfillment] tenant=%s ignoring unmapped provider state %q for order %s", tenantID, event.OrderState, event.OrderExternalID)
		return nil
	}

	order, changed, err := r.orders.UpdateStatusByExternalID(tenantID, event.OrderExternalID, status, event.OccurredAt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("[Fulfillment] tenant=%s unknown external order %s, dropping status update", tenantID, event.OrderExternalID)
			return nil
		}
		return fmt.Errorf("apply status for external order %s: %w", event.OrderExternalID, err)
	}
	if !changed {
		return nil
	}
	if status == models.OrderStatusReady {
		r.notifier.OrderReady(order)
	}
	return nil
}

func statusFromProviderState(state pos.OrderState) (string, bool) {
	switch state {
	case pos.OrderStatePending:
		return models.OrderStatusPending, true
	case pos.OrderStateConfirmed:
		return models.OrderStatusConfirmed, true
	case pos.OrderStatePreparing:
		return models.OrderStatusPreparing, true
	case pos.OrderStateReady:
		return models.OrderStatusReady, true
	case pos.OrderStateCompleted:
		return models.OrderStatusCompleted, true
	case pos.OrderStateCancelled:
		return models.OrderStatusCancelled, true
	default:
		return "", false
	}
}
