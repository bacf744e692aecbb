package notify

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/internal/pkg/mail"
)

// Notifier sends customer-facing order emails. Delivery failures are
// logged and swallowed: a lost email must never fail the saga.
type Notifier interface {
	OrderConfirmed(order *models.Order)
	OrderReady(order *models.Order)
	OrderCancelled(order *models.Order, refunded bool)
}

type emailNotifier struct{}

// NewEmailNotifier returns the SMTP-backed notifier.
func NewEmailNotifier() Notifier {
	return &emailNotifier{}
}

func (n *emailNotifier) OrderConfirmed(order *models.Order) {
	subject := fmt.Sprintf("Order confirmed: %s", order.ConfirmationCode)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order is confirmed. Your confirmation code is <strong>%s</strong>.</p>%s",
		order.CustomerName, order.ConfirmationCode, readyEstimate(order.EstimatedReadyTime),
	)
	n.send(order.CustomerEmail, subject, body)
}

func (n *emailNotifier) OrderReady(order *models.Order) {
	subject := fmt.Sprintf("Your order is ready: %s", order.ConfirmationCode)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <strong>%s</strong> is ready for %s.</p>",
		order.CustomerName, order.ConfirmationCode, order.OrderType,
	)
	n.send(order.CustomerEmail, subject, body)
}

func (n *emailNotifier) OrderCancelled(order *models.Order, refunded bool) {
	subject := "We couldn't complete your order"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>We're sorry, we were unable to send your order to the restaurant.</p>",
		order.CustomerName,
	)
	if refunded {
		body += "<p>Your payment has been refunded in full. The refund may take a few business days to appear.</p>"
	} else {
		body += "<p>The restaurant has been notified and will contact you shortly.</p>"
	}
	n.send(order.CustomerEmail, subject, body)
}

func (n *emailNotifier) send(to, subject, body string) {
	if to == "" {
		return
	}
	if err := mail.SendMail(to, subject, body); err != nil {
		log.Errorf("[Notify] failed to send %q to %s: %v", subject, to, err)
	}
}

func readyEstimate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("<p>Estimated ready time: %s.</p>", t.Format("3:04 PM"))
}

// Noop discards all notifications; used in tests.
type Noop struct{}

func (Noop) OrderConfirmed(*models.Order)       {}
func (Noop) OrderReady(*models.Order)           {}
func (Noop) OrderCancelled(*models.Order, bool) {}
