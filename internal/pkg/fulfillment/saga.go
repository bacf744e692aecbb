package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/availability"
	"github.com/plateful/plateful/internal/pkg/notify"
	"github.com/plateful/plateful/internal/pkg/payments"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// MaxSubmissionAttempts bounds how often a single order is pushed at
// the POS before it lands in pos_failed triage.
const MaxSubmissionAttempts = 3

// RetryDelay returns the backoff before the given attempt number
// (1-based): 1m, 2m, 4m.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Minute << (attempt - 1)
}

// Scheduler enqueues deferred submission attempts. Backed by the redis
// job queue in production; tests swap in a recorder.
type Scheduler interface {
	ScheduleSubmit(orderID uint, delay time.Duration) error
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(orderID uint, delay time.Duration) error

func (f SchedulerFunc) ScheduleSubmit(orderID uint, delay time.Duration) error {
	return f(orderID, delay)
}

// Saga drives a paid order into the restaurant's POS and compensates
// when that fails. Money was captured before Submit runs, so every
// failure path must end in either a confirmed order, a staff alert, or
// a refund.
type Saga struct {
	orders    repository.OrderRepository
	profiles  repository.ProfileRepository
	alerts    repository.AlertRepository
	registry  *pos.Registry
	sessions  *pos.SessionCache
	payments  payments.Processor
	notifier  notify.Notifier
	scheduler Scheduler
}

func NewSaga(
	orders repository.OrderRepository,
	profiles repository.ProfileRepository,
	alerts repository.AlertRepository,
	registry *pos.Registry,
	sessions *pos.SessionCache,
	processor payments.Processor,
	notifier notify.Notifier,
	scheduler Scheduler,
) *Saga {
	return &Saga{
		orders:    orders,
		profiles:  profiles,
		alerts:    alerts,
		registry:  registry,
		sessions:  sessions,
		payments:  processor,
		notifier:  notifier,
		scheduler: scheduler,
	}
}

// HandlePaymentSucceeded records the capture and queues the POS
// submission. Called from the payment confirmation endpoint.
func (s *Saga) HandlePaymentSucceeded(ctx context.Context, orderID uint, paymentRef string) error {
	ok, err := s.payments.VerifyPayment(ctx, paymentRef)
	if err != nil {
		return fmt.Errorf("verify payment %s: %w", paymentRef, err)
	}
	if !ok {
		return fmt.Errorf("payment %s is not captured", paymentRef)
	}
	if err := s.orders.MarkPaymentCaptured(orderID, paymentRef); err != nil {
		return fmt.Errorf("record capture for order %d: %w", orderID, err)
	}
	return s.scheduler.ScheduleSubmit(orderID, 0)
}

// Submit pushes one order into the tenant's POS. Safe to call any
// number of times: the claim transaction lets exactly one attempt
// through while the order is submittable, so CreateOrder never fires
// twice for the same order.
func (s *Saga) Submit(ctx context.Context, orderID uint) error {
	order, err := s.orders.ClaimForSubmission(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotClaimable) {
			log.Infof("[Fulfillment] order %d no longer submittable, skipping", orderID)
			return nil
		}
		return fmt.Errorf("claim order %d: %w", orderID, err)
	}

	profile, err := s.profiles.GetByTenantID(order.TenantID)
	if err != nil {
		return fmt.Errorf("load profile for order %d: %w", orderID, err)
	}

	if !profile.HasPOS() {
		// Nothing to submit to. The order is confirmed directly and the
		// restaurant works from its own dashboard.
		code := localConfirmationCode()
		if err := s.orders.MarkSubmitted(order.ID, "", code, nil); err != nil {
			return fmt.Errorf("confirm order %d: %w", orderID, err)
		}
		order.Status = models.OrderStatusConfirmed
		order.ConfirmationCode = code
		s.notifier.OrderConfirmed(order)
		log.Infof("[Fulfillment] order %d confirmed without POS", orderID)
		return nil
	}

	result, err := s.submitToPOS(ctx, order, profile)
	if err != nil {
		return s.handleFailure(ctx, order, profile, err)
	}

	if err := s.orders.MarkSubmitted(order.ID, result.ExternalID, result.ConfirmationCode, result.EstimatedReadyTime); err != nil {
		return fmt.Errorf("record submission for order %d: %w", orderID, err)
	}
	order.Status = models.OrderStatusConfirmed
	order.ExternalID = result.ExternalID
	order.ConfirmationCode = result.ConfirmationCode
	order.EstimatedReadyTime = result.EstimatedReadyTime
	s.notifier.OrderConfirmed(order)
	log.Infof("[Fulfillment] order %d submitted to %s as %s", orderID, profile.POSProvider, result.ExternalID)
	return nil
}

func (s *Saga) submitToPOS(ctx context.Context, order *models.Order, profile *models.RestaurantProfile) (*pos.OrderResult, error) {
	provider, err := pos.ParseProvider(profile.POSProvider)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.ForTenant(ctx, adapter, order.TenantID, availability.CredentialsFromProfile(profile))
	if err != nil {
		return nil, err
	}
	return adapter.CreateOrder(ctx, session, profile.POSLocationID, BuildPOSOrder(order))
}

// handleFailure decides between another attempt and giving up. Giving
// up moves the order to pos_failed and runs the compensation path.
func (s *Saga) handleFailure(ctx context.Context, order *models.Order, profile *models.RestaurantProfile, cause error) error {
	attempt := order.POSFailureCount + 1
	log.Warnf("[Fulfillment] order %d submission attempt %d failed: %v", order.ID, attempt, cause)

	if attempt < MaxSubmissionAttempts && pos.IsRetryable(cause) {
		if err := s.orders.RecordFailure(order.ID, attempt, cause.Error()); err != nil {
			return fmt.Errorf("record failure for order %d: %w", order.ID, err)
		}
		if err := s.scheduler.ScheduleSubmit(order.ID, RetryDelay(attempt)); err != nil {
			return fmt.Errorf("schedule retry for order %d: %w", order.ID, err)
		}
		return nil
	}

	if err := s.orders.MarkPOSFailed(order.ID, attempt, cause.Error()); err != nil {
		return fmt.Errorf("mark order %d pos_failed: %w", order.ID, err)
	}
	order.Status = models.OrderStatusPOSFailed
	order.POSFailureCount = attempt
	s.compensate(ctx, order, profile, cause)
	return nil
}

// compensate runs after submission is abandoned. The staff alert is
// raised unconditionally; the refund only when the tenant opted in,
// and at most once per order.
func (s *Saga) compensate(ctx context.Context, order *models.Order, profile *models.RestaurantProfile, cause error) {
	s.alert(order, models.AlertKindPOSSubmissionFailed,
		fmt.Sprintf("Order #%d could not be sent to the POS after %d attempts: %v", order.ID, order.POSFailureCount, cause))

	if !profile.AutoRefundOnPOSFailure {
		return
	}
	if order.RefundID != "" {
		return
	}
	issued, err := s.alerts.CountForOrder(order.ID, models.AlertKindRefundIssued)
	if err != nil {
		log.Errorf("[Fulfillment] refund guard check for order %d failed: %v", order.ID, err)
		return
	}
	if issued > 0 {
		return
	}

	refundID, err := s.payments.CreateRefund(ctx, order.PaymentReference, order.Total)
	if err != nil {
		log.Errorf("[Fulfillment] refund for order %d failed: %v", order.ID, err)
		s.alert(order, models.AlertKindRefundFailed,
			fmt.Sprintf("Automatic refund for order #%d failed: %v", order.ID, err))
		return
	}
	if err := s.orders.MarkRefunded(order.ID, refundID); err != nil {
		log.Errorf("[Fulfillment] recording refund %s for order %d failed: %v", refundID, order.ID, err)
		return
	}
	order.Status = models.OrderStatusCancelled
	order.RefundID = refundID
	s.alert(order, models.AlertKindRefundIssued,
		fmt.Sprintf("Order #%d was refunded %s automatically (refund %s).", order.ID, formatCents(order.Total), refundID))
	s.notifier.OrderCancelled(order, true)
}

// RetryFailed is the staff-triggered escape from pos_failed: reset the
// failure accounting and queue a fresh submission run.
func (s *Saga) RetryFailed(_ context.Context, orderID uint) error {
	if err := s.orders.ResetForRetry(orderID); err != nil {
		return err
	}
	return s.scheduler.ScheduleSubmit(orderID, 0)
}

func (s *Saga) alert(order *models.Order, kind, message string) {
	err := s.alerts.Create(&models.StaffAlert{
		TenantID: order.TenantID,
		OrderID:  order.ID,
		Kind:     kind,
		Message:  message,
	})
	if err != nil {
		log.Errorf("[Fulfillment] staff alert for order %d failed: %v", order.ID, err)
	}
}

func localConfirmationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
