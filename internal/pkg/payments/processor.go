package payments

import "context"

// Processor is the payment collaborator the fulfillment saga depends
// on. Capture happens upstream; this side only verifies references and
// issues compensating refunds.
type Processor interface {
	// VerifyPayment reports whether the reference corresponds to a
	// captured payment.
	VerifyPayment(ctx context.Context, paymentRef string) (bool, error)
	// CreateRefund refunds amountCents against the original payment and
	// returns the processor's refund id.
	CreateRefund(ctx context.Context, paymentRef string, amountCents int64) (string, error)
}
