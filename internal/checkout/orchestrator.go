// Package checkout sequences the booking payment transaction. It creates
// the booking, creates the payment order, invokes the gateway and verifies
// the payment, with a compensating failure report on every non-success path
// that produced an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/internal/gateway"
	"github.com/roamtrails/booking-checkout/internal/models"
	"github.com/roamtrails/booking-checkout/internal/pricing"
)

// Backend is the subset of the storefront client the orchestrator drives
type Backend interface {
	CreateBooking(ctx context.Context, req backend.CreateBookingRequest) (*models.Booking, error)
	CreatePaymentOrder(ctx context.Context, req backend.CreateOrderRequest) (*models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, req backend.VerifyPaymentRequest) error
	ReportPaymentFailure(ctx context.Context, packagePaymentID string) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
}

// Gateway runs one hosted-checkout attempt and resolves to a typed outcome
type Gateway interface {
	InitializePayment(ctx context.Context, params gateway.PaymentParams) models.PaymentAttemptResult
}

// Orchestrator drives one booking payment transaction at a time. Each call
// to Run or SettleBalance is an independent run starting from the idle
// state; steps within a run execute strictly sequentially.
type Orchestrator struct {
	backend Backend
	gateway Gateway
	logger  *logrus.Logger
}

// NewOrchestrator creates the transaction orchestrator
func NewOrchestrator(b Backend, g Gateway, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		backend: b,
		gateway: g,
		logger:  logger,
	}
}

const (
	msgTryAgain     = "Something went wrong. Please try again."
	msgCancelled    = "Payment was not completed."
	msgVerifyFailed = "We could not verify your payment. If money left your account, please contact support."
)

// Run executes one full checkout transaction from an assembled context.
// Flow failures come back inside the result; the returned result is never
// nil.
func (o *Orchestrator) Run(ctx context.Context, cc *models.CheckoutContext) *models.CheckoutResult {
	if cc == nil {
		return failResult(models.FailureStageValidation, "checkout context is required", false)
	}
	if err := cc.Validate(); err != nil {
		return failResult(models.FailureStageValidation, err.Error(), false)
	}

	quote := pricing.Calculate(cc.Item, cc.Travelers)
	amount := pricing.ChargeAmount(quote, cc.PaymentType)
	if amount <= 0 {
		return failResult(models.FailureStageValidation, "nothing to charge for this selection", false)
	}

	// Idle → BookingCreated
	booking, err := o.backend.CreateBooking(ctx, backend.CreateBookingRequest{
		ItemID:         cc.Item.ID,
		AdultCount:     cc.Travelers.Adults,
		ChildCount:     cc.Travelers.Children,
		InfantCount:    cc.Travelers.Infants,
		ContactName:    cc.Contact.Name,
		ContactEmail:   cc.Contact.Email,
		ContactPhone:   cc.Contact.Phone,
		PaymentType:    cc.PaymentType,
		TotalAmount:    quote.Total,
		DiscountAmount: discountAmount(quote),
	})
	if err != nil {
		o.logger.WithError(err).WithField("item_id", cc.Item.ID).Warn("Booking creation failed")
		return failResult(models.FailureStageBooking, userMessage(err), false)
	}

	o.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"item_id":      cc.Item.ID,
		"payment_type": cc.PaymentType,
		"amount":       amount,
	}).Info("Booking created")

	return o.collectPayment(ctx, booking, paymentSpec{
		itemID:      cc.Item.ID,
		paymentType: cc.PaymentType,
		amount:      amount,
		currency:    cc.Item.Currency,
		contact:     cc.Contact,
		description: fmt.Sprintf("%s booking", cc.Item.Name),
	})
}

// SettleBalance runs the settlement variant against an existing booking
// with an outstanding balance: same shape as a checkout run minus booking
// creation, with the charge fixed to the booking's current balance.
func (o *Orchestrator) SettleBalance(ctx context.Context, booking *models.Booking, contact models.ContactDetails) *models.CheckoutResult {
	if booking == nil || booking.ID == "" {
		return failResult(models.FailureStageValidation, "a booking is required", false)
	}
	if booking.Balance <= 0 {
		return failResult(models.FailureStageValidation, "this booking has no outstanding balance", false)
	}
	if err := contact.Validate(); err != nil {
		return failResult(models.FailureStageValidation, err.Error(), false)
	}

	result := o.collectPayment(ctx, booking, paymentSpec{
		itemID:      booking.ItemID,
		paymentType: models.PaymentTypeBalance,
		amount:      booking.Balance,
		currency:    "INR",
		contact:     contact,
		description: fmt.Sprintf("Balance payment for booking %s", booking.ID),
	})

	// The backend owns the balance; refetch so the caller sees the reduced
	// amount rather than a locally decremented guess.
	if result.Succeeded() {
		refreshed, err := o.backend.GetBooking(ctx, booking.ID)
		if err != nil {
			o.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to refetch booking after settlement")
		} else {
			result.Booking = refreshed
		}
	}

	return result
}

// paymentSpec carries everything one payment attempt needs beyond the
// booking itself.
type paymentSpec struct {
	itemID      string
	paymentType models.PaymentType
	amount      float64
	currency    string
	contact     models.ContactDetails
	description string
}

// collectPayment runs steps 2-5 of the transaction: order creation, gateway
// invocation, verification. A brand-new order is created on every call;
// gateway orders are single-use.
func (o *Orchestrator) collectPayment(ctx context.Context, booking *models.Booking, spec paymentSpec) *models.CheckoutResult {
	// BookingCreated → OrderCreated
	order, err := o.backend.CreatePaymentOrder(ctx, backend.CreateOrderRequest{
		PackageID:        spec.itemID,
		PackageBookingID: booking.ID,
		PaymentType:      spec.paymentType,
		Amount:           spec.amount,
	})
	if err != nil {
		// The booking stays unpaid on the backend; abandoned bookings are
		// not compensated by the client.
		o.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Payment order creation failed")
		result := failResult(models.FailureStageOrder, userMessage(err), false)
		result.Booking = booking
		return result
	}

	currency := order.Currency
	if currency == "" {
		currency = spec.currency
	}
	if currency == "" {
		currency = "INR"
	}

	o.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"order_id":     order.OrderID,
		"payment_type": spec.paymentType,
		"amount":       spec.amount,
	}).Info("Payment order created")

	// OrderCreated → AwaitingGateway
	attempt := o.gateway.InitializePayment(ctx, gateway.PaymentParams{
		Amount:      spec.amount,
		Currency:    currency,
		PayerName:   spec.contact.Name,
		Description: spec.description,
		OrderID:     order.OrderID,
		PayerEmail:  spec.contact.Email,
		PayerPhone:  spec.contact.Phone,
	})

	switch {
	case attempt.Cancelled():
		o.reportPaymentFailure(order.PaymentID)
		result := failResult(models.FailureStageGateway, msgCancelled, true)
		result.Booking = booking
		result.Order = order
		return result

	case !attempt.Succeeded():
		o.logger.WithFields(logrus.Fields{
			"order_id": order.OrderID,
			"code":     attempt.Code,
			"reason":   attempt.Reason,
		}).Warn("Gateway payment failed")
		o.reportPaymentFailure(order.PaymentID)
		message := attempt.Description
		if message == "" {
			message = msgTryAgain
		}
		result := failResult(models.FailureStageGateway, message, false)
		result.Booking = booking
		result.Order = order
		return result
	}

	// AwaitingGateway → Verifying. Verification requires all three gateway
	// fields; an incomplete success payload is never sent to the backend.
	if attempt.OrderID == "" || attempt.Signature == "" || attempt.PaymentID == "" {
		o.logger.WithField("order_id", order.OrderID).Error("Gateway success payload missing verification fields")
		o.reportPaymentFailure(order.PaymentID)
		result := failResult(models.FailureStageVerification, msgVerifyFailed, false)
		result.Booking = booking
		result.Order = order
		return result
	}

	err = o.backend.VerifyPayment(ctx, backend.VerifyPaymentRequest{
		OrderID:   attempt.OrderID,
		Signature: attempt.Signature,
		PaymentID: attempt.PaymentID,
	})
	if err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":   order.OrderID,
			"payment_id": attempt.PaymentID,
		}).Error("Payment verification failed")
		o.reportPaymentFailure(order.PaymentID)
		result := failResult(models.FailureStageVerification, msgVerifyFailed, false)
		result.Booking = booking
		result.Order = order
		return result
	}

	o.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"order_id":   order.OrderID,
		"payment_id": attempt.PaymentID,
		"amount":     spec.amount,
	}).Info("Payment verified")

	return &models.CheckoutResult{
		State:      models.StateSucceeded,
		Booking:    booking,
		Order:      order,
		PaymentID:  attempt.PaymentID,
		AmountPaid: spec.amount,
	}
}

// reportPaymentFailure is the compensating action: tell the backend the
// attempt against this order did not succeed. Best effort: a failure here
// is logged, not retried, and never blocks the run's own outcome. It uses a
// fresh context so a cancelled caller cannot suppress the report.
func (o *Orchestrator) reportPaymentFailure(packagePaymentID string) {
	if packagePaymentID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.backend.ReportPaymentFailure(ctx, packagePaymentID); err != nil {
		o.logger.WithError(err).WithField("package_payment_id", packagePaymentID).Warn("Failed to report payment failure")
	}
}

func failResult(stage models.FailureStage, message string, cancelled bool) *models.CheckoutResult {
	return &models.CheckoutResult{
		State:        models.StateFailed,
		Cancelled:    cancelled,
		FailureStage: stage,
		Message:      message,
	}
}

// userMessage maps an error to something safe to show: the backend's own
// message when it sent one, a generic retry prompt otherwise (network
// errors, timeouts, malformed responses).
func userMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgTryAgain
}

func discountAmount(quote pricing.Quote) float64 {
	discount := quote.BaseTotal - quote.Total
	if discount < 0 {
		return 0
	}
	return discount
}
