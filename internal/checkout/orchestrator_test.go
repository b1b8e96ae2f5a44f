package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/internal/gateway"
	"github.com/roamtrails/booking-checkout/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeBackend records the call sequence and serves canned responses
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	createBookingErr error
	createOrderErr   error
	verifyErr        error
	reportErr        error
	getBookingErr    error

	booking       *models.Booking
	orderSeq      int
	verifyReqs    []backend.VerifyPaymentRequest
	reportedIDs   []string
	orderRequests []backend.CreateOrderRequest
	refetched     *models.Booking
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) CreateBooking(ctx context.Context, req backend.CreateBookingRequest) (*models.Booking, error) {
	f.record("CreateBooking")
	if f.createBookingErr != nil {
		return nil, f.createBookingErr
	}
	if f.booking == nil {
		f.booking = &models.Booking{
			ID:          "bk-1",
			ItemID:      req.ItemID,
			TotalAmount: req.TotalAmount,
			Status:      models.BookingStatusPending,
		}
	}
	return f.booking, nil
}

func (f *fakeBackend) CreatePaymentOrder(ctx context.Context, req backend.CreateOrderRequest) (*models.PaymentOrder, error) {
	f.record("CreatePaymentOrder")
	f.orderRequests = append(f.orderRequests, req)
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	f.orderSeq++
	return &models.PaymentOrder{
		OrderID:     fmt.Sprintf("order_%d", f.orderSeq),
		PaymentID:   fmt.Sprintf("pp_%d", f.orderSeq),
		BookingID:   req.PackageBookingID,
		ItemID:      req.PackageID,
		Amount:      req.Amount,
		Currency:    "INR",
		PaymentType: req.PaymentType,
	}, nil
}

func (f *fakeBackend) VerifyPayment(ctx context.Context, req backend.VerifyPaymentRequest) error {
	f.record("VerifyPayment")
	f.verifyReqs = append(f.verifyReqs, req)
	return f.verifyErr
}

func (f *fakeBackend) ReportPaymentFailure(ctx context.Context, packagePaymentID string) error {
	f.record("ReportPaymentFailure")
	f.reportedIDs = append(f.reportedIDs, packagePaymentID)
	return f.reportErr
}

func (f *fakeBackend) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	f.record("GetBooking")
	if f.getBookingErr != nil {
		return nil, f.getBookingErr
	}
	if f.refetched != nil {
		return f.refetched, nil
	}
	return &models.Booking{ID: bookingID}, nil
}

// fakeGateway resolves every attempt with a fixed result
type fakeGateway struct {
	mu     sync.Mutex
	params []gateway.PaymentParams
	result models.PaymentAttemptResult
}

func (f *fakeGateway) InitializePayment(ctx context.Context, params gateway.PaymentParams) models.PaymentAttemptResult {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	return f.result
}

func successResult() models.PaymentAttemptResult {
	return models.PaymentAttemptResult{
		Status:    models.AttemptSucceeded,
		PaymentID: "pay_1",
		OrderID:   "order_1",
		Signature: "sig_1",
	}
}

func validContext() *models.CheckoutContext {
	adv := 25.0
	return &models.CheckoutContext{
		Item: &models.BookableItem{
			ID:                "pkg-1",
			Type:              models.ItemTypePackage,
			Name:              "Kerala Backwaters",
			Currency:          "INR",
			AdultPrice:        5000,
			FinalPrice:        10000,
			AdvancePercentage: &adv,
			AdvancePrice:      2500,
		},
		Travelers: models.TravelerCounts{Adults: 2},
		Contact: models.ContactDetails{
			Name:  "Asha Nair",
			Email: "asha@example.com",
			Phone: "+919812345678",
		},
		PaymentType:   models.PaymentTypeFull,
		TermsAccepted: true,
	}
}

func TestRun_FullPaymentSuccess(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	require.NotNil(t, result)
	assert.True(t, result.Succeeded())
	assert.Equal(t, models.StateSucceeded, result.State)
	assert.Equal(t, "pay_1", result.PaymentID)
	assert.Equal(t, 10000.0, result.AmountPaid)
	require.NotNil(t, result.Booking)
	assert.Equal(t, "bk-1", result.Booking.ID)

	// Strict step ordering, no compensation on success
	assert.Equal(t, []string{"CreateBooking", "CreatePaymentOrder", "VerifyPayment"}, be.calls)
}

func TestRun_PartialPaymentChargesAdvance(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	cc := validContext()
	cc.PaymentType = models.PaymentTypePartial

	result := o.Run(context.Background(), cc)
	require.True(t, result.Succeeded())
	assert.Equal(t, 2500.0, result.AmountPaid)
	require.Len(t, be.orderRequests, 1)
	assert.Equal(t, 2500.0, be.orderRequests[0].Amount)
	require.Len(t, gw.params, 1)
	assert.Equal(t, 2500.0, gw.params[0].Amount)
}

func TestRun_ValidationFailureMakesNoCalls(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	tests := []struct {
		name   string
		mutate func(cc *models.CheckoutContext)
	}{
		{"nil item", func(cc *models.CheckoutContext) { cc.Item = nil }},
		{"no adults", func(cc *models.CheckoutContext) { cc.Travelers.Adults = 0 }},
		{"missing contact phone", func(cc *models.CheckoutContext) { cc.Contact.Phone = "" }},
		{"terms not accepted", func(cc *models.CheckoutContext) { cc.TermsAccepted = false }},
		{"partial without advance terms", func(cc *models.CheckoutContext) {
			cc.PaymentType = models.PaymentTypePartial
			cc.Item.AdvancePercentage = nil
		}},
		{"invalid payment type", func(cc *models.CheckoutContext) { cc.PaymentType = "installments" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := validContext()
			tt.mutate(cc)

			result := o.Run(context.Background(), cc)
			require.NotNil(t, result)
			assert.Equal(t, models.StateFailed, result.State)
			assert.Equal(t, models.FailureStageValidation, result.FailureStage)
			assert.Empty(t, be.calls)
		})
	}
}

func TestRun_NilContext(t *testing.T) {
	o := NewOrchestrator(&fakeBackend{}, &fakeGateway{}, testLogger())
	result := o.Run(context.Background(), nil)
	require.NotNil(t, result)
	assert.Equal(t, models.FailureStageValidation, result.FailureStage)
}

func TestRun_BookingCreationFailure(t *testing.T) {
	be := &fakeBackend{
		createBookingErr: &backend.APIError{Message: "Package is sold out", StatusCode: 422},
	}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.Equal(t, models.FailureStageBooking, result.FailureStage)
	assert.Equal(t, "Package is sold out", result.Message)
	// No order exists, so nothing to compensate
	assert.NotContains(t, be.calls, "ReportPaymentFailure")
	assert.Empty(t, gw.params)
}

func TestRun_OrderCreationFailureNotCompensated(t *testing.T) {
	be := &fakeBackend{createOrderErr: fmt.Errorf("connection reset")}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.Equal(t, models.FailureStageOrder, result.FailureStage)
	assert.Equal(t, "Something went wrong. Please try again.", result.Message)
	require.NotNil(t, result.Booking)
	assert.NotContains(t, be.calls, "ReportPaymentFailure")
	assert.Empty(t, gw.params)
}

func TestRun_GatewayCancelledCompensates(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: models.PaymentAttemptResult{Status: models.AttemptCancelled}}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.Equal(t, models.StateFailed, result.State)
	assert.True(t, result.Cancelled)
	assert.Equal(t, models.FailureStageGateway, result.FailureStage)
	assert.Equal(t, []string{"pp_1"}, be.reportedIDs)
	assert.NotContains(t, be.calls, "VerifyPayment")
}

func TestRun_GatewayFailedCompensates(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: models.PaymentAttemptResult{
		Status:      models.AttemptFailed,
		Code:        "BAD_REQUEST_ERROR",
		Description: "Payment declined by issuer",
	}}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.False(t, result.Cancelled)
	assert.Equal(t, models.FailureStageGateway, result.FailureStage)
	assert.Equal(t, "Payment declined by issuer", result.Message)
	assert.Equal(t, []string{"pp_1"}, be.reportedIDs)
}

func TestRun_MissingVerifyFieldsCompensates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.PaymentAttemptResult)
	}{
		{"missing order id", func(r *models.PaymentAttemptResult) { r.OrderID = "" }},
		{"missing signature", func(r *models.PaymentAttemptResult) { r.Signature = "" }},
		{"missing payment id", func(r *models.PaymentAttemptResult) { r.PaymentID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := successResult()
			tt.mutate(&res)

			be := &fakeBackend{}
			gw := &fakeGateway{result: res}
			o := NewOrchestrator(be, gw, testLogger())

			result := o.Run(context.Background(), validContext())
			assert.Equal(t, models.FailureStageVerification, result.FailureStage)
			// The incomplete payload never reaches the backend
			assert.NotContains(t, be.calls, "VerifyPayment")
			assert.Equal(t, []string{"pp_1"}, be.reportedIDs)
		})
	}
}

func TestRun_VerificationRejectionCompensates(t *testing.T) {
	be := &fakeBackend{verifyErr: &backend.APIError{Message: "Signature mismatch", StatusCode: 400}}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.Equal(t, models.StateFailed, result.State)
	assert.Equal(t, models.FailureStageVerification, result.FailureStage)
	assert.Equal(t, []string{"pp_1"}, be.reportedIDs)

	require.Len(t, be.verifyReqs, 1)
	assert.Equal(t, "order_1", be.verifyReqs[0].OrderID)
	assert.Equal(t, "sig_1", be.verifyReqs[0].Signature)
	assert.Equal(t, "pay_1", be.verifyReqs[0].PaymentID)
}

func TestRun_CompensationFailureDoesNotChangeOutcome(t *testing.T) {
	be := &fakeBackend{reportErr: fmt.Errorf("backend unreachable")}
	gw := &fakeGateway{result: models.PaymentAttemptResult{Status: models.AttemptCancelled}}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.Run(context.Background(), validContext())
	assert.True(t, result.Cancelled)
	assert.Equal(t, models.FailureStageGateway, result.FailureStage)
}

func TestRun_FreshOrderPerAttempt(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: models.PaymentAttemptResult{Status: models.AttemptCancelled}}
	o := NewOrchestrator(be, gw, testLogger())

	o.Run(context.Background(), validContext())
	gw.result = successResult()
	o.Run(context.Background(), validContext())

	require.Len(t, gw.params, 2)
	assert.Equal(t, "order_1", gw.params[0].OrderID)
	assert.Equal(t, "order_2", gw.params[1].OrderID)
}

func TestSettleBalance_Success(t *testing.T) {
	be := &fakeBackend{
		refetched: &models.Booking{ID: "bk-1", Balance: 0, Status: models.BookingStatusConfirmed},
	}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	booking := &models.Booking{ID: "bk-1", ItemID: "pkg-1", Balance: 7500}
	result := o.SettleBalance(context.Background(), booking, validContext().Contact)
	require.True(t, result.Succeeded())
	assert.Equal(t, 7500.0, result.AmountPaid)

	// Exactly one order, for the outstanding balance
	require.Len(t, be.orderRequests, 1)
	assert.Equal(t, 7500.0, be.orderRequests[0].Amount)
	assert.Equal(t, models.PaymentTypeBalance, be.orderRequests[0].PaymentType)
	assert.Equal(t, "bk-1", be.orderRequests[0].PackageBookingID)

	// The caller sees the backend's refreshed balance
	require.NotNil(t, result.Booking)
	assert.Equal(t, 0.0, result.Booking.Balance)
	assert.Equal(t, models.BookingStatusConfirmed, result.Booking.Status)
	assert.Contains(t, be.calls, "GetBooking")
}

func TestSettleBalance_NoBalance(t *testing.T) {
	be := &fakeBackend{}
	o := NewOrchestrator(be, &fakeGateway{}, testLogger())

	result := o.SettleBalance(context.Background(), &models.Booking{ID: "bk-1", Balance: 0}, validContext().Contact)
	assert.Equal(t, models.FailureStageValidation, result.FailureStage)
	assert.Empty(t, be.calls)
}

func TestSettleBalance_NilBooking(t *testing.T) {
	o := NewOrchestrator(&fakeBackend{}, &fakeGateway{}, testLogger())
	result := o.SettleBalance(context.Background(), nil, validContext().Contact)
	assert.Equal(t, models.FailureStageValidation, result.FailureStage)
}

func TestSettleBalance_InvalidContact(t *testing.T) {
	be := &fakeBackend{}
	o := NewOrchestrator(be, &fakeGateway{}, testLogger())

	result := o.SettleBalance(context.Background(), &models.Booking{ID: "bk-1", Balance: 100}, models.ContactDetails{})
	assert.Equal(t, models.FailureStageValidation, result.FailureStage)
	assert.Empty(t, be.calls)
}

func TestSettleBalance_RefetchFailureKeepsSuccess(t *testing.T) {
	be := &fakeBackend{getBookingErr: fmt.Errorf("backend timeout")}
	gw := &fakeGateway{result: successResult()}
	o := NewOrchestrator(be, gw, testLogger())

	booking := &models.Booking{ID: "bk-1", Balance: 7500}
	result := o.SettleBalance(context.Background(), booking, validContext().Contact)
	assert.True(t, result.Succeeded())
	// Falls back to the pre-settlement booking rather than failing the run
	require.NotNil(t, result.Booking)
	assert.Equal(t, "bk-1", result.Booking.ID)
}

func TestSettleBalance_CancelledCompensates(t *testing.T) {
	be := &fakeBackend{}
	gw := &fakeGateway{result: models.PaymentAttemptResult{Status: models.AttemptCancelled}}
	o := NewOrchestrator(be, gw, testLogger())

	result := o.SettleBalance(context.Background(), &models.Booking{ID: "bk-1", Balance: 7500}, validContext().Contact)
	assert.True(t, result.Cancelled)
	assert.Equal(t, []string{"pp_1"}, be.reportedIDs)
	assert.NotContains(t, be.calls, "GetBooking")
}
