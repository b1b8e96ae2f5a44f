package models

// CheckoutState tracks where a transaction run currently is. Transitions are
// strictly sequential within one run; a resubmitted attempt starts a brand
// new run from StateIdle.
type CheckoutState string

const (
	StateIdle            CheckoutState = "idle"
	StateBookingCreated  CheckoutState = "booking_created"
	StateOrderCreated    CheckoutState = "order_created"
	StateAwaitingGateway CheckoutState = "awaiting_gateway"
	StateVerifying       CheckoutState = "verifying"
	StateSucceeded       CheckoutState = "succeeded"
	StateFailed          CheckoutState = "failed"
)

// FailureStage identifies which step a checkout run failed at. The HTTP
// layer only surfaces the message; the stage exists for logging and tests.
type FailureStage string

const (
	FailureStageValidation   FailureStage = "validation"
	FailureStageBooking      FailureStage = "booking_creation"
	FailureStageOrder        FailureStage = "order_creation"
	FailureStageGateway      FailureStage = "gateway"
	FailureStageVerification FailureStage = "verification"
)

// CheckoutResult is the typed outcome of one orchestration run. Flow
// failures travel here rather than as Go errors so the HTTP boundary never
// sees a raw rejection.
type CheckoutResult struct {
	State        CheckoutState `json:"state"`
	Cancelled    bool          `json:"cancelled,omitempty"`
	FailureStage FailureStage  `json:"failure_stage,omitempty"`
	Message      string        `json:"message,omitempty"`

	Booking    *Booking      `json:"booking,omitempty"`
	Order      *PaymentOrder `json:"order,omitempty"`
	PaymentID  string        `json:"payment_id,omitempty"`
	AmountPaid float64       `json:"amount_paid,omitempty"`
}

// Succeeded reports whether the run reached the terminal success state
func (r *CheckoutResult) Succeeded() bool {
	return r != nil && r.State == StateSucceeded
}
