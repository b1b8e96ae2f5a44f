package models

// PaymentOrder is a gateway-side order created against a booking for one
// specific amount. Orders are single-use: every payment attempt creates a
// fresh one and a stale order is never reopened.
type PaymentOrder struct {
	OrderID     string      `json:"order_id"`
	PaymentID   string      `json:"payment_id"`
	BookingID   string      `json:"booking_id"`
	ItemID      string      `json:"item_id"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	PaymentType PaymentType `json:"payment_type"`
}

// AttemptStatus is the terminal status of one gateway invocation
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptCancelled AttemptStatus = "cancelled"
	AttemptFailed    AttemptStatus = "failed"
)

// Gateway failure codes raised by the adapter itself, before the hosted
// checkout produced any outcome of its own.
const (
	FailureCodeScriptLoad = "SCRIPT_LOAD_ERROR"
	FailureCodeOpenError  = "RAZORPAY_OPEN_ERROR"
)

// PaymentAttemptResult is the outcome of one gateway invocation. Exactly one
// of the three variants applies; the zero value is not a valid result.
type PaymentAttemptResult struct {
	Status AttemptStatus `json:"status"`

	// Populated when Status == AttemptSucceeded
	PaymentID string `json:"razorpay_payment_id,omitempty"`
	OrderID   string `json:"razorpay_order_id,omitempty"`
	Signature string `json:"razorpay_signature,omitempty"`

	// Populated when Status == AttemptFailed
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Step        string `json:"step,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Succeeded reports whether the gateway authorized the payment
func (r PaymentAttemptResult) Succeeded() bool {
	return r.Status == AttemptSucceeded
}

// Cancelled reports whether the user dismissed the checkout without paying.
// Callers must not treat this as an error to alert on.
func (r PaymentAttemptResult) Cancelled() bool {
	return r.Status == AttemptCancelled
}
