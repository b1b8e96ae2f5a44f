package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultScriptURL is the Razorpay hosted-checkout client script
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

// CheckoutOptions mirrors the options object the Razorpay checkout is opened
// with. Amount is always in the smallest currency subunit (paise for INR),
// never in major units.
type CheckoutOptions struct {
	Key            string  `json:"key"`
	AmountSubunits int64   `json:"amount"`
	Currency       string  `json:"currency"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	OrderID        string  `json:"order_id"`
	Prefill        Prefill `json:"prefill"`
	ThemeColor     string  `json:"theme_color"`
}

// Prefill carries the payer details shown pre-filled in the checkout
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Failure is the payload of a payment.failed event
type Failure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
	Step        string `json:"step,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// CheckoutHandlers are the three callback paths the hosted checkout can
// fire. Exactly one of them terminates an attempt; the adapter guarantees
// only the first one to fire resolves the pending result.
type CheckoutHandlers struct {
	OnSuccess func(paymentID, orderID, signature string)
	OnFailure func(f Failure)
	OnDismiss func()
}

// Checkout is the hosted checkout surface. Open presents the checkout for
// one order and returns immediately; the outcome arrives later through the
// handlers. A synchronous error from Open means the checkout could not be
// presented at all (misconfiguration).
type Checkout interface {
	Open(opts CheckoutOptions, h CheckoutHandlers) error
}

// Loader fetches the gateway client script. Implementations must be safe
// for a single call; the adapter serializes and de-duplicates loads.
type Loader interface {
	Load(ctx context.Context) error
}

// ScriptLoader loads the checkout client script over HTTP. A non-200
// response or transport error is a load failure.
type ScriptLoader struct {
	url    string
	client *http.Client
}

// NewScriptLoader creates a loader for the given script URL. An empty URL
// falls back to the Razorpay default.
func NewScriptLoader(url string) *ScriptLoader {
	if url == "" {
		url = DefaultScriptURL
	}
	return &ScriptLoader{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load fetches the checkout script once
func (l *ScriptLoader) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create script request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch checkout script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checkout script returned status %d", resp.StatusCode)
	}

	return nil
}

// CallbackCheckout bridges the storefront page's Razorpay callbacks into
// pending attempts. Open registers the attempt under its order id; the
// HTTP layer forwards the page's success / payment.failed / dismiss
// callback to Deliver, which fires the matching handler exactly once.
type CallbackCheckout struct {
	mu      sync.Mutex
	pending map[string]CheckoutHandlers
}

// CallbackEvent is the forwarded terminal event from the storefront page
type CallbackEvent struct {
	Kind      string   `json:"kind" binding:"required"` // success, failed, dismissed
	PaymentID string   `json:"razorpay_payment_id,omitempty"`
	OrderID   string   `json:"razorpay_order_id,omitempty"`
	Signature string   `json:"razorpay_signature,omitempty"`
	Failure   *Failure `json:"failure,omitempty"`
}

// Callback event kinds
const (
	EventSuccess   = "success"
	EventFailed    = "failed"
	EventDismissed = "dismissed"
)

// NewCallbackCheckout creates an empty callback bridge
func NewCallbackCheckout() *CallbackCheckout {
	return &CallbackCheckout{
		pending: make(map[string]CheckoutHandlers),
	}
}

// Open registers a pending attempt for the order. A missing key or order
// id, or an attempt already pending for the same order, fails synchronously.
func (c *CallbackCheckout) Open(opts CheckoutOptions, h CheckoutHandlers) error {
	if opts.Key == "" {
		return fmt.Errorf("gateway key is not configured")
	}
	if opts.OrderID == "" {
		return fmt.Errorf("order id is required to open checkout")
	}
	if opts.AmountSubunits <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[opts.OrderID]; exists {
		return fmt.Errorf("an attempt is already pending for order %s", opts.OrderID)
	}
	c.pending[opts.OrderID] = h
	return nil
}

// Deliver routes a forwarded callback to the pending attempt for its order.
// The attempt is unregistered before the handler fires, so a second
// delivery for the same order is rejected rather than double-resolving.
func (c *CallbackCheckout) Deliver(orderID string, event CallbackEvent) error {
	c.mu.Lock()
	h, exists := c.pending[orderID]
	if exists {
		delete(c.pending, orderID)
	}
	c.mu.Unlock()

	if !exists {
		return fmt.Errorf("no pending attempt for order %s", orderID)
	}

	switch event.Kind {
	case EventSuccess:
		if h.OnSuccess != nil {
			h.OnSuccess(event.PaymentID, event.OrderID, event.Signature)
		}
	case EventFailed:
		f := Failure{Code: "PAYMENT_FAILED", Description: "payment failed"}
		if event.Failure != nil {
			f = *event.Failure
		}
		if h.OnFailure != nil {
			h.OnFailure(f)
		}
	case EventDismissed:
		if h.OnDismiss != nil {
			h.OnDismiss()
		}
	default:
		return fmt.Errorf("unknown callback event kind: %s", event.Kind)
	}

	return nil
}

// Abandon drops a pending attempt without firing any handler. Used when the
// waiting caller has already gone away.
func (c *CallbackCheckout) Abandon(orderID string) {
	c.mu.Lock()
	delete(c.pending, orderID)
	c.mu.Unlock()
}
