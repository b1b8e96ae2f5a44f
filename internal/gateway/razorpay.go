// Package gateway isolates all interaction with the Razorpay hosted
// checkout behind a single asynchronous operation. The adapter performs no
// retries of its own; retry policy belongs to the orchestrator.
package gateway

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/models"
)

// Config holds the Razorpay checkout configuration
type Config struct {
	KeyID       string // public key id, safe to expose to the page
	DisplayName string // merchant name shown on the checkout
	ThemeColor  string
	ScriptURL   string
}

// PaymentParams are the inputs for one payment attempt. Amount is in major
// currency units; the adapter converts to subunits at the gateway boundary.
type PaymentParams struct {
	Amount      float64
	Currency    string
	PayerName   string
	Description string
	OrderID     string
	PayerEmail  string
	PayerPhone  string
}

// Razorpay wraps the hosted checkout. The client script is loaded at most
// once per process; concurrent callers share one in-flight load.
type Razorpay struct {
	config   Config
	loader   Loader
	checkout Checkout
	logger   *logrus.Logger

	mu      sync.Mutex
	loaded  bool
	loading chan struct{}
}

// NewRazorpay creates the gateway adapter
func NewRazorpay(config Config, loader Loader, checkout Checkout, logger *logrus.Logger) *Razorpay {
	if config.ScriptURL == "" {
		config.ScriptURL = DefaultScriptURL
	}
	if loader == nil {
		loader = NewScriptLoader(config.ScriptURL)
	}
	return &Razorpay{
		config:   config,
		loader:   loader,
		checkout: checkout,
		logger:   logger,
	}
}

// InitializePayment runs one gateway invocation end to end: ensure the
// client script is loaded, open the hosted checkout for the order, and
// block until exactly one of the three terminal callbacks fires. It always
// returns a typed result, never an error.
func (g *Razorpay) InitializePayment(ctx context.Context, params PaymentParams) models.PaymentAttemptResult {
	if err := g.ensureLoaded(ctx); err != nil {
		g.logger.WithError(err).WithField("order_id", params.OrderID).Error("Gateway script failed to load")
		return models.PaymentAttemptResult{
			Status:      models.AttemptFailed,
			Code:        models.FailureCodeScriptLoad,
			Description: fmt.Sprintf("payment gateway unavailable: %v", err),
		}
	}

	opts := CheckoutOptions{
		Key:            g.config.KeyID,
		AmountSubunits: toSubunits(params.Amount),
		Currency:       params.Currency,
		Name:           g.config.DisplayName,
		Description:    params.Description,
		OrderID:        params.OrderID,
		Prefill: Prefill{
			Name:    params.PayerName,
			Email:   params.PayerEmail,
			Contact: params.PayerPhone,
		},
		ThemeColor: g.config.ThemeColor,
	}

	// Only the first callback to fire resolves the attempt; later callbacks
	// are ignored.
	resultCh := make(chan models.PaymentAttemptResult, 1)
	var once sync.Once
	resolve := func(r models.PaymentAttemptResult) {
		once.Do(func() { resultCh <- r })
	}

	handlers := CheckoutHandlers{
		OnSuccess: func(paymentID, orderID, signature string) {
			resolve(models.PaymentAttemptResult{
				Status:    models.AttemptSucceeded,
				PaymentID: paymentID,
				OrderID:   orderID,
				Signature: signature,
			})
		},
		OnFailure: func(f Failure) {
			resolve(models.PaymentAttemptResult{
				Status:      models.AttemptFailed,
				Code:        f.Code,
				Description: f.Description,
				Source:      f.Source,
				Step:        f.Step,
				Reason:      f.Reason,
			})
		},
		OnDismiss: func() {
			resolve(models.PaymentAttemptResult{Status: models.AttemptCancelled})
		},
	}

	if err := g.checkout.Open(opts, handlers); err != nil {
		g.logger.WithError(err).WithField("order_id", params.OrderID).Error("Failed to open checkout")
		resolve(models.PaymentAttemptResult{
			Status:      models.AttemptFailed,
			Code:        models.FailureCodeOpenError,
			Description: fmt.Sprintf("failed to open checkout: %v", err),
		})
	}

	// The checkout is human-paced: no client-enforced timeout. Context
	// cancellation means the waiting caller went away.
	select {
	case result := <-resultCh:
		g.logger.WithFields(logrus.Fields{
			"order_id": params.OrderID,
			"status":   result.Status,
			"code":     result.Code,
		}).Info("Gateway attempt resolved")
		return result
	case <-ctx.Done():
		if abandoner, ok := g.checkout.(interface{ Abandon(string) }); ok {
			abandoner.Abandon(params.OrderID)
		}
		return models.PaymentAttemptResult{
			Status:      models.AttemptFailed,
			Code:        "CONTEXT_CANCELLED",
			Description: fmt.Sprintf("attempt abandoned: %v", ctx.Err()),
		}
	}
}

// ensureLoaded loads the client script at most once. Concurrent callers
// wait on the same in-flight load; a successful load is cached for the
// process lifetime, a failed one may be retried by a later attempt.
func (g *Razorpay) ensureLoaded(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.loaded {
			g.mu.Unlock()
			return nil
		}
		if g.loading == nil {
			done := make(chan struct{})
			g.loading = done
			g.mu.Unlock()

			err := g.loader.Load(ctx)

			g.mu.Lock()
			if err == nil {
				g.loaded = true
			}
			g.loading = nil
			g.mu.Unlock()
			close(done)
			return err
		}

		inflight := g.loading
		g.mu.Unlock()

		select {
		case <-inflight:
			// Re-check: the shared load either succeeded (loaded is set) or
			// failed, in which case this caller reports its own load error.
			g.mu.Lock()
			loaded := g.loaded
			g.mu.Unlock()
			if loaded {
				return nil
			}
			return fmt.Errorf("checkout script load failed")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// toSubunits converts a major-unit amount to the smallest currency subunit
// for a two-decimal currency.
func toSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
