package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/payment"
)

var errOnlineUnavailable = errors.New("online payment is not available")

// startPaymentLocked opens the widget for the held cart lines. The amount charged and the
// order later written are computed from the same lines.
func (o *Orchestrator) startPaymentLocked(ctx context.Context) error {
	if o.paymentID != "" {
		return fmt.Errorf("%w: payment %s already captured", ErrIllegalTransition, o.paymentID)
	}
	if err := o.transition(ctx, domain.CheckoutStateOnlinePayment); err != nil {
		return err
	}
	o.draft.PaymentMethod = domain.PaymentMethodOnline
	lines := o.holdCartLocked()

	var email string
	if o.profile != nil {
		email = o.profile.Email
	}

	var (
		widget *payment.WidgetConfig
		err    error
	)
	if o.payments == nil {
		err = &payment.PaymentInitiationError{Err: errOnlineUnavailable}
	} else {
		widget, err = o.payments.Initiate(ctx, payment.InitiateRequest{
			Total:   domain.CartTotal(lines),
			Receipt: o.checkoutID,
			Prefill: payment.Prefill{Name: o.draft.Name, Email: email, Contact: o.draft.Mobile},
		})
	}
	if err != nil {
		o.widget = nil
		o.releaseCartLocked()
		if tErr := o.transition(ctx, domain.CheckoutStateDetailsOpen); tErr != nil {
			return tErr
		}
		o.notifier.Notify(notify.Error("Payment failed", "Could not start online payment, please try again"))
		return err
	}

	o.widget = widget
	return nil
}

// HandleWidgetEvent feeds a payment widget callback into the checkout.
func (o *Orchestrator) HandleWidgetEvent(ctx context.Context, ev payment.WidgetEvent) (Snapshot, error) {
	o.mu.Lock()
	sub, err := o.widgetEventLocked(ctx, ev)
	o.mu.Unlock()
	return o.finish(ctx, sub, err)
}

// CancelPayment leaves the payment widget and returns to the details dialog.
func (o *Orchestrator) CancelPayment(ctx context.Context) (Snapshot, error) {
	return o.HandleWidgetEvent(ctx, payment.WidgetDismissed{})
}

func (o *Orchestrator) widgetEventLocked(ctx context.Context, ev payment.WidgetEvent) (*pendingSubmission, error) {
	if o.state == domain.CheckoutStateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if o.state != domain.CheckoutStateOnlinePayment {
		return nil, fmt.Errorf("%w: payment event in %s", ErrIllegalTransition, o.state)
	}

	paymentID, err := o.payments.Resolve(o.widget, ev)
	if errors.Is(err, payment.ErrWidgetDismissed) {
		o.widget = nil
		o.releaseCartLocked()
		if tErr := o.transition(ctx, domain.CheckoutStateDetailsOpen); tErr != nil {
			return nil, tErr
		}
		o.notifier.Notify(notify.Info("Payment cancelled", "You can review your details and try again"))
		return nil, nil
	}
	if err != nil {
		o.widget = nil
		o.releaseCartLocked()
		if tErr := o.transition(ctx, domain.CheckoutStateDetailsOpen); tErr != nil {
			return nil, tErr
		}
		message := err.Error()
		var failure *payment.PaymentFailure
		if errors.As(err, &failure) && failure.Description != "" {
			message = failure.Description
		}
		o.log.WarnContext(ctx, "online payment failed", "error", err)
		o.notifier.Notify(notify.Error("Payment failed", message))
		return nil, err
	}

	o.paymentID = paymentID
	o.log.InfoContext(ctx, "payment captured", "payment_id", paymentID)
	return o.beginSubmitLocked(ctx)
}
