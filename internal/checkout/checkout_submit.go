package checkout

import (
	"context"
	"fmt"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/orders"
)

type pendingSubmission struct {
	orders.Submission
}

// beginSubmitLocked freezes the checkout into a submission and enters Submitting.
func (o *Orchestrator) beginSubmitLocked(ctx context.Context) (*pendingSubmission, error) {
	method := o.draft.PaymentMethod
	var paymentID string
	if method == domain.PaymentMethodOnline {
		paymentID = o.paymentID
		if paymentID == "" {
			return nil, fmt.Errorf("%w: online submission without captured payment", ErrIllegalTransition)
		}
		if !o.ledger.Reserve(paymentID) {
			o.paymentID = ""
			o.widget = nil
			o.releaseCartLocked()
			if err := o.transition(ctx, domain.CheckoutStateDetailsOpen); err != nil {
				return nil, err
			}
			o.notifier.Notify(notify.Error("Payment already used", "This payment has already been used for an order"))
			return nil, ErrPaymentReused
		}
	}

	if err := o.transition(ctx, domain.CheckoutStateSubmitting); err != nil {
		if paymentID != "" {
			o.ledger.Release(paymentID)
		}
		return nil, err
	}

	return &pendingSubmission{orders.Submission{
		CustomerID:    o.customerID,
		CheckoutID:    o.checkoutID,
		Draft:         o.draft,
		Items:         o.holdCartLocked(),
		PaymentMethod: method,
		PaymentID:     paymentID,
	}}, nil
}

func (o *Orchestrator) finish(ctx context.Context, sub *pendingSubmission, err error) (Snapshot, error) {
	if err != nil || sub == nil {
		return o.Snapshot(), err
	}
	return o.submit(ctx, sub.Submission)
}

// submit performs the order write without holding the lock, then settles the state.
func (o *Orchestrator) submit(ctx context.Context, sub orders.Submission) (Snapshot, error) {
	order, err := o.orders.Submit(ctx, sub)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		if sub.PaymentID != "" {
			o.ledger.Release(sub.PaymentID)
		}
		o.widget = nil
		o.releaseCartLocked()
		if tErr := o.transition(ctx, domain.CheckoutStateDetailsOpen); tErr != nil {
			return o.snapshotLocked(), tErr
		}
		o.log.ErrorContext(ctx, "order submission failed", "payment_method", sub.PaymentMethod, "error", err)
		o.notifier.Notify(notify.Error("Order failed", "We could not place your order: "+err.Error()))
		return o.snapshotLocked(), err
	}

	if sub.PaymentID != "" {
		o.ledger.Spend(sub.PaymentID)
		o.paymentID = ""
	}
	o.order = order
	o.widget = nil
	o.redirect = OrdersRedirect
	if tErr := o.transition(ctx, domain.CheckoutStateClosed); tErr != nil {
		return o.snapshotLocked(), tErr
	}

	o.held = nil

	settle := context.WithoutCancel(ctx)
	if cErr := o.cart.Deduct(settle, order.Items); cErr != nil {
		o.log.ErrorContext(ctx, "order placed but cart not cleared", "order_id", order.ID, "error", cErr)
	}
	o.rememberDetails(settle)
	o.notifier.Notify(notify.Success("Order placed", fmt.Sprintf("Your order of ₹%.2f has been placed", order.Total)))
	return o.snapshotLocked(), nil
}
