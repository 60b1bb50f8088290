package checkout

import (
	"context"
	"fmt"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/orders"
)

// ChoosePromo answers the pay-online offer: COD submits right away, Online opens the widget.
func (o *Orchestrator) ChoosePromo(ctx context.Context, method domain.PaymentMethod) (Snapshot, error) {
	o.mu.Lock()
	sub, err := o.choosePromoLocked(ctx, method)
	o.mu.Unlock()
	return o.finish(ctx, sub, err)
}

func (o *Orchestrator) choosePromoLocked(ctx context.Context, method domain.PaymentMethod) (*pendingSubmission, error) {
	if o.state == domain.CheckoutStateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if o.state != domain.CheckoutStatePromoOpen {
		return nil, fmt.Errorf("%w: promo choice in %s", ErrIllegalTransition, o.state)
	}

	if o.paymentID != "" {
		o.draft.PaymentMethod = domain.PaymentMethodOnline
		return o.beginSubmitLocked(ctx)
	}

	switch method {
	case domain.PaymentMethodCOD:
		o.draft.PaymentMethod = domain.PaymentMethodCOD
		return o.beginSubmitLocked(ctx)
	case domain.PaymentMethodOnline:
		return nil, o.startPaymentLocked(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", orders.ErrInvalidMethod, method)
	}
}
