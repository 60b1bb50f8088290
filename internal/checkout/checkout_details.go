package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/notify"
)

// Open shows the delivery details dialog seeded from the resolved profile.
func (o *Orchestrator) Open(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == domain.CheckoutStateSubmitting {
		return o.snapshotLocked(), ErrSubmissionInFlight
	}
	if o.state != domain.CheckoutStateIdle {
		return o.snapshotLocked(), fmt.Errorf("%w: open from %s", ErrIllegalTransition, o.state)
	}
	if o.cart.IsEmpty() {
		o.notifier.Notify(notify.Error("Cart is empty", "Add something to your cart before checking out"))
		return o.snapshotLocked(), ErrEmptyCart
	}

	if o.profile == nil {
		var p domain.Profile
		if o.profiles != nil {
			p = o.profiles.Resolve(ctx)
		}
		o.profile = &p
	}
	o.draft = domain.DraftFromProfile(*o.profile)
	if o.paymentID != "" {
		o.draft.PaymentMethod = domain.PaymentMethodOnline
	}

	if err := o.transition(ctx, domain.CheckoutStateDetailsOpen); err != nil {
		return o.snapshotLocked(), err
	}
	return o.snapshotLocked(), nil
}

// UpdateDraft replaces the order draft. The stored profile is left alone.
func (o *Orchestrator) UpdateDraft(draft domain.OrderDraft) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == domain.CheckoutStateSubmitting {
		return o.snapshotLocked(), ErrSubmissionInFlight
	}
	if o.state != domain.CheckoutStateDetailsOpen {
		return o.snapshotLocked(), fmt.Errorf("%w: edit details in %s", ErrIllegalTransition, o.state)
	}
	o.draft = draft
	return o.snapshotLocked(), nil
}

// Confirm validates the details and branches on the chosen payment method. draft, when
// non-nil, replaces the current draft first.
func (o *Orchestrator) Confirm(ctx context.Context, draft *domain.OrderDraft) (Snapshot, error) {
	o.mu.Lock()
	sub, err := o.confirmLocked(ctx, draft)
	o.mu.Unlock()
	return o.finish(ctx, sub, err)
}

func (o *Orchestrator) confirmLocked(ctx context.Context, draft *domain.OrderDraft) (*pendingSubmission, error) {
	if o.state == domain.CheckoutStateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if o.state != domain.CheckoutStateDetailsOpen {
		return nil, fmt.Errorf("%w: confirm in %s", ErrIllegalTransition, o.state)
	}
	if draft != nil {
		o.draft = *draft
	}

	missing := o.draft.MissingFields()
	if !o.draft.PaymentMethod.Valid() {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		if err := o.transition(ctx, domain.CheckoutStateDetailsOpen); err != nil {
			return nil, err
		}
		o.notifier.Notify(notify.Error("Missing details", "Please fill in: "+strings.Join(missing, ", ")))
		return nil, &ValidationError{Missing: missing}
	}

	// A captured payment is only ever spent on this order.
	if o.paymentID != "" {
		o.draft.PaymentMethod = domain.PaymentMethodOnline
		return o.beginSubmitLocked(ctx)
	}

	switch o.draft.PaymentMethod {
	case domain.PaymentMethodOnline:
		return nil, o.startPaymentLocked(ctx)
	default:
		return nil, o.transition(ctx, domain.CheckoutStatePromoOpen)
	}
}

// Dismiss closes the details or promo dialog without touching the cart or any remote state.
func (o *Orchestrator) Dismiss(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.accept(domain.CheckoutStateIdle); err != nil {
		return o.snapshotLocked(), err
	}
	o.widget = nil
	if err := o.transition(ctx, domain.CheckoutStateIdle); err != nil {
		return o.snapshotLocked(), err
	}
	return o.snapshotLocked(), nil
}

// rememberDetails stores the delivery details of a placed order for the next visit.
func (o *Orchestrator) rememberDetails(ctx context.Context) {
	if o.profiles == nil {
		return
	}
	var p domain.Profile
	if o.profile != nil {
		p = *o.profile
	}
	p.Name = o.draft.Name
	p.Mobile = o.draft.Mobile
	p.Address = o.draft.Address
	p.Pincode = o.draft.Pincode
	p.Village = o.draft.Village
	if err := o.profiles.SaveLocal(ctx, p); err != nil {
		o.log.WarnContext(ctx, "could not remember delivery details", "error", err)
	}
}
