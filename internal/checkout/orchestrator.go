package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/orders"
	"github.com/ramukaka/market/internal/payment"
)

const OrdersRedirect = "/orders"

type Cart interface {
	Items() []domain.CartItem
	IsEmpty() bool
	Deduct(ctx context.Context, ordered []domain.OrderItem) error
}

type ProfileSource interface {
	Resolve(ctx context.Context) domain.Profile
	SaveLocal(ctx context.Context, p domain.Profile) error
}

type Submitter interface {
	Submit(ctx context.Context, s orders.Submission) (*domain.Order, error)
}

type PaymentBranch interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.WidgetConfig, error)
	Resolve(widget *payment.WidgetConfig, ev payment.WidgetEvent) (string, error)
}

type Deps struct {
	Cart     Cart
	Profiles ProfileSource
	Orders   Submitter
	Payments PaymentBranch
	Notifier notify.Notifier
	Ledger   *PaymentLedger
	Log      *slog.Logger
}

// Snapshot is the client-facing view of one checkout.
type Snapshot struct {
	CheckoutID      string                `json:"checkoutId"`
	State           domain.CheckoutState  `json:"state"`
	Draft           domain.OrderDraft     `json:"draft"`
	Widget          *payment.WidgetConfig `json:"widget,omitempty"`
	PaymentCaptured bool                  `json:"paymentCaptured"`
	Order           *domain.Order         `json:"order,omitempty"`
	Redirect        string                `json:"redirect,omitempty"`
}

// Orchestrator drives one checkout attempt from Idle to Closed. Events are serialised;
// the order write runs outside the lock while the state reads Submitting.
type Orchestrator struct {
	mu sync.Mutex

	checkoutID string
	customerID string
	state      domain.CheckoutState
	draft      domain.OrderDraft
	profile    *domain.Profile
	widget     *payment.WidgetConfig
	paymentID  string
	held       []domain.CartItem
	order      *domain.Order
	redirect   string

	cart     Cart
	profiles ProfileSource
	orders   Submitter
	payments PaymentBranch
	notifier notify.Notifier
	ledger   *PaymentLedger
	log      *slog.Logger
}

func New(customerID string, deps Deps) *Orchestrator {
	checkoutID := uuid.NewString()
	ledger := deps.Ledger
	if ledger == nil {
		ledger = NewPaymentLedger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewRecorder()
	}
	return &Orchestrator{
		checkoutID: checkoutID,
		customerID: customerID,
		state:      domain.CheckoutStateIdle,
		cart:       deps.Cart,
		profiles:   deps.Profiles,
		orders:     deps.Orders,
		payments:   deps.Payments,
		notifier:   notifier,
		ledger:     ledger,
		log:        logger.OrDefault(deps.Log).With("checkout_id", checkoutID),
	}
}

func (o *Orchestrator) State() domain.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		CheckoutID:      o.checkoutID,
		State:           o.state,
		Draft:           o.draft,
		Widget:          o.widget,
		PaymentCaptured: o.paymentID != "",
		Redirect:        o.redirect,
	}
	if o.order != nil {
		order := *o.order
		s.Order = &order
	}
	return s
}

// HoldsCart reports whether the cart lines are committed to this checkout: a payment is
// open or captured, or an order write is outstanding.
func (o *Orchestrator) HoldsCart() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == domain.CheckoutStateOnlinePayment ||
		o.state == domain.CheckoutStateSubmitting ||
		o.paymentID != ""
}

// holdCartLocked freezes the lines being paid for or submitted. A hold taken earlier wins.
func (o *Orchestrator) holdCartLocked() []domain.CartItem {
	if o.held == nil {
		o.held = o.cart.Items()
	}
	return domain.CloneItems(o.held)
}

// releaseCartLocked drops the hold unless a captured payment still covers it.
func (o *Orchestrator) releaseCartLocked() {
	if o.paymentID == "" {
		o.held = nil
	}
}

// transition moves to next or explains why it cannot.
func (o *Orchestrator) transition(ctx context.Context, next domain.CheckoutState) error {
	if !domain.CanTransitionTo(o.state, next) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, o.state, next)
	}
	o.log.DebugContext(ctx, "checkout transition", "from", o.state, "to", next)
	o.state = next
	return nil
}

// accept checks that a customer event may move the checkout to next. While an order
// write is outstanding every customer event is refused.
func (o *Orchestrator) accept(next domain.CheckoutState) error {
	if o.state == domain.CheckoutStateSubmitting {
		return ErrSubmissionInFlight
	}
	if !domain.CanTransitionTo(o.state, next) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, o.state, next)
	}
	return nil
}
