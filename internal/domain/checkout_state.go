package domain

type CheckoutState string

const (
	CheckoutStateIdle          CheckoutState = "IDLE"
	CheckoutStateDetailsOpen   CheckoutState = "DETAILS_OPEN"
	CheckoutStatePromoOpen     CheckoutState = "PROMO_OPEN"
	CheckoutStateOnlinePayment CheckoutState = "ONLINE_PAYMENT"
	CheckoutStateSubmitting    CheckoutState = "SUBMITTING"
	CheckoutStateClosed        CheckoutState = "CLOSED"
)

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateClosed
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle: {CheckoutStateDetailsOpen},
	CheckoutStateDetailsOpen: {
		CheckoutStateDetailsOpen,
		CheckoutStatePromoOpen,
		CheckoutStateOnlinePayment,
		CheckoutStateSubmitting, // retry with a payment already captured
		CheckoutStateIdle,
	},
	CheckoutStatePromoOpen: {
		CheckoutStateSubmitting,
		CheckoutStateOnlinePayment,
		CheckoutStateIdle,
	},
	CheckoutStateOnlinePayment: {
		CheckoutStateSubmitting,
		CheckoutStateDetailsOpen,
	},
	CheckoutStateSubmitting: {
		CheckoutStateClosed,
		CheckoutStateDetailsOpen,
	},
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
