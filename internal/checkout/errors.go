package checkout

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrPaymentReused      = errors.New("payment already used for another order")
	ErrCartLocked         = errors.New("cart is locked while payment or order placement is in progress")
)

// ValidationError lists the delivery fields the customer left blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}
