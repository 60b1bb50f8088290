package payment

import (
	"encoding/json"
	"fmt"
)

type EventKind string

const (
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventDismissed EventKind = "dismissed"
)

// WidgetEvent is one of PaymentSucceeded, PaymentFailed or WidgetDismissed.
type WidgetEvent interface {
	Kind() EventKind
	isWidgetEvent()
}

type PaymentSucceeded struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Signature string `json:"signature"`
}

type PaymentFailed struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type WidgetDismissed struct{}

func (PaymentSucceeded) Kind() EventKind { return EventSucceeded }
func (PaymentFailed) Kind() EventKind    { return EventFailed }
func (WidgetDismissed) Kind() EventKind  { return EventDismissed }

func (PaymentSucceeded) isWidgetEvent() {}
func (PaymentFailed) isWidgetEvent()    {}
func (WidgetDismissed) isWidgetEvent()  {}

// DecodeEvent reads the {"kind": ..., ...} envelope posted by the browser callback.
func DecodeEvent(raw []byte) (WidgetEvent, error) {
	var head struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode widget event: %w", err)
	}

	switch head.Kind {
	case EventSucceeded:
		var ev PaymentSucceeded
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode payment success: %w", err)
		}
		return ev, nil
	case EventFailed:
		var ev PaymentFailed
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode payment failure: %w", err)
		}
		return ev, nil
	case EventDismissed:
		return WidgetDismissed{}, nil
	default:
		return nil, fmt.Errorf("unknown widget event kind %q", head.Kind)
	}
}
