package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusAssigned       OrderStatus = "Assigned"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusAssigned, OrderStatusCancelled},
	OrderStatusAssigned:       {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanAdvanceOrder reports whether an admin or delivery actor may move an order from one status to another.
func CanAdvanceOrder(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "Online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// OrderItem is a cart line frozen onto an order; rating and keywords are dropped.
type OrderItem struct {
	ID            string   `json:"id" bson:"id"`
	Name          string   `json:"name" bson:"name"`
	Price         float64  `json:"price" bson:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" bson:"discount_price,omitempty"`
	Images        []string `json:"images" bson:"images"`
	Unit          string   `json:"unit" bson:"unit"`
	UnitQuantity  float64  `json:"unitQuantity" bson:"unit_quantity"`
	Quantity      int      `json:"quantity" bson:"quantity"`
}

func OrderItemFromCart(item CartItem) OrderItem {
	return OrderItem{
		ID:            item.ID,
		Name:          item.Name,
		Price:         item.Price,
		DiscountPrice: item.DiscountPrice,
		Images:        item.Images,
		Unit:          item.Unit,
		UnitQuantity:  item.UnitQuantity,
		Quantity:      item.Quantity,
	}
}

type Order struct {
	ID                      string        `json:"id" bson:"_id"`
	CheckoutID              string        `json:"checkoutId" bson:"checkout_id"`
	CustomerID              string        `json:"customerId" bson:"customer_id"`
	CustomerName            string        `json:"customerName" bson:"customer_name"`
	CustomerAddress         string        `json:"customerAddress" bson:"customer_address"`
	CustomerPincode         string        `json:"customerPincode" bson:"customer_pincode"`
	CustomerMobile          string        `json:"customerMobile" bson:"customer_mobile"`
	CustomerVillage         string        `json:"customerVillage,omitempty" bson:"customer_village,omitempty"`
	Items                   []OrderItem   `json:"items" bson:"items"`
	Total                   float64       `json:"total" bson:"total"`
	Status                  OrderStatus   `json:"status" bson:"status"`
	CreatedAt               time.Time     `json:"createdAt" bson:"created_at"`
	PaymentMethod           PaymentMethod `json:"paymentMethod" bson:"payment_method"`
	PaymentID               *string       `json:"paymentId" bson:"payment_id,omitempty"`
	CustomerHasViewedUpdate bool          `json:"customerHasViewedUpdate" bson:"customer_has_viewed_update"`
}
