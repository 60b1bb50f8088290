package domain

// CartItem is a product snapshot plus the quantity the customer selected.
type CartItem struct {
	ID            string   `json:"id" bson:"id"`
	Name          string   `json:"name" bson:"name"`
	Price         float64  `json:"price" bson:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" bson:"discount_price,omitempty"`
	Images        []string `json:"images" bson:"images"`
	Unit          string   `json:"unit" bson:"unit"`
	UnitQuantity  float64  `json:"unitQuantity" bson:"unit_quantity"`
	Quantity      int      `json:"quantity" bson:"quantity"`

	// display only, never persisted on an order
	Rating   *float64 `json:"rating,omitempty" bson:"-"`
	Keywords []string `json:"keywords,omitempty" bson:"-"`
}

// EffectivePrice is the discounted price when one is set, the list price otherwise.
func (i CartItem) EffectivePrice() float64 {
	if i.DiscountPrice != nil {
		return *i.DiscountPrice
	}
	return i.Price
}

func (i CartItem) LineTotal() float64 {
	return i.EffectivePrice() * float64(i.Quantity)
}

// CartTotal sums the line totals. It is recomputed on every call.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// CloneItems returns a deep copy so callers cannot mutate a store's slice.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	for i, item := range items {
		c := item
		if item.DiscountPrice != nil {
			p := *item.DiscountPrice
			c.DiscountPrice = &p
		}
		if item.Rating != nil {
			r := *item.Rating
			c.Rating = &r
		}
		c.Images = append([]string(nil), item.Images...)
		c.Keywords = append([]string(nil), item.Keywords...)
		out[i] = c
	}
	return out
}
