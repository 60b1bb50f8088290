package domain

import "strings"

// OrderDraft holds the per-order delivery details. Editing it never touches the stored profile.
type OrderDraft struct {
	Name          string        `json:"name"`
	Mobile        string        `json:"mobile"`
	Address       string        `json:"address"`
	Pincode       string        `json:"pincode"`
	Village       string        `json:"village"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

func DraftFromProfile(p Profile) OrderDraft {
	return OrderDraft{
		Name:          p.Name,
		Mobile:        p.Mobile,
		Address:       p.Address,
		Pincode:       p.Pincode,
		Village:       p.Village,
		PaymentMethod: PaymentMethodCOD,
	}
}

// MissingFields lists the required fields that are blank, in display order.
func (d OrderDraft) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", d.Name},
		{"mobile", d.Mobile},
		{"address", d.Address},
		{"pincode", d.Pincode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
