package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type RoleTag string

const (
	RoleCustomer RoleTag = "customer"
	RoleAdmin    RoleTag = "admin"
	RoleDelivery RoleTag = "delivery"
)

var roleOrder = map[RoleTag]int{RoleCustomer: 0, RoleAdmin: 1, RoleDelivery: 2}

// Role is a closed set: CustomerRole, AdminRole or DeliveryRole.
type Role interface {
	Tag() RoleTag
	isRole()
}

type CustomerRole struct{}

type AdminRole struct{}

// DeliveryRole carries the pincodes a delivery partner serves.
type DeliveryRole struct {
	Pincodes []string
}

func (CustomerRole) Tag() RoleTag { return RoleCustomer }
func (AdminRole) Tag() RoleTag    { return RoleAdmin }
func (DeliveryRole) Tag() RoleTag { return RoleDelivery }

func (CustomerRole) isRole() {}
func (AdminRole) isRole()    {}
func (DeliveryRole) isRole() {}

type Roles []Role

func (r Roles) Has(tag RoleTag) bool {
	for _, role := range r {
		if role.Tag() == tag {
			return true
		}
	}
	return false
}

func (r Roles) Delivery() (DeliveryRole, bool) {
	for _, role := range r {
		if d, ok := role.(DeliveryRole); ok {
			return d, true
		}
	}
	return DeliveryRole{}, false
}

// Panel is the landing path the roles grant. Admin outranks delivery.
func (r Roles) Panel() string {
	switch {
	case r.Has(RoleAdmin):
		return "/admin"
	case r.Has(RoleDelivery):
		return "/delivery"
	default:
		return "/"
	}
}

// ParseRoleMap converts the stored open-ended role map, e.g. {"admin": true, "delivery": {"pincodes": [...]}}.
// Unknown keys and falsy values are dropped.
func ParseRoleMap(m map[string]any) Roles {
	var roles Roles
	for key, value := range m {
		if value == nil || value == false {
			continue
		}
		switch RoleTag(key) {
		case RoleCustomer:
			roles = append(roles, CustomerRole{})
		case RoleAdmin:
			roles = append(roles, AdminRole{})
		case RoleDelivery:
			roles = append(roles, DeliveryRole{Pincodes: pincodesFrom(value)})
		}
	}
	sortRoles(roles)
	return roles
}

func pincodesFrom(v any) []string {
	meta, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var raw []any
	switch p := meta["pincodes"].(type) {
	case []any:
		raw = p
	case []string:
		return append([]string(nil), p...)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortRoles(roles Roles) {
	sort.Slice(roles, func(i, j int) bool {
		return roleOrder[roles[i].Tag()] < roleOrder[roles[j].Tag()]
	})
}

type roleJSON struct {
	Tag      RoleTag  `json:"tag"`
	Pincodes []string `json:"pincodes,omitempty"`
}

func (r Roles) MarshalJSON() ([]byte, error) {
	out := make([]roleJSON, 0, len(r))
	for _, role := range r {
		entry := roleJSON{Tag: role.Tag()}
		if d, ok := role.(DeliveryRole); ok {
			entry.Pincodes = d.Pincodes
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the tagged list form and the legacy map form.
func (r *Roles) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}

	if trimmed[0] == '{' {
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("decode role map: %w", err)
		}
		*r = ParseRoleMap(m)
		return nil
	}

	var list []roleJSON
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("decode role list: %w", err)
	}
	roles := make(Roles, 0, len(list))
	for _, entry := range list {
		switch entry.Tag {
		case RoleCustomer:
			roles = append(roles, CustomerRole{})
		case RoleAdmin:
			roles = append(roles, AdminRole{})
		case RoleDelivery:
			roles = append(roles, DeliveryRole{Pincodes: entry.Pincodes})
		}
	}
	sortRoles(roles)
	*r = roles
	return nil
}
