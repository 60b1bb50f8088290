package domain

// Profile is the customer's delivery and contact information.
type Profile struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Mobile  string `json:"mobile,omitempty" bson:"mobile,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	Pincode string `json:"pincode,omitempty" bson:"pincode,omitempty"`
	Village string `json:"village,omitempty" bson:"village,omitempty"`
	Roles   Roles  `json:"roles,omitempty" bson:"-"`
}

// MergeProfiles layers remote over local. A non-empty remote field wins; remote roles replace local ones when present.
func MergeProfiles(local, remote Profile) Profile {
	merged := local
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&merged.Name, remote.Name)
	pick(&merged.Email, remote.Email)
	pick(&merged.Mobile, remote.Mobile)
	pick(&merged.Address, remote.Address)
	pick(&merged.Pincode, remote.Pincode)
	pick(&merged.Village, remote.Village)
	if len(remote.Roles) > 0 {
		merged.Roles = remote.Roles
	}
	return merged
}
