package enums

import "fmt"

// AddressType scopes an address entry to billing, shipping, or both.
type AddressType string

const (
	AddressTypeBilling  AddressType = "billing"
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBoth     AddressType = "both"
)

var validAddressTypes = []AddressType{
	AddressTypeBilling,
	AddressTypeShipping,
	AddressTypeBoth,
}

// String implements fmt.Stringer.
func (a AddressType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AddressType.
func (a AddressType) IsValid() bool {
	for _, candidate := range validAddressTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// Covers reports whether the entry satisfies the requested role, accounting
// for the "both" type.
func (a AddressType) Covers(role AddressType) bool {
	if a == AddressTypeBoth {
		return role == AddressTypeBilling || role == AddressTypeShipping || role == AddressTypeBoth
	}
	return a == role
}

// ParseAddressType converts raw input into an AddressType.
func ParseAddressType(value string) (AddressType, error) {
	for _, candidate := range validAddressTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid address type %q", value)
}
