package enums

import "fmt"

// PurchaseKind discriminates what a checkout session buys.
type PurchaseKind string

const (
	PurchaseKindMessage     PurchaseKind = "message"
	PurchaseKindCallBooking PurchaseKind = "call_booking"
)

var validPurchaseKinds = []PurchaseKind{
	PurchaseKindMessage,
	PurchaseKindCallBooking,
}

// String implements fmt.Stringer.
func (k PurchaseKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PurchaseKind.
func (k PurchaseKind) IsValid() bool {
	for _, candidate := range validPurchaseKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePurchaseKind converts raw input into a PurchaseKind.
func ParsePurchaseKind(value string) (PurchaseKind, error) {
	for _, candidate := range validPurchaseKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase kind %q", value)
}
