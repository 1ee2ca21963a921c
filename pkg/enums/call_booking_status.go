package enums

import "fmt"

// CallBookingStatus tracks a paid call from confirmation to completion.
type CallBookingStatus string

const (
	CallBookingStatusPending   CallBookingStatus = "pending"
	CallBookingStatusConfirmed CallBookingStatus = "confirmed"
	CallBookingStatusCompleted CallBookingStatus = "completed"
	CallBookingStatusCancelled CallBookingStatus = "cancelled"
)

var validCallBookingStatuses = []CallBookingStatus{
	CallBookingStatusPending,
	CallBookingStatusConfirmed,
	CallBookingStatusCompleted,
	CallBookingStatusCancelled,
}

// String implements fmt.Stringer.
func (s CallBookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CallBookingStatus.
func (s CallBookingStatus) IsValid() bool {
	for _, candidate := range validCallBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCallBookingStatus converts raw input into a CallBookingStatus.
func ParseCallBookingStatus(value string) (CallBookingStatus, error) {
	for _, candidate := range validCallBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid call booking status %q", value)
}
