package enums

import "fmt"

// InboxFilter narrows the creator inbox listing.
type InboxFilter string

const (
	InboxFilterAll       InboxFilter = "all"
	InboxFilterHandled   InboxFilter = "handled"
	InboxFilterUnhandled InboxFilter = "unhandled"
)

var validInboxFilters = []InboxFilter{
	InboxFilterAll,
	InboxFilterHandled,
	InboxFilterUnhandled,
}

func (f InboxFilter) String() string {
	return string(f)
}

func (f InboxFilter) IsValid() bool {
	for _, candidate := range validInboxFilters {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseInboxFilter treats an empty value as InboxFilterAll.
func ParseInboxFilter(value string) (InboxFilter, error) {
	if value == "" {
		return InboxFilterAll, nil
	}
	for _, candidate := range validInboxFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inbox filter %q", value)
}
