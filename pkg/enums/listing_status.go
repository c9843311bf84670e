package enums

import "fmt"

// ListingStatus tracks a listing through its auction lifecycle. Statuses only
// ever move forward; a relist creates a fresh listing row rather than
// rewinding an existing one.
type ListingStatus string

const (
	ListingStatusPending   ListingStatus = "pending"
	ListingStatusQueued    ListingStatus = "queued"
	ListingStatusLive      ListingStatus = "live"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusNotSold   ListingStatus = "not_sold"
	ListingStatusRejected  ListingStatus = "rejected"
	ListingStatusWithdrawn ListingStatus = "withdrawn"
)

var validListingStatuses = []ListingStatus{
	ListingStatusPending,
	ListingStatusQueued,
	ListingStatusLive,
	ListingStatusCompleted,
	ListingStatusSold,
	ListingStatusNotSold,
	ListingStatusRejected,
	ListingStatusWithdrawn,
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no scheduler transition can ever move the
// listing again.
func (s ListingStatus) IsTerminal() bool {
	switch s {
	case ListingStatusSold, ListingStatusNotSold, ListingStatusRejected, ListingStatusWithdrawn:
		return true
	default:
		return false
	}
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
