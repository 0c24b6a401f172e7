package enums

import "fmt"

// ReturnRequestStatus tracks the store-side resolution of a return request.
type ReturnRequestStatus string

const (
	ReturnRequestStatusPending   ReturnRequestStatus = "PENDING"
	ReturnRequestStatusApproved  ReturnRequestStatus = "APPROVED"
	ReturnRequestStatusRejected  ReturnRequestStatus = "REJECTED"
	ReturnRequestStatusCompleted ReturnRequestStatus = "COMPLETED"
)

var validReturnRequestStatuses = []ReturnRequestStatus{
	ReturnRequestStatusPending,
	ReturnRequestStatusApproved,
	ReturnRequestStatusRejected,
	ReturnRequestStatusCompleted,
}

// String implements fmt.Stringer.
func (r ReturnRequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnRequestStatus.
func (r ReturnRequestStatus) IsValid() bool {
	for _, candidate := range validReturnRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnRequestStatus converts raw input into a ReturnRequestStatus.
func ParseReturnRequestStatus(value string) (ReturnRequestStatus, error) {
	for _, candidate := range validReturnRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request status %q", value)
}
