package enums

import "fmt"

// ReturnRequestType distinguishes a refund return from a replacement.
type ReturnRequestType string

const (
	ReturnRequestTypeReturn      ReturnRequestType = "RETURN"
	ReturnRequestTypeReplacement ReturnRequestType = "REPLACEMENT"
)

var validReturnRequestTypes = []ReturnRequestType{
	ReturnRequestTypeReturn,
	ReturnRequestTypeReplacement,
}

// String implements fmt.Stringer.
func (r ReturnRequestType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnRequestType.
func (r ReturnRequestType) IsValid() bool {
	for _, candidate := range validReturnRequestTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnRequestType converts raw input into a ReturnRequestType.
func ParseReturnRequestType(value string) (ReturnRequestType, error) {
	for _, candidate := range validReturnRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request type %q", value)
}
