package returns

import "errors"

var (
	ErrMissingFields          = errors.New("missing required fields")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderNotDelivered      = errors.New("order not delivered")
	ErrWindowExpired          = errors.New("return window expired")
	ErrProductNotEligible     = errors.New("product does not allow request type")
	ErrDuplicateReturnRequest = errors.New("return request already exists")
	ErrRequestNotFound        = errors.New("return request not found")
	ErrNotRequestOwner        = errors.New("return request belongs to another store")
)
