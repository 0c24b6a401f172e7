package orders

import "errors"

var (
	ErrOrderNotFoundOrUnauthorized = errors.New("order not found or unauthorized")
	ErrNoFulfillmentChanges        = errors.New("no fulfillment fields supplied")
)
