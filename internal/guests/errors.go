package guests

import "errors"

var (
	ErrTokenNotFound         = errors.New("convert token not found")
	ErrTokenExpired          = errors.New("convert token expired")
	ErrAccountAlreadyCreated = errors.New("guest account already created")
)
