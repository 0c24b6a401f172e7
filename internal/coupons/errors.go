package coupons

import "errors"

var (
	ErrCouponNotFound             = errors.New("coupon not found")
	ErrCouponExpired              = errors.New("coupon expired")
	ErrCouponRestrictedToNewUsers = errors.New("coupon restricted to new users")
	ErrCouponRestrictedToMembers  = errors.New("coupon restricted to members")
	ErrCouponUsageLimitReached    = errors.New("coupon usage limit reached")
	ErrCouponExists               = errors.New("coupon already exists")
)
