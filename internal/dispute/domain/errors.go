package domain

import "errors"

var (
	ErrDisputeNotFound    = errors.New("dispute_not_found")
	ErrInvalidDisputeType = errors.New("dispute_invalid_type")
	ErrDisputeNotActive   = errors.New("dispute_not_active")
	ErrHumanResolved      = errors.New("dispute_resolved_by_human")
	ErrBookingNotDisputed = errors.New("dispute_booking_not_in_dispute")
	ErrRefundFailed       = errors.New("dispute_refund_failed")
	ErrInvalidDispute     = errors.New("dispute_invalid")
	ErrAlreadyResolved    = errors.New("dispute_already_resolved")
)
