package domain

import "errors"

var (
	ErrBookingNotFound   = errors.New("booking_not_found")
	ErrInvalidTransition = errors.New("booking_invalid_transition")
	ErrInvalidBooking    = errors.New("booking_invalid")
	ErrBookingHasDispute = errors.New("booking_has_active_dispute")
)
