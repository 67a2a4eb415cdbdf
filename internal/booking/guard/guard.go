// Package guard validates booking state transitions against the lifecycle
// table, rejecting anything outside it at the boundary.
package guard

import (
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
)

// transitions is the authoritative lifecycle table. completed and cancelled
// are terminal; dispute must resolve into one of them; nothing ever returns
// to pending.
var transitions = map[bookingdomain.BookingStatus][]bookingdomain.BookingStatus{
	bookingdomain.BookingStatusPending: {
		bookingdomain.BookingStatusConfirmed,
		bookingdomain.BookingStatusCancelled,
	},
	bookingdomain.BookingStatusConfirmed: {
		bookingdomain.BookingStatusCompleted,
		bookingdomain.BookingStatusCancelled,
		bookingdomain.BookingStatusDispute,
	},
	bookingdomain.BookingStatusDispute: {
		bookingdomain.BookingStatusCompleted,
		bookingdomain.BookingStatusCancelled,
	},
}

// EnsureTransition returns ErrInvalidTransition unless from -> to is in the
// lifecycle table.
func EnsureTransition(from, to bookingdomain.BookingStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return bookingdomain.ErrInvalidTransition
}
