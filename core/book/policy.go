package book

import (
	"errors"
	"time"
)

// Reservation policy. The window and extension cap are fixed for now; they can
// move to configuration without changing the reservation state machine.
const (
	ReservationPeriod = 7 * 24 * time.Hour
	MaxExtensions     = 3
)

var (
	ErrAlreadyReserved       = errors.New("this book is already reserved by this user")
	ErrNoCopiesAvailable     = errors.New("no copies of this book are available")
	ErrExtensionLimitReached = errors.New("this reservation cannot be extended any further")

	errTakenCountUnderflow = errors.New("taken copies count underflow")
)

// CanReserve reports whether a user can claim a copy of b.
// Pure decision logic; it mutates nothing.
func CanReserve(b Book, hasReservation bool) error {
	if hasReservation {
		return ErrAlreadyReserved
	}
	if b.AvailableCount() <= 0 {
		return ErrNoCopiesAvailable
	}
	return nil
}

// CanExtend reports whether res may be renewed once more.
func CanExtend(res Reservation) error {
	if res.ExtensionCount >= MaxExtensions {
		return ErrExtensionLimitReached
	}
	return nil
}

// InitialEndDate returns the due date of a freshly granted reservation.
func InitialEndDate(now time.Time) time.Time {
	return now.UTC().Add(ReservationPeriod)
}

// ExtendedEndDate pushes the current due date one period forward. Extending
// early or late makes no difference; the ladder of due dates stays predictable.
func ExtendedEndDate(current time.Time) time.Time {
	return current.UTC().Add(ReservationPeriod)
}
