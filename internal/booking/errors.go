package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSlot         = errors.New("invalid slot")
	ErrInvalidTrack        = errors.New("invalid track")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrApplicationNotFound = errors.New("application not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInterviewerNotFound = errors.New("interviewer not found")
)

// ErrSlotConflict is matched by every *ConflictError.
var ErrSlotConflict = errors.New("slot already booked")

// ConflictError reports that the requested slot is held by another
// applicant. It is a normal outcome: callers should ask for another slot.
type ConflictError struct {
	Track Track
	Slot  SlotKey
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrSlotConflict, e.Slot, e.Track)
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }
