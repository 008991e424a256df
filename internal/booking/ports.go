package booking

import (
	"context"
	"time"
)

// Store is the persistent home of applications and their slots. AssignSlot
// must reject a slot already held by another applicant of the same track
// with ErrSlotConflict; that check is the authoritative one.
type Store interface {
	CreateApplication(ctx context.Context, b *Booking) (*Booking, error)
	Application(ctx context.Context, track Track, applicantID string) (*Booking, error)
	ListApplications(ctx context.Context, track Track) ([]Booking, error)
	SetStatus(ctx context.Context, track Track, applicantID string, status Status) (*Booking, error)

	FindHolders(ctx context.Context, track Track, slot SlotKey, excludeApplicantID string) ([]string, error)
	AssignSlot(ctx context.Context, track Track, applicantID string, slot SlotKey) (*Booking, error)
	// ClearSlot empties the slot and returns the updated record together with
	// the slot it held before, nil when it was already empty.
	ClearSlot(ctx context.Context, track Track, applicantID string) (*Booking, *SlotKey, error)
	ListBooked(ctx context.Context, track Track) ([]Booking, error)
}

// Listener is told about committed slot changes. Listeners run after the
// change is stored; their errors never undo it.
type Listener interface {
	SlotBooked(ctx context.Context, b Booking, iv Interviewer) error
	SlotReleased(ctx context.Context, b Booking, prev SlotKey, reason string) error
}

// Dispatcher runs post-commit work on a best-effort basis. Work submitted
// under the same key must run in submission order.
type Dispatcher interface {
	Go(ctx context.Context, key, task string, fn func(context.Context) error)
}

type Interviewer struct {
	ID         string
	Title      string
	Email      string
	MeetingURL string
	Windows    []Window
}

// Window is a block of interview time cut into SlotMinutes-long slots.
// A window with a zero Date repeats every Weekday.
type Window struct {
	Date        Date
	Weekday     time.Weekday
	Start       Clock
	End         Clock
	SlotMinutes int
}

type Directory interface {
	Lookup(id string) (Interviewer, bool)
	List() []Interviewer
}
