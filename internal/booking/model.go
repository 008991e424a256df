package booking

import (
	"fmt"
	"time"
)

// Track is an independent application category. Slot uniqueness is
// enforced per track.
type Track string

const (
	TrackMember    Track = "member"
	TrackCommittee Track = "committee"
	TrackEA        Track = "ea"
)

var Tracks = []Track{TrackMember, TrackCommittee, TrackEA}

func ParseTrack(s string) (Track, error) {
	for _, t := range Tracks {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrack, s)
}

type Status string

const (
	StatusNone       Status = ""
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusRedirected Status = "redirected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNone, StatusAccepted, StatusRejected, StatusRedirected:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Booking is an applicant's application record in one track together with
// the interview slot it holds, if any.
type Booking struct {
	ID          string
	Track       Track
	ApplicantID string
	Email       string
	Name        string
	Slot        *SlotKey
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b *Booking) HasSlot() bool { return b.Slot != nil }

// Applicant is the identity submitting an application.
type Applicant struct {
	ID    string
	Email string
	Name  string
}

// ConflictGroup is a slot held by more than one applicant.
type ConflictGroup struct {
	Track     Track
	Slot      SlotKey
	Occupants []string
}
