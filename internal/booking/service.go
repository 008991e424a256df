package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"recruitment-portal/internal/metrics"
)

type Service struct {
	store      Store
	directory  Directory
	dispatcher Dispatcher
	listeners  []Listener
	log        *slog.Logger
}

func NewService(store Store, directory Directory, dispatcher Dispatcher, log *slog.Logger, listeners ...Listener) *Service {
	return &Service{
		store:      store,
		directory:  directory,
		dispatcher: dispatcher,
		listeners:  listeners,
		log:        log,
	}
}

// Submit opens an application for the applicant in track. Submitting twice
// returns the existing record.
func (s *Service) Submit(ctx context.Context, track Track, a Applicant) (*Booking, error) {
	if strings.TrimSpace(a.ID) == "" {
		return nil, fmt.Errorf("submit application: empty applicant id")
	}
	b, err := s.store.CreateApplication(ctx, &Booking{
		Track:       track,
		ApplicantID: a.ID,
		Email:       a.Email,
		Name:        a.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("submit application: %w", err)
	}
	return b, nil
}

func (s *Service) Application(ctx context.Context, track Track, applicantID string) (*Booking, error) {
	return s.store.Application(ctx, track, applicantID)
}

func (s *Service) List(ctx context.Context, track Track) ([]Booking, error) {
	return s.store.ListApplications(ctx, track)
}

// Decide records the admin decision on an application.
func (s *Service) Decide(ctx context.Context, track Track, applicantID string, status Status) (*Booking, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	b, err := s.store.SetStatus(ctx, track, applicantID, status)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	s.log.Info("application decided",
		slog.String("track", string(track)),
		slog.String("applicant_id", applicantID),
		slog.String("status", string(status)),
	)
	return b, nil
}

// FindHolders returns every applicant other than excludeApplicantID holding
// exactly slot in track.
func (s *Service) FindHolders(ctx context.Context, track Track, slot SlotKey, excludeApplicantID string) ([]string, error) {
	holders, err := s.store.FindHolders(ctx, track, slot, excludeApplicantID)
	if err != nil {
		return nil, fmt.Errorf("find holders: %w", err)
	}
	return holders, nil
}

// Book assigns slot to the applicant's application in track, replacing the
// slot it held before. A slot held by someone else yields a *ConflictError
// and leaves the application untouched.
func (s *Service) Book(ctx context.Context, track Track, applicantID string, slot SlotKey) (*Booking, error) {
	iv, ok := s.directory.Lookup(slot.Interviewer)
	if !ok {
		return nil, fmt.Errorf("%w: unknown interviewer %q", ErrInvalidSlot, slot.Interviewer)
	}
	if slot.Day.IsZero() || slot.End <= slot.Start {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, slot)
	}

	if _, err := s.store.Application(ctx, track, applicantID); err != nil {
		return nil, err
	}

	holders, err := s.FindHolders(ctx, track, slot, applicantID)
	if err != nil {
		return nil, err
	}
	if len(holders) > 0 {
		return nil, &ConflictError{Track: track, Slot: slot}
	}

	b, err := s.store.AssignSlot(ctx, track, applicantID, slot)
	if err != nil {
		// lost the race between check and write
		if errors.Is(err, ErrSlotConflict) {
			return nil, &ConflictError{Track: track, Slot: slot}
		}
		return nil, fmt.Errorf("assign slot: %w", err)
	}

	s.log.Info("slot booked",
		slog.String("track", string(track)),
		slog.String("applicant_id", applicantID),
		slog.String("slot", slot.String()),
	)

	booked := *b
	for _, l := range s.listeners {
		l := l
		s.dispatcher.Go(ctx, dispatchKey(track, applicantID), "slot_booked", func(ctx context.Context) error {
			return l.SlotBooked(ctx, booked, iv)
		})
	}

	return b, nil
}

// Resolve frees the slot held by the applicant. Resolving a booking that
// holds no slot succeeds without changes.
func (s *Service) Resolve(ctx context.Context, track Track, applicantID, reason string) (*Booking, error) {
	b, prev, err := s.store.ClearSlot(ctx, track, applicantID)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBookingNotFound, track, applicantID)
		}
		return nil, fmt.Errorf("clear slot: %w", err)
	}
	if prev == nil {
		return b, nil
	}

	metrics.IncSlotReleased(string(track))
	s.log.Info("slot released",
		slog.String("track", string(track)),
		slog.String("applicant_id", applicantID),
		slog.String("slot", prev.String()),
		slog.String("reason", reason),
	)

	released, freed := *b, *prev
	for _, l := range s.listeners {
		l := l
		s.dispatcher.Go(ctx, dispatchKey(track, applicantID), "slot_released", func(ctx context.Context) error {
			return l.SlotReleased(ctx, released, freed, reason)
		})
	}

	return b, nil
}

// dispatchKey orders side effects for one booking.
func dispatchKey(track Track, applicantID string) string {
	return string(track) + ":" + applicantID
}

// Interviewers lists the directory.
func (s *Service) Interviewers() []Interviewer {
	return s.directory.List()
}

func (s *Service) Interviewer(id string) (Interviewer, bool) {
	return s.directory.Lookup(id)
}
