package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"recruitment-portal/internal/booking"
)

// bookingProperty tags events with "<track>:<applicant id>" so a later
// change to the same booking can find and replace them.
const bookingProperty = "booking"

// Publisher mirrors booked interviews into a shared Google calendar.
type Publisher struct {
	srv        *gcal.Service
	calendarID string
	loc        *time.Location
	log        *slog.Logger
}

// New builds a Publisher authenticated with a service account key file.
func New(ctx context.Context, credentialsFile, calendarID string, loc *time.Location, log *slog.Logger) (*Publisher, error) {
	srv, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewWithService(srv, calendarID, loc, log), nil
}

func NewWithService(srv *gcal.Service, calendarID string, loc *time.Location, log *slog.Logger) *Publisher {
	if loc == nil {
		loc = time.UTC
	}
	return &Publisher{srv: srv, calendarID: calendarID, loc: loc, log: log}
}

// SlotBooked replaces the booking's previous event, if any, with one for
// the new slot.
func (p *Publisher) SlotBooked(ctx context.Context, b booking.Booking, iv booking.Interviewer) error {
	if b.Slot == nil {
		return nil
	}
	if err := p.remove(ctx, b); err != nil {
		return err
	}

	ev := &gcal.Event{
		Summary:     fmt.Sprintf("%s interview: %s", b.Track, applicantLabel(b)),
		Description: description(b, iv),
		Location:    iv.MeetingURL,
		Start:       p.at(b.Slot.Day, b.Slot.Start),
		End:         p.at(b.Slot.Day, b.Slot.End),
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{bookingProperty: tag(b)},
		},
	}
	created, err := p.srv.Events.Insert(p.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}

	p.log.Debug("calendar event created",
		slog.String("event_id", created.Id),
		slog.String("booking", tag(b)),
	)
	return nil
}

func (p *Publisher) SlotReleased(ctx context.Context, b booking.Booking, _ booking.SlotKey, _ string) error {
	return p.remove(ctx, b)
}

func (p *Publisher) remove(ctx context.Context, b booking.Booking) error {
	events, err := p.srv.Events.List(p.calendarID).
		PrivateExtendedProperty(bookingProperty + "=" + tag(b)).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}

	for _, item := range events.Items {
		err := p.srv.Events.Delete(p.calendarID, item.Id).Context(ctx).Do()
		if err != nil && !gone(err) {
			return fmt.Errorf("delete calendar event %s: %w", item.Id, err)
		}
	}
	return nil
}

func (p *Publisher) at(d booking.Date, c booking.Clock) *gcal.EventDateTime {
	t := time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, p.loc)
	return &gcal.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: p.loc.String(),
	}
}

func gone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}

func tag(b booking.Booking) string {
	return string(b.Track) + ":" + b.ApplicantID
}

func applicantLabel(b booking.Booking) string {
	if b.Name != "" {
		return b.Name
	}
	return b.Email
}

func description(b booking.Booking, iv booking.Interviewer) string {
	lines := []string{
		"Interviewer: " + iv.Title,
		"Applicant: " + applicantLabel(b),
	}
	if b.Email != "" {
		lines = append(lines, "Applicant email: "+b.Email)
	}
	if iv.MeetingURL != "" {
		lines = append(lines, "Meeting link: "+iv.MeetingURL)
	}
	return strings.Join(lines, "\n")
}
