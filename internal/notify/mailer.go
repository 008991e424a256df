package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/metrics"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var trackTitles = map[booking.Track]string{
	booking.TrackMember:    "Member",
	booking.TrackCommittee: "Committee Staff",
	booking.TrackEA:        "Executive Assistant",
}

// Mailer emails applicants and interviewers about slot changes.
type Mailer struct {
	sender Sender
	log    *slog.Logger
}

func NewMailer(sender Sender, log *slog.Logger) *Mailer {
	return &Mailer{sender: sender, log: log}
}

// SlotBooked confirms the interview to the applicant and tells the
// interviewer. Only the applicant confirmation can fail the task; an
// interviewer notice that cannot be sent is logged and dropped.
func (m *Mailer) SlotBooked(ctx context.Context, b booking.Booking, iv booking.Interviewer) error {
	if b.Slot == nil {
		return nil
	}

	var applicantErr error
	if b.Email != "" {
		applicantErr = m.sender.Send(ctx, Message{
			To:      b.Email,
			Subject: fmt.Sprintf("%s interview confirmed", trackTitles[b.Track]),
			Body:    applicantConfirmation(b, iv),
		})
		if applicantErr != nil {
			applicantErr = fmt.Errorf("applicant confirmation to %s: %w", b.Email, applicantErr)
		}
	}

	if iv.Email != "" {
		err := m.sender.Send(ctx, Message{
			To:      iv.Email,
			Subject: fmt.Sprintf("New %s interview: %s", strings.ToLower(trackTitles[b.Track]), b.Slot.Day),
			Body:    interviewerNotice(b, iv),
		})
		if err != nil {
			metrics.IncTaskFailed("interviewer_notice")
			m.log.Warn("interviewer notice not sent",
				slog.String("interviewer", iv.ID),
				slog.String("applicant_id", b.ApplicantID),
				slog.String("error", err.Error()),
			)
		}
	}

	return applicantErr
}

// SlotReleased tells the applicant their slot was freed and must be rebooked.
func (m *Mailer) SlotReleased(ctx context.Context, b booking.Booking, prev booking.SlotKey, _ string) error {
	if b.Email == "" {
		return nil
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", displayName(b))
	fmt.Fprintf(&body, "Your %s interview on %s from %s to %s had to be released.\n",
		trackTitles[b.Track], prev.Day, prev.Start, prev.End)
	body.WriteString("Please sign in to the portal and choose another slot.\n")

	return m.sender.Send(ctx, Message{
		To:      b.Email,
		Subject: fmt.Sprintf("%s interview slot released", trackTitles[b.Track]),
		Body:    body.String(),
	})
}

func applicantConfirmation(b booking.Booking, iv booking.Interviewer) string {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", displayName(b))
	fmt.Fprintf(&body, "Your %s interview is booked.\n\n", trackTitles[b.Track])
	fmt.Fprintf(&body, "Interviewer: %s\n", titleOf(iv))
	fmt.Fprintf(&body, "Date: %s\n", b.Slot.Day)
	fmt.Fprintf(&body, "Time: %s - %s\n", b.Slot.Start, b.Slot.End)
	if iv.MeetingURL != "" {
		fmt.Fprintf(&body, "Meeting link: %s\n", iv.MeetingURL)
	}
	body.WriteString("\nYou can change your slot from the portal until interviews are finalized.\n")
	return body.String()
}

func interviewerNotice(b booking.Booking, iv booking.Interviewer) string {
	var body strings.Builder
	fmt.Fprintf(&body, "%s,\n\n", titleOf(iv))
	fmt.Fprintf(&body, "%s booked a %s interview with you.\n\n", displayName(b), trackTitles[b.Track])
	fmt.Fprintf(&body, "Date: %s\n", b.Slot.Day)
	fmt.Fprintf(&body, "Time: %s - %s\n", b.Slot.Start, b.Slot.End)
	if b.Email != "" {
		fmt.Fprintf(&body, "Applicant email: %s\n", b.Email)
	}
	return body.String()
}

func displayName(b booking.Booking) string {
	if b.Name != "" {
		return b.Name
	}
	if b.Email != "" {
		return b.Email
	}
	return b.ApplicantID
}

func titleOf(iv booking.Interviewer) string {
	if iv.Title != "" {
		return iv.Title
	}
	return iv.ID
}
