package app

import (
	"time"

	"recruitment-portal/internal/auth"
	"recruitment-portal/internal/booking"
)

type Me struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	User      Me     `json:"user"`
}

type Interviewer struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	MeetingURL string `json:"meeting_url,omitempty"`
}

type Slot struct {
	Interviewer string `json:"interviewer"`
	Day         string `json:"day"`
	TimeStart   string `json:"time_start"`
	TimeEnd     string `json:"time_end"`
	MeetingURL  string `json:"meeting_url,omitempty"`
}

type Application struct {
	ID          string    `json:"id"`
	Track       string    `json:"track"`
	ApplicantID string    `json:"applicant_id"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Interview   *Slot     `json:"interview,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ConflictGroup struct {
	Track     string   `json:"track"`
	Slot      Slot     `json:"slot"`
	Occupants []string `json:"occupants"`
}

type submitApplicationReq struct {
	Name string `json:"name"`
}

type scheduleReq struct {
	Interviewer string `json:"interviewer" binding:"required"`
	Day         string `json:"day" binding:"required"`
	TimeStart   string `json:"time_start" binding:"required"`
	TimeEnd     string `json:"time_end" binding:"required"`
}

type setStatusReq struct {
	// empty clears the decision
	Status string `json:"status"`
}

type resolveReq struct {
	Track       string `json:"track" binding:"required"`
	ApplicantID string `json:"applicant_id" binding:"required"`
	Reason      string `json:"reason"`
}

func meOf(who auth.Identity) Me {
	return Me{ID: who.ID, Email: who.Email, Name: who.Name, Role: string(who.Role)}
}

func slotOf(k booking.SlotKey) Slot {
	return Slot{
		Interviewer: k.Interviewer,
		Day:         k.Day.String(),
		TimeStart:   k.Start.String(),
		TimeEnd:     k.End.String(),
	}
}

func (a *App) applicationOf(b *booking.Booking) Application {
	out := Application{
		ID:          b.ID,
		Track:       string(b.Track),
		ApplicantID: b.ApplicantID,
		Email:       b.Email,
		Name:        b.Name,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.Slot != nil {
		s := slotOf(*b.Slot)
		if iv, ok := a.Bookings.Interviewer(b.Slot.Interviewer); ok {
			s.MeetingURL = iv.MeetingURL
		}
		out.Interview = &s
	}
	return out
}

func (a *App) applicationsOf(bs []booking.Booking) []Application {
	out := make([]Application, 0, len(bs))
	for i := range bs {
		out = append(out, a.applicationOf(&bs[i]))
	}
	return out
}
