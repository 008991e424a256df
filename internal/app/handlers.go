package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/metrics"
)

const defaultSlotDays = 14

// GET /api/me
func (a *App) MeHandler(c *gin.Context) {
	who, _ := identity(c)
	c.JSON(http.StatusOK, meOf(who))
}

// GET /api/interviewers
func (a *App) ListInterviewersHandler(c *gin.Context) {
	ivs := a.Bookings.Interviewers()
	out := make([]Interviewer, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, Interviewer{ID: iv.ID, Title: iv.Title, MeetingURL: iv.MeetingURL})
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/interviewers/:id/slots?track=&from=&to=
func (a *App) OpenSlotsHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Query("track"))
	if err != nil {
		a.fail(c, err)
		return
	}

	from := a.today()
	if s := c.Query("from"); s != "" {
		if from, err = booking.ParseDay(s); err != nil {
			a.fail(c, err)
			return
		}
	}
	to := from.AddDays(defaultSlotDays)
	if s := c.Query("to"); s != "" {
		if to, err = booking.ParseDay(s); err != nil {
			a.fail(c, err)
			return
		}
	}

	slots, err := a.Bookings.OpenSlots(c.Request.Context(), track, c.Param("id"), from, to)
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]Slot, 0, len(slots))
	for _, k := range slots {
		out = append(out, slotOf(k))
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/applications/:track
func (a *App) SubmitApplicationHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Param("track"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req submitApplicationReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	who, _ := identity(c)
	name := who.Name
	if req.Name != "" {
		name = req.Name
	}
	b, err := a.Bookings.Submit(c.Request.Context(), track, booking.Applicant{ID: who.ID, Email: who.Email, Name: name})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a.applicationOf(b))
}

// GET /api/applications/:track
func (a *App) GetApplicationHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Param("track"))
	if err != nil {
		a.fail(c, err)
		return
	}
	who, _ := identity(c)
	b, err := a.Bookings.Application(c.Request.Context(), track, who.ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.applicationOf(b))
}

// PUT /api/applications/:track/schedule
func (a *App) ScheduleInterviewHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Param("track"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot, err := booking.ParseSlot(req.Interviewer, req.Day, req.TimeStart, req.TimeEnd)
	if err != nil {
		metrics.IncBooking(string(track), "invalid")
		a.fail(c, err)
		return
	}

	who, _ := identity(c)
	b, err := a.Bookings.Book(c.Request.Context(), track, who.ID, slot)
	if err != nil {
		metrics.IncBooking(string(track), outcome(err))
		a.fail(c, err)
		return
	}
	metrics.IncBooking(string(track), "booked")
	c.JSON(http.StatusOK, a.applicationOf(b))
}

// GET /api/admin/applications/:track
func (a *App) ListApplicationsHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Param("track"))
	if err != nil {
		a.fail(c, err)
		return
	}
	bs, err := a.Bookings.List(c.Request.Context(), track)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.applicationsOf(bs))
}

// PUT /api/admin/applications/:track/:applicant/status
func (a *App) SetStatusHandler(c *gin.Context) {
	track, err := booking.ParseTrack(c.Param("track"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := booking.ParseStatus(req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	b, err := a.Bookings.Decide(c.Request.Context(), track, c.Param("applicant"), status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.applicationOf(b))
}

// GET /api/admin/conflicts?track=
func (a *App) ListConflictsHandler(c *gin.Context) {
	var (
		groups []booking.ConflictGroup
		err    error
	)
	if s := c.Query("track"); s != "" {
		track, perr := booking.ParseTrack(s)
		if perr != nil {
			a.fail(c, perr)
			return
		}
		groups, err = a.Bookings.Scan(c.Request.Context(), track)
	} else {
		groups, err = a.Bookings.ScanAll(c.Request.Context())
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]ConflictGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, ConflictGroup{Track: string(g.Track), Slot: slotOf(g.Slot), Occupants: g.Occupants})
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": out, "count": len(out)})
}

// POST /api/admin/conflicts/resolve
func (a *App) ResolveConflictHandler(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	track, err := booking.ParseTrack(req.Track)
	if err != nil {
		a.fail(c, err)
		return
	}

	b, err := a.Bookings.Resolve(c.Request.Context(), track, req.ApplicantID, req.Reason)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.applicationOf(b))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, booking.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, booking.ErrInvalidSlot):
		return "invalid"
	case errors.Is(err, booking.ErrApplicationNotFound):
		return "no_application"
	}
	return "error"
}

// fail writes the HTTP response for err.
func (a *App) fail(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict), errors.Is(err, booking.ErrSlotConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "slot unavailable, choose another"})
	case errors.Is(err, booking.ErrInvalidSlot),
		errors.Is(err, booking.ErrInvalidTrack),
		errors.Is(err, booking.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrApplicationNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, booking.ErrInterviewerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		a.Log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
