package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitment-portal/internal/auth"
	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/metrics"
	"recruitment-portal/internal/store"
)

type inlineDispatcher struct{}

func (inlineDispatcher) Go(ctx context.Context, _, _ string, fn func(context.Context) error) {
	_ = fn(ctx)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type testEnv struct {
	app    *App
	router *gin.Engine
	store  *store.Memory
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	dir := booking.NewStaticDirectory([]booking.Interviewer{{
		ID:         "president",
		Title:      "President",
		MeetingURL: "https://meet.example.org/p",
		Windows: []booking.Window{{
			Date:        booking.Date{Year: 2025, Month: 9, Day: 20},
			Start:       booking.NewClock(10, 0),
			End:         booking.NewClock(11, 0),
			SlotMinutes: 30,
		}},
	}})

	a := &App{
		Bookings: booking.NewService(mem, dir, inlineDispatcher{}, log),
		Sessions: auth.NewSessions("test-secret", time.Hour, []string{"admin@example.org"}, []string{"ops-token"}),
		Log:      log,
	}
	r := gin.New()
	a.Register(r)
	return &testEnv{app: a, router: r, store: mem}
}

func (e *testEnv) token(t *testing.T, id, email string) string {
	t.Helper()
	tok, _, err := e.app.Sessions.Issue(id, email, "")
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func schedule(day, start, end string) scheduleReq {
	return scheduleReq{Interviewer: "president", Day: day, TimeStart: start, TimeEnd: end}
}

func TestHandler_Health(t *testing.T) {
	e := setupRouter(t)
	w := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Unauthorized(t *testing.T) {
	e := setupRouter(t)

	w := e.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_SessionCookie(t *testing.T) {
	e := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: e.token(t, "u1", "a@example.org")})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var me Me
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "u1", me.ID)
	assert.Equal(t, "applicant", me.Role)
}

func TestHandler_AdminOnly(t *testing.T) {
	e := setupRouter(t)

	w := e.do(t, http.MethodGet, "/api/admin/conflicts", e.token(t, "u1", "a@example.org"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/conflicts", e.token(t, "adm", "admin@example.org"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/conflicts", "ops-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_SubmitAndSchedule(t *testing.T) {
	e := setupRouter(t)
	tok := e.token(t, "A", "a@example.org")

	w := e.do(t, http.MethodPut, "/api/applications/member/schedule", tok, schedule("2025-09-20", "10:00", "10:30"))
	assert.Equal(t, http.StatusNotFound, w.Code, "no application yet")

	w = e.do(t, http.MethodPost, "/api/applications/member", tok, submitApplicationReq{Name: "Ada"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPut, "/api/applications/member/schedule", tok, schedule("09/20/2025", "10:00 AM", "10:30 AM"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Interview)
	assert.Equal(t, Slot{
		Interviewer: "president",
		Day:         "2025-09-20",
		TimeStart:   "10:00",
		TimeEnd:     "10:30",
		MeetingURL:  "https://meet.example.org/p",
	}, *got.Interview)
	assert.Equal(t, "Ada", got.Name)

	w = e.do(t, http.MethodGet, "/api/applications/member", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ScheduleErrors(t *testing.T) {
	e := setupRouter(t)
	tok := e.token(t, "A", "a@example.org")
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/applications/member", tok, nil).Code)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"unknown track", "/api/applications/alumni/schedule", schedule("2025-09-20", "10:00", "10:30"), http.StatusBadRequest},
		{"missing field", "/api/applications/member/schedule", schedule("", "10:00", "10:30"), http.StatusBadRequest},
		{"bad day", "/api/applications/member/schedule", schedule("someday", "10:00", "10:30"), http.StatusBadRequest},
		{"reversed", "/api/applications/member/schedule", schedule("2025-09-20", "10:30", "10:00"), http.StatusBadRequest},
		{"unknown interviewer", "/api/applications/member/schedule", scheduleReq{Interviewer: "nobody", Day: "2025-09-20", TimeStart: "10:00", TimeEnd: "10:30"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPut, tt.path, tok, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandler_ConflictResolveFlow(t *testing.T) {
	e := setupRouter(t)
	a := e.token(t, "A", "a@example.org")
	b := e.token(t, "B", "b@example.org")
	admin := e.token(t, "adm", "admin@example.org")
	slot := schedule("2025-09-20", "10:00", "10:30")

	for _, tok := range []string{a, b} {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/applications/member", tok, nil).Code)
	}

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/applications/member/schedule", a, slot).Code)

	w := e.do(t, http.MethodPut, "/api/applications/member/schedule", b, slot)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"slot unavailable, choose another"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/interviewers/president/slots?track=member&from=2025-09-20&to=2025-09-20", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var open []Slot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &open))
	require.Len(t, open, 1)
	assert.Equal(t, "10:30", open[0].TimeStart)

	w = e.do(t, http.MethodPost, "/api/admin/conflicts/resolve", admin, resolveReq{Track: "member", ApplicantID: "A", Reason: "reassigned"})
	require.Equal(t, http.StatusOK, w.Code)
	var cleared Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleared))
	assert.Nil(t, cleared.Interview)

	// second resolve is a no-op
	w = e.do(t, http.MethodPost, "/api/admin/conflicts/resolve", admin, resolveReq{Track: "member", ApplicantID: "A"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPut, "/api/applications/member/schedule", b, slot)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/conflicts/resolve", admin, resolveReq{Track: "member", ApplicantID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListConflicts(t *testing.T) {
	e := setupRouter(t)
	s := booking.SlotKey{Interviewer: "president", Day: booking.Date{Year: 2025, Month: 9, Day: 20}, Start: booking.NewClock(10, 0), End: booking.NewClock(10, 30)}
	e.store.Seed(booking.Booking{Track: booking.TrackMember, ApplicantID: "A", Slot: &s})
	e.store.Seed(booking.Booking{Track: booking.TrackMember, ApplicantID: "B", Slot: &s})

	w := e.do(t, http.MethodGet, "/api/admin/conflicts?track=member", "ops-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Conflicts []ConflictGroup `json:"conflicts"`
		Count     int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, []string{"A", "B"}, resp.Conflicts[0].Occupants)
	assert.Equal(t, "2025-09-20", resp.Conflicts[0].Slot.Day)

	w = e.do(t, http.MethodGet, "/api/admin/conflicts?track=alumni", "ops-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SetStatus(t *testing.T) {
	e := setupRouter(t)
	tok := e.token(t, "A", "a@example.org")
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/applications/ea", tok, nil).Code)

	w := e.do(t, http.MethodPut, "/api/admin/applications/ea/A/status", "ops-token", setStatusReq{Status: "accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	var got Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "accepted", got.Status)

	w = e.do(t, http.MethodPut, "/api/admin/applications/ea/A/status", "ops-token", setStatusReq{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/admin/applications/ea/ghost/status", "ops-token", setStatusReq{Status: "rejected"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/applications/ea", "ops-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestHandler_RateLimited(t *testing.T) {
	e := setupRouter(t)
	e.app.Limiter = denyAll{}
	tok := e.token(t, "A", "a@example.org")

	w := e.do(t, http.MethodPut, "/api/applications/member/schedule", tok, schedule("2025-09-20", "10:00", "10:30"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// other routes are not limited
	w = e.do(t, http.MethodGet, "/api/me", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_GoogleNotConfigured(t *testing.T) {
	e := setupRouter(t)
	w := e.do(t, http.MethodGet, "/auth/google/login", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_GoogleLoginSetsState(t *testing.T) {
	e := setupRouter(t)
	e.app.Google = auth.NewGoogle(auth.GoogleConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://localhost/oauth2callback"})

	w := e.do(t, http.MethodGet, "/auth/google/login", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	res := w.Result()
	defer res.Body.Close()
	var state string
	for _, c := range res.Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, w.Header().Get("Location"), "state="+state)

	// callback with a mismatched state never reaches Google
	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=x&state=other", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_OpenSlotsDefaultFromUsesConfiguredZone(t *testing.T) {
	e := setupRouter(t)
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	// Already Sep 21 in UTC, still the evening of Sep 20 in Los Angeles.
	e.app.now = func() time.Time { return time.Date(2025, 9, 21, 3, 0, 0, 0, time.UTC) }
	a := e.token(t, "A", "a@example.org")

	e.app.Location = la
	w := e.do(t, http.MethodGet, "/api/interviewers/president/slots?track=member", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var open []Slot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &open))
	assert.Len(t, open, 2)

	e.app.Location = nil
	w = e.do(t, http.MethodGet, "/api/interviewers/president/slots?track=member", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	open = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &open))
	assert.Empty(t, open)
}

func TestHandler_ResolveCountsOnlyRealReleases(t *testing.T) {
	e := setupRouter(t)
	a := e.token(t, "A", "a@example.org")
	admin := e.token(t, "adm", "admin@example.org")
	released := metrics.SlotsReleased().WithLabelValues("ea")
	before := testutil.ToFloat64(released)

	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/applications/ea", a, nil).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/applications/ea/schedule", a, schedule("2025-09-20", "10:00", "10:30")).Code)

	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodPost, "/api/admin/conflicts/resolve", admin, resolveReq{Track: "ea", ApplicantID: "A"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, before+1, testutil.ToFloat64(released))
}
