package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/notify"
	"recruitment-portal/internal/store"
)

// fakeCalendar serves the subset of the Calendar v3 events API the
// publisher uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*gcal.Event
	deleted []string
	nextID  int
	// insertDelay holds back inserts, like a slow API round trip.
	insertDelay time.Duration
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && f.insertDelay > 0 {
		time.Sleep(f.insertDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/calendars/team@example.org/events"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		want := strings.SplitN(r.URL.Query().Get("privateExtendedProperty"), "=", 2)
		var items []*gcal.Event
		for _, ev := range f.events {
			if len(want) == 2 && ev.ExtendedProperties.Private[want[0]] == want[1] {
				items = append(items, ev)
			}
		}
		_ = json.NewEncoder(w).Encode(&gcal.Events{Items: items})
	case r.Method == http.MethodPost && id == "":
		var ev gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		ev.Id = fmt.Sprintf("ev%d", f.nextID)
		f.events[ev.Id] = &ev
		_ = json.NewEncoder(w).Encode(&ev)
	case r.Method == http.MethodDelete && id != "":
		if _, ok := f.events[id]; !ok {
			w.WriteHeader(http.StatusGone)
			return
		}
		delete(f.events, id)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
	}
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeCalendar) {
	t.Helper()
	fake := &fakeCalendar{events: make(map[string]*gcal.Event)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithService(svc, "team@example.org", loc, log), fake
}

func testBooking(day, hour int) (booking.Booking, booking.Interviewer) {
	slot := booking.SlotKey{
		Interviewer: "president",
		Day:         booking.Date{Year: 2025, Month: 9, Day: day},
		Start:       booking.NewClock(hour, 0),
		End:         booking.NewClock(hour, 30),
	}
	return booking.Booking{Track: booking.TrackMember, ApplicantID: "A", Name: "Ada", Email: "a@example.org", Slot: &slot},
		booking.Interviewer{ID: "president", Title: "President", MeetingURL: "https://meet.example.org/p"}
}

func TestPublisher_BookReplacesPreviousEvent(t *testing.T) {
	p, fake := newTestPublisher(t)
	ctx := context.Background()

	b, iv := testBooking(20, 10)
	require.NoError(t, p.SlotBooked(ctx, b, iv))
	require.Len(t, fake.events, 1)
	ev := fake.events["ev1"]
	require.NotNil(t, ev)
	assert.Equal(t, "member interview: Ada", ev.Summary)
	assert.Equal(t, "2025-09-20T10:00:00-07:00", ev.Start.DateTime)
	assert.Equal(t, "https://meet.example.org/p", ev.Location)
	assert.Equal(t, "member:A", ev.ExtendedProperties.Private["booking"])

	b, iv = testBooking(21, 11)
	require.NoError(t, p.SlotBooked(ctx, b, iv))
	assert.Equal(t, []string{"ev1"}, fake.deleted)
	require.Len(t, fake.events, 1)
	assert.Equal(t, "2025-09-21T11:00:00-07:00", fake.events["ev2"].Start.DateTime)
}

func TestPublisher_ReleaseRemovesEvent(t *testing.T) {
	p, fake := newTestPublisher(t)
	ctx := context.Background()

	b, iv := testBooking(20, 10)
	require.NoError(t, p.SlotBooked(ctx, b, iv))

	prev := *b.Slot
	b.Slot = nil
	require.NoError(t, p.SlotReleased(ctx, b, prev, "duplicate"))
	assert.Empty(t, fake.events)

	// nothing left to remove
	require.NoError(t, p.SlotReleased(ctx, b, prev, "duplicate"))
}

func newDispatchedService(t *testing.T, p *Publisher) (*booking.Service, *notify.Dispatcher) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := notify.NewDispatcher(log, 5*time.Second)
	dir := booking.NewStaticDirectory([]booking.Interviewer{{ID: "president", Title: "President"}})
	svc := booking.NewService(store.NewMemory(), dir, d, log, p)

	_, err := svc.Submit(context.Background(), booking.TrackMember, booking.Applicant{ID: "A", Email: "a@example.org", Name: "Ada"})
	require.NoError(t, err)
	return svc, d
}

func TestPublisher_ReleaseWhileInsertInFlight(t *testing.T) {
	p, fake := newTestPublisher(t)
	fake.insertDelay = 200 * time.Millisecond
	svc, d := newDispatchedService(t, p)
	ctx := context.Background()

	b, _ := testBooking(20, 10)
	_, err := svc.Book(ctx, booking.TrackMember, "A", *b.Slot)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, booking.TrackMember, "A", "duplicate")
	require.NoError(t, err)
	d.Wait()

	got, err := svc.Application(ctx, booking.TrackMember, "A")
	require.NoError(t, err)
	assert.False(t, got.HasSlot())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.events)
}

func TestPublisher_QuickRebookLeavesOneEvent(t *testing.T) {
	p, fake := newTestPublisher(t)
	fake.insertDelay = 100 * time.Millisecond
	svc, d := newDispatchedService(t, p)
	ctx := context.Background()

	first, _ := testBooking(20, 10)
	second, _ := testBooking(21, 11)
	_, err := svc.Book(ctx, booking.TrackMember, "A", *first.Slot)
	require.NoError(t, err)
	_, err = svc.Book(ctx, booking.TrackMember, "A", *second.Slot)
	require.NoError(t, err)
	d.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.events, 1)
	for _, ev := range fake.events {
		assert.Equal(t, "2025-09-21T11:00:00-07:00", ev.Start.DateTime)
	}
}
