package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"recruitment-portal/internal/booking"
)

type memKey struct {
	track       booking.Track
	applicantID string
}

// Memory is an in-process booking store with the same slot uniqueness rule
// as the Postgres schema. Used for local runs and tests.
type Memory struct {
	mu   sync.Mutex
	rows map[memKey]*booking.Booking
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		rows: make(map[memKey]*booking.Booking),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores b as is, skipping the uniqueness check. It stands in for
// manual data edits.
func (m *Memory) Seed(b booking.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.rows[memKey{b.Track, b.ApplicantID}] = clone(&b)
}

func (m *Memory) CreateApplication(_ context.Context, b *booking.Booking) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey{b.Track, b.ApplicantID}
	if existing, ok := m.rows[k]; ok {
		return clone(existing), nil
	}
	row := &booking.Booking{
		ID:          uuid.New().String(),
		Track:       b.Track,
		ApplicantID: b.ApplicantID,
		Email:       b.Email,
		Name:        b.Name,
		CreatedAt:   m.now(),
		UpdatedAt:   m.now(),
	}
	m.rows[k] = row
	return clone(row), nil
}

func (m *Memory) Application(_ context.Context, track booking.Track, applicantID string) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[memKey{track, applicantID}]
	if !ok {
		return nil, booking.ErrApplicationNotFound
	}
	return clone(row), nil
}

func (m *Memory) ListApplications(_ context.Context, track booking.Track) ([]booking.Booking, error) {
	return m.list(track, false), nil
}

func (m *Memory) ListBooked(_ context.Context, track booking.Track) ([]booking.Booking, error) {
	return m.list(track, true), nil
}

func (m *Memory) list(track booking.Track, bookedOnly bool) []booking.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []booking.Booking
	for k, row := range m.rows {
		if k.track != track || (bookedOnly && row.Slot == nil) {
			continue
		}
		out = append(out, *clone(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) SetStatus(_ context.Context, track booking.Track, applicantID string, status booking.Status) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[memKey{track, applicantID}]
	if !ok {
		return nil, booking.ErrApplicationNotFound
	}
	row.Status = status
	row.UpdatedAt = m.now()
	return clone(row), nil
}

func (m *Memory) FindHolders(_ context.Context, track booking.Track, slot booking.SlotKey, excludeApplicantID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holders(track, slot, excludeApplicantID), nil
}

func (m *Memory) holders(track booking.Track, slot booking.SlotKey, exclude string) []string {
	var out []string
	for k, row := range m.rows {
		if k.track != track || k.applicantID == exclude || row.Slot == nil {
			continue
		}
		if row.Slot.Equal(slot) {
			out = append(out, k.applicantID)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Memory) AssignSlot(_ context.Context, track booking.Track, applicantID string, slot booking.SlotKey) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[memKey{track, applicantID}]
	if !ok {
		return nil, booking.ErrApplicationNotFound
	}
	if len(m.holders(track, slot, applicantID)) > 0 {
		return nil, booking.ErrSlotConflict
	}
	s := slot
	row.Slot = &s
	row.UpdatedAt = m.now()
	return clone(row), nil
}

func (m *Memory) ClearSlot(_ context.Context, track booking.Track, applicantID string) (*booking.Booking, *booking.SlotKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[memKey{track, applicantID}]
	if !ok {
		return nil, nil, booking.ErrApplicationNotFound
	}
	prev := row.Slot
	if prev != nil {
		row.Slot = nil
		row.UpdatedAt = m.now()
	}
	return clone(row), prev, nil
}

func clone(b *booking.Booking) *booking.Booking {
	c := *b
	if b.Slot != nil {
		s := *b.Slot
		c.Slot = &s
	}
	return &c
}
