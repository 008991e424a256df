package booking

import (
	"context"
	"fmt"
)

// maxListDays bounds the range OpenSlots expands.
const maxListDays = 62

// OpenSlots expands the interviewer's windows into slots between from and
// to (inclusive) and drops the ones already held in track.
func (s *Service) OpenSlots(ctx context.Context, track Track, interviewerID string, from, to Date) ([]SlotKey, error) {
	iv, ok := s.directory.Lookup(interviewerID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInterviewerNotFound, interviewerID)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrInvalidSlot)
	}
	if from.AddDays(maxListDays).Before(to) {
		return nil, fmt.Errorf("%w: range longer than %d days", ErrInvalidSlot, maxListDays)
	}

	candidates := expandWindows(iv, from, to)
	if len(candidates) == 0 {
		return nil, nil
	}

	booked, err := s.store.ListBooked(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("list booked %s: %w", track, err)
	}
	taken := make(map[SlotKey]struct{}, len(booked))
	for _, b := range booked {
		if b.Slot != nil && b.Slot.Interviewer == iv.ID {
			taken[*b.Slot] = struct{}{}
		}
	}

	var open []SlotKey
	for _, k := range candidates {
		if _, ok := taken[k]; !ok {
			open = append(open, k)
		}
	}
	return open, nil
}

func expandWindows(iv Interviewer, from, to Date) []SlotKey {
	var out []SlotKey
	for day := from; !to.Before(day); day = day.AddDays(1) {
		for _, w := range iv.Windows {
			if !w.Date.IsZero() {
				if w.Date != day {
					continue
				}
			} else if day.Time().Weekday() != w.Weekday {
				continue
			}
			if w.SlotMinutes <= 0 || w.End <= w.Start {
				continue
			}

			step := Clock(w.SlotMinutes)
			for start := w.Start; start+step <= w.End; start += step {
				out = append(out, SlotKey{
					Interviewer: iv.ID,
					Day:         day,
					Start:       start,
					End:         start + step,
				})
			}
		}
	}
	return out
}
