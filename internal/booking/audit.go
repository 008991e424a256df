package booking

import (
	"context"
	"fmt"
	"sort"
)

// Scan reports every slot in track held by two or more applicants. Such
// groups only appear when the store's uniqueness was bypassed, e.g. by
// manual edits or a store without the unique index.
func (s *Service) Scan(ctx context.Context, track Track) ([]ConflictGroup, error) {
	booked, err := s.store.ListBooked(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("list booked %s: %w", track, err)
	}
	return groupConflicts(track, booked), nil
}

// ScanAll runs Scan for every track.
func (s *Service) ScanAll(ctx context.Context) ([]ConflictGroup, error) {
	var out []ConflictGroup
	for _, t := range Tracks {
		groups, err := s.Scan(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, groups...)
	}
	return out, nil
}

func groupConflicts(track Track, booked []Booking) []ConflictGroup {
	occupants := make(map[SlotKey][]string)
	for _, b := range booked {
		if b.Slot == nil {
			continue
		}
		occupants[*b.Slot] = append(occupants[*b.Slot], b.ApplicantID)
	}

	var groups []ConflictGroup
	for slot, ids := range occupants {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		groups = append(groups, ConflictGroup{Track: track, Slot: slot, Occupants: ids})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Slot.Less(groups[j].Slot) })
	return groups
}
