package booking

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar day without time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string { return d.Time().Format("2006-01-02") }

// Clock is a time of day in minutes after midnight.
type Clock int

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Duration is the offset of c from midnight.
func (c Clock) Duration() time.Duration { return time.Duration(c) * time.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// SlotKey identifies one bookable interview: interviewer, day and the
// [Start, End) time range. Two keys are the same slot only when all four
// fields are equal; overlapping ranges are distinct slots.
type SlotKey struct {
	Interviewer string
	Day         Date
	Start       Clock
	End         Clock
}

func (k SlotKey) Equal(o SlotKey) bool { return k == o }

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s %s-%s", k.Interviewer, k.Day, k.Start, k.End)
}

// Less orders keys by day, start, interviewer and end.
func (k SlotKey) Less(o SlotKey) bool {
	if k.Day != o.Day {
		return k.Day.Before(o.Day)
	}
	if k.Start != o.Start {
		return k.Start < o.Start
	}
	if k.Interviewer != o.Interviewer {
		return k.Interviewer < o.Interviewer
	}
	return k.End < o.End
}

var dayLayouts = []string{
	"2006-01-02",
	"01-02-2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
}

// ParseDay accepts the day formats the portal has used over time and
// returns the canonical calendar day.
func ParseDay(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: invalid day %q", ErrInvalidSlot, s)
}

// ParseClock accepts 24h ("09:30", "09:30:00") and 12h ("9:30 am") times.
func ParseClock(s string) (Clock, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time %q", ErrInvalidSlot, s)
}

// ParseSlot builds a canonical SlotKey from raw request fields. Every field
// is required and the range must be non-empty.
func ParseSlot(interviewer, day, start, end string) (SlotKey, error) {
	interviewer = strings.TrimSpace(interviewer)
	if interviewer == "" || strings.TrimSpace(day) == "" ||
		strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return SlotKey{}, fmt.Errorf("%w: interviewer, day, time_start and time_end are required", ErrInvalidSlot)
	}

	d, err := ParseDay(day)
	if err != nil {
		return SlotKey{}, err
	}
	from, err := ParseClock(start)
	if err != nil {
		return SlotKey{}, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return SlotKey{}, err
	}
	if to <= from {
		return SlotKey{}, fmt.Errorf("%w: time_end must be after time_start", ErrInvalidSlot)
	}

	return SlotKey{Interviewer: interviewer, Day: d, Start: from, End: to}, nil
}
