package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
)

const dayLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dayLayout,
}

// ParseDate reads an event time. Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, s)
}

// ParseDay reads a date and truncates it to the start of its UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return startOfDay(t), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthWindow covers a calendar month: first instant inclusive, first
// instant of the next month exclusive.
func MonthWindow(year, month int) (domain.Window, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return domain.Window{}, fmt.Errorf("%w: %04d-%02d", domain.ErrInvalidDate, year, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return domain.Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// DayRange covers whole days from start-of-day on start through
// end-of-day on end.
func DayRange(start, end string) (domain.Window, error) {
	from, err := ParseDay(start)
	if err != nil {
		return domain.Window{}, err
	}
	to, err := ParseDay(end)
	if err != nil {
		return domain.Window{}, err
	}
	if to.Before(from) {
		return domain.Window{}, fmt.Errorf("%w: end %s before start %s", domain.ErrInvalidDate, end, start)
	}
	return domain.Window{Start: from, End: to.AddDate(0, 0, 1)}, nil
}

// InstantRange covers start through end, both inclusive. A bound given
// as a bare date widens to its whole UTC day; a bound with a time of day
// is taken as that exact instant.
func InstantRange(start, end string) (domain.Window, error) {
	from, err := ParseDate(start)
	if err != nil {
		return domain.Window{}, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return domain.Window{}, err
	}
	if isDay(start) {
		from = startOfDay(from)
	}
	if isDay(end) {
		to = startOfDay(to).AddDate(0, 0, 1)
	} else {
		// Stored timestamps carry microsecond precision.
		to = to.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	if !from.Before(to) {
		return domain.Window{}, fmt.Errorf("%w: end %s before start %s", domain.ErrInvalidDate, end, start)
	}
	return domain.Window{Start: from, End: to}, nil
}

func isDay(s string) bool {
	_, err := time.Parse(dayLayout, strings.TrimSpace(s))
	return err == nil
}
