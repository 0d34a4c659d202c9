package util

import (
	"fmt"
	"time"
)

// ISODate is the layout of dates on the command line and in price_date.
const ISODate = "2006-01-02"

// ProviderDate is the DD/MM/YYYY layout the upstream history call expects.
const ProviderDate = "02/01/2006"

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow applies the default window rules relative to now:
//
//	neither bound  -> start = yesterday - 7 days, end = today
//	only end       -> start = today 4 calendar years back
//	only start     -> end = yesterday
func ResolveWindow(now time.Time, start, end string) (DateWindow, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	var w DateWindow
	var err error
	switch {
	case start == "" && end == "":
		w = DateWindow{Start: yesterday.AddDate(0, 0, -7), End: today}
	case start == "":
		if w.End, err = time.Parse(ISODate, end); err != nil {
			return DateWindow{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		w.Start = today.AddDate(-4, 0, 0)
	case end == "":
		if w.Start, err = time.Parse(ISODate, start); err != nil {
			return DateWindow{}, fmt.Errorf("parsing start date %q: %w", start, err)
		}
		w.End = yesterday
	default:
		if w.Start, err = time.Parse(ISODate, start); err != nil {
			return DateWindow{}, fmt.Errorf("parsing start date %q: %w", start, err)
		}
		if w.End, err = time.Parse(ISODate, end); err != nil {
			return DateWindow{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
	}

	if w.Start.After(w.End) {
		return DateWindow{}, fmt.Errorf("start %s is after end %s",
			w.Start.Format(ISODate), w.End.Format(ISODate))
	}
	return w, nil
}

// ToProviderDate converts an ISO date string to DD/MM/YYYY.
func ToProviderDate(iso string) (string, error) {
	t, err := time.Parse(ISODate, iso)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", iso, err)
	}
	return t.Format(ProviderDate), nil
}
