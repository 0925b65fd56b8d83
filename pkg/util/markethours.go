package util

import (
	"fmt"
	"time"
)

// MarketWindow is a pure should-run-now predicate for weekday trading hours.
// Jobs take it as an injected policy so nothing in the engine depends on
// wall-clock windows directly.
type MarketWindow struct {
	loc        *time.Location
	open, clos int // minutes since midnight
}

// NewMarketWindow builds a window from a timezone name and "HH:MM" bounds.
func NewMarketWindow(tz, open, clos string) (*MarketWindow, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	o, err := ParseClock(open)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	c, err := ParseClock(clos)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("close %q must be after open %q", clos, open)
	}
	return &MarketWindow{loc: loc, open: o, clos: c}, nil
}

// Contains reports whether t falls on a weekday inside the window.
func (w *MarketWindow) Contains(t time.Time) bool {
	lt := t.In(w.loc)
	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	mins := lt.Hour()*60 + lt.Minute()
	return mins >= w.open && mins < w.clos
}

// Always is the policy for jobs that run around the clock.
func Always(time.Time) bool { return true }
