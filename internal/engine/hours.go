package engine

import (
	"fmt"
	"time"

	"stockpilot/internal/config"
)

// sessionWindow is one trading session in minutes since midnight.
type sessionWindow struct {
	open  int
	close int
}

// marketHours gates trading cycles to exchange sessions, Monday through
// Friday. A disabled gate is always open.
type marketHours struct {
	enabled  bool
	sessions []sessionWindow
}

func newMarketHours(cfg config.MarketHoursConfig) (marketHours, error) {
	if !cfg.Enabled {
		return marketHours{}, nil
	}
	morning, err := parseWindow(cfg.MorningOpen, cfg.MorningClose)
	if err != nil {
		return marketHours{}, fmt.Errorf("morning session: %w", err)
	}
	afternoon, err := parseWindow(cfg.AfternoonOpen, cfg.AfternoonClose)
	if err != nil {
		return marketHours{}, fmt.Errorf("afternoon session: %w", err)
	}
	return marketHours{
		enabled:  true,
		sessions: []sessionWindow{morning, afternoon},
	}, nil
}

func parseWindow(open, close string) (sessionWindow, error) {
	o, err := parseMinutes(open)
	if err != nil {
		return sessionWindow{}, err
	}
	c, err := parseMinutes(close)
	if err != nil {
		return sessionWindow{}, err
	}
	if c <= o {
		return sessionWindow{}, fmt.Errorf("close %s not after open %s", close, open)
	}
	return sessionWindow{open: o, close: c}, nil
}

func parseMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// isOpen reports whether t falls inside a trading session.
func (h marketHours) isOpen(t time.Time) bool {
	if !h.enabled {
		return true
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	for _, s := range h.sessions {
		if minutes >= s.open && minutes < s.close {
			return true
		}
	}
	return false
}
