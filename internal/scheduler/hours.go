package scheduler

import (
	"fmt"
	"strings"
	"time"

	"RiskSentinel/internal/config"

	"github.com/scmhub/calendar"
)

// TradingHours is the wall-clock window, both ends inclusive, in which the
// fast monitoring cadence applies.
type TradingHours struct {
	Start    int // minutes after midnight
	End      int
	Location *time.Location
	// Calendar, when set, turns exchange holidays and weekends into off-hours.
	Calendar *calendar.Calendar
}

// DefaultTradingHours is 09:30 to 15:00 local time, every day.
func DefaultTradingHours() TradingHours {
	return TradingHours{Start: 9*60 + 30, End: 15 * 60, Location: time.Local}
}

// NewTradingHours parses "HH:MM" bounds. mic optionally names an exchange
// calendar (ISO 10383, e.g. XSHG or XNYS).
func NewTradingHours(start, end string, loc *time.Location, mic string) (TradingHours, error) {
	s, err := config.ParseClock(start)
	if err != nil {
		return TradingHours{}, fmt.Errorf("trading start: %w", err)
	}
	e, err := config.ParseClock(end)
	if err != nil {
		return TradingHours{}, fmt.Errorf("trading end: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	h := TradingHours{Start: s, End: e, Location: loc}
	if mic != "" {
		cal := calendar.GetCalendar(strings.ToLower(mic))
		if cal == nil {
			return TradingHours{}, fmt.Errorf("%w: unknown market calendar %q", config.ErrInvalid, mic)
		}
		h.Calendar = cal
	}
	return h, nil
}

// Contains reports whether t falls inside the trading window.
func (h TradingHours) Contains(t time.Time) bool {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	if h.Calendar != nil && !h.Calendar.IsBusinessDay(t.In(h.Calendar.Loc)) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= h.Start && minute <= h.End
}

// Cadence holds the monitor intervals for both trading-hours states.
type Cadence struct {
	Hours    TradingHours
	Trading  time.Duration
	OffHours time.Duration
}

// MonitorInterval returns the wait after a check made at t.
func (c Cadence) MonitorInterval(t time.Time) time.Duration {
	if c.Hours.Contains(t) {
		return c.Trading
	}
	return c.OffHours
}
