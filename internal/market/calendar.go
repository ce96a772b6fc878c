// Package market handles market state awareness.
//
// Design rules (from spec):
//   - System must know if today is a trading day.
//   - System must know if the market is currently open.
//   - Do not rely only on time checks.
//   - Use exchange calendar data.
//   - One central MarketCalendar module.
package market

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// NY is the timezone NYSE/Nasdaq hours are quoted in.
var NY *time.Location

func init() {
	var err error
	NY, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("market: failed to load America/New_York timezone: %v", err))
	}
}

// Regular NYSE/Nasdaq session hours (America/New_York).
const (
	MarketOpenHour  = 9
	MarketOpenMin   = 30
	MarketCloseHour = 16
	MarketCloseMin  = 0

	// EarlyCloseHour/Min is the close time on days in the early-close set
	// (the day after Thanksgiving, Christmas Eve and Independence Day eve
	// when they fall on a weekday, etc).
	EarlyCloseHour = 13
	EarlyCloseMin  = 0
)

// Calendar provides exchange calendar and market state information.
type Calendar struct {
	// holidays is a set of dates (YYYY-MM-DD) when the exchange is fully closed.
	holidays map[string]string // date -> reason
	// earlyCloses is a set of dates (YYYY-MM-DD) that close at EarlyCloseHour:EarlyCloseMin.
	earlyCloses map[string]string // date -> reason
}

// HolidayEntry represents a single exchange holiday or early-close day.
type HolidayEntry struct {
	Date       string `json:"date"`        // YYYY-MM-DD
	Reason     string `json:"reason"`      // e.g., "Thanksgiving", "Independence Day"
	EarlyClose bool   `json:"early_close"` // true if this is a 1PM close rather than a full holiday
}

// NewCalendar creates a Calendar from a JSON holiday file.
// The file should contain an array of HolidayEntry objects.
func NewCalendar(holidayFilePath string) (*Calendar, error) {
	data, err := os.ReadFile(holidayFilePath)
	if err != nil {
		return nil, fmt.Errorf("market calendar: read holidays file: %w", err)
	}

	var entries []HolidayEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("market calendar: parse holidays: %w", err)
	}

	holidays := make(map[string]string)
	earlyCloses := make(map[string]string)
	for _, e := range entries {
		if e.EarlyClose {
			earlyCloses[e.Date] = e.Reason
		} else {
			holidays[e.Date] = e.Reason
		}
	}

	return &Calendar{holidays: holidays, earlyCloses: earlyCloses}, nil
}

// NewCalendarFromHolidays creates a Calendar directly from holiday maps.
// Useful for testing.
func NewCalendarFromHolidays(holidays, earlyCloses map[string]string) *Calendar {
	if earlyCloses == nil {
		earlyCloses = map[string]string{}
	}
	return &Calendar{holidays: holidays, earlyCloses: earlyCloses}
}

// IsTradingDay returns true if the given date is a valid trading day.
// A trading day is a weekday that is not a full exchange holiday.
// Early-close days are still trading days.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	d := date.In(NY)

	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}

	dateStr := d.Format("2006-01-02")
	if _, isHoliday := c.holidays[dateStr]; isHoliday {
		return false
	}

	return true
}

// HolidayReason returns the reason for a full holiday, or empty string if not one.
func (c *Calendar) HolidayReason(date time.Time) string {
	dateStr := date.In(NY).Format("2006-01-02")
	return c.holidays[dateStr]
}

// IsEarlyClose returns true and the reason if the given date closes at
// EarlyCloseHour:EarlyCloseMin instead of the regular close.
func (c *Calendar) IsEarlyClose(date time.Time) (bool, string) {
	dateStr := date.In(NY).Format("2006-01-02")
	reason, ok := c.earlyCloses[dateStr]
	return ok, reason
}

// sessionBounds returns the open and close instants (in NY) for the trading
// session containing date's calendar day.
func (c *Calendar) sessionBounds(date time.Time) (open, close time.Time) {
	d := date.In(NY)
	open = time.Date(d.Year(), d.Month(), d.Day(), MarketOpenHour, MarketOpenMin, 0, 0, NY)

	closeHour, closeMin := MarketCloseHour, MarketCloseMin
	if early, _ := c.IsEarlyClose(d); early {
		closeHour, closeMin = EarlyCloseHour, EarlyCloseMin
	}
	close = time.Date(d.Year(), d.Month(), d.Day(), closeHour, closeMin, 0, 0, NY)
	return open, close
}

// IsMarketOpen returns true if the exchange is currently in trading hours.
func (c *Calendar) IsMarketOpen(now time.Time) bool {
	t := now.In(NY)

	if !c.IsTradingDay(t) {
		return false
	}

	open, close := c.sessionBounds(t)
	return !t.Before(open) && t.Before(close)
}

// MinutesUntilClose returns the number of minutes remaining in the current
// session, or -1 if the market is not currently open.
func (c *Calendar) MinutesUntilClose(now time.Time) int {
	t := now.In(NY)
	if !c.IsMarketOpen(t) {
		return -1
	}
	_, close := c.sessionBounds(t)
	return int(close.Sub(t).Minutes())
}

// TimeUntilNextSession returns the duration until the next market open.
// If the market is currently open, returns 0.
func (c *Calendar) TimeUntilNextSession(now time.Time) time.Duration {
	t := now.In(NY)

	if c.IsMarketOpen(t) {
		return 0
	}

	candidate := t
	for i := 0; i < 10; i++ { // Look ahead up to 10 days.
		if i == 0 && c.IsTradingDay(candidate) {
			todayOpen, _ := c.sessionBounds(candidate)
			if t.Before(todayOpen) {
				return todayOpen.Sub(t)
			}
		}

		candidate = candidate.AddDate(0, 0, 1)
		if c.IsTradingDay(candidate) {
			nextOpen, _ := c.sessionBounds(candidate)
			return nextOpen.Sub(t)
		}
	}

	// Fallback: this shouldn't happen with reasonable holiday data.
	return 24 * time.Hour
}

// NextTradingDay returns the next trading day after the given date.
func (c *Calendar) NextTradingDay(date time.Time) time.Time {
	candidate := date.In(NY).AddDate(0, 0, 1)
	for i := 0; i < 10; i++ {
		if c.IsTradingDay(candidate) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// PreviousTradingDay returns the most recent trading day before the given date.
func (c *Calendar) PreviousTradingDay(date time.Time) time.Time {
	candidate := date.In(NY).AddDate(0, 0, -1)
	for i := 0; i < 10; i++ {
		if c.IsTradingDay(candidate) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, -1)
	}
	return candidate
}
