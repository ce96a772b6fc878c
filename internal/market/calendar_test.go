package market

import (
	"testing"
	"time"
)

func makeTestCalendar() *Calendar {
	return NewCalendarFromHolidays(
		map[string]string{
			"2026-01-01": "New Year's Day",
			"2026-07-03": "Independence Day (observed)",
			"2026-11-26": "Thanksgiving",
		},
		map[string]string{
			"2026-11-27": "Day after Thanksgiving",
		},
	)
}

func TestCalendar_WeekdayIsTradingDay(t *testing.T) {
	cal := makeTestCalendar()
	// Monday, Feb 2, 2026.
	monday := time.Date(2026, 2, 2, 10, 0, 0, 0, NY)
	if !cal.IsTradingDay(monday) {
		t.Error("expected Monday to be a trading day")
	}
}

func TestCalendar_WeekendIsNotTradingDay(t *testing.T) {
	cal := makeTestCalendar()
	saturday := time.Date(2026, 2, 7, 10, 0, 0, 0, NY)
	sunday := time.Date(2026, 2, 8, 10, 0, 0, 0, NY)

	if cal.IsTradingDay(saturday) {
		t.Error("expected Saturday to not be a trading day")
	}
	if cal.IsTradingDay(sunday) {
		t.Error("expected Sunday to not be a trading day")
	}
}

func TestCalendar_HolidayIsNotTradingDay(t *testing.T) {
	cal := makeTestCalendar()
	newYears := time.Date(2026, 1, 1, 10, 0, 0, 0, NY)

	if cal.IsTradingDay(newYears) {
		t.Error("expected New Year's Day to not be a trading day")
	}
	if reason := cal.HolidayReason(newYears); reason != "New Year's Day" {
		t.Errorf("expected \"New Year's Day\", got %q", reason)
	}
}

func TestCalendar_MarketOpenDuringTradingHours(t *testing.T) {
	cal := makeTestCalendar()
	// 10:30 AM ET on a trading day.
	during := time.Date(2026, 2, 2, 10, 30, 0, 0, NY)
	if !cal.IsMarketOpen(during) {
		t.Error("expected market to be open at 10:30 AM ET on trading day")
	}
}

func TestCalendar_MarketClosedBeforeOpen(t *testing.T) {
	cal := makeTestCalendar()
	// 9:00 AM ET (before 9:30 open).
	before := time.Date(2026, 2, 2, 9, 0, 0, 0, NY)
	if cal.IsMarketOpen(before) {
		t.Error("expected market to be closed at 9:00 AM ET")
	}
}

func TestCalendar_MarketClosedAfterClose(t *testing.T) {
	cal := makeTestCalendar()
	// 4:01 PM ET (after 4:00 PM close).
	after := time.Date(2026, 2, 2, 16, 1, 0, 0, NY)
	if cal.IsMarketOpen(after) {
		t.Error("expected market to be closed at 4:01 PM ET")
	}
}

func TestCalendar_MarketClosedOnWeekend(t *testing.T) {
	cal := makeTestCalendar()
	saturday := time.Date(2026, 2, 7, 10, 30, 0, 0, NY)
	if cal.IsMarketOpen(saturday) {
		t.Error("expected market to be closed on Saturday")
	}
}

func TestCalendar_EarlyCloseDay(t *testing.T) {
	cal := makeTestCalendar()
	dayAfterThanksgiving := time.Date(2026, 11, 27, 13, 30, 0, 0, NY)

	if cal.IsMarketOpen(dayAfterThanksgiving) {
		t.Error("expected market to be closed at 1:30 PM ET on an early-close day")
	}

	justBeforeClose := time.Date(2026, 11, 27, 12, 59, 0, 0, NY)
	if !cal.IsMarketOpen(justBeforeClose) {
		t.Error("expected market to be open at 12:59 PM ET on an early-close day")
	}

	early, reason := cal.IsEarlyClose(dayAfterThanksgiving)
	if !early || reason != "Day after Thanksgiving" {
		t.Errorf("expected early close flagged with reason, got early=%v reason=%q", early, reason)
	}
}

func TestCalendar_MinutesUntilClose(t *testing.T) {
	cal := makeTestCalendar()
	during := time.Date(2026, 2, 2, 15, 45, 0, 0, NY)
	if got := cal.MinutesUntilClose(during); got != 15 {
		t.Errorf("expected 15 minutes until close, got %d", got)
	}

	closed := time.Date(2026, 2, 7, 10, 0, 0, 0, NY)
	if got := cal.MinutesUntilClose(closed); got != -1 {
		t.Errorf("expected -1 when market is closed, got %d", got)
	}
}

func TestCalendar_TimeUntilNextSession(t *testing.T) {
	cal := makeTestCalendar()

	// After market close on Friday → next session is Monday.
	friday := time.Date(2026, 2, 6, 16, 0, 0, 0, NY)
	duration := cal.TimeUntilNextSession(friday)

	if duration <= 0 {
		t.Errorf("expected positive duration, got %v", duration)
	}

	// During market hours → should be 0.
	during := time.Date(2026, 2, 2, 10, 30, 0, 0, NY)
	duration = cal.TimeUntilNextSession(during)
	if duration != 0 {
		t.Errorf("expected 0 during market hours, got %v", duration)
	}
}

func TestCalendar_NextTradingDay(t *testing.T) {
	cal := makeTestCalendar()

	// Friday → next trading day is Monday.
	friday := time.Date(2026, 2, 6, 0, 0, 0, 0, NY)
	next := cal.NextTradingDay(friday)

	if next.Weekday() != time.Monday {
		t.Errorf("expected Monday after Friday, got %s", next.Weekday())
	}
}

func TestCalendar_PreviousTradingDay(t *testing.T) {
	cal := makeTestCalendar()

	// Monday → previous trading day is Friday.
	monday := time.Date(2026, 2, 9, 0, 0, 0, 0, NY)
	prev := cal.PreviousTradingDay(monday)

	if prev.Weekday() != time.Friday {
		t.Errorf("expected Friday before Monday, got %s", prev.Weekday())
	}
}
