package calendar

import "time"

// WorkingDays returns the number of days in month that are neither a weekend
// day nor a public holiday. Months outside 1..12 yield 0.
func WorkingDays(year int, month time.Month) int {
	return WorkingDaysIn(year, month, Holidays(year))
}

// WorkingDaysIn counts the working days of month against an explicit holiday
// list.
func WorkingDaysIn(year int, month time.Month, holidays []Holiday) int {
	if month < time.January || month > time.December {
		return 0
	}

	closed := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		closed[date(h.Date.Year(), h.Date.Month(), h.Date.Day())] = struct{}{}
	}

	count := 0
	for d := 1; d <= DaysIn(year, month); d++ {
		day := date(year, month, d)
		if IsWeekend(day) {
			continue
		}
		if _, ok := closed[day]; ok {
			continue
		}
		count++
	}
	return count
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysIn returns the number of calendar days in month.
func DaysIn(year int, month time.Month) int {
	return date(year, month+1, 0).Day()
}
