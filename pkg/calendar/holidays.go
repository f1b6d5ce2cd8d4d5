// Package calendar counts working days for the Icelandic public-holiday
// calendar. Holidays are derived per year on demand and never cached.
package calendar

import (
	"sort"
	"time"
)

// Holiday is a full-day public holiday.
type Holiday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Offsets in days from Easter Sunday.
const (
	maundyThursdayOffset = -3
	goodFridayOffset     = -2
	easterMondayOffset   = 1
	ascensionOffset      = 39
	whitSundayOffset     = 49
	whitMondayOffset     = 50
)

// Easter returns Easter Sunday of the given year in the Gregorian calendar,
// using the anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

// Holidays returns the public holidays of year ordered by date.
// Half-day holidays (Christmas Eve and New Year's Eve afternoons) are not
// included.
func Holidays(year int) []Holiday {
	easter := Easter(year)
	holidays := []Holiday{
		{"New Year's Day", date(year, time.January, 1)},
		{"Maundy Thursday", easter.AddDate(0, 0, maundyThursdayOffset)},
		{"Good Friday", easter.AddDate(0, 0, goodFridayOffset)},
		{"Easter Sunday", easter},
		{"Easter Monday", easter.AddDate(0, 0, easterMondayOffset)},
		{"First Day of Summer", firstWeekdayOnOrAfter(date(year, time.April, 19), time.Thursday)},
		{"Labour Day", date(year, time.May, 1)},
		{"Ascension Day", easter.AddDate(0, 0, ascensionOffset)},
		{"Whit Sunday", easter.AddDate(0, 0, whitSundayOffset)},
		{"Whit Monday", easter.AddDate(0, 0, whitMondayOffset)},
		{"National Day", date(year, time.June, 17)},
		{"Commerce Day", firstWeekdayOnOrAfter(date(year, time.August, 1), time.Monday)},
		{"Christmas Day", date(year, time.December, 25)},
		{"Boxing Day", date(year, time.December, 26)},
	}
	sort.SliceStable(holidays, func(i, j int) bool {
		return holidays[i].Date.Before(holidays[j].Date)
	})
	return holidays
}

// HolidaysIn returns the holidays of year that fall in month.
func HolidaysIn(year int, month time.Month) []Holiday {
	var in []Holiday
	for _, h := range Holidays(year) {
		if h.Date.Month() == month {
			in = append(in, h)
		}
	}
	return in
}

// IsHoliday reports whether t falls on a public holiday.
func IsHoliday(t time.Time) bool {
	day := date(t.Year(), t.Month(), t.Day())
	for _, h := range Holidays(t.Year()) {
		if h.Date.Equal(day) {
			return true
		}
	}
	return false
}

func firstWeekdayOnOrAfter(from time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
