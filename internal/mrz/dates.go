package mrz

import (
	"fmt"
	"time"
)

// Date is a structured MRZ date. Year holds the two-digit year exactly as
// read from the document; century expansion happens at the point of use.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// IsZero reports whether the date carries no value at all.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// ExpandYear resolves a two-digit MRZ year against the current date. Years
// greater than the current two-digit year are taken as 1900s, the rest as
// 2000s. A document issued today cannot carry a birth year from the future.
func ExpandYear(twoDigit int, now time.Time) int {
	if twoDigit > now.Year()%100 {
		return 1900 + twoDigit
	}
	return 2000 + twoDigit
}

// Age computes full years elapsed between a two-digit-year birth date and
// now, counting one year less when the birthday has not yet occurred in the
// current year.
func Age(birth Date, now time.Time) int {
	age := now.Year() - ExpandYear(birth.Year, now)
	if int(now.Month()) < birth.Month ||
		(int(now.Month()) == birth.Month && now.Day() < birth.Day) {
		age--
	}
	return age
}

// FormatDate renders a structured date for display, expanding the two-digit
// year relative to now.
func FormatDate(d Date, now time.Time) string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", ExpandYear(d.Year, now), d.Month, d.Day)
}
