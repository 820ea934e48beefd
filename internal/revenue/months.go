package revenue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthAbbrevs = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthAbbrevs returns the three-letter month names in calendar order.
func MonthAbbrevs() []string {
	out := make([]string, len(monthAbbrevs))
	copy(out, monthAbbrevs[:])
	return out
}

// MonthsBetween counts calendar months from d1 to d2 ignoring the day of month.
// The result is negative when d2 falls in an earlier month than d1.
func MonthsBetween(d1, d2 time.Time) int {
	return (d2.Year()-d1.Year())*12 + int(d2.Month()) - int(d1.Month())
}

// Label formats t as "Jan-2021". The label doubles as the column key.
func Label(t time.Time) string {
	return fmt.Sprintf("%s-%04d", monthAbbrevs[t.Month()-1], t.Year())
}

// ParseLabel is the inverse of Label and returns the first day of that month in UTC.
func ParseLabel(label string) (time.Time, error) {
	mon, yr, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid month label %q", label)
	}
	month := monthIndex(mon)
	if month == 0 {
		return time.Time{}, fmt.Errorf("invalid month %q in label %q", mon, label)
	}
	year, err := strconv.Atoi(yr)
	if err != nil || len(yr) != 4 {
		return time.Time{}, fmt.Errorf("invalid year %q in label %q", yr, label)
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// MonthStart returns midnight on the first day of t's month, keeping t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func monthIndex(abbrev string) int {
	for i, m := range monthAbbrevs {
		if strings.EqualFold(m, abbrev) {
			return i + 1
		}
	}
	return 0
}
