/*
Copyright © 2023 the gridharmony authors.
This file is part of gridharmony.

gridharmony is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridharmony is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridharmony.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridharmony

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// maxDayOffset bounds decoded time offsets to about a million years.
const maxDayOffset = 365e6

// DaysInMonth returns the number of days in the month of t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateRange returns the dates from start to end, inclusive, at the given
// frequency. freq is an optional multiple followed by one of
//  D: days
//  M: month ends, MS: month starts
//  A or Y: year ends, AS or YS: year starts.
// For anchored frequencies the first date is the first anchor on or after
// start.
func DateRange(start, end time.Time, freq string) ([]time.Time, error) {
	n, anchor, err := parseFreq(freq)
	if err != nil {
		return nil, err
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var next func(k int) time.Time
	switch anchor {
	case "D":
		next = func(k int) time.Time { return start.AddDate(0, 0, k*n) }
	case "M", "MS", "A", "Y", "AS", "YS":
		months := n
		if anchor != "M" && anchor != "MS" {
			months = 12 * n
		}
		first := firstAnchor(start, anchor)
		monthEnd := anchor == "M" || anchor == "A" || anchor == "Y"
		next = func(k int) time.Time {
			m := time.Date(first.Year(), first.Month()+time.Month(k*months), 1, 0, 0, 0, 0, time.UTC)
			if monthEnd {
				return m.AddDate(0, 1, -1)
			}
			return m
		}
	}
	var out []time.Time
	for k := 0; ; k++ {
		t := next(k)
		if t.After(end) {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// firstAnchor returns the first day of the month whose anchor date is the
// first one on or after t.
func firstAnchor(t time.Time, anchor string) time.Time {
	m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	switch anchor {
	case "MS":
		if t.Day() > 1 {
			m = m.AddDate(0, 1, 0)
		}
	case "AS", "YS":
		m = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		if t.After(m) {
			m = m.AddDate(1, 0, 0)
		}
	case "A", "Y":
		m = time.Date(t.Year(), time.December, 1, 0, 0, 0, 0, time.UTC)
	}
	return m
}

func parseFreq(freq string) (int, string, error) {
	i := 0
	for i < len(freq) && freq[i] >= '0' && freq[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		var err error
		if n, err = strconv.Atoi(freq[:i]); err != nil || n < 1 {
			return 0, "", fmt.Errorf("gridharmony: invalid frequency %q", freq)
		}
	}
	anchor := strings.ToUpper(freq[i:])
	switch anchor {
	case "D", "M", "MS", "A", "Y", "AS", "YS":
		return n, anchor, nil
	}
	return 0, "", fmt.Errorf("gridharmony: unsupported frequency %q", freq)
}

// calendar converts between dates and day counts.
type calendar interface {
	days(y int, m time.Month, d int) int
	date(days int) (int, time.Month, int)
}

type noLeapCalendar struct{}

var noLeapMonthStart = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}

func (noLeapCalendar) days(y int, m time.Month, d int) int {
	return 365*y + noLeapMonthStart[m-1] + d - 1
}

func (noLeapCalendar) date(days int) (int, time.Month, int) {
	y := floorDiv(days, 365)
	doy := days - 365*y
	m := 1
	for noLeapMonthStart[m] <= doy {
		m++
	}
	return y, time.Month(m), doy - noLeapMonthStart[m-1] + 1
}

type day360Calendar struct{}

func (day360Calendar) days(y int, m time.Month, d int) int {
	return 360*y + 30*int(m-1) + d - 1
}

func (day360Calendar) date(days int) (int, time.Month, int) {
	y := floorDiv(days, 360)
	doy := days - 360*y
	return y, time.Month(doy/30 + 1), doy%30 + 1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DecodeCFTime converts numeric time values with CF-convention units
// such as "days since 1850-01-01 00:00:00" to dates. Supported calendars
// are standard, gregorian, proleptic_gregorian (all treated as
// proleptic Gregorian), noleap, 365_day and 360_day. Dates on non-standard
// calendars that do not exist in the Gregorian calendar, such as 30
// February, are normalized by time.Date.
func DecodeCFTime(values []float64, units, cal string) ([]time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("gridharmony: time units %q are not of the form '<unit> since <date>'", units)
	}
	base, err := parseCFDate(parts[1])
	if err != nil {
		return nil, err
	}
	// step is the length of one unit in seconds.
	var step float64
	months := 0
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "days", "day", "d":
		step = secondsPerDay
	case "hours", "hour", "h":
		step = 3600
	case "minutes", "minute", "min":
		step = 60
	case "seconds", "second", "s":
		step = 1
	case "months", "month":
		months = 1
	case "years", "year":
		months = 12
	default:
		return nil, fmt.Errorf("gridharmony: unsupported time unit %q", parts[0])
	}

	var c calendar
	switch strings.ToLower(cal) {
	case "", "standard", "gregorian", "proleptic_gregorian":
	case "noleap", "365_day":
		c = noLeapCalendar{}
	case "360_day":
		c = day360Calendar{}
	default:
		return nil, fmt.Errorf("gridharmony: unsupported calendar %q", cal)
	}

	out := make([]time.Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("gridharmony: non-finite time value at position %d", i)
		}
		if months > 0 {
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("gridharmony: fractional value %g for time unit %q", v, parts[0])
			}
			out[i] = base.AddDate(0, int(v)*months, 0)
			continue
		}
		// Whole days and the time of day are kept apart so that offsets of
		// centuries do not overflow a time.Duration.
		midnight := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
		secs := base.Sub(midnight).Seconds() + v*step
		dayOffset := math.Floor(secs / secondsPerDay)
		if math.Abs(dayOffset) > maxDayOffset {
			return nil, fmt.Errorf("gridharmony: time value %g %s is out of range", v, parts[0])
		}
		clock := time.Duration(math.Round((secs - dayOffset*secondsPerDay) * float64(time.Second)))
		if c == nil {
			out[i] = midnight.AddDate(0, 0, int(dayOffset)).Add(clock)
			continue
		}
		y, m, d := c.date(c.days(base.Year(), base.Month(), base.Day()) + int(dayOffset))
		out[i] = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(clock)
	}
	return out, nil
}

func parseCFDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range []string{
		"2006-1-2 15:4:5", "2006-1-2T15:4:5", "2006-1-2 15:4", "2006-1-2",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Fractional seconds.
	if i := strings.LastIndex(s, "."); i > 0 {
		if t, err := parseCFDate(s[:i]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("gridharmony: cannot parse reference date %q", s)
}
