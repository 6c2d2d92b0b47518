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
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateRange(t *testing.T) {
	for _, test := range []struct {
		start, end  time.Time
		freq        string
		n           int
		first, last time.Time
	}{
		{date(1950, 1, 1), date(2022, 1, 1), "1M", 864, date(1950, 1, 31), date(2021, 12, 31)},
		{date(2018, 1, 1), date(2018, 12, 1), "1MS", 12, date(2018, 1, 1), date(2018, 12, 1)},
		{date(2003, 1, 15), date(2004, 1, 1), "MS", 12, date(2003, 2, 1), date(2004, 1, 1)},
		{date(2003, 1, 1), date(2003, 1, 10), "3D", 4, date(2003, 1, 1), date(2003, 1, 10)},
		{date(2003, 1, 1), date(2006, 1, 1), "A", 3, date(2003, 12, 31), date(2005, 12, 31)},
		{date(2003, 1, 1), date(2006, 1, 1), "AS", 4, date(2003, 1, 1), date(2006, 1, 1)},
		{date(2003, 1, 1), date(2004, 1, 1), "2M", 6, date(2003, 1, 31), date(2003, 11, 30)},
	} {
		t.Run(test.freq, func(t *testing.T) {
			d, err := DateRange(test.start, test.end, test.freq)
			if err != nil {
				t.Fatal(err)
			}
			if len(d) != test.n {
				t.Fatalf("have %d dates, want %d", len(d), test.n)
			}
			if !d[0].Equal(test.first) || !d[len(d)-1].Equal(test.last) {
				t.Errorf("have %v to %v, want %v to %v", d[0], d[len(d)-1], test.first, test.last)
			}
		})
	}
	if _, err := DateRange(date(2003, 1, 1), date(2004, 1, 1), "1W"); err == nil {
		t.Error("unsupported frequency should fail")
	}
}

func TestDaysInMonth(t *testing.T) {
	for _, test := range []struct {
		t    time.Time
		want int
	}{
		{date(2000, 2, 10), 29},
		{date(2001, 2, 28), 28},
		{date(1900, 2, 1), 28},
		{date(2003, 12, 31), 31},
		{date(2003, 4, 1), 30},
	} {
		if have := DaysInMonth(test.t); have != test.want {
			t.Errorf("%v: have %d, want %d", test.t, have, test.want)
		}
	}
}

func TestDecodeCFTime(t *testing.T) {
	for _, test := range []struct {
		name     string
		values   []float64
		units    string
		calendar string
		want     []time.Time
	}{
		{
			name:   "standard days",
			values: []float64{0, 31, 59.5},
			units:  "days since 2003-01-01 00:00:00",
			want:   []time.Time{date(2003, 1, 1), date(2003, 2, 1), date(2003, 3, 1).Add(12 * time.Hour)},
		},
		{
			name:     "hours",
			values:   []float64{24, 48},
			units:    "hours since 2000-2-28",
			calendar: "gregorian",
			want:     []time.Time{date(2000, 2, 29), date(2000, 3, 1)},
		},
		{
			name:     "noleap",
			values:   []float64{59, 365},
			units:    "days since 2000-01-01",
			calendar: "noleap",
			want:     []time.Time{date(2000, 3, 1), date(2001, 1, 1)},
		},
		{
			name:     "360 day",
			values:   []float64{30, 360},
			units:    "days since 2000-01-01",
			calendar: "360_day",
			want:     []time.Time{date(2000, 2, 1), date(2001, 1, 1)},
		},
		{
			name:     "days since 1700",
			values:   []float64{110682, 117059.5},
			units:    "days since 1700-01-01 00:00:00",
			calendar: "standard",
			want:     []time.Time{date(2003, 1, 15), date(2020, 7, 1).Add(12 * time.Hour)},
		},
		{
			name:   "seconds since 1700",
			values: []float64{110682 * 86400, 110682*86400 + 5400},
			units:  "seconds since 1700-01-01",
			want:   []time.Time{date(2003, 1, 15), date(2003, 1, 15).Add(90 * time.Minute)},
		},
		{
			name:     "noleap since 1700",
			values:   []float64{110609, 110609.25},
			units:    "days since 1700-01-01",
			calendar: "noleap",
			want:     []time.Time{date(2003, 1, 15), date(2003, 1, 15).Add(6 * time.Hour)},
		},
		{
			name:     "360 day since 1700",
			values:   []float64{303*360 + 14},
			units:    "days since 1700-01-01",
			calendar: "360_day",
			want:     []time.Time{date(2003, 1, 15)},
		},
		{
			name:     "base time of day",
			values:   []float64{1.5},
			units:    "days since 2003-01-01 12:00:00",
			calendar: "noleap",
			want:     []time.Time{date(2003, 1, 3)},
		},
		{
			name:   "months",
			values: []float64{0, 13},
			units:  "months since 2003-01-01",
			want:   []time.Time{date(2003, 1, 1), date(2004, 2, 1)},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			have, err := DecodeCFTime(test.values, test.units, test.calendar)
			if err != nil {
				t.Fatal(err)
			}
			for i, w := range test.want {
				if !have[i].Equal(w) {
					t.Errorf("value %d: have %v, want %v", i, have[i], w)
				}
			}
		})
	}
}

func TestDecodeCFTimeErrors(t *testing.T) {
	for _, test := range []struct {
		units, calendar string
	}{
		{"days", ""},
		{"fortnights since 2000-01-01", ""},
		{"days since yesterday", ""},
		{"days since 2000-01-01", "julian"},
	} {
		if _, err := DecodeCFTime([]float64{1}, test.units, test.calendar); err == nil {
			t.Errorf("%q %q should fail", test.units, test.calendar)
		}
	}
}
