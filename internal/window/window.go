// Package window derives the look-back date window used by keyword-rank queries.
package window

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateFormat is the ISO calendar date layout used by the insight endpoints.
const DateFormat = "2006-01-02"

// Period selects how far back from the end date a window extends.
type Period string

const (
	// PeriodDate is a zero-width window: start equals end.
	PeriodDate Period = "date"
	// PeriodWeek starts seven days before the end date.
	PeriodWeek Period = "week"
	// PeriodMonth starts one calendar month before the end date.
	PeriodMonth Period = "month"
)

// Periods lists the accepted period types.
var Periods = []Period{PeriodDate, PeriodWeek, PeriodMonth}

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.TrimSpace(s))
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("ParsePeriod: unknown period %q (want date, week or month)", s)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: invalid date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}

// Window is an immutable [start, end] pair derived from an end date and a period.
type Window struct {
	start  civil.Date
	end    civil.Date
	period Period
}

// Derive computes the window ending at end for period p.
//
// "date" yields start == end. "month" steps back one calendar month keeping
// the day of month, clipped to the last day of the earlier month.
func Derive(end civil.Date, p Period) (Window, error) {
	if !end.IsValid() {
		return Window{}, fmt.Errorf("Derive: invalid end date %v", end)
	}

	var start civil.Date
	switch p {
	case PeriodDate:
		start = end
	case PeriodWeek:
		start = end.AddDays(-7)
	case PeriodMonth:
		start = previousMonth(end)
	default:
		return Window{}, fmt.Errorf("Derive: unknown period %q", p)
	}

	return Window{start: start, end: end, period: p}, nil
}

// Start is the first day of the window.
func (w Window) Start() civil.Date { return w.start }

// End is the reference date the window was derived from.
func (w Window) End() civil.Date { return w.end }

// Period is the period type the window was derived with.
func (w Window) Period() Period { return w.period }

func (w Window) String() string {
	return fmt.Sprintf("%s..%s (%s)", w.start, w.end, w.period)
}

// Days lists every date from start to end inclusive. It returns nil when end is before start.
func Days(start, end civil.Date) []civil.Date {
	if end.Before(start) {
		return nil
	}
	days := make([]civil.Date, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func previousMonth(d civil.Date) civil.Date {
	year, month := d.Year, d.Month-1
	if month < time.January {
		month = time.December
		year--
	}
	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the following month is the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
