// Package fy implements financial-year period arithmetic. A financial year
// runs April through March and is written "2024-2025"; individual months are
// identified by 6-character MMYYYY keys ("042024").
package fy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthsInYear is the number of periods a financial year spans.
const MonthsInYear = 12

// ErrInvalidYear indicates a financial-year string that does not parse into
// two consecutive 4-digit years.
var ErrInvalidYear = errors.New("fy: invalid financial year")

// ErrInvalidMonthKey indicates a period key that is not MMYYYY shaped.
var ErrInvalidMonthKey = errors.New("fy: invalid month key")

// Year is a parsed financial year.
type Year struct {
	Start int
	End   int
}

// Parse splits a "YYYY-YYYY" financial-year string. The end year must be the
// start year plus one.
func Parse(year string) (Year, error) {
	parts := strings.Split(strings.TrimSpace(year), "-")
	if len(parts) != 2 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	if end != start+1 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	return Year{Start: start, End: end}, nil
}

// String renders the year back to its canonical "YYYY-YYYY" form.
func (y Year) String() string {
	return fmt.Sprintf("%04d-%04d", y.Start, y.End)
}

// MonthKey builds the MMYYYY key for a calendar month and year.
func MonthKey(month time.Month, year int) string {
	return fmt.Sprintf("%02d%04d", int(month), year)
}

// MonthKeyFromTime derives the MMYYYY key of a timestamp.
func MonthKeyFromTime(t time.Time) string {
	return MonthKey(t.Month(), t.Year())
}

// Months returns the ordered 12 month keys of a financial year:
// April..December of the start year, then January..March of the end year.
// This is also the canonical chart x-axis order.
func Months(year string) ([]string, error) {
	y, err := Parse(year)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, MonthsInYear)
	for m := time.April; m <= time.December; m++ {
		keys = append(keys, MonthKey(m, y.Start))
	}
	for m := time.January; m <= time.March; m++ {
		keys = append(keys, MonthKey(m, y.End))
	}
	return keys, nil
}

// SplitKey decomposes an MMYYYY key into month and year. Keys that are not
// exactly six digits, or whose month falls outside 01..12, are rejected.
func SplitKey(key string) (time.Month, int, error) {
	if len(key) != 6 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	month, err := strconv.Atoi(key[:2])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	year, err := strconv.Atoi(key[2:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return time.Month(month), year, nil
}

// Compare orders two month keys in financial-year display order: months
// January..March sort after December by treating them as 13..15. Malformed
// keys compare as equal to themselves and before well-formed ones.
func Compare(a, b string) int {
	am, ay, errA := SplitKey(a)
	bm, by, errB := SplitKey(b)
	if errA != nil || errB != nil {
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a, b)
		case errA != nil:
			return -1
		default:
			return 1
		}
	}
	aRank := fyRank(am, ay)
	bRank := fyRank(bm, by)
	switch {
	case aRank < bRank:
		return -1
	case aRank > bRank:
		return 1
	default:
		return 0
	}
}

// fyRank maps a calendar month/year onto a scale where April opens the year.
// January..March belong to the financial year that started the previous
// calendar year, so they rank behind December.
func fyRank(m time.Month, year int) int {
	adjusted := int(m)
	if adjusted <= 3 {
		adjusted += 12
		year--
	}
	return year*16 + adjusted
}

// LabelStyle selects the month label rendering used on chart axes.
type LabelStyle int

const (
	// LabelShort renders "Apr".
	LabelShort LabelStyle = iota
	// LabelShortFY renders "Apr" plus an "FY2024" marker on the April that
	// opens a financial year.
	LabelShortFY
	// LabelFull renders "April 2024".
	LabelFull
)

// Label formats a month key for display. Keys that do not parse are returned
// unchanged so a bad upstream value stays visible instead of disappearing.
func Label(key string, style LabelStyle) string {
	month, year, err := SplitKey(key)
	if err != nil {
		return key
	}
	switch style {
	case LabelShortFY:
		if month == time.April {
			return fmt.Sprintf("%s FY%d", month.String()[:3], year)
		}
		return month.String()[:3]
	case LabelFull:
		return fmt.Sprintf("%s %d", month.String(), year)
	default:
		return month.String()[:3]
	}
}

// Contains reports whether key is one of the financial year's 12 months.
func Contains(year string, key string) bool {
	months, err := Months(year)
	if err != nil {
		return false
	}
	for _, m := range months {
		if m == key {
			return true
		}
	}
	return false
}

// Current returns the financial year containing the given time.
func Current(t time.Time) string {
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	return Year{Start: year, End: year + 1}.String()
}
