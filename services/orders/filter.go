package orders

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"
)

var (
	yearRegex  = regexp.MustCompile(`^\d{4}$`)
	dayRegex   = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
	monthRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
)

// RangeSpec selects the slice of a year's orders to keep. Either the
// day-range fields or the month-range fields may be set, not both;
// whichever mode is chosen defaults its open ends to the full year.
type RangeSpec struct {
	// required, "YYYY"
	Year string
	// "MM-DD"
	StartDate, EndDate string
	// "MM"
	StartMonth, EndMonth string
}

// Window resolves the spec into an inclusive [start, end] date pair.
// All validation happens here, before any page is fetched.
func (s RangeSpec) Window() (start, end time.Time, err error) {
	if !yearRegex.MatchString(s.Year) {
		return start, end, fmt.Errorf("year must be in YYYY format, got %q", s.Year)
	}

	dayMode := s.StartDate != "" || s.EndDate != ""
	monthMode := s.StartMonth != "" || s.EndMonth != ""
	if dayMode && monthMode {
		return start, end, fmt.Errorf("date range and month range options cannot be combined")
	}

	switch {
	case dayMode:
		startDate := s.StartDate
		if startDate == "" {
			startDate = "01-01"
		}
		endDate := s.EndDate
		if endDate == "" {
			endDate = "12-31"
		}
		if !dayRegex.MatchString(startDate) {
			return start, end, fmt.Errorf("start date must be in MM-DD format, got %q", startDate)
		}
		if !dayRegex.MatchString(endDate) {
			return start, end, fmt.Errorf("end date must be in MM-DD format, got %q", endDate)
		}
		start, err = parseCivilDate(s.Year, startDate)
		if err != nil {
			return start, end, err
		}
		end, err = parseCivilDate(s.Year, endDate)
		if err != nil {
			return start, end, err
		}

	case monthMode:
		startMonth := s.StartMonth
		if startMonth == "" {
			startMonth = "01"
		}
		endMonth := s.EndMonth
		if endMonth == "" {
			endMonth = "12"
		}
		if !monthRegex.MatchString(startMonth) {
			return start, end, fmt.Errorf("start month must be in MM format, got %q", startMonth)
		}
		if !monthRegex.MatchString(endMonth) {
			return start, end, fmt.Errorf("end month must be in MM format, got %q", endMonth)
		}
		start, err = parseCivilDate(s.Year, startMonth+"-01")
		if err != nil {
			return start, end, err
		}
		endStart, err := parseCivilDate(s.Year, endMonth+"-01")
		if err != nil {
			return start, end, err
		}
		// normalize to the last day of the end month, which handles
		// 30/31-day months and leap-year February alike
		end = endStart.AddDate(0, 1, -1)

	default:
		start, _ = parseCivilDate(s.Year, "01-01")
		end, _ = parseCivilDate(s.Year, "12-31")
	}

	if end.Before(start) {
		return start, end, fmt.Errorf("range ends (%s) before it starts (%s)",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

func parseCivilDate(year, monthDay string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, fmt.Sprintf("%s-%s", year, monthDay))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %s-%s", year, monthDay)
	}
	return date, nil
}

// FilterSummaries keeps the summaries whose order date falls inside
// the inclusive [start, end] window, preserving input order.
func FilterSummaries(summaries []amazon.OrderSummary, start, end time.Time) []amazon.OrderSummary {
	var kept []amazon.OrderSummary
	for _, summary := range summaries {
		if summary.OrderDate.Before(start) || summary.OrderDate.After(end) {
			continue
		}
		kept = append(kept, summary)
	}
	return kept
}
