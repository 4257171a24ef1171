package orders

import (
	"testing"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"

	"github.com/stretchr/testify/require"
)

func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestWindowDefaultsToFullYear(t *testing.T) {
	start, end, err := RangeSpec{Year: "2025"}.Window()
	require.NoError(t, err)
	require.Equal(t, civil(2025, time.January, 1), start)
	require.Equal(t, civil(2025, time.December, 31), end)
}

func TestWindowDayRange(t *testing.T) {
	cases := []struct {
		spec        RangeSpec
		expectStart time.Time
		expectEnd   time.Time
	}{
		{
			spec:        RangeSpec{Year: "2025", StartDate: "01-15", EndDate: "03-20"},
			expectStart: civil(2025, time.January, 15),
			expectEnd:   civil(2025, time.March, 20),
		},
		{
			// open start defaults to january 1st
			spec:        RangeSpec{Year: "2025", EndDate: "06-30"},
			expectStart: civil(2025, time.January, 1),
			expectEnd:   civil(2025, time.June, 30),
		},
		{
			// open end defaults to december 31st
			spec:        RangeSpec{Year: "2025", StartDate: "11-01"},
			expectStart: civil(2025, time.November, 1),
			expectEnd:   civil(2025, time.December, 31),
		},
	}
	for _, test := range cases {
		start, end, err := test.spec.Window()
		require.NoError(t, err)
		require.Equal(t, test.expectStart, start)
		require.Equal(t, test.expectEnd, end)
	}
}

func TestWindowMonthRange(t *testing.T) {
	cases := []struct {
		spec      RangeSpec
		expectEnd time.Time
	}{
		{RangeSpec{Year: "2025", StartMonth: "03", EndMonth: "04"}, civil(2025, time.April, 30)},
		{RangeSpec{Year: "2025", EndMonth: "12"}, civil(2025, time.December, 31)},
		// february resolves by leap year
		{RangeSpec{Year: "2024", EndMonth: "02"}, civil(2024, time.February, 29)},
		{RangeSpec{Year: "2023", EndMonth: "02"}, civil(2023, time.February, 28)},
	}
	for _, test := range cases {
		_, end, err := test.spec.Window()
		require.NoError(t, err)
		require.Equal(t, test.expectEnd, end, "spec %+v", test.spec)
	}
}

func TestWindowRejectsConflictingModes(t *testing.T) {
	_, _, err := RangeSpec{Year: "2025", StartDate: "01-15", EndMonth: "06"}.Window()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot be combined")
}

func TestWindowRejectsMalformedInput(t *testing.T) {
	cases := []RangeSpec{
		{Year: "25"},
		{Year: "2025", StartDate: "1-15"},
		{Year: "2025", EndDate: "13-01"},
		{Year: "2025", StartMonth: "0"},
		{Year: "2025", EndMonth: "13"},
		// a well-formed pattern that is not a real date
		{Year: "2025", EndDate: "02-30"},
		// inverted range
		{Year: "2025", StartDate: "06-01", EndDate: "01-01"},
	}
	for _, spec := range cases {
		_, _, err := spec.Window()
		require.Error(t, err, "spec %+v", spec)
	}
}

func summaryOn(d time.Time) amazon.OrderSummary {
	return amazon.OrderSummary{
		OrderDate:   d,
		OrderNumber: "112-0000000-0000000",
		Total:       "$1.00",
	}
}

func TestFilterSummaries(t *testing.T) {
	input := []amazon.OrderSummary{
		summaryOn(civil(2025, time.January, 1)),
		summaryOn(civil(2025, time.February, 10)),
		summaryOn(civil(2025, time.March, 31)),
		summaryOn(civil(2025, time.April, 1)),
	}

	kept := FilterSummaries(input, civil(2025, time.February, 10), civil(2025, time.March, 31))

	// output is an order-preserving subsequence, bounds inclusive
	require.Equal(t, []amazon.OrderSummary{input[1], input[2]}, kept)
	for _, summary := range kept {
		require.False(t, summary.OrderDate.Before(civil(2025, time.February, 10)))
		require.False(t, summary.OrderDate.After(civil(2025, time.March, 31)))
	}
}

func TestFilterSummariesEmptyWindow(t *testing.T) {
	input := []amazon.OrderSummary{summaryOn(civil(2025, time.June, 15))}
	kept := FilterSummaries(input, civil(2025, time.January, 1), civil(2025, time.January, 31))
	require.Empty(t, kept)
}
