package amazon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseUnitPrice(t *testing.T) {
	cases := []struct {
		text   string
		expect float64
	}{
		{"$15.00", 15.00},
		{"$1,299.99", 1299.99},
		{"($2.00/oz) $6.00", 6.00},
		{"($0.42/count) $12.60", 12.60},
		// bag fees and similar ancillary lines have no price at all
		{"", 0},
		{"   ", 0},
	}
	for _, test := range cases {
		got, err := parseUnitPrice(test.text)
		require.NoError(t, err, "input %q", test.text)
		require.Equal(t, test.expect, got, "input %q", test.text)
	}
}

func TestParseMoney(t *testing.T) {
	got, err := parseMoney("Order Total: $45.49")
	require.NoError(t, err)
	require.Equal(t, 45.49, got)

	got, err = parseMoney("$1,234.56")
	require.NoError(t, err)
	require.Equal(t, 1234.56, got)

	_, err = parseMoney("no amount here")
	require.Error(t, err)
}

func TestParseLongDate(t *testing.T) {
	got, err := parseLongDate("Order Placed: January 5, 2025")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = parseLongDate("Shipped on  December 31, 2024")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = parseLongDate("yesterday")
	require.Error(t, err)
}
