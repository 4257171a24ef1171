package orders

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"

	"github.com/stretchr/testify/require"
)

func exportFixtureOrders() []amazon.Order {
	return []amazon.Order{
		{
			OrderDate:   civil(2025, time.January, 5),
			OrderNumber: "112-1234567-7654321",
			Total:       32.50,
			SubTotal:    30.00,
			Items: []amazon.Item{
				{
					UnitPrice:    15.00,
					Count:        2,
					Description:  "Widget Deluxe, stainless",
					SoldBy:       "WidgetCo",
					SuppliedBy:   "N/A",
					ShippingDate: civil(2025, time.January, 6),
				},
			},
			Charges: []amazon.CardCharge{
				{CardDigits: "4242", Date: civil(2025, time.January, 6), Amount: 32.50},
			},
		},
		{
			OrderDate:   civil(2025, time.February, 1),
			OrderNumber: "112-7654321-1234567",
			Total:       9.99,
			SubTotal:    9.99,
			Items: []amazon.Item{
				{UnitPrice: 9.99, Count: 1, Description: "Unshipped thing", SoldBy: "N/A", SuppliedBy: "N/A"},
			},
		},
	}
}

func readCsv(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteItemsCsv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "items.csv")

	err := WriteItemsCsv(path, exportFixtureOrders())
	require.NoError(t, err)

	rows := readCsv(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, itemCsvHeader, rows[0])

	first := rows[0+1]
	require.Equal(t, "2025-01-05", first[0])
	require.Equal(t, "112-1234567-7654321", first[1])
	require.Equal(t, "$2.50", first[2])
	require.Equal(t, "$32.50", first[3])
	require.Equal(t, "$15.00", first[4])
	require.Equal(t, "2", first[5])
	require.Equal(t, "Widget Deluxe, stainless", first[6])
	require.Equal(t, "2025-01-06", first[9])

	// an unshipped item exports a blank shipping date
	require.Equal(t, "", rows[2][9])
}

// exported monetary columns must survive a parse round-trip to two
// decimal places
func TestItemsCsvMoneyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.csv")
	orders := exportFixtureOrders()

	err := WriteItemsCsv(path, orders)
	require.NoError(t, err)

	rows := readCsv(t, path)
	items := FlattenAll(orders)
	require.Len(t, rows, len(items)+1)

	for i, item := range items {
		row := rows[i+1]
		for col, expect := range map[int]float64{
			2: item.ChargesAllocated,
			3: item.AccountedCost,
			4: item.UnitPrice,
		} {
			parsed, err := strconv.ParseFloat(strings.TrimPrefix(row[col], "$"), 64)
			require.NoError(t, err)
			require.InDelta(t, expect, parsed, 0.005, "row %d col %d", i+1, col)
		}
	}
}

func TestWriteOrdersCsv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")

	err := WriteOrdersCsv(path, exportFixtureOrders())
	require.NoError(t, err)

	rows := readCsv(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, orderCsvHeader, rows[0])
	require.Equal(t,
		[]string{"2025-01-05", "112-1234567-7654321", "$32.50", "$30.00", "1", "1"},
		rows[1])
	require.Equal(t,
		[]string{"2025-02-01", "112-7654321-1234567", "$9.99", "$9.99", "1", "0"},
		rows[2])
}

func TestWriteItemsCsvBadPath(t *testing.T) {
	// a file standing where a directory is needed makes the export fail
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := WriteItemsCsv(filepath.Join(blocker, "items.csv"), exportFixtureOrders())
	require.Error(t, err)
}
