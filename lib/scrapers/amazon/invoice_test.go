package amazon

import (
	"strings"
	"testing"
	"time"

	_ "embed"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/invoice.html
var invoiceFixture string

func docFromString(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestExtractOrder(t *testing.T) {
	doc := docFromString(t, invoiceFixture)

	order, err := ExtractOrder(doc, "https://www.amazon.com/gp/css/summary/print.html?orderID=112-1234567-7654321")
	require.NoError(t, err)

	expect := Order{
		OrderDate:   date(2025, time.January, 5),
		OrderNumber: "112-1234567-7654321",
		Total:       45.49,
		SubTotal:    36.00,
		Url:         "https://www.amazon.com/gp/css/summary/print.html?orderID=112-1234567-7654321",
		Items: []Item{
			{
				UnitPrice:    15.00,
				Count:        2,
				Description:  "Widget Deluxe, stainless",
				SoldBy:       "WidgetCo",
				SuppliedBy:   "WidgetWorks Ltd",
				ShippingDate: date(2025, time.January, 6),
			},
			{
				UnitPrice:    6.00,
				Count:        1,
				Description:  "Organic Oat Clusters",
				SoldBy:       "Whole Foods Market",
				SuppliedBy:   "N/A",
				ShippingDate: date(2025, time.January, 6),
			},
			{
				UnitPrice:   0,
				Count:       1,
				Description: "Carryout Bag Fee",
				SoldBy:      "Whole Foods Market",
				SuppliedBy:  "N/A",
			},
		},
		Charges: []CardCharge{
			{CardDigits: "4242", Date: date(2025, time.January, 6), Amount: 40.00},
			{CardDigits: "4242", Date: date(2025, time.January, 7), Amount: 5.49},
		},
	}
	if diff := cmp.Diff(expect, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractOrderUnshippedBundle(t *testing.T) {
	doc := docFromString(t, invoiceFixture)

	order, err := ExtractOrder(doc, "test://invoice")
	require.NoError(t, err)

	require.Len(t, order.Items, 3)
	require.True(t, order.Items[2].ShippingDate.IsZero(),
		"item in a 'Not Yet Shipped' bundle must have no ship date")
}

const bundleWithoutMarkers = `
<table><tbody>
<tr><td><b>Order summary</b></td></tr>
<tr><td>
  <table><tbody>
    <tr><td><b>Items Ordered</b></td><td><b>Price</b></td></tr>
    <tr><td><i>Mystery Gadget</i><br><span class="tiny">Sold by: Gadgets Inc</span></td><td>$9.99</td></tr>
  </tbody></table>
</td></tr>
</tbody></table>`

func TestExtractBundleMissingShipmentMarker(t *testing.T) {
	doc := docFromString(t, bundleWithoutMarkers)

	// a bundle with neither marker must fail loudly instead of
	// being treated as merely unshipped
	bundle := doc.Find("tbody").First()
	_, err := extractBundle(bundle)
	require.Error(t, err)
	require.Contains(t, err.Error(), "shipment marker")
}

func TestExtractOrderMissingDate(t *testing.T) {
	markup := strings.Replace(invoiceFixture, "Order Placed:", "Placed At:", 1)
	doc := docFromString(t, markup)

	_, err := ExtractOrder(doc, "test://invoice")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Order Placed:")
}

func TestExtractOrderMissingSubtotal(t *testing.T) {
	markup := strings.Replace(invoiceFixture, "Item(s) Subtotal:", "Items:", 1)
	doc := docFromString(t, markup)

	_, err := ExtractOrder(doc, "test://invoice")
	require.Error(t, err)
}

func TestExtractOrderNoChargeTable(t *testing.T) {
	markup := strings.Replace(invoiceFixture, "Credit Card transactions", "Gift card transactions", 1)
	doc := docFromString(t, markup)

	// subscription/deferred-charge orders have no transaction table,
	// which is a valid state rather than an extraction failure
	order, err := ExtractOrder(doc, "test://invoice")
	require.NoError(t, err)
	require.Empty(t, order.Charges)
}

func TestExtractOrderMalformedChargeRow(t *testing.T) {
	markup := strings.Replace(invoiceFixture, "ending in 4242: January 6, 2025", "ending in 4242", 1)
	doc := docFromString(t, markup)

	_, err := ExtractOrder(doc, "test://invoice")
	require.Error(t, err)
	require.Contains(t, err.Error(), "charge row")
}

func TestExtractChargeRowNegativeAmount(t *testing.T) {
	doc := docFromString(t,
		`<table><tr><td>Visa ending in 4242: March 3, 2025:</td><td>-$5.00</td></tr></table>`)

	charge, err := extractChargeRow(doc.Find("tr").First())
	require.NoError(t, err)
	require.Equal(t, -5.00, charge.Amount)
	require.Equal(t, "4242", charge.CardDigits)
}

func TestParseMerchantAnnotation(t *testing.T) {
	cases := []struct {
		text       string
		soldBy     string
		suppliedBy string
	}{
		{"Sold by: WidgetCo\nSupplied by: WidgetWorks", "WidgetCo", "WidgetWorks"},
		{"Sold by: WidgetCo", "WidgetCo", "N/A"},
		{"Condition: New", "N/A", "N/A"},
		{"", "N/A", "N/A"},
	}
	for _, test := range cases {
		soldBy, suppliedBy := parseMerchantAnnotation(test.text)
		require.Equal(t, test.soldBy, soldBy)
		require.Equal(t, test.suppliedBy, suppliedBy)
	}
}
