package amazon

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

var (
	itemCountRegex  = regexp.MustCompile(`(\d+)\s+of`)
	soldByRegex     = regexp.MustCompile(`Sold by:\s*(.+)`)
	suppliedByRegex = regexp.MustCompile(`Supplied by:\s*(.+)`)
	shippedOnRegex  = regexp.MustCompile(`Shipped on\s*([A-Za-z]+\s\d{1,2},\s\d{4})`)
	chargeCardRegex = regexp.MustCompile(`ending in (\d\d\d\d)`)
	chargeAmtRegex  = regexp.MustCompile(`(-?)\$(\d[\d,]*\.\d\d)`)
	chargeDateRegex = regexp.MustCompile(`(\S+ \d+, 20\d\d)`)
)

const orderPlacedMarker = "Order Placed:"

// ScrapeInvoice fetches an invoice page and extracts the full order.
func ScrapeInvoice(ctx context.Context, f Fetcher, link string) (Order, error) {
	ctx, span := tracer.Start(ctx, "ScrapeInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	doc, err := f.WaitForSelector(ctx, link, "body")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice page fetch failed")
		return Order{}, err
	}

	order, err := ExtractOrder(doc, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice extraction failed")
		return Order{}, fmt.Errorf("invoice %s: %w", link, err)
	}
	return order, nil
}

// ExtractOrder parses an invoice document into an Order. Structural
// markers it cannot find are unrecoverable for this invoice; the only
// legitimate absences are the "Not Yet Shipped" state of a bundle and
// a missing credit card transaction table.
func ExtractOrder(doc *goquery.Document, link string) (Order, error) {
	placed := findMarker(doc.Selection, "*", orderPlacedMarker)
	if placed.Length() == 0 {
		return Order{}, fmt.Errorf("missing %q marker", orderPlacedMarker)
	}
	orderDate, err := parseLongDate(placed.Parent().Text())
	if err != nil {
		return Order{}, fmt.Errorf("order date: %w", err)
	}

	numberLabel := findMarker(doc.Selection, "b", "order number:")
	if numberLabel.Length() == 0 {
		return Order{}, fmt.Errorf("missing order number marker")
	}
	orderNumber := orderNumberRegex.FindString(numberLabel.Parent().Text())
	if orderNumber == "" {
		return Order{}, fmt.Errorf("order number pattern did not match")
	}

	total, err := labeledAmount(doc, "Order Total:")
	if err != nil {
		return Order{}, err
	}
	subTotal, err := labeledAmount(doc, "Item(s) Subtotal")
	if err != nil {
		return Order{}, err
	}

	items, err := extractBundledItems(doc)
	if err != nil {
		return Order{}, err
	}

	charges, err := extractCardCharges(doc)
	if err != nil {
		return Order{}, err
	}

	return Order{
		OrderDate:   orderDate,
		OrderNumber: orderNumber,
		Total:       total,
		SubTotal:    subTotal,
		Url:         link,
		Items:       items,
		Charges:     charges,
	}, nil
}

func labeledAmount(doc *goquery.Document, label string) (float64, error) {
	marker := findMarker(doc.Selection, "*", label)
	if marker.Length() == 0 {
		return 0, fmt.Errorf("missing %q marker", label)
	}
	amount, err := parseMoney(marker.Parent().Text())
	if err != nil {
		return 0, fmt.Errorf("%q amount: %w", label, err)
	}
	return amount, nil
}

// A shipment bundle is the nearest ancestor tbody of a "Shipped on"
// or "Not Yet Shipped" marker that also holds an "Items Ordered"
// table. Items ship in batches, so one invoice can have several.
func findBundles(doc *goquery.Document) []*goquery.Selection {
	markers := doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := htmlutil.OwnText(s)
		return strings.Contains(text, "Shipped on") || strings.Contains(text, "Not Yet Shipped")
	})

	var bundles []*goquery.Selection
	seen := map[*html.Node]bool{}
	markers.Each(func(_ int, marker *goquery.Selection) {
		bundle := marker.ParentsFiltered("tbody").FilterFunction(func(_ int, tb *goquery.Selection) bool {
			return strings.Contains(tb.Text(), "Items Ordered")
		}).First()
		if bundle.Length() == 0 {
			return
		}
		node := bundle.Nodes[0]
		if seen[node] {
			return
		}
		seen[node] = true
		bundles = append(bundles, bundle)
	})
	return bundles
}

func extractBundledItems(doc *goquery.Document) ([]Item, error) {
	var items []Item
	for i, bundle := range findBundles(doc) {
		bundleItems, err := extractBundle(bundle)
		if err != nil {
			return nil, fmt.Errorf("bundle %d: %w", i, err)
		}
		items = append(items, bundleItems...)
	}
	return items, nil
}

// extractBundle parses the items of one shipment bundle, all sharing
// the bundle's ship date. A bundle carrying neither a "Shipped on"
// date nor a "Not Yet Shipped" marker means the page layout changed
// out from under us, which must not be mistaken for "not shipped".
func extractBundle(bundle *goquery.Selection) ([]Item, error) {
	var shippingDate time.Time
	shipped := findMarker(bundle, "*", "Shipped on")
	if shipped.Length() > 0 {
		groups := shippedOnRegex.FindStringSubmatch(shipped.Text())
		if groups == nil {
			return nil, fmt.Errorf("'Shipped on' marker without a parseable date")
		}
		date, err := time.Parse(longDateLayout, collapseDateSpaces(groups[1]))
		if err != nil {
			return nil, fmt.Errorf("ship date: %w", err)
		}
		shippingDate = date
	} else if findMarker(bundle, "*", "Not Yet Shipped").Length() == 0 {
		return nil, fmt.Errorf("no shipment marker, neither shipped nor pending")
	}

	table := innermostItemsTable(bundle)
	if table.Length() == 0 {
		return nil, fmt.Errorf("missing 'Items Ordered' table")
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil, fmt.Errorf("'Items Ordered' table has no item rows")
	}

	var items []Item
	var failure error
	// the first row is the "Items Ordered"/"Price" header
	rows.Slice(1, rows.Length()).EachWithBreak(func(i int, row *goquery.Selection) bool {
		item, err := extractItemRow(row, shippingDate)
		if err != nil {
			failure = fmt.Errorf("item row %d: %w", i, err)
			return false
		}
		items = append(items, item)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return items, nil
}

// the innermost table containing "Items Ordered" (invoice markup
// nests tables several levels deep)
func innermostItemsTable(bundle *goquery.Selection) *goquery.Selection {
	return bundle.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
		if !strings.Contains(t.Text(), "Items Ordered") {
			return false
		}
		inner := t.Find("table").FilterFunction(func(_ int, nested *goquery.Selection) bool {
			return strings.Contains(nested.Text(), "Items Ordered")
		})
		return inner.Length() == 0
	}).First()
}

func extractItemRow(row *goquery.Selection, shippingDate time.Time) (Item, error) {
	cells := row.Find("td")
	if cells.Length() < 2 {
		return Item{}, fmt.Errorf("expected a description and a price cell, got %d", cells.Length())
	}

	first := cells.Eq(0)

	// "2 of: ..." prefix; single items carry no prefix at all
	count := 1
	if groups := itemCountRegex.FindStringSubmatch(first.Text()); groups != nil {
		count, _ = strconv.Atoi(groups[1])
	}

	description := first.Find("i").First()
	if description.Length() == 0 {
		return Item{}, fmt.Errorf("missing italicized description")
	}

	annotation := first.Find("span[class*='tiny']").First()
	if annotation.Length() == 0 {
		return Item{}, fmt.Errorf("missing merchant annotation")
	}
	soldBy, suppliedBy := parseMerchantAnnotation(htmlutil.TextWithBreaks(annotation))

	unitPrice, err := parseUnitPrice(htmlutil.TextOf(cells.Eq(1)))
	if err != nil {
		return Item{}, fmt.Errorf("unit price: %w", err)
	}

	return Item{
		UnitPrice:    unitPrice,
		Count:        count,
		Description:  htmlutil.TextOf(description),
		SoldBy:       soldBy,
		SuppliedBy:   suppliedBy,
		ShippingDate: shippingDate,
	}, nil
}

// the small-print annotation holds "Sold by: X" and sometimes
// "Supplied by: Y" on separate lines; either label can be missing
func parseMerchantAnnotation(text string) (soldBy, suppliedBy string) {
	soldBy = "N/A"
	suppliedBy = "N/A"
	for _, line := range strings.Split(text, "\n") {
		line = htmlutil.CleanText(line)
		if groups := soldByRegex.FindStringSubmatch(line); groups != nil {
			soldBy = strings.TrimSpace(groups[1])
		}
		if groups := suppliedByRegex.FindStringSubmatch(line); groups != nil {
			suppliedBy = strings.TrimSpace(groups[1])
		}
	}
	return soldBy, suppliedBy
}

// extractCardCharges finds the transactions table anchored under the
// "Credit Card transactions" marker. No such table is a legitimate
// state (orders that have not charged the card yet, e.g. Subscribe
// and Save), but a malformed charge row is fatal for the invoice.
func extractCardCharges(doc *goquery.Document) ([]CardCharge, error) {
	anchor := findMarker(doc.Selection, "*", "Credit Card transactions")
	if anchor.Length() == 0 {
		return nil, nil
	}
	section := anchor.ParentsFiltered("tbody").First()
	if section.Length() == 0 {
		return nil, nil
	}
	table := section.Find("tbody").FilterFunction(func(_ int, tb *goquery.Selection) bool {
		return strings.Contains(tb.Text(), "ending in")
	}).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var charges []CardCharge
	var failure error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		charge, err := extractChargeRow(row)
		if err != nil {
			failure = fmt.Errorf("charge row %d: %w", i, err)
			return false
		}
		charges = append(charges, charge)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return charges, nil
}

func extractChargeRow(row *goquery.Selection) (CardCharge, error) {
	text := row.Text()

	amountGroups := chargeAmtRegex.FindStringSubmatch(text)
	if amountGroups == nil {
		return CardCharge{}, fmt.Errorf("no charge amount in %q", htmlutil.CleanText(text))
	}
	amount, err := parseMoney(amountGroups[2])
	if err != nil {
		return CardCharge{}, err
	}
	// credits and refunds show up as negative amounts
	if amountGroups[1] == "-" {
		amount = -amount
	}

	cardGroups := chargeCardRegex.FindStringSubmatch(text)
	if cardGroups == nil {
		return CardCharge{}, fmt.Errorf("no card digits in %q", htmlutil.CleanText(text))
	}

	dateGroups := chargeDateRegex.FindStringSubmatch(text)
	if dateGroups == nil {
		return CardCharge{}, fmt.Errorf("no charge date in %q", htmlutil.CleanText(text))
	}
	date, err := time.Parse(longDateLayout, collapseDateSpaces(dateGroups[1]))
	if err != nil {
		return CardCharge{}, fmt.Errorf("charge date: %w", err)
	}

	return CardCharge{
		CardDigits: cardGroups[1],
		Date:       date,
		Amount:     amount,
	}, nil
}
