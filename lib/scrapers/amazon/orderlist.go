package amazon

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/Achierius/amazon-transaction-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// raised by the paginator when a listing page comes back with no
// order containers before the reported count is reached. treated as
// fatal rather than retried, it would otherwise loop forever.
var ErrNoSummaries = fmt.Errorf("listing page contained no order summaries")

var orderCountRegex = regexp.MustCompile(`(\d+)\s*orders`)

const orderContainerSelector = `div[class*='order-header']`

func orderListPath(year string, startIndex int) string {
	return fmt.Sprintf("/your-orders/orders?timeFilter=year-%s&startIndex=%d", year, startIndex)
}

// reads the "N orders" indicator from the first listing page of the
// year. this count is the convergence target for pagination.
func LoadOrderCount(ctx context.Context, f Fetcher, year string) (int, error) {
	ctx, span := tracer.Start(ctx, "LoadOrderCount")
	defer span.End()

	doc, err := f.WaitForSelector(ctx, orderListPath(year, 0), "span.num-orders")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order count indicator never appeared")
		return 0, err
	}

	text := htmlutil.TextOf(doc.Find("span.num-orders").First())
	groups := orderCountRegex.FindStringSubmatch(text)
	if groups == nil {
		err := fmt.Errorf("order count indicator %q did not match", text)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	count, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("order_count", count))
	return count, nil
}

// ExtractSummaries turns one listing document into its order
// summaries. Every container must yield a complete summary, a
// missing required element fails the whole call.
func ExtractSummaries(doc *goquery.Document) ([]OrderSummary, error) {
	var summaries []OrderSummary
	var failure error

	doc.Find(orderContainerSelector).EachWithBreak(func(i int, container *goquery.Selection) bool {
		summary, err := extractSummary(container)
		if err != nil {
			failure = fmt.Errorf("order container %d: %w", i, err)
			return false
		}
		summaries = append(summaries, summary)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return summaries, nil
}

func extractSummary(container *goquery.Selection) (OrderSummary, error) {
	dateText, ok := markerBlockValue(container, "Order placed", ",")
	if !ok {
		return OrderSummary{}, fmt.Errorf("missing 'Order placed' date block")
	}
	orderDate, err := parseLongDate(dateText)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("order date: %w", err)
	}

	total, ok := markerBlockValue(container, "Total", "$")
	if !ok {
		return OrderSummary{}, fmt.Errorf("missing 'Total' block")
	}

	orderNumber, ok := markerBlockValue(container, "Total", "-")
	if !ok {
		return OrderSummary{}, fmt.Errorf("missing order number")
	}

	invoiceLink := findMarker(container, "a", "View invoice")
	invoiceUrl, ok := invoiceLink.Attr("href")
	if !ok {
		return OrderSummary{}, fmt.Errorf("missing 'View invoice' link")
	}

	delivered := findMarker(container, "span", "Delivered").Length() > 0

	return OrderSummary{
		OrderDate:   orderDate,
		Total:       total,
		OrderNumber: orderNumber,
		InvoiceUrl:  invoiceUrl,
		Delivered:   delivered,
	}, nil
}

// CollectSummaries pages through the year's listing until it has
// accumulated orderCount summaries. The offset of each request is
// the number of summaries collected so far, pages are allowed to
// return fewer entries than the nominal page size. onPage, when
// non-nil, is invoked with the size of each scraped page.
func CollectSummaries(ctx context.Context, f Fetcher, year string, orderCount int, onPage func(n int)) ([]OrderSummary, error) {
	ctx, span := tracer.Start(ctx, "CollectSummaries")
	defer span.End()

	var all []OrderSummary
	for len(all) < orderCount {
		link := orderListPath(year, len(all))
		doc, err := f.WaitForSelector(ctx, link, orderContainerSelector)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page fetch failed")
			return nil, err
		}

		summaries, err := ExtractSummaries(doc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page extraction failed")
			return nil, err
		}
		if len(summaries) == 0 {
			err := fmt.Errorf("%w: collected %d of %d at %s", ErrNoSummaries, len(all), orderCount, link)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		slog.DebugContext(ctx, "scraped listing page",
			"url", link, "page_size", len(summaries), "collected", len(all)+len(summaries))
		all = append(all, summaries...)
		if onPage != nil {
			onPage(len(summaries))
		}
	}
	return all, nil
}
