package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"

	"github.com/jedib0t/go-pretty/v6/progress"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/orders")

type PipelineConfig struct {
	Range RangeSpec
	// drop orders with no card charges from the results
	ExcludeUncharged bool
	// render progress trackers to stderr while scraping
	ShowProgress bool
}

type Result struct {
	Orders []amazon.Order
	// number of orders dropped by the exclusion rule, which still
	// paid for a full invoice fetch
	Excluded int
}

// Run executes the whole scrape serially against one session: read
// the year's order count, page through the listing, narrow to the
// configured window, then fetch and parse each surviving invoice.
// Any fetch or extraction failure aborts the run; nothing is
// checkpointed.
func Run(ctx context.Context, f amazon.Fetcher, cfg PipelineConfig) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	// reject bad filter arguments before touching the network
	start, end, err := cfg.Range.Window()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid range spec")
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("start", start.Format(time.DateOnly)),
		attribute.String("end", end.Format(time.DateOnly)),
	)

	var pw progress.Writer
	if cfg.ShowProgress {
		pw = progress.NewWriter()
		pw.SetAutoStop(false)
		go pw.Render()
		defer pw.Stop()
	}

	orderCount, err := amazon.LoadOrderCount(ctx, f, cfg.Range.Year)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order count")
		return Result{}, err
	}
	slog.InfoContext(ctx, "loaded order count", "year", cfg.Range.Year, "orders", orderCount)

	collectTracker := &progress.Tracker{
		Message: "Collecting order summaries",
		Total:   int64(orderCount),
		Units:   progress.UnitsDefault,
	}
	if pw != nil {
		pw.AppendTracker(collectTracker)
	}
	summaries, err := amazon.CollectSummaries(ctx, f, cfg.Range.Year, orderCount, func(n int) {
		collectTracker.Increment(int64(n))
	})
	if err != nil {
		collectTracker.MarkAsErrored()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to collect order summaries")
		return Result{}, err
	}
	collectTracker.MarkAsDone()

	filtered := FilterSummaries(summaries, start, end)
	slog.InfoContext(ctx, "filtered order summaries",
		"collected", len(summaries), "kept", len(filtered))

	scrapeTracker := &progress.Tracker{
		Message: "Scraping invoices",
		Total:   int64(len(filtered)),
		Units:   progress.UnitsDefault,
	}
	if pw != nil {
		pw.AppendTracker(scrapeTracker)
	}

	result := Result{}
	for _, summary := range filtered {
		slog.DebugContext(ctx, "scraping invoice",
			"order_number", summary.OrderNumber, "delivered", summary.Delivered)
		order, err := amazon.ScrapeInvoice(ctx, f, summary.InvoiceUrl)
		if err != nil {
			scrapeTracker.MarkAsErrored()
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scrape invoice")
			return Result{}, err
		}
		scrapeTracker.Increment(1)

		if cfg.ExcludeUncharged && ShouldExclude(order) {
			slog.DebugContext(ctx, "excluding order without card charges",
				"order_number", order.OrderNumber)
			result.Excluded++
			continue
		}
		result.Orders = append(result.Orders, order)
	}
	scrapeTracker.MarkAsDone()

	slog.InfoContext(ctx, "scrape complete",
		"orders", len(result.Orders), "excluded", result.Excluded)
	return result, nil
}
