package orders

import (
	"os"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// PrintResults renders the scraped orders and their allocated items
// to stdout.
func PrintResults(ordersList []amazon.Order) {
	ordersTable := newTable()
	ordersTable.AppendHeader(table.Row{
		"Order Date", "Order #", "Total", "Sub-Total", "Items", "Charges",
	})
	for _, order := range ordersList {
		ordersTable.AppendRow(table.Row{
			formatDate(order.OrderDate),
			order.OrderNumber,
			formatMoney(order.Total),
			formatMoney(order.SubTotal),
			len(order.Items),
			len(order.Charges),
		})
	}
	ordersTable.Render()

	itemsTable := newTable()
	itemsTable.AppendHeader(table.Row{
		"Order Date", "Order #", "Description", "Count", "Unit Price",
		"Allocated", "Accounted Cost", "Sold By", "Shipped",
	})
	for _, item := range FlattenAll(ordersList) {
		shipped := item.ShippingDate
		shippedText := "not yet"
		if !shipped.IsZero() {
			shippedText = formatDate(shipped)
		}
		itemsTable.AppendRow(table.Row{
			formatDate(item.OrderDate),
			item.OrderNumber,
			item.Description,
			item.Count,
			formatMoney(item.UnitPrice),
			formatMoney(item.ChargesAllocated),
			formatMoney(item.AccountedCost),
			item.SoldBy,
			shippedText,
		})
	}
	itemsTable.Render()
}
