package orders

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"
)

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func createExportFile(path string) (*os.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(filepath.Dir(abs), 0755)
	if err != nil {
		return nil, err
	}
	return os.Create(abs)
}

var itemCsvHeader = []string{
	"order_date", "order_number", "charges_allocated", "accounted_cost",
	"unit_price", "count", "description",
	"sold_by", "supplied_by", "shipping_date",
}

// WriteItemsCsv exports every item of every order, flattened with
// its order context and allocated charges.
func WriteItemsCsv(path string, ordersList []amazon.Order) error {
	items := FlattenAll(ordersList)

	file, err := createExportFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	err = writer.Write(itemCsvHeader)
	if err != nil {
		return err
	}
	for _, item := range items {
		err = writer.Write([]string{
			formatDate(item.OrderDate),
			item.OrderNumber,
			formatMoney(item.ChargesAllocated),
			formatMoney(item.AccountedCost),
			formatMoney(item.UnitPrice),
			strconv.Itoa(item.Count),
			item.Description,
			item.SoldBy,
			item.SuppliedBy,
			formatDate(item.ShippingDate),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	slog.Info("exported items", "count", len(items), "path", path)
	return nil
}

var orderCsvHeader = []string{
	"order_date", "order_number", "total", "sub_total",
	"item_count", "charge_count",
}

// WriteOrdersCsv exports one row per order without its line-item
// detail.
func WriteOrdersCsv(path string, ordersList []amazon.Order) error {
	file, err := createExportFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	err = writer.Write(orderCsvHeader)
	if err != nil {
		return err
	}
	for _, order := range ordersList {
		err = writer.Write([]string{
			formatDate(order.OrderDate),
			order.OrderNumber,
			formatMoney(order.Total),
			formatMoney(order.SubTotal),
			strconv.Itoa(len(order.Items)),
			strconv.Itoa(len(order.Charges)),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	slog.Info("exported orders", "count", len(ordersList), "path", path)
	return nil
}
