package amazon

import "time"

// OrderSummary is one entry harvested from the paginated order
// listing. It carries just enough to decide whether the order's
// invoice is worth fetching. Total stays as the page's display text,
// the invoice page is the authoritative source for parsed amounts.
type OrderSummary struct {
	OrderDate   time.Time
	Total       string
	OrderNumber string
	InvoiceUrl  string
	Delivered   bool
}

// Item is a single line item on an invoice. ShippingDate is the
// shared ship date of the bundle the item arrived in, zero when the
// bundle has not shipped yet. SoldBy/SuppliedBy are "N/A" when the
// merchant annotation carries no such label.
type Item struct {
	UnitPrice    float64
	Count        int
	Description  string
	SoldBy       string
	SuppliedBy   string
	ShippingDate time.Time
}

// CardCharge is one row of the invoice's credit card transaction
// table. Amount can be negative for refunds and credits.
type CardCharge struct {
	CardDigits string
	Date       time.Time
	Amount     float64
}

// Order is a fully parsed invoice page. Total and SubTotal generally
// differ by the order's shipping/tax/discount charges; Charges may
// not sum to that difference for orders with partial charge data, so
// Total-SubTotal is what downstream allocation goes by.
type Order struct {
	OrderDate   time.Time
	OrderNumber string
	Total       float64
	SubTotal    float64
	Url         string
	Items       []Item
	Charges     []CardCharge
}
