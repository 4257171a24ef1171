package orders

import (
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"
)

// FlattenedItem is one invoice line item lifted out of its order,
// annotated with the order context and its pro-rata share of the
// order-level charges. Built once by Flatten and never mutated.
type FlattenedItem struct {
	amazon.Item

	OrderDate   time.Time
	OrderNumber string
	// this item's slice of the order's shipping/tax/discounts
	ChargesAllocated float64
	// ChargesAllocated plus the item's own cost
	AccountedCost float64
}

// ShouldExclude reports whether an order should be dropped from the
// result set. Orders with no card charges cannot be matched against
// a card statement (typically orders that have not charged yet), so
// they are of no use to reconciliation. Only meaningful after full
// invoice extraction, charges are unknown before that.
func ShouldExclude(order amazon.Order) bool {
	return len(order.Charges) == 0
}

// Flatten distributes the order-level charges across the order's
// items pro-rata by each item's share of the subtotal and returns
// the items in order. The charges figure is Total-SubTotal, not the
// sum of the charge rows; the two can disagree on orders with odd
// charge data and the difference is authoritative. Per-item rounding
// is not corrected afterwards, so the accounted costs only sum to
// the order total up to floating-point error.
func Flatten(order amazon.Order) []FlattenedItem {
	chargesToAllocate := order.Total - order.SubTotal

	flattened := make([]FlattenedItem, 0, len(order.Items))
	for _, item := range order.Items {
		itemCost := float64(item.Count) * item.UnitPrice
		ratio := 0.0
		if order.SubTotal > 0 {
			ratio = itemCost / order.SubTotal
		}
		chargesAllocated := ratio * chargesToAllocate

		flattened = append(flattened, FlattenedItem{
			Item:             item,
			OrderDate:        order.OrderDate,
			OrderNumber:      order.OrderNumber,
			ChargesAllocated: chargesAllocated,
			AccountedCost:    chargesAllocated + itemCost,
		})
	}
	return flattened
}

// FlattenAll flattens every order's items into one sequence,
// preserving order-then-item order.
func FlattenAll(orders []amazon.Order) []FlattenedItem {
	var all []FlattenedItem
	for _, order := range orders {
		all = append(all, Flatten(order)...)
	}
	return all
}
