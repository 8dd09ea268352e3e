package ledger

import (
	"github.com/shopspring/decimal"

	"medishop/config"
	"medishop/models"
)

// Totals is the money breakdown of an order in major units.
type Totals struct {
	Subtotal    float64
	ShippingFee float64
	Tax         float64
	Total       float64
}

func lineSubtotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// ComputeTotals prices a set of order lines. Shipping is a flat fee charged
// only for a non-empty order; tax is a fixed share of the subtotal.
func ComputeTotals(items []models.OrderItem, p config.Pricing) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(lineSubtotal(it.Price, it.Quantity))
	}
	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = decimal.NewFromFloat(p.ShippingFlatRate)
	}
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)
	return Totals{
		Subtotal:    subtotal.Round(2).InexactFloat64(),
		ShippingFee: shipping.Round(2).InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		Total:       total.InexactFloat64(),
	}
}
