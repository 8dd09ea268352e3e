package payment

import "github.com/shopspring/decimal"

// Converter turns major-unit display amounts into integer gateway currency
// units using a fixed integer exchange rate.
type Converter struct {
	rate int64
}

func NewConverter(rate int64) Converter { return Converter{rate: rate} }

func (c Converter) Rate() int64 { return c.rate }

// ToLocal returns round(amount * rate), half away from zero.
func (c Converter) ToLocal(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(c.rate)).Round(0).IntPart()
}

// Resolve prefers a cached local amount and only falls back to converting
// amount when nothing was cached. computed reports whether the fallback ran,
// in which case the caller must persist the value.
func (c Converter) Resolve(cached int64, amount float64) (value int64, computed bool) {
	if cached > 0 {
		return cached, false
	}
	return c.ToLocal(amount), true
}
