package transform

import (
	"github.com/shopspring/decimal"

	"feedsync/internal/feed"
	"feedsync/internal/model"
)

var hundred = decimal.NewFromInt(100)

type Options struct {
	DiscountPercent decimal.Decimal
	SKUPrefix       string
}

type Stats struct {
	Read         int
	Kept         int
	DroppedStock int
	DroppedEAN   int
}

// Run projects, filters and prices a parsed feed.
func Run(t *feed.Table, opts Options) ([]model.Product, Stats, error) {
	rows, err := Project(t)
	if err != nil {
		return nil, Stats{}, err
	}
	kept, stats := Filter(rows)
	return ApplyPricing(kept, opts), stats, nil
}

// Filter keeps rows with positive stock and a numeric EAN.
func Filter(rows []model.SourceRow) ([]model.SourceRow, Stats) {
	stats := Stats{Read: len(rows)}
	kept := make([]model.SourceRow, 0, len(rows))
	for _, r := range rows {
		// stock is written as a whole number, so 0.5 counts as out of stock
		if !r.Stock.Valid || r.Stock.Decimal.IntPart() <= 0 {
			stats.DroppedStock++
			continue
		}
		if !r.EAN.Valid {
			stats.DroppedEAN++
			continue
		}
		kept = append(kept, r)
	}
	stats.Kept = len(kept)
	return kept, stats
}

func ApplyPricing(rows []model.SourceRow, opts Options) []model.Product {
	out := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		price, lk := Price(r, opts.DiscountPercent)
		out = append(out, model.Product{
			SKU:         r.SKU,
			EAN:         r.EAN.Decimal,
			Brand:       r.Brand,
			Stock:       r.Stock.Decimal.IntPart(),
			Price:       price,
			PriceAdvice: r.PriceAdvice,
			PriceGoing:  r.PriceGoing,
			Info:        r.Info,
			Note:        r.Note,
			Group:       r.Group,
			TypeCode:    r.TypeCode,
			LK:          lk,
			EigenSKU:    opts.SKUPrefix + r.SKU,
		})
	}
	return out
}

// Price returns the discounted price and the discount amount. The fee sum and
// the discount are each rounded to cents before the subtraction, and the
// result is rounded again. Empty fees count as zero, but a row without any fee
// has no price at all.
func Price(r model.SourceRow, discountPercent decimal.Decimal) (price, lk decimal.NullDecimal) {
	var gross decimal.Decimal
	present := false
	for _, fee := range []decimal.NullDecimal{r.Netto, r.VWB, r.BAT, r.ATR} {
		if fee.Valid {
			gross = gross.Add(fee.Decimal)
			present = true
		}
	}
	if !present {
		return decimal.NullDecimal{}, decimal.NullDecimal{}
	}
	gross = gross.Round(2)
	discount := discountPercent.Mul(gross).Div(hundred).Round(2)
	return decimal.NewNullDecimal(gross.Sub(discount).Round(2)), decimal.NewNullDecimal(discount)
}
