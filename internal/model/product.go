package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// SourceRow is one feed line after the column rename, before filtering and pricing.
type SourceRow struct {
	Line        int // line number in the downloaded file, for error messages
	SKU         string
	EAN         decimal.NullDecimal // invalid when the cell is not numeric
	Brand       string
	Stock       decimal.NullDecimal
	PriceAdvice decimal.NullDecimal
	PriceGoing  decimal.NullDecimal
	Info        string
	Note        string
	Group       string
	TypeCode    string

	// fee columns summed into the purchase price; invalid when the cell is empty
	Netto decimal.NullDecimal
	VWB   decimal.NullDecimal
	BAT   decimal.NullDecimal
	ATR   decimal.NullDecimal
}

// Product is a canonical, priced feed row.
type Product struct {
	SKU         string
	EAN         decimal.Decimal
	Brand       string
	Stock       int64
	Price       decimal.NullDecimal // after discount; invalid when no fee is present
	PriceAdvice decimal.NullDecimal
	PriceGoing  decimal.NullDecimal
	Info        string
	Note        string
	Group       string
	TypeCode    string
	LK          decimal.NullDecimal // discount amount
	EigenSKU    string
}

// ReportRow is the projection written to the reporting database.
type ReportRow struct {
	EigenSKU          string
	SKU               string
	EAN               float64
	Voorraad          int64
	Merk              string
	Prijs             sql.NullFloat64
	AdviesPrijs       string
	Category          string
	Gewicht           string
	URLPlaatje        string
	URLArtikel        string
	ProductTitle      string
	LangeOmschrijving string
	VerpakingsEenheid string
	LK                sql.NullFloat64
}

// ToReportRow maps a product onto the reporting schema. The placeholder columns
// stay empty; reporting fills them from other sources.
func (p Product) ToReportRow() ReportRow {
	return ReportRow{
		EigenSKU:     p.EigenSKU,
		SKU:          p.SKU,
		EAN:          p.EAN.InexactFloat64(),
		Voorraad:     p.Stock,
		Merk:         p.Brand,
		Prijs:        nullFloat(p.Price),
		Category:     p.Group,
		ProductTitle: p.Info,
		LK:           nullFloat(p.LK),
	}
}

func nullFloat(d decimal.NullDecimal) sql.NullFloat64 {
	if !d.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: d.Decimal.InexactFloat64(), Valid: true}
}
