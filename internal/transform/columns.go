package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"feedsync/internal/feed"
	"feedsync/internal/model"
)

// ErrMissingColumn is returned when the feed header lacks a mapped column.
var ErrMissingColumn = errors.New("feed column missing")

type column struct {
	source    string
	canonical string
	set       func(r *model.SourceRow, v string) error
}

// sourceColumns maps the supplier's Dutch headers onto the canonical fields.
var sourceColumns = []column{
	{"Artikelnr", "sku", func(r *model.SourceRow, v string) error { r.SKU = v; return nil }},
	{"Ean", "ean", func(r *model.SourceRow, v string) error { r.EAN = coerceNumber(v); return nil }},
	{"Voorraad", "stock", func(r *model.SourceRow, v string) (err error) { r.Stock, err = parseNumber(v); return }},
	{"Merk", "brand", func(r *model.SourceRow, v string) error { r.Brand = v; return nil }},
	{"Adv.prijs (incl.BTW)", "price_advice", func(r *model.SourceRow, v string) (err error) { r.PriceAdvice, err = parseNumber(v); return }},
	{"Goingprijs (incl.BTW)", "price_going", func(r *model.SourceRow, v string) (err error) { r.PriceGoing, err = parseNumber(v); return }},
	{"Omschrijving", "info", func(r *model.SourceRow, v string) error { r.Info = v; return nil }},
	{"Opmerking", "note", func(r *model.SourceRow, v string) error { r.Note = v; return nil }},
	{"Artikelnaam", "group", func(r *model.SourceRow, v string) error { r.Group = v; return nil }},
	{"Type", "id", func(r *model.SourceRow, v string) error { r.TypeCode = v; return nil }},
	{"Netto (excl.BTW)", "netto", func(r *model.SourceRow, v string) (err error) { r.Netto, err = parseNumber(v); return }},
	{"VWB bedrag", "vwb", func(r *model.SourceRow, v string) (err error) { r.VWB, err = parseNumber(v); return }},
	{"BAT bedrag", "bat", func(r *model.SourceRow, v string) (err error) { r.BAT, err = parseNumber(v); return }},
	{"ATR bedrag", "atr", func(r *model.SourceRow, v string) (err error) { r.ATR, err = parseNumber(v); return }},
}

// missing cell markers the supplier tooling emits; they read as empty
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

func cellValue(v string) string {
	if _, ok := naValues[strings.TrimSpace(v)]; ok {
		return ""
	}
	return v
}

// Project renames the raw table into typed source rows.
func Project(t *feed.Table) ([]model.SourceRow, error) {
	idx := make([]int, len(sourceColumns))
	for i, c := range sourceColumns {
		idx[i] = t.Index(c.source)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c.source)
		}
	}

	rows := make([]model.SourceRow, 0, len(t.Rows))
	for _, rec := range t.Rows {
		row := model.SourceRow{Line: rec.Line}
		for i, c := range sourceColumns {
			if err := c.set(&row, cellValue(rec.Cell(idx[i]))); err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", rec.Line, c.source, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseNumber(v string) (decimal.NullDecimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("not a number: %q", v)
	}
	return decimal.NewNullDecimal(d), nil
}

// coerceNumber turns anything non-numeric into a missing value.
func coerceNumber(v string) decimal.NullDecimal {
	n, err := parseNumber(v)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return n
}
