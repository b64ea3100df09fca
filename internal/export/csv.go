package export

import (
	"strconv"
	"strings"
	"time"

	"feedsync/internal/model"
)

var BasicColumns = []string{
	"sku", "ean", "brand", "stock", "price", "price_advice", "price_going",
	"info", "note", "group", "id", "lk",
}

// RunStamp formats the run time for file names, e.g. "Mon Oct 19 14-03-05 2026".
func RunStamp(t time.Time) string {
	return strings.ReplaceAll(t.Format("Mon Jan _2 15:04:05 2006"), ":", "-")
}

// BasicFileName is the archive name of one run's export.
func BasicFileName(supplier string, now time.Time) string {
	return supplier + "_" + RunStamp(now) + ".csv"
}

func basicRecord(p model.Product) []string {
	return []string{
		p.SKU,
		floatText(p.EAN),
		p.Brand,
		strconv.FormatInt(p.Stock, 10),
		nullFloatText(p.Price),
		nullFloatText(p.PriceAdvice),
		nullFloatText(p.PriceGoing),
		p.Info,
		p.Note,
		p.Group,
		p.TypeCode,
		nullFloatText(p.LK),
	}
}

func WriteBasicCSV(path string, products []model.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, basicRecord(p))
	}
	return writeCSV(path, BasicColumns, rows)
}
