package export

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"feedsync/internal/model"
)

const xlsxSheet = "feed"

func XLSXFileName(supplier string, now time.Time) string {
	return supplier + "_" + RunStamp(now) + ".xlsx"
}

// WriteXLSX writes the basic columns to a single sheet. EANs are stored as
// text so spreadsheet tools do not show them in scientific notation.
func WriteXLSX(path string, products []model.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(BasicColumns))
	for i, c := range BasicColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.SKU,
			EANText(p.EAN),
			p.Brand,
			p.Stock,
			nullFloat(p.Price),
			nullFloat(p.PriceAdvice),
			nullFloat(p.PriceGoing),
			p.Info,
			p.Note,
			p.Group,
			p.TypeCode,
			nullFloat(p.LK),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func nullFloat(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}
