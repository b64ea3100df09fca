package export

import (
	"strconv"
	"strings"

	"feedsync/internal/model"
)

const venditVATCode = "21"

var VenditColumns = []string{
	"Artikelnummer", "EAN", "Omschrijving", "Merk", "Groep",
	"Inkoopprijs", "Adviesprijs", "Voorraad", "BTW code", "Leverancier",
}

// VenditFileName is fixed per supplier so each run replaces the previous import.
func VenditFileName(supplier string) string {
	return "vendit_" + strings.ToLower(supplier) + ".csv"
}

func WriteVenditCSV(path string, products []model.Product, supplier string) error {
	leverancier := strings.ToLower(supplier)
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.EigenSKU,
			EANText(p.EAN),
			p.Info,
			p.Brand,
			p.Group,
			nullFloatText(p.Price),
			nullFloatText(p.PriceAdvice),
			strconv.FormatInt(p.Stock, 10),
			venditVATCode,
			leverancier,
		})
	}
	return writeCSV(path, VenditColumns, rows)
}
