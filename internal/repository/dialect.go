package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"feedsync/internal/model"
)

type columnKind int

const (
	kindKey columnKind = iota
	kindText
	kindFloat
	kindInt
	kindTimestamp
)

type reportColumn struct {
	name string
	kind columnKind
}

var reportColumns = []reportColumn{
	{"eigen_sku", kindKey},
	{"sku", kindText},
	{"ean", kindFloat},
	{"voorraad", kindInt},
	{"merk", kindText},
	{"prijs", kindFloat},
	{"advies_prijs", kindText},
	{"category", kindText},
	{"gewicht", kindText},
	{"url_plaatje", kindText},
	{"url_artikel", kindText},
	{"product_title", kindText},
	{"lange_omschrijving", kindText},
	{"verpakings_eenheid", kindText},
	{"lk", kindFloat},
}

var importDateColumn = reportColumn{"import_date", kindTimestamp}

func reportValues(r model.ReportRow) []any {
	return []any{
		r.EigenSKU, r.SKU, r.EAN, r.Voorraad, r.Merk, nullable(r.Prijs), r.AdviesPrijs, r.Category,
		r.Gewicht, r.URLPlaatje, r.URLArtikel, r.ProductTitle, r.LangeOmschrijving,
		r.VerpakingsEenheid, nullable(r.LK),
	}
}

// nullable unwraps f so COPY and database/sql both see a plain float or NULL.
func nullable(f sql.NullFloat64) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

type Dialect struct {
	Name        string
	types       map[columnKind]string
	quote       func(string) string
	placeholder func(n int) string
	// sumType casts aggregates whose SUM type the driver cannot scan into a float
	sumType string
}

func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return Dialect{
			Name: "mysql",
			types: map[columnKind]string{
				kindKey: "VARCHAR(64)", kindText: "TEXT", kindFloat: "DOUBLE",
				kindInt: "BIGINT", kindTimestamp: "DATETIME",
			},
			quote:       func(s string) string { return "`" + s + "`" },
			placeholder: func(int) string { return "?" },
		}, nil
	case "postgres", "pgx":
		return Dialect{
			Name: "postgres",
			types: map[columnKind]string{
				kindKey: "VARCHAR(64)", kindText: "TEXT", kindFloat: "DOUBLE PRECISION",
				kindInt: "BIGINT", kindTimestamp: "TIMESTAMP",
			},
			quote:       func(s string) string { return `"` + s + `"` },
			placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
			sumType:     "DOUBLE PRECISION",
		}, nil
	case "sqlite":
		return Dialect{
			Name: "sqlite",
			types: map[columnKind]string{
				kindKey: "VARCHAR(64)", kindText: "TEXT", kindFloat: "REAL",
				kindInt: "BIGINT", kindTimestamp: "DATETIME",
			},
			quote:       func(s string) string { return `"` + s + `"` },
			placeholder: func(int) string { return "?" },
		}, nil
	}
	return Dialect{}, fmt.Errorf("no sql dialect for driver %q", driver)
}

// createTable builds the DDL for a report table. withKey makes eigen_sku the primary key.
func (d Dialect) createTable(table string, cols []reportColumn, withKey, ifNotExists bool) string {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, d.quote(c.name)+" "+d.types[c.kind])
	}
	if withKey {
		defs = append(defs, "PRIMARY KEY ("+d.quote("eigen_sku")+")")
	}
	stmt := "CREATE TABLE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	return stmt + d.quote(table) + " (" + strings.Join(defs, ", ") + ")"
}

// insertRows builds a multi-row INSERT for n rows.
func (d Dialect) insertRows(table string, cols []reportColumn, n int) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.quote(c.name)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO " + d.quote(table) + " (" + strings.Join(names, ", ") + ") VALUES ")
	arg := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.placeholder(arg))
			arg++
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (d Dialect) summarize(table string) string {
	return fmt.Sprintf("SELECT COUNT(*), %s, %s FROM %s", d.sum("voorraad"), d.sum("prijs"), d.quote(table))
}

// sum totals a column, reading 0 for an empty table. SUM(bigint) is numeric in
// PostgreSQL, hence the cast there.
func (d Dialect) sum(col string) string {
	s := "COALESCE(SUM(" + d.quote(col) + "), 0)"
	if d.sumType != "" {
		s = "CAST(" + s + " AS " + d.sumType + ")"
	}
	return s
}

func (d Dialect) createImportLog() string {
	return "CREATE TABLE IF NOT EXISTS " + d.quote(ImportLogTable) + " (" +
		d.quote("aantal_items") + " BIGINT, " +
		d.quote("totaal_stock") + " BIGINT, " +
		d.quote("totaal_prijs") + " BIGINT, " +
		d.quote("leverancier") + " VARCHAR(64), " +
		d.quote("datum") + " TIMESTAMP DEFAULT CURRENT_TIMESTAMP)"
}

func (d Dialect) insertImportLog() string {
	return "INSERT INTO " + d.quote(ImportLogTable) + " (" +
		d.quote("aantal_items") + ", " + d.quote("totaal_stock") + ", " +
		d.quote("totaal_prijs") + ", " + d.quote("leverancier") + ") VALUES (" +
		d.placeholder(1) + ", " + d.placeholder(2) + ", " + d.placeholder(3) + ", " + d.placeholder(4) + ")"
}
