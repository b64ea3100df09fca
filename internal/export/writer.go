package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV writes a BOM-prefixed, comma separated file with "\n" line ends.
// Fields are only quoted when they contain a separator, quote or newline.
func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	if err := writeRecord(w, header); err != nil {
		return err
	}
	for _, rec := range rows {
		if err := writeRecord(w, rec); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsQuote(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}

// floatText renders a number the way the archive has always shown floats:
// shortest form, with ".0" kept for whole values (18.0, 19.99).
func floatText(d decimal.Decimal) string {
	s := d.String()
	if !strings.ContainsAny(s, ".eE") {
		return s + ".0"
	}
	return s
}

func nullFloatText(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return floatText(d.Decimal)
}

// EANText renders an EAN as plain digits, without a ".0" suffix.
func EANText(d decimal.Decimal) string {
	return strings.TrimSuffix(floatText(d), ".0")
}
