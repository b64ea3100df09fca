package feed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"feedsync/internal/config"
)

func cfgFTP(host string) config.FTPConfig {
	return config.FTPConfig{Host: host, User: "u", Password: "p"}
}

func encode1250(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.Windows1250.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestParse_SkipsBannerAndDecodes(t *testing.T) {
	src := "Schuurman voorraadlijst 01-01-2024\n" +
		"Artikelnr\tEan\tMerk\n" +
		"00123\t8712345678901\tŠkoda\n" +
		"456\tabc\tBosch\n"

	tbl, err := Parse(bytes.NewReader(encode1250(t, src)))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if strings.Join(tbl.Header, "|") != "Artikelnr|Ean|Merk" {
		t.Fatalf("unexpected header %v", tbl.Header)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	first := tbl.Rows[0]
	if first.Cell(0) != "00123" {
		t.Fatalf("leading zeros lost: %q", first.Cell(0))
	}
	if first.Cell(2) != "Škoda" {
		t.Fatalf("cp1250 not decoded: %q", first.Cell(2))
	}
	if first.Line != 3 {
		t.Fatalf("expected line 3, got %d", first.Line)
	}
	if tbl.Index("Merk") != 2 || tbl.Index("Voorraad") != -1 {
		t.Fatalf("unexpected Index results")
	}
}

func TestParse_ShortRows(t *testing.T) {
	src := "banner\nA\tB\tC\n1\n"
	tbl, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := tbl.Rows[0].Cell(2); got != "" {
		t.Fatalf("expected empty cell for short row, got %q", got)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if _, err := Parse(strings.NewReader("banner only\n")); err == nil {
		t.Fatalf("expected error for missing header")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "KSCE_1.csv")
	if err := os.WriteFile(path, encode1250(t, "b\nArtikelnr\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.Rows))
	}
}
