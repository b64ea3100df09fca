package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/ini.v1"
)

const generalSettings = `
[dropbox]
api_dropbox = ini-token

[database leveranciers]
user = feed
password = secret
host = db.local
port = 3307
database = leveranciers

[schuurman ftp]
server = ftp.example.nl
user = klant
passwd = geheim
`

const exportSettings = `
[stap 1 vaste korting]
alr = 15%
`

func loadINI(t *testing.T, sources ...string) *ini.File {
	t.Helper()
	srcs := make([]interface{}, len(sources))
	for i, s := range sources {
		srcs[i] = []byte(s)
	}
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, srcs[0], srcs[1:]...)
	if err != nil {
		t.Fatalf("load ini: %v", err)
	}
	return f
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"FEEDSYNC_SUPPLIER", "DROPBOX_ACCESS_TOKEN", "REDIS_URL", "PUSHGATEWAY_URL", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse(loadINI(t, generalSettings, exportSettings), "/data/leveranciers/alr")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Supplier != "ALR" {
		t.Fatalf("expected supplier ALR, got %q", cfg.Supplier)
	}
	if got := cfg.DiscountPercent.String(); got != "15" {
		t.Fatalf("expected discount 15, got %s", got)
	}
	if cfg.DropboxToken != "ini-token" {
		t.Fatalf("expected token from ini, got %q", cfg.DropboxToken)
	}
	if cfg.FTP.Host != "ftp.example.nl" || cfg.FTP.User != "klant" || cfg.FTP.Password != "geheim" {
		t.Fatalf("unexpected ftp config: %+v", cfg.FTP)
	}
	if cfg.FTP.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %s", cfg.FTP.Timeout)
	}
	if cfg.Feed.RemotePrefix != "KSCE_" || cfg.Feed.SKUPrefix != "ALR" {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	if cfg.Export.DBMode != DBModeDaily || cfg.Export.BatchSize != 1000 || cfg.Export.Vendit {
		t.Fatalf("unexpected export config: %+v", cfg.Export)
	}
	if cfg.Database.Driver != "mysql" {
		t.Fatalf("expected mysql driver, got %q", cfg.Database.Driver)
	}
	dsn := cfg.Database.ConnString()
	if !strings.HasPrefix(dsn, "feed:secret@tcp(db.local:3307)/leveranciers") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("unexpected mysql dsn %q", dsn)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEEDSYNC_SUPPLIER", "alr")
	t.Setenv("DROPBOX_ACCESS_TOKEN", "env-token")
	cfg, err := Parse(loadINI(t, generalSettings, exportSettings), "/tmp/whatever")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Supplier != "ALR" {
		t.Fatalf("expected supplier from env, got %q", cfg.Supplier)
	}
	if cfg.DropboxToken != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.DropboxToken)
	}
}

func TestParse_FeedSection(t *testing.T) {
	clearEnv(t)
	feed := `
[feed alr]
vendit = true
xlsx = true
db_mode = shared
db_table = leveranciers_voorraad
sku_prefix = XYZ
`
	cfg, err := Parse(loadINI(t, generalSettings, exportSettings, feed), "/srv/alr")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !cfg.Export.Vendit || !cfg.Export.XLSX {
		t.Fatalf("expected vendit and xlsx enabled: %+v", cfg.Export)
	}
	if cfg.Export.DBMode != DBModeShared || cfg.Export.SharedTable != "leveranciers_voorraad" {
		t.Fatalf("unexpected export config: %+v", cfg.Export)
	}
	if cfg.Feed.SKUPrefix != "XYZ" {
		t.Fatalf("expected sku prefix override, got %q", cfg.Feed.SKUPrefix)
	}
}

func TestParse_SharedModeNeedsTable(t *testing.T) {
	clearEnv(t)
	feed := "[feed alr]\ndb_mode = shared\n"
	if _, err := Parse(loadINI(t, generalSettings, exportSettings, feed), "/srv/alr"); err == nil {
		t.Fatalf("expected error for shared mode without db_table")
	}
}

func TestParse_MissingFTPHost(t *testing.T) {
	clearEnv(t)
	general := strings.Replace(generalSettings, "server = ftp.example.nl", "", 1)
	_, err := Parse(loadINI(t, general, exportSettings), "/srv/alr")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "Host") {
		t.Fatalf("expected error to name the Host field, got %v", err)
	}
}

func TestParse_MissingDiscount(t *testing.T) {
	clearEnv(t)
	_, err := Parse(loadINI(t, generalSettings, "[stap 1 vaste korting]\nother = 5%\n"), "/srv/alr")
	if err == nil || !strings.Contains(err.Error(), "no discount") {
		t.Fatalf("expected missing discount error, got %v", err)
	}
}

func TestParsePercent(t *testing.T) {
	cases := map[string]string{"15%": "15", " 7 % ": "7", "12.5": "12.5", "%20%": "20"}
	for in, want := range cases {
		got, err := ParsePercent(in)
		if err != nil {
			t.Fatalf("ParsePercent(%q) error: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("ParsePercent(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParsePercent("%"); err == nil {
		t.Fatalf("expected error for empty percentage")
	}
	if _, err := ParsePercent("abc%"); err == nil {
		t.Fatalf("expected error for non-numeric percentage")
	}
}

func TestConnString(t *testing.T) {
	pg := DatabaseConfig{Driver: "pgx", Host: "pg", User: "u", Password: "p@ss", Name: "rep"}
	if got := pg.ConnString(); got != "postgres://u:p%40ss@pg:5432/rep" {
		t.Fatalf("unexpected postgres dsn %q", got)
	}
	lite := DatabaseConfig{Driver: "sqlite", Name: "feed.db"}
	if got := lite.ConnString(); got != "feed.db" {
		t.Fatalf("unexpected sqlite dsn %q", got)
	}
	override := DatabaseConfig{Driver: "mysql", DSN: "x:y@tcp(h)/d"}
	if got := override.ConnString(); got != "x:y@tcp(h)/d" {
		t.Fatalf("expected DSN override, got %q", got)
	}
}

func TestLoad_ReadsSettingsDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, GeneralSettingsFile), []byte(generalSettings), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ExportSettingsFile), []byte(exportSettings), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FEEDSYNC_SETTINGS_DIR", dir)

	work := filepath.Join(t.TempDir(), "alr")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(work)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Supplier != "ALR" || cfg.Database.Name != "leveranciers" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParse_SQLiteNeedsOnlyAPath(t *testing.T) {
	clearEnv(t)
	general := strings.Replace(generalSettings, `user = feed
password = secret
host = db.local
port = 3307
database = leveranciers`, `driver = sqlite
database = /var/lib/feedsync/report.db`, 1)
	cfg, err := Parse(loadINI(t, general, exportSettings), "/srv/alr")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Database.ConnString() != "/var/lib/feedsync/report.db" {
		t.Fatalf("unexpected sqlite dsn %q", cfg.Database.ConnString())
	}
}

func TestParse_MySQLNeedsHost(t *testing.T) {
	clearEnv(t)
	general := strings.Replace(generalSettings, "host = db.local", "", 1)
	_, err := Parse(loadINI(t, general, exportSettings), "/srv/alr")
	if err == nil || !strings.Contains(err.Error(), "Database.Host") {
		t.Fatalf("expected missing database host error, got %v", err)
	}

	withDSN := general + "\n[database leveranciers]\ndsn = feed:secret@tcp(db.local:3307)/leveranciers\n"
	if _, err := Parse(loadINI(t, withDSN, exportSettings), "/srv/alr"); err != nil {
		t.Fatalf("a dsn must stand in for the host: %v", err)
	}
}
