package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"
)

const (
	GeneralSettingsFile = "general_settings.ini"
	ExportSettingsFile  = "bol_export_files.ini"

	dropboxSection  = "dropbox"
	databaseSection = "database leveranciers"
	discountSection = "stap 1 vaste korting"

	DBModeDaily  = "daily"
	DBModeShared = "shared"
)

type Config struct {
	Supplier        string `validate:"required"`
	WorkDir         string `validate:"required"`
	FTP             FTPConfig
	Database        DatabaseConfig
	DropboxToken    string `validate:"required"`
	DiscountPercent decimal.Decimal
	Feed            FeedConfig
	Export          ExportConfig
	RedisURL        string
	PushgatewayURL  string
	LogLevel        string
	LogFormat       string `validate:"oneof=json text"`
}

type FTPConfig struct {
	Host     string `validate:"required"`
	User     string `validate:"required"`
	Password string `validate:"required"`
	Timeout  time.Duration
}

// DatabaseConfig holds the reporting database settings. Host and User are
// required unless DSN is set or the driver is sqlite, whose Name is a file path.
type DatabaseConfig struct {
	Driver   string `validate:"oneof=mysql postgres pgx sqlite"`
	Host     string
	Port     string
	User     string
	Password string
	Name     string `validate:"required_without=DSN"`
	// DSN overrides the individual fields when set.
	DSN string
}

// FeedConfig describes where the supplier feed lives and how its rows are keyed.
type FeedConfig struct {
	FTPSection   string `validate:"required"`
	RemotePrefix string `validate:"required"`
	SKUPrefix    string `validate:"required"`
}

type ExportConfig struct {
	Vendit      bool
	XLSX        bool
	DBMode      string `validate:"oneof=daily shared"`
	SharedTable string `validate:"required_if=DBMode shared"`
	BatchSize   int    `validate:"gt=0"`
}

// Load reads .env, then the two INI settings files from the settings directory
// (the user's home unless FEEDSYNC_SETTINGS_DIR is set).
func Load(workDir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(workDir, ".env"))

	dir := getEnv("FEEDSYNC_SETTINGS_DIR", "")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: locate home directory: %w", err)
		}
		dir = home
	}

	file, err := ini.LoadSources(
		ini.LoadOptions{Loose: true, InsensitiveKeys: true},
		filepath.Join(dir, GeneralSettingsFile),
		filepath.Join(dir, ExportSettingsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("config: read settings from %s: %w", dir, err)
	}
	return Parse(file, workDir)
}

// Parse builds and validates a Config from already loaded settings.
func Parse(file *ini.File, workDir string) (*Config, error) {
	supplier := strings.ToUpper(getEnv("FEEDSYNC_SUPPLIER", filepath.Base(workDir)))
	key := strings.ToLower(supplier)

	feedSec := file.Section("feed " + key)
	cfg := &Config{
		Supplier: supplier,
		WorkDir:  workDir,
		Feed: FeedConfig{
			FTPSection:   feedSec.Key("ftp_section").MustString("schuurman ftp"),
			RemotePrefix: feedSec.Key("remote_prefix").MustString("KSCE_"),
			SKUPrefix:    feedSec.Key("sku_prefix").MustString(supplier),
		},
		Export: ExportConfig{
			Vendit:      feedSec.Key("vendit").MustBool(false),
			XLSX:        feedSec.Key("xlsx").MustBool(false),
			DBMode:      feedSec.Key("db_mode").MustString(DBModeDaily),
			SharedTable: feedSec.Key("db_table").String(),
			BatchSize:   feedSec.Key("batch_size").MustInt(1000),
		},
		DropboxToken:   getEnv("DROPBOX_ACCESS_TOKEN", file.Section(dropboxSection).Key("api_dropbox").String()),
		RedisURL:       os.Getenv("REDIS_URL"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	ftpSec := file.Section(cfg.Feed.FTPSection)
	cfg.FTP = FTPConfig{
		Host:     ftpSec.Key("server").String(),
		User:     ftpSec.Key("user").String(),
		Password: ftpSec.Key("passwd").String(),
		Timeout:  ftpSec.Key("timeout").MustDuration(30 * time.Second),
	}

	dbSec := file.Section(databaseSection)
	cfg.Database = DatabaseConfig{
		Driver:   dbSec.Key("driver").MustString("mysql"),
		Host:     dbSec.Key("host").String(),
		Port:     dbSec.Key("port").String(),
		User:     dbSec.Key("user").String(),
		Password: dbSec.Key("password").String(),
		Name:     dbSec.Key("database").String(),
		DSN:      dbSec.Key("dsn").String(),
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	raw := file.Section(discountSection).Key(key).String()
	if raw == "" {
		return nil, fmt.Errorf("config: no discount configured for %q in [%s]", key, discountSection)
	}
	pct, err := ParsePercent(raw)
	if err != nil {
		return nil, fmt.Errorf("config: discount for %q: %w", key, err)
	}
	cfg.DiscountPercent = pct

	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateDatabase, DatabaseConfig{})
	return v
}

func validateDatabase(sl validator.StructLevel) {
	d := sl.Current().Interface().(DatabaseConfig)
	if d.DSN != "" || d.Driver == "sqlite" {
		return
	}
	if d.Host == "" {
		sl.ReportError(d.Host, "Host", "Host", "required", "")
	}
	if d.User == "" {
		sl.ReportError(d.User, "User", "User", "required", "")
	}
}

// ParsePercent reads values like "15%" or "12.5".
func ParsePercent(s string) (decimal.Decimal, error) {
	v := strings.Trim(strings.TrimSpace(s), "%")
	if v == "" {
		return decimal.Zero, errors.New("empty percentage")
	}
	return decimal.NewFromString(strings.TrimSpace(v))
}

// ConnString returns the driver specific connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres", "pgx":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   net.JoinHostPort(d.Host, orDefault(d.Port, "5432")),
			Path:   "/" + d.Name,
		}
		return u.String()
	case "sqlite":
		return d.Name
	default:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, orDefault(d.Port, "3306"))
		mc.DBName = d.Name
		mc.ParseTime = true
		return mc.FormatDSN()
	}
}

func orDefault(v, d string) string {
	if v != "" {
		return v
	}
	return d
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
