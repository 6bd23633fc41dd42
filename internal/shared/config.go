package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kiosk_mapping/internal/domain"
)

const (
	BackendMySQL  = "mysql"
	BackendSheets = "sheets"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreBackend string
	MySQLDSN     string

	SheetsBase  string
	SheetsID    string
	SheetsRange string
	SheetsToken string
	SheetsRPS   int

	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SnapshotTTL time.Duration

	ImportWorkers int
	HeightBins    domain.HeightBins
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric env value")
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		StoreBackend:  strings.ToLower(env("STORE_BACKEND", BackendMySQL)),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/kiosk?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		SheetsBase:    env("SHEETS_BASE_URL", "https://sheets.googleapis.com"),
		SheetsID:      env("SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:   env("SHEETS_RANGE", "Sheet1"),
		SheetsToken:   env("SHEETS_TOKEN", ""),
		SheetsRPS:     atoi("SHEETS_RPS", 5),
		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		SnapshotTTL:   time.Duration(atoi("SNAPSHOT_TTL_SECONDS", 30)) * time.Second,
		ImportWorkers: atoi("IMPORT_WORKERS", 4),
		HeightBins: domain.HeightBins{
			Min:   atof("HEIGHT_BIN_MIN", domain.DefaultHeightBins.Min),
			Max:   atof("HEIGHT_BIN_MAX", domain.DefaultHeightBins.Max),
			Width: atof("HEIGHT_BIN_WIDTH", domain.DefaultHeightBins.Width),
		},
	}
	if c.HeightBins.Width <= 0 || c.HeightBins.Max <= c.HeightBins.Min {
		log.Warn().Interface("bins", c.HeightBins).Msg("invalid height bins; using defaults")
		c.HeightBins = domain.DefaultHeightBins
	}
	if c.ImportWorkers < 1 {
		c.ImportWorkers = 1
	}
	if c.StoreBackend == BackendSheets && c.SheetsToken == "" {
		log.Warn().Msg("SHEETS_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
