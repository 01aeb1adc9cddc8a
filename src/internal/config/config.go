package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=yosoku_ledger;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultChannelID = "YosokuApp"
const defaultChannelKey = "YosokuKey001"
const defaultPricingTolerance = 1e-6

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend          string
	DatabaseDSN      string
	MigrationsDir    string
	HTTPAddr         string
	ChannelID        string
	ChannelKey       string
	ChannelKeyHash   string
	LedgerIndexed    bool
	PricingTolerance float64
}

func Load() (Config, error) {
	backend := strings.ToLower(envOrDefault("LEDGER_BACKEND", BackendMemory))
	if backend != BackendMemory && backend != BackendPostgres {
		return Config{}, fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, backend)
	}

	indexed, err := strconv.ParseBool(envOrDefault("LEDGER_INDEXED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("LEDGER_INDEXED: %w", err)
	}

	tolerance, err := strconv.ParseFloat(envOrDefault("PRICING_TOLERANCE", strconv.FormatFloat(defaultPricingTolerance, 'g', -1, 64)), 64)
	if err != nil {
		return Config{}, fmt.Errorf("PRICING_TOLERANCE: %w", err)
	}
	if tolerance <= 0 {
		return Config{}, fmt.Errorf("PRICING_TOLERANCE must be positive, got %v", tolerance)
	}

	return Config{
		Backend:          backend,
		DatabaseDSN:      normalizeConnectionString(envOrDefault("DATABASE_DSN", defaultConnectionString)),
		MigrationsDir:    envOrDefault("MIGRATIONS_DIR", filepath.Join("src", "migrations")),
		HTTPAddr:         envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		ChannelID:        envOrDefault("CHANNEL_ID", defaultChannelID),
		ChannelKey:       envOrDefault("CHANNEL_KEY", defaultChannelKey),
		ChannelKeyHash:   strings.TrimSpace(os.Getenv("CHANNEL_KEY_HASH")),
		LedgerIndexed:    indexed,
		PricingTolerance: tolerance,
	}, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// normalizeConnectionString turns an ADO-style "Key=Value;" string into the
// libpq keyword form. postgres:// URLs are already understood by lib/pq.
func normalizeConnectionString(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
