package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const DefaultDatabaseURL = "sqlite:mealsched.db"

type Config struct {
	ListenAddr  string
	DatabaseURL string

	CookieHashKey  []byte // base64
	CookieBlockKey []byte // base64

	CredEncKey []byte // 32 bytes for AES-256-GCM, base64

	MeicanBaseURL        string
	MeicanGlobalPassword string
	MeicanAddressID      string
	HTTPTimeout          time.Duration

	OrderKeyword   string
	HorizonDays    int
	Timezone       string
	DailyRunAt     time.Duration // offset from midnight
	RunConcurrency int
	FetchRetries   int

	LogLevel  string
	LogFormat string
}

// fileConfig is the YAML overlay. Keys are the env names in lower case.
type fileConfig struct {
	ListenAddr           string `yaml:"listen_addr"`
	DatabaseURL          string `yaml:"database_url"`
	CookieHashKey        string `yaml:"cookie_hash_key"`
	CookieBlockKey       string `yaml:"cookie_block_key"`
	CredEncKey           string `yaml:"cred_enc_key"`
	MeicanBaseURL        string `yaml:"meican_base_url"`
	MeicanGlobalPassword string `yaml:"meican_global_password"`
	MeicanAddressID      string `yaml:"meican_address_id"`
	OrderKeyword         string `yaml:"order_keyword"`
	HorizonDays          string `yaml:"horizon_days"`
	Timezone             string `yaml:"timezone"`
	DailyRunAt           string `yaml:"daily_run_at"`
	RunConcurrency       string `yaml:"run_concurrency"`
	FetchRetries         string `yaml:"fetch_retries"`
	HTTPTimeoutSeconds   string `yaml:"http_timeout_seconds"`
	LogLevel             string `yaml:"log_level"`
	LogFormat            string `yaml:"log_format"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		"LISTEN_ADDR":            f.ListenAddr,
		"DATABASE_URL":           f.DatabaseURL,
		"COOKIE_HASH_KEY":        f.CookieHashKey,
		"COOKIE_BLOCK_KEY":       f.CookieBlockKey,
		"CRED_ENC_KEY":           f.CredEncKey,
		"MEICAN_BASE_URL":        f.MeicanBaseURL,
		"MEICAN_GLOBAL_PASSWORD": f.MeicanGlobalPassword,
		"MEICAN_ADDRESS_ID":      f.MeicanAddressID,
		"ORDER_KEYWORD":          f.OrderKeyword,
		"HORIZON_DAYS":           f.HorizonDays,
		"TIMEZONE":               f.Timezone,
		"DAILY_RUN_AT":           f.DailyRunAt,
		"RUN_CONCURRENCY":        f.RunConcurrency,
		"FETCH_RETRIES":          f.FetchRetries,
		"HTTP_TIMEOUT_SECONDS":   f.HTTPTimeoutSeconds,
		"LOG_LEVEL":              f.LogLevel,
		"LOG_FORMAT":             f.LogFormat,
	}
}

// FromEnv loads the configuration from the environment, overlaid on the
// YAML file named by CONFIG_FILE when set.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load reads the YAML file at path (if any), then applies environment
// variables on top. Environment always wins.
func Load(path string) (Config, error) {
	src := source{file: map[string]string{}}
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		src.file = fc.values()
	}
	return src.build()
}

type source struct {
	file map[string]string
}

func (s source) get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.file[k]); v != "" {
		return v
	}
	return def
}

func (s source) build() (Config, error) {
	cfg := Config{
		ListenAddr:           s.get("LISTEN_ADDR", ":8080"),
		DatabaseURL:          s.get("DATABASE_URL", DefaultDatabaseURL),
		MeicanBaseURL:        s.get("MEICAN_BASE_URL", "https://meican.com"),
		MeicanGlobalPassword: s.get("MEICAN_GLOBAL_PASSWORD", ""),
		MeicanAddressID:      s.get("MEICAN_ADDRESS_ID", ""),
		OrderKeyword:         s.get("ORDER_KEYWORD", "自助"),
		Timezone:             s.get("TIMEZONE", "Asia/Shanghai"),
		LogLevel:             strings.ToLower(s.get("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(s.get("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.HorizonDays, err = s.intVal("HORIZON_DAYS", 7, 0); err != nil {
		return cfg, err
	}
	if cfg.RunConcurrency, err = s.intVal("RUN_CONCURRENCY", 4, 1); err != nil {
		return cfg, err
	}
	if cfg.FetchRetries, err = s.intVal("FETCH_RETRIES", 3, 1); err != nil {
		return cfg, err
	}
	timeout, err := s.intVal("HTTP_TIMEOUT_SECONDS", 20, 1)
	if err != nil {
		return cfg, err
	}
	cfg.HTTPTimeout = time.Duration(timeout) * time.Second

	if cfg.DailyRunAt, err = ParseClock(s.get("DAILY_RUN_AT", "09:00")); err != nil {
		return cfg, fmt.Errorf("DAILY_RUN_AT: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return cfg, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.CookieHashKey, err = s.b64("COOKIE_HASH_KEY"); err != nil {
		return cfg, err
	}
	if cfg.CookieBlockKey, err = s.b64("COOKIE_BLOCK_KEY"); err != nil {
		return cfg, err
	}
	if cfg.CredEncKey, err = s.b64("CRED_ENC_KEY"); err != nil {
		return cfg, err
	}
	if cfg.CredEncKey != nil && len(cfg.CredEncKey) != 32 {
		return cfg, fmt.Errorf("CRED_ENC_KEY must decode to 32 bytes (got %d)", len(cfg.CredEncKey))
	}
	return cfg, nil
}

// RequireSessionKeys checks the keys the web server needs. Other commands
// run without them.
func (c Config) RequireSessionKeys() error {
	if len(c.CookieHashKey) == 0 || len(c.CookieBlockKey) == 0 {
		return fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (base64; run `mealsched keys`)")
	}
	switch len(c.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(c.CookieBlockKey))
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ParseClock reads "HH:MM" as an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (s source) intVal(k string, def, floor int) (int, error) {
	raw := s.get(k, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < floor {
		return 0, fmt.Errorf("invalid %s %q (want integer >= %d)", k, raw, floor)
	}
	return n, nil
}

// b64 accepts padded or raw standard base64. Empty means unset.
func (s source) b64(k string) ([]byte, error) {
	v := s.get(k, "")
	if v == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
