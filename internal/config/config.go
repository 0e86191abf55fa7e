package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// WebhookPlaceholder is the unset WEBHOOK_URL value shipped in deploy templates.
const WebhookPlaceholder = "YOUR_RENDER_WEBHOOK_URL_HERE"

const (
	defaultAstroAPIURL = "https://json.freeastrologyapi.com/complete-panchang"
	defaultPort        = "8443"
)

var (
	ErrMissingBotToken = errors.New("TELEGRAM_BOT_TOKEN required (set env, .env or config/secrets.yaml telegram_bot_token)")
	ErrMissingAPIKey   = errors.New("ASTRO_API_KEY required (set env, .env or config/secrets.yaml astro_api_key)")
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string

	TelegramBotToken   string
	TelegramAPITimeout time.Duration
	WebhookURL         string
	WebhookSecret      string

	AstroAPIKey     string
	AstroAPIURL     string
	AstroAPITimeout time.Duration

	Location LocationConfig

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	DedupeSize     int
	DedupeTTL      time.Duration

	ShutdownTimeout time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
}

// LocationConfig is the fixed observation point.
type LocationConfig struct {
	Name           string
	Latitude       float64
	Longitude      float64
	TimezoneName   string
	TimezoneOffset float64 // hours east of UTC
	ZoneLabel      string
}

// WebhookConfigured reports whether WEBHOOK_URL holds a real URL.
func (c *Config) WebhookConfigured() bool {
	return c.WebhookURL != "" && c.WebhookURL != WebhookPlaceholder
}

// WebhookEndpoint is the URL registered with setWebhook.
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.WebhookURL, "/") + "/webhook/" + c.TelegramBotToken
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Telegram struct {
		Timeout    string `yaml:"timeout"`
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"telegram"`

	AstroAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"astro_api"`

	Location struct {
		Name           string   `yaml:"name"`
		Latitude       *float64 `yaml:"latitude"`
		Longitude      *float64 `yaml:"longitude"`
		Timezone       string   `yaml:"timezone"`
		TimezoneOffset *float64 `yaml:"timezone_offset"`
		ZoneLabel      string   `yaml:"zone_label"`
	} `yaml:"location"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
		DedupeSize     int    `yaml:"dedupe_size"`
		DedupeTTL      string `yaml:"dedupe_ttl"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Health struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

type secretsFile struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	AstroAPIKey      string `yaml:"astro_api_key"`
	WebhookSecret    string `yaml:"webhook_secret"`
}

// Load reads configuration. Sources, lowest precedence first: built-in defaults,
// config/{ENV_NAME}.yaml (default dev, optional), config/secrets.yaml (optional),
// process env. A .env file in the working directory is loaded into the env first
// without overriding variables already set. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	var fc fileConfig
	if err := readYAML(filepath.Join(cwd, "config", env+".yaml"), &fc); err != nil {
		return nil, err
	}
	var sec secretsFile
	if err := readYAML(filepath.Join(cwd, "config", "secrets.yaml"), &sec); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, defaultPort)

	cfg.TelegramBotToken = firstNonEmpty(os.Getenv("TELEGRAM_BOT_TOKEN"), sec.TelegramBotToken)
	if cfg.TelegramBotToken == "" {
		return nil, ErrMissingBotToken
	}
	cfg.TelegramAPITimeout = parseDuration(fc.Telegram.Timeout, 10*time.Second)
	cfg.WebhookURL = firstNonEmpty(os.Getenv("WEBHOOK_URL"), fc.Telegram.WebhookURL, WebhookPlaceholder)
	cfg.WebhookSecret = firstNonEmpty(os.Getenv("TELEGRAM_WEBHOOK_SECRET"), sec.WebhookSecret)

	cfg.AstroAPIKey = firstNonEmpty(os.Getenv("ASTRO_API_KEY"), sec.AstroAPIKey)
	if cfg.AstroAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.AstroAPIURL = firstNonEmpty(os.Getenv("ASTRO_API_URL"), fc.AstroAPI.URL, defaultAstroAPIURL)
	cfg.AstroAPITimeout = parseDurationOrZero(fc.AstroAPI.Timeout, 10*time.Second)

	cfg.Location = LocationConfig{
		Name:           firstNonEmpty(fc.Location.Name, "Theni, TN"),
		Latitude:       floatOr(fc.Location.Latitude, 10.0079),
		Longitude:      floatOr(fc.Location.Longitude, 77.4735),
		TimezoneName:   firstNonEmpty(fc.Location.Timezone, "Asia/Kolkata"),
		TimezoneOffset: floatOr(fc.Location.TimezoneOffset, 5.5),
		ZoneLabel:      firstNonEmpty(fc.Location.ZoneLabel, "IST"),
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 30*time.Second)
	cfg.RateLimitRPS = intOr(fc.Reliability.RateLimitRPS, 30)
	cfg.RateLimitBurst = intOr(fc.Reliability.RateLimitBurst, 60)
	cfg.DedupeSize = intOr(fc.Reliability.DedupeSize, 1024)
	cfg.DedupeTTL = parseDuration(fc.Reliability.DedupeTTL, 10*time.Minute)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.OverloadWindow = parseDuration(fc.Health.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = intOr(fc.Health.OverloadThresholdPct, 80)
	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = intOr(fc.Health.DegradedErrorPct, 50)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readYAML decodes path into v. A missing file is not an error.
func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func floatOr(v *float64, defaultVal float64) float64 {
	if v == nil {
		return defaultVal
	}
	return *v
}

func intOr(v, defaultVal int) int {
	if v <= 0 {
		return defaultVal
	}
	return v
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks loaded values. RequestTimeout is raised to cover one upstream
// call plus two Bot API sends when configured lower.
func validate(cfg *Config) error {
	if cfg.AstroAPITimeout <= 0 {
		return fmt.Errorf("astro_api.timeout must be positive")
	}
	if u, err := url.Parse(cfg.AstroAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("astro_api.url is not an absolute URL: %q", cfg.AstroAPIURL)
	}
	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a TCP port, got %q", cfg.ServerPort)
	}
	if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 {
		return fmt.Errorf("location.latitude out of range: %v", cfg.Location.Latitude)
	}
	if cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
		return fmt.Errorf("location.longitude out of range: %v", cfg.Location.Longitude)
	}
	if cfg.Location.TimezoneOffset < -12 || cfg.Location.TimezoneOffset > 14 {
		return fmt.Errorf("location.timezone_offset out of range: %v", cfg.Location.TimezoneOffset)
	}
	if min := cfg.AstroAPITimeout + 2*cfg.TelegramAPITimeout; cfg.RequestTimeout < min {
		cfg.RequestTimeout = min
	}
	if cfg.WebhookConfigured() {
		if u, err := url.Parse(cfg.WebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an https URL, got %q", cfg.WebhookURL)
		}
	}
	return nil
}
