package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"parley/internal/api"
	"parley/internal/chat"
	"parley/internal/history"
	"parley/internal/ws"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL      string `yaml:"api_url"`
	WSURL       string `yaml:"ws_url"`
	DBFile      string `yaml:"db"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	ReconnectBase  time.Duration `yaml:"reconnect_base"`
	ReconnectMax   time.Duration `yaml:"reconnect_max"`
	MaxRetries     int           `yaml:"reconnect_retries"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	TypingDebounce time.Duration `yaml:"typing_debounce"`
	TypingTTL      time.Duration `yaml:"typing_ttl"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestRate    float64       `yaml:"request_rate"`
}

func Default() *Config {
	return &Config{
		APIURL:         api.DefaultBaseURL,
		WSURL:          "ws://localhost:5000/ws",
		DBFile:         "parley.db",
		LogLevel:       "info",
		ReconnectBase:  ws.DefaultBaseDelay,
		ReconnectMax:   ws.DefaultMaxDelay,
		MaxRetries:     ws.DefaultMaxRetries,
		Heartbeat:      ws.DefaultHeartbeat,
		TypingDebounce: chat.DefaultTypingDebounce,
		TypingTTL:      chat.DefaultTypingTTL,
		PollInterval:   history.DefaultPollInterval,
		RequestTimeout: api.DefaultTimeout,
		RequestRate:    api.DefaultRate,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $PARLEY_CONFIG), then the environment. A .env file in the working
// directory is read into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path == "" {
		path = os.Getenv("PARLEY_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.APIURL = getEnv("PARLEY_API_URL", c.APIURL)
	c.WSURL = getEnv("PARLEY_WS_URL", c.WSURL)
	c.DBFile = getEnv("PARLEY_DB", c.DBFile)
	c.LogLevel = getEnv("PARLEY_LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = getEnv("PARLEY_METRICS_ADDR", c.MetricsAddr)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PARLEY_RECONNECT_BASE", &c.ReconnectBase},
		{"PARLEY_RECONNECT_MAX", &c.ReconnectMax},
		{"PARLEY_HEARTBEAT", &c.Heartbeat},
		{"PARLEY_TYPING_DEBOUNCE", &c.TypingDebounce},
		{"PARLEY_TYPING_TTL", &c.TypingTTL},
		{"PARLEY_POLL_INTERVAL", &c.PollInterval},
		{"PARLEY_REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := os.LookupEnv("PARLEY_RECONNECT_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARLEY_RECONNECT_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v, ok := os.LookupEnv("PARLEY_REQUEST_RATE"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PARLEY_REQUEST_RATE: %w", err)
		}
		c.RequestRate = r
	}
	return nil
}

func (c *Config) Validate() error {
	if err := checkURL("PARLEY_API_URL", c.APIURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("PARLEY_WS_URL", c.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.DBFile == "" {
		return fmt.Errorf("PARLEY_DB is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("PARLEY_LOG_LEVEL: %w", err)
	}
	if c.ReconnectBase <= 0 {
		return fmt.Errorf("PARLEY_RECONNECT_BASE must be greater than 0")
	}
	if c.ReconnectMax < c.ReconnectBase {
		return fmt.Errorf("PARLEY_RECONNECT_MAX must not be less than PARLEY_RECONNECT_BASE")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("PARLEY_RECONNECT_RETRIES must not be negative")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("PARLEY_HEARTBEAT must be greater than 0")
	}
	if c.TypingDebounce <= 0 {
		return fmt.Errorf("PARLEY_TYPING_DEBOUNCE must be greater than 0")
	}
	if c.TypingTTL < 0 {
		return fmt.Errorf("PARLEY_TYPING_TTL must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("PARLEY_POLL_INTERVAL must be greater than 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("PARLEY_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.RequestRate <= 0 {
		return fmt.Errorf("PARLEY_REQUEST_RATE must be greater than 0")
	}
	return nil
}

// Level returns the parsed log level, info if it does not parse.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, schemes[0], raw)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
