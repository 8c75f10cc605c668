package main

import (
	"log/slog"
	"strings"
	"time"

	"appgate/application/lifespan"
	"appgate/application/server"
	"appgate/resources/objectstore"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Config struct {
	Listen        string
	MetricsListen string
	LogLevel      slog.Level

	Lifespan        server.LifespanMode
	LifespanVariant lifespan.Variant
	LifespanTimeout time.Duration
	ShutdownTimeout time.Duration

	// Routes selects the endpoint set: "default" or "greeting".
	Routes      string
	MaxBodySize uint
	ChunkSize   int

	DataDir    string
	CacheTTL   time.Duration
	S3         objectstore.Config
	WebhookURL string
}

func DefaultConfig() Config {
	return Config{
		Listen:          "127.0.0.1:8000",
		LogLevel:        slog.LevelInfo,
		Lifespan:        server.LifespanAuto,
		LifespanVariant: lifespan.VariantHandshake,
		LifespanTimeout: 30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Routes:          "default",
		MaxBodySize:     1 << 20,
		CacheTTL:        time.Minute,
	}
}

// config.toml key mapping to Config.
type fileConfig struct {
	Listen          string       `toml:"listen"`
	MetricsListen   string       `toml:"metrics_listen"`
	LogLevel        string       `toml:"log_level"`
	Lifespan        string       `toml:"lifespan"`
	LifespanVariant string       `toml:"lifespan_variant"`
	LifespanTimeout string       `toml:"lifespan_timeout"`
	ShutdownTimeout string       `toml:"shutdown_timeout"`
	Routes          string       `toml:"routes"`
	MaxBodySize     uint         `toml:"max_body_size"`
	ChunkSize       int          `toml:"chunk_size"`
	DataDir         string       `toml:"data_dir"`
	CacheTTL        string       `toml:"cache_ttl"`
	WebhookURL      string       `toml:"webhook_url"`
	S3              s3FileConfig `toml:"s3"`
}

type s3FileConfig struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// loadConfig decodes path on top of DefaultConfig. Only keys present in
// the file override defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load appgate config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("load appgate config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("metrics_listen") {
		cfg.MetricsListen = strings.TrimSpace(raw.MetricsListen)
	}
	if meta.IsDefined("log_level") {
		if err := cfg.setLogLevel(raw.LogLevel); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("lifespan") {
		if err := cfg.setLifespan(raw.Lifespan); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("lifespan_variant") {
		if err := cfg.setLifespanVariant(raw.LifespanVariant); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("lifespan_timeout") {
		if cfg.LifespanTimeout, err = parseDuration("lifespan_timeout", raw.LifespanTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("shutdown_timeout") {
		if cfg.ShutdownTimeout, err = parseDuration("shutdown_timeout", raw.ShutdownTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("routes") {
		cfg.Routes = strings.TrimSpace(raw.Routes)
	}
	if meta.IsDefined("max_body_size") {
		cfg.MaxBodySize = raw.MaxBodySize
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("data_dir") {
		cfg.DataDir = strings.TrimSpace(raw.DataDir)
	}
	if meta.IsDefined("cache_ttl") {
		if cfg.CacheTTL, err = parseDuration("cache_ttl", raw.CacheTTL); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("webhook_url") {
		cfg.WebhookURL = strings.TrimSpace(raw.WebhookURL)
	}
	if meta.IsDefined("s3") {
		cfg.S3 = objectstore.Config{
			Bucket:    strings.TrimSpace(raw.S3.Bucket),
			Region:    strings.TrimSpace(raw.S3.Region),
			Endpoint:  strings.TrimSpace(raw.S3.Endpoint),
			AccessKey: raw.S3.AccessKey,
			SecretKey: raw.S3.SecretKey,
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) setLogLevel(s string) error {
	return errors.Wrap(c.LogLevel.UnmarshalText([]byte(strings.TrimSpace(s))), "log_level")
}

func (c *Config) setLifespan(s string) error {
	mode := server.LifespanMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case server.LifespanAuto, server.LifespanOn, server.LifespanOff:
		c.Lifespan = mode
		return nil
	}
	return errors.Errorf("lifespan: unsupported mode %q (expected auto, on or off)", s)
}

func (c *Config) setLifespanVariant(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "handshake":
		c.LifespanVariant = lifespan.VariantHandshake
	case "echo":
		c.LifespanVariant = lifespan.VariantEcho
	default:
		return errors.Errorf("lifespan_variant: unsupported variant %q (expected handshake or echo)", s)
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	return d, errors.Wrap(err, key)
}

func (c Config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.Routes != "default" && c.Routes != "greeting" {
		return errors.Errorf("routes: unsupported set %q (expected default or greeting)", c.Routes)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}
