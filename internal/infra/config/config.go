package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"crewdesk/internal/domain"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	SoapPath        string `yaml:"soap_path"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"` // 0 disables rate limiting
	RateLimitBurst  int    `yaml:"rate_limit_burst"`
}

// ConnectorConfig holds Web Connector protocol settings.
type ConnectorConfig struct {
	AppName          string `yaml:"app_name"`
	ServerVersion    string `yaml:"server_version"`
	MinClientVersion string `yaml:"min_client_version"`
	SessionTTL       string `yaml:"session_ttl"`
	SweepInterval    string `yaml:"sweep_interval"` // cron spec or duration for session sweep
	DirectorySync    bool   `yaml:"directory_sync"` // enable the one-shot employee directory pull
}

// AuthConfig holds connector credentials. Password is a bcrypt hash unless
// it does not look like one, in which case it is compared as plaintext
// (legacy configs).
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StoreConfig holds sqlite persistence settings.
type StoreConfig struct {
	Path          string `yaml:"path"`
	LogRetention  string `yaml:"log_retention"`  // prune sync log entries older than this
	StaleReclaim  string `yaml:"stale_reclaim"`  // reclaim processing items older than this
	MaintSchedule string `yaml:"maint_schedule"` // cron spec for prune/reclaim jobs
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stdout", "stderr", or a file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Connector ConnectorConfig `yaml:"connector"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// Defaults returns a Config populated with sane defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8090",
			SoapPath:        "/qbwc",
			ReadTimeout:     "30s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
			RateLimitPerMin: 120,
			RateLimitBurst:  30,
		},
		Connector: ConnectorConfig{
			AppName:          "Crewdesk Sync",
			ServerVersion:    "1.0.0",
			MinClientVersion: "2.0",
			SessionTTL:       "30m",
			SweepInterval:    "@every 5m",
			DirectorySync:    true,
		},
		Store: StoreConfig{
			Path:          "./data/crewdesk.db",
			LogRetention:  "720h",
			StaleReclaim:  "1h",
			MaintSchedule: "@every 15m",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a yaml config file, applies env overrides and validates the
// result. A missing file is not an error; defaults plus env are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigLoad, path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}

	return cfg, nil
}

// ApplyEnvOverrides maps CREWDESK_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CREWDESK_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CREWDESK_AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("CREWDESK_AUTH_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("CREWDESK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("CREWDESK_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CREWDESK_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
		if cfg.Tracer.Exporter == "" || cfg.Tracer.Exporter == "noop" {
			cfg.Tracer.Exporter = "stdout"
		}
	}
	if v := os.Getenv("CREWDESK_SESSION_TTL"); v != "" {
		cfg.Connector.SessionTTL = v
	}
	if v := os.Getenv("CREWDESK_DIRECTORY_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Connector.DirectorySync = b
		}
	}
}

// Validate checks the config for values that would fail at runtime.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.SoapPath == "" || cfg.Server.SoapPath[0] != '/' {
		return fmt.Errorf("server.soap_path must start with /")
	}
	for name, val := range map[string]string{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"connector.session_ttl":   cfg.Connector.SessionTTL,
		"store.log_retention":     cfg.Store.LogRetention,
		"store.stale_reclaim":     cfg.Store.StaleReclaim,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := strconv.ParseFloat(cfg.Connector.MinClientVersion, 64); err != nil {
		return fmt.Errorf("connector.min_client_version: %w", err)
	}
	if cfg.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("server.rate_limit_per_min must be >= 0")
	}
	return nil
}

// Duration parses a duration field that Validate has already checked.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
