package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. ERW_SERVER_PORT.
const EnvPrefix = "ERW"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Archive   ArchiveConfig   `yaml:"archive" envconfig:"ARCHIVE"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Seed      SeedConfig      `yaml:"seed" envconfig:"SEED"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// IngestKeys maps API key to client name for uploads. Empty leaves
	// uploads open.
	IngestKeys map[string]string `yaml:"ingest_keys" envconfig:"INGEST_KEYS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "pgx"
)

// StoreConfig selects the sample store backend.
type StoreConfig struct {
	Driver       string        `yaml:"driver" envconfig:"DRIVER"`
	DSN          string        `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	PingTimeout  time.Duration `yaml:"ping_timeout" envconfig:"PING_TIMEOUT"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig configures the dashboard response cache.
type CacheConfig struct {
	Backend     string        `yaml:"backend" envconfig:"BACKEND"`
	Addr        string        `yaml:"addr" envconfig:"ADDR"`
	Password    string        `yaml:"password" envconfig:"PASSWORD"`
	DB          int           `yaml:"db" envconfig:"DB"`
	Prefix      string        `yaml:"prefix" envconfig:"PREFIX"`
	TTL         time.Duration `yaml:"ttl" envconfig:"TTL"`
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT"`
}

// Archive backends.
const (
	ArchiveNone = "none"
	ArchiveFS   = "fs"
	ArchiveS3   = "s3"
)

// ArchiveConfig configures where uploaded workbooks are kept.
type ArchiveConfig struct {
	Backend      string `yaml:"backend" envconfig:"BACKEND"`
	Dir          string `yaml:"dir" envconfig:"DIR"`
	Bucket       string `yaml:"bucket" envconfig:"BUCKET"`
	Region       string `yaml:"region" envconfig:"REGION"`
	Endpoint     string `yaml:"endpoint" envconfig:"ENDPOINT"`
	Prefix       string `yaml:"prefix" envconfig:"PREFIX"`
	UsePathStyle bool   `yaml:"use_path_style" envconfig:"USE_PATH_STYLE"`

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
}

// AnalyticsConfig tunes the dashboard computations.
type AnalyticsConfig struct {
	ComparisonWorkers int    `yaml:"comparison_workers" envconfig:"COMPARISON_WORKERS"`
	DefaultFeedstock  string `yaml:"default_feedstock" envconfig:"DEFAULT_FEEDSTOCK"`
	DefaultThreshold  int    `yaml:"default_threshold" envconfig:"DEFAULT_THRESHOLD"`
}

// SeedConfig points at a workbook loaded into an empty store at startup.
type SeedConfig struct {
	Path      string `yaml:"path" envconfig:"PATH"`
	Feedstock string `yaml:"feedstock" envconfig:"FEEDSTOCK"`
	Threshold int    `yaml:"threshold" envconfig:"THRESHOLD"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, the first config file found
// and ERW_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave file and default values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	// JSON is the only log format.
	c.Logging.Format = "json"
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/erwpulse.log"
	}

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Addr == "" {
			return fmt.Errorf("redis cache requires an address")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	c.Archive.Backend = strings.ToLower(c.Archive.Backend)
	switch c.Archive.Backend {
	case ArchiveNone:
	case ArchiveFS:
		if c.Archive.Dir == "" {
			return fmt.Errorf("filesystem archive requires a directory")
		}
	case ArchiveS3:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("s3 archive requires a bucket")
		}
	default:
		return fmt.Errorf("unknown archive backend: %q", c.Archive.Backend)
	}

	if c.Analytics.ComparisonWorkers < 1 {
		return fmt.Errorf("comparison workers must be at least 1")
	}
	c.Analytics.DefaultFeedstock = strings.ToLower(strings.TrimSpace(c.Analytics.DefaultFeedstock))
	if c.Analytics.DefaultFeedstock == "" {
		return fmt.Errorf("default feedstock must be set")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
			ShutdownTimeout: 30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/erwpulse.log",
		},
		Store: StoreConfig{
			Driver:       StoreMemory,
			MaxOpenConns: 10,
			PingTimeout:  5 * time.Second,
		},
		Cache: CacheConfig{
			Backend:     CacheMemory,
			Prefix:      "erwpulse",
			TTL:         DataCacheDuration,
			DialTimeout: 5 * time.Second,
		},
		Archive: ArchiveConfig{
			Backend: ArchiveNone,
			Prefix:  "uploads",
		},
		Analytics: AnalyticsConfig{
			ComparisonWorkers: 4,
			DefaultFeedstock:  DefaultFeedstock,
			DefaultThreshold:  DefaultThreshold,
		},
		Seed: SeedConfig{
			Feedstock: DefaultFeedstock,
			Threshold: DefaultThreshold,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
