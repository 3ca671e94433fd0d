package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
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
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DataConfig describes where trade records come from and how they are parsed.
type DataConfig struct {
	Source          string        `yaml:"source" envconfig:"SOURCE"`
	ExportFiles     []string      `yaml:"export_files" envconfig:"EXPORT_FILES"`
	ImportFiles     []string      `yaml:"import_files" envconfig:"IMPORT_FILES"`
	Dir             string        `yaml:"dir" envconfig:"DIR"`
	Encoding        string        `yaml:"encoding" envconfig:"ENCODING"`
	Delimiter       string        `yaml:"delimiter" envconfig:"DELIMITER"`
	Sheet           string        `yaml:"sheet" envconfig:"SHEET"`
	UF              string        `yaml:"uf" envconfig:"UF"`
	SQLitePath      string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	PostgresURL     string        `yaml:"postgres_url" envconfig:"POSTGRES_URL"`
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	LoadTimeout     time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT"`
}

// DashboardConfig holds presentation limits for aggregated views.
type DashboardConfig struct {
	DefaultTopN int `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N"`
	MaxTopN     int `yaml:"max_top_n" envconfig:"MAX_TOP_N"`
	ChartWidth  int `yaml:"chart_width" envconfig:"CHART_WIDTH"`
	ChartHeight int `yaml:"chart_height" envconfig:"CHART_HEIGHT"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load loads configuration from defaults, the config file (if any) and
// environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit YAML file path. An empty path skips the file.
func LoadFrom(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		if err := loadFromFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched, so file and
	// default values survive unless explicitly overridden.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file on top of cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize canonicalizes free-form string settings
func (c *Config) normalize() {
	c.Data.Source = strings.ToLower(strings.TrimSpace(c.Data.Source))
	c.Data.Encoding = strings.ToLower(strings.TrimSpace(c.Data.Encoding))
	if c.Data.Encoding == "iso-8859-1" || c.Data.Encoding == "latin-1" {
		c.Data.Encoding = EncodingLatin1
	}
	if c.Data.Encoding == "utf8" {
		c.Data.Encoding = EncodingUTF8
	}
	c.Data.UF = strings.ToUpper(strings.TrimSpace(c.Data.UF))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
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

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if err := c.Data.validate(); err != nil {
		return err
	}

	if c.Dashboard.DefaultTopN <= 0 {
		return fmt.Errorf("dashboard default_top_n must be positive")
	}
	if c.Dashboard.MaxTopN < c.Dashboard.DefaultTopN {
		return fmt.Errorf("dashboard max_top_n (%d) is below default_top_n (%d)",
			c.Dashboard.MaxTopN, c.Dashboard.DefaultTopN)
	}

	return nil
}

func (d *DataConfig) validate() error {
	switch d.Source {
	case SourceFile:
		if len(d.ExportFiles)+len(d.ImportFiles) == 0 && d.Dir == "" {
			return fmt.Errorf("data source %q requires export_files, import_files or dir", d.Source)
		}
	case SourceSQLite:
		if d.SQLitePath == "" {
			return fmt.Errorf("data source %q requires sqlite_path", d.Source)
		}
	case SourcePostgres:
		if d.PostgresURL == "" {
			return fmt.Errorf("data source %q requires postgres_url", d.Source)
		}
	default:
		return fmt.Errorf("unknown data source: %q", d.Source)
	}

	switch d.Encoding {
	case EncodingUTF8, EncodingLatin1:
	default:
		return fmt.Errorf("unsupported encoding: %q", d.Encoding)
	}

	if len([]rune(d.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", d.Delimiter)
	}

	if d.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}

	return nil
}

// DelimiterRune returns the configured delimiter as a rune
func (d DataConfig) DelimiterRune() rune {
	r := []rune(d.Delimiter)
	if len(r) == 0 {
		return ';'
	}
	return r[0]
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
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

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			Source:          SourceSQLite,
			Encoding:        EncodingUTF8,
			Delimiter:       DefaultDelimiter,
			UF:              DefaultUF,
			SQLitePath:      DefaultSQLitePath,
			RefreshInterval: DefaultRefreshInterval,
			LoadTimeout:     DefaultLoadTimeout,
		},
		Dashboard: DashboardConfig{
			DefaultTopN: DefaultTopN,
			MaxTopN:     DefaultMaxTopN,
			ChartWidth:  1000,
			ChartHeight: 600,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
