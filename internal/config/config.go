package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the main config struct
type Config struct {
	Environment string           `yaml:"environment" env:"ENVIRONMENT" env-default:"production" env-description:"Environment name"`
	Secret      string           `yaml:"secret" env:"SECRET" env-default:"" env-description:"Bearer secret for the admin API surface"`
	Verbose     string           `yaml:"verbose" env:"VERBOSE" env-default:"info" env-description:"Verbose mode for debug output"`
	Database    DatabaseConfig   `yaml:"database"`
	API         APIConfig        `yaml:"api"`
	Content     ContentConfig    `yaml:"content"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Moderation  ModerationConfig `yaml:"moderation"`
}

// API config
type APIConfig struct {
	Host         string        `yaml:"host" env:"API_HOST" env-default:"localhost" env-description:"API host address to bind to"`
	Port         int           `yaml:"port" env:"API_PORT" env-default:"8080" env-description:"API port to bind to"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"API_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"API_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"API_IDLE_TIMEOUT" env-default:"15s"`
	Timeout      time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s" env-description:"Per-request middleware timeout"`
}

// SQLite, PostgreSQL or MySQL config
type DatabaseConfig struct {
	// Driver is the database driver to use. Supported drivers are "sqlite3", "postgres" and "mysql".
	Driver     string        `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite3" env-description:"Database driver to use"`
	Connection string        `yaml:"connection" env:"DATABASE_CONNECTION" env-default:":memory:" env-description:"Database connection string"`
	Timeout    time.Duration `yaml:"timeout" env:"DATABASE_TIMEOUT" env-default:"5s" env-description:"Per-call storage timeout"`
}

// Content collaborator service config
type ContentConfig struct {
	BaseURL   string        `yaml:"base_url" env:"CONTENT_BASE_URL" env-default:"http://localhost:8081" env-description:"Content service base URL"`
	Timeout   time.Duration `yaml:"timeout" env:"CONTENT_TIMEOUT" env-default:"5s"`
	CacheSize int64         `yaml:"cache_size" env:"CONTENT_CACHE_SIZE" env-default:"1048576" env-description:"Content lookup cache size in bytes"`
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"CONTENT_CACHE_TTL" env-default:"30s"`
	Proxy     ProxyConfig   `yaml:"proxy"`
}

// SOCKS5 proxy config for outbound calls
type ProxyConfig struct {
	Address  string `yaml:"address" env:"PROXY_ADDRESS" env-default:""`
	Port     int    `yaml:"port" env:"PROXY_PORT" env-default:"0"`
	Username string `yaml:"username" env:"PROXY_USERNAME" env-default:""`
	Password string `yaml:"password" env:"PROXY_PASSWORD" env-default:""`
}

// InfluxDB metrics config
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
	URL     string `yaml:"url" env:"METRICS_URL" env-default:""`
	Token   string `yaml:"token" env:"METRICS_TOKEN" env-default:""`
	Org     string `yaml:"org" env:"METRICS_ORG" env-default:""`
	Bucket  string `yaml:"bucket" env:"METRICS_BUCKET" env-default:""`
}

// Moderation policy knobs. These are the canonical minimums and authority caps;
// over-cap values are rejected, never clamped.
type ModerationConfig struct {
	ModeratorSuspensionCapDays int `yaml:"moderator_suspension_cap_days" env:"MODERATOR_SUSPENSION_CAP_DAYS" env-default:"30" env-description:"Max suspension duration a moderator may issue"`
	AdminSuspensionCapDays     int `yaml:"admin_suspension_cap_days" env:"ADMIN_SUSPENSION_CAP_DAYS" env-default:"365" env-description:"Max suspension duration an administrator may issue"`
	ActionReasonMinLength      int `yaml:"action_reason_min_length" env:"ACTION_REASON_MIN_LENGTH" env-default:"20" env-description:"Minimum ledger entry reason length"`
	ExtensionReasonMinLength   int `yaml:"extension_reason_min_length" env:"EXTENSION_REASON_MIN_LENGTH" env-default:"20" env-description:"Minimum reason length on admin extension"`
	BanReasonMinLength         int `yaml:"ban_reason_min_length" env:"BAN_REASON_MIN_LENGTH" env-default:"100" env-description:"Minimum ban reason length"`
	AppealMinLength            int `yaml:"appeal_min_length" env:"APPEAL_MIN_LENGTH" env-default:"50" env-description:"Minimum appeal explanation length"`
	DefaultAppealWindowDays    int `yaml:"default_appeal_window_days" env:"DEFAULT_APPEAL_WINDOW_DAYS" env-default:"30"`
	AuditPageLimit             int `yaml:"audit_page_limit" env:"AUDIT_PAGE_LIMIT" env-default:"50" env-description:"Max audit query page size"`

	// SeverityOverrides rebinds a violation category to a severity level,
	// e.g. "spam: high". The always-critical categories are not overridable.
	SeverityOverrides map[string]string `yaml:"severity_overrides" env:"SEVERITY_OVERRIDES" env-description:"Category to severity overrides, e.g. spam:high"`
}

// ConfigError - config loading failure
type ConfigError struct {
	Message string
}

// Error - implement the error interface for our error type
func (e *ConfigError) Error() string {
	return e.Message
}

func MustLoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}

	var config Config

	// Without a config file the environment alone drives the config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, &ConfigError{
				Message: fmt.Sprintf("Cannot read config from environment: %s", err),
			}
		}
		return &config, nil
	}

	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Cannot read config file: %s", err),
		}
	}

	return &config, nil
}
